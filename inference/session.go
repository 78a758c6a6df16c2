// Package inference - Inference sessions.
package inference

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

var (
	environmentOnce sync.Once
	environmentErr  error
)

// initEnvironment loads the onnxruntime shared library. It runs once per process.
func initEnvironment() error {
	environmentOnce.Do(func() {
		libPath := GetSharedLibPath()
		if _, err := os.Stat(libPath); err != nil {
			environmentErr = errors.Wrapf(err, "ONNX Runtime library not found at %s (set %s)", libPath, SharedLibEnv)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			environmentErr = errors.Wrap(err, "error initializing ORT environment")
		}
	})
	return environmentErr
}

// Stats are the counters of a session.
type Stats struct {
	// Inferences is the number of completed Run calls.
	Inferences int64
	// Total is the time spent inside the runtime.
	Total time.Duration
}

// Average returns the mean inference duration, or 0 before the first inference.
func (s Stats) Average() time.Duration {
	if s.Inferences == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Inferences)
}

// Session is an Engine backed by an onnxruntime session with preallocated tensors.
//
// Run calls are serialized: the input and output tensors are bound to the native session
// and reused between calls.
type Session struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	shape   Shape
	logger  *zap.Logger
	stats   Stats
	closed  bool
}

// NewSession opens an ONNX detection model.
//
// Order of operations:
//  1. Environment setup: loads the native library once per process.
//  2. Shape discovery: reads the input and output dimensions from the model file.
//  3. Label check: the label list must name every class row of the output.
//  4. Tensor allocation and session creation.
//
// Arguments:
//   - cfg: The model configuration.
//   - labels: The class labels in index order.
//   - logger: The logger, nil for none.
//
// Returns:
//   - *Session: The session. Close must be called to release native memory.
//   - error: ErrLabelMismatch, or an error if the model cannot be loaded.
func NewSession(cfg model.Config, labels models.Labels, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid model configuration")
	}
	if err := initEnvironment(); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading model metadata from %s", cfg.Path)
	}
	inputInfo, err := findInfo(inputs, cfg.Input)
	if err != nil {
		return nil, err
	}
	outputInfo, err := findInfo(outputs, cfg.Output)
	if err != nil {
		return nil, err
	}

	shape, err := resolveShape(cfg, inputInfo.Dimensions, outputInfo.Dimensions)
	if err != nil {
		return nil, err
	}
	if err := checkLabels(shape, labels); err != nil {
		return nil, err
	}

	s := &Session{shape: shape, logger: logger}
	if err := s.open(cfg); err != nil {
		return nil, multierr.Append(err, s.release())
	}

	logger.Info("model loaded",
		zap.String("path", cfg.Path),
		zap.Int("input_size", shape.InputSize),
		zap.String("layout", string(shape.Layout)),
		zap.Int("classes", shape.Classes),
		zap.Int("proposals", shape.Proposals),
	)
	return s, nil
}

func (s *Session) open(cfg model.Config) error {
	var inputShape ort.Shape
	if s.shape.Layout == model.LayoutHWC {
		inputShape = ort.NewShape(1, int64(s.shape.InputSize), int64(s.shape.InputSize), 3)
	} else {
		inputShape = ort.NewShape(1, 3, int64(s.shape.InputSize), int64(s.shape.InputSize))
	}

	var err error
	s.input, err = ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return errors.Wrap(err, "error creating input tensor")
	}
	s.output, err = ort.NewEmptyTensor[float32](
		ort.NewShape(1, int64(postprocess.BoxAttributes+s.shape.Classes), int64(s.shape.Proposals)),
	)
	if err != nil {
		return errors.Wrap(err, "error creating output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return errors.Wrap(err, "error creating ORT session options")
	}
	defer options.Destroy()

	if cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			return errors.Wrap(err, "error setting intra-op threads")
		}
	}

	s.session, err = ort.NewAdvancedSession(
		cfg.Path,
		[]string{cfg.Input},
		[]string{cfg.Output},
		[]ort.Value{s.input},
		[]ort.Value{s.output},
		options,
	)
	if err != nil {
		return errors.Wrap(err, "error creating ORT session")
	}
	return nil
}

func findInfo(infos []ort.InputOutputInfo, name string) (ort.InputOutputInfo, error) {
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return ort.InputOutputInfo{}, errors.Errorf("model has no tensor named %q (have %v)", name, names)
}

// resolveShape derives the model geometry from the tensor dimensions stored in the model.
// Dynamic input dimensions (-1) take the configured input size.
func resolveShape(cfg model.Config, input, output ort.Shape) (Shape, error) {
	if len(input) != 4 {
		return Shape{}, errors.Errorf("expected a 4D image input, got %v", input)
	}

	var channels, height, width int64
	if cfg.Layout == model.LayoutHWC {
		height, width, channels = input[1], input[2], input[3]
	} else {
		channels, height, width = input[1], input[2], input[3]
	}
	if channels != 3 {
		return Shape{}, errors.Errorf("expected 3 input channels for %s layout, got %v", cfg.Layout, input)
	}
	if height != width {
		return Shape{}, errors.Errorf("expected a square input, got %v", input)
	}

	side := int(height)
	switch {
	case side <= 0 && cfg.InputSize <= 0:
		return Shape{}, errors.Errorf("model input %v is dynamic and no input size is configured", input)
	case side <= 0:
		side = cfg.InputSize
	case cfg.InputSize > 0 && cfg.InputSize != side:
		return Shape{}, errors.Errorf("configured input size %d does not match model input %v", cfg.InputSize, input)
	}

	if len(output) != 3 || output[0] != 1 {
		return Shape{}, errors.Errorf("expected a [1][4+C][P] output, got %v", output)
	}
	if output[1] <= postprocess.BoxAttributes || output[2] <= 0 {
		return Shape{}, errors.Errorf("unsupported output dimensions %v", output)
	}

	return Shape{
		InputSize: side,
		Layout:    cfg.Layout,
		Classes:   int(output[1]) - postprocess.BoxAttributes,
		Proposals: int(output[2]),
	}, nil
}

func checkLabels(shape Shape, labels models.Labels) error {
	if len(labels) != shape.Classes {
		return errors.Wrapf(ErrLabelMismatch, "%d labels for %d classes", len(labels), shape.Classes)
	}
	return nil
}

// Run copies input into the bound input tensor, runs the model and returns a copy of the
// output tensor.
//
// Arguments:
//   - ctx: Checked before the model runs. A running inference is not interrupted.
//   - input: The preprocessed image, Shape().InputLen() values long.
//
// Returns:
//   - postprocess.Output: The raw model output, owned by the caller.
//   - error: ErrClosed, a context error, or a runtime error.
func (s *Session) Run(ctx context.Context, input []float32) (postprocess.Output, error) {
	if err := ctx.Err(); err != nil {
		return postprocess.Output{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return postprocess.Output{}, ErrClosed
	}

	dst := s.input.GetData()
	if len(input) != len(dst) {
		return postprocess.Output{}, errors.Errorf("input has %d values, model expects %d", len(input), len(dst))
	}
	copy(dst, input)

	start := time.Now()
	if err := s.session.Run(); err != nil {
		return postprocess.Output{}, errors.Wrap(err, "error running ORT session")
	}
	elapsed := time.Since(start)

	s.stats.Inferences++
	s.stats.Total += elapsed
	s.logger.Debug("inference", zap.Duration("duration", elapsed))

	data := make([]float32, len(s.output.GetData()))
	copy(data, s.output.GetData())
	return postprocess.NewOutput(data, s.shape.Classes, s.shape.Proposals)
}

// Shape returns the model geometry.
func (s *Session) Shape() Shape {
	return s.shape
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close releases the native session and tensors. Calling it twice is a no-op.
//
// Returns:
//   - error: The combined errors of destroying the native objects.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("closing session",
		zap.Int64("inferences", s.stats.Inferences),
		zap.Duration("average", s.stats.Average()),
	)
	return s.release()
}

func (s *Session) release() error {
	var err error
	if s.session != nil {
		err = multierr.Append(err, errors.Wrap(s.session.Destroy(), "error destroying ORT session"))
		s.session = nil
	}
	if s.input != nil {
		err = multierr.Append(err, s.input.Destroy())
		s.input = nil
	}
	if s.output != nil {
		err = multierr.Append(err, s.output.Destroy())
		s.output = nil
	}
	return err
}
