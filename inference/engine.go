// Package inference - Inference engine interface and the detector built on top of it.
package inference

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

var (
	// ErrLabelMismatch is returned when the label list does not match the class rows of
	// the model output.
	ErrLabelMismatch = errors.New("label count does not match model classes")
	// ErrClosed is returned by Run after Close.
	ErrClosed = errors.New("engine is closed")
)

// Shape is the geometry of a detection model, read once when it is loaded.
type Shape struct {
	// InputSize is the side length of the square image input.
	InputSize int
	// Layout is the memory order of the image input.
	Layout model.Layout
	// Classes is the number of class score rows of the output.
	Classes int
	// Proposals is the number of proposal columns of the output.
	Proposals int
}

// InputLen returns the number of float32 values of one input image.
func (s Shape) InputLen() int {
	return 3 * s.InputSize * s.InputSize
}

// Engine runs a detection model on a preprocessed image tensor.
type Engine interface {
	// Run feeds one input tensor through the model. The returned output is owned by the
	// caller.
	Run(ctx context.Context, input []float32) (postprocess.Output, error)
	// Shape returns the model geometry.
	Shape() Shape
	// Close releases the model. Run fails with ErrClosed afterwards.
	Close() error
}

// EngineBuilder builds an ONNX engine with a fluent API.
type EngineBuilder struct {
	model  model.Config
	labels models.Labels
	logger *zap.Logger
	err    error
}

// NewEngineBuilder creates a new engine builder.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{
		model:  model.DefaultConfig(),
		logger: zap.NewNop(),
	}
}

// WithModel sets the model for the engine.
//
// Arguments:
//   - cfg: The model configuration.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithModel(cfg model.Config) *EngineBuilder {
	if b.HasError() {
		return b
	}
	b.model = cfg
	return b
}

// WithLabels sets the class labels, in class index order.
//
// Arguments:
//   - labels: The labels.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithLabels(labels models.Labels) *EngineBuilder {
	if b.HasError() {
		return b
	}
	b.labels = labels.Clone()
	return b
}

// WithLabelsFile reads the class labels from a file with one label per line.
//
// Arguments:
//   - path: The labels file.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithLabelsFile(path string) *EngineBuilder {
	if b.HasError() {
		return b
	}
	labels, err := models.LoadLabels(path)
	if err != nil {
		b.err = err
		return b
	}
	b.labels = labels
	return b
}

// WithLogger sets the logger of the engine.
func (b *EngineBuilder) WithLogger(logger *zap.Logger) *EngineBuilder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// HasError checks if the engine builder has errors.
//
// Returns:
//   - bool: True if there are errors, false otherwise.
func (b *EngineBuilder) HasError() bool {
	return b.err != nil
}

// Labels returns the labels the engine is built with. The built-in waste labels are used
// when none were set.
func (b *EngineBuilder) Labels() models.Labels {
	if b.labels == nil {
		return models.WasteLabels.Clone()
	}
	return b.labels.Clone()
}

// MustBuild builds the engine and panics if there is an error.
//
// Returns:
//   - Engine: The engine.
func (b *EngineBuilder) MustBuild() Engine {
	e, err := b.Build()
	if err != nil {
		panic(err)
	}
	return e
}

// Build builds the engine.
//
// Returns:
//   - Engine: The engine.
//   - error: The first error recorded by the builder, or the session error.
func (b *EngineBuilder) Build() (Engine, error) {
	if b.HasError() {
		return nil, b.err
	}
	if err := b.model.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid model configuration")
	}
	session, err := NewSession(b.model, b.Labels(), b.logger)
	if err != nil {
		return nil, err
	}
	return session, nil
}
