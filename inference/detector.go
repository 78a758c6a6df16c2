// Package inference - Detector: image in, detections out.
package inference

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Detector turns images into detections with an Engine and the post-processing pipeline.
//
// A Detector is safe for concurrent use when its Engine is.
type Detector struct {
	engine Engine
	config postprocess.Config
	logger *zap.Logger
}

// NewDetector creates a detector.
//
// The pipeline input size is taken from the engine so box geometry is always divided by
// the side length the model actually saw.
//
// Arguments:
//   - engine: The inference engine. The detector does not close it.
//   - cfg: The post-processing configuration.
//   - logger: The logger, nil for none.
//
// Returns:
//   - *Detector: The detector.
//   - error: ErrLabelMismatch, or an error if cfg is invalid.
func NewDetector(engine Engine, cfg postprocess.Config, logger *zap.Logger) (*Detector, error) {
	if engine == nil {
		return nil, errors.New("nil engine")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	shape := engine.Shape()
	if err := checkLabels(shape, cfg.Labels); err != nil {
		return nil, err
	}

	cfg.Labels = cfg.Labels.Clone()
	cfg.InputSize = float32(shape.InputSize)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid detection configuration")
	}

	return &Detector{engine: engine, config: cfg, logger: logger}, nil
}

// Config returns the post-processing configuration in use.
func (d *Detector) Config() postprocess.Config {
	cfg := d.config
	cfg.Labels = cfg.Labels.Clone()
	return cfg
}

// Detect runs the model on img and returns its detections, highest confidence first.
//
// ctx is checked before preprocessing and before inference. An image with nothing above
// the confidence threshold yields an empty slice and no error.
//
// Arguments:
//   - ctx: The context.
//   - img: The image, any size.
//
// Returns:
//   - []postprocess.Detection: Boxes normalized to [0,1] of the image.
//   - error: A context, preprocessing or inference error.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]postprocess.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shape := d.engine.Shape()
	input, err := images.NewTensor(img, shape.InputSize, shape.Layout)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare input")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := d.engine.Run(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	detections := postprocess.Detect(out, d.config)
	d.logger.Debug("detected",
		zap.Int("count", len(detections)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return detections, nil
}

// Scan detects objects in img and reports the best one with its disposal category.
func (d *Detector) Scan(ctx context.Context, img image.Image) (Report, error) {
	detections, err := d.Detect(ctx, img)
	if err != nil {
		return Report{}, err
	}
	return NewReport(detections), nil
}
