package postprocess

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models"
)

const (
	// DefaultInputSize is the side length of the square model input.
	DefaultInputSize = 640
	// DefaultConfidenceThreshold rejects proposals scoring at or below it.
	DefaultConfidenceThreshold = 0.2
	// DefaultIoUThreshold suppresses boxes overlapping a kept box above it.
	DefaultIoUThreshold = 0.45
)

// Config is the immutable configuration of a pipeline run.
type Config struct {
	// Labels names the class rows of the tensor. Only read during a run.
	Labels models.Labels
	// InputSize is the side length, in pixels, of the model input. Box geometry is
	// divided by it.
	InputSize float32
	// ConfidenceThreshold is the score a proposal must strictly exceed.
	ConfidenceThreshold float32
	// NMS configures suppression.
	NMS NMSConfig
}

// DefaultConfig returns the configuration of the waste-sorting model.
//
// Returns:
//   - Config: 640px input, confidence 0.2, IoU 0.45, class-agnostic suppression.
func DefaultConfig() Config {
	return Config{
		Labels:              models.WasteLabels,
		InputSize:           DefaultInputSize,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		NMS: NMSConfig{
			IoUThreshold: DefaultIoUThreshold,
		},
	}
}

// Validate checks the ranges of the configuration.
func (c Config) Validate() error {
	if c.InputSize <= 0 {
		return errors.Errorf("input size must be positive, got %v", c.InputSize)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return errors.Errorf("confidence threshold must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.NMS.IoUThreshold < 0 || c.NMS.IoUThreshold > 1 {
		return errors.Errorf("IoU threshold must be in [0,1], got %v", c.NMS.IoUThreshold)
	}
	return nil
}

// Detect runs Decode, Filter and Suppress in that order.
//
// It is a pure function of its arguments: out and cfg.Labels are only read, and the
// result shares no memory with them. No detections is a normal outcome.
//
// Arguments:
//   - out: The raw [1][4+C][P] model output.
//   - cfg: The pipeline configuration.
//
// Returns:
//   - []Detection: Non-overlapping detections, highest confidence first, never nil.
func Detect(out Output, cfg Config) []Detection {
	return Suppress(Filter(Decode(out), cfg), cfg.NMS)
}
