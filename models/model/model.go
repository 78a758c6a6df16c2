// Package model - Definitions of the detection model loaded by an inference session.
package model

import (
	"github.com/pkg/errors"
)

// Layout is the memory order of the image tensor fed to the model.
type Layout string

const (
	// LayoutCHW is the planar [1, 3, H, W] layout exported by PyTorch/ONNX.
	LayoutCHW Layout = "chw"
	// LayoutHWC is the interleaved [1, H, W, 3] layout used by TFLite exports.
	LayoutHWC Layout = "hwc"
)

// Valid reports whether the layout is one of the known layouts.
func (l Layout) Valid() bool {
	return l == LayoutCHW || l == LayoutHWC
}

const (
	// DefaultInputName is the input node name of Ultralytics exports.
	DefaultInputName = "images"
	// DefaultOutputName is the output node name of Ultralytics exports.
	DefaultOutputName = "output0"
)

// Config describes a model file and how to feed it.
type Config struct {
	// Path is the path to the .onnx model file.
	Path string `json:"path" yaml:"path"`
	// LabelsPath is a text file with one class label per line. Empty uses the built-in
	// waste labels.
	LabelsPath string `json:"labels_path" yaml:"labels_path"`
	// Input is the input node name.
	Input string `json:"input" yaml:"input"`
	// Output is the output node name.
	Output string `json:"output" yaml:"output"`
	// InputSize is the side length of the square input. Zero reads it from the model.
	InputSize int `json:"input_size" yaml:"input_size"`
	// Layout is the input tensor layout.
	Layout Layout `json:"layout" yaml:"layout"`
	// IntraOpThreads bounds the threads used inside a single operator. Zero lets the
	// runtime decide.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads"`
}

// DefaultConfig returns a configuration for a YOLOv8 ONNX export.
//
// Returns:
//   - Config: The default model configuration with an empty path.
func DefaultConfig() Config {
	return Config{
		Input:  DefaultInputName,
		Output: DefaultOutputName,
		Layout: LayoutCHW,
	}
}

// Validate checks that the configuration can be used to open a session.
//
// Returns:
//   - error: A description of the first invalid field, if any.
func (c Config) Validate() error {
	if c.Path == "" {
		return errors.New("model path is required")
	}
	if c.Input == "" || c.Output == "" {
		return errors.New("model input and output names are required")
	}
	if c.InputSize < 0 {
		return errors.Errorf("input size must not be negative, got %d", c.InputSize)
	}
	if !c.Layout.Valid() {
		return errors.Errorf("unknown tensor layout %q", c.Layout)
	}
	if c.IntraOpThreads < 0 {
		return errors.Errorf("intra-op threads must not be negative, got %d", c.IntraOpThreads)
	}
	return nil
}
