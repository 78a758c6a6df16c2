// Package dense - Conversion of gorgonia tensors and NumPy dumps into detection outputs.
//
// Raw head outputs saved with numpy.save can be replayed through the post-processing
// pipeline without a model or a runtime.
package dense

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-detect/models/postprocess"
)

// FromTensor converts a dense tensor of shape (1, 4+C, P) or (4+C, P).
//
// Views are materialized first. float64 tensors are narrowed to float32; in every case
// the returned Output owns its data.
//
// Arguments:
//   - t: The tensor.
//
// Returns:
//   - postprocess.Output: The output.
//   - error: postprocess.ErrShape for unsupported shapes, or an error for non-float data.
func FromTensor(t *tensor.Dense) (postprocess.Output, error) {
	if t == nil {
		return postprocess.Output{}, errors.Wrap(postprocess.ErrShape, "nil tensor")
	}
	if t.IsMaterializable() {
		m, ok := t.Materialize().(*tensor.Dense)
		if !ok {
			return postprocess.Output{}, errors.Wrap(postprocess.ErrShape, "cannot materialize tensor view")
		}
		t = m
	}

	shape := t.Shape()
	switch {
	case len(shape) == 3 && shape[0] == 1:
		shape = shape[1:]
	case len(shape) == 2:
	default:
		return postprocess.Output{}, errors.Wrapf(postprocess.ErrShape, "unsupported shape %v", shape)
	}
	if shape[0] < postprocess.BoxAttributes {
		return postprocess.Output{}, errors.Wrapf(postprocess.ErrShape,
			"shape %v has fewer than %d attribute rows", t.Shape(), postprocess.BoxAttributes)
	}

	var data []float32
	switch backing := t.Data().(type) {
	case []float32:
		data = make([]float32, len(backing))
		copy(data, backing)
	case []float64:
		data = make([]float32, len(backing))
		for i, v := range backing {
			data[i] = float32(v)
		}
	default:
		return postprocess.Output{}, errors.Errorf("unsupported tensor dtype %v", t.Dtype())
	}

	return postprocess.NewOutput(data, shape[0]-postprocess.BoxAttributes, shape[1])
}

// ReadNpy decodes a NumPy .npy stream holding a float32 or float64 output array.
func ReadNpy(r io.Reader) (postprocess.Output, error) {
	t := new(tensor.Dense)
	if err := t.ReadNpy(r); err != nil {
		return postprocess.Output{}, errors.Wrap(err, "failed to decode npy data")
	}
	return FromTensor(t)
}

// LoadNpy reads an output array saved with numpy.save.
func LoadNpy(path string) (postprocess.Output, error) {
	f, err := os.Open(path)
	if err != nil {
		return postprocess.Output{}, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	out, err := ReadNpy(bufio.NewReader(f))
	if err != nil {
		return postprocess.Output{}, errors.Wrapf(err, "failed to load %s", path)
	}
	return out, nil
}
