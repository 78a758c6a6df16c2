package images

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/models/model"
)

// Channels is the number of colour channels of a model input.
const Channels = 3

// TensorSize returns the number of float32 values of a side x side RGB input.
func TensorSize(side int) int {
	return Channels * side * side
}

// ToTensor resizes img to a side x side square and writes its pixels, scaled to [0,1],
// into dst using the requested layout.
//
// The image is stretched rather than letterboxed, so normalized detection boxes map back
// to the source image by scaling with its width and height.
//
// Arguments:
//   - img: The source image in any colour model.
//   - side: The model input side length in pixels.
//   - layout: model.LayoutCHW writes planar R, G, B; model.LayoutHWC interleaves them.
//   - dst: The destination buffer, at least TensorSize(side) long.
//
// Returns:
//   - error: An error if the arguments are invalid.
func ToTensor(img image.Image, side int, layout model.Layout, dst []float32) error {
	if img == nil {
		return errors.New("nil image")
	}
	if side <= 0 {
		return errors.Errorf("input side must be positive, got %d", side)
	}
	if len(dst) < TensorSize(side) {
		return errors.Errorf("destination holds %d floats, needs %d", len(dst), TensorSize(side))
	}

	resized := resize.Resize(uint(side), uint(side), img, resize.Bilinear)
	bounds := resized.Bounds()
	plane := side * side

	i := 0
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			red := float32(r>>8) / 255.0
			green := float32(g>>8) / 255.0
			blue := float32(b>>8) / 255.0

			switch layout {
			case model.LayoutHWC:
				dst[i*Channels] = red
				dst[i*Channels+1] = green
				dst[i*Channels+2] = blue
			case model.LayoutCHW:
				dst[i] = red
				dst[plane+i] = green
				dst[2*plane+i] = blue
			default:
				return errors.Errorf("unknown tensor layout %q", layout)
			}
			i++
		}
	}

	return nil
}

// NewTensor allocates a buffer and fills it with ToTensor.
func NewTensor(img image.Image, side int, layout model.Layout) ([]float32, error) {
	if side <= 0 {
		return nil, errors.Errorf("input side must be positive, got %d", side)
	}
	dst := make([]float32, TensorSize(side))
	if err := ToTensor(img, side, layout, dst); err != nil {
		return nil, err
	}
	return dst, nil
}
