// Package images - Geometry and image preparation utilities.
package images

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// Rect is an axis-aligned box in corner form.
//
// The coordinate space is up to the caller (model-input pixels, normalized [0,1] or image
// pixels). CalculateIoU only requires both operands to share the same space.
type Rect struct {
	// X1,Y1 is the left/top corner and X2,Y2 the right/bottom corner.
	X1, Y1, X2, Y2 float32
}

// RectFromCenter builds a corner-form Rect from a center point and its width and height.
//
// Arguments:
//   - cx, cy: The center of the box.
//   - w, h: The width and height of the box.
//
// Returns:
//   - Rect: The box with X1 = cx - w/2, Y1 = cy - h/2, X2 = cx + w/2, Y2 = cy + h/2.
func RectFromCenter(cx, cy, w, h float32) Rect {
	return Rect{
		X1: cx - w/2,
		Y1: cy - h/2,
		X2: cx + w/2,
		Y2: cy + h/2,
	}
}

// Width of r, clamped to zero for malformed boxes.
func (r Rect) Width() float32 {
	return math32.Max(0, r.X2-r.X1)
}

// Height of r, clamped to zero for malformed boxes.
func (r Rect) Height() float32 {
	return math32.Max(0, r.Y2-r.Y1)
}

// Area of r. Degenerate and malformed boxes have zero area.
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Valid reports whether r is well-formed (right >= left and bottom >= top).
func (r Rect) Valid() bool {
	return r.X2 >= r.X1 && r.Y2 >= r.Y1
}

// Scale multiplies the horizontal coordinates by sx and the vertical ones by sy.
func (r Rect) Scale(sx, sy float32) Rect {
	return Rect{X1: r.X1 * sx, Y1: r.Y1 * sy, X2: r.X2 * sx, Y2: r.Y2 * sy}
}

// Normalize divides every coordinate by side, mapping a square model-input space of that
// side length onto [0,1].
func (r Rect) Normalize(side float32) Rect {
	return Rect{X1: r.X1 / side, Y1: r.Y1 / side, X2: r.X2 / side, Y2: r.Y2 / side}
}

// Pixels maps a normalized Rect onto an image of the given size.
//
// Coordinates are rounded to the nearest pixel and clipped to the image bounds, so the
// result can be handed straight to drawing routines.
//
// Arguments:
//   - width: The width of the target image in pixels.
//   - height: The height of the target image in pixels.
//
// Returns:
//   - image.Rectangle: The canonical pixel rectangle.
func (r Rect) Pixels(width, height int) image.Rectangle {
	s := r.Scale(float32(width), float32(height))
	px := image.Rect(
		int(math32.Round(s.X1)),
		int(math32.Round(s.Y1)),
		int(math32.Round(s.X2)),
		int(math32.Round(s.Y2)),
	)
	return px.Intersect(image.Rect(0, 0, width, height))
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.4f, %.4f), (%.4f, %.4f)", r.X1, r.Y1, r.X2, r.Y2)
}

// CalculateIoU returns the Intersection over Union of two rectangles.
//
// The intersection corners are the maximum of the left/top edges and the minimum of the
// right/bottom edges. Its width and height are clamped to zero, so disjoint or touching
// boxes give 0 rather than a negative product. The union follows inclusion-exclusion:
//
//	Area(A ∪ B) = Area(A) + Area(B) - Area(A ∩ B)
//
// When the union is zero (both boxes degenerate) the result is 0 instead of NaN.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle, in the same coordinate space as r.
//
// Returns:
//   - float32: A value in [0, 1].
//
// Example Usage:
// ```go
//
//	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	CalculateIoU(a, b) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	ix1 := math32.Max(r.X1, o.X1)
	iy1 := math32.Max(r.Y1, o.Y1)
	ix2 := math32.Min(r.X2, o.X2)
	iy2 := math32.Min(r.Y2, o.Y2)

	interArea := math32.Max(0, ix2-ix1) * math32.Max(0, iy2-iy1)
	if interArea == 0 {
		return 0
	}

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0
	}

	return interArea / unionArea
}
