// Package render draws detections onto images with OpenCV.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Mode selects which detections are drawn.
type Mode string

const (
	// ModeBest draws only the highest-confidence detection, without a caption.
	ModeBest Mode = "best"
	// ModeAll draws every detection with a "label: confidence" caption.
	ModeAll Mode = "all"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeBest, ModeAll:
		return m, nil
	}
	return "", errors.Errorf("unknown render mode %q (want %q or %q)", s, ModeBest, ModeAll)
}

const (
	bestStrokeDivisor = 100
	allStrokeDivisor  = 120
	// captionReference is the image side at which captions use their base size.
	captionReference = 600
	captionFont      = gocv.FontHersheySimplex
)

var (
	bestColour = rgba(colorful.Hex("#4CAF50"))
	palette    = []color.RGBA{
		rgba(colorful.Hex("#D32F2F")),
		rgba(colorful.Hex("#1976D2")),
		rgba(colorful.Hex("#FBC02D")),
		rgba(colorful.Hex("#388E3C")),
		rgba(colorful.Hex("#5D4037")),
		rgba(colorful.Hex("#FF5722")),
	}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

func rgba(c colorful.Color, err error) color.RGBA {
	if err != nil {
		panic(err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// PaletteColour returns the colour of the i-th detection in ModeAll.
func PaletteColour(i int) color.RGBA {
	return palette[i%len(palette)]
}

// Caption returns the text drawn next to a detection, e.g. "plastic: 87.5%".
func Caption(d postprocess.Detection) string {
	return fmt.Sprintf("%s: %.1f%%", d.Label, d.Confidence*100)
}

// StrokeWidth returns the box line thickness for an image: the longer side divided by
// divisor, at least one pixel.
func StrokeWidth(width, height, divisor int) int {
	side := width
	if height > side {
		side = height
	}
	if s := side / divisor; s > 1 {
		return s
	}
	return 1
}

// CaptionRect places a caption background of the given text size against box. It sits on
// top of the box, or under it when there is no room above.
func CaptionRect(box image.Rectangle, text image.Point, padding int) image.Rectangle {
	h := text.Y + 2*padding
	w := text.X + 2*padding

	top := box.Min.Y - h
	if top < 0 {
		top = box.Max.Y
	}
	return image.Rect(box.Min.X, top, box.Min.X+w, top+h)
}

// Annotate draws detections onto mat in place. Boxes are normalized and are scaled to the
// size of mat.
//
// Arguments:
//   - mat: A BGR image.
//   - detections: Detections sorted by descending confidence.
//   - mode: ModeBest or ModeAll.
//
// Returns:
//   - error: An error if the mode is unknown or drawing fails.
func Annotate(mat *gocv.Mat, detections []postprocess.Detection, mode Mode) error {
	if mat == nil || mat.Empty() {
		return errors.New("empty image")
	}
	width, height := mat.Cols(), mat.Rows()

	switch mode {
	case ModeBest:
		if len(detections) == 0 {
			return nil
		}
		box := detections[0].Box.Pixels(width, height)
		return errors.Wrap(
			gocv.Rectangle(mat, box, bestColour, StrokeWidth(width, height, bestStrokeDivisor)),
			"failed to draw rectangle",
		)
	case ModeAll:
		return annotateAll(mat, detections)
	}
	return errors.Errorf("unknown render mode %q", mode)
}

func annotateAll(mat *gocv.Mat, detections []postprocess.Detection) error {
	width, height := mat.Cols(), mat.Rows()
	stroke := StrokeWidth(width, height, allStrokeDivisor)

	side := width
	if height > side {
		side = height
	}
	scale := float64(side) / captionReference
	fontScale := 0.9 * scale
	padding := int(8 * scale)
	thickness := int(2 * scale)
	if thickness < 1 {
		thickness = 1
	}

	for i, d := range detections {
		c := PaletteColour(i)
		box := d.Box.Pixels(width, height)
		if err := gocv.Rectangle(mat, box, c, stroke); err != nil {
			return errors.Wrap(err, "failed to draw rectangle")
		}

		label := Caption(d)
		text := gocv.GetTextSize(label, captionFont, fontScale, thickness)
		bg := CaptionRect(box, text, padding)
		if err := gocv.Rectangle(mat, bg, c, -1); err != nil {
			return errors.Wrap(err, "failed to draw caption background")
		}
		origin := image.Pt(bg.Min.X+padding, bg.Max.Y-padding)
		if err := gocv.PutText(mat, label, origin, captionFont, fontScale, white, thickness); err != nil {
			return errors.Wrap(err, "failed to draw caption")
		}
	}
	return nil
}

// AnnotateImage copies img into a new Mat and draws detections on it. The caller closes
// the returned Mat.
func AnnotateImage(img image.Image, detections []postprocess.Detection, mode Mode) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "failed to convert image")
	}
	if err := Annotate(&mat, detections, mode); err != nil {
		mat.Close()
		return gocv.NewMat(), err
	}
	return mat, nil
}

// WriteFile draws detections onto a copy of img and writes it to path. The encoding
// follows the file extension.
func WriteFile(path string, img image.Image, detections []postprocess.Detection, mode Mode) error {
	mat, err := AnnotateImage(img, detections, mode)
	if err != nil {
		return err
	}
	defer mat.Close()

	if !gocv.IMWrite(path, mat) {
		return errors.Errorf("failed to write %s", path)
	}
	return nil
}
