// Package postprocess - Decoding, filtering and suppression of detection model outputs.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-detect/images"
)

// Detection is a single labelled box produced by the pipeline.
type Detection struct {
	// Box in coordinates normalized to the model input, in [0,1] for on-image boxes.
	Box images.Rect
	// Label is the class name, or models.UnknownLabel when the class index had no label.
	Label string
	// ClassID is the index of the winning class row.
	ClassID int
	// Confidence is the winning class score.
	Confidence float32
}

func (d Detection) String() string {
	return fmt.Sprintf("Object %s (confidence %f): %s", d.Label, d.Confidence, d.Box)
}
