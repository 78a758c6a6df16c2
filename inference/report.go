package inference

import (
	"fmt"

	"github.com/nvr-ai/go-detect/disposal"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Report is the outcome of scanning one image.
type Report struct {
	// Detections are all detections, highest confidence first.
	Detections []postprocess.Detection
	// Best is the highest-confidence detection, nil when nothing was recognised.
	Best *postprocess.Detection
	// Category is the disposal category of Best, or disposal.General.
	Category disposal.Category
}

// NewReport builds a report from detections sorted by descending confidence.
func NewReport(detections []postprocess.Detection) Report {
	r := Report{
		Detections: detections,
		Category:   disposal.General,
	}
	if len(detections) == 0 {
		return r
	}

	best := detections[0]
	r.Best = &best
	r.Category, _ = disposal.Lookup(best.Label)
	return r
}

// Recognised reports whether anything was detected.
func (r Report) Recognised() bool {
	return r.Best != nil
}

func (r Report) String() string {
	if !r.Recognised() {
		return "nothing recognised"
	}
	return fmt.Sprintf("%s (%.1f%%): %s, %s",
		r.Best.Label, r.Best.Confidence*100, r.Category.Bin, r.Category.Description)
}
