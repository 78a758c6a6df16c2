package postprocess

import (
	"github.com/nvr-ai/go-detect/images"
)

// Filter keeps proposals whose score is strictly above cfg.ConfidenceThreshold and turns
// them into Detections.
//
// Geometry is converted from center form to corner form and divided by cfg.InputSize so
// boxes are relative to the model input. A class index without a label resolves to
// models.UnknownLabel instead of failing.
//
// Arguments:
//   - proposals: The decoded proposals.
//   - cfg: The pipeline configuration.
//
// Returns:
//   - []Detection: The candidates in proposal order, never nil.
func Filter(proposals []Proposal, cfg Config) []Detection {
	candidates := make([]Detection, 0)
	for _, p := range proposals {
		if p.Score <= cfg.ConfidenceThreshold {
			continue
		}

		candidates = append(candidates, Detection{
			Box:        images.RectFromCenter(p.CX, p.CY, p.W, p.H).Normalize(cfg.InputSize),
			Label:      cfg.Labels.Name(p.ClassID),
			ClassID:    p.ClassID,
			Confidence: p.Score,
		})
	}

	return candidates
}
