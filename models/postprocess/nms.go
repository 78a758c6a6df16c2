package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-detect/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap above which the lower-confidence box is suppressed.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// ClassAware restricts suppression to boxes of the same class. Off by default: a
	// proposal carries a single best class, so overlapping boxes of different classes
	// compete with each other.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`
}

// SortByConfidence returns a copy of detections ordered by descending confidence.
// Equal confidences keep their input order.
func SortByConfidence(detections []Detection) []Detection {
	sorted := make([]Detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	return sorted
}

// Suppress performs greedy Non-Maximum Suppression.
//
// Candidates are visited in descending confidence. A candidate is kept unless its IoU with
// any box already kept is strictly greater than config.IoUThreshold. The input slice is
// not modified.
//
// Arguments:
//   - candidates: Detections in any order.
//   - config: NMS configuration.
//
// Returns:
//   - []Detection: The kept detections, highest confidence first, never nil.
func Suppress(candidates []Detection, config NMSConfig) []Detection {
	kept := make([]Detection, 0, len(candidates))

	for _, candidate := range SortByConfidence(candidates) {
		if overlapsKept(candidate, kept, config) {
			continue
		}
		kept = append(kept, candidate)
	}

	return kept
}

func overlapsKept(candidate Detection, kept []Detection, config NMSConfig) bool {
	for _, k := range kept {
		if config.ClassAware && k.ClassID != candidate.ClassID {
			continue
		}
		if images.CalculateIoU(candidate.Box, k.Box) > config.IoUThreshold {
			return true
		}
	}
	return false
}
