package postprocess

// NoClass marks a proposal whose class scores are all <= 0.
const NoClass = -1

// Proposal is one candidate region decoded from the output tensor.
type Proposal struct {
	// CX, CY, W, H is the center-form geometry in model-input pixels.
	CX, CY, W, H float32
	// ClassID is the index of the best class, or NoClass.
	ClassID int
	// Score is the best class score, 0 for NoClass.
	Score float32
}

// Decode turns an attribute-major output tensor into one Proposal per column.
//
// Each proposal's attributes are first gathered into a contiguous vector (a logical
// transpose from [attr][proposal] to [proposal][attr]). The best class is found by a
// strict greater-than scan starting from 0, so the lowest index wins ties and a proposal
// without any positive score decodes to NoClass.
//
// Arguments:
//   - out: The raw tensor.
//
// Returns:
//   - []Proposal: Exactly out.Proposals entries, in column order.
func Decode(out Output) []Proposal {
	proposals := make([]Proposal, out.Proposals)
	attrs := make([]float32, out.Attributes())

	for p := range proposals {
		for a := range attrs {
			attrs[a] = out.Data[a*out.Proposals+p]
		}

		best, score := bestClass(attrs[BoxAttributes:])
		proposals[p] = Proposal{
			CX:      attrs[0],
			CY:      attrs[1],
			W:       attrs[2],
			H:       attrs[3],
			ClassID: best,
			Score:   score,
		}
	}

	return proposals
}

func bestClass(scores []float32) (int, float32) {
	best := NoClass
	maxScore := float32(0)
	for c, s := range scores {
		if s > maxScore {
			maxScore = s
			best = c
		}
	}
	return best, maxScore
}
