package postprocess

import "github.com/pkg/errors"

// BoxAttributes is the number of geometry rows (cx, cy, w, h) ahead of the class rows.
const BoxAttributes = 4

// ErrShape is returned when tensor data does not match the [1][4+C][P] layout.
var ErrShape = errors.New("output tensor shape mismatch")

// Output is a raw detection head output of shape [1][4+C][P].
//
// Data is stored attribute-major: the value of attribute a for proposal p lives at
// Data[a*Proposals+p]. Rows 0-3 hold cx, cy, w, h in model-input pixels and the
// following Classes rows hold one score per class.
type Output struct {
	Data      []float32
	Classes   int
	Proposals int
}

// NewOutput wraps flat attribute-major data. The slice is not copied.
//
// Arguments:
//   - data: The flattened [1][4+C][P] tensor.
//   - classes: The number of classes C.
//   - proposals: The number of proposals P.
//
// Returns:
//   - Output: The wrapped tensor.
//   - error: ErrShape if len(data) != (4+C)*P.
func NewOutput(data []float32, classes, proposals int) (Output, error) {
	if classes < 0 || proposals < 0 {
		return Output{}, errors.Wrapf(ErrShape, "negative dimensions classes=%d proposals=%d", classes, proposals)
	}
	if want := (BoxAttributes + classes) * proposals; len(data) != want {
		return Output{}, errors.Wrapf(ErrShape, "have %d values, want (4+%d)*%d = %d",
			len(data), classes, proposals, want)
	}
	return Output{Data: data, Classes: classes, Proposals: proposals}, nil
}

// OutputFromRows copies a [4+C][P] matrix (the batch dimension already dropped).
func OutputFromRows(rows [][]float32) (Output, error) {
	if len(rows) < BoxAttributes {
		return Output{}, errors.Wrapf(ErrShape, "have %d rows, need at least %d", len(rows), BoxAttributes)
	}
	proposals := len(rows[0])
	data := make([]float32, 0, len(rows)*proposals)
	for i, row := range rows {
		if len(row) != proposals {
			return Output{}, errors.Wrapf(ErrShape, "row %d has %d proposals, row 0 has %d", i, len(row), proposals)
		}
		data = append(data, row...)
	}
	return NewOutput(data, len(rows)-BoxAttributes, proposals)
}

// At returns attribute attr of proposal p.
func (o Output) At(attr, p int) float32 {
	return o.Data[attr*o.Proposals+p]
}

// Attributes returns the number of rows per proposal (4 + Classes).
func (o Output) Attributes() int {
	return BoxAttributes + o.Classes
}
