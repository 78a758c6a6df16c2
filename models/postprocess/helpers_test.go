package postprocess

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models"
)

// buildOutput lays out proposal-major rows ([cx, cy, w, h, score0, ...]) as the
// attribute-major tensor a detection head emits.
func buildOutput(t testing.TB, proposals ...[]float32) Output {
	t.Helper()
	require.NotEmpty(t, proposals)

	attrs := len(proposals[0])
	rows := make([][]float32, attrs)
	for a := range rows {
		rows[a] = make([]float32, len(proposals))
		for p, proposal := range proposals {
			require.Len(t, proposal, attrs)
			rows[a][p] = proposal[a]
		}
	}

	out, err := OutputFromRows(rows)
	require.NoError(t, err)
	return out
}

// randomOutput fills a tensor with plausible YOLO-style values on a 640px input.
func randomOutput(rng *rand.Rand, classes, proposals int) Output {
	data := make([]float32, (BoxAttributes+classes)*proposals)
	for p := 0; p < proposals; p++ {
		data[0*proposals+p] = rng.Float32() * 640
		data[1*proposals+p] = rng.Float32() * 640
		data[2*proposals+p] = 10 + rng.Float32()*200
		data[3*proposals+p] = 10 + rng.Float32()*200
		for c := 0; c < classes; c++ {
			data[(BoxAttributes+c)*proposals+p] = rng.Float32() * rng.Float32()
		}
	}
	return Output{Data: data, Classes: classes, Proposals: proposals}
}

func testConfig(labels models.Labels, inputSize float32) Config {
	cfg := DefaultConfig()
	cfg.Labels = labels
	cfg.InputSize = inputSize
	return cfg
}

func boxesOf(detections []Detection) []images.Rect {
	boxes := make([]images.Rect, len(detections))
	for i, d := range detections {
		boxes[i] = d.Box
	}
	return boxes
}
