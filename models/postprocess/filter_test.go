package postprocess

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models"
)

func TestFilter(t *testing.T) {
	cfg := testConfig(models.Labels{"glass", "metal"}, 640)

	proposals := []Proposal{
		{CX: 320, CY: 320, W: 128, H: 128, ClassID: 0, Score: 0.9},
		{CX: 100, CY: 100, W: 50, H: 50, ClassID: 1, Score: 0.2}, // equal to threshold
		{CX: 100, CY: 100, W: 50, H: 50, ClassID: 1, Score: 0.19},
		{CX: 0, CY: 0, W: 0, H: 0, ClassID: NoClass, Score: 0},
		{CX: 64, CY: 128, W: 64, H: 64, ClassID: 5, Score: 0.4}, // no label for class 5
	}

	candidates := Filter(proposals, cfg)
	require.Len(t, candidates, 2)

	assert.Equal(t, "glass", candidates[0].Label)
	assert.Equal(t, 0, candidates[0].ClassID)
	assert.Equal(t, float32(0.9), candidates[0].Confidence)
	assert.InDelta(t, 0.4, candidates[0].Box.X1, 1e-6)
	assert.InDelta(t, 0.4, candidates[0].Box.Y1, 1e-6)
	assert.InDelta(t, 0.6, candidates[0].Box.X2, 1e-6)
	assert.InDelta(t, 0.6, candidates[0].Box.Y2, 1e-6)

	assert.Equal(t, models.UnknownLabel, candidates[1].Label)
	assert.Equal(t, 5, candidates[1].ClassID)
	assert.Equal(t, images.Rect{X1: 0.05, Y1: 0.15, X2: 0.15, Y2: 0.25}, candidates[1].Box)
}

func TestFilterEmpty(t *testing.T) {
	candidates := Filter(nil, DefaultConfig())
	assert.NotNil(t, candidates)
	assert.Empty(t, candidates)
}

func TestFilterMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	proposals := Decode(randomOutput(rng, 6, 2000))

	cfg := DefaultConfig()
	previous := len(proposals) + 1
	for _, threshold := range []float32{0, 0.05, 0.1, 0.2, 0.3, 0.5, 0.75, 0.9, 1} {
		cfg.ConfidenceThreshold = threshold
		count := len(Filter(proposals, cfg))
		assert.LessOrEqual(t, count, previous, "threshold %v", threshold)
		previous = count

		for _, d := range Filter(proposals, cfg) {
			assert.Greater(t, d.Confidence, threshold)
		}
	}
	assert.Zero(t, previous, "nothing can exceed a threshold of 1")
}
