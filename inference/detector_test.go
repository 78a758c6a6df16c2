package inference

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/postprocess"
)

// twoBottles is a 32px model output with two overlapping plastic proposals and one glass
// proposal below the threshold.
func twoBottles(t *testing.T) postprocess.Output {
	t.Helper()
	out, err := postprocess.OutputFromRows([][]float32{
		{16, 18, 8},       // cx
		{16, 16, 8},       // cy
		{8, 8, 4},         // w
		{8, 8, 4},         // h
		{0.85, 0.6, 0.1},  // plastic
		{0.05, 0.1, 0.15}, // glass
	})
	require.NoError(t, err)
	return out
}

func testDetectionConfig(labels models.Labels) postprocess.Config {
	cfg := postprocess.DefaultConfig()
	cfg.Labels = labels
	return cfg
}

func TestDetector(t *testing.T) {
	engine := newFakeEngine(2, twoBottles(t))
	detector, err := NewDetector(engine, testDetectionConfig(models.Labels{"plastic", "glass"}), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, float32(32), detector.Config().InputSize)

	detections, err := detector.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 64, 48)))
	require.NoError(t, err)
	require.Len(t, detections, 1)

	assert.Equal(t, "plastic", detections[0].Label)
	assert.Equal(t, float32(0.85), detections[0].Confidence)
	assert.InDelta(t, 0.375, detections[0].Box.X1, 1e-6)
	assert.InDelta(t, 0.625, detections[0].Box.Y2, 1e-6)

	require.Equal(t, 1, engine.runs())
	assert.Len(t, engine.inputs[0], engine.Shape().InputLen())
}

func TestDetectorNothingRecognised(t *testing.T) {
	out, err := postprocess.NewOutput(make([]float32, (4+2)*3), 2, 3)
	require.NoError(t, err)

	detector, err := NewDetector(newFakeEngine(2, out), testDetectionConfig(models.Labels{"a", "b"}), nil)
	require.NoError(t, err)

	detections, err := detector.Detect(context.Background(), image.NewGray(image.Rect(0, 0, 10, 10)))
	require.NoError(t, err)
	assert.NotNil(t, detections)
	assert.Empty(t, detections)
}

func TestNewDetectorErrors(t *testing.T) {
	engine := newFakeEngine(2, twoBottles(t))

	_, err := NewDetector(engine, testDetectionConfig(models.WasteLabels), nil)
	assert.True(t, errors.Is(err, ErrLabelMismatch))

	cfg := testDetectionConfig(models.Labels{"plastic", "glass"})
	cfg.ConfidenceThreshold = 2
	_, err = NewDetector(engine, cfg, nil)
	assert.Error(t, err)

	_, err = NewDetector(nil, cfg, nil)
	assert.Error(t, err)
}

func TestDetectorContext(t *testing.T) {
	engine := newFakeEngine(2, twoBottles(t))
	detector, err := NewDetector(engine, testDetectionConfig(models.Labels{"plastic", "glass"}), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = detector.Detect(ctx, image.NewRGBA(image.Rect(0, 0, 8, 8)))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, engine.runs(), "a cancelled context must not reach the engine")
}

func TestDetectorEngineError(t *testing.T) {
	engine := newFakeEngine(2, twoBottles(t))
	engine.err = errors.New("device lost")
	detector, err := NewDetector(engine, testDetectionConfig(models.Labels{"plastic", "glass"}), nil)
	require.NoError(t, err)

	_, err = detector.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	assert.ErrorContains(t, err, "device lost")

	require.NoError(t, engine.Close())
	_, err = detector.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestDetectorConcurrent(t *testing.T) {
	engine := newFakeEngine(2, twoBottles(t))
	detector, err := NewDetector(engine, testDetectionConfig(models.Labels{"plastic", "glass"}), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]postprocess.Detection, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = detector.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 20, 20)))
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
	assert.Equal(t, 8, engine.runs())
}

func TestDetectorScan(t *testing.T) {
	detector, err := NewDetector(newFakeEngine(2, twoBottles(t)), testDetectionConfig(models.Labels{"plastic", "glass"}), nil)
	require.NoError(t, err)

	report, err := detector.Scan(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	require.NoError(t, err)
	assert.True(t, report.Recognised())
	assert.Equal(t, "Red bin", report.Category.Bin)
}
