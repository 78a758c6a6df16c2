package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/render"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, model.DefaultConfig(), cfg.Model)
	assert.Equal(t, float32(0.2), cfg.Detection.Confidence)
	assert.Equal(t, float32(0.45), cfg.Detection.IoU)
	assert.False(t, cfg.Detection.ClassAware)
	assert.Equal(t, render.ModeBest, cfg.Render.Mode)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "ecoscan.yaml", `
model:
  path: models/waste.onnx
  labels_path: models/waste.txt
  input_size: 320
  layout: hwc
  intra_op_threads: 2
detection:
  confidence: 0.35
  iou: 0.5
  class_aware: true
render:
  mode: all
  output_dir: out
log:
  level: debug
  development: true
workers: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, model.Config{
		Path:           "models/waste.onnx",
		LabelsPath:     "models/waste.txt",
		Input:          model.DefaultInputName,
		Output:         model.DefaultOutputName,
		InputSize:      320,
		Layout:         model.LayoutHWC,
		IntraOpThreads: 2,
	}, cfg.Model)
	assert.Equal(t, Detection{Confidence: 0.35, IoU: 0.5, ClassAware: true}, cfg.Detection)
	assert.Equal(t, Render{Mode: render.ModeAll, OutputDir: "out"}, cfg.Render)
	assert.Equal(t, Log{Level: "debug", Development: true}, cfg.Log)
	assert.Equal(t, 2, cfg.Workers)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "ecoscan.yaml", "detection:\n  confidence: 0.35\nworkers: 2\n")
	t.Setenv("ECOSCAN_MODEL_PATH", "/srv/waste.onnx")
	t.Setenv("ECOSCAN_CONFIDENCE", "0.6")
	t.Setenv("ECOSCAN_CLASS_AWARE", "true")
	t.Setenv("ECOSCAN_RENDER_MODE", "all")
	t.Setenv("ECOSCAN_WORKERS", "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/waste.onnx", cfg.Model.Path)
	assert.Equal(t, float32(0.6), cfg.Detection.Confidence)
	assert.True(t, cfg.Detection.ClassAware)
	assert.Equal(t, render.ModeAll, cfg.Render.Mode)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.yaml", "workers: [1"))
		assert.Error(t, err)
	})

	t.Run("bad env number", func(t *testing.T) {
		t.Setenv("ECOSCAN_WORKERS", "many")
		_, err := Load("")
		assert.ErrorContains(t, err, "ECOSCAN_WORKERS")
	})

	t.Run("bad env bool", func(t *testing.T) {
		t.Setenv("ECOSCAN_CLASS_AWARE", "perhaps")
		_, err := Load("")
		assert.ErrorContains(t, err, "ECOSCAN_CLASS_AWARE")
	})

	t.Run("threshold out of range", func(t *testing.T) {
		t.Setenv("ECOSCAN_IOU", "1.5")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("unknown render mode", func(t *testing.T) {
		_, err := Load(writeFile(t, "mode.yaml", "render:\n  mode: fancy\n"))
		assert.ErrorContains(t, err, "render mode")
	})

	t.Run("no workers", func(t *testing.T) {
		_, err := Load(writeFile(t, "workers.yaml", "workers: 0\n"))
		assert.ErrorContains(t, err, "workers")
	})
}

func TestLoadDotEnv(t *testing.T) {
	unsetEnv(t, "ECOSCAN_WORKERS")
	t.Setenv("ECOSCAN_LOG_LEVEL", "warn")

	path := writeFile(t, ".env", "ECOSCAN_WORKERS=3\nECOSCAN_LOG_LEVEL=debug\n")
	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")))

	assert.Equal(t, "3", os.Getenv("ECOSCAN_WORKERS"))
	assert.Equal(t, "warn", os.Getenv("ECOSCAN_LOG_LEVEL"), "existing variables win")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestPipeline(t *testing.T) {
	cfg := Default()
	cfg.Detection = Detection{Confidence: 0.3, IoU: 0.6, ClassAware: true}

	p := cfg.Pipeline(models.Labels{"can"})
	assert.Equal(t, models.Labels{"can"}, p.Labels)
	assert.Equal(t, float32(640), p.InputSize)
	assert.Equal(t, float32(0.3), p.ConfidenceThreshold)
	assert.Equal(t, float32(0.6), p.NMS.IoUThreshold)
	assert.True(t, p.NMS.ClassAware)

	cfg.Model.InputSize = 416
	assert.Equal(t, float32(416), cfg.Pipeline(nil).InputSize)
}

func TestLabels(t *testing.T) {
	cfg := Default()
	labels, err := cfg.Labels()
	require.NoError(t, err)
	assert.Equal(t, models.WasteLabels, labels)

	cfg.Model.LabelsPath = writeFile(t, "labels.txt", "can\n\nbottle\n")
	labels, err = cfg.Labels()
	require.NoError(t, err)
	assert.Equal(t, models.Labels{"can", "bottle"}, labels)
}
