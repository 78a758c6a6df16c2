// Package config loads the ecoscan configuration from YAML, .env files and the
// environment.
package config

import (
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/model"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/render"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ECOSCAN_"

// Config is the complete application configuration.
type Config struct {
	Model     model.Config `yaml:"model"`
	Detection Detection    `yaml:"detection"`
	Render    Render       `yaml:"render"`
	Log       Log          `yaml:"log"`
	// Workers bounds the number of images processed at once.
	Workers int `yaml:"workers"`
}

// Detection holds the post-processing thresholds.
type Detection struct {
	Confidence float32 `yaml:"confidence"`
	IoU        float32 `yaml:"iou"`
	ClassAware bool    `yaml:"class_aware"`
}

// Render controls annotated output images.
type Render struct {
	Mode render.Mode `yaml:"mode"`
	// OutputDir receives annotated copies of the inputs. Empty disables them.
	OutputDir string `yaml:"output_dir"`
}

// Log configures the logger.
type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration. The model path is left empty.
func Default() Config {
	return Config{
		Model: model.DefaultConfig(),
		Detection: Detection{
			Confidence: postprocess.DefaultConfidenceThreshold,
			IoU:        postprocess.DefaultIoUThreshold,
		},
		Render:  Render{Mode: render.ModeBest},
		Log:     Log{Level: "info"},
		Workers: runtime.NumCPU(),
	}
}

// Load builds the configuration: defaults, then the YAML file at path if path is not
// empty, then ECOSCAN_* environment variables.
//
// Arguments:
//   - path: The YAML file, or "" for defaults only.
//
// Returns:
//   - Config: The validated configuration.
//   - error: An error if the file cannot be read or a value is invalid.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "failed to parse config %s", path)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "failed to load %s", path)
		}
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	env := envReader{lookup: lookup}

	env.str("MODEL_PATH", &c.Model.Path)
	env.str("LABELS_PATH", &c.Model.LabelsPath)
	env.str("MODEL_INPUT", &c.Model.Input)
	env.str("MODEL_OUTPUT", &c.Model.Output)
	env.integer("INPUT_SIZE", &c.Model.InputSize)
	env.integer("INTRA_OP_THREADS", &c.Model.IntraOpThreads)
	if layout, ok := lookup(EnvPrefix + "LAYOUT"); ok {
		c.Model.Layout = model.Layout(layout)
	}

	env.float("CONFIDENCE", &c.Detection.Confidence)
	env.float("IOU", &c.Detection.IoU)
	env.boolean("CLASS_AWARE", &c.Detection.ClassAware)

	if mode, ok := lookup(EnvPrefix + "RENDER_MODE"); ok {
		c.Render.Mode = render.Mode(mode)
	}
	env.str("OUTPUT_DIR", &c.Render.OutputDir)

	env.str("LOG_LEVEL", &c.Log.Level)
	env.boolean("LOG_DEVELOPMENT", &c.Log.Development)

	env.integer("WORKERS", &c.Workers)

	return env.err
}

// envReader applies ECOSCAN_* variables, keeping the first parse error.
type envReader struct {
	lookup lookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	return e.lookup(EnvPrefix + key)
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = errors.Wrapf(err, "invalid %s%s", EnvPrefix, key)
		return
	}
	*dst = n
}

func (e *envReader) float(key string, dst *float32) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		e.err = errors.Wrapf(err, "invalid %s%s", EnvPrefix, key)
		return
	}
	*dst = float32(f)
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.err = errors.Wrapf(err, "invalid %s%s", EnvPrefix, key)
		return
	}
	*dst = b
}

// Validate checks every section. The model path is not required here so commands that
// do not run the model can use the configuration.
func (c Config) Validate() error {
	if c.Model.Input == "" || c.Model.Output == "" {
		return errors.New("model input and output names are required")
	}
	if c.Model.InputSize < 0 {
		return errors.Errorf("input size must not be negative, got %d", c.Model.InputSize)
	}
	if !c.Model.Layout.Valid() {
		return errors.Errorf("unknown tensor layout %q", c.Model.Layout)
	}
	if err := c.Pipeline(models.WasteLabels).Validate(); err != nil {
		return err
	}
	if _, err := render.ParseMode(string(c.Render.Mode)); err != nil {
		return err
	}
	if c.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// Pipeline returns the post-processing configuration for labels. The input size is the
// configured one, or the default when the model decides it.
func (c Config) Pipeline(labels models.Labels) postprocess.Config {
	cfg := postprocess.DefaultConfig()
	cfg.Labels = labels
	if c.Model.InputSize > 0 {
		cfg.InputSize = float32(c.Model.InputSize)
	}
	cfg.ConfidenceThreshold = c.Detection.Confidence
	cfg.NMS = postprocess.NMSConfig{
		IoUThreshold: c.Detection.IoU,
		ClassAware:   c.Detection.ClassAware,
	}
	return cfg
}

// Labels loads the configured label file, or returns the built-in waste labels.
func (c Config) Labels() (models.Labels, error) {
	if c.Model.LabelsPath == "" {
		return models.WasteLabels.Clone(), nil
	}
	return models.LoadLabels(c.Model.LabelsPath)
}
