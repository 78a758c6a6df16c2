// Package util - Process-level helpers: logging and input discovery.
package util

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a console logger writing to stderr.
//
// Arguments:
//   - level: "debug", "info", "warn" or "error". Empty means "info".
//   - development: Enables colour levels and caller annotations.
//
// Returns:
//   - *zap.Logger: The logger.
//   - error: An error if the level is unknown.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevelAt(zap.InfoLevel)
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", level)
		}
	}

	encoder := zapcore.CapitalLevelEncoder
	if development {
		encoder = zapcore.CapitalColorLevelEncoder
	}

	cfg := zap.Config{
		Level:       lvl,
		Development: development,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    encoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableCaller:     !development,
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	return logger, nil
}
