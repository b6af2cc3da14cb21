// Package logging - Builds the zap loggers used by the nuts command line tool.
package logging

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures logging.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`
	// Format is json or console.
	Format string `yaml:"format" json:"format"`
	// File receives log output in addition to stderr. Empty logs to stderr only.
	File string `yaml:"file" json:"file"`
}

// DefaultConfig logs info and above to stderr in console format.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console"}
}

// ParseLevel maps a level name to a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(name)))); err != nil {
		return level, errors.Wrapf(err, "invalid log level %q", name)
	}
	return level, nil
}

// Validate checks level and format.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "json", "console":
		return nil
	}
	return errors.Errorf("invalid log format %q (valid: json, console)", c.Format)
}

// New builds a logger from cfg. The returned level can be changed at runtime,
// e.g. to switch on debug output from a command line flag.
//
// Arguments:
// - cfg: The logging configuration.
//
// Returns:
// - *zap.Logger: The logger.
// - zap.AtomicLevel: The level shared by every core of the logger.
// - error: Error if cfg is invalid or the log file cannot be opened.
func New(cfg Config) (*zap.Logger, zap.AtomicLevel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	level, _ := ParseLevel(cfg.Level)

	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.Development = false
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if cfg.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, errors.Wrap(err, "failed to initialize logger")
	}
	return logger, zc.Level, nil
}
