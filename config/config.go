// Package config - YAML configuration for the nuts command line tool.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/nvr-ai/go-nuts/arrays"
	"github.com/nvr-ai/go-nuts/logging"
	"github.com/nvr-ai/go-nuts/viewer"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds all nuts configuration.
type Config struct {
	// Workers bounds how many samples are processed concurrently.
	Workers int `yaml:"workers"`

	Logging logging.Config `yaml:"logging"`
	Read    ReadConfig     `yaml:"read"`
	View    ViewConfig     `yaml:"view"`
}

// ReadConfig configures image reading.
type ReadConfig struct {
	// Gray converts color images to gray scale.
	Gray bool `yaml:"gray"`
	// Dtype converts arrays after loading, e.g. float32. Empty keeps uint8.
	Dtype string `yaml:"dtype"`
	// Pattern maps file ids to paths, "*" is replaced by the id.
	Pattern string `yaml:"pattern"`
}

// ViewConfig configures image display.
type ViewConfig struct {
	// Display is png (files written to Dir) or window (OpenCV window).
	Display string `yaml:"display"`
	// Dir receives frames of the png display.
	Dir string `yaml:"dir"`
	// Prefix starts every frame file name.
	Prefix string `yaml:"prefix"`
	// Layout arranges multiple images.
	Layout viewer.Layout `yaml:"layout"`
	// Pause between frames of the window display, e.g. 500ms.
	Pause string `yaml:"pause"`
}

// Display names.
const (
	DisplayPNG    = "png"
	DisplayWindow = "window"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Workers: 1,
		Logging: logging.DefaultConfig(),
		View: ViewConfig{
			Display: DisplayPNG,
			Dir:     "frames",
			Prefix:  "frame",
			Pause:   "1ms",
		},
	}
}

// Load loads configuration from a YAML file. Fields missing from the file
// keep their defaults; a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "failed to read config")
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "failed to write config")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Read.Dtype != "" {
		if _, err := arrays.ParseDtype(c.Read.Dtype); err != nil {
			return err
		}
	}
	switch c.View.Display {
	case DisplayPNG, DisplayWindow:
	default:
		return errors.Errorf("invalid display %q (valid: %s, %s)", c.View.Display, DisplayPNG, DisplayWindow)
	}
	if c.View.Layout.Rows < 0 || c.View.Layout.Cols < 0 {
		return errors.Errorf("invalid layout %dx%d", c.View.Layout.Rows, c.View.Layout.Cols)
	}
	if _, err := c.PauseDuration(); err != nil {
		return err
	}
	return nil
}

// PauseDuration parses View.Pause. Empty means no pause.
func (c *Config) PauseDuration() (time.Duration, error) {
	if c.View.Pause == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.View.Pause)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid pause %q", c.View.Pause)
	}
	if d < 0 {
		return 0, errors.Errorf("pause must not be negative, got %s", d)
	}
	return d, nil
}
