package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bdougie/boxshadow/internal/models"
)

// ErrOutOfRange is returned by Validate when a setting falls outside its allowed range.
var ErrOutOfRange = errors.New("config value out of range")

// Config holds all recorder configuration.
type Config struct {
	Size         int  `yaml:"size"`
	Divider      int  `yaml:"divider"`
	PixelSize    int  `yaml:"pixel_size"`
	Displacement int  `yaml:"displacement"`
	Blur         int  `yaml:"blur"`
	LessColors   bool `yaml:"less_colors"`

	Capture   CaptureConfig   `yaml:"capture"`
	Animation AnimationConfig `yaml:"animation"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
}

// CaptureConfig controls the recording and playback timers.
type CaptureConfig struct {
	Repetitions       int           `yaml:"repetitions"`
	Interval          time.Duration `yaml:"interval"`
	ReplayInterval    time.Duration `yaml:"replay_interval"`
	LiveInterval      time.Duration `yaml:"live_interval"`
	CountdownTicks    int           `yaml:"countdown_ticks"`
	CountdownInterval time.Duration `yaml:"countdown_interval"`
}

// AnimationConfig controls the compiled stylesheet.
type AnimationConfig struct {
	Steps    int           `yaml:"steps"`
	Duration time.Duration `yaml:"duration"`
}

// StorageConfig selects where finished captures are persisted.
type StorageConfig struct {
	Driver string `yaml:"driver"` // file, sqlite or postgres
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// ServerConfig controls the render server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a config with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	c.defaults()
}

func (c *Config) defaults() {
	if c.Size <= 0 {
		c.Size = 200
	}
	if c.Divider <= 0 {
		c.Divider = 34
	}
	if c.PixelSize <= 0 {
		c.PixelSize = 6
	}
	if c.Capture.Repetitions <= 0 {
		c.Capture.Repetitions = 100
	}
	if c.Capture.Interval <= 0 {
		c.Capture.Interval = 100 * time.Millisecond
	}
	if c.Capture.ReplayInterval <= 0 {
		c.Capture.ReplayInterval = 100 * time.Millisecond
	}
	if c.Capture.LiveInterval <= 0 {
		c.Capture.LiveInterval = 10 * time.Millisecond
	}
	if c.Capture.CountdownTicks <= 0 {
		c.Capture.CountdownTicks = 10
	}
	if c.Capture.CountdownInterval <= 0 {
		c.Capture.CountdownInterval = time.Second
	}
	if c.Animation.Steps <= 0 {
		c.Animation.Steps = 100
	}
	if c.Animation.Duration <= 0 {
		c.Animation.Duration = 10 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	if c.Storage.Path == "" {
		switch c.Storage.Driver {
		case "sqlite":
			c.Storage.Path = "boxshadow.db"
		default:
			c.Storage.Path = "output"
		}
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Validate checks every user-facing setting against its allowed range.
func (c *Config) Validate() error {
	checks := []struct {
		name     string
		val      int
		min, max int
	}{
		{"pixel_size", c.PixelSize, 1, 16},
		{"divider", c.Divider, 2, 200},
		{"size", c.Size, 8, 1024},
		{"displacement", c.Displacement, 0, 100},
		{"blur", c.Blur, 0, 100},
		{"animation.steps", c.Animation.Steps, 1, 100},
	}
	for _, chk := range checks {
		if chk.val < chk.min || chk.val > chk.max {
			return fmt.Errorf("%s=%d not in [%d,%d]: %w", chk.name, chk.val, chk.min, chk.max, ErrOutOfRange)
		}
	}
	if c.Capture.Repetitions < 1 {
		return fmt.Errorf("capture.repetitions=%d must be positive: %w", c.Capture.Repetitions, ErrOutOfRange)
	}
	switch c.Storage.Driver {
	case "file", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// Geometry derives the shadow layout from the size settings.
func (c *Config) Geometry() models.Geometry {
	return models.Geometry{
		BlockSize:     c.PixelSize,
		Pitch:         float64(c.Size) / float64(c.Divider),
		RowWidth:      c.Divider,
		Displacement:  c.Displacement,
		Blur:          c.Blur,
		ContainerSize: c.Size,
	}
}

// LoadConfigFile reads a YAML config file and fills in defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config '%s': %w", path, err)
	}
	cfg.defaults()
	return cfg, nil
}
