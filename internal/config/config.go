// Package config loads the drawerz YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"Drawerz/internal/export"
)

// Environment overrides applied after the file is read.
const (
	EnvLogLevel = "LOG_LEVEL"
	EnvAddr     = "DRAWERZ_ADDR"
)

const (
	MinCanvas   = 10
	MinDuration = 5 * time.Second
	MaxDuration = 15 * time.Second
)

// Config holds the full configuration.
type Config struct {
	Canvas    CanvasConfig    `yaml:"canvas"`
	History   HistoryConfig   `yaml:"history"`
	Animation AnimationConfig `yaml:"animation"`
	Export    ExportConfig    `yaml:"export"`
	Share     ShareConfig     `yaml:"share"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`
}

type CanvasConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type HistoryConfig struct {
	Cap int `yaml:"cap"`
}

type AnimationConfig struct {
	RefreshHz int `yaml:"refresh_hz"`
}

type ExportConfig struct {
	FPS      int           `yaml:"fps"`
	Duration time.Duration `yaml:"duration"`
	Quality  string        `yaml:"quality"`
	Format   string        `yaml:"format"`
	Dir      string        `yaml:"dir"`
	// FFmpeg is the encoder binary used for mp4 and webm.
	FFmpeg string `yaml:"ffmpeg"`
}

type ShareConfig struct {
	Addr    string `yaml:"addr"`
	FrameHz int    `yaml:"frame_hz"`
	// Advertise announces the session over mDNS.
	Advertise bool `yaml:"advertise"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Canvas:    CanvasConfig{Width: 800, Height: 600},
		History:   HistoryConfig{Cap: 30},
		Animation: AnimationConfig{RefreshHz: 60},
		Export: ExportConfig{
			FPS:      30,
			Duration: 15 * time.Second,
			Quality:  string(export.QualityMedium),
			Format:   string(export.FormatGIF),
			Dir:      export.DefaultDir,
			FFmpeg:   export.DefaultFFmpeg,
		},
		Share:     ShareConfig{Addr: ":8888", FrameHz: 15, Advertise: true},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvAddr); v != "" {
		c.Share.Addr = v
	}
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Canvas.Width < MinCanvas || c.Canvas.Height < MinCanvas {
		errs = append(errs, fmt.Errorf("canvas must be at least %dx%d, got %dx%d", MinCanvas, MinCanvas, c.Canvas.Width, c.Canvas.Height))
	}
	if c.History.Cap <= 0 {
		errs = append(errs, fmt.Errorf("history.cap must be > 0"))
	}
	if c.Animation.RefreshHz <= 0 {
		errs = append(errs, fmt.Errorf("animation.refresh_hz must be > 0"))
	}
	if c.Export.FPS != 30 && c.Export.FPS != 60 {
		errs = append(errs, fmt.Errorf("export.fps must be 30 or 60, got %d", c.Export.FPS))
	}
	if c.Export.Duration < MinDuration || c.Export.Duration > MaxDuration {
		errs = append(errs, fmt.Errorf("export.duration must be within [%s, %s], got %s", MinDuration, MaxDuration, c.Export.Duration))
	}
	if _, err := export.ParseQuality(c.Export.Quality); err != nil {
		errs = append(errs, err)
	}
	if _, err := export.ParseFormat(c.Export.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Share.FrameHz <= 0 {
		errs = append(errs, fmt.Errorf("share.frame_hz must be > 0"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// ExportOptions converts the export section. It must only be called on a
// validated Config.
func (c *Config) ExportOptions() export.Options {
	q, _ := export.ParseQuality(c.Export.Quality)
	f, _ := export.ParseFormat(c.Export.Format)
	return export.Options{
		FPS:      c.Export.FPS,
		Duration: c.Export.Duration,
		Quality:  q,
		Format:   f,
	}
}
