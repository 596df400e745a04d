package pipeline

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-access/pkg/calibration"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/performance"
	"github.com/teslashibe/go-access/pkg/recommend"
	"github.com/teslashibe/go-access/pkg/settings"
	"github.com/teslashibe/go-access/pkg/signal"
)

// Config holds the manager configuration.
type Config struct {
	// Scene is the initial scene identifier for context keys.
	Scene string

	// Viewport is the initial gaze surface.
	Viewport modality.Viewport

	// AnalyzeEvery runs the recommendation engine every N events. Zero
	// disables automatic analysis.
	AnalyzeEvery int

	// HistorySize bounds the event history kept for analysis.
	HistorySize int

	// Defaults for per-modality settings not present in the store.
	Defaults settings.Modality

	Signal      signal.Config
	Calibration calibration.Config
	Recommend   recommend.Config
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	vp := modality.Viewport{Width: 1920, Height: 1080}
	return Config{
		Scene:        "menu",
		Viewport:     vp,
		AnalyzeEvery: 10,
		HistorySize:  performance.DefaultHistorySize,
		Defaults:     settings.DefaultModality(),
		Signal:       signal.DefaultConfig().WithSurface(vp),
		Calibration:  calibration.DefaultConfig().WithViewport(vp),
		Recommend:    recommend.DefaultConfig(),
	}
}

// Validate checks the configuration and every nested one.
func (c *Config) Validate() error {
	if c.AnalyzeEvery < 0 {
		return errors.New("pipeline: analyze interval must not be negative")
	}
	if c.HistorySize < 1 {
		return errors.New("pipeline: history size must be at least 1")
	}
	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	if err := c.Signal.Validate(); err != nil {
		return fmt.Errorf("signal: %w", err)
	}
	if err := c.Calibration.Validate(); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	return nil
}

// WithScene returns a copy starting in scene.
func (c Config) WithScene(scene string) Config {
	c.Scene = scene
	return c
}

// WithViewport returns a copy with a different gaze surface.
func (c Config) WithViewport(vp modality.Viewport) Config {
	c.Viewport = vp
	c.Signal = c.Signal.WithSurface(vp)
	c.Calibration = c.Calibration.WithViewport(vp)
	return c
}
