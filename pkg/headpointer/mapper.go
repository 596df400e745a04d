package headpointer

import (
	"errors"
	"sync"

	"github.com/teslashibe/go-access/pkg/modality"
)

// MapperConfig controls how head displacement becomes a surface point.
type MapperConfig struct {
	Viewport modality.Viewport
	Gain     float64 // Surface widths travelled per frame width of head motion
	Mirror   bool    // Flip horizontally so moving right moves the pointer right
}

// DefaultMapperConfig returns a mirrored 1080p mapping with gain 3: a third
// of the frame width sweeps the whole surface.
func DefaultMapperConfig() MapperConfig {
	return MapperConfig{
		Viewport: modality.Viewport{Width: 1920, Height: 1080},
		Gain:     3,
		Mirror:   true,
	}
}

// Validate checks the configuration for errors.
func (c *MapperConfig) Validate() error {
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		return errors.New("headpointer: viewport must be positive")
	}
	if c.Gain <= 0 {
		return errors.New("headpointer: gain must be positive")
	}
	return nil
}

// Mapper converts face positions to surface points relative to a neutral
// head position. The neutral position maps to the surface center.
type Mapper struct {
	mu      sync.Mutex
	config  MapperConfig
	neutral struct{ x, y float64 }
}

// NewMapper creates a mapper with the frame center as neutral.
func NewMapper(config MapperConfig) *Mapper {
	m := &Mapper{config: config}
	m.neutral.x, m.neutral.y = 0.5, 0.5
	return m
}

// SetNeutral records f's center as the resting head position.
func (m *Mapper) SetNeutral(f Face) {
	x, y := f.Center()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.neutral.x, m.neutral.y = x, y
}

// SetViewport changes the output surface.
func (m *Mapper) SetViewport(vp modality.Viewport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.Viewport = vp
}

// Map returns the surface point for f, clamped to the viewport.
func (m *Mapper) Map(f Face) modality.Point {
	x, y := f.Center()

	m.mu.Lock()
	cfg, nx, ny := m.config, m.neutral.x, m.neutral.y
	m.mu.Unlock()

	dx := (x - nx) * cfg.Gain
	dy := (y - ny) * cfg.Gain
	if cfg.Mirror {
		dx = -dx
	}

	return modality.Point{
		X: clamp((0.5+dx)*cfg.Viewport.Width, 0, cfg.Viewport.Width),
		Y: clamp((0.5+dy)*cfg.Viewport.Height, 0, cfg.Viewport.Height),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
