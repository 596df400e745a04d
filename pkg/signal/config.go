package signal

import (
	"errors"
	"time"

	"github.com/teslashibe/go-access/pkg/modality"
)

// Envelope bounds which samples are considered plausible at runtime.
type Envelope struct {
	// Surface bounds gaze coordinates. Zero disables the bounds check.
	Surface modality.Viewport

	// Min/Max bound every component for non-spatial modalities.
	// Equal values disable the check.
	Min float64
	Max float64

	// MaxAge rejects samples older than the previously accepted sample by
	// more than this. Zero disables the check.
	MaxAge time.Duration
}

// Config holds tunable parameters for signal conditioning.
type Config struct {
	// Window is the number of accepted samples averaged per modality.
	Window int

	// SanityLimit bounds the magnitude of any component while the envelope
	// is relaxed for calibration.
	SanityLimit float64

	// Envelopes per modality. Modalities without an entry get only the
	// finite check.
	Envelopes map[modality.Modality]Envelope

	// StaleResync is how many consecutive stale rejections make the
	// conditioner drop its reference time and window, so one future-dated
	// reading cannot lock a modality out. Zero disables resync.
	StaleResync int
}

// DefaultConfig returns the recommended conditioning configuration.
func DefaultConfig() Config {
	return Config{
		Window:      8,
		SanityLimit: 1e5,
		StaleResync: 5,
		Envelopes: map[modality.Modality]Envelope{
			modality.Gaze: {
				Surface: modality.Viewport{Width: 1920, Height: 1080},
				MaxAge:  500 * time.Millisecond,
			},
			modality.Orientation: {
				Min:    -180,
				Max:    180,
				MaxAge: 500 * time.Millisecond,
			},
			modality.Breath: {
				Min:    0,
				Max:    1,
				MaxAge: 500 * time.Millisecond,
			},
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Window < 1 {
		return errors.New("signal: window must be at least 1")
	}
	if c.SanityLimit <= 0 {
		return errors.New("signal: sanity limit must be positive")
	}
	if c.StaleResync < 0 {
		return errors.New("signal: stale resync cannot be negative")
	}
	return nil
}

// WithWindow returns a copy with the window size set.
func (c Config) WithWindow(n int) Config {
	c.Window = n
	return c
}

// WithSurface returns a copy with the gaze surface set.
func (c Config) WithSurface(vp modality.Viewport) Config {
	envs := make(map[modality.Modality]Envelope, len(c.Envelopes))
	for k, v := range c.Envelopes {
		envs[k] = v
	}
	env := envs[modality.Gaze]
	env.Surface = vp
	envs[modality.Gaze] = env
	c.Envelopes = envs
	return c
}
