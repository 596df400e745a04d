package recommend

import (
	"errors"
	"time"
)

// Config holds the analysis thresholds.
type Config struct {
	// MinHistory is the number of events required before any output.
	MinHistory int

	// AdaptationThreshold is the score margin another modality needs
	// over the active one before a switch is suggested.
	AdaptationThreshold float64

	// MinConfidence filters weak candidates. Recalibration is exempt.
	MinConfidence float64

	// MaxPerSession and MaxPerCall cap delivered recommendations.
	MaxPerSession int
	MaxPerCall    int

	// RecalibrationWindow is the trailing event count used for accuracy.
	RecalibrationWindow int
	RecalibrationBelow  float64

	// Timing thresholds.
	HighErrorRate  float64
	FastResponse   time.Duration
	LowErrorRate   float64
	SlowResponse   time.Duration
	TimingStepUp   float64
	TimingStepDown float64

	// FatigueThreshold triggers the fatigue candidate.
	FatigueThreshold float64
	MaxBreak         time.Duration
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		MinHistory:          10,
		AdaptationThreshold: 0.15,
		MinConfidence:       0.7,
		MaxPerSession:       5,
		MaxPerCall:          2,
		RecalibrationWindow: 20,
		RecalibrationBelow:  0.6,
		HighErrorRate:       0.3,
		FastResponse:        500 * time.Millisecond,
		LowErrorRate:        0.1,
		SlowResponse:        2000 * time.Millisecond,
		TimingStepUp:        1.25,
		TimingStepDown:      0.8,
		FatigueThreshold:    0.7,
		MaxBreak:            5 * time.Minute,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MinHistory < 1 {
		return errors.New("recommend: min history must be at least 1")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return errors.New("recommend: min confidence must be in [0,1]")
	}
	if c.MaxPerCall < 1 || c.MaxPerSession < 1 {
		return errors.New("recommend: caps must be at least 1")
	}
	if c.RecalibrationWindow < 1 {
		return errors.New("recommend: recalibration window must be at least 1")
	}
	return nil
}

// WithCaps returns a copy with different delivery caps.
func (c Config) WithCaps(perSession, perCall int) Config {
	c.MaxPerSession = perSession
	c.MaxPerCall = perCall
	return c
}
