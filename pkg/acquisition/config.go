package acquisition

import (
	"errors"
	"time"
)

// DwellConfig holds dwell tuning.
type DwellConfig struct {
	// DwellTime is how long a target must be hovered to activate.
	DwellTime time.Duration

	// VarianceWindow is how many recent points feed the confidence estimate.
	VarianceWindow int
}

// DefaultDwellConfig returns the recommended dwell configuration.
func DefaultDwellConfig() DwellConfig {
	return DwellConfig{
		DwellTime:      2000 * time.Millisecond,
		VarianceWindow: 10,
	}
}

// Validate checks the configuration.
func (c *DwellConfig) Validate() error {
	if c.DwellTime <= 0 {
		return errors.New("acquisition: dwell time must be positive")
	}
	if c.VarianceWindow < 1 {
		return errors.New("acquisition: variance window must be at least 1")
	}
	return nil
}

// WithDwellTime returns a copy with a different dwell time.
func (c DwellConfig) WithDwellTime(d time.Duration) DwellConfig {
	c.DwellTime = d
	return c
}

// ScanConfig holds scanning tuning.
type ScanConfig struct {
	// Interval between highlight advances.
	Interval time.Duration

	// Reverse bounces at the ends of the list instead of wrapping.
	Reverse bool

	// AutoRescan starts a new scan RescanDelay after an activation.
	AutoRescan  bool
	RescanDelay time.Duration

	// GroupThreshold is the candidate count above which items are scanned
	// in groups of ceil(sqrt(N)).
	GroupThreshold int
}

// DefaultScanConfig returns the recommended scan configuration.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Interval:       1500 * time.Millisecond,
		Reverse:        true,
		RescanDelay:    750 * time.Millisecond,
		GroupThreshold: 10,
	}
}

// Validate checks the configuration.
func (c *ScanConfig) Validate() error {
	if c.Interval <= 0 {
		return errors.New("acquisition: scan interval must be positive")
	}
	if c.AutoRescan && c.RescanDelay <= 0 {
		return errors.New("acquisition: rescan delay must be positive")
	}
	if c.GroupThreshold < 1 {
		return errors.New("acquisition: group threshold must be at least 1")
	}
	return nil
}

// WithInterval returns a copy with a different scan interval.
func (c ScanConfig) WithInterval(d time.Duration) ScanConfig {
	c.Interval = d
	return c
}

// WithReverse returns a copy with ping-pong enabled or disabled.
func (c ScanConfig) WithReverse(reverse bool) ScanConfig {
	c.Reverse = reverse
	return c
}

// WithAutoRescan returns a copy with automatic rescanning configured.
func (c ScanConfig) WithAutoRescan(enabled bool, delay time.Duration) ScanConfig {
	c.AutoRescan = enabled
	c.RescanDelay = delay
	return c
}
