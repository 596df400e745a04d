package calibration

import (
	"errors"
	"time"

	"github.com/teslashibe/go-access/pkg/modality"
)

// Config holds calibration protocol timing and scoring parameters.
type Config struct {
	// Multi-point (gaze)
	GridRows        int           // Reference grid rows
	GridCols        int           // Reference grid columns
	Margin          float64       // Grid inset as a fraction of each viewport dimension
	SamplesPerPoint int           // Samples collected per reference target
	CollectWindow   time.Duration // Collection burst length after a target appears
	PointDwell      time.Duration // Time each target stays up, regardless of samples
	PointGap        time.Duration // Blank gap between targets

	// Single-point (breath, orientation)
	SettleDelay time.Duration // Delay before the baseline is captured

	// Scoring
	Viewport    modality.Viewport             // Gaze surface; max error is a quarter of its diagonal
	Normalizers map[modality.Modality]float64 // Max error for non-spatial modalities
}

// DefaultConfig returns the standard protocols: a 3×3 gaze grid and a 2.5s settle.
func DefaultConfig() Config {
	return Config{
		GridRows:        3,
		GridCols:        3,
		Margin:          0.1,
		SamplesPerPoint: 8,
		CollectWindow:   2400 * time.Millisecond,
		PointDwell:      3500 * time.Millisecond,
		PointGap:        500 * time.Millisecond,

		SettleDelay: 2500 * time.Millisecond,

		Viewport: modality.Viewport{Width: 1920, Height: 1080},
		Normalizers: map[modality.Modality]float64{
			modality.Breath:      0.25, // quarter of the 0-1 level range
			modality.Orientation: 22.5, // quarter of a 90° tilt
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.GridRows < 1 || c.GridCols < 1 {
		return errors.New("calibration: grid must have at least one row and column")
	}
	if c.Margin < 0 || c.Margin >= 0.5 {
		return errors.New("calibration: margin must be in [0, 0.5)")
	}
	if c.SamplesPerPoint < 1 {
		return errors.New("calibration: samples per point must be positive")
	}
	if c.PointDwell <= 0 || c.SettleDelay <= 0 {
		return errors.New("calibration: dwell and settle durations must be positive")
	}
	if c.PointGap < 0 {
		return errors.New("calibration: point gap cannot be negative")
	}
	return nil
}

// WithViewport returns a copy with the gaze surface set.
func (c Config) WithViewport(vp modality.Viewport) Config {
	c.Viewport = vp
	return c
}

// WithTiming returns a copy with multi-point timing set.
func (c Config) WithTiming(dwell, gap, collect time.Duration) Config {
	c.PointDwell = dwell
	c.PointGap = gap
	c.CollectWindow = collect
	return c
}

// Grid returns the reference targets, row-major, inset by the margin.
func (c Config) Grid() []modality.Point {
	points := make([]modality.Point, 0, c.GridRows*c.GridCols)
	mx := c.Viewport.Width * c.Margin
	my := c.Viewport.Height * c.Margin
	spanX := c.Viewport.Width - 2*mx
	spanY := c.Viewport.Height - 2*my

	for r := 0; r < c.GridRows; r++ {
		for col := 0; col < c.GridCols; col++ {
			p := modality.Point{X: mx + spanX/2, Y: my + spanY/2}
			if c.GridCols > 1 {
				p.X = mx + spanX*float64(col)/float64(c.GridCols-1)
			}
			if c.GridRows > 1 {
				p.Y = my + spanY*float64(r)/float64(c.GridRows-1)
			}
			points = append(points, p)
		}
	}
	return points
}

// MaxError returns the error that maps to the minimum accuracy for m.
func (c Config) MaxError(m modality.Modality) float64 {
	if m == modality.Gaze {
		return c.Viewport.Diagonal() / 4
	}
	if n, ok := c.Normalizers[m]; ok && n > 0 {
		return n
	}
	return 1
}
