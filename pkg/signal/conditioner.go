// Package signal smooths raw sensor readings into conditioned signals.
package signal

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/debug"
	"github.com/teslashibe/go-access/pkg/metrics"
	"github.com/teslashibe/go-access/pkg/modality"
)

// Conditioned is the smoothed output for one modality.
type Conditioned struct {
	Modality modality.Modality
	Values   []float64 // arithmetic mean of the window, per component
	Time     time.Time // timestamp of the newest accepted sample
	Window   int       // number of samples averaged
}

// Point interprets the first two values as a coordinate.
func (c Conditioned) Point() (modality.Point, bool) {
	if len(c.Values) < 2 {
		return modality.Point{}, false
	}
	return modality.Point{X: c.Values[0], Y: c.Values[1]}, true
}

// Scalar returns the first component.
func (c Conditioned) Scalar() float64 {
	if len(c.Values) == 0 {
		return 0
	}
	return c.Values[0]
}

// window is a fixed-capacity FIFO of accepted readings.
type window struct {
	buf      [][]float64
	next     int
	size     int
	last     time.Time
	relaxed  bool
	rejected int
	accepted int
	stale    int // consecutive stale rejections
}

// Conditioner keeps one smoothing window per modality.
type Conditioner struct {
	mu      sync.Mutex
	config  Config
	windows map[modality.Modality]*window
}

// NewConditioner creates a conditioner.
func NewConditioner(config Config) *Conditioner {
	if config.Window < 1 {
		config.Window = 1
	}
	return &Conditioner{
		config:  config,
		windows: make(map[modality.Modality]*window),
	}
}

func (c *Conditioner) windowFor(m modality.Modality) *window {
	w, ok := c.windows[m]
	if !ok {
		w = &window{buf: make([][]float64, c.config.Window)}
		c.windows[m] = w
	}
	return w
}

// Condition validates s, adds it to m's window, and returns the window mean.
// Rejected samples are not buffered; the returned error wraps ErrInvalidSample.
func (c *Conditioner) Condition(m modality.Modality, s modality.Sample) (Conditioned, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.windowFor(m)
	err := c.check(m, w, s)
	if errors.Is(err, ErrStale) {
		w.stale++
		if c.config.StaleResync > 0 && w.stale >= c.config.StaleResync {
			log.Component("signal").Warn("reference time ahead of input, resyncing", "modality", m, "last", w.last, "sample", s.Time)
			w.reset()
			w.last = time.Time{}
			err = c.check(m, w, s)
		}
	}
	if err != nil {
		w.rejected++
		metrics.InvalidSample(m, err)
		debug.SignalLog("sample rejected", "modality", m, "reason", err)
		return Conditioned{}, fmt.Errorf("%w: %w", ErrInvalidSample, err)
	}

	vals := make([]float64, len(s.Values))
	copy(vals, s.Values)

	// Dimension change resets the window.
	if w.size > 0 && len(w.buf[(w.next+len(w.buf)-1)%len(w.buf)]) != len(vals) {
		w.reset()
	}

	w.buf[w.next] = vals
	w.next = (w.next + 1) % len(w.buf)
	if w.size < len(w.buf) {
		w.size++
	}
	w.accepted++
	w.stale = 0
	if s.Time.After(w.last) {
		w.last = s.Time
	}

	out := Conditioned{
		Modality: m,
		Values:   w.mean(),
		Time:     s.Time,
		Window:   w.size,
	}
	debug.SignalLog("sample conditioned", "modality", m, "values", out.Values, "window", out.Window)
	return out, nil
}

func (c *Conditioner) check(m modality.Modality, w *window, s modality.Sample) error {
	if !s.Finite() {
		return ErrNonFinite
	}

	if w.relaxed {
		for _, v := range s.Values {
			if math.Abs(v) > c.config.SanityLimit {
				return ErrOutOfEnvelope
			}
		}
		return nil
	}

	env, ok := c.config.Envelopes[m]
	if !ok {
		return nil
	}

	if env.MaxAge > 0 && !w.last.IsZero() && w.last.Sub(s.Time) > env.MaxAge {
		return ErrStale
	}

	if env.Surface.Width > 0 && env.Surface.Height > 0 {
		p, ok := s.Point()
		if !ok || !env.Surface.Contains(p) {
			return ErrOutOfEnvelope
		}
		return nil
	}

	if env.Max > env.Min {
		for _, v := range s.Values {
			if v < env.Min || v > env.Max {
				return ErrOutOfEnvelope
			}
		}
	}
	return nil
}

// Relax switches m's envelope to the coarse calibration sanity check.
func (c *Conditioner) Relax(m modality.Modality, relaxed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windowFor(m).relaxed = relaxed
	log.Component("signal").Debug("envelope", "modality", m, "relaxed", relaxed)
}

// SetSurface updates the addressable gaze surface.
func (c *Conditioner) SetSurface(vp modality.Viewport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = c.config.WithSurface(vp)
}

// SetWindow resizes m's window, discarding buffered readings.
func (c *Conditioner) SetWindow(m modality.Modality, size int) {
	if size < 1 {
		size = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.windowFor(m)
	if len(w.buf) == size {
		return
	}
	w.buf = make([][]float64, size)
	w.next = 0
	w.size = 0
}

// Reset clears m's window. The relaxed flag and counters survive.
func (c *Conditioner) Reset(m modality.Modality) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.windows[m]; ok {
		w.reset()
		w.last = time.Time{}
		w.stale = 0
	}
}

// Stats reports accepted and rejected sample counts for m.
func (c *Conditioner) Stats(m modality.Modality) (accepted, rejected int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.windows[m]; ok {
		return w.accepted, w.rejected
	}
	return 0, 0
}

func (w *window) reset() {
	for i := range w.buf {
		w.buf[i] = nil
	}
	w.next = 0
	w.size = 0
}

func (w *window) mean() []float64 {
	if w.size == 0 {
		return nil
	}
	var dims int
	for _, v := range w.buf {
		if v != nil {
			dims = len(v)
			break
		}
	}
	out := make([]float64, dims)
	for _, v := range w.buf {
		if v == nil {
			continue
		}
		for i := range out {
			out[i] += v[i]
		}
	}
	for i := range out {
		out[i] /= float64(w.size)
	}
	return out
}

// Variance returns the mean squared distance of points from their centroid.
func Variance(points []modality.Point) float64 {
	if len(points) < 2 {
		return 0
	}
	var cx, cy float64
	for _, p := range points {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(points))
	cx /= n
	cy /= n

	var sum float64
	for _, p := range points {
		dx, dy := p.X-cx, p.Y-cy
		sum += dx*dx + dy*dy
	}
	return sum / n
}

// ConfidenceFromVariance maps short-window signal variance to a confidence
// in [0.1, 1].
func ConfidenceFromVariance(variance float64) float64 {
	return math.Max(0.1, math.Min(1, 1-variance/1000))
}
