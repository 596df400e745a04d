package pipeline

import (
	"math"
	"sync"

	"golang.org/x/time/rate"

	"github.com/teslashibe/go-access/pkg/calibration"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/settings"
	"github.com/teslashibe/go-access/pkg/signal"
)

// orientationDriver turns device tilt ([pitch, roll] in degrees) into
// throttled move events.
type orientationDriver struct {
	env

	mu       sync.Mutex
	deadZone float64
	span     float64
	limiter  *rate.Limiter
	tilted   bool
}

func newOrientationDriver(e env, s settings.Modality) *orientationDriver {
	return &orientationDriver{
		env:      e,
		deadZone: s.TiltDeadZone,
		span:     s.TiltRange,
		limiter:  rate.NewLimiter(rate.Limit(s.MovesPerSecond), 1),
	}
}

func (d *orientationDriver) start() {}

func (d *orientationDriver) stop() {
	d.mu.Lock()
	d.tilted = false
	d.mu.Unlock()
}

func (d *orientationDriver) sample(sig signal.Conditioned) {
	if len(sig.Values) < 2 {
		return
	}
	profile, ok := d.profile()
	calibrated := ok && profile.IsCalibrated
	var zero calibration.Profile
	if calibrated {
		zero = profile
	}
	delta := zero.Delta(sig.Values[:2])
	pitch, roll := delta[0], delta[1]

	dir, mag := tiltDirection(pitch, roll)

	d.mu.Lock()
	if mag < d.deadZone {
		d.tilted = false
		d.mu.Unlock()
		return
	}
	now := d.sched.Now()
	allowed := d.limiter.AllowN(now, 1)
	d.tilted = true
	span := d.span
	d.mu.Unlock()
	if !allowed {
		return
	}

	e := events.New(events.ActionMove, d.modality, now)
	e.Direction = dir
	e.Intensity = math.Min(1, mag/span)
	e.Confidence = 1
	e.Accuracy = calibration.UnknownAccuracy
	if ok {
		e.Accuracy = profile.Accuracy
	}
	if !calibrated {
		e.Confidence *= 0.5
	}
	d.emit(e)
}

// tiltDirection picks the dominant axis. Positive pitch tilts forward (down),
// positive roll tilts right.
func tiltDirection(pitch, roll float64) (events.Direction, float64) {
	if math.Abs(pitch) >= math.Abs(roll) {
		if pitch >= 0 {
			return events.DirectionDown, math.Abs(pitch)
		}
		return events.DirectionUp, math.Abs(pitch)
	}
	if roll >= 0 {
		return events.DirectionRight, math.Abs(roll)
	}
	return events.DirectionLeft, math.Abs(roll)
}

func (d *orientationDriver) stimulus(modality.Stimulus) {}

func (d *orientationDriver) targetsChanged() {}

func (d *orientationDriver) configure(s settings.Modality) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deadZone = s.TiltDeadZone
	d.span = s.TiltRange
	d.limiter.SetLimitAt(d.sched.Now(), rate.Limit(s.MovesPerSecond))
}

func (d *orientationDriver) state() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tilted {
		return "tilted"
	}
	return "level"
}
