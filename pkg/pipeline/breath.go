package pipeline

import (
	"sync"
	"time"

	"github.com/teslashibe/go-access/pkg/acquisition"
	"github.com/teslashibe/go-access/pkg/debug"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/settings"
	"github.com/teslashibe/go-access/pkg/signal"
)

// breathDriver detects puffs over the calibrated baseline and uses each one
// as a switch press on a scan machine.
type breathDriver struct {
	env
	scan *acquisition.Scan

	mu         sync.Mutex
	threshold  float64
	hold       time.Duration
	armed      bool
	aboveSince time.Time
}

func newBreathDriver(e env, s settings.Modality) *breathDriver {
	sc := acquisition.NewScan(e.modality, scanConfig(s), e.sched, e.surface, e.gate, e.announcer, e.emit)
	sc.SetPresenter(e.presenter)
	return &breathDriver{
		env:       e,
		scan:      sc,
		threshold: s.PuffThreshold,
		hold:      s.PuffHold,
		armed:     true,
	}
}

func (d *breathDriver) start() {}

func (d *breathDriver) stop() {
	d.scan.Stop()
	d.mu.Lock()
	d.armed = true
	d.aboveSince = time.Time{}
	d.mu.Unlock()
}

func (d *breathDriver) sample(sig signal.Conditioned) {
	var baseline float64
	if p, ok := d.profile(); ok && p.IsCalibrated && len(p.Baseline) > 0 {
		baseline = p.Baseline[0]
	}
	delta := sig.Scalar() - baseline

	if d.detect(delta, sig.Time) {
		debug.Log("breath puff", "delta", delta)
		d.scan.Press()
	}
}

// detect reports a puff once delta has stayed above the threshold for the
// hold time. It re-arms after delta falls below half the threshold.
func (d *breathDriver) detect(delta float64, at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.armed {
		if delta < d.threshold/2 {
			d.armed = true
			d.aboveSince = time.Time{}
		}
		return false
	}
	if delta <= d.threshold {
		d.aboveSince = time.Time{}
		return false
	}
	if d.aboveSince.IsZero() {
		d.aboveSince = at
	}
	if at.Sub(d.aboveSince) < d.hold {
		return false
	}
	d.armed = false
	d.aboveSince = time.Time{}
	return true
}

func (d *breathDriver) stimulus(s modality.Stimulus) {
	switch s.Kind {
	case modality.Cancel:
		d.scan.Cancel()
	case modality.Press:
		d.scan.Press()
	}
}

func (d *breathDriver) targetsChanged() { d.scan.TargetsChanged() }

func (d *breathDriver) configure(s settings.Modality) {
	d.scan.Configure(scanConfig(s))
	d.mu.Lock()
	d.threshold = s.PuffThreshold
	d.hold = s.PuffHold
	d.mu.Unlock()
}

func (d *breathDriver) state() string { return d.scan.State().String() }
