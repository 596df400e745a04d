package acquisition

import (
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/debug"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/schedule"
	"github.com/teslashibe/go-access/pkg/signal"
)

// DwellState is the state of a dwell machine.
type DwellState int

const (
	// DwellIdle means no eligible target is hovered.
	DwellIdle DwellState = iota

	// DwellHovering means an eligible target is hovered but not committing.
	DwellHovering

	// DwellCommitting means the dwell timer is running for the hovered target.
	DwellCommitting
)

// String returns a human-readable state name.
func (s DwellState) String() string {
	switch s {
	case DwellIdle:
		return "idle"
	case DwellHovering:
		return "hovering"
	case DwellCommitting:
		return "committing"
	default:
		return "unknown"
	}
}

// Dwell activates a target after it has been hovered continuously for the
// dwell time. Leaving the target cancels the timer; no partial credit is
// carried over to the next hover.
type Dwell struct {
	mu        sync.Mutex
	modality  modality.Modality
	config    DwellConfig
	sched     schedule.Scheduler
	surface   Surface
	gate      Gate
	presenter Presenter
	sink      Sink
	logger    *slog.Logger

	state   DwellState
	target  *events.TargetRef
	started time.Time
	token   *schedule.Token
	gen     uint64

	// held is set when the timer elapsed while no target was eligible.
	held bool
	// spent is the target activated last; it must be left before it can
	// activate again.
	spent string

	recent []modality.Point
}

// NewDwell creates a dwell machine for m.
func NewDwell(m modality.Modality, config DwellConfig, sched schedule.Scheduler, surface Surface, gate Gate, sink Sink) *Dwell {
	return &Dwell{
		modality:  m,
		config:    config,
		sched:     sched,
		surface:   surface,
		gate:      gate,
		presenter: nopPresenter{},
		sink:      sink,
		logger:    log.Component("dwell").With("modality", string(m)),
	}
}

// SetPresenter sets the feedback presenter.
func (d *Dwell) SetPresenter(p Presenter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p == nil {
		p = nopPresenter{}
	}
	d.presenter = p
}

// Configure replaces the configuration. A running dwell keeps its timer.
func (d *Dwell) Configure(config DwellConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config = config
}

// Update feeds a conditioned pointing signal.
func (d *Dwell) Update(sig signal.Conditioned) {
	p, ok := sig.Point()
	if !ok {
		return
	}
	hit := d.surface.ResolveTargetAt(p)

	d.mu.Lock()
	d.remember(p)
	presenter := d.presenter

	if !hit.Eligible() {
		left := d.target
		d.spent = ""
		d.resetLocked()
		d.mu.Unlock()
		if left != nil {
			debug.Log("dwell left target", "modality", d.modality, "target", left.ID)
			presenter.DwellProgress(d.modality, *left, 0)
		}
		return
	}

	if d.target != nil && d.target.ID == hit.ID {
		var fraction float64
		if d.state == DwellCommitting && !d.held {
			fraction = d.fractionLocked()
		}
		tgt := *d.target
		d.mu.Unlock()
		if fraction > 0 {
			presenter.DwellProgress(d.modality, tgt, fraction)
		}
		return
	}

	if d.state == DwellIdle && d.spent == hit.ID {
		d.mu.Unlock()
		return
	}

	left := d.target
	d.spent = ""
	d.resetLocked()
	tgt := *hit
	d.target = &tgt
	d.state = DwellHovering
	d.armLocked()
	d.mu.Unlock()

	if left != nil {
		presenter.DwellProgress(d.modality, *left, 0)
	}
	presenter.DwellProgress(d.modality, tgt, 0)
}

// armLocked starts a fresh dwell timer for the current target.
func (d *Dwell) armLocked() {
	d.gen++
	gen := d.gen
	d.state = DwellCommitting
	d.held = false
	d.started = d.sched.Now()
	d.token = d.sched.AfterFunc(d.config.DwellTime, func() { d.elapsed(gen) })
}

func (d *Dwell) resetLocked() {
	d.token.Cancel()
	d.token = nil
	d.gen++
	d.state = DwellIdle
	d.target = nil
	d.held = false
}

func (d *Dwell) elapsed(gen uint64) {
	eligible := d.surface.ListEligibleTargets()

	d.mu.Lock()
	if gen != d.gen || d.state != DwellCommitting || d.target == nil {
		d.mu.Unlock()
		return
	}
	if len(eligible) == 0 {
		d.held = true
		d.mu.Unlock()
		d.logger.Debug("dwell elapsed with no eligible targets, holding")
		return
	}

	tgt := *d.target
	dwell := d.config.DwellTime
	now := d.sched.Now()
	variance := signal.Variance(d.recent)
	presenter := d.presenter

	d.token = nil
	d.gen++
	d.state = DwellIdle
	d.target = nil
	d.spent = tgt.ID
	d.mu.Unlock()

	e := events.New(events.ActionSelect, d.modality, now)
	e.Target = &tgt
	e.Accuracy = accuracyFor(d.gate, d.modality)
	e.Confidence = signal.ConfidenceFromVariance(variance)
	e.ResponseTime = dwell
	e = gateSelect(d.gate, e)

	presenter.DwellProgress(d.modality, tgt, 1)
	d.logger.Debug("dwell activated", "target", tgt.ID, "action", e.Action, "confidence", e.Confidence)
	if d.sink != nil {
		d.sink(e)
	}
}

// TargetsChanged tells the machine the eligible set was refreshed. A held
// dwell re-arms with a fresh timer if its target is still eligible.
func (d *Dwell) TargetsChanged() {
	eligible := d.surface.ListEligibleTargets()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.target == nil || len(eligible) == 0 {
		return
	}
	if !containsTarget(eligible, d.target.ID) {
		d.resetLocked()
		return
	}
	if d.held {
		d.armLocked()
	}
}

// Stop cancels any pending timer and forgets the hovered target.
func (d *Dwell) Stop() {
	d.mu.Lock()
	d.resetLocked()
	d.spent = ""
	d.recent = d.recent[:0]
	presenter := d.presenter
	d.mu.Unlock()
	presenter.ClearHighlight(d.modality)
}

// State returns the current state.
func (d *Dwell) State() DwellState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Target returns the hovered target, if any.
func (d *Dwell) Target() (events.TargetRef, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.target == nil {
		return events.TargetRef{}, false
	}
	return *d.target, true
}

// Progress returns the dwell fraction in [0,1].
func (d *Dwell) Progress() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DwellCommitting {
		return 0
	}
	if d.held {
		return 1
	}
	return d.fractionLocked()
}

func (d *Dwell) fractionLocked() float64 {
	f := float64(d.sched.Now().Sub(d.started)) / float64(d.config.DwellTime)
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}

func (d *Dwell) remember(p modality.Point) {
	n := d.config.VarianceWindow
	if n < 1 {
		n = 1
	}
	d.recent = append(d.recent, p)
	if len(d.recent) > n {
		d.recent = append(d.recent[:0], d.recent[len(d.recent)-n:]...)
	}
}
