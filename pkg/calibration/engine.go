// Package calibration runs per-modality calibration protocols and keeps the
// resulting profiles.
//
// Gaze uses a multi-point protocol: reference targets are shown one at a
// time on a grid, a short burst of conditioned samples is collected for each,
// and the protocol advances on a fixed schedule whether or not samples
// arrived. Breath and orientation use a single-point protocol: after a settle
// delay the latest reading becomes the zero reference.
//
// Completing a protocol always marks the profile calibrated; low accuracy only
// lowers the reliability reported downstream.
package calibration

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/announce"
	"github.com/teslashibe/go-access/pkg/metrics"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/schedule"
	"github.com/teslashibe/go-access/pkg/signal"
)

// EnvelopeController relaxes sample validation while a protocol runs and
// clears the smoothing window whenever a new reference target appears.
type EnvelopeController interface {
	Relax(m modality.Modality, relaxed bool)
	Reset(m modality.Modality)
}

// Presenter shows and hides calibration targets. Optional.
type Presenter interface {
	ShowTarget(m modality.Modality, index, total int, target modality.Point)
	HideTarget(m modality.Modality)
}

// Phase is the protocol stage of a session.
type Phase string

const (
	PhaseSettling  Phase = "settling"
	PhaseTarget    Phase = "target"
	PhaseGap       Phase = "gap"
	PhaseComplete  Phase = "complete"
	PhaseCancelled Phase = "cancelled"
)

// Session is a running calibration.
type Session struct {
	ID       string
	Modality modality.Modality
	Started  time.Time

	phase      Phase
	targets    []modality.Point
	index      int
	pointStart time.Time
	points     []ReferencePoint
	readings   [][]float64
	token      *schedule.Token
}

// Progress is a snapshot of a session for feedback.
type Progress struct {
	ID         string            `json:"id"`
	Modality   modality.Modality `json:"modality"`
	Phase      Phase             `json:"phase"`
	PointIndex int               `json:"point_index"`
	PointCount int               `json:"point_count"`
	Target     *modality.Point   `json:"target,omitempty"`
	Samples    int               `json:"samples"`
}

func (s *Session) progress() Progress {
	p := Progress{
		ID:         s.ID,
		Modality:   s.Modality,
		Phase:      s.phase,
		PointIndex: s.index,
		PointCount: len(s.targets),
		Samples:    len(s.readings),
	}
	if s.phase == PhaseTarget && s.index < len(s.targets) {
		t := s.targets[s.index]
		p.Target = &t
	}
	for _, rp := range s.points {
		p.Samples += len(rp.Samples)
	}
	return p
}

// Engine owns calibration sessions and profiles for one user session.
type Engine struct {
	mu        sync.Mutex
	config    Config
	sched     schedule.Scheduler
	envelope  EnvelopeController
	announcer announce.Announcer
	presenter Presenter
	logger    *slog.Logger

	sessions map[modality.Modality]*Session
	profiles map[modality.Modality]*Profile

	onComplete    func(Profile)
	onRecalibrate func(m modality.Modality, lastAccuracy float64)
}

// NewEngine creates a calibration engine.
func NewEngine(config Config, sched schedule.Scheduler, envelope EnvelopeController, announcer announce.Announcer) *Engine {
	if announcer == nil {
		announcer = announce.Nop{}
	}
	return &Engine{
		config:    config,
		sched:     sched,
		envelope:  envelope,
		announcer: announcer,
		logger:    log.Component("calibration"),
		sessions:  make(map[modality.Modality]*Session),
		profiles:  make(map[modality.Modality]*Profile),
	}
}

// SetPresenter sets the target presenter.
func (e *Engine) SetPresenter(p Presenter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.presenter = p
}

// OnComplete sets a callback fired after every completed protocol.
func (e *Engine) OnComplete(fn func(Profile)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onComplete = fn
}

// OnRecalibrationNeeded sets a callback fired when a profile is invalidated.
func (e *Engine) OnRecalibrationNeeded(fn func(m modality.Modality, lastAccuracy float64)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onRecalibrate = fn
}

// Start begins a calibration protocol for m.
func (e *Engine) Start(m modality.Modality) (Progress, error) {
	if !m.Calibratable() {
		return Progress{}, fmt.Errorf("%w: %s", ErrUnsupportedModality, m)
	}

	e.mu.Lock()
	if _, running := e.sessions[m]; running {
		e.mu.Unlock()
		return Progress{}, fmt.Errorf("%w: %s", ErrCalibrationInProgress, m)
	}

	s := &Session{
		ID:       uuid.New().String(),
		Modality: m,
		Started:  e.sched.Now(),
	}
	e.sessions[m] = s
	if e.envelope != nil {
		e.envelope.Relax(m, true)
	}
	e.logger.Info("calibration started", "modality", m, "session", s.ID)

	var after []func()
	if m == modality.Gaze {
		s.targets = e.config.Grid()
		s.points = make([]ReferencePoint, 0, len(s.targets))
		after = e.beginPointLocked(s, 0)
	} else {
		s.phase = PhaseSettling
		s.token = e.sched.AfterFunc(e.config.SettleDelay, func() { e.settleElapsed(s) })
		msg := "Calibrating " + string(m) + ". Hold still and breathe normally."
		after = append(after, func() { e.announcer.Announce(msg, announce.Polite) })
	}
	p := s.progress()
	e.mu.Unlock()

	run(after)
	return p, nil
}

// beginPointLocked shows target i and schedules its end.
func (e *Engine) beginPointLocked(s *Session, i int) []func() {
	s.index = i
	s.phase = PhaseTarget
	s.pointStart = e.sched.Now()
	s.points = append(s.points, ReferencePoint{Target: s.targets[i]})
	// readings aimed at the previous target must not smear into this one
	if e.envelope != nil {
		e.envelope.Reset(s.Modality)
	}
	s.token = e.sched.AfterFunc(e.config.PointDwell, func() { e.pointElapsed(s, i) })

	presenter := e.presenter
	target := s.targets[i]
	total := len(s.targets)
	msg := fmt.Sprintf("Look at target %d of %d", i+1, total)
	return []func(){
		func() {
			if presenter != nil {
				presenter.ShowTarget(s.Modality, i, total, target)
			}
			e.announcer.Announce(msg, announce.Polite)
		},
	}
}

func (e *Engine) pointElapsed(s *Session, i int) {
	e.mu.Lock()
	if e.sessions[s.Modality] != s || s.phase != PhaseTarget || s.index != i {
		e.mu.Unlock()
		return
	}

	presenter := e.presenter
	hide := func() {
		if presenter != nil {
			presenter.HideTarget(s.Modality)
		}
	}

	if i+1 >= len(s.targets) {
		profile, after := e.finishLocked(s)
		e.mu.Unlock()
		hide()
		run(after)
		e.logger.Info("calibration protocol finished", "modality", s.Modality, "accuracy", profile.Accuracy)
		return
	}

	s.phase = PhaseGap
	next := i + 1
	s.token = e.sched.AfterFunc(e.config.PointGap, func() { e.gapElapsed(s, next) })
	e.mu.Unlock()
	hide()
}

func (e *Engine) gapElapsed(s *Session, next int) {
	e.mu.Lock()
	if e.sessions[s.Modality] != s || s.phase != PhaseGap {
		e.mu.Unlock()
		return
	}
	after := e.beginPointLocked(s, next)
	e.mu.Unlock()
	run(after)
}

func (e *Engine) settleElapsed(s *Session) {
	e.mu.Lock()
	if e.sessions[s.Modality] != s || s.phase != PhaseSettling {
		e.mu.Unlock()
		return
	}
	profile, after := e.finishLocked(s)
	e.mu.Unlock()
	run(after)
	e.logger.Info("calibration protocol finished", "modality", s.Modality, "baseline", profile.Baseline, "accuracy", profile.Accuracy)
}

// Feed offers a conditioned reading to m's running session. It reports
// whether the reading was collected.
func (e *Engine) Feed(sig signal.Conditioned) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[sig.Modality]
	if !ok {
		return false
	}

	switch s.phase {
	case PhaseTarget:
		p, ok := sig.Point()
		if !ok {
			return false
		}
		cur := &s.points[len(s.points)-1]
		if len(cur.Samples) >= e.config.SamplesPerPoint {
			return false
		}
		if e.sched.Now().Sub(s.pointStart) > e.config.CollectWindow {
			return false
		}
		cur.Samples = append(cur.Samples, p)
		return true

	case PhaseSettling:
		vals := make([]float64, len(sig.Values))
		copy(vals, sig.Values)
		s.readings = append(s.readings, vals)
		return true
	}
	return false
}

// Running reports whether m is calibrating.
func (e *Engine) Running(m modality.Modality) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sessions[m]
	return ok
}

// Progress returns a snapshot of m's running session.
func (e *Engine) Progress(m modality.Modality) (Progress, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[m]
	if !ok {
		return Progress{}, false
	}
	return s.progress(), true
}

// Complete ends m's protocol now and computes its profile from whatever was
// collected.
func (e *Engine) Complete(m modality.Modality) (Profile, error) {
	e.mu.Lock()
	s, ok := e.sessions[m]
	if !ok {
		e.mu.Unlock()
		return Profile{}, fmt.Errorf("%w: %s", ErrNoSession, m)
	}
	presenter := e.presenter
	showing := s.phase == PhaseTarget
	profile, after := e.finishLocked(s)
	e.mu.Unlock()

	if showing && presenter != nil {
		presenter.HideTarget(m)
	}
	run(after)
	return profile, nil
}

// finishLocked computes the profile, stores it, and tears the session down.
// The returned callbacks must run without the lock held.
func (e *Engine) finishLocked(s *Session) (Profile, []func()) {
	s.token.Cancel()
	s.phase = PhaseComplete
	delete(e.sessions, s.Modality)
	if e.envelope != nil {
		e.envelope.Relax(s.Modality, false)
	}

	profile := Profile{
		Modality:     s.Modality,
		CalibratedAt: e.sched.Now(),
		IsCalibrated: true,
	}

	maxErr := e.config.MaxError(s.Modality)
	if s.Modality == modality.Gaze {
		avg, n := averagePointError(s.points)
		profile.Points = s.points
		profile.SampleCount = n
		profile.Accuracy = Accuracy(avg, maxErr, n)
	} else {
		n := len(s.readings)
		if n > 0 {
			profile.Baseline = s.readings[n-1]
		}
		profile.SampleCount = n
		profile.Accuracy = Accuracy(averageBaselineError(profile.Baseline, s.readings), maxErr, n)
	}

	if profile.SampleCount == 0 {
		e.logger.Warn("calibration collected no samples", "modality", s.Modality, "accuracy", profile.Accuracy)
	}

	stored := profile
	e.profiles[s.Modality] = &stored
	metrics.Calibration(s.Modality, profile.Accuracy)

	onComplete := e.onComplete
	msg := fmt.Sprintf("%s calibration complete. Accuracy %d percent.", capitalize(string(s.Modality)), int(profile.Accuracy*100+0.5))
	return profile, []func(){
		func() { e.announcer.Announce(msg, announce.Polite) },
		func() {
			if onComplete != nil {
				onComplete(profile)
			}
		},
	}
}

// Cancel stops m's running protocol without producing a profile.
func (e *Engine) Cancel(m modality.Modality) {
	e.mu.Lock()
	s, ok := e.sessions[m]
	if !ok {
		e.mu.Unlock()
		return
	}
	s.token.Cancel()
	s.phase = PhaseCancelled
	delete(e.sessions, m)
	if e.envelope != nil {
		e.envelope.Relax(m, false)
	}
	presenter := e.presenter
	e.mu.Unlock()

	if presenter != nil && m == modality.Gaze {
		presenter.HideTarget(m)
	}
	e.logger.Info("calibration cancelled", "modality", m)
}

// Profile returns m's live profile.
func (e *Engine) Profile(m modality.Modality) (Profile, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.profiles[m]
	if !ok {
		return Profile{Modality: m}, false
	}
	return *p, true
}

// Profiles returns every stored profile.
func (e *Engine) Profiles() []Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Profile, 0, len(e.profiles))
	for _, m := range modality.All() {
		if p, ok := e.profiles[m]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// Restore installs a previously saved profile.
func (e *Engine) Restore(p Profile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	stored := p
	e.profiles[p.Modality] = &stored
}

// Invalidate clears m's calibrated flag, keeping its last accuracy as a hint,
// and signals that recalibration is needed.
func (e *Engine) Invalidate(m modality.Modality, reason string) {
	e.mu.Lock()
	p, ok := e.profiles[m]
	if !ok || !p.IsCalibrated {
		e.mu.Unlock()
		return
	}
	p.IsCalibrated = false
	last := p.Accuracy
	fn := e.onRecalibrate
	e.mu.Unlock()

	e.logger.Info("calibration invalidated", "modality", m, "reason", reason, "last_accuracy", last)
	e.announcer.Announce(capitalize(string(m))+" needs recalibration", announce.Polite)
	if fn != nil {
		fn(m, last)
	}
}

// SetViewport updates the gaze surface. A real size change invalidates gaze.
func (e *Engine) SetViewport(vp modality.Viewport) {
	e.mu.Lock()
	changed := e.config.Viewport != vp
	e.config = e.config.WithViewport(vp)
	e.mu.Unlock()

	if changed {
		e.Invalidate(modality.Gaze, "viewport changed")
	}
}

// Reset cancels running sessions and discards profiles. Used at session boundaries.
func (e *Engine) Reset() {
	for _, m := range modality.All() {
		e.Cancel(m)
	}
	e.mu.Lock()
	e.profiles = make(map[modality.Modality]*Profile)
	e.mu.Unlock()
}

func run(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
