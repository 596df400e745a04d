// Package pipeline wires the input core together: one Pipeline per modality
// feeding a shared event bus, with calibration, performance tracking and
// recommendations managed for the session.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/acquisition"
	"github.com/teslashibe/go-access/pkg/announce"
	"github.com/teslashibe/go-access/pkg/calibration"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/metrics"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/performance"
	"github.com/teslashibe/go-access/pkg/recommend"
	"github.com/teslashibe/go-access/pkg/schedule"
	"github.com/teslashibe/go-access/pkg/settings"
	"github.com/teslashibe/go-access/pkg/signal"
)

// Activator performs the platform action for a selected target.
type Activator interface {
	Activate(target events.TargetRef)
}

// ActivatorFunc adapts a function to Activator.
type ActivatorFunc func(target events.TargetRef)

// Activate calls f.
func (f ActivatorFunc) Activate(target events.TargetRef) { f(target) }

// Options are the collaborators a Manager talks to. Nil fields get inert
// defaults.
type Options struct {
	Scheduler            schedule.Scheduler
	Surface              acquisition.Surface
	Activator            Activator
	Announcer            announce.Announcer
	Presenter            acquisition.Presenter
	CalibrationPresenter calibration.Presenter
	Probe                SensorProbe
	Store                settings.Store
}

// Manager owns every modality pipeline for one user session.
type Manager struct {
	config      Config
	sched       schedule.Scheduler
	conditioner *signal.Conditioner
	calibration *calibration.Engine
	bus         *events.Bus
	tracker     *performance.Tracker
	recommender *recommend.Engine
	store       settings.Store
	surface     acquisition.Surface
	activator   Activator
	announcer   announce.Announcer
	presenter   acquisition.Presenter
	probe       SensorProbe
	logger      *slog.Logger

	pipelines map[modality.Modality]*Pipeline

	mu            sync.Mutex
	scene         string
	fatigue       float64
	lastEmitter   modality.Modality
	lastActivated modality.Modality
	sinceAnalysis int
	latest        []recommend.Recommendation
	listeners     []func([]recommend.Recommendation)
}

// NewManager creates a manager with every modality inactive.
func NewManager(config Config, opts Options) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if opts.Scheduler == nil {
		opts.Scheduler = schedule.NewReal()
	}
	if opts.Surface == nil {
		opts.Surface = emptySurface{}
	}
	if opts.Announcer == nil {
		opts.Announcer = announce.Nop{}
	}

	m := &Manager{
		config:      config,
		sched:       opts.Scheduler,
		conditioner: signal.NewConditioner(config.Signal),
		bus:         events.NewBus(),
		tracker:     performance.NewTracker(config.HistorySize),
		recommender: recommend.NewEngine(config.Recommend, recommend.NewSession()),
		store:       opts.Store,
		surface:     opts.Surface,
		activator:   opts.Activator,
		announcer:   opts.Announcer,
		presenter:   opts.Presenter,
		probe:       opts.Probe,
		logger:      log.Component("manager"),
		pipelines:   make(map[modality.Modality]*Pipeline),
		scene:       config.Scene,
	}
	m.calibration = calibration.NewEngine(config.Calibration, m.sched, m.conditioner, m.announcer)
	if opts.CalibrationPresenter != nil {
		m.calibration.SetPresenter(opts.CalibrationPresenter)
	}
	m.calibration.OnRecalibrationNeeded(func(mod modality.Modality, last float64) {
		m.logger.Info("recalibration needed", "modality", mod, "last_accuracy", last)
	})

	for _, mod := range modality.All() {
		m.pipelines[mod] = newPipeline(m, mod)
	}

	// the tracker must see an event before analysis runs on it
	m.bus.Subscribe("performance", m.tracker.Handler())
	m.bus.Subscribe("analysis", events.HandlerFunc(m.onEvent))
	return m, nil
}

// Bus returns the input event bus.
func (m *Manager) Bus() *events.Bus { return m.bus }

// Tracker returns the performance tracker.
func (m *Manager) Tracker() *performance.Tracker { return m.tracker }

// Calibration returns the calibration engine.
func (m *Manager) Calibration() *calibration.Engine { return m.calibration }

// Conditioner returns the signal conditioner.
func (m *Manager) Conditioner() *signal.Conditioner { return m.conditioner }

// Profiles returns every calibration profile.
func (m *Manager) Profiles() []calibration.Profile { return m.calibration.Profiles() }

// Performance returns the rolling per-modality, per-context records.
func (m *Manager) Performance() []performance.Record { return m.tracker.Records() }

// Adapter returns the pipeline for mod.
func (m *Manager) Adapter(mod modality.Modality) (modality.Adapter, error) {
	p, err := m.pipeline(mod)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Manager) pipeline(mod modality.Modality) (*Pipeline, error) {
	p, ok := m.pipelines[mod]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModality, mod)
	}
	return p, nil
}

func (m *Manager) env(mod modality.Modality, emit acquisition.Sink) env {
	return env{
		modality:  mod,
		sched:     m.sched,
		surface:   m.surface,
		gate:      m.calibration,
		presenter: m.presenter,
		announcer: m.announcer,
		emit:      emit,
	}
}

// loadSettings reads mod's settings from the store over fallback.
func (m *Manager) loadSettings(mod modality.Modality, fallback settings.Modality) settings.Modality {
	if m.store == nil {
		return fallback
	}
	s, err := settings.LoadModality(m.store, mod, fallback)
	if err != nil {
		m.logger.Warn("using fallback settings", "modality", mod, "error", err)
		return fallback
	}
	return s
}

// Activate probes mod's sensor and starts it. A failed probe is announced
// and leaves the modality inert until the next attempt.
func (m *Manager) Activate(ctx context.Context, mod modality.Modality) error {
	p, err := m.pipeline(mod)
	if err != nil {
		return err
	}
	if err := p.Init(ctx); err != nil {
		metrics.SensorUnavailable(mod)
		m.logger.Warn("sensor unavailable", "modality", mod, "error", err)
		m.announcer.Announce(capitalize(string(mod))+" input is unavailable", announce.Assertive)
		return err
	}
	if err := p.Activate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.lastActivated = mod
	m.mu.Unlock()
	return nil
}

// Deactivate stops mod and cancels all of its pending work.
func (m *Manager) Deactivate(mod modality.Modality) error {
	p, err := m.pipeline(mod)
	if err != nil {
		return err
	}
	p.Deactivate()
	return nil
}

// Close deactivates every modality.
func (m *Manager) Close() {
	for _, mod := range modality.All() {
		m.pipelines[mod].Deactivate()
	}
}

// PushRawSample feeds a raw reading for mod.
func (m *Manager) PushRawSample(mod modality.Modality, s modality.Sample) error {
	p, err := m.pipeline(mod)
	if err != nil {
		return err
	}
	s.Modality = mod
	p.PushSample(s)
	return nil
}

// PushStimulus feeds a discrete input.
func (m *Manager) PushStimulus(s modality.Stimulus) error {
	p, err := m.pipeline(s.Modality)
	if err != nil {
		return err
	}
	p.PushStimulus(s)
	return nil
}

// StartCalibration begins mod's calibration protocol. The modality must be active.
func (m *Manager) StartCalibration(mod modality.Modality) (calibration.Progress, error) {
	p, err := m.pipeline(mod)
	if err != nil {
		return calibration.Progress{}, err
	}
	if !p.Active() {
		return calibration.Progress{}, fmt.Errorf("%w: %s", ErrNotActive, mod)
	}
	if d := p.current(); d != nil {
		d.stop()
	}
	// start from a clean window so pre-calibration readings do not leak in
	m.conditioner.Reset(mod)
	return m.calibration.Start(mod)
}

// CompleteCalibration ends mod's protocol now and returns the profile.
func (m *Manager) CompleteCalibration(mod modality.Modality) (calibration.Profile, error) {
	if _, err := m.pipeline(mod); err != nil {
		return calibration.Profile{}, err
	}
	return m.calibration.Complete(mod)
}

// CancelCalibration abandons mod's protocol.
func (m *Manager) CancelCalibration(mod modality.Modality) {
	m.calibration.Cancel(mod)
}

// SetViewport resizes the gaze surface, invalidating gaze calibration if
// the size changed.
func (m *Manager) SetViewport(vp modality.Viewport) {
	m.conditioner.SetSurface(vp)
	m.calibration.SetViewport(vp)
}

// TargetsChanged tells every active machine the eligible set was refreshed.
func (m *Manager) TargetsChanged() {
	for _, mod := range modality.All() {
		m.pipelines[mod].targetsChanged()
	}
}

// SetFatigue records the externally estimated fatigue score, clamped to [0,1].
func (m *Manager) SetFatigue(score float64) {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fatigue = score
}

// SetScene changes the scene used in context keys.
func (m *Manager) SetScene(scene string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scene = scene
}

// Settings returns mod's current settings.
func (m *Manager) Settings(mod modality.Modality) (settings.Modality, error) {
	p, err := m.pipeline(mod)
	if err != nil {
		return settings.Modality{}, err
	}
	p.mu.Lock()
	current, active := p.settings, p.active
	p.mu.Unlock()
	if active {
		return current, nil
	}
	return m.loadSettings(mod, current), nil
}

// Configure validates, stores and applies mod's settings.
func (m *Manager) Configure(mod modality.Modality, s settings.Modality) error {
	p, err := m.pipeline(mod)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if m.store != nil {
		if err := settings.SaveModality(m.store, mod, s); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}
	p.configure(s)
	return nil
}

// OnRecommendations registers a callback for every delivered batch.
func (m *Manager) OnRecommendations(fn func([]recommend.Recommendation)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Analyze runs the recommendation engine over the current history and
// announces whatever it delivers.
func (m *Manager) Analyze() []recommend.Recommendation {
	now := m.sched.Now()
	m.mu.Lock()
	ctx := recommend.Context{
		Active:  m.activeLocked(),
		Fatigue: m.fatigue,
		Key:     performance.ContextKey(m.scene, now),
		Now:     now,
	}
	m.mu.Unlock()

	recs := m.recommender.Analyze(m.tracker.History(0), ctx)
	if len(recs) == 0 {
		return nil
	}

	m.mu.Lock()
	m.latest = recs
	listeners := append(([]func([]recommend.Recommendation))(nil), m.listeners...)
	m.mu.Unlock()

	for _, r := range recs {
		m.announcer.Announce(r.Message(), announce.Polite)
	}
	for _, fn := range listeners {
		fn(recs)
	}
	return recs
}

// Recommendations returns every recommendation delivered this session.
func (m *Manager) Recommendations() []recommend.Recommendation {
	return m.recommender.Session().History()
}

// ResetSession clears performance history, the recommendation cap,
// calibration profiles and smoothing windows. Active modalities stay active.
func (m *Manager) ResetSession() {
	m.tracker.Reset()
	m.recommender.Session().Reset()
	m.calibration.Reset()
	for _, mod := range modality.All() {
		m.conditioner.Reset(mod)
	}
	m.mu.Lock()
	m.fatigue = 0
	m.sinceAnalysis = 0
	m.latest = nil
	m.lastEmitter = ""
	m.mu.Unlock()
	m.logger.Info("session reset")
}

func (m *Manager) activeLocked() modality.Modality {
	if m.lastEmitter != "" {
		return m.lastEmitter
	}
	return m.lastActivated
}

// publish stamps the context key, delivers e, and performs the platform
// activation for targeted selects.
func (m *Manager) publish(e events.InputEvent) {
	m.mu.Lock()
	e.Context = performance.ContextKey(m.scene, e.Timestamp)
	m.lastEmitter = e.Modality
	m.mu.Unlock()

	m.bus.Publish(e)

	if e.Action == events.ActionSelect && e.Target.Eligible() && m.activator != nil {
		m.activator.Activate(*e.Target)
	}
}

func (m *Manager) onEvent(events.InputEvent) {
	m.mu.Lock()
	m.sinceAnalysis++
	due := m.config.AnalyzeEvery > 0 && m.sinceAnalysis >= m.config.AnalyzeEvery
	if due {
		m.sinceAnalysis = 0
	}
	m.mu.Unlock()
	if due {
		m.Analyze()
	}
}

// ModalityStatus describes one modality.
type ModalityStatus struct {
	Modality    modality.Modality `json:"modality"`
	Active      bool              `json:"active"`
	Available   bool              `json:"available"`
	Error       string            `json:"error,omitempty"`
	State       string            `json:"state"`
	Calibrated  bool              `json:"calibrated"`
	Accuracy    float64           `json:"accuracy"`
	Calibrating bool              `json:"calibrating"`
	Accepted    int               `json:"accepted_samples"`
	Rejected    int               `json:"rejected_samples"`
}

// Status describes the whole session.
type Status struct {
	Modalities      []ModalityStatus  `json:"modalities"`
	Active          modality.Modality `json:"active,omitempty"`
	Scene           string            `json:"scene"`
	Fatigue         float64           `json:"fatigue"`
	Events          int               `json:"events"`
	Recommendations int               `json:"recommendations"`
}

// Status returns a snapshot of every modality and the session.
func (m *Manager) Status() Status {
	var st Status
	for _, mod := range modality.All() {
		p := m.pipelines[mod]
		p.mu.Lock()
		ms := ModalityStatus{
			Modality:  mod,
			Active:    p.active,
			Available: p.initErr == nil,
		}
		if p.initErr != nil {
			ms.Error = p.initErr.Error()
		}
		p.mu.Unlock()

		ms.State = p.state()
		if prof, ok := m.calibration.Profile(mod); ok {
			ms.Calibrated = prof.IsCalibrated
			ms.Accuracy = prof.Accuracy
		}
		ms.Calibrating = m.calibration.Running(mod)
		ms.Accepted, ms.Rejected = m.conditioner.Stats(mod)
		st.Modalities = append(st.Modalities, ms)
	}

	m.mu.Lock()
	st.Active = m.activeLocked()
	st.Scene = m.scene
	st.Fatigue = m.fatigue
	m.mu.Unlock()

	st.Events = m.tracker.Total()
	st.Recommendations = m.recommender.Session().Delivered()
	return st
}

// IsUnavailable reports whether err is a sensor failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, modality.ErrSensorUnavailable)
}

type emptySurface struct{}

func (emptySurface) ResolveTargetAt(modality.Point) *events.TargetRef { return nil }
func (emptySurface) ListEligibleTargets() []events.TargetRef         { return nil }

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
