package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/metrics"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/settings"
)

// Pipeline owns one modality's conditioning window, calibration session and
// acquisition machine. It implements modality.Adapter.
type Pipeline struct {
	mgr      *Manager
	modality modality.Modality
	logger   *slog.Logger

	mu       sync.Mutex
	driver   driver
	settings settings.Modality
	active   bool
	initErr  error

	// emitMu keeps this modality's events in generation order.
	emitMu sync.Mutex
}

var _ modality.Adapter = (*Pipeline)(nil)

func newPipeline(mgr *Manager, m modality.Modality) *Pipeline {
	return &Pipeline{
		mgr:      mgr,
		modality: m,
		logger:   log.Component("pipeline").With("modality", string(m)),
		settings: mgr.config.Defaults,
	}
}

// Modality returns the channel this pipeline drives.
func (p *Pipeline) Modality() modality.Modality {
	return p.modality
}

// IsAvailable reports whether the last probe succeeded.
func (p *Pipeline) IsAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initErr == nil
}

// Init probes the sensor.
func (p *Pipeline) Init(ctx context.Context) error {
	var err error
	if p.mgr.probe != nil {
		if perr := p.mgr.probe.Probe(ctx, p.modality); perr != nil {
			err = modality.Unavailable(p.modality, perr)
		}
	}
	p.mu.Lock()
	p.initErr = err
	p.mu.Unlock()
	return err
}

// Activate starts the modality's driver with its stored settings.
func (p *Pipeline) Activate() error {
	p.mu.Lock()
	if p.initErr != nil {
		err := p.initErr
		p.mu.Unlock()
		return err
	}
	if p.active {
		p.mu.Unlock()
		return nil
	}
	s := p.mgr.loadSettings(p.modality, p.settings)
	p.settings = s
	p.driver = newDriver(p.mgr.env(p.modality, p.emit), s)
	p.active = true
	d := p.driver
	p.mu.Unlock()

	p.mgr.conditioner.SetWindow(p.modality, s.Window)
	d.start()
	metrics.Active(p.modality, true)
	p.logger.Info("modality activated")
	return nil
}

// Deactivate stops the driver, cancels its timers and any running
// calibration, and clears the smoothing window.
func (p *Pipeline) Deactivate() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	d := p.driver
	p.driver = nil
	p.active = false
	p.mu.Unlock()

	d.stop()
	p.mgr.calibration.Cancel(p.modality)
	p.mgr.conditioner.Reset(p.modality)
	metrics.Active(p.modality, false)
	p.logger.Info("modality deactivated")
}

// Active reports whether the modality is active.
func (p *Pipeline) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *Pipeline) current() driver {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.driver
}

// PushSample conditions a raw reading and routes it to calibration while a
// protocol runs, or to the acquisition machine otherwise. Invalid samples
// are dropped.
func (p *Pipeline) PushSample(s modality.Sample) {
	d := p.current()
	if d == nil {
		return
	}
	if s.Modality == "" {
		s.Modality = p.modality
	}
	sig, err := p.mgr.conditioner.Condition(p.modality, s)
	if err != nil {
		return
	}
	if p.mgr.calibration.Running(p.modality) {
		p.mgr.calibration.Feed(sig)
		return
	}
	d.sample(sig)
}

// PushStimulus routes a discrete input to the driver.
func (p *Pipeline) PushStimulus(s modality.Stimulus) {
	d := p.current()
	if d == nil {
		return
	}
	d.stimulus(s)
}

func (p *Pipeline) targetsChanged() {
	if d := p.current(); d != nil {
		d.targetsChanged()
	}
}

func (p *Pipeline) configure(s settings.Modality) {
	p.mu.Lock()
	p.settings = s
	d := p.driver
	p.mu.Unlock()
	if d != nil {
		p.mgr.conditioner.SetWindow(p.modality, s.Window)
		d.configure(s)
	}
}

func (p *Pipeline) state() string {
	if d := p.current(); d != nil {
		return d.state()
	}
	return "inactive"
}

func (p *Pipeline) emit(e events.InputEvent) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()
	p.mgr.publish(e)
}
