package pipeline

import (
	"github.com/teslashibe/go-access/pkg/acquisition"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/settings"
	"github.com/teslashibe/go-access/pkg/signal"
)

// gazeDriver points with the conditioned gaze position and activates by dwell.
type gazeDriver struct {
	dwell *acquisition.Dwell
}

func newGazeDriver(e env, s settings.Modality) *gazeDriver {
	d := acquisition.NewDwell(e.modality, dwellConfig(s), e.sched, e.surface, e.gate, e.emit)
	d.SetPresenter(e.presenter)
	return &gazeDriver{dwell: d}
}

func (g *gazeDriver) start() {}

func (g *gazeDriver) stop() { g.dwell.Stop() }

func (g *gazeDriver) sample(sig signal.Conditioned) { g.dwell.Update(sig) }

func (g *gazeDriver) stimulus(s modality.Stimulus) {
	if s.Kind == modality.Cancel {
		g.dwell.Stop()
	}
}

func (g *gazeDriver) targetsChanged() { g.dwell.TargetsChanged() }

func (g *gazeDriver) configure(s settings.Modality) { g.dwell.Configure(dwellConfig(s)) }

func (g *gazeDriver) state() string { return g.dwell.State().String() }
