package pipeline

import (
	"github.com/teslashibe/go-access/pkg/acquisition"
	"github.com/teslashibe/go-access/pkg/announce"
	"github.com/teslashibe/go-access/pkg/calibration"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/schedule"
	"github.com/teslashibe/go-access/pkg/settings"
	"github.com/teslashibe/go-access/pkg/signal"
)

// driver turns one modality's conditioned signals and stimuli into events.
type driver interface {
	start()
	stop()
	sample(sig signal.Conditioned)
	stimulus(s modality.Stimulus)
	targetsChanged()
	configure(s settings.Modality)
	state() string
}

// env is what a driver needs from its pipeline.
type env struct {
	modality  modality.Modality
	sched     schedule.Scheduler
	surface   acquisition.Surface
	gate      acquisition.Gate
	presenter acquisition.Presenter
	announcer announce.Announcer
	emit      acquisition.Sink
}

// profile returns the modality's calibration profile, if any.
func (e env) profile() (calibration.Profile, bool) {
	if e.gate == nil {
		return calibration.Profile{}, false
	}
	return e.gate.Profile(e.modality)
}

func newDriver(e env, s settings.Modality) driver {
	switch e.modality {
	case modality.Gaze:
		return newGazeDriver(e, s)
	case modality.Switch, modality.Keyboard:
		return newScanDriver(e, s)
	case modality.Breath:
		return newBreathDriver(e, s)
	case modality.Orientation:
		return newOrientationDriver(e, s)
	case modality.Voice:
		return newVoiceDriver(e)
	}
	return nil
}

func dwellConfig(s settings.Modality) acquisition.DwellConfig {
	return acquisition.DefaultDwellConfig().WithDwellTime(s.Dwell)
}

func scanConfig(s settings.Modality) acquisition.ScanConfig {
	return acquisition.DefaultScanConfig().
		WithInterval(s.ScanInterval).
		WithReverse(s.ScanReverse).
		WithAutoRescan(s.AutoRescan, s.RescanDelay)
}
