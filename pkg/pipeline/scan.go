package pipeline

import (
	"strings"

	"github.com/teslashibe/go-access/pkg/acquisition"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/settings"
	"github.com/teslashibe/go-access/pkg/signal"
)

// scanDriver drives single-switch scanning. The keyboard variant also maps
// arrow keys onto move events.
type scanDriver struct {
	env
	scan *acquisition.Scan
}

func newScanDriver(e env, s settings.Modality) *scanDriver {
	sc := acquisition.NewScan(e.modality, scanConfig(s), e.sched, e.surface, e.gate, e.announcer, e.emit)
	sc.SetPresenter(e.presenter)
	return &scanDriver{env: e, scan: sc}
}

func (d *scanDriver) start() {}

func (d *scanDriver) stop() { d.scan.Stop() }

func (d *scanDriver) sample(signal.Conditioned) {}

func (d *scanDriver) stimulus(s modality.Stimulus) {
	switch s.Kind {
	case modality.Press:
		d.scan.Press()
	case modality.LongPress:
		d.scan.Reverse()
	case modality.Cancel:
		d.cancel()
	case modality.Key:
		d.key(s.Key)
	}
}

func (d *scanDriver) cancel() {
	d.scan.Cancel()
	e := events.New(events.ActionCancel, d.modality, d.sched.Now())
	e.Accuracy = 1
	e.Confidence = 1
	d.emit(e)
}

var arrowKeys = map[string]events.Direction{
	"arrowup":    events.DirectionUp,
	"arrowdown":  events.DirectionDown,
	"arrowleft":  events.DirectionLeft,
	"arrowright": events.DirectionRight,
	"up":         events.DirectionUp,
	"down":       events.DirectionDown,
	"left":       events.DirectionLeft,
	"right":      events.DirectionRight,
}

func (d *scanDriver) key(name string) {
	k := strings.ToLower(name)
	switch k {
	case "enter", " ", "space", "spacebar":
		d.scan.Press()
		return
	case "escape", "esc":
		d.cancel()
		return
	}

	e := events.New(events.ActionCommand, d.modality, d.sched.Now())
	e.Accuracy = 1
	e.Confidence = 1
	if dir, ok := arrowKeys[k]; ok {
		e.Action = events.ActionMove
		e.Direction = dir
		e.Intensity = 1
	} else {
		e.Command = name
	}
	d.emit(e)
}

func (d *scanDriver) targetsChanged() { d.scan.TargetsChanged() }

func (d *scanDriver) configure(s settings.Modality) { d.scan.Configure(scanConfig(s)) }

func (d *scanDriver) state() string { return d.scan.State().String() }
