package pipeline

import (
	"strings"

	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/settings"
	"github.com/teslashibe/go-access/pkg/signal"
)

// vocabulary maps recognised phrases onto actions.
var vocabulary = map[string]events.Action{
	"select": events.ActionSelect,
	"choose": events.ActionSelect,
	"click":  events.ActionSelect,
	"up":     events.ActionMove,
	"down":   events.ActionMove,
	"left":   events.ActionMove,
	"right":  events.ActionMove,
	"cancel": events.ActionCancel,
	"stop":   events.ActionCancel,
	"back":   events.ActionCancel,
}

// voiceDriver maps recognised phrases onto events. Speech has no pointer, so
// a spoken select carries no target.
type voiceDriver struct {
	env
}

func newVoiceDriver(e env) *voiceDriver {
	return &voiceDriver{env: e}
}

func (d *voiceDriver) start() {}

func (d *voiceDriver) stop() {}

func (d *voiceDriver) sample(signal.Conditioned) {}

func (d *voiceDriver) stimulus(s modality.Stimulus) {
	if s.Kind != modality.Phrase && s.Kind != modality.Cancel {
		return
	}
	phrase := strings.ToLower(strings.TrimSpace(s.Text))
	if s.Kind == modality.Cancel {
		phrase = "cancel"
	}
	if phrase == "" {
		return
	}

	conf := s.Confidence
	if conf <= 0 || conf > 1 {
		conf = 1
	}

	action, ok := vocabulary[phrase]
	if !ok {
		action = events.ActionCommand
	}
	e := events.New(action, d.modality, d.sched.Now())
	e.Confidence = conf
	e.Accuracy = conf
	switch action {
	case events.ActionMove:
		e.Direction, _ = events.ParseDirection(phrase)
		e.Intensity = 1
	case events.ActionCommand:
		e.Command = phrase
	}
	d.emit(e)
}

func (d *voiceDriver) targetsChanged() {}

func (d *voiceDriver) configure(settings.Modality) {}

func (d *voiceDriver) state() string { return "listening" }
