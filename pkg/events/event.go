// Package events defines the normalized input vocabulary and the bus that
// distributes it.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-access/pkg/modality"
)

// Action is the kind of input event.
type Action string

const (
	ActionSelect  Action = "select"
	ActionMove    Action = "move"
	ActionCommand Action = "command"
	ActionCancel  Action = "cancel"
)

// Direction of a move event.
type Direction string

const (
	DirectionNone  Direction = ""
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// ParseDirection maps a word onto a direction.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return Direction(s), true
	}
	return DirectionNone, false
}

// TargetRef is an opaque presentation-layer target.
type TargetRef struct {
	ID          string `json:"id"`
	Interactive bool   `json:"interactive"`
}

// Eligible reports whether the target can be activated.
func (t *TargetRef) Eligible() bool {
	return t != nil && t.Interactive
}

// InputEvent is the unit of exchange between the core and its consumers.
// Treat it as immutable once published.
type InputEvent struct {
	ID           string            `json:"id"`
	Action       Action            `json:"action"`
	Direction    Direction         `json:"direction,omitempty"`
	Intensity    float64           `json:"intensity,omitempty"`
	Command      string            `json:"command,omitempty"`
	Modality     modality.Modality `json:"modality"`
	Accuracy     float64           `json:"accuracy"`
	Confidence   float64           `json:"confidence"`
	ResponseTime time.Duration     `json:"response_time"`
	Timestamp    time.Time         `json:"timestamp"`
	Target       *TargetRef        `json:"target,omitempty"`
	Context      string            `json:"context,omitempty"`
}

// New returns an event with a fresh ID.
func New(action Action, m modality.Modality, at time.Time) InputEvent {
	return InputEvent{
		ID:        uuid.New().String(),
		Action:    action,
		Modality:  m,
		Timestamp: at,
	}
}

// IsError reports whether the event counts against a modality's success rate.
// Cancels and low-accuracy events are errors.
func (e InputEvent) IsError() bool {
	return e.Action == ActionCancel || e.Accuracy < 0.5
}
