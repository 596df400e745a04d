// Package protocol defines the WebSocket message types exchanged between
// sensor adapters, dashboards and the access core.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-access/pkg/announce"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Adapter → Core messages
	TypeSample     MessageType = "sample"     // Raw continuous reading
	TypeStimulus   MessageType = "stimulus"   // Discrete input
	TypePermission MessageType = "permission" // Sensor permission result
	TypeTargets    MessageType = "targets"    // Presentation layout refresh
	TypeViewport   MessageType = "viewport"   // Presentation surface size

	// Core → Adapter / dashboard messages
	TypeAnnounce    MessageType = "announce"    // Screen-reader feedback
	TypeEvent       MessageType = "event"       // Published input event
	TypeHighlight   MessageType = "highlight"   // Acquisition highlight or dwell progress
	TypeCalibration MessageType = "calibration" // Calibration target shown or hidden
	TypeActivate    MessageType = "activate"    // Platform action for a selected target

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Adapter → Core Message Types
// =============================================================================

// SampleData carries one raw reading. Time is Unix milliseconds; zero means
// "now" on arrival.
type SampleData struct {
	Modality   modality.Modality `json:"modality"`
	Values     []float64         `json:"values"`
	Time       int64             `json:"time,omitempty"`
	Confidence float64           `json:"confidence,omitempty"`
}

// Sample converts the payload, stamping now when no time was sent.
func (s SampleData) Sample(now time.Time) modality.Sample {
	at := now
	if s.Time > 0 {
		at = time.UnixMilli(s.Time)
	}
	return modality.Sample{
		Modality:   s.Modality,
		Values:     s.Values,
		Time:       at,
		Confidence: s.Confidence,
	}
}

// StimulusData carries one discrete input.
type StimulusData struct {
	Modality   modality.Modality     `json:"modality"`
	Kind       modality.StimulusKind `json:"kind"`
	Key        string                `json:"key,omitempty"`
	Text       string                `json:"text,omitempty"`
	Confidence float64               `json:"confidence,omitempty"`
	Time       int64                 `json:"time,omitempty"`
}

// Stimulus converts the payload, stamping now when no time was sent.
func (s StimulusData) Stimulus(now time.Time) modality.Stimulus {
	at := now
	if s.Time > 0 {
		at = time.UnixMilli(s.Time)
	}
	return modality.Stimulus{
		Modality:   s.Modality,
		Kind:       s.Kind,
		Key:        s.Key,
		Text:       s.Text,
		Confidence: s.Confidence,
		Time:       at,
	}
}

// PermissionData reports whether the user granted access to a sensor.
type PermissionData struct {
	Modality modality.Modality `json:"modality"`
	Granted  bool              `json:"granted"`
	Reason   string            `json:"reason,omitempty"`
}

// Region is one target's on-screen bounds in viewport pixels.
type Region struct {
	ID          string  `json:"id"`
	Interactive bool    `json:"interactive"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
}

// Contains reports whether p lies inside the region.
func (r Region) Contains(p modality.Point) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.Width && p.Y <= r.Y+r.Height
}

// TargetsData is the presentation layer's current layout, in reading order.
// Later regions are drawn on top of earlier ones.
type TargetsData struct {
	Regions []Region `json:"regions"`
}

// ViewportData reports the presentation surface size.
type ViewportData struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// =============================================================================
// Core → Adapter Message Types
// =============================================================================

// AnnounceData is one screen-reader announcement.
type AnnounceData struct {
	Message  string            `json:"message"`
	Priority announce.Priority `json:"priority"`
}

// HighlightData describes what an acquisition machine is pointing at.
// A nil target clears the highlight.
type HighlightData struct {
	Modality modality.Modality  `json:"modality"`
	Target   *events.TargetRef  `json:"target,omitempty"`
	Group    []events.TargetRef `json:"group,omitempty"`
	Progress float64            `json:"progress,omitempty"` // dwell fraction in [0,1]
}

// ActivateData asks the presentation layer to perform a target's action.
type ActivateData struct {
	Target   events.TargetRef  `json:"target"`
	Modality modality.Modality `json:"modality,omitempty"`
}

// CalibrationData shows or hides a calibration target.
type CalibrationData struct {
	Modality modality.Modality `json:"modality"`
	Visible  bool              `json:"visible"`
	Index    int               `json:"index"`
	Total    int               `json:"total"`
	Target   *modality.Point   `json:"target,omitempty"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
