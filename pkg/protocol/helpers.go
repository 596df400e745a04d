package protocol

import (
	"github.com/teslashibe/go-access/pkg/announce"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewSampleMessage creates a raw sample message
func NewSampleMessage(s modality.Sample) (*Message, error) {
	data := SampleData{
		Modality:   s.Modality,
		Values:     s.Values,
		Confidence: s.Confidence,
	}
	if !s.Time.IsZero() {
		data.Time = s.Time.UnixMilli()
	}
	return NewMessage(TypeSample, data)
}

// NewStimulusMessage creates a stimulus message
func NewStimulusMessage(s modality.Stimulus) (*Message, error) {
	data := StimulusData{
		Modality:   s.Modality,
		Kind:       s.Kind,
		Key:        s.Key,
		Text:       s.Text,
		Confidence: s.Confidence,
	}
	if !s.Time.IsZero() {
		data.Time = s.Time.UnixMilli()
	}
	return NewMessage(TypeStimulus, data)
}

// NewPermissionMessage creates a permission result message
func NewPermissionMessage(m modality.Modality, granted bool, reason string) (*Message, error) {
	return NewMessage(TypePermission, PermissionData{Modality: m, Granted: granted, Reason: reason})
}

// NewTargetsMessage creates a layout message
func NewTargetsMessage(regions []Region) (*Message, error) {
	return NewMessage(TypeTargets, TargetsData{Regions: regions})
}

// NewViewportMessage creates a viewport message
func NewViewportMessage(vp modality.Viewport) (*Message, error) {
	return NewMessage(TypeViewport, ViewportData{Width: vp.Width, Height: vp.Height})
}

// NewActivateMessage creates an activation message
func NewActivateMessage(target events.TargetRef) (*Message, error) {
	return NewMessage(TypeActivate, ActivateData{Target: target})
}

// NewAnnounceMessage creates an announcement message
func NewAnnounceMessage(message string, priority announce.Priority) (*Message, error) {
	return NewMessage(TypeAnnounce, AnnounceData{Message: message, Priority: priority})
}

// NewEventMessage creates an input event message
func NewEventMessage(e events.InputEvent) (*Message, error) {
	return NewMessage(TypeEvent, e)
}

// NewHighlightMessage creates a highlight message
func NewHighlightMessage(h HighlightData) (*Message, error) {
	return NewMessage(TypeHighlight, h)
}

// NewCalibrationMessage creates a calibration target message
func NewCalibrationMessage(c CalibrationData) (*Message, error) {
	return NewMessage(TypeCalibration, c)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetSampleData extracts sample data from a message
func (m *Message) GetSampleData() (*SampleData, error) {
	var data SampleData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStimulusData extracts stimulus data from a message
func (m *Message) GetStimulusData() (*StimulusData, error) {
	var data StimulusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPermissionData extracts permission data from a message
func (m *Message) GetPermissionData() (*PermissionData, error) {
	var data PermissionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTargetsData extracts layout data from a message
func (m *Message) GetTargetsData() (*TargetsData, error) {
	var data TargetsData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetViewportData extracts viewport data from a message
func (m *Message) GetViewportData() (*ViewportData, error) {
	var data ViewportData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetActivateData extracts activation data from a message
func (m *Message) GetActivateData() (*ActivateData, error) {
	var data ActivateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAnnounceData extracts announcement data from a message
func (m *Message) GetAnnounceData() (*AnnounceData, error) {
	var data AnnounceData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEvent extracts an input event from a message
func (m *Message) GetEvent() (*events.InputEvent, error) {
	var data events.InputEvent
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetHighlightData extracts highlight data from a message
func (m *Message) GetHighlightData() (*HighlightData, error) {
	var data HighlightData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCalibrationData extracts calibration data from a message
func (m *Message) GetCalibrationData() (*CalibrationData, error) {
	var data CalibrationData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
