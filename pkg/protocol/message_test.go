package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/teslashibe/go-access/pkg/announce"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    any
		wantErr bool
	}{
		{
			name:    "sample message",
			msgType: TypeSample,
			data:    SampleData{Modality: modality.Gaze, Values: []float64{10, 20}},
			wantErr: false,
		},
		{
			name:    "permission message",
			msgType: TypePermission,
			data:    PermissionData{Modality: modality.Breath, Granted: true},
			wantErr: false,
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
			wantErr: false,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeEvent,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestParseMessage_Invalid(t *testing.T) {
	for _, raw := range []string{`not json`, `{"data":{}}`} {
		if _, err := ParseMessage([]byte(raw)); err == nil {
			t.Errorf("ParseMessage(%q) should fail", raw)
		}
	}
}

func TestSampleMessage(t *testing.T) {
	at := time.UnixMilli(1767225600123)
	msg, err := NewSampleMessage(modality.Sample{
		Modality:   modality.Gaze,
		Values:     []float64{640, 360},
		Time:       at,
		Confidence: 0.8,
	})
	if err != nil {
		t.Fatalf("NewSampleMessage() error = %v", err)
	}

	raw, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	parsed, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeSample {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeSample)
	}

	data, err := parsed.GetSampleData()
	if err != nil {
		t.Fatalf("GetSampleData() error = %v", err)
	}
	s := data.Sample(time.Now())
	if !s.Time.Equal(at) {
		t.Errorf("Time = %v, want %v", s.Time, at)
	}
	if s.Modality != modality.Gaze || len(s.Values) != 2 || s.Values[0] != 640 {
		t.Errorf("Sample = %+v", s)
	}
	if s.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want 0.8", s.Confidence)
	}
}

func TestSampleData_StampsArrival(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := SampleData{Modality: modality.Breath, Values: []float64{0.3}}.Sample(now)
	if !s.Time.Equal(now) {
		t.Errorf("Time = %v, want %v", s.Time, now)
	}
}

func TestStimulusMessage(t *testing.T) {
	msg, err := NewStimulusMessage(modality.Stimulus{
		Modality: modality.Keyboard,
		Kind:     modality.Key,
		Key:      "Enter",
	})
	if err != nil {
		t.Fatalf("NewStimulusMessage() error = %v", err)
	}

	data, err := msg.GetStimulusData()
	if err != nil {
		t.Fatalf("GetStimulusData() error = %v", err)
	}
	if data.Time != 0 {
		t.Errorf("Time = %v, want 0 for an unstamped stimulus", data.Time)
	}
	st := data.Stimulus(time.Now())
	if st.Kind != modality.Key || st.Key != "Enter" {
		t.Errorf("Stimulus = %+v", st)
	}
}

func TestPermissionMessage(t *testing.T) {
	msg, err := NewPermissionMessage(modality.Gaze, false, "camera blocked")
	if err != nil {
		t.Fatalf("NewPermissionMessage() error = %v", err)
	}

	data, err := msg.GetPermissionData()
	if err != nil {
		t.Fatalf("GetPermissionData() error = %v", err)
	}
	if data.Granted {
		t.Error("Granted should be false")
	}
	if data.Reason != "camera blocked" {
		t.Errorf("Reason = %v, want camera blocked", data.Reason)
	}
}

func TestEventMessage(t *testing.T) {
	e := events.New(events.ActionSelect, modality.Switch, time.Now())
	e.Target = &events.TargetRef{ID: "play", Interactive: true}
	e.ResponseTime = 1200 * time.Millisecond

	msg, err := NewEventMessage(e)
	if err != nil {
		t.Fatalf("NewEventMessage() error = %v", err)
	}

	got, err := msg.GetEvent()
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.ID != e.ID {
		t.Errorf("ID = %v, want %v", got.ID, e.ID)
	}
	if got.Target == nil || got.Target.ID != "play" {
		t.Errorf("Target = %+v, want play", got.Target)
	}
	if got.ResponseTime != e.ResponseTime {
		t.Errorf("ResponseTime = %v, want %v", got.ResponseTime, e.ResponseTime)
	}
}

func TestAnnounceMessage(t *testing.T) {
	msg, err := NewAnnounceMessage("Scanning 3 items", announce.Polite)
	if err != nil {
		t.Fatalf("NewAnnounceMessage() error = %v", err)
	}

	data, err := msg.GetAnnounceData()
	if err != nil {
		t.Fatalf("GetAnnounceData() error = %v", err)
	}
	if data.Message != "Scanning 3 items" || data.Priority != announce.Polite {
		t.Errorf("Announce = %+v", data)
	}
}

func TestHighlightMessage_ClearOmitsTarget(t *testing.T) {
	msg, err := NewHighlightMessage(HighlightData{Modality: modality.Gaze})
	if err != nil {
		t.Fatalf("NewHighlightMessage() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(msg.Data, &raw); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if _, ok := raw["target"]; ok {
		t.Error("cleared highlight should omit target")
	}
}

func TestCalibrationMessage(t *testing.T) {
	target := modality.Point{X: 192, Y: 108}
	msg, err := NewCalibrationMessage(CalibrationData{
		Modality: modality.Gaze,
		Visible:  true,
		Index:    0,
		Total:    9,
		Target:   &target,
	})
	if err != nil {
		t.Fatalf("NewCalibrationMessage() error = %v", err)
	}

	data, err := msg.GetCalibrationData()
	if err != nil {
		t.Fatalf("GetCalibrationData() error = %v", err)
	}
	if !data.Visible || data.Total != 9 || data.Target == nil || data.Target.X != 192 {
		t.Errorf("Calibration = %+v", data)
	}
}

func TestPingPongMessage(t *testing.T) {
	pingMsg, err := NewPingMessage("test-123")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}

	if pingMsg.Type != TypePing {
		t.Errorf("Type = %v, want %v", pingMsg.Type, TypePing)
	}

	pingData, err := pingMsg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}

	if pingData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pingData.ID)
	}

	now := time.Now().UnixMilli()
	pongMsg, err := NewPongMessage("test-123", pingMsg.Timestamp, now)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}

	pongData, err := pongMsg.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}

	if pongData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pongData.ID)
	}
	if pongData.LatencyMs < 0 {
		t.Errorf("LatencyMs = %v, should be >= 0", pongData.LatencyMs)
	}
}

func TestRegionContains(t *testing.T) {
	r := Region{ID: "ok", X: 100, Y: 100, Width: 50, Height: 20}
	tests := []struct {
		p    modality.Point
		want bool
	}{
		{modality.Point{X: 100, Y: 100}, true},
		{modality.Point{X: 150, Y: 120}, true},
		{modality.Point{X: 151, Y: 110}, false},
		{modality.Point{X: 120, Y: 99}, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.p); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestTargetsMessage(t *testing.T) {
	msg, err := NewTargetsMessage([]Region{{ID: "a", Interactive: true, Width: 10, Height: 10}})
	if err != nil {
		t.Fatalf("NewTargetsMessage() error = %v", err)
	}
	data, err := msg.GetTargetsData()
	if err != nil {
		t.Fatalf("GetTargetsData() error = %v", err)
	}
	if len(data.Regions) != 1 || data.Regions[0].ID != "a" {
		t.Errorf("Regions = %+v", data.Regions)
	}
}
