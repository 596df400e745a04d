package mqttsource

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-access/pkg/modality"
)

type message struct {
	topic   string
	payload []byte
}

func (m message) Duplicate() bool   { return false }
func (m message) Qos() byte         { return 0 }
func (m message) Retained() bool    { return false }
func (m message) Topic() string     { return m.topic }
func (m message) MessageID() uint16 { return 1 }
func (m message) Payload() []byte   { return m.payload }
func (m message) Ack()              {}

type perms struct {
	granted []bool
	reasons []string
}

func (p *perms) Set(m modality.Modality, granted bool, reason string) {
	p.granted = append(p.granted, granted)
	p.reasons = append(p.reasons, reason)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"no broker", func(c *Config) { c.Broker = "" }, true},
		{"no topic", func(c *Config) { c.Topic = "" }, true},
		{"bad qos", func(c *Config) { c.QoS = 3 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestPose_Sample(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := Pose{Roll: -4, Pitch: 12, Yaw: 90}.Sample(at)

	assert.Equal(t, modality.Orientation, s.Modality)
	assert.Equal(t, []float64{12, -4}, s.Values)
	assert.Equal(t, at, s.Time)
	assert.Equal(t, 1.0, s.Confidence)
}

func TestHandle(t *testing.T) {
	var got []modality.Sample
	src, err := New(DefaultConfig(), func(m modality.Modality, s modality.Sample) error {
		assert.Equal(t, modality.Orientation, m)
		got = append(got, s)
		return nil
	}, nil)
	require.NoError(t, err)

	src.Handle(nil, message{topic: "inertial/pose/fused", payload: []byte(`{"roll":2.5,"pitch":18,"yaw":0}`)})
	src.Handle(nil, message{topic: "inertial/pose/fused", payload: []byte(`not json`)})

	require.Len(t, got, 1)
	assert.Equal(t, []float64{18, 2.5}, got[0].Values)

	received, rejected := src.Stats()
	assert.Equal(t, uint64(2), received)
	assert.Equal(t, uint64(1), rejected)
}

func TestHandle_SinkError(t *testing.T) {
	src, err := New(DefaultConfig(), func(modality.Modality, modality.Sample) error {
		return errors.New("not active")
	}, nil)
	require.NoError(t, err)

	src.Handle(nil, message{payload: []byte(`{"roll":0,"pitch":0}`)})
	_, rejected := src.Stats()
	assert.Equal(t, uint64(1), rejected)
}

func TestConnectionLostRevokesPermission(t *testing.T) {
	p := &perms{}
	src, err := New(DefaultConfig(), func(modality.Modality, modality.Sample) error { return nil }, p)
	require.NoError(t, err)

	src.onConnectionLost(nil, errors.New("eof"))
	src.Stop()

	assert.Equal(t, []bool{false, false}, p.granted)
	assert.Equal(t, "orientation broker disconnected", p.reasons[0])
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{}, nil, nil)
	assert.Error(t, err)
}
