// Package mqttsource feeds head or device orientation published over MQTT
// into the orientation modality. Poses arrive as JSON {roll, pitch, yaw}
// in degrees, the format IMU producers publish.
package mqttsource

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/modality"
)

// Pose is one orientation reading in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Sample converts the pose to an orientation sample, [pitch, roll].
func (p Pose) Sample(at time.Time) modality.Sample {
	return modality.Sample{
		Modality:   modality.Orientation,
		Values:     []float64{p.Pitch, p.Roll},
		Time:       at,
		Confidence: 1,
	}
}

// Sink receives converted samples.
type Sink func(m modality.Modality, s modality.Sample) error

// PermissionSink receives availability changes. The broker connection
// stands in for the sensor permission.
type PermissionSink interface {
	Set(m modality.Modality, granted bool, reason string)
}

// Config holds broker connection settings.
type Config struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Topic    string
	QoS      byte
}

// DefaultConfig subscribes to inertial/pose/fused on a local broker.
func DefaultConfig() Config {
	return Config{
		Broker:   "tcp://localhost:1883",
		ClientID: "access-orientation",
		Topic:    "inertial/pose/fused",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Broker == "" {
		return errors.New("mqttsource: broker is required")
	}
	if c.Topic == "" {
		return errors.New("mqttsource: topic is required")
	}
	if c.QoS > 2 {
		return errors.New("mqttsource: qos must be 0, 1 or 2")
	}
	return nil
}

// Source subscribes to a pose topic and forwards samples.
type Source struct {
	config Config
	sink   Sink
	perms  PermissionSink
	client mqtt.Client
	logger *slog.Logger
	now    func() time.Time

	received atomic.Uint64
	rejected atomic.Uint64
}

// New creates an unconnected source. perms may be nil.
func New(config Config, sink Sink, perms PermissionSink) (*Source, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Source{
		config: config,
		sink:   sink,
		perms:  perms,
		logger: log.Component("mqtt"),
		now:    time.Now,
	}, nil
}

// Start connects to the broker and subscribes. Paho reconnects on its own;
// every (re)connect re-subscribes.
func (s *Source) Start() error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.config.Broker).
		SetClientID(s.config.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(s.onConnectionLost)

	s.client = mqtt.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(10*time.Second) {
		return fmt.Errorf("mqttsource: connect to %s timed out", s.config.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttsource: connect to %s: %w", s.config.Broker, err)
	}
	return nil
}

func (s *Source) onConnect(c mqtt.Client) {
	s.logger.Info("connected to broker", "broker", s.config.Broker)
	token := c.Subscribe(s.config.Topic, s.config.QoS, s.Handle)
	token.Wait()
	if err := token.Error(); err != nil {
		s.logger.Error("subscribe failed", "topic", s.config.Topic, "error", err)
		s.setPermission(false, "subscribe failed")
		return
	}
	s.logger.Info("subscribed", "topic", s.config.Topic)
	s.setPermission(true, "")
}

func (s *Source) onConnectionLost(_ mqtt.Client, err error) {
	s.logger.Warn("broker connection lost", "error", err)
	s.setPermission(false, "orientation broker disconnected")
}

func (s *Source) setPermission(granted bool, reason string) {
	if s.perms != nil {
		s.perms.Set(modality.Orientation, granted, reason)
	}
}

// Handle decodes one pose message and forwards it. It is the paho
// subscription callback.
func (s *Source) Handle(_ mqtt.Client, msg mqtt.Message) {
	s.received.Add(1)

	var p Pose
	if err := json.Unmarshal(msg.Payload(), &p); err != nil {
		s.rejected.Add(1)
		s.logger.Debug("pose unmarshal error", "topic", msg.Topic(), "error", err)
		return
	}
	if math.IsNaN(p.Pitch) || math.IsNaN(p.Roll) {
		s.rejected.Add(1)
		return
	}
	if err := s.sink(modality.Orientation, p.Sample(s.now())); err != nil {
		s.rejected.Add(1)
		s.logger.Debug("pose dropped", "error", err)
	}
}

// Stats returns received and rejected message counts.
func (s *Source) Stats() (received, rejected uint64) {
	return s.received.Load(), s.rejected.Load()
}

// Stop disconnects from the broker.
func (s *Source) Stop() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	s.setPermission(false, "orientation source stopped")
}
