// Package access assembles the accessibility input core: the modality
// pipelines, the sensor gateway, the dashboard and the optional MQTT
// orientation source, and manages their lifecycle.
package access

import (
	"os"
	"strconv"

	"github.com/teslashibe/go-access/internal/config"
	"github.com/teslashibe/go-access/pkg/settings"
)

// Config holds all configuration for the access daemon.
// Flag parsing is done in cmd/accessd/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging; DebugSignals adds per-sample logs.
	Debug        bool
	DebugSignals bool

	// Port is the HTTP port serving the dashboard, API and sensor gateway.
	Port string

	// StaticDir holds dashboard assets. Empty serves the API only.
	StaticDir string

	// SettingsDSN selects the settings backend.
	SettingsDSN string

	// Scene is the initial scene identifier for context keys.
	Scene string

	// MQTT orientation source. An empty broker disables it.
	MQTTBroker string
	MQTTTopic  string
}

// DefaultConfig returns defaults matching internal/config.
func DefaultConfig() Config {
	return Config{
		Port:        strconv.Itoa(config.DefaultPort),
		SettingsDSN: config.DefaultSettings,
		Scene:       config.DefaultScene,
		MQTTTopic:   config.DefaultMQTTTopic,
	}
}

// LoadEnvConfig applies environment overrides. Call this after flag parsing;
// only fields still at their defaults are replaced.
func (c *Config) LoadEnvConfig() {
	def := DefaultConfig()
	if c.Port == def.Port {
		c.Port = strconv.Itoa(config.Port())
	}
	if c.SettingsDSN == def.SettingsDSN {
		c.SettingsDSN = config.SettingsDSN()
	}
	if c.Scene == def.Scene {
		c.Scene = config.Scene()
	}
	if c.MQTTBroker == "" {
		c.MQTTBroker = config.MQTTBroker()
	}
	if c.MQTTTopic == def.MQTTTopic {
		c.MQTTTopic = config.MQTTTopic()
	}
	if c.StaticDir == "" {
		c.StaticDir = os.Getenv("ACCESS_STATIC_DIR")
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		return &ConfigError{Field: "Port", Message: "port must be a number between 1 and 65535"}
	}
	if c.Scene == "" {
		return &ConfigError{Field: "Scene", Message: "scene must not be empty"}
	}
	scheme, _ := config.SplitDSN(c.SettingsDSN)
	switch scheme {
	case "", "memory", "json", "sqlite":
	default:
		return &ConfigError{Field: "SettingsDSN", Message: settings.ErrUnknownBackend.Error() + ": " + scheme}
	}
	if c.MQTTBroker != "" && c.MQTTTopic == "" {
		return &ConfigError{Field: "MQTTTopic", Message: "ACCESS_MQTT_TOPIC is required when a broker is set"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
