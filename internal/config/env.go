// Package config provides configuration helpers for go-access commands.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults used when the environment does not override them.
const (
	DefaultPort       = 8090
	DefaultLogLevel   = "info"
	DefaultSettings   = "memory:"
	DefaultMQTTTopic  = "inertial/pose/fused"
	DefaultScene      = "menu"
	DefaultGatewayURL = "ws://localhost:8090/ws/sensor"
)

// LoadDotEnv loads variables from the given .env files (default ".env").
// Missing files are ignored; variables already set in the process win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	present := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// Port returns the HTTP port from ACCESS_PORT or the default.
func Port() int {
	return intEnv("ACCESS_PORT", DefaultPort)
}

// LogLevel returns the log level from ACCESS_LOG_LEVEL.
func LogLevel() string {
	return stringEnv("ACCESS_LOG_LEVEL", DefaultLogLevel)
}

// SettingsDSN returns the settings backend from ACCESS_SETTINGS.
// Supported forms: "memory:", "json:<path>", "sqlite:<path>".
func SettingsDSN() string {
	return stringEnv("ACCESS_SETTINGS", DefaultSettings)
}

// MQTTBroker returns the broker URL for the orientation adapter.
// Empty disables the adapter.
func MQTTBroker() string {
	return os.Getenv("ACCESS_MQTT_BROKER")
}

// MQTTTopic returns the pose topic for the orientation adapter.
func MQTTTopic() string {
	return stringEnv("ACCESS_MQTT_TOPIC", DefaultMQTTTopic)
}

// Scene returns the initial scene identifier used for context keys.
func Scene() string {
	return stringEnv("ACCESS_SCENE", DefaultScene)
}

// GatewayURL returns the sensor gateway URL sensor adapters dial.
func GatewayURL() string {
	return stringEnv("ACCESS_GATEWAY_URL", DefaultGatewayURL)
}

// SplitDSN splits a settings DSN into scheme and location.
func SplitDSN(dsn string) (scheme, location string) {
	scheme, location, found := strings.Cut(dsn, ":")
	if !found {
		return dsn, ""
	}
	return scheme, location
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
