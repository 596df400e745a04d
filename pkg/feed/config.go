package feed

import (
	"errors"
	"strings"
	"time"
)

// Config holds the adapter connection parameters.
type Config struct {
	URL               string        // Gateway endpoint, without the adapter id
	ID                string        // Adapter id; reconnects under the same id replace the old connection
	HandshakeTimeout  time.Duration // Dial handshake limit
	WriteTimeout      time.Duration // Per-message write deadline
	ReconnectDelay    time.Duration // First reconnect backoff
	MaxReconnectDelay time.Duration // Backoff ceiling
	PingInterval      time.Duration // Application-level ping; zero disables
	MaxSampleRate     float64       // Samples per second forwarded; zero is unlimited
}

// DefaultConfig returns settings for a gateway on localhost.
func DefaultConfig() Config {
	return Config{
		URL:               "ws://localhost:8090/ws/sensor",
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      5 * time.Second,
		ReconnectDelay:    500 * time.Millisecond,
		MaxReconnectDelay: 10 * time.Second,
		PingInterval:      30 * time.Second,
		MaxSampleRate:     60,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("feed: url is required")
	}
	if !strings.HasPrefix(c.URL, "ws://") && !strings.HasPrefix(c.URL, "wss://") {
		return errors.New("feed: url must be ws:// or wss://")
	}
	if c.ID == "" {
		return errors.New("feed: adapter id is required")
	}
	if c.ReconnectDelay <= 0 || c.MaxReconnectDelay < c.ReconnectDelay {
		return errors.New("feed: reconnect delays must be positive and ordered")
	}
	if c.MaxSampleRate < 0 {
		return errors.New("feed: max sample rate cannot be negative")
	}
	return nil
}

// WithID returns a copy with the adapter id set.
func (c Config) WithID(id string) Config {
	c.ID = id
	return c
}

// WithURL returns a copy with the gateway endpoint set.
func (c Config) WithURL(url string) Config {
	c.URL = url
	return c
}

// endpoint is the full dial address.
func (c Config) endpoint() string {
	return strings.TrimRight(c.URL, "/") + "/" + c.ID
}
