// Package feed is the adapter side of the sensor gateway: it streams raw
// samples, discrete stimuli and permission results to the access core and
// receives announcements, highlights and activations back.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/announce"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/protocol"
)

var (
	// ErrNotConnected is returned when sending without a live connection.
	ErrNotConnected = errors.New("feed: not connected")

	// ErrThrottled is returned when a sample exceeds MaxSampleRate.
	ErrThrottled = errors.New("feed: sample rate exceeded")
)

// Client is one adapter's connection to the gateway.
type Client struct {
	config  Config
	dialer  websocket.Dialer
	limiter *rate.Limiter
	logger  *slog.Logger

	wsMu sync.Mutex
	ws   *websocket.Conn
	done chan struct{}

	// Callbacks, run on the read goroutine. Set before Connect.
	OnAnnounce    func(message string, priority announce.Priority)
	OnActivate    func(target events.TargetRef)
	OnHighlight   func(h protocol.HighlightData)
	OnCalibration func(c protocol.CalibrationData)
	OnEvent       func(e events.InputEvent)
	OnPong        func(rtt time.Duration)
	OnConnect     func()
	OnDisconnect  func(err error)

	sent     atomic.Uint64
	received atomic.Uint64
	dropped  atomic.Uint64
}

// NewClient creates a disconnected client.
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	limit := rate.Inf
	burst := 1
	if config.MaxSampleRate > 0 {
		limit = rate.Limit(config.MaxSampleRate)
		burst = int(config.MaxSampleRate/10) + 1
	}
	return &Client{
		config:  config,
		dialer:  websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  log.Component("feed").With("adapter", config.ID),
	}, nil
}

// Connect dials the gateway and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	ws, _, err := c.dialer.DialContext(ctx, c.config.endpoint(), nil)
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", c.config.endpoint(), err)
	}

	done := make(chan struct{})
	c.wsMu.Lock()
	if c.ws != nil {
		_ = c.ws.Close()
	}
	c.ws = ws
	c.done = done
	c.wsMu.Unlock()

	c.logger.Info("connected to gateway", "url", c.config.endpoint())
	if c.OnConnect != nil {
		c.OnConnect()
	}

	go c.readLoop(ws, done)
	return nil
}

// Done is closed when the current connection's read loop ends.
func (c *Client) Done() <-chan struct{} {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	return c.done
}

// Connected reports whether a connection is live.
func (c *Client) Connected() bool {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	return c.ws != nil
}

// Run keeps the client connected until ctx is done, reconnecting with
// exponential backoff. It pings the gateway every PingInterval.
func (c *Client) Run(ctx context.Context) error {
	delay := c.config.ReconnectDelay
	for {
		if err := c.Connect(ctx); err != nil {
			c.logger.Warn("gateway connect failed", "error", err, "retry_in", delay)
		} else {
			delay = c.config.ReconnectDelay
			c.hold(ctx)
		}

		if ctx.Err() != nil {
			c.Close()
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			c.Close()
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
	}
}

// hold pings until the connection drops or ctx ends.
func (c *Client) hold(ctx context.Context) {
	done := c.Done()
	var tick <-chan time.Time
	if c.config.PingInterval > 0 {
		ticker := time.NewTicker(c.config.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-tick:
			if err := c.Ping(); err != nil {
				c.logger.Debug("ping failed", "error", err)
			}
		}
	}
}

func (c *Client) readLoop(ws *websocket.Conn, done chan struct{}) {
	var err error
	defer func() {
		c.wsMu.Lock()
		if c.ws == ws {
			c.ws = nil
		}
		c.wsMu.Unlock()
		close(done)
		c.logger.Info("disconnected from gateway", "error", err)
		if c.OnDisconnect != nil {
			c.OnDisconnect(err)
		}
	}()

	for {
		var data []byte
		_, data, err = ws.ReadMessage()
		if err != nil {
			return
		}
		c.received.Add(1)

		msg, perr := protocol.ParseMessage(data)
		if perr != nil {
			c.logger.Debug("unparseable message", "error", perr)
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeAnnounce:
		if d, err := msg.GetAnnounceData(); err == nil && c.OnAnnounce != nil {
			c.OnAnnounce(d.Message, d.Priority)
		}
	case protocol.TypeActivate:
		if d, err := msg.GetActivateData(); err == nil && c.OnActivate != nil {
			c.OnActivate(d.Target)
		}
	case protocol.TypeHighlight:
		if d, err := msg.GetHighlightData(); err == nil && c.OnHighlight != nil {
			c.OnHighlight(*d)
		}
	case protocol.TypeCalibration:
		if d, err := msg.GetCalibrationData(); err == nil && c.OnCalibration != nil {
			c.OnCalibration(*d)
		}
	case protocol.TypeEvent:
		if e, err := msg.GetEvent(); err == nil && c.OnEvent != nil {
			c.OnEvent(*e)
		}
	case protocol.TypePong:
		if d, err := msg.GetPongData(); err == nil && c.OnPong != nil {
			c.OnPong(time.Since(time.UnixMilli(d.PingTS)))
		}
	}
}

// Send writes one message.
func (c *Client) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws == nil {
		return ErrNotConnected
	}
	if c.config.WriteTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("feed: write: %w", err)
	}
	c.sent.Add(1)
	return nil
}

func (c *Client) send(msg *protocol.Message, err error) error {
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// SendSample forwards a raw continuous reading, dropping it when the
// sample rate is exceeded.
func (c *Client) SendSample(s modality.Sample) error {
	if !c.limiter.Allow() {
		c.dropped.Add(1)
		return ErrThrottled
	}
	return c.send(protocol.NewSampleMessage(s))
}

// SendStimulus forwards a discrete input. Stimuli are never throttled.
func (c *Client) SendStimulus(s modality.Stimulus) error {
	return c.send(protocol.NewStimulusMessage(s))
}

// SendPermission reports the result of a sensor permission request.
func (c *Client) SendPermission(m modality.Modality, granted bool, reason string) error {
	return c.send(protocol.NewPermissionMessage(m, granted, reason))
}

// SendTargets replaces the gateway's view of the interactive layout.
func (c *Client) SendTargets(regions []protocol.Region) error {
	return c.send(protocol.NewTargetsMessage(regions))
}

// SendViewport reports the presentation surface size.
func (c *Client) SendViewport(vp modality.Viewport) error {
	return c.send(protocol.NewViewportMessage(vp))
}

// Ping sends an application-level ping; the pong arrives on OnPong.
func (c *Client) Ping() error {
	return c.send(protocol.NewPingMessage(uuid.New().String()))
}

// Stats returns message counters.
func (c *Client) Stats() (sent, received, dropped uint64) {
	return c.sent.Load(), c.received.Load(), c.dropped.Load()
}

// Close closes the current connection. Run reconnects unless its context
// is done.
func (c *Client) Close() {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws == nil {
		return
	}
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = c.ws.Close()
	c.ws = nil
}
