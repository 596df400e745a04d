// Package gateway is the WebSocket endpoint sensor adapters and the
// presentation layer connect to. Inbound messages carry raw samples, stimuli,
// permission results and layout updates; outbound messages carry
// announcements, input events, highlights and activations.
package gateway

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/protocol"
)

// Core is the part of the pipeline manager the gateway feeds.
type Core interface {
	PushRawSample(m modality.Modality, s modality.Sample) error
	PushStimulus(s modality.Stimulus) error
	SetViewport(vp modality.Viewport)
	TargetsChanged()
}

// PermissionSink records permission results reported by adapters.
type PermissionSink interface {
	Set(m modality.Modality, granted bool, reason string)
}

// Connection is one connected adapter.
type Connection struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send writes a message to the adapter.
func (c *Connection) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// Gateway manages adapter connections.
type Gateway struct {
	mu      sync.RWMutex
	conns   map[string]*Connection
	core    Core
	perms   PermissionSink
	surface *Surface
	logger  *slog.Logger
	now     func() time.Time

	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	samplesReceived  atomic.Uint64
	rejected         atomic.Uint64
}

// New creates a gateway feeding core. perms may be nil when permission
// results are handled elsewhere.
func New(core Core, perms PermissionSink) *Gateway {
	return &Gateway{
		conns:   make(map[string]*Connection),
		core:    core,
		perms:   perms,
		surface: NewSurface(),
		logger:  log.Component("gateway"),
		now:     time.Now,
	}
}

// SetCore replaces the core. Used when the manager is built after the
// gateway, since the gateway also serves as the manager's collaborators.
func (g *Gateway) SetCore(core Core) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.core = core
}

// Surface returns the layout reported by the presentation layer.
func (g *Gateway) Surface() *Surface {
	return g.surface
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (g *Gateway) RegisterRoutes(app *fiber.App) {
	app.Use("/ws/sensor", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/sensor", websocket.New(g.handleConn))
	app.Get("/ws/sensor/:id", websocket.New(g.handleConn))
}

func (g *Gateway) handleConn(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.New().String()
	}

	conn := &Connection{
		ID:        id,
		Conn:      c,
		Connected: g.now(),
		LastSeen:  g.now(),
	}

	g.mu.Lock()
	if old, ok := g.conns[id]; ok {
		g.logger.Warn("adapter reconnected, replacing connection", "adapter", id)
		_ = old.Conn.Close()
	}
	g.conns[id] = conn
	count := len(g.conns)
	g.mu.Unlock()

	g.logger.Info("adapter connected", "adapter", id, "total", count)

	defer func() {
		g.mu.Lock()
		if g.conns[id] == conn {
			delete(g.conns, id)
		}
		count := len(g.conns)
		g.mu.Unlock()
		g.logger.Info("adapter disconnected", "adapter", id, "total", count)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			g.logger.Debug("adapter read ended", "adapter", id, "error", err)
			return
		}

		conn.mu.Lock()
		conn.LastSeen = g.now()
		conn.mu.Unlock()

		g.messagesReceived.Add(1)
		g.handleMessage(conn, data)
	}
}

// handleMessage processes one inbound message. Malformed messages are
// counted and dropped; the connection stays open.
func (g *Gateway) handleMessage(conn *Connection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		g.reject(conn.ID, "parse", err)
		return
	}

	g.mu.RLock()
	core := g.core
	perms := g.perms
	g.mu.RUnlock()

	switch msg.Type {
	case protocol.TypeSample:
		d, err := msg.GetSampleData()
		if err != nil || !d.Modality.Valid() {
			g.reject(conn.ID, "sample", err)
			return
		}
		g.samplesReceived.Add(1)
		if core != nil {
			if err := core.PushRawSample(d.Modality, d.Sample(g.now())); err != nil {
				g.reject(conn.ID, "sample", err)
			}
		}

	case protocol.TypeStimulus:
		d, err := msg.GetStimulusData()
		if err != nil || !d.Modality.Valid() {
			g.reject(conn.ID, "stimulus", err)
			return
		}
		if core != nil {
			if err := core.PushStimulus(d.Stimulus(g.now())); err != nil {
				g.reject(conn.ID, "stimulus", err)
			}
		}

	case protocol.TypePermission:
		d, err := msg.GetPermissionData()
		if err != nil || !d.Modality.Valid() {
			g.reject(conn.ID, "permission", err)
			return
		}
		g.logger.Info("permission result", "adapter", conn.ID, "modality", d.Modality, "granted", d.Granted, "reason", d.Reason)
		if perms != nil {
			perms.Set(d.Modality, d.Granted, d.Reason)
		}

	case protocol.TypeTargets:
		d, err := msg.GetTargetsData()
		if err != nil {
			g.reject(conn.ID, "targets", err)
			return
		}
		g.surface.Replace(d.Regions)
		if core != nil {
			core.TargetsChanged()
		}

	case protocol.TypeViewport:
		d, err := msg.GetViewportData()
		if err != nil || d.Width <= 0 || d.Height <= 0 {
			g.reject(conn.ID, "viewport", err)
			return
		}
		if core != nil {
			core.SetViewport(modality.Viewport{Width: d.Width, Height: d.Height})
		}

	case protocol.TypePing:
		var id string
		if p, err := msg.GetPingData(); err == nil {
			id = p.ID
		}
		pong, err := protocol.NewPongMessage(id, msg.Timestamp, g.now().UnixMilli())
		if err == nil {
			g.messagesSent.Add(1)
			if err := conn.Send(pong); err != nil {
				g.logger.Debug("pong failed", "adapter", conn.ID, "error", err)
			}
		}

	default:
		g.reject(conn.ID, string(msg.Type), nil)
	}
}

func (g *Gateway) reject(id, kind string, err error) {
	g.rejected.Add(1)
	g.logger.Debug("message rejected", "adapter", id, "kind", kind, "error", err)
}

// Send sends a message to one adapter.
func (g *Gateway) Send(id string, msg *protocol.Message) error {
	g.mu.RLock()
	conn, ok := g.conns[id]
	g.mu.RUnlock()

	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "adapter not connected")
	}

	g.messagesSent.Add(1)
	return conn.Send(msg)
}

// Broadcast sends a message to every connected adapter.
func (g *Gateway) Broadcast(msg *protocol.Message) {
	g.mu.RLock()
	conns := make([]*Connection, 0, len(g.conns))
	for _, c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.RUnlock()

	for _, c := range conns {
		g.messagesSent.Add(1)
		if err := c.Send(msg); err != nil {
			g.logger.Debug("broadcast failed", "adapter", c.ID, "error", err)
		}
	}
}

func (g *Gateway) broadcast(msg *protocol.Message, err error) {
	if err != nil {
		g.logger.Warn("encode outbound message", "error", err)
		return
	}
	g.Broadcast(msg)
}

// Forward is an event bus handler relaying published events to adapters.
func (g *Gateway) Forward(e events.InputEvent) error {
	msg, err := protocol.NewEventMessage(e)
	if err != nil {
		return err
	}
	g.Broadcast(msg)
	return nil
}

// Count returns the number of connected adapters.
func (g *Gateway) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

// Connection returns an adapter connection by ID.
func (g *Gateway) Connection(id string) *Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.conns[id]
}

// Stats contains gateway statistics
type Stats struct {
	Adapters         int    `json:"adapters"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	SamplesReceived  uint64 `json:"samples_received"`
	Rejected         uint64 `json:"rejected"`
}

// Stats returns gateway statistics.
func (g *Gateway) Stats() Stats {
	return Stats{
		Adapters:         g.Count(),
		MessagesReceived: g.messagesReceived.Load(),
		MessagesSent:     g.messagesSent.Load(),
		SamplesReceived:  g.samplesReceived.Load(),
		Rejected:         g.rejected.Load(),
	}
}

// Info describes a connected adapter.
type Info struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// Infos returns info about every connected adapter.
func (g *Gateway) Infos() []Info {
	g.mu.RLock()
	defer g.mu.RUnlock()

	infos := make([]Info, 0, len(g.conns))
	for _, c := range g.conns {
		c.mu.Lock()
		infos = append(infos, Info{ID: c.ID, Connected: c.Connected, LastSeen: c.LastSeen})
		c.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers adapter management routes.
func (g *Gateway) RegisterAPIRoutes(api fiber.Router) {
	adapters := api.Group("/adapters")

	adapters.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"adapters": g.Infos(),
			"count":    g.Count(),
		})
	})

	adapters.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(g.Stats())
	})

	adapters.Get("/targets", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"regions": g.surface.Regions()})
	})
}
