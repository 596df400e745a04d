// Package web provides the control and monitoring dashboard for the access
// core: a JSON API over the pipeline manager, live event and announcement
// streams, and Prometheus metrics.
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/announce"
	"github.com/teslashibe/go-access/pkg/calibration"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/hub"
	"github.com/teslashibe/go-access/pkg/metrics"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/performance"
	"github.com/teslashibe/go-access/pkg/pipeline"
	"github.com/teslashibe/go-access/pkg/protocol"
	"github.com/teslashibe/go-access/pkg/recommend"
	"github.com/teslashibe/go-access/pkg/settings"
)

// Controller is the part of the pipeline manager the dashboard drives.
type Controller interface {
	Status() pipeline.Status
	Activate(ctx context.Context, m modality.Modality) error
	Deactivate(m modality.Modality) error
	StartCalibration(m modality.Modality) (calibration.Progress, error)
	CompleteCalibration(m modality.Modality) (calibration.Profile, error)
	CancelCalibration(m modality.Modality)
	Profiles() []calibration.Profile
	Performance() []performance.Record
	Recommendations() []recommend.Recommendation
	Analyze() []recommend.Recommendation
	SetFatigue(score float64)
	SetScene(scene string)
	ResetSession()
	Settings(m modality.Modality) (settings.Modality, error)
	Configure(m modality.Modality, s settings.Modality) error
}

// Config holds dashboard settings.
type Config struct {
	Port            string        // Listen port
	StaticDir       string        // Optional dashboard assets
	ActivateTimeout time.Duration // How long activation waits for a permission result
	Backlog         int           // Announcements replayed to new stream clients
}

// DefaultConfig returns the standard dashboard configuration.
func DefaultConfig() Config {
	return Config{
		Port:            "8090",
		ActivateTimeout: 10 * time.Second,
		Backlog:         50,
	}
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	config Config
	ctrl   Controller
	logger *slog.Logger

	// Hubs for websocket broadcast
	eventHub    *hub.Hub
	announceHub *hub.Hub

	announcements *announce.Recorder
}

// NewServer creates a dashboard over ctrl. Routes from other components
// (the sensor gateway) are registered on App before Start.
func NewServer(config Config, ctrl Controller) *Server {
	s := &Server{
		config:        config,
		ctrl:          ctrl,
		logger:        log.Component("web"),
		eventHub:      hub.New("events"),
		announceHub:   hub.New("announcements"),
		announcements: announce.NewRecorder(config.Backlog),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Access Dashboard",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	if config.StaticDir != "" {
		app.Static("/", config.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/profiles", s.handleProfiles)
	api.Get("/performance", s.handlePerformance)
	api.Get("/recommendations", s.handleRecommendations)
	api.Post("/analyze", s.handleAnalyze)
	api.Get("/announcements", s.handleAnnouncements)

	mods := api.Group("/modalities/:name")
	mods.Post("/activate", s.handleActivate)
	mods.Post("/deactivate", s.handleDeactivate)
	mods.Post("/calibrate", s.handleCalibrate)
	mods.Post("/complete", s.handleComplete)
	mods.Post("/cancel", s.handleCancel)

	api.Post("/fatigue", s.handleFatigue)
	api.Post("/scene", s.handleScene)
	api.Post("/session/reset", s.handleReset)

	api.Get("/settings/:name", s.handleGetSettings)
	api.Put("/settings/:name", s.handlePutSettings)

	promHandler := fasthttpadaptor.NewFastHTTPHandler(metrics.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		promHandler(c.Context())
		return nil
	})

	app.Use("/ws/events", upgradeOnly)
	app.Use("/ws/announcements", upgradeOnly)
	app.Get("/ws/events", websocket.New(s.handleEventsWS))
	app.Get("/ws/announcements", websocket.New(s.handleAnnouncementsWS))

	s.app = app
	return s
}

func upgradeOnly(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// App returns the Fiber app, for mounting extra routes and for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the broadcast hubs until ctx is done and serves HTTP. It
// blocks until the listener fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("dashboard listening", "url", "http://localhost:"+s.config.Port)

	go s.eventHub.Run(ctx)
	go s.announceHub.Run(ctx)

	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Announce records an announcement and streams it to dashboard clients.
// It implements announce.Announcer.
func (s *Server) Announce(message string, priority announce.Priority) {
	s.announcements.Announce(message, priority)
	msg, err := protocol.NewAnnounceMessage(message, priority)
	if err != nil {
		return
	}
	if err := s.announceHub.BroadcastMessage(msg); err != nil {
		s.logger.Debug("announcement broadcast failed", "error", err)
	}
}

// Publish streams a published input event to dashboard clients. It is an
// event bus handler.
func (s *Server) Publish(e events.InputEvent) error {
	msg, err := protocol.NewEventMessage(e)
	if err != nil {
		return err
	}
	return s.eventHub.BroadcastMessage(msg)
}
