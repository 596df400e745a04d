package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/announce"
	"github.com/teslashibe/go-access/pkg/debug"
	"github.com/teslashibe/go-access/pkg/gateway"
	"github.com/teslashibe/go-access/pkg/mqttsource"
	"github.com/teslashibe/go-access/pkg/pipeline"
	"github.com/teslashibe/go-access/pkg/recommend"
	"github.com/teslashibe/go-access/pkg/settings"
	"github.com/teslashibe/go-access/pkg/web"
)

// App is the access daemon orchestrator.
type App struct {
	config Config
	logger *slog.Logger

	store       settings.Store
	permissions *pipeline.Permissions
	gateway     *gateway.Gateway
	manager     *pipeline.Manager
	webServer   *web.Server
	orientation *mqttsource.Source

	mu     sync.Mutex
	closed bool
}

// New creates an application with the given configuration.
func New(cfg Config) (*App, error) {
	cfg.LoadEnvConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	debug.Enabled = cfg.Debug
	debug.Signals = cfg.DebugSignals

	return &App{
		config: cfg,
		logger: log.Component("access"),
	}, nil
}

// Init builds and wires every component. Call this after New and before Run.
func (a *App) Init() error {
	store, err := settings.Open(a.config.SettingsDSN)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	a.store = store

	a.permissions = pipeline.NewPermissions()
	a.gateway = gateway.New(nil, a.permissions)

	// The dashboard is created after the manager it controls, so the
	// manager announces through a late-bound forwarder.
	announcer := announce.Multi{
		a.gateway,
		announce.Func(a.announceToDashboard),
		announce.NewLogger(),
	}

	a.manager, err = pipeline.NewManager(pipeline.DefaultConfig().WithScene(a.config.Scene), pipeline.Options{
		Surface:              a.gateway.Surface(),
		Activator:            a.gateway,
		Announcer:            announcer,
		Presenter:            a.gateway,
		CalibrationPresenter: a.gateway,
		Probe:                a.permissions,
		Store:                a.store,
	})
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	a.gateway.SetCore(a.manager)

	webCfg := web.DefaultConfig()
	webCfg.Port = a.config.Port
	webCfg.StaticDir = a.config.StaticDir
	a.mu.Lock()
	a.webServer = web.NewServer(webCfg, a.manager)
	a.mu.Unlock()

	a.gateway.RegisterRoutes(a.webServer.App())
	a.gateway.RegisterAPIRoutes(a.webServer.App().Group("/api"))

	bus := a.manager.Bus()
	bus.Subscribe("gateway", a.gateway.Forward)
	bus.Subscribe("dashboard", a.webServer.Publish)

	a.manager.OnRecommendations(func(recs []recommend.Recommendation) {
		for _, r := range recs {
			a.logger.Info("recommendation delivered", "kind", r.Kind, "reason", r.Reason, "confidence", r.Confidence)
		}
	})

	if a.config.MQTTBroker != "" {
		cfg := mqttsource.DefaultConfig()
		cfg.Broker = a.config.MQTTBroker
		cfg.Topic = a.config.MQTTTopic
		src, err := mqttsource.New(cfg, a.manager.PushRawSample, a.permissions)
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		a.orientation = src
	}

	a.logger.Info("initialized",
		"port", a.config.Port,
		"settings", a.config.SettingsDSN,
		"scene", a.config.Scene,
		"mqtt", a.config.MQTTBroker != "")
	return nil
}

func (a *App) announceToDashboard(message string, priority announce.Priority) {
	a.mu.Lock()
	srv := a.webServer
	a.mu.Unlock()
	if srv != nil {
		srv.Announce(message, priority)
	}
}

// Manager returns the pipeline manager. Valid after Init.
func (a *App) Manager() *pipeline.Manager { return a.manager }

// Gateway returns the sensor gateway. Valid after Init.
func (a *App) Gateway() *gateway.Gateway { return a.gateway }

// Run serves until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return errors.New("access: Run called before Init")
	}

	if a.orientation != nil {
		// paho keeps retrying in the background when the first attempt fails
		if err := a.orientation.Start(); err != nil {
			a.logger.Warn("orientation source unavailable", "error", err)
		}
	}

	errc := make(chan error, 1)
	go func() { errc <- a.webServer.Start(ctx) }()
	a.logger.Info("listening",
		"dashboard", "http://localhost:"+a.config.Port,
		"sensors", "ws://localhost:"+a.config.Port+"/ws/sensor/<adapter>")

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		return err
	}
}

// Shutdown stops every component. It is safe to call more than once.
func (a *App) Shutdown() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	if a.orientation != nil {
		a.orientation.Stop()
	}
	if a.manager != nil {
		a.manager.Close()
	}
	if a.webServer != nil {
		if err := a.webServer.Shutdown(); err != nil {
			a.logger.Warn("web shutdown", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("settings close", "error", err)
		}
	}
	a.logger.Info("shut down")
}
