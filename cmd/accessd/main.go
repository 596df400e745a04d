// accessd runs the accessibility input core: modality pipelines, the
// sensor gateway for input adapters and the caregiver dashboard.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-access/internal/config"
	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/access"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Warn("could not load .env", "error", err)
	}
	cfg := parseFlags()

	level := config.LogLevel()
	if cfg.Debug {
		level = "debug"
	}
	log.Init(level)

	app, err := access.New(cfg)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	if err := app.Init(); err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
		app.Shutdown()
		os.Exit(1)
	}
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() access.Config {
	cfg := access.DefaultConfig()

	flag.BoolVar(&cfg.Debug, "debug", false, "Enable verbose debug logging")
	flag.BoolVar(&cfg.DebugSignals, "debug-signals", false, "Log every conditioned sample (very verbose)")
	flag.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port (overrides ACCESS_PORT)")
	flag.StringVar(&cfg.StaticDir, "static", "", "Dashboard asset directory")
	flag.StringVar(&cfg.SettingsDSN, "settings", cfg.SettingsDSN, "Settings backend: memory:, json:<path>, sqlite:<path>")
	flag.StringVar(&cfg.Scene, "scene", cfg.Scene, "Initial scene identifier")
	flag.StringVar(&cfg.MQTTBroker, "mqtt-broker", "", "MQTT broker for the orientation source (e.g. tcp://localhost:1883)")
	flag.StringVar(&cfg.MQTTTopic, "mqtt-topic", cfg.MQTTTopic, "MQTT pose topic")
	flag.Parse()

	return cfg
}
