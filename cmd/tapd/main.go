package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tapshell/tapshell/internal/bus"
	"github.com/tapshell/tapshell/internal/config"
	"github.com/tapshell/tapshell/internal/daemon"
	"github.com/tapshell/tapshell/internal/inject"
	"github.com/tapshell/tapshell/internal/input"
	"github.com/tapshell/tapshell/internal/logging"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	// Load config from XDG
	cfg, err := config.Load()
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)
	log.Info().Str("version", Version).Str("commit", Commit).Msg("tapd starting...")

	// Connect to the session bus and claim the daemon's name
	conn, err := bus.Connect(true)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to session bus")
	}
	defer conn.Close()

	// Virtual keyboard for TypeText. Missing /dev/uinput degrades the
	// request to a no-op instead of refusing to start.
	injector, err := inject.New(cfg.Inject, log)
	if err != nil {
		log.Warn().Err(err).Msg("Text injection unavailable")
		injector = nil
	} else {
		defer injector.Close()
	}

	// Discover keyboard sources
	infos, err := input.Discover()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to discover keyboards")
	}

	sources := make([]input.Source, 0, len(infos)+1)
	for _, info := range infos {
		dev, err := input.OpenDevice(info)
		if err != nil {
			// Needs membership in the 'input' group or root
			log.Warn().Err(err).Str("device", info.Name).Msg("Cannot open device")
			continue
		}
		sources = append(sources, dev)
	}
	if len(sources) == 0 {
		log.Fatal().Msg("No readable keyboard devices")
	}
	log.Info().Int("keyboards", len(sources)).Msg("Monitoring keyboard devices")

	// Hotplug changes the device set; restart to re-enumerate cleanly.
	sources = append(sources, input.NewTopologyWatch())

	monitor := input.NewMonitor(sources, log)
	app := daemon.New(daemon.Config{
		Monitor:   monitor,
		Publisher: bus.NewPublisher(conn, log),
		Injector:  injector,
		Logger:    log,
	})

	// Inbound control signals; SetAlwaysOnTop is the shell host's business.
	err = bus.Subscribe(conn, bus.Handler{OnTypeText: app.OnTypeText}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to subscribe to control signals")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		// Device-gone and topology changes land here: exit non-zero so
		// the service manager restarts us with its backoff (~1s).
		log.Error().Err(err).Msg("Shutting down for supervised restart")
		os.Exit(1)
	}

	log.Info().Msg("Shutting down...")
}
