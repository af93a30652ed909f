package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/tapshell/tapshell/internal/bus"
	"github.com/tapshell/tapshell/internal/compositor"
	"github.com/tapshell/tapshell/internal/config"
	"github.com/tapshell/tapshell/internal/logging"
	"github.com/tapshell/tapshell/internal/shell"
	"github.com/tapshell/tapshell/internal/tray"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	log := logging.NewWithLevel(cfg.LogLevel)
	log.Info().Str("version", Version).Str("commit", Commit).Msg("tapshell starting...")

	conn, err := bus.Connect(false)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to session bus")
	}
	defer conn.Close()

	// Indicator proxy mirrors this application's item; everything else
	// stays registered but unrendered.
	proxy := tray.NewProxy(conn, cfg.Tray.AppID, shell.LogRenderer{Log: log}, log)

	broker := tray.NewBroker(
		tray.NewNameWatcher(conn, log),
		tray.Events{Registered: proxy.Offer, Unregistered: proxy.Drop},
		log,
	)
	defer broker.Shutdown()

	if err := tray.ExportBroker(conn, broker, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to host tray watcher")
	}
	log.Info().Str("name", tray.WatcherName).Msg("Tray watcher hosted")

	app := shell.New(compositor.New(conn, cfg.Compositor), log)

	err = bus.Subscribe(conn, bus.Handler{
		OnTriggered:      app.OnTriggered,
		OnSetAlwaysOnTop: app.OnSetAlwaysOnTop,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to subscribe to trigger signals")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down...")
}
