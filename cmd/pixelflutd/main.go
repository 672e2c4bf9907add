package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pixelflutd/pixelflutd/internal/adminhttp"
	"github.com/pixelflutd/pixelflutd/internal/canvas"
	"github.com/pixelflutd/pixelflutd/internal/config"
	"github.com/pixelflutd/pixelflutd/internal/gateway"
	"github.com/pixelflutd/pixelflutd/internal/ingress"
	"github.com/pixelflutd/pixelflutd/internal/persistence"
	"github.com/pixelflutd/pixelflutd/internal/taskpool"
)

var version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve", "start":
		serve()
	case "version":
		fmt.Printf("pixelflutd v%s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func serve() {
	cfgPath := "pixelflutd.yaml"
	if len(os.Args) > 2 {
		cfgPath = os.Args[2]
	}

	logger, startupCloser := setupLogger("info", "json", "stdout")
	if startupCloser != nil {
		defer startupCloser.Close()
	}
	logger.Info("pixelflutd starting", "version", version)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	if startupCloser != nil {
		_ = startupCloser.Close()
		startupCloser = nil
	}
	logger, logCloser := setupLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if logCloser != nil {
		defer logCloser.Close()
	}

	grid := persistence.Load(cfg.Persistence.Path, logger)
	if width, height := grid.Size(); width != cfg.Canvas.Width || height != cfg.Canvas.Height {
		logger.Info("canvas size differs from configured canvas size",
			"configured_width", cfg.Canvas.Width, "configured_height", cfg.Canvas.Height,
			"loaded_width", width, "loaded_height", height)
	}

	tracker := taskpool.NewTracker(cfg.Gateway.MaxViewers, logger)

	saveQueue := taskpool.NewSaveQueue(cfg.Persistence.QueueDepth, func(encoded []byte) error {
		width, height := grid.Size()
		return persistence.Save(cfg.Persistence.Path, encoded, width, height, grid.Version())
	}, logger)
	saveQueue.Start()
	defer saveQueue.Stop()

	onSave := func(encoded []byte) { saveQueue.Enqueue(encoded) }

	admin := adminhttp.New(cfg, tracker, grid, logger)
	onEncode := admin.Metrics().RecordEncode

	in := ingress.New(cfg.Ingress.Address, grid, tracker, logger)
	gw := gateway.New(cfg.Gateway.Address, grid, tracker, onSave, onEncode, logger)

	stopTicker := startSnapshotTicker(cfg.Persistence.SaveInterval.Duration(), grid, onSave, logger)
	defer stopTicker()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// SIGUSR1 forces an immediate snapshot flush, bypassing the
	// background ticker — useful before a planned restart.
	flush := make(chan os.Signal, 1)
	signal.Notify(flush, syscall.SIGUSR1)
	go func() {
		for range flush {
			logger.Info("SIGUSR1 received, forcing snapshot flush")
			if _, _, err := grid.EncodeSnapshot(onSave); err != nil {
				logger.Error("forced snapshot flush failed", "error", err)
			}
		}
	}()

	if err := in.Start(); err != nil {
		logger.Error("ingress failed to start", "error", err)
		os.Exit(1)
	}
	if err := gw.Start(); err != nil {
		logger.Error("gateway failed to start", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := admin.Start(); err != nil {
			logger.Error("admin server error", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	logger.Info("pixelflutd ready",
		"ingress", cfg.Ingress.Address,
		"gateway", cfg.Gateway.Address,
		"admin", cfg.Admin.Address,
	)

	<-quit
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := gw.Stop(ctx); err != nil {
		logger.Error("gateway shutdown error", "error", err)
	}
	if err := in.Stop(ctx); err != nil {
		logger.Error("ingress shutdown error", "error", err)
	}
	if err := admin.Stop(ctx); err != nil {
		logger.Error("admin server shutdown error", "error", err)
	}

	logger.Info("pixelflutd stopped")
}

// startSnapshotTicker periodically re-encodes the canvas even with no
// viewer connected, so the on-disk snapshot stays reasonably fresh
// between gateway hits. Returns a stop function. A non-positive
// interval disables the ticker entirely.
func startSnapshotTicker(interval time.Duration, grid *canvas.Grid, onSave func([]byte), logger *slog.Logger) func() {
	if interval <= 0 {
		return func() {}
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				if _, _, err := grid.EncodeSnapshot(onSave); err != nil {
					logger.Error("background snapshot encode failed", "error", err)
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(done)
	}
}

func setupLogger(level, format, output string) (*slog.Logger, io.Closer) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	writer, closer := resolveLogOutput(output)
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(writer, opts)
	} else {
		handler = slog.NewJSONHandler(writer, opts)
	}

	return slog.New(handler), closer
}

func resolveLogOutput(output string) (io.Writer, io.Closer) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return os.Stdout, nil
		}
		return f, f
	}
}

func printUsage() {
	fmt.Println(`pixelflutd - Pixelflut canvas server

Usage:
  pixelflutd <command> [options]

Commands:
  serve [config]   Start the server (default config: pixelflutd.yaml)
  start [config]   Alias for serve
  version          Show version
  help             Show this help

Signals:
  SIGUSR1          Force an immediate snapshot flush
  SIGINT/SIGTERM   Graceful shutdown

Examples:
  pixelflutd serve
  pixelflutd serve /etc/pixelflutd/pixelflutd.yaml
  pixelflutd version
  kill -USR1 $(pidof pixelflutd)   # Force a snapshot flush`)
}
