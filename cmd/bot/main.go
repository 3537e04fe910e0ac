package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/showheysas/tech0notta/internal/bot"
	"github.com/showheysas/tech0notta/internal/config"
	"github.com/showheysas/tech0notta/internal/metrics"
	"github.com/showheysas/tech0notta/internal/platform"
	"github.com/showheysas/tech0notta/internal/server"

	// A vendor SDK binding must be linked in here with a blank import, the
	// same way database/sql drivers are. Its init function calls
	// platform.RegisterDriver; without one the binary exits with ErrNoDriver.
)

const (
	serviceName    = "meeting-relay-bot"
	serviceVersion = "1.0.0"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to configuration file (built-in defaults when omitted)")
	initOnly := flag.Bool("init-only", false, "Initialize the platform connection and exit without joining")
	flag.Parse()

	// Load configuration
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			return bot.ExitFatal
		}
		cfg = loaded
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
		slog.Bool("init_only", *initOnly),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.New(prometheus.DefaultRegisterer)

	// Obtain the conferencing SDK binding
	sdk, err := platform.Open()
	if err != nil {
		logger.Error("Failed to open platform", slog.String("error", err.Error()))
		return bot.ExitFatal
	}

	// Smoke-test mode: bring the platform up and tear it straight down
	if *initOnly {
		if err := sdk.Init(); err != nil {
			logger.Error("Platform initialization failed", slog.String("error", err.Error()))
			return bot.ExitFatal
		}
		logger.Info("Init-only mode, platform initialized successfully")
		sdk.Cleanup()
		return bot.ExitOK
	}

	// Load session parameters from the environment
	session, err := config.LoadSession()
	if err != nil {
		logger.Error("Invalid session configuration", slog.String("error", err.Error()))
		return bot.ExitFatal
	}
	logger.Info("Session configuration loaded",
		slog.String("meeting_number", session.MeetingNumber),
		slog.String("bot_name", session.BotName),
		slog.String("backend_url", session.BackendURL),
	)

	b := bot.New(cfg, session, sdk, logger, appMetrics)
	defer b.Close()

	if err := b.Initialize(); err != nil {
		logger.Error("Bot initialization failed", slog.String("error", err.Error()))
		return bot.ExitFatal
	}

	// Start monitoring API (if enabled)
	if cfg.HTTP.Enabled {
		httpServer := server.NewHTTPServer(cfg.HTTP, logger, cfg, session,
			b.Controller(), b.Roster(), b.Buffers(), b.Delivery(), appMetrics)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			return bot.ExitFatal
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := httpServer.Stop(shutdownCtx); err != nil {
				logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
			}
		}()
	}

	// Translate termination signals into an orderly stop
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	code := b.Run(ctx)
	logger.Info("Service stopped", slog.Int("exit_code", code))
	return code
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
