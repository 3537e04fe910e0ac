package bot

import (
	"context"
	"log/slog"

	"github.com/showheysas/tech0notta/internal/audio"
	"github.com/showheysas/tech0notta/internal/config"
	"github.com/showheysas/tech0notta/internal/delivery"
	"github.com/showheysas/tech0notta/internal/metrics"
	"github.com/showheysas/tech0notta/internal/platform"
	"github.com/showheysas/tech0notta/internal/roster"
)

// Bot owns one meeting session and all the components serving it.
type Bot struct {
	session    *config.Session
	sdk        platform.SDK
	controller *Controller
	buffers    *audio.Manager
	roster     *roster.Roster
	client     *delivery.Client
	logger     *slog.Logger
}

// New wires the delivery client, roster, buffer manager, and controller
// together for the given session.
func New(cfg *config.Config, session *config.Session, sdk platform.SDK, logger *slog.Logger, m *metrics.Metrics) *Bot {
	client := delivery.NewClient(delivery.Config{
		BaseURL:       session.BackendURL,
		AudioTimeout:  cfg.Delivery.GetAudioTimeout(),
		RosterTimeout: cfg.Delivery.GetRosterTimeout(),
	}, logger, m)

	rost := roster.New(sdk, client, logger, m)

	buffers := audio.NewManager(audio.Config{
		MinFlushBytes: cfg.Buffering.MinFlushBytes,
		FlushInterval: cfg.Buffering.GetFlushInterval(),
		SweepInterval: cfg.Buffering.GetSweepInterval(),
	}, client, rost, logger, m)

	controller := NewController(sdk, buffers, rost, logger, m)

	return &Bot{
		session:    session,
		sdk:        sdk,
		controller: controller,
		buffers:    buffers,
		roster:     rost,
		client:     client,
		logger:     logger,
	}
}

// Initialize brings up the platform connection. Fatal on error, the caller
// exits with code 1.
func (b *Bot) Initialize() error {
	return b.controller.Initialize()
}

// Run starts the session and blocks until it resolves, returning the
// process exit code. Context cancellation triggers an orderly stop.
func (b *Bot) Run(ctx context.Context) int {
	b.logger.Info("Starting session",
		slog.String("meeting_number", b.session.MeetingNumber),
		slog.String("bot_name", b.session.BotName),
		slog.Bool("delivery_enabled", b.client.Enabled()))

	if err := b.controller.Start(b.session.JWTToken, b.session.MeetingNumber, b.session.Password, b.session.BotName); err != nil {
		b.logger.Error("Failed to start session", slog.String("error", err.Error()))
		return ExitFatal
	}

	select {
	case code := <-b.controller.Done():
		return code
	case <-ctx.Done():
		b.controller.Stop()
		return <-b.controller.Done()
	}
}

// RequestStop asks the controller for an orderly teardown. Safe to call
// from a signal handler goroutine at any time.
func (b *Bot) RequestStop() {
	b.controller.Stop()
}

// Close releases everything the bot holds. Call after Run returns.
func (b *Bot) Close() {
	b.buffers.Stop()
	b.sdk.Cleanup()

	stats := b.client.GetStats()
	b.logger.Info("Session closed",
		slog.String("state", b.controller.StateName()),
		slog.Uint64("audio_chunks_sent", stats.AudioSent),
		slog.Uint64("audio_chunks_failed", stats.AudioFailed),
		slog.Uint64("audio_bytes_sent", stats.AudioBytesSent),
		slog.Uint64("roster_deltas_sent", stats.RosterSent))
}

// Controller exposes the state machine for the monitoring API.
func (b *Bot) Controller() *Controller { return b.controller }

// Roster exposes the participant roster for the monitoring API.
func (b *Bot) Roster() *roster.Roster { return b.roster }

// Buffers exposes the audio buffer manager for the monitoring API.
func (b *Bot) Buffers() *audio.Manager { return b.buffers }

// Delivery exposes the delivery client for the monitoring API.
func (b *Bot) Delivery() *delivery.Client { return b.client }
