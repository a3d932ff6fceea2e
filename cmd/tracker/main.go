package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/user/ytlive-tracker-go/internal/archive"
	"github.com/user/ytlive-tracker-go/internal/channels"
	"github.com/user/ytlive-tracker-go/internal/config"
	"github.com/user/ytlive-tracker-go/internal/discovery"
	"github.com/user/ytlive-tracker-go/internal/event"
	"github.com/user/ytlive-tracker-go/internal/notify"
	"github.com/user/ytlive-tracker-go/internal/refresh"
	"github.com/user/ytlive-tracker-go/internal/scheduler"
	"github.com/user/ytlive-tracker-go/internal/server"
	"github.com/user/ytlive-tracker-go/internal/store"
	"github.com/user/ytlive-tracker-go/internal/youtube"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout = 30 * time.Second
)

func main() {
	// Structured JSON logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mysqlStore, err := store.NewMySQLStore(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Msg("Database connection established")

	ytClient, err := youtube.NewClient(ctx, cfg.YouTube.APIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create YouTube client")
	}
	log.Info().Msg("YouTube client initialized")

	// Seed the channel registry before anything runs against it.
	loader := channels.NewLoader(cfg.Tracker.ChannelsDir)
	registry, err := loader.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load channel registry")
	}
	seeded, err := mysqlStore.SeedChannels(ctx, registry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed channels")
	}
	log.Info().Int("seeded", seeded).Int("total", len(registry)).Msg("Channel registry seeded")

	notifier := buildNotifier(&cfg.Notify)

	bus := event.NewBus(mysqlStore, notifier)
	bus.Start(ctx)
	log.Info().Msg("Event bus started")

	cache := discovery.NewFeedCache(cfg.Tracker.FeedCacheTTL, nil)
	feed := discovery.NewFeedDiscovery(cache, bus, nil)
	playlist := discovery.NewPlaylistDiscovery(ytClient, bus, nil)
	selector := refresh.NewSelector(mysqlStore, ytClient, bus, nil)
	updater := channels.NewUpdater(ytClient, bus, nil)

	var archiver scheduler.Archiver
	if cfg.Archive.Enabled {
		media := archive.NewYtdlpClient(cfg.Archive.YtdlpPath)
		archiver = archive.NewArchiver(mysqlStore, media, cfg.Archive.Dir)
		log.Info().Str("dir", cfg.Archive.Dir).Msg("Archiver enabled")
	}

	sched := scheduler.NewScheduler(feed, playlist, selector, archiver, updater, mysqlStore, bus, scheduler.Intervals{
		Feed:    cfg.Tracker.FeedInterval,
		Refresh: cfg.Tracker.RefreshInterval,
		Archive: cfg.Archive.Interval,
	})

	httpServer := server.NewServer(mysqlStore)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.Start(cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Backfill updates channel stats and scrapes new channels' backlogs,
	// then the periodic jobs take over.
	go sched.Backfill(ctx)

	sched.Start(ctx)
	log.Info().Msg("Scheduler started")

	log.Info().Msg("Tracker started successfully")

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	log.Info().Msg("Starting graceful shutdown...")

	// 1. Stop producing new work
	sched.Stop()

	// 2. Drain queued batches
	bus.Stop()
	log.Info().Msg("Event bus stopped")

	// 3. Stop HTTP server
	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	} else {
		log.Info().Msg("HTTP server stopped")
	}

	// 4. Close database connection pool
	if err := mysqlStore.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	} else {
		log.Info().Msg("Database connection closed")
	}

	cancel()
	log.Info().Msg("Graceful shutdown completed")
}

// buildNotifier wires the configured outbound sink, or none.
func buildNotifier(cfg *config.NotifyConfig) *notify.Notifier {
	var sink notify.Sink

	switch {
	case cfg.WebhookURL != "":
		sink = notify.NewWebhookSink(cfg.WebhookURL)
		log.Info().Msg("Webhook notification sink initialized")
	case cfg.TelegramToken != "":
		telegram, err := notify.NewTelegramSink(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Telegram sink")
		}
		sink = telegram
		log.Info().Msg("Telegram notification sink initialized")
	default:
		log.Warn().Msg("No notification sink configured, new videos will not be announced")
		return nil
	}

	notifier := notify.New(sink)
	notifier.OnResult(server.CountNotification)
	return notifier
}
