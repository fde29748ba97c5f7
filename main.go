package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/futurelink/zbot/internal/biz/usecase"
	"github.com/futurelink/zbot/internal/conf"
	"github.com/futurelink/zbot/internal/data"
	"github.com/futurelink/zbot/internal/infra/media"
	"github.com/futurelink/zbot/internal/infra/wa"
	"github.com/futurelink/zbot/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	for _, dir := range []string{cfg.StateDir, filepath.Dir(cfg.SessionDB), cfg.DownloadDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal().Err(err).Str("dir", dir).Msg("failed to create directory")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := data.NewStore(cfg.StateDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open state store")
	}
	repos := data.NewRepositories(store)

	loc := cfg.Location()
	registry := usecase.NewRegistry(repos.Contacts, cfg.OwnerJIDs(), cfg.SpecialJIDs(), loc, logger)
	registry.Start(ctx)
	defer registry.Stop()

	guard := usecase.NewFloodGuard(usecase.FloodWindow, usecase.FloodThreshold)

	manager, err := wa.NewManager(ctx, cfg.SessionDB, cfg.PairPhone, cfg.SendRatePerMinute, cfg.ReconnectDelay(), repos.Settings, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init session manager")
	}
	transport := manager.Transport()

	var aiClient *openai.Client
	if cfg.OpenAIKey != "" {
		aiClient = openai.NewClient(cfg.OpenAIKey)
	} else {
		logger.Warn().Msg("OPENAI_API_KEY not set, AI commands disabled")
	}

	mediaClient := media.NewClient(cfg.MediaAPIBase, logger)

	stats := service.NewStats()
	broadcaster := service.NewBroadcaster(registry, transport, cfg.BroadcastDelay(), loc, logger)
	retention := service.NewRetention(repos.Settings, repos.ChatLog, logger)

	router := service.NewRouter(cfg.Prefix, repos.History, transport, loc, logger)
	admin := service.NewAdminHandler(registry, repos.Settings, repos.ChatLog, transport, broadcaster, stats, mediaClient, cfg.Prefix, cfg.StateDir, loc, logger)
	admin.Register(router)
	ai := service.NewAIHandler(aiClient, cfg.OpenAIModel, transport, logger)
	ai.Register(router)
	downloads := service.NewDownloadHandler(transport, mediaClient, cfg.Prefix, logger)
	downloads.Register(router)
	stickers := service.NewStickerHandler(transport, cfg.Prefix, logger)
	stickers.Register(router)

	status := service.NewStatusHandler(repos.Settings, transport, cfg.DownloadDir, logger)

	owner := ""
	if owners := cfg.OwnerJIDs(); len(owners) > 0 {
		owner = owners[0]
	}
	privacy := service.NewPrivacyHandler(transport, owner, logger)

	ingest := service.NewIngestService(registry, guard, repos.Settings, repos.ChatLog, transport, router, status, privacy, stats, loc, logger)
	manager.SetSink(ingest)

	manager.OnConnected(func() {
		if err := broadcaster.Start(service.DefaultJobs()); err != nil {
			logger.Error().Err(err).Msg("failed to start broadcast scheduler")
		}
		retention.Start(ctx)
		logger.Info().Str("bot", cfg.BotName).Msg("bot is up")
	})

	logger.Info().Str("bot", cfg.BotName).Str("tz", cfg.Timezone).Msg("starting")
	if err := manager.Run(ctx); err != nil {
		if errors.Is(err, wa.ErrLoggedOut) {
			logger.Error().Msg("session terminated remotely, re-pair required on next start")
		} else {
			logger.Fatal().Err(err).Msg("session manager stopped")
		}
	}

	broadcaster.Stop()
	logger.Info().Msg("shutdown complete")
}
