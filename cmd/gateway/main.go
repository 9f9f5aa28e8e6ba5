package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tutorhub/tutor-gateway/internal/ai"
	"github.com/tutorhub/tutor-gateway/internal/cache"
	"github.com/tutorhub/tutor-gateway/internal/channel"
	"github.com/tutorhub/tutor-gateway/internal/channel/discord"
	"github.com/tutorhub/tutor-gateway/internal/channel/telegram"
	"github.com/tutorhub/tutor-gateway/internal/channel/webchat"
	"github.com/tutorhub/tutor-gateway/internal/config"
	"github.com/tutorhub/tutor-gateway/internal/logging"
	"github.com/tutorhub/tutor-gateway/internal/normalize"
	"github.com/tutorhub/tutor-gateway/internal/orchestrator"
	"github.com/tutorhub/tutor-gateway/internal/ratelimit"
	"github.com/tutorhub/tutor-gateway/internal/registry"
	"github.com/tutorhub/tutor-gateway/internal/scheduler"
	"github.com/tutorhub/tutor-gateway/internal/server"
	"github.com/tutorhub/tutor-gateway/internal/session"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the config file")
	flag.Parse()

	// Secrets may come from a local .env during development.
	_ = godotenv.Load()

	logger := logging.WithComponent("main")
	logger.Info("Starting tutor-gateway", "version", version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Completion provider
	gateway, err := ai.NewProvider(cfg.Provider)
	if err != nil {
		logger.Error("Failed to create provider", "error", err)
		os.Exit(1)
	}
	if err := gateway.Health(); err != nil {
		logger.Warn("Provider health check failed", "provider", cfg.Provider.Type, "error", err)
	} else {
		logger.Info("Provider OK", "provider", cfg.Provider.Type)
	}

	// Photo and voice extraction ride on the OpenAI APIs; with another
	// provider those modalities degrade to a polite unavailable reply.
	var ocr normalize.OCRService
	var speech normalize.SpeechService
	if cfg.Provider.Type == "openai" {
		ocr = normalize.NewOpenAIOCR(cfg.Provider.OpenAI)
		speech = normalize.NewWhisper(cfg.Provider.OpenAI)
	}
	normalizer := normalize.New(ocr, speech, cfg.Languages.Speech)

	// User registry
	var users registry.Registry
	if cfg.Redis.Enabled {
		redisReg, err := registry.NewRedis(cfg.Redis)
		if err != nil {
			logger.Error("Failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisReg.Close()
		users = redisReg
		logger.Info("User registry backed by redis", "addr", cfg.Redis.Addr)
	} else {
		users = registry.NewMemory()
		logger.Info("User registry in memory")
	}

	limiter := ratelimit.New(cfg.RateLimit.Limit, cfg.RateLimit.Window.Std())
	sessions := session.NewStore()
	replies := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL.Std())

	orch := orchestrator.New(orchestrator.Deps{
		Limiter:       limiter,
		Sessions:      sessions,
		Normalizer:    normalizer,
		Gateway:       gateway,
		Replies:       replies,
		Users:         users,
		Subjects:      cfg.Subjects,
		Tasks:         cfg.Tasks,
		PrimaryLang:   cfg.Languages.Primary,
		SecondaryLang: cfg.Languages.Secondary,
		Logger:        logging.WithComponent("orchestrator"),
	})

	sched, err := scheduler.New(sessions, limiter, cfg.Sessions.IdleTTL.Std(), cfg.Sessions.SweepSchedule, logging.WithComponent("scheduler"))
	if err != nil {
		logger.Error("Failed to create scheduler", "error", err)
		os.Exit(1)
	}
	sched.Start()
	logger.Info("Scheduler started", "schedule", cfg.Sessions.SweepSchedule)

	// Channel adapters
	var adapters []channel.Adapter
	if cfg.Channels.Telegram.Enabled {
		adapters = append(adapters, telegram.New(cfg.Channels.Telegram.Token))
	}
	if cfg.Channels.Discord.Enabled {
		adapters = append(adapters, discord.New(cfg.Channels.Discord.Token))
	}
	if cfg.Channels.WebChat.Enabled {
		adapters = append(adapters, webchat.New(cfg.Channels.WebChat.Port))
	}
	if len(adapters) == 0 {
		logger.Error("No channels enabled")
		os.Exit(1)
	}

	channelStatus := make(map[string]bool, len(adapters))
	for _, adapter := range adapters {
		if err := adapter.Start(ctx); err != nil {
			logger.Error("Failed to start adapter", "adapter", adapter.Name(), "error", err)
			channelStatus[adapter.Name()] = false
			continue
		}
		channelStatus[adapter.Name()] = true
		logger.Info("Adapter started", "adapter", adapter.Name())
		go orch.Run(ctx, adapter)
	}

	// Ops HTTP server
	checks := []server.Check{
		{Name: "provider", Probe: gateway.Health},
		{Name: "registry", Probe: users.Health},
	}
	srv := server.New(cfg, checks, sessions, replies, channelStatus, logging.WithComponent("server"))
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	for _, adapter := range adapters {
		if !channelStatus[adapter.Name()] {
			continue
		}
		if err := adapter.Stop(); err != nil {
			logger.Error("Failed to stop adapter", "adapter", adapter.Name(), "error", err)
		} else {
			logger.Info("Adapter stopped", "adapter", adapter.Name())
		}
	}

	sched.Stop()
	logger.Info("Scheduler stopped")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	logger.Info("Shutdown complete")
}
