package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SpaceshipxDev/super-tribble/internal/api"
	"github.com/SpaceshipxDev/super-tribble/internal/config"
	"github.com/SpaceshipxDev/super-tribble/internal/llm"
	"github.com/SpaceshipxDev/super-tribble/internal/llm/gemini"
	"github.com/SpaceshipxDev/super-tribble/internal/llm/openai"
	"github.com/SpaceshipxDev/super-tribble/internal/logging"
	"github.com/SpaceshipxDev/super-tribble/internal/repository/postgres"
	"github.com/SpaceshipxDev/super-tribble/internal/repository/redis"
	"github.com/SpaceshipxDev/super-tribble/internal/repository/sqlite"
)

func main() {
	// Load .env file - try a few locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := logging.Setup(cfg.Logging); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("driver", cfg.Database.Driver).
		Msg("Starting chat server")

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer closeStore()

	// Redis is optional; without it chat simply runs unthrottled.
	var limiter *redis.RateLimiter
	if cfg.Redis.Enabled() {
		redisClient, err := redis.NewClient(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		limiter = redis.NewRateLimiter(redisClient, cfg.Redis.Limit.RequestsPerMinute, cfg.Redis.Limit.Burst)
	}

	llmRouter := llm.NewRouter(cfg.LLM.Provider)
	llmRouter.RegisterProvider(openai.NewProvider(cfg.LLM.OpenAI))
	llmRouter.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini))
	log.Info().Strs("configured", llmRouter.ListProviders()).Str("default", llmRouter.DefaultProvider()).Msg("LLM providers registered")

	router, err := api.NewRouter(cfg, store, llmRouter, limiter)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build router")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// openStore connects to the configured backend and applies pending migrations
func openStore(cfg *config.Config) (api.Store, func(), error) {
	ctx := context.Background()

	if cfg.Database.Driver == "postgres" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return api.Store{}, nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return api.Store{}, nil, err
		}
		return api.Store{
			Conversations: postgres.NewConversationRepository(db),
			Messages:      postgres.NewMessageRepository(db),
			Memos:         postgres.NewMemoRepository(db),
			Pinger:        db,
		}, db.Close, nil
	}

	db, err := sqlite.NewDB(ctx, cfg.Database)
	if err != nil {
		return api.Store{}, nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return api.Store{}, nil, err
	}
	return api.Store{
		Conversations: sqlite.NewConversationRepository(db),
		Messages:      sqlite.NewMessageRepository(db),
		Memos:         sqlite.NewMemoRepository(db),
		Pinger:        db,
	}, func() { db.Close() }, nil
}
