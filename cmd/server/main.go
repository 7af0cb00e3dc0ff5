package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nassor22/maarifaHub/internal/api"
	"github.com/nassor22/maarifaHub/internal/api/middleware"
	"github.com/nassor22/maarifaHub/internal/config"
	"github.com/nassor22/maarifaHub/internal/feed"
	"github.com/nassor22/maarifaHub/internal/handlers"
	"github.com/nassor22/maarifaHub/internal/inbox"
	"github.com/nassor22/maarifaHub/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fixtures, err := store.LoadFixtures(cfg.FixturesFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("fixtures load failed")
	}

	// Roster source
	source, err := store.Open(ctx, cfg.DatabaseURL, fixtures)
	if err != nil {
		logger.Fatal().Err(err).Msg("roster source connection failed")
	}
	defer source.Close()
	logger.Info().Str("source", source.Name()).Msg("roster source ready")

	roster, notes, err := store.Load(ctx, source)
	if err != nil {
		logger.Fatal().Err(err).Msg("roster load failed")
	}

	// Initialize Redis store
	var redisStore *store.RedisStore
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		redisClient = redisStore.Client()
		logger.Info().Msg("connected to Redis")
	}

	session, err := inbox.NewSession(roster, inbox.Options{
		ReplyMinDelay: cfg.ReplyMinDelay,
		ReplyMaxDelay: cfg.ReplyMaxDelay,
		Logger:        logger.With().Str("component", "inbox").Logger(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("session setup failed")
	}
	defer session.Close()

	logger.Info().
		Int("conversations", len(roster.Conversations)).
		Int("notifications", len(notes)).
		Str("active", session.Active()).
		Msg("session ready")

	h := handlers.NewHandler(session, feed.New(notes), source, redisStore, logger)
	router := api.NewRouter(logger, h, api.Options{
		AuthTokenHash: cfg.AuthTokenHash,
		Redis:         redisClient,
		RateLimit: middleware.RateLimiterConfig{
			Whitelist:        cfg.RateLimitWhitelist,
			AutoBlockEnabled: cfg.AutoBlockEnabled,
		},
	})

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting MaarifaHub messages server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if redisStore != nil {
		events, unsubscribe := session.Subscribe(256)
		g.Go(func() error {
			defer unsubscribe()
			redisStore.MirrorEvents(gctx, events, func(err error) {
				logger.Warn().Err(err).Msg("event mirror write failed")
			})
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server...")

		// Graceful shutdown with 30 second timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}

	logger.Info().Msg("server stopped")
}
