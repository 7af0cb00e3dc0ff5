package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nassor22/maarifaHub/internal/api/middleware"
	"github.com/nassor22/maarifaHub/internal/handlers"
)

// maxBodyBytes leaves room for JSON framing around a 4096 byte message.
const maxBodyBytes = 8 * 1024

// Options configures the router.
type Options struct {
	AuthTokenHash string
	RateLimit     middleware.RateLimiterConfig
	Redis         *redis.Client // nil selects in-process rate limiting
}

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(maxBodyBytes))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	limiter := middleware.NewRateLimiter(opts.Redis, logger, opts.RateLimit)
	r.Use(limiter.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	auth := middleware.NewAuthMiddleware(opts.AuthTokenHash, logger)
	if !auth.Enabled() {
		logger.Warn().Msg("AUTH_TOKEN_HASH not set, mutating routes are open")
	}

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/notifications", h.ListNotifications)
	r.Get("/events", h.RecentEvents)

	r.Route("/messages/conversations", func(r chi.Router) {
		r.Get("/", h.ListConversations)
		r.Get("/{id}", h.GetConversation)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)

			r.Post("/", h.StartConversation)
			r.Post("/{id}/select", h.SelectConversation)
			r.Post("/{id}/messages", h.SendMessage)
		})
	})

	return r
}
