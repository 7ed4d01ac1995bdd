package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"stellar-pets-api/internal/handler"
	"stellar-pets-api/internal/logger"
	"stellar-pets-api/internal/metrics"
	"stellar-pets-api/internal/middleware"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler      *handler.Handler
	PetHandler   *handler.PetHandler
	GoalHandler  *handler.GoalHandler
	AuthHandler  *handler.AuthHandler
	AdminHandler *handler.AdminHandler

	AuthMiddleware  func(http.Handler) http.Handler
	AdminMiddleware func(http.Handler) http.Handler
	RateLimiter     *middleware.RateLimiter

	AllowedOrigins []string
	Logger         logrus.FieldLogger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(metrics.InstrumentHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", "X-Token"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// PUBLIC operational routes
	if cfg.Handler != nil {
		r.Get("/health", cfg.Handler.Health)
		r.Get("/ready", cfg.Handler.Ready)
		r.Get("/api/status", cfg.Handler.Status)
	}
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Resolve the caller before limiting so buckets are per owner.
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Handler)
		}

		// Auth endpoints
		if cfg.AuthHandler != nil {
			r.Route("/auth", func(r chi.Router) {
				r.Post("/challenge", cfg.AuthHandler.Challenge)
				r.Post("/token", cfg.AuthHandler.GenerateToken)
				r.Post("/revoke", cfg.AuthHandler.RevokeToken)
				r.Post("/refresh", cfg.AuthHandler.RefreshToken)
			})
		}

		// Pet ledger endpoints
		if cfg.PetHandler != nil {
			r.Get("/leaderboard", cfg.PetHandler.Leaderboard)
			r.Route("/pets", func(r chi.Router) {
				r.Post("/", cfg.PetHandler.Mint)
				r.Get("/count", cfg.PetHandler.Count)
				r.Route("/{owner}", func(r chi.Router) {
					r.Get("/", cfg.PetHandler.Get)
					r.Get("/staking", cfg.PetHandler.GetStaking)
					r.Post("/feed", cfg.PetHandler.Feed)
					r.Post("/withdraw", cfg.PetHandler.Withdraw)
					r.Post("/decay", cfg.PetHandler.Decay)
					r.Get("/history", cfg.PetHandler.History)
				})
			})
		}

		// Goal ledger endpoints
		if cfg.GoalHandler != nil {
			r.Route("/goals", func(r chi.Router) {
				r.Post("/", cfg.GoalHandler.Create)
				r.Route("/{owner}", func(r chi.Router) {
					r.Get("/", cfg.GoalHandler.Get)
					r.Post("/deposit", cfg.GoalHandler.Deposit)
					r.Post("/withdraw", cfg.GoalHandler.Withdraw)
					r.Get("/progress", cfg.GoalHandler.Progress)
					r.Get("/balance", cfg.GoalHandler.Balance)
					r.Get("/history", cfg.GoalHandler.History)
				})
			})
		}

		// Admin endpoints
		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				if cfg.AdminMiddleware != nil {
					r.Use(cfg.AdminMiddleware)
				}
				r.Get("/stats", cfg.AdminHandler.GetStats)
			})
		}
	})

	return r
}
