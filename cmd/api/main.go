package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"stellar-pets-api/internal/cache"
	"stellar-pets-api/internal/config"
	"stellar-pets-api/internal/handler"
	"stellar-pets-api/internal/logger"
	"stellar-pets-api/internal/middleware"
	"stellar-pets-api/internal/notify"
	"stellar-pets-api/internal/repository"
	"stellar-pets-api/internal/router"
	"stellar-pets-api/internal/service"
)

func main() {
	cfg := config.MustLoad()

	log := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		App:    cfg.App.Name,
	})
	log.WithFields(logrus.Fields{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("starting stellar pets API")

	// Initialize the keyed store based on config
	store, err := openStore(cfg.Store)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize store")
	}
	defer store.Close()
	log.WithField("store", cfg.Store.Type).Info("store initialized")

	// Initialize Redis client (optional, falls back to memory)
	var redisClient *redis.Client
	if cfg.Cache.Type == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis connection failed, using in-memory cache and log-only events")
			_ = redisClient.Close()
			redisClient = nil
		} else {
			log.WithField("addr", cfg.Cache.RedisAddress()).Info("redis client initialized")
		}
		cancel()
	}

	var (
		authCache cache.Cache
		cacheType string
		sink      notify.Sink
	)
	logSink := notify.NewLogSink(logger.Component(log, "events"))
	if redisClient != nil {
		defer redisClient.Close()
		authCache = cache.NewRedisCache(redisClient, cfg.Cache.KeyPrefix)
		cacheType = "redis"
		sink = notify.Multi{notify.NewRedisSink(redisClient, cfg.Cache.KeyPrefix, cfg.Cache.StreamMaxLen), logSink}
	} else {
		memCache := cache.NewMemoryCache()
		defer memCache.Close()
		authCache = memCache
		cacheType = "memory"
		sink = logSink
	}

	// Initialize services
	deps := service.Deps{
		Store:  store,
		Auth:   service.ContextGate{},
		Sink:   sink,
		Clock:  service.SystemClock{},
		Logger: log,
	}
	petLedger := service.NewPetLedger(deps, service.PetLedgerOptions{
		DecayAdvancesAnchor: cfg.Ledger.DecayAdvancesAnchor,
	})
	goalLedger := service.NewGoalLedger(deps)
	tokenService := service.NewTokenService(authCache, service.TokenOptions{
		ChallengeTTL: cfg.Auth.ChallengeTTL,
		TokenTTL:     cfg.Auth.TokenTTL,
	}, log)

	var scheduler *service.DecayScheduler
	if cfg.Ledger.DecaySchedule != "" {
		scheduler, err = service.NewDecayScheduler(petLedger, cfg.Ledger.DecaySchedule, log)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize decay scheduler")
		}
		scheduler.Start()
	}

	devHeader := cfg.Auth.DevHeader && cfg.App.IsDevelopment()
	if devHeader {
		log.Warn("dev owner header enabled; never run this configuration in production")
	}

	stopCleanup := make(chan struct{})
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger.Component(log, "ratelimit"))
	limiter.StartCleanup(time.Minute, stopCleanup)

	storeProbe := func(ctx context.Context) error {
		_, err := store.Stats(ctx)
		return err
	}

	r := router.New(router.Config{
		Handler: handler.New(cfg.App.Name, cfg.App.Version,
			handler.ReadyCheck{Name: "store", Probe: storeProbe},
			handler.ReadyCheck{Name: "cache", Probe: authCache.Ping},
		),
		PetHandler:   handler.NewPetHandler(petLedger),
		GoalHandler:  handler.NewGoalHandler(goalLedger),
		AuthHandler:  handler.NewAuthHandler(tokenService),
		AdminHandler: handler.NewAdminHandler(store, petLedger, authCache.Ping, cfg.Store.Type, cacheType),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthConfig{
			Tokens:         tokenService,
			AllowDevHeader: devHeader,
			Logger:         logger.Component(log, "auth"),
		}),
		AdminMiddleware: middleware.RequireAPIKey(cfg.Auth.AdminKeys),
		RateLimiter:     limiter,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		Logger:          logger.Component(log, "http"),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.WithField("addr", cfg.Server.Address()).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}

	// Stop the sweep after the server so no request races a half-finished sweep.
	if scheduler != nil {
		scheduler.Stop()
	}
	close(stopCleanup)

	log.Info("server stopped")
}

func openStore(cfg config.StoreConfig) (repository.Store, error) {
	switch cfg.Type {
	case "sqlite", "":
		return repository.NewSQLiteStore(cfg.Path)
	case "postgres", "postgresql":
		return repository.NewPostgresStore(cfg.PostgresDSN())
	case "mysql":
		return repository.NewMySQLStore(cfg.MySQLDSN())
	case "memory":
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_TYPE %q", cfg.Type)
	}
}
