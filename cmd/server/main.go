package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/af-corp/wayfinder/internal/api"
	"github.com/af-corp/wayfinder/internal/config"
	"github.com/af-corp/wayfinder/internal/filter"
	"github.com/af-corp/wayfinder/internal/filter/injection"
	"github.com/af-corp/wayfinder/internal/filter/policy"
	"github.com/af-corp/wayfinder/internal/filter/secrets"
	"github.com/af-corp/wayfinder/internal/ratelimit"
	"github.com/af-corp/wayfinder/internal/router"
	"github.com/af-corp/wayfinder/internal/store"
	"github.com/af-corp/wayfinder/internal/telemetry"
	"github.com/af-corp/wayfinder/internal/travel"
	"github.com/af-corp/wayfinder/internal/weather"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	envFlag := flag.String("env", "", "environment overlay to load (default: $APP_ENV or development)")
	flag.Parse()

	env := config.EnvironmentName(*envFlag)
	if env != "production" {
		// a missing .env is normal outside local development
		_ = godotenv.Load()
	}

	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	resolver := config.NewResolver(*configDir, bootLogger)
	cfg, err := resolver.Resolve(env)
	if err != nil {
		var cerr *config.ConfigError
		if errors.As(err, &cerr) {
			bootLogger.Error("invalid configuration", "missing", cerr.Missing, "invalid", cerr.Invalid)
		} else {
			bootLogger.Error("failed to load configuration", "error", err)
		}
		os.Exit(1)
	}

	logger := telemetry.NewLogger(cfg.Telemetry, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := resolver.Watch(ctx, env, func(_ *config.Config, err error) {
		if err != nil {
			logger.Warn("changed configuration is invalid; keeping the running configuration", "error", err)
			return
		}
		logger.Info("configuration changed on disk; restart to apply")
	}); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	// PostgreSQL
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(cfg.Database.DSN(), logger); err != nil {
			logger.Error("database migration failed", "error", err)
			os.Exit(1)
		}
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		logger.Error("invalid database configuration", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		logger.Warn("database not reachable (catalogue requests will fail)", "error", err)
	} else {
		logger.Info("database connected", "host", cfg.Database.Host, "name", cfg.Database.Name)
	}

	// Redis
	var rdb *redis.Client
	if len(cfg.Redis.Addresses) > 0 && cfg.Redis.Addresses[0] != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addresses[0],
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not reachable (using in-process caches and limits)", "error", err)
			rdb = nil
		} else {
			logger.Info("redis connected")
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	// Providers
	registry := router.BuildClients(cfg.AIModels, cfg.Routing.DefaultTimeout, logger)
	healthTracker := router.NewHealthTracker(
		cfg.Routing.CircuitBreaker.FailureThreshold,
		cfg.Routing.CircuitBreaker.RecoveryProbeInterval,
	)
	dispatcher := router.NewDispatcher(registry, cfg.AIModels,
		router.WithHealthTracker(healthTracker),
		router.WithAttemptObserver(metrics.RecordProviderAttempt),
		router.WithDispatchTimeout(cfg.Routing.DispatchTimeout),
		router.WithLogger(logger),
	)
	structured := router.NewStructuredDecoder(dispatcher)
	logger.Info("provider fallback order", "providers", dispatcher.Order(), "clients", registry.Providers())

	// Prompt guard
	guard := cfg.Guard
	policyEval := policy.NewEvaluator(func() config.PolicyFilterConfig { return guard.Policy })
	if guard.Policy.Enabled {
		if err := policyEval.Load(ctx); err != nil {
			logger.Error("failed to load prompt policies", "path", guard.Policy.BundlePath, "error", err)
			os.Exit(1)
		}
	}
	chain := filter.NewChain(
		secrets.NewScanner(func() config.SecretsFilterConfig { return guard.Secrets }),
		injection.NewScanner(func() config.InjectionFilterConfig { return guard.Injection }),
		policyEval,
	)

	// Travel services
	destinations := store.NewDestinationStore(dbPool)
	attractions := store.NewAttractionStore(dbPool)
	forecasts := weather.NewService(cfg.Weather,
		weather.WithDestinationFinder(destinations),
		weather.WithRedis(rdb),
		weather.WithMetrics(metrics),
		weather.WithLogger(logger),
	)
	recommender := travel.NewRecommender(destinations, attractions, logger)
	planner := travel.NewPlanner(recommender, forecasts, structured, logger)

	handler := api.NewHandler(api.Deps{
		Recommender:  recommender,
		Destinations: destinations,
		Weather:      forecasts,
		Planner:      planner,
		Generator:    dispatcher,
		Structured:   structured,
		Providers:    dispatcher,
		Guard:        chain,
		Metrics:      metrics,
		DB:           dbPool,
		Logger:       logger,
		Version:      version,
	})

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(api.RequestID)
	r.Use(telemetry.Middleware(metrics, logger))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(ratelimit.NewLimiter(rdb, logger), cfg.RateLimit, metrics))
		handler.Mount(r, cfg.Server.BasePath)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr, "env", env, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	logger.Info("server stopped")
}
