package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/catalog"
	"github.com/boddenberg/supervisor-bfa-go/internal/config"
	"github.com/boddenberg/supervisor-bfa-go/internal/handler"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/cache"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/client"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/drafts"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/observability"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/supervisor-bfa-go/internal/port"
	"github.com/boddenberg/supervisor-bfa-go/internal/service"
	"github.com/boddenberg/supervisor-bfa-go/internal/skills"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Bool("redis_drafts", cfg.RedisAddr != ""),
		zap.Bool("dev_auth", cfg.DevAuth),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("textgen_timeout", cfg.TextGenTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("draft_ttl", cfg.DraftTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("default_target_level", cfg.DefaultTargetLevel),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "supervisor-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Catalog ---
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}

	// --- Cache ---
	dashboardCache := cache.New[any](cfg.CacheTTL)
	defer dashboardCache.Stop()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// --- Store ---
	var store port.Store
	switch cfg.StoreBackend {
	case config.StoreSupabase:
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		store = supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			resilienceCfg,
			logger,
		)
	default:
		sq, err := sqlite.New(cfg.SQLiteDataDir, logger)
		if err != nil {
			logger.Fatal("failed to open sqlite store", zap.Error(err))
		}
		defer sq.Close()
		store = sq
	}

	checks := []handler.HealthCheck{{Name: cfg.StoreBackend, Ping: store.Ping}}

	// --- Wizard drafts ---
	var draftStore port.DraftStore
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rs, err := drafts.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.DraftTTL, logger)
		cancel()
		if err != nil {
			logger.Fatal("failed to connect draft store", zap.Error(err))
		}
		defer rs.Close()
		draftStore = rs
		checks = append(checks, handler.HealthCheck{Name: "redis", Ping: rs.Ping})
	} else {
		logger.Warn("REDIS_ADDR not set, wizard drafts kept in memory")
		ms := drafts.NewMemoryStore(cfg.DraftTTL)
		defer ms.Close()
		draftStore = ms
	}

	// --- Text generation ---
	textGen := client.NewTextGenClient(
		httpClient,
		cfg.TextGenAPIURL,
		cfg.TextGenTimeout,
		resilience.NewCircuitBreaker("textgen"),
		resilienceCfg,
	)

	// --- Services ---
	resolver := skills.NewResolver(cfg.DefaultTargetLevel)
	dashboardSvc := service.NewDashboardService(store, resolver, dashboardCache, metrics, logger)

	svc := handler.Services{
		Operators:      service.NewOperatorService(store, store, resolver, cat, dashboardCache, metrics, logger),
		Training:       service.NewTrainingService(store, store, store, dashboardCache, metrics, logger),
		Dashboard:      dashboardSvc,
		Investigations: service.NewInvestigationService(store, draftStore, cat, dashboardCache, metrics, logger),
		PDIs:           service.NewPDIService(store, store, metrics, logger),
		Assistant:      service.NewAssistant(textGen, dashboardSvc, store, metrics, logger),
		Catalog:        cat,
	}

	var validator *handler.TokenValidator
	if cfg.JWTSecret != "" {
		validator = handler.NewTokenValidator(cfg.JWTSecret)
	}

	// --- Router ---
	router := handler.NewRouter(svc, handler.Options{
		Validator:      validator,
		DevAuth:        cfg.DevAuth,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		HealthChecks:   checks,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
