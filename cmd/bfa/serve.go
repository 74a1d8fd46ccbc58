package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fialo-ai/fialo-bfa-go/internal/config"
	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/handler"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/cache"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/client"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/observability"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/persist"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/resilience"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/supabase"
	"github.com/fialo-ai/fialo-bfa-go/internal/port"
	"github.com/fialo-ai/fialo-bfa-go/internal/service"
	"github.com/fialo-ai/fialo-bfa-go/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(envFile); err != nil {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFile)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("persist_backend", cfg.PersistBackend),
		zap.Bool("remote_auth", cfg.AuthAPIURL != ""),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "fialo-bfa")
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Persistence ---
	snapshots, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// --- Authenticator ---
	var authenticator port.Authenticator
	var tokens handler.TokenValidator
	if cfg.AuthAPIURL != "" {
		logger.Info("using remote authenticator", zap.String("auth_api_url", cfg.AuthAPIURL))
		authenticator = client.NewAuthClient(httpClient, cfg.AuthAPIURL, resilience.NewCircuitBreaker("auth-api"), resilienceCfg)
	} else {
		logger.Info("using built-in authenticator")
		local := service.NewLocalAuthenticator(snapshots, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
		authenticator, tokens = local, local
	}

	// --- Stores ---
	authStore := store.NewAuthStore(snapshots, authenticator, logger, metrics)
	profileStore := store.NewProfileStore(snapshots, logger, metrics)
	wasteStore := store.NewWasteStore(snapshots, logger, metrics)
	stores := []store.Lifecycle{authStore, profileStore, wasteStore}

	hydrateCtx, cancelHydrate := context.WithTimeout(parent, 30*time.Second)
	err = store.Hydrate(hydrateCtx, logger, stores...)
	cancelHydrate()
	if err != nil {
		return fmt.Errorf("hydrate stores: %w", err)
	}

	// --- Analyzer ---
	analysisCache := cache.New[*domain.AnalysisResult](cfg.CacheTTL)
	defer analysisCache.Close()

	simulator := client.NewSimulationClient(httpClient, cfg.SimulationAPIURL, resilience.NewCircuitBreaker("simulation-api"), resilienceCfg)
	analyzer := service.NewAnalyzer(simulator, profileStore, wasteStore, analysisCache,
		service.AnalyzerConfig{
			EnergyCostPerKWh: cfg.EnergyCostPerKWh,
			SimulationDays:   cfg.SimulationDays,
			PhaseDelay:       cfg.AnalysisPhaseDelay,
			MaxConcurrency:   cfg.MaxConcurrency,
		},
		metrics, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Auth:        authStore,
		Profiles:    profileStore,
		Entries:     wasteStore,
		Analyzer:    analyzer,
		Snapshots:   snapshots,
		Tokens:      tokens,
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     metrics,
		Logger:      logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}
	if err := store.FlushAll(shutdownCtx, stores...); err != nil {
		logger.Error("flush stores", zap.Error(err))
	}

	logger.Info("server stopped")
	return nil
}

func openBackend(cfg *config.Config, logger *zap.Logger) (port.SnapshotStore, error) {
	if cfg.PersistBackend == "supabase" {
		if cfg.SupabaseURL == "" {
			return nil, fmt.Errorf("supabase backend requires SUPABASE_URL")
		}
		c := supabase.NewClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.SupabaseURL,
			cfg.SupabaseAnonKey, cfg.SupabaseServiceKey, resilience.NewCircuitBreaker("supabase"),
			resilience.Config{MaxRetries: cfg.MaxRetries, InitialBackoff: cfg.InitialBackoff}, logger)
		return supabase.NewSnapshotStore(c, cfg.SupabaseTable), nil
	}

	snapshots, err := persist.Open(persist.Options{
		Backend:       cfg.PersistBackend,
		DataDir:       cfg.DataDir,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisPrefix:   cfg.RedisPrefix,
		DatabaseDSN:   cfg.DatabaseDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.PersistBackend, err)
	}
	return snapshots, nil
}
