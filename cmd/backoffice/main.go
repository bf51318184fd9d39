// Package main is the entry point for the LKP Mandiri back-office server.
// It wires all dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lkpmandiri/backoffice/internal/api"
	"github.com/lkpmandiri/backoffice/internal/config"
	"github.com/lkpmandiri/backoffice/internal/definition"
	"github.com/lkpmandiri/backoffice/internal/lookup"
	"github.com/lkpmandiri/backoffice/internal/observability"
	"github.com/lkpmandiri/backoffice/internal/openapi"
	"github.com/lkpmandiri/backoffice/internal/session"
	"github.com/lkpmandiri/backoffice/internal/transport"
	"github.com/lkpmandiri/backoffice/internal/upload"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Step 1: Parse CLI flags.
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	// Step 2: Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	// Step 3: Initialize telemetry (logger, tracer, metrics).
	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "lkp-backoffice", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	var metrics *observability.Metrics
	if cfg.Observability.Metrics.Enabled {
		metrics = observability.InitMetrics(prometheus.DefaultRegisterer)
	}

	// Step 4: Load the backend OpenAPI contract.
	oaIndex := openapi.NewIndex()
	if err := oaIndex.Load(cfg.Spec.Path); err != nil {
		logger.Error("OpenAPI contract load failed", zap.Error(err))
		return 1
	}

	// Step 5: Load resource definitions, validate against the contract,
	// build the registry.
	loader := definition.NewLoader()
	defs, err := loader.LoadAll(cfg.Definitions.Directory)
	if err != nil {
		logger.Error("definition loading failed", zap.Error(err))
		return 1
	}

	validator := definition.NewValidator()
	verrs := validator.Validate(defs, oaIndex)
	if len(verrs) > 0 {
		for _, ve := range verrs {
			logger.Error("definition validation error", zap.String("error", ve.Error()))
		}
		logger.Error("definition validation failed", zap.Int("errors", len(verrs)))
		return 1
	}

	registry := definition.NewRegistry(defs)

	if metrics != nil {
		metrics.SetDefinitionsLoaded(float64(len(defs)))
		metrics.SetOpenAPIOperationsIndexed(float64(oaIndex.Len()))
	}

	// Step 6: Build the backend API client.
	client := api.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	// Step 7: Build the session store and manager, and arrange for a backend
	// 401 to invalidate the offending session.
	store, redisStore, storeCloser, err := buildSessionStore(ctx, cfg.Session, logger)
	if err != nil {
		logger.Error("session store initialization failed", zap.Error(err))
		return 1
	}

	sessions := session.NewManager(store, cfg.Session.Secret, cfg.Session.TTL)
	client.SetUnauthorizedHook(sessions.UnauthorizedHook())

	// Step 8: Build providers.
	lookups := lookup.NewProvider(registry, client, cfg.Lookup.TTL)
	if metrics != nil {
		lookups.SetMetrics(metrics)
	}
	uploads := upload.NewUploader(client, upload.LimitsFromDefinitions(defs))

	// Step 9: Build readiness checks from data known at startup.
	readinessChecks := observability.ReadinessChecks{
		DefinitionsLoaded: func() bool { return len(registry.AllResources()) > 0 },
		OpenAPILoaded:     func() bool { return oaIndex.Len() > 0 },
	}
	if redisStore != nil {
		readinessChecks.SessionStore = redisStore
	}

	// Step 10: Build the HTTP router.
	router := transport.NewRouter(transport.Dependencies{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Registry: registry,
		Client:   client,
		Sessions: sessions,
		Lookups:  lookups,
		Uploads:  uploads,
		Ready:    readinessChecks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Step 11: Start the HTTP server.
	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("backend", cfg.Backend.BaseURL),
		zap.Int("definitions", len(defs)),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	// Graceful shutdown sequence.
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new connections and drain in-flight requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Close stores.
	if storeCloser != nil {
		storeCloser()
	}

	// Flush telemetry.
	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// buildSessionStore creates the session store based on config. The redis
// store is returned separately so it can be wired into the readiness checks.
func buildSessionStore(ctx context.Context, cfg config.SessionConfig, logger *zap.Logger) (session.Store, *session.RedisStore, func(), error) {
	switch cfg.Driver {
	case "memory", "":
		logger.Info("using in-memory session store")
		return session.NewMemoryStore(), nil, nil, nil
	case "redis":
		addr := os.Getenv(cfg.AddrEnv)
		if addr == "" {
			return nil, nil, nil, fmt.Errorf("session store: %s environment variable not set", cfg.AddrEnv)
		}

		client := redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   cfg.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("session store: ping: %w", err)
		}

		logger.Info("using redis session store", zap.String("addr", addr), zap.Int("db", cfg.DB))
		store := session.NewRedisStore(client)
		return store, store, func() { client.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported session store driver: %q", cfg.Driver)
	}
}
