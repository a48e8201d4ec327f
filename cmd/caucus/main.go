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
	"time"

	"caucus/internal/api"
	"caucus/internal/auth"
	"caucus/internal/config"
	"caucus/internal/content"
	"caucus/internal/logger"
	"caucus/internal/models"
	"caucus/internal/observability"
	"caucus/internal/ratelimit"
	"caucus/internal/storage"
	"caucus/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	exampleFile = flag.String("example", "", "Write an example configuration file to this path and exit")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	ver := version.GetInfo()
	if *showVersion {
		fmt.Println(ver.String())
		return
	}

	if *exampleFile != "" {
		if err := config.SaveExample(*exampleFile); err != nil {
			slog.Error("Failed to write example configuration", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Example configuration written to %s\n", *exampleFile)
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logging
	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	for _, warning := range config.SecurityWarnings(cfg.Security) {
		slog.Warn("Security configuration", "warning", warning)
	}

	// Initialize observability (OpenTelemetry)
	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver,
		observability.WithEnvironment(cfg.Security.Environment),
	)
	if err != nil {
		slog.Error("Failed to initialize observability", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	// Initialize storage
	storageInstance, err := storage.NewFactory().Create(startupCtx, cfg.Storage)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err, "type", cfg.Storage.Type)
		os.Exit(1)
	}
	defer storageInstance.Close()

	// Wrap storage with instrumentation if metrics or tracing are enabled
	var activeStorage storage.Storage = storageInstance
	if cfg.Metrics.Enabled || cfg.Observability.Tracing.Enabled {
		instrumented, err := observability.NewInstrumentedStorage(storageInstance)
		if err != nil {
			slog.Error("Failed to create instrumented storage", "error", err)
			os.Exit(1)
		}
		activeStorage = instrumented
	}

	attempts, err := initializeAttemptLimiter(startupCtx, cfg.Security)
	if err != nil {
		slog.Error("Failed to initialize attempt limiter", "error", err, "store", cfg.Security.AttemptStore)
		os.Exit(1)
	}
	defer attempts.Close()

	securityMetrics, err := observability.NewSecurityMetrics()
	if err != nil {
		slog.Error("Failed to create security metrics", "error", err)
		os.Exit(1)
	}

	proxies, err := ratelimit.ParseTrustedProxies(cfg.Security.TrustedProxies)
	if err != nil {
		slog.Error("Invalid trusted proxies", "error", err)
		os.Exit(1)
	}

	contentService := content.NewService(activeStorage)

	handlers := api.NewHandlers(contentService,
		api.WithStorage(activeStorage),
		api.WithAuth(
			auth.NewCredentials(cfg.Security.AdminPassword, cfg.Security.AdminPasswordHash),
			auth.NewSessionManager(cfg.Security.SessionSecret,
				auth.WithSecureCookie(cfg.Security.SecureCookies()),
			),
		),
		api.WithAttemptLimiter(attempts, cfg.Security.LoginLimit, cfg.Security.ContactLimit),
		api.WithSecurityMetrics(securityMetrics),
		api.WithTrustedProxies(proxies),
		api.WithVersion(ver.Version),
	)
	defer handlers.Close()

	// Setup routes with middleware
	routeOpts := []api.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	// Initialize request rate limiter if enabled
	if cfg.Security.RateLimit.Enabled {
		rlCfg := cfg.Security.RateLimit

		anonLimiter := ratelimit.NewMemoryLimiter(rlCfg.RequestsPerMinute, rlCfg.BurstSize, rlCfg.CleanupInterval)
		authLimiter := ratelimit.NewMemoryLimiter(rlCfg.AuthenticatedRequestsPerMinute, rlCfg.AuthenticatedBurstSize, rlCfg.CleanupInterval)
		defer anonLimiter.Close()
		defer authLimiter.Close()

		routeOpts = append(routeOpts, api.WithRateLimiter(ratelimit.Middleware(anonLimiter, authLimiter, proxies)))
	}

	router := api.SetupRoutes(handlers, cfg, routeOpts...)

	// Start metrics server if enabled
	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server",
			"addr", server.Addr,
			"tls", cfg.Server.TLSEnabled,
			"storage", cfg.Storage.Type,
			"attempt_store", cfg.Security.AttemptStore,
		)

		var err error
		if cfg.Server.TLSEnabled {
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("Shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("Server failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server shutdown complete")
}

// initializeAttemptLimiter builds the login/contact limiter for the configured
// attempt store. Redis is required to be reachable at startup; after that a
// Redis outage lets attempts through with a warning.
func initializeAttemptLimiter(ctx context.Context, sec models.SecurityConfig) (ratelimit.AttemptLimiter, error) {
	switch sec.AttemptStore {
	case models.AttemptStoreRedis:
		client, err := ratelimit.DialRedis(ctx, sec.Redis.Addr, sec.Redis.Password, sec.Redis.DB, sec.Redis.PoolSize)
		if err != nil {
			return nil, err
		}
		slog.Info("Attempt limiter using redis", "addr", sec.Redis.Addr, "key_prefix", sec.Redis.KeyPrefix)
		return ratelimit.NewRedisWindowLimiter(client, sec.Redis.KeyPrefix), nil
	case models.AttemptStoreMemory:
		return ratelimit.NewWindowLimiter(sec.SweepInterval), nil
	default:
		return nil, fmt.Errorf("unsupported attempt store: %s", sec.AttemptStore)
	}
}
