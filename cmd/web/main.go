package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shoplytics/internal/config"
	"shoplytics/internal/metrics"
	"shoplytics/internal/middleware"
	"shoplytics/internal/observability"
	"shoplytics/internal/server"
	"shoplytics/internal/services"
	"shoplytics/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	csvLoadTimeout = 60 * time.Second
	cacheMaxAge    = "public, max-age=300"
)

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	analytics := services.NewAnalytics()
	analytics.SetCacheDir(cfg.Dataset.CacheDir)

	ctx, cancel := context.WithTimeout(context.Background(), csvLoadTimeout)
	defer cancel()

	start := time.Now()
	if err := analytics.LoadFromCSV(ctx, cfg.Dataset.CSVFile); err != nil {
		logger.Error("failed to load dataset", "error", err)
		os.Exit(1)
	}
	logger.Info("dataset loaded", "duration", time.Since(start))

	var httpMetrics *metrics.HTTPMetrics
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		httpMetrics = metrics.NewHTTPMetrics(registry)
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

		stats := analytics.Stats()
		if rows, ok := stats["record_count"].(int64); ok {
			version, _ := stats["snapshot_version"].(int64)
			httpMetrics.SetDataset(rows, version)
		}
	}

	srv := server.NewServer(analytics, logger, server.Options{
		Templates: &server.TemplateHandlers{Dashboard: handleDashboard},
		Metrics:   metricsHandler,
		Dashboard: cfg.Dashboard,
	})

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewares := []middleware.Middleware{
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
	}
	if cfg.Metrics.Enabled {
		middlewares = append(middlewares, middleware.Metrics(httpMetrics))
	}
	middlewares = append(middlewares,
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	handler := middleware.Chain(middlewares...)(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down analytics service")
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
