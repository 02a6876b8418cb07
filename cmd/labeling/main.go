package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cognobserve/labeling/internal/config"
	"github.com/cognobserve/labeling/internal/handler"
	"github.com/cognobserve/labeling/internal/queue"
	"github.com/cognobserve/labeling/internal/renderer"
	"github.com/cognobserve/labeling/internal/review"
	"github.com/cognobserve/labeling/internal/server"
	"github.com/cognobserve/labeling/internal/temporal"
	"github.com/cognobserve/labeling/internal/tracking"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	api := tracking.New(cfg.TrackingURL, cfg.TrackingToken, cfg.TrackingTimeout)

	var (
		tags      renderer.TagStore = api
		notifiers review.Notifiers
		checks    = map[string]handler.HealthCheck{}
	)

	// Redis is optional: it carries the event stream and the renderer tag cache
	if cfg.RedisURL != "" {
		producer, err := queue.NewRedisProducer(cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		notifiers = append(notifiers, producer)
		tags = renderer.NewCachedTagStore(producer.Client(), api, cfg.RendererTagTTL, logger)
		checks["redis"] = func(ctx context.Context) bool {
			return producer.Client().Ping(ctx).Err() == nil
		}
	}

	if cfg.TemporalAddress != "" {
		tc, err := temporal.New(cfg.TemporalAddress, cfg.TemporalNamespace, cfg.TemporalTaskQueue)
		if err != nil {
			slog.Error("failed to connect to temporal", "error", err)
			os.Exit(1)
		}
		defer tc.Close()

		notifiers = append(notifiers, tc)
		checks["temporal"] = tc.IsHealthy
	}

	selector := renderer.NewSelector(renderer.Builtin(), tags, logger)
	opts := review.Options{
		Delay:    cfg.AutosaveDelay,
		Selector: selector,
		Logger:   logger,

		ItemTimeout: cfg.TrackingTimeout,
		IdleTimeout: cfg.WorkspaceIdleTimeout,
	}
	if len(notifiers) > 0 {
		opts.Notifier = notifiers
	}
	workspaces := review.NewManager(api, opts)
	defer workspaces.Close()

	// Create and start server
	srv := server.New(cfg, handler.New(workspaces, selector, checks))

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	go workspaces.Run(ctx, time.Minute)

	slog.Info("starting labeling service",
		"port", cfg.Port,
		"version", cfg.Version,
		"tracking_url", cfg.TrackingURL,
		"redis", cfg.RedisURL != "",
		"temporal", cfg.TemporalAddress != "",
	)

	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// Allow time for graceful shutdown
	time.Sleep(100 * time.Millisecond)
	slog.Info("labeling service stopped")
}
