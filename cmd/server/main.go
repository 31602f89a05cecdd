package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/packdesk/packdesk/internal/api"
	"github.com/packdesk/packdesk/internal/assignment"
	"github.com/packdesk/packdesk/internal/capacity"
	"github.com/packdesk/packdesk/internal/catalog"
	"github.com/packdesk/packdesk/internal/config"
	"github.com/packdesk/packdesk/internal/database"
	"github.com/packdesk/packdesk/internal/metrics"
	"github.com/packdesk/packdesk/internal/packages"
	"github.com/packdesk/packdesk/internal/quota"
	"github.com/packdesk/packdesk/internal/workload"
	"github.com/packdesk/packdesk/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	if err := database.Migrate(cfg.DatabaseURL, migrations.FS); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var mtx *metrics.Metrics
	if cfg.MetricsEnabled {
		mtx = metrics.New(prometheus.DefaultRegisterer)
	}

	catalogRepo := catalog.NewPostgresRepository(db.Pool())
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		catalogRepo = catalog.NewCachedRepository(catalogRepo, rdb, time.Duration(cfg.CatalogCacheTTLSeconds)*time.Second)
		slog.Info("catalog cache enabled", "addr", cfg.RedisAddr, "ttlSeconds", cfg.CatalogCacheTTLSeconds)
	}

	templateRepo := packages.NewPostgresRepository(db.Pool())
	assignmentRepo := assignment.NewPostgresRepository(db.Pool())
	quotaRepo := quota.NewPostgresRepository(db.Pool())

	quotaSvc := quota.NewService(quotaRepo, mtx)
	assignmentSvc := assignment.NewService(assignmentRepo, templateRepo, quotaSvc)
	allocator := workload.NewAllocator(cfg.CapacityHoursPerMember)

	teams := capacity.NopTeamSource{}
	refresher := capacity.NewRefresher(
		assignmentRepo,
		templateRepo,
		catalogRepo,
		teams,
		allocator,
		mtx,
		time.Duration(cfg.SnapshotInterval)*time.Second,
	)
	go refresher.Start(ctx)

	router := api.NewRouter(api.RouterDeps{
		DBPinger:       db,
		Version:        cfg.Version,
		Catalog:        catalogRepo,
		Templates:      templateRepo,
		Assignments:    assignmentRepo,
		AssignmentSvc:  assignmentSvc,
		QuotaSvc:       quotaSvc,
		Teams:          teams,
		Allocator:      allocator,
		Refresher:      refresher,
		MetricsEnabled: cfg.MetricsEnabled,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting packdesk server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
