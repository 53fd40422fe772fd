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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/karte-api/internal/config"
	"github.com/jwalitptl/karte-api/internal/handler/health"
	promHandler "github.com/jwalitptl/karte-api/internal/handler/prometheus"
	"github.com/jwalitptl/karte-api/internal/repository/postgres"
	"github.com/jwalitptl/karte-api/pkg/logger"
	"github.com/jwalitptl/karte-api/pkg/messaging/redis"
	"github.com/jwalitptl/karte-api/pkg/metrics"
	"github.com/jwalitptl/karte-api/pkg/storage"
	"github.com/jwalitptl/karte-api/pkg/worker"
)

// setupHealthCheck serves liveness, readiness and metrics for the worker.
func setupHealthCheck(port int, checks map[string]health.Pinger, appLog *logger.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	root := engine.Group("")
	health.NewHandler(checks).RegisterRoutes(root)
	promHandler.New(prometheus.DefaultGatherer).RegisterRoutes(root)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal(err, "health check server failed")
		}
	}()
	return srv
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	appLog := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Log.Console,
	}).With("worker")
	log.Logger = *appLog.Zerolog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLog.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(ctx, cfg.Redis, appLog.Zerolog())
	if err != nil {
		appLog.Fatal(err, "failed to create Redis broker")
	}
	defer broker.Close()

	if cfg.Storage.AttachmentRoot == "" {
		appLog.Fatal(errors.New("storage.attachment_root is required"), "invalid configuration")
	}

	processor, err := worker.NewOutboxProcessor(
		postgres.NewOutboxRepository(db),
		broker,
		storage.NewFileStore(cfg.Storage.AttachmentRoot),
		cfg.Redis.Channel,
		cfg.Outbox,
		appLog,
		metrics.NewMetrics(cfg.Server.MetricsPrefix, "worker"),
	)
	if err != nil {
		appLog.Fatal(err, "invalid outbox configuration")
	}

	srv := setupHealthCheck(cfg.Outbox.HealthPort, map[string]health.Pinger{
		"database": db,
		"redis":    broker,
	}, appLog)

	processor.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error(err, "health check server shutdown failed")
	}
}
