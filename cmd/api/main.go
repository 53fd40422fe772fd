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
	entryHandler "github.com/jwalitptl/karte-api/internal/handler/entry"
	"github.com/jwalitptl/karte-api/internal/handler/health"
	promHandler "github.com/jwalitptl/karte-api/internal/handler/prometheus"
	searchHandler "github.com/jwalitptl/karte-api/internal/handler/search"
	timelineHandler "github.com/jwalitptl/karte-api/internal/handler/timeline"
	"github.com/jwalitptl/karte-api/internal/middleware"
	"github.com/jwalitptl/karte-api/internal/repository/postgres"
	"github.com/jwalitptl/karte-api/internal/router"
	"github.com/jwalitptl/karte-api/internal/service/entry"
	"github.com/jwalitptl/karte-api/internal/service/search"
	"github.com/jwalitptl/karte-api/internal/service/timeline"
	"github.com/jwalitptl/karte-api/pkg/auth"
	"github.com/jwalitptl/karte-api/pkg/logger"
	"github.com/jwalitptl/karte-api/pkg/messaging/redis"
	"github.com/jwalitptl/karte-api/pkg/metrics"
	"github.com/jwalitptl/karte-api/pkg/storage"
	"github.com/jwalitptl/karte-api/pkg/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	appLog := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Log.Console,
	})
	log.Logger = *appLog.Zerolog()

	if appLog.Zerolog().GetLevel() > logger.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLog.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	// Initialize repositories
	patientRepo := postgres.NewPatientRepository(db)
	visitRepo := postgres.NewVisitRepository(db)
	noteRepo := postgres.NewNoteRepository(db)
	staffRepo := postgres.NewStaffRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	files := storage.NewFileStore(cfg.Storage.AttachmentRoot)
	m := metrics.NewMetrics(cfg.Server.MetricsPrefix, "")

	// Initialize services
	timelineSvc := timeline.NewService(visitRepo, noteRepo, m, appLog)
	entrySvc := entry.NewService(noteRepo, visitRepo, staffRepo, outboxRepo, files, m, appLog)
	searchSvc := search.NewService(patientRepo, noteRepo, m, appLog)

	checks := map[string]health.Pinger{"database": db}

	if cfg.Outbox.Embedded {
		broker, err := redis.NewRedisBroker(ctx, cfg.Redis, appLog.Zerolog())
		if err != nil {
			appLog.Fatal(err, "failed to connect to Redis")
		}
		defer broker.Close()
		checks["redis"] = broker

		processor, err := worker.NewOutboxProcessor(outboxRepo, broker, files, cfg.Redis.Channel, cfg.Outbox, appLog, m)
		if err != nil {
			appLog.Fatal(err, "invalid outbox configuration")
		}
		go processor.Start(ctx)
	}

	authMiddleware := middleware.NewAuthMiddleware(auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer))

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit)
	}

	r := router.NewRouter(
		authMiddleware,
		[]router.Handler{
			health.NewHandler(checks),
			promHandler.New(prometheus.DefaultGatherer),
		},
		[]router.Handler{
			timelineHandler.NewHandler(timelineSvc, cfg.Timeline.DefaultLimit),
			entryHandler.NewHandler(entrySvc),
			searchHandler.NewHandler(searchSvc),
		},
		router.RouterConfig{
			RequestTimeout: cfg.Server.RequestTimeout,
			CORSConfig:     middleware.DefaultCORSConfig(),
			MetricsPrefix:  cfg.Server.MetricsPrefix,
			RateLimiter:    limiter,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLog.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error(err, "server forced to shutdown")
	}

	appLog.Info("server exited")
}
