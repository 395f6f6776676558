package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/uhcare-api/internal/config"
	"github.com/jwalitptl/uhcare-api/internal/handler/health"
	promhandler "github.com/jwalitptl/uhcare-api/internal/handler/prometheus"
	"github.com/jwalitptl/uhcare-api/internal/repository/postgres"
	internalWorker "github.com/jwalitptl/uhcare-api/internal/worker"
	"github.com/jwalitptl/uhcare-api/pkg/logger"
	"github.com/jwalitptl/uhcare-api/pkg/messaging/redis"
	"github.com/jwalitptl/uhcare-api/pkg/metrics"
	"github.com/jwalitptl/uhcare-api/pkg/worker"
)

// healthAddr serves liveness, readiness and metrics for the worker process.
const healthAddr = ":8081"

func setupHealthCheck(appLogger *logger.Logger, checks map[string]health.Check, registry *prometheus.Registry, metricsPath string) *http.Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(checks).RegisterRoutes(engine.Group(""))
	engine.GET(metricsPath, promhandler.New("worker", registry).Handler())

	srv := &http.Server{Addr: healthAddr, Handler: engine}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error(err, "health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	appLogger := logger.NewLogger(cfg.Logging.ToLoggerConfig())
	log.Logger = *appLogger.Zerolog()
	gin.SetMode(gin.ReleaseMode)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), appLogger.Zerolog())
	if err != nil {
		appLogger.Fatal(err, "failed to create redis broker")
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	workerMetrics := metrics.NewMetrics(cfg.Monitoring.Namespace, "worker", registry)

	outboxRepo := postgres.NewOutboxRepository(db)
	processor := worker.NewOutboxProcessor(
		outboxRepo,
		postgres.NewTransactor(db),
		broker,
		cfg.Outbox.ToWorkerConfig(),
		appLogger.WithFields(map[string]interface{}{"component": "outbox_processor"}),
		workerMetrics,
	)
	cleanup := internalWorker.NewOutboxCleanupWorker(
		outboxRepo,
		cfg.Outbox.Retention,
		cfg.Outbox.CleanupInterval,
		appLogger.WithFields(map[string]interface{}{"component": "outbox_cleanup"}),
	)

	healthSrv := setupHealthCheck(appLogger, map[string]health.Check{
		"database": db.PingContext,
		"redis":    broker.Ping,
	}, registry, cfg.Monitoring.MetricsPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "health check server forced to shutdown")
	}
	appLogger.Info("worker exited")
}
