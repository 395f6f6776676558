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
	"golang.org/x/time/rate"

	"github.com/jwalitptl/uhcare-api/internal/config"
	"github.com/jwalitptl/uhcare-api/internal/email"
	"github.com/jwalitptl/uhcare-api/internal/handler/health"
	notificationHandler "github.com/jwalitptl/uhcare-api/internal/handler/notification"
	orderHandler "github.com/jwalitptl/uhcare-api/internal/handler/order"
	promhandler "github.com/jwalitptl/uhcare-api/internal/handler/prometheus"
	"github.com/jwalitptl/uhcare-api/internal/lifecycle"
	"github.com/jwalitptl/uhcare-api/internal/middleware"
	"github.com/jwalitptl/uhcare-api/internal/model"
	"github.com/jwalitptl/uhcare-api/internal/repository"
	"github.com/jwalitptl/uhcare-api/internal/repository/postgres"
	"github.com/jwalitptl/uhcare-api/internal/router"
	"github.com/jwalitptl/uhcare-api/internal/service/notification"
	"github.com/jwalitptl/uhcare-api/internal/service/order"
	"github.com/jwalitptl/uhcare-api/internal/service/preference"
	"github.com/jwalitptl/uhcare-api/internal/sms"
	"github.com/jwalitptl/uhcare-api/pkg/auth"
	"github.com/jwalitptl/uhcare-api/pkg/logger"
	"github.com/jwalitptl/uhcare-api/pkg/messaging"
	"github.com/jwalitptl/uhcare-api/pkg/messaging/redis"
	"github.com/jwalitptl/uhcare-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(cfg.Logging.ToLoggerConfig())
	log.Logger = *appLogger.Zerolog()
	gin.SetMode(gin.ReleaseMode)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	appMetrics := metrics.NewMetrics(cfg.Monitoring.Namespace, "api", registry)

	checks := map[string]health.Check{"database": db.PingContext}

	// Redis is optional; without it in-app notifications are stored but not pushed.
	var broker messaging.Broker
	if cfg.Redis.Enabled {
		rb, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), appLogger.Zerolog())
		if err != nil {
			appLogger.Warn("redis unavailable, realtime push disabled", "error", err.Error())
		} else {
			defer rb.Close()
			broker = rb
			checks["redis"] = rb.Ping
		}
	}

	twilioCfg, err := sms.LoadConfig()
	if err != nil {
		appLogger.Fatal(err, "failed to load twilio configuration")
	}

	renderer, err := email.NewRenderer()
	if err != nil {
		appLogger.Fatal(err, "failed to parse email templates")
	}

	tx := postgres.NewTransactor(db)
	activities := postgres.NewActivityRepository(db)
	outbox := postgres.NewOutboxRepository(db)
	notifications := postgres.NewNotificationRepository(db)

	prefs := preference.NewService(postgres.NewPreferenceRepository(db), cfg.Notification.PreferenceCacheTTL)
	dispatcher := notification.NewDispatcher(notification.Config{
		SiteName:       cfg.Notification.SiteName,
		ChannelTimeout: cfg.Notification.ChannelTimeout,
	}, notification.Deps{
		Preferences:   prefs,
		Notifications: notifications,
		Logs:          postgres.NewDeliveryLogRepository(db),
		Users:         postgres.NewUserDirectory(db),
		Email:         email.NewSMTPTransport(cfg.SMTP.ToTransportConfig()),
		SMS:           sms.NewTwilioTransport(twilioCfg),
		Renderer:      renderer,
		Broker:        broker,
		Metrics:       appMetrics,
		Logger:        appLogger,
	})
	notifier := notification.NewNotifier(dispatcher, appLogger.WithFields(map[string]interface{}{"component": "notifier"}))

	shared := sharedDeps{
		tx:         tx,
		activities: activities,
		outbox:     outbox,
		notifier:   notifier,
		metrics:    appMetrics,
		logger:     appLogger,
	}
	orders := []router.OrderHandler{
		orderHandler.NewHandler(orderHandler.AppointmentConfig(),
			order.NewService(deps(shared, lifecycle.AppointmentPolicy(), postgres.NewAppointmentStore(db)))),
		orderHandler.NewHandler(orderHandler.PersonalAppointmentConfig(),
			order.NewService(deps(shared, lifecycle.PersonalAppointmentPolicy(), postgres.NewPersonalAppointmentStore(db)))),
		orderHandler.NewHandler(orderHandler.PharmacyOrderConfig(),
			order.NewService(deps(shared, lifecycle.PharmacyOrderPolicy(), postgres.NewPharmacyOrderStore(db)))),
		orderHandler.NewHandler(orderHandler.EquipmentRentalConfig(),
			order.NewService(deps(shared, lifecycle.EquipmentRentalPolicy(), postgres.NewEquipmentRentalStore(db)))),
		orderHandler.NewHandler(orderHandler.EquipmentPurchaseConfig(),
			order.NewService(deps(shared, lifecycle.EquipmentPurchasePolicy(), postgres.NewEquipmentPurchaseStore(db)))),
	}

	if cfg.JWT.Secret == "" {
		appLogger.Fatal(errors.New("jwt.secret is empty"), "refusing to start without a JWT secret")
	}
	tokens := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	var metricsH router.MetricsHandler
	if cfg.Monitoring.PrometheusEnabled {
		metricsH = promhandler.New(cfg.Monitoring.Namespace, registry)
	}

	routerCfg := router.RouterConfig{
		CORSConfig:  middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins),
		MetricsPath: cfg.Monitoring.MetricsPath,
	}
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		})
	}

	r := router.NewRouter(
		middleware.NewAuthMiddleware(tokens),
		health.NewHandler(checks),
		metricsH,
		notificationHandler.NewHandler(notification.NewInbox(notifications), prefs),
		orders,
		routerCfg,
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error(err, "server forced to shutdown")
	}
	appLogger.Info("server exited")
}

type sharedDeps struct {
	tx         repository.Transactor
	activities repository.ActivityRepository
	outbox     repository.OutboxRepository
	notifier   order.Notifier
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

func deps[E model.Entity](s sharedDeps, policy *lifecycle.Policy[E], store repository.OrderStore[E]) order.Deps[E] {
	return order.Deps[E]{
		Policy:     policy,
		Store:      store,
		Tx:         s.tx,
		Activities: s.activities,
		Outbox:     s.outbox,
		Notifier:   s.notifier,
		Metrics:    s.metrics,
		Logger:     s.logger,
	}
}
