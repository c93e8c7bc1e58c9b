// File: salonbook/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salonbook/config"
	"salonbook/cron"
	"salonbook/database"
	"salonbook/database/repository"
	"salonbook/handlers"
	"salonbook/middleware"
	"salonbook/routes"
	"salonbook/services/booking"
	"salonbook/services/confirmation"
	"salonbook/services/metrics"
	"salonbook/services/notification"
	"salonbook/services/ratelimit"
	"salonbook/services/retention"
	"salonbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	cfg := config.AppConfig

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Register()

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	database.InitDB(rootCtx)
	repos := repository.New(database.Store)

	if utils.RedisConfigured() {
		if err := utils.InitCache(); err != nil {
			logger.Sugar().Warnf("main: redis unavailable, continuing without it: %v", err)
		}
	}
	redisClient := utils.GetCacheClient()
	const healthInterval = time.Minute
	utils.StartHealthMonitor(rootCtx, healthInterval, database.Store, redisClient)

	// Rate limiter backend.
	var limiter ratelimit.Limiter = ratelimit.NewStoreLimiter(repos.Counters)
	if cfg.RateLimitBackend == "redis" {
		if redisClient == nil {
			logger.Sugar().Fatalf("main: RATE_LIMIT_BACKEND=redis but redis is not available")
		}
		limiter = ratelimit.NewRedisLimiter(redisClient)
	}

	// services.
	var notifier notification.NotificationService = notification.NoopNotificationService{}
	if cfg.PushNotifications {
		fcm, err := utils.FirebaseMessaging(rootCtx)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize push notifications: %v", err)
		}
		svc, err := notification.NewDefaultNotificationService(repos.Sites, fcm, logger)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		notifier = svc
	}

	bookingService := booking.NewBookingService(repos.Sites, repos.Bookings, logger, cfg.DefaultPhoneRegion)
	confirmationService := confirmation.NewConfirmationService(repos.Bookings, notifier, logger, cfg.DefaultPhoneRegion)
	retentionService := retention.NewRetentionService(repos, retention.Config{
		BatchSize:            cfg.CleanupBatchSize,
		MaxIterations:        cfg.CleanupMaxIterations,
		LockMaxAge:           cfg.CleanupLockMaxAge(),
		ArchiveRetentionDays: cfg.ArchiveRetentionDays,
		DefaultRegion:        cfg.DefaultPhoneRegion,
	}, logger)

	bookingHandler := handlers.NewBookingHandler(bookingService)
	adminHandler := handlers.NewAdminHandler(retentionService)
	whatsAppHandler := handlers.NewWhatsAppHandler(confirmationService, limiter)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		Limiter:         limiter,
		AdminJWTSecret:  cfg.JWTSecret,
		TwilioAuthToken: cfg.TwilioAuthToken,
		PublicBaseURL:   cfg.PublicBaseURL,
		BookingsPerMin:  cfg.BookingsPerMin,

		HealthHandler: handlers.NewHealthHandler(database.Store, redisClient, 2*healthInterval),

		// Booking endpoints.
		GetAvailabilityHandler: bookingHandler.GetAvailabilityHandler,
		CreateBookingHandler:   bookingHandler.CreateBookingHandler,

		// Cleanup endpoints.
		EnsureDailyCleanupHandler: adminHandler.EnsureDailyCleanupHandler,
		RunCleanupHandler:         adminHandler.RunCleanupHandler,

		// Webhooks.
		WhatsAppWebhookHandler: whatsAppHandler.WebhookHandler,
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))
	routes.RegisterRoutes(router, handlerBundle)

	// Scheduled cleanup needs the queue.
	var worker *cron.CleanupWorker
	if redisClient != nil && cfg.CleanupCron != "" {
		worker = cron.NewCleanupWorker(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisQueueDB,
		}, cfg.CleanupCron, repos.Sites, retentionService, logger)
		if err := worker.Start(); err != nil {
			logger.Error("main: scheduled cleanup disabled", zap.Error(err))
			worker = nil
		}
	}

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	if worker != nil {
		worker.Shutdown()
	}
	stop()
	if err := database.Store.Close(ctx); err != nil {
		logger.Sugar().Warnf("main: closing document store: %v", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Sugar().Info("main: server stopped gracefully")
	_ = logger.Sync()
}
