package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-event-api/api/swagger"
	"github.com/noah-isme/campus-event-api/internal/handler"
	internalmiddleware "github.com/noah-isme/campus-event-api/internal/middleware"
	"github.com/noah-isme/campus-event-api/internal/repository"
	"github.com/noah-isme/campus-event-api/internal/service"
	"github.com/noah-isme/campus-event-api/pkg/cache"
	"github.com/noah-isme/campus-event-api/pkg/config"
	"github.com/noah-isme/campus-event-api/pkg/database"
	"github.com/noah-isme/campus-event-api/pkg/jobs"
	"github.com/noah-isme/campus-event-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-event-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-event-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-event-api/pkg/qrtoken"
)

// @title Campus Event API
// @version 1.0.0
// @description Event registration, seat ledger and geofenced attendance for campus events.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, event cache disabled", zap.Error(err))
		}
	}
	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}
	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.EventTTL, logr, true)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	ratingRepo := repository.NewRatingRepository(db)

	notificationSvc := service.NewNotificationService(
		notificationRepo,
		eventRepo,
		userRepo,
		registrationRepo,
		nil,
		metricsSvc,
		validate,
		logr,
		service.NotificationConfig{CapacityAlertRatio: cfg.Scheduler.CapacityAlertRatio},
	)
	notificationQueue := jobs.NewQueue("notifications", notificationSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr.Named("notifications"),
	})
	notificationQueue.Start(context.Background())
	defer notificationQueue.Stop()
	notificationSvc.SetQueue(notificationQueue)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	eventSvc := service.NewEventService(eventRepo, notificationSvc, cacheSvc, validate, logr, service.EventServiceConfig{
		DefaultRadius: cfg.Attendance.DefaultRadius,
		CacheTTL:      cfg.Cache.EventTTL,
	})
	registrationSvc := service.NewRegistrationService(registrationRepo, eventRepo, notificationSvc, cacheSvc, metricsSvc, logr)
	attendanceSvc := service.NewAttendanceService(
		attendanceRepo,
		eventRepo,
		registrationRepo,
		qrtoken.NewCodec(cfg.QR.Secret, cfg.QR.MaxAge),
		qrtoken.NewRenderer(cfg.QR.ImageSize),
		metricsSvc,
		validate,
		logr,
		service.AttendanceConfig{DefaultRadius: cfg.Attendance.DefaultRadius, RequireToken: cfg.Attendance.RequireQR},
	)
	ratingSvc := service.NewRatingService(ratingRepo, eventRepo, attendanceRepo, validate, logr)

	readiness := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if cacheRepo != nil {
		readiness["redis"] = cacheRepo.Ping
	}

	authHandler := handler.NewAuthHandler(authSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, cfg.Scheduler.ReminderWindow)
	ratingHandler := handler.NewRatingHandler(ratingSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, readiness)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.WithResponseMeta())
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	api.GET("/events", eventHandler.List)
	api.GET("/events/:id", eventHandler.Get)
	api.GET("/events/:id/location", eventHandler.Location)
	api.GET("/ratings/events/:eventId", ratingHandler.EventRatings)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))

	secured.POST("/events", eventHandler.Create)
	secured.PUT("/events/:id", eventHandler.Update)

	registrations := secured.Group("/registrations")
	registrations.POST("/events/:eventId", registrationHandler.Register)
	registrations.GET("/events/:eventId", registrationHandler.EventRoster)
	registrations.GET("/me", registrationHandler.Mine)
	registrations.GET("/status/:eventId", registrationHandler.Status)
	registrations.DELETE("/:id", registrationHandler.Cancel)

	attendance := secured.Group("/attendance")
	attendance.POST("/mark", attendanceHandler.Mark)
	attendance.GET("/events/:eventId", attendanceHandler.EventRoster)
	attendance.GET("/events/:eventId/qr", attendanceHandler.QRCode)
	attendance.GET("/events/:eventId/export", attendanceHandler.Export)

	notifications := secured.Group("/notifications")
	notifications.GET("", notificationHandler.List)
	notifications.GET("/unread-count", notificationHandler.UnreadCount)
	notifications.PUT("/read-all", notificationHandler.MarkAllRead)
	notifications.POST("/broadcast", notificationHandler.Broadcast)
	notifications.POST("/reminders", notificationHandler.TriggerReminders)
	notifications.GET("/:id", notificationHandler.Get)
	notifications.PUT("/:id/read", notificationHandler.MarkRead)
	notifications.DELETE("/:id", notificationHandler.Delete)

	ratings := secured.Group("/ratings")
	ratings.POST("", ratingHandler.Rate)
	ratings.GET("/events/:eventId/me", ratingHandler.Mine)
	ratings.DELETE("/:id", ratingHandler.Delete)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
