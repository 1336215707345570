package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-event-api/internal/repository"
	"github.com/noah-isme/campus-event-api/internal/service"
	"github.com/noah-isme/campus-event-api/pkg/config"
	"github.com/noah-isme/campus-event-api/pkg/database"
	"github.com/noah-isme/campus-event-api/pkg/logger"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The API process owns schema creation.
	dbCfg := cfg.Database
	dbCfg.AutoMigrate = false
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	eventRepo := repository.NewEventRepository(db)
	notifications := service.NewNotificationService(
		repository.NewNotificationRepository(db),
		eventRepo,
		repository.NewUserRepository(db),
		repository.NewRegistrationRepository(db),
		nil,
		nil,
		validator.New(),
		logr,
		service.NotificationConfig{CapacityAlertRatio: cfg.Scheduler.CapacityAlertRatio},
	)

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logr.Warn("unknown scheduler timezone, using UTC", zap.String("timezone", cfg.Scheduler.Timezone), zap.Error(err))
		loc = time.UTC
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		logr.Fatal("failed to create scheduler", zap.Error(err))
	}

	if err := registerJobs(ctx, s, notifications, cfg.Scheduler, logr); err != nil {
		logr.Fatal("failed to register jobs", zap.Error(err))
	}

	s.Start()
	logr.Info("scheduler started",
		zap.Duration("interval", cfg.Scheduler.Interval),
		zap.Duration("reminder_window", cfg.Scheduler.ReminderWindow),
		zap.Int("cleanup_hour", cfg.Scheduler.CleanupHour),
	)

	<-ctx.Done()
	if err := s.Shutdown(); err != nil {
		logr.Error("scheduler shutdown failed", zap.Error(err))
	}
	logr.Info("scheduler stopped")
}
