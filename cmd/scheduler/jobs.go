package main

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-event-api/internal/models"
	"github.com/noah-isme/campus-event-api/pkg/config"
)

// scheduledOperations are the idempotent notification sweeps the scheduler drives.
type scheduledOperations interface {
	SendRemindersForWindow(ctx context.Context, from, to time.Time) (*models.ScheduledRunResult, error)
	SendDeadlineWarnings(ctx context.Context, from, to time.Time) (*models.ScheduledRunResult, error)
	SendCapacityAlerts(ctx context.Context) (*models.ScheduledRunResult, error)
	CleanOlderThan(ctx context.Context, cutoff time.Time) (*models.ScheduledRunResult, error)
}

const jobTimeout = 5 * time.Minute

func registerJobs(ctx context.Context, s gocron.Scheduler, ops scheduledOperations, cfg config.SchedulerConfig, logr *zap.Logger) error {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	window := cfg.ReminderWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	cleanupHour := cfg.CleanupHour
	if cleanupHour < 0 || cleanupHour > 23 {
		cleanupHour = 3
	}

	periodic := []struct {
		name string
		run  func(ctx context.Context, now time.Time) (*models.ScheduledRunResult, error)
	}{
		{"event_reminders", func(ctx context.Context, now time.Time) (*models.ScheduledRunResult, error) {
			return ops.SendRemindersForWindow(ctx, now, now.Add(window))
		}},
		{"deadline_warnings", func(ctx context.Context, now time.Time) (*models.ScheduledRunResult, error) {
			return ops.SendDeadlineWarnings(ctx, now, now.Add(window))
		}},
		{"capacity_alerts", func(ctx context.Context, _ time.Time) (*models.ScheduledRunResult, error) {
			return ops.SendCapacityAlerts(ctx)
		}},
	}
	for _, job := range periodic {
		job := job // per-iteration copy for pre-1.22 loop semantics
		if _, err := s.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() { runOperation(ctx, logr, job.name, job.run) }),
			gocron.WithName(job.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		); err != nil {
			return err
		}
	}

	cleanupAge := cfg.CleanupAge
	_, err := s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(cleanupHour), 0, 0))),
		gocron.NewTask(func() {
			runOperation(ctx, logr, "notification_cleanup", func(ctx context.Context, now time.Time) (*models.ScheduledRunResult, error) {
				return ops.CleanOlderThan(ctx, now.Add(-cleanupAge))
			})
		}),
		gocron.WithName("notification_cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

func runOperation(ctx context.Context, logr *zap.Logger, name string, run func(context.Context, time.Time) (*models.ScheduledRunResult, error)) {
	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	started := time.Now()
	result, err := run(jobCtx, started.UTC())
	if err != nil {
		logr.Error("scheduled operation failed", zap.String("operation", name), zap.Error(err))
		return
	}
	logr.Info("scheduled operation finished",
		zap.String("operation", name),
		zap.Int("events", result.EventsProcessed),
		zap.Int("sent", result.Sent),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", time.Since(started)),
	)
}
