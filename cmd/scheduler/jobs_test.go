package main

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/campus-event-api/internal/models"
	"github.com/noah-isme/campus-event-api/pkg/config"
)

type opsStub struct{}

func (opsStub) SendRemindersForWindow(ctx context.Context, from, to time.Time) (*models.ScheduledRunResult, error) {
	return &models.ScheduledRunResult{Operation: "event_reminders"}, nil
}

func (opsStub) SendDeadlineWarnings(ctx context.Context, from, to time.Time) (*models.ScheduledRunResult, error) {
	return &models.ScheduledRunResult{Operation: "deadline_warnings"}, nil
}

func (opsStub) SendCapacityAlerts(ctx context.Context) (*models.ScheduledRunResult, error) {
	return &models.ScheduledRunResult{Operation: "capacity_alerts"}, nil
}

func (opsStub) CleanOlderThan(ctx context.Context, cutoff time.Time) (*models.ScheduledRunResult, error) {
	return &models.ScheduledRunResult{Operation: "notification_cleanup"}, nil
}

func TestRegisterJobs(t *testing.T) {
	s, err := gocron.NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	err = registerJobs(context.Background(), s, opsStub{}, config.SchedulerConfig{
		Interval:       time.Hour,
		ReminderWindow: 24 * time.Hour,
		CleanupAge:     720 * time.Hour,
		CleanupHour:    3,
	}, zap.NewNop())
	require.NoError(t, err)

	var names []string
	for _, job := range s.Jobs() {
		names = append(names, job.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"capacity_alerts", "deadline_warnings", "event_reminders", "notification_cleanup"}, names)
}

func TestRunOperationPassesWindowAndLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logr := zap.New(core)

	var gotFrom, gotTo time.Time
	runOperation(context.Background(), logr, "event_reminders", func(ctx context.Context, now time.Time) (*models.ScheduledRunResult, error) {
		gotFrom, gotTo = now, now.Add(2*time.Hour)
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return &models.ScheduledRunResult{Sent: 3}, nil
	})
	assert.Equal(t, 2*time.Hour, gotTo.Sub(gotFrom))
	require.Equal(t, 1, logs.FilterMessage("scheduled operation finished").Len())
	assert.Equal(t, int64(3), logs.All()[0].ContextMap()["sent"])

	runOperation(context.Background(), logr, "capacity_alerts", func(ctx context.Context, now time.Time) (*models.ScheduledRunResult, error) {
		return nil, errors.New("db down")
	})
	assert.Equal(t, 1, logs.FilterMessage("scheduled operation failed").Len())
}
