package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/campus-event-api/internal/models"
	appErrors "github.com/noah-isme/campus-event-api/pkg/errors"
)

type eventFinder interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

// notifier is the fire-and-forget fan-out used after successful writes.
type notifier interface {
	Notify(ctx context.Context, req models.NotificationRequest) bool
}

type eventCacheInvalidator interface {
	InvalidateEvent(ctx context.Context, eventID string)
}

func loadEvent(ctx context.Context, events eventFinder, id string) (*models.Event, error) {
	event, err := events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, readFailure(err, "failed to load event")
	}
	return event, nil
}
