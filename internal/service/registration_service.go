package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-event-api/internal/models"
	"github.com/noah-isme/campus-event-api/internal/repository"
	appErrors "github.com/noah-isme/campus-event-api/pkg/errors"
)

type seatLedgerStore interface {
	Reserve(ctx context.Context, studentID, eventID string) (*models.Registration, int, error)
	Release(ctx context.Context, reg *models.Registration) (int, error)
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindByStudentAndEvent(ctx context.Context, studentID, eventID string) (*models.Registration, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.RegistrationWithEvent, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.RegistrationRosterEntry, error)
}

// RegistrationService is the seat ledger: it reserves and releases event seats
// and keeps each event's registered count equal to its active registrations.
type RegistrationService struct {
	store    seatLedgerStore
	events   eventFinder
	notifier notifier
	cache    eventCacheInvalidator
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewRegistrationService constructs the service.
func NewRegistrationService(store seatLedgerStore, events eventFinder, notifier notifier, cache eventCacheInvalidator, metrics *MetricsService, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		store:    store,
		events:   events,
		notifier: notifier,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Register reserves a seat for the caller. Preconditions are checked in order:
// role, event existence, deadline, existing registration, capacity.
func (s *RegistrationService) Register(ctx context.Context, actor models.Actor, eventID string) (*models.Registration, error) {
	if err := requireCapability(actor, models.CapRegister, "administrators cannot register for events"); err != nil {
		return nil, err
	}

	event, err := loadEvent(ctx, s.events, eventID)
	if err != nil {
		return nil, err
	}

	if event.DeadlinePassed(s.now()) {
		s.metrics.RecordRegistration(OutcomeDeadlinePassed)
		return nil, appErrors.Clone(appErrors.ErrDeadlinePassed, "registration deadline has passed")
	}

	existing, err := s.store.FindByStudentAndEvent(ctx, actor.UserID, eventID)
	switch {
	case err == nil && existing.Status != models.RegistrationStatusCancelled:
		s.metrics.RecordRegistration(OutcomeAlreadyRegistered)
		return nil, appErrors.Clone(appErrors.ErrAlreadyRegistered, "you are already registered for this event")
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, readFailure(err, "failed to check registration")
	}

	reg, registered, err := s.store.Reserve(ctx, actor.UserID, eventID)
	if err != nil {
		return nil, s.reserveFailure(err)
	}

	s.metrics.RecordRegistration(OutcomeAccepted)
	s.logger.Info("seat reserved",
		zap.String("registration_id", reg.ID),
		zap.String("student_id", actor.UserID),
		zap.String("event_id", eventID),
		zap.Int("registered", registered),
		zap.Int("total_seats", event.TotalSeats),
	)
	s.invalidate(ctx, eventID)

	if s.notifier != nil {
		s.notifier.Notify(ctx, models.NotificationRequest{
			UserID:    actor.UserID,
			EventID:   &eventID,
			Type:      models.NotificationRegistrationConfirmed,
			Title:     "Registration Confirmed",
			Message:   fmt.Sprintf("You have successfully registered for %q on %s.", event.Title, formatDay(event.EventDate)),
			DedupeKey: "registered:" + reg.ID,
		})
	}
	return reg, nil
}

func (s *RegistrationService) reserveFailure(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		s.metrics.RecordRegistration(OutcomeAlreadyRegistered)
		return appErrors.Clone(appErrors.ErrAlreadyRegistered, "you are already registered for this event")
	case errors.Is(err, repository.ErrCapacityExceeded):
		s.metrics.RecordRegistration(OutcomeEventFull)
		return appErrors.Clone(appErrors.ErrEventFull, "event is full, no more seats available")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "event not found")
	default:
		s.metrics.RecordRegistration(OutcomeError)
		return writeFailure(err, "failed to reserve seat")
	}
}

// Cancel releases the caller's seat. Only the registration's owner may cancel it.
func (s *RegistrationService) Cancel(ctx context.Context, actor models.Actor, registrationID string) error {
	reg, err := s.store.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return readFailure(err, "failed to load registration")
	}
	if reg.StudentID != actor.UserID {
		return appErrors.Clone(appErrors.ErrNotOwner, "you can only cancel your own registration")
	}

	registered, err := s.store.Release(ctx, reg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		s.metrics.RecordRegistration(OutcomeError)
		return writeFailure(err, "failed to cancel registration")
	}

	s.metrics.RecordRegistration(OutcomeCancelled)
	s.logger.Info("seat released",
		zap.String("registration_id", reg.ID),
		zap.String("student_id", actor.UserID),
		zap.String("event_id", reg.EventID),
		zap.Int("registered", registered),
	)
	s.invalidate(ctx, reg.EventID)
	return nil
}

// MyRegistrations lists the caller's registrations with event summaries.
func (s *RegistrationService) MyRegistrations(ctx context.Context, actor models.Actor) ([]models.RegistrationWithEvent, error) {
	items, err := s.store.ListByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, readFailure(err, "failed to list registrations")
	}
	if items == nil {
		items = []models.RegistrationWithEvent{}
	}
	return items, nil
}

// EventRegistrations returns the roster for an event.
func (s *RegistrationService) EventRegistrations(ctx context.Context, actor models.Actor, eventID string) (*models.EventRegistrations, error) {
	if err := requireCapability(actor, models.CapViewRosters, "not allowed to view registrations"); err != nil {
		return nil, err
	}
	event, err := loadEvent(ctx, s.events, eventID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, readFailure(err, "failed to list registrations")
	}
	if items == nil {
		items = []models.RegistrationRosterEntry{}
	}
	return &models.EventRegistrations{
		EventID:         event.ID,
		EventTitle:      event.Title,
		TotalSeats:      event.TotalSeats,
		RegisteredCount: event.RegisteredCount,
		AvailableSeats:  event.AvailableSeats(),
		Registrations:   items,
	}, nil
}

// Status reports whether the caller holds a registration for the event.
func (s *RegistrationService) Status(ctx context.Context, actor models.Actor, eventID string) (*models.RegistrationStatusView, error) {
	view := &models.RegistrationStatusView{EventID: eventID}
	reg, err := s.store.FindByStudentAndEvent(ctx, actor.UserID, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return view, nil
		}
		return nil, readFailure(err, "failed to load registration status")
	}
	status := reg.Status
	registeredAt := reg.RegisteredAt
	view.IsRegistered = status != models.RegistrationStatusCancelled
	view.Status = &status
	view.RegisteredAt = &registeredAt
	return view, nil
}

func (s *RegistrationService) invalidate(ctx context.Context, eventID string) {
	if s.cache != nil {
		s.cache.InvalidateEvent(ctx, eventID)
	}
}
