package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-event-api/internal/dto"
	"github.com/noah-isme/campus-event-api/internal/models"
	"github.com/noah-isme/campus-event-api/internal/repository"
	"github.com/noah-isme/campus-event-api/pkg/cache"
	appErrors "github.com/noah-isme/campus-event-api/pkg/errors"
)

type eventStore interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	Update(ctx context.Context, id string, mutate func(*models.Event) error) (*models.Event, error)
}

type eventNotifier interface {
	NotifyNewEvent(ctx context.Context, event *models.Event)
	NotifyEventUpdated(ctx context.Context, event *models.Event)
}

// EventServiceConfig holds event defaults.
type EventServiceConfig struct {
	DefaultRadius float64
	CacheTTL      time.Duration
}

// EventService manages the event catalogue.
type EventService struct {
	repo      eventStore
	notifier  eventNotifier
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    EventServiceConfig
}

// NewEventService constructs the service.
func NewEventService(repo eventStore, notifier eventNotifier, cache *CacheService, validate *validator.Validate, logger *zap.Logger, config EventServiceConfig) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultRadius <= 0 {
		config.DefaultRadius = 100
	}
	return &EventService{repo: repo, notifier: notifier, cache: cache, validator: validate, logger: logger, config: config}
}

// Create schedules a new event and announces it to students.
func (s *EventService) Create(ctx context.Context, actor models.Actor, req dto.CreateEventRequest) (*models.EventView, error) {
	if err := requireCapability(actor, models.CapManageEvents, "not allowed to create events"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if !req.RegistrationDeadline.Before(req.EventDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration deadline must be before event date")
	}

	radius := s.config.DefaultRadius
	if req.RadiusMeters != nil {
		radius = *req.RadiusMeters
	}
	event := &models.Event{
		Title:                req.Title,
		Description:          req.Description,
		VenueName:            req.VenueName,
		Department:           req.Department,
		Latitude:             *req.Latitude,
		Longitude:            *req.Longitude,
		RadiusMeters:         radius,
		EventDate:            req.EventDate.UTC(),
		RegistrationDeadline: req.RegistrationDeadline.UTC(),
		TotalSeats:           req.TotalSeats,
		Status:               models.EventStatusUpcoming,
		CreatedBy:            actor.UserID,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, writeFailure(err, "failed to create event")
	}

	s.logger.Info("event created", zap.String("event_id", event.ID), zap.String("actor_id", actor.UserID), zap.Int("total_seats", event.TotalSeats))
	s.cache.InvalidateEvent(ctx, event.ID)
	if s.notifier != nil {
		s.notifier.NotifyNewEvent(ctx, event)
	}

	view := models.NewEventView(*event)
	return &view, nil
}

// List returns one page of events and reports whether it came from cache.
func (s *EventService) List(ctx context.Context, query dto.ListEventsQuery) (*dto.EventListResult, bool, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters")
	}
	filter := models.EventFilter{Department: query.Department, Page: query.Page, PageSize: query.PageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if query.Status != "" {
		status := models.EventStatus(query.Status)
		filter.Status = &status
	}

	key := cache.Key("events", "list", query.Department, query.Status, strconv.Itoa(filter.Page), strconv.Itoa(filter.PageSize))
	var cached dto.EventListResult
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, false, readFailure(err, "failed to list events")
	}
	result := &dto.EventListResult{
		Items:      make([]models.EventView, 0, len(events)),
		Pagination: models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total},
	}
	for _, e := range events {
		result.Items = append(result.Items, models.NewEventView(e))
	}
	_ = s.cache.Set(ctx, key, result, s.config.CacheTTL)
	return result, false, nil
}

// Get returns an event with its live seat counts.
func (s *EventService) Get(ctx context.Context, id string) (*models.EventView, bool, error) {
	key := EventDetailKey(id)
	var cached models.EventView
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	event, err := loadEvent(ctx, s.repo, id)
	if err != nil {
		return nil, false, err
	}
	view := models.NewEventView(*event)
	_ = s.cache.Set(ctx, key, view, s.config.CacheTTL)
	return &view, false, nil
}

// Location returns the geofence preview for an event.
func (s *EventService) Location(ctx context.Context, id string) (*models.EventLocation, error) {
	event, err := loadEvent(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	radius := event.RadiusMeters
	if radius <= 0 {
		radius = s.config.DefaultRadius
	}
	return &models.EventLocation{
		EventID:      event.ID,
		VenueName:    event.VenueName,
		Latitude:     event.Latitude,
		Longitude:    event.Longitude,
		RadiusMeters: radius,
	}, nil
}

// Update applies a partial change. Seats cannot drop below the live
// registration count and the deadline must stay before the event date.
func (s *EventService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateEventRequest) (*models.EventView, error) {
	if err := requireCapability(actor, models.CapManageEvents, "not allowed to update events"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	patch := patchFromRequest(req)
	if patch.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}

	event, err := s.repo.Update(ctx, id, func(e *models.Event) error {
		patch.Apply(e)
		if !e.RegistrationDeadline.Before(e.EventDate) {
			return appErrors.Clone(appErrors.ErrValidation, "registration deadline must be before event date")
		}
		return nil
	})
	if err != nil {
		var appErr *appErrors.Error
		switch {
		case errors.As(err, &appErr):
			return nil, appErr
		case errors.Is(err, repository.ErrCapacityExceeded):
			return nil, appErrors.Clone(appErrors.ErrValidation, "total seats cannot be lower than the current registration count")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		default:
			return nil, writeFailure(err, "failed to update event")
		}
	}

	s.logger.Info("event updated", zap.String("event_id", event.ID), zap.String("actor_id", actor.UserID))
	s.cache.InvalidateEvent(ctx, event.ID)
	if s.notifier != nil {
		s.notifier.NotifyEventUpdated(ctx, event)
	}

	view := models.NewEventView(*event)
	return &view, nil
}

func patchFromRequest(req dto.UpdateEventRequest) models.EventPatch {
	patch := models.EventPatch{
		Title:        req.Title,
		Description:  req.Description,
		VenueName:    req.VenueName,
		Department:   req.Department,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RadiusMeters: req.RadiusMeters,
		TotalSeats:   req.TotalSeats,
	}
	if req.EventDate != nil {
		t := req.EventDate.UTC()
		patch.EventDate = &t
	}
	if req.RegistrationDeadline != nil {
		t := req.RegistrationDeadline.UTC()
		patch.RegistrationDeadline = &t
	}
	if req.Status != nil {
		status := models.EventStatus(*req.Status)
		patch.Status = &status
	}
	return patch
}
