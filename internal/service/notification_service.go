package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-event-api/internal/dto"
	"github.com/noah-isme/campus-event-api/internal/models"
	"github.com/noah-isme/campus-event-api/internal/repository"
	appErrors "github.com/noah-isme/campus-event-api/pkg/errors"
	"github.com/noah-isme/campus-event-api/pkg/jobs"
)

const (
	// NotificationJobType tags fan-out jobs on the queue.
	NotificationJobType = "notification.deliver"

	inboxLimit = 50
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.NotificationView, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	FindByID(ctx context.Context, id string) (*models.NotificationView, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationEventReader interface {
	ListStartingBetween(ctx context.Context, from, to time.Time, status models.EventStatus) ([]models.Event, error)
	ListDeadlinesBetween(ctx context.Context, from, to time.Time, status models.EventStatus) ([]models.Event, error)
	ListByStatuses(ctx context.Context, statuses ...models.EventStatus) ([]models.Event, error)
}

type notificationAudience interface {
	ListActiveIDs(ctx context.Context, role *models.UserRole) ([]string, error)
	ListStudentsWithoutRegistration(ctx context.Context, eventID string) ([]string, error)
}

type notificationSeatHolders interface {
	ListActiveStudentIDs(ctx context.Context, eventID string) ([]string, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// NotificationConfig tunes scheduled notification rules.
type NotificationConfig struct {
	CapacityAlertRatio float64
}

// NotificationService fans notifications out to users and runs the
// scheduled reminder, warning, alert and cleanup operations.
type NotificationService struct {
	store     notificationStore
	events    notificationEventReader
	users     notificationAudience
	seats     notificationSeatHolders
	queue     jobEnqueuer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    NotificationConfig
}

// NewNotificationService constructs the service. A nil queue delivers inline.
func NewNotificationService(
	store notificationStore,
	events notificationEventReader,
	users notificationAudience,
	seats notificationSeatHolders,
	queue jobEnqueuer,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	config NotificationConfig,
) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CapacityAlertRatio <= 0 {
		config.CapacityAlertRatio = 0.1
	}
	return &NotificationService{
		store:     store,
		events:    events,
		users:     users,
		seats:     seats,
		queue:     queue,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// SetQueue attaches the worker queue once it has been built around HandleJob.
func (s *NotificationService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Notify hands a request to the fan-out. It never fails the caller: enqueue
// and delivery problems are logged and counted only.
func (s *NotificationService) Notify(ctx context.Context, req models.NotificationRequest) bool {
	if s == nil {
		return false
	}
	if s.queue == nil {
		if err := s.deliver(ctx, req); err != nil {
			s.logger.Warn("notification delivery failed", zap.String("user_id", req.UserID), zap.String("type", string(req.Type)), zap.Error(err))
			return false
		}
		return true
	}
	job := jobs.Job{ID: uuid.NewString(), Type: NotificationJobType, Payload: req}
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.RecordNotification("dropped")
		s.logger.Warn("notification enqueue failed", zap.String("user_id", req.UserID), zap.String("type", string(req.Type)), zap.Error(err))
		return false
	}
	return true
}

// NotifyMany fans the same message out to several users.
func (s *NotificationService) NotifyMany(ctx context.Context, userIDs []string, template models.NotificationRequest) int {
	queued := 0
	for _, id := range userIDs {
		req := template
		req.UserID = id
		if template.DedupeKey != "" {
			req.DedupeKey = template.DedupeKey + ":" + id
		}
		if s.Notify(ctx, req) {
			queued++
		}
	}
	return queued
}

// HandleJob is the queue worker entry point.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(models.NotificationRequest)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	return s.deliver(ctx, req)
}

// deliver persists one notification. A reused dedupe key counts as delivered.
func (s *NotificationService) deliver(ctx context.Context, req models.NotificationRequest) error {
	n := &models.Notification{
		UserID:  req.UserID,
		EventID: req.EventID,
		Type:    req.Type,
		Title:   req.Title,
		Message: req.Message,
	}
	if req.DedupeKey != "" {
		key := req.DedupeKey
		n.DedupeKey = &key
	}
	if err := s.store.Create(ctx, n); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.RecordNotification("duplicate")
			return nil
		}
		s.metrics.RecordNotification(OutcomeError)
		return err
	}
	s.metrics.RecordNotification("delivered")
	return nil
}

// ListMine returns the caller's latest notifications and unread count.
func (s *NotificationService) ListMine(ctx context.Context, actor models.Actor) (*models.NotificationInbox, error) {
	items, err := s.store.ListByUser(ctx, actor.UserID, inboxLimit)
	if err != nil {
		return nil, readFailure(err, "failed to list notifications")
	}
	unread, err := s.store.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, readFailure(err, "failed to count unread notifications")
	}
	if items == nil {
		items = []models.NotificationView{}
	}
	return &models.NotificationInbox{UnreadCount: unread, Notifications: items}, nil
}

// UnreadCount returns the caller's unread total.
func (s *NotificationService) UnreadCount(ctx context.Context, actor models.Actor) (int, error) {
	unread, err := s.store.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, readFailure(err, "failed to count unread notifications")
	}
	return unread, nil
}

// Get returns one of the caller's notifications.
func (s *NotificationService) Get(ctx context.Context, actor models.Actor, id string) (*models.NotificationView, error) {
	return s.owned(ctx, actor, id)
}

// MarkRead flags one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id string) (*models.NotificationView, error) {
	n, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkRead(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, writeFailure(err, "failed to mark notification read")
	}
	n.IsRead = true
	return n, nil
}

// MarkAllRead flags all of the caller's notifications as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor models.Actor) (int64, error) {
	updated, err := s.store.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, writeFailure(err, "failed to mark notifications read")
	}
	return updated, nil
}

// Delete removes one of the caller's notifications.
func (s *NotificationService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return writeFailure(err, "failed to delete notification")
	}
	return nil
}

func (s *NotificationService) owned(ctx context.Context, actor models.Actor, id string) (*models.NotificationView, error) {
	n, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, readFailure(err, "failed to load notification")
	}
	if n.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotOwner, "notification belongs to another user")
	}
	return n, nil
}

// Broadcast queues one message for every active user.
func (s *NotificationService) Broadcast(ctx context.Context, actor models.Actor, req dto.BroadcastRequest) (*dto.BroadcastResult, error) {
	if err := requireCapability(actor, models.CapBroadcast, "only administrators can broadcast"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "title and message are required")
	}
	kind := models.NotificationSystemAlert
	if req.Type != "" {
		kind = models.NotificationType(req.Type)
	}

	recipients, err := s.users.ListActiveIDs(ctx, nil)
	if err != nil {
		return nil, readFailure(err, "failed to load recipients")
	}
	queued := s.NotifyMany(ctx, recipients, models.NotificationRequest{Type: kind, Title: req.Title, Message: req.Message})
	s.logger.Info("broadcast queued", zap.String("actor_id", actor.UserID), zap.Int("recipients", len(recipients)), zap.Int("queued", queued))
	return &dto.BroadcastResult{Recipients: len(recipients), Queued: queued}, nil
}

// NotifyNewEvent tells every active student about a freshly created event.
func (s *NotificationService) NotifyNewEvent(ctx context.Context, event *models.Event) {
	role := models.RoleStudent
	students, err := s.users.ListActiveIDs(ctx, &role)
	if err != nil {
		s.logger.Warn("failed to load students for new event notification", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	eventID := event.ID
	s.NotifyMany(ctx, students, models.NotificationRequest{
		EventID:   &eventID,
		Type:      models.NotificationSystemAlert,
		Title:     "New Event: " + event.Title,
		Message:   fmt.Sprintf("A new event %q has been scheduled for %s at %s. Register before %s.", event.Title, formatDay(event.EventDate), event.VenueName, formatDay(event.RegistrationDeadline)),
		DedupeKey: "new-event:" + event.ID,
	})
}

// NotifyEventUpdated tells seat holders an event changed.
func (s *NotificationService) NotifyEventUpdated(ctx context.Context, event *models.Event) {
	holders, err := s.seats.ListActiveStudentIDs(ctx, event.ID)
	if err != nil {
		s.logger.Warn("failed to load seat holders for update notification", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	eventID := event.ID
	s.NotifyMany(ctx, holders, models.NotificationRequest{
		EventID: &eventID,
		Type:    models.NotificationEventUpdate,
		Title:   "Event Updated: " + event.Title,
		Message: fmt.Sprintf("Details for %q have changed. It now takes place on %s at %s.", event.Title, formatDay(event.EventDate), event.VenueName),
	})
}

// SendRemindersForWindow reminds seat holders of upcoming events starting in [from, to].
// Each (event, start time, student) is reminded at most once.
func (s *NotificationService) SendRemindersForWindow(ctx context.Context, from, to time.Time) (*models.ScheduledRunResult, error) {
	events, err := s.events.ListStartingBetween(ctx, from, to, models.EventStatusUpcoming)
	if err != nil {
		return nil, readFailure(err, "failed to load upcoming events")
	}
	result := &models.ScheduledRunResult{Operation: "event_reminders", EventsProcessed: len(events)}
	for i := range events {
		event := events[i]
		holders, err := s.seats.ListActiveStudentIDs(ctx, event.ID)
		if err != nil {
			return result, readFailure(err, "failed to load seat holders")
		}
		eventID := event.ID
		for _, studentID := range holders {
			s.tally(ctx, result, models.NotificationRequest{
				UserID:    studentID,
				EventID:   &eventID,
				Type:      models.NotificationEventReminder,
				Title:     "Event Reminder: " + event.Title,
				Message:   fmt.Sprintf("Your registered event %q is happening on %s at %s. Don't miss it!", event.Title, formatDay(event.EventDate), event.VenueName),
				DedupeKey: fmt.Sprintf("reminder:%s:%d:%s", event.ID, event.EventDate.Unix(), studentID),
			})
		}
	}
	s.logger.Info("event reminders processed", zap.Int("events", result.EventsProcessed), zap.Int("sent", result.Sent), zap.Int("skipped", result.Skipped), zap.Int("failed", result.Failed))
	return result, nil
}

// SendDeadlineWarnings warns students without a seat about registrations closing in [from, to].
func (s *NotificationService) SendDeadlineWarnings(ctx context.Context, from, to time.Time) (*models.ScheduledRunResult, error) {
	events, err := s.events.ListDeadlinesBetween(ctx, from, to, models.EventStatusUpcoming)
	if err != nil {
		return nil, readFailure(err, "failed to load closing events")
	}
	result := &models.ScheduledRunResult{Operation: "deadline_warnings", EventsProcessed: len(events)}
	for i := range events {
		event := events[i]
		students, err := s.users.ListStudentsWithoutRegistration(ctx, event.ID)
		if err != nil {
			return result, readFailure(err, "failed to load unregistered students")
		}
		eventID := event.ID
		for _, studentID := range students {
			s.tally(ctx, result, models.NotificationRequest{
				UserID:    studentID,
				EventID:   &eventID,
				Type:      models.NotificationEventReminder,
				Title:     "Registration Deadline Soon: " + event.Title,
				Message:   fmt.Sprintf("Registration for %q closes on %s. Register now to secure your seat!", event.Title, formatDay(event.RegistrationDeadline)),
				DedupeKey: fmt.Sprintf("deadline:%s:%d:%s", event.ID, event.RegistrationDeadline.Unix(), studentID),
			})
		}
	}
	s.logger.Info("deadline warnings processed", zap.Int("events", result.EventsProcessed), zap.Int("sent", result.Sent), zap.Int("skipped", result.Skipped), zap.Int("failed", result.Failed))
	return result, nil
}

// SendCapacityAlerts tells event creators when few seats remain. An alert is
// sent once per remaining-seat level.
func (s *NotificationService) SendCapacityAlerts(ctx context.Context) (*models.ScheduledRunResult, error) {
	events, err := s.events.ListByStatuses(ctx, models.EventStatusUpcoming, models.EventStatusOngoing)
	if err != nil {
		return nil, readFailure(err, "failed to load open events")
	}
	result := &models.ScheduledRunResult{Operation: "capacity_alerts", EventsProcessed: len(events)}
	for i := range events {
		event := events[i]
		remaining := event.TotalSeats - event.RegisteredCount
		threshold := float64(event.TotalSeats) * s.config.CapacityAlertRatio
		if remaining <= 0 || float64(remaining) > threshold {
			continue
		}
		eventID := event.ID
		s.tally(ctx, result, models.NotificationRequest{
			UserID:    event.CreatedBy,
			EventID:   &eventID,
			Type:      models.NotificationSystemAlert,
			Title:     "Capacity Alert",
			Message:   fmt.Sprintf("Only %d seat(s) remaining for %q", remaining, event.Title),
			DedupeKey: fmt.Sprintf("capacity:%s:%d", event.ID, remaining),
		})
	}
	s.logger.Info("capacity alerts processed", zap.Int("events", result.EventsProcessed), zap.Int("sent", result.Sent), zap.Int("skipped", result.Skipped))
	return result, nil
}

// CleanOlderThan deletes read notifications created before cutoff.
func (s *NotificationService) CleanOlderThan(ctx context.Context, cutoff time.Time) (*models.ScheduledRunResult, error) {
	deleted, err := s.store.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return nil, writeFailure(err, "failed to clean notifications")
	}
	s.logger.Info("old notifications cleaned", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	return &models.ScheduledRunResult{Operation: "cleanup", Deleted: deleted}, nil
}

// TriggerReminders runs the reminder window on behalf of an operator.
func (s *NotificationService) TriggerReminders(ctx context.Context, actor models.Actor, window time.Duration) (*models.ScheduledRunResult, error) {
	if err := requireCapability(actor, models.CapBroadcast, "only administrators can send reminders"); err != nil {
		return nil, err
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	now := time.Now().UTC()
	return s.SendRemindersForWindow(ctx, now, now.Add(window))
}

// tally delivers synchronously so scheduled runs report exact counts.
func (s *NotificationService) tally(ctx context.Context, result *models.ScheduledRunResult, req models.NotificationRequest) {
	n := &models.Notification{UserID: req.UserID, EventID: req.EventID, Type: req.Type, Title: req.Title, Message: req.Message}
	key := req.DedupeKey
	n.DedupeKey = &key
	err := s.store.Create(ctx, n)
	switch {
	case err == nil:
		result.Sent++
		s.metrics.RecordNotification("delivered")
	case errors.Is(err, repository.ErrDuplicate):
		result.Skipped++
		s.metrics.RecordNotification("duplicate")
	default:
		result.Failed++
		s.metrics.RecordNotification(OutcomeError)
		s.logger.Warn("scheduled notification failed", zap.String("user_id", req.UserID), zap.String("dedupe_key", key), zap.Error(err))
	}
}

func formatDay(t time.Time) string {
	return t.Format("Mon Jan 2 2006")
}
