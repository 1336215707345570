package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-event-api/internal/models"
)

const eventColumns = `id, title, description, venue_name, department, latitude, longitude, radius_meters, event_date, registration_deadline, total_seats, registered_count, status, created_by, created_at, updated_at`

// EventRepository persists events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	if event.Status == "" {
		event.Status = models.EventStatusUpcoming
	}

	const query = `INSERT INTO events (id, title, description, venue_name, department, latitude, longitude, radius_meters, event_date, registration_deadline, total_seats, registered_count, status, created_by, created_at, updated_at)
VALUES (:id, :title, :description, :venue_name, :department, :latitude, :longitude, :radius_meters, :event_date, :registration_deadline, :total_seats, :registered_count, :status, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// FindByID returns an event. Absence is reported as sql.ErrNoRows.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return &event, nil
}

// List returns events matching the filter ordered by event date, plus the total count.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	base := ` FROM events WHERE 1=1`
	var args []interface{}
	if filter.Department != "" {
		args = append(args, filter.Department)
		base += fmt.Sprintf(" AND department = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		base += fmt.Sprintf(" AND status = $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	listQuery := fmt.Sprintf("SELECT %s%s ORDER BY event_date ASC LIMIT %d OFFSET %d", eventColumns, base, size, (page-1)*size)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}
	return events, total, nil
}

// Update locks the event, applies mutate, then persists the editable columns.
// The seat total may not drop below the live registration count; that case
// returns ErrCapacityExceeded.
func (r *EventRepository) Update(ctx context.Context, id string, mutate func(*models.Event) error) (event *models.Event, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin event update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	event, err = lockEvent(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err = mutate(event); err != nil {
		return nil, err
	}

	count, err := countActiveRegistrations(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if event.TotalSeats < count {
		err = ErrCapacityExceeded
		return nil, err
	}
	event.RegisteredCount = count
	event.UpdatedAt = time.Now().UTC()

	const query = `UPDATE events SET title = :title, description = :description, venue_name = :venue_name, department = :department,
latitude = :latitude, longitude = :longitude, radius_meters = :radius_meters, event_date = :event_date,
registration_deadline = :registration_deadline, total_seats = :total_seats, registered_count = :registered_count,
status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit event update: %w", err)
	}
	return event, nil
}

// ListStartingBetween returns events with the given status whose start falls within [from, to].
func (r *EventRepository) ListStartingBetween(ctx context.Context, from, to time.Time, status models.EventStatus) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE event_date >= $1 AND event_date <= $2 AND status = $3 ORDER BY event_date ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, from, to, status); err != nil {
		return nil, fmt.Errorf("list events by start: %w", err)
	}
	return events, nil
}

// ListDeadlinesBetween returns events with the given status whose registration closes within [from, to].
func (r *EventRepository) ListDeadlinesBetween(ctx context.Context, from, to time.Time, status models.EventStatus) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE registration_deadline >= $1 AND registration_deadline <= $2 AND status = $3 ORDER BY registration_deadline ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, from, to, status); err != nil {
		return nil, fmt.Errorf("list events by deadline: %w", err)
	}
	return events, nil
}

// ListByStatuses returns events in any of the given statuses.
func (r *EventRepository) ListByStatuses(ctx context.Context, statuses ...models.EventStatus) ([]models.Event, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = s
	}
	query := fmt.Sprintf("SELECT %s FROM events WHERE status IN (%s) ORDER BY event_date ASC", eventColumns, strings.Join(placeholders, ", "))
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list events by status: %w", err)
	}
	return events, nil
}

func lockEvent(ctx context.Context, tx *sqlx.Tx, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	var event models.Event
	if err := tx.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock event: %w", err)
	}
	return &event, nil
}

func countActiveRegistrations(ctx context.Context, tx *sqlx.Tx, eventID string) (int, error) {
	const query = `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status <> 'cancelled'`
	var count int
	if err := tx.GetContext(ctx, &count, query, eventID); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

func syncRegisteredCount(ctx context.Context, tx *sqlx.Tx, eventID string, count int) error {
	const query = `UPDATE events SET registered_count = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, eventID, count, time.Now().UTC()); err != nil {
		return fmt.Errorf("sync registered count: %w", err)
	}
	return nil
}
