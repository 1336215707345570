package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-event-api/internal/models"
)

const registrationColumns = `id, student_id, event_id, status, registered_at, updated_at`

// RegistrationRepository owns registrations and the event seat counter derived from them.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Reserve takes a seat for the student. The event row stays locked from the
// capacity check through the counter update so concurrent reservations
// serialise per event. The counter is recomputed from the registration set.
// Returns ErrDuplicate, ErrCapacityExceeded, or sql.ErrNoRows for an unknown event.
func (r *RegistrationRepository) Reserve(ctx context.Context, studentID, eventID string) (reg *models.Registration, registered int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin reservation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	event, err := lockEvent(ctx, tx, eventID)
	if err != nil {
		return nil, 0, err
	}

	var exists bool
	const existsQuery = `SELECT EXISTS (SELECT 1 FROM registrations WHERE student_id = $1 AND event_id = $2 AND status <> 'cancelled')`
	if err = tx.GetContext(ctx, &exists, existsQuery, studentID, eventID); err != nil {
		return nil, 0, fmt.Errorf("check registration: %w", err)
	}
	if exists {
		err = ErrDuplicate
		return nil, 0, err
	}

	count, err := countActiveRegistrations(ctx, tx, eventID)
	if err != nil {
		return nil, 0, err
	}
	if count >= event.TotalSeats {
		err = ErrCapacityExceeded
		return nil, 0, err
	}

	now := time.Now().UTC()
	reg = &models.Registration{
		ID:           uuid.NewString(),
		StudentID:    studentID,
		EventID:      eventID,
		Status:       models.RegistrationStatusRegistered,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	const insertQuery = `INSERT INTO registrations (id, student_id, event_id, status, registered_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, insertQuery, reg.ID, reg.StudentID, reg.EventID, reg.Status, reg.RegisteredAt, reg.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicate
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("insert registration: %w", err)
	}

	registered = count + 1
	if err = syncRegisteredCount(ctx, tx, eventID, registered); err != nil {
		return nil, 0, err
	}

	if err = tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit reservation: %w", err)
	}
	return reg, registered, nil
}

// Release deletes the registration and recounts the event's seats in the same
// transaction, so the counter never reflects a state older than the delete.
func (r *RegistrationRepository) Release(ctx context.Context, reg *models.Registration) (registered int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin release: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = lockEvent(ctx, tx, reg.EventID); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, reg.ID)
	if err != nil {
		return 0, fmt.Errorf("delete registration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete registration rows: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return 0, err
	}

	if registered, err = countActiveRegistrations(ctx, tx, reg.EventID); err != nil {
		return 0, err
	}
	if err = syncRegisteredCount(ctx, tx, reg.EventID, registered); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit release: %w", err)
	}
	return registered, nil
}

// FindByID returns a registration. Absence is reported as sql.ErrNoRows.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return &reg, nil
}

// FindByStudentAndEvent returns the student's registration for the event.
func (r *RegistrationRepository) FindByStudentAndEvent(ctx context.Context, studentID, eventID string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE student_id = $1 AND event_id = $2`
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, studentID, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find registration by student: %w", err)
	}
	return &reg, nil
}

// ListByStudent returns the student's registrations with event summaries, newest first.
func (r *RegistrationRepository) ListByStudent(ctx context.Context, studentID string) ([]models.RegistrationWithEvent, error) {
	const query = `
SELECT
	r.id, r.student_id, r.event_id, r.status, r.registered_at, r.updated_at,
	e.title AS event_title,
	e.event_date,
	e.venue_name,
	e.department,
	e.status AS event_status,
	e.total_seats,
	e.registered_count
FROM registrations r
JOIN events e ON e.id = r.event_id
WHERE r.student_id = $1
ORDER BY r.registered_at DESC`
	var items []models.RegistrationWithEvent
	if err := r.db.SelectContext(ctx, &items, query, studentID); err != nil {
		return nil, fmt.Errorf("list student registrations: %w", err)
	}
	for i := range items {
		if free := items[i].TotalSeats - items[i].RegisteredCount; free > 0 {
			items[i].AvailableSeats = free
		}
	}
	return items, nil
}

// ListByEvent returns the event's registration roster.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]models.RegistrationRosterEntry, error) {
	const query = `
SELECT
	r.id, r.student_id, r.event_id, r.status, r.registered_at, r.updated_at,
	COALESCE(u.full_name, '') AS student_name,
	COALESCE(u.email, '') AS student_email,
	COALESCE(u.department, '') AS department
FROM registrations r
LEFT JOIN users u ON u.id = r.student_id
WHERE r.event_id = $1
ORDER BY r.registered_at ASC`
	var items []models.RegistrationRosterEntry
	if err := r.db.SelectContext(ctx, &items, query, eventID); err != nil {
		return nil, fmt.Errorf("list event registrations: %w", err)
	}
	return items, nil
}

// ListActiveStudentIDs returns the students holding a seat for the event.
func (r *RegistrationRepository) ListActiveStudentIDs(ctx context.Context, eventID string) ([]string, error) {
	const query = `SELECT student_id FROM registrations WHERE event_id = $1 AND status <> 'cancelled' ORDER BY registered_at ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, eventID); err != nil {
		return nil, fmt.Errorf("list registered students: %w", err)
	}
	return ids, nil
}

// MarkAttended flips an active registration to attended. Missing rows are not an error.
func (r *RegistrationRepository) MarkAttended(ctx context.Context, studentID, eventID string) (bool, error) {
	const query = `UPDATE registrations SET status = 'attended', updated_at = $3 WHERE student_id = $1 AND event_id = $2 AND status = 'registered'`
	res, err := r.db.ExecContext(ctx, query, studentID, eventID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("mark registration attended: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark registration attended rows: %w", err)
	}
	return affected > 0, nil
}
