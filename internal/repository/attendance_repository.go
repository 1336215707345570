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

// AttendanceRepository persists attendance facts. The (student_id, event_id)
// unique constraint is the authority on duplicates.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Exists reports whether the student already has attendance for the event.
func (r *AttendanceRepository) Exists(ctx context.Context, studentID, eventID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM attendance WHERE student_id = $1 AND event_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, eventID); err != nil {
		return false, fmt.Errorf("check attendance: %w", err)
	}
	return exists, nil
}

// Create inserts the attendance row. A concurrent insert for the same pair
// yields ErrDuplicate instead of a second row.
func (r *AttendanceRepository) Create(ctx context.Context, att *models.Attendance) error {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	if att.MarkedAt.IsZero() {
		att.MarkedAt = time.Now().UTC()
	}

	const query = `INSERT INTO attendance (id, student_id, event_id, latitude, longitude, distance_meters, marked_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, event_id) DO NOTHING
RETURNING id`
	var id string
	err := r.db.QueryRowxContext(ctx, query, att.ID, att.StudentID, att.EventID, att.Latitude, att.Longitude, att.DistanceMeters, att.MarkedAt).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// ListByEvent returns the attendance roster for an event, earliest first.
func (r *AttendanceRepository) ListByEvent(ctx context.Context, eventID string) ([]models.AttendanceRosterEntry, error) {
	const query = `
SELECT
	a.id, a.student_id, a.event_id, a.latitude, a.longitude, a.distance_meters, a.marked_at,
	COALESCE(u.full_name, '') AS student_name,
	COALESCE(u.email, '') AS student_email,
	COALESCE(u.department, '') AS department
FROM attendance a
LEFT JOIN users u ON u.id = a.student_id
WHERE a.event_id = $1
ORDER BY a.marked_at ASC`
	var items []models.AttendanceRosterEntry
	if err := r.db.SelectContext(ctx, &items, query, eventID); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return items, nil
}
