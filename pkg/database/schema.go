package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema lists idempotent DDL statements. The unique constraints on
// registrations and attendance back the duplicate checks done in services.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	full_name TEXT NOT NULL,
	department TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	venue_name TEXT NOT NULL,
	department TEXT NOT NULL,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	radius_meters DOUBLE PRECISION NOT NULL DEFAULT 100,
	event_date TIMESTAMPTZ NOT NULL,
	registration_deadline TIMESTAMPTZ NOT NULL,
	total_seats INTEGER NOT NULL CHECK (total_seats >= 0),
	registered_count INTEGER NOT NULL DEFAULT 0 CHECK (registered_count >= 0),
	status TEXT NOT NULL DEFAULT 'upcoming',
	created_by TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (registration_deadline < event_date)
)`,
	`CREATE INDEX IF NOT EXISTS idx_events_event_date ON events (event_date)`,
	`CREATE INDEX IF NOT EXISTS idx_events_department ON events (department)`,
	`CREATE TABLE IF NOT EXISTS registrations (
	id TEXT PRIMARY KEY,
	student_id TEXT NOT NULL,
	event_id TEXT NOT NULL REFERENCES events (id),
	status TEXT NOT NULL DEFAULT 'registered',
	registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT uq_registrations_student_event UNIQUE (student_id, event_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_registrations_event ON registrations (event_id)`,
	`CREATE TABLE IF NOT EXISTS attendance (
	id TEXT PRIMARY KEY,
	student_id TEXT NOT NULL,
	event_id TEXT NOT NULL REFERENCES events (id),
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	distance_meters DOUBLE PRECISION NOT NULL DEFAULT 0,
	marked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT uq_attendance_student_event UNIQUE (student_id, event_id)
)`,
	`CREATE TABLE IF NOT EXISTS notifications (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	event_id TEXT,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	message TEXT NOT NULL,
	is_read BOOLEAN NOT NULL DEFAULT FALSE,
	dedupe_key TEXT UNIQUE,
	sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, sent_at DESC)`,
	`CREATE TABLE IF NOT EXISTS ratings (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL REFERENCES events (id),
	user_id TEXT NOT NULL,
	rating SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
	review TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT uq_ratings_event_user UNIQUE (event_id, user_id)
)`,
}

// EnsureSchema creates missing tables and indexes.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
