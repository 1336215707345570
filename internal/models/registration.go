package models

import "time"

// RegistrationStatus tracks a seat holder's progress.
type RegistrationStatus string

const (
	RegistrationStatusRegistered RegistrationStatus = "registered"
	RegistrationStatusAttended   RegistrationStatus = "attended"
	RegistrationStatusCancelled  RegistrationStatus = "cancelled"
)

// Registration links one student to one event seat.
type Registration struct {
	ID           string             `db:"id" json:"id"`
	StudentID    string             `db:"student_id" json:"student_id"`
	EventID      string             `db:"event_id" json:"event_id"`
	Status       RegistrationStatus `db:"status" json:"status"`
	RegisteredAt time.Time          `db:"registered_at" json:"registered_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// RegistrationWithEvent embeds a short event summary for a student's list.
type RegistrationWithEvent struct {
	Registration
	EventTitle      string      `db:"event_title" json:"event_title"`
	EventDate       time.Time   `db:"event_date" json:"event_date"`
	VenueName       string      `db:"venue_name" json:"venue_name"`
	Department      string      `db:"department" json:"department"`
	EventStatus     EventStatus `db:"event_status" json:"event_status"`
	TotalSeats      int         `db:"total_seats" json:"total_seats"`
	RegisteredCount int         `db:"registered_count" json:"registered_count"`
	AvailableSeats  int         `db:"-" json:"available_seats"`
}

// RegistrationRosterEntry is one row of an event's registration roster.
type RegistrationRosterEntry struct {
	Registration
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	Department   string `db:"department" json:"department"`
}

// EventRegistrations is the roster for one event plus totals.
type EventRegistrations struct {
	EventID         string                    `json:"event_id"`
	EventTitle      string                    `json:"event_title"`
	TotalSeats      int                       `json:"total_seats"`
	RegisteredCount int                       `json:"registered_count"`
	AvailableSeats  int                       `json:"available_seats"`
	Registrations   []RegistrationRosterEntry `json:"registrations"`
}

// RegistrationStatusView answers "am I registered for this event".
type RegistrationStatusView struct {
	EventID      string              `json:"event_id"`
	IsRegistered bool                `json:"is_registered"`
	Status       *RegistrationStatus `json:"status,omitempty"`
	RegisteredAt *time.Time          `json:"registered_at,omitempty"`
}
