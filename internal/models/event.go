package models

import "time"

// EventStatus tracks an event's lifecycle.
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusOngoing   EventStatus = "ongoing"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// Valid reports whether the status is known.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusUpcoming, EventStatusOngoing, EventStatusCompleted, EventStatusCancelled:
		return true
	default:
		return false
	}
}

// Event is a geofenced campus event with a seat capacity.
// RegisteredCount mirrors the number of active registrations and is only
// written from inside the registration transactions.
type Event struct {
	ID                   string      `db:"id" json:"id"`
	Title                string      `db:"title" json:"title"`
	Description          string      `db:"description" json:"description"`
	VenueName            string      `db:"venue_name" json:"venue_name"`
	Department           string      `db:"department" json:"department"`
	Latitude             float64     `db:"latitude" json:"latitude"`
	Longitude            float64     `db:"longitude" json:"longitude"`
	RadiusMeters         float64     `db:"radius_meters" json:"radius_meters"`
	EventDate            time.Time   `db:"event_date" json:"event_date"`
	RegistrationDeadline time.Time   `db:"registration_deadline" json:"registration_deadline"`
	TotalSeats           int         `db:"total_seats" json:"total_seats"`
	RegisteredCount      int         `db:"registered_count" json:"registered_count"`
	Status               EventStatus `db:"status" json:"status"`
	CreatedBy            string      `db:"created_by" json:"created_by"`
	CreatedAt            time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at" json:"updated_at"`
}

// AvailableSeats returns the remaining capacity, never negative.
func (e *Event) AvailableSeats() int {
	if e == nil || e.RegisteredCount >= e.TotalSeats {
		return 0
	}
	return e.TotalSeats - e.RegisteredCount
}

// DeadlinePassed reports whether registration has closed at the given instant.
func (e *Event) DeadlinePassed(now time.Time) bool {
	return now.After(e.RegistrationDeadline)
}

// EventView decorates an event with derived seat data for responses.
type EventView struct {
	Event
	AvailableSeats int `json:"available_seats"`
}

// NewEventView builds the response projection of an event.
func NewEventView(e Event) EventView {
	return EventView{Event: e, AvailableSeats: e.AvailableSeats()}
}

// EventLocation is the geofence preview served to clients.
type EventLocation struct {
	EventID      string  `json:"event_id"`
	VenueName    string  `json:"venue_name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

// EventFilter captures list criteria for events.
type EventFilter struct {
	Department string
	Status     *EventStatus
	Page       int
	PageSize   int
}

// EventPatch carries optional updates to an event.
type EventPatch struct {
	Title                *string
	Description          *string
	VenueName            *string
	Department           *string
	Latitude             *float64
	Longitude            *float64
	RadiusMeters         *float64
	EventDate            *time.Time
	RegistrationDeadline *time.Time
	TotalSeats           *int
	Status               *EventStatus
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.VenueName == nil && p.Department == nil &&
		p.Latitude == nil && p.Longitude == nil && p.RadiusMeters == nil && p.EventDate == nil &&
		p.RegistrationDeadline == nil && p.TotalSeats == nil && p.Status == nil
}

// Apply writes the patch onto the event.
func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.VenueName != nil {
		e.VenueName = *p.VenueName
	}
	if p.Department != nil {
		e.Department = *p.Department
	}
	if p.Latitude != nil {
		e.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		e.Longitude = *p.Longitude
	}
	if p.RadiusMeters != nil {
		e.RadiusMeters = *p.RadiusMeters
	}
	if p.EventDate != nil {
		e.EventDate = *p.EventDate
	}
	if p.RegistrationDeadline != nil {
		e.RegistrationDeadline = *p.RegistrationDeadline
	}
	if p.TotalSeats != nil {
		e.TotalSeats = *p.TotalSeats
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
}
