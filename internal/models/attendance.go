package models

import "time"

// Attendance records that a student was present at an event.
type Attendance struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	EventID        string    `db:"event_id" json:"event_id"`
	Latitude       float64   `db:"latitude" json:"latitude"`
	Longitude      float64   `db:"longitude" json:"longitude"`
	DistanceMeters float64   `db:"distance_meters" json:"distance_meters"`
	MarkedAt       time.Time `db:"marked_at" json:"marked_at"`
}

// MarkAttendanceInput is one attendance attempt. Coordinates are pointers so
// a missing value is distinguishable from the equator or prime meridian.
type MarkAttendanceInput struct {
	EventID   string   `validate:"required"`
	Latitude  *float64 `validate:"required,min=-90,max=90"`
	Longitude *float64 `validate:"required,min=-180,max=180"`
	Token     string
}

// AttendanceRosterEntry joins an attendance row with the student.
type AttendanceRosterEntry struct {
	Attendance
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	Department   string `db:"department" json:"department"`
}

// EventAttendance is the attendance roster for one event.
type EventAttendance struct {
	EventID         string                  `json:"event_id"`
	EventTitle      string                  `json:"event_title"`
	RegisteredCount int                     `json:"registered_count"`
	AttendedCount   int                     `json:"attended_count"`
	Records         []AttendanceRosterEntry `json:"records"`
}

// AttendanceQRCode is what an organiser displays at the venue.
type AttendanceQRCode struct {
	EventID    string    `json:"event_id"`
	EventTitle string    `json:"event_title"`
	Token      string    `json:"token"`
	Image      string    `json:"image"`
	IssuedAt   time.Time `json:"issued_at"`
}
