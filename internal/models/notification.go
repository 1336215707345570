package models

import "time"

// NotificationType tags a notification's origin.
type NotificationType string

const (
	NotificationEventReminder         NotificationType = "event_reminder"
	NotificationRegistrationConfirmed NotificationType = "registration_confirmed"
	NotificationEventUpdate           NotificationType = "event_update"
	NotificationSystemAlert           NotificationType = "system_alert"
)

// Valid reports whether the type is known.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationEventReminder, NotificationRegistrationConfirmed, NotificationEventUpdate, NotificationSystemAlert:
		return true
	default:
		return false
	}
}

// Notification is a message addressed to a single user.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	EventID   *string          `db:"event_id" json:"event_id,omitempty"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	IsRead    bool             `db:"is_read" json:"is_read"`
	DedupeKey *string          `db:"dedupe_key" json:"-"`
	SentAt    time.Time        `db:"sent_at" json:"sent_at"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// NotificationView embeds the referenced event's summary.
type NotificationView struct {
	Notification
	EventTitle      *string    `db:"event_title" json:"event_title,omitempty"`
	EventDate       *time.Time `db:"event_date" json:"event_date,omitempty"`
	EventDepartment *string    `db:"event_department" json:"event_department,omitempty"`
}

// NotificationRequest is a fan-out request. A DedupeKey makes delivery idempotent.
type NotificationRequest struct {
	UserID    string
	EventID   *string
	Type      NotificationType
	Title     string
	Message   string
	DedupeKey string
}

// NotificationInbox is a user's latest notifications plus the unread total.
type NotificationInbox struct {
	UnreadCount   int                `json:"unread_count"`
	Notifications []NotificationView `json:"notifications"`
}

// ScheduledRunResult summarises one scheduled notification operation.
type ScheduledRunResult struct {
	Operation       string `json:"operation"`
	EventsProcessed int    `json:"events_processed"`
	Sent            int    `json:"sent"`
	Skipped         int    `json:"skipped"`
	Failed          int    `json:"failed"`
	Deleted         int64  `json:"deleted,omitempty"`
}
