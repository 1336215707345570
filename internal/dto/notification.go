package dto

// BroadcastRequest sends one message to every active user.
type BroadcastRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=2000"`
	Type    string `json:"type" validate:"omitempty,oneof=event_reminder registration_confirmed event_update system_alert"`
}

// BroadcastResult reports how many recipients were queued.
type BroadcastResult struct {
	Recipients int `json:"recipients"`
	Queued     int `json:"queued"`
}

// UnreadCountResponse wraps the unread total.
type UnreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}

// MarkAllReadResponse reports how many notifications changed.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
