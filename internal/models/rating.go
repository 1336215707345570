package models

import "time"

// Rating is a 1..5 score left by an attendee.
type Rating struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Rating    int       `db:"rating" json:"rating"`
	Review    string    `db:"review" json:"review"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RatingView adds the reviewer's name.
type RatingView struct {
	Rating
	UserName string `db:"user_name" json:"user_name"`
}

// EventRatings lists an event's ratings with the average rounded to one decimal.
type EventRatings struct {
	EventID       string       `json:"event_id"`
	AverageRating float64      `json:"average_rating"`
	TotalRatings  int          `json:"total_ratings"`
	Ratings       []RatingView `json:"ratings"`
}
