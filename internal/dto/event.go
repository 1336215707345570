package dto

import (
	"time"

	"github.com/noah-isme/campus-event-api/internal/models"
)

// CreateEventRequest is the payload for creating an event.
type CreateEventRequest struct {
	Title                string    `json:"title" validate:"required,max=200"`
	Description          string    `json:"description" validate:"max=5000"`
	VenueName            string    `json:"venueName" validate:"required,max=200"`
	Department           string    `json:"department" validate:"required,max=100"`
	Latitude             *float64  `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude            *float64  `json:"longitude" validate:"required,min=-180,max=180"`
	RadiusMeters         *float64  `json:"radiusMeters" validate:"omitempty,gt=0"`
	EventDate            time.Time `json:"eventDate" validate:"required"`
	RegistrationDeadline time.Time `json:"registrationDeadline" validate:"required"`
	TotalSeats           int       `json:"totalSeats" validate:"required,min=1"`
}

// UpdateEventRequest carries a partial event update.
type UpdateEventRequest struct {
	Title                *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description          *string    `json:"description" validate:"omitempty,max=5000"`
	VenueName            *string    `json:"venueName" validate:"omitempty,min=1,max=200"`
	Department           *string    `json:"department" validate:"omitempty,min=1,max=100"`
	Latitude             *float64   `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude            *float64   `json:"longitude" validate:"omitempty,min=-180,max=180"`
	RadiusMeters         *float64   `json:"radiusMeters" validate:"omitempty,gt=0"`
	EventDate            *time.Time `json:"eventDate"`
	RegistrationDeadline *time.Time `json:"registrationDeadline"`
	TotalSeats           *int       `json:"totalSeats" validate:"omitempty,min=1"`
	Status               *string    `json:"status" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
}

// ListEventsQuery binds list query parameters.
type ListEventsQuery struct {
	Department string `form:"department"`
	Status     string `form:"status" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// EventListResult is one page of events as cached and served.
type EventListResult struct {
	Items      []models.EventView `json:"items"`
	Pagination models.Pagination  `json:"pagination"`
}
