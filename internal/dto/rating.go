package dto

// RateEventRequest submits or replaces a rating.
type RateEventRequest struct {
	EventID string `json:"eventId" validate:"required"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Review  string `json:"review" validate:"max=500"`
}
