package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-event-api/internal/dto"
	"github.com/noah-isme/campus-event-api/internal/models"
	"github.com/noah-isme/campus-event-api/pkg/response"
)

type ratingService interface {
	Rate(ctx context.Context, actor models.Actor, req dto.RateEventRequest) (*models.Rating, error)
	EventRatings(ctx context.Context, eventID string) (*models.EventRatings, error)
	MyRating(ctx context.Context, actor models.Actor, eventID string) (*models.Rating, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
}

// RatingHandler exposes post-event feedback.
type RatingHandler struct {
	service ratingService
}

// NewRatingHandler constructs the handler.
func NewRatingHandler(service ratingService) *RatingHandler {
	return &RatingHandler{service: service}
}

// Rate godoc
// @Summary Rate an attended event
// @Tags Ratings
// @Accept json
// @Produce json
// @Param payload body dto.RateEventRequest true "Rating"
// @Success 200 {object} response.Envelope
// @Router /ratings [post]
func (h *RatingHandler) Rate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid rating payload"))
		return
	}
	rating, err := h.service.Rate(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "rating saved", rating)
}

// EventRatings godoc
// @Summary Ratings of an event
// @Tags Ratings
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /ratings/events/{eventId} [get]
func (h *RatingHandler) EventRatings(c *gin.Context) {
	summary, err := h.service.EventRatings(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Mine godoc
// @Summary My rating for an event
// @Tags Ratings
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /ratings/events/{eventId}/me [get]
func (h *RatingHandler) Mine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	rating, err := h.service.MyRating(c.Request.Context(), actor, c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rating, nil)
}

// Delete godoc
// @Summary Delete my rating
// @Tags Ratings
// @Param id path string true "Rating ID"
// @Success 204
// @Router /ratings/{id} [delete]
func (h *RatingHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
