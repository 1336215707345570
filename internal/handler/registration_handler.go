package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-event-api/internal/models"
	"github.com/noah-isme/campus-event-api/pkg/response"
)

type registrationService interface {
	Register(ctx context.Context, actor models.Actor, eventID string) (*models.Registration, error)
	Cancel(ctx context.Context, actor models.Actor, registrationID string) error
	MyRegistrations(ctx context.Context, actor models.Actor) ([]models.RegistrationWithEvent, error)
	EventRegistrations(ctx context.Context, actor models.Actor, eventID string) (*models.EventRegistrations, error)
	Status(ctx context.Context, actor models.Actor, eventID string) (*models.RegistrationStatusView, error)
}

// RegistrationHandler exposes seat reservation endpoints.
type RegistrationHandler struct {
	service registrationService
}

// NewRegistrationHandler constructs the handler.
func NewRegistrationHandler(service registrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

// Register godoc
// @Summary Register for an event
// @Tags Registrations
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope "DEADLINE_PASSED"
// @Failure 409 {object} response.Envelope "ALREADY_REGISTERED or EVENT_FULL"
// @Router /registrations/events/{eventId} [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	reg, err := h.service.Register(c.Request.Context(), actor, c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg, "successfully registered for event")
}

// Cancel godoc
// @Summary Cancel a registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope "NOT_OWNER"
// @Router /registrations/{id} [delete]
func (h *RegistrationHandler) Cancel(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Cancel(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "registration cancelled", nil)
}

// Mine godoc
// @Summary List my registrations
// @Tags Registrations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /registrations/me [get]
func (h *RegistrationHandler) Mine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.MyRegistrations(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Status godoc
// @Summary Check my registration for an event
// @Tags Registrations
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/status/{eventId} [get]
func (h *RegistrationHandler) Status(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	view, err := h.service.Status(c.Request.Context(), actor, c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// EventRoster godoc
// @Summary Registration roster of an event
// @Tags Registrations
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/events/{eventId} [get]
func (h *RegistrationHandler) EventRoster(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	roster, err := h.service.EventRegistrations(c.Request.Context(), actor, c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}
