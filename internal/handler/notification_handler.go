package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-event-api/internal/dto"
	"github.com/noah-isme/campus-event-api/internal/models"
	appErrors "github.com/noah-isme/campus-event-api/pkg/errors"
	"github.com/noah-isme/campus-event-api/pkg/response"
)

type notificationService interface {
	ListMine(ctx context.Context, actor models.Actor) (*models.NotificationInbox, error)
	UnreadCount(ctx context.Context, actor models.Actor) (int, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.NotificationView, error)
	MarkRead(ctx context.Context, actor models.Actor, id string) (*models.NotificationView, error)
	MarkAllRead(ctx context.Context, actor models.Actor) (int64, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Broadcast(ctx context.Context, actor models.Actor, req dto.BroadcastRequest) (*dto.BroadcastResult, error)
	TriggerReminders(ctx context.Context, actor models.Actor, window time.Duration) (*models.ScheduledRunResult, error)
}

// NotificationHandler exposes the caller's inbox and operator broadcasts.
type NotificationHandler struct {
	service        notificationService
	reminderWindow time.Duration
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(service notificationService, reminderWindow time.Duration) *NotificationHandler {
	return &NotificationHandler{service: service, reminderWindow: reminderWindow}
}

// List godoc
// @Summary My notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	inbox, err := h.service.ListMine(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inbox, nil)
}

// UnreadCount godoc
// @Summary Unread notification count
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	count, err := h.service.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.UnreadCountResponse{UnreadCount: count}, nil)
}

// Get godoc
// @Summary Get a notification
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Router /notifications/{id} [get]
func (h *NotificationHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	n, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, n, nil)
}

// MarkRead godoc
// @Summary Mark a notification read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	n, err := h.service.MarkRead(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "notification marked as read", n)
}

// MarkAllRead godoc
// @Summary Mark all notifications read
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications/read-all [put]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	updated, err := h.service.MarkAllRead(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "all notifications marked as read", dto.MarkAllReadResponse{Updated: updated})
}

// Delete godoc
// @Summary Delete a notification
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
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

// Broadcast godoc
// @Summary Broadcast to all users
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body dto.BroadcastRequest true "Message"
// @Success 202 {object} response.Envelope
// @Router /notifications/broadcast [post]
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid broadcast payload"))
		return
	}
	result, err := h.service.Broadcast(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, result, nil)
}

// TriggerReminders godoc
// @Summary Send event reminders now
// @Tags Notifications
// @Produce json
// @Param window query string false "Look-ahead window, e.g. 24h"
// @Success 200 {object} response.Envelope
// @Router /notifications/reminders [post]
func (h *NotificationHandler) TriggerReminders(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	window := h.reminderWindow
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "window must be a positive duration such as 24h"))
			return
		}
		window = parsed
	}
	result, err := h.service.TriggerReminders(c.Request.Context(), actor, window)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
