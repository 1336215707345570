package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-event-api/internal/dto"
	"github.com/noah-isme/campus-event-api/internal/models"
	"github.com/noah-isme/campus-event-api/pkg/response"
)

type attendanceService interface {
	Mark(ctx context.Context, actor models.Actor, input models.MarkAttendanceInput) (*models.Attendance, error)
	IssueQRCode(ctx context.Context, actor models.Actor, eventID string) (*models.AttendanceQRCode, error)
	EventAttendance(ctx context.Context, actor models.Actor, eventID string) (*models.EventAttendance, error)
	ExportAttendance(ctx context.Context, actor models.Actor, eventID, format string) (string, string, []byte, error)
}

// AttendanceHandler exposes attendance marking and rosters.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// Mark godoc
// @Summary Mark attendance
// @Description Verifies the venue QR code and the caller's position against the event geofence.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.MarkAttendanceRequest true "Attendance attempt"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope "INVALID_TOKEN"
// @Failure 403 {object} response.Envelope "OUTSIDE_GEOFENCE with distance_meters and radius_meters"
// @Failure 409 {object} response.Envelope "ALREADY_MARKED"
// @Router /attendance/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid attendance payload"))
		return
	}

	att, err := h.service.Mark(c.Request.Context(), actor, models.MarkAttendanceInput{
		EventID:   strings.TrimSpace(req.EventID),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Token:     req.QRCode,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, att, "attendance marked successfully")
}

// QRCode godoc
// @Summary Issue the venue QR code
// @Tags Attendance
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/events/{eventId}/qr [get]
func (h *AttendanceHandler) QRCode(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	qr, err := h.service.IssueQRCode(c.Request.Context(), actor, c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, qr, nil)
}

// EventRoster godoc
// @Summary Attendance roster of an event
// @Tags Attendance
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/events/{eventId} [get]
func (h *AttendanceHandler) EventRoster(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	view, err := h.service.EventAttendance(c.Request.Context(), actor, c.Param("eventId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Export godoc
// @Summary Download the attendance roster
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param eventId path string true "Event ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Router /attendance/events/{eventId}/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.ExportAttendanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid export parameters"))
		return
	}
	filename, contentType, body, err := h.service.ExportAttendance(c.Request.Context(), actor, c.Param("eventId"), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, contentType, body)
}
