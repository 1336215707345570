package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-event-api/internal/models"
	"github.com/noah-isme/campus-event-api/internal/repository"
	appErrors "github.com/noah-isme/campus-event-api/pkg/errors"
	"github.com/noah-isme/campus-event-api/pkg/export"
	"github.com/noah-isme/campus-event-api/pkg/geo"
	"github.com/noah-isme/campus-event-api/pkg/qrtoken"
)

type attendanceStore interface {
	Exists(ctx context.Context, studentID, eventID string) (bool, error)
	Create(ctx context.Context, att *models.Attendance) error
	ListByEvent(ctx context.Context, eventID string) ([]models.AttendanceRosterEntry, error)
}

type attendedMarker interface {
	MarkAttended(ctx context.Context, studentID, eventID string) (bool, error)
}

type tokenCodec interface {
	IssueNamed(eventID, eventName string, issuedAt time.Time) (string, error)
	ExtractEventID(token string) (string, error)
}

type qrRenderer interface {
	DataURL(payload string) (string, error)
}

// AttendanceConfig controls attendance verification.
type AttendanceConfig struct {
	DefaultRadius float64
	RequireToken  bool
}

// AttendanceService verifies and records physical attendance.
type AttendanceService struct {
	store         attendanceStore
	events        eventFinder
	registrations attendedMarker
	codec         tokenCodec
	renderer      qrRenderer
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	config        AttendanceConfig
	now           func() time.Time
}

// NewAttendanceService constructs the service. A nil codec falls back to an
// unsigned codec without expiry.
func NewAttendanceService(store attendanceStore, events eventFinder, registrations attendedMarker, codec tokenCodec, renderer qrRenderer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config AttendanceConfig) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if codec == nil {
		codec = qrtoken.NewCodec("", 0)
	}
	if renderer == nil {
		renderer = qrtoken.NewRenderer(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultRadius <= 0 {
		config.DefaultRadius = 100
	}
	return &AttendanceService{
		store:         store,
		events:        events,
		registrations: registrations,
		codec:         codec,
		renderer:      renderer,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		config:        config,
		now:           time.Now,
	}
}

// Mark verifies one attendance attempt and records it. Checks run in order:
// event exists, not already marked, token matches, inside the geofence.
func (s *AttendanceService) Mark(ctx context.Context, actor models.Actor, input models.MarkAttendanceInput) (*models.Attendance, error) {
	if err := requireCapability(actor, models.CapMarkAttendance, "administrators cannot mark attendance"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "eventId, latitude and longitude are required and must be valid coordinates")
	}
	position := geo.Point{Latitude: *input.Latitude, Longitude: *input.Longitude}

	event, err := loadEvent(ctx, s.events, input.EventID)
	if err != nil {
		return nil, err
	}

	marked, err := s.store.Exists(ctx, actor.UserID, event.ID)
	if err != nil {
		return nil, readFailure(err, "failed to check attendance")
	}
	if marked {
		s.metrics.RecordAttendance(OutcomeAlreadyMarked)
		return nil, appErrors.Clone(appErrors.ErrAlreadyMarked, "attendance already marked for this event")
	}

	if s.config.RequireToken || input.Token != "" {
		if err := s.verifyToken(input.Token, event.ID); err != nil {
			s.metrics.RecordAttendance(OutcomeInvalidToken)
			return nil, err
		}
	}

	radius := event.RadiusMeters
	if radius <= 0 {
		radius = s.config.DefaultRadius
	}
	inside, distance := geo.Within(
		geo.Point{Latitude: event.Latitude, Longitude: event.Longitude},
		radius,
		position,
	)
	if !inside {
		s.metrics.RecordAttendance(OutcomeOutsideGeofence)
		return nil, appErrors.WithDetails(appErrors.ErrOutsideGeofence,
			fmt.Sprintf("you are %.0fm away from the venue, must be within %.0fm", distance, radius),
			map[string]float64{"distance_meters": distance, "radius_meters": radius},
		)
	}

	att := &models.Attendance{
		StudentID:      actor.UserID,
		EventID:        event.ID,
		Latitude:       position.Latitude,
		Longitude:      position.Longitude,
		DistanceMeters: distance,
		MarkedAt:       s.now().UTC(),
	}
	if err := s.store.Create(ctx, att); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.RecordAttendance(OutcomeAlreadyMarked)
			return nil, appErrors.Clone(appErrors.ErrAlreadyMarked, "attendance already marked for this event")
		}
		s.metrics.RecordAttendance(OutcomeError)
		return nil, writeFailure(err, "failed to record attendance")
	}

	if s.registrations != nil {
		if _, err := s.registrations.MarkAttended(ctx, actor.UserID, event.ID); err != nil {
			s.logger.Warn("failed to flip registration to attended",
				zap.String("student_id", actor.UserID),
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
		}
	}

	s.metrics.RecordAttendance(OutcomeAccepted)
	s.logger.Info("attendance marked",
		zap.String("attendance_id", att.ID),
		zap.String("student_id", actor.UserID),
		zap.String("event_id", event.ID),
		zap.Float64("distance_meters", distance),
	)
	return att, nil
}

func (s *AttendanceService) verifyToken(token, eventID string) error {
	if token == "" {
		return appErrors.Clone(appErrors.ErrInvalidToken, "QR code is required")
	}
	tokenEventID, err := s.codec.ExtractEventID(token)
	if err != nil {
		if errors.Is(err, qrtoken.ErrExpired) {
			return appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, "QR code has expired")
		}
		if errors.Is(err, qrtoken.ErrNotYetValid) {
			return appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, "QR code is not valid yet")
		}
		return appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, "invalid QR code format")
	}
	if tokenEventID != eventID {
		return appErrors.Clone(appErrors.ErrInvalidToken, "QR code does not match this event")
	}
	return nil
}

// IssueQRCode produces the token and rendered image shown at the venue.
func (s *AttendanceService) IssueQRCode(ctx context.Context, actor models.Actor, eventID string) (*models.AttendanceQRCode, error) {
	if err := requireCapability(actor, models.CapIssueQR, "not allowed to issue attendance QR codes"); err != nil {
		return nil, err
	}
	event, err := loadEvent(ctx, s.events, eventID)
	if err != nil {
		return nil, err
	}

	issuedAt := s.now().UTC()
	token, err := s.codec.IssueNamed(event.ID, event.Title, issuedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue QR token")
	}
	image, err := s.renderer.DataURL(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render QR code")
	}
	return &models.AttendanceQRCode{
		EventID:    event.ID,
		EventTitle: event.Title,
		Token:      token,
		Image:      image,
		IssuedAt:   issuedAt,
	}, nil
}

// EventAttendance returns the attendance roster of an event.
func (s *AttendanceService) EventAttendance(ctx context.Context, actor models.Actor, eventID string) (*models.EventAttendance, error) {
	if err := requireCapability(actor, models.CapViewRosters, "not allowed to view attendance"); err != nil {
		return nil, err
	}
	event, err := loadEvent(ctx, s.events, eventID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, readFailure(err, "failed to list attendance")
	}
	if records == nil {
		records = []models.AttendanceRosterEntry{}
	}
	return &models.EventAttendance{
		EventID:         event.ID,
		EventTitle:      event.Title,
		RegisteredCount: event.RegisteredCount,
		AttendedCount:   len(records),
		Records:         records,
	}, nil
}

// ExportAttendance renders the roster as a downloadable file.
func (s *AttendanceService) ExportAttendance(ctx context.Context, actor models.Actor, eventID, rawFormat string) (string, string, []byte, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return "", "", nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	view, err := s.EventAttendance(ctx, actor, eventID)
	if err != nil {
		return "", "", nil, err
	}

	roster := export.Roster{
		Title:   "Attendance: " + view.EventTitle,
		Columns: []string{"Student", "Email", "Department", "Marked At", "Distance (m)"},
	}
	for _, rec := range view.Records {
		roster.AddRow(
			rec.StudentName,
			rec.StudentEmail,
			rec.Department,
			rec.MarkedAt.UTC().Format(time.RFC3339),
			strconv.FormatFloat(rec.DistanceMeters, 'f', 1, 64),
		)
	}
	body, err := export.Render(format, roster)
	if err != nil {
		return "", "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return export.Filename("attendance-"+view.EventID, format), format.ContentType(), body, nil
}
