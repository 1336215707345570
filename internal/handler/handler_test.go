package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-event-api/internal/dto"
	"github.com/noah-isme/campus-event-api/internal/middleware"
	"github.com/noah-isme/campus-event-api/internal/models"
	appErrors "github.com/noah-isme/campus-event-api/pkg/errors"
)

type responseEnvelope struct {
	Data    json.RawMessage        `json:"data"`
	Message string                 `json:"message"`
	Error   *appErrors.Error       `json:"error"`
	Meta    map[string]interface{} `json:"meta"`
}

func studentClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleStudent}
}

// serve runs a single handler against a test context.
func serve(t *testing.T, handle gin.HandlerFunc, method, target string, body interface{}, claims *models.JWTClaims, params ...gin.Param) (*httptest.ResponseRecorder, responseEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = params
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	middleware.WithResponseMeta()(c)
	handle(c)
	// Flush status-only responses as gin's engine does after the handler chain.
	c.Writer.WriteHeaderNow()

	var env responseEnvelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

type registrationServiceMock struct {
	registerErr error
	cancelled   string
	lastEvent   string
	lastActor   models.Actor
}

func (m *registrationServiceMock) Register(ctx context.Context, actor models.Actor, eventID string) (*models.Registration, error) {
	m.lastActor = actor
	m.lastEvent = eventID
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	return &models.Registration{ID: "reg-1", StudentID: actor.UserID, EventID: eventID, Status: models.RegistrationStatusRegistered}, nil
}

func (m *registrationServiceMock) Cancel(ctx context.Context, actor models.Actor, registrationID string) error {
	m.cancelled = registrationID
	return nil
}

func (m *registrationServiceMock) MyRegistrations(ctx context.Context, actor models.Actor) ([]models.RegistrationWithEvent, error) {
	return []models.RegistrationWithEvent{}, nil
}

func (m *registrationServiceMock) EventRegistrations(ctx context.Context, actor models.Actor, eventID string) (*models.EventRegistrations, error) {
	return nil, appErrors.ErrRoleNotPermitted
}

func (m *registrationServiceMock) Status(ctx context.Context, actor models.Actor, eventID string) (*models.RegistrationStatusView, error) {
	return &models.RegistrationStatusView{}, nil
}

func TestRegistrationHandlerRegister(t *testing.T) {
	svc := &registrationServiceMock{}
	h := NewRegistrationHandler(svc)

	w, env := serve(t, h.Register, http.MethodPost, "/api/v1/registrations/events/evt-1", nil, studentClaims("stu-1"), gin.Param{Key: "eventId", Value: "evt-1"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "evt-1", svc.lastEvent)
	assert.Equal(t, models.Actor{UserID: "stu-1", Role: models.RoleStudent}, svc.lastActor)
	assert.Equal(t, "successfully registered for event", env.Message)
}

func TestRegistrationHandlerMapsDomainErrors(t *testing.T) {
	svc := &registrationServiceMock{registerErr: appErrors.Clone(appErrors.ErrEventFull, "")}
	h := NewRegistrationHandler(svc)

	w, env := serve(t, h.Register, http.MethodPost, "/", nil, studentClaims("stu-1"), gin.Param{Key: "eventId", Value: "evt-1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "EVENT_FULL", env.Error.Code)

	svc.registerErr = appErrors.Clone(appErrors.ErrWriteUncertain, "")
	w, env = serve(t, h.Register, http.MethodPost, "/", nil, studentClaims("stu-1"), gin.Param{Key: "eventId", Value: "evt-1"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "WRITE_UNCERTAIN", env.Error.Code)
}

func TestRegistrationHandlerRequiresAuth(t *testing.T) {
	svc := &registrationServiceMock{}
	h := NewRegistrationHandler(svc)

	w, _ := serve(t, h.Register, http.MethodPost, "/", nil, nil, gin.Param{Key: "eventId", Value: "evt-1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.lastEvent)
}

func TestRegistrationHandlerCancelAndRoster(t *testing.T) {
	svc := &registrationServiceMock{}
	h := NewRegistrationHandler(svc)

	w, _ := serve(t, h.Cancel, http.MethodDelete, "/", nil, studentClaims("stu-1"), gin.Param{Key: "id", Value: "reg-9"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reg-9", svc.cancelled)

	w, env := serve(t, h.EventRoster, http.MethodGet, "/", nil, studentClaims("stu-1"), gin.Param{Key: "eventId", Value: "evt-1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ROLE_NOT_PERMITTED", env.Error.Code)
}

type attendanceServiceMock struct {
	input     models.MarkAttendanceInput
	called    bool
	markErr   error
	format    string
	exportErr error
}

func (m *attendanceServiceMock) Mark(ctx context.Context, actor models.Actor, input models.MarkAttendanceInput) (*models.Attendance, error) {
	m.called = true
	m.input = input
	if m.markErr != nil {
		return nil, m.markErr
	}
	return &models.Attendance{ID: "att-1", StudentID: actor.UserID, EventID: input.EventID}, nil
}

func (m *attendanceServiceMock) IssueQRCode(ctx context.Context, actor models.Actor, eventID string) (*models.AttendanceQRCode, error) {
	return &models.AttendanceQRCode{EventID: eventID, Token: "tok", Image: "data:image/png;base64,AA=="}, nil
}

func (m *attendanceServiceMock) EventAttendance(ctx context.Context, actor models.Actor, eventID string) (*models.EventAttendance, error) {
	return &models.EventAttendance{EventID: eventID}, nil
}

func (m *attendanceServiceMock) ExportAttendance(ctx context.Context, actor models.Actor, eventID, format string) (string, string, []byte, error) {
	m.format = format
	if m.exportErr != nil {
		return "", "", nil, m.exportErr
	}
	return "attendance-" + eventID + ".csv", "text/csv", []byte("Student,Email\n"), nil
}

func TestAttendanceHandlerMark(t *testing.T) {
	svc := &attendanceServiceMock{}
	h := NewAttendanceHandler(svc)

	body := map[string]interface{}{"eventId": " evt-1 ", "latitude": -6.2, "longitude": 106.8, "qrCode": "tok"}
	w, _ := serve(t, h.Mark, http.MethodPost, "/", body, studentClaims("stu-1"))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "evt-1", svc.input.EventID)
	assert.Equal(t, "tok", svc.input.Token)
	require.NotNil(t, svc.input.Latitude)
	require.NotNil(t, svc.input.Longitude)
	assert.Equal(t, -6.2, *svc.input.Latitude)
	assert.Equal(t, 106.8, *svc.input.Longitude)
}

func TestAttendanceHandlerPassesMissingCoordinatesAsNil(t *testing.T) {
	svc := &attendanceServiceMock{markErr: appErrors.Clone(appErrors.ErrValidation, "eventId, latitude and longitude are required")}
	h := NewAttendanceHandler(svc)

	w, env := serve(t, h.Mark, http.MethodPost, "/", map[string]interface{}{"eventId": "evt-1", "latitude": 0}, studentClaims("stu-1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	require.True(t, svc.called)
	require.NotNil(t, svc.input.Latitude)
	assert.Zero(t, *svc.input.Latitude)
	assert.Nil(t, svc.input.Longitude)
}

func TestAttendanceHandlerCarriesGeofenceDetails(t *testing.T) {
	svc := &attendanceServiceMock{markErr: appErrors.WithDetails(appErrors.ErrOutsideGeofence, "you are 150m away", map[string]float64{
		"distance_meters": 150,
		"radius_meters":   100,
	})}
	h := NewAttendanceHandler(svc)

	body := map[string]interface{}{"eventId": "evt-1", "latitude": -6.2, "longitude": 106.8}
	w, env := serve(t, h.Mark, http.MethodPost, "/", body, studentClaims("stu-1"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "OUTSIDE_GEOFENCE", env.Error.Code)
	details, ok := env.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 150.0, details["distance_meters"])
	assert.Equal(t, 100.0, details["radius_meters"])
}

func TestAttendanceHandlerExport(t *testing.T) {
	svc := &attendanceServiceMock{}
	h := NewAttendanceHandler(svc)

	w, _ := serve(t, h.Export, http.MethodGet, "/?format=csv", nil, studentClaims("coord-1"), gin.Param{Key: "eventId", Value: "evt-1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.format)
	assert.Equal(t, `attachment; filename="attendance-evt-1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Student,Email\n", w.Body.String())
}

type eventServiceMock struct {
	hit   bool
	query dto.ListEventsQuery
}

func (m *eventServiceMock) Create(ctx context.Context, actor models.Actor, req dto.CreateEventRequest) (*models.EventView, error) {
	return &models.EventView{Event: models.Event{ID: "evt-new", Title: req.Title}}, nil
}

func (m *eventServiceMock) List(ctx context.Context, query dto.ListEventsQuery) (*dto.EventListResult, bool, error) {
	m.query = query
	return &dto.EventListResult{
		Items:      []models.EventView{{Event: models.Event{ID: "evt-1"}}},
		Pagination: models.Pagination{Page: 1, PageSize: 20, TotalCount: 1},
	}, m.hit, nil
}

func (m *eventServiceMock) Get(ctx context.Context, id string) (*models.EventView, bool, error) {
	if id != "evt-1" {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}
	return &models.EventView{Event: models.Event{ID: id}}, m.hit, nil
}

func (m *eventServiceMock) Location(ctx context.Context, id string) (*models.EventLocation, error) {
	return &models.EventLocation{EventID: id, RadiusMeters: 100}, nil
}

func (m *eventServiceMock) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateEventRequest) (*models.EventView, error) {
	return &models.EventView{Event: models.Event{ID: id}}, nil
}

func TestEventHandlerListReportsCacheState(t *testing.T) {
	svc := &eventServiceMock{hit: true}
	h := NewEventHandler(svc)

	w, env := serve(t, h.List, http.MethodGet, "/?department=CS&page=2", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get(middleware.CacheHeader))
	assert.Equal(t, "CS", svc.query.Department)
	assert.Equal(t, 2, svc.query.Page)
	assert.Equal(t, true, env.Meta["cache_hit"])
}

func TestEventHandlerGetNotFound(t *testing.T) {
	h := NewEventHandler(&eventServiceMock{})

	w, env := serve(t, h.Get, http.MethodGet, "/", nil, nil, gin.Param{Key: "id", Value: "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	w, _ = serve(t, h.Get, http.MethodGet, "/", nil, nil, gin.Param{Key: "id", Value: "evt-1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get(middleware.CacheHeader))
}

type notificationServiceMock struct {
	window time.Duration
	called bool
}

func (m *notificationServiceMock) ListMine(ctx context.Context, actor models.Actor) (*models.NotificationInbox, error) {
	return &models.NotificationInbox{UnreadCount: 2}, nil
}

func (m *notificationServiceMock) UnreadCount(ctx context.Context, actor models.Actor) (int, error) {
	return 3, nil
}

func (m *notificationServiceMock) Get(ctx context.Context, actor models.Actor, id string) (*models.NotificationView, error) {
	return nil, appErrors.Clone(appErrors.ErrNotOwner, "")
}

func (m *notificationServiceMock) MarkRead(ctx context.Context, actor models.Actor, id string) (*models.NotificationView, error) {
	return &models.NotificationView{}, nil
}

func (m *notificationServiceMock) MarkAllRead(ctx context.Context, actor models.Actor) (int64, error) {
	return 4, nil
}

func (m *notificationServiceMock) Delete(ctx context.Context, actor models.Actor, id string) error {
	return nil
}

func (m *notificationServiceMock) Broadcast(ctx context.Context, actor models.Actor, req dto.BroadcastRequest) (*dto.BroadcastResult, error) {
	return &dto.BroadcastResult{}, nil
}

func (m *notificationServiceMock) TriggerReminders(ctx context.Context, actor models.Actor, window time.Duration) (*models.ScheduledRunResult, error) {
	m.called = true
	m.window = window
	return &models.ScheduledRunResult{Operation: "event_reminders"}, nil
}

func TestNotificationHandlerTriggerRemindersWindow(t *testing.T) {
	svc := &notificationServiceMock{}
	h := NewNotificationHandler(svc, 24*time.Hour)
	admin := &models.JWTClaims{UserID: "adm", Role: models.RoleAdmin}

	w, _ := serve(t, h.TriggerReminders, http.MethodPost, "/", nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 24*time.Hour, svc.window)

	w, _ = serve(t, h.TriggerReminders, http.MethodPost, "/?window=2h", nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2*time.Hour, svc.window)

	svc.called = false
	w, env := serve(t, h.TriggerReminders, http.MethodPost, "/?window=soon", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.False(t, svc.called)
}

func TestNotificationHandlerInbox(t *testing.T) {
	h := NewNotificationHandler(&notificationServiceMock{}, time.Hour)

	w, env := serve(t, h.UnreadCount, http.MethodGet, "/", nil, studentClaims("stu-1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unreadCount":3}`, string(env.Data))

	w, env = serve(t, h.MarkAllRead, http.MethodPut, "/", nil, studentClaims("stu-1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":4}`, string(env.Data))

	w, env = serve(t, h.Get, http.MethodGet, "/", nil, studentClaims("stu-1"), gin.Param{Key: "id", Value: "n-1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NOT_OWNER", env.Error.Code)

	w, _ = serve(t, h.Delete, http.MethodDelete, "/", nil, studentClaims("stu-1"), gin.Param{Key: "id", Value: "n-1"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"database": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})

	w, _ := serve(t, h.Ready, http.MethodGet, "/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Checks["database"])
	assert.Equal(t, "connection refused", body.Checks["redis"])

	w, _ = serve(t, h.Prometheus, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
