package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/campus-event-api/internal/models"
	"github.com/noah-isme/campus-event-api/internal/repository"
	appErrors "github.com/noah-isme/campus-event-api/pkg/errors"
)

// ledgerFake is an in-memory record store guarded by one mutex so that the
// reserve and release paths are atomic like the SQL transactions.
type ledgerFake struct {
	mu            sync.Mutex
	events        map[string]*models.Event
	registrations map[string]*models.Registration
	attendance    map[string]models.Attendance
	users         map[string]*models.User
	seq           int

	eventErr   error
	reserveErr error
	existsErr  error
	markErr    error
}

func newLedgerFake() *ledgerFake {
	return &ledgerFake{
		events:        map[string]*models.Event{},
		registrations: map[string]*models.Registration{},
		attendance:    map[string]models.Attendance{},
		users:         map[string]*models.User{},
	}
}

func (f *ledgerFake) addEvent(e models.Event) *models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := e
	f.events[e.ID] = &stored
	return &stored
}

func (f *ledgerFake) event(id string) models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.events[id]
}

func (f *ledgerFake) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *ledgerFake) activeCountLocked(eventID string) int {
	n := 0
	for _, r := range f.registrations {
		if r.EventID == eventID && r.Status != models.RegistrationStatusCancelled {
			n++
		}
	}
	return n
}

func attendanceKey(studentID, eventID string) string {
	return studentID + "|" + eventID
}

type fakeEventStore struct{ *ledgerFake }

func (f fakeEventStore) Create(ctx context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event.ID == "" {
		event.ID = f.nextID("evt")
	}
	stored := *event
	f.events[event.ID] = &stored
	return nil
}

func (f fakeEventStore) FindByID(ctx context.Context, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventErr != nil {
		return nil, f.eventErr
	}
	e, ok := f.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *e
	return &copied, nil
}

func (f fakeEventStore) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []models.Event
	for _, e := range f.events {
		if filter.Department != "" && e.Department != filter.Department {
			continue
		}
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		matched = append(matched, *e)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].EventDate.Before(matched[j].EventDate) })
	start := (filter.Page - 1) * filter.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func (f fakeEventStore) Update(ctx context.Context, id string, mutate func(*models.Event) error) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	working := *e
	if err := mutate(&working); err != nil {
		return nil, err
	}
	count := f.activeCountLocked(id)
	if working.TotalSeats < count {
		return nil, repository.ErrCapacityExceeded
	}
	working.RegisteredCount = count
	*e = working
	return &working, nil
}

func (f fakeEventStore) ListStartingBetween(ctx context.Context, from, to time.Time, status models.EventStatus) ([]models.Event, error) {
	return f.filter(func(e *models.Event) bool {
		return e.Status == status && !e.EventDate.Before(from) && !e.EventDate.After(to)
	}), nil
}

func (f fakeEventStore) ListDeadlinesBetween(ctx context.Context, from, to time.Time, status models.EventStatus) ([]models.Event, error) {
	return f.filter(func(e *models.Event) bool {
		return e.Status == status && !e.RegistrationDeadline.Before(from) && !e.RegistrationDeadline.After(to)
	}), nil
}

func (f fakeEventStore) ListByStatuses(ctx context.Context, statuses ...models.EventStatus) ([]models.Event, error) {
	return f.filter(func(e *models.Event) bool {
		for _, s := range statuses {
			if e.Status == s {
				return true
			}
		}
		return false
	}), nil
}

func (f fakeEventStore) filter(keep func(*models.Event) bool) []models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, e := range f.events {
		if keep(e) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeSeatStore struct{ *ledgerFake }

func (f fakeSeatStore) Reserve(ctx context.Context, studentID, eventID string) (*models.Registration, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserveErr != nil {
		return nil, 0, f.reserveErr
	}
	event, ok := f.events[eventID]
	if !ok {
		return nil, 0, sql.ErrNoRows
	}
	for _, r := range f.registrations {
		if r.StudentID == studentID && r.EventID == eventID {
			return nil, 0, repository.ErrDuplicate
		}
	}
	count := f.activeCountLocked(eventID)
	if count >= event.TotalSeats {
		return nil, 0, repository.ErrCapacityExceeded
	}
	reg := &models.Registration{
		ID:           f.nextID("reg"),
		StudentID:    studentID,
		EventID:      eventID,
		Status:       models.RegistrationStatusRegistered,
		RegisteredAt: time.Now().UTC(),
	}
	f.registrations[reg.ID] = reg
	event.RegisteredCount = count + 1
	copied := *reg
	return &copied, event.RegisteredCount, nil
}

func (f fakeSeatStore) Release(ctx context.Context, reg *models.Registration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.registrations[reg.ID]; !ok {
		return 0, sql.ErrNoRows
	}
	delete(f.registrations, reg.ID)
	count := f.activeCountLocked(reg.EventID)
	if e, ok := f.events[reg.EventID]; ok {
		e.RegisteredCount = count
	}
	return count, nil
}

func (f fakeSeatStore) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.registrations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *r
	return &copied, nil
}

func (f fakeSeatStore) FindByStudentAndEvent(ctx context.Context, studentID, eventID string) (*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.registrations {
		if r.StudentID == studentID && r.EventID == eventID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f fakeSeatStore) ListByStudent(ctx context.Context, studentID string) ([]models.RegistrationWithEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RegistrationWithEvent
	for _, r := range f.registrations {
		if r.StudentID != studentID {
			continue
		}
		e := f.events[r.EventID]
		out = append(out, models.RegistrationWithEvent{
			Registration:    *r,
			EventTitle:      e.Title,
			TotalSeats:      e.TotalSeats,
			RegisteredCount: e.RegisteredCount,
			AvailableSeats:  e.AvailableSeats(),
		})
	}
	return out, nil
}

func (f fakeSeatStore) ListByEvent(ctx context.Context, eventID string) ([]models.RegistrationRosterEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RegistrationRosterEntry
	for _, r := range f.registrations {
		if r.EventID == eventID {
			out = append(out, models.RegistrationRosterEntry{Registration: *r})
		}
	}
	return out, nil
}

func (f fakeSeatStore) ListActiveStudentIDs(ctx context.Context, eventID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.registrations {
		if r.EventID == eventID && r.Status != models.RegistrationStatusCancelled {
			out = append(out, r.StudentID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f fakeSeatStore) MarkAttended(ctx context.Context, studentID, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return false, f.markErr
	}
	for _, r := range f.registrations {
		if r.StudentID == studentID && r.EventID == eventID && r.Status == models.RegistrationStatusRegistered {
			r.Status = models.RegistrationStatusAttended
			return true, nil
		}
	}
	return false, nil
}

type fakeAttendanceStore struct{ *ledgerFake }

func (f fakeAttendanceStore) Exists(ctx context.Context, studentID, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.attendance[attendanceKey(studentID, eventID)]
	return ok, nil
}

func (f fakeAttendanceStore) Create(ctx context.Context, att *models.Attendance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := attendanceKey(att.StudentID, att.EventID)
	if _, ok := f.attendance[key]; ok {
		return repository.ErrDuplicate
	}
	att.ID = f.nextID("att")
	f.attendance[key] = *att
	return nil
}

func (f fakeAttendanceStore) ListByEvent(ctx context.Context, eventID string) ([]models.AttendanceRosterEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AttendanceRosterEntry
	for _, a := range f.attendance {
		if a.EventID != eventID {
			continue
		}
		entry := models.AttendanceRosterEntry{Attendance: a}
		if u, ok := f.users[a.StudentID]; ok {
			entry.StudentName = u.FullName
			entry.StudentEmail = u.Email
			entry.Department = u.Department
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	requests []models.NotificationRequest
	created  []string
	updated  []string
}

func (n *recordingNotifier) Notify(ctx context.Context, req models.NotificationRequest) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req)
	return true
}

func (n *recordingNotifier) NotifyNewEvent(ctx context.Context, event *models.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, event.ID)
}

func (n *recordingNotifier) NotifyEventUpdated(ctx context.Context, event *models.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, event.ID)
}

func (n *recordingNotifier) sent() []models.NotificationRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.NotificationRequest(nil), n.requests...)
}

// memoryCacheRepo stores JSON payloads like the Redis repository does.
type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

func (m *memoryCacheRepo) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}
