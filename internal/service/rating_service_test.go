package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-event-api/internal/dto"
	"github.com/noah-isme/campus-event-api/internal/models"
	appErrors "github.com/noah-isme/campus-event-api/pkg/errors"
)

type ratingStoreStub struct {
	mu      sync.Mutex
	ratings map[string]*models.Rating
	seq     int
}

func newRatingStoreStub() *ratingStoreStub {
	return &ratingStoreStub{ratings: map[string]*models.Rating{}}
}

func (s *ratingStoreStub) Upsert(ctx context.Context, rating *models.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.ratings {
		if r.UserID == rating.UserID && r.EventID == rating.EventID {
			r.Rating = rating.Rating
			r.Review = rating.Review
			rating.ID = r.ID
			return nil
		}
	}
	s.seq++
	rating.ID = fmt.Sprintf("rat-%d", s.seq)
	stored := *rating
	s.ratings[rating.ID] = &stored
	return nil
}

func (s *ratingStoreStub) ListByEvent(ctx context.Context, eventID string) ([]models.RatingView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RatingView
	for _, r := range s.ratings {
		if r.EventID == eventID {
			out = append(out, models.RatingView{Rating: *r})
		}
	}
	return out, nil
}

func (s *ratingStoreStub) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.ratings {
		if r.UserID == userID && r.EventID == eventID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *ratingStoreStub) FindByID(ctx context.Context, id string) (*models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ratings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *r
	return &copied, nil
}

func (s *ratingStoreStub) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ratings[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.ratings, id)
	return nil
}

func newRatingFixture(t *testing.T, attendees ...string) (*RatingService, *ratingStoreStub) {
	t.Helper()
	f := newLedgerFake()
	f.addEvent(seatEvent("evt-1", 10))
	for _, id := range attendees {
		f.attendance[attendanceKey(id, "evt-1")] = models.Attendance{StudentID: id, EventID: "evt-1"}
	}
	store := newRatingStoreStub()
	return NewRatingService(store, fakeEventStore{f}, fakeAttendanceStore{f}, nil, nil), store
}

func TestRateRequiresAttendance(t *testing.T) {
	svc, _ := newRatingFixture(t, "stu-1")
	ctx := context.Background()

	_, err := svc.Rate(ctx, student("stu-2"), dto.RateEventRequest{EventID: "evt-1", Rating: 4})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Rate(ctx, models.Actor{UserID: "adm", Role: models.RoleAdmin}, dto.RateEventRequest{EventID: "evt-1", Rating: 4})
	assert.ErrorIs(t, err, appErrors.ErrRoleNotPermitted)

	_, err = svc.Rate(ctx, student("stu-1"), dto.RateEventRequest{EventID: "evt-1", Rating: 6})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Rate(ctx, student("stu-1"), dto.RateEventRequest{EventID: "missing", Rating: 3})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	rating, err := svc.Rate(ctx, student("stu-1"), dto.RateEventRequest{EventID: "evt-1", Rating: 5, Review: "great"})
	require.NoError(t, err)
	assert.NotEmpty(t, rating.ID)
}

func TestRateUpsertsAndAverages(t *testing.T) {
	svc, _ := newRatingFixture(t, "stu-1", "stu-2", "stu-3")
	ctx := context.Background()

	for id, score := range map[string]int{"stu-1": 5, "stu-2": 4, "stu-3": 4} {
		_, err := svc.Rate(ctx, student(id), dto.RateEventRequest{EventID: "evt-1", Rating: score})
		require.NoError(t, err)
	}
	_, err := svc.Rate(ctx, student("stu-3"), dto.RateEventRequest{EventID: "evt-1", Rating: 5})
	require.NoError(t, err)

	summary, err := svc.EventRatings(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalRatings)
	assert.Equal(t, 4.7, summary.AverageRating)

	mine, err := svc.MyRating(ctx, student("stu-3"), "evt-1")
	require.NoError(t, err)
	require.NotNil(t, mine)
	assert.Equal(t, 5, mine.Rating)

	none, err := svc.MyRating(ctx, student("stu-9"), "evt-1")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestEventRatingsEmpty(t *testing.T) {
	svc, _ := newRatingFixture(t)
	summary, err := svc.EventRatings(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Zero(t, summary.AverageRating)
	assert.NotNil(t, summary.Ratings)
}

func TestDeleteRatingOwnerOnly(t *testing.T) {
	svc, store := newRatingFixture(t, "stu-1")
	ctx := context.Background()

	rating, err := svc.Rate(ctx, student("stu-1"), dto.RateEventRequest{EventID: "evt-1", Rating: 3})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, student("stu-2"), rating.ID), appErrors.ErrNotOwner)
	require.NoError(t, svc.Delete(ctx, student("stu-1"), rating.ID))
	assert.Empty(t, store.ratings)
	assert.ErrorIs(t, svc.Delete(ctx, student("stu-1"), rating.ID), appErrors.ErrNotFound)
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 4.3, roundTo(4.333, 1))
	assert.Equal(t, 4.7, roundTo(4.666, 1))
	assert.Equal(t, 2.0, roundTo(2, 1))
}
