package service

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-event-api/internal/dto"
	"github.com/noah-isme/campus-event-api/internal/models"
	appErrors "github.com/noah-isme/campus-event-api/pkg/errors"
)

type ratingStore interface {
	Upsert(ctx context.Context, rating *models.Rating) error
	ListByEvent(ctx context.Context, eventID string) ([]models.RatingView, error)
	FindByUserAndEvent(ctx context.Context, userID, eventID string) (*models.Rating, error)
	FindByID(ctx context.Context, id string) (*models.Rating, error)
	Delete(ctx context.Context, id string) error
}

type attendanceChecker interface {
	Exists(ctx context.Context, studentID, eventID string) (bool, error)
}

// RatingService collects post-event feedback from attendees.
type RatingService struct {
	store      ratingStore
	events     eventFinder
	attendance attendanceChecker
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewRatingService constructs the service.
func NewRatingService(store ratingStore, events eventFinder, attendance attendanceChecker, validate *validator.Validate, logger *zap.Logger) *RatingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingService{store: store, events: events, attendance: attendance, validator: validate, logger: logger}
}

// Rate records or replaces the caller's rating. Only attendees may rate.
func (s *RatingService) Rate(ctx context.Context, actor models.Actor, req dto.RateEventRequest) (*models.Rating, error) {
	if err := requireCapability(actor, models.CapRate, "not allowed to rate events"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rating must be between 1 and 5")
	}
	if _, err := loadEvent(ctx, s.events, req.EventID); err != nil {
		return nil, err
	}

	attended, err := s.attendance.Exists(ctx, actor.UserID, req.EventID)
	if err != nil {
		return nil, readFailure(err, "failed to check attendance")
	}
	if !attended {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only rate events you attended")
	}

	rating := &models.Rating{EventID: req.EventID, UserID: actor.UserID, Rating: req.Rating, Review: req.Review}
	if err := s.store.Upsert(ctx, rating); err != nil {
		return nil, writeFailure(err, "failed to save rating")
	}
	s.logger.Info("event rated", zap.String("event_id", req.EventID), zap.String("user_id", actor.UserID), zap.Int("rating", req.Rating))
	return rating, nil
}

// EventRatings lists an event's ratings with the average rounded to one decimal.
func (s *RatingService) EventRatings(ctx context.Context, eventID string) (*models.EventRatings, error) {
	if _, err := loadEvent(ctx, s.events, eventID); err != nil {
		return nil, err
	}
	items, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, readFailure(err, "failed to list ratings")
	}
	if items == nil {
		items = []models.RatingView{}
	}

	var sum int
	for _, r := range items {
		sum += r.Rating.Rating
	}
	var avg float64
	if len(items) > 0 {
		avg = roundTo(float64(sum)/float64(len(items)), 1)
	}
	return &models.EventRatings{EventID: eventID, AverageRating: avg, TotalRatings: len(items), Ratings: items}, nil
}

// MyRating returns the caller's rating for an event, or nil when absent.
func (s *RatingService) MyRating(ctx context.Context, actor models.Actor, eventID string) (*models.Rating, error) {
	rating, err := s.store.FindByUserAndEvent(ctx, actor.UserID, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, readFailure(err, "failed to load rating")
	}
	return rating, nil
}

// Delete removes a rating owned by the caller.
func (s *RatingService) Delete(ctx context.Context, actor models.Actor, id string) error {
	rating, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "rating not found")
		}
		return readFailure(err, "failed to load rating")
	}
	if rating.UserID != actor.UserID {
		return appErrors.Clone(appErrors.ErrNotOwner, "you can only delete your own rating")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "rating not found")
		}
		return writeFailure(err, "failed to delete rating")
	}
	return nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
