package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-event-api/internal/models"
)

const ratingColumns = `id, event_id, user_id, rating, review, created_at, updated_at`

// RatingRepository persists event ratings, one per (event, user).
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository constructs the repository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert creates the user's rating or replaces score and review on the existing one.
func (r *RatingRepository) Upsert(ctx context.Context, rating *models.Rating) error {
	now := time.Now().UTC()
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	const query = `INSERT INTO ratings (id, event_id, user_id, rating, review, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (event_id, user_id) DO UPDATE SET rating = EXCLUDED.rating, review = EXCLUDED.review, updated_at = EXCLUDED.updated_at
RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query, rating.ID, rating.EventID, rating.UserID, rating.Rating, rating.Review, now)
	if err := row.Scan(&rating.ID, &rating.CreatedAt, &rating.UpdatedAt); err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

// ListByEvent returns the event's ratings with reviewer names, newest first.
func (r *RatingRepository) ListByEvent(ctx context.Context, eventID string) ([]models.RatingView, error) {
	const query = `
SELECT
	r.id, r.event_id, r.user_id, r.rating, r.review, r.created_at, r.updated_at,
	COALESCE(u.full_name, '') AS user_name
FROM ratings r
LEFT JOIN users u ON u.id = r.user_id
WHERE r.event_id = $1
ORDER BY r.created_at DESC`
	var items []models.RatingView
	if err := r.db.SelectContext(ctx, &items, query, eventID); err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return items, nil
}

// FindByUserAndEvent returns the user's rating for the event.
func (r *RatingRepository) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*models.Rating, error) {
	query := `SELECT ` + ratingColumns + ` FROM ratings WHERE user_id = $1 AND event_id = $2`
	var rating models.Rating
	if err := r.db.GetContext(ctx, &rating, query, userID, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find rating: %w", err)
	}
	return &rating, nil
}

// FindByID returns a rating.
func (r *RatingRepository) FindByID(ctx context.Context, id string) (*models.Rating, error) {
	query := `SELECT ` + ratingColumns + ` FROM ratings WHERE id = $1`
	var rating models.Rating
	if err := r.db.GetContext(ctx, &rating, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find rating: %w", err)
	}
	return &rating, nil
}

// Delete removes a rating.
func (r *RatingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ratings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	return requireAffected(res)
}
