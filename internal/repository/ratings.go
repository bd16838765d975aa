package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/filmdex/ratings-api/internal/domain"
)

// RatingsRepository provides persistence helpers for rating entities.
type RatingsRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

const ratingColumns = `
    id,
    movie_id,
    movie_title,
    rating,
    created_by,
    last_edited_by,
    is_active,
    created_at,
    last_edited_at
`

// RatingAddParams bundles the fields required to insert a rating. Defaulting
// of unset fields happens in the service layer; by the time params reach the
// repository every value is concrete.
type RatingAddParams struct {
	MovieID    *string
	MovieTitle string
	Value      float32
	CreatedBy  *string
}

// RatingEditParams captures a partial update. A nil field is left unchanged.
type RatingEditParams struct {
	MovieTitle *string
	Value      *float32
}

// GetByMovieID returns the unique active rating for a movie. More than one
// active row per movie is a data-integrity problem: it is logged and reported
// as ErrNotFound rather than picking an arbitrary winner.
func (r *RatingsRepository) GetByMovieID(ctx context.Context, movieID string) (domain.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE movie_id = $1 AND is_active`, ratingColumns)
	rows, err := r.pool.Query(ctx, query, movieID)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("get rating by movie id: %w", err)
	}
	defer rows.Close()

	var results []domain.Rating
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return domain.Rating{}, err
		}
		results = append(results, rating)
	}
	if err := rows.Err(); err != nil {
		return domain.Rating{}, err
	}

	switch len(results) {
	case 1:
		return results[0], nil
	case 0:
		return domain.Rating{}, ErrNotFound
	default:
		r.logger.Warn("get rating by movie id returned multiple rows",
			zap.String("movie_id", movieID),
			zap.Int("count", len(results)),
		)
		return domain.Rating{}, ErrNotFound
	}
}

// Add inserts a new rating row and returns the stored entity.
func (r *RatingsRepository) Add(ctx context.Context, params RatingAddParams) (domain.Rating, error) {
	query := fmt.Sprintf(`
        INSERT INTO ratings (id, movie_id, movie_title, rating, created_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING %s
    `, ratingColumns)

	id := uuid.NewString()
	row := r.pool.QueryRow(ctx, query, id, params.MovieID, params.MovieTitle, float64(params.Value), params.CreatedBy)
	rating, err := scanRating(row)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("add rating: %w", err)
	}
	return rating, nil
}

// Edit applies a partial update to the active rating for a movie. Only non-nil
// fields enter the update set; the audit columns are always bumped. Exactly
// one affected row is required, anything else is logged and reported as a
// failure.
func (r *RatingsRepository) Edit(ctx context.Context, movieID string, params RatingEditParams, editedBy *string) (domain.Rating, error) {
	args := []interface{}{movieID}
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	set := make([]string, 0, 4)
	if params.MovieTitle != nil {
		set = append(set, fmt.Sprintf("movie_title = %s", arg(*params.MovieTitle)))
	}
	if params.Value != nil {
		set = append(set, fmt.Sprintf("rating = %s", arg(float64(*params.Value))))
	}
	set = append(set, fmt.Sprintf("last_edited_by = %s", arg(editedBy)))
	set = append(set, "last_edited_at = now()")

	query := fmt.Sprintf(`
        UPDATE ratings
        SET %s
        WHERE movie_id = $1 AND is_active
        RETURNING %s
    `, strings.Join(set, ", "), ratingColumns)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("edit rating: %w", err)
	}
	defer rows.Close()

	var results []domain.Rating
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return domain.Rating{}, err
		}
		results = append(results, rating)
	}
	if err := rows.Err(); err != nil {
		return domain.Rating{}, err
	}

	if len(results) != 1 {
		r.logger.Warn("edit rating affected unexpected row count",
			zap.String("movie_id", movieID),
			zap.Int("count", len(results)),
		)
		return domain.Rating{}, ErrNotFound
	}
	return results[0], nil
}

// SoftDelete marks the active rating for a movie inactive.
func (r *RatingsRepository) SoftDelete(ctx context.Context, movieID string, editedBy *string) error {
	const query = `
        UPDATE ratings
        SET is_active = false, last_edited_by = $2, last_edited_at = now()
        WHERE movie_id = $1 AND is_active
    `

	tag, err := r.pool.Exec(ctx, query, movieID, editedBy)
	if err != nil {
		return fmt.Errorf("soft delete rating: %w", err)
	}
	if tag.RowsAffected() != 1 {
		r.logger.Warn("soft delete rating affected unexpected row count",
			zap.String("movie_id", movieID),
			zap.Int64("count", tag.RowsAffected()),
		)
		return ErrNotFound
	}
	return nil
}

// FindOrCreate returns the existing active rating for a movie or inserts one.
// The per-movie uniqueness invariant lives here, not in a database constraint.
func (r *RatingsRepository) FindOrCreate(ctx context.Context, params RatingAddParams) (domain.Rating, bool, error) {
	if params.MovieID != nil {
		existing, err := r.GetByMovieID(ctx, *params.MovieID)
		if err == nil {
			return existing, false, nil
		}
		if err != ErrNotFound {
			return domain.Rating{}, false, err
		}
	}

	rating, err := r.Add(ctx, params)
	if err != nil {
		return domain.Rating{}, false, err
	}
	return rating, true, nil
}

func scanRating(row pgx.Row) (domain.Rating, error) {
	var (
		rating       domain.Rating
		movieID      *string
		value        float64
		createdBy    *string
		lastEditedBy *string
		createdAt    time.Time
		lastEditedAt time.Time
	)

	err := row.Scan(
		&rating.ID,
		&movieID,
		&rating.MovieTitle,
		&value,
		&createdBy,
		&lastEditedBy,
		&rating.IsActive,
		&createdAt,
		&lastEditedAt,
	)
	if err != nil {
		return domain.Rating{}, err
	}

	rating.MovieID = movieID
	rating.Value = float32(value)
	rating.CreatedBy = createdBy
	rating.LastEditedBy = lastEditedBy
	rating.CreatedAt = createdAt
	rating.LastEditedAt = lastEditedAt
	return rating, nil
}
