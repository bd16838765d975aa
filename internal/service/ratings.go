package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/filmdex/ratings-api/internal/directory"
	"github.com/filmdex/ratings-api/internal/domain"
	"github.com/filmdex/ratings-api/internal/repository"
)

// Populate modes accepted by Get. Anything other than PopulateSimple falls
// back to the cleaned representation.
const (
	PopulateNone   = "none"
	PopulateSimple = "simple"
)

// RatingsRepo is the persistence contract the service depends on.
type RatingsRepo interface {
	GetByMovieID(ctx context.Context, movieID string) (domain.Rating, error)
	Add(ctx context.Context, params repository.RatingAddParams) (domain.Rating, error)
	Edit(ctx context.Context, movieID string, params repository.RatingEditParams, editedBy *string) (domain.Rating, error)
	SoftDelete(ctx context.Context, movieID string, editedBy *string) error
	FindOrCreate(ctx context.Context, params repository.RatingAddParams) (domain.Rating, bool, error)
}

// ActorView is the populated representation of an audit field. It carries the
// directory record, never the internal user id.
type ActorView struct {
	Name  string
	Email string
}

// RatingView is the outward-facing shape of a rating. CreatedBy and
// LastEditedBy are nil unless the caller asked for simple population; in the
// cleaned (default) shape the audit fields are absent entirely.
type RatingView struct {
	ID           string
	MovieID      *string
	MovieTitle   string
	Value        float32
	LastEditedAt time.Time
	CreatedBy    *ActorView
	LastEditedBy *ActorView
}

// GetOptions controls response shaping for Get.
type GetOptions struct {
	Populate string
}

// AddParams holds creation fields. Nil means unset; unset fields default to
// their declared zero values before reaching storage.
type AddParams struct {
	MovieID    *string
	MovieTitle *string
	Value      *float32
}

// EditParams holds partial-update fields. Nil means leave unchanged.
type EditParams struct {
	MovieTitle *string
	Value      *float32
}

// SeedEntry describes one find-or-create seed record.
type SeedEntry struct {
	MovieID    string  `json:"movieId"`
	MovieTitle string  `json:"movieTitle"`
	Rating     float32 `json:"rating"`
}

// Ratings wraps the persistence shim with response shaping and defaulting.
type Ratings struct {
	repo      RatingsRepo
	directory directory.Client
	logger    *zap.Logger
}

// NewRatings constructs the ratings service.
func NewRatings(repo RatingsRepo, dir directory.Client, logger *zap.Logger) *Ratings {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ratings{repo: repo, directory: dir, logger: logger}
}

// Get fetches the rating for a movie and shapes it per options. Not-found is
// logged as a warning and passed through for the route layer to translate.
func (s *Ratings) Get(ctx context.Context, movieID string, opts GetOptions) (RatingView, error) {
	rating, err := s.repo.GetByMovieID(ctx, movieID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("get rating failed, rating does not exist", zap.String("movie_id", movieID))
		}
		return RatingView{}, err
	}

	view := RatingView{
		ID:           rating.ID,
		MovieID:      rating.MovieID,
		MovieTitle:   rating.MovieTitle,
		Value:        rating.Value,
		LastEditedAt: rating.LastEditedAt,
	}

	if opts.Populate == PopulateSimple {
		view.CreatedBy = s.lookupActor(ctx, rating.CreatedBy)
		view.LastEditedBy = s.lookupActor(ctx, rating.LastEditedBy)
	}
	// Default shape: audit fields stay redacted.

	return view, nil
}

func (s *Ratings) lookupActor(ctx context.Context, userID *string) *ActorView {
	if userID == nil {
		return nil
	}
	user, err := s.directory.Lookup(ctx, *userID)
	if err != nil {
		s.logger.Warn("populate lookup failed",
			zap.String("user_id", *userID),
			zap.Error(err),
		)
		return nil
	}
	return &ActorView{Name: user.Name, Email: user.Email}
}

// Add creates a rating with every unset field defaulted and returns only the
// new identifier.
func (s *Ratings) Add(ctx context.Context, params AddParams, createdBy *string) (string, error) {
	add := repository.RatingAddParams{
		MovieID:   params.MovieID,
		CreatedBy: createdBy,
	}
	if params.MovieTitle != nil {
		add.MovieTitle = *params.MovieTitle
	}
	if params.Value != nil {
		add.Value = *params.Value
	}

	rating, err := s.repo.Add(ctx, add)
	if err != nil {
		s.logger.Warn("error creating rating", zap.Error(err))
		return "", err
	}
	return rating.ID, nil
}

// Edit applies a partial update; nil fields are left unchanged.
func (s *Ratings) Edit(ctx context.Context, movieID string, params EditParams, editedBy *string) error {
	_, err := s.repo.Edit(ctx, movieID, repository.RatingEditParams{
		MovieTitle: params.MovieTitle,
		Value:      params.Value,
	}, editedBy)
	if err != nil {
		s.logger.Warn("edit rating failed", zap.String("movie_id", movieID), zap.Error(err))
		return err
	}
	return nil
}

// Delete soft-deletes the rating for a movie.
func (s *Ratings) Delete(ctx context.Context, movieID string, editedBy *string) error {
	if err := s.repo.SoftDelete(ctx, movieID, editedBy); err != nil {
		s.logger.Warn("delete rating failed", zap.String("movie_id", movieID), zap.Error(err))
		return err
	}
	return nil
}

// Ensure idempotently seeds ratings: existing movies are left untouched,
// missing ones are created with the supplied values.
func (s *Ratings) Ensure(ctx context.Context, entries []SeedEntry) error {
	for _, entry := range entries {
		movieID := entry.MovieID
		title := entry.MovieTitle
		_, created, err := s.repo.FindOrCreate(ctx, repository.RatingAddParams{
			MovieID:    &movieID,
			MovieTitle: title,
			Value:      entry.Rating,
		})
		if err != nil {
			return err
		}
		if created {
			s.logger.Info("seeded rating",
				zap.String("movie_id", entry.MovieID),
				zap.String("movie_title", entry.MovieTitle),
			)
		}
	}
	return nil
}
