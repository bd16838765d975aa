package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/filmdex/ratings-api/internal/directory"
	"github.com/filmdex/ratings-api/internal/domain"
	"github.com/filmdex/ratings-api/internal/repository"
)

type fakeRepo struct {
	byMovieID map[string]domain.Rating
	addCalls  []repository.RatingAddParams
	editCalls []repository.RatingEditParams
	addErr    error
	editErr   error
	deleteErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byMovieID: make(map[string]domain.Rating)}
}

func (f *fakeRepo) GetByMovieID(ctx context.Context, movieID string) (domain.Rating, error) {
	rating, ok := f.byMovieID[movieID]
	if !ok {
		return domain.Rating{}, repository.ErrNotFound
	}
	return rating, nil
}

func (f *fakeRepo) Add(ctx context.Context, params repository.RatingAddParams) (domain.Rating, error) {
	if f.addErr != nil {
		return domain.Rating{}, f.addErr
	}
	f.addCalls = append(f.addCalls, params)
	rating := domain.Rating{
		ID:           "generated-id",
		MovieID:      params.MovieID,
		MovieTitle:   params.MovieTitle,
		Value:        params.Value,
		CreatedBy:    params.CreatedBy,
		IsActive:     true,
		LastEditedAt: time.Now(),
	}
	if params.MovieID != nil {
		f.byMovieID[*params.MovieID] = rating
	}
	return rating, nil
}

func (f *fakeRepo) Edit(ctx context.Context, movieID string, params repository.RatingEditParams, editedBy *string) (domain.Rating, error) {
	if f.editErr != nil {
		return domain.Rating{}, f.editErr
	}
	rating, ok := f.byMovieID[movieID]
	if !ok {
		return domain.Rating{}, repository.ErrNotFound
	}
	f.editCalls = append(f.editCalls, params)
	if params.MovieTitle != nil {
		rating.MovieTitle = *params.MovieTitle
	}
	if params.Value != nil {
		rating.Value = *params.Value
	}
	rating.LastEditedBy = editedBy
	f.byMovieID[movieID] = rating
	return rating, nil
}

func (f *fakeRepo) SoftDelete(ctx context.Context, movieID string, editedBy *string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.byMovieID[movieID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.byMovieID, movieID)
	return nil
}

func (f *fakeRepo) FindOrCreate(ctx context.Context, params repository.RatingAddParams) (domain.Rating, bool, error) {
	if params.MovieID != nil {
		if existing, ok := f.byMovieID[*params.MovieID]; ok {
			return existing, false, nil
		}
	}
	rating, err := f.Add(ctx, params)
	return rating, err == nil, err
}

type fakeDirectory struct {
	users map[string]directory.User
	err   error
}

func (f *fakeDirectory) Lookup(ctx context.Context, userID string) (*directory.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[userID]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &user, nil
}

func strPtr(s string) *string { return &s }

func float32Ptr(f float32) *float32 { return &f }

func seedRating(repo *fakeRepo, movieID string) domain.Rating {
	creator := "creator-id"
	editor := "editor-id"
	rating := domain.Rating{
		ID:           "r1",
		MovieID:      &movieID,
		MovieTitle:   "Dune",
		Value:        4.5,
		CreatedBy:    &creator,
		LastEditedBy: &editor,
		IsActive:     true,
		LastEditedAt: time.Now(),
	}
	repo.byMovieID[movieID] = rating
	return rating
}

func TestGetCleansByDefault(t *testing.T) {
	repo := newFakeRepo()
	seedRating(repo, "m1")
	svc := NewRatings(repo, &fakeDirectory{}, zap.NewNop())

	view, err := svc.Get(context.Background(), "m1", GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Dune", view.MovieTitle)
	assert.InDelta(t, 4.5, view.Value, 0.001)
	assert.Nil(t, view.CreatedBy, "clean shape must redact audit fields")
	assert.Nil(t, view.LastEditedBy, "clean shape must redact audit fields")
}

func TestGetPopulateSimple(t *testing.T) {
	repo := newFakeRepo()
	seedRating(repo, "m1")
	dir := &fakeDirectory{users: map[string]directory.User{
		"creator-id": {ID: "creator-id", Name: "Ada", Email: "ada@example.com"},
		"editor-id":  {ID: "editor-id", Name: "Grace", Email: "grace@example.com"},
	}}
	svc := NewRatings(repo, dir, zap.NewNop())

	view, err := svc.Get(context.Background(), "m1", GetOptions{Populate: PopulateSimple})
	require.NoError(t, err)
	require.NotNil(t, view.CreatedBy)
	assert.Equal(t, "Ada", view.CreatedBy.Name)
	require.NotNil(t, view.LastEditedBy)
	assert.Equal(t, "Grace", view.LastEditedBy.Name)
}

func TestGetPopulateLookupFailureOmitsField(t *testing.T) {
	repo := newFakeRepo()
	seedRating(repo, "m1")
	svc := NewRatings(repo, &fakeDirectory{err: errors.New("directory down")}, zap.NewNop())

	view, err := svc.Get(context.Background(), "m1", GetOptions{Populate: PopulateSimple})
	require.NoError(t, err)
	assert.Nil(t, view.CreatedBy)
	assert.Nil(t, view.LastEditedBy)
}

func TestGetNotFound(t *testing.T) {
	svc := NewRatings(newFakeRepo(), &fakeDirectory{}, zap.NewNop())

	_, err := svc.Get(context.Background(), "missing", GetOptions{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAddDefaultsUnsetFields(t *testing.T) {
	repo := newFakeRepo()
	svc := NewRatings(repo, &fakeDirectory{}, zap.NewNop())

	creator := "u1"
	id, err := svc.Add(context.Background(), AddParams{}, &creator)
	require.NoError(t, err)
	assert.Equal(t, "generated-id", id)

	require.Len(t, repo.addCalls, 1)
	call := repo.addCalls[0]
	assert.Nil(t, call.MovieID)
	assert.Equal(t, "", call.MovieTitle)
	assert.Equal(t, float32(0), call.Value)
	require.NotNil(t, call.CreatedBy)
	assert.Equal(t, "u1", *call.CreatedBy)
}

func TestAddReturnsOnlyID(t *testing.T) {
	repo := newFakeRepo()
	svc := NewRatings(repo, &fakeDirectory{}, zap.NewNop())

	id, err := svc.Add(context.Background(), AddParams{
		MovieID:    strPtr("m9"),
		MovieTitle: strPtr("Dune"),
		Value:      float32Ptr(4.5),
	}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestAddFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.addErr = errors.New("storage down")
	svc := NewRatings(repo, &fakeDirectory{}, zap.NewNop())

	_, err := svc.Add(context.Background(), AddParams{}, nil)
	assert.Error(t, err)
}

func TestEditPassesOptionalFieldsThrough(t *testing.T) {
	repo := newFakeRepo()
	seedRating(repo, "m1")
	svc := NewRatings(repo, &fakeDirectory{}, zap.NewNop())

	err := svc.Edit(context.Background(), "m1", EditParams{Value: float32Ptr(3.0)}, nil)
	require.NoError(t, err)

	require.Len(t, repo.editCalls, 1)
	assert.Nil(t, repo.editCalls[0].MovieTitle)
	require.NotNil(t, repo.editCalls[0].Value)
	assert.InDelta(t, 3.0, *repo.editCalls[0].Value, 0.001)
	assert.InDelta(t, 3.0, repo.byMovieID["m1"].Value, 0.001)
	assert.Equal(t, "Dune", repo.byMovieID["m1"].MovieTitle)
}

func TestEditMissingReturnsError(t *testing.T) {
	svc := NewRatings(newFakeRepo(), &fakeDirectory{}, zap.NewNop())

	err := svc.Edit(context.Background(), "missing", EditParams{Value: float32Ptr(1.0)}, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := newFakeRepo()
	seedRating(repo, "m1")
	svc := NewRatings(repo, &fakeDirectory{}, zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "m1", nil))
	_, err := svc.Get(context.Background(), "m1", GetOptions{})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.Error(t, svc.Delete(context.Background(), "m1", nil))
}

func TestEnsureIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := NewRatings(repo, &fakeDirectory{}, zap.NewNop())

	entries := []SeedEntry{
		{MovieID: "m1", MovieTitle: "Dune", Rating: 4.5},
		{MovieID: "m2", MovieTitle: "Heat", Rating: 4.0},
	}
	require.NoError(t, svc.Ensure(context.Background(), entries))
	require.NoError(t, svc.Ensure(context.Background(), entries))

	assert.Len(t, repo.addCalls, 2, "second Ensure must not create duplicates")
}
