package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/filmdex/ratings-api/internal/repository"
	"github.com/filmdex/ratings-api/internal/service"
)

const maxRequestBody = 1 << 20 // 1 MiB

// errorEnvelope is the single failure shape exposed at the wire. Every
// failure kind collapses to it; callers cannot distinguish not-found from
// validation or internal errors, which is intentional.
type errorEnvelope struct {
	ErrorCode        int    `json:"ErrorCode"`
	ErrorDescription string `json:"ErrorDescription"`
}

type ratingAddRequest struct {
	MovieID    *string `json:"MovieId"`
	MovieTitle *string `json:"MovieTitle"`
	Rating     *string `json:"Rating"`
}

type ratingEditRequest struct {
	MovieTitle *string `json:"MovieTitle"`
	Rating     *string `json:"Rating"`
}

type ratingCreatedResponse struct {
	ID string `json:"Id"`
}

type actorResponse struct {
	Name  string `json:"Name"`
	Email string `json:"Email"`
}

type ratingResponse struct {
	ID           string         `json:"Id"`
	MovieID      *string        `json:"MovieId"`
	MovieTitle   string         `json:"MovieTitle"`
	Rating       float32        `json:"Rating"`
	LastEditedAt time.Time      `json:"LastEditedAt"`
	CreatedBy    *actorResponse `json:"CreatedBy,omitempty"`
	LastEditedBy *actorResponse `json:"LastEditedBy,omitempty"`
}

func (s *Server) handleGetRating(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "id")

	populate := service.PopulateNone
	if r.URL.Query().Get("populate") == service.PopulateSimple {
		populate = service.PopulateSimple
	}

	view, err := s.ratings.Get(r.Context(), movieID, service.GetOptions{Populate: populate})
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("get rating error", zap.String("movie_id", movieID), zap.Error(err))
		}
		s.respondBadRequest(w)
		return
	}

	s.respondJSON(w, http.StatusOK, toRatingResponse(view))
}

func (s *Server) handleAddRating(w http.ResponseWriter, r *http.Request) {
	var req ratingAddRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondBadRequest(w)
		return
	}

	if req.MovieID != nil && strings.TrimSpace(*req.MovieID) != "" {
		if _, err := uuid.Parse(*req.MovieID); err != nil {
			s.respondBadRequest(w)
			return
		}
	}

	value, err := optionalRating(req.Rating)
	if err != nil {
		s.respondBadRequest(w)
		return
	}

	id, err := s.ratings.Add(r.Context(), service.AddParams{
		MovieID:    normalizeStringPtr(req.MovieID),
		MovieTitle: req.MovieTitle,
		Value:      value,
	}, actorID(r.Context()))
	if err != nil {
		s.logger.Error("add rating error", zap.Error(err))
		s.respondBadRequest(w)
		return
	}

	s.respondJSON(w, http.StatusOK, ratingCreatedResponse{ID: id})
}

func (s *Server) handleEditRating(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "id")

	var req ratingEditRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondBadRequest(w)
		return
	}

	value, err := optionalRating(req.Rating)
	if err != nil {
		s.respondBadRequest(w)
		return
	}

	err = s.ratings.Edit(r.Context(), movieID, service.EditParams{
		MovieTitle: normalizeStringPtr(req.MovieTitle),
		Value:      value,
	}, actorID(r.Context()))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("edit rating error", zap.String("movie_id", movieID), zap.Error(err))
		}
		s.respondBadRequest(w)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteRating(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "id")

	err := s.ratings.Delete(r.Context(), movieID, actorID(r.Context()))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("delete rating error", zap.String("movie_id", movieID), zap.Error(err))
		}
		s.respondBadRequest(w)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error("failed to encode response", zap.Error(err))
		}
	}
}

func (s *Server) respondBadRequest(w http.ResponseWriter) {
	s.respondJSON(w, http.StatusBadRequest, errorEnvelope{
		ErrorCode:        http.StatusBadRequest,
		ErrorDescription: "Bad Request",
	})
}

func toRatingResponse(view service.RatingView) ratingResponse {
	resp := ratingResponse{
		ID:           view.ID,
		MovieID:      view.MovieID,
		MovieTitle:   view.MovieTitle,
		Rating:       view.Value,
		LastEditedAt: view.LastEditedAt,
	}
	if view.CreatedBy != nil {
		resp.CreatedBy = &actorResponse{Name: view.CreatedBy.Name, Email: view.CreatedBy.Email}
	}
	if view.LastEditedBy != nil {
		resp.LastEditedBy = &actorResponse{Name: view.LastEditedBy.Name, Email: view.LastEditedBy.Email}
	}
	return resp
}

// parseRatingValue accepts a decimal string with at most one fractional digit
// in the range 0.0 through 5.0.
func parseRatingValue(raw string) (float32, error) {
	trimmed := strings.TrimSpace(raw)
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rating value")
	}
	scaled := value * 10
	if math.Abs(scaled-math.Round(scaled)) > 1e-6 {
		return 0, fmt.Errorf("rating must have at most one fractional digit")
	}
	if value < 0 || value > 5 {
		return 0, fmt.Errorf("rating must be between 0.0 and 5.0")
	}
	return float32(math.Round(scaled) / 10), nil
}

// optionalRating translates the wire's rating field into an optional value:
// absent or empty string means unset.
func optionalRating(raw *string) (*float32, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value, err := parseRatingValue(*raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func normalizeStringPtr(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	if val == "" {
		return nil
	}
	return &val
}
