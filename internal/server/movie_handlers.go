package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/moviebase/gateapi/internal/db/models"
	"github.com/moviebase/gateapi/internal/repository"
)

// MovieHandlers serves the catalog API. Authorization happens upstream in the
// middleware pipeline; these handlers only talk to the repository.
type MovieHandlers struct {
	movies repository.MovieRepository
}

// NewMovieHandlers constructs the catalog handlers.
func NewMovieHandlers(movies repository.MovieRepository) *MovieHandlers {
	return &MovieHandlers{movies: movies}
}

// HandleList returns movies, optionally filtered by genre, popularity, and a
// title search query.
func (h *MovieHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	filter := repository.MovieFilter{
		Genre: r.URL.Query().Get("genre"),
		Query: r.URL.Query().Get("q"),
	}
	if raw := r.URL.Query().Get("popular"); raw != "" {
		popular, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "popular must be a boolean")
			return
		}
		filter.Popular = &popular
	}

	movies, err := h.movies.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list movies")
		return
	}
	writeJSON(w, http.StatusOK, movies)
}

// HandleGet returns a single movie by ID.
func (h *MovieHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}

	movie, err := h.movies.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			writeError(w, http.StatusNotFound, "movie not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load movie")
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

// HandleCreate inserts a new movie.
func (h *MovieHandlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var movie models.Movie
	if err := json.NewDecoder(r.Body).Decode(&movie); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	movie.ID = 0

	if err := movie.ValidateForCreate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.movies.Create(r.Context(), &movie); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create movie")
		return
	}
	writeJSON(w, http.StatusCreated, movie)
}

// HandleUpdate replaces a movie's mutable attributes.
func (h *MovieHandlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}

	var movie models.Movie
	if err := json.NewDecoder(r.Body).Decode(&movie); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	movie.ID = id

	if err := movie.ValidateForCreate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.movies.Update(r.Context(), &movie); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			writeError(w, http.StatusNotFound, "movie not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update movie")
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

// HandleDelete removes a movie.
func (h *MovieHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}

	if err := h.movies.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			writeError(w, http.StatusNotFound, "movie not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete movie")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func movieID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid movie id")
		return 0, false
	}
	return id, true
}
