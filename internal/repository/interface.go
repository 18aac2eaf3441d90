package repository

import (
	"context"
	"errors"

	"github.com/moviebase/gateapi/internal/db/models"
)

// ErrMovieNotFound is returned when no movie matches the requested ID.
var ErrMovieNotFound = errors.New("movie not found")

// MovieFilter narrows a movie listing. Zero values mean no constraint.
type MovieFilter struct {
	// Genre filters by exact genre match.
	Genre string
	// Popular filters by the popular flag when set.
	Popular *bool
	// Query filters by case-insensitive title substring.
	Query string
}

// MovieRepository is the persistence boundary for the movie catalog.
type MovieRepository interface {
	Create(ctx context.Context, movie *models.Movie) error
	GetByID(ctx context.Context, id int64) (*models.Movie, error)
	Update(ctx context.Context, movie *models.Movie) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter MovieFilter) ([]models.Movie, error)
}
