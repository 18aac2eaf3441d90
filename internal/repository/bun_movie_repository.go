package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/moviebase/gateapi/internal/db/models"
)

// BunMovieRepository persists movies using Bun ORM.
type BunMovieRepository struct {
	db *bun.DB
}

// NewBunMovieRepository constructs a repository backed by Bun.
func NewBunMovieRepository(db *bun.DB) *BunMovieRepository {
	return &BunMovieRepository{db: db}
}

// Create inserts a new movie row.
func (r *BunMovieRepository) Create(ctx context.Context, movie *models.Movie) error {
	if err := movie.ValidateForCreate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	movie.CreatedAt = now
	movie.UpdatedAt = now

	if _, err := r.db.NewInsert().Model(movie).Exec(ctx); err != nil {
		return fmt.Errorf("insert movie: %w", err)
	}
	return nil
}

// GetByID fetches a movie by its identifier.
func (r *BunMovieRepository) GetByID(ctx context.Context, id int64) (*models.Movie, error) {
	movie := new(models.Movie)
	err := r.db.NewSelect().Model(movie).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, fmt.Errorf("query movie: %w", err)
	}
	return movie, nil
}

// Update persists mutated movie attributes.
func (r *BunMovieRepository) Update(ctx context.Context, movie *models.Movie) error {
	movie.UpdatedAt = time.Now()

	result, err := r.db.NewUpdate().
		Model(movie).
		Column("title", "genre", "popular", "poster_url", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update movie: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// Delete removes a movie row.
func (r *BunMovieRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.NewDelete().
		Model((*models.Movie)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete movie: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrMovieNotFound
	}
	return nil
}

// List returns movies matching the filter, newest first.
func (r *BunMovieRepository) List(ctx context.Context, filter MovieFilter) ([]models.Movie, error) {
	var movies []models.Movie
	q := r.db.NewSelect().Model(&movies).Order("created_at DESC")

	if filter.Genre != "" {
		q = q.Where("genre = ?", filter.Genre)
	}
	if filter.Popular != nil {
		q = q.Where("popular = ?", *filter.Popular)
	}
	if filter.Query != "" {
		q = q.Where("lower(title) LIKE ?", "%"+strings.ToLower(filter.Query)+"%")
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	if movies == nil {
		movies = []models.Movie{}
	}
	return movies, nil
}
