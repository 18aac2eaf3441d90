package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviebase/gateapi/internal/db/bunx"
	"github.com/moviebase/gateapi/internal/db/models"
	"github.com/uptrace/bun"
)

// setupTestDB creates an in-memory SQLite database with the movies table.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := bunx.NewDB("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.NewCreateTable().
		Model((*models.Movie)(nil)).
		IfNotExists().
		Exec(context.Background())
	require.NoError(t, err)

	return db
}

func TestBunMovieRepository_Create(t *testing.T) {
	repo := NewBunMovieRepository(setupTestDB(t))
	ctx := context.Background()

	t.Run("create valid movie", func(t *testing.T) {
		movie := &models.Movie{
			Title:     "Blade Runner",
			Genre:     "sci-fi",
			Popular:   true,
			PosterURL: "https://posters.example.com/blade-runner.jpg",
		}

		err := repo.Create(ctx, movie)
		require.NoError(t, err)
		require.NotZero(t, movie.ID)

		retrieved, err := repo.GetByID(ctx, movie.ID)
		require.NoError(t, err)
		assert.Equal(t, "Blade Runner", retrieved.Title)
		assert.Equal(t, "sci-fi", retrieved.Genre)
		assert.True(t, retrieved.Popular)
		assert.NotZero(t, retrieved.CreatedAt)
	})

	t.Run("create without title", func(t *testing.T) {
		err := repo.Create(ctx, &models.Movie{Genre: "drama"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "title is required")
	})
}

func TestBunMovieRepository_GetByID(t *testing.T) {
	repo := NewBunMovieRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestBunMovieRepository_Update(t *testing.T) {
	repo := NewBunMovieRepository(setupTestDB(t))
	ctx := context.Background()

	movie := &models.Movie{Title: "Alien", Genre: "horror"}
	require.NoError(t, repo.Create(ctx, movie))

	movie.Genre = "sci-fi"
	movie.Popular = true
	require.NoError(t, repo.Update(ctx, movie))

	retrieved, err := repo.GetByID(ctx, movie.ID)
	require.NoError(t, err)
	assert.Equal(t, "sci-fi", retrieved.Genre)
	assert.True(t, retrieved.Popular)

	t.Run("update missing movie", func(t *testing.T) {
		missing := &models.Movie{ID: 9999, Title: "Ghost"}
		assert.ErrorIs(t, repo.Update(ctx, missing), ErrMovieNotFound)
	})
}

func TestBunMovieRepository_Delete(t *testing.T) {
	repo := NewBunMovieRepository(setupTestDB(t))
	ctx := context.Background()

	movie := &models.Movie{Title: "Heat"}
	require.NoError(t, repo.Create(ctx, movie))
	require.NoError(t, repo.Delete(ctx, movie.ID))

	_, err := repo.GetByID(ctx, movie.ID)
	assert.ErrorIs(t, err, ErrMovieNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, movie.ID), ErrMovieNotFound)
}

func TestBunMovieRepository_List(t *testing.T) {
	repo := NewBunMovieRepository(setupTestDB(t))
	ctx := context.Background()

	seed := []*models.Movie{
		{Title: "The Matrix", Genre: "sci-fi", Popular: true},
		{Title: "The Godfather", Genre: "crime", Popular: true},
		{Title: "Clerks", Genre: "comedy"},
	}
	for _, m := range seed {
		require.NoError(t, repo.Create(ctx, m))
	}

	t.Run("no filter", func(t *testing.T) {
		movies, err := repo.List(ctx, MovieFilter{})
		require.NoError(t, err)
		assert.Len(t, movies, 3)
	})

	t.Run("by genre", func(t *testing.T) {
		movies, err := repo.List(ctx, MovieFilter{Genre: "crime"})
		require.NoError(t, err)
		require.Len(t, movies, 1)
		assert.Equal(t, "The Godfather", movies[0].Title)
	})

	t.Run("popular only", func(t *testing.T) {
		popular := true
		movies, err := repo.List(ctx, MovieFilter{Popular: &popular})
		require.NoError(t, err)
		assert.Len(t, movies, 2)
	})

	t.Run("title search", func(t *testing.T) {
		movies, err := repo.List(ctx, MovieFilter{Query: "matrix"})
		require.NoError(t, err)
		require.Len(t, movies, 1)
		assert.Equal(t, "The Matrix", movies[0].Title)
	})

	t.Run("no matches", func(t *testing.T) {
		movies, err := repo.List(ctx, MovieFilter{Genre: "western"})
		require.NoError(t, err)
		assert.NotNil(t, movies)
		assert.Empty(t, movies)
	})
}
