package migrations

import (
	"context"
	"fmt"

	"github.com/moviebase/gateapi/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260115000002, down_20260115000002)
}

// up_20260115000002 seeds an initial catalog so a fresh install is browsable
func up_20260115000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] seeding movies...")

	seed := []models.Movie{
		{Title: "The Matrix", Genre: "sci-fi", Popular: true, PosterURL: "https://image.tmdb.org/t/p/w500/the-matrix.jpg"},
		{Title: "Inception", Genre: "sci-fi", Popular: true, PosterURL: "https://image.tmdb.org/t/p/w500/inception.jpg"},
		{Title: "The Godfather", Genre: "crime", Popular: true, PosterURL: "https://image.tmdb.org/t/p/w500/the-godfather.jpg"},
		{Title: "Spirited Away", Genre: "animation", Popular: false, PosterURL: "https://image.tmdb.org/t/p/w500/spirited-away.jpg"},
		{Title: "Parasite", Genre: "thriller", Popular: true, PosterURL: "https://image.tmdb.org/t/p/w500/parasite.jpg"},
	}

	if _, err := db.NewInsert().Model(&seed).Exec(ctx); err != nil {
		return fmt.Errorf("failed to seed movies: %w", err)
	}

	fmt.Println(" OK")
	return nil
}

// down_20260115000002 removes the seeded catalog
func down_20260115000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] removing seeded movies...")

	titles := []string{"The Matrix", "Inception", "The Godfather", "Spirited Away", "Parasite"}
	_, err := db.NewDelete().
		Model((*models.Movie)(nil)).
		Where("title IN (?)", bun.In(titles)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove seeded movies: %w", err)
	}

	fmt.Println(" OK")
	return nil
}
