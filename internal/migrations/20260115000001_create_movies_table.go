package migrations

import (
	"context"
	"fmt"

	"github.com/moviebase/gateapi/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20260115000001, down_20260115000001)
}

// up_20260115000001 creates the movies table
func up_20260115000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating movies table...")

	_, err := db.NewCreateTable().
		Model((*models.Movie)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create movies table: %w", err)
	}

	// Title search filters on lower(title); Postgres gets an expression
	// index, SQLite a plain one (its ASCII LIKE is case-insensitive already).
	var indexDDL string
	switch {
	case IsPostgreSQL(db):
		indexDDL = "CREATE INDEX IF NOT EXISTS idx_movies_title_lower ON movies (lower(title))"
	case IsSQLite(db):
		indexDDL = "CREATE INDEX IF NOT EXISTS idx_movies_title ON movies (title)"
	}
	if indexDDL != "" {
		if _, err := db.ExecContext(ctx, indexDDL); err != nil {
			return fmt.Errorf("failed to create movies title index: %w", err)
		}
	}

	fmt.Println(" OK")
	return nil
}

// down_20260115000001 drops the movies table
func down_20260115000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping movies table...")

	_, err := db.NewDropTable().
		Model((*models.Movie)(nil)).
		IfExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to drop movies table: %w", err)
	}

	fmt.Println(" OK")
	return nil
}
