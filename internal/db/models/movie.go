package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// Movie is a catalog entry served to authenticated clients.
type Movie struct {
	bun.BaseModel `bun:"table:movies,alias:m"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Title     string    `bun:"title,notnull" json:"title"`
	Genre     string    `bun:"genre" json:"genre"`
	Popular   bool      `bun:"popular,notnull,default:false" json:"popular"`
	PosterURL string    `bun:"poster_url" json:"posterUrl"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"-"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"-"`
}

// ValidateForCreate verifies the record is well formed before insertion.
func (m *Movie) ValidateForCreate() error {
	if m.Title == "" {
		return errors.New("title is required")
	}
	if len(m.Title) > 255 {
		return errors.New("title exceeds maximum length")
	}
	return nil
}
