package pictogram

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("pictogram not found")
	ErrInvalidMarkup = errors.New("invalid pictogram markup")
)

// Pictogram is one stored drawing. Markup is omitted from listings.
type Pictogram struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Markup    string    `json:"markup,omitempty"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store persists pictograms keyed by their opaque id.
type Store interface {
	Create(ctx context.Context, p *Pictogram) error
	Get(ctx context.Context, id string) (*Pictogram, error)
	List(ctx context.Context) ([]Pictogram, error)
	// SaveMarkup replaces the markup and bumps the version.
	SaveMarkup(ctx context.Context, id, markup string) (*Pictogram, error)
	Delete(ctx context.Context, id string) error
}
