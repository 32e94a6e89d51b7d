// Package providers looks up series metadata from external TV databases.
package providers

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the provider has no series for the given id.
var ErrNotFound = errors.New("series not found")

// Series is provider metadata for one show. Episodes is populated only
// by Get.
type Series struct {
	ID       string
	Title    string
	Status   string // "continuing" or "ended"
	Premiere string // first air date, YYYY-MM-DD, may be empty
	Episodes []Episode
}

// Episode is provider metadata for one episode.
type Episode struct {
	Season  int
	Number  int
	Title   string
	AirDate *time.Time
}

// Provider is a TV metadata source.
type Provider interface {
	// Search returns candidate series for a free-form name query,
	// without episode lists.
	Search(ctx context.Context, query string) ([]Series, error)

	// Get returns one series with its full episode list.
	// Returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Series, error)
}
