package store

import (
	"context"

	"github.com/starford/shunya/internal/models"
)

// EntryStore is the persistence contract the collection depends on.
type EntryStore interface {
	Put(ctx context.Context, e models.Entry) error
	Get(ctx context.Context, id string) (models.Entry, error)
	GetAll(ctx context.Context) ([]models.Entry, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Verify *DB satisfies EntryStore at compile time.
var _ EntryStore = (*DB)(nil)
