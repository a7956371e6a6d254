//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/starford/shunya/internal/apperr"
	"github.com/starford/shunya/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over the entries table.
	return nil
}

func ftsUpsert(_ context.Context, _ *sql.Tx, _ row) error {
	// Text is already stored in the entries table; nothing extra to do.
	return nil
}

func ftsDelete(_ context.Context, _ *sql.Tx, _ string) error { return nil }

// Search performs a LIKE-based search over text, mood, states and caption,
// newest entries first (fallback when FTS5 is not compiled in).
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, created_at, mood, substr(text, 1, 200)
		FROM entries
		WHERE text LIKE ? OR mood LIKE ? OR states LIKE ? OR image_caption LIKE ?
		ORDER BY created_at DESC
		LIMIT ?
	`, like, like, like, like, limit)
	if err != nil {
		return nil, &apperr.StoreError{Op: "search", Err: err}
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var (
			r    SearchResult
			ns   int64
			mood string
		)
		if err := rows.Scan(&r.ID, &ns, &mood, &r.Snippet); err != nil {
			return nil, &apperr.StoreError{Op: "search", Err: err}
		}
		r.CreatedAt = time.Unix(0, ns).UTC()
		r.Mood = models.Mood(mood)
		out = append(out, r)
	}
	return out, rows.Err()
}
