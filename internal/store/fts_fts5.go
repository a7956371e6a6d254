//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/shunya/internal/apperr"
	"github.com/starford/shunya/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			id UNINDEXED,
			text,
			mood,
			states,
			caption,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, tx *sql.Tx, r row) error {
	if err := ftsDelete(ctx, tx, r.ID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO entries_fts (id, text, mood, states, caption) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Text, r.Mood, r.States, r.ImageCaption)
	if err != nil {
		return fmt.Errorf("upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries_fts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching entries with snippets.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT f.id,
		       e.created_at,
		       e.mood,
		       snippet(entries_fts, 1, '<b>', '</b>', '...', 64)
		FROM entries_fts f
		JOIN entries e ON e.id = f.id
		WHERE entries_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
