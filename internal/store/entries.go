package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/shunya/internal/apperr"
	"github.com/starford/shunya/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Mood      models.Mood `json:"mood"`
	Snippet   string      `json:"snippet"`
}

// row is the persisted shape of an entry. toRow and fromRow are the only
// conversions between it and models.Entry.
type row struct {
	ID           string
	CreatedAt    int64
	Text         string
	Mood         string
	States       string
	ImageData    []byte
	ImageMIME    string
	ImageCaption string
}

const entryColumns = `id, created_at, text, mood, states, image_data, image_mime, image_caption`

func toRow(e models.Entry) (row, error) {
	states := e.States
	if states == nil {
		states = []models.State{}
	}
	statesJSON, err := json.Marshal(states)
	if err != nil {
		return row{}, err
	}
	r := row{
		ID:        e.ID,
		CreatedAt: e.CreatedAt.UnixNano(),
		Text:      e.Text,
		Mood:      string(e.Mood),
		States:    string(statesJSON),
	}
	if e.Image != nil {
		r.ImageData = e.Image.Data
		r.ImageMIME = e.Image.MIMEType
		r.ImageCaption = e.Image.Caption
	}
	return r, nil
}

func fromRow(r row) (models.Entry, error) {
	mood, err := models.ParseMood(r.Mood)
	if err != nil {
		return models.Entry{}, err
	}
	var raw []string
	if err := json.Unmarshal([]byte(r.States), &raw); err != nil {
		return models.Entry{}, fmt.Errorf("decode states: %w", err)
	}
	states, err := models.ParseStates(raw)
	if err != nil {
		return models.Entry{}, err
	}
	e := models.Entry{
		ID:        r.ID,
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
		Text:      r.Text,
		Mood:      mood,
		States:    states,
	}
	if len(r.ImageData) > 0 {
		e.Image = &models.Image{
			Data:     r.ImageData,
			MIMEType: r.ImageMIME,
			Caption:  r.ImageCaption,
		}
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (models.Entry, error) {
	var r row
	if err := s.Scan(&r.ID, &r.CreatedAt, &r.Text, &r.Mood, &r.States, &r.ImageData, &r.ImageMIME, &r.ImageCaption); err != nil {
		return models.Entry{}, err
	}
	return fromRow(r)
}

// Put inserts or overwrites the entry stored under e.ID, together with its
// search row, in one transaction.
func (db *DB) Put(ctx context.Context, e models.Entry) error {
	r, err := toRow(e)
	if err != nil {
		return &apperr.StoreError{Op: "put", Err: err}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return &apperr.StoreError{Op: "put", Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at    = excluded.created_at,
			text          = excluded.text,
			mood          = excluded.mood,
			states        = excluded.states,
			image_data    = excluded.image_data,
			image_mime    = excluded.image_mime,
			image_caption = excluded.image_caption
	`, r.ID, r.CreatedAt, r.Text, r.Mood, r.States, r.ImageData, r.ImageMIME, r.ImageCaption)
	if err != nil {
		return &apperr.StoreError{Op: "put", Err: err}
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(ctx, tx, r); err != nil {
		return &apperr.StoreError{Op: "put", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &apperr.StoreError{Op: "put", Err: err}
	}
	return nil
}

// Get returns the entry stored under id, or apperr.ErrNotFound.
func (db *DB) Get(ctx context.Context, id string) (models.Entry, error) {
	e, err := scanEntry(db.conn.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Entry{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Entry{}, &apperr.StoreError{Op: "get", Err: err}
	}
	return e, nil
}

// GetAll returns every stored entry ordered by creation time, oldest first.
func (db *DB) GetAll(ctx context.Context) ([]models.Entry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, &apperr.StoreError{Op: "get all", Err: err}
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, &apperr.StoreError{Op: "get all", Err: err}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &apperr.StoreError{Op: "get all", Err: err}
	}
	return out, nil
}

// Delete removes the entry stored under id. Deleting an absent id is not an error.
func (db *DB) Delete(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return &apperr.StoreError{Op: "delete", Err: fmt.Errorf("begin tx: %w", err)}
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(ctx, tx, id); err != nil {
		return &apperr.StoreError{Op: "delete", Err: err}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return &apperr.StoreError{Op: "delete", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &apperr.StoreError{Op: "delete", Err: err}
	}
	return nil
}

// Count returns the number of stored entries.
func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM entries`).Scan(&n); err != nil {
		return 0, &apperr.StoreError{Op: "count", Err: err}
	}
	return n, nil
}
