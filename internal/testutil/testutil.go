// Package testutil provides shared test helpers for setting up stores and entries.
package testutil

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"
	"time"

	"github.com/starford/shunya/internal/apperr"
	"github.com/starford/shunya/internal/models"
	"github.com/starford/shunya/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "shunya-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Entry returns a valid entry with the given id, text and creation time.
func Entry(id, text string, at time.Time) models.Entry {
	return models.Entry{
		ID:        id,
		CreatedAt: at.UTC(),
		Text:      text,
		Mood:      models.MoodGood,
		States:    []models.State{},
	}
}

// ErrBroken is returned by every write of a FailingStore.
var ErrBroken = errors.New("store unavailable")

// FailingStore wraps a store and fails writes while Fail is set.
type FailingStore struct {
	store.EntryStore
	Fail bool
}

// Put fails with a retryable error while Fail is set.
func (f *FailingStore) Put(ctx context.Context, e models.Entry) error {
	if f.Fail {
		return &apperr.StoreError{Op: "put", Err: ErrBroken}
	}
	return f.EntryStore.Put(ctx, e)
}

// Delete fails with a retryable error while Fail is set.
func (f *FailingStore) Delete(ctx context.Context, id string) error {
	if f.Fail {
		return &apperr.StoreError{Op: "delete", Err: ErrBroken}
	}
	return f.EntryStore.Delete(ctx, id)
}

// PNG returns an encoded w×h PNG image.
func PNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.NRGBA{G: 180, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// PNGDataURI returns PNG(t, w, h) as a base64 data URI.
func PNGDataURI(t *testing.T, w, h int) string {
	t.Helper()
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(PNG(t, w, h))
}
