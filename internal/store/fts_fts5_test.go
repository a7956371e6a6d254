//go:build sqlite_fts5

package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/shunya/internal/apperr"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries_fts`).Scan(&count); err != nil {
		t.Fatalf("entries_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if err := db.Put(ctx, entryAt("fts", time.Now().UTC(), "A long walk brought surprising clarity today.")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	results, err := db.Search(ctx, "surprising", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "fts" {
		t.Fatalf("results = %+v", results)
	}
	if !strings.Contains(results[0].Snippet, "<b>surprising</b>") {
		t.Errorf("snippet = %q", results[0].Snippet)
	}
}

func TestFTS5_DeleteRemovesRow(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.Put(ctx, entryAt("d", time.Now().UTC(), "ephemeral thought"))
	_ = db.Delete(ctx, "d")

	results, err := db.Search(ctx, "ephemeral", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("deleted entry still searchable: %+v", results)
	}
}

func TestFTS5_DeleteFailureKeepsEntry(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if err := db.Put(ctx, entryAt("k", time.Now().UTC(), "kept thought")); err != nil {
		t.Fatal(err)
	}
	if _, err := db.conn.Exec(`DROP TABLE entries_fts`); err != nil {
		t.Fatal(err)
	}

	err := db.Delete(ctx, "k")
	var se *apperr.StoreError
	if !errors.As(err, &se) || se.Op != "delete" {
		t.Fatalf("Delete = %v, want delete StoreError", err)
	}
	if _, err := db.Get(ctx, "k"); err != nil {
		t.Errorf("entry gone after failed delete: %v", err)
	}
}
