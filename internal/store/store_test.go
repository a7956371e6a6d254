package store

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/starford/shunya/internal/apperr"
	"github.com/starford/shunya/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "shunya-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func entryAt(id string, at time.Time, text string) models.Entry {
	return models.Entry{
		ID:        id,
		CreatedAt: at,
		Text:      text,
		Mood:      models.MoodGood,
		States:    []models.State{models.StateFocus, models.StateEnergy},
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var name string
	err := db.conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_entries_created_at'`).Scan(&name)
	if err != nil {
		t.Fatalf("created_at index missing: %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	f, err := os.CreateTemp("", "shunya-reopen-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	ctx := context.Background()
	first, err := Open(f.Name())
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := first.Put(ctx, entryAt("keep", time.Now().UTC(), "survives reopen")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	first.Close()

	for i := 0; i < 2; i++ {
		db, err := Open(f.Name())
		if err != nil {
			t.Fatalf("reopen %d: %v", i, err)
		}
		n, err := db.Count(ctx)
		db.Close()
		if err != nil || n != 1 {
			t.Fatalf("reopen %d: count = %d, err = %v", i, n, err)
		}
	}
}

func TestPutGetAllRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	e := entryAt("a", time.Date(2024, 5, 1, 8, 0, 0, 123456789, time.UTC), "Feeling good")
	e.Image = &models.Image{Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png", Caption: "sunrise"}
	if err := db.Put(ctx, e); err != nil {
		t.Fatalf("Put: %v", err)
	}

	all, err := db.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("GetAll returned %d entries", len(all))
	}
	if !reflect.DeepEqual(all[0], e) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", all[0], e)
	}
}

func TestPutOverwrites(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	at := time.Now().UTC()

	_ = db.Put(ctx, entryAt("x", at, "first"))
	updated := entryAt("x", at, "second")
	updated.Mood = models.MoodNotGreat
	updated.States = []models.State{}
	if err := db.Put(ctx, updated); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := db.Get(ctx, "x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Text != "second" || got.Mood != models.MoodNotGreat || len(got.States) != 0 {
		t.Errorf("overwrite not applied: %+v", got)
	}
	if n, _ := db.Count(ctx); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestGetAllOrderedByCreation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = db.Put(ctx, entryAt("late", base.Add(2*time.Hour), "late"))
	_ = db.Put(ctx, entryAt("early", base, "early"))
	_ = db.Put(ctx, entryAt("mid", base.Add(time.Hour), "mid"))

	all, err := db.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, e := range all {
		ids = append(ids, e.ID)
	}
	if want := []string{"early", "mid", "late"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.Put(ctx, entryAt("gone", time.Now().UTC(), "bye"))

	if err := db.Delete(ctx, "gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, _ := db.GetAll(ctx)
	for _, e := range all {
		if e.ID == "gone" {
			t.Fatal("deleted entry still returned")
		}
	}
	if _, err := db.Get(ctx, "gone"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := db.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("deleting an absent id should be a no-op, got %v", err)
	}
}

func TestClosedStoreReturnsRetryableError(t *testing.T) {
	db := testDB(t)
	db.Close()

	err := db.Put(context.Background(), entryAt("z", time.Now().UTC(), "lost"))
	if err == nil {
		t.Fatal("expected error writing to a closed store")
	}
	if !apperr.IsRetryable(err) {
		t.Errorf("store failure should be retryable: %v", err)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_ = db.Put(ctx, entryAt("s", time.Now().UTC(), "uniqueword appears here"))
	_ = db.Put(ctx, entryAt("o", time.Now().UTC(), "something else"))

	results, err := db.Search(ctx, "uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "s" {
		t.Errorf("search results = %+v, want 1 hit for s", results)
	}
}
