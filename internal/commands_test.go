package internal

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/shunya/internal/collection"
	"github.com/starford/shunya/internal/store"
	"github.com/starford/shunya/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "data", "journal.db")
	cfg.Archive.Path = filepath.Join(t.TempDir(), "archive")
	return cfg
}

func seed(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	m := collection.New(db, nil)
	base := time.Date(2024, 2, 1, 7, 0, 0, 0, time.UTC)
	for i, text := range []string{"first morning", "second morning"} {
		if _, err := m.Save(context.Background(), testutil.Entry(string(rune('a'+i)), text, base.Add(time.Duration(i)*24*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCommandsRequireConfig(t *testing.T) {
	if err := List(context.Background()); err == nil {
		t.Error("expected error without config")
	}
}

func TestListCommand(t *testing.T) {
	cfg := testConfig(t)
	// Opening the store creates the data directory on first use.
	if err := List(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard), WithOutput(io.Discard)); err != nil {
		t.Fatalf("List on empty store: %v", err)
	}
	seed(t, cfg.SQLite.Path)

	var out bytes.Buffer
	if err := List(context.Background(), WithConfig(cfg), WithLogOutput(io.Discard), WithOutput(&out)); err != nil {
		t.Fatalf("List: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("output = %q", out.String())
	}
	if !strings.Contains(lines[0], "second morning") || !strings.Contains(lines[2], "2 entries") {
		t.Errorf("output = %q", out.String())
	}
}

func TestExportImportCommands(t *testing.T) {
	src := testConfig(t)
	seed(t, src.SQLite.Path)
	quiet := WithLogOutput(io.Discard)

	n, err := Export(context.Background(), "", WithConfig(src), quiet)
	if err != nil || n != 2 {
		t.Fatalf("Export = %d, %v", n, err)
	}

	dst := testConfig(t)
	n, err = Import(context.Background(), src.Archive.Path, WithConfig(dst), quiet)
	if err != nil || n != 2 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	n, err = Import(context.Background(), src.Archive.Path, WithConfig(dst), quiet)
	if err != nil || n != 0 {
		t.Errorf("second Import = %d, %v", n, err)
	}

	var out bytes.Buffer
	if err := List(context.Background(), WithConfig(dst), quiet, WithOutput(&out)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "first morning") || !strings.Contains(out.String(), "2 entries") {
		t.Errorf("imported listing = %q", out.String())
	}
}
