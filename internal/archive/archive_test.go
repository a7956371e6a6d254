package archive

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/shunya/internal/models"
	"github.com/starford/shunya/internal/testutil"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func tempArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return a
}

func sampleEntries() []models.Entry {
	base := time.Date(2024, 3, 1, 8, 30, 0, 123456789, time.UTC)
	first := testutil.Entry("a1", "Slept well.\n\nLong walk after.", base)
	first.States = []models.State{models.StateFocus, models.StateClarity}

	second := testutil.Entry("b2", "Tired", base.Add(26*time.Hour))
	second.Mood = models.MoodNotGreat
	second.Image = &models.Image{Data: pngHeader, MIMEType: "image/png", Caption: "rainy: window"}
	return []models.Entry{second, first}
}

func TestExportImportRoundTrip(t *testing.T) {
	a := tempArchive(t)
	entries := sampleEntries()

	n, err := a.Export(context.Background(), entries)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 3 {
		t.Errorf("written = %d, want 3 (two entries and one image)", n)
	}

	got, err := a.Import(context.Background())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	want := []models.Entry{entries[1], entries[0]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestExportSkipsUnchangedFiles(t *testing.T) {
	a := tempArchive(t)
	entries := sampleEntries()
	if _, err := a.Export(context.Background(), entries); err != nil {
		t.Fatal(err)
	}
	n, err := a.Export(context.Background(), entries)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second export wrote %d files, want 0", n)
	}

	entries[1].Text = "Slept badly."
	if n, _ = a.Export(context.Background(), entries); n != 1 {
		t.Errorf("export after edit wrote %d files, want 1", n)
	}
	matches, _ := filepath.Glob(filepath.Join(a.Root(), "*", ".shunya-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestFileNameByDate(t *testing.T) {
	e := sampleEntries()[1]
	if got := FileName(e); got != filepath.Join("2024", "2024-03-01-a1.md") {
		t.Errorf("FileName = %q", got)
	}
}

func TestDecodeHandWritten(t *testing.T) {
	doc := []byte("---\r\nmood: Okay\r\nstates: [Energy, Energy]\r\n---\r\nWrote this by hand.\r\n")
	mod := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	e, img, err := Decode(doc, "inbox/hand.md", mod)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img != "" {
		t.Errorf("image = %q", img)
	}
	if e.Text != "Wrote this by hand." || e.Mood != models.MoodOkay || !e.CreatedAt.Equal(mod) {
		t.Errorf("decoded = %+v", e)
	}
	if len(e.States) != 1 {
		t.Errorf("states = %v, want one", e.States)
	}

	again, _, _ := Decode(doc, "inbox/hand.md", mod)
	other, _, _ := Decode(doc, "inbox/other.md", mod)
	if e.ID == "" || again.ID != e.ID || other.ID == e.ID {
		t.Errorf("derived ids: %q %q %q", e.ID, again.ID, other.ID)
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]string{
		"no frontmatter": "just text\n",
		"unclosed":       "---\nmood: Good\njust text\n",
		"bad mood":       "---\nmood: Ecstatic\n---\ntext\n",
		"bad state":      "---\nmood: Good\nstates: [Calm]\n---\ntext\n",
		"bad time":       "---\nmood: Good\ncreated_at: yesterday\n---\ntext\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := Decode([]byte(doc), "x.md", time.Now()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadEntryRequiresValidEntry(t *testing.T) {
	a := tempArchive(t)
	_ = os.WriteFile(filepath.Join(a.Root(), "empty.md"), []byte("---\nmood: Good\n---\n   \n"), 0o644)
	if _, err := a.ReadEntry("empty.md"); err == nil {
		t.Error("expected validation error for blank text")
	}
	if _, err := a.Import(context.Background()); err == nil {
		t.Error("Import should surface the invalid file")
	}
}

func TestTraversalBlocked(t *testing.T) {
	a := tempArchive(t)
	for _, p := range []string{"../outside.md", "/etc/passwd"} {
		if _, err := a.ReadEntry(p); err == nil || !strings.Contains(err.Error(), "archive") {
			t.Errorf("ReadEntry(%q) error = %v", p, err)
		}
	}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatchImportsNewFiles(t *testing.T) {
	a := tempArchive(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	imported := map[string]string{}
	go a.Watch(ctx, logger, func(_ context.Context, e models.Entry) error {
		mu.Lock()
		imported[e.ID] = e.Text
		mu.Unlock()
		return nil
	})
	time.Sleep(100 * time.Millisecond)

	doc, err := Encode(testutil.Entry("w1", "from the watcher", time.Now()), "")
	if err != nil {
		t.Fatal(err)
	}
	_ = os.MkdirAll(filepath.Join(a.Root(), "2024"), 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(a.Root(), "2024", "w1.md"), doc, 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return imported["w1"] == "from the watcher"
	}, "entry file not imported by watcher")
}
