package checksum

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSum(t *testing.T) {
	// sha256("")
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s", got)
	}
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Error("different inputs share a digest")
	}
}

func TestFileAndMatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entry.md")
	data := []byte("---\nmood: good\n---\n\nhello\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	sum, err := File(path)
	if err != nil {
		t.Fatal(err)
	}
	if sum != Sum(data) {
		t.Errorf("File = %s, want %s", sum, Sum(data))
	}

	ok, err := Matches(path, data)
	if err != nil || !ok {
		t.Errorf("Matches(same) = %v, %v", ok, err)
	}
	ok, err = Matches(path, []byte("other"))
	if err != nil || ok {
		t.Errorf("Matches(other) = %v, %v", ok, err)
	}
	ok, err = Matches(filepath.Join(t.TempDir(), "missing.md"), data)
	if err != nil || ok {
		t.Errorf("Matches(missing) = %v, %v", ok, err)
	}
}
