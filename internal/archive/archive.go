// Package archive keeps a Markdown copy of the journal on disk: one file per
// entry with YAML frontmatter, plus the attached image next to it.
package archive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/shunya/internal/attachment"
	"github.com/starford/shunya/internal/checksum"
	"github.com/starford/shunya/internal/models"
)

const imagesDir = "images"

// Archive reads and writes entry files under a root directory.
type Archive struct {
	root string // absolute path
}

// Open returns an Archive rooted at dir, creating the directory if needed.
func Open(dir string) (*Archive, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("archive: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("archive: mkdir root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("archive: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("archive: root is not a directory: %s", abs)
	}
	return &Archive{root: abs}, nil
}

// Root returns the absolute archive directory.
func (a *Archive) Root() string { return a.root }

// FileName is the archive path of an entry, relative to the root.
func FileName(e models.Entry) string {
	return filepath.Join(e.CreatedAt.UTC().Format("2006"), e.CreatedAt.UTC().Format("2006-01-02")+"-"+e.ID+".md")
}

// Export writes every entry to the archive. Files whose content is already
// up to date are left alone. It returns the number of files written.
func (a *Archive) Export(ctx context.Context, entries []models.Entry) (int, error) {
	written := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		var imageRel string
		if e.Image != nil {
			imageRel = filepath.Join(imagesDir, e.ID+attachment.Ext(e.Image.MIMEType))
			changed, err := a.writeIfChanged(imageRel, e.Image.Data)
			if err != nil {
				return written, err
			}
			if changed {
				written++
			}
		}
		doc, err := Encode(e, filepath.ToSlash(imageRel))
		if err != nil {
			return written, err
		}
		changed, err := a.writeIfChanged(FileName(e), doc)
		if err != nil {
			return written, err
		}
		if changed {
			written++
		}
	}
	return written, nil
}

// Import reads every entry file in the archive, oldest first.
func (a *Archive) Import(ctx context.Context) ([]models.Entry, error) {
	var out []models.Entry
	err := filepath.WalkDir(a.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !isEntryFile(p) {
			return nil
		}
		rel, err := filepath.Rel(a.root, p)
		if err != nil {
			return err
		}
		e, err := a.ReadEntry(rel)
		if err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("archive: import: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ReadEntry decodes the entry file at rel and loads its image, if any.
func (a *Archive) ReadEntry(rel string) (models.Entry, error) {
	abs, err := a.safePath(rel)
	if err != nil {
		return models.Entry{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.Entry{}, fmt.Errorf("archive: read %s: %w", rel, err)
	}
	modTime := fileModTime(abs)
	e, imageRel, err := Decode(data, filepath.ToSlash(rel), modTime)
	if err != nil {
		return models.Entry{}, fmt.Errorf("archive: %s: %w", rel, err)
	}
	if imageRel != "" {
		img, err := a.readImage(imageRel)
		if err != nil {
			return models.Entry{}, fmt.Errorf("archive: %s: %w", rel, err)
		}
		img.Caption = e.Image.Caption
		e.Image = &img
	}
	if err := e.Validate(); err != nil {
		return models.Entry{}, fmt.Errorf("archive: %s: %w", rel, err)
	}
	return e, nil
}

func (a *Archive) readImage(rel string) (models.Image, error) {
	abs, err := a.safePath(filepath.FromSlash(rel))
	if err != nil {
		return models.Image{}, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.Image{}, fmt.Errorf("read image: %w", err)
	}
	mime := attachment.MIMEFromExt(filepath.Ext(rel))
	if mime == "" {
		return models.Image{}, fmt.Errorf("unsupported image file %s", rel)
	}
	return models.Image{Data: data, MIMEType: mime}, nil
}

// safePath resolves rel against the root and rejects anything escaping it.
func (a *Archive) safePath(rel string) (string, error) {
	if rel == "" {
		return a.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("archive: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(a.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("archive: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, a.root+string(os.PathSeparator)) && abs != a.root {
		return "", fmt.Errorf("archive: path escapes root: %s", rel)
	}
	return abs, nil
}

// writeIfChanged atomically writes content unless the file already holds it.
func (a *Archive) writeIfChanged(rel string, content []byte) (bool, error) {
	abs, err := a.safePath(rel)
	if err != nil {
		return false, err
	}
	same, err := checksum.Matches(abs, content)
	if err != nil {
		return false, fmt.Errorf("archive: read %s: %w", rel, err)
	}
	if same {
		return false, nil
	}
	return true, writeAtomic(abs, content)
}

// writeAtomic writes content via tmp file → fsync → rename.
func writeAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("archive: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".shunya-tmp-*")
	if err != nil {
		return fmt.Errorf("archive: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("archive: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("archive: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("archive: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("archive: rename: %w", err)
	}
	success = true
	return nil
}

func isEntryFile(p string) bool {
	base := filepath.Base(p)
	return strings.HasSuffix(base, ".md") && !strings.HasPrefix(base, ".")
}
