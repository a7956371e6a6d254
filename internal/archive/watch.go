package archive

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/shunya/internal/checksum"
	"github.com/starford/shunya/internal/models"
)

// ImportFunc receives each entry picked up by Watch.
type ImportFunc func(ctx context.Context, e models.Entry) error

// Watch imports entry files created or modified under the archive root
// until ctx is cancelled. Files whose content has not changed since the
// last successful import are skipped. Removing a file does not delete the
// entry.
func (a *Archive) Watch(ctx context.Context, logger *slog.Logger, fn ImportFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, a.root); err != nil {
		return err
	}
	logger.Info("archive watcher: started", slog.String("root", a.root))

	seen := make(map[string]string)
	importFile := func(abs string) {
		rel, err := filepath.Rel(a.root, abs)
		if err != nil {
			return
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			logger.Warn("archive watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		sum := checksum.Sum(data)
		if seen[rel] == sum {
			return
		}
		e, err := a.ReadEntry(rel)
		if err != nil {
			logger.Warn("archive watcher: decode failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		if err := fn(ctx, e); err != nil {
			logger.Warn("archive watcher: import failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		seen[rel] = sum
		logger.Debug("archive watcher: imported", slog.String("path", rel), slog.String("id", e.ID))
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("archive watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("archive watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					_ = filepath.WalkDir(ev.Name, func(p string, d fs.DirEntry, err error) error {
						if err == nil && !d.IsDir() && isEntryFile(p) {
							importFile(p)
						}
						return nil
					})
					continue
				}
			}
			if !isEntryFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				importFile(ev.Name)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("archive watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
