package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces rapid write events for the same file.
const debounceDelay = 500 * time.Millisecond

// Watcher re-ingests files in a directory as they are created or modified.
type Watcher struct {
	ingester *Ingester
	watcher  *fsnotify.Watcher
	dir      string
}

func NewWatcher(ingester *Ingester, dir string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		ingester: ingester,
		watcher:  fsWatcher,
		dir:      dir,
	}, nil
}

// Run processes filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("Watching directory for documents", "dir", w.dir)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !supportedFile(event.Name) {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", "error", err)

		case now := <-ticker.C:
			for path, seen := range pending {
				if now.Sub(seen) < debounceDelay {
					continue
				}
				delete(pending, path)

				if _, err := w.ingester.IngestFile(ctx, path, true); err != nil {
					slog.Warn("Auto-ingestion failed", "file", path, "error", err)
				}
			}
		}
	}
}

func supportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range SupportedExtensions() {
		if ext == supported {
			return true
		}
	}
	return false
}
