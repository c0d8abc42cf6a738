package task

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads store whenever another process rewrites the backend's file.
// The directory is watched rather than the file because saves replace the
// file by rename. Watch blocks until ctx is done.
func Watch(ctx context.Context, store *Store, backend *FileBackend, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(backend.Path())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(backend.Path())
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			changed, err := backend.ChangedExternally()
			if err != nil {
				logger.Warn("store_watch_read_failed", "error", err)
				continue
			}
			if !changed {
				continue
			}
			if err := store.Reload(ctx); err != nil {
				logger.Warn("store_reload_failed", "error", err)
				continue
			}
			logger.Info("store_reloaded", "path", target)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("store_watch_error", "error", err)
		}
	}
}
