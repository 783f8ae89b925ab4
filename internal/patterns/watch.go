package patterns

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the table whenever the file at path changes on disk, until
// ctx is cancelled. The parent directory is watched so that editors which
// replace the file by rename are still observed. A reload that fails keeps
// the previous table.
func (t *Table) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create pattern watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	name := filepath.Clean(path)

	go func() {
		defer func() {
			if err := watcher.Close(); err != nil {
				t.logger.Warn("Failed to close pattern watcher", "error", err)
			}
		}()

		var (
			timer   *time.Timer
			pending <-chan time.Time
		)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				t.logger.Debug("Pattern watcher stopped", "reason", ctx.Err())
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != name {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				pending = timer.C

			case <-pending:
				pending = nil
				if err := t.Reload(ctx); err != nil {
					t.logger.Warn("Keeping previous pattern table", "path", path, "error", err)
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				t.logger.Warn("Pattern watcher error", "error", err)
			}
		}
	}()

	t.logger.Info("Watching pattern file", "path", path)
	return nil
}
