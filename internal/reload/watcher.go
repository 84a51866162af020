// Package reload watches the configuration file and reports changes.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce collapses the burst of events editors emit on save.
const debounce = 200 * time.Millisecond

// Watch calls onChange after the file at path is written, created or
// replaced, until ctx is cancelled. The parent directory is watched so
// atomic rename-on-save is seen.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("reload: new watcher: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("reload: resolve %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("reload: watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("config watcher: started", slog.String("path", abs))

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("config watcher: stopped")
			return nil

		case <-fire:
			fire = nil
			onChange()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher: error", slog.String("error", err.Error()))
		}
	}
}
