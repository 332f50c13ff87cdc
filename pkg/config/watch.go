package config

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchTheme watches the theme values file and calls onChange with the
// freshly parsed theme after every change. It blocks until ctx is done.
//
// The watch is installed on the file's directory rather than the file
// itself, because editors and config management tools commonly replace
// files by rename, which drops a direct file watch.
func WatchTheme(ctx context.Context, path string, logger *slog.Logger, onChange func(Theme)) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "config-watch", "path", path)

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}

	logger.Info("watching theme file")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			data, err := os.ReadFile(abs)
			if err != nil {
				// Transient ENOENT during rename is expected; keep the
				// previous theme and wait for the next event.
				logger.Warn("theme reload failed", "error", err)
				continue
			}
			if len(bytes.TrimSpace(data)) == 0 {
				// Saves truncate the file before the content lands, and
				// the truncate fires its own write event. An empty read
				// is that in-between state, not a theme; the event for
				// the real content follows.
				continue
			}

			theme, err := parseTheme(data)
			if err != nil {
				// Same for partial writes: keep the previous theme.
				logger.Warn("theme reload failed", "error", err)
				continue
			}
			logger.Info("theme reloaded", "name", theme.Name)
			onChange(theme)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", "error", err)
		}
	}
}
