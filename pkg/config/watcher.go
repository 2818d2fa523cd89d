package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce collapses a burst of editor writes into one reload.
const reloadDebounce = 500 * time.Millisecond

// WatchConfig signals on the returned channel once per debounced burst of
// writes to any of files. The channel is closed when ctx ends or the watcher
// cannot be created.
//
// Parent directories are watched, not the files, so that editors saving via
// temp file and rename keep being picked up.
func WatchConfig(ctx context.Context, files ...string) <-chan struct{} {
	out := make(chan struct{}, 1)

	w, targets, err := watchParents(files)
	if err != nil {
		slog.Error("Config watcher unavailable", "error", err)
		close(out)
		return out
	}

	go func() {
		defer close(out)
		defer w.Close()
		debounce(ctx, w, targets, out)
	}()
	return out
}

func watchParents(files []string) (*fsnotify.Watcher, map[string]bool, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	targets := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			slog.Warn("Skipping config file with unresolvable path", "file", f, "error", err)
			continue
		}
		targets[abs] = true
	}
	watched := make(map[string]bool)
	for path := range targets {
		dir := filepath.Dir(path)
		if watched[dir] {
			continue
		}
		watched[dir] = true
		if err := w.Add(dir); err != nil {
			slog.Warn("Cannot watch config directory", "dir", dir, "error", err)
		}
	}
	return w, targets, nil
}

func debounce(ctx context.Context, w *fsnotify.Watcher, targets map[string]bool, out chan<- struct{}) {
	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()
	var changed string

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !targets[filepath.Clean(ev.Name)] || !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			changed = ev.Name
			timer.Reset(reloadDebounce)

		case <-timer.C:
			slog.Info("Config file changed", "file", changed)
			select {
			case out <- struct{}{}:
			default: // a reload is already pending
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", "error", err)
		}
	}
}
