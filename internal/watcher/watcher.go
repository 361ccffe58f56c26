// Package watcher waits for filesystem paths, such as unix sockets, to
// appear.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"pkt.systems/pslog"
)

// recheckInterval bounds how long a missed event can delay WaitForPath.
const recheckInterval = time.Second

// ErrWatcherClosed is returned when fsnotify stops delivering events.
var ErrWatcherClosed = errors.New("watcher closed")

// WaitForPath blocks until path exists or ctx is done. It watches the
// nearest existing ancestor directory and follows the path down as
// intermediate directories are created.
func WaitForPath(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	if exists(path) {
		return nil
	}

	log := pslog.Ctx(ctx).With("path", path)
	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsW.Close()

	pw := &pathWatcher{fsWatcher: fsW, path: path, log: log}
	if err := pw.rewatch(); err != nil {
		return err
	}
	log.Info("waiting for path", "watching", pw.watched)

	ticker := time.NewTicker(recheckInterval)
	defer ticker.Stop()

	for {
		// The path may have appeared before the watch was added.
		if exists(path) {
			log.Debug("path appeared")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsW.Events:
			if !ok {
				return ErrWatcherClosed
			}
			log.Trace("watch event", "name", event.Name, "op", event.Op.String())

		case err, ok := <-fsW.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			log.Warn("watcher error", "err", err)

		case <-ticker.C:
		}

		if err := pw.rewatch(); err != nil {
			return err
		}
	}
}

type pathWatcher struct {
	fsWatcher *fsnotify.Watcher
	path      string
	watched   string
	log       pslog.Logger
}

// rewatch moves the watch to the nearest existing ancestor of the path.
func (w *pathWatcher) rewatch() error {
	dir := nearestDir(w.path)
	if dir == w.watched {
		return nil
	}
	if w.watched != "" {
		// Fails when the directory was removed; fsnotify already dropped it.
		_ = w.fsWatcher.Remove(w.watched)
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.log.Debug("watching directory", "dir", dir)
	w.watched = dir
	return nil
}

func nearestDir(path string) string {
	dir := filepath.Dir(path)
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
