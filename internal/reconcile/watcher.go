package reconcile

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/noteport/internal/artifact"
	"github.com/starford/noteport/internal/convert"
	"github.com/starford/noteport/internal/storage"
)

// Debounce is how long the watcher waits for events to settle before a
// reconciliation pass.
const Debounce = 200 * time.Millisecond

// PassCallback is called after each watcher-driven pass.
type PassCallback func(Report, error)

// Watch reconciles once, then watches pages/ and assets/ under the export
// root and reconciles again whenever they change, until ctx is cancelled.
// Directories created at runtime are added to the watch list.
func Watch(ctx context.Context, r *Reconciler, opts Options, cb PassCallback) error {
	root := r.store.Root()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, dir := range []string{artifact.PagesDir, convert.AssetsDir} {
		abs := filepath.Join(root, dir)
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return err
		}
		if err := addDirsRecursive(w, abs); err != nil {
			return err
		}
	}

	pass := func() {
		rep, err := r.Run(ctx, opts)
		if err != nil && ctx.Err() == nil {
			r.logger.Error("watcher: reconcile failed", slog.String("error", err.Error()))
		}
		if cb != nil {
			cb(rep, err)
		}
	}

	r.logger.Info("watcher: started", slog.String("root", root))
	pass()

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(Debounce)
			timerCh = timer.C
		} else {
			timer.Reset(Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			r.logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			pass()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if storage.IsTemp(filepath.Base(ev.Name)) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						r.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name), slog.String("error", addErr.Error()))
					}
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				r.logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
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
