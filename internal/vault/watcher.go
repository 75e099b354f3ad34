package vault

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/linktitle/internal/storage"
)

const reconcileDelay = 200 * time.Millisecond

// Watch runs an fsnotify watcher on the vault root until ctx is cancelled.
// Created or written page files are re-imported unless their checksum is
// already stored; removed files delete their page.
//
// New directories are added to the watch list as they appear. Renames
// schedule a debounced reconciliation pass, since fsnotify only reports the
// old path.
func Watch(ctx context.Context, pages PageStore, files WatchedFiles, logger *slog.Logger) error {
	root := files.Root()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := Sync(ctx, pages, files, logger); err != nil {
				logger.Warn("reconcile: sync failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					scheduleReconcile()
					continue
				}
			}

			rel, ok := files.Rel(absPath)
			if !ok {
				continue
			}
			name := PageName(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := files.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				if upToDate(ctx, pages, name, data) {
					continue
				}
				if impErr := importFile(ctx, pages, files, name, data); impErr != nil {
					logger.Warn("watcher: import failed", slog.String("path", rel), slog.String("error", impErr.Error()))
					continue
				}
				logger.Debug("watcher: imported", slog.String("page", name))

			case ev.Op&fsnotify.Remove != 0:
				if delErr := pages.DeletePage(ctx, name); ignoreMissing(delErr) != nil {
					logger.Warn("watcher: delete failed", slog.String("page", name), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("page", name))

			case ev.Op&fsnotify.Rename != 0:
				if delErr := pages.DeletePage(ctx, name); ignoreMissing(delErr) != nil {
					logger.Warn("watcher: rename delete failed", slog.String("page", name), slog.String("error", delErr.Error()))
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// WatchedFiles is a page file provider that can map watcher paths back to
// vault-relative ones.
type WatchedFiles interface {
	storage.Provider
	Root() string
	Rel(abs string) (string, bool)
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
