package devserver

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"gameworld/internal/broadcast"
)

// Files written by the server itself; reloading on them would loop.
var ignoredSuffixes = []string{".db", ".db-journal", ".db-wal", ".db-shm", ".log", ".swp", "~"}

func ignored(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, suf := range ignoredSuffixes {
		if strings.HasSuffix(base, suf) {
			return true
		}
	}
	return false
}

func skipDir(name string) bool {
	base := filepath.Base(name)
	return base == "node_modules" || (strings.HasPrefix(base, ".") && base != ".")
}

// WatchStatic broadcasts a "reload" message carrying the changed path,
// relative to dir, once changes under dir have settled for debounce.
func WatchStatic(ctx context.Context, dir string, debounce time.Duration, b *broadcast.Broadcaster, logger *slog.Logger) error {
	log := logger.With("component", "reload")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := addTree(w, dir); err != nil {
		return err
	}
	log.Info("watching for changes", "dir", dir)

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		changed string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod || ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !skipDir(ev.Name) {
					if err := addTree(w, ev.Name); err != nil {
						log.Warn("watching new directory", "dir", ev.Name, "error", err)
					}
				}
			}
			changed = ev.Name
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			rel, err := filepath.Rel(dir, changed)
			if err != nil {
				rel = changed
			}
			rel = filepath.ToSlash(rel)
			log.Debug("reload", "file", rel)
			b.Broadcast("reload", rel)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)
		}
	}
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && skipDir(p) {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}
