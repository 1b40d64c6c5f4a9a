// Package watch re-indexes the data directory when documents change.
package watch

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

	"github.com/dgallion1/docchat/internal/loader"
)

// DefaultDebounce is the quiet period after the last event before a
// re-index is requested.
const DefaultDebounce = 2 * time.Second

// Config wires a Watcher to its actions.
type Config struct {
	Dir      string
	Debounce time.Duration
	// OnChange runs once per burst of creates and writes.
	OnChange func()
	// OnRemove runs for each supported file that is deleted or renamed away.
	OnRemove func(path string)
}

// Watcher follows a directory tree with fsnotify.
type Watcher struct {
	fsw *fsnotify.Watcher
	cfg Config
	log *slog.Logger
}

func New(cfg Config, log *slog.Logger) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.OnChange == nil {
		cfg.OnChange = func() {}
	}
	if cfg.OnRemove == nil {
		cfg.OnRemove = func(string) {}
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{fsw: fsw, cfg: cfg, log: log}, nil
}

// Run watches until ctx is cancelled. It closes the underlying watcher
// on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	if err := w.addTree(w.cfg.Dir); err != nil {
		return err
	}
	w.log.Info("watching data directory", "dir", w.cfg.Dir, "debounce", w.cfg.Debounce)

	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if hidden(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := w.addTree(event.Name); err != nil {
					w.log.Warn("watch new directory failed", "dir", event.Name, "error", err)
				}
				pending = true
				timer.Reset(w.cfg.Debounce)
				continue
			}
			if !loader.IsSupportedExtension(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				w.log.Info("document removed", "path", event.Name)
				w.cfg.OnRemove(filepath.Clean(event.Name))
			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				w.log.Debug("document changed", "path", event.Name, "op", event.Op.String())
				pending = true
				timer.Reset(w.cfg.Debounce)
			}

		case <-timer.C:
			if pending {
				pending = false
				w.cfg.OnChange()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
