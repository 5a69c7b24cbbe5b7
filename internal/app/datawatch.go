package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is how long the data files must stay quiet before a
// change is reported. Editors and export scripts write in bursts.
const defaultDebounce = 500 * time.Millisecond

// DataWatcher reports changes to a fixed set of data files. It watches the
// parent directories so files replaced through a rename are still seen.
type DataWatcher struct {
	fw       *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
}

// NewDataWatcher watches paths. A non-positive debounce selects the default.
func NewDataWatcher(paths []string, debounce time.Duration) (*DataWatcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("app: create data watcher: %w", err)
	}

	w := &DataWatcher{fw: fw, files: make(map[string]bool, len(paths)), debounce: debounce}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("app: watch %q: %w", p, err)
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("app: watch %q: %w", dir, err)
		}
		dirs[dir] = true
	}
	return w, nil
}

// Run calls onChange once per settled burst of changes until ctx is done.
// It closes the watcher before returning.
func (w *DataWatcher) Run(ctx context.Context, onChange func()) error {
	defer w.fw.Close()

	var (
		timer *time.Timer
		fire  <-chan time.Time
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

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !w.files[filepath.Clean(ev.Name)] {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			slog.Debug("data file changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			onChange()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("data watcher error", "err", err)
		}
	}
}
