package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/bloom"
	"github.com/gogpu/bloom/pipeline"
)

// Reloader accepts a new pass chain.
type Reloader interface {
	Reload(d pipeline.Descriptor) error
}

// debounce collapses the burst of events editors emit for one save.
const debounce = 100 * time.Millisecond

// Watch reloads the pipeline file at path into r whenever it changes,
// until ctx is cancelled. The parent directory is watched so files
// replaced by rename are followed. Invalid files are logged and skipped.
func Watch(ctx context.Context, path string, r Reloader) error {
	path = filepath.Clean(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	bloom.Logger().Info("config: watching pipeline file", "path", path)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			bloom.Logger().Warn("config: watcher error", "err", err)
		case <-timer.C:
			d, err := LoadPipeline(path)
			if err == nil {
				err = r.Reload(d)
			}
			if err != nil {
				bloom.Logger().Warn("config: pipeline reload failed", "path", path, "err", err)
				continue
			}
			bloom.Logger().Info("config: pipeline reloaded", "path", path, "passes", len(d.Passes))
		}
	}
}
