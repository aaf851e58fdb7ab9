// Package watch reports artifact directories whose files changed.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmdemo/internal/artifact"
)

// DefaultDebounce is used when a Watcher is created with a zero debounce.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches artifact directories for rebuilt modules and edited manifests.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger
}

// New watches every artifact directory directly under each of paths.
func New(paths []string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: debounce,
		logger:   logger.With(zap.String("component", "watcher")),
	}

	for _, base := range paths {
		dirs, err := filepath.Glob(filepath.Join(base, "*", artifact.ManifestFile))
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
		for _, manifest := range dirs {
			if err := w.Add(filepath.Dir(manifest)); err != nil {
				_ = fsw.Close()
				return nil, err
			}
		}
	}

	return w, nil
}

// Add starts watching one artifact directory.
func (w *Watcher) Add(dir string) error {
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.logger.Debug("Watching artifact directory", zap.String("dir", dir))
	return nil
}

// Dirs returns the watched directories.
func (w *Watcher) Dirs() []string {
	return w.fsw.WatchList()
}

// Run calls onChange with the artifact directory after its module or manifest
// changes and no further changes arrive within the debounce window. It blocks
// until ctx is done and then closes the watcher.
func (w *Watcher) Run(ctx context.Context, onChange func(dir string)) error {
	defer w.fsw.Close()

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}

			dir := filepath.Dir(event.Name)
			w.logger.Debug("Artifact file changed",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()),
			)

			mu.Lock()
			if t, ok := timers[dir]; ok {
				t.Stop()
			}
			timers[dir] = w.schedule(ctx, &mu, timers, dir, onChange)
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", zap.Error(err))
		}
	}
}

// schedule arms the debounce timer for dir. The caller holds mu. A timer
// that fires after being superseded does nothing.
func (w *Watcher) schedule(
	ctx context.Context,
	mu *sync.Mutex,
	timers map[string]*time.Timer,
	dir string,
	onChange func(dir string),
) *time.Timer {
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		mu.Lock()
		current := timers[dir] == t
		if current {
			delete(timers, dir)
		}
		mu.Unlock()

		if current && ctx.Err() == nil {
			onChange(dir)
		}
	})
	return t
}

// relevant reports whether event touches a compiled module or a manifest.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	return base == artifact.ManifestFile || strings.HasSuffix(base, ".wasm")
}
