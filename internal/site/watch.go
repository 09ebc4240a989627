package site

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/subhylahiri/sitegen/internal/config"
)

// DefaultDebounce is how long a file must stay quiet before a change
// triggers a rebuild. Editors often write a file several times per save.
const DefaultDebounce = 300 * time.Millisecond

// watchedExts are the file types that affect rendered output.
var watchedExts = map[string]bool{
	".html": true,
	".json": true,
	".yml":  true,
	".env":  true,
}

// Watcher reports settled changes to a site's pages, data and config.
type Watcher struct {
	root     string
	skip     []string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewWatcher watches every directory under root except the render output,
// the cache and hidden directories.
func NewWatcher(root, outDir string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:     root,
		skip:     []string{filepath.Clean(outDir), config.CachePath(root)},
		watcher:  fw,
		debounce: DefaultDebounce,
		logger:   logger,
		pending:  make(map[string]time.Time),
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || w.skipped(path)) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
	if err != nil {
		fw.Close()
		return nil, err
	}

	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) skipped(path string) bool {
	for _, s := range w.skip {
		if path == s || strings.HasPrefix(path, s+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Relevant reports whether a change to path can affect rendered pages.
func (w *Watcher) Relevant(path string) bool {
	if w.skipped(path) {
		return false
	}
	name := filepath.Base(path)
	if name == config.EnvFile {
		return true
	}
	return watchedExts[filepath.Ext(name)]
}

// Run calls onChange with the settled changed paths until ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string)) error {
	ticker := time.NewTicker(w.debounce / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-ticker.C:
			if paths := w.settled(); len(paths) > 0 {
				onChange(ctx, paths)
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// new directories get watched too
	if event.Op&fsnotify.Create != 0 && !w.skipped(event.Name) {
		if isDir(event.Name) && !strings.HasPrefix(filepath.Base(event.Name), ".") {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logger.Warn("watching new directory", zap.String("path", event.Name), zap.Error(err))
			}
		}
	}

	if !w.Relevant(event.Name) {
		return
	}
	w.logger.Debug("change", zap.String("path", event.Name), zap.String("op", event.Op.String()))

	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// settled removes and returns the paths quiet for the debounce window.
func (w *Watcher) settled() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	var out []string
	for path, t := range w.pending {
		if now.Sub(t) >= w.debounce {
			out = append(out, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(out)
	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
