// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period after the last filesystem event
// before a refresh fires. Rapid successive events (an installer writing
// then renaming a temp file) coalesce into a single refresh.
const defaultDebounce = 500 * time.Millisecond

// watcherIgnores are event paths that never trigger a refresh. Editors
// and the OS generate high-frequency noise under these patterns.
var watcherIgnores = []string{
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
	"**/*.part",
	"**/*.tmp",
}

// WatcherConfig holds the parameters for a Watcher.
type WatcherConfig struct {
	// Folders are the collections kept fresh by the watcher. Both each
	// folder's directory and its metadata index directory are
	// monitored.
	Folders []*Folder

	// Debounce is the quiet period after the last event before folders
	// refresh. Zero or negative values fall back to defaultDebounce.
	Debounce time.Duration

	// OnRefresh, when set, is called after each completed refresh round
	// with the ids of the folders that were refreshed.
	OnRefresh func(folderIDs []string)

	// Logger receives watcher diagnostics. Nil uses the default logger.
	Logger *log.Logger
}

// Watcher keeps resource folders synchronized with the filesystem. Run
// must be called exactly once; a second call returns an error.
type Watcher struct {
	cfg      WatcherConfig
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *log.Logger
	byDir    map[string]*Folder
	started  atomic.Bool
}

// NewWatcher creates a Watcher over the given folders and registers
// their directories with fsnotify. Directories that do not exist yet
// are skipped here and registered by Run when their creation is
// observed under an already-watched directory.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if len(cfg.Folders) == 0 {
		return nil, fmt.Errorf("watch: no folders to watch")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		debounce: debounce,
		logger:   logger,
		byDir:    make(map[string]*Folder, len(cfg.Folders)),
	}

	for _, folder := range cfg.Folders {
		w.byDir[folder.Dir()] = folder
		for _, dir := range []string{folder.Dir(), folder.IndexDir()} {
			switch err := fsw.Add(dir); {
			case err == nil:
			case errors.Is(err, os.ErrNotExist):
				logger.Debug("not watching missing directory", "dir", dir)
			default:
				logger.Warn("watch directory", "dir", dir, "err", err)
			}
		}
	}

	return w, nil
}

// Run blocks until ctx is cancelled, refreshing the affected folders
// after each debounced burst of filesystem events. It returns nil on
// clean cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify watcher", "err", err)
		}
	}()

	var (
		mu      sync.Mutex
		pending = make(map[string]*Folder)
		timer   *time.Timer
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		dirty := make([]*Folder, 0, len(pending))
		for _, folder := range pending {
			dirty = append(dirty, folder)
		}
		clear(pending)
		mu.Unlock()

		ids := make([]string, 0, len(dirty))
		for _, folder := range dirty {
			if err := folder.Refresh(ctx); err != nil {
				w.logger.Warn("folder refresh failed", "folder", folder.ID(), "err", err)
				continue
			}
			ids = append(ids, folder.ID())
		}
		if w.cfg.OnRefresh != nil && len(ids) > 0 {
			w.cfg.OnRefresh(ids)
		}
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed unexpectedly")
			}
			if w.ignored(evt.Name) {
				continue
			}
			folder := w.folderFor(evt.Name)
			if folder == nil {
				continue
			}

			// A folder or index directory created after construction
			// starts being watched the moment its creation shows up
			// under an already-watched directory.
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			mu.Lock()
			pending[folder.Dir()] = folder
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

// maybeAddDir registers a late-created folder or metadata index
// directory with fsnotify.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	for _, folder := range w.byDir {
		if path != folder.Dir() && path != folder.IndexDir() {
			continue
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			w.logger.Warn("watch new directory", "dir", path, "err", addErr)
		}
		return
	}
}

// ignored reports whether an event path matches the noise patterns.
func (w *Watcher) ignored(path string) bool {
	for _, pattern := range watcherIgnores {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// folderFor maps an event path to the folder whose directory tree
// contains it.
func (w *Watcher) folderFor(path string) *Folder {
	for dir, folder := range w.byDir {
		if path == dir || withinDir(dir, path) {
			return folder
		}
	}
	return nil
}

func withinDir(dir, path string) bool {
	return len(path) > len(dir) && path[:len(dir)] == dir && path[len(dir)] == filepath.Separator
}
