// Package watcher watches a transcript inbox directory and reports dropped files,
// debounced, as (user, meeting, path) drops.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Drop is a transcript file found at {inbox}/{userID}/{meetingID}.{ext}.
type Drop struct {
	UserID    string
	MeetingID string
	Path      string

	// Title names a meeting created for the drop. Empty uses the meeting id.
	Title string
}

// ParseDropPath maps path under root to a Drop. Files at other depths, hidden files
// and files without a base name are rejected.
func ParseDropPath(root, path string) (Drop, bool) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return Drop{}, false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) != 2 || parts[0] == ".." || parts[0] == "." {
		return Drop{}, false
	}
	user, name := parts[0], parts[1]
	if strings.HasPrefix(user, ".") || strings.HasPrefix(name, ".") {
		return Drop{}, false
	}
	meeting := strings.TrimSuffix(name, filepath.Ext(name))
	if meeting == "" {
		return Drop{}, false
	}
	return Drop{UserID: user, MeetingID: meeting, Path: path}, true
}

// Watcher watches one inbox root and its per-user subdirectories.
type Watcher struct {
	root        string
	extensions  []string
	onDrop      func(Drop)
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for watcher events.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce sets how long a file must be quiet before it is reported.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over root. extensions filters file types (empty = all).
func NewWatcher(root string, extensions []string, onDrop func(Drop), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:        filepath.Clean(root),
		extensions:  extensions,
		onDrop:      onDrop,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start creates the root if missing and watches it and each user directory. It runs
// until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.root); err != nil {
		_ = fw.Close()
		return err
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		_ = fw.Close()
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := fw.Add(filepath.Join(w.root, e.Name())); err != nil {
				w.logger.Warn("failed to watch user directory", zap.String("dir", e.Name()), zap.Error(err))
			}
		}
	}
	w.watcher = fw
	w.started = true
	w.logger.Debug("watcher started", zap.String("root", w.root), zap.Strings("extensions", w.extensions))
	go w.run(ctx, fw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		w.consider(path)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancelDebounce(path)
	}
}

// handleNewDirectory watches a new user directory and reports files already in it.
func (w *Watcher) handleNewDirectory(dir string) {
	if filepath.Dir(filepath.Clean(dir)) != w.root {
		return
	}
	w.mu.Lock()
	fw := w.watcher
	w.mu.Unlock()
	if fw == nil {
		return
	}
	if err := fw.Add(dir); err != nil {
		w.logger.Warn("failed to watch user directory", zap.String("path", dir), zap.Error(err))
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.consider(filepath.Join(dir, e.Name()))
		}
	}
}

func (w *Watcher) consider(path string) {
	drop, ok := ParseDropPath(w.root, path)
	if !ok || !matchExtension(path, w.extensions) {
		return
	}
	w.debounceDrop(drop)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) debounceDrop(drop Drop) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[drop.Path]; ok {
		t.Stop()
	}
	w.debounceMap[drop.Path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, drop.Path)
		w.mu.Unlock()
		w.logger.Debug("transcript dropped",
			zap.String("user_id", drop.UserID),
			zap.String("meeting_id", drop.MeetingID),
			zap.String("path", drop.Path))
		if w.onDrop != nil {
			w.onDrop(drop)
		}
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

// SyncExisting reports every matching file already in the inbox, without debounce.
func (w *Watcher) SyncExisting() {
	_ = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != w.root && filepath.Dir(path) != w.root {
				return filepath.SkipDir
			}
			return nil
		}
		drop, ok := ParseDropPath(w.root, path)
		if ok && matchExtension(path, w.extensions) && w.onDrop != nil {
			w.onDrop(drop)
		}
		return nil
	})
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	w.started = false
	fw := w.watcher
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
	_ = fw.Close()
}
