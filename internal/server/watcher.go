package server

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Change is a detected file change inside the served directory.
type Change struct {
	// Path is relative to the watched root, slash separated.
	Path string

	// Pack is the first path segment, or "" for files at the root.
	Pack string

	Removed bool
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Root is the directory to watch.
	Root string

	// Ignore patterns to skip (names or globs matched against base names).
	Ignore []string

	// Interval is the polling interval.
	Interval time.Duration
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"*.tmp",
	"*.swp",
	"*~",
	".DS_Store",
}

// Watcher polls a directory tree for changes.
type Watcher struct {
	config      WatcherConfig
	onChange    func([]Change)
	mu          sync.Mutex
	running     bool
	initialized bool
	stopCh      chan struct{}
	timestamps  map[string]time.Time
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval == 0 {
		config.Interval = 500 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}
	return &Watcher{
		config:     config,
		timestamps: make(map[string]time.Time),
	}
}

// OnChange sets the callback for a batch of changes.
func (w *Watcher) OnChange(fn func([]Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start watches until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stop := w.stopCh
	w.mu.Unlock()

	w.Scan()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
			w.Poll()
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) walk(fn func(rel string, mod time.Time)) {
	_ = filepath.WalkDir(w.config.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p != w.config.Root && w.shouldIgnore(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(w.config.Root, p)
		if err != nil {
			return nil
		}
		fn(filepath.ToSlash(rel), info.ModTime())
		return nil
	})
}

// Scan records the current state without reporting changes.
func (w *Watcher) Scan() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.walk(func(rel string, mod time.Time) {
		w.timestamps[rel] = mod
	})
	w.initialized = true
}

// Poll compares the tree with the last scan and reports what changed.
func (w *Watcher) Poll() []Change {
	w.mu.Lock()
	defer w.mu.Unlock()

	var changes []Change
	seen := map[string]bool{}
	w.walk(func(rel string, mod time.Time) {
		seen[rel] = true
		last, exists := w.timestamps[rel]
		if !exists || !mod.Equal(last) {
			w.timestamps[rel] = mod
			if exists || w.initialized {
				changes = append(changes, Change{Path: rel, Pack: packOf(rel)})
			}
		}
	})
	for rel := range w.timestamps {
		if !seen[rel] {
			delete(w.timestamps, rel)
			changes = append(changes, Change{Path: rel, Pack: packOf(rel), Removed: true})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })

	if len(changes) > 0 && w.onChange != nil {
		cb := w.onChange
		w.mu.Unlock()
		cb(changes)
		w.mu.Lock()
	}
	return changes
}

// shouldIgnore checks a base name against the ignore patterns.
func (w *Watcher) shouldIgnore(name string) bool {
	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if name == pattern {
			return true
		}
		if strings.ContainsAny(pattern, "*?[") {
			if matched, _ := filepath.Match(pattern, name); matched {
				return true
			}
		}
	}
	return false
}

func packOf(rel string) string {
	if i := strings.IndexByte(rel, '/'); i > 0 {
		return rel[:i]
	}
	return ""
}

// changedPacks returns the distinct packs touched by changes.
func changedPacks(changes []Change) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range changes {
		if c.Pack != "" && !seen[c.Pack] {
			seen[c.Pack] = true
			out = append(out, c.Pack)
		}
	}
	return out
}
