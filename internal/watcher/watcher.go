// Package watcher turns fsnotify events into debounced batches.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Ning0612/devmanager/internal/logger"
)

// DefaultDebounce collapses the burst of events an editor save or a build
// produces
const DefaultDebounce = 300 * time.Millisecond

// FileEvent is one change seen on disk
type FileEvent struct {
	Path string      // absolute path
	Op   fsnotify.Op // operation that fired
}

// Filter returns false for events that should be dropped
type Filter func(FileEvent) bool

// Options configures a Watcher
type Options struct {
	Debounce time.Duration
	Filter   Filter
}

// Watcher watches files and directory trees. fsnotify is not recursive, so
// directories created under a recursive root are added as they appear.
type Watcher struct {
	fsw  *fsnotify.Watcher
	opts Options
	out  chan []FileEvent

	mu        sync.Mutex
	recursive map[string]bool // roots added with AddTree
}

// New creates a watcher with nothing watched yet
func New(opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		fsw:       fsw,
		opts:      opts,
		out:       make(chan []FileEvent, 1),
		recursive: make(map[string]bool),
	}, nil
}

// Add watches a single file or directory (not its subdirectories)
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.fsw.Add(abs); err != nil {
		return fmt.Errorf("failed to watch %s: %w", abs, err)
	}
	return nil
}

// AddTree watches root and every directory below it. Hidden directories
// are skipped.
func (w *Watcher) AddTree(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.recursive[abs] = true
	w.mu.Unlock()

	return filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != abs && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// Events delivers one batch per quiet period, in path order
func (w *Watcher) Events() <-chan []FileEvent {
	return w.out
}

// Run pumps events until ctx is cancelled or the watcher is closed. The
// Events channel is closed when Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.out)

	pending := make(map[string]fsnotify.Op)
	timer := time.NewTimer(w.opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			fe := FileEvent{Path: ev.Name, Op: ev.Op}
			if ev.Has(fsnotify.Create) {
				w.maybeAddDir(ev.Name)
			}
			if w.opts.Filter != nil && !w.opts.Filter(fe) {
				continue
			}
			pending[fe.Path] |= fe.Op
			timer.Reset(w.opts.Debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Get().Warn("file watcher error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := flush(pending)
			pending = make(map[string]fsnotify.Op)
			select {
			case w.out <- batch:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// maybeAddDir extends a recursive watch to a newly created directory
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || strings.HasPrefix(filepath.Base(path), ".") {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for root := range w.recursive {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			if err := w.fsw.Add(path); err != nil {
				logger.Get().Warn("failed to watch new directory", "path", path, "error", err)
			}
			return
		}
	}
}

func flush(pending map[string]fsnotify.Op) []FileEvent {
	batch := make([]FileEvent, 0, len(pending))
	for p, op := range pending {
		batch = append(batch, FileEvent{Path: p, Op: op})
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	return batch
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// IgnoreTemp drops editor swap files and the temp files written by the
// adapter and the manifest writer
func IgnoreTemp(ev FileEvent) bool {
	base := filepath.Base(ev.Path)
	switch {
	case strings.HasSuffix(base, ".tmp"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".lock"):
		return false
	}
	return true
}
