package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Ning0612/devmanager/internal/core/diff"
	"github.com/Ning0612/devmanager/internal/logger"
	"github.com/Ning0612/devmanager/internal/manifest"
	"github.com/Ning0612/devmanager/internal/scheduler"
	"github.com/Ning0612/devmanager/internal/watcher"
)

// WatchOptions selects the triggers that re-run staging
type WatchOptions struct {
	// Stage applies to the initial run only; triggered runs use the
	// mtime cache
	Stage StageOptions

	// Watch re-runs on changes under srcdir or to the manifest
	Watch bool

	// Debounce is the quiet period before a batch of changes fires
	Debounce time.Duration

	// Interval re-runs periodically when positive
	Interval time.Duration
}

// WatchService keeps a manifest staged by re-running it on file changes
// or on a fixed interval
type WatchService struct {
	mu         sync.RWMutex
	stage      *StageService
	manifest   string
	schedulers []scheduler.Scheduler
	watcher    *watcher.Watcher
	cancel     context.CancelFunc

	// runMu serializes runs when both triggers are active
	runMu sync.Mutex
}

// WatchStatus represents the current state of the watch service
type WatchStatus struct {
	Running    bool
	Manifest   string
	Schedulers []*scheduler.Status
}

// NewWatchService creates a watch service that runs stage
func NewWatchService(stage *StageService) (*WatchService, error) {
	if stage == nil {
		return nil, fmt.Errorf("stage service cannot be nil")
	}
	return &WatchService{stage: stage}, nil
}

// Start performs an initial run and then arms the requested triggers. A
// failing initial run is logged and does not prevent watching.
func (w *WatchService) Start(ctx context.Context, manifestPath string, opts WatchOptions) error {
	if !opts.Watch && opts.Interval <= 0 {
		return fmt.Errorf("watch service needs --watch or a positive interval")
	}

	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to resolve manifest path: %w", err)
	}
	m, err := manifest.Load(abs)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return fmt.Errorf("watch service is already running")
	}

	if err := w.runOnce(ctx, abs, opts.Stage); err != nil {
		logger.Get().Warn("initial staging run failed", "manifest", abs, "error", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	runner := scheduler.RunnerFunc(func(ctx context.Context) error {
		return w.runOnce(ctx, abs, StageOptions{})
	})

	var scheds []scheduler.Scheduler
	var fw *watcher.Watcher

	if opts.Watch {
		fw, err = watcher.New(watcher.Options{
			Debounce: opts.Debounce,
			Filter:   stageFilter(m),
		})
		if err != nil {
			cancel()
			return err
		}
		if err := fw.AddTree(m.SourceRoot()); err != nil {
			fw.Close()
			cancel()
			return err
		}
		if err := fw.Add(filepath.Dir(abs)); err != nil {
			fw.Close()
			cancel()
			return err
		}
		go func() {
			if err := fw.Run(runCtx); err != nil {
				logger.Get().Error("file watcher stopped", "error", err)
			}
		}()

		ws, err := scheduler.NewWatchScheduler(fw.Events(), runner)
		if err != nil {
			fw.Close()
			cancel()
			return err
		}
		scheds = append(scheds, ws)
	}

	if opts.Interval > 0 {
		is, err := scheduler.NewIntervalScheduler(opts.Interval, runner)
		if err != nil {
			if fw != nil {
				fw.Close()
			}
			cancel()
			return err
		}
		scheds = append(scheds, is)
	}

	if err := startAll(runCtx, scheds); err != nil {
		cancel()
		if fw != nil {
			fw.Close()
		}
		return err
	}

	w.manifest = abs
	w.schedulers = scheds
	w.watcher = fw
	w.cancel = cancel

	logger.Get().Info("watching manifest",
		"manifest", abs,
		"srcdir", m.SourceRoot(),
		"watch", opts.Watch,
		"interval", opts.Interval,
	)
	return nil
}

// startAll starts every scheduler, stopping the ones already started if
// one fails
func startAll(ctx context.Context, scheds []scheduler.Scheduler) error {
	for i, s := range scheds {
		if err := s.Start(ctx); err != nil {
			for _, started := range scheds[:i] {
				if stopErr := started.Stop(); stopErr != nil {
					logger.Get().Warn("failed to stop scheduler", "error", stopErr)
				}
			}
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}
	return nil
}

func (w *WatchService) runOnce(ctx context.Context, manifestPath string, opts StageOptions) error {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	_, err := w.stage.Run(ctx, manifestPath, opts)
	return err
}

// Stop disarms the triggers and waits for a run in progress
func (w *WatchService) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel == nil {
		return fmt.Errorf("watch service is not running")
	}

	var errs []error
	for _, s := range w.schedulers {
		if err := s.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	w.cancel()
	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	w.schedulers = nil
	w.watcher = nil
	w.cancel = nil
	return errors.Join(errs...)
}

// Run starts the service and blocks until ctx is cancelled
func (w *WatchService) Run(ctx context.Context, manifestPath string, opts WatchOptions) error {
	if err := w.Start(ctx, manifestPath, opts); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop()
}

// Status returns the current watch status
func (w *WatchService) Status() *WatchStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	status := &WatchStatus{
		Running:  w.cancel != nil,
		Manifest: w.manifest,
	}
	for _, s := range w.schedulers {
		status.Schedulers = append(status.Schedulers, s.Status())
	}
	return status
}

// stageFilter keeps source changes and outside edits to the manifest. It
// drops temp files, anything under dstdir, siblings of the manifest, and
// the manifest rewrite each run ends with.
func stageFilter(m *manifest.Manifest) watcher.Filter {
	src := m.SourceRoot()
	dst := m.DestRoot()
	detector := diff.NewDetector(false)

	return func(ev watcher.FileEvent) bool {
		if !watcher.IgnoreTemp(ev) {
			return false
		}
		if within(ev.Path, dst) {
			return false
		}
		if ev.Path == m.Path() {
			current, err := manifest.Load(ev.Path)
			if err != nil {
				// Let the run report the broken manifest
				return true
			}
			mtime, err := current.FileModTime()
			if err != nil {
				return false
			}
			return !detector.ManifestFresh(mtime, current.LastRun())
		}
		return within(ev.Path, src)
	}
}

func within(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
