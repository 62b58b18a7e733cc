package scheduler

import (
	"context"
	"fmt"

	"github.com/Ning0612/devmanager/internal/logger"
	"github.com/Ning0612/devmanager/internal/watcher"
)

// WatchScheduler runs once per batch of file changes. Batches that arrive
// while a run is in progress are merged into a single follow-up run.
type WatchScheduler struct {
	events <-chan []watcher.FileEvent
	runner Runner
	*lifecycle
}

// NewWatchScheduler creates a scheduler fed by a watcher's Events channel
func NewWatchScheduler(events <-chan []watcher.FileEvent, runner Runner) (*WatchScheduler, error) {
	if events == nil {
		return nil, fmt.Errorf("event source cannot be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}

	return &WatchScheduler{
		events:    events,
		runner:    runner,
		lifecycle: newLifecycle(),
	}, nil
}

// Start begins consuming events
func (s *WatchScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(); err != nil {
		return err
	}

	go s.run(ctx)
	return nil
}

func (s *WatchScheduler) run(ctx context.Context) {
	defer s.finish()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case batch, ok := <-s.events:
			if !ok {
				return
			}
			batch = s.drain(batch)
			logger.Get().Debug("changes detected", "files", len(batch), "first", batch[0].Path)
			s.execute(ctx, s.runner, 0)
		}
	}
}

// drain merges batches that queued up behind the current one
func (s *WatchScheduler) drain(batch []watcher.FileEvent) []watcher.FileEvent {
	for {
		select {
		case more, ok := <-s.events:
			if !ok {
				return batch
			}
			batch = append(batch, more...)
		default:
			return batch
		}
	}
}

// Stop gracefully stops the scheduler, waiting for a run in progress
func (s *WatchScheduler) Stop() error {
	return s.stop()
}

// Status returns the current scheduler status
func (s *WatchScheduler) Status() *Status {
	return s.status()
}
