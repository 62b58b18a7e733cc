package scheduler

import (
	"context"
	"fmt"
	"time"
)

// IntervalScheduler runs on a fixed period using time.Ticker
type IntervalScheduler struct {
	interval time.Duration
	runner   Runner
	*lifecycle
}

// NewIntervalScheduler creates a new interval-based scheduler
func NewIntervalScheduler(interval time.Duration, runner Runner) (*IntervalScheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", interval)
	}
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}

	return &IntervalScheduler{
		interval:  interval,
		runner:    runner,
		lifecycle: newLifecycle(),
	}, nil
}

// Start begins the scheduling loop. The first run happens one interval
// after Start.
func (s *IntervalScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(); err != nil {
		return err
	}
	s.stats.NextRunTime = time.Now().Add(s.interval)

	go s.run(ctx)
	return nil
}

func (s *IntervalScheduler) run(ctx context.Context) {
	defer s.finish()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.execute(ctx, s.runner, s.interval)
		}
	}
}

// Stop gracefully stops the scheduler, waiting for a run in progress
func (s *IntervalScheduler) Stop() error {
	return s.stop()
}

// Status returns the current scheduler status
func (s *IntervalScheduler) Status() *Status {
	return s.status()
}
