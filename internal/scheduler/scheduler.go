package scheduler

import (
	"context"
	"sync"
	"time"
)

// Scheduler decides when a staging run happens
type Scheduler interface {
	// Start begins the scheduling loop
	Start(ctx context.Context) error

	// Stop gracefully stops the scheduler
	Stop() error

	// Status returns the current scheduler status
	Status() *Status
}

// Status represents the current state of a scheduler
type Status struct {
	Running        bool
	LastRunTime    time.Time
	NextRunTime    time.Time // zero for event-driven schedulers
	TotalRuns      int
	SuccessfulRuns int
	FailedRuns     int
	LastError      string
}

// Runner performs one run. Schedulers never call Run concurrently.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(ctx context.Context) error

// Run calls f
func (f RunnerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// lifecycle holds the start/stop bookkeeping both schedulers share
type lifecycle struct {
	mu          sync.RWMutex
	running     bool
	stopped     bool
	stopOnce    sync.Once
	closeOnce   sync.Once
	stopChan    chan struct{}
	stoppedChan chan struct{}
	stats       Status
}

func newLifecycle() *lifecycle {
	return &lifecycle{
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// begin marks the scheduler running; l.mu must be held
func (l *lifecycle) begin() error {
	if l.running {
		return errAlreadyRunning
	}
	if l.stopped {
		return errNoRestart
	}
	l.running = true
	return nil
}

// finish is deferred by the loop goroutine
func (l *lifecycle) finish() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.running = false
		l.mu.Unlock()
		close(l.stoppedChan)
	})
}

// stop is a no-op for a loop that already ended on its own
func (l *lifecycle) stop() error {
	l.mu.RLock()
	if !l.running {
		stopped := l.stopped
		l.mu.RUnlock()
		if stopped {
			return nil
		}
		return errNotRunning
	}
	l.mu.RUnlock()

	l.stopOnce.Do(func() { close(l.stopChan) })
	<-l.stoppedChan
	return nil
}

// execute runs r once and records the outcome
func (l *lifecycle) execute(ctx context.Context, r Runner, next time.Duration) {
	l.mu.Lock()
	l.stats.LastRunTime = time.Now()
	l.stats.TotalRuns++
	if next > 0 {
		l.stats.NextRunTime = time.Now().Add(next)
	}
	l.mu.Unlock()

	err := r.Run(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.stats.FailedRuns++
		l.stats.LastError = err.Error()
		return
	}
	l.stats.SuccessfulRuns++
	l.stats.LastError = ""
}

func (l *lifecycle) status() *Status {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := l.stats
	s.Running = l.running
	return &s
}
