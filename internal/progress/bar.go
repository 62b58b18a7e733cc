package progress

import (
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// BarReporter draws a terminal progress bar over the bytes a staging run
// copies
type BarReporter struct {
	w io.Writer

	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	last    int64 // cumulative bytes already added for the current file
	current int64 // size of the current file
	failed  int
}

// NewBarReporter creates a bar writing to w (usually stderr)
func NewBarReporter(w io.Writer) *BarReporter {
	return &BarReporter{w: w}
}

// SetTotal (re)creates the bar for totalBytes
func (b *BarReporter) SetTotal(totalFiles int, totalBytes int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failed = 0
	b.bar = progressbar.NewOptions64(totalBytes,
		progressbar.OptionSetWriter(b.w),
		progressbar.OptionSetDescription(fmt.Sprintf("staging %d files", totalFiles)),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// Start shows the file being copied
func (b *BarReporter) Start(name string, totalBytes int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.last = 0
	b.current = totalBytes
	if b.bar != nil {
		b.bar.Describe(path.Base(name))
	}
}

// Update advances the bar by the bytes read since the previous call
func (b *BarReporter) Update(bytesTransferred int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(bytesTransferred)
}

// Complete fills in whatever the reader did not report
func (b *BarReporter) Complete() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(b.current)
}

// Error counts the failure and skips the file's remaining bytes
func (b *BarReporter) Error(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failed++
	b.advance(b.current)
}

// Finish completes and clears the bar
func (b *BarReporter) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		b.bar.Finish()
		b.bar = nil
	}
}

// Failed returns how many files failed since SetTotal
func (b *BarReporter) Failed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed
}

// advance adds the delta up to cumulative; b.mu must be held
func (b *BarReporter) advance(cumulative int64) {
	if b.bar == nil || cumulative <= b.last {
		return
	}
	b.bar.Add64(cumulative - b.last)
	b.last = cumulative
}
