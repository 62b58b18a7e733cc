package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Reporter receives progress events from a staging run
type Reporter interface {
	// SetTotal announces how many files and bytes the run will copy
	SetTotal(totalFiles int, totalBytes int64)
	// Start begins copying one file of totalBytes source bytes
	Start(path string, totalBytes int64)
	// Update reports the cumulative source bytes read for the current file
	Update(bytesTransferred int64)
	// Complete marks the current file as copied
	Complete()
	// Error marks the current file as failed
	Error(err error)
	// Finish ends the run
	Finish()
}

// Callback is a function that receives progress updates
type Callback func(update Update)

// Update is one progress event
type Update struct {
	Type           UpdateType
	CurrentFile    string
	CurrentBytes   int64
	CurrentTotal   int64
	FilesCompleted int
	FilesFailed    int
	FilesTotal     int
	BytesCompleted int64
	BytesTotal     int64
	BytesPerSecond float64
	Error          error
}

// UpdateType indicates the type of progress update
type UpdateType int

const (
	UpdateStart UpdateType = iota
	UpdateProgress
	UpdateComplete
	UpdateError
	UpdateFinish
)

func (t UpdateType) String() string {
	switch t {
	case UpdateStart:
		return "start"
	case UpdateProgress:
		return "progress"
	case UpdateComplete:
		return "complete"
	case UpdateError:
		return "error"
	case UpdateFinish:
		return "finish"
	default:
		return "unknown"
	}
}

// CallbackReporter implements Reporter with a callback function. The
// callback runs outside the reporter's lock, so it may call back into the
// reporter.
type CallbackReporter struct {
	callback Callback

	mu             sync.Mutex
	currentFile    string
	currentTotal   int64
	currentBytes   int64
	filesTotal     int
	bytesTotal     int64
	filesCompleted int
	filesFailed    int
	bytesCompleted int64
	startTime      time.Time
}

// NewCallbackReporter creates a new CallbackReporter
func NewCallbackReporter(callback Callback) *CallbackReporter {
	return &CallbackReporter{callback: callback}
}

// snapshot builds an update from the current state; r.mu must be held
func (r *CallbackReporter) snapshot(t UpdateType) Update {
	return Update{
		Type:           t,
		CurrentFile:    r.currentFile,
		CurrentBytes:   r.currentBytes,
		CurrentTotal:   r.currentTotal,
		FilesCompleted: r.filesCompleted,
		FilesFailed:    r.filesFailed,
		FilesTotal:     r.filesTotal,
		BytesCompleted: r.bytesCompleted,
		BytesTotal:     r.bytesTotal,
	}
}

func (r *CallbackReporter) emit(u Update) {
	if r.callback != nil {
		r.callback(u)
	}
}

// SetTotal sets the total number of files and bytes
func (r *CallbackReporter) SetTotal(totalFiles int, totalBytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filesTotal = totalFiles
	r.bytesTotal = totalBytes
}

// Start begins tracking a new file
func (r *CallbackReporter) Start(path string, totalBytes int64) {
	r.mu.Lock()
	r.currentFile = path
	r.currentTotal = totalBytes
	r.currentBytes = 0
	r.startTime = time.Now()
	u := r.snapshot(UpdateStart)
	r.mu.Unlock()

	r.emit(u)
}

// Update reports progress on the current file
func (r *CallbackReporter) Update(bytesTransferred int64) {
	r.mu.Lock()
	r.currentBytes = bytesTransferred
	u := r.snapshot(UpdateProgress)
	u.BytesCompleted += bytesTransferred
	if elapsed := time.Since(r.startTime).Seconds(); elapsed > 0 {
		u.BytesPerSecond = float64(bytesTransferred) / elapsed
	}
	r.mu.Unlock()

	r.emit(u)
}

// Complete marks the current file as copied
func (r *CallbackReporter) Complete() {
	r.mu.Lock()
	r.filesCompleted++
	r.bytesCompleted += r.currentTotal
	r.currentBytes = r.currentTotal
	u := r.snapshot(UpdateComplete)
	r.mu.Unlock()

	r.emit(u)
}

// Error marks the current file as failed
func (r *CallbackReporter) Error(err error) {
	r.mu.Lock()
	r.filesFailed++
	u := r.snapshot(UpdateError)
	u.Error = err
	r.mu.Unlock()

	r.emit(u)
}

// Finish reports the end of the run
func (r *CallbackReporter) Finish() {
	r.mu.Lock()
	u := r.snapshot(UpdateFinish)
	u.CurrentFile = ""
	r.mu.Unlock()

	r.emit(u)
}

// ProgressReader wraps an io.Reader and reports cumulative bytes read
type ProgressReader struct {
	reader      io.Reader
	reporter    Reporter
	transferred int64
}

// NewProgressReader creates a new progress-tracking reader
func NewProgressReader(r io.Reader, reporter Reporter) *ProgressReader {
	return &ProgressReader{reader: r, reporter: reporter}
}

// Read implements io.Reader
func (pr *ProgressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 {
		pr.transferred += int64(n)
		if pr.reporter != nil {
			pr.reporter.Update(pr.transferred)
		}
	}
	return n, err
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) SetTotal(totalFiles int, totalBytes int64) {}
func (NullReporter) Start(path string, totalBytes int64)       {}
func (NullReporter) Update(bytesTransferred int64)             {}
func (NullReporter) Complete()                                 {}
func (NullReporter) Error(err error)                           {}
func (NullReporter) Finish()                                   {}

// FormatBytes formats bytes into human-readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
