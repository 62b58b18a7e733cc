package progress

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) callback(u Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *recorder) last() Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[len(r.updates)-1]
}

func TestCallbackReporter_SetTotalAndStart(t *testing.T) {
	rec := &recorder{}
	reporter := NewCallbackReporter(rec.callback)

	reporter.SetTotal(10, 1024*1024)
	reporter.Start("js/app.js", 100)

	u := rec.last()
	if u.Type != UpdateStart {
		t.Errorf("expected UpdateStart, got %v", u.Type)
	}
	if u.CurrentFile != "js/app.js" || u.CurrentTotal != 100 {
		t.Errorf("unexpected start update: %+v", u)
	}
	if u.FilesTotal != 10 || u.BytesTotal != 1024*1024 {
		t.Errorf("totals not carried: %+v", u)
	}
}

func TestCallbackReporter_Lifecycle(t *testing.T) {
	rec := &recorder{}
	reporter := NewCallbackReporter(rec.callback)

	reporter.SetTotal(2, 300)

	reporter.Start("a.html", 100)
	reporter.Update(40)
	if u := rec.last(); u.Type != UpdateProgress || u.CurrentBytes != 40 || u.BytesCompleted != 40 {
		t.Errorf("unexpected progress update: %+v", u)
	}
	reporter.Complete()
	if u := rec.last(); u.FilesCompleted != 1 || u.BytesCompleted != 100 {
		t.Errorf("unexpected complete update: %+v", u)
	}

	reporter.Start("b.css", 200)
	reporter.Error(errors.New("disk full"))
	u := rec.last()
	if u.Type != UpdateError || u.Error == nil || u.FilesFailed != 1 {
		t.Errorf("unexpected error update: %+v", u)
	}
	if u.BytesCompleted != 100 {
		t.Errorf("failed file must not count bytes, got %d", u.BytesCompleted)
	}

	reporter.Finish()
	u = rec.last()
	if u.Type != UpdateFinish || u.FilesCompleted != 1 || u.FilesFailed != 1 {
		t.Errorf("unexpected finish update: %+v", u)
	}
}

func TestCallbackReporter_Reentrant(t *testing.T) {
	done := make(chan struct{})

	var reporter *CallbackReporter
	reporter = NewCallbackReporter(func(u Update) {
		switch u.Type {
		case UpdateStart:
			reporter.Update(10)
		case UpdateComplete:
			reporter.Finish()
		}
	})

	go func() {
		reporter.SetTotal(1, 100)
		reporter.Start("index.html", 100)
		reporter.Complete()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("deadlock detected: callback was called while holding lock")
	}
}

func TestProgressReader(t *testing.T) {
	rec := &recorder{}
	reporter := NewCallbackReporter(rec.callback)
	reporter.Start("data.bin", 11)

	reader := NewProgressReader(strings.NewReader("hello world"), reporter)
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("unexpected data: %q", data)
	}
	if u := rec.last(); u.CurrentBytes != 11 {
		t.Errorf("expected 11 bytes reported, got %d", u.CurrentBytes)
	}
}

func TestProgressReader_NilReporter(t *testing.T) {
	reader := NewProgressReader(strings.NewReader("abc"), nil)
	if _, err := io.ReadAll(reader); err != nil {
		t.Fatalf("read failed: %v", err)
	}
}

func TestBarReporter(t *testing.T) {
	var out bytes.Buffer
	bar := NewBarReporter(&out)

	// Events before SetTotal are ignored
	bar.Start("early.js", 5)
	bar.Update(5)

	bar.SetTotal(2, 150)
	bar.Start("www/index.html", 100)
	bar.Update(60)
	bar.Update(60) // repeated cumulative value adds nothing
	bar.Complete()
	bar.Start("www/app.css", 50)
	bar.Error(errors.New("permission denied"))
	bar.Finish()

	if bar.Failed() != 1 {
		t.Errorf("expected 1 failure, got %d", bar.Failed())
	}

	// Finish twice is a no-op
	bar.Finish()
}

func TestNullReporter(t *testing.T) {
	var r Reporter = NullReporter{}
	r.SetTotal(1, 1)
	r.Start("x", 1)
	r.Update(1)
	r.Complete()
	r.Error(errors.New("x"))
	r.Finish()
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.bytes); got != tt.expected {
			t.Errorf("FormatBytes(%d) = %s, want %s", tt.bytes, got, tt.expected)
		}
	}
}
