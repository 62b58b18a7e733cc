package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func startWatcher(t *testing.T, opts Options) (*Watcher, context.CancelFunc) {
	t.Helper()
	w, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	t.Cleanup(func() {
		cancel()
		w.Close()
	})
	return w, cancel
}

func waitBatch(t *testing.T, w *Watcher) []FileEvent {
	t.Helper()
	select {
	case batch, ok := <-w.Events():
		if !ok {
			t.Fatal("events channel closed")
		}
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for events")
	}
	return nil
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	w, _ := startWatcher(t, Options{Debounce: 100 * time.Millisecond})
	if err := w.AddTree(dir); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "app.js")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte{byte(i)}, 0644); err != nil {
			t.Fatal(err)
		}
	}

	batch := waitBatch(t, w)
	if len(batch) != 1 || batch[0].Path != path {
		t.Fatalf("expected one coalesced event for %s, got %+v", path, batch)
	}
	if !batch[0].Op.Has(fsnotify.Write) && !batch[0].Op.Has(fsnotify.Create) {
		t.Errorf("unexpected op: %v", batch[0].Op)
	}
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	w, _ := startWatcher(t, Options{Debounce: 100 * time.Millisecond})
	if err := w.AddTree(dir); err != nil {
		t.Fatal(err)
	}

	sub := filepath.Join(dir, "css")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	waitBatch(t, w)

	target := filepath.Join(sub, "site.css")
	if err := os.WriteFile(target, []byte("body{}"), 0644); err != nil {
		t.Fatal(err)
	}

	batch := waitBatch(t, w)
	found := false
	for _, ev := range batch {
		if ev.Path == target {
			found = true
		}
	}
	if !found {
		t.Errorf("expected event for %s in %+v", target, batch)
	}
}

func TestWatcher_Filter(t *testing.T) {
	dir := t.TempDir()
	w, _ := startWatcher(t, Options{Debounce: 100 * time.Millisecond, Filter: IgnoreTemp})
	if err := w.Add(dir); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "x.devmanager.tmp"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	kept := filepath.Join(dir, "index.html")
	if err := os.WriteFile(kept, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	batch := waitBatch(t, w)
	for _, ev := range batch {
		if ev.Path != kept {
			t.Errorf("filtered path leaked: %s", ev.Path)
		}
	}
}

func TestWatcher_RunClosesEvents(t *testing.T) {
	w, cancel := startWatcher(t, Options{})
	cancel()

	select {
	case _, ok := <-w.Events():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after cancel")
	}
}

func TestIgnoreTemp(t *testing.T) {
	tests := map[string]bool{
		"/w/index.html":            true,
		"/w/app.js.devmanager.tmp": false,
		"/w/movefile.json.tmp":     false,
		"/w/.movefile.json.lock":   false,
		"/w/.index.html.swp":       false,
		"/w/notes.txt~":            false,
	}
	for p, want := range tests {
		if got := IgnoreTemp(FileEvent{Path: p}); got != want {
			t.Errorf("IgnoreTemp(%s) = %v, want %v", p, got, want)
		}
	}
}
