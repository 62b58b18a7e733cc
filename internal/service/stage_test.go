package service

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Ning0612/devmanager/internal/domain"
	"github.com/Ning0612/devmanager/internal/lock"
	"github.com/Ning0612/devmanager/internal/manifest"
	"github.com/Ning0612/devmanager/internal/progress"
	"github.com/Ning0612/devmanager/internal/state"
	"github.com/Ning0612/devmanager/internal/testutil"
)

type stageFixture struct {
	root     string
	src      string
	dst      string
	manifest string
}

func newStageFixture(t *testing.T, body string) *stageFixture {
	t.Helper()
	root := t.TempDir()
	f := &stageFixture{
		root:     root,
		src:      filepath.Join(root, "src"),
		dst:      filepath.Join(root, "data"),
		manifest: filepath.Join(root, "movefile.json"),
	}
	if err := os.MkdirAll(f.src, 0755); err != nil {
		t.Fatal(err)
	}
	testutil.CreateTestFile(t, root, "movefile.json", []byte(body))
	return f
}

const basicManifest = `{
    "srcdir": "src",
    "dstdir": "data",
    "dirs": ["ap", "js"],
    "files": [
        ["index.html", "ap/index.html", false],
        ["app.js", "js/app.js", true]
    ]
}`

func (f *stageFixture) readDest(t *testing.T, rel string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dst, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return data
}

func gunzip(t *testing.T, data []byte) string {
	t.Helper()
	zr, err := gzip.NewReader(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("gunzip: %v", err)
	}
	return string(out)
}

func TestStageService_FirstRunCopiesEverything(t *testing.T) {
	f := newStageFixture(t, basicManifest)
	testutil.CreateTestFile(t, f.src, "index.html", []byte("<html></html>"))
	testutil.CreateTestFile(t, f.src, "app.js", []byte("console.log('hi')"))

	svc := NewStageService(nil)
	result, err := svc.Run(context.Background(), f.manifest, StageOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.FilesCopied != 2 || result.FilesSkipped != 0 || result.FilesFailed != 0 {
		t.Errorf("result = %+v", result)
	}
	if result.Status() != domain.StatusSuccess {
		t.Errorf("status = %s", result.Status())
	}
	if got := string(f.readDest(t, "ap/index.html")); got != "<html></html>" {
		t.Errorf("index.html = %q", got)
	}
	if got := gunzip(t, f.readDest(t, "js/app.js.gz")); got != "console.log('hi')" {
		t.Errorf("app.js.gz = %q", got)
	}
	if _, err := os.Stat(filepath.Join(f.dst, "js", "app.js")); !os.IsNotExist(err) {
		t.Error("uncompressed app.js should not be written")
	}
	if info, err := os.Stat(filepath.Join(f.dst, "ap")); err != nil || !info.IsDir() {
		t.Error("dirs entry should be created")
	}

	m, err := manifest.Load(f.manifest)
	if err != nil {
		t.Fatalf("reload manifest: %v", err)
	}
	if m.LastRun() == 0 {
		t.Error("run time should be recorded")
	}
	if m.Recorded("index.html") == 0 || m.Recorded("app.js") == 0 {
		t.Errorf("mtimes not recorded: %v", m.MTime)
	}
	if _, err := os.Stat(lock.PathFor(f.manifest)); !os.IsNotExist(err) {
		t.Error("lock file should be removed after the run")
	}
}

func TestStageService_SecondRunLeavesDestinationAlone(t *testing.T) {
	f := newStageFixture(t, basicManifest)
	testutil.CreateTestFile(t, f.src, "index.html", []byte("v1"))
	testutil.CreateTestFile(t, f.src, "app.js", []byte("v1"))

	svc := NewStageService(nil)
	ctx := context.Background()
	if _, err := svc.Run(ctx, f.manifest, StageOptions{}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// A marker in the destination survives only if nothing is recopied
	testutil.CreateTestFile(t, filepath.Join(f.dst, "ap"), "index.html", []byte("marker"))

	result, err := svc.Run(ctx, f.manifest, StageOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.FilesCopied != 0 || result.FilesSkipped != 2 {
		t.Errorf("result = %+v", result)
	}
	if got := string(f.readDest(t, "ap/index.html")); got != "marker" {
		t.Errorf("destination was rewritten: %q", got)
	}
}

func TestStageService_SourceNewerIsRecopied(t *testing.T) {
	f := newStageFixture(t, basicManifest)
	index := testutil.CreateTestFile(t, f.src, "index.html", []byte("v1"))
	testutil.CreateTestFile(t, f.src, "app.js", []byte("v1"))

	svc := NewStageService(nil)
	ctx := context.Background()
	if _, err := svc.Run(ctx, f.manifest, StageOptions{}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	if err := os.WriteFile(index, []byte("v2"), 0644); err != nil {
		t.Fatal(err)
	}
	testutil.SetModTime(t, index, time.Now().Add(time.Hour))

	result, err := svc.Run(ctx, f.manifest, StageOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.FilesCopied != 1 || result.FilesSkipped != 1 {
		t.Errorf("result = %+v", result)
	}
	if got := string(f.readDest(t, "ap/index.html")); got != "v2" {
		t.Errorf("index.html = %q", got)
	}
}

func TestStageService_EditedManifestRecopies(t *testing.T) {
	f := newStageFixture(t, basicManifest)
	testutil.CreateTestFile(t, f.src, "index.html", []byte("v1"))
	testutil.CreateTestFile(t, f.src, "app.js", []byte("v1"))

	svc := NewStageService(nil)
	ctx := context.Background()
	if _, err := svc.Run(ctx, f.manifest, StageOptions{}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	testutil.SetModTime(t, f.manifest, time.Now().Add(time.Minute))

	result, err := svc.Run(ctx, f.manifest, StageOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.FilesCopied != 2 {
		t.Errorf("edited manifest should recopy everything, got %+v", result)
	}
}

func TestStageService_ForceRecopies(t *testing.T) {
	f := newStageFixture(t, basicManifest)
	testutil.CreateTestFile(t, f.src, "index.html", []byte("v1"))
	testutil.CreateTestFile(t, f.src, "app.js", []byte("v1"))

	svc := NewStageService(nil)
	ctx := context.Background()
	if _, err := svc.Run(ctx, f.manifest, StageOptions{}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	result, err := svc.Run(ctx, f.manifest, StageOptions{Force: true})
	if err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if result.FilesCopied != 2 || result.FilesSkipped != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestStageService_MissingSourceIsPartial(t *testing.T) {
	f := newStageFixture(t, basicManifest)
	testutil.CreateTestFile(t, f.src, "index.html", []byte("v1"))

	svc := NewStageService(nil)
	result, err := svc.Run(context.Background(), f.manifest, StageOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.FilesCopied != 1 || result.FilesFailed != 1 {
		t.Errorf("result = %+v", result)
	}
	if result.Status() != domain.StatusPartial {
		t.Errorf("status = %s", result.Status())
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0].Error(), "app.js") {
		t.Errorf("errors = %v", result.Errors)
	}

	m, err := manifest.Load(f.manifest)
	if err != nil {
		t.Fatal(err)
	}
	if m.Recorded("app.js") != 0 {
		t.Error("failed file should not be recorded")
	}
}

func TestStageService_Errors(t *testing.T) {
	t.Run("missing manifest", func(t *testing.T) {
		_, err := NewStageService(nil).Run(context.Background(), filepath.Join(t.TempDir(), "nope.json"), StageOptions{})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("invalid manifest", func(t *testing.T) {
		f := newStageFixture(t, `{"srcdir": "src", "files": [`)
		_, err := NewStageService(nil).Run(context.Background(), f.manifest, StageOptions{})
		if !errors.Is(err, domain.ErrManifestInvalid) {
			t.Errorf("err = %v, want ErrManifestInvalid", err)
		}
	})

	t.Run("manifest locked", func(t *testing.T) {
		f := newStageFixture(t, basicManifest)
		held := lock.New(f.manifest)
		if err := held.Acquire(); err != nil {
			t.Fatal(err)
		}
		defer held.Release()

		_, err := NewStageService(nil).Run(context.Background(), f.manifest, StageOptions{})
		if !errors.Is(err, domain.ErrStageInProgress) {
			t.Errorf("err = %v, want ErrStageInProgress", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		f := newStageFixture(t, basicManifest)
		testutil.CreateTestFile(t, f.src, "index.html", []byte("v1"))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewStageService(nil).Run(ctx, f.manifest, StageOptions{})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestStageService_RecordsHistory(t *testing.T) {
	f := newStageFixture(t, basicManifest)
	testutil.CreateTestFile(t, f.src, "index.html", []byte("v1"))

	history, err := state.Open(t.TempDir())
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	defer history.Close()

	svc := NewStageService(history)
	ctx := context.Background()
	if _, err := svc.Run(ctx, f.manifest, StageOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	records, err := history.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.Status != domain.StatusPartial {
		t.Errorf("status = %s, want partial", rec.Status)
	}
	if rec.FilesCopied != 1 || rec.FilesFailed != 1 {
		t.Errorf("record = %+v", rec)
	}
	if !filepath.IsAbs(rec.Manifest) {
		t.Errorf("manifest path should be absolute: %s", rec.Manifest)
	}
	if rec.Error == "" {
		t.Error("partial run should carry an error summary")
	}

	// An aborted run is still recorded
	if err := os.Remove(f.manifest); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Run(ctx, f.manifest, StageOptions{}); err == nil {
		t.Fatal("expected error for removed manifest")
	}
	records, err = history.List(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].Status != domain.StatusFailed {
		t.Errorf("records = %+v", records)
	}
}

func TestStageService_ReportsProgress(t *testing.T) {
	f := newStageFixture(t, basicManifest)
	testutil.CreateTestFile(t, f.src, "index.html", []byte("0123456789"))
	testutil.CreateTestFile(t, f.src, "app.js", []byte("abc"))

	var updates []progress.Update
	svc := NewStageService(nil)
	svc.SetProgressReporter(progress.NewCallbackReporter(func(u progress.Update) {
		updates = append(updates, u)
	}))

	if _, err := svc.Run(context.Background(), f.manifest, StageOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(updates) == 0 {
		t.Fatal("no progress updates")
	}
	last := updates[len(updates)-1]
	if last.Type != progress.UpdateFinish {
		t.Errorf("last update = %s, want finish", last.Type)
	}
	if last.FilesCompleted != 2 || last.FilesTotal != 2 {
		t.Errorf("last = %+v", last)
	}
	if last.BytesCompleted != 13 {
		t.Errorf("bytes done = %d, want 13", last.BytesCompleted)
	}
}
