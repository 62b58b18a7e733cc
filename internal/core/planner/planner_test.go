package planner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Ning0612/devmanager/internal/adapter/local"
	"github.com/Ning0612/devmanager/internal/core/diff"
	"github.com/Ning0612/devmanager/internal/domain"
	"github.com/Ning0612/devmanager/internal/manifest"
	"github.com/Ning0612/devmanager/internal/testutil"
)

type fixture struct {
	manifest *manifest.Manifest
	source   *local.Adapter
	srcDir   string
}

// newFixture writes two sources and a manifest whose file mtime equals
// its recorded "this" time
func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	srcDir := filepath.Join(root, "build")

	testutil.CreateTestFile(t, srcDir, "index.html", []byte("<html></html>"))
	testutil.CreateTestFile(t, srcDir, "js/app.js", []byte("console.log(1)"))

	m, err := manifest.Parse([]byte(`{
		"srcdir": "build",
		"dstdir": "dist",
		"dirs": ["js"],
		"files": [["index.html", "index.html", true], ["js/app.js", "js/app.js", false]]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	m.SetPath(filepath.Join(root, "movefile.json"))

	src, err := local.New(srcDir)
	if err != nil {
		t.Fatal(err)
	}

	return &fixture{manifest: m, source: src, srcDir: srcDir}
}

// markProcessed records every source and stamps the manifest as freshly
// written
func (f *fixture) markProcessed(t *testing.T) {
	t.Helper()
	for _, e := range f.manifest.Files {
		info, err := os.Stat(filepath.Join(f.srcDir, e.Source))
		if err != nil {
			t.Fatal(err)
		}
		f.manifest.Record(e.Source, diff.Seconds(info.ModTime()))
	}
	now := time.Now()
	f.manifest.MarkRun(diff.Seconds(now))
	if err := f.manifest.Save(); err != nil {
		t.Fatal(err)
	}
	testutil.SetModTime(t, f.manifest.Path(), now)
}

func TestPlan_FirstRunCopiesEverything(t *testing.T) {
	f := newFixture(t)
	if err := f.manifest.Save(); err != nil {
		t.Fatal(err)
	}

	plan, err := NewDefaultPlanner(false).Plan(context.Background(), f.manifest, f.source)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if len(plan.Actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(plan.Actions))
	}
	if plan.Actions[0].Type != domain.ActionMkdir || plan.Actions[0].Dest != "js" {
		t.Errorf("expected mkdir js first, got %+v", plan.Actions[0])
	}

	html := plan.Actions[1]
	if html.Type != domain.ActionCopy || html.Dest != "index.html.gz" || !html.Compress {
		t.Errorf("unexpected html action: %+v", html)
	}
	if html.Reason != diff.ManifestEdited.String() {
		t.Errorf("unprocessed manifest should force copies, reason %q", html.Reason)
	}

	if plan.Stats.DirsToCreate != 1 || plan.Stats.FilesToCopy != 2 || plan.Stats.FilesToSkip != 0 {
		t.Errorf("unexpected stats: %+v", plan.Stats)
	}
	if plan.Stats.BytesToCopy != int64(len("<html></html>")+len("console.log(1)")) {
		t.Errorf("unexpected BytesToCopy: %d", plan.Stats.BytesToCopy)
	}
}

func TestPlan_SkipsUnchanged(t *testing.T) {
	f := newFixture(t)
	f.markProcessed(t)

	plan, err := NewDefaultPlanner(false).Plan(context.Background(), f.manifest, f.source)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	if plan.Stats.FilesToSkip != 2 || plan.Stats.FilesToCopy != 0 {
		t.Errorf("expected all files skipped, got %+v", plan.Stats)
	}
}

func TestPlan_CopiesNewerSource(t *testing.T) {
	f := newFixture(t)
	f.markProcessed(t)

	testutil.SetModTime(t, filepath.Join(f.srcDir, "js", "app.js"), time.Now().Add(time.Hour))

	plan, err := NewDefaultPlanner(false).Plan(context.Background(), f.manifest, f.source)
	if err != nil {
		t.Fatal(err)
	}

	if plan.Actions[1].Type != domain.ActionSkip {
		t.Errorf("index.html should be skipped, got %v", plan.Actions[1].Type)
	}
	if plan.Actions[2].Type != domain.ActionCopy || plan.Actions[2].Reason != diff.SourceNewer.String() {
		t.Errorf("app.js should be copied as newer, got %+v", plan.Actions[2])
	}
}

func TestPlan_Force(t *testing.T) {
	f := newFixture(t)
	f.markProcessed(t)

	plan, err := NewDefaultPlanner(true).Plan(context.Background(), f.manifest, f.source)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Stats.FilesToCopy != 2 {
		t.Errorf("force should copy every file, got %+v", plan.Stats)
	}
}

func TestPlan_MissingSource(t *testing.T) {
	f := newFixture(t)
	f.manifest.Files = append(f.manifest.Files,
		manifest.Entry{Source: "gone.css", Dest: "gone.css"},
		manifest.Entry{Source: "js", Dest: "js-dir"},
	)
	if err := f.manifest.Save(); err != nil {
		t.Fatal(err)
	}

	plan, err := NewDefaultPlanner(false).Plan(context.Background(), f.manifest, f.source)
	if err != nil {
		t.Fatal(err)
	}

	if plan.Stats.FilesMissing != 2 {
		t.Errorf("expected 2 failed entries, got %+v", plan.Stats)
	}
	last := plan.Actions[len(plan.Actions)-1]
	if last.Type != domain.ActionFail || last.Reason == "" {
		t.Errorf("directory source should fail, got %+v", last)
	}
}

func TestPlan_ManifestNotOnDisk(t *testing.T) {
	f := newFixture(t)

	if _, err := NewDefaultPlanner(false).Plan(context.Background(), f.manifest, f.source); err == nil {
		t.Error("expected error when the manifest file does not exist")
	}
}
