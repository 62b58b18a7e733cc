package fileman

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/Ning0612/devmanager/internal/adapter"
	"github.com/Ning0612/devmanager/internal/domain"
	"github.com/Ning0612/devmanager/internal/logger"
)

// RootPlaceholder is replaced by the request path when rendering
const RootPlaceholder = "%ROOT%"

// ErrNoTemplate indicates no file-manager template exists under the root
var ErrNoTemplate = fmt.Errorf("%w: no file-manager template", domain.ErrNotFound)

// Template finds, caches and renders the file-manager page. The lookup
// runs once per Template, on first use; one Template belongs to one
// server instance.
type Template struct {
	fs adapter.Adapter

	once   sync.Once
	source string
	text   string
	err    error
}

// NewTemplate creates a lazily loaded template over fs
func NewTemplate(fs adapter.Adapter) *Template {
	return &Template{fs: fs}
}

// Source returns the root-relative path of the template in use, loading it
// if needed. ok is false if no template was found.
func (t *Template) Source(ctx context.Context) (string, bool) {
	t.load(ctx)
	return t.source, t.err == nil
}

// Render returns the template with every RootPlaceholder replaced by
// requestPath. Returns ErrNoTemplate if no template exists.
func (t *Template) Render(ctx context.Context, requestPath string) (string, error) {
	t.load(ctx)
	if t.err != nil {
		return "", t.err
	}
	return strings.ReplaceAll(t.text, RootPlaceholder, requestPath), nil
}

func (t *Template) load(ctx context.Context) {
	t.once.Do(func() {
		// The cached result must not depend on the first caller's cancellation
		ctx := context.WithoutCancel(ctx)

		source, err := findTemplate(ctx, t.fs)
		if err != nil {
			t.err = err
			logger.Get().Warn("file-manager template unavailable", "root", t.fs.Root(), "error", err)
			return
		}

		text, err := readTemplate(ctx, t.fs, source)
		if err != nil {
			t.err = fmt.Errorf("%w: %s: %v", ErrNoTemplate, source, err)
			logger.Get().Error("failed to read file-manager template", "template", source, "error", err)
			return
		}

		t.source = source
		t.text = text
		logger.Get().Info("using file-manager template", "template", source)
	})
}

// findTemplate returns the first match of **/fileman*/index*.html*, or
// failing that the first match of **/fileman*.html*, in lexical walk order
func findTemplate(ctx context.Context, fs adapter.Adapter) (string, error) {
	files, err := listAllFiles(ctx, fs, "")
	if err != nil {
		return "", err
	}

	for _, f := range files {
		dir := path.Base(path.Dir(f))
		if path.Dir(f) != "." && matchGlob("fileman*", dir) && matchGlob("index*.html*", path.Base(f)) {
			return f, nil
		}
	}
	for _, f := range files {
		if matchGlob("fileman*.html*", path.Base(f)) {
			return f, nil
		}
	}
	return "", ErrNoTemplate
}

func readTemplate(ctx context.Context, fs adapter.Adapter, source string) (string, error) {
	rc, err := fs.Read(ctx, source)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var r io.Reader = rc
	if strings.HasSuffix(source, ".gz") {
		zr, err := gzip.NewReader(rc)
		if err != nil {
			return "", err
		}
		defer zr.Close()
		r = zr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// listAllFiles recursively lists regular files, skipping hidden entries
// the same way a shell ** glob does
func listAllFiles(ctx context.Context, fs adapter.Adapter, prefix string) ([]string, error) {
	var all []string

	items, err := fs.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if strings.HasPrefix(path.Base(item.Path), ".") {
			continue
		}

		if item.IsDir() {
			sub, err := listAllFiles(ctx, fs, item.Path)
			if err != nil && !errors.Is(err, domain.ErrPermissionDenied) {
				return nil, err
			}
			all = append(all, sub...)
		} else if item.IsFile() {
			all = append(all, item.Path)
		}
	}

	return all, nil
}

func matchGlob(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
