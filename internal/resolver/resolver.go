// Package resolver decides how a static request is satisfied: a file, its
// gzip-compressed sibling, a directory index, the file-manager page or a
// not-found.
package resolver

import (
	"context"
	"errors"
	"path"

	"github.com/Ning0612/devmanager/internal/adapter"
	"github.com/Ning0612/devmanager/internal/adapter/local"
	"github.com/Ning0612/devmanager/internal/domain"
)

// Kind identifies the outcome variant
type Kind int

const (
	ServeFile Kind = iota
	ServeCompressed
	RedirectTo
	DirectoryListing
	NotFound
	Forbidden
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case ServeFile:
		return "file"
	case ServeCompressed:
		return "compressed"
	case RedirectTo:
		return "redirect"
	case DirectoryListing:
		return "listing"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Reasons carried by NotFound and Forbidden outcomes
const (
	ReasonFileNotFound     = "File not found"
	ReasonPathNotFound     = "Path not found"
	ReasonCannotServeDir   = "Cannot serve directory"
	ReasonCannotOpenDir    = "Cannot open directory"
	ReasonPermissionDenied = "Permission denied"
)

// IndexFile is the directory index looked up when AutoIndex is set
const IndexFile = "index.html"

// Outcome is the result of resolving a request path
type Outcome struct {
	Kind Kind

	// Path is the root-relative file for ServeFile and ServeCompressed, or
	// the absolute URL path for RedirectTo
	Path string

	// Body is the rendered page for DirectoryListing
	Body string

	// Reason explains NotFound and Forbidden
	Reason string
}

// Options controls directory handling
type Options struct {
	// AutoIndex serves (or redirects to) index.html inside directories
	AutoIndex bool

	// AllowListing falls back to the file-manager page for directories
	AllowListing bool

	// RedirectIndex redirects to the index instead of serving it in place
	RedirectIndex bool
}

// Renderer renders the file-manager page for a request path
type Renderer interface {
	Render(ctx context.Context, requestPath string) (string, error)
}

// Resolver resolves request paths against an adapter root
type Resolver struct {
	fs      adapter.Adapter
	listing Renderer
}

// New creates a resolver. listing may be nil, in which case directory
// listings always resolve to NotFound.
func New(fs adapter.Adapter, listing Renderer) *Resolver {
	return &Resolver{fs: fs, listing: listing}
}

// Resolve classifies requestPath. Checks run in order and the first match
// wins; the ".gz" sibling is only considered once the path itself is known
// not to exist.
func (r *Resolver) Resolve(ctx context.Context, requestPath string, opts Options) Outcome {
	name := local.Clean(requestPath)

	info, err := r.fs.Stat(ctx, name)
	switch {
	case err == nil:
		// handled below
	case errors.Is(err, domain.ErrNotFound):
		return r.resolveCompressed(ctx, name)
	case errors.Is(err, domain.ErrPermissionDenied):
		return Outcome{Kind: Forbidden, Reason: ReasonPermissionDenied}
	default:
		return Outcome{Kind: NotFound, Reason: err.Error()}
	}

	if info.IsFile() {
		return Outcome{Kind: ServeFile, Path: name}
	}
	if !info.IsDir() {
		return Outcome{Kind: NotFound, Reason: ReasonPathNotFound}
	}

	if opts.AutoIndex {
		index := path.Join(name, IndexFile)
		if ok, _ := r.fs.Exists(ctx, index); ok {
			if opts.RedirectIndex {
				return Outcome{Kind: RedirectTo, Path: "/" + index}
			}
			return Outcome{Kind: ServeFile, Path: index}
		}
	}

	if !opts.AllowListing {
		return Outcome{Kind: NotFound, Reason: ReasonCannotServeDir}
	}
	if r.listing == nil {
		return Outcome{Kind: NotFound, Reason: ReasonCannotOpenDir}
	}

	body, err := r.listing.Render(ctx, requestPath)
	if err != nil {
		return Outcome{Kind: NotFound, Reason: ReasonCannotOpenDir}
	}
	return Outcome{Kind: DirectoryListing, Body: body}
}

func (r *Resolver) resolveCompressed(ctx context.Context, name string) Outcome {
	if name == "" {
		return Outcome{Kind: NotFound, Reason: ReasonFileNotFound}
	}

	gz, err := r.fs.Stat(ctx, name+".gz")
	if err == nil && gz.IsFile() {
		return Outcome{Kind: ServeCompressed, Path: name + ".gz"}
	}
	return Outcome{Kind: NotFound, Reason: ReasonFileNotFound}
}
