package adapter

import (
	"context"
	"io"

	"github.com/Ning0612/devmanager/internal/domain"
)

// Adapter defines the filesystem operations the server and the staging
// tool need. Implementations return domain-level errors so callers can map
// them to HTTP statuses or per-file failures uniformly.
//
// Paths are slash-separated and relative to the adapter root. Leading and
// trailing slashes are ignored. Paths are NOT confined to the root: ".."
// segments resolve outside it, matching the device firmware this tool
// stands in for. Never expose an adapter to untrusted clients.
type Adapter interface {
	// List returns the immediate children of path, sorted by name
	// Returns domain.ErrNotFound if path doesn't exist
	// Returns domain.ErrNotDirectory if path is a file
	List(ctx context.Context, path string) ([]domain.FileInfo, error)

	// Read opens a file for reading
	// Caller is responsible for closing the reader
	// Returns domain.ErrNotFound if file doesn't exist
	// Returns domain.ErrNotFile if path is a directory
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or overwrites a file atomically
	// Parent directories are created automatically
	Write(ctx context.Context, path string, r io.Reader) error

	// Stat returns metadata for a single path, following symlinks
	// Returns domain.ErrNotFound if path doesn't exist or is a broken link
	Stat(ctx context.Context, path string) (domain.FileInfo, error)

	// Mkdir creates a directory and any necessary parents
	// No error if directory already exists
	Mkdir(ctx context.Context, path string) error

	// Exists checks if a path exists
	Exists(ctx context.Context, path string) (bool, error)

	// Root returns the absolute root directory
	Root() string

	// Close releases any resources held by the adapter
	Close() error
}
