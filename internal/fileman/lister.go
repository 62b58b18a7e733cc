// Package fileman implements the device file-manager surface: one-level
// directory listings and the HTML template rendered for directories that
// have no index page.
package fileman

import (
	"context"
	"path"

	"github.com/Ning0612/devmanager/internal/adapter"
	"github.com/Ning0612/devmanager/internal/domain"
)

// Lister lists directories under an adapter root
type Lister struct {
	fs adapter.Adapter
}

// NewLister creates a lister over fs
func NewLister(fs adapter.Adapter) *Lister {
	return &Lister{fs: fs}
}

// List returns one entry per immediate child of dir, sorted by name.
// Returns domain.ErrNotFound if dir is missing and domain.ErrNotDirectory
// if it is a file.
func (l *Lister) List(ctx context.Context, dir string) ([]domain.DirectoryEntry, error) {
	items, err := l.fs.List(ctx, dir)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.DirectoryEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, domain.NewDirectoryEntry(path.Base(item.Path), item))
	}
	return entries, nil
}
