package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Ning0612/devmanager/internal/domain"
)

// Adapter implements the adapter.Adapter interface for local filesystem
type Adapter struct {
	root string
}

// New creates a new local filesystem adapter
// root must be an existing directory
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}

	return &Adapter{root: absRoot}, nil
}

// Clean strips leading and trailing slashes (either separator) the way the
// device firmware normalizes request paths
func Clean(relPath string) string {
	return strings.Trim(relPath, `/\`)
}

// resolvePath joins a relative path onto root. There is deliberately no
// check that the result stays inside root; see adapter.Adapter.
func (a *Adapter) resolvePath(relPath string) string {
	relPath = Clean(relPath)
	if relPath == "" || relPath == "." {
		return a.root
	}
	return filepath.Join(a.root, filepath.FromSlash(relPath))
}

// List returns the immediate children of path
func (a *Adapter) List(ctx context.Context, path string) ([]domain.FileInfo, error) {
	fullPath := a.resolvePath(path)

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, a.mapError(err)
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}

	// os.ReadDir returns entries sorted by filename
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, a.mapError(err)
	}

	result := make([]domain.FileInfo, 0, len(entries))
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		entryPath := joinRel(path, entry.Name())

		// Follow symlinks like the firmware's stat() does; fall back to
		// the link itself when the target is gone
		info, err := os.Stat(filepath.Join(fullPath, entry.Name()))
		if err != nil {
			info, err = entry.Info()
			if err != nil {
				continue // Skip entries we can't read
			}
		}

		result = append(result, a.fileInfoFromOS(entryPath, info))
	}

	return result, nil
}

// Read opens a file for reading
func (a *Adapter) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath := a.resolvePath(path)

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, a.mapError(err)
	}
	if info.IsDir() {
		return nil, domain.ErrNotFile
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, a.mapError(err)
	}

	return file, nil
}

// Write creates or overwrites a file
func (a *Adapter) Write(ctx context.Context, path string, r io.Reader) error {
	fullPath := a.resolvePath(path)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return a.mapError(err)
	}

	// Write to temp file first for atomic operation
	tempPath := fullPath + ".devmanager.tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return a.mapError(err)
	}

	_, copyErr := io.Copy(file, r)
	closeErr := file.Close()

	if copyErr != nil {
		os.Remove(tempPath)
		return copyErr
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)
		return a.mapError(err)
	}

	return nil
}

// Stat returns metadata for a single path
func (a *Adapter) Stat(ctx context.Context, path string) (domain.FileInfo, error) {
	info, err := os.Stat(a.resolvePath(path))
	if err != nil {
		return domain.FileInfo{}, a.mapError(err)
	}

	return a.fileInfoFromOS(Clean(path), info), nil
}

// Mkdir creates a directory and any necessary parents
func (a *Adapter) Mkdir(ctx context.Context, path string) error {
	return a.mapError(os.MkdirAll(a.resolvePath(path), 0755))
}

// Exists checks if a path exists
func (a *Adapter) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(a.resolvePath(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR) {
		return false, nil
	}
	return false, err
}

// Close releases any resources (no-op for local adapter)
func (a *Adapter) Close() error {
	return nil
}

// Root returns the root path of this adapter
func (a *Adapter) Root() string {
	return a.root
}

// Abs returns the absolute filesystem path for a relative path
func (a *Adapter) Abs(path string) string {
	return a.resolvePath(path)
}

// fileInfoFromOS converts os.FileInfo to domain.FileInfo
func (a *Adapter) fileInfoFromOS(path string, info os.FileInfo) domain.FileInfo {
	fileType := domain.FileTypeOther
	if info.IsDir() {
		fileType = domain.FileTypeDirectory
	} else if info.Mode().IsRegular() {
		fileType = domain.FileTypeRegular
	}

	return domain.FileInfo{
		Path:    filepath.ToSlash(path),
		Type:    fileType,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// mapError converts OS errors to domain errors
func (a *Adapter) mapError(err error) error {
	if err == nil {
		return nil
	}

	if os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR) {
		return domain.ErrNotFound
	}
	if os.IsPermission(err) {
		return domain.ErrPermissionDenied
	}
	if os.IsExist(err) {
		return domain.ErrAlreadyExists
	}

	return err
}

func joinRel(dir, name string) string {
	dir = Clean(filepath.ToSlash(dir))
	if dir == "" || dir == "." {
		return name
	}
	return dir + "/" + name
}
