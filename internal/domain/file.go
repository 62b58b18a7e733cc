package domain

import "time"

// FileType represents the type of a filesystem entry
type FileType int

const (
	FileTypeRegular FileType = iota
	FileTypeDirectory
	FileTypeOther
)

// FileInfo represents metadata about a file or directory
type FileInfo struct {
	// Path is the slash-separated path relative to the adapter root
	Path string

	// Type indicates if this is a file, directory, or something else
	// (device node, socket, fifo)
	Type FileType

	// Size in bytes as reported by the filesystem
	Size int64

	// ModTime is the last modification time
	ModTime time.Time
}

// IsDir returns true if this is a directory
func (f FileInfo) IsDir() bool {
	return f.Type == FileTypeDirectory
}

// IsFile returns true if this is a regular file
func (f FileInfo) IsFile() bool {
	return f.Type == FileTypeRegular
}

// EntryKind is the file-manager name for an entry type
type EntryKind string

const (
	EntryFile   EntryKind = "file"
	EntryFolder EntryKind = "folder"
)

// DirectoryEntry is one row of a file-manager listing, in the shape the
// device firmware returns from /edit?list=
type DirectoryEntry struct {
	Name string    `json:"name"`
	Kind EntryKind `json:"type"`
	Size int64     `json:"size"`

	// Date is the modification time in epoch milliseconds, truncated to
	// whole seconds
	Date int64 `json:"date"`
}

// NewDirectoryEntry converts adapter metadata into a listing entry
func NewDirectoryEntry(name string, info FileInfo) DirectoryEntry {
	kind := EntryFile
	if info.IsDir() {
		kind = EntryFolder
	}
	return DirectoryEntry{
		Name: name,
		Kind: kind,
		Size: info.Size,
		Date: info.ModTime.Unix() * 1000,
	}
}
