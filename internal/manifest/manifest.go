// Package manifest reads and writes the staging manifest (movefile.json).
//
// The manifest doubles as the change cache: its "mtime" object maps each
// source path to the modification time copied last, and the reserved key
// "this" holds the time the manifest itself was last processed. All times
// are float epoch seconds.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Ning0612/devmanager/internal/core/diff"
	"github.com/Ning0612/devmanager/internal/domain"
)

// ThisKey is the mtime entry holding the manifest's own processed time
const ThisKey = "this"

// Entry is one file to stage. It is encoded as a [src, dst, compress]
// array.
type Entry struct {
	Source   string
	Dest     string
	Compress bool
}

// MarshalJSON encodes the entry as a 3-element array
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Source, e.Dest, e.Compress})
}

// UnmarshalJSON decodes a [src, dst, compress] array
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("file entry must be an array: %w", err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("file entry must have 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &e.Source); err != nil {
		return fmt.Errorf("file entry source: %w", err)
	}
	if err := json.Unmarshal(raw[1], &e.Dest); err != nil {
		return fmt.Errorf("file entry destination: %w", err)
	}
	if err := json.Unmarshal(raw[2], &e.Compress); err != nil {
		return fmt.Errorf("file entry compress flag: %w", err)
	}
	return nil
}

// Target returns the destination path, with ".gz" appended when the entry
// is compressed
func (e Entry) Target() string {
	if e.Compress {
		return e.Dest + ".gz"
	}
	return e.Dest
}

// Manifest is a loaded staging manifest
type Manifest struct {
	SrcDir string             `json:"srcdir"`
	DstDir string             `json:"dstdir"`
	Dirs   []string           `json:"dirs"`
	Files  []Entry            `json:"files"`
	MTime  map[string]float64 `json:"mtime"`

	// extra holds top-level keys this package does not model, so a
	// rewrite keeps them
	extra map[string]json.RawMessage

	path string
}

// knownKeys are the top-level keys decoded into Manifest fields
var knownKeys = []string{"srcdir", "dstdir", "dirs", "files", "mtime"}

// Load reads the manifest at path
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("manifest %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	m.path = abs
	return m, nil
}

// Parse decodes and validates manifest JSON. The result has no backing
// file until SetPath is called.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrManifestInvalid, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.MTime == nil {
		m.MTime = make(map[string]float64)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrManifestInvalid, err)
	}
	for _, k := range knownKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		m.extra = raw
	}
	return &m, nil
}

// Validate checks required fields
func (m *Manifest) Validate() error {
	if m.SrcDir == "" {
		return fmt.Errorf("%w: srcdir is required", domain.ErrManifestInvalid)
	}
	if m.DstDir == "" {
		return fmt.Errorf("%w: dstdir is required", domain.ErrManifestInvalid)
	}
	for i, f := range m.Files {
		if f.Source == "" || f.Dest == "" {
			return fmt.Errorf("%w: files[%d] needs a source and a destination", domain.ErrManifestInvalid, i)
		}
	}
	return nil
}

// Path returns the absolute manifest path
func (m *Manifest) Path() string {
	return m.path
}

// SetPath sets the file Save writes to
func (m *Manifest) SetPath(path string) {
	m.path = path
}

// resolve joins a relative directory onto the manifest's directory
func (m *Manifest) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(filepath.Dir(m.path), filepath.FromSlash(dir))
}

// SourceRoot returns srcdir resolved against the manifest directory
func (m *Manifest) SourceRoot() string {
	return m.resolve(m.SrcDir)
}

// DestRoot returns dstdir resolved against the manifest directory
func (m *Manifest) DestRoot() string {
	return m.resolve(m.DstDir)
}

// LastRun returns the recorded processing time, or 0
func (m *Manifest) LastRun() float64 {
	return m.MTime[ThisKey]
}

// Recorded returns the source mtime copied last, or 0
func (m *Manifest) Recorded(source string) float64 {
	return m.MTime[source]
}

// Record stores the source mtime just copied
func (m *Manifest) Record(source string, mtime float64) {
	m.MTime[source] = mtime
}

// MarkRun stores the processing time
func (m *Manifest) MarkRun(now float64) {
	m.MTime[ThisKey] = now
}

// FileModTime returns the manifest file's own mtime in epoch seconds
func (m *Manifest) FileModTime() (float64, error) {
	info, err := os.Stat(m.path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat manifest: %w", err)
	}
	return diff.Seconds(info.ModTime()), nil
}

// Marshal encodes the manifest with a 4-space indent. Unmodelled keys
// follow the known ones, sorted by name.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	if len(m.extra) == 0 {
		return buf.Bytes(), nil
	}

	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n}\n"))
	keys := make([]string, 0, len(m.extra))
	for k := range m.extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		var value bytes.Buffer
		if err := json.Indent(&value, m.extra[k], "    ", "    "); err != nil {
			return nil, err
		}
		out = append(out, ",\n    "...)
		out = append(out, name...)
		out = append(out, ": "...)
		out = append(out, value.Bytes()...)
	}
	return append(out, "\n}\n"...), nil
}

// Save rewrites the manifest in place through a temp file and rename
func (m *Manifest) Save() error {
	if m.path == "" {
		return fmt.Errorf("%w: no path to save to", domain.ErrManifestInvalid)
	}

	data, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}

	return nil
}
