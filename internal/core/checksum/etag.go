package checksum

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"
)

// ETagCache remembers content digests by path, size and modification time
// so an unchanged asset is hashed once per process
type ETagCache struct {
	calc *Calculator

	mu      sync.Mutex
	entries map[string]etagEntry
}

type etagEntry struct {
	size    int64
	modTime time.Time
	etag    string
}

// NewETagCache creates an empty cache
func NewETagCache(calc *Calculator) *ETagCache {
	if calc == nil {
		calc = NewDefaultCalculator()
	}
	return &ETagCache{calc: calc, entries: make(map[string]etagEntry)}
}

// ETag returns the quoted strong ETag for the file at path. open is only
// called on a cache miss.
func (c *ETagCache) ETag(ctx context.Context, path string, size int64, modTime time.Time, open func() (io.ReadCloser, error)) (string, error) {
	c.mu.Lock()
	e, ok := c.entries[path]
	c.mu.Unlock()
	if ok && e.size == size && e.modTime.Equal(modTime) {
		return e.etag, nil
	}

	rc, err := open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	sum, err := c.calc.Sum(ctx, rc)
	if err != nil {
		return "", err
	}

	etag := `"` + sum + `"`
	c.mu.Lock()
	c.entries[path] = etagEntry{size: size, modTime: modTime, etag: etag}
	c.mu.Unlock()

	return etag, nil
}

// Len returns the number of cached digests
func (c *ETagCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Matches reports whether an If-None-Match header value names etag
func Matches(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" || etag == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
