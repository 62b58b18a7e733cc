package checksum

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
)

// Options configures the checksum calculator
type Options struct {
	// MaxSize: larger inputs are rejected (0 = unlimited)
	MaxSize int64

	// BufferSize: size of buffer for streaming reads
	BufferSize int
}

// DefaultOptions returns the options used for ETags. Web UI bundles are
// small; anything over 64MB is served without an ETag.
func DefaultOptions() Options {
	return Options{
		MaxSize:    64 * 1024 * 1024,
		BufferSize: 32 * 1024,
	}
}

// ErrTooLarge is returned when the input exceeds Options.MaxSize
var ErrTooLarge = fmt.Errorf("input exceeds checksum size limit")

// Calculator computes MD5 digests of streamed content
type Calculator struct {
	opts Options
}

// NewCalculator creates a new calculator with the given options
func NewCalculator(opts Options) *Calculator {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultOptions().BufferSize
	}
	return &Calculator{opts: opts}
}

// NewDefaultCalculator creates a calculator with default options
func NewDefaultCalculator() *Calculator {
	return NewCalculator(DefaultOptions())
}

// Sum returns the hex MD5 of reader. The context is checked between
// chunks.
func (c *Calculator) Sum(ctx context.Context, reader io.Reader) (string, error) {
	h := md5.New()

	src := reader
	if c.opts.MaxSize > 0 {
		src = io.LimitReader(reader, c.opts.MaxSize+1)
	}

	buffer := make([]byte, c.opts.BufferSize)
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := src.Read(buffer)
		if n > 0 {
			total += int64(n)
			if c.opts.MaxSize > 0 && total > c.opts.MaxSize {
				return "", fmt.Errorf("%w (%d bytes)", ErrTooLarge, c.opts.MaxSize)
			}
			h.Write(buffer[:n])
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read error: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
