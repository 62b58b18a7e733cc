package checksum

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestSum(t *testing.T) {
	calc := NewDefaultCalculator()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"hello world", "hello world", "5eb63bbbe01eeed093cb22bb8f5acdc3"},
		{"empty", "", "d41d8cd98f00b204e9800998ecf8427e"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Sum(context.Background(), strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Sum failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("MD5 mismatch: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestSum_MaxSize(t *testing.T) {
	calc := NewCalculator(Options{MaxSize: 10, BufferSize: 4})

	if _, err := calc.Sum(context.Background(), strings.NewReader("0123456789")); err != nil {
		t.Errorf("input at the limit should pass: %v", err)
	}

	_, err := calc.Sum(context.Background(), strings.NewReader("0123456789A"))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestSum_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDefaultCalculator().Sum(ctx, strings.NewReader("data"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSum_StreamsInChunks(t *testing.T) {
	calc := NewCalculator(Options{BufferSize: 7})
	whole := NewDefaultCalculator()

	content := strings.Repeat("abcdef", 1000)
	a, err := calc.Sum(context.Background(), strings.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	b, err := whole.Sum(context.Background(), strings.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("buffer size changed digest: %s vs %s", a, b)
	}
}

func TestETagCache(t *testing.T) {
	cache := NewETagCache(nil)
	ctx := context.Background()
	mtime := time.Unix(1700000000, 0)

	opens := 0
	open := func() (io.ReadCloser, error) {
		opens++
		return io.NopCloser(strings.NewReader("hello world")), nil
	}

	etag, err := cache.ETag(ctx, "index.html", 11, mtime, open)
	if err != nil {
		t.Fatalf("ETag failed: %v", err)
	}
	if etag != `"5eb63bbbe01eeed093cb22bb8f5acdc3"` {
		t.Errorf("unexpected etag: %s", etag)
	}

	if _, err := cache.ETag(ctx, "index.html", 11, mtime, open); err != nil {
		t.Fatal(err)
	}
	if opens != 1 {
		t.Errorf("expected cache hit, opened %d times", opens)
	}

	// A newer mtime invalidates the entry
	if _, err := cache.ETag(ctx, "index.html", 11, mtime.Add(time.Second), open); err != nil {
		t.Fatal(err)
	}
	if opens != 2 {
		t.Errorf("expected rehash after mtime change, opened %d times", opens)
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 cached entry, got %d", cache.Len())
	}
}

func TestETagCache_OpenError(t *testing.T) {
	cache := NewETagCache(nil)
	boom := errors.New("boom")

	_, err := cache.ETag(context.Background(), "x", 1, time.Now(), func() (io.ReadCloser, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected open error, got %v", err)
	}
	if cache.Len() != 0 {
		t.Error("failed lookups must not be cached")
	}
}

func TestMatches(t *testing.T) {
	etag := `"abc"`
	tests := []struct {
		header string
		want   bool
	}{
		{`"abc"`, true},
		{`W/"abc"`, true},
		{`"x", "abc"`, true},
		{`*`, true},
		{`"def"`, false},
		{``, false},
	}

	for _, tt := range tests {
		if got := Matches(tt.header, etag); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
