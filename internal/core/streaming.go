package core

// streaming.go provides memory-efficient readers for stops files.
//
//   - CountingReader tracks raw bytes read for progress reporting
//   - the UTF-8 decoder strips a leading BOM (0xEF 0xBB 0xBF) and replaces
//     invalid UTF-8 sequences with U+FFFD on the fly
//
// Use WrapForStreaming to apply both in the correct order.

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // If known (0 if unknown)
}

// NewCountingReader creates a counting reader with optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{
		reader: r,
		Total:  total,
	}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	pct := int(r.BytesRead * 100 / r.Total)
	if pct > 100 {
		return 100
	}
	return pct
}

// NewUTF8Reader strips a leading UTF-8 BOM and replaces invalid UTF-8
// with U+FFFD without buffering the whole input.
func NewUTF8Reader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
}

// WrapForStreaming returns a decoded reader over r and the counter that
// observes the raw bytes underneath it.
//
// Counting happens below decoding so progress matches the file size on disk.
func WrapForStreaming(r io.Reader, totalSize int64) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r, totalSize)
	return NewUTF8Reader(counter), counter
}
