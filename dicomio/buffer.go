// Package dicomio provides the byte-level primitives shared by the
// streaming parser and the part serializers: a growable, non-blocking
// cursor over accumulated byte chunks, and endian-aware numeric codecs.
//
// Unlike a thin io.Reader wrapper that blocks until bytes are available,
// Buffer is fed in pushed chunks by the caller and reports
// ErrNeedMoreBytes instead of blocking, so the parser built on top of it
// can suspend and resume across arbitrary chunk boundaries.
package dicomio

import "errors"

// ErrNeedMoreBytes is returned by Buffer accessors when fewer than the
// requested number of bytes are currently available. It is not an error
// condition for the stream; callers append more bytes and retry.
var ErrNeedMoreBytes = errors.New("dicomio: need more bytes")

// Buffer is an append-only byte accumulator with a read cursor. Bytes
// already consumed are periodically compacted out so memory use is
// bounded by the unconsumed tail, not the whole stream.
type Buffer struct {
	data []byte
	pos  int

	// TotalConsumed is the running count of bytes permanently advanced
	// past, across compactions. Used by the parser to track stream
	// position for FMI-end bookkeeping.
	TotalConsumed int64
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds p to the end of the buffer. p is copied.
func (b *Buffer) Append(p []byte) {
	b.data = append(b.data, p...)
	b.maybeCompact()
}

// Available returns the number of unconsumed bytes currently buffered.
func (b *Buffer) Available() int {
	return len(b.data) - b.pos
}

// Peek returns the next n unconsumed bytes without advancing the cursor.
// Returns ErrNeedMoreBytes if fewer than n bytes are buffered.
func (b *Buffer) Peek(n int) ([]byte, error) {
	if b.Available() < n {
		return nil, ErrNeedMoreBytes
	}
	return b.data[b.pos : b.pos+n], nil
}

// Take returns and consumes the next n unconsumed bytes. Returns
// ErrNeedMoreBytes if fewer than n bytes are buffered, in which case the
// cursor is not advanced.
func (b *Buffer) Take(n int) ([]byte, error) {
	out, err := b.Peek(n)
	if err != nil {
		return nil, err
	}
	b.pos += n
	b.TotalConsumed += int64(n)
	return out, nil
}

// TakeUpTo consumes and returns at most n unconsumed bytes, possibly
// fewer if n exceeds what is buffered, possibly zero. It never returns
// ErrNeedMoreBytes; use it for value-chunk production where any amount
// of forward progress is useful.
func (b *Buffer) TakeUpTo(n int) []byte {
	if n > b.Available() {
		n = b.Available()
	}
	out := b.data[b.pos : b.pos+n]
	b.pos += n
	b.TotalConsumed += int64(n)
	return out
}

// Skip discards the next n unconsumed bytes without returning them.
// Returns ErrNeedMoreBytes if fewer than n bytes are buffered.
func (b *Buffer) Skip(n int) error {
	_, err := b.Take(n)
	return err
}

func (b *Buffer) maybeCompact() {
	const compactThreshold = 64 * 1024
	if b.pos < compactThreshold {
		return
	}
	b.data = append(b.data[:0], b.data[b.pos:]...)
	b.pos = 0
}
