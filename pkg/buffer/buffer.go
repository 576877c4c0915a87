// Package buffer provides reusable byte buffers and a small weak-reference cache
// that hands them back out by best fit.
//
// This package offers:
//   - Buffer: a growable byte region with a stable backing array
//   - Cache: fixed-slot, weakly-held buffer cache with least-recently-used eviction
//   - Statistics always enabled for observability
//   - Optional Prometheus metrics integration via functional options
package buffer

import (
	"github.com/c360/mediaflow/errors"
)

// Buffer is a byte region whose capacity is fixed at allocation time.
// It is not safe for concurrent use; ownership passes along with the record
// that carries it.
type Buffer struct {
	data []byte
}

// NewBuffer allocates a buffer with the given capacity and zero length.
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{data: make([]byte, 0, capacity)}
}

// Bytes returns the valid region of the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the number of valid bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Cap returns the capacity of the backing array.
func (b *Buffer) Cap() int {
	return cap(b.data)
}

// SetLen resizes the valid region without reallocating.
func (b *Buffer) SetLen(n int) error {
	if n < 0 || n > cap(b.data) {
		return errors.WrapInvalid(errors.ErrInvalidData, "Buffer", "SetLen",
			"length outside capacity")
	}
	b.data = b.data[:n]
	return nil
}

// Write appends p, failing instead of growing past capacity.
func (b *Buffer) Write(p []byte) (int, error) {
	if len(b.data)+len(p) > cap(b.data) {
		return 0, errors.WrapInvalid(errors.ErrResourceExhausted, "Buffer", "Write",
			"append beyond capacity")
	}
	b.data = append(b.data, p...)
	return len(p), nil
}

// Reset empties the buffer, keeping the backing array.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
}
