package engine

import (
	"sync"
)

// DefaultOutputLimit caps captured command output.
const DefaultOutputLimit = 64 * 1024

// OutputBuffer is a fixed-size ring that keeps the most recent bytes written
// to it. Commands like `yes` or a large `cat` cannot exhaust memory; the
// caller sees the tail of the output and Truncated reports the loss.
type OutputBuffer struct {
	mu        sync.Mutex
	buf       []byte
	size      int
	head      int // next write position
	full      bool
	truncated bool
}

// NewOutputBuffer creates a buffer holding at most size bytes.
func NewOutputBuffer(size int) *OutputBuffer {
	if size <= 0 {
		size = DefaultOutputLimit
	}
	return &OutputBuffer{buf: make([]byte, size), size: size}
}

// Write implements io.Writer. When the buffer is full the oldest bytes are
// overwritten.
func (b *OutputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	if n >= b.size {
		// Only the last size bytes can survive.
		b.truncated = b.truncated || b.full || b.head != 0 || n > b.size
		copy(b.buf, p[n-b.size:])
		b.head = 0
		b.full = true
		return n, nil
	}

	for _, c := range p {
		if b.full {
			b.truncated = true
		}
		b.buf[b.head] = c
		b.head = (b.head + 1) % b.size
		if b.head == 0 {
			b.full = true
		}
	}
	return n, nil
}

// Bytes returns the buffered bytes in write order.
func (b *OutputBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		out := make([]byte, b.head)
		copy(out, b.buf[:b.head])
		return out
	}
	out := make([]byte, 0, b.size)
	out = append(out, b.buf[b.head:]...)
	return append(out, b.buf[:b.head]...)
}

// String returns the buffered bytes in write order.
func (b *OutputBuffer) String() string {
	return string(b.Bytes())
}

// Len returns the number of buffered bytes.
func (b *OutputBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return b.size
	}
	return b.head
}

// Truncated reports whether older output was discarded.
func (b *OutputBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

// Reset clears the buffer.
func (b *OutputBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.full = false
	b.truncated = false
}

// Capacity returns the maximum number of bytes kept.
func (b *OutputBuffer) Capacity() int {
	return b.size
}
