package engine

import (
	"bytes"
	"fmt"
	"sync"
)

// DefaultMaxCaptureBytes caps each captured stream when the config does not
// override it.
const DefaultMaxCaptureBytes = 256 * 1024

// CaptureBuffer is a bounded io.Writer for a worker's stdout or stderr.
//
// Writes past the cap are counted but not stored, so the pipe keeps draining
// and a flooding worker can never stall on backpressure or grow the
// supervisor's memory. Truncation is reported with an explicit marker rather
// than silently dropped output.
type CaptureBuffer struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	capBytes int
	total    int
}

// NewCaptureBuffer creates a buffer storing at most capBytes. A non-positive
// cap falls back to DefaultMaxCaptureBytes.
func NewCaptureBuffer(capBytes int) *CaptureBuffer {
	if capBytes <= 0 {
		capBytes = DefaultMaxCaptureBytes
	}
	return &CaptureBuffer{capBytes: capBytes}
}

// Write stores p up to the remaining capacity and discards the rest. It
// always reports the full length written so upstream copies never stop
// draining the stream.
func (b *CaptureBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Report the full length even when only a prefix is stored: a short
	// write would make io.Copy abort with ErrShortWrite, closing the pipe
	// under the worker mid-run.
	n := len(p)
	b.total += n
	if remaining := b.capBytes - b.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			p = p[:remaining]
		}
		b.buf.Write(p)
	}
	return n, nil
}

// Truncated reports whether any bytes were discarded.
func (b *CaptureBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total > b.buf.Len()
}

// TotalBytes reports how many bytes the worker wrote, stored or not.
func (b *CaptureBuffer) TotalBytes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// String returns the captured output. If the stream was truncated the stored
// prefix is followed by an explicit marker naming the cap.
func (b *CaptureBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.total <= b.buf.Len() {
		return b.buf.String()
	}
	return b.buf.String() + fmt.Sprintf("\n...[output truncated at %d bytes]", b.capBytes)
}
