package network

import (
	"iter"

	"means-server/src/codec"
)

// -----------------------------------------------------------------------------
// FrameReader accumulates bytes from one connection and cuts them into
// fixed-size frames. Owned by a single session; not safe for concurrent use.
// -----------------------------------------------------------------------------

type FrameReader struct {
	buf       []byte
	frameSize int
}

// -----------------------------------------------------------------------------

// NewFrameReader builds a reader for protocol frames (codec.FrameSize bytes)
func NewFrameReader() *FrameReader {
	return &FrameReader{frameSize: codec.FrameSize}
}

// -----------------------------------------------------------------------------

// Feed appends data and yields every complete frame currently buffered, in
// arrival order. Yielded slices are only valid until the next call to yield
// returns. A trailing partial frame stays buffered for the next Feed, and so
// do any frames left unconsumed when the caller stops iterating.
func (r *FrameReader) Feed(data []byte) iter.Seq[[]byte] {
	r.buf = append(r.buf, data...)

	return func(yield func([]byte) bool) {
		consumed := 0
		defer func() { r.compact(consumed) }()

		for len(r.buf)-consumed >= r.frameSize {
			frame := r.buf[consumed : consumed+r.frameSize : consumed+r.frameSize]
			consumed += r.frameSize
			if !yield(frame) {
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Pending returns the number of buffered bytes not yet yielded
func (r *FrameReader) Pending() int {
	return len(r.buf)
}

// -----------------------------------------------------------------------------

// Reset drops everything buffered (used when a connection goes away)
func (r *FrameReader) Reset() {
	r.buf = nil
}

// -----------------------------------------------------------------------------

// compact shifts the unconsumed tail to the front of the buffer so the
// backing array is reused across reads
func (r *FrameReader) compact(consumed int) {
	if consumed == 0 {
		return
	}
	n := copy(r.buf, r.buf[consumed:])
	r.buf = r.buf[:n]
}
