package protocol

// Ring is a fixed capacity byte FIFO with one producer and one consumer.
// Reads never alias the storage across the wrap point: Peek copies out.
type Ring struct {
	buf  []byte
	head int // next byte to read
	size int // bytes stored
}

// NewRing creates a Ring with capacity bytes.
func NewRing(capacity int) *Ring {
	return &Ring{buf: make([]byte, capacity)}
}

// Cap returns the capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Len returns the number of buffered bytes.
func (r *Ring) Len() int { return r.size }

// Free returns the available space.
func (r *Ring) Free() int { return len(r.buf) - r.size }

// Write appends all of p, or nothing if it doesn't fit.
func (r *Ring) Write(p []byte) bool {
	if len(p) > r.Free() {
		return false
	}
	tail := (r.head + r.size) % len(r.buf)
	n := copy(r.buf[tail:], p)
	copy(r.buf, p[n:])
	r.size += len(p)
	return true
}

// Peek copies up to len(p) bytes starting at offset into p without consuming.
func (r *Ring) Peek(offset int, p []byte) int {
	if offset >= r.size {
		return 0
	}
	cnt := len(p)
	if avail := r.size - offset; cnt > avail {
		cnt = avail
	}
	start := (r.head + offset) % len(r.buf)
	n := copy(p[:cnt], r.buf[start:])
	if n < cnt {
		copy(p[n:cnt], r.buf)
	}
	return cnt
}

// Discard consumes n bytes.
func (r *Ring) Discard(n int) {
	if n > r.size {
		n = r.size
	}
	r.head = (r.head + n) % len(r.buf)
	r.size -= n
	if r.size == 0 {
		r.head = 0
	}
}

// Reset drops all content.
func (r *Ring) Reset() {
	r.head, r.size = 0, 0
}
