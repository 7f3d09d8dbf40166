package ringbuf

import (
	"fmt"
	"math/bits"
	"sync/atomic"
)

// DefaultCapacity is large enough to absorb the burst of error spew the EMC
// emits after a deliberate receive-buffer overflow.
const DefaultCapacity = 4096

// Buffer is a fixed-capacity SPSC byte ring. Exactly one goroutine may call
// Push, and exactly one goroutine may call the consumer-side methods
// (ReadLine, ReadRaw, Len, Clear). The two sides never block each other.
type Buffer struct {
	buf  []byte
	mask uint32

	wpos     atomic.Uint32
	rpos     atomic.Uint32
	newlines atomic.Int32
}

// New creates a Buffer. capacity must be a power of two; at most capacity-1
// bytes are held at once.
func New(capacity int) *Buffer {
	if capacity <= 0 || bits.OnesCount(uint(capacity)) != 1 {
		panic(fmt.Sprintf("ringbuf: capacity %d is not a power of two", capacity))
	}
	return &Buffer{
		buf:  make([]byte, capacity),
		mask: uint32(capacity - 1),
	}
}

func (b *Buffer) add(pos, n uint32) uint32 {
	return (pos + n) & b.mask
}

// Push appends one byte. Producer side only. When the buffer is full the
// byte is dropped; advancing the write cursor onto the read cursor would
// make the buffer indistinguishable from empty.
func (b *Buffer) Push(c byte) {
	wpos := b.wpos.Load()
	next := b.add(wpos, 1)
	if next == b.rpos.Load() {
		return
	}
	b.buf[wpos] = c
	b.wpos.Store(next)
	if c == '\n' {
		b.newlines.Add(1)
	}
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	wpos := b.wpos.Load()
	rpos := b.rpos.Load()
	if wpos >= rpos {
		return int(wpos - rpos)
	}
	return len(b.buf) - int(rpos) + int(wpos)
}

// ReadLine extracts one newline-delimited line, excluding the '\n' itself.
// It returns false without consuming anything when no complete line is
// buffered. The returned slice is freshly allocated.
func (b *Buffer) ReadLine() ([]byte, bool) {
	// The newline count is published after the byte itself, so a nonzero
	// count guarantees the '\n' is visible between the cursors.
	if b.newlines.Load() == 0 {
		return nil, false
	}
	wpos := b.wpos.Load()
	rpos := b.rpos.Load()
	var line []byte
	for pos := rpos; pos != wpos; pos = b.add(pos, 1) {
		c := b.buf[pos]
		if c == '\n' {
			b.rpos.Store(b.add(pos, 1))
			b.newlines.Add(-1)
			return line, true
		}
		line = append(line, c)
	}
	return nil, false
}

// ReadRaw drains up to len(p) buffered bytes into p, decrementing the
// newline count for any '\n' consumed. Used in ROM mode, where the traffic
// is not line-structured.
func (b *Buffer) ReadRaw(p []byte) int {
	wpos := b.wpos.Load()
	rpos := b.rpos.Load()
	n := 0
	for pos := rpos; pos != wpos && n < len(p); pos = b.add(pos, 1) {
		c := b.buf[pos]
		if c == '\n' {
			b.newlines.Add(-1)
		}
		p[n] = c
		n++
		b.rpos.Store(b.add(pos, 1))
	}
	return n
}

// Clear discards all buffered bytes. Implemented as a consumer-side drain so
// it cannot race the producer; bytes pushed while Clear runs may survive,
// exactly as with the hardware variant where new traffic can arrive the
// moment the buffer is reset.
func (b *Buffer) Clear() {
	var scratch [256]byte
	for b.ReadRaw(scratch[:]) > 0 {
	}
}
