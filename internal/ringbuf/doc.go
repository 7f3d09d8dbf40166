// Package ringbuf implements the single-producer/single-consumer byte ring
// that sits between a serial reader goroutine and the bridge main loop.
//
// The producer side (Push) is called for every byte received on a UART and
// must never block or allocate. The consumer side extracts newline-delimited
// lines or raw byte runs. Cursors and the pending-newline count are kept in
// atomics, so no lock is ever held on the hot path; when the buffer is full
// the incoming byte is dropped rather than overwriting unread data. A
// dropped byte shows up downstream as a line that fails checksum validation
// and is discarded, which the ucmd protocol layer tolerates.
package ringbuf
