package server

import (
	"io"
	"sync"
)

// Broadcast fans one write stream out to any number of attached sinks.
// The bridge writes to it without knowing who is connected; listeners
// attach and detach as clients come and go. A sink whose write fails is
// dropped on the spot, so a dead client cannot stall the device pumps.
type Broadcast struct {
	mu    sync.Mutex
	sinks map[io.Writer]struct{}
}

func NewBroadcast() *Broadcast {
	return &Broadcast{sinks: make(map[io.Writer]struct{})}
}

// Attach adds a sink to the fan-out.
func (b *Broadcast) Attach(w io.Writer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks[w] = struct{}{}
}

// Detach removes a sink. Safe to call for a sink already dropped.
func (b *Broadcast) Detach(w io.Writer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sinks, w)
}

// Write copies p to every attached sink. It never fails: with no sinks
// attached the data is discarded, matching a serial device nobody is
// listening to.
func (b *Broadcast) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for w := range b.sinks {
		if _, err := w.Write(p); err != nil {
			delete(b.sinks, w)
		}
	}
	return len(p), nil
}

// Sinks reports how many sinks are attached.
func (b *Broadcast) Sinks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sinks)
}
