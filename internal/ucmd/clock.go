package ucmd

import "time"

// Clock is the injected time source behind every wait in the channel and
// the exploit sequencing. Tests substitute a fake; production code uses
// SystemClock.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// BusyWait spins until d has elapsed. Sub-millisecond exploit delays race a
// hardware timing window, so they must not be handed to the scheduler as a
// sleep.
func BusyWait(c Clock, d time.Duration) {
	deadline := c.Now().Add(d)
	for c.Now().Before(deadline) {
	}
}
