package uart

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/muurk/salina-uart/internal/logging"
	"github.com/muurk/salina-uart/internal/ringbuf"
)

// resetPulseWidth is how long the reset line is held low during a pulse.
// The EMC's reset input only needs a few microseconds; 100 leaves margin
// for the adapter's RC filtering.
const resetPulseWidth = 100 * time.Microsecond

// Port is one serial link with its receive ring. Writes go straight to the
// device; reads come out of Rx, filled by a goroutine that runs from Open
// until Close.
type Port struct {
	name string
	port serial.Port
	rx   *ringbuf.Buffer
	log  *zap.Logger

	wg sync.WaitGroup
}

// Open opens the named device at the given baud rate, 8N1, and starts the
// reader goroutine.
func Open(name string, baud int) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	sp, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return newPort(name, sp), nil
}

func newPort(name string, sp serial.Port) *Port {
	p := &Port{
		name: name,
		port: sp,
		rx:   ringbuf.New(ringbuf.DefaultCapacity),
		log:  logging.GetLogger().With(zap.String("port", name)),
	}
	p.wg.Add(1)
	go p.readLoop()
	return p
}

// Rx returns the receive ring. Only one consumer may use it.
func (p *Port) Rx() *ringbuf.Buffer { return p.rx }

// Write sends bytes to the device.
func (p *Port) Write(b []byte) (int, error) {
	logging.LogTraffic("host>"+p.name, b)
	n, err := p.port.Write(b)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", p.name, err)
	}
	return n, nil
}

// SetBaud reconfigures the line speed, keeping 8N1 framing.
func (p *Port) SetBaud(baud int) error {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if err := p.port.SetMode(mode); err != nil {
		return fmt.Errorf("set baud %s: %w", p.name, err)
	}
	p.log.Debug("baud changed", zap.Int("baud", baud))
	return nil
}

// Close closes the device and waits for the reader goroutine to exit.
func (p *Port) Close() error {
	err := p.port.Close()
	p.wg.Wait()
	return err
}

// readLoop pumps device bytes into the ring until the port closes. The
// ring drops bytes when the consumer falls behind; that matches how a
// hardware FIFO would overrun, so no backpressure is attempted.
func (p *Port) readLoop() {
	defer p.wg.Done()
	buf := make([]byte, 256)
	for {
		n, err := p.port.Read(buf)
		if n > 0 {
			logging.LogTraffic(p.name+">host", buf[:n])
		}
		for _, b := range buf[:n] {
			p.rx.Push(b)
		}
		if err != nil {
			p.log.Debug("reader exiting", zap.Error(err))
			return
		}
	}
}

// HoldReset asserts DTR, pulling the EMC reset line low.
func (p *Port) HoldReset() error {
	if err := p.port.SetDTR(true); err != nil {
		return fmt.Errorf("assert reset %s: %w", p.name, err)
	}
	return nil
}

// ReleaseReset deasserts DTR, letting the reset line float high.
func (p *Port) ReleaseReset() error {
	if err := p.port.SetDTR(false); err != nil {
		return fmt.Errorf("release reset %s: %w", p.name, err)
	}
	return nil
}

// Pulse resets the EMC: hold low briefly, then release.
func (p *Port) Pulse() {
	if err := p.HoldReset(); err != nil {
		p.log.Warn("reset pulse failed", zap.Error(err))
		return
	}
	time.Sleep(resetPulseWidth)
	if err := p.ReleaseReset(); err != nil {
		p.log.Warn("reset release failed", zap.Error(err))
	}
}

// Held reports whether the reset net currently sits low, whether driven by
// us or by the console itself. DSR follows the net directly.
func (p *Port) Held() bool {
	bits, err := p.port.GetModemStatusBits()
	if err != nil {
		p.log.Warn("modem status read failed", zap.Error(err))
		return false
	}
	return !bits.DSR
}

// HoldRomStrap asserts RTS, strapping the EMC into its boot ROM on the
// next reset.
func (p *Port) HoldRomStrap() error {
	if err := p.port.SetRTS(true); err != nil {
		return fmt.Errorf("assert rom strap %s: %w", p.name, err)
	}
	return nil
}

// ReleaseRomStrap deasserts RTS.
func (p *Port) ReleaseRomStrap() error {
	if err := p.port.SetRTS(false); err != nil {
		return fmt.Errorf("release rom strap %s: %w", p.name, err)
	}
	return nil
}
