package ucmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/salina-uart/internal/logging"
	"github.com/muurk/salina-uart/internal/ringbuf"
)

const (
	// NakByte forces the device's receive state machine back to its
	// initial state. Sent before any exchange whose preceding state is
	// uncertain.
	NakByte = 0x15

	// DefaultCmdTimeout bounds the wait for the terminal OK/NG of an
	// ordinary command.
	DefaultCmdTimeout = 10 * time.Millisecond

	// Puareq1Timeout is much longer: generating the first challenge part
	// takes the device ~160ms.
	Puareq1Timeout = 200 * time.Millisecond

	// echoTimeoutPerByte scales the echo wait with command length.
	echoTimeoutPerByte = 200 * time.Microsecond

	nakSettle    = 10 * time.Millisecond
	pollInterval = 50 * time.Microsecond
)

// Client is the command channel for one EMC UART link. It owns the outbound
// transport and the receive ring fed by the port's reader goroutine, and it
// is not safe for concurrent use: one control flow drives the exchange, as
// the protocol itself is strictly half duplex.
type Client struct {
	w     io.Writer
	rx    *ringbuf.Buffer
	clock Clock
	log   *zap.Logger
}

// NewClient wires a command channel over the given transport and receive
// ring. A nil clock selects the system clock.
func NewClient(w io.Writer, rx *ringbuf.Buffer, clock Clock) *Client {
	if clock == nil {
		clock = SystemClock()
	}
	return &Client{
		w:     w,
		rx:    rx,
		clock: clock,
		log:   logging.GetLogger(),
	}
}

// Rx exposes the receive ring for raw (ROM mode) draining.
func (c *Client) Rx() *ringbuf.Buffer { return c.rx }

// Clock exposes the channel's time source so sequencing layered on top of
// the client shares it.
func (c *Client) Clock() Clock { return c.clock }

// ClearRx discards any buffered device output.
func (c *Client) ClearRx() { c.rx.Clear() }

// WriteRaw writes bytes to the transport with no framing. Used by ROM-mode
// passthrough and the out-of-bounds write sequences.
func (c *Client) WriteRaw(p []byte) error {
	if _, err := c.w.Write(p); err != nil {
		return fmt.Errorf("uart write: %w", err)
	}
	return nil
}

// PollLine makes one non-blocking attempt to extract a validated line.
// Lines failing checksum validation are logged and dropped; the caller
// cannot distinguish them from "nothing received yet".
func (c *Client) PollLine() (string, bool) {
	raw, ok := c.rx.ReadLine()
	if !ok {
		return "", false
	}
	line, ok := ValidateLine(raw)
	if !ok {
		logging.LogRawBytes("dropping invalid line", raw)
		return "", false
	}
	return string(line), true
}

// ReadLine polls for a validated line until timeout elapses.
func (c *Client) ReadLine(timeout time.Duration) (string, bool) {
	deadline := c.clock.Now().Add(timeout)
	for {
		if line, ok := c.PollLine(); ok {
			return line, true
		}
		if !c.clock.Now().Before(deadline) {
			return "", false
		}
		c.clock.Sleep(pollInterval)
	}
}

// Send writes one checksummed command line. With waitEcho set it then waits
// for the device to echo the command text back, discarding any other lines
// that arrive in the meantime as noise; false is returned only when the
// echo never shows up within the length-proportional timeout.
func (c *Client) Send(cmdline string, waitEcho bool) bool {
	wire := AppendChecksum(cmdline)
	if err := c.WriteRaw([]byte(wire)); err != nil {
		c.log.Warn("command write failed", zap.Error(err))
		return false
	}
	if !waitEcho {
		return true
	}
	timeout := time.Duration(len(wire)) * echoTimeoutPerByte
	for {
		readback, ok := c.ReadLine(timeout)
		if !ok {
			return false
		}
		if readback == cmdline {
			return true
		}
		c.log.Debug("discarding line while waiting for echo", zap.String("line", readback))
	}
}

// ReceiveResult pulls lines until one parses as a terminal OK/NG, skipping
// comment/info/unknown chatter. A timeout result is returned when no
// terminal response arrives in time.
func (c *Client) ReceiveResult(timeout time.Duration) Result {
	for {
		line, ok := c.ReadLine(timeout)
		if !ok {
			return NewTimeout()
		}
		result := ParseResult(line)
		if result.IsOkOrNg() {
			return result
		}
		c.log.Debug("async line", zap.String("line", result.Format()))
	}
}

// Command sends cmdline and waits for its terminal response. Every
// higher-level operation goes through here.
func (c *Client) Command(cmdline string, timeout time.Duration) Result {
	c.log.Debug("> cmd", zap.String("cmd", cmdline))
	if !c.Send(cmdline, true) {
		c.log.Debug("echo readback timeout")
		return NewTimeout()
	}
	result := c.ReceiveResult(timeout)
	c.log.Debug("< result", zap.String("result", result.Format()))
	return result
}

// Nak resets the device's receive state machine and gives it a moment to
// settle.
func (c *Client) Nak() {
	if err := c.WriteRaw([]byte{NakByte}); err != nil {
		c.log.Warn("nak write failed", zap.Error(err))
	}
	c.clock.Sleep(nakSettle)
}

// Version issues the firmware version query.
func (c *Client) Version() Result {
	return c.Command("version", DefaultCmdTimeout)
}

// GetSerialNo issues the serial-number query.
func (c *Client) GetSerialNo() Result {
	return c.Command("getserialno", DefaultCmdTimeout)
}

// Puareq1 requests the first part of an authentication challenge. The
// response data is deliberately ignored; the call only matters because it
// arms the device's challenge handling.
func (c *Client) Puareq1(index uint32) bool {
	return c.Command(fmt.Sprintf("puareq1 %x", index), Puareq1Timeout).IsSuccess()
}

// Puareq2 submits one challenge-response chunk. The chunk bytes are
// attacker-controlled payload, not a real challenge answer.
func (c *Client) Puareq2(index uint32, chunk []byte) bool {
	cmdline := fmt.Sprintf("puareq2 %x %s", index, hex.EncodeToString(chunk))
	return c.Command(cmdline, DefaultCmdTimeout).IsSuccess()
}
