package bridge

import (
	"context"
	"encoding/hex"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/salina-uart/internal/exploit"
	"github.com/muurk/salina-uart/internal/logging"
	"github.com/muurk/salina-uart/internal/ringbuf"
	"github.com/muurk/salina-uart/internal/ucmd"
)

const (
	// NormalBaud is the EMC's ucmd line rate; RomBaud is what its boot ROM
	// runs at.
	NormalBaud = 115200
	RomBaud    = 460800

	// DefaultEfcBaud is the EFC console's power-on rate. The host can
	// change it at any time.
	DefaultEfcBaud = 115200

	// romFrameMax caps how many ROM-mode bytes are packed into one frame
	// envelope.
	romFrameMax = 256

	// maxLinesPerSpin bounds EMC line draining per loop iteration so a
	// chatty device cannot starve the EFC relay.
	maxLinesPerSpin = 32

	idleSleep = time.Millisecond
	romSettle = 100 * time.Microsecond
)

// EmcPort is the EMC-side hardware surface the bridge drives. *uart.Port
// satisfies it.
type EmcPort interface {
	io.Writer
	Rx() *ringbuf.Buffer
	SetBaud(baud int) error
	HoldReset() error
	ReleaseReset() error
	HoldRomStrap() error
	ReleaseRomStrap() error
	exploit.ResetLine
}

// EfcPort is the EFC-side surface; a plain relay needs much less.
type EfcPort interface {
	io.Writer
	Rx() *ringbuf.Buffer
	SetBaud(baud int) error
}

// Config assembles a Bridge. Emc is mandatory; everything else degrades
// gracefully when absent.
type Config struct {
	Emc EmcPort
	Efc EfcPort

	// EmcOut receives the envelope stream; EfcOut receives raw EFC bytes.
	EmcOut io.Writer
	EfcOut io.Writer

	// Clock overrides the time source, for tests.
	Clock ucmd.Clock

	// Registry overrides the firmware constants table.
	Registry *exploit.FwRegistry

	// OnShutdown runs when the host requests a bridge restart via
	// picoreset, after the result envelope is written.
	OnShutdown func()
}

// Bridge relays between host channels and the console UARTs. All fields
// are owned by the Run goroutine; the only cross-goroutine surfaces are
// SubmitLine, WriteEfc and SetEfcBaud.
type Bridge struct {
	emc    EmcPort
	efc    EfcPort
	emcOut io.Writer
	efcOut io.Writer

	client *ucmd.Client
	orch   *exploit.Orchestrator

	lines chan string
	efcIn chan []byte

	efcBaud    atomic.Int64
	efcCurBaud int

	inRom      bool
	onShutdown func()
	log        *zap.Logger
}

// New wires a Bridge from its parts. It does not touch the hardware yet;
// Run does.
func New(cfg Config) *Bridge {
	registry := cfg.Registry
	if registry == nil {
		registry = exploit.NewFwRegistry()
	}
	client := ucmd.NewClient(cfg.Emc, cfg.Emc.Rx(), cfg.Clock)
	b := &Bridge{
		emc:        cfg.Emc,
		efc:        cfg.Efc,
		emcOut:     cfg.EmcOut,
		efcOut:     cfg.EfcOut,
		client:     client,
		orch:       exploit.NewOrchestrator(client, cfg.Emc, registry),
		lines:      make(chan string, 16),
		efcIn:      make(chan []byte, 16),
		onShutdown: cfg.OnShutdown,
		log:        logging.GetLogger(),
	}
	b.efcBaud.Store(DefaultEfcBaud)
	b.efcCurBaud = DefaultEfcBaud
	return b
}

// Orchestrator exposes the unlock sequencer so startup code can seed chip
// or firmware constants from configuration.
func (b *Bridge) Orchestrator() *exploit.Orchestrator { return b.orch }

// SubmitLine queues one host command line for dispatch. Safe to call from
// any goroutine; blocks if the bridge is busy with a long operation.
func (b *Bridge) SubmitLine(line string) {
	b.lines <- line
}

// WriteEfc queues raw host bytes for the EFC UART.
func (b *Bridge) WriteEfc(p []byte) {
	b.efcIn <- append([]byte(nil), p...)
}

// SetEfcBaud requests a new EFC line rate, applied before the next
// transfer in either direction.
func (b *Bridge) SetEfcBaud(baud int) {
	b.efcBaud.Store(int64(baud))
}

// EfcBaud returns the currently requested EFC line rate.
func (b *Bridge) EfcBaud() int {
	return int(b.efcBaud.Load())
}

// Run drives the relay until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	b.log.Info("bridge running",
		zap.Bool("efc", b.efc != nil))
	for {
		worked := false
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line := <-b.lines:
			b.dispatch(line)
			worked = true
		case p := <-b.efcIn:
			b.writeEfcNow(p)
			worked = true
		default:
		}
		if b.pumpEmc() {
			worked = true
		}
		if b.pumpEfc() {
			worked = true
		}
		if !worked {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(idleSleep):
			}
		}
	}
}

// pumpEmc moves device output to the host: parsed line envelopes in
// normal mode, hex frame envelopes in ROM mode.
func (b *Bridge) pumpEmc() bool {
	if b.inRom {
		var buf [romFrameMax]byte
		n := b.emc.Rx().ReadRaw(buf[:])
		if n == 0 {
			return false
		}
		logging.LogRawBytes("rom frame", buf[:n])
		frame := ucmd.NewOk(ucmd.StatusRomFrame, hex.EncodeToString(buf[:n]))
		b.writeHost(frame.Encode())
		return true
	}
	worked := false
	for range maxLinesPerSpin {
		line, ok := b.client.PollLine()
		if !ok {
			break
		}
		b.writeHost(ucmd.ParseResult(line).Encode())
		worked = true
	}
	return worked
}

func (b *Bridge) writeHost(env []byte) {
	if b.emcOut == nil {
		return
	}
	if _, err := b.emcOut.Write(env); err != nil {
		b.log.Warn("host write failed", zap.Error(err))
	}
}

// pumpEfc relays EFC device bytes to the host.
func (b *Bridge) pumpEfc() bool {
	if b.efc == nil || b.efcOut == nil {
		return false
	}
	b.applyEfcBaud()
	var buf [256]byte
	n := b.efc.Rx().ReadRaw(buf[:])
	if n == 0 {
		return false
	}
	if _, err := b.efcOut.Write(buf[:n]); err != nil {
		b.log.Warn("efc host write failed", zap.Error(err))
	}
	return true
}

func (b *Bridge) writeEfcNow(p []byte) {
	if b.efc == nil {
		return
	}
	b.applyEfcBaud()
	if _, err := b.efc.Write(p); err != nil {
		b.log.Warn("efc write failed", zap.Error(err))
	}
}

func (b *Bridge) applyEfcBaud() {
	want := int(b.efcBaud.Load())
	if want == b.efcCurBaud {
		return
	}
	if err := b.efc.SetBaud(want); err != nil {
		b.log.Warn("efc baud change failed", zap.Int("baud", want), zap.Error(err))
		return
	}
	b.efcCurBaud = want
}

// enterRom straps the EMC into its boot ROM: hold reset, assert the strap
// so the ROM samples it on release, retune the UART, and let the chip go.
// The strap stays asserted for the whole ROM session.
func (b *Bridge) enterRom() ucmd.Result {
	if b.inRom {
		return ucmd.NewSuccess()
	}
	for _, step := range []func() error{
		b.emc.HoldReset,
		b.emc.HoldRomStrap,
		func() error { return b.emc.SetBaud(RomBaud) },
	} {
		if err := step(); err != nil {
			return ucmd.NewNg(ucmd.StatusEINVAL, err.Error())
		}
	}
	b.client.ClearRx()
	b.client.Clock().Sleep(romSettle)
	if err := b.emc.ReleaseReset(); err != nil {
		return ucmd.NewNg(ucmd.StatusEINVAL, err.Error())
	}
	b.inRom = true
	b.log.Info("entered ROM mode")
	return ucmd.NewSuccess()
}

// exitRom reverses enterRom and reboots the EMC into its firmware.
func (b *Bridge) exitRom() ucmd.Result {
	if !b.inRom {
		return ucmd.NewSuccess()
	}
	for _, step := range []func() error{
		b.emc.HoldReset,
		b.emc.ReleaseRomStrap,
		func() error { return b.emc.SetBaud(NormalBaud) },
	} {
		if err := step(); err != nil {
			return ucmd.NewNg(ucmd.StatusEINVAL, err.Error())
		}
	}
	b.client.ClearRx()
	b.client.Clock().Sleep(romSettle)
	if err := b.emc.ReleaseReset(); err != nil {
		return ucmd.NewNg(ucmd.StatusEINVAL, err.Error())
	}
	b.inRom = false
	b.log.Info("left ROM mode")
	return ucmd.NewSuccess()
}
