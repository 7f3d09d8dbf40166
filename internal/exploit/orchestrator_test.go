package exploit

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/muurk/salina-uart/internal/ringbuf"
	"github.com/muurk/salina-uart/internal/ucmd"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Microsecond)
	return c.t
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.t = c.t.Add(d)
}

type fakeReset struct {
	held   bool
	pulses int
}

func (r *fakeReset) Pulse() { r.pulses++ }
func (r *fakeReset) Held() bool {
	return r.held
}

// emcSim scripts the device side of the link. It consumes everything the
// client writes and synchronously pushes echoes and responses into the
// receive ring, mimicking the EMC's parser closely enough to drive the
// whole unlock flow: NAK clears its line buffer, newline completes a line,
// and the 0x0c marker of an overwrite burst captures the four bytes that
// follow as one overwrite pass.
type emcSim struct {
	rx      *ringbuf.Buffer
	version string
	serial  string

	unlocked         bool
	tableOverwritten bool
	// overwriteSticks gates whether a full-address pass actually lands;
	// clearing it simulates an overwrite that silently misses.
	overwriteSticks bool
	targetAddr      uint32

	line      []byte
	oobRemain int
	oobPass   []byte

	cmds   []string
	passes [][]byte
	placed []byte
}

func (s *emcSim) Write(p []byte) (int, error) {
	for _, b := range p {
		if s.oobRemain > 0 {
			s.oobPass = append(s.oobPass, b)
			s.oobRemain--
			if s.oobRemain == 0 {
				s.recordPass(s.oobPass)
				s.oobPass = nil
			}
			continue
		}
		switch b {
		case ucmd.NakByte:
			s.line = s.line[:0]
		case 0x0c:
			s.oobRemain = 4
		case '\n':
			s.handleLine(string(s.line))
			s.line = s.line[:0]
		default:
			s.line = append(s.line, b)
		}
	}
	return len(p), nil
}

func (s *emcSim) recordPass(pass []byte) {
	s.passes = append(s.passes, append([]byte(nil), pass...))
	if s.overwriteSticks && binary.LittleEndian.Uint32(pass) == s.targetAddr {
		s.tableOverwritten = true
	}
}

func (s *emcSim) handleLine(raw string) {
	cmd, ok := ucmd.ValidateLine([]byte(raw))
	if !ok {
		return
	}
	line := string(cmd)
	s.cmds = append(s.cmds, line)
	s.pushLine(line)

	switch {
	case line == "version":
		if s.tableOverwritten {
			s.pushLine("NG F0000006")
		} else {
			s.pushLine("OK 00000000 " + s.version)
		}
	case line == "getserialno":
		if s.unlocked {
			s.pushLine("OK 00000000 " + s.serial)
		} else {
			s.pushLine("NG F0000006")
		}
	case strings.HasPrefix(line, "puareq1 "):
		s.pushLine("OK 00000000 d00dfeed")
	case strings.HasPrefix(line, "puareq2 "):
		fields := strings.Fields(line)
		chunk, err := hex.DecodeString(fields[2])
		if err != nil {
			s.pushLine("NG E0000002")
			return
		}
		s.placed = append(s.placed, chunk...)
		s.pushLine("OK 00000000 " + fields[1])
	case line == HaxCommandName:
		// The injected handler flips manufacturing mode and returns no
		// terminal response, just like the real shellcode.
		if s.tableOverwritten {
			s.unlocked = true
		}
	default:
		s.pushLine("NG F0000006")
	}
}

func (s *emcSim) pushLine(line string) {
	for _, b := range []byte(ucmd.AppendChecksum(line)) {
		s.rx.Push(b)
	}
}

func newSimHarness(version string) (*Orchestrator, *emcSim, *fakeReset, *FwRegistry) {
	sim := &emcSim{
		rx:              ringbuf.New(ringbuf.DefaultCapacity),
		version:         version,
		serial:          "0123456789ABCDEF",
		overwriteSticks: true,
	}
	client := ucmd.NewClient(sim, sim.rx, &fakeClock{})
	reset := &fakeReset{}
	registry := NewFwRegistry()
	return NewOrchestrator(client, reset, registry), sim, reset, registry
}

func TestRunAlreadyUnlocked(t *testing.T) {
	orch, sim, _, _ := newSimHarness("E1E 0001 0000 0004 13D0")
	sim.unlocked = true

	result := orch.Run()
	if !result.IsSuccess() {
		t.Fatalf("result = %s", result.Format())
	}
	if len(sim.cmds) != 1 || sim.cmds[0] != "getserialno" {
		t.Errorf("cmds = %v, want only the verification query", sim.cmds)
	}
	if len(sim.passes) != 0 {
		t.Errorf("%d overwrite passes sent to an unlocked device", len(sim.passes))
	}
}

func TestRunRefusedWhileHeldInReset(t *testing.T) {
	orch, sim, reset, _ := newSimHarness("E1E 0001 0000 0004 13D0")
	reset.held = true

	result := orch.Run()
	if !result.IsNgStatus(ucmd.StatusEmcInReset) {
		t.Fatalf("result = %s", result.Format())
	}
	if len(sim.cmds) != 0 {
		t.Errorf("cmds = %v, want no traffic", sim.cmds)
	}
}

func TestRunFullSequence(t *testing.T) {
	version := "E1E 0001 0000 0004 13D0"
	orch, sim, reset, registry := newSimHarness(version)
	sim.targetAddr = 0x1762e8

	result := orch.Run()
	if !result.IsSuccess() {
		t.Fatalf("result = %s", result.Format())
	}
	if !sim.unlocked {
		t.Fatal("device not unlocked")
	}
	if reset.pulses != 0 {
		t.Errorf("reset pulsed %d times on the happy path", reset.pulses)
	}

	fc, _ := registry.Lookup(version)
	want, err := CraftPayload(fc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(sim.placed, want) {
		t.Errorf("placed payload differs:\n got % X\nwant % X", sim.placed, want)
	}

	// 0x1762e8 contains one printable byte (0x62), so the address lands in
	// two passes: a partial one with the low-order bytes zeroed, then the
	// full value.
	if len(sim.passes) != 2 {
		t.Fatalf("passes = %d, want 2", len(sim.passes))
	}
	if !bytes.Equal(sim.passes[0], []byte{0x00, 0x00, 0x17, 0x00}) {
		t.Errorf("partial pass = % X", sim.passes[0])
	}
	if !bytes.Equal(sim.passes[1], []byte{0xe8, 0x62, 0x17, 0x00}) {
		t.Errorf("final pass = % X", sim.passes[1])
	}
}

func TestRunSinglePassForNonPrintableAddr(t *testing.T) {
	orch, sim, _, registry := newSimHarness("TEST FW")
	registry.Set("TEST FW", FwConstants{BufAddr: 0x001716e8, Shellcode: []byte{0x00, 0xbd}})
	sim.targetAddr = 0x001716e8

	result := orch.Run()
	if !result.IsSuccess() {
		t.Fatalf("result = %s", result.Format())
	}
	if len(sim.passes) != 1 {
		t.Fatalf("passes = %d, want 1 for an all-non-printable address", len(sim.passes))
	}
	if !bytes.Equal(sim.passes[0], []byte{0xe8, 0x16, 0x17, 0x00}) {
		t.Errorf("pass = % X", sim.passes[0])
	}
}

func TestRunAbortsOnUnsendableAddr(t *testing.T) {
	orch, sim, _, registry := newSimHarness("TEST FW")
	// 0x000a16e8 carries a 0x0a byte, which the overwrite cannot transport.
	registry.Set("TEST FW", FwConstants{BufAddr: 0x000a16e8, Shellcode: []byte{0x00, 0xbd}})

	result := orch.Run()
	if !result.IsNgStatus(ucmd.StatusFwConstsInvalid) {
		t.Fatalf("result = %s", result.Format())
	}
	if len(sim.passes) != 0 {
		t.Errorf("%d passes sent despite unsendable address", len(sim.passes))
	}
}

func TestRunTriggerFailureForcesReset(t *testing.T) {
	orch, sim, reset, _ := newSimHarness("E1E 0001 0000 0004 13D0")
	sim.targetAddr = 0x1762e8
	sim.overwriteSticks = false

	result := orch.Run()
	if !result.IsNgStatus(ucmd.StatusExploitFailedEmcReset) {
		t.Fatalf("result = %s", result.Format())
	}
	if reset.pulses != 1 {
		t.Errorf("reset pulsed %d times, want 1", reset.pulses)
	}
	if sim.unlocked {
		t.Error("device reported unlocked after a missed overwrite")
	}
}

func TestRunUnknownVersion(t *testing.T) {
	orch, _, _, _ := newSimHarness("E1E 9999 0000 0000 0000")

	result := orch.Run()
	if !result.IsNgStatus(ucmd.StatusFwConstsVersionUnknown) {
		t.Fatalf("result = %s", result.Format())
	}
	if result.Text != "E1E 9999 0000 0000 0000" {
		t.Errorf("text = %q, want the unresolved version string", result.Text)
	}
}

func TestSetChipConsts(t *testing.T) {
	orch, _, _, _ := newSimHarness("E1E 0001 0000 0004 13D0")

	if result := orch.SetChipConsts("picochipconst salina2"); !result.IsSuccess() {
		t.Fatalf("result = %s", result.Format())
	}
	if orch.ChipConsts() != Salina2Consts {
		t.Errorf("chip consts = %+v", orch.ChipConsts())
	}

	if result := orch.SetChipConsts("picochipconst bogus"); !result.IsNgStatus(ucmd.StatusChipConstsInvalid) {
		t.Fatalf("result = %s", result.Format())
	}
	if orch.ChipConsts() != Salina2Consts {
		t.Error("failed command replaced the active constants")
	}
}

func TestSetFwConsts(t *testing.T) {
	orch, _, _, registry := newSimHarness("E1E 0001 0000 0004 13D0")

	result := orch.SetFwConsts("picofwconst MY.FW 1234 00bd")
	if !result.IsSuccess() {
		t.Fatalf("result = %s", result.Format())
	}
	if fc, ok := registry.Lookup("MY FW"); !ok || fc.BufAddr != 0x1234 {
		t.Errorf("registry entry = %+v, %v", fc, ok)
	}

	if result := orch.SetFwConsts("picofwconst broken"); !result.IsNgStatus(ucmd.StatusFwConstsInvalid) {
		t.Fatalf("result = %s", result.Format())
	}
}
