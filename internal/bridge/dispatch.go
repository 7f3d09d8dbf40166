package bridge

import (
	"encoding/hex"
	"strings"

	"github.com/muurk/salina-uart/internal/ucmd"
)

type cmdClass int

const (
	classPassthrough cmdClass = iota
	classUnlock
	classReset
	classEmcReset
	classEmcRom
	classFwConst
	classChipConst
)

// classify decides whether a host line is handled locally or forwarded to
// the device. Matching is by fixed prefix, so trailing arguments (or junk)
// never demote a maintenance command to passthrough. Anything unrecognized
// is passthrough; the device's own unknown-command error is the answer for
// typos.
func classify(line string) (cmdClass, string) {
	if strings.HasPrefix(line, "unlock") {
		return classUnlock, ""
	}
	if rest, ok := strings.CutPrefix(line, "picoemcreset"); ok {
		return classEmcReset, strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutPrefix(line, "picoemcrom"); ok {
		return classEmcRom, strings.TrimSpace(rest)
	}
	if strings.HasPrefix(line, "picoreset") {
		return classReset, ""
	}
	if strings.HasPrefix(line, "picofwconst") {
		return classFwConst, ""
	}
	if strings.HasPrefix(line, "picochipconst") {
		return classChipConst, ""
	}
	return classPassthrough, ""
}

// dispatch handles one host command line.
func (b *Bridge) dispatch(line string) {
	line = strings.TrimRight(line, "\r")
	class, arg := classify(line)

	if class == classPassthrough {
		if b.inRom {
			raw, err := hex.DecodeString(line)
			if err != nil {
				b.respond(line, ucmd.NewNg(ucmd.StatusEINVAL, "not valid hex"))
				return
			}
			if err := b.client.WriteRaw(raw); err != nil {
				b.respond(line, ucmd.NewNg(ucmd.StatusEINVAL, err.Error()))
			}
			return
		}
		// The device echoes the line itself; the echo reaches the host
		// through the normal pump.
		b.client.Send(line, false)
		return
	}

	// Locally handled commands never reach the device, so the bridge
	// synthesizes the echo the host would otherwise see.
	b.writeHost(ucmd.NewUnknown(line).Encode())

	var result ucmd.Result
	switch class {
	case classUnlock:
		result = b.orch.Run()
	case classReset:
		b.writeHost(ucmd.NewSuccess().Encode())
		if b.onShutdown != nil {
			b.onShutdown()
		}
		return
	case classEmcReset:
		result = b.setEmcReset(arg)
	case classEmcRom:
		result = b.setRomMode(arg)
	case classFwConst:
		result = b.orch.SetFwConsts(line)
	case classChipConst:
		result = b.orch.SetChipConsts(line)
	}
	b.writeHost(result.Encode())
}

// respond emits the synthesized echo plus a terminal result for a command
// the bridge answered itself.
func (b *Bridge) respond(line string, result ucmd.Result) {
	b.writeHost(ucmd.NewUnknown(line).Encode())
	b.writeHost(result.Encode())
}

// setEmcReset drives the reset line. The bare command is a pulse; an
// explicit 1 or 0 holds or releases the line for manual control.
func (b *Bridge) setEmcReset(arg string) ucmd.Result {
	var err error
	switch arg {
	case "":
		b.emc.Pulse()
	case "1":
		err = b.emc.HoldReset()
	case "0":
		err = b.emc.ReleaseReset()
	default:
		return ucmd.NewNg(ucmd.StatusEINVAL, "want no argument, 0 or 1")
	}
	if err != nil {
		return ucmd.NewNg(ucmd.StatusEINVAL, err.Error())
	}
	return ucmd.NewSuccess()
}

func (b *Bridge) setRomMode(arg string) ucmd.Result {
	switch arg {
	case "enter", "1":
		return b.enterRom()
	case "exit", "0":
		return b.exitRom()
	}
	return ucmd.NewNg(ucmd.StatusEINVAL, "want enter or exit")
}
