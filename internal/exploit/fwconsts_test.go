package exploit

import (
	"bytes"
	"testing"
)

func TestParseFwConstsCommand(t *testing.T) {
	version, fc, ok := ParseFwConstsCommand("picofwconst E1E.0001.0000.0004.13D0 1762e8 00b547f2")
	if !ok {
		t.Fatal("parse failed")
	}
	if version != "E1E 0001 0000 0004 13D0" {
		t.Errorf("version = %q, dots should become spaces", version)
	}
	if fc.BufAddr != 0x1762e8 {
		t.Errorf("addr = %#x", fc.BufAddr)
	}
	if !bytes.Equal(fc.Shellcode, []byte{0x00, 0xb5, 0x47, 0xf2}) {
		t.Errorf("shellcode = % X", fc.Shellcode)
	}
}

func TestParseFwConstsCommandRejects(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
	}{
		{"too few args", "picofwconst E1E 1762e8"},
		{"too many args", "picofwconst E1E 1762e8 00b5 extra"},
		{"bad addr", "picofwconst E1E xyz 00b5"},
		{"addr overflow", "picofwconst E1E 11762e8aa 00b5"},
		{"odd shellcode hex", "picofwconst E1E 1762e8 00b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, ok := ParseFwConstsCommand(tt.cmd); ok {
				t.Errorf("%q parsed, want rejection", tt.cmd)
			}
		})
	}
}

func TestFwRegistryBuiltins(t *testing.T) {
	r := NewFwRegistry()
	fc, ok := r.Lookup("E1E 0001 0000 0004 13D0")
	if !ok {
		t.Fatal("builtin firmware missing")
	}
	if fc.BufAddr != 0x1762e8 {
		t.Errorf("addr = %#x", fc.BufAddr)
	}
	if len(fc.Shellcode) != 44 {
		t.Errorf("shellcode len = %d", len(fc.Shellcode))
	}
	if _, ok := r.Lookup("E1E 9999 0000 0000 0000"); ok {
		t.Error("unknown version resolved")
	}
}

func TestFwRegistrySetOverrides(t *testing.T) {
	r := NewFwRegistry()
	r.Set("E1E 0001 0000 0004 13D0", FwConstants{BufAddr: 0x1234, Shellcode: []byte{1}})
	fc, ok := r.Lookup("E1E 0001 0000 0004 13D0")
	if !ok || fc.BufAddr != 0x1234 {
		t.Fatalf("override not applied: %+v", fc)
	}
}
