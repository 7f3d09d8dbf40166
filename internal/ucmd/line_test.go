package ucmd

import (
	"fmt"
	"testing"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		input string
		want  byte
	}{
		{"", 0x00},
		{"version", 0x06},
		{"OK 00000000", 0x3A},
		{"A", 0x41},
	}
	for _, tt := range tests {
		if got := Checksum([]byte(tt.input)); got != tt.want {
			t.Errorf("Checksum(%q) = 0x%02X, want 0x%02X", tt.input, got, tt.want)
		}
	}
}

func TestAppendChecksum(t *testing.T) {
	if got := AppendChecksum("version"); got != "version:06\n" {
		t.Errorf("AppendChecksum(\"version\") = %q", got)
	}
}

func TestValidateLineRoundTrip(t *testing.T) {
	// For any line text, appending its own checksum must validate and strip
	// back to the original text.
	inputs := []string{
		"version",
		"OK 00000000",
		"NG F0000006 unknown command",
		"$$ [MANU] UART CMD READY",
		"# [PSQ] [BT WAKE Disabled Start]",
		":",
		"x",
	}
	for _, in := range inputs {
		wire := fmt.Sprintf("%s:%02X", in, Checksum([]byte(in)))
		got, ok := ValidateLine([]byte(wire))
		if !ok {
			t.Errorf("ValidateLine(%q) failed", wire)
			continue
		}
		if string(got) != in {
			t.Errorf("ValidateLine(%q) = %q, want %q", wire, got, in)
		}
	}
}

func TestValidateLineStripsTrailingCRLF(t *testing.T) {
	got, ok := ValidateLine([]byte("version:06\r"))
	if !ok || string(got) != "version" {
		t.Fatalf("ValidateLine = %q, %v", got, ok)
	}
}

func TestValidateLineRejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"only crlf", "\r\n"},
		{"no checksum field", "version"},
		{"colon not in trailing position", "ver:06sion"},
		{"one hex digit", "version:6"},
		{"three hex digits", "version:006"},
		{"non-hex digits", "version:zz"},
		{"wrong checksum", "version:07"},
		{"bare colon suffix", "version:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := ValidateLine([]byte(tt.line)); ok {
				t.Errorf("ValidateLine(%q) = %q, want rejection", tt.line, got)
			}
		})
	}
}

func TestValidateLineRejectsFlippedChecksumDigits(t *testing.T) {
	base := "getserialno"
	wire := []byte(fmt.Sprintf("%s:%02X", base, Checksum([]byte(base))))
	for i := len(wire) - 2; i < len(wire); i++ {
		for flip := byte(1); flip < 8; flip <<= 1 {
			mutated := append([]byte(nil), wire...)
			mutated[i] ^= flip
			if _, ok := ValidateLine(mutated); ok {
				// A flip may turn a hex digit into another hex digit that
				// decodes differently; either way validation must fail.
				t.Errorf("ValidateLine(%q) accepted mutated checksum", mutated)
			}
		}
	}
}
