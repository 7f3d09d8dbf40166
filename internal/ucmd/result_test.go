package ucmd

import (
	"bytes"
	"testing"
)

func TestParseResult(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantKind   Kind
		wantStatus uint32
		wantText   string
	}{
		{
			name:       "ok with text",
			line:       "OK 00000000 E1E 0001 0002 0003 1580",
			wantKind:   KindOk,
			wantStatus: 0,
			wantText:   "E1E 0001 0002 0003 1580",
		},
		{
			name:       "ng with text",
			line:       "NG 00000003 bad arg",
			wantKind:   KindNg,
			wantStatus: 3,
			wantText:   "bad arg",
		},
		{
			name:       "ok without text",
			line:       "OK 00000000",
			wantKind:   KindOk,
			wantStatus: 0,
		},
		{
			name:       "ng unknown command",
			line:       "NG F0000006",
			wantKind:   KindNg,
			wantStatus: StatusUnknownCmd,
		},
		{
			name:       "comment",
			line:       "# [PSQ] [BT WAKE Disabled Start]",
			wantKind:   KindComment,
			wantStatus: InvalidStatus,
			wantText:   "[PSQ] [BT WAKE Disabled Start]",
		},
		{
			name:       "info",
			line:       "$$ [MANU] PG2 ON",
			wantKind:   KindInfo,
			wantStatus: InvalidStatus,
			wantText:   "[MANU] PG2 ON",
		},
		{
			name:       "arbitrary text",
			line:       "hello there",
			wantKind:   KindUnknown,
			wantStatus: InvalidStatus,
			wantText:   "hello there",
		},
		{
			name:       "ok with short status degrades to unknown",
			line:       "OK 0000",
			wantKind:   KindUnknown,
			wantStatus: InvalidStatus,
			wantText:   "OK 0000",
		},
		{
			name:       "ok with non-hex status degrades to unknown",
			line:       "OK 0000000G",
			wantKind:   KindUnknown,
			wantStatus: InvalidStatus,
			wantText:   "OK 0000000G",
		},
		{
			name:       "ok with missing separator degrades to unknown",
			line:       "OK 00000000extra",
			wantKind:   KindUnknown,
			wantStatus: InvalidStatus,
			wantText:   "OK 00000000extra",
		},
		{
			name:       "bare comment marker is unknown",
			line:       "# ",
			wantKind:   KindUnknown,
			wantStatus: InvalidStatus,
			wantText:   "# ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseResult(tt.line)
			if got.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = 0x%08X, want 0x%08X", got.Status, tt.wantStatus)
			}
			if got.Text != tt.wantText {
				t.Errorf("text = %q, want %q", got.Text, tt.wantText)
			}
		})
	}
}

func TestResultFormat(t *testing.T) {
	tests := []struct {
		result Result
		want   string
	}{
		{NewOk(0, "ready"), "OK 00000000 ready"},
		{NewNg(StatusUnknownCmd, ""), "NG F0000006 "},
		{Result{Kind: KindComment, Text: "boot"}, "# boot"},
		{Result{Kind: KindInfo, Text: "PG2 ON"}, "$$ PG2 ON"},
		{NewUnknown("???"), "???"},
		{NewTimeout(), "timeout"},
	}
	for _, tt := range tests {
		if got := tt.result.Format(); got != tt.want {
			t.Errorf("Format() = %q, want %q", got, tt.want)
		}
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	results := []Result{
		NewOk(0xF00D, "serial 12345"),
		NewNg(3, "bad arg"),
		NewOk(0, ""),
		NewUnknown("free text"),
		Result{Kind: KindComment, Status: InvalidStatus, Text: "boot banner"},
		Result{Kind: KindInfo, Status: InvalidStatus, Text: ""},
		NewTimeout(),
	}
	for _, in := range results {
		var stream bytes.Buffer
		stream.Write(in.Encode())
		got, err := DecodeEnvelope(&stream)
		if err != nil {
			t.Errorf("DecodeEnvelope(%v) error: %v", in, err)
			continue
		}
		if got.Kind != in.Kind || got.Text != in.Text {
			t.Errorf("round trip = %+v, want %+v", got, in)
		}
		if in.IsOkOrNg() && got.Status != in.Status {
			t.Errorf("status = 0x%X, want 0x%X", got.Status, in.Status)
		}
	}
}

func TestEnvelopeWireFormat(t *testing.T) {
	// NG, status 3, payload "bad arg": kind 5, length 4+7, status, text.
	got := NewNg(3, "bad arg").Encode()
	want := []byte{
		0x05,
		0x0B, 0x00, 0x00, 0x00,
		0x03, 0x00, 0x00, 0x00,
		'b', 'a', 'd', ' ', 'a', 'r', 'g',
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode() = % X, want % X", got, want)
	}
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	if _, err := DecodeEnvelope(bytes.NewReader([]byte{0xFF, 0, 0, 0, 0})); err == nil {
		t.Error("invalid kind accepted")
	}
	// Ok envelope whose length cannot even hold the status.
	if _, err := DecodeEnvelope(bytes.NewReader([]byte{0x04, 2, 0, 0, 0, 0, 0})); err == nil {
		t.Error("short ok envelope accepted")
	}
}
