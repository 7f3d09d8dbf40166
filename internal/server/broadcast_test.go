package server

import (
	"bytes"
	"errors"
	"testing"
)

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) { return 0, errors.New("broken pipe") }

func TestBroadcastFansOut(t *testing.T) {
	b := NewBroadcast()
	var a, c bytes.Buffer
	b.Attach(&a)
	b.Attach(&c)

	if _, err := b.Write([]byte("hi")); err != nil {
		t.Fatal(err)
	}
	if a.String() != "hi" || c.String() != "hi" {
		t.Errorf("sinks = %q, %q", a.String(), c.String())
	}
}

func TestBroadcastDiscardsWithNoSinks(t *testing.T) {
	b := NewBroadcast()
	n, err := b.Write([]byte("lost"))
	if err != nil || n != 2 {
		t.Fatalf("n, err = %d, %v", n, err)
	}
}

func TestBroadcastDropsFailingSink(t *testing.T) {
	b := NewBroadcast()
	var good bytes.Buffer
	b.Attach(failWriter{})
	b.Attach(&good)

	_, _ = b.Write([]byte("x"))
	if b.Sinks() != 1 {
		t.Fatalf("sinks = %d, want the failing one dropped", b.Sinks())
	}
	_, _ = b.Write([]byte("y"))
	if good.String() != "xy" {
		t.Errorf("surviving sink = %q", good.String())
	}
}

func TestBroadcastDetach(t *testing.T) {
	b := NewBroadcast()
	var a bytes.Buffer
	b.Attach(&a)
	b.Detach(&a)
	_, _ = b.Write([]byte("z"))
	if a.Len() != 0 {
		t.Errorf("detached sink received %q", a.String())
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"version\n", []string{"version"}},
		{"version", []string{"version"}},
		{"a\nb\n", []string{"a", "b"}},
		{"a\n\nb", []string{"a", "b"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := splitLines([]byte(tt.in))
		if len(got) != len(tt.want) {
			t.Errorf("splitLines(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitLines(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
