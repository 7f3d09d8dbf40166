package console

import (
	"net"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/salina-uart/internal/ucmd"
)

func newTestModel(t *testing.T) (*Model, net.Conn) {
	t.Helper()
	client, bridgeSide := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		bridgeSide.Close()
	})
	m := newModel("test:0", client)
	m.resize(80, 24)
	return m, bridgeSide
}

func TestEnterSendsCommandLine(t *testing.T) {
	m, bridgeSide := newTestModel(t)
	m.input.SetValue("version")

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := bridgeSide.Read(buf)
		got <- string(buf[:n])
	}()

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(*Model)

	select {
	case line := <-got:
		if line != "version\n" {
			t.Errorf("wire = %q", line)
		}
	case <-time.After(time.Second):
		t.Fatal("nothing written to the bridge")
	}
	if m.input.Value() != "" {
		t.Error("input not cleared after send")
	}
	if len(m.lines) != 1 || !strings.Contains(m.lines[0], "version") {
		t.Errorf("scrollback = %v", m.lines)
	}
}

func TestResultMsgAppendsToScrollback(t *testing.T) {
	m, _ := newTestModel(t)

	updated, cmd := m.Update(resultMsg{res: ucmd.NewOk(0, "E1E 0001 0000 0004 13D0")})
	m = updated.(*Model)
	if cmd == nil {
		t.Error("model stopped waiting for results")
	}
	if len(m.lines) != 1 || !strings.Contains(m.lines[0], "E1E 0001 0000 0004 13D0") {
		t.Errorf("scrollback = %v", m.lines)
	}
}

func TestConnClosedQuits(t *testing.T) {
	m, bridgeSide := newTestModel(t)
	bridgeSide.Close()
	go m.readLoop()

	msg := m.waitForResult()()
	if _, ok := msg.(connClosedMsg); !ok {
		t.Fatalf("msg = %#v, want connClosedMsg", msg)
	}
	_, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatal("no quit command issued")
	}
}

func TestRenderResultKinds(t *testing.T) {
	tests := []struct {
		res  ucmd.Result
		want string
	}{
		{ucmd.NewOk(0, "fine"), "OK 00000000 fine"},
		{ucmd.NewNg(0xF0000006, ""), "NG F0000006"},
		{ucmd.Result{Kind: ucmd.KindComment, Text: "boot"}, "# boot"},
		{ucmd.Result{Kind: ucmd.KindInfo, Text: "[MANU] ON"}, "$$ [MANU] ON"},
		{ucmd.NewTimeout(), "(timeout)"},
		{ucmd.NewUnknown("echo"), "echo"},
	}
	for _, tt := range tests {
		if got := renderResult(tt.res); !strings.Contains(got, tt.want) {
			t.Errorf("renderResult(%+v) = %q, want substring %q", tt.res, got, tt.want)
		}
	}
}
