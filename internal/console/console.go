package console

import (
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/muurk/salina-uart/internal/ucmd"
)

const dialTimeout = 5 * time.Second

// resultMsg carries one decoded envelope from the reader goroutine.
type resultMsg struct {
	res ucmd.Result
}

// connClosedMsg ends the session when the bridge goes away.
type connClosedMsg struct {
	err error
}

// Model is the bubbletea model for the console session.
type Model struct {
	addr string
	conn net.Conn

	results chan ucmd.Result
	readErr chan error

	viewport viewport.Model
	input    textinput.Model
	lines    []string
	ready    bool
	closing  error
}

// Run connects to the bridge at addr and drives the console until the
// user quits or the connection drops.
func Run(addr string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("console needs an interactive terminal")
	}

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("connect to bridge: %w", err)
	}
	defer conn.Close()

	m := newModel(addr, conn)
	go m.readLoop()

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(*Model); ok && fm.closing != nil {
		return fmt.Errorf("connection lost: %w", fm.closing)
	}
	return nil
}

func newModel(addr string, conn net.Conn) *Model {
	input := textinput.New()
	input.Prompt = promptStyle.Render("> ")
	input.Placeholder = "command (try: version, unlock)"
	input.Focus()
	return &Model{
		addr:    addr,
		conn:    conn,
		results: make(chan ucmd.Result, 64),
		readErr: make(chan error, 1),
		input:   input,
	}
}

// readLoop decodes envelopes off the socket into the results channel.
func (m *Model) readLoop() {
	for {
		res, err := ucmd.DecodeEnvelope(m.conn)
		if err != nil {
			m.readErr <- err
			return
		}
		m.results <- res
	}
}

func (m *Model) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case res := <-m.results:
			return resultMsg{res: res}
		case err := <-m.readErr:
			return connClosedMsg{err: err}
		}
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForResult())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.input.Reset()
			m.appendLine(sentStyle.Render("> " + line))
			if _, err := m.conn.Write([]byte(line + "\n")); err != nil {
				m.closing = err
				return m, tea.Quit
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case resultMsg:
		m.appendLine(renderResult(msg.res))
		return m, m.waitForResult()

	case connClosedMsg:
		if msg.err != io.EOF {
			m.closing = msg.err
		}
		return m, tea.Quit
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) resize(width, height int) {
	// One line each for the input and the status bar.
	vpHeight := height - 2
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.Width = width - 4
	m.refresh()
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.refresh()
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m *Model) View() string {
	if !m.ready {
		return "connecting..."
	}
	status := statusStyle.
		Width(m.viewport.Width).
		Render(fmt.Sprintf("%s · %d lines · ctrl+c to quit", m.addr, len(m.lines)))
	return m.viewport.View() + "\n" + m.input.View() + "\n" + status
}

// renderResult styles one envelope the way the wire protocol frames it.
func renderResult(res ucmd.Result) string {
	switch res.Kind {
	case ucmd.KindOk:
		return okStyle.Render(res.Format())
	case ucmd.KindNg:
		return ngStyle.Render(res.Format())
	case ucmd.KindComment:
		return commentStyle.Render(res.Format())
	case ucmd.KindInfo:
		return infoStyle.Render(res.Format())
	case ucmd.KindTimeout:
		return timeoutStyle.Render("(timeout)")
	default:
		return res.Format()
	}
}
