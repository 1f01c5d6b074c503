// Package tui is a terminal stand-in for the hub: it shows the glyph and the
// status light and turns keys into button presses and force pulses.
package tui

import (
	"bytes"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mission-runner/internal/dispatcher"
	"mission-runner/internal/display"
	"mission-runner/internal/hardware"
	"mission-runner/internal/listener"
	"mission-runner/internal/mission"
	"mission-runner/internal/panel"
)

const maxLogLines = 200

// ViewMsg carries a panel change.
type ViewMsg panel.View

// StatusMsg carries a dispatcher transition.
type StatusMsg dispatcher.Status

// LogMsg is one line of mission output.
type LogMsg string

// DoneMsg reports that the dispatcher stopped.
type DoneMsg struct{ Err error }

type Model struct {
	in     listener.Input
	reg    *mission.Registry
	view   panel.View
	status *dispatcher.Status
	log    []string
	width  int
	height int
	err    error
	done   bool
}

func New(reg *mission.Registry, in listener.Input) Model {
	return Model{in: in, reg: reg, view: panel.View{Glyph: ' '}}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		if m.done {
			return m, nil
		}
		switch msg.String() {
		case "right", "l", "n":
			m.in.Press(hardware.Right)
		case "left", "h", "p":
			m.in.Press(hardware.Left)
		case "enter", " ", "g":
			m.in.Trigger()
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			// partial press, tenths of the sensor range
			m.in.Push(float64(msg.String()[0]-'0') / 10 * panel.DefaultRange)
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case ViewMsg:
		m.view = panel.View(msg)
	case StatusMsg:
		s := dispatcher.Status(msg)
		m.status = &s
	case LogMsg:
		m.log = append(m.log, string(msg))
		if len(m.log) > maxLogLines {
			m.log = m.log[len(m.log)-maxLogLines:]
		}
	case DoneMsg:
		m.done, m.err = true, msg.Err
	}
	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func (m Model) View() string {
	height := m.height
	if height <= 0 {
		height = 30
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("mission runner") + "\n\n")

	selected := -1
	if m.status != nil {
		selected = m.status.Index
	}
	hub := display.FormatPanel(m.view)
	menu := display.FormatCatalog(m.reg, selected)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, hub, "   ", menu) + "\n")
	if m.status != nil {
		b.WriteString(display.FormatStatus(*m.status) + "\n")
	}
	if m.err != nil {
		b.WriteString(mutedStyle.Render("error: "+m.err.Error()) + "\n")
	}

	used := strings.Count(b.String(), "\n") + 3
	logHeight := max(3, height-used)
	b.WriteString("\n")
	lines := m.log
	if len(lines) > logHeight {
		lines = lines[len(lines)-logHeight:]
	}
	for _, line := range lines {
		b.WriteString(line + "\n")
	}
	keys := "keys: left/right (h/l) select, enter/g go, 1-9 partial press, q quit"
	if m.done {
		keys = "dispatcher stopped, q quit"
	}
	b.WriteString(mutedStyle.Render(keys))
	return b.String()
}

// Writer returns an io.Writer that forwards each complete line to p.
func Writer(p *tea.Program) *LineWriter { return &LineWriter{send: func(s string) { p.Send(LogMsg(s)) }} }

// LineWriter splits writes into lines.
type LineWriter struct {
	mu   sync.Mutex
	send func(string)
	buf  []byte
}

func (w *LineWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, b...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.send(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(b), nil
}
