package display

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mcdev12/stagetimer/go/internal/countdown"
	"github.com/mcdev12/stagetimer/go/internal/models"
)

// FrameMsg carries one projected frame into the TUI
type FrameMsg struct {
	Frame    countdown.Frame
	OffsetMs int64
	Synced   bool
}

// Model is the terminal display state
type Model struct {
	serverName string

	frame    countdown.Frame
	offsetMs int64
	synced   bool
	frames   int64

	showDebug bool

	width  int
	height int
}

// NewModel creates a display model for the given server
func NewModel(serverName string) Model {
	return Model{serverName: serverName}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case FrameMsg:
		m.applyFrame(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString(m.renderClock())
	if m.showDebug {
		b.WriteString(m.renderDebug())
	}
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderHeader() string {
	server := m.serverName
	if server == "" {
		server = "(unknown)"
	}

	syncText := "Not synced (offset 0ms)"
	if m.synced {
		syncText = fmt.Sprintf("Synced (offset %+dms)", m.offsetMs)
	}

	return fmt.Sprintf(`┌─ Stage Timer ────────────────────────────────────────┐
│ Server: %-44s │
│ Clock:  %-44s │
├──────────────────────────────────────────────────────┤
`, truncate(server, 44), syncText)
}

func (m Model) renderClock() string {
	status := "waiting for timer"
	if m.frame.Ready() {
		status = strings.ToUpper(string(m.frame.Status))
	}
	if m.frame.Remaining == 0 && m.frame.Status == models.TimerStatusRunning {
		status = "TIME UP"
	}

	s := "│                                                      │\n"
	s += fmt.Sprintf("│ %s │\n", center(m.frame.Clock(), 52))
	s += fmt.Sprintf("│ %s │\n", center(status, 52))
	s += "│                                                      │\n"

	if m.frame.Stale {
		s += fmt.Sprintf("│ %-52s │\n", "! connection lost, showing last known timer")
	}
	return s
}

func (m Model) renderDebug() string {
	errText := "none"
	if m.frame.Err != nil {
		errText = truncate(m.frame.Err.Error(), 44)
	}
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ DEBUG:                                               │
│   Frames: %-42d │
│   Error:  %-42s │
`, m.frames, errText)
}

func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ d:Debug  q:Quit                                      │
└──────────────────────────────────────────────────────┘
`
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	}
	return m, nil
}

func (m *Model) applyFrame(msg FrameMsg) {
	m.frame = msg.Frame
	m.offsetMs = msg.OffsetMs
	m.synced = msg.Synced
	m.frames++
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-len(s)-left)
}
