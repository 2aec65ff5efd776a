package app

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vibe/internal/chat"
	"vibe/internal/logging"
	"vibe/internal/socket"
)

const toastDuration = 3 * time.Second

// chrome rows around the viewport: header, activity line, input, help.
const chromeLines = 4

// Model is the top-level bubbletea model for the chat screen. All session
// callbacks arrive as tea messages, so no field needs a mutex.
type Model struct {
	session     *chat.Session
	projectName string
	log         logging.Logger

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	width  int
	height int
	sized  bool

	state      chat.State
	conn       socket.Status
	previewURL string
	follow     bool

	toastText  string
	toastError bool

	quitting bool
}

func newModel(session *chat.Session, projectName string, log logging.Logger) Model {
	input := textinput.New()
	input.Placeholder = "Describe what you want to build"
	input.Prompt = "> "
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	spin.Style = activityStyle

	return Model{
		session:     session,
		projectName: projectName,
		log:         log,
		input:       input,
		spin:        spin,
		conn:        socket.StatusDisconnected,
		follow:      true,
	}
}

// Init connects the session in the background so the UI is responsive
// while the routing key handshake and history load are in flight.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick, m.connectCmd(), m.loadHistoryCmd(false))
}

func (m Model) connectCmd() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		if err := session.Connect(context.Background()); err != nil {
			return sessionErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) loadHistoryCmd(older bool) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		var err error
		if older {
			err = session.LoadOlder(context.Background())
		} else {
			err = session.LoadHistory(context.Background())
		}
		return historyLoadedMsg{older: older, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.applyLayout()
		m.refreshTranscript()
		return m, nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case sessionMessageMsg:
		m.refreshTranscript()
		return m, nil

	case sessionStateMsg:
		m.state = msg.state
		return m, nil

	case previewReadyMsg:
		m.previewURL = msg.url
		return m.showToast("preview ready: "+msg.url, false)

	case connStatusMsg:
		m.conn = msg.status
		if msg.status == socket.StatusDisconnected && !m.quitting {
			return m.showToast("connection lost", true)
		}
		return m, nil

	case sessionErrMsg:
		if msg.err == nil {
			return m, nil
		}
		return m.showToast(msg.err.Error(), true)

	case sendResultMsg:
		if msg.err != nil {
			return m.showToast(msg.err.Error(), true)
		}
		return m, nil

	case stopResultMsg:
		if msg.err != nil {
			return m.showToast("stop failed: "+msg.err.Error(), true)
		}
		return m.showToast("generation stopped", false)

	case historyLoadedMsg:
		if msg.err != nil {
			return m.showToast("history: "+msg.err.Error(), true)
		}
		m.refreshTranscript()
		return m, nil

	case clearResultMsg:
		if msg.err != nil {
			return m.showToast("clear failed: "+msg.err.Error(), true)
		}
		m.refreshTranscript()
		return m, nil

	case toastFadeMsg:
		m.toastText = ""
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyEnter:
		return m.submitPrompt()

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		// Scrolling past the top pulls the next history page.
		if msg.Type == tea.KeyPgUp && m.viewport.AtTop() && m.session.HasMoreHistory() {
			return m, tea.Batch(cmd, m.loadHistoryCmd(true))
		}
		return m, cmd

	case tea.KeyCtrlX:
		session := m.session
		return m, func() tea.Msg {
			return stopResultMsg{err: session.Stop(context.Background())}
		}

	case tea.KeyCtrlP:
		if m.previewURL == "" {
			return m.showToast("no preview yet", true)
		}
		if err := copyTextToClipboard(m.previewURL); err != nil {
			return m.showToast("copy failed: "+err.Error(), true)
		}
		return m.showToast("preview URL copied", false)

	case tea.KeyCtrlL:
		session := m.session
		return m, func() tea.Msg {
			return clearResultMsg{err: session.ClearHistory(context.Background())}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submitPrompt() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.state.Sending || m.state.Typing {
		return m.showToast("agent is still working, ctrl+x to stop", true)
	}
	m.input.Reset()
	m.follow = true
	session := m.session
	return m, func() tea.Msg {
		return sendResultMsg{err: session.SendPrompt(context.Background(), text, nil)}
	}
}

func (m *Model) applyLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	bodyHeight := m.height - chromeLines
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	if !m.sized {
		m.viewport = viewport.New(m.width, bodyHeight)
		m.sized = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = bodyHeight
	}
	m.input.Width = m.width - len(m.input.Prompt) - 1
}

func (m *Model) refreshTranscript() {
	if !m.sized {
		return
	}
	content := renderTranscript(m.session.Log().Messages(), m.viewport.Width, time.Now())
	m.viewport.SetContent(content)
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) showToast(text string, isError bool) (tea.Model, tea.Cmd) {
	m.toastText = text
	m.toastError = isError
	return m, tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastFadeMsg{}
	})
}

func (m Model) View() string {
	if !m.sized {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.headerLine())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.activityLine())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.helpLine())
	return b.String()
}

func (m Model) headerLine() string {
	title := headerStyle.Render("vibe") + statusStyle.Render(" · "+m.projectName)
	conn := m.connLabel()
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(conn)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + conn
}

func (m Model) connLabel() string {
	switch m.conn {
	case socket.StatusConnected:
		return connectedStyle.Render("connected")
	case socket.StatusConnecting:
		return reconnectingStyle.Render("connecting")
	case socket.StatusReconnecting:
		return reconnectingStyle.Render("reconnecting")
	default:
		return disconnectedStyle.Render("disconnected")
	}
}

func (m Model) activityLine() string {
	if m.toastText != "" {
		style := toastInfoStyle
		if m.toastError {
			style = toastErrorStyle
		}
		return style.Render(" " + m.toastText + " ")
	}
	switch {
	case m.state.Sending:
		return m.spin.View() + activityStyle.Render("sending...")
	case m.state.Typing:
		return m.spin.View() + activityStyle.Render("agent is working...")
	case m.state.CodingComplete && m.previewURL == "":
		return m.spin.View() + activityStyle.Render("building preview...")
	case m.previewURL != "":
		return statusStyle.Render("preview: ") + previewStyle.Render(m.previewURL)
	}
	return ""
}

func (m Model) helpLine() string {
	return helpStyle.Render("enter send · ctrl+x stop · ctrl+p copy preview · pgup older · ctrl+l clear · esc quit")
}
