package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"vibe/internal/chat"
	"vibe/internal/logging"
	"vibe/internal/socket"
	"vibe/internal/types"
)

// Run drives the chat screen until the user quits. Session observers feed
// the bubbletea loop through program.Send, which is safe from any goroutine.
func Run(session *chat.Session, projectName string, log logging.Logger) error {
	model := newModel(session, projectName, log)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	unsubs := []func(){
		session.OnMessage(func(msg types.Message) {
			program.Send(sessionMessageMsg{message: msg})
		}),
		session.OnState(func(state chat.State) {
			program.Send(sessionStateMsg{state: state})
		}),
		session.OnReady(func(url string) {
			program.Send(previewReadyMsg{url: url})
		}),
		session.OnConnection(func(status socket.Status) {
			program.Send(connStatusMsg{status: status})
		}),
		session.OnError(func(err error) {
			program.Send(sessionErrMsg{err: err})
		}),
	}
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	_, err := program.Run()
	return err
}
