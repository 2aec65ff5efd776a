package app

import (
	"vibe/internal/chat"
	"vibe/internal/socket"
	"vibe/internal/types"
)

// Session observer callbacks run on transport goroutines. They are bridged
// into the bubbletea loop with program.Send, so every update below is
// handled on the single Update goroutine.

type sessionMessageMsg struct {
	message types.Message
}

type sessionStateMsg struct {
	state chat.State
}

type previewReadyMsg struct {
	url string
}

type connStatusMsg struct {
	status socket.Status
}

type sessionErrMsg struct {
	err error
}

// sendResultMsg is delivered when an asynchronous prompt send completes.
type sendResultMsg struct {
	err error
}

type stopResultMsg struct {
	err error
}

type historyLoadedMsg struct {
	older bool
	err   error
}

type clearResultMsg struct {
	err error
}

// toastFadeMsg clears the toast notice from the status line.
type toastFadeMsg struct{}
