package chat

import "time"

// Turn tracks one prompt/response cycle. Code generation and sandbox boot
// are reported on independent, unordered channels with no shared turn id, so
// the preview gate requires both flags for the same turn, and a new turn
// resets everything.
type Turn struct {
	StartedAt      time.Time
	Sending        bool
	Typing         bool
	CodingComplete bool
	SandboxReady   bool
	PreviewURL     string
	Cancelled      bool
	ReadyFired     bool
}

// Ready reports whether the preview is safe to show. Evaluated on every
// relevant state change, never polled.
func (t *Turn) Ready() bool {
	return t.CodingComplete && t.SandboxReady && t.PreviewURL != "" && !t.Cancelled
}

// reset returns the turn to idle. Cancellation stickiness is the caller's
// decision: mid-turn resets keep Cancelled set, a new prompt wipes it.
func (t *Turn) reset(keepCancelled bool) {
	cancelled := t.Cancelled && keepCancelled
	*t = Turn{Cancelled: cancelled}
}

// State is the observable snapshot of a turn handed to subscribers.
type State struct {
	Sending        bool
	Typing         bool
	CodingComplete bool
	SandboxReady   bool
	PreviewURL     string
	Cancelled      bool
}

func (t *Turn) state() State {
	return State{
		Sending:        t.Sending,
		Typing:         t.Typing,
		CodingComplete: t.CodingComplete,
		SandboxReady:   t.SandboxReady,
		PreviewURL:     t.PreviewURL,
		Cancelled:      t.Cancelled,
	}
}
