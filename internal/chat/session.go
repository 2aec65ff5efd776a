package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vibe/internal/api"
	"vibe/internal/logging"
	"vibe/internal/protocol"
	"vibe/internal/socket"
	"vibe/internal/types"
)

const defaultPageSize = 20

// ErrUploadFailed aborts a send whose attachments did not all reach object
// storage: a prompt must never go out referencing images the server does not
// have.
var ErrUploadFailed = errors.New("chat: image upload failed")

// ErrEmptyPrompt rejects a send with no text and no images.
var ErrEmptyPrompt = errors.New("chat: empty prompt")

// Transport is the socket surface the session depends on.
type Transport interface {
	Connect(ctx context.Context, projectID, userID, routingKey string) error
	Disconnect()
	SendJSON(v any) error
	Status() socket.Status
	OnMessage(fn func([]byte)) func()
	OnStatus(fn func(socket.Status)) func()
	OnError(fn func(error)) func()
}

// Backend is the REST surface the session depends on.
type Backend interface {
	RoutingKey(ctx context.Context, projectID, device string) (string, error)
	History(ctx context.Context, projectID string, limit, offset int) ([]types.HistoryEvent, bool, error)
	ClearHistory(ctx context.Context, projectID string) error
	StopAgent(ctx context.Context, projectID string) error
	UploadImages(ctx context.Context, projectID string, images []api.ImageFile) (*api.UploadResult, error)
}

type Config struct {
	ProjectID string
	UserID    string
	// Device names the client surface in the routing-key request.
	Device string
	// Model, when set, rides along under options.model on every prompt.
	Model    string
	PageSize int
}

// Session binds the transport, the decoder, the message log and the turn
// state machine for one project conversation. All turn mutation happens
// under one mutex, in arrival order; subscribers are notified outside it.
type Session struct {
	cfg       Config
	backend   Backend
	transport Transport
	decoder   *protocol.Decoder
	log       logging.Logger

	msgs *MessageLog

	mu      sync.Mutex
	turn    Turn
	offset  int
	hasMore bool

	messageObs *observers[types.Message]
	stateObs   *observers[State]
	readyObs   *observers[string]
	connObs    *observers[socket.Status]
	errObs     *observers[error]

	unsubs []func()
}

func NewSession(cfg Config, backend Backend, transport Transport, log logging.Logger) *Session {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if log == nil {
		log = logging.Nop()
	}
	s := &Session{
		cfg:        cfg,
		backend:    backend,
		transport:  transport,
		decoder:    protocol.NewDecoder(log),
		log:        log,
		msgs:       NewMessageLog(),
		hasMore:    true,
		messageObs: newObservers[types.Message](),
		stateObs:   newObservers[State](),
		readyObs:   newObservers[string](),
		connObs:    newObservers[socket.Status](),
		errObs:     newObservers[error](),
	}
	s.unsubs = append(s.unsubs,
		transport.OnMessage(s.handleFrame),
		transport.OnStatus(s.connObs.notify),
		transport.OnError(s.errObs.notify),
	)
	return s
}

// OnMessage subscribes to accepted (non-duplicate) messages.
func (s *Session) OnMessage(fn func(types.Message)) func() { return s.messageObs.add(fn) }

// OnState subscribes to turn-state snapshots, emitted on change.
func (s *Session) OnState(fn func(State)) func() { return s.stateObs.add(fn) }

// OnReady subscribes to the single per-turn preview-ready signal; the value
// is the preview URL.
func (s *Session) OnReady(fn func(string)) func() { return s.readyObs.add(fn) }

// OnConnection subscribes to transport status changes.
func (s *Session) OnConnection(fn func(socket.Status)) func() { return s.connObs.add(fn) }

// OnError subscribes to transport-level errors.
func (s *Session) OnError(fn func(error)) func() { return s.errObs.add(fn) }

// Connect fetches the routing key for the project and opens the socket.
func (s *Session) Connect(ctx context.Context) error {
	key, err := s.backend.RoutingKey(ctx, s.cfg.ProjectID, s.cfg.Device)
	if err != nil {
		return fmt.Errorf("chat: routing key: %w", err)
	}
	return s.transport.Connect(ctx, s.cfg.ProjectID, s.cfg.UserID, key)
}

// Close detaches from the transport and shuts it down.
func (s *Session) Close() {
	for _, off := range s.unsubs {
		off()
	}
	s.transport.Disconnect()
}

// Log exposes the message log for rendering.
func (s *Session) Log() *MessageLog { return s.msgs }

// State returns the current turn snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turn.state()
}

// SendPrompt starts a new turn. Images are uploaded first and any upload
// failure aborts the whole send. On a send error the turn returns to idle so
// the UI never shows a stuck in-progress state; the caller keeps the typed
// text and restores it to the input.
func (s *Session) SendPrompt(ctx context.Context, text string, images []api.ImageFile) error {
	text = strings.TrimSpace(text)
	if text == "" && len(images) == 0 {
		return ErrEmptyPrompt
	}

	var imagePaths []string
	if len(images) > 0 {
		result, err := s.backend.UploadImages(ctx, s.cfg.ProjectID, images)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
		if len(result.Failed) > 0 {
			return fmt.Errorf("%w: %d of %d rejected", ErrUploadFailed, len(result.Failed), len(images))
		}
		for _, img := range result.Success {
			imagePaths = append(imagePaths, img.Path)
		}
	}

	now := time.Now()
	s.mu.Lock()
	s.turn = Turn{StartedAt: now, Sending: true, Typing: true}
	started := s.turn.state()
	s.mu.Unlock()
	s.stateObs.notify(started)

	data, err := json.Marshal(types.PromptData{
		Prompt:  text,
		Images:  imagePaths,
		Options: promptOptions(s.cfg.Model),
	})
	if err != nil {
		s.abortSend()
		return err
	}
	env := types.Envelope{
		Type:      types.FrameUserPrompt,
		MsgID:     uuid.NewString(),
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		UserID:    s.cfg.UserID,
		ProjectID: s.cfg.ProjectID,
		Data:      data,
	}
	if err := s.transport.SendJSON(env); err != nil {
		s.abortSend()
		return err
	}

	local := types.Message{
		ID:        "local_" + uuid.NewString(),
		Kind:      types.KindUser,
		Role:      types.RoleUser,
		Content:   text,
		Timestamp: now.UnixMilli(),
	}
	if len(imagePaths) > 0 {
		local.Metadata = map[string]any{types.MetaImages: imagePaths}
	}
	s.msgs.AppendLocal(local)
	s.messageObs.notify(local)
	return nil
}

// Continue asks the agent to resume after a turn-limit stop.
func (s *Session) Continue(ctx context.Context) error {
	return s.SendPrompt(ctx, "continue", nil)
}

// SkipAction dismisses a pending action request by sending its skip prompt
// as an ordinary turn.
func (s *Session) SkipAction(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		prompt = "Skip this step and continue."
	}
	return s.SendPrompt(ctx, prompt, nil)
}

// Stop cancels the active turn. The server keeps running regardless of what
// it answers here, so cancellation is applied locally whether or not the
// call succeeds; later frames for this turn are stored but drive no
// transitions.
func (s *Session) Stop(ctx context.Context) error {
	err := s.backend.StopAgent(ctx, s.cfg.ProjectID)
	s.mu.Lock()
	s.turn.Cancelled = true
	s.turn.reset(true)
	state := s.turn.state()
	s.mu.Unlock()
	s.stateObs.notify(state)
	return err
}

// LoadHistory fetches the first history page and replaces the log with it.
func (s *Session) LoadHistory(ctx context.Context) error {
	s.mu.Lock()
	limit := s.cfg.PageSize
	s.mu.Unlock()

	events, hasMore, err := s.backend.History(ctx, s.cfg.ProjectID, limit, 0)
	if err != nil {
		return fmt.Errorf("chat: load history: %w", err)
	}
	msgs := s.decoder.DecodeHistory(events, 0)
	s.msgs.Reset(msgs)

	s.mu.Lock()
	s.offset = len(events)
	s.hasMore = hasMore
	s.mu.Unlock()
	return nil
}

// LoadOlder appends the next history page at the tail. A page shorter than
// the limit ends pagination.
func (s *Session) LoadOlder(ctx context.Context) error {
	s.mu.Lock()
	if !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	limit := s.cfg.PageSize
	offset := s.offset
	s.mu.Unlock()

	events, hasMore, err := s.backend.History(ctx, s.cfg.ProjectID, limit, offset)
	if err != nil {
		return fmt.Errorf("chat: load history: %w", err)
	}
	msgs := s.decoder.DecodeHistory(events, offset)
	s.msgs.AppendHistory(msgs)

	s.mu.Lock()
	s.offset = offset + len(events)
	s.hasMore = hasMore
	s.mu.Unlock()
	return nil
}

// HasMoreHistory reports whether another page may exist.
func (s *Session) HasMoreHistory() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// ClearHistory wipes server-side history and the local log.
func (s *Session) ClearHistory(ctx context.Context) error {
	if err := s.backend.ClearHistory(ctx, s.cfg.ProjectID); err != nil {
		return err
	}
	s.msgs.Reset(nil)
	s.mu.Lock()
	s.offset = 0
	s.hasMore = false
	s.mu.Unlock()
	return nil
}

func (s *Session) abortSend() {
	s.mu.Lock()
	s.turn.reset(true)
	state := s.turn.state()
	s.mu.Unlock()
	s.stateObs.notify(state)
}

// handleFrame is the single ingestion point for live frames: decode, store
// what is new, then drive the turn. Messages are stored even for a
// cancelled turn; only the state transitions are suppressed.
func (s *Session) handleFrame(raw []byte) {
	res := s.decoder.DecodeFrame(raw)
	for _, msg := range res.Messages {
		if s.msgs.Append(msg) {
			s.messageObs.notify(msg)
		}
	}
	for _, ev := range res.Events {
		s.applyEvent(ev)
	}
}

func (s *Session) applyEvent(ev protocol.Event) {
	s.mu.Lock()
	before := s.turn.state()
	fireReady := false

	switch ev.Kind {
	case protocol.EventAssistantContent:
		if !s.turn.Cancelled {
			// Server acknowledged the prompt; the agent is now streaming.
			s.turn.Sending = false
		}
	case protocol.EventThinking:
		if !s.turn.Cancelled {
			s.turn.Typing = true
			s.turn.Sending = false
		}
	case protocol.EventCodingComplete:
		if !s.turn.Cancelled {
			s.turn.CodingComplete = true
			s.turn.Typing = true
			s.turn.Sending = false
			// A sandbox success recorded before this point belongs to the
			// previous turn's sandbox; require a fresh one.
			s.turn.SandboxReady = false
			s.turn.PreviewURL = ""
		}
	case protocol.EventSandboxUp:
		if !s.turn.Cancelled && s.turn.CodingComplete && ev.PreviewURL != "" {
			s.turn.SandboxReady = true
			s.turn.PreviewURL = ev.PreviewURL
		}
	case protocol.EventSandboxDown:
		// The generated output is no longer runnable; nothing to gate on.
		s.turn.reset(true)
	case protocol.EventInterrupted:
		s.turn.Cancelled = true
		s.turn.reset(true)
	case protocol.EventAgentFailed, protocol.EventUpgradeRequired:
		s.turn.reset(true)
	case protocol.EventMaxTurns, protocol.EventActionRequired:
		s.turn.Sending = false
		s.turn.Typing = false
	}

	if s.turn.Ready() && !s.turn.ReadyFired {
		s.turn.ReadyFired = true
		s.turn.Typing = false
		s.turn.Sending = false
		fireReady = true
	}
	after := s.turn.state()
	previewURL := s.turn.PreviewURL
	s.mu.Unlock()

	if after != before {
		s.stateObs.notify(after)
	}
	if fireReady {
		s.readyObs.notify(previewURL)
	}
}

func promptOptions(model string) *types.PromptOptions {
	if model == "" {
		return nil
	}
	return &types.PromptOptions{Model: model}
}
