package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vibe/internal/logging"
)

// Status is the connection state surfaced to subscribers.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

// ErrNotConnected is returned by Send when the socket is not open. The
// client does not buffer: callers keep the payload and retry after the next
// connected status.
var ErrNotConnected = errors.New("socket: not connected")

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultRetryBaseDelay    = time.Second
	defaultMaxRetries        = 5
	heartbeatFrame           = "ping"
)

type Config struct {
	// BaseURL is the ws:// or wss:// endpoint root.
	BaseURL string
	Token   string
	Origin  string

	HeartbeatInterval time.Duration
	RetryBaseDelay    time.Duration
	MaxRetries        int

	Logger logging.Logger
}

func (c *Config) withDefaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = defaultRetryBaseDelay
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.Logger == nil {
		c.Logger = logging.Nop()
	}
}

// target identifies one logical connection. Connect with the same target is
// a no-op while connected; a different target supersedes the old socket.
type target struct {
	projectID  string
	userID     string
	routingKey string
}

// Client owns one physical websocket at a time: dial, heartbeat, reconnect
// with linear backoff, and raw frame fan-out. It knows nothing about frame
// semantics.
type Client struct {
	cfg Config
	log logging.Logger

	mu          sync.Mutex
	conn        *websocket.Conn
	target      target
	status      Status
	attempt     int
	generation  int
	retryTimer  *time.Timer
	manualClose bool

	// writeMu serializes WriteMessage calls; gorilla allows only one
	// concurrent writer and the heartbeat races user sends otherwise.
	writeMu sync.Mutex

	statusListeners  *listenerSet[Status]
	messageListeners *listenerSet[[]byte]
	errorListeners   *listenerSet[error]
}

func NewClient(cfg Config) *Client {
	cfg.withDefaults()
	return &Client{
		cfg:              cfg,
		log:              cfg.Logger,
		status:           StatusDisconnected,
		statusListeners:  newListenerSet[Status](),
		messageListeners: newListenerSet[[]byte](),
		errorListeners:   newListenerSet[error](),
	}
}

// OnStatus subscribes to connection-state transitions. The returned func
// unsubscribes and is safe to call more than once.
func (c *Client) OnStatus(fn func(Status)) func() { return c.statusListeners.subscribe(fn) }

// OnMessage subscribes to raw inbound frames.
func (c *Client) OnMessage(fn func([]byte)) func() { return c.messageListeners.subscribe(fn) }

// OnError subscribes to transport errors, including the terminal
// retries-exhausted error.
func (c *Client) OnError(fn func(error)) func() { return c.errorListeners.subscribe(fn) }

// Status returns the current connection state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Connect opens the socket for the given project. Already connected to the
// same (projectID, userID, routingKey) it returns immediately; otherwise it
// tears the old socket down first, cancelling its reconnect schedule, so two
// sockets never overlap.
func (c *Client) Connect(ctx context.Context, projectID, userID, routingKey string) error {
	next := target{projectID: projectID, userID: userID, routingKey: routingKey}

	c.mu.Lock()
	if c.status == StatusConnected && c.conn != nil && c.target == next {
		c.mu.Unlock()
		return nil
	}
	c.cancelRetryLocked()
	c.closeConnLocked(websocket.CloseNormalClosure)
	c.target = next
	c.manualClose = false
	c.attempt = 0
	c.setStatusLocked(StatusConnecting)
	c.mu.Unlock()

	return c.dial(ctx, next)
}

// Disconnect shuts the socket down cleanly and disables auto-reconnect until
// the next explicit Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.manualClose = true
	c.cancelRetryLocked()
	c.closeConnLocked(websocket.CloseNormalClosure)
	c.setStatusLocked(StatusDisconnected)
}

// Send writes one text frame. It fails fast when the socket is not open;
// nothing is queued.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	conn := c.conn
	open := c.status == StatusConnected
	c.mu.Unlock()
	if !open || conn == nil {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("socket send: %w", err)
	}
	return nil
}

// SendJSON marshals v and sends it as one frame.
func (c *Client) SendJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("socket encode: %w", err)
	}
	return c.Send(payload)
}

func (c *Client) dial(ctx context.Context, tgt target) error {
	endpoint, err := c.endpoint(tgt)
	if err != nil {
		c.mu.Lock()
		c.setStatusLocked(StatusDisconnected)
		c.mu.Unlock()
		return err
	}

	c.log.Debug("dialing", logging.F("project_id", tgt.projectID), logging.F("attempt", c.attemptNow()))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)

	c.mu.Lock()
	if c.target != tgt || c.manualClose {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return nil
	}
	if err != nil {
		c.mu.Unlock()
		c.errorListeners.dispatch(fmt.Errorf("socket dial: %w", err))
		c.scheduleReconnect(tgt)
		return fmt.Errorf("socket dial: %w", err)
	}

	c.conn = conn
	c.generation++
	gen := c.generation
	c.attempt = 0
	c.setStatusLocked(StatusConnected)
	c.mu.Unlock()

	go c.readLoop(conn, gen, tgt)
	go c.heartbeatLoop(conn, gen)
	c.log.Info("connected", logging.F("project_id", tgt.projectID))
	return nil
}

func (c *Client) endpoint(tgt target) (string, error) {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	u, err := url.Parse(base + "/ws/projects/" + url.PathEscape(tgt.routingKey))
	if err != nil {
		return "", fmt.Errorf("socket endpoint: %w", err)
	}
	q := u.Query()
	q.Set("token", c.cfg.Token)
	q.Set("project_id", tgt.projectID)
	q.Set("user_id", tgt.userID)
	q.Set("origin", c.cfg.Origin)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) readLoop(conn *websocket.Conn, gen int, tgt target) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.handleClosed(conn, gen, tgt, err)
			return
		}
		if s := strings.TrimSpace(string(payload)); s == heartbeatFrame || s == "pong" {
			continue
		}
		c.messageListeners.dispatch(payload)
	}
}

func (c *Client) heartbeatLoop(conn *websocket.Conn, gen int) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		stale := c.generation != gen || c.conn != conn || c.status != StatusConnected
		c.mu.Unlock()
		if stale {
			return
		}
		// Fire and forget; a dead socket surfaces through the read loop.
		c.writeMu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, []byte(heartbeatFrame))
		c.writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

func (c *Client) handleClosed(conn *websocket.Conn, gen int, tgt target, err error) {
	_ = conn.Close()

	c.mu.Lock()
	if c.generation != gen || c.conn != conn {
		// A newer connection superseded this one.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.manualClose || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		c.setStatusLocked(StatusDisconnected)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.log.Warn("connection lost", logging.F("project_id", tgt.projectID), logging.F("error", err))
	c.scheduleReconnect(tgt)
}

// scheduleReconnect arms the next redial with linear backoff. After the
// retry budget is spent the status goes terminally disconnected and stays
// there until the caller invokes Connect again.
func (c *Client) scheduleReconnect(tgt target) {
	c.mu.Lock()
	if c.manualClose || c.target != tgt {
		c.mu.Unlock()
		return
	}
	if c.attempt >= c.cfg.MaxRetries {
		c.setStatusLocked(StatusDisconnected)
		c.mu.Unlock()
		c.errorListeners.dispatch(fmt.Errorf("socket: gave up after %d reconnect attempts", c.cfg.MaxRetries))
		return
	}
	c.attempt++
	attempt := c.attempt
	delay := time.Duration(attempt) * c.cfg.RetryBaseDelay
	c.setStatusLocked(StatusReconnecting)
	c.cancelRetryLocked()
	c.retryTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		stale := c.manualClose || c.target != tgt
		c.mu.Unlock()
		if stale {
			return
		}
		_ = c.dial(context.Background(), tgt)
	})
	c.mu.Unlock()
	c.log.Info("reconnect scheduled", logging.F("attempt", attempt), logging.F("delay", delay))
}

func (c *Client) attemptNow() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

func (c *Client) cancelRetryLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

func (c *Client) closeConnLocked(code int) {
	if c.conn == nil {
		return
	}
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(code, "")
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	c.writeMu.Unlock()
	_ = c.conn.Close()
	c.conn = nil
	c.generation++
}

func (c *Client) setStatusLocked(s Status) {
	if c.status == s {
		return
	}
	c.status = s
	go c.statusListeners.dispatch(s)
}
