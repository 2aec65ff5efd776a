package chat

import (
	"sync"
	"time"

	"vibe/internal/types"
)

// echoWindow bounds how far apart an optimistic local user message and its
// server echo may be to reconcile them as one message.
const echoWindow = 5 * time.Second

// MessageLog is the insertion-ordered, deduplicated message collection. Live
// messages go to the head (newest first, matching an inverted list render);
// history pages append at the tail in server order. The id check is
// first-wins: a replayed id never overwrites what is already stored.
type MessageLog struct {
	mu       sync.Mutex
	messages []types.Message
	ids      map[string]struct{}
}

func NewMessageLog() *MessageLog {
	return &MessageLog{ids: make(map[string]struct{})}
}

// Append inserts a live message at the head. Returns false without mutation
// when the id is already present. A server echo of a recent optimistic local
// user message replaces that local entry in place instead of duplicating it.
func (l *MessageLog) Append(msg types.Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.ids[msg.ID]; dup {
		return false
	}
	if msg.Kind == types.KindUser {
		if i := l.findLocalEchoLocked(msg); i >= 0 {
			delete(l.ids, l.messages[i].ID)
			l.messages[i] = msg
			l.ids[msg.ID] = struct{}{}
			return true
		}
	}
	l.ids[msg.ID] = struct{}{}
	l.messages = append([]types.Message{msg}, l.messages...)
	return true
}

// AppendLocal inserts an optimistic user message at the head. The id must be
// locally synthesized; the message is marked so a later server echo can
// reconcile against it.
func (l *MessageLog) AppendLocal(msg types.Message) {
	if msg.Metadata == nil {
		msg.Metadata = map[string]any{}
	}
	msg.Metadata[types.MetaLocalEcho] = true
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids[msg.ID] = struct{}{}
	l.messages = append([]types.Message{msg}, l.messages...)
}

// AppendHistory adds a page of historical messages at the tail, applying the
// same per-id dedup in page order.
func (l *MessageLog) AppendHistory(msgs []types.Message) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	added := 0
	for _, msg := range msgs {
		if _, dup := l.ids[msg.ID]; dup {
			continue
		}
		l.ids[msg.ID] = struct{}{}
		l.messages = append(l.messages, msg)
		added++
	}
	return added
}

// Reset replaces the whole log with an initial history page.
func (l *MessageLog) Reset(msgs []types.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
	l.ids = make(map[string]struct{})
	for _, msg := range msgs {
		if _, dup := l.ids[msg.ID]; dup {
			continue
		}
		l.ids[msg.ID] = struct{}{}
		l.messages = append(l.messages, msg)
	}
}

// Messages returns a snapshot, newest first.
func (l *MessageLog) Messages() []types.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *MessageLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

// Contains reports whether an id is already stored.
func (l *MessageLog) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok
}

// findLocalEchoLocked matches a server user echo to a pending optimistic
// message by content and timestamp proximity, not id: the server assigns its
// own msg_id and never sees the local one.
func (l *MessageLog) findLocalEchoLocked(msg types.Message) int {
	for i, existing := range l.messages {
		if !existing.MetaBool(types.MetaLocalEcho) || existing.Kind != types.KindUser {
			continue
		}
		if existing.Content != msg.Content {
			continue
		}
		delta := msg.Timestamp - existing.Timestamp
		if delta < 0 {
			delta = -delta
		}
		if time.Duration(delta)*time.Millisecond <= echoWindow {
			return i
		}
	}
	return -1
}
