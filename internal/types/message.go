package types

// Kind classifies a decoded message for the render layer.
type Kind string

const (
	KindUser          Kind = "user"
	KindSystemNotice  Kind = "system_notice"
	KindAssistantText Kind = "assistant_text"
	KindToolUse       Kind = "assistant_tool_use"
	KindToolResult    Kind = "assistant_tool_result"
	KindResult        Kind = "result"
	KindSandbox       Kind = "sandbox"
	KindAction        Kind = "action"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Metadata keys used on Message. Kept as constants so the store, the session
// and the UI agree on spelling.
const (
	MetaRevertVersion = "revertVersion"
	MetaToolName      = "toolName"
	MetaToolID        = "toolId"
	MetaSubtype       = "subtype"
	MetaActionID      = "actionId"
	MetaSandboxStatus = "sandboxStatus"
	MetaSandboxID     = "sandboxId"
	MetaJobID         = "jobId"
	MetaPreviewURL    = "previewUrl"
	MetaExpURL        = "expUrl"
	MetaImages        = "images"
	MetaProjectID     = "projectId"
	MetaTokens        = "tokens"
	MetaModel         = "model"
	MetaUpgradeHint   = "isUpgradeHint"
	MetaContinueHint  = "isContinueHint"
	MetaLocalEcho     = "localEcho"
)

// Message is the canonical client-level message. ID equals the envelope's
// msg_id except for locally synthesized messages. Messages are immutable
// once inserted into the log.
type Message struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp int64          `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Meta returns the metadata value for key, or nil.
func (m *Message) Meta(key string) any {
	if m.Metadata == nil {
		return nil
	}
	return m.Metadata[key]
}

// MetaBool reports whether the metadata key holds true.
func (m *Message) MetaBool(key string) bool {
	v, _ := m.Meta(key).(bool)
	return v
}

// MetaString returns the metadata value for key as a string.
func (m *Message) MetaString(key string) string {
	v, _ := m.Meta(key).(string)
	return v
}
