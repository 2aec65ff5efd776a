package types

import (
	"encoding/json"
	"time"
)

// Envelope type codes on the wire.
const (
	FrameUserPrompt    = "100"
	FrameModelResponse = "200"
	FrameSandboxStatus = "300"
)

// Envelope is the versioned wire frame shared by every event, live or
// historical. MsgID is globally unique per logical event and stable across
// retransmission, so it doubles as the dedup key.
type Envelope struct {
	Type      string          `json:"type"`
	MsgID     string          `json:"msg_id"`
	Timestamp string          `json:"timestamp"`
	UserID    string          `json:"user_id,omitempty"`
	ProjectID string          `json:"project_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Time parses the envelope timestamp, falling back to the current time when
// the server sends something unparseable.
func (e Envelope) Time() time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, e.Timestamp); err == nil {
			return t
		}
	}
	return time.Now()
}

// ResponseData is the payload of a model-response envelope. The _id field is
// only populated for action frames, where the server assigns the action a
// correlation id outside the agent message itself.
type ResponseData struct {
	AgentMessage *AgentMessage `json:"agent_message"`
	ActionID     string        `json:"_id,omitempty"`
}

// AgentMessage is the inner discriminated union carried by model-response
// frames: type is one of user, system, assistant, result, error, action,
// status. Message holds the type-specific body and stays raw until the
// decoder knows what shape to expect.
type AgentMessage struct {
	Type       string                     `json:"type"`
	Subtype    string                     `json:"subtype,omitempty"`
	Message    json.RawMessage            `json:"message,omitempty"`
	Result     FlexString                 `json:"result,omitempty"`
	Usage      *Usage                     `json:"usage,omitempty"`
	ModelUsage map[string]json.RawMessage `json:"modelUsage,omitempty"`
}

// MessageBody is the object form of AgentMessage.Message. The user echo can
// also arrive as a bare JSON string; the decoder handles that before
// unmarshalling into this.
type MessageBody struct {
	Content       []ContentItem   `json:"content,omitempty"`
	Prompt        string          `json:"prompt,omitempty"`
	RevertVersion json.RawMessage `json:"revert_version,omitempty"`
}

// ContentItem is one entry of an assistant or user content array.
type ContentItem struct {
	Type      string          `json:"type"`
	Text      FlexString      `json:"text,omitempty"`
	Name      string          `json:"name,omitempty"`
	ID        string          `json:"id,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Content   FlexString      `json:"content,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Image     []string        `json:"image,omitempty"`
	ImageURL  []string        `json:"image_url,omitempty"`
}

// ImageURLs returns the image references from either the current or the
// legacy field name.
func (c ContentItem) ImageURLs() []string {
	if len(c.Image) > 0 {
		return c.Image
	}
	return c.ImageURL
}

type Usage struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// SandboxData is the payload of a sandbox-status envelope.
type SandboxData struct {
	Status      string       `json:"status"`
	SandboxID   string       `json:"sandbox_id,omitempty"`
	JobID       string       `json:"job_id,omitempty"`
	Message     string       `json:"message,omitempty"`
	StartupInfo *StartupInfo `json:"startup_info,omitempty"`
}

type StartupInfo struct {
	WebPreviewURL string `json:"web_preview_url,omitempty"`
	PreviewURL    string `json:"preview_url,omitempty"`
	ExpURL        string `json:"exp_url,omitempty"`
}

// PreviewURL prefers the web preview address over the device one.
func (s SandboxData) PreviewURL() string {
	if s.StartupInfo == nil {
		return ""
	}
	if s.StartupInfo.WebPreviewURL != "" {
		return s.StartupInfo.WebPreviewURL
	}
	return s.StartupInfo.PreviewURL
}

// PromptData is the outbound payload of a user-prompt envelope. Images are
// object-storage URLs, never inline bytes.
type PromptData struct {
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Options *PromptOptions `json:"options,omitempty"`
}

type PromptOptions struct {
	Model string `json:"model,omitempty"`
}

// HistoryEvent is one entry of a history page: the persisted agent message
// plus the envelope fields needed to replay it through the live decoder.
type HistoryEvent struct {
	MsgID        string          `json:"msg_id"`
	Timestamp    string          `json:"timestamp"`
	ProjectID    string          `json:"project_id,omitempty"`
	AgentMessage json.RawMessage `json:"agent_message"`
}

// FlexString decodes a JSON value that is usually a string but occasionally
// arrives as something else; non-string values keep their compact JSON text.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	*f = FlexString(data)
	return nil
}

func (f FlexString) String() string { return string(f) }
