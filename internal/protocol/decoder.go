package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"vibe/internal/logging"
	"vibe/internal/types"
)

// EventKind enumerates the semantic signals a decoded frame can carry for
// the turn state machine, separate from whatever messages it produces for
// the message log.
type EventKind int

const (
	EventAssistantContent EventKind = iota
	EventThinking
	EventCodingComplete
	EventInterrupted
	EventAgentFailed
	EventMaxTurns
	EventUpgradeRequired
	EventActionRequired
	EventSandboxUp
	EventSandboxDown
)

type Event struct {
	Kind       EventKind
	Subtype    string
	Status     string
	PreviewURL string
}

// Result is the outcome of decoding one envelope: zero or more messages for
// the log plus zero or more state-machine events. A malformed frame decodes
// to an empty Result, never an error.
type Result struct {
	Messages []types.Message
	Events   []Event
}

func (r *Result) message(m types.Message) { r.Messages = append(r.Messages, m) }
func (r *Result) event(e Event)           { r.Events = append(r.Events, e) }

const (
	interruptionMarker  = "request interrupted by user"
	clearNoticeDefault  = "Conversation history has been cleared"
	revertNotice        = "Version restored"
	maxTurnsContinue    = `The agent hit its turn limit before finishing. Send "continue" to pick up where it left off.`
	unknownToolFallback = "Unknown Tool"
)

// Decoder turns wire envelopes into canonical messages and turn events. It
// is a total function over arbitrary input: malformed frames are logged and
// skipped, never propagated as errors to the read loop.
type Decoder struct {
	log logging.Logger
}

func NewDecoder(log logging.Logger) *Decoder {
	if log == nil {
		log = logging.Nop()
	}
	return &Decoder{log: log}
}

// Decode maps one envelope to its messages and events.
func (d *Decoder) Decode(env types.Envelope) Result {
	var res Result
	switch env.Type {
	case types.FrameUserPrompt:
		d.decodePromptEcho(env, &res)
	case types.FrameModelResponse:
		d.decodeModelResponse(env, &res)
	case types.FrameSandboxStatus:
		d.decodeSandboxStatus(env, &res)
	default:
		d.log.Warn("unknown frame type", logging.F("type", env.Type), logging.F("msg_id", env.MsgID))
	}
	return res
}

// DecodeFrame parses a raw socket frame and decodes it. The heartbeat "ping"
// text frame is not JSON and is handled by the transport before frames reach
// the decoder, so anything non-JSON here is a protocol error.
func (d *Decoder) DecodeFrame(raw []byte) Result {
	var env types.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		d.log.Warn("malformed frame", logging.F("error", err))
		return Result{}
	}
	return d.Decode(env)
}

// decodePromptEcho handles a user-prompt envelope coming back from the
// server, which carries the raw prompt payload rather than an agent message.
func (d *Decoder) decodePromptEcho(env types.Envelope, res *Result) {
	var data types.PromptData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		d.log.Warn("malformed prompt echo", logging.F("msg_id", env.MsgID), logging.F("error", err))
		return
	}
	msg := types.Message{
		ID:        env.MsgID,
		Kind:      types.KindUser,
		Role:      types.RoleUser,
		Content:   data.Prompt,
		Timestamp: env.Time().UnixMilli(),
	}
	if len(data.Images) > 0 {
		msg.Metadata = map[string]any{types.MetaImages: data.Images}
	}
	res.message(msg)
}

func (d *Decoder) decodeModelResponse(env types.Envelope, res *Result) {
	var data types.ResponseData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.AgentMessage == nil {
		d.log.Warn("model response without agent message", logging.F("msg_id", env.MsgID))
		return
	}
	am := data.AgentMessage
	ts := env.Time().UnixMilli()

	switch am.Type {
	case "user":
		d.decodeUserEcho(env, am, res)
	case "system":
		d.decodeSystem(env, am, res)
	case "assistant":
		d.decodeAssistant(env, am, res)
	case "result":
		d.decodeResult(env, am, res)
	case "error":
		d.decodeError(env, am, res)
	case "action":
		res.message(types.Message{
			ID:        env.MsgID,
			Kind:      types.KindAction,
			Role:      types.RoleAssistant,
			Content:   am.Result.String(),
			Timestamp: ts,
			Metadata: map[string]any{
				types.MetaSubtype:  am.Subtype,
				types.MetaActionID: data.ActionID,
			},
		})
		res.event(Event{Kind: EventActionRequired, Subtype: am.Subtype})
	case "status":
		// Typing indicator only, never stored.
		res.event(Event{Kind: EventThinking, Subtype: am.Subtype})
	default:
		// Surface protocol drift instead of dropping it silently.
		res.message(types.Message{
			ID:        env.MsgID,
			Kind:      types.KindSystemNotice,
			Role:      types.RoleSystem,
			Content:   fmt.Sprintf("Unhandled agent message type %q (subtype %q)", am.Type, am.Subtype),
			Timestamp: ts,
			Metadata:  map[string]any{types.MetaSubtype: am.Subtype},
		})
		d.log.Warn("unknown agent message type", logging.F("type", am.Type), logging.F("subtype", am.Subtype))
	}
}

func (d *Decoder) decodeUserEcho(env types.Envelope, am *types.AgentMessage, res *Result) {
	ts := env.Time().UnixMilli()

	// The echo body is either a bare string or an object with a content
	// array. Version rollbacks arrive as an object with revert_version set.
	var asString string
	if err := json.Unmarshal(am.Message, &asString); err == nil {
		res.message(types.Message{
			ID:        env.MsgID,
			Kind:      types.KindUser,
			Role:      types.RoleUser,
			Content:   asString,
			Timestamp: ts,
		})
		return
	}

	var body types.MessageBody
	if err := json.Unmarshal(am.Message, &body); err != nil {
		d.log.Warn("malformed user echo", logging.F("msg_id", env.MsgID), logging.F("error", err))
		return
	}
	if truthy(body.RevertVersion) {
		res.message(types.Message{
			ID:        env.MsgID,
			Kind:      types.KindUser,
			Role:      types.RoleUser,
			Content:   revertNotice,
			Timestamp: ts,
			Metadata:  map[string]any{types.MetaRevertVersion: true, types.MetaProjectID: env.ProjectID},
		})
		return
	}

	content := body.Prompt
	var images []string
	for _, item := range body.Content {
		switch item.Type {
		case "text":
			if content == "" {
				content = item.Text.String()
			}
		case "image", "image_url":
			images = append(images, item.ImageURLs()...)
		}
	}
	msg := types.Message{
		ID:        env.MsgID,
		Kind:      types.KindUser,
		Role:      types.RoleUser,
		Content:   content,
		Timestamp: ts,
	}
	if len(images) > 0 {
		msg.Metadata = map[string]any{types.MetaImages: images, types.MetaProjectID: env.ProjectID}
	}
	res.message(msg)
}

func (d *Decoder) decodeSystem(env types.Envelope, am *types.AgentMessage, res *Result) {
	switch am.Subtype {
	case "init":
		// Session bootstrap chatter, not user-visible.
	case "clear":
		content := am.Result.String()
		if content == "" {
			var asString string
			if err := json.Unmarshal(am.Message, &asString); err == nil {
				content = asString
			}
		}
		if content == "" {
			content = clearNoticeDefault
		}
		res.message(types.Message{
			ID:        env.MsgID,
			Kind:      types.KindSystemNotice,
			Role:      types.RoleSystem,
			Content:   content,
			Timestamp: env.Time().UnixMilli(),
		})
	default:
		d.log.Debug("ignoring system message", logging.F("subtype", am.Subtype))
	}
}

// decodeAssistant fans an assistant content array out into one message per
// item. Every fan-out message shares the envelope's msg_id, so on replay the
// dedup store keeps only the first item for that id. Observed server
// behavior relies on this; do not synthesize per-item ids.
func (d *Decoder) decodeAssistant(env types.Envelope, am *types.AgentMessage, res *Result) {
	var body types.MessageBody
	if err := json.Unmarshal(am.Message, &body); err != nil {
		d.log.Warn("malformed assistant message", logging.F("msg_id", env.MsgID), logging.F("error", err))
		return
	}
	ts := env.Time().UnixMilli()
	interrupted := false
	emitted := 0

	for _, item := range body.Content {
		switch item.Type {
		case "text":
			text := item.Text.String()
			if text == "" {
				continue
			}
			if containsInterruption(text) {
				interrupted = true
			}
			res.message(types.Message{
				ID:        env.MsgID,
				Kind:      types.KindAssistantText,
				Role:      types.RoleAssistant,
				Content:   text,
				Timestamp: ts,
			})
			emitted++
		case "tool_use":
			name := item.Name
			if name == "" {
				name = unknownToolFallback
			}
			res.message(types.Message{
				ID:        env.MsgID,
				Kind:      types.KindToolUse,
				Role:      types.RoleAssistant,
				Content:   "Input:\n" + prettyJSON(item.Input),
				Timestamp: ts,
				Metadata:  map[string]any{types.MetaToolName: name, types.MetaToolID: item.ID},
			})
			emitted++
		case "tool_result":
			content := item.Content.String()
			if content == "" {
				continue
			}
			res.message(types.Message{
				ID:        env.MsgID,
				Kind:      types.KindToolResult,
				Role:      types.RoleAssistant,
				Content:   content,
				Timestamp: ts,
				Metadata:  map[string]any{types.MetaToolID: item.ToolUseID},
			})
			emitted++
		default:
			d.log.Warn("unknown content item type", logging.F("type", item.Type), logging.F("msg_id", env.MsgID))
		}
	}

	if emitted > 0 {
		res.event(Event{Kind: EventAssistantContent})
	}
	if interrupted {
		res.event(Event{Kind: EventInterrupted})
	}
}

func (d *Decoder) decodeResult(env types.Envelope, am *types.AgentMessage, res *Result) {
	ts := env.Time().UnixMilli()
	content := am.Result.String()

	meta := map[string]any{types.MetaSubtype: am.Subtype}
	if am.Usage != nil && am.Usage.OutputTokens > 0 {
		meta[types.MetaTokens] = am.Usage.OutputTokens
	}
	for model := range am.ModelUsage {
		meta[types.MetaModel] = model
		break
	}
	res.message(types.Message{
		ID:        env.MsgID,
		Kind:      types.KindResult,
		Role:      types.RoleAssistant,
		Content:   content,
		Timestamp: ts,
		Metadata:  meta,
	})

	switch {
	case isInterruptionSubtype(am.Subtype) || containsInterruption(content):
		res.event(Event{Kind: EventInterrupted, Subtype: am.Subtype})
	case am.Subtype == "success":
		res.event(Event{Kind: EventCodingComplete})
	case am.Subtype == "error_max_turns":
		res.message(types.Message{
			ID:        env.MsgID + ":continue",
			Kind:      types.KindSystemNotice,
			Role:      types.RoleSystem,
			Content:   maxTurnsContinue,
			Timestamp: ts,
			Metadata:  map[string]any{types.MetaContinueHint: true},
		})
		res.event(Event{Kind: EventMaxTurns, Subtype: am.Subtype})
	case isInsufficientCredits(am.Subtype, content):
		res.event(Event{Kind: EventUpgradeRequired, Subtype: am.Subtype})
	default:
		// failed, error_during_execution and friends.
		res.event(Event{Kind: EventAgentFailed, Subtype: am.Subtype})
	}
}

func (d *Decoder) decodeError(env types.Envelope, am *types.AgentMessage, res *Result) {
	content := am.Result.String()
	if content == "" {
		var asString string
		if err := json.Unmarshal(am.Message, &asString); err == nil {
			content = asString
		}
	}
	if content == "" {
		content = "The agent reported an error."
	}

	msg := types.Message{
		ID:        env.MsgID,
		Kind:      types.KindSystemNotice,
		Role:      types.RoleSystem,
		Content:   content,
		Timestamp: env.Time().UnixMilli(),
		Metadata:  map[string]any{types.MetaSubtype: am.Subtype},
	}
	if isInsufficientCredits(am.Subtype, content) {
		msg.Metadata[types.MetaUpgradeHint] = true
		res.message(msg)
		res.event(Event{Kind: EventUpgradeRequired, Subtype: am.Subtype})
		return
	}
	res.message(msg)
	res.event(Event{Kind: EventAgentFailed, Subtype: am.Subtype})
}

func (d *Decoder) decodeSandboxStatus(env types.Envelope, res *Result) {
	var data types.SandboxData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		d.log.Warn("malformed sandbox status", logging.F("msg_id", env.MsgID), logging.F("error", err))
		return
	}

	switch {
	case isSandboxUp(data.Status):
		res.event(Event{Kind: EventSandboxUp, Status: data.Status, PreviewURL: data.PreviewURL()})
	case isSandboxDown(data.Status):
		res.event(Event{Kind: EventSandboxDown, Status: data.Status})
	}

	if isTransientSandboxStatus(data.Status) {
		return
	}
	content := data.Message
	if content == "" {
		content = "Sandbox " + data.Status
	}
	meta := map[string]any{
		types.MetaSandboxStatus: data.Status,
		types.MetaSandboxID:     data.SandboxID,
	}
	if data.JobID != "" {
		meta[types.MetaJobID] = data.JobID
	}
	if url := data.PreviewURL(); url != "" {
		meta[types.MetaPreviewURL] = url
	}
	if data.StartupInfo != nil && data.StartupInfo.ExpURL != "" {
		meta[types.MetaExpURL] = data.StartupInfo.ExpURL
	}
	res.message(types.Message{
		ID:        env.MsgID,
		Kind:      types.KindSandbox,
		Role:      types.RoleAssistant,
		Content:   content,
		Timestamp: env.Time().UnixMilli(),
		Metadata:  meta,
	})
}

func isSandboxUp(status string) bool {
	switch strings.ToLower(status) {
	case "success", "active", "running":
		return true
	}
	return false
}

func isSandboxDown(status string) bool {
	switch strings.ToLower(status) {
	case "failed", "killed", "error":
		return true
	}
	return false
}

// isTransientSandboxStatus reports whether a sandbox status is setup
// progress chatter that should stay out of the message list.
func isTransientSandboxStatus(status string) bool {
	s := strings.ToLower(status)
	if s == "creating" {
		return true
	}
	for _, marker := range []string{"loading", "starting", "building"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func isInterruptionSubtype(subtype string) bool {
	return subtype == "user_interrupted" || subtype == "user_cancelled"
}

func containsInterruption(text string) bool {
	return strings.Contains(strings.ToLower(text), interruptionMarker)
}

func isInsufficientCredits(subtype, text string) bool {
	if subtype == "insufficient_credits" {
		return true
	}
	lower := strings.ToLower(text)
	return strings.Contains(lower, "insufficient credits") || strings.Contains(lower, "out of credits")
}

func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

func prettyJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(out)
}
