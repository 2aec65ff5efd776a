package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"vibe/internal/logging"
	"vibe/internal/types"
)

func testDecoder() *Decoder {
	return NewDecoder(logging.Nop())
}

func modelResponse(t *testing.T, msgID string, agentMessage string) types.Envelope {
	t.Helper()
	data := `{"agent_message":` + agentMessage + `}`
	if !json.Valid([]byte(data)) {
		t.Fatalf("invalid test payload: %s", data)
	}
	return types.Envelope{
		Type:      types.FrameModelResponse,
		MsgID:     msgID,
		Timestamp: "2026-08-01T10:00:00Z",
		ProjectID: "proj-1",
		Data:      json.RawMessage(data),
	}
}

func TestDecodeNeverFailsOnMalformedInput(t *testing.T) {
	d := testDecoder()
	cases := []types.Envelope{
		{},
		{Type: "999", MsgID: "a"},
		{Type: types.FrameModelResponse, MsgID: "b"},
		{Type: types.FrameModelResponse, MsgID: "c", Data: json.RawMessage(`"not an object"`)},
		{Type: types.FrameModelResponse, MsgID: "d", Data: json.RawMessage(`{"agent_message":null}`)},
		{Type: types.FrameSandboxStatus, MsgID: "e", Data: json.RawMessage(`[1,2,3]`)},
		{Type: types.FrameUserPrompt, MsgID: "f", Data: json.RawMessage(`42`)},
	}
	for i, env := range cases {
		res := d.Decode(env)
		if len(res.Messages) != 0 || len(res.Events) != 0 {
			t.Fatalf("case %d: expected empty result, got %d messages %d events", i, len(res.Messages), len(res.Events))
		}
	}
}

func TestDecodeFrameRejectsNonJSON(t *testing.T) {
	d := testDecoder()
	res := d.DecodeFrame([]byte("ping"))
	if len(res.Messages) != 0 || len(res.Events) != 0 {
		t.Fatalf("expected empty result for non-JSON frame")
	}
}

func TestDecodeUserEchoStringForm(t *testing.T) {
	d := testDecoder()
	env := modelResponse(t, "m1", `{"type":"user","message":"build a todo app"}`)
	res := d.Decode(env)
	if len(res.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(res.Messages))
	}
	msg := res.Messages[0]
	if msg.Kind != types.KindUser || msg.Role != types.RoleUser {
		t.Fatalf("expected user message, got kind=%s role=%s", msg.Kind, msg.Role)
	}
	if msg.Content != "build a todo app" {
		t.Fatalf("expected verbatim echo, got %q", msg.Content)
	}
	if msg.ID != "m1" {
		t.Fatalf("expected envelope msg_id, got %q", msg.ID)
	}
}

func TestDecodeUserEchoRevertVersion(t *testing.T) {
	d := testDecoder()
	env := modelResponse(t, "m2", `{"type":"user","message":{"revert_version":7}}`)
	res := d.Decode(env)
	if len(res.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(res.Messages))
	}
	msg := res.Messages[0]
	if msg.Content != "Version restored" {
		t.Fatalf("expected fixed revert notice, got %q", msg.Content)
	}
	if !msg.MetaBool(types.MetaRevertVersion) {
		t.Fatalf("expected revertVersion metadata")
	}
}

func TestDecodeUserEchoContentArrayWithImages(t *testing.T) {
	d := testDecoder()
	env := modelResponse(t, "m3", `{"type":"user","message":{"content":[
		{"type":"text","text":"make it blue"},
		{"type":"image","image":["https://cdn/img1.png","https://cdn/img2.png"]}
	]}}`)
	res := d.Decode(env)
	if len(res.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(res.Messages))
	}
	msg := res.Messages[0]
	if msg.Content != "make it blue" {
		t.Fatalf("expected text content, got %q", msg.Content)
	}
	images, ok := msg.Meta(types.MetaImages).([]string)
	if !ok || len(images) != 2 {
		t.Fatalf("expected 2 image urls, got %v", msg.Meta(types.MetaImages))
	}
}

func TestDecodeSystemInitDropped(t *testing.T) {
	d := testDecoder()
	res := d.Decode(modelResponse(t, "m4", `{"type":"system","subtype":"init","message":{}}`))
	if len(res.Messages) != 0 {
		t.Fatalf("expected init to be dropped, got %d messages", len(res.Messages))
	}
}

func TestDecodeSystemClearDefaultNotice(t *testing.T) {
	d := testDecoder()
	res := d.Decode(modelResponse(t, "m5", `{"type":"system","subtype":"clear"}`))
	if len(res.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(res.Messages))
	}
	msg := res.Messages[0]
	if msg.Kind != types.KindSystemNotice {
		t.Fatalf("expected system notice, got %s", msg.Kind)
	}
	if msg.Content != "Conversation history has been cleared" {
		t.Fatalf("unexpected clear notice: %q", msg.Content)
	}
}

func TestDecodeAssistantFanOutSharesMsgID(t *testing.T) {
	d := testDecoder()
	env := modelResponse(t, "m6", `{"type":"assistant","message":{"content":[
		{"type":"text","text":"Working on it."},
		{"type":"tool_use","id":"tool-1","name":"write_file","input":{"path":"app.tsx"}},
		{"type":"tool_result","tool_use_id":"tool-1","content":"wrote 120 bytes"}
	]}}`)
	res := d.Decode(env)
	if len(res.Messages) != 3 {
		t.Fatalf("expected 3 fan-out messages, got %d", len(res.Messages))
	}
	for i, msg := range res.Messages {
		if msg.ID != "m6" {
			t.Fatalf("fan-out message %d has id %q, expected shared envelope id", i, msg.ID)
		}
	}
	if res.Messages[0].Kind != types.KindAssistantText {
		t.Fatalf("expected assistant_text first, got %s", res.Messages[0].Kind)
	}
	tu := res.Messages[1]
	if tu.Kind != types.KindToolUse {
		t.Fatalf("expected tool_use second, got %s", tu.Kind)
	}
	if !strings.HasPrefix(tu.Content, "Input:\n") || !strings.Contains(tu.Content, `"path": "app.tsx"`) {
		t.Fatalf("unexpected tool_use content: %q", tu.Content)
	}
	if tu.MetaString(types.MetaToolName) != "write_file" || tu.MetaString(types.MetaToolID) != "tool-1" {
		t.Fatalf("unexpected tool_use metadata: %v", tu.Metadata)
	}
	tr := res.Messages[2]
	if tr.Kind != types.KindToolResult || tr.MetaString(types.MetaToolID) != "tool-1" {
		t.Fatalf("unexpected tool_result: kind=%s meta=%v", tr.Kind, tr.Metadata)
	}
	if len(res.Events) != 1 || res.Events[0].Kind != EventAssistantContent {
		t.Fatalf("expected a single assistant-content event, got %v", res.Events)
	}
}

func TestDecodeAssistantInterruptionMarker(t *testing.T) {
	d := testDecoder()
	env := modelResponse(t, "m7", `{"type":"assistant","message":{"content":[
		{"type":"text","text":"Request interrupted by user"}
	]}}`)
	res := d.Decode(env)
	var sawInterrupt bool
	for _, ev := range res.Events {
		if ev.Kind == EventInterrupted {
			sawInterrupt = true
		}
	}
	if !sawInterrupt {
		t.Fatalf("expected interruption event, got %v", res.Events)
	}
}

func TestDecodeResultSuccess(t *testing.T) {
	d := testDecoder()
	env := modelResponse(t, "m8", `{"type":"result","subtype":"success","result":"All done","usage":{"output_tokens":420},"modelUsage":{"sonnet":{}}}`)
	res := d.Decode(env)
	if len(res.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(res.Messages))
	}
	msg := res.Messages[0]
	if msg.Kind != types.KindResult || msg.Content != "All done" {
		t.Fatalf("unexpected result message: kind=%s content=%q", msg.Kind, msg.Content)
	}
	if tokens, _ := msg.Meta(types.MetaTokens).(int); tokens != 420 {
		t.Fatalf("expected token metadata, got %v", msg.Meta(types.MetaTokens))
	}
	if msg.MetaString(types.MetaModel) != "sonnet" {
		t.Fatalf("expected model metadata, got %v", msg.Meta(types.MetaModel))
	}
	if len(res.Events) != 1 || res.Events[0].Kind != EventCodingComplete {
		t.Fatalf("expected coding-complete event, got %v", res.Events)
	}
}

func TestDecodeResultInterrupted(t *testing.T) {
	d := testDecoder()
	for _, am := range []string{
		`{"type":"result","subtype":"user_interrupted","result":""}`,
		`{"type":"result","subtype":"user_cancelled","result":""}`,
		`{"type":"result","subtype":"success","result":"REQUEST INTERRUPTED BY USER"}`,
	} {
		res := d.Decode(modelResponse(t, "m9", am))
		if len(res.Events) != 1 || res.Events[0].Kind != EventInterrupted {
			t.Fatalf("payload %s: expected interruption event, got %v", am, res.Events)
		}
	}
}

func TestDecodeResultMaxTurns(t *testing.T) {
	d := testDecoder()
	res := d.Decode(modelResponse(t, "m10", `{"type":"result","subtype":"error_max_turns","result":"ran out of turns"}`))
	if len(res.Messages) != 2 {
		t.Fatalf("expected result plus continuation hint, got %d messages", len(res.Messages))
	}
	hint := res.Messages[1]
	if !hint.MetaBool(types.MetaContinueHint) {
		t.Fatalf("expected continuation hint metadata, got %v", hint.Metadata)
	}
	if hint.ID == res.Messages[0].ID {
		t.Fatalf("continuation hint must not collide with the result id in the dedup store")
	}
	if len(res.Events) != 1 || res.Events[0].Kind != EventMaxTurns {
		t.Fatalf("expected max-turns event, got %v", res.Events)
	}
}

func TestDecodeErrorInsufficientCredits(t *testing.T) {
	d := testDecoder()
	for _, am := range []string{
		`{"type":"error","subtype":"insufficient_credits","result":"You need more credits"}`,
		`{"type":"error","result":"Insufficient credits to continue"}`,
	} {
		res := d.Decode(modelResponse(t, "m11", am))
		if len(res.Messages) != 1 {
			t.Fatalf("payload %s: expected 1 message, got %d", am, len(res.Messages))
		}
		if !res.Messages[0].MetaBool(types.MetaUpgradeHint) {
			t.Fatalf("payload %s: expected upgrade hint metadata", am)
		}
		if len(res.Events) != 1 || res.Events[0].Kind != EventUpgradeRequired {
			t.Fatalf("payload %s: expected upgrade-required event, got %v", am, res.Events)
		}
	}
}

func TestDecodeGenericError(t *testing.T) {
	d := testDecoder()
	res := d.Decode(modelResponse(t, "m12", `{"type":"error","result":"agent exploded"}`))
	if len(res.Messages) != 1 || res.Messages[0].Kind != types.KindSystemNotice {
		t.Fatalf("expected visible notice, got %v", res.Messages)
	}
	if res.Messages[0].MetaBool(types.MetaUpgradeHint) {
		t.Fatalf("generic error must not carry upgrade hint")
	}
	if len(res.Events) != 1 || res.Events[0].Kind != EventAgentFailed {
		t.Fatalf("expected agent-failed event, got %v", res.Events)
	}
}

func TestDecodeActionCarriesExternalID(t *testing.T) {
	d := testDecoder()
	env := types.Envelope{
		Type:      types.FrameModelResponse,
		MsgID:     "m13",
		Timestamp: "2026-08-01T10:00:00Z",
		Data:      json.RawMessage(`{"_id":"act-9","agent_message":{"type":"action","subtype":"stripe_key_required"}}`),
	}
	res := d.Decode(env)
	if len(res.Messages) != 1 || res.Messages[0].Kind != types.KindAction {
		t.Fatalf("expected action message, got %v", res.Messages)
	}
	if res.Messages[0].MetaString(types.MetaActionID) != "act-9" {
		t.Fatalf("expected external action id, got %v", res.Messages[0].Metadata)
	}
	if res.Messages[0].MetaString(types.MetaSubtype) != "stripe_key_required" {
		t.Fatalf("expected subtype metadata, got %v", res.Messages[0].Metadata)
	}
	if len(res.Events) != 1 || res.Events[0].Kind != EventActionRequired {
		t.Fatalf("expected action-required event, got %v", res.Events)
	}
}

func TestDecodeStatusIsNotStored(t *testing.T) {
	d := testDecoder()
	res := d.Decode(modelResponse(t, "m14", `{"type":"status","subtype":"thinking"}`))
	if len(res.Messages) != 0 {
		t.Fatalf("status frames must not produce messages, got %d", len(res.Messages))
	}
	if len(res.Events) != 1 || res.Events[0].Kind != EventThinking {
		t.Fatalf("expected thinking event, got %v", res.Events)
	}
}

func TestDecodeUnknownAgentTypeIsVisible(t *testing.T) {
	d := testDecoder()
	res := d.Decode(modelResponse(t, "m15", `{"type":"telemetry","subtype":"v2"}`))
	if len(res.Messages) != 1 || res.Messages[0].Kind != types.KindSystemNotice {
		t.Fatalf("unknown agent types must surface as a notice, got %v", res.Messages)
	}
	if !strings.Contains(res.Messages[0].Content, "telemetry") {
		t.Fatalf("notice should name the unknown type, got %q", res.Messages[0].Content)
	}
}

func sandboxEnvelope(msgID, payload string) types.Envelope {
	return types.Envelope{
		Type:      types.FrameSandboxStatus,
		MsgID:     msgID,
		Timestamp: "2026-08-01T10:00:00Z",
		Data:      json.RawMessage(payload),
	}
}

func TestDecodeSandboxSuccessPrefersWebPreviewURL(t *testing.T) {
	d := testDecoder()
	res := d.Decode(sandboxEnvelope("s1", `{"status":"success","sandbox_id":"sb-1","startup_info":{"web_preview_url":"https://web","preview_url":"https://device"}}`))
	if len(res.Events) != 1 || res.Events[0].Kind != EventSandboxUp {
		t.Fatalf("expected sandbox-up event, got %v", res.Events)
	}
	if res.Events[0].PreviewURL != "https://web" {
		t.Fatalf("expected web preview url preference, got %q", res.Events[0].PreviewURL)
	}
	if len(res.Messages) != 1 || res.Messages[0].Kind != types.KindSandbox {
		t.Fatalf("expected sandbox message, got %v", res.Messages)
	}
	if res.Messages[0].MetaString(types.MetaPreviewURL) != "https://web" {
		t.Fatalf("expected preview url metadata, got %v", res.Messages[0].Metadata)
	}
}

func TestDecodeSandboxTransientStatusesSuppressed(t *testing.T) {
	d := testDecoder()
	for _, status := range []string{"creating", "loading dependencies", "starting server", "building bundle"} {
		res := d.Decode(sandboxEnvelope("s2", `{"status":"`+status+`"}`))
		if len(res.Messages) != 0 {
			t.Fatalf("status %q must be suppressed from the message list", status)
		}
	}
}

func TestDecodeSandboxFailureEmitsDownEvent(t *testing.T) {
	d := testDecoder()
	for _, status := range []string{"failed", "killed"} {
		res := d.Decode(sandboxEnvelope("s3", `{"status":"`+status+`","message":"sandbox died"}`))
		if len(res.Events) != 1 || res.Events[0].Kind != EventSandboxDown {
			t.Fatalf("status %q: expected sandbox-down event, got %v", status, res.Events)
		}
		if len(res.Messages) != 1 || res.Messages[0].Content != "sandbox died" {
			t.Fatalf("status %q: expected failure message, got %v", status, res.Messages)
		}
	}
}

func TestDecodeHistorySharesLiveDecodePath(t *testing.T) {
	d := testDecoder()
	events := []types.HistoryEvent{
		{MsgID: "h1", Timestamp: "2026-07-31T09:00:00Z", AgentMessage: json.RawMessage(`{"type":"user","message":"first prompt"}`)},
		{MsgID: "h2", Timestamp: "2026-07-31T09:00:05Z", AgentMessage: json.RawMessage(`{"type":"assistant","message":{"content":[{"type":"text","text":"On it."}]}}`)},
		{MsgID: "h3", Timestamp: "2026-07-31T09:00:10Z", AgentMessage: json.RawMessage(`{"type":"status","subtype":"thinking"}`)},
		{MsgID: "h4", Timestamp: "2026-07-31T09:00:15Z", AgentMessage: json.RawMessage(`not even json`)},
		{Timestamp: "2026-07-31T09:00:20Z", AgentMessage: json.RawMessage(`{"type":"result","subtype":"success","result":"done"}`)},
	}
	msgs := d.DecodeHistory(events, 10)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages (status and malformed skipped), got %d", len(msgs))
	}
	if msgs[0].Content != "first prompt" || msgs[1].Content != "On it." {
		t.Fatalf("unexpected history contents: %q %q", msgs[0].Content, msgs[1].Content)
	}
	if msgs[2].ID != "history_14" {
		t.Fatalf("expected synthesized id for missing msg_id, got %q", msgs[2].ID)
	}
}
