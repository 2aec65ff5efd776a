package app

import (
	"strings"
	"testing"
	"time"

	"vibe/internal/types"
)

func TestRenderTranscriptOrdersOldestFirst(t *testing.T) {
	// The log keeps newest at the head.
	messages := []types.Message{
		{ID: "2", Kind: types.KindAssistantText, Role: types.RoleAssistant, Content: "second"},
		{ID: "1", Kind: types.KindUser, Role: types.RoleUser, Content: "first"},
	}
	out := renderTranscript(messages, 80, time.Now())
	first := strings.Index(out, "first")
	second := strings.Index(out, "second")
	if first < 0 || second < 0 {
		t.Fatalf("missing content in transcript: %q", out)
	}
	if first > second {
		t.Fatalf("expected user message before assistant reply")
	}
}

func TestRenderTranscriptEmpty(t *testing.T) {
	out := renderTranscript(nil, 80, time.Now())
	if !strings.Contains(out, "No messages yet") {
		t.Fatalf("expected placeholder, got %q", out)
	}
}

func TestRenderMessageLocalEchoMarker(t *testing.T) {
	msg := types.Message{
		ID:      "local_1",
		Kind:    types.KindUser,
		Role:    types.RoleUser,
		Content: "build a todo app",
		Metadata: map[string]any{
			types.MetaLocalEcho: true,
		},
	}
	out := renderMessage(msg, 80, time.Now())
	if !strings.Contains(out, "sending...") {
		t.Fatalf("expected pending marker on local echo, got %q", out)
	}
}

func TestRenderMessageToolUse(t *testing.T) {
	msg := types.Message{
		ID:      "t1",
		Kind:    types.KindToolUse,
		Role:    types.RoleAssistant,
		Content: "Input:\n{}",
		Metadata: map[string]any{
			types.MetaToolName: "write_file",
		},
	}
	out := renderMessage(msg, 80, time.Now())
	if !strings.Contains(out, "write_file") {
		t.Fatalf("expected tool name in output, got %q", out)
	}
}

func TestTruncateLines(t *testing.T) {
	text := strings.Repeat("line\n", 20) + "last"
	out := truncateLines(text, 5)
	if !strings.Contains(out, "more lines") {
		t.Fatalf("expected truncation marker, got %q", out)
	}
	if got := strings.Count(out, "\n"); got != 5 {
		t.Fatalf("expected 5 newlines after truncation, got %d", got)
	}
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		delta time.Duration
		want  string
	}{
		{10 * time.Second, "just now"},
		{45 * time.Second, "45 seconds ago"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{48 * time.Hour, "2 days ago"},
	}
	for _, tc := range cases {
		got := formatRelative(now.Add(-tc.delta), now)
		if got != tc.want {
			t.Fatalf("delta %v: got %q, want %q", tc.delta, got, tc.want)
		}
	}
}
