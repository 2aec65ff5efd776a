package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"vibe/internal/types"
)

// renderTranscript lays out the message log oldest-first for the viewport.
// The log stores newest at the head, so iteration runs backwards.
func renderTranscript(messages []types.Message, width int, now time.Time) string {
	if len(messages) == 0 {
		return helpStyle.Render("No messages yet. Describe what you want to build.")
	}
	if width <= 0 {
		width = 80
	}

	var blocks []string
	for i := len(messages) - 1; i >= 0; i-- {
		block := renderMessage(messages[i], width, now)
		if block == "" {
			continue
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n")
}

func renderMessage(msg types.Message, width int, now time.Time) string {
	// Bubble borders and padding eat four columns.
	contentWidth := width - 4
	if contentWidth < 20 {
		contentWidth = 20
	}

	switch msg.Kind {
	case types.KindUser:
		body := msg.Content
		if msg.MetaBool(types.MetaLocalEcho) {
			body += "\n" + chatMetaStyle.Render("sending...")
		}
		bubble := userBubbleStyle.MaxWidth(width).Render(body)
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble) + metaLine(msg, width, now)

	case types.KindAssistantText:
		rendered := renderMarkdown(msg.Content, contentWidth)
		return agentBubbleStyle.MaxWidth(width).Render(rendered) + metaLine(msg, width, now)

	case types.KindToolUse:
		name := msg.MetaString(types.MetaToolName)
		header := toolHeaderStyle.Render("tool: " + name)
		body := toolBodyStyle.MaxWidth(width).Render(truncateLines(msg.Content, 8))
		return header + "\n" + body

	case types.KindToolResult:
		return toolBodyStyle.MaxWidth(width).Render(truncateLines(msg.Content, 6))

	case types.KindResult:
		line := resultStyle.Render(msg.Content)
		detail := resultDetail(msg)
		if detail != "" {
			line += "\n" + chatMetaStyle.Render(detail)
		}
		return line

	case types.KindSandbox:
		status := msg.MetaString(types.MetaSandboxStatus)
		text := msg.Content
		if text == "" {
			text = "sandbox " + status
		}
		return sandboxStyle.Render(text)

	case types.KindSystemNotice:
		return systemNoticeStyle.MaxWidth(width).Render(msg.Content)

	case types.KindAction:
		return toolHeaderStyle.Render("action required") + "\n" +
			agentBubbleStyle.MaxWidth(width).Render(msg.Content)

	default:
		return statusStyle.MaxWidth(width).Render(msg.Content)
	}
}

func metaLine(msg types.Message, width int, now time.Time) string {
	if msg.Timestamp <= 0 {
		return ""
	}
	at := time.UnixMilli(msg.Timestamp)
	rel := formatRelative(at, now)
	if rel == "" {
		return ""
	}
	return "\n" + chatMetaStyle.Render(rel)
}

func resultDetail(msg types.Message) string {
	var parts []string
	if model := msg.MetaString(types.MetaModel); model != "" {
		parts = append(parts, "model "+model)
	}
	if tokens, ok := msg.Meta(types.MetaTokens).(int); ok && tokens > 0 {
		parts = append(parts, fmt.Sprintf("%d tokens", tokens))
	}
	return strings.Join(parts, ", ")
}

// truncateLines caps multi-line tool output so a single verbose tool call
// cannot dominate the transcript.
func truncateLines(text string, limit int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= limit {
		return text
	}
	kept := lines[:limit]
	omitted := len(lines) - limit
	return strings.Join(kept, "\n") + fmt.Sprintf("\n... (%d more lines)", omitted)
}
