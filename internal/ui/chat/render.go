// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/ui/styles"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer renders assistant replies with glamour. Finished replies
// are cached by message ID and width.
type markdownRenderer struct {
	mu    sync.Mutex
	style string
	width int
	term  *glamour.TermRenderer
	cache map[string]string
}

func newMarkdownRenderer(style string) *markdownRenderer {
	return &markdownRenderer{style: style, cache: make(map[string]string)}
}

// SetStyle switches the glamour style, dropping cached output.
func (r *markdownRenderer) SetStyle(style string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if style == r.style {
		return
	}
	r.style = style
	r.term = nil
	r.cache = make(map[string]string)
}

// Render returns content as terminal markdown at width. It falls back to
// the raw text when glamour fails.
func (r *markdownRenderer) Render(id, content string, width int, cacheable bool) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if width != r.width || r.term == nil {
		r.width = width
		r.cache = make(map[string]string)
		r.term = r.newTerm(width)
	}
	if cacheable {
		if out, ok := r.cache[id]; ok {
			return out
		}
	}
	if r.term == nil {
		return content
	}
	out, err := r.term.Render(content)
	if err != nil {
		return content
	}
	out = strings.Trim(out, "\n")
	if cacheable {
		r.cache[id] = out
	}
	return out
}

func (r *markdownRenderer) newTerm(width int) *glamour.TermRenderer {
	styleOpt := glamour.WithStandardStyle(r.style)
	if r.style == "" || r.style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	term, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(max(width, 20)))
	if err != nil {
		return nil
	}
	return term
}

// =============================================================================
// CONVERSATION RENDERING
// =============================================================================

// typingCursor marks a reply that is still streaming.
const typingCursor = "_"

// renderConversation lays out every message for the viewport.
func renderConversation(theme *styles.Theme, r *markdownRenderer, msgs []model.Message, width int, timestamps bool) string {
	if width < 10 {
		width = 10
	}
	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		blocks = append(blocks, renderMessage(theme, r, msg, width, timestamps))
	}
	return strings.Join(blocks, "\n\n")
}

func renderMessage(theme *styles.Theme, r *markdownRenderer, msg model.Message, width int, timestamps bool) string {
	var label lipgloss.Style
	switch msg.Role {
	case model.RoleUser:
		label = theme.UserLabel
	case model.RoleAssistant:
		label = theme.AssistantLabel
	default:
		label = theme.SystemLabel
	}

	header := label.Render(msg.Role.DisplayName())
	if timestamps && !msg.Timestamp.IsZero() {
		header += " " + theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	}

	var body string
	switch msg.Role {
	case model.RoleUser:
		body = theme.UserBody.Width(width - 2).Render(msg.Content)
	case model.RoleAssistant:
		if msg.IsStreaming {
			body = theme.AssistantBody.PaddingLeft(1).Width(width - 2).Render(msg.Content + typingCursor)
		} else {
			body = theme.AssistantBody.Render(r.Render(msg.ID, msg.Content, width-2, true))
		}
	default:
		body = theme.SystemBody.Width(width - 2).Render(msg.Content)
	}
	return header + "\n" + body
}

// renderStarters lists starter questions with their number keys.
func renderStarters(theme *styles.Theme, starters []string, width int) string {
	var sb strings.Builder
	sb.WriteString(theme.StarterTitle.Render("Try one of these:"))
	sb.WriteString("\n")
	for i, q := range starters {
		if i >= 9 {
			break
		}
		line := theme.StarterIndex.Render(string(rune('1'+i))+".") + " " + theme.StarterItem.Render(q)
		sb.WriteString(lipgloss.NewStyle().MaxWidth(width).Render(line))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
