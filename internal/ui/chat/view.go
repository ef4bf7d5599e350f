// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatdeck/internal/util"
)

// View renders the chat view.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.alert != nil {
		return m.renderAlert()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.theme.InputContainer.Width(m.width).Render(m.input.View()),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("chatdeck")
	sub := m.backend
	if n := len(m.handler.Messages()); n > 0 {
		sub = fmt.Sprintf("%s  %d messages", sub, n)
	}
	line := title + "  " + m.theme.HeaderSubtitle.Render(util.TruncateWidth(sub, max(m.width-14, 0)))
	return m.theme.Header.Width(m.width).Render(line)
}

// HintText renders the action hints for the current state without styling.
func (m Model) HintText() string {
	s := m.State()
	var parts []string
	for _, b := range m.keys.ActionBindings(s.ShowStop, s.ShowReload, s.ShowExport, s.ShowStarters) {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderStatusBar() string {
	s := m.State()
	var parts []string
	for _, b := range m.keys.ActionBindings(s.ShowStop, s.ShowReload, s.ShowExport, s.ShowStarters) {
		h := b.Help()
		parts = append(parts, m.theme.HintKey.Render(h.Key)+m.theme.HintText.Render(" "+h.Desc))
	}
	left := strings.Join(parts, m.theme.HintText.Render("  "))

	right := ""
	if m.notice != "" {
		right = m.theme.Notice.Render(util.TruncateWidth(m.notice, max(m.width/2, 10)))
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(left + m.theme.HintText.Render(strings.Repeat(" ", gap)) + right)
}

func (m Model) renderAlert() string {
	width := min(max(m.width-10, 20), 72)
	body := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.AlertTitle.Render(m.alert.Title),
		"",
		m.theme.AlertBody.Width(width).Render(m.alert.Detail),
		"",
		m.theme.AlertHint.Render("Press Enter or Esc to dismiss"),
	)
	box := m.theme.AlertBox.Render(body)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
