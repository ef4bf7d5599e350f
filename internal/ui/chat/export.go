// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/chatdeck/internal/export"
)

// =============================================================================
// EXPORT HANDLERS
// =============================================================================

// exportCmd builds and writes the deck from a snapshot taken now.
func (m Model) exportCmd() tea.Cmd {
	msgs := m.handler.Snapshot()
	format := m.cfg.Export.Format
	opts := export.FromConfig(m.cfg.Export, m.log)

	return func() tea.Msg {
		path, d, err := export.ExportConversation(msgs, format, opts)
		if err != nil {
			return ExportCompleteMsg{Err: err}
		}
		return ExportCompleteMsg{Path: path, Stats: d.Stats()}
	}
}

// handleExportComplete handles the export completion message.
func (m Model) handleExportComplete(msg ExportCompleteMsg) (tea.Model, tea.Cmd) {
	m.exporting = false
	if msg.Err != nil {
		m.notice = ""
		m.log.Warn("export failed", zap.Error(msg.Err))
		m.alert = &ErrorMsg{Title: "Export failed", Detail: msg.Err.Error()}
		m.input.Blur()
		return m, nil
	}
	m.notice = fmt.Sprintf("Saved %d slides to %s", msg.Stats.Total, msg.Path)
	return m, nil
}
