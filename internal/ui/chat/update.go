// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/chatdeck/internal/backend"
	"github.com/jeranaias/chatdeck/internal/session"
)

// Layout rows outside the viewport.
const (
	headerHeight = 2
	inputHeight  = 4
	statusHeight = 1
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ConversationEventMsg:
		m.refresh()
		return m, waitForEvent(m.events)

	case ReplyDoneMsg:
		return m.handleReplyDone(msg)

	case StartersMsg:
		if msg.Err == nil {
			m.starters = msg.Questions
			m.refresh()
		}
		return m, nil

	case ExportCompleteMsg:
		return m.handleExportComplete(msg)

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	case ErrorMsg:
		m.alert = &msg
		m.input.Blur()
		return m, nil

	case spinner.TickMsg:
		if !m.handler.IsLoading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	vpHeight := msg.Height - headerHeight - inputHeight - statusHeight
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = msg.Width
	m.viewport.Height = vpHeight
	m.input.SetWidth(msg.Width)
	m.ready = true
	m.refresh()
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.Close()
		return m, tea.Quit
	}

	// The alert blocks everything else until dismissed.
	if m.alert != nil {
		if key.Matches(msg, m.keys.Dismiss) {
			m.alert = nil
			m.input.Focus()
		}
		return m, nil
	}

	state := m.State()

	switch {
	case key.Matches(msg, m.keys.Stop):
		if state.ShowStop && m.handler.Stop() {
			m.notice = "Stopped"
		}
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		if !state.ShowReload {
			return m, nil
		}
		m.notice = ""
		return m, tea.Batch(reloadCmd(m.ctx, m.handler), m.spinner.Tick)

	case key.Matches(msg, m.keys.Export):
		if !state.ShowExport || m.exporting {
			return m, nil
		}
		m.exporting = true
		m.notice = "Generating deck..."
		return m, m.exportCmd()

	case key.Matches(msg, m.keys.Clear):
		if err := m.handler.Clear(); err != nil {
			m.notice = "Stop the reply before starting a new chat"
			return m, nil
		}
		m.notice = "New chat"
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Starter) && state.ShowStarters && m.input.Value() == "":
		n := int(msg.String()[0] - '0')
		q, ok := m.handler.Starters().Pick(n)
		if !ok {
			return m, nil
		}
		return m.submit(q)

	case key.Matches(msg, m.keys.Submit):
		if state.ShowStop {
			return m, nil
		}
		return m.submit(m.input.Value())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	text = strings.TrimSpace(text)
	if text == "" {
		return m, nil
	}
	m.input.Reset()
	m.notice = ""
	return m, tea.Batch(appendCmd(m.ctx, m.handler, text), m.spinner.Tick)
}

// =============================================================================
// RESULTS
// =============================================================================

func (m Model) handleReplyDone(msg ReplyDoneMsg) (tea.Model, tea.Cmd) {
	m.refresh()
	switch {
	case msg.Err == nil:
		return m, nil
	case errors.Is(msg.Err, session.ErrBusy):
		m.notice = "A reply is already in progress"
		return m, nil
	case errors.Is(msg.Err, session.ErrNothingToReload):
		m.notice = "Nothing to regenerate"
		return m, nil
	case backend.IsCancelled(msg.Err):
		return m, nil
	}
	m.log.Debug("reply failed", zap.Error(msg.Err))
	m.alert = &ErrorMsg{Title: "Request failed", Detail: backend.Detail(msg.Err)}
	m.input.Blur()
	return m, nil
}

func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	next := waitForConfig(m.cfgEvents)
	if msg.Err != nil {
		m.notice = "Config error: " + msg.Err.Error()
		return m, next
	}
	if msg.Config == nil {
		return m, next
	}
	m.cfg = msg.Config
	m.renderer.SetStyle(m.cfg.UI.GlamourStyle)
	m.notice = "Config reloaded"
	m.log.Info("config reloaded")
	m.refresh()
	return m, next
}

// =============================================================================
// VIEWPORT
// =============================================================================

// refresh re-renders the conversation and scrolls to the bottom when the
// message count or the last message changed.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	msgs := m.handler.Messages()
	content := renderConversation(m.theme, m.renderer, msgs, m.viewport.Width, m.cfg.UI.ShowTimestamps)

	state := m.State()
	if state.ShowStarters {
		content = renderStarters(m.theme, m.starters, m.viewport.Width)
	}
	if state.IsPending {
		content += "\n\n" + m.theme.Pending.Render(m.spinner.View()+" waiting for reply")
	}
	m.viewport.SetContent(content)

	var lastContent string
	if n := len(msgs); n > 0 {
		lastContent = msgs[n-1].Content
	}
	if len(msgs) != m.lastCount || lastContent != m.lastContent || state.IsPending {
		m.viewport.GotoBottom()
	}
	m.lastCount = len(msgs)
	m.lastContent = lastContent
}
