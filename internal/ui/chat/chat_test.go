// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatdeck/internal/backend"
	"github.com/jeranaias/chatdeck/internal/backend/backendtest"
	"github.com/jeranaias/chatdeck/internal/config"
	"github.com/jeranaias/chatdeck/internal/session"
	"github.com/jeranaias/chatdeck/internal/ui/styles"
)

// =============================================================================
// HELPERS
// =============================================================================

func newTestModel(t *testing.T) (Model, *backendtest.Server) {
	t.Helper()
	srv := backendtest.New(t)
	client := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: srv.URL})
	h := session.New(client, session.Options{})

	cfg := config.Default()
	cfg.UI.GlamourStyle = "notty"
	cfg.Export.OutputDir = t.TempDir()

	m := New(h, Options{Config: cfg, Theme: styles.NewThemeForMode("dark"), BackendName: srv.URL})
	t.Cleanup(m.Close)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model), srv
}

// run executes cmd and every command of a batch, returning the messages
// of the given type.
func run[T any](cmd tea.Cmd) []T {
	if cmd == nil {
		return nil
	}
	var out []T
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			out = append(out, run[T](c)...)
		}
	case T:
		out = append(out, msg)
	}
	return out
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func send(m Model, msg tea.Msg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

// ask types text, submits it and applies the reply result.
func ask(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.input.SetValue(text)
	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyEnter})
	done := run[ReplyDoneMsg](cmd)
	require.Len(t, done, 1)
	m, _ = send(m, done[0])
	return m
}

// =============================================================================
// TESTS
// =============================================================================

func TestViewBeforeResize(t *testing.T) {
	srv := backendtest.New(t)
	h := session.New(backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: srv.URL}), session.Options{})
	m := New(h, Options{})
	defer m.Close()
	assert.Equal(t, "Loading...", m.View())
}

func TestSubmitStreamsReply(t *testing.T) {
	m, srv := newTestModel(t)
	srv.Reply(backendtest.Text("Decks are **slides**."), backendtest.Finish("stop"))

	assert.Contains(t, m.HintText(), "Enter send")
	assert.NotContains(t, m.HintText(), "regenerate")

	m = ask(t, m, "  what is a deck?  ")
	msgs := m.Handler().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "what is a deck?", msgs[0].Content)
	assert.Equal(t, "", m.input.Value())

	hints := m.HintText()
	assert.Contains(t, hints, "C-r regenerate")
	assert.Contains(t, hints, "C-p generate deck")
	assert.NotContains(t, hints, "C-s stop")

	view := m.View()
	assert.Contains(t, view, "chatdeck")
	assert.Contains(t, view, "slides")
}

func TestEmptySubmitIsIgnored(t *testing.T) {
	m, srv := newTestModel(t)
	m.input.SetValue("   ")
	_, cmd := send(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, run[ReplyDoneMsg](cmd))
	assert.Empty(t, srv.Requests())
}

func TestStarterQuestions(t *testing.T) {
	m, srv := newTestModel(t)
	srv.SetStarters("How do I export?", "What formats exist?")

	msgs := run[StartersMsg](fetchStarters(m.ctx, m.handler))
	require.Len(t, msgs, 1)
	m, _ = send(m, msgs[0])

	assert.True(t, m.State().ShowStarters)
	assert.Contains(t, m.viewport.View(), "What formats exist?")
	assert.Contains(t, m.HintText(), "1-9")

	m, cmd := send(m, keyRune('2'))
	done := run[ReplyDoneMsg](cmd)
	require.Len(t, done, 1)
	require.NoError(t, done[0].Err)
	m, _ = send(m, done[0])

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "What formats exist?", reqs[0].Messages[0].Content)
	assert.False(t, m.State().ShowStarters)

	// Digits are plain input once the chat has started.
	m, cmd = send(m, keyRune('1'))
	assert.Empty(t, run[ReplyDoneMsg](cmd))
	assert.Equal(t, "1", m.input.Value())
}

func TestBackendErrorOpensAlert(t *testing.T) {
	m, srv := newTestModel(t)
	srv.FailWith(500, "backend unavailable")

	m = ask(t, m, "hello")
	require.NotNil(t, m.Alert())
	assert.Equal(t, "backend unavailable", m.Alert().Detail)
	assert.Contains(t, m.View(), "backend unavailable")

	// Other keys are swallowed while the alert is open.
	m, _ = send(m, keyRune('x'))
	require.NotNil(t, m.Alert())
	assert.Equal(t, "", m.input.Value())

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.Alert())
	assert.Len(t, srv.Requests(), 1)
}

func TestExportWritesDeck(t *testing.T) {
	m, _ := newTestModel(t)

	// Nothing to export yet.
	_, cmd := send(m, tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.Nil(t, cmd)

	m = ask(t, m, "hi")
	m, cmd = send(m, tea.KeyMsg{Type: tea.KeyCtrlP})
	assert.Equal(t, "Generating deck...", m.Notice())

	results := run[ExportCompleteMsg](cmd)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 4, results[0].Stats.Total)
	assert.True(t, strings.HasSuffix(results[0].Path, "Chat_Response_Presentation.pptx"))
	_, err := os.Stat(results[0].Path)
	require.NoError(t, err)

	m, _ = send(m, results[0])
	assert.Contains(t, m.Notice(), "Saved 4 slides")
}

func TestReloadRegenerates(t *testing.T) {
	m, srv := newTestModel(t)
	m = ask(t, m, "hi")

	srv.Reply(backendtest.Text("again"), backendtest.Finish("stop"))
	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyCtrlR})
	done := run[ReplyDoneMsg](cmd)
	require.Len(t, done, 1)
	m, _ = send(m, done[0])

	msgs := m.Handler().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "again", msgs[1].Content)
}

func TestClearStartsNewChat(t *testing.T) {
	m, _ := newTestModel(t)
	m = ask(t, m, "hi")
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, m.Handler().Messages())
	assert.Equal(t, "New chat", m.Notice())
}

func TestConfigReloaded(t *testing.T) {
	m, _ := newTestModel(t)
	cfg := config.Default()
	cfg.UI.GlamourStyle = "ascii"

	m, cmd := send(m, ConfigReloadedMsg{Config: cfg})
	assert.NotNil(t, cmd)
	assert.Equal(t, "Config reloaded", m.Notice())
	assert.Equal(t, "ascii", m.cfg.UI.GlamourStyle)

	m, _ = send(m, ConfigReloadedMsg{Err: assert.AnError})
	assert.Contains(t, m.Notice(), "Config error")
}

func TestActionBindings(t *testing.T) {
	k := DefaultKeyMap()
	loading := k.ActionBindings(true, false, true, false)
	var keys []string
	for _, b := range loading {
		keys = append(keys, b.Help().Key)
	}
	assert.Equal(t, []string{"C-s", "C-p", "C-c"}, keys)
}

func TestMarkdownRendererCaches(t *testing.T) {
	r := newMarkdownRenderer("notty")
	first := r.Render("m1", "# Title\n\nbody", 40, true)
	assert.Contains(t, first, "Title")
	assert.Equal(t, first, r.Render("m1", "changed", 40, true))
	assert.NotEqual(t, first, r.Render("m1", "changed", 50, true))

	r.SetStyle("ascii")
	assert.Contains(t, r.Render("m1", "changed", 50, true), "changed")
}
