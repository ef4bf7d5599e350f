// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatdeck/internal/backend"
	"github.com/jeranaias/chatdeck/internal/backend/backendtest"
	"github.com/jeranaias/chatdeck/internal/config"
	"github.com/jeranaias/chatdeck/internal/logger"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/session"
	"github.com/jeranaias/chatdeck/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

type result struct {
	stdout string
	stderr string
	err    error
}

func (r result) code() int {
	return ExitCode(r.err)
}

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.HomeEnv, home)
	for _, env := range []string{"CHATDECK_BACKEND_URL", "CHATDECK_MAX_CHARS", "CHATDECK_EXPORT_DIR", "CHATDECK_EXPORT_FORMAT", "CHATDECK_DEBUG"} {
		t.Setenv(env, "")
	}
	config.ResetGlobalForTesting()
	return home
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	cmd, _ := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_StreamsReplyAndSavesHistory(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)
	srv.Reply(backendtest.Text("Hello "), backendtest.Text("world"), backendtest.Finish("stop"))

	res := run(t, "", "--backend", srv.URL, "ask", "say", "hi")
	require.NoError(t, res.err)
	assert.Equal(t, "Hello world\n", res.stdout)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "say hi", reqs[0].Messages[0].Content)

	hist := run(t, "", "history")
	require.NoError(t, hist.err)
	assert.Contains(t, hist.stdout, "say hi")
}

func TestAsk_SendsRequestData(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)

	res := run(t, "", "--backend", srv.URL, "ask", "hi", "--data", "tenant=acme")
	require.NoError(t, res.err)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, map[string]any{"tenant": "acme"}, reqs[0].Data)
}

func TestAsk_Export(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	t.Setenv("CHATDECK_EXPORT_DIR", dir)
	srv := backendtest.New(t)

	res := run(t, "", "--backend", srv.URL, "ask", "hi", "--export=md")
	require.NoError(t, res.err)
	assert.Equal(t, "ok\n", res.stdout)
	assert.Contains(t, res.stderr, "Saved 4 slides")

	data, err := os.ReadFile(filepath.Join(dir, "Chat_Response_Presentation.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Message 2 - Part 1")
}

func TestAsk_NoQuestion(t *testing.T) {
	isolate(t)
	res := run(t, "   ", "ask")
	require.Error(t, res.err)
	assert.Equal(t, ExitUsageError, res.code())
}

func TestAsk_BackendErrorDetail(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)
	srv.FailWith(500, "model offline")

	res := run(t, "", "--backend", srv.URL, "ask", "hi")
	require.Error(t, res.err)
	assert.Equal(t, ExitGeneralError, res.code())
	assert.Equal(t, "model offline", FormatError(res.err, srv.URL))
}

func TestAsk_BackendNotRunning(t *testing.T) {
	isolate(t)
	res := run(t, "", "--backend", "http://127.0.0.1:1", "--no-history", "ask", "hi")
	require.Error(t, res.err)
	assert.True(t, backend.IsNotRunning(res.err))
	assert.Equal(t, ExitNetworkError, res.code())
	assert.Contains(t, FormatError(res.err, "http://127.0.0.1:1"), "is the backend running at http://127.0.0.1:1")
}

// =============================================================================
// EXPORT AND HISTORY
// =============================================================================

func TestExport_StoredConversation(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)
	require.NoError(t, run(t, "", "--backend", srv.URL, "ask", "first").err)

	out := t.TempDir()
	res := run(t, "", "export", "1", "--format", "html", "--out", out)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Saved 4 slides")
	_, err := os.Stat(filepath.Join(out, "Chat_Response_Presentation.html"))
	require.NoError(t, err)

	res = run(t, "", "export", "1", "--format", "docx", "--out", out)
	require.Error(t, res.err)
	assert.Equal(t, ExitUsageError, res.code())

	res = run(t, "", "export", "9")
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, storage.ErrConversationNotFound)
	assert.Equal(t, ExitNotFoundError, res.code())
}

func TestExport_HistoryDisabled(t *testing.T) {
	isolate(t)
	res := run(t, "", "--no-history", "export", "1")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "history is disabled")
}

func TestHistory_ShowDeleteClear(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)
	require.NoError(t, run(t, "", "--backend", srv.URL, "ask", "alpha question").err)
	require.NoError(t, run(t, "", "--backend", srv.URL, "ask", "beta question").err)

	res := run(t, "", "history", "--search", "alpha")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "alpha question")
	assert.NotContains(t, res.stdout, "beta question")

	res = run(t, "", "history", "show", "1")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "beta question")
	assert.Contains(t, res.stdout, "ok")

	res = run(t, "", "history", "delete", "1")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Deleted")

	res = run(t, "", "history", "clear")
	require.Error(t, res.err)
	assert.Equal(t, ExitUsageError, res.code())

	require.NoError(t, run(t, "", "history", "clear", "--yes").err)
	res = run(t, "", "history")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "No conversations found.")
}

// =============================================================================
// STARTERS, CONFIG, VERSION
// =============================================================================

func TestStarters(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)
	srv.SetStarters("What is chatdeck?", "How do exports work?")

	res := run(t, "", "--backend", srv.URL, "starters")
	require.NoError(t, res.err)
	assert.Equal(t, "1. What is chatdeck?\n2. How do exports work?\n", res.stdout)

	srv.OmitStarters()
	res = run(t, "", "--backend", srv.URL, "starters", "--json")
	require.NoError(t, res.err)
	assert.Equal(t, "[]\n", res.stdout)
}

func TestConfig_InitSetGet(t *testing.T) {
	home := isolate(t)

	res := run(t, "", "config", "path")
	require.NoError(t, res.err)
	assert.Equal(t, filepath.Join(home, "config.toml")+"\n", res.stdout)

	require.NoError(t, run(t, "", "config", "init").err)
	res = run(t, "", "config", "init")
	require.Error(t, res.err)
	assert.Equal(t, ExitUsageError, res.code())

	require.NoError(t, run(t, "", "config", "set", "export.max_chars_per_slide", "300").err)
	res = run(t, "", "config", "get", "export.max_chars_per_slide")
	require.NoError(t, res.err)
	assert.Equal(t, "300\n", res.stdout)

	// Flags override the file without being written back.
	res = run(t, "", "--max-chars", "120", "config", "get", "export.max_chars_per_slide")
	require.NoError(t, res.err)
	assert.Equal(t, "120\n", res.stdout)

	res = run(t, "", "config", "set", "export.color", "red")
	require.Error(t, res.err)
	assert.Equal(t, ExitUsageError, res.code())

	res = run(t, "", "config", "set", "export.format", "docx")
	require.Error(t, res.err)
	assert.Equal(t, ExitConfigError, res.code())

	res = run(t, "", "config", "show")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"max_chars_per_slide": 300`)
}

func TestVersion(t *testing.T) {
	isolate(t)
	res := run(t, "", "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "chatdeck "+Version)
}

func TestRoot_RequiresTerminal(t *testing.T) {
	if IsTTY() {
		t.Skip("stdin is a terminal")
	}
	isolate(t)
	res := run(t, "")
	require.Error(t, res.err)
	var ttyErr *TTYRequiredError
	assert.ErrorAs(t, res.err, &ttyErr)
}

// =============================================================================
// REPL
// =============================================================================

func newTestREPL(t *testing.T, srv *backendtest.Server) (*repl, *bytes.Buffer) {
	t.Helper()
	client := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: srv.URL})
	cfg := config.Default()
	cfg.Export.OutputDir = t.TempDir()
	var out bytes.Buffer
	r := newREPL(session.New(client, session.Options{}), cfg, logger.Nop(), &out)
	t.Cleanup(r.Close)
	return r, &out
}

func TestREPL_Commands(t *testing.T) {
	srv := backendtest.New(t)
	r, out := newTestREPL(t, srv)

	script := "hello\n\n/reload\n/export md\n/bogus\n/quit\nnever sent\n"
	require.NoError(t, r.Run(context.Background(), newScanReader(strings.NewReader(script))))

	text := out.String()
	assert.Contains(t, text, "assistant ok\n")
	assert.Contains(t, text, "Saved 4 slides")
	assert.Contains(t, text, "unknown command /bogus")
	assert.NotContains(t, text, "never sent")

	require.Len(t, srv.Requests(), 2)
	assert.Len(t, r.h.Messages(), 2)
}

func TestREPL_Starters(t *testing.T) {
	srv := backendtest.New(t)
	srv.SetStarters("What is chatdeck?")
	r, out := newTestREPL(t, srv)

	script := "/starters\n/starters 1\n/starters 5\n/starters x\n"
	require.NoError(t, r.Run(context.Background(), newScanReader(strings.NewReader(script))))

	text := out.String()
	assert.Contains(t, text, "1. What is chatdeck?")
	assert.Contains(t, text, "no starter question 5")
	assert.Contains(t, text, "must be an integer")

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "What is chatdeck?", reqs[0].Messages[0].Content)
}

func TestREPL_ClearAndEmptyExport(t *testing.T) {
	srv := backendtest.New(t)
	r, out := newTestREPL(t, srv)

	script := "/export\nhi\n/clear\n/export\n"
	require.NoError(t, r.Run(context.Background(), newScanReader(strings.NewReader(script))))

	assert.Equal(t, 2, strings.Count(out.String(), "nothing to export yet"))
	assert.Contains(t, out.String(), "Started a new conversation")
	assert.Empty(t, r.h.Messages())
}

func TestREPL_BackendError(t *testing.T) {
	srv := backendtest.New(t)
	srv.FailWith(503, map[string]any{"code": "overloaded"})
	r, out := newTestREPL(t, srv)

	require.NoError(t, r.Run(context.Background(), newScanReader(strings.NewReader("hi\n"))))
	assert.Contains(t, out.String(), `[Error] {"code":"overloaded"}`)
	assert.Equal(t, 1, strings.Count(out.String(), "[Error]"), "backend error printed once")
}

func TestREPL_BackendErrorUsesHandlerCallback(t *testing.T) {
	srv := backendtest.New(t)
	srv.FailWith(500, "model offline")
	r, out := newTestREPL(t, srv)

	err := r.ask(context.Background(), "hi")
	assert.NoError(t, err, "reported errors are not returned again")
	assert.True(t, r.reported)
	assert.Contains(t, out.String(), "[Error] model offline")

	srv.FailWith(0, nil)
	require.NoError(t, r.ask(context.Background(), "again"))
	assert.False(t, r.reported)
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func TestReplyPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newReplyPrinter(&buf, "> ")

	msg := model.Message{Role: model.RoleAssistant}
	p.Handle(model.Event{Kind: model.EventAdded, Message: msg})
	msg.Content = "Hel"
	p.Handle(model.Event{Kind: model.EventUpdated, Message: msg})
	msg.Content = "Hello"
	p.Handle(model.Event{Kind: model.EventUpdated, Message: msg})
	p.Handle(model.Event{Kind: model.EventFinalized, Message: msg})

	// User messages are echoed by the prompt, not the printer.
	p.Handle(model.Event{Kind: model.EventAdded, Message: model.Message{Role: model.RoleUser, Content: "x"}})

	assert.Equal(t, "> Hello\n", buf.String())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", usageErrorf("", "bad"), ExitUsageError},
		{"not running", backend.ErrNotRunning, ExitNetworkError},
		{"timeout", backend.ErrTimeout, ExitTimeoutError},
		{"not found", storage.ErrConversationNotFound, ExitNotFoundError},
		{"config", config.ValidateErrors{{Field: "x", Message: "y"}}, ExitConfigError},
		{"other", assert.AnError, ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
