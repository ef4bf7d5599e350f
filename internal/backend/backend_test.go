// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend_test

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatdeck/internal/backend"
	"github.com/jeranaias/chatdeck/internal/backend/backendtest"
	"github.com/jeranaias/chatdeck/internal/model"
)

// =============================================================================
// LINE PARSING
// =============================================================================

func TestParseLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		want  backend.StreamChunk
		skip  bool
		isErr bool
	}{
		{name: "text", line: `0:"Hello"` + "\n", want: backend.StreamChunk{Content: "Hello"}},
		{name: "escaped text", line: `0:"a\nb \"q\""`, want: backend.StreamChunk{Content: "a\nb \"q\""}},
		{name: "data", line: `2:[{"k":1}]`, want: backend.StreamChunk{Data: `[{"k":1}]`}},
		{name: "annotation", line: `8:[{"type":"sources"}]`, want: backend.StreamChunk{Data: `[{"type":"sources"}]`}},
		{name: "finish", line: `d:{"finishReason":"stop"}`, want: backend.StreamChunk{Done: true, FinishReason: "stop"}},
		{name: "finish step", line: `e:{"finishReason":"stop"}`, want: backend.StreamChunk{Done: true, FinishReason: "stop"}},
		{name: "tool step continues", line: `e:{"finishReason":"tool-calls"}`, want: backend.StreamChunk{FinishReason: "tool-calls"}},
		{name: "continued step", line: `e:{"finishReason":"stop","isContinued":true}`, want: backend.StreamChunk{FinishReason: "stop"}},
		{name: "last step", line: `e:{"finishReason":"stop","isContinued":false}`, want: backend.StreamChunk{Done: true, FinishReason: "stop"}},
		{name: "plain text", line: "just words\n", want: backend.StreamChunk{Content: "just words\n"}},
		{name: "blank line keeps newline", line: "\n", want: backend.StreamChunk{Content: "\n"}},
		{name: "empty", line: "", skip: true},
		{name: "tool call ignored", line: `9:{"toolCallId":"x"}`, skip: true},
		{name: "malformed text is plain", line: `0:not json`, want: backend.StreamChunk{Content: `0:not json`}},
		{name: "error", line: `3:"model overloaded"`, isErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := backend.ParseLine(tt.line)
			if tt.skip {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			if tt.isErr {
				require.Error(t, got.Err)
				assert.Equal(t, "model overloaded", backend.Detail(got.Err))
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStreamReaderPlainText(t *testing.T) {
	r := backend.NewStreamReader(strings.NewReader("line one\nline two"))

	var got strings.Builder
	err := r.Process(context.Background(), func(c backend.StreamChunk) {
		got.WriteString(c.Content)
	})
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", got.String())
	assert.Equal(t, got.String(), r.GetAccumulated())
	assert.Equal(t, 2, r.PartCount())
}

func TestStreamReaderStopsAtFinish(t *testing.T) {
	body := strings.Join([]string{`0:"a"`, `d:{"finishReason":"stop"}`, `0:"ignored"`}, "\n")
	r := backend.NewStreamReader(strings.NewReader(body))

	var chunks []backend.StreamChunk
	require.NoError(t, r.Process(context.Background(), func(c backend.StreamChunk) {
		chunks = append(chunks, c)
	}))
	require.Len(t, chunks, 2)
	assert.True(t, chunks[1].Done)
	assert.Equal(t, "a", r.GetAccumulated())
}

func TestStreamReaderReadsEveryStep(t *testing.T) {
	body := strings.Join([]string{
		`0:"step one. "`,
		`e:{"finishReason":"stop","isContinued":true}`,
		`0:"step two."`,
		`e:{"finishReason":"stop","isContinued":false}`,
		`d:{"finishReason":"stop"}`,
	}, "\n")
	r := backend.NewStreamReader(strings.NewReader(body))

	var done int
	require.NoError(t, r.Process(context.Background(), func(c backend.StreamChunk) {
		if c.Done {
			done++
		}
	}))
	assert.Equal(t, "step one. step two.", r.GetAccumulated())
	assert.Equal(t, 1, done)
}

func TestChatStreamMultiStep(t *testing.T) {
	srv := backendtest.New(t)
	srv.Reply(
		backendtest.Text("first "),
		backendtest.StepFinish("stop", true),
		backendtest.Text("second"),
		backendtest.StepFinish("stop", false),
		backendtest.Finish("stop"),
	)
	c := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: srv.URL})

	var text strings.Builder
	err := c.ChatStream(context.Background(), history(), nil, func(ch backend.StreamChunk) {
		text.WriteString(ch.Content)
	})
	require.NoError(t, err)
	assert.Equal(t, "first second", text.String())
}

// =============================================================================
// CHAT STREAM
// =============================================================================

func history() []model.Message {
	return []model.Message{
		model.NewUserMessage("What is Go?").Value(),
		model.NewAssistantMessage().Value(),
	}
}

func TestChatStream(t *testing.T) {
	srv := backendtest.New(t)
	srv.Reply(
		backendtest.Text("Go is "),
		backendtest.Data(map[string]string{"step": "1"}),
		backendtest.Text("a language."),
		backendtest.Annotation(map[string]string{"type": "sources"}),
		backendtest.Finish("stop"),
	)

	c := backend.NewClientWithConfig(&backend.ClientConfig{
		BaseURL: srv.URL + "/",
		Headers: map[string]string{"X-Api-Key": "secret"},
	})

	var text strings.Builder
	var data []string
	var finish string
	err := c.ChatStream(context.Background(), history(), map[string]any{"lang": "en"}, func(ch backend.StreamChunk) {
		text.WriteString(ch.Content)
		if ch.Data != "" {
			data = append(data, ch.Data)
		}
		if ch.Done {
			finish = ch.FinishReason
		}
	})
	require.NoError(t, err)
	assert.Equal(t, "Go is a language.", text.String())
	assert.Len(t, data, 2)
	assert.Equal(t, "stop", finish)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	// The streaming assistant placeholder is not sent.
	require.Len(t, reqs[0].Messages, 1)
	assert.Equal(t, backend.WireMessage{Role: "user", Content: "What is Go?"}, reqs[0].Messages[0])
	assert.Equal(t, map[string]any{"lang": "en"}, reqs[0].Data)
	assert.Equal(t, "secret", srv.Headers()[0]["X-Api-Key"])
}

func TestChatStreamAPIError(t *testing.T) {
	srv := backendtest.New(t)
	c := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: srv.URL})

	srv.FailWith(500, "the engine is down")
	err := c.ChatStream(context.Background(), history(), nil, func(backend.StreamChunk) {})

	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.Status)
	assert.Equal(t, "the engine is down", backend.Detail(err))
	assert.Contains(t, err.Error(), "500")

	srv.FailWith(422, map[string]string{"field": "messages"})
	err = c.ChatStream(context.Background(), history(), nil, func(backend.StreamChunk) {})
	assert.JSONEq(t, `{"field":"messages"}`, backend.Detail(err))
}

func TestChatStreamErrorPart(t *testing.T) {
	srv := backendtest.New(t)
	srv.Reply(backendtest.Text("partial"), backendtest.Error("rate limited"))
	c := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: srv.URL})

	var text string
	err := c.ChatStream(context.Background(), history(), nil, func(ch backend.StreamChunk) {
		text += ch.Content
	})
	require.Error(t, err)
	assert.Equal(t, "rate limited", backend.Detail(err))
	assert.Equal(t, "partial", text)
}

func TestChatStreamCancel(t *testing.T) {
	srv := backendtest.New(t)
	srv.Reply(backendtest.Text("first"))
	srv.Hold()
	c := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.ChatStream(ctx, history(), nil, func(ch backend.StreamChunk) {
			if ch.Content == "first" {
				got <- struct{}{}
			}
		})
	}()

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("no chunk received")
	}
	cancel()

	select {
	case err := <-done:
		assert.True(t, backend.IsCancelled(err), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
}

func TestChatStreamChan(t *testing.T) {
	srv := backendtest.New(t)
	srv.Reply(backendtest.Text("a"), backendtest.Text("b"), backendtest.Finish("stop"))
	c := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: srv.URL})

	var text string
	for ch := range c.ChatStreamChan(context.Background(), history(), nil) {
		require.NoError(t, ch.Err)
		text += ch.Content
	}
	assert.Equal(t, "ab", text)
}

func TestChatStreamNotRunning(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: "http://" + addr})
	err = c.ChatStream(context.Background(), history(), nil, func(backend.StreamChunk) {})
	assert.True(t, backend.IsNotRunning(err), "got %v", err)
	assert.NotEmpty(t, backend.Detail(err))
}

// =============================================================================
// STARTER QUESTIONS
// =============================================================================

func TestStarterQuestions(t *testing.T) {
	srv := backendtest.New(t)
	c := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: srv.URL})

	srv.SetStarters("What is this?", "Summarise the docs")
	got, err := c.StarterQuestions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"What is this?", "Summarise the docs"}, got)

	srv.OmitStarters()
	got, err = c.StarterQuestions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	srv.FailWith(404, "no config")
	_, err = c.StarterQuestions(context.Background())
	assert.Equal(t, "no config", backend.Detail(err))
}

// =============================================================================
// ERRORS AND LIMITS
// =============================================================================

func TestClientErrorIs(t *testing.T) {
	err := &backend.ClientError{Type: backend.ErrTypeTimeout, Message: "request timed out", Cause: context.DeadlineExceeded}
	assert.True(t, errors.Is(err, backend.ErrTimeout))
	assert.False(t, errors.Is(err, backend.ErrNotRunning))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, "timeout", backend.ErrTypeTimeout.String())
	assert.Equal(t, "", backend.Detail(nil))
}

func TestRateLimiter(t *testing.T) {
	srv := backendtest.New(t)
	c := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: srv.URL, RequestsPerSecond: 0.01})

	_, err := c.StarterQuestions(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.StarterQuestions(ctx)
	var clientErr *backend.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Len(t, srv.Requests(), 0)
}

func TestDefaultConfig(t *testing.T) {
	c := backend.NewClientWithConfig(nil)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())
	assert.Equal(t, backend.NewClient().BaseURL(), c.BaseURL())
}
