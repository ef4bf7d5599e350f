// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backendtest runs a fake chat backend for tests. It speaks the same
// routes and data-stream protocol as the real service.
package backendtest

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/jeranaias/chatdeck/internal/backend"
)

// Server is a fake backend listening on a loopback port.
type Server struct {
	URL string

	app     *fiber.App
	release chan struct{}
	once    sync.Once

	mu        sync.Mutex
	requests  []backend.ChatRequest
	headers   []map[string]string
	starters  []string
	noConfig  bool
	status    int
	detail    any
	lines     func(req backend.ChatRequest) []string
	hold      bool
	lineDelay time.Duration
}

// New starts a server and registers cleanup on t. By default it replies to
// every chat request with the text "ok".
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		release: make(chan struct{}),
		lines: func(backend.ChatRequest) []string {
			return []string{Text("ok"), Finish("stop")}
		},
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/api/chat", s.handleChat)
	app.Get("/api/chat/config", s.handleConfig)
	s.app = app

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s.URL = "http://" + ln.Addr().String()

	go func() { _ = app.Listener(ln) }()

	t.Cleanup(func() {
		s.Release()
		_ = app.ShutdownWithTimeout(2 * time.Second)
	})
	return s
}

// =============================================================================
// SCRIPTING
// =============================================================================

// SetStarters sets the starter questions served from /api/chat/config.
func (s *Server) SetStarters(q ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starters = q
	s.noConfig = false
}

// OmitStarters makes /api/chat/config return an empty object.
func (s *Server) OmitStarters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starters = nil
	s.noConfig = true
}

// FailWith makes every request fail with status and a {"detail": detail} body.
// A status of 0 restores normal replies.
func (s *Server) FailWith(status int, detail any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.detail = detail
}

// Reply sets the raw stream lines written for every chat request.
func (s *Server) Reply(lines ...string) {
	s.ReplyFunc(func(backend.ChatRequest) []string { return lines })
}

// ReplyFunc computes the stream lines per request.
func (s *Server) ReplyFunc(fn func(req backend.ChatRequest) []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = fn
}

// Hold keeps streams open after their lines are written until Release is
// called or the client goes away.
func (s *Server) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hold = true
}

// Release lets held streams finish.
func (s *Server) Release() {
	s.once.Do(func() { close(s.release) })
}

// SetLineDelay pauses between stream lines.
func (s *Server) SetLineDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lineDelay = d
}

// Requests returns the chat request bodies received so far.
func (s *Server) Requests() []backend.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.ChatRequest(nil), s.requests...)
}

// Headers returns the request headers of each chat request received.
func (s *Server) Headers() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.headers...)
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) handleConfig(c *fiber.Ctx) error {
	s.mu.Lock()
	status, detail := s.status, s.detail
	starters, omit := s.starters, s.noConfig
	s.mu.Unlock()

	if status != 0 {
		return c.Status(status).JSON(fiber.Map{"detail": detail})
	}
	if omit {
		return c.JSON(fiber.Map{})
	}
	if starters == nil {
		starters = []string{}
	}
	return c.JSON(backend.ChatConfig{StarterQuestions: starters})
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req backend.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": "invalid request body"})
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	hdr := make(map[string]string)
	for k, v := range c.GetReqHeaders() {
		if len(v) > 0 {
			hdr[k] = v[0]
		}
	}
	s.headers = append(s.headers, hdr)
	status, detail := s.status, s.detail
	lines := s.lines(req)
	hold, delay := s.hold, s.lineDelay
	s.mu.Unlock()

	if status != 0 {
		return c.Status(status).JSON(fiber.Map{"detail": detail})
	}

	c.Set("Content-Type", "text/plain; charset=utf-8")
	c.Set("X-Vercel-AI-Data-Stream", "v1")

	release := s.release
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		for _, line := range lines {
			if delay > 0 {
				time.Sleep(delay)
			}
			w.WriteString(line)
			w.WriteString("\n")
			if err := w.Flush(); err != nil {
				return
			}
		}
		if hold {
			select {
			case <-release:
			case <-time.After(10 * time.Second):
			}
		}
	}))
	return nil
}

// =============================================================================
// LINE BUILDERS
// =============================================================================

// Text encodes a 0: text part.
func Text(s string) string {
	b, _ := json.Marshal(s)
	return "0:" + string(b)
}

// Error encodes a 3: error part.
func Error(s string) string {
	b, _ := json.Marshal(s)
	return "3:" + string(b)
}

// Data encodes a 2: data part.
func Data(v any) string {
	b, _ := json.Marshal([]any{v})
	return "2:" + string(b)
}

// Annotation encodes an 8: message annotation part.
func Annotation(v any) string {
	b, _ := json.Marshal([]any{v})
	return "8:" + string(b)
}

// Finish encodes a d: finish part.
func Finish(reason string) string {
	b, _ := json.Marshal(map[string]any{
		"finishReason": reason,
		"usage":        map[string]int{"promptTokens": 1, "completionTokens": 1},
	})
	return "d:" + string(b)
}

// StepFinish encodes an e: step finish part.
func StepFinish(reason string, continued bool) string {
	b, _ := json.Marshal(map[string]any{
		"finishReason": reason,
		"isContinued":  continued,
	})
	return "e:" + string(b)
}
