// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/session"
)

// =============================================================================
// STREAMED REPLY OUTPUT
// =============================================================================

// replyPrinter writes assistant replies to w as they stream in.
type replyPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	prefix  string
	written int
}

func newReplyPrinter(w io.Writer, prefix string) *replyPrinter {
	return &replyPrinter{w: w, prefix: prefix}
}

// Handle is a model.Subscriber.
func (p *replyPrinter) Handle(ev model.Event) {
	if ev.Message.Role != model.RoleAssistant {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Kind {
	case model.EventAdded:
		p.written = 0
		io.WriteString(p.w, p.prefix)
		p.flush(ev.Message.Content)
	case model.EventUpdated:
		p.flush(ev.Message.Content)
	case model.EventFinalized:
		p.flush(ev.Message.Content)
		fmt.Fprintln(p.w)
	}
}

func (p *replyPrinter) flush(content string) {
	if len(content) > p.written {
		io.WriteString(p.w, content[p.written:])
		p.written = len(content)
	}
}

// =============================================================================
// INTERRUPTS
// =============================================================================

// withInterrupt runs fn and stops the handler's reply on Ctrl+C instead of
// killing the process. It reports whether the reply was interrupted.
func withInterrupt(ctx context.Context, h *session.Handler, fn func(context.Context) error) (bool, error) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	done := make(chan struct{})
	interrupted := make(chan bool, 1)
	go func() {
		select {
		case <-sig:
			interrupted <- h.Stop()
		case <-done:
			interrupted <- false
		}
	}()

	err := fn(ctx)
	close(done)
	return <-interrupted, err
}
