// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/chatdeck/internal/backend"
	"github.com/jeranaias/chatdeck/internal/logger"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBusy is returned when a reply is already streaming.
	ErrBusy = errors.New("a reply is already in progress")

	// ErrNothingToReload is returned by Reload on a conversation without a
	// user message to answer.
	ErrNothingToReload = errors.New("nothing to reload")

	// ErrInvalidMessage is returned by Append for empty or non-user messages.
	ErrInvalidMessage = errors.New("message must be a non-empty user message")
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Backend is the part of backend.Client a Handler needs.
type Backend interface {
	ChatStream(ctx context.Context, messages []model.Message, data any, cb backend.StreamCallback) error
	StarterQuestions(ctx context.Context) ([]string, error)
}

// Store persists completed conversations.
type Store interface {
	Save(conv *storage.StoredConversation) (string, error)
}

// Options configure a Handler. All fields are optional.
type Options struct {
	Conversation *model.Conversation
	Store        Store
	Logger       *zap.Logger

	// BackendName is recorded with saved conversations.
	BackendName string

	// OnError receives backend failures with their detail already extracted.
	OnError func(detail string, err error)
}

// =============================================================================
// HANDLER
// =============================================================================

// Handler drives one conversation against the backend. It is safe for
// concurrent use.
type Handler struct {
	client   Backend
	conv     *model.Conversation
	store    Store
	log      *zap.Logger
	name     string
	starters *Starters

	mu      sync.Mutex
	loading bool
	cancel  context.CancelFunc
	stopped bool
	data    map[string]any
	onError func(detail string, err error)
}

// New creates a handler for client.
func New(client Backend, opts Options) *Handler {
	conv := opts.Conversation
	if conv == nil {
		conv = model.NewConversation()
	}
	log := logger.OrNop(opts.Logger)
	return &Handler{
		client:   client,
		conv:     conv,
		store:    opts.Store,
		log:      log,
		name:     opts.BackendName,
		starters: NewStarters(client, log),
		onError:  opts.OnError,
	}
}

// Conversation returns the live conversation.
func (h *Handler) Conversation() *model.Conversation {
	return h.conv
}

// Subscribe registers fn for conversation events.
func (h *Handler) Subscribe(fn model.Subscriber) (unsubscribe func()) {
	return h.conv.Subscribe(fn)
}

// Messages returns the current messages, including a reply still streaming.
func (h *Handler) Messages() []model.Message {
	return h.conv.Messages()
}

// Snapshot returns the completed messages only.
func (h *Handler) Snapshot() []model.Message {
	return h.conv.Snapshot()
}

// IsLoading reports whether a reply is streaming.
func (h *Handler) IsLoading() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loading
}

// State derives the UI state from the current messages and starters.
func (h *Handler) State() model.ChatState {
	return model.DeriveChatState(h.Messages(), h.IsLoading(), h.starters.Cached())
}

// Starters returns the session's starter question cache.
func (h *Handler) Starters() *Starters {
	return h.starters
}

// SetRequestData sets the extra data object sent with every chat request.
func (h *Handler) SetRequestData(data map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = maps.Clone(data)
}

// SetOnError replaces the error callback.
func (h *Handler) SetOnError(fn func(detail string, err error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onError = fn
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Append adds a user message and streams the assistant reply. It blocks
// until the reply completes, fails, or is stopped. A stopped reply returns
// nil and keeps its partial content.
func (h *Handler) Append(ctx context.Context, msg model.Message) error {
	if msg.Role == "" {
		msg.Role = model.RoleUser
	}
	if msg.Role != model.RoleUser || msg.Content == "" {
		return ErrInvalidMessage
	}

	ctx, err := h.begin(ctx)
	if err != nil {
		return err
	}
	defer h.end()

	m := model.NewUserMessage(msg.Content)
	if msg.ID != "" {
		m.ID = msg.ID
	}
	h.conv.AddMessage(m)
	h.log.Debug("user message appended", zap.String("id", m.ID), zap.Int("chars", len(m.Content)))

	return h.stream(ctx)
}

// Reload drops the trailing assistant reply, if any, and requests a new one
// for the same history.
func (h *Handler) Reload(ctx context.Context) error {
	ctx, err := h.begin(ctx)
	if err != nil {
		return err
	}
	defer h.end()

	h.conv.RemoveLastIf(model.RoleAssistant)
	last, ok := h.conv.Last()
	if !ok || last.Role != model.RoleUser {
		return ErrNothingToReload
	}
	h.log.Debug("reloading reply", zap.Int("messages", h.conv.MessageCount()))

	return h.stream(ctx)
}

// Stop cancels the streaming reply. It reports whether anything was running.
func (h *Handler) Stop() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.loading || h.cancel == nil {
		return false
	}
	h.stopped = true
	h.cancel()
	return true
}

// Clear starts a fresh conversation. It fails with ErrBusy while loading.
func (h *Handler) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.loading {
		return ErrBusy
	}
	h.conv.Reset()
	return nil
}

// =============================================================================
// STREAMING
// =============================================================================

func (h *Handler) begin(ctx context.Context) (context.Context, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.loading {
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	h.loading = true
	h.stopped = false
	h.cancel = cancel
	return ctx, nil
}

func (h *Handler) end() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
	}
	h.cancel = nil
	h.loading = false
}

// stream requests a reply for the current history. The assistant message is
// created when the first part arrives, so the conversation shows a pending
// state until then.
func (h *Handler) stream(ctx context.Context) error {
	var data any
	h.mu.Lock()
	if len(h.data) > 0 {
		data = h.data
	}
	h.mu.Unlock()

	history := h.conv.Snapshot()
	start := time.Now()
	started := false

	err := h.client.ChatStream(ctx, history, data, func(chunk backend.StreamChunk) {
		if chunk.Content == "" && chunk.Data == "" {
			return
		}
		if !started {
			h.conv.AddAssistantMessage()
			started = true
		}
		if chunk.Content != "" {
			h.conv.AppendToLast(chunk.Content)
		}
		if chunk.Data != "" {
			h.conv.AnnotateLast(chunk.Data)
		}
	})
	if started {
		h.conv.FinalizeLast()
	}

	h.mu.Lock()
	stopped := h.stopped
	h.mu.Unlock()

	if stopped && (err == nil || backend.IsCancelled(err)) {
		h.log.Info("reply stopped", zap.Duration("elapsed", time.Since(start)))
		h.save()
		return nil
	}
	if err != nil {
		h.report(err)
		return err
	}

	h.log.Debug("reply complete", zap.Duration("elapsed", time.Since(start)), zap.Bool("empty", !started))
	h.save()
	return nil
}

// report logs err and hands it to the error callback. Errors are never
// retried here; the user may reload.
func (h *Handler) report(err error) {
	detail := backend.Detail(err)
	h.log.Warn("chat request failed", zap.String("detail", detail), zap.Error(err))

	h.mu.Lock()
	fn := h.onError
	h.mu.Unlock()
	if fn != nil {
		fn(detail, err)
	}
}

func (h *Handler) save() {
	if h.store == nil || h.conv.IsEmpty() {
		return
	}
	id, err := h.store.Save(storage.FromConversation(h.conv, h.name))
	if err != nil {
		h.log.Warn("failed to save conversation", zap.Error(err))
		return
	}
	h.log.Debug("conversation saved", zap.String("id", id))
}
