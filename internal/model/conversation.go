// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies what changed in a conversation.
type EventKind int

const (
	// EventAdded fires when a message is appended.
	EventAdded EventKind = iota
	// EventUpdated fires when the streaming message receives content.
	EventUpdated
	// EventFinalized fires when the streaming message completes.
	EventFinalized
	// EventRemoved fires when a message is dropped (reload).
	EventRemoved
	// EventCleared fires when the history is wiped.
	EventCleared
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventUpdated:
		return "updated"
	case EventFinalized:
		return "finalized"
	case EventRemoved:
		return "removed"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event describes a single change. Message is a detached copy and is zero
// for EventCleared.
type Event struct {
	Kind    EventKind
	Message Message
	Count   int // message count after the change
}

// Subscriber receives conversation events. It is called synchronously, after
// the conversation lock is released, so it may read the conversation.
type Subscriber func(Event)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds an ordered chat history. It is safe for concurrent use.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	mu       sync.RWMutex
	messages []*Message

	subMu  sync.Mutex
	subs   map[int]Subscriber
	nextID int
}

// NewConversation creates a new conversation with a generated ID.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		messages:  make([]*Message, 0),
	}
}

// Subscribe registers fn for change events and returns a function that
// removes the subscription.
func (c *Conversation) Subscribe(fn Subscriber) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.subs == nil {
		c.subs = make(map[int]Subscriber)
	}
	id := c.nextID
	c.nextID++
	c.subs[id] = fn

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Conversation) notify(ev Event) {
	c.subMu.Lock()
	subs := make([]Subscriber, 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message.
func (c *Conversation) AddMessage(msg *Message) {
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.UpdatedAt = time.Now()
	c.updateTitle()
	ev := Event{Kind: EventAdded, Message: msg.Value(), Count: len(c.messages)}
	c.mu.Unlock()

	c.notify(ev)
}

// AddUserMessage creates and appends a user message.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.AddMessage(msg)
	return msg
}

// AddAssistantMessage creates and appends a streaming assistant message.
func (c *Conversation) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	c.AddMessage(msg)
	return msg
}

// AppendToLast appends a token to the last message if it is streaming.
func (c *Conversation) AppendToLast(token string) {
	c.mu.Lock()
	last := c.last()
	if last == nil || !last.IsStreaming {
		c.mu.Unlock()
		return
	}
	last.AppendToken(token)
	ev := Event{Kind: EventUpdated, Message: last.Value(), Count: len(c.messages)}
	c.mu.Unlock()

	c.notify(ev)
}

// AnnotateLast attaches a raw data part to the last message.
func (c *Conversation) AnnotateLast(part string) {
	c.mu.Lock()
	last := c.last()
	if last == nil {
		c.mu.Unlock()
		return
	}
	last.Annotations = append(last.Annotations, part)
	ev := Event{Kind: EventUpdated, Message: last.Value(), Count: len(c.messages)}
	c.mu.Unlock()

	c.notify(ev)
}

// FinalizeLast completes the last streaming message. It reports whether a
// message was finalized.
func (c *Conversation) FinalizeLast() bool {
	c.mu.Lock()
	last := c.last()
	if last == nil || !last.IsStreaming {
		c.mu.Unlock()
		return false
	}
	last.FinalizeStream()
	c.UpdatedAt = time.Now()
	ev := Event{Kind: EventFinalized, Message: last.Value(), Count: len(c.messages)}
	c.mu.Unlock()

	c.notify(ev)
	return true
}

// RemoveLastIf drops the last message when its role matches. Used by reload
// to discard the previous assistant reply.
func (c *Conversation) RemoveLastIf(role Role) bool {
	c.mu.Lock()
	last := c.last()
	if last == nil || last.Role != role {
		c.mu.Unlock()
		return false
	}
	c.messages = c.messages[:len(c.messages)-1]
	c.UpdatedAt = time.Now()
	ev := Event{Kind: EventRemoved, Message: last.Value(), Count: len(c.messages)}
	c.mu.Unlock()

	c.notify(ev)
	return true
}

// Clear removes all messages.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.messages = make([]*Message, 0)
	c.Title = ""
	c.UpdatedAt = time.Now()
	c.mu.Unlock()

	c.notify(Event{Kind: EventCleared})
}

// Reset clears the history and gives the conversation a fresh identity, so
// the next save starts a new stored conversation.
func (c *Conversation) Reset() {
	c.mu.Lock()
	now := time.Now()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now
	c.messages = make([]*Message, 0)
	c.Title = ""
	c.mu.Unlock()

	c.notify(Event{Kind: EventCleared})
}

// Identity returns the conversation ID and creation time under the lock.
func (c *Conversation) Identity() (id string, created, updated time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ID, c.CreatedAt, c.UpdatedAt
}

// Messages returns detached copies of all messages, including a message that
// is still streaming (with its partial content).
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, 0, len(c.messages))
	for _, m := range c.messages {
		out = append(out, m.Value())
	}
	return out
}

// Snapshot returns detached copies of the completed messages only. A reply
// still streaming is not part of the snapshot.
func (c *Conversation) Snapshot() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, 0, len(c.messages))
	for _, m := range c.messages {
		if m.IsStreaming {
			continue
		}
		out = append(out, m.Value())
	}
	return out
}

// Last returns a copy of the most recent message.
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	last := c.last()
	if last == nil {
		return Message{}, false
	}
	return last.Value(), true
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return c.MessageCount() == 0
}

// Restore replaces the history with msgs, e.g. when resuming a stored
// conversation. No events are emitted.
func (c *Conversation) Restore(msgs []Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make([]*Message, 0, len(msgs))
	for i := range msgs {
		m := msgs[i]
		m.IsStreaming = false
		c.messages = append(c.messages, &m)
	}
	c.updateTitle()
}

func (c *Conversation) last() *Message {
	if len(c.messages) == 0 {
		return nil
	}
	return c.messages[len(c.messages)-1]
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle derives a title from the first user message if not set.
// Caller holds c.mu.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}
	for _, msg := range c.messages {
		if msg.Role == RoleUser {
			c.Title = msg.Preview(50)
			return
		}
	}
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}
