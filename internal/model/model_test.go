// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"sync"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_Streaming(t *testing.T) {
	msg := NewAssistantMessage()
	if !msg.IsStreaming {
		t.Fatal("new assistant message should be streaming")
	}

	msg.AppendToken("Hello")
	msg.AppendToken(", world")
	if got := msg.GetDisplayContent(); got != "Hello, world" {
		t.Errorf("GetDisplayContent() = %q, want %q", got, "Hello, world")
	}
	if msg.Content != "" {
		t.Errorf("Content should be empty until finalized, got %q", msg.Content)
	}

	msg.FinalizeStream()
	if msg.IsStreaming {
		t.Error("message still streaming after FinalizeStream")
	}
	if msg.Content != "Hello, world" {
		t.Errorf("Content = %q, want %q", msg.Content, "Hello, world")
	}

	// Tokens after finalize are ignored
	msg.AppendToken("!")
	if msg.Content != "Hello, world" {
		t.Errorf("Content changed after finalize: %q", msg.Content)
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage("line one\nline two is longer")
	if got := msg.Preview(12); got != "line one ..." {
		t.Errorf("Preview(12) = %q, want %q", got, "line one ...")
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleAssistant, RoleSystem, RoleData} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	if Role("tool").Valid() {
		t.Error("tool should not be a valid role")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_Subscribe(t *testing.T) {
	conv := NewConversation()

	var events []Event
	unsub := conv.Subscribe(func(ev Event) { events = append(events, ev) })

	conv.AddUserMessage("hi")
	conv.AddAssistantMessage()
	conv.AppendToLast("he")
	conv.AppendToLast("llo")
	conv.FinalizeLast()

	wantKinds := []EventKind{EventAdded, EventAdded, EventUpdated, EventUpdated, EventFinalized}
	if len(events) != len(wantKinds) {
		t.Fatalf("got %d events, want %d", len(events), len(wantKinds))
	}
	for i, k := range wantKinds {
		if events[i].Kind != k {
			t.Errorf("event[%d].Kind = %v, want %v", i, events[i].Kind, k)
		}
	}
	if got := events[3].Message.Content; got != "hello" {
		t.Errorf("updated event content = %q, want %q", got, "hello")
	}

	unsub()
	conv.AddUserMessage("again")
	if len(events) != len(wantKinds) {
		t.Error("received event after unsubscribe")
	}
}

func TestConversation_SnapshotSkipsStreaming(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("question")
	conv.AddAssistantMessage()
	conv.AppendToLast("partial")

	if got := len(conv.Messages()); got != 2 {
		t.Errorf("Messages() len = %d, want 2", got)
	}
	snap := conv.Snapshot()
	if len(snap) != 1 || snap[0].Content != "question" {
		t.Errorf("Snapshot() = %+v, want only the user message", snap)
	}

	conv.FinalizeLast()
	snap = conv.Snapshot()
	if len(snap) != 2 || snap[1].Content != "partial" {
		t.Errorf("Snapshot() after finalize = %+v", snap)
	}
}

func TestConversation_SnapshotIsDetached(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("original")

	snap := conv.Snapshot()
	snap[0].Content = "mutated"

	if got := conv.Snapshot()[0].Content; got != "original" {
		t.Errorf("conversation changed through snapshot: %q", got)
	}
}

func TestConversation_RemoveLastIf(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("q")

	if conv.RemoveLastIf(RoleAssistant) {
		t.Error("removed a user message as assistant")
	}
	conv.AddAssistantMessage()
	conv.FinalizeLast()
	if !conv.RemoveLastIf(RoleAssistant) {
		t.Error("expected assistant message to be removed")
	}
	if conv.MessageCount() != 1 {
		t.Errorf("MessageCount() = %d, want 1", conv.MessageCount())
	}
}

func TestConversation_Title(t *testing.T) {
	conv := NewConversation()
	if got := conv.GetTitle(); got != "New Conversation" {
		t.Errorf("GetTitle() = %q", got)
	}
	conv.AddUserMessage("How do tides work?")
	if got := conv.GetTitle(); got != "How do tides work?" {
		t.Errorf("GetTitle() = %q", got)
	}
	conv.Clear()
	if !conv.IsEmpty() || conv.GetTitle() != "New Conversation" {
		t.Error("Clear() did not reset conversation")
	}
}

func TestConversation_Reset(t *testing.T) {
	conv := NewConversation()
	oldID, _, _ := conv.Identity()
	conv.AddUserMessage("q")

	var kinds []EventKind
	conv.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })
	conv.Reset()

	newID, created, _ := conv.Identity()
	if newID == oldID || newID == "" {
		t.Errorf("Reset() kept ID %q", newID)
	}
	if created.IsZero() {
		t.Error("Reset() left CreatedAt zero")
	}
	if !conv.IsEmpty() {
		t.Error("Reset() left messages")
	}
	if len(kinds) != 1 || kinds[0] != EventCleared {
		t.Errorf("events = %v, want [cleared]", kinds)
	}
}

func TestConversation_Restore(t *testing.T) {
	conv := NewConversation()
	conv.Restore([]Message{
		{ID: "1", Role: RoleUser, Content: "q"},
		{ID: "2", Role: RoleAssistant, Content: "a"},
	})
	if conv.MessageCount() != 2 {
		t.Fatalf("MessageCount() = %d, want 2", conv.MessageCount())
	}
	last, ok := conv.Last()
	if !ok || last.Content != "a" {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestConversation_KeepsEveryMessageInOrder(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("first")
	conv.AddMessage(NewSystemMessage("sys-mid"))
	for i := 0; i < 1000; i++ {
		conv.AddUserMessage(fmt.Sprintf("m%d", i))
	}

	msgs := conv.Messages()
	if len(msgs) != 1002 {
		t.Fatalf("len = %d, want 1002", len(msgs))
	}
	if msgs[0].Content != "first" || msgs[1].Content != "sys-mid" {
		t.Errorf("head = %q, %q; want first, sys-mid", msgs[0].Content, msgs[1].Content)
	}
	if msgs[1001].Content != "m999" {
		t.Errorf("last = %q, want m999", msgs[1001].Content)
	}
}

func TestConversation_ConcurrentAccess(t *testing.T) {
	conv := NewConversation()
	conv.AddAssistantMessage()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				conv.AppendToLast("x")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = conv.Messages()
			}
		}()
	}
	wg.Wait()

	last, _ := conv.Last()
	if len(last.Content) != 800 {
		t.Errorf("content length = %d, want 800", len(last.Content))
	}
}

// =============================================================================
// CHAT STATE TESTS
// =============================================================================

func TestDeriveChatState(t *testing.T) {
	user := Message{Role: RoleUser, Content: "q"}
	asst := Message{Role: RoleAssistant, Content: "a"}

	tests := []struct {
		name      string
		messages  []Message
		isLoading bool
		starters  []string
		want      ChatState
	}{
		{
			name:     "empty with starters",
			starters: []string{"What can you do?"},
			want:     ChatState{ShowStarters: true},
		},
		{
			name: "empty without starters",
			want: ChatState{},
		},
		{
			name:      "waiting for first token",
			messages:  []Message{user},
			isLoading: true,
			starters:  []string{"x"},
			want:      ChatState{ShowStop: true, IsPending: true, ShowExport: true},
		},
		{
			name:      "streaming reply",
			messages:  []Message{user, asst},
			isLoading: true,
			want:      ChatState{ShowStop: true, ShowExport: true},
		},
		{
			name:     "reply complete",
			messages: []Message{user, asst},
			want:     ChatState{ShowReload: true, ShowExport: true},
		},
		{
			name:     "stopped before reply",
			messages: []Message{user},
			want:     ChatState{ShowExport: true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveChatState(tc.messages, tc.isLoading, tc.starters)
			if got != tc.want {
				t.Errorf("DeriveChatState() = %+v, want %+v", got, tc.want)
			}
		})
	}
}
