// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: mutex-guarded ordered history with change subscriptions
//   - Message: single message with role, content, and streaming state
//   - ChatState: UI flags derived from the message list
//   - Role: user, assistant, system, data
//
// # Usage
//
//	conv := model.NewConversation()
//	unsub := conv.Subscribe(func(ev model.Event) {
//	    fmt.Println(ev.Kind, ev.Count)
//	})
//	defer unsub()
//	conv.AddUserMessage("Hello!")
//
//	state := model.DeriveChatState(conv.Messages(), false, nil)
package model
