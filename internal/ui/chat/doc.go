// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the TUI.
//
// The model renders the conversation owned by a session.Handler. Replies
// stream in a background command; the view subscribes to conversation
// events and re-renders on each one. Actions offered in the status bar
// (stop, regenerate, generate deck) follow model.ChatState.
package chat
