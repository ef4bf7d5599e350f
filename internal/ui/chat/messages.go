// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/chatdeck/internal/config"
	"github.com/jeranaias/chatdeck/internal/deck"
	"github.com/jeranaias/chatdeck/internal/model"
)

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// ConversationEventMsg carries a conversation change into the update loop.
type ConversationEventMsg struct {
	Event model.Event
}

// ReplyDoneMsg reports the end of an append or reload.
type ReplyDoneMsg struct {
	Err error
}

// StartersMsg delivers the starter questions.
type StartersMsg struct {
	Questions []string
	Err       error
}

// =============================================================================
// EXPORT MESSAGES
// =============================================================================

// ExportCompleteMsg reports the result of a deck export.
type ExportCompleteMsg struct {
	Path  string
	Stats deck.Stats
	Err   error
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigReloadedMsg carries a config file change.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorMsg opens the blocking alert.
type ErrorMsg struct {
	Title  string
	Detail string
}
