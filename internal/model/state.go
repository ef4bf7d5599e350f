// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// ChatState holds the UI flags derived from the message list. It is computed
// on demand and never stored.
type ChatState struct {
	// ShowReload offers regenerating the last reply.
	ShowReload bool
	// ShowStop offers cancelling the in-flight reply.
	ShowStop bool
	// IsPending is true between sending and the first token of the reply.
	IsPending bool
	// ShowExport offers generating the slide deck.
	ShowExport bool
	// ShowStarters shows the starter questions.
	ShowStarters bool
}

// LastFromAssistant reports whether the conversation ends with a message not
// authored by the user.
func LastFromAssistant(messages []Message) bool {
	if len(messages) == 0 {
		return false
	}
	return messages[len(messages)-1].Role != RoleUser
}

// DeriveChatState computes the UI flags for the given state.
func DeriveChatState(messages []Message, isLoading bool, starters []string) ChatState {
	fromAssistant := LastFromAssistant(messages)
	return ChatState{
		ShowReload:   !isLoading && fromAssistant,
		ShowStop:     isLoading,
		IsPending:    isLoading && !fromAssistant,
		ShowExport:   len(messages) > 0,
		ShowStarters: len(messages) == 0 && len(starters) > 0,
	}
}
