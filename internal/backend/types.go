// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import "github.com/jeranaias/chatdeck/internal/model"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// WireMessage is a message as the backend expects it.
type WireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Messages []WireMessage `json:"messages"`
	Data     any           `json:"data,omitempty"`
}

// ToWire converts conversation messages for the request body. Messages still
// streaming are skipped.
func ToWire(msgs []model.Message) []WireMessage {
	out := make([]WireMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.IsStreaming {
			continue
		}
		out = append(out, WireMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ChatConfig is the body of GET /api/chat/config.
type ChatConfig struct {
	StarterQuestions []string `json:"starterQuestions,omitempty"`
}

// FinishInfo is the payload of d: and e: stream parts.
type FinishInfo struct {
	FinishReason string `json:"finishReason"`
	// IsContinued marks an e: step that is followed by another step.
	IsContinued bool `json:"isContinued,omitempty"`
	Usage       *struct {
		PromptTokens     int `json:"promptTokens"`
		CompletionTokens int `json:"completionTokens"`
	} `json:"usage,omitempty"`
}

// StreamChunk is one decoded part of a streaming reply.
type StreamChunk struct {
	// Content is a text delta.
	Content string

	// Data holds a raw 2: or 8: payload.
	Data string

	// Done marks the finish part; FinishReason is set when the backend sent one.
	Done         bool
	FinishReason string

	PromptTokens     int
	CompletionTokens int

	// Err is set for 3: error parts and for failures delivered over a channel.
	Err error
}
