// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend is the HTTP client for the chat backend.
//
// ChatStream posts the conversation to {url}/api/chat and decodes the AI
// data-stream response line by line. StarterQuestions reads the suggested
// opening prompts from {url}/api/chat/config. Non-2xx responses surface as
// *APIError carrying the backend's detail text; transport failures surface as
// *ClientError.
package backend
