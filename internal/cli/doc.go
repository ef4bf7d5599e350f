// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the chatdeck command line.
//
// The root command starts the full-screen chat interface. Line-mode
// commands cover scripting and terminals without TUI support:
//
//   - chat: interactive REPL with history and slash commands
//   - ask: one question, optionally exported as a deck
//   - export: turn a stored conversation into a deck
//   - history: list, show, search and delete stored conversations
//   - starters: print the backend's starter questions
//   - config: show, init, get and set configuration
//   - version: build information
//
// Commands return errors; Execute prints them once and maps them to exit
// codes.
package cli
