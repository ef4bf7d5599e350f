// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns a live conversation and drives the backend for it.
//
// A Handler appends user messages, streams the assistant reply into the
// conversation token by token, and supports reload (regenerate the last
// reply) and stop (cancel the stream, keeping the partial text). Views
// subscribe to conversation events instead of polling.
//
// # Key Types
//
//   - Handler: append / reload / stop / isLoading for one conversation
//   - Starters: starter questions, fetched once per session
//
// # Usage
//
//	h := session.New(client, session.Options{Store: store, Logger: log})
//	unsubscribe := h.Subscribe(func(ev model.Event) { ... })
//	defer unsubscribe()
//	err := h.Append(ctx, model.NewUserMessage("hello").Value())
//
// Only one reply streams at a time; Append or Reload while loading returns
// ErrBusy.
package session
