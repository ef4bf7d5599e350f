// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversation history in SQLite.
//
// The pure Go modernc.org/sqlite driver is used, so no cgo toolchain is
// needed. A conversation row owns its message rows; deleting one cascades.
//
// # Usage
//
//	store, err := storage.Open(cfg.HistoryPath())
//	defer store.Close()
//	id, err := store.Save(storage.FromConversation(conv, backendURL))
//	metas, err := store.List()
//	stored, err := store.Load(metas[0].ID)
//
// # Storage Location
//
// The database defaults to ~/.chatdeck/history.db.
package storage
