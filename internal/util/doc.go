// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across chatdeck packages.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: truncation by terminal display width (go-runewidth)
//   - OneLine: flatten text for single-line previews
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync + rename
//
// # Usage
//
//	preview := util.TruncateRunes(msg.Content, 50)
//	err := util.AtomicWriteFile(path, data, 0644)
package util
