// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for the chatdeck TUI.
//
// Colors are Lip Gloss AdaptiveColor values, so they follow the terminal's
// light or dark background unless the theme mode is fixed in config.
package styles
