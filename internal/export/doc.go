// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export serializes slide decks to files.
//
// # Key Types
//
//   - Exporter: format interface (Export, FileExtension, MimeType)
//   - Options: output directory, file name, chunk size, theme
//
// # Supported Formats
//
//   - PPTX: Office Open XML presentation (default)
//   - Markdown: slide outline with rule-separated slides
//   - HTML: self-contained scaled slideshow
//   - JSON: deck with full layout data
//
// # Usage
//
//	path, d, err := export.ExportConversation(conv.Snapshot(), "pptx", opts)
//
// Or with an explicit deck:
//
//	d := deck.Build(msgs, 500)
//	path, err := export.ExportToFile(d, export.NewPPTXExporter(opts), opts)
package export
