// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/chatdeck/internal/deck"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONDocument is the top-level object written by JSONExporter.
type JSONDocument struct {
	Generator  string       `json:"generator,omitempty"`
	ExportedAt *time.Time   `json:"exported_at,omitempty"`
	Canvas     deck.Canvas  `json:"canvas"`
	Slides     []deck.Slide `json:"slides"`
}

// JSONExporter writes the deck with full layout data, for tools that render
// slides themselves.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	return &JSONExporter{options: opts.withDefaults()}
}

// Export converts a deck to indented JSON.
func (e *JSONExporter) Export(d *deck.Deck) ([]byte, error) {
	if d == nil {
		return nil, ErrNilDeck
	}

	doc := JSONDocument{Canvas: d.Canvas, Slides: d.Slides}
	if doc.Slides == nil {
		doc.Slides = []deck.Slide{}
	}
	if e.options.IncludeMetadata {
		now := e.options.now().UTC()
		doc.Generator = "chatdeck"
		doc.ExportedAt = &now
	}
	return json.MarshalIndent(doc, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
