// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package deck turns a conversation into slide records.
//
// Chunk splits message text at word boundaries into pieces of bounded size.
// Build arranges those pieces into a Deck: one title slide, a content slide
// per chunk headed "Message {i} - Part {j}", and one summary slide. Both are
// pure and safe for concurrent use; serialization lives in package export.
//
// # Usage
//
//	d := deck.Build(conv.Snapshot(), deck.DefaultMaxChars)
//	for _, s := range d.Slides {
//	    fmt.Println(s.Kind, s.Heading)
//	}
package deck
