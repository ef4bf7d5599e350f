// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package deck

import (
	"fmt"

	"github.com/jeranaias/chatdeck/internal/model"
)

// Kind is the role a slide plays in the deck.
type Kind string

const (
	KindTitle   Kind = "title"
	KindContent Kind = "content"
	KindSummary Kind = "summary"
)

// Slide is one record handed to an exporter.
type Slide struct {
	Kind       Kind    `json:"kind"`
	Heading    string  `json:"heading"`
	Body       string  `json:"body,omitempty"`
	Background string  `json:"background"`
	HeadingBox TextBox `json:"heading_box"`
	BodyBox    TextBox `json:"body_box,omitempty"`

	// Message and Part are 1-based positions of a content slide's chunk.
	// Both are zero for title and summary slides.
	Message int `json:"message,omitempty"`
	Part    int `json:"part,omitempty"`
}

// HasBody reports whether the slide carries body text.
func (s Slide) HasBody() bool {
	return s.Body != ""
}

// Deck is the ordered slide list for one export. The first slide is always
// the title and the last always the summary.
type Deck struct {
	Canvas Canvas  `json:"canvas"`
	Slides []Slide `json:"slides"`
}

// Stats counts slides by kind.
type Stats struct {
	Total    int
	Content  int
	Messages int // messages that produced at least one slide
}

// Stats reports slide counts for UI feedback.
func (d *Deck) Stats() Stats {
	st := Stats{Total: len(d.Slides)}
	seen := make(map[int]bool)
	for _, s := range d.Slides {
		if s.Kind != KindContent {
			continue
		}
		st.Content++
		if !seen[s.Message] {
			seen[s.Message] = true
			st.Messages++
		}
	}
	return st
}

// ContentHeading returns the heading of the content slide for message i,
// part j (both 1-based).
func ContentHeading(i, j int) string {
	return fmt.Sprintf("Message %d - Part %d", i, j)
}

// Build lays out messages on the default layout. Each message's content is
// split with Chunk(content, maxSize) and every chunk becomes one content
// slide, between a title slide and a summary slide. Build has no side effects
// and returns structurally identical decks for identical input.
func Build(messages []model.Message, maxSize int) *Deck {
	return BuildWithLayout(messages, maxSize, DefaultLayout())
}

// BuildWithLayout is Build with custom styling. The layout is applied as-is;
// call Layout.Validate first when it comes from user input.
func BuildWithLayout(messages []model.Message, maxSize int, layout Layout) *Deck {
	d := &Deck{
		Canvas: layout.Canvas,
		Slides: make([]Slide, 0, len(messages)+2),
	}

	d.Slides = append(d.Slides, Slide{
		Kind:       KindTitle,
		Heading:    layout.TitleHeading,
		Background: layout.Title.Background,
		HeadingBox: layout.Title.Heading,
	})

	for i, msg := range messages {
		for j, chunk := range Chunk(msg.Content, maxSize) {
			d.Slides = append(d.Slides, Slide{
				Kind:       KindContent,
				Heading:    ContentHeading(i+1, j+1),
				Body:       chunk,
				Background: layout.Content.Background,
				HeadingBox: layout.Content.Heading,
				BodyBox:    layout.Content.Body,
				Message:    i + 1,
				Part:       j + 1,
			})
		}
	}

	d.Slides = append(d.Slides, Slide{
		Kind:       KindSummary,
		Heading:    layout.SummaryHeading,
		Body:       layout.SummaryBody,
		Background: layout.Summary.Background,
		HeadingBox: layout.Summary.Heading,
		BodyBox:    layout.Summary.Body,
	})

	return d
}
