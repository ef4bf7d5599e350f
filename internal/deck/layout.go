// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package deck

import (
	"errors"
	"fmt"
)

// =============================================================================
// GEOMETRY
// =============================================================================

// Canvas is the slide size in inches.
type Canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Widescreen is the 16:9 canvas used by default.
var Widescreen = Canvas{Width: 10, Height: 5.625}

// Align is horizontal text alignment inside a text box.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// TextBox positions and styles one block of text. Coordinates and sizes are
// in inches from the top-left corner of the canvas. Color is six hex digits
// without a leading '#'.
type TextBox struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	W        float64 `json:"w"`
	H        float64 `json:"h"`
	FontSize int     `json:"font_size"` // points
	Bold     bool    `json:"bold,omitempty"`
	Color    string  `json:"color"`
	Align    Align   `json:"align"`
}

// SlideStyle is the background and text boxes for one kind of slide.
type SlideStyle struct {
	Background string  `json:"background"`
	Heading    TextBox `json:"heading"`
	Body       TextBox `json:"body"`
}

// =============================================================================
// LAYOUT
// =============================================================================

// Layout holds the fixed texts and styling applied by BuildWithLayout.
type Layout struct {
	Canvas Canvas

	TitleHeading   string
	SummaryHeading string
	SummaryBody    string

	Title   SlideStyle
	Content SlideStyle
	Summary SlideStyle
}

// Fixed slide texts.
const (
	DefaultTitleHeading   = "Chat Response Presentation"
	DefaultSummaryHeading = "Summary"
	DefaultSummaryBody    = "This presentation provides key information and insights based on the chat responses."
)

// DefaultMaxChars is the default chunk size for one content slide.
const DefaultMaxChars = 500

// DefaultLayout returns the standard chatdeck styling on a 16:9 canvas.
func DefaultLayout() Layout {
	c := Widescreen
	return Layout{
		Canvas:         c,
		TitleHeading:   DefaultTitleHeading,
		SummaryHeading: DefaultSummaryHeading,
		SummaryBody:    DefaultSummaryBody,
		Title: SlideStyle{
			Background: "0088CC",
			Heading: TextBox{
				X: 0.5, Y: 1, W: 9, H: 1.5,
				FontSize: 36, Bold: true, Color: "FFFFFF", Align: AlignCenter,
			},
		},
		Content: SlideStyle{
			Background: "F1F1F1",
			Heading: TextBox{
				X: 0.5, Y: 0.5, W: 9, H: 0.75,
				FontSize: 24, Bold: true, Color: "333333", Align: AlignLeft,
			},
			Body: TextBox{
				X: 0.5, Y: 1.5, W: c.Width * 0.9, H: c.Height * 0.7,
				FontSize: 18, Color: "000000", Align: AlignLeft,
			},
		},
		Summary: SlideStyle{
			Background: "0088CC",
			Heading: TextBox{
				X: 0.5, Y: 1, W: 9, H: 1,
				FontSize: 36, Bold: true, Color: "FFFFFF", Align: AlignCenter,
			},
			Body: TextBox{
				X: 1, Y: 2.5, W: 8, H: 1.5,
				FontSize: 18, Color: "FFFFFF", Align: AlignCenter,
			},
		},
	}
}

// ErrInvalidLayout is wrapped by every error Validate returns.
var ErrInvalidLayout = errors.New("invalid layout")

// Validate checks that every text box lies inside the canvas with
// non-negative coordinates and that colors are six-digit hex values.
func (l Layout) Validate() error {
	if l.Canvas.Width <= 0 || l.Canvas.Height <= 0 {
		return fmt.Errorf("%w: canvas %gx%g", ErrInvalidLayout, l.Canvas.Width, l.Canvas.Height)
	}
	styles := []struct {
		name  string
		style SlideStyle
		body  bool
	}{
		{"title", l.Title, false},
		{"content", l.Content, true},
		{"summary", l.Summary, true},
	}
	for _, s := range styles {
		if !isHexColor(s.style.Background) {
			return fmt.Errorf("%w: %s background %q", ErrInvalidLayout, s.name, s.style.Background)
		}
		if err := l.checkBox(s.name+" heading", s.style.Heading); err != nil {
			return err
		}
		if s.body {
			if err := l.checkBox(s.name+" body", s.style.Body); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l Layout) checkBox(name string, b TextBox) error {
	const eps = 1e-9
	switch {
	case b.X < 0 || b.Y < 0:
		return fmt.Errorf("%w: %s at negative position (%g, %g)", ErrInvalidLayout, name, b.X, b.Y)
	case b.W <= 0 || b.H <= 0:
		return fmt.Errorf("%w: %s has empty size %gx%g", ErrInvalidLayout, name, b.W, b.H)
	case b.X+b.W > l.Canvas.Width+eps || b.Y+b.H > l.Canvas.Height+eps:
		return fmt.Errorf("%w: %s extends past the canvas", ErrInvalidLayout, name)
	case b.FontSize <= 0:
		return fmt.Errorf("%w: %s font size %d", ErrInvalidLayout, name, b.FontSize)
	case !isHexColor(b.Color):
		return fmt.Errorf("%w: %s color %q", ErrInvalidLayout, name, b.Color)
	}
	switch b.Align {
	case AlignLeft, AlignCenter, AlignRight:
	default:
		return fmt.Errorf("%w: %s alignment %q", ErrInvalidLayout, name, b.Align)
	}
	return nil
}

func isHexColor(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
