// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package deck_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jeranaias/chatdeck/internal/deck"
	"github.com/jeranaias/chatdeck/internal/model"
)

var _ = Describe("Build", func() {
	headings := func(d *deck.Deck) []string {
		out := make([]string, 0, len(d.Slides))
		for _, s := range d.Slides {
			out = append(out, s.Heading)
		}
		return out
	}

	It("produces only title and summary for no messages", func() {
		d := deck.Build(nil, 500)
		Expect(d.Slides).To(HaveLen(2))
		Expect(d.Slides[0].Kind).To(Equal(deck.KindTitle))
		Expect(d.Slides[0].Heading).To(Equal("Chat Response Presentation"))
		Expect(d.Slides[0].HasBody()).To(BeFalse())
		Expect(d.Slides[1].Kind).To(Equal(deck.KindSummary))
		Expect(d.Slides[1].Heading).To(Equal("Summary"))
		Expect(d.Slides[1].Body).To(Equal(deck.DefaultSummaryBody))
	})

	It("emits one content slide per chunk", func() {
		d := deck.Build([]model.Message{{Role: model.RoleAssistant, Content: "hello world"}}, 5)
		Expect(headings(d)).To(Equal([]string{
			"Chat Response Presentation",
			"Message 1 - Part 1",
			"Message 1 - Part 2",
			"Summary",
		}))
		Expect(d.Slides[1].Body).To(Equal("hello"))
		Expect(d.Slides[2].Body).To(Equal("world"))
		Expect(d.Slides[2].Message).To(Equal(1))
		Expect(d.Slides[2].Part).To(Equal(2))
	})

	It("numbers messages by position including ones without slides", func() {
		d := deck.Build([]model.Message{
			{Role: model.RoleUser, Content: "question"},
			{Role: model.RoleAssistant, Content: "   "},
			{Role: model.RoleAssistant, Content: "answer"},
		}, 500)
		Expect(headings(d)).To(Equal([]string{
			"Chat Response Presentation",
			"Message 1 - Part 1",
			"Message 3 - Part 1",
			"Summary",
		}))
		Expect(d.Stats()).To(Equal(deck.Stats{Total: 4, Content: 2, Messages: 2}))
	})

	It("is idempotent", func() {
		msgs := []model.Message{
			{Role: model.RoleUser, Content: "one two three four five"},
			{Role: model.RoleAssistant, Content: "six seven eight"},
		}
		Expect(deck.Build(msgs, 8)).To(Equal(deck.Build(msgs, 8)))
	})

	It("applies the layout styling to each kind", func() {
		layout := deck.DefaultLayout()
		d := deck.Build([]model.Message{{Content: "x"}}, 500)

		Expect(d.Canvas).To(Equal(deck.Widescreen))
		Expect(d.Slides[0].Background).To(Equal("0088CC"))
		Expect(d.Slides[1].Background).To(Equal("F1F1F1"))
		Expect(d.Slides[1].HeadingBox).To(Equal(layout.Content.Heading))
		Expect(d.Slides[1].BodyBox.FontSize).To(Equal(18))
		Expect(d.Slides[2].BodyBox.Align).To(Equal(deck.AlignCenter))
	})

	It("uses custom texts from the layout", func() {
		layout := deck.DefaultLayout()
		layout.TitleHeading = "Weekly Notes"
		d := deck.BuildWithLayout(nil, 500, layout)
		Expect(d.Slides[0].Heading).To(Equal("Weekly Notes"))
	})
})

var _ = Describe("Layout", func() {
	It("accepts the default layout", func() {
		Expect(deck.DefaultLayout().Validate()).To(Succeed())
	})

	DescribeTable("rejects layouts outside the canvas",
		func(mutate func(*deck.Layout)) {
			l := deck.DefaultLayout()
			mutate(&l)
			Expect(l.Validate()).To(MatchError(deck.ErrInvalidLayout))
		},
		Entry("negative x", func(l *deck.Layout) { l.Content.Body.X = -0.1 }),
		Entry("past the right edge", func(l *deck.Layout) { l.Content.Body.W = 9.6 }),
		Entry("past the bottom edge", func(l *deck.Layout) { l.Summary.Body.Y = 5 }),
		Entry("zero font", func(l *deck.Layout) { l.Title.Heading.FontSize = 0 }),
		Entry("bad color", func(l *deck.Layout) { l.Content.Heading.Color = "#333333" }),
		Entry("bad background", func(l *deck.Layout) { l.Summary.Background = "blue" }),
		Entry("bad alignment", func(l *deck.Layout) { l.Title.Heading.Align = "justify" }),
		Entry("empty canvas", func(l *deck.Layout) { l.Canvas = deck.Canvas{} }),
	)
})
