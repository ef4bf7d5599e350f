// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package deck_test

import (
	"math/rand"
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jeranaias/chatdeck/internal/deck"
)

var _ = Describe("Chunk", func() {
	DescribeTable("splits text greedily at word boundaries",
		func(text string, maxSize int, want []string) {
			Expect(deck.Chunk(text, maxSize)).To(Equal(want))
		},
		Entry("empty text", "", 10, nil),
		Entry("whitespace only", " \t\n  ", 10, nil),
		Entry("single word", "hello", 10, []string{"hello"}),
		Entry("each word alone when pair exceeds the bound", "hello world", 5, []string{"hello", "world"}),
		Entry("fills exactly to the bound", "a b c d", 3, []string{"a b", "c d"}),
		Entry("fits in one chunk", "hello world", 11, []string{"hello world"}),
		Entry("one past the bound", "hello world", 10, []string{"hello", "world"}),
		Entry("collapses whitespace runs", "  a   b\n\nc\td  ", 100, []string{"a b c d"}),
		Entry("over-long word stays whole", "hi supercalifragilistic yo", 5, []string{"hi", "supercalifragilistic", "yo"}),
		Entry("non-positive bound puts every word alone", "a b c", 0, []string{"a", "b", "c"}),
		Entry("counts runes not bytes", "日本 語の", 5, []string{"日本 語の"}),
	)

	Context("on arbitrary text", func() {
		var r *rand.Rand

		BeforeEach(func() {
			r = rand.New(rand.NewSource(42))
		})

		randomText := func() string {
			alphabet := []rune("abcdeé日 \t\n")
			n := r.Intn(300)
			var b strings.Builder
			for i := 0; i < n; i++ {
				b.WriteRune(alphabet[r.Intn(len(alphabet))])
			}
			return b.String()
		}

		It("keeps every chunk within the bound unless it is a single long word", func() {
			for i := 0; i < 500; i++ {
				text := randomText()
				maxSize := 1 + r.Intn(40)
				for _, c := range deck.Chunk(text, maxSize) {
					if utf8.RuneCountInString(c) > maxSize {
						Expect(strings.Fields(c)).To(HaveLen(1), "chunk %q exceeds %d", c, maxSize)
					}
				}
			}
		})

		It("reconstructs the whitespace-normalized text", func() {
			for i := 0; i < 500; i++ {
				text := randomText()
				maxSize := 1 + r.Intn(40)
				joined := strings.Join(deck.Chunk(text, maxSize), " ")
				Expect(joined).To(Equal(strings.Join(strings.Fields(text), " ")))
			}
		})

		It("never produces empty chunks", func() {
			for i := 0; i < 500; i++ {
				for _, c := range deck.Chunk(randomText(), r.Intn(20)) {
					Expect(c).NotTo(BeEmpty())
				}
			}
		})
	})
})
