// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package deck

import (
	"strings"
	"unicode/utf8"
)

// Chunk splits text into word-boundary chunks whose length, counted in runes
// with single spaces between words, does not exceed maxSize.
//
// Words are separated by any run of whitespace; leading and trailing
// whitespace is dropped. A word longer than maxSize is emitted alone and is
// never cut. Empty or all-whitespace text yields nil. When maxSize <= 0 every
// word becomes its own chunk.
func Chunk(text string, maxSize int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)
		if curLen > 0 && curLen+1+wordLen > maxSize {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += wordLen
	}
	if curLen > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
