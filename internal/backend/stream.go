// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// =============================================================================
// STREAM READER
// =============================================================================

// Data-stream part codes.
const (
	partText        = '0'
	partData        = '2'
	partError       = '3'
	partAnnotation  = '8'
	partFinishMsg   = 'd'
	partFinishStep  = 'e'
	maxLineCapacity = 1 << 20
)

// StreamReader decodes the AI data-stream protocol line by line.
type StreamReader struct {
	scanner     *bufio.Scanner
	accumulator strings.Builder
	parts       int
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineCapacity)
	sc.Split(scanLinesKeepEOL)
	return &StreamReader{scanner: sc}
}

// Process reads the stream and calls the callback for each chunk. It returns
// when a finish part arrives, the body ends, or ctx is cancelled. An error
// part is delivered to the callback and then returned as *APIError.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk, ok := ParseLine(s.scanner.Text())
		if !ok {
			continue
		}
		s.parts++
		s.accumulator.WriteString(chunk.Content)
		callback(chunk)

		if chunk.Err != nil {
			return chunk.Err
		}
		if chunk.Done {
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.scanner.Err()
}

// GetAccumulated returns all text received so far.
func (s *StreamReader) GetAccumulated() string {
	return s.accumulator.String()
}

// PartCount returns the number of decoded parts.
func (s *StreamReader) PartCount() int {
	return s.parts
}

// ParseLine decodes one line of the stream. Lines that do not follow the
// protocol are returned as plain text, newline included. Blank protocol
// lines report ok=false.
func ParseLine(line string) (StreamChunk, bool) {
	trimmed := strings.TrimRight(line, "\r\n")
	if trimmed == "" {
		if line == "" {
			return StreamChunk{}, false
		}
		return StreamChunk{Content: line}, true
	}

	if len(trimmed) < 2 || trimmed[1] != ':' {
		return StreamChunk{Content: line}, true
	}
	payload := trimmed[2:]

	switch trimmed[0] {
	case partText:
		var text string
		if err := json.Unmarshal([]byte(payload), &text); err != nil {
			return StreamChunk{Content: line}, true
		}
		return StreamChunk{Content: text}, true

	case partData, partAnnotation:
		return StreamChunk{Data: payload}, true

	case partError:
		var msg string
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			msg = payload
		}
		return StreamChunk{Err: &APIError{Status: http.StatusOK, Detail: msg}}, true

	case partFinishMsg, partFinishStep:
		chunk := StreamChunk{Done: true}
		var info FinishInfo
		if err := json.Unmarshal([]byte(payload), &info); err == nil {
			chunk.FinishReason = info.FinishReason
			if info.Usage != nil {
				chunk.PromptTokens = info.Usage.PromptTokens
				chunk.CompletionTokens = info.Usage.CompletionTokens
			}
		}
		// e: closes a step; the message may continue with another step.
		if trimmed[0] == partFinishStep && (info.IsContinued || chunk.FinishReason == "tool-calls") {
			chunk.Done = false
		}
		return chunk, true

	default:
		if isPartCode(trimmed[0]) && json.Valid([]byte(payload)) {
			// Tool calls, sources and other parts are not rendered.
			return StreamChunk{}, false
		}
		return StreamChunk{Content: line}, true
	}
}

// isPartCode reports whether c is a data-stream part code this client
// recognises but does not render.
func isPartCode(c byte) bool {
	switch c {
	case '1', '4', '5', '6', '7', '9', 'a', 'b', 'c', 'f', 'g', 'h', 'i', 'j', 'k':
		return true
	}
	return false
}

// scanLinesKeepEOL is bufio.ScanLines without stripping the line terminator,
// so plain-text streams keep their newlines.
func scanLinesKeepEOL(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' {
			return i + 1, data[:i+1], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// isContextErr reports whether err came from a cancelled or expired context.
func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
