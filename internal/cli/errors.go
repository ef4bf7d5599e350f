// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/chatdeck/internal/backend"
	"github.com/jeranaias/chatdeck/internal/config"
	"github.com/jeranaias/chatdeck/internal/export"
	"github.com/jeranaias/chatdeck/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports invalid arguments.
type UsageError struct {
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return fmt.Sprintf("%s\nExample: %s", e.Reason, e.Example)
	}
	return e.Reason
}

func usageErrorf(example, format string, args ...any) error {
	return &UsageError{Reason: fmt.Sprintf(format, args...), Example: example}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var usage *UsageError
	var validate config.ValidateErrors
	switch {
	case errors.As(err, &usage), errors.Is(err, export.ErrUnsupportedFormat):
		return ExitUsageError
	case errors.As(err, &validate):
		return ExitConfigError
	case backend.IsTimeout(err):
		return ExitTimeoutError
	case backend.IsNotRunning(err):
		return ExitNetworkError
	case errors.Is(err, storage.ErrConversationNotFound):
		return ExitNotFoundError
	}
	return ExitGeneralError
}

// FormatError renders err for the terminal with a hint where one helps.
func FormatError(err error, backendURL string) string {
	if err == nil {
		return ""
	}
	msg := backend.Detail(err)
	var hint string
	switch {
	case backend.IsNotRunning(err):
		hint = fmt.Sprintf("is the backend running at %s? Set backend.url or --backend to change it", backendURL)
	case errors.Is(err, storage.ErrConversationNotFound):
		hint = "run 'chatdeck history' to list stored conversations"
	case errors.Is(err, export.ErrUnsupportedFormat):
		hint = "supported formats: " + strings.Join(export.Formats(), ", ")
	}
	if hint == "" {
		return msg
	}
	return msg + "\n" + DimStyle.Render("Hint: "+hint)
}
