// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/chatdeck/internal/config"
	"github.com/jeranaias/chatdeck/internal/deck"
	"github.com/jeranaias/chatdeck/internal/logger"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter serializes a deck into one file format.
type Exporter interface {
	// Export converts a deck to the target format and returns the content.
	Export(d *deck.Deck) ([]byte, error)

	// FileExtension returns the file extension including the dot (e.g. ".pptx").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ErrNilDeck is returned by every exporter when given a nil deck.
var ErrNilDeck = errors.New("deck is nil")

// ErrUnsupportedFormat is returned by NewExporter for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// DefaultFileName is the fixed name of an exported deck.
const DefaultFileName = "Chat_Response_Presentation.pptx"

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// FileName is the output name. Its extension is replaced by the
	// exporter's, so the same name serves every format.
	// Default: Chat_Response_Presentation.pptx
	FileName string

	// MaxChars bounds the text on one content slide.
	// Default: 500
	MaxChars int

	// Layout overrides the slide styling. Nil uses deck.DefaultLayout.
	Layout *deck.Layout

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata includes generator and timestamp information.
	IncludeMetadata bool

	// Theme for HTML export ("light" or "dark").
	// Default: "dark"
	Theme string

	// Logger receives non-fatal problems such as a failed open. Nil discards.
	Logger *zap.Logger

	// Now stamps metadata. Nil uses time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		FileName:        DefaultFileName,
		MaxChars:        deck.DefaultMaxChars,
		IncludeMetadata: true,
		Theme:           "dark",
	}
}

// FromConfig maps the export section of the config onto Options.
func FromConfig(c config.ExportConfig, log *zap.Logger) *Options {
	opts := DefaultOptions()
	if c.OutputDir != "" {
		opts.OutputDir = c.OutputDir
	}
	if c.FileName != "" {
		opts.FileName = c.FileName
	}
	if c.MaxCharsPerSlide > 0 {
		opts.MaxChars = c.MaxCharsPerSlide
	}
	if c.HTMLTheme != "" {
		opts.Theme = c.HTMLTheme
	}
	opts.OpenAfterExport = c.OpenAfterExport
	opts.Logger = log
	return opts
}

// withDefaults fills zero fields of a copy of o.
func (o *Options) withDefaults() *Options {
	if o == nil {
		return DefaultOptions()
	}
	c := *o
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.FileName == "" {
		c.FileName = DefaultFileName
	}
	if c.MaxChars == 0 {
		c.MaxChars = deck.DefaultMaxChars
	}
	if c.Theme == "" {
		c.Theme = "dark"
	}
	return &c
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// NewExporter returns the exporter for format. An empty format selects PPTX.
func NewExporter(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "", "pptx", "ppt", "powerpoint":
		return NewPPTXExporter(opts), nil
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Formats lists the accepted format names, default first.
func Formats() []string {
	return []string{"pptx", "md", "html", "json"}
}

// OutputPath returns where ExportToFile writes for the given exporter.
func OutputPath(exporter Exporter, opts *Options) string {
	opts = opts.withDefaults()
	name := filepath.Base(opts.FileName)
	name = strings.TrimSuffix(name, filepath.Ext(name)) + exporter.FileExtension()
	return filepath.Join(opts.OutputDir, name)
}

// ExportToFile serializes d with exporter and writes it atomically to
// OutputPath. An existing file with the same name is replaced. Returns the
// output file path.
func ExportToFile(d *deck.Deck, exporter Exporter, opts *Options) (string, error) {
	opts = opts.withDefaults()
	log := logger.OrNop(opts.Logger)

	content, err := exporter.Export(d)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	outputPath := OutputPath(exporter, opts)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	log.Info("deck exported",
		zap.String("path", outputPath),
		zap.String("mime", exporter.MimeType()),
		zap.Int("slides", len(d.Slides)),
		zap.Int("bytes", len(content)))

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			// Non-fatal - file was still created successfully
			log.Warn("could not open exported file", zap.String("path", outputPath), zap.Error(err))
		}
	}

	return outputPath, nil
}

// BuildDeck lays out messages using the chunk size and layout from opts.
func BuildDeck(messages []model.Message, opts *Options) *deck.Deck {
	opts = opts.withDefaults()
	if opts.Layout != nil {
		return deck.BuildWithLayout(messages, opts.MaxChars, *opts.Layout)
	}
	return deck.Build(messages, opts.MaxChars)
}

// ExportConversation builds a deck from a message snapshot and writes it in
// the given format. Returns the output path and the deck that was written.
func ExportConversation(messages []model.Message, format string, opts *Options) (string, *deck.Deck, error) {
	opts = opts.withDefaults()
	exporter, err := NewExporter(format, opts)
	if err != nil {
		return "", nil, err
	}
	d := BuildDeck(messages, opts)
	path, err := ExportToFile(d, exporter, opts)
	if err != nil {
		return "", nil, err
	}
	return path, d, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		// Quoted empty string is the window title; the path must come last
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
