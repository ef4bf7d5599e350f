// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/chatdeck/internal/export"
)

const exportLongDesc string = `Export a stored conversation as a slide deck.

The conversation is named by its ID, a unique ID prefix, or its number in
'chatdeck history'. Every message becomes one or more content slides.

Examples:
  chatdeck export 1
  chatdeck export 3f2a --format html --out ./decks
  chatdeck export 1 --max-chars 300 --open`

type exportOptions struct {
	format string
	out    string
	open   bool
}

func newExportCmd(g *globalFlags) *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export <conversation>",
		Short: "Export a stored conversation as a deck",
		Long:  exportLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, g, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: "+strings.Join(export.Formats(), ", ")+" (default export.format)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output directory (default export.output_dir)")
	cmd.Flags().BoolVar(&opts.open, "open", false, "Open the deck when done")
	return cmd
}

func runExport(cmd *cobra.Command, g *globalFlags, opts *exportOptions, ref string) error {
	a, err := g.newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.requireStore()
	if err != nil {
		return err
	}
	stored, err := store.Resolve(ref)
	if err != nil {
		return err
	}

	format := opts.format
	if format == "" {
		format = a.cfg.Export.Format
	}
	eo := export.FromConfig(a.cfg.Export, a.log)
	if opts.out != "" {
		eo.OutputDir = opts.out
	}
	if opts.open {
		eo.OpenAfterExport = true
	}

	path, d, err := export.ExportConversation(stored.ToMessages(), strings.ToLower(format), eo)
	if err != nil {
		return err
	}
	a.log.Debug("conversation exported",
		zap.String("conversation", stored.ID),
		zap.String("path", path),
		zap.Int("slides", d.Stats().Total))

	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render(fmt.Sprintf("Saved %d slides to %s", d.Stats().Total, path)))
	return nil
}
