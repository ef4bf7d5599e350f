// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const rootLongDesc string = `chatdeck is a terminal chat client for an AI chat backend that turns
conversations into slide decks.

Run without a command to open the full-screen chat. Each message of the
conversation becomes one or more content slides between a title slide and
a summary slide.

Examples:
  chatdeck                          Open the chat interface
  chatdeck --resume 1               Continue the most recent conversation
  chatdeck chat                     Line-mode chat with history
  chatdeck ask "What is RAG?" --export
  chatdeck export 1 --format html --out ./decks`

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

func newRootCmd() (*cobra.Command, *globalFlags) {
	g := &globalFlags{}
	var resume string

	cmd := &cobra.Command{
		Use:           "chatdeck",
		Short:         "Chat with an AI backend and export the conversation as slides",
		Long:          rootLongDesc,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, g, resume)
		},
	}
	g.register(cmd)
	cmd.Flags().StringVarP(&resume, "resume", "r", "", "Continue a stored conversation (ID, prefix or list number)")

	cmd.AddCommand(
		newChatCmd(g),
		newAskCmd(g),
		newExportCmd(g),
		newHistoryCmd(g),
		newStartersCmd(g),
		newConfigCmd(g),
		newVersionCmd(),
	)
	return cmd, g
}

// Execute runs the command line with args and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	cmd, g := newRootCmd()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	printError(cmd.ErrOrStderr(), err, g.backendForHints())
	return ExitCode(err)
}

func printError(w io.Writer, err error, backendURL string) {
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), FormatError(err, backendURL))
}
