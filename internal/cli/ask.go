// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/chatdeck/internal/export"
	"github.com/jeranaias/chatdeck/internal/model"
)

const askLongDesc string = `Ask a single question and print the streamed reply.

The question comes from the arguments, or from stdin when it is piped.
With --export the exchange is also written as a deck; the reply stays on
stdout and the export notice goes to stderr.

Examples:
  chatdeck ask "Summarize the onboarding guide"
  chatdeck ask "List the release steps" --export
  chatdeck ask "Draft an agenda" --export=html
  echo "What changed in v2?" | chatdeck ask
  chatdeck ask "Compare plans" --data tenant=acme`

// exportDefault marks a bare --export: use export.format from the config.
const exportDefault = "default"

type askOptions struct {
	export string
	data   map[string]string
	resume string
}

func newAskCmd(g *globalFlags) *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question",
		Long:  askLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, g, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.export, "export", "e", "", "Export the exchange as a deck (pptx, md, html, json)")
	cmd.Flags().Lookup("export").NoOptDefVal = exportDefault
	cmd.Flags().StringToStringVarP(&opts.data, "data", "d", nil, "Extra request data as key=value (repeatable)")
	cmd.Flags().StringVarP(&opts.resume, "resume", "r", "", "Ask within a stored conversation (ID, prefix or list number)")
	return cmd
}

func runAsk(cmd *cobra.Command, g *globalFlags, opts *askOptions, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" && !IsTTY() {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		question = strings.TrimSpace(string(data))
	}
	if question == "" {
		return usageErrorf(`chatdeck ask "What is a vector store?"`, "no question given")
	}

	a, err := g.newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	conv, err := a.conversation(opts.resume)
	if err != nil {
		return err
	}
	h := a.handler(conv)
	if len(opts.data) > 0 {
		data := make(map[string]any, len(opts.data))
		for k, v := range opts.data {
			data[k] = v
		}
		h.SetRequestData(data)
	}

	unsub := h.Subscribe(newReplyPrinter(cmd.OutOrStdout(), "").Handle)
	defer unsub()

	interrupted, err := withInterrupt(cmd.Context(), h, func(ctx context.Context) error {
		return h.Append(ctx, model.NewUserMessage(question).Value())
	})
	if err != nil {
		return err
	}
	if interrupted {
		fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("[Stopped]"))
	}

	if opts.export == "" {
		return nil
	}
	format := opts.export
	if format == exportDefault {
		format = a.cfg.Export.Format
	}
	path, d, err := export.ExportConversation(h.Snapshot(), format, export.FromConfig(a.cfg.Export, a.log))
	if err != nil {
		return err
	}
	a.log.Debug("ask exported", zap.String("path", path), zap.String("format", format))
	fmt.Fprintln(cmd.ErrOrStderr(), SuccessStyle.Render(fmt.Sprintf("Saved %d slides to %s", d.Stats().Total, path)))
	return nil
}
