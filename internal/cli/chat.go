// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/chatdeck/internal/config"
	"github.com/jeranaias/chatdeck/internal/export"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/session"
)

const chatLongDesc string = `Start a line-mode chat session.

Replies stream as they arrive. Ctrl+C stops the current reply; Ctrl+C at
the prompt or Ctrl+D exits.

Commands:
  /export [format]    Save the conversation as a deck (pptx, md, html, json)
  /reload             Regenerate the last reply
  /starters [n]       List starter questions, or ask number n
  /clear              Start a new conversation
  /help               Show commands
  /quit               Exit`

func newChatCmd(g *globalFlags) *cobra.Command {
	var resume string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive line-mode chat",
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, g, resume)
		},
	}
	cmd.Flags().StringVarP(&resume, "resume", "r", "", "Continue a stored conversation (ID, prefix or list number)")
	return cmd
}

func runChat(cmd *cobra.Command, g *globalFlags, resume string) error {
	a, err := g.newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	conv, err := a.conversation(resume)
	if err != nil {
		return err
	}

	r := newREPL(a.handler(conv), a.cfg, a.log, cmd.OutOrStdout())
	defer r.Close()

	var in lineReader
	if IsTTY() {
		editor := newLineEditor(a.log)
		defer editor.Close()
		in = editor
	} else {
		in = newScanReader(cmd.InOrStdin())
	}

	r.welcome(cmd.Context())
	return r.Run(cmd.Context(), in)
}

// =============================================================================
// INPUT
// =============================================================================

// lineReader yields one line of input per call. It returns io.EOF when the
// input ends and liner.ErrPromptAborted on Ctrl+C.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// lineEditor provides history and line editing on a terminal.
type lineEditor struct {
	line        *liner.State
	historyFile string
	log         *zap.Logger
}

func newLineEditor(log *zap.Logger) *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyFile, err := config.ReplHistoryPath()
	if err != nil {
		historyFile = ""
	}
	e := &lineEditor{line: line, historyFile: historyFile, log: log}
	e.loadHistory()
	return e
}

func (e *lineEditor) loadHistory() {
	if e.historyFile == "" {
		return
	}
	if f, err := os.Open(e.historyFile); err == nil {
		if _, err := e.line.ReadHistory(f); err != nil {
			e.log.Debug("read repl history", zap.Error(err))
		}
		f.Close()
	}
}

// Prompt reads a line and records it in the history.
func (e *lineEditor) Prompt(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history and restores the terminal.
func (e *lineEditor) Close() {
	defer e.line.Close()
	if e.historyFile == "" {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		e.log.Debug("write repl history", zap.Error(err))
		return
	}
	defer f.Close()
	if _, err := e.line.WriteHistory(f); err != nil {
		e.log.Debug("write repl history", zap.Error(err))
	}
}

// scanReader reads piped input without prompting.
type scanReader struct {
	sc *bufio.Scanner
}

func newScanReader(r io.Reader) *scanReader {
	return &scanReader{sc: bufio.NewScanner(r)}
}

func (s *scanReader) Prompt(string) (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// =============================================================================
// REPL
// =============================================================================

// repl runs a chat session against a handler, writing to out.
type repl struct {
	h     *session.Handler
	cfg   *config.Config
	log   *zap.Logger
	out   io.Writer
	unsub func()

	// reported is set when the handler has already printed a backend error.
	reported bool
}

func newREPL(h *session.Handler, cfg *config.Config, log *zap.Logger, out io.Writer) *repl {
	r := &repl{h: h, cfg: cfg, log: log, out: out}
	r.unsub = h.Subscribe(newReplyPrinter(out, AssistantStyle.Render("assistant")+" ").Handle)
	h.SetOnError(func(_ string, err error) {
		r.reported = true
		r.printError(err)
	})
	return r
}

func (r *repl) Close() {
	r.unsub()
	r.h.SetOnError(nil)
}

func (r *repl) welcome(ctx context.Context) {
	fmt.Fprintln(r.out, TitleStyle.Render("chatdeck")+" "+DimStyle.Render(r.cfg.Backend.URL))
	if n := len(r.h.Messages()); n > 0 {
		fmt.Fprintln(r.out, DimStyle.Render(fmt.Sprintf("Resumed %q with %d messages", r.h.Conversation().GetTitle(), n)))
	} else if q, err := r.h.Starters().Get(ctx); err == nil && len(q) > 0 {
		r.printStarters(q)
	}
	fmt.Fprintln(r.out, DimStyle.Render("Type /help for commands."))
}

// Run reads lines until the input ends or /quit.
func (r *repl) Run(ctx context.Context, in lineReader) error {
	prompt := PromptStyle.Render("you>") + " "
	for {
		line, err := in.Prompt(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "/"):
			quit, err := r.command(ctx, line)
			if err != nil {
				r.printError(err)
			}
			if quit {
				return nil
			}
		default:
			if err := r.ask(ctx, line); err != nil {
				r.printError(err)
			}
		}
	}
}

func (r *repl) ask(ctx context.Context, text string) error {
	return r.send(ctx, func(ctx context.Context) error {
		return r.h.Append(ctx, model.NewUserMessage(text).Value())
	})
}

func (r *repl) send(ctx context.Context, fn func(context.Context) error) error {
	r.reported = false
	interrupted, err := withInterrupt(ctx, r.h, fn)
	if interrupted {
		fmt.Fprintln(r.out, WarningStyle.Render("[Stopped]"))
	}
	if r.reported {
		return nil
	}
	return err
}

// command runs a slash command and reports whether the session should end.
func (r *repl) command(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/q", "/exit":
		return true, nil

	case "/help", "/h", "/?":
		fmt.Fprintln(r.out, chatHelp)
		return false, nil

	case "/clear", "/c", "/new":
		if err := r.h.Clear(); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, SuccessStyle.Render("Started a new conversation"))
		return false, nil

	case "/reload", "/r":
		return false, r.send(ctx, r.h.Reload)

	case "/starters", "/s":
		return false, r.starters(ctx, args)

	case "/export", "/e":
		format := r.cfg.Export.Format
		if len(args) > 0 {
			format = strings.ToLower(args[0])
		}
		return false, r.export(format)
	}
	return false, usageErrorf("/help", "unknown command %s", name)
}

const chatHelp = `Commands:
  /export [format]   Save the conversation as a deck
  /reload            Regenerate the last reply
  /starters [n]      List starter questions, or ask number n
  /clear             Start a new conversation
  /quit              Exit`

func (r *repl) starters(ctx context.Context, args []string) error {
	q, err := r.h.Starters().Get(ctx)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		if len(q) == 0 {
			fmt.Fprintln(r.out, DimStyle.Render("The backend has no starter questions."))
			return nil
		}
		r.printStarters(q)
		return nil
	}

	n, err := strconv.Atoi(args[0])
	if err != nil {
		return usageErrorf("/starters 1", "starter number must be an integer: %s", args[0])
	}
	question, ok := r.h.Starters().Pick(n)
	if !ok {
		return usageErrorf("/starters", "no starter question %d", n)
	}
	fmt.Fprintln(r.out, PromptStyle.Render("you>")+" "+question)
	return r.ask(ctx, question)
}

func (r *repl) printStarters(q []string) {
	fmt.Fprintln(r.out, DimStyle.Render("Try one of these (/starters n):"))
	for i, s := range q {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, s)
	}
}

func (r *repl) export(format string) error {
	msgs := r.h.Snapshot()
	if len(msgs) == 0 {
		return errors.New("nothing to export yet")
	}
	path, d, err := export.ExportConversation(msgs, format, export.FromConfig(r.cfg.Export, r.log))
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, SuccessStyle.Render(fmt.Sprintf("Saved %d slides to %s", d.Stats().Total, path)))
	return nil
}

func (r *repl) printError(err error) {
	fmt.Fprintln(r.out, ErrorStyle.Render("[Error]")+" "+FormatError(err, r.cfg.Backend.URL))
}
