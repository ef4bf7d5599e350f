// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/chatdeck/internal/ui/chat"
	"github.com/jeranaias/chatdeck/internal/ui/styles"
)

// runTUI opens the full-screen chat, optionally continuing a stored
// conversation.
func runTUI(cmd *cobra.Command, g *globalFlags, resume string) error {
	if err := RequiresTTY("run the chat interface"); err != nil {
		return fmt.Errorf("%w (use 'chatdeck chat' or 'chatdeck ask' instead)", err)
	}

	a, err := g.newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	conv, err := a.conversation(resume)
	if err != nil {
		return err
	}

	m := chat.New(a.handler(conv), chat.Options{
		Config:      a.cfg,
		Theme:       styles.NewThemeForMode(a.cfg.UI.Theme),
		Logger:      a.log,
		BackendName: a.cfg.Backend.URL,
		// An explicit --config file is not the one the watcher follows.
		WatchConfig: g.configPath == "",
	})

	a.log.Info("starting chat interface", zap.String("conversation", conv.ID))
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if fm, ok := final.(chat.Model); ok {
		fm.Close()
	}
	if err != nil {
		return fmt.Errorf("chat interface: %w", err)
	}
	return nil
}
