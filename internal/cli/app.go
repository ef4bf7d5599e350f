// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/chatdeck/internal/backend"
	"github.com/jeranaias/chatdeck/internal/config"
	"github.com/jeranaias/chatdeck/internal/logger"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/session"
	"github.com/jeranaias/chatdeck/internal/storage"
)

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	backendURL string
	debug      bool
	noHistory  bool
	maxChars   int

	// cfg is the config the running command loaded.
	cfg *config.Config
}

func (g *globalFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Path to a config file (default ~/.chatdeck/config.toml)")
	pf.StringVarP(&g.backendURL, "backend", "b", "", "Backend base URL (overrides backend.url)")
	pf.BoolVar(&g.debug, "debug", false, "Enable debug logging")
	pf.BoolVar(&g.noHistory, "no-history", false, "Do not save conversations")
	pf.IntVar(&g.maxChars, "max-chars", 0, "Maximum characters per slide (overrides export.max_chars_per_slide)")
}

// loadConfig resolves defaults, the config file, the environment, and
// finally the flags. A broken config file is reported to stderr and the
// defaults are used.
func (g *globalFlags) loadConfig(stderr io.Writer) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFromPath(g.configPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, err
		}
		if err != nil {
			fmt.Fprintln(stderr, WarningStyle.Render("Warning:")+" "+err.Error()+" (using defaults)")
		}
	}

	if g.backendURL != "" {
		cfg.Backend.URL = g.backendURL
	}
	if g.maxChars > 0 {
		cfg.Export.MaxCharsPerSlide = g.maxChars
	}
	if g.debug {
		cfg.Log.Debug = true
	}
	if g.noHistory {
		cfg.Storage.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.SetGlobal(cfg)
	g.cfg = cfg
	return cfg, nil
}

// backendForHints names the backend in error hints.
func (g *globalFlags) backendForHints() string {
	switch {
	case g.cfg != nil:
		return g.cfg.Backend.URL
	case g.backendURL != "":
		return g.backendURL
	}
	return config.Default().Backend.URL
}

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// app holds what a command needs to talk to the backend and the history.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	client *backend.Client
	store  *storage.ConversationStore // nil when history is disabled
}

// newApp wires config, logging, the backend client and the history store.
// The TUI owns the terminal, so fullscreen commands always log to the log
// file; line-mode commands log to stderr when debugging.
func (g *globalFlags) newApp(cmd *cobra.Command, fullscreen bool) (*app, error) {
	cfg, err := g.loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	logPath := ""
	if fullscreen || !cfg.Log.Debug {
		if logPath, err = cfg.LogPath(); err != nil {
			return nil, err
		}
	}
	log, err := logger.New(cfg.Log.Debug, logPath)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg: cfg,
		log: log,
		client: backend.NewClientWithConfig(&backend.ClientConfig{
			BaseURL:           cfg.Backend.URL,
			Timeout:           cfg.Backend.Timeout(),
			RequestsPerSecond: cfg.Backend.RequestsPerSecond,
			Headers:           cfg.Backend.Headers,
			Logger:            log,
		}),
	}

	if cfg.Storage.Enabled {
		path, err := cfg.HistoryPath()
		if err != nil {
			return nil, err
		}
		store, err := storage.Open(path)
		if err != nil {
			// History is optional for chatting; keep going without it.
			log.Warn("history disabled", zap.String("path", path), zap.Error(err))
		} else {
			a.store = store
		}
	}

	log.Debug("app ready",
		zap.String("command", cmd.Name()),
		zap.String("backend", cfg.Backend.URL),
		zap.Bool("history", a.store != nil))
	return a, nil
}

// requireStore returns the history store or an error naming why it is off.
func (a *app) requireStore() (*storage.ConversationStore, error) {
	if a.store == nil {
		return nil, fmt.Errorf("conversation history is disabled (storage.enabled = false or --no-history)")
	}
	return a.store, nil
}

// conversation returns a new conversation, or the stored one named by ref.
func (a *app) conversation(ref string) (*model.Conversation, error) {
	if ref == "" {
		return model.NewConversation(), nil
	}
	store, err := a.requireStore()
	if err != nil {
		return nil, err
	}
	stored, err := store.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return stored.ToConversation(), nil
}

// handler builds a session handler for conv.
func (a *app) handler(conv *model.Conversation) *session.Handler {
	opts := session.Options{
		Conversation: conv,
		Logger:       a.log,
		BackendName:  a.cfg.Backend.URL,
	}
	if a.store != nil {
		opts.Store = a.store
	}
	return session.New(a.client, opts)
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("close history", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
