// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/chatdeck/internal/config"
	"github.com/jeranaias/chatdeck/internal/logger"
	"github.com/jeranaias/chatdeck/internal/model"
	"github.com/jeranaias/chatdeck/internal/session"
	"github.com/jeranaias/chatdeck/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configure the chat model.
type Options struct {
	Config *config.Config
	Theme  *styles.Theme
	Logger *zap.Logger

	// BackendName is shown in the header.
	BackendName string

	// WatchConfig reloads the config file when it changes.
	WatchConfig bool
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	handler *session.Handler
	cfg     *config.Config
	theme   *styles.Theme
	log     *zap.Logger
	keys    KeyMap
	backend string

	ctx    context.Context
	cancel context.CancelFunc

	// Dimensions
	width  int
	height int
	ready  bool

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	// events bridges conversation subscriptions into the update loop.
	events      chan model.Event
	unsubscribe func()

	watch     bool
	cfgEvents chan ConfigReloadedMsg

	renderer *markdownRenderer

	// Auto scroll tracking
	lastCount   int
	lastContent string

	starters  []string
	exporting bool
	notice    string
	alert     *ErrorMsg
}

// New creates the chat model for handler.
func New(handler *session.Handler, opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewThemeForMode(cfg.UI.Theme)
	}

	ta := textarea.New()
	ta.Placeholder = "Ask a question..."
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = styles.DotsSpinner.Bubble()
	sp.Style = theme.Pending

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		handler:   handler,
		cfg:       cfg,
		theme:     theme,
		log:       logger.OrNop(opts.Logger),
		keys:      DefaultKeyMap(),
		backend:   opts.BackendName,
		ctx:       ctx,
		cancel:    cancel,
		viewport:  viewport.New(80, 20),
		input:     ta,
		spinner:   sp,
		events:    make(chan model.Event, 64),
		watch:     opts.WatchConfig,
		cfgEvents: make(chan ConfigReloadedMsg, 4),
		renderer:  newMarkdownRenderer(cfg.UI.GlamourStyle),
	}

	events := m.events
	m.unsubscribe = handler.Subscribe(func(ev model.Event) {
		// Views re-render from the full state, so a dropped event only
		// coalesces with the next one.
		select {
		case events <- ev:
		default:
		}
	})
	return m
}

// Init starts the event bridge, the starter question fetch and, when
// enabled, the config watcher.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		waitForEvent(m.events),
		fetchStarters(m.ctx, m.handler),
	}
	if m.watch {
		cmds = append(cmds, startConfigWatch(m.ctx, m.cfgEvents, m.log), waitForConfig(m.cfgEvents))
	}
	return tea.Batch(cmds...)
}

// Close stops any streaming reply and releases the subscription.
func (m Model) Close() {
	m.handler.Stop()
	m.cancel()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Handler returns the session handler behind the view.
func (m Model) Handler() *session.Handler {
	return m.handler
}

// State returns the derived chat state.
func (m Model) State() model.ChatState {
	return model.DeriveChatState(m.handler.Messages(), m.handler.IsLoading(), m.starters)
}

// Notice returns the current status bar notice.
func (m Model) Notice() string {
	return m.notice
}

// Alert returns the open error alert, or nil.
func (m Model) Alert() *ErrorMsg {
	return m.alert
}

// =============================================================================
// COMMANDS
// =============================================================================

func waitForEvent(ch <-chan model.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return ConversationEventMsg{Event: ev}
	}
}

func fetchStarters(ctx context.Context, h *session.Handler) tea.Cmd {
	return func() tea.Msg {
		q, err := h.Starters().Get(ctx)
		return StartersMsg{Questions: q, Err: err}
	}
}

func appendCmd(ctx context.Context, h *session.Handler, text string) tea.Cmd {
	return func() tea.Msg {
		return ReplyDoneMsg{Err: h.Append(ctx, model.NewUserMessage(text).Value())}
	}
}

func reloadCmd(ctx context.Context, h *session.Handler) tea.Cmd {
	return func() tea.Msg {
		return ReplyDoneMsg{Err: h.Reload(ctx)}
	}
}

func startConfigWatch(ctx context.Context, ch chan<- ConfigReloadedMsg, log *zap.Logger) tea.Cmd {
	return func() tea.Msg {
		err := config.Watch(ctx, func(cfg *config.Config, err error) {
			select {
			case ch <- ConfigReloadedMsg{Config: cfg, Err: err}:
			default:
			}
		})
		if err != nil {
			log.Warn("config watch unavailable", zap.Error(err))
		}
		return nil
	}
}

func waitForConfig(ch <-chan ConfigReloadedMsg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}
