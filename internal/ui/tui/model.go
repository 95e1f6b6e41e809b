// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/streamchat/internal/backend"
	"github.com/jeranaias/streamchat/internal/chat"
	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/export"
	"github.com/jeranaias/streamchat/internal/ui/styles"
)

// HeaderFallback is shown when no session is current.
const HeaderFallback = "AI Chat Assistant"

// copyFunc writes to the system clipboard; tests replace it.
var copyFunc = clipboard.WriteAll

// exportOptions returns the options for Ctrl+E exports; tests replace it.
var exportOptions = export.DefaultOptions

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx      context.Context
	orch     *chat.Orchestrator
	client   *backend.Client
	identity *backend.IdentityClient
	logger   *zap.Logger

	theme    *styles.Theme
	keys     KeyMap
	help     help.Model
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	md       *markdown

	// Latest orchestrator snapshot
	view chat.View

	width        int
	height       int
	sidebarWidth int
	ready        bool
	follow       bool // keep the thread scrolled to the bottom

	userName  string
	userEmail string

	status    string
	statusErr bool

	now func() time.Time
}

// New creates the chat screen model. ctx bounds every request the model
// starts.
func New(ctx context.Context, opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	theme := styles.NewTheme(cfg.UI.Theme)

	input := textarea.New()
	input.Placeholder = "Type your message..."
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetHeight(3)
	input.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	input.Focus()

	sp := spinner.New(
		spinner.WithSpinner(styles.ThinkingSpinner.Bubble()),
		spinner.WithStyle(theme.Thinking),
	)

	vp := viewport.New(0, 0)

	m := Model{
		ctx:          ctx,
		orch:         opts.Orchestrator,
		client:       opts.Client,
		identity:     opts.Identity,
		logger:       logger,
		theme:        theme,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		viewport:     vp,
		input:        input,
		spinner:      sp,
		md:           newMarkdown(cfg.UI.RenderMarkdown, theme.GlamourStyle()),
		sidebarWidth: cfg.UI.SidebarWidth,
		follow:       true,
		userName:     backend.FallbackUserName,
		now:          time.Now,
	}
	m.view = m.orch.Snapshot()
	return m
}

// Init starts the spinner, the cursor blink and the identity lookup.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.spinner.Tick}
	if m.identity != nil {
		cmds = append(cmds, m.fetchIdentity())
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		m.refresh()
		return m, nil

	case SendDoneMsg:
		if msg.Err != nil && !errors.Is(msg.Err, chat.ErrEmptyInput) {
			m.setError("Request failed: " + msg.Err.Error())
		}
		m.refresh()
		return m, nil

	case IdentityMsg:
		if msg.Err != nil {
			m.logger.Warn("identity lookup failed", zap.Error(msg.Err))
			return m, nil
		}
		m.userName = msg.Name
		m.userEmail = msg.Email
		return m, nil

	case ConfigReloadMsg:
		return m.applyConfig(msg)

	case ExportDoneMsg:
		if msg.Err != nil {
			m.setError("Export failed: " + msg.Err.Error())
		} else {
			m.setStatus("Exported to " + msg.Path)
		}
		return m, nil

	case CopyDoneMsg:
		if msg.Err != nil {
			m.setError("Failed to copy: " + msg.Err.Error())
		} else {
			m.setStatus("Copied response (" + shortCount(msg.Chars) + ")")
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.thinking() {
			m.updateViewport()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)
	m.ready = true
	m.layout()
	m.updateViewport()
	return m
}

// layout sizes the viewport and input from the window size.
//
// Heights must match the rendered sections in view.go: header 2 lines,
// input box 5 (3 text + border), status bar 1 or 4 with full help.
func (m *Model) layout() {
	const (
		headerHeight = 2
		inputHeight  = 5
	)
	statusHeight := 1
	if m.help.ShowAll {
		statusHeight = 4
	}
	mainWidth := m.mainWidth()

	m.viewport.Width = max(mainWidth, 1)
	m.viewport.Height = max(m.height-headerHeight-inputHeight-statusHeight, 1)
	m.input.SetWidth(max(mainWidth-4, 10))
	m.help.Width = mainWidth
	m.md.Configure(m.md.enabled, m.theme.GlamourStyle(), m.bubbleWidth()-4)
}

func (m Model) showSidebar() bool {
	return m.theme.GetLayoutMode() != styles.LayoutNarrow && m.sidebarWidth > 0
}

func (m Model) mainWidth() int {
	if m.showSidebar() {
		return m.width - m.sidebarWidth
	}
	return m.width
}

func (m Model) bubbleWidth() int {
	w := m.mainWidth() * 3 / 4
	return max(w, 20)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.orch.Cancel() {
			m.setStatus("Request cancelled")
		}
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.input.Reset()
		m.follow = true
		m.clearStatus()
		return m, m.send(text)

	case key.Matches(msg, m.keys.NewChat):
		m.orch.NewSession()
		m.follow = true
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.DeleteChat):
		if len(m.view.Sessions) <= 1 || !m.view.HasSession {
			m.setError("Cannot delete the only chat")
			return m, nil
		}
		m.orch.DeleteSession(m.view.Session.ID)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.PrevChat):
		m.switchBy(-1)
		return m, nil

	case key.Matches(msg, m.keys.NextChat):
		m.switchBy(1)
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyLastReply()

	case key.Matches(msg, m.keys.Export):
		return m, m.exportSession()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		m.follow = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		m.follow = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		m.updateViewport()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// switchBy selects the session delta places away in the sidebar order.
func (m *Model) switchBy(delta int) {
	sessions := m.view.Sessions
	if len(sessions) < 2 || !m.view.HasSession {
		return
	}
	idx := 0
	for i, s := range sessions {
		if s.ID == m.view.Session.ID {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(sessions)) % len(sessions)
	m.orch.SwitchTo(sessions[idx].ID)
	m.follow = true
	m.refresh()
}

// refresh re-reads the orchestrator snapshot.
func (m *Model) refresh() {
	m.view = m.orch.Snapshot()
	m.updateViewport()
}

func (m *Model) updateViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderThread())
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// thinking reports whether the current session waits for its first delta.
func (m Model) thinking() bool {
	return m.view.Loading && m.view.Streaming == "" &&
		m.view.HasSession && m.view.ActiveSession == m.view.Session.ID
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) send(text string) tea.Cmd {
	ctx, orch := m.ctx, m.orch
	return func() tea.Msg {
		res, err := orch.Send(ctx, text)
		return SendDoneMsg{Result: res, Err: err}
	}
}

func (m Model) fetchIdentity() tea.Cmd {
	ctx, identity := m.ctx, m.identity
	return func() tea.Msg {
		admin, err := identity.Current(ctx)
		if err != nil {
			return IdentityMsg{Err: err}
		}
		return IdentityMsg{Name: admin.DisplayName(), Email: admin.Email}
	}
}

func (m Model) copyLastReply() tea.Cmd {
	if !m.view.HasSession {
		return nil
	}
	last, ok := m.view.Session.LastAssistant()
	if !ok || last.Content == "" {
		return func() tea.Msg { return CopyDoneMsg{Err: errors.New("no response to copy")} }
	}
	content := last.Content
	return func() tea.Msg {
		if err := copyFunc(content); err != nil {
			return CopyDoneMsg{Err: err}
		}
		return CopyDoneMsg{Chars: len([]rune(content))}
	}
}

// exportSession writes the current session as Markdown off the update loop.
func (m Model) exportSession() tea.Cmd {
	if !m.view.HasSession {
		return nil
	}
	sess := m.view.Session.Clone()
	return func() tea.Msg {
		opts := exportOptions()
		path, err := export.ToFile(sess, export.NewMarkdownExporter(opts), opts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}

// applyConfig switches to a reloaded configuration. The base URL applies
// to the next exchange; a running one keeps its connection.
func (m Model) applyConfig(msg ConfigReloadMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.setError("Config reload failed: " + msg.Err.Error())
		return m, nil
	}
	cfg := msg.Config
	if m.client != nil {
		m.client.SetBaseURL(cfg.Backend.BaseURL)
	}
	m.theme = styles.NewTheme(cfg.UI.Theme)
	m.theme.SetSize(m.width, m.height)
	m.spinner.Style = m.theme.Thinking
	m.sidebarWidth = cfg.UI.SidebarWidth
	m.md.Configure(cfg.UI.RenderMarkdown, m.theme.GlamourStyle(), m.md.width)
	m.layout()
	m.updateViewport()
	m.setStatus("Config reloaded")
	return m, nil
}

// =============================================================================
// STATUS
// =============================================================================

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusErr = true
}

func (m *Model) clearStatus() {
	m.status = ""
	m.statusErr = false
}

// Status returns the status bar message.
func (m Model) Status() string {
	return m.status
}

// Current returns the snapshot the model last rendered.
func (m Model) Current() chat.View {
	return m.view
}

var _ tea.Model = Model{}
