// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/streamchat/internal/backend"
	"github.com/jeranaias/streamchat/internal/chat"
	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/export"
	"github.com/jeranaias/streamchat/internal/lifecycle"
	"github.com/jeranaias/streamchat/internal/session"
	"github.com/jeranaias/streamchat/internal/stream"
	"github.com/jeranaias/streamchat/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type streamFunc func(ctx context.Context, sessionID, question string) (*backend.Response, error)

func (f streamFunc) Stream(ctx context.Context, sessionID, question string) (*backend.Response, error) {
	return f(ctx, sessionID, question)
}

func replies(messages ...string) chat.Streamer {
	return streamFunc(func(context.Context, string, string) (*backend.Response, error) {
		var b strings.Builder
		for _, m := range messages {
			fmt.Fprintf(&b, "{\"message\":%q}\n", m)
		}
		return &backend.Response{
			Body:       io.NopCloser(strings.NewReader(b.String())),
			Format:     stream.FormatNDJSON,
			StatusCode: http.StatusOK,
		}, nil
	})
}

// blocked holds the stream open without data until ctx is done.
func blocked() chat.Streamer {
	return streamFunc(func(ctx context.Context, _, _ string) (*backend.Response, error) {
		pr, pw := io.Pipe()
		go func() {
			<-ctx.Done()
			pw.Close()
		}()
		return &backend.Response{Body: pr, Format: stream.FormatNDJSON, StatusCode: http.StatusOK}, nil
	})
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.UI.Theme = "dark"
	cfg.UI.RenderMarkdown = false
	return cfg
}

func newTestModel(t *testing.T, s chat.Streamer, sessions int) (Model, *chat.Orchestrator) {
	t.Helper()
	ccfg := chat.DefaultConfig()
	ccfg.FreshDuration = 0
	o := chat.New(session.NewStore(), s, ccfg)
	t.Cleanup(func() { o.Close() })
	for i := 0; i < sessions; i++ {
		o.NewSession()
	}

	m := New(context.Background(), Options{Orchestrator: o, Config: testConfig()})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, o
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

// submit types text and presses enter, returning the send command.
func submit(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	return m, cmd
}

// =============================================================================
// VIEW TESTS
// =============================================================================

func TestView_BeforeResize(t *testing.T) {
	o := chat.New(nil, replies(), chat.DefaultConfig())
	defer o.Close()
	m := New(context.Background(), Options{Orchestrator: o, Config: testConfig()})
	assert.Equal(t, "Loading...", m.View())
}

func TestView_HeaderFallbackWithoutSession(t *testing.T) {
	m, _ := newTestModel(t, replies(), 0)
	assert.False(t, m.Current().HasSession)
	assert.Contains(t, m.View(), HeaderFallback)
}

func TestView_HeaderShowsSessionTitle(t *testing.T) {
	m, _ := newTestModel(t, replies(), 1)
	view := m.View()
	assert.NotContains(t, view, HeaderFallback)
	assert.Contains(t, view, "New Chat")
	assert.Contains(t, view, session.DefaultWelcomeMessage)
}

func TestView_NarrowHidesSidebar(t *testing.T) {
	m, _ := newTestModel(t, replies(), 1)
	m = update(t, m, tea.WindowSizeMsg{Width: 50, Height: 30})
	assert.False(t, m.showSidebar())
	assert.NotContains(t, m.View(), "Chats")

	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	assert.True(t, m.showSidebar())
	assert.Contains(t, m.View(), "Chats")
}

func TestView_ThinkingOnlyInActiveSession(t *testing.T) {
	m, o := newTestModel(t, blocked(), 1)
	other := m.Current().Session.ID
	o.NewSession()
	m = update(t, m, EventMsg{})

	m, cmd := submit(t, m, "hello")
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	require.Eventually(t, func() bool { return o.Snapshot().Loading }, time.Second, 5*time.Millisecond)
	m = update(t, m, EventMsg{})
	assert.True(t, m.thinking())
	assert.Contains(t, m.renderThread(), styles.ThinkingLabel)

	o.SwitchTo(other)
	m = update(t, m, EventMsg{})
	assert.False(t, m.thinking())
	assert.NotContains(t, m.renderThread(), styles.ThinkingLabel)

	o.Cancel()
	msg := (<-done).(SendDoneMsg)
	assert.Equal(t, lifecycle.OutcomeCancelled, msg.Result.Outcome)
}

// =============================================================================
// KEY TESTS
// =============================================================================

func TestSubmit_CommitsFinalDelta(t *testing.T) {
	m, _ := newTestModel(t, replies("He", "Hello", "Hello!"), 1)

	m, cmd := submit(t, m, "  hello  ")
	assert.Empty(t, m.input.Value())

	msg := cmd().(SendDoneMsg)
	require.NoError(t, msg.Err)
	m = update(t, m, msg)

	msgs := m.Current().Session.Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "hello", msgs[1].Content)
	assert.Equal(t, "!", msgs[2].Content)
	assert.Equal(t, "hello", m.Current().Session.Title)
	assert.Empty(t, m.Status())
}

func TestSubmit_IgnoresBlankInput(t *testing.T) {
	m, _ := newTestModel(t, replies("x"), 1)
	m.input.SetValue(" \n\t ")
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestSubmit_FailureShowsError(t *testing.T) {
	failing := streamFunc(func(context.Context, string, string) (*backend.Response, error) {
		return nil, &backend.ClientError{Type: backend.ErrTypeTransport, Message: "connection refused"}
	})
	m, _ := newTestModel(t, failing, 1)

	m, cmd := submit(t, m, "hi")
	m = update(t, m, cmd())

	assert.True(t, m.statusErr)
	assert.Contains(t, m.Status(), "connection refused")
	last, ok := m.Current().Session.LastAssistant()
	require.True(t, ok)
	assert.Equal(t, chat.DefaultFallbackMessage, last.Content)
}

func TestNewAndDeleteChat(t *testing.T) {
	m, _ := newTestModel(t, replies(), 1)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Len(t, m.Current().Sessions, 1, "the only chat cannot be deleted")
	assert.True(t, m.statusErr)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Len(t, m.Current().Sessions, 2)
	newest := m.Current().Session.ID

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlX})
	require.Len(t, m.Current().Sessions, 1)
	assert.NotEqual(t, newest, m.Current().Session.ID)
}

func TestSwitchChats_Wraps(t *testing.T) {
	m, _ := newTestModel(t, replies(), 3)
	ids := make([]string, 0, 3)
	for _, s := range m.Current().Sessions {
		ids = append(ids, s.ID)
	}
	require.Equal(t, ids[0], m.Current().Session.ID)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown, Alt: true})
	assert.Equal(t, ids[1], m.Current().Session.ID)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp, Alt: true})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp, Alt: true})
	assert.Equal(t, ids[2], m.Current().Session.ID)
}

func TestCopyLastReply(t *testing.T) {
	var copied string
	orig := copyFunc
	copyFunc = func(s string) error { copied = s; return nil }
	defer func() { copyFunc = orig }()

	m, _ := newTestModel(t, replies("Hello!"), 1)
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	require.NotNil(t, cmd)
	m = update(t, m, cmd())
	assert.Equal(t, session.DefaultWelcomeMessage, copied)
	assert.Contains(t, m.Status(), "Copied response")

	m, send := submit(t, m, "hi")
	m = update(t, m, send())
	_, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	m = update(t, m, cmd())
	assert.Equal(t, "Hello!", copied)
}

func TestCopyFailure(t *testing.T) {
	orig := copyFunc
	copyFunc = func(string) error { return errors.New("no clipboard") }
	defer func() { copyFunc = orig }()

	m, _ := newTestModel(t, replies(), 1)
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	m = update(t, m, cmd())
	assert.True(t, m.statusErr)
	assert.Contains(t, m.Status(), "no clipboard")
}

func TestExportSession(t *testing.T) {
	dir := t.TempDir()
	orig := exportOptions
	exportOptions = func() *export.Options {
		opts := export.DefaultOptions()
		opts.OutputDir = dir
		return opts
	}
	defer func() { exportOptions = orig }()

	m, _ := newTestModel(t, replies("Hello!"), 1)
	m, send := submit(t, m, "hi")
	m = update(t, m, send())

	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlE})
	require.NotNil(t, cmd)
	m = update(t, m, cmd())
	require.False(t, m.statusErr, m.Status())
	assert.Contains(t, m.Status(), "Exported to "+dir)

	matches, err := filepath.Glob(filepath.Join(dir, "transcript_hi_*.md"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hello!")
}

func TestEscCancelsRequest(t *testing.T) {
	m, o := newTestModel(t, blocked(), 1)
	m, cmd := submit(t, m, "hello")
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	require.Eventually(t, func() bool { return o.Snapshot().Loading }, time.Second, 5*time.Millisecond)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "Request cancelled", m.Status())
	assert.False(t, m.Current().Loading)

	msg := (<-done).(SendDoneMsg)
	require.NoError(t, msg.Err)
	assert.Equal(t, lifecycle.OutcomeCancelled, msg.Result.Outcome)
	assert.Len(t, o.Snapshot().Session.Messages, 2, "no reply is committed")
}

func TestHelpToggleResizesViewport(t *testing.T) {
	m, _ := newTestModel(t, replies(), 1)
	before := m.viewport.Height
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.True(t, m.help.ShowAll)
	assert.Equal(t, before-3, m.viewport.Height)
}

// =============================================================================
// ASYNC MESSAGE TESTS
// =============================================================================

func TestIdentityMsg(t *testing.T) {
	m, _ := newTestModel(t, replies(), 1)
	assert.Contains(t, m.View(), backend.FallbackUserName)

	m = update(t, m, IdentityMsg{Name: "Jane Admin", Email: "jane@example.com"})
	view := m.View()
	assert.Contains(t, view, "Jane Admin")
	assert.Contains(t, view, "jane@example.com")

	m = update(t, m, IdentityMsg{Err: backend.ErrIdentityUnavailable})
	assert.Contains(t, m.View(), "Jane Admin")
}

func TestConfigReload_UpdatesClient(t *testing.T) {
	ccfg := chat.DefaultConfig()
	ccfg.FreshDuration = 0
	client := backend.NewClient("http://old.example:8000")
	o := chat.New(nil, client, ccfg)
	defer o.Close()
	o.NewSession()

	m := New(context.Background(), Options{Orchestrator: o, Client: client, Config: testConfig()})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	cfg := testConfig()
	cfg.Backend.BaseURL = "http://new.example:9000"
	cfg.UI.SidebarWidth = 32
	m = update(t, m, ConfigReloadMsg{Config: cfg})

	assert.Equal(t, "http://new.example:9000", client.BaseURL())
	assert.Equal(t, 32, m.sidebarWidth)
	assert.Equal(t, "Config reloaded", m.Status())

	m = update(t, m, ConfigReloadMsg{Err: errors.New("bad toml")})
	assert.True(t, m.statusErr)
	assert.Equal(t, "http://new.example:9000", client.BaseURL())
}

// =============================================================================
// NOTIFIER TESTS
// =============================================================================

type recorder struct {
	mu   sync.Mutex
	msgs []chat.Event
}

func (r *recorder) send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg.(EventMsg).Event)
}

func (r *recorder) kinds() []chat.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]chat.EventKind, len(r.msgs))
	for i, ev := range r.msgs {
		out[i] = ev.Kind
	}
	return out
}

func TestNotifier_PreservesOrder(t *testing.T) {
	rec := &recorder{}
	n := newNotifier(rec.send, 0)
	defer n.Close()

	want := []chat.EventKind{chat.EventSessions, chat.EventStarted, chat.EventDelta, chat.EventSessions, chat.EventSettled}
	for _, k := range want {
		n.Publish(chat.Event{Kind: k})
	}
	require.Eventually(t, func() bool { return len(rec.kinds()) == len(want) }, time.Second, time.Millisecond)
	assert.Equal(t, want, rec.kinds())
}

func TestNotifier_ThrottlesDeltas(t *testing.T) {
	rec := &recorder{}
	n := newNotifier(rec.send, 2)
	defer n.Close()

	for i := 0; i < 50; i++ {
		n.Publish(chat.Event{Kind: chat.EventDelta, Delta: fmt.Sprint(i)})
	}
	n.Publish(chat.Event{Kind: chat.EventSettled})

	require.Eventually(t, func() bool {
		for _, k := range rec.kinds() {
			if k == chat.EventSettled {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	// One immediate delta plus at most one scheduled redraw
	require.Eventually(t, func() bool { return len(rec.kinds()) >= 3 }, 2*time.Second, 10*time.Millisecond)
	assert.LessOrEqual(t, len(rec.kinds()), 3)
}

func TestNotifier_DropsAfterClose(t *testing.T) {
	rec := &recorder{}
	n := newNotifier(rec.send, 0)
	n.Close()
	n.Publish(chat.Event{Kind: chat.EventSessions})
	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, rec.kinds())
}

// =============================================================================
// RENDER HELPER TESTS
// =============================================================================

func TestSidebarTitle(t *testing.T) {
	tests := []struct {
		title string
		width int
		want  string
	}{
		{"Short", 10, "Short"},
		{"A rather long session title", 10, "A rather …"},
		{"", 10, "New Chat"},
		{"日本語のタイトル", 7, "日本語…"},
		{"anything", 0, ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, sidebarTitle(tc.title, tc.width), "title %q width %d", tc.title, tc.width)
	}
}

func TestSidebarMeta(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := session.NewStore(session.WithClock(func() time.Time { return now.Add(-3 * time.Minute) }))
	sess := store.MustGet(store.Create())
	assert.Equal(t, "3 minutes ago · 1 msgs", sidebarMeta(sess, now, 40))
}

func TestShortCount(t *testing.T) {
	assert.Equal(t, "12 chars", shortCount(12))
	assert.Equal(t, "12,345 chars", shortCount(12345))
}
