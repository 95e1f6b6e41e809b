// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/streamchat/internal/backend"
	"github.com/jeranaias/streamchat/internal/config"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// isolate points HOME at a temp dir and clears the env overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("STREAMCHAT_BASE_URL", "")
	t.Setenv("STREAMCHAT_THEME", "")
	t.Setenv("STREAMCHAT_NO_IDENTITY", "")
	t.Setenv("STREAMCHAT_LOG_LEVEL", "error")
	return home
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

const adminJSON = `{
  "admin": {
    "id": 7,
    "name": "Jane Admin",
    "email": "jane@example.com",
    "is_active": true,
    "permission_map": {"chat": true, "billing": false},
    "roles": [{"id": 1, "name": "Support"}]
  },
  "success": true
}`

func newServer(t *testing.T, replies ...string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("thread_id"))
		assert.NotEmpty(t, r.URL.Query().Get("question"))
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, m := range replies {
			fmt.Fprintf(w, "{\"message\":%q}\n", m)
		}
	})
	mux.HandleFunc("/api/cp/admins/current", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, adminJSON)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// =============================================================================
// ASK TESTS
// =============================================================================

func TestAsk_PrintsCommittedReply(t *testing.T) {
	isolate(t)
	srv := newServer(t, "He", "Hello", "Hello!")

	out, err := run(t, "--base-url", srv.URL, "ask", "--raw", "say", "hello")
	require.NoError(t, err)
	assert.Equal(t, "!\n", out)
}

func TestAsk_JSON(t *testing.T) {
	isolate(t)
	srv := newServer(t, "Paris")

	out, err := run(t, "--base-url", srv.URL, "--json", "ask", "capital of France?")
	require.NoError(t, err)

	var resp struct {
		Success bool      `json:"success"`
		Data    askResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Paris", resp.Data.Reply)
	assert.Equal(t, "capital of France?", resp.Data.Question)
	assert.Equal(t, "success", resp.Data.Outcome)
	assert.NotEmpty(t, resp.Data.SessionID)
}

func TestAsk_ReadsStdin(t *testing.T) {
	isolate(t)
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("question")
		fmt.Fprintln(w, `{"message":"ok"}`)
	}))
	defer srv.Close()

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader("  from stdin \n"))
	root.SetArgs([]string{"--base-url", srv.URL, "ask", "--raw", "-"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "from stdin", got)
	assert.Equal(t, "ok\n", out.String())
}

func TestAsk_ServerErrorExitCode(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := run(t, "--base-url", srv.URL, "ask", "hi")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, backend.StatusCode(err))
	assert.Equal(t, ExitNetworkError, GetExitCode(err))
}

func TestAsk_RequiresQuestion(t *testing.T) {
	isolate(t)
	_, err := run(t, "ask")
	require.Error(t, err)

	_, err = readQuestion([]string{"  "}, strings.NewReader(""))
	var usage *UsageError
	assert.True(t, errors.As(err, &usage))
}

// =============================================================================
// WHOAMI TESTS
// =============================================================================

func TestWhoami(t *testing.T) {
	isolate(t)
	srv := newServer(t)

	out, err := run(t, "--base-url", srv.URL, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Jane Admin")
	assert.Contains(t, out, "jane@example.com")
	assert.Contains(t, out, "Support")
	assert.Contains(t, out, "chat")
	assert.NotContains(t, out, "billing")
}

func TestWhoami_JSON(t *testing.T) {
	isolate(t)
	srv := newServer(t)

	out, err := run(t, "--base-url", srv.URL, "--json", "whoami")
	require.NoError(t, err)
	var resp struct {
		Data backend.Admin `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 7, resp.Data.ID)
	assert.True(t, resp.Data.HasPermission("chat"))
}

func TestWhoami_Disabled(t *testing.T) {
	isolate(t)
	t.Setenv("STREAMCHAT_NO_IDENTITY", "1")

	_, err := run(t, "whoami")
	var usage *UsageError
	require.True(t, errors.As(err, &usage))
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestWhoami_Unavailable(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := run(t, "--base-url", srv.URL, "whoami")
	require.ErrorIs(t, err, backend.ErrIdentityUnavailable)
	assert.Equal(t, ExitAuthError, GetExitCode(err))
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestConfig_InitSetGet(t *testing.T) {
	home := isolate(t)
	want := filepath.Join(home, ".streamchat", "config.toml")

	out, err := run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, want+"\n", out)

	out, err = run(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, want)
	_, err = os.Stat(want)
	require.NoError(t, err)

	_, err = run(t, "config", "init")
	assert.Equal(t, ExitUsageError, GetExitCode(err), "init refuses to overwrite")

	_, err = run(t, "config", "set", "ui.theme", "dark")
	require.NoError(t, err)
	_, err = run(t, "config", "set", "chat.fresh_millis", "250")
	require.NoError(t, err)

	out, err = run(t, "config", "get", "ui.theme")
	require.NoError(t, err)
	assert.Equal(t, "dark\n", out)

	cfg, err := config.LoadFromPath(want)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Chat.FreshMillis)
}

func TestConfig_SetRejectsInvalid(t *testing.T) {
	isolate(t)

	_, err := run(t, "config", "set", "ui.theme", "neon")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))

	_, err = run(t, "config", "set", "ui.nope", "1")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestConfig_ShowUsesFlags(t *testing.T) {
	isolate(t)

	out, err := run(t, "--base-url", "chat.example:9000", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# Source: built-in defaults")
	assert.Contains(t, out, `base_url = "http://chat.example:9000"`)
}

func TestConfig_BrokenFileStillHasPath(t *testing.T) {
	home := isolate(t)
	p := filepath.Join(home, ".streamchat", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte("[ui]\ntheme = \"neon\"\n"), 0600))

	_, err := run(t, "config", "show")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))

	out, err := run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, p+"\n", out)
}

func TestConfig_Keys(t *testing.T) {
	isolate(t)
	out, err := run(t, "config", "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "backend.base_url\n")
	assert.Contains(t, out, "ui.max_fps\n")
}

// =============================================================================
// REPL TESTS
// =============================================================================

func newTestREPL(t *testing.T, srv *httptest.Server) (*repl, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Backend.BaseURL = srv.URL
	cfg.Chat.FreshMillis = 0
	a := newApp(&rootOptions{cfg: cfg})
	t.Cleanup(a.Close)
	var out bytes.Buffer
	return &repl{a: a, out: &out, raw: true}, &out
}

func TestREPL_SendAndSessions(t *testing.T) {
	srv := newServer(t, "He", "Hello", "Hello!")
	r, out := newTestREPL(t, srv)
	ctx := context.Background()

	assert.False(t, r.handle(ctx, "hello there"))
	assert.Contains(t, out.String(), "Assistant\n!\n")

	out.Reset()
	r.handle(ctx, "/delete 1")
	assert.Contains(t, out.String(), "Cannot delete the only chat")

	r.handle(ctx, "/new")
	require.Equal(t, 2, r.a.store.Len())

	out.Reset()
	r.handle(ctx, "/list")
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "*  1. New Chat"))
	assert.Contains(t, lines[1], "2. hello there")

	out.Reset()
	r.handle(ctx, "/switch 2")
	assert.Contains(t, out.String(), "Switched to hello there")

	r.handle(ctx, "/delete 1")
	assert.Equal(t, 1, r.a.store.Len())

	out.Reset()
	r.handle(ctx, "/switch 9")
	assert.Contains(t, out.String(), "no chat")
}

func TestREPL_Commands(t *testing.T) {
	srv := newServer(t)
	r, out := newTestREPL(t, srv)
	ctx := context.Background()

	assert.False(t, r.handle(ctx, "   "))
	assert.Empty(t, out.String())

	r.handle(ctx, "/help")
	assert.Contains(t, out.String(), "/switch N")

	out.Reset()
	r.handle(ctx, "/whoami")
	assert.Contains(t, out.String(), "Jane Admin")

	out.Reset()
	r.handle(ctx, "/bogus")
	assert.Contains(t, out.String(), "Unknown command /bogus")

	assert.True(t, r.handle(ctx, "/quit"))
	assert.True(t, r.handle(ctx, "/q"))
}

func TestREPL_FailureShowsApology(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	r, out := newTestREPL(t, srv)

	r.handle(context.Background(), "hi")
	assert.Contains(t, out.String(), config.DefaultFallbackMessage)
	assert.Contains(t, out.String(), "Error: ")
}

func TestREPL_Export(t *testing.T) {
	srv := newServer(t, "Hello!")
	r, out := newTestREPL(t, srv)
	ctx := context.Background()
	dir := t.TempDir()

	r.handle(ctx, "hello there")
	out.Reset()
	r.handle(ctx, "/export json "+dir)
	require.Contains(t, out.String(), "Exported to ")

	matches, err := filepath.Glob(filepath.Join(dir, "transcript_hello_there_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"content": "Hello!"`)

	out.Reset()
	r.handle(ctx, "/export html "+dir)
	assert.Contains(t, out.String(), "unsupported export format")
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", &UsageError{Message: "bad"}, ExitUsageError},
		{"tty", &TTYRequiredError{Operation: "chat"}, ExitUsageError},
		{"validation", config.ValidateErrors{{Field: "ui.theme", Message: "bad"}}, ExitConfigError},
		{"cancelled", NewCommandError("ask", "x", context.Canceled), ExitInterrupted},
		{"deadline", context.DeadlineExceeded, ExitTimeoutError},
		{"transport", &backend.ClientError{Type: backend.ErrTypeTransport}, ExitNetworkError},
		{"unauthorized", &backend.ClientError{Type: backend.ErrTypeStatus, Status: 401}, ExitAuthError},
		{"bad gateway", &backend.ClientError{Type: backend.ErrTypeStatus, Status: 502}, ExitNetworkError},
		{"identity", fmt.Errorf("%w: x", backend.ErrIdentityUnavailable), ExitAuthError},
		{"other", errors.New("x"), ExitGeneralError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GetExitCode(tc.err))
		})
	}
}

func TestColorsWanted(t *testing.T) {
	env := func(vals map[string]string) func(string) string {
		return func(k string) string { return vals[k] }
	}
	assert.True(t, colorsWanted(true, env(nil)))
	assert.False(t, colorsWanted(false, env(nil)))
	assert.False(t, colorsWanted(true, env(map[string]string{"NO_COLOR": "1"})))
	assert.True(t, colorsWanted(false, env(map[string]string{"FORCE_COLOR": "1"})))
	assert.False(t, colorsWanted(true, env(map[string]string{"NO_COLOR": "1", "FORCE_COLOR": "1"})))
}

func TestTerminalMarkdownWidth(t *testing.T) {
	assert.Equal(t, 78, Terminal{Width: 80}.MarkdownWidth())
	assert.Equal(t, minMarkdownWidth, Terminal{Width: 10}.MarkdownWidth())
}

func TestDisplayError_JSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, "ask", errors.New("boom"), true)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "boom", resp.Error.Message)
	assert.Equal(t, ExitGeneralError, resp.Error.ExitCode)
	assert.Empty(t, resp.Error.Kind)
	assert.Equal(t, "ask", resp.Command)
}

func TestDisplayError_JSONBackendStatus(t *testing.T) {
	var buf bytes.Buffer
	err := &backend.ClientError{Type: backend.ErrTypeStatus, Status: http.StatusUnauthorized, Message: "request failed"}
	DisplayError(&buf, "ask", err, true)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "status", resp.Error.Kind)
	assert.Equal(t, http.StatusUnauthorized, resp.Error.Status)
	assert.Equal(t, ExitAuthError, resp.Error.ExitCode)
}
