// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL for streamchat.
//
// Command: chat
// Short:   Start a line-mode chat session
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /new                Start a new chat
//   /list, /ls          List chats
//   /switch N           Switch to chat N from /list
//   /delete N           Delete chat N (not the only one)
//   /whoami             Show the signed-in user
//   /export [md|json] [DIR]  Write the current chat to a file
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel the current request
//   Ctrl+D              Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/streamchat/internal/chat"
	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/export"
	"github.com/jeranaias/streamchat/internal/lifecycle"
	"github.com/jeranaias/streamchat/internal/ui/styles"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// SaveHistory saves command history to file.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0755); err != nil {
		return
	}
	if f, err := os.OpenFile(c.historyFile, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600); err == nil {
		_, _ = c.line.WriteHistory(f)
		f.Close()
	}
}

// Prompt displays a prompt and reads a line of input.
func (c *ChatCLI) Prompt(prompt string) (string, error) {
	return c.line.Prompt(prompt)
}

// AppendHistory adds an entry to the history.
func (c *ChatCLI) AppendHistory(entry string) {
	c.line.AppendHistory(entry)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// COMMAND
// =============================================================================

func newChatCommand(opts *rootOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a line-mode chat session",
		Long: `Start a line-mode chat with history and line editing.

Type a message and press Enter. Commands start with "/"; type /help to
list them. Ctrl+C cancels a running request, Ctrl+D exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp(opts)
			defer a.Close()

			cli := NewChatCLI()
			defer cli.Close()

			r := &repl{a: a, out: cmd.OutOrStdout(), raw: raw}
			r.banner()
			for {
				input, err := cli.Prompt("> ")
				if errors.Is(err, liner.ErrPromptAborted) {
					fmt.Fprintln(r.out, InfoStyle.Render("Use /quit or Ctrl+D to exit"))
					continue
				}
				if errors.Is(err, io.EOF) {
					fmt.Fprintln(r.out)
					return nil
				}
				if err != nil {
					return NewCommandError("chat", "read input", err)
				}
				if strings.TrimSpace(input) != "" {
					cli.AppendHistory(input)
				}
				if r.handle(cmd.Context(), input) {
					return nil
				}
			}
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print replies without markdown rendering")
	return cmd
}

// =============================================================================
// REPL
// =============================================================================

// repl executes chat input lines against an app.
type repl struct {
	a   *app
	out io.Writer
	raw bool
}

func (r *repl) banner() {
	fmt.Fprintln(r.out, TitleStyle.Render("streamchat"))
	fmt.Fprintln(r.out, InfoStyle.Render("Connected to "+r.a.client.BaseURL()+". Type /help for commands."))
	view := r.a.orch.Snapshot()
	if !view.HasSession {
		return
	}
	if last, ok := view.Session.LastAssistant(); ok {
		r.printReply(last.Content)
	}
}

// handle runs one input line and reports whether the REPL should exit.
func (r *repl) handle(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}
	if strings.HasPrefix(input, "/") {
		return r.command(ctx, input)
	}
	r.send(ctx, input)
	return false
}

func (r *repl) command(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h", "/?":
		r.help()

	case "/new", "/n":
		r.a.orch.NewSession()
		fmt.Fprintln(r.out, InfoStyle.Render("Started a new chat"))

	case "/list", "/ls":
		r.list()

	case "/switch", "/s":
		sess, err := r.pick(args)
		if err != nil {
			r.warn(err.Error())
			return false
		}
		r.a.orch.SwitchTo(sess)
		view := r.a.orch.Snapshot()
		fmt.Fprintln(r.out, InfoStyle.Render("Switched to "+view.Session.Title))

	case "/delete", "/d":
		if r.a.store.Len() <= 1 {
			r.warn("Cannot delete the only chat")
			return false
		}
		sess, err := r.pick(args)
		if err != nil {
			r.warn(err.Error())
			return false
		}
		r.a.orch.DeleteSession(sess)
		fmt.Fprintln(r.out, InfoStyle.Render("Chat deleted"))

	case "/whoami":
		if r.a.identity == nil {
			r.warn("Identity lookup is disabled")
			return false
		}
		admin, err := r.a.identity.Current(ctx)
		if err != nil {
			r.warn(err.Error())
			return false
		}
		printAdmin(r.out, admin)

	case "/export", "/e":
		path, err := r.export(args)
		if err != nil {
			r.warn(err.Error())
			return false
		}
		fmt.Fprintln(r.out, InfoStyle.Render("Exported to "+path))

	default:
		r.warn("Unknown command " + name + " (type /help)")
	}
	return false
}

// pick resolves a 1-based /list index to a session id.
func (r *repl) pick(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("usage: /switch N or /delete N (see /list)")
	}
	n, err := strconv.Atoi(args[0])
	sessions := r.a.orch.Snapshot().Sessions
	if err != nil || n < 1 || n > len(sessions) {
		return "", fmt.Errorf("no chat %q (see /list)", args[0])
	}
	return sessions[n-1].ID, nil
}

// export writes the current session. args are an optional format and
// output directory.
func (r *repl) export(args []string) (string, error) {
	if len(args) > 2 {
		return "", errors.New("usage: /export [md|json] [DIR]")
	}
	opts := export.DefaultOptions()
	format := ""
	if len(args) > 0 {
		format = args[0]
	}
	if len(args) > 1 {
		opts.OutputDir = args[1]
	}
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return "", err
	}
	view := r.a.orch.Snapshot()
	if !view.HasSession {
		return "", export.ErrEmptySession
	}
	return export.ToFile(view.Session, exporter, opts)
}

func (r *repl) list() {
	view := r.a.orch.Snapshot()
	now := time.Now()
	for i, s := range view.Sessions {
		marker := " "
		if view.HasSession && s.ID == view.Session.ID {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %2d. %s %s\n", marker, i+1, s.Title,
			InfoStyle.Render(fmt.Sprintf("(%s, %d msgs)", humanize.RelTime(s.UpdatedAt, now, "ago", "from now"), s.MessageCount())))
	}
}

func (r *repl) help() {
	cmds := [][2]string{
		{"/new", "Start a new chat"},
		{"/list", "List chats"},
		{"/switch N", "Switch to chat N"},
		{"/delete N", "Delete chat N"},
		{"/whoami", "Show the signed-in user"},
		{"/export", "Save chat as md or json"},
		{"/quit", "Exit"},
		{"Ctrl+C", "Cancel the current request"},
	}
	for _, c := range cmds {
		fmt.Fprintf(r.out, "  %s %s\n", CommandStyle.Width(12).Render(c[0]), InfoStyle.Render(c[1]))
	}
}

// send runs one exchange. Ctrl+C while waiting cancels it.
func (r *repl) send(ctx context.Context, text string) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			r.a.orch.Cancel()
		case <-done:
		}
	}()
	defer func() {
		signal.Stop(sigCh)
		close(done)
	}()

	fmt.Fprintln(r.out, InfoStyle.Render(styles.ThinkingLabel))
	res, err := r.a.orch.Send(ctx, text)
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		return
	case res.Outcome == lifecycle.OutcomeCancelled:
		r.warn("(cancelled)")
		return
	}
	r.printReply(res.Reply.Content)
	if err != nil {
		fmt.Fprintln(r.out, ErrorStyle.Render("Error: ")+err.Error())
	}
}

func (r *repl) printReply(content string) {
	fmt.Fprintln(r.out, AssistantStyle.Render("Assistant"))
	fmt.Fprintln(r.out, r.a.displayReply(content, r.raw))
	fmt.Fprintln(r.out)
}

func (r *repl) warn(msg string) {
	fmt.Fprintln(r.out, WarningStyle.Render(msg))
}
