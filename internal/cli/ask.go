// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
//
// Command: ask QUESTION...
//
// Examples:
//   streamchat ask "Summarize the release notes"
//   echo "What changed?" | streamchat ask -
//   streamchat ask --raw "List three colors" > colors.md
//   streamchat ask --json "ping"

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/streamchat/internal/lifecycle"
)

// askResult is the --json payload of ask.
type askResult struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
	Reply     string `json:"reply"`
	Outcome   string `json:"outcome"`
}

func newAskCommand(opts *rootOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask one question and print the reply",
		Long: `Ask one question in a new chat and print the reply.

Use "-" as the question to read it from stdin. Press Ctrl+C to abandon
the request.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := readQuestion(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			a := newApp(opts)
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runAsk(ctx, a, cmd.OutOrStdout(), question, raw, opts.jsonMode)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the reply without markdown rendering")
	return cmd
}

func readQuestion(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read question from stdin: %w", err)
		}
		args = []string{string(data)}
	}
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return "", &UsageError{Message: "question must not be empty"}
	}
	return question, nil
}

func runAsk(ctx context.Context, a *app, out io.Writer, question string, raw, jsonMode bool) error {
	res, err := a.orch.Send(ctx, question)
	if err != nil {
		return NewCommandError("ask", "request failed", err)
	}
	if res.Outcome == lifecycle.OutcomeCancelled || res.Outcome == lifecycle.OutcomeSuperseded {
		return NewCommandError("ask", "request abandoned", context.Canceled)
	}

	if jsonMode {
		return NewJSONResponse("ask", askResult{
			SessionID: res.SessionID,
			Question:  question,
			Reply:     res.Reply.Content,
			Outcome:   res.Outcome.String(),
		}).Print(out)
	}

	_, err = fmt.Fprintln(out, a.displayReply(res.Reply.Content, raw))
	return err
}
