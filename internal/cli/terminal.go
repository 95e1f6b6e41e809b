// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for the line-mode commands.
//
// Replies are rendered as markdown, and colors used, only when stdout is a
// terminal. Piped output from ask and chat stays plain so it can be
// consumed by scripts. NO_COLOR and FORCE_COLOR override the detection.

package cli

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// DefaultTerminalWidth is used when the width cannot be detected.
const DefaultTerminalWidth = 80

// minMarkdownWidth keeps glamour output readable on very narrow terminals.
const minMarkdownWidth = 20

// =============================================================================
// TERMINAL CAPABILITIES
// =============================================================================

// Terminal describes the standard streams of the process.
type Terminal struct {
	StdinTTY  bool
	StdoutTTY bool
	Width     int
	Colors    bool
}

// DetectTerminal probes stdin and stdout.
func DetectTerminal() Terminal {
	t := Terminal{
		StdinTTY:  term.IsTerminal(int(os.Stdin.Fd())),
		StdoutTTY: term.IsTerminal(int(os.Stdout.Fd())),
		Width:     DefaultTerminalWidth,
	}
	if t.StdoutTTY {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			t.Width = w
		}
	}
	t.Colors = colorsWanted(t.StdoutTTY, os.Getenv)
	return t
}

// colorsWanted applies NO_COLOR (https://no-color.org/) before
// FORCE_COLOR before TTY detection.
func colorsWanted(stdoutTTY bool, getenv func(string) string) bool {
	switch {
	case getenv("NO_COLOR") != "":
		return false
	case getenv("FORCE_COLOR") != "":
		return true
	default:
		return stdoutTTY
	}
}

// Profile returns the termenv color profile for lipgloss.
func (t Terminal) Profile() termenv.Profile {
	if !t.Colors {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// MarkdownWidth is the word wrap width for rendered replies.
func (t Terminal) MarkdownWidth() int {
	return max(t.Width-2, minMarkdownWidth)
}

// RendersMarkdown reports whether replies should go through glamour.
func (t Terminal) RendersMarkdown() bool {
	return t.StdoutTTY
}

// =============================================================================
// TTY REQUIREMENT
// =============================================================================

// RequiresTTY returns a TTYRequiredError if stdin is not a terminal.
func RequiresTTY(operation string) error {
	if !DetectTerminal().StdinTTY {
		return &TTYRequiredError{Operation: operation}
	}
	return nil
}

// TTYRequiredError is returned when an operation requires a TTY but none is available.
type TTYRequiredError struct {
	Operation string
}

func (e *TTYRequiredError) Error() string {
	if e.Operation != "" {
		return "stdin is not a terminal; cannot " + e.Operation + " interactively"
	}
	return "stdin is not a terminal; interactive input not available"
}
