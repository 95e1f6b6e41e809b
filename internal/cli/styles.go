// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styling for the line-mode commands.
//
// Colors are disabled for non-TTY output and when NO_COLOR is set.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/streamchat/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(DetectTerminal().Profile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Brand)

	// SectionStyle is used for section headers such as [backend]
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Accent)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(24)

	// ValueStyle is used for field values
	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	// PromptStyle is the REPL prompt marker
	PromptStyle = lipgloss.NewStyle().
			Foreground(styles.Brand).
			Bold(true)

	// AssistantStyle labels assistant replies
	AssistantStyle = lipgloss.NewStyle().
			Foreground(styles.Accent).
			Bold(true)

	// InfoStyle is used for secondary information
	InfoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	// CommandStyle highlights REPL commands in help text
	CommandStyle = lipgloss.NewStyle().
			Foreground(styles.Success)

	// WarningStyle is used for warnings and cancellations
	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Warning)

	// ErrorStyle is used for errors
	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Danger).
			Bold(true)

	// SeparatorStyle is used for horizontal rules
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(styles.Overlay)
)

// RenderSeparator returns a horizontal rule of the given width (default 40).
func RenderSeparator(width ...int) string {
	w := 40
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("-", w))
}

// RenderField renders "label value" with the shared label column.
func RenderField(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value)
}
