// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails.
func renderMarkdown(content, theme string, width int) string {
	style := glamour.WithAutoStyle()
	if theme == "dark" || theme == "light" {
		style = glamour.WithStandardStyle(theme)
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}

// displayReply formats a reply for stdout. Markdown is only rendered when
// stdout is a TTY to avoid corrupting piped output.
func (a *app) displayReply(content string, raw bool) string {
	if raw || !a.cfg.UI.RenderMarkdown {
		return content
	}
	t := DetectTerminal()
	if !t.RendersMarkdown() {
		return content
	}
	return renderMarkdown(content, a.cfg.UI.Theme, t.MarkdownWidth())
}
