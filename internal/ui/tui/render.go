// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/streamchat/internal/model"
)

// =============================================================================
// MARKDOWN
// =============================================================================

// markdown renders settled assistant messages with glamour. Output is
// cached per message id; a width or style change drops the cache.
type markdown struct {
	enabled  bool
	style    string
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]string
}

func newMarkdown(enabled bool, style string) *markdown {
	return &markdown{enabled: enabled, style: style, cache: make(map[string]string)}
}

// Configure updates the rendering parameters.
func (md *markdown) Configure(enabled bool, style string, width int) {
	if md.enabled == enabled && md.style == style && md.width == width {
		return
	}
	md.enabled = enabled
	md.style = style
	md.width = width
	md.renderer = nil
	md.cache = make(map[string]string)
}

// Render returns msg's content as terminal markdown, or the plain content
// when rendering is off or fails.
func (md *markdown) Render(msg model.Message) string {
	if !md.enabled || md.width <= 0 || msg.Content == "" {
		return msg.Content
	}
	if out, ok := md.cache[msg.ID]; ok {
		return out
	}
	if md.renderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(md.style),
			glamour.WithWordWrap(md.width),
		)
		if err != nil {
			md.enabled = false
			return msg.Content
		}
		md.renderer = r
	}
	out, err := md.renderer.Render(msg.Content)
	if err != nil {
		return msg.Content
	}
	out = strings.Trim(out, "\n")
	md.cache[msg.ID] = out
	return out
}

// =============================================================================
// SIDEBAR ENTRIES
// =============================================================================

// sidebarTitle fits a session title into width terminal columns.
func sidebarTitle(title string, width int) string {
	if width <= 0 {
		return ""
	}
	if title == "" {
		title = model.DefaultTitle
	}
	return runewidth.Truncate(title, width, "…")
}

// sidebarMeta describes a session's age and size, e.g. "3 minutes ago · 4 msgs".
func sidebarMeta(s model.Session, now time.Time, width int) string {
	meta := fmt.Sprintf("%s · %d msgs", humanize.RelTime(s.UpdatedAt, now, "ago", "from now"), s.MessageCount())
	return runewidth.Truncate(meta, width, "…")
}

// shortCount formats a character count for the status bar.
func shortCount(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d chars", n)
	}
	return humanize.Comma(int64(n)) + " chars"
}
