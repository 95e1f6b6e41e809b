// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/streamchat/internal/model"
	"github.com/jeranaias/streamchat/internal/ui/styles"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	)
	if !m.showSidebar() {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
}

// headerTitle is the current session's title or HeaderFallback.
func (m Model) headerTitle() string {
	if !m.view.HasSession {
		return HeaderFallback
	}
	return m.view.Session.Title
}

func (m Model) renderHeader() string {
	width := m.mainWidth()
	title := m.theme.HeaderTitle.Render(sidebarTitle(m.headerTitle(), max(width-4, 1)))
	return m.theme.Header.Width(width).Render(title)
}

func (m Model) renderSidebar() string {
	inner := m.sidebarWidth - 3 // border + padding
	height := m.height

	var b strings.Builder
	b.WriteString(m.theme.SidebarTitle.Render("Chats"))
	b.WriteString("\n")

	now := m.now()
	lines := 2
	for _, s := range m.view.Sessions {
		if lines+3 > height-3 {
			break
		}
		item, meta := m.theme.SidebarItem, m.theme.SidebarMeta
		if m.view.HasSession && s.ID == m.view.Session.ID {
			item = m.theme.SidebarItemActive
		}
		b.WriteString(item.Width(inner).Render(sidebarTitle(s.Title, inner-1)))
		b.WriteString("\n")
		b.WriteString(meta.Render(sidebarMeta(s, now, inner-1)))
		b.WriteString("\n")
		lines += 2
	}

	body := b.String()
	footer := m.renderUser(inner)
	gap := height - lipgloss.Height(body) - lipgloss.Height(footer)
	if gap > 0 {
		body += strings.Repeat("\n", gap)
	}

	return m.theme.Sidebar.
		Width(m.sidebarWidth - 1).
		Height(height).
		Render(body + footer)
}

func (m Model) renderUser(width int) string {
	name := m.theme.SidebarUser.Render(sidebarTitle(m.userName, width))
	if m.userEmail == "" {
		return name
	}
	return name + "\n" + m.theme.SidebarUserEmail.Render(sidebarTitle(m.userEmail, width))
}

// renderThread renders the messages of the current session followed by
// the live reply or the thinking indicator.
func (m Model) renderThread() string {
	if !m.view.HasSession {
		return ""
	}

	width := m.mainWidth()
	var parts []string
	for _, msg := range m.view.Session.Messages {
		parts = append(parts, m.renderMessage(msg, width))
	}

	switch {
	case m.view.Streaming != "":
		live := model.Message{Role: model.RoleAssistant, Content: m.view.Streaming}
		parts = append(parts, m.renderBubble(live, live.Content, width))
	case m.thinking():
		parts = append(parts, "  "+m.spinner.View()+" "+m.theme.Thinking.Render(styles.ThinkingLabel))
	}

	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg model.Message, width int) string {
	content := msg.Content
	if msg.Role == model.RoleAssistant {
		content = m.md.Render(msg)
	}
	return m.renderBubble(msg, content, width)
}

func (m Model) renderBubble(msg model.Message, content string, width int) string {
	label := m.theme.RoleLabel.Render(msg.Role.DisplayName())
	if !msg.CreatedAt.IsZero() {
		label += " " + m.theme.Timestamp.Render(msg.CreatedAt.Format("15:04"))
	}

	bubble := m.theme.BubbleFor(msg.Role, msg.IsFresh).
		Width(m.bubbleWidth()).
		Render(content)
	block := lipgloss.JoinVertical(lipgloss.Left, label, bubble)

	if msg.Role == model.RoleUser {
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, block)
	}
	return block
}

func (m Model) renderInput() string {
	return m.theme.InputBox.Width(m.mainWidth() - 2).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	width := m.mainWidth()
	left := m.help.View(m.keys)
	if m.status != "" {
		style := m.theme.MutedText
		if m.statusErr {
			style = m.theme.ErrorText
		}
		left = style.Render(m.status)
	}
	bar := m.theme.StatusBar.Width(width)
	if !m.help.ShowAll {
		bar = bar.MaxHeight(1)
	}
	return bar.Render(left)
}
