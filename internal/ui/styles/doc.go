// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the streamchat TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. The configured theme ("auto", "dark" or "light") can pin the
background so the adaptive palette resolves one way.

# Color System (colors.go)

  - Accent - assistant labels, focused input
  - Brand - titles and key hints
  - Danger - request failures
  - Warning - warnings and the thinking indicator

Message bubbles take their colors per role:

	ColorsFor(model.RoleUser)  - blue user bubble
	ColorsFor(model.RoleAssistant) - violet assistant bubble
	FreshBorder - border for messages that just arrived

# Theme System (theme.go)

	theme := styles.NewTheme("auto")
	bubble := theme.BubbleFor(model.RoleUser, msg.IsFresh)

# Spinner (spinner.go)

ThinkingSpinner drives the "AI is thinking..." indicator and converts to
a bubbles spinner with Bubble().
*/
package styles
