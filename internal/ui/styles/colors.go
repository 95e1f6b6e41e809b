// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/streamchat/internal/model"
)

// =============================================================================
// ACCENT COLORS
// =============================================================================

var (
	// Accent marks assistant labels and the focused input.
	Accent = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}
	// Brand is used for titles and key hints.
	Brand = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}
	// Success marks fresh messages and confirmations.
	Success = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}
	// Danger is used for request failures.
	Danger = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}
	// Warning is used for the thinking indicator and REPL warnings.
	Warning = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}
)

// =============================================================================
// SURFACE AND TEXT
// =============================================================================

var (
	SurfaceDim  = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
	Overlay     = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}
	SelectionBg = lipgloss.AdaptiveColor{Light: "#BFDBFE", Dark: "#1E3A5F"}

	TextPrimary   = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
)

// FreshBorder highlights a message for a moment after it arrives.
var FreshBorder = Success

// =============================================================================
// MESSAGE BUBBLES
// =============================================================================

// BubbleColors is the color set of one message bubble.
type BubbleColors struct {
	Fg     lipgloss.AdaptiveColor
	Bg     lipgloss.AdaptiveColor
	Border lipgloss.AdaptiveColor
}

var (
	// UserColors are blue tones.
	UserColors = BubbleColors{
		Fg:     lipgloss.AdaptiveColor{Light: "#1E40AF", Dark: "#E0F2FE"},
		Bg:     lipgloss.AdaptiveColor{Light: "#DBEAFE", Dark: "#1D4ED8"},
		Border: lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#3B82F6"},
	}
	// AssistantColors are soft violet tones.
	AssistantColors = BubbleColors{
		Fg:     lipgloss.AdaptiveColor{Light: "#5B4B8A", Dark: "#E9E4F5"},
		Bg:     lipgloss.AdaptiveColor{Light: "#F5F3FF", Dark: "#3B3655"},
		Border: lipgloss.AdaptiveColor{Light: "#C4B5FD", Dark: "#A78BFA"},
	}
)

// ColorsFor returns the bubble colors for a role. Unknown roles use the
// assistant colors.
func ColorsFor(role model.Role) BubbleColors {
	if role == model.RoleUser {
		return UserColors
	}
	return AssistantColors
}
