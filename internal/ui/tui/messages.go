// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"github.com/jeranaias/streamchat/internal/chat"
	"github.com/jeranaias/streamchat/internal/config"
)

// =============================================================================
// BUBBLE TEA MESSAGES
// =============================================================================

// EventMsg forwards an orchestrator event into the program.
type EventMsg struct {
	Event chat.Event
}

// SendDoneMsg is returned when a Send call settles.
type SendDoneMsg struct {
	Result chat.Result
	Err    error
}

// IdentityMsg carries the signed-in user for the sidebar footer.
type IdentityMsg struct {
	Name  string
	Email string
	Err   error
}

// ConfigReloadMsg carries a reloaded configuration file.
type ConfigReloadMsg struct {
	Config *config.Config
	Err    error
}

// ExportDoneMsg reports a transcript export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// CopyDoneMsg reports a clipboard copy.
type CopyDoneMsg struct {
	Chars int
	Err   error
}
