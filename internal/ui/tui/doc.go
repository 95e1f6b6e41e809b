// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui is the Bubble Tea front end for streamchat.
//
// The screen has a session sidebar, a header with the current title, the
// message thread with the live streaming reply, an input box and a status
// bar. All chat state lives in the chat.Orchestrator; the Model only keeps
// the latest Snapshot and re-reads it whenever the orchestrator publishes
// an event.
//
// # Key Bindings
//
//	Enter       Send message
//	Alt+Enter   Insert newline
//	Esc         Cancel the running request
//	Ctrl+N      New chat
//	Ctrl+X      Delete chat (only while more than one exists)
//	Alt+Up/Down Previous / next chat
//	Ctrl+Y      Copy the last reply
//	Ctrl+E      Export the chat as Markdown
//	PgUp/PgDn   Scroll the thread
//	Ctrl+C      Quit
//
// # Usage
//
//	err := tui.Run(ctx, tui.Options{Orchestrator: orch, Config: cfg})
package tui
