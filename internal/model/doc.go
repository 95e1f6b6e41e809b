// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// # Key Types
//
//   - Role: Message author enumeration (user, assistant)
//   - Message: Single message with id, role, content, timestamp and the
//     transient fresh flag used by display code for entry animation
//   - Session: One conversation thread with its ordered messages and title
//
// Values are plain structs. The session store hands out copies, so a
// Session obtained from it can be read without further locking.
//
// # Usage
//
//	msg := model.NewUserMessage("Hello!")
//	sess := model.NewSession(model.NewAssistantMessage(welcome))
package model
