// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is the title of a session until one is derived from its
// first user message.
const DefaultTitle = "New Chat"

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session holds one conversation thread.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Titled is set once the title has been derived. It is never cleared.
	Titled bool `json:"-"`
}

// NewSession creates a session titled DefaultTitle holding the given
// seed messages.
func NewSession(seed ...Message) Session {
	now := time.Now()
	return Session{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		Messages:  CloneMessages(seed),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	s.Messages = CloneMessages(s.Messages)
	return s
}

// LastAssistant returns the most recent assistant message.
func (s Session) LastAssistant() (Message, bool) {
	return LastOfRole(s.Messages, RoleAssistant)
}

// MessageCount returns the number of messages in the session.
func (s Session) MessageCount() int {
	return len(s.Messages)
}
