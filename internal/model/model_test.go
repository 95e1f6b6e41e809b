// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("Hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want 'user'", msg.Role)
	}
	if msg.Content != "Hello" {
		t.Errorf("Content = %q, want 'Hello'", msg.Content)
	}
	if !msg.IsFresh {
		t.Error("user message should be fresh")
	}
	if msg.ID == "" {
		t.Error("ID should not be empty")
	}
	if msg.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestNewAssistantMessage(t *testing.T) {
	msg := NewAssistantMessage("Response")

	if msg.Role != RoleAssistant {
		t.Errorf("Role = %q, want 'assistant'", msg.Role)
	}
	if msg.IsFresh {
		t.Error("assistant message should not be fresh by default")
	}
}

func TestMessageIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewUserMessage("x").ID
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Assistant"},
		{Role("other"), "other"},
	}

	for _, tc := range tests {
		if got := tc.role.DisplayName(); got != tc.want {
			t.Errorf("%q.DisplayName() = %q, want %q", tc.role, got, tc.want)
		}
	}
}

func TestMessage_Preview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		max     int
		want    string
	}{
		{"short", "hi", 10, "hi"},
		{"exact", "hello", 5, "hello"},
		{"truncated", "hello world", 8, "hello..."},
		{"unicode", "héllo wörld", 8, "héllo..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := NewAssistantMessage(tc.content)
			if got := msg.Preview(tc.max); got != tc.want {
				t.Errorf("Preview(%d) = %q, want %q", tc.max, got, tc.want)
			}
		})
	}
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestNewSession(t *testing.T) {
	seed := NewAssistantMessage("welcome")
	sess := NewSession(seed)

	if sess.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", sess.Title, DefaultTitle)
	}
	if sess.MessageCount() != 1 {
		t.Fatalf("MessageCount() = %d, want 1", sess.MessageCount())
	}
	if sess.Titled {
		t.Error("new session should not be titled")
	}
	if !sess.CreatedAt.Equal(sess.UpdatedAt) {
		t.Error("CreatedAt and UpdatedAt should match on creation")
	}
}

func TestSession_CloneIsIndependent(t *testing.T) {
	sess := NewSession(NewAssistantMessage("a"))
	clone := sess.Clone()
	clone.Messages[0].Content = "changed"

	if sess.Messages[0].Content != "a" {
		t.Error("Clone should not share the message slice")
	}
}

func TestLastAndFirstOfRole(t *testing.T) {
	msgs := []Message{
		NewAssistantMessage("a1"),
		NewUserMessage("u1"),
		NewAssistantMessage("a2"),
		NewUserMessage("u2"),
	}

	if m, ok := LastOfRole(msgs, RoleAssistant); !ok || m.Content != "a2" {
		t.Errorf("LastOfRole(assistant) = %q, %v", m.Content, ok)
	}
	if m, ok := FirstOfRole(msgs, RoleUser); !ok || m.Content != "u1" {
		t.Errorf("FirstOfRole(user) = %q, %v", m.Content, ok)
	}
	if _, ok := LastOfRole(nil, RoleUser); ok {
		t.Error("LastOfRole(nil) should report false")
	}
}
