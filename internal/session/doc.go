// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the in-memory chat session store.
//
// The Store owns every Session and Message for the lifetime of the
// process. Sessions are kept newest-first and exactly one of them is
// current whenever the store is non-empty.
//
// # Key Types
//
//   - Store: ordered session list with a current-session pointer
//   - Option: functional options for NewStore
//
// # Usage
//
//	store := session.NewStore(session.WithWelcomeMessage("Hi!"))
//	id := store.Create()
//	msgs := append(store.MustGet(id).Messages, model.NewUserMessage("hello"))
//	store.Commit(id, msgs)
//
// # Titles
//
// A session is titled "New Chat" until it holds more than one message.
// The title is then taken from the first user message, cut to 50 runes
// with "..." appended when cut, and never derived again.
package session
