// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/streamchat/internal/lifecycle"
	"github.com/jeranaias/streamchat/internal/model"
)

// EventKind identifies what changed.
type EventKind int

const (
	// EventSessions means the session list or a message list changed.
	EventSessions EventKind = iota
	// EventStarted means an exchange began and loading is on.
	EventStarted
	// EventDelta carries new live streaming text.
	EventDelta
	// EventSettled means an exchange finished.
	EventSettled
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventDelta:
		return "delta"
	case EventSettled:
		return "settled"
	default:
		return "sessions"
	}
}

// Event is published to subscribers after each state change. Handlers run
// on the goroutine that made the change and must not block.
type Event struct {
	Kind      EventKind
	SessionID string
	Delta     string
	Outcome   lifecycle.Outcome
	Err       error
}

// View is a consistent snapshot for display.
type View struct {
	// Session is the current session; valid when HasSession is true.
	Session    model.Session
	HasSession bool
	Sessions   []model.Session

	// Streaming is the live delta for the current session, "" if none.
	Streaming string
	Loading   bool
	State     lifecycle.State

	// ActiveSession owns the running exchange, "" when idle.
	ActiveSession string
}

// Result describes how a Send ended.
type Result struct {
	SessionID  string
	ExchangeID uint64
	Outcome    lifecycle.Outcome

	// Reply is the committed assistant message; zero when Outcome is silent.
	Reply model.Message

	// Diverged counts fragments that fell back to a full reset.
	Diverged int
}
