// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat composes the session store, stream decoder, delta
// reconciler and lifecycle controller into one user turn.
//
// # Turn sequence
//
//  1. The user message is committed to the current session at once.
//  2. A fresh Reconciler is seeded from the session's last assistant reply.
//  3. The lifecycle controller starts the exchange, superseding any other.
//  4. Each decoded record is reconciled and published as the live
//     streaming text.
//  5. On completion the live text is cleared and the final delta, or the
//     apology on failure, is committed in the same critical section.
//
// Store mutations and controller transitions share one mutex, so a
// superseded exchange can never commit, and a Snapshot never shows both
// a committed reply and its live streaming text.
package chat
