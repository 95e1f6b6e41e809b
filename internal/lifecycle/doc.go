// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lifecycle tracks the single in-flight chat exchange.
//
// A Controller holds at most one live cancellation handle. Begin cancels
// whatever exchange is still running, marks it Superseded and installs the
// new one before returning, so two exchanges are never active at once.
//
// # States
//
//	Idle -> Requesting -> Streaming -> Settled(Success | Failure | Superseded | Cancelled)
//
// Settle runs the caller's commit function only while the exchange is
// still current, and does so under the controller lock. A stale exchange
// therefore can never write to the session store, whatever order its
// goroutine finishes in.
package lifecycle
