// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across streamchat.
//
// # Key Functions
//
//   - Ellipsize: rune-safe prefix with an appended "..." marker
//   - TruncateRunes: rune-safe truncation that fits the marker inside the limit
//   - NormalizeBaseURL: scheme defaulting and trailing-slash trimming for endpoints
//   - AtomicWriteFile: crash-safe file writing with fsync
package util
