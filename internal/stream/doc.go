// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream turns a chunked NDJSON response body into display text.
//
// Two pieces cooperate:
//
//   - Decoder splits transport chunks into complete line records, carrying
//     any unterminated suffix across chunk boundaries and dropping lines
//     that are not well-formed {"message": "..."} objects.
//   - Reconciler converts the cumulative text carried by each record into
//     the incremental delta shown to the user.
//
// # Usage
//
//	rec := stream.NewReconciler(lastAssistantText)
//	err := stream.Decode(ctx, body, stream.FormatNDJSON, func(r stream.Record) error {
//	    show(rec.Reconcile(r.Message))
//	    return nil
//	})
//	final := rec.Last()
//
// Besides NDJSON the decoder accepts text/event-stream bodies, where each
// "data:" line carries the same JSON object, and plain application/json
// bodies holding a single object.
package stream
