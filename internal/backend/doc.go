// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP clients for the chat service.
//
// # Key Types
//
//   - Client: opens streaming chat responses
//   - Response: an open body plus its negotiated stream format
//   - IdentityClient: fetches and caches the signed-in admin
//   - ClientError: categorized transport, status and decode failures
//
// # Usage
//
//	client := backend.NewClient("http://127.0.0.1:8000")
//	resp, err := client.Stream(ctx, sessionID, "hello")
//	if err != nil {
//	    return err
//	}
//	defer resp.Close()
//	err = resp.Decode(ctx, func(rec stream.Record) error {
//	    fmt.Println(rec.Message)
//	    return nil
//	})
//
// No request is ever retried by Client. IdentityClient retries once, and
// callers treat any identity failure as "unknown user".
package backend
