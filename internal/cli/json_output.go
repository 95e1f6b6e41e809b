// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON envelope for commands run with --json.
//
// Every command prints exactly one envelope. Failures carry the exit code
// and, for backend failures, the error kind and HTTP status so scripts do
// not have to parse messages.

package cli

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/jeranaias/streamchat/internal/backend"
)

// JSONResponse is the envelope printed by --json.
type JSONResponse struct {
	Success   bool       `json:"success"`
	Command   string     `json:"command,omitempty"`
	Data      any        `json:"data"`
	Error     *JSONError `json:"error"`
	Timestamp string     `json:"timestamp"`
}

// JSONError describes a failed command.
type JSONError struct {
	Message  string `json:"message"`
	ExitCode int    `json:"exit_code"`
	// Kind is the backend error type ("transport", "status", ...) when the
	// failure came from the chat service.
	Kind   string `json:"kind,omitempty"`
	Status int    `json:"status,omitempty"`
}

// NewJSONResponse creates a successful envelope.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Command:   command,
		Data:      data,
		Timestamp: timestamp(),
	}
}

// NewJSONErrorResponse creates a failure envelope for err.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	je := &JSONError{Message: err.Error(), ExitCode: GetExitCode(err)}
	var ce *backend.ClientError
	if errors.As(err, &ce) {
		je.Kind = ce.Type.String()
		je.Status = ce.Status
	}
	return &JSONResponse{
		Command:   command,
		Error:     je,
		Timestamp: timestamp(),
	}
}

// Print writes the indented envelope to w.
func (r *JSONResponse) Print(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
