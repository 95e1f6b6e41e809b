// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP clients for the chat service.
package backend

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	// ErrTypeTransport covers connection and request construction failures.
	ErrTypeTransport
	// ErrTypeStatus is a non-2xx HTTP response.
	ErrTypeStatus
	// ErrTypeNoBody is a success response without a readable body.
	ErrTypeNoBody
	// ErrTypeDecode is a body that could not be parsed.
	ErrTypeDecode
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeTransport:
		return "transport"
	case ErrTypeStatus:
		return "status"
	case ErrTypeNoBody:
		return "no_body"
	case ErrTypeDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// ClientError represents an error from a backend client.
type ClientError struct {
	Type    ErrorType
	Status  int // HTTP status for ErrTypeStatus
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Type == ErrTypeStatus && e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	ErrNoBody              = &ClientError{Type: ErrTypeNoBody, Message: "response has no body"}
	ErrIdentityUnavailable = errors.New("identity unavailable")
)

// IsTransportError reports whether err is a TransportError in the
// user-visible sense: a connection failure, a non-success status or a
// missing body.
func IsTransportError(err error) bool {
	var ce *ClientError
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Type {
	case ErrTypeTransport, ErrTypeStatus, ErrTypeNoBody:
		return true
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return 0
}
