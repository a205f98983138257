// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package appservice

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is a protocol-level error in the standard Matrix error shape.
// It is both an error and an [OutgoingResponse], so handlers can pass
// it straight to [WriteResponse].
type Error struct {
	// Code is the Matrix error code (e.g., "M_UNAUTHORIZED").
	Code string `json:"errcode"`
	// Message is the human-readable description.
	Message string `json:"error"`
	// StatusCode is the HTTP status the error maps to.
	StatusCode int `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("appservice: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Error codes produced by this package.
const (
	ErrCodeUnauthorized = "M_UNAUTHORIZED"
	ErrCodeBadJSON      = "M_BAD_JSON"
	ErrCodeUnknown      = "M_UNKNOWN"
)

// Unauthorized reports a bearer-credential mismatch as a 401.
func Unauthorized(message string) *Error {
	return &Error{
		Code:       ErrCodeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// BadJSON reports a binding or deserialization failure as a 400.
func BadJSON(message string) *Error {
	return &Error{
		Code:       ErrCodeBadJSON,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// EncodeResponse implements [OutgoingResponse]. Encoding the error
// body marshals a flat two-field struct and cannot realistically
// fail, but the error return is kept so Error satisfies the same
// contract as every other response.
func (e *Error) EncodeResponse() (int, http.Header, []byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("encoding error response: %w", err)
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return e.StatusCode, header, body, nil
}
