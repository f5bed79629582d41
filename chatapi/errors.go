// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatapi

import (
	"errors"
	"fmt"
)

// APIError represents a structured error response from the chat server.
// Callers can use errors.As to extract the structured information:
//
//	var apiErr *chatapi.APIError
//	if errors.As(err, &apiErr) {
//	    if apiErr.Code == chatapi.ErrCodeNotFound { ... }
//	}
type APIError struct {
	// Code is the server error code (e.g., "not_found", "forbidden").
	Code string `json:"code"`
	// Message is the human-readable error description from the server.
	Message string `json:"message"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chatapi: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Standard chat server error codes.
const (
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeTokenInvalid = "token_invalid"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeInvalidParam = "invalid_param"
	ErrCodeInternal     = "internal"
)

// IsAPIError checks whether err is a *APIError with the given error code.
func IsAPIError(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
