// Copyright (c) 2025, the orionarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package orionoid

import (
	"fmt"
	"strings"
)

// AuthError indicates the upstream rejected our credentials. Never retried.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("orionoid authentication failed: %s", e.Message)
	}
	return fmt.Sprintf("orionoid authentication failed with status %d", e.StatusCode)
}

func (e *AuthError) Is(target error) bool {
	_, ok := target.(*AuthError)
	return ok
}

// TransientError covers timeouts, connection failures and non-2xx upstream
// responses. Retried once, then surfaced.
type TransientError struct {
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("orionoid request failed: %v", e.Err)
	}
	return fmt.Sprintf("orionoid returned status %d", e.StatusCode)
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) Is(target error) bool {
	_, ok := target.(*TransientError)
	return ok
}

// APIError is a 2xx response whose envelope reports failure. Not retried:
// the request reached the API and was rejected deterministically.
type APIError struct {
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("orionoid api error: %s", e.Message)
	}
	return fmt.Sprintf("orionoid api error: %s", e.Type)
}

func (e *APIError) Is(target error) bool {
	_, ok := target.(*APIError)
	return ok
}

// isAuthFailure reports whether an API-level error envelope describes a
// credential problem rather than a bad request. Orionoid error types for key
// failures carry "key" or "auth" (userkey, appkey, unauthenticated).
func isAuthFailure(result apiResult) bool {
	t := strings.ToLower(result.Type)
	m := strings.ToLower(result.Message)
	return strings.Contains(t, "key") || strings.Contains(t, "auth") ||
		strings.Contains(m, "key invalid") || strings.Contains(m, "authentication")
}
