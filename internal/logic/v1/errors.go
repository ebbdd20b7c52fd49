// Package v1 holds the console-side session logic for API version 1.
//
// Error Handling:
// This package defines sentinel errors for session-state failures. They are
// wrapped with context using fmt.Errorf("%w") and checked by handlers with
// errors.Is to pick redirects and HTTP statuses.
package v1

import "errors"

// Sentinel errors for session operations.
var (
	// ErrSessionLoading indicates the session context has not finished its
	// initial synchronization with durable storage. Callers must not make
	// auth decisions yet.
	ErrSessionLoading = errors.New("session still loading")

	// ErrNotAuthenticated indicates no valid session record was found.
	// Resolved by redirecting to a login page, never surfaced as an error
	// message.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrLoginRejected indicates the upstream rejected the credentials.
	// HTTP Status: 401 Unauthorized, surfaced as a form-level message.
	ErrLoginRejected = errors.New("login rejected")

	// ErrRefreshFailed indicates the refresh-token exchange failed; the
	// session is torn down and the user sent back through login.
	ErrRefreshFailed = errors.New("token refresh failed")
)
