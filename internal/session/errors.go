package session

import "errors"

// Sentinel errors for session operations. Part of the package's public API;
// check with errors.Is().
//
// Example:
//
//	sess, err := store.GetSession(ctx, id)
//	if errors.Is(err, session.ErrNotFound) {
//	    // Handle missing session
//	}
var (
	// ErrNotFound indicates the requested session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrEmptyExchange indicates an append was attempted with a nil message.
	ErrEmptyExchange = errors.New("no exchange to append")

	// ErrNilID indicates a session-scoped operation was called with the zero
	// UUID. Rejected before any database call.
	ErrNilID = errors.New("nil session id")
)
