package session

import "errors"

var (
	// ErrNotFound covers absent, expired, and wrong-kind/wrong-role tokens alike.
	ErrNotFound = errors.New("session not found")
	// ErrStorage wraps backend failures.
	ErrStorage = errors.New("session storage unavailable")
	// ErrInconsistent marks a record whose shape contradicts its namespace.
	// It indicates a server-side bug, never a client mistake.
	ErrInconsistent = errors.New("session record inconsistent")
	// ErrInvalidPayload rejects payloads missing their discriminating field.
	ErrInvalidPayload = errors.New("invalid session payload")
	// ErrTokenSpaceExhausted is returned when every candidate token collided.
	ErrTokenSpaceExhausted = errors.New("session token collision retries exhausted")
)
