package store

import "errors"

var (
	// ErrDuplicate is returned by CreateIfAbsent when the key is already claimed.
	ErrDuplicate = errors.New("store: key already exists")
	// ErrNotFound is returned by ReadFields when the key does not exist or has expired.
	ErrNotFound = errors.New("store: key not found")
	// ErrUnavailable wraps every transport-level failure from the backing store.
	ErrUnavailable = errors.New("store: backend unavailable")
)
