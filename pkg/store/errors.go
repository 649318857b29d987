package store

import (
	"errors"
	"fmt"
)

// ErrUnavailable reports that a required store never initialized. Operations
// gated on an unavailable store are skipped, not retried.
var ErrUnavailable = errors.New("store unavailable")

// WriteError wraps a single store's failed write. The sibling store's write
// is still attempted; callers receive a partial or total outcome rather than
// an exception-style unwind.
type WriteError struct {
	Store ID
	Key   string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s store: write %q: %v", e.Store, e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError wraps a single store's failed read. The read-fallback path
// treats it identically to "not found" and moves on to the next store.
type ReadError struct {
	Store ID
	Key   string
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s store: read %q: %v", e.Store, e.Key, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
