package store

import "errors"

var (
	// ErrNotFound indicates the requested user or post does not exist, or a
	// requested page is past the end of the collection.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable indicates the store could not be reached.
	ErrUnavailable = errors.New("feed store unreachable")
)
