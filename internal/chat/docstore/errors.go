package docstore

import "errors"

var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrUnreachable indicates the backing store could not be reached.
	ErrUnreachable = errors.New("document store unreachable")

	// ErrDimensionMismatch indicates an embedding with the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
