package linkindex

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateNode is matched by every *DuplicateNodeError.
	ErrDuplicateNode = errors.New("page has already been indexed")

	// ErrInvalidOrder is matched by every *InvalidOrderError.
	// It marks a programming mistake in how the index lifecycle is driven,
	// for example building a rank matrix before Finalize.
	ErrInvalidOrder = errors.New("invalid index operation order")
)

// DuplicateNodeError is returned by Push when the URL is already indexed.
// The index is unchanged when this error is returned.
type DuplicateNodeError struct {
	// URL is the URL that was pushed twice.
	URL string
}

// Error implements error.
func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("page <%s> has already been indexed", e.URL)
}

// Unwrap allows errors.Is(err, ErrDuplicateNode).
func (e *DuplicateNodeError) Unwrap() error {
	return ErrDuplicateNode
}

// InvalidOrderError reports an operation that was called in the wrong
// lifecycle phase of an Index.
type InvalidOrderError struct {
	// Op is the operation that was attempted (push, finalize, build...).
	Op string

	// Reason describes which lifecycle rule was broken.
	Reason string
}

// Error implements error.
func (e *InvalidOrderError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidOrder.Error(), e.Op, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidOrder).
func (e *InvalidOrderError) Unwrap() error {
	return ErrInvalidOrder
}
