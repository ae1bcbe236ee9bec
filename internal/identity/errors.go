package identity

import (
	"errors"
	"fmt"
)

// ErrCorruptIdentity marks persisted identity data that violates the
// path-traversal invariant. It is not recoverable by retrying.
var ErrCorruptIdentity = errors.New("corrupt session identity")

// CorruptError reports the offending field and its stored value.
type CorruptError struct {
	Field string
	Value string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("%v: %s=%q", ErrCorruptIdentity, e.Field, e.Value)
}

func (e *CorruptError) Unwrap() error {
	return ErrCorruptIdentity
}
