package core

import (
	"errors"
	"fmt"
)

var (
	// ErrDatabaseNotRegistered means the relay does not list the bound
	// database under the bound project. The session stays idle.
	ErrDatabaseNotRegistered = errors.New("database not registered on relay")

	// ErrStaleReply marks a query reply whose document or join attempt is
	// gone. Such replies are discarded.
	ErrStaleReply = errors.New("stale reply ignored")

	// ErrNotBound means the document has no project or database.
	ErrNotBound = errors.New("document not bound to a project and database")

	// ErrSessionActive rejects rebinding while a join is in flight or joined.
	ErrSessionActive = errors.New("session active")

	// ErrTickRegression rejects moving the tick backwards.
	ErrTickRegression = errors.New("tick regression")

	// ErrNoDocument means no document is open.
	ErrNoDocument = errors.New("no document open")
)

// DispatchError reports that the transport could not send a request.
type DispatchError struct {
	Op  string
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.Op, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
