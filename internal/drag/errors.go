package drag

import (
	"errors"
	"fmt"
)

var (
	ErrNoSession      = errors.New("drag: no active session")
	ErrCommitInFlight = errors.New("drag: commit in flight")
	ErrWrongMode      = errors.New("drag: operation not valid in this mode")
	ErrNotInScope     = errors.New("drag: subject not in origin scope")
)

// PersistenceFailure reports a commit whose write failed. The first failure
// is Retryable and leaves the session in place; a second one (or a write
// rejected outright) reverts the working copies to the store and is Reverted.
type PersistenceFailure struct {
	SessionID string
	Attempt   int
	Retryable bool
	Reverted  bool
	Err       error
}

func (e *PersistenceFailure) Error() string {
	if e.Reverted {
		return fmt.Sprintf("could not save order, reverted: %v", e.Err)
	}
	return fmt.Sprintf("could not save order (attempt %d): %v", e.Attempt, e.Err)
}

func (e *PersistenceFailure) Unwrap() error { return e.Err }
