package board

import (
	"fmt"
	"strings"

	"planner-cli/internal/model"
)

// ConcurrentCommitError reports an order write that gave up waiting for
// another write on the same scope to finish.
type ConcurrentCommitError struct {
	Scopes []model.Scope
	Err    error
}

func (e *ConcurrentCommitError) Error() string {
	keys := make([]string, 0, len(e.Scopes))
	for _, s := range e.Scopes {
		keys = append(keys, s.Key())
	}
	return fmt.Sprintf("concurrent commit on %s: %v", strings.Join(keys, ","), e.Err)
}

func (e *ConcurrentCommitError) Unwrap() error { return e.Err }
