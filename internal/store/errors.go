package store

import (
	"fmt"

	"planner-cli/internal/model"
)

type NotFoundError struct {
	Kind model.Kind
	ID   model.ID
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ScopeMismatchError rejects an order write that names an entity outside the
// scope it claims to rank. Nothing is written when it is returned.
type ScopeMismatchError struct {
	Scope  model.Scope
	ID     model.ID
	Reason string
}

func (e ScopeMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("scope mismatch: %s in %s: %s", e.ID, e.Scope, e.Reason)
	}
	return fmt.Sprintf("scope mismatch: %s does not belong to %s", e.ID, e.Scope)
}
