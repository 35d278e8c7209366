package cli

import (
	"fmt"

	"planner-cli/internal/model"
	"planner-cli/internal/placeholder"
)

type invalidArgError struct {
	arg   string
	value string
	want  string
}

func (e invalidArgError) Error() string {
	return fmt.Sprintf("invalid %s %q (want %s)", e.arg, e.value, e.want)
}

func errInvalidArg(arg, value, want string) error {
	return invalidArgError{arg: arg, value: value, want: want}
}

// parseID accepts only the canonical decimal form of a persisted id.
func parseID(arg, s string) (model.ID, error) {
	id, err := placeholder.ParseID(s)
	if err != nil {
		return 0, errInvalidArg(arg, s, "a positive integer id")
	}
	return id, nil
}
