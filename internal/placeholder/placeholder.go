// Package placeholder tells persisted entries apart from the transient shadow
// entries the interaction layer injects while a drag is in progress.
package placeholder

import (
	"fmt"
	"strconv"
	"strings"

	"planner-cli/internal/model"
)

// ShadowPrefix is the reserved key prefix for synthetic drag placeholders.
const ShadowPrefix = "id:dnd-shadow-placeholder"

// InvalidIdentityError is returned when a key without a stable persisted
// identity is used where a real id is required.
type InvalidIdentityError struct {
	Key string
}

func (e InvalidIdentityError) Error() string {
	return fmt.Sprintf("invalid identity: %q is not a persisted id", e.Key)
}

// ShadowKey returns the reserved placeholder key for slot n.
func ShadowKey(n int) string {
	return fmt.Sprintf("%s-%04d", ShadowPrefix, n)
}

// ShadowOf returns the placeholder key standing in for id while it is
// dragged over a list.
func ShadowOf(id model.ID) string {
	return ShadowPrefix + ":" + id.String()
}

// ShadowSubject returns the id a ShadowOf key stands in for.
func ShadowSubject(key string) (model.ID, bool) {
	rest, ok := strings.CutPrefix(key, ShadowPrefix+":")
	if !ok {
		return 0, false
	}
	id, err := ParseID(rest)
	if err != nil {
		return 0, false
	}
	return id, true
}

// IsPlaceholder reports whether e lacks a stable persisted identity.
func IsPlaceholder(e model.Entry) bool {
	if e.Shadow {
		return true
	}
	return !IsCanonicalKey(e.Key)
}

// IsCanonicalKey reports whether key is the canonical decimal form of a
// positive id. "007", "+7", " 7" and "7.0" are not canonical.
func IsCanonicalKey(key string) bool {
	if key == "" || strings.HasPrefix(key, ShadowPrefix) {
		return false
	}
	if key[0] < '1' || key[0] > '9' {
		return false
	}
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil || n <= 0 {
		return false
	}
	return strconv.FormatInt(n, 10) == key
}

// ParseID converts a canonical key into an id.
func ParseID(key string) (model.ID, error) {
	if !IsCanonicalKey(key) {
		return 0, InvalidIdentityError{Key: key}
	}
	n, _ := strconv.ParseInt(key, 10, 64)
	return model.ID(n), nil
}

// FilterReal drops placeholders from entries, preserving order.
func FilterReal(entries []model.Entry) []model.Entry {
	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if IsPlaceholder(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// IDs parses the keys of real entries, skipping placeholders.
func IDs(entries []model.Entry) []model.ID {
	out := make([]model.ID, 0, len(entries))
	for _, e := range FilterReal(entries) {
		id, err := ParseID(e.Key)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
