// Package drag models one reorder gesture, pointer or keyboard, from start
// through provisional moves to commit or cancel.
package drag

import (
	"planner-cli/internal/model"
)

type State int

const (
	Idle State = iota
	Active
	Committing
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Committing:
		return "committing"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type Mode string

const (
	Pointer  Mode = "pointer"
	Keyboard Mode = "keyboard"
)

// Threshold is the pointer travel, in cells, before a press becomes a drag.
const Threshold = 3

// PastThreshold reports whether a pointer moved far enough to start a drag.
func PastThreshold(dx, dy int) bool {
	return dx*dx+dy*dy >= Threshold*Threshold
}

// Session is the state of the gesture in progress. Target and Index name
// where the subject would land if dropped now; Index counts positions in
// Target with the subject removed.
type Session struct {
	ID          string      `json:"id"`
	SubjectID   model.ID    `json:"subjectId"`
	SubjectKind model.Kind  `json:"subjectKind"`
	Origin      model.Scope `json:"origin"`
	Mode        Mode        `json:"mode"`
	Target      model.Scope `json:"target"`
	Index       int         `json:"index"`

	// NewContainer is set when the subject will land in a container created
	// on commit, at the end of column NewColumn.
	NewContainer bool `json:"newContainer,omitempty"`
	NewColumn    int  `json:"newColumn,omitempty"`

	originIndex int
	originIDs   []model.ID
	subject     model.Entry
	// ordering is the placeholder-free finalized ordering of Target, set by a
	// pointer finalize within the origin scope.
	ordering []model.ID
	held     []model.Scope
	failures int
}

// SubjectEntry is the subject as it was listed when the session started.
func (s *Session) SubjectEntry() model.Entry { return s.subject }

// Targets reports whether scope's working copy is owned by this session.
func (s *Session) Targets(scope model.Scope) bool {
	for _, h := range s.held {
		if h == scope {
			return true
		}
	}
	return false
}

func (s *Session) hold(scope model.Scope) bool {
	if s.Targets(scope) {
		return false
	}
	s.held = append(s.held, scope)
	return true
}

// Commit is the order write a drop asks for.
type Commit struct {
	SessionID string
	Subject   model.ID
	Kind      model.Kind
	From      model.Scope
	To        model.Scope
	Index     int
	// NewContainerColumn, when set, creates the destination container.
	NewContainerColumn *int
	// Ordering is the full ordering of From when a same-scope drop carried one.
	Ordering []model.ID
}

// SameScope reports whether the commit reorders a single scope.
func (c Commit) SameScope() bool {
	return c.NewContainerColumn == nil && c.From == c.To
}

// Scopes lists every scope the commit writes, for serialization.
func (c Commit) Scopes() []model.Scope {
	if c.SameScope() {
		return []model.Scope{c.From}
	}
	out := []model.Scope{c.From}
	if c.NewContainerColumn != nil {
		return append(out, model.Column(*c.NewContainerColumn))
	}
	return append(out, c.To)
}
