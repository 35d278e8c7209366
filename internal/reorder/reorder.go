// Package reorder computes dense order assignments for reorders within a scope
// and for moves across two scopes.
package reorder

import (
	"errors"
	"fmt"

	"planner-cli/internal/model"
)

// Plan is the full ordering of one scope: IDs[i] receives order i.
type Plan struct {
	Scope model.Scope
	IDs   []model.ID
}

func (p Plan) IndexOf(id model.ID) int {
	for i, x := range p.IDs {
		if x == id {
			return i
		}
	}
	return -1
}

func (p Plan) Contains(id model.ID) bool { return p.IndexOf(id) >= 0 }

// OrderByID expands the plan into the order each id receives.
func (p Plan) OrderByID() map[model.ID]int {
	out := make(map[model.ID]int, len(p.IDs))
	for i, id := range p.IDs {
		out[id] = i
	}
	return out
}

func (p Plan) clone() Plan {
	return Plan{Scope: p.Scope, IDs: append([]model.ID(nil), p.IDs...)}
}

// CrossMove describes the outcome of moving Subject into Dest.
// When SameScope is set, Source and Dest hold the same plan.
type CrossMove struct {
	Subject   model.ID
	Source    Plan
	Dest      Plan
	SameScope bool
	NoOp      bool
}

// Plans returns the plans that need writing, without duplicates.
func (m CrossMove) Plans() []Plan {
	if m.NoOp {
		return nil
	}
	if m.SameScope {
		return []Plan{m.Dest}
	}
	return []Plan{m.Source, m.Dest}
}

var (
	ErrMissingSubject = errors.New("missing subject")
	ErrNotInSource    = errors.New("subject not found in source scope")
	ErrDuplicateID    = errors.New("duplicate id in ordering")
)

// PlanReorder moves subject within cur to insertAt, expressed as an index into
// the list *after removing* subject. insertAt is clamped. The second return
// value reports a no-op (subject already at that position).
func PlanReorder(cur Plan, subject model.ID, insertAt int) (Plan, bool, error) {
	if subject == 0 {
		return Plan{}, false, ErrMissingSubject
	}
	if err := checkUnique(cur.IDs); err != nil {
		return Plan{}, false, err
	}
	from := cur.IndexOf(subject)
	if from < 0 {
		return Plan{}, false, ErrNotInSource
	}
	rest := without(cur.IDs, subject)
	insertAt = clamp(insertAt, 0, len(rest))
	if insertAt == from {
		return cur.clone(), true, nil
	}
	return Plan{Scope: cur.Scope, IDs: insert(rest, subject, insertAt)}, false, nil
}

// ComputeCrossMove plans moving subject from source into dest at destIndex.
// Both resulting plans are dense and subject appears in exactly one of them.
// Moving between the same scope degenerates to PlanReorder.
func ComputeCrossMove(subject model.ID, source, dest Plan, destIndex int) (CrossMove, error) {
	if subject == 0 {
		return CrossMove{}, ErrMissingSubject
	}
	if source.Scope == dest.Scope {
		p, noop, err := PlanReorder(source, subject, destIndex)
		if err != nil {
			return CrossMove{}, err
		}
		return CrossMove{Subject: subject, Source: p, Dest: p, SameScope: true, NoOp: noop}, nil
	}
	if err := checkUnique(source.IDs); err != nil {
		return CrossMove{}, err
	}
	if err := checkUnique(dest.IDs); err != nil {
		return CrossMove{}, err
	}
	if !source.Contains(subject) {
		return CrossMove{}, ErrNotInSource
	}
	if dest.Contains(subject) {
		return CrossMove{}, fmt.Errorf("subject %s already ranked in %s", subject, dest.Scope)
	}
	destIndex = clamp(destIndex, 0, len(dest.IDs))
	return CrossMove{
		Subject: subject,
		Source:  Plan{Scope: source.Scope, IDs: without(source.IDs, subject)},
		Dest:    Plan{Scope: dest.Scope, IDs: insert(dest.IDs, subject, destIndex)},
	}, nil
}

// Step computes the keyboard neighbor position of subject in ids. It returns
// the insert index (after removal) for an in-scope move, or boundary=true when
// the move would leave the scope.
func Step(ids []model.ID, subject model.ID, dir model.Direction) (insertAt int, boundary bool, err error) {
	i := -1
	for j, x := range ids {
		if x == subject {
			i = j
			break
		}
	}
	if i < 0 {
		return 0, false, ErrNotInSource
	}
	switch dir {
	case model.Up:
		if i == 0 {
			return 0, true, nil
		}
		return i - 1, false, nil
	case model.Down:
		if i == len(ids)-1 {
			return 0, true, nil
		}
		return i + 1, false, nil
	default:
		return 0, false, fmt.Errorf("unknown direction: %q", dir)
	}
}

// Dense reports whether orders, sorted, enumerate 0..n-1 exactly.
func Dense(orders []int) bool {
	seen := make([]bool, len(orders))
	for _, o := range orders {
		if o < 0 || o >= len(orders) || seen[o] {
			return false
		}
		seen[o] = true
	}
	return true
}

func checkUnique(ids []model.ID) error {
	seen := make(map[model.ID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		seen[id] = true
	}
	return nil
}

func without(ids []model.ID, id model.ID) []model.ID {
	out := make([]model.ID, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func insert(ids []model.ID, id model.ID, at int) []model.ID {
	out := make([]model.ID, 0, len(ids)+1)
	out = append(out, ids[:at]...)
	out = append(out, id)
	out = append(out, ids[at:]...)
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
