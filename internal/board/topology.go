package board

import (
	"planner-cli/internal/model"
	"planner-cli/internal/placeholder"
)

// Neighbor returns the scope a keyboard move enters when it leaves scope in
// dir. Item scopes chain through containers in reading order: down a
// column, then on to the top of the next non-empty one. Column scopes step
// to the adjacent column. Unassigned items sit above every container, so
// moving down from there enters the first one.
func (b *Board) Neighbor(scope model.Scope, dir model.Direction) (model.Scope, bool) {
	switch scope.Kind {
	case model.ScopeColumn:
		next := int(scope.ID) + 1
		if dir == model.Up {
			next = int(scope.ID) - 1
		}
		if next < 0 || next >= b.columns {
			return model.Scope{}, false
		}
		return model.Column(next), true
	case model.ScopeItems:
		order := b.readingOrder()
		if scope.ID == 0 {
			if dir == model.Up || len(order) == 0 {
				return model.Scope{}, false
			}
			return model.ItemsOf(order[0]), true
		}
		for i, id := range order {
			if int64(id) != scope.ID {
				continue
			}
			j := i + 1
			if dir == model.Up {
				j = i - 1
			}
			if j < 0 || j >= len(order) {
				return model.Scope{}, false
			}
			return model.ItemsOf(order[j]), true
		}
	}
	return model.Scope{}, false
}

// LastColumn is the column new containers are appended to by a move past
// the end of the board.
func (b *Board) LastColumn() int { return b.columns - 1 }

// readingOrder lists container ids column by column, from the authoritative
// column data.
func (b *Board) readingOrder() []model.ID {
	var out []model.ID
	for i := 0; i < b.columns; i++ {
		c, err := b.Acquire(model.Column(i))
		if err != nil {
			b.log.Warn("column unavailable", "column", i, "err", err)
			return nil
		}
		for _, e := range c.Authoritative() {
			id, err := placeholder.ParseID(e.Key)
			if err != nil {
				continue
			}
			out = append(out, id)
		}
	}
	return out
}
