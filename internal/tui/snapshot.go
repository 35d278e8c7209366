package tui

import (
	"planner-cli/internal/board"
	"planner-cli/internal/drag"
	"planner-cli/internal/model"
	"planner-cli/internal/placeholder"
)

// inboxKey marks the pseudo-list of items with no container.
const inboxKey = "inbox"

type listView struct {
	key   string
	id    model.ID
	scope model.Scope
	title string
	items []model.Entry
	// pending is the container a keyboard drop past the last list creates.
	pending bool
}

type colView struct {
	scope model.Scope
	lists []listView
}

type snapshot struct {
	cols []colView
}

// shadowAt places a pointer shadow for subject at index of scope.
type shadowAt struct {
	scope   model.Scope
	index   int
	subject model.Entry
}

// shadowEntry is the entry shown in place of the dragged subject.
func (sh shadowAt) shadowEntry() model.Entry {
	e := sh.subject
	if id, err := placeholder.ParseID(e.Key); err == nil {
		e.Key = placeholder.ShadowOf(id)
	}
	e.Shadow = true
	return e
}

// buildSnapshot reads the board's working copies column by column. Lists
// follow the working container order, so a dragged container shows where it
// would land.
func buildSnapshot(b *board.Board, sess *drag.Session, shadow *shadowAt) (snapshot, error) {
	var s snapshot
	for i := 0; i < b.Columns(); i++ {
		cc, err := b.Acquire(model.Column(i))
		if err != nil {
			return snapshot{}, err
		}
		col := colView{scope: model.Column(i)}
		if i == 0 {
			inbox, err := b.Acquire(model.ItemsOf(0))
			if err != nil {
				return snapshot{}, err
			}
			entries := inbox.Entries()
			if len(entries) > 0 || (sess != nil && sess.Target == model.ItemsOf(0)) || (shadow != nil && shadow.scope == model.ItemsOf(0)) {
				col.lists = append(col.lists, listView{key: inboxKey, scope: model.ItemsOf(0), title: "Unassigned", items: entries})
			}
		}
		for _, e := range cc.Entries() {
			id, err := placeholder.ParseID(e.Key)
			if err != nil {
				continue
			}
			ic, err := b.Acquire(model.ItemsOf(id))
			if err != nil {
				return snapshot{}, err
			}
			title := e.Label
			if title == "" {
				title = "(unnamed)"
			}
			col.lists = append(col.lists, listView{key: e.Key, id: id, scope: model.ItemsOf(id), title: title, items: ic.Entries()})
		}
		if sess != nil && sess.NewContainer && sess.NewColumn == i {
			col.lists = append(col.lists, listView{
				key:     placeholder.ShadowKey(0),
				title:   "(new list)",
				pending: true,
				items:   []model.Entry{sess.SubjectEntry()},
			})
		}
		s.cols = append(s.cols, col)
	}
	if shadow != nil {
		s.placeShadow(*shadow)
	}
	return s, nil
}

func (s *snapshot) placeShadow(sh shadowAt) {
	for ci := range s.cols {
		for li := range s.cols[ci].lists {
			l := &s.cols[ci].lists[li]
			if l.pending || l.scope != sh.scope {
				continue
			}
			entry := sh.shadowEntry()
			idx := sh.index
			if idx > len(l.items) {
				idx = len(l.items)
			}
			items := make([]model.Entry, 0, len(l.items)+1)
			items = append(items, l.items[:idx]...)
			items = append(items, entry)
			l.items = append(items, l.items[idx:]...)
			return
		}
	}
}

// find returns the position of the item or list with key. Items and lists
// are numbered separately, so the same key can name one of each.
func (s snapshot) find(kind model.Kind, key string) (cursor, bool) {
	for ci, c := range s.cols {
		for li, l := range c.lists {
			if kind == model.KindContainer {
				if l.key == key && !l.pending {
					return cursor{col: ci, list: li, item: -1}, true
				}
				continue
			}
			for ii, e := range l.items {
				if e.Key == key && !e.Shadow {
					return cursor{col: ci, list: li, item: ii}, true
				}
			}
		}
	}
	return cursor{}, false
}

func (s snapshot) list(c cursor) (listView, bool) {
	if c.col < 0 || c.col >= len(s.cols) {
		return listView{}, false
	}
	lists := s.cols[c.col].lists
	if c.list < 0 || c.list >= len(lists) {
		return listView{}, false
	}
	return lists[c.list], true
}

func (s snapshot) entry(c cursor) (model.Entry, bool) {
	l, ok := s.list(c)
	if !ok || c.item < 0 || c.item >= len(l.items) {
		return model.Entry{}, false
	}
	return l.items[c.item], true
}

type lineKind int

const (
	lineHeader lineKind = iota
	lineList
	lineItem
	lineEmpty
	lineGap
)

type line struct {
	kind lineKind
	list int
	item int
}

// lines lays out one column top to bottom. View and hit testing share it.
func (c colView) lines() []line {
	out := []line{{kind: lineHeader, list: -1, item: -1}}
	for li, l := range c.lists {
		out = append(out, line{kind: lineList, list: li, item: -1})
		if len(l.items) == 0 {
			out = append(out, line{kind: lineEmpty, list: li, item: -1})
		}
		for ii := range l.items {
			out = append(out, line{kind: lineItem, list: li, item: ii})
		}
		out = append(out, line{kind: lineGap, list: li, item: -1})
	}
	return out
}

type cursor struct {
	col  int
	list int
	// item is -1 when the list itself is selected.
	item int
}

// hit is what lies under a screen cell.
type hit struct {
	col  int
	line line
}

func (s snapshot) hitTest(g geometry, x, y int) (hit, bool) {
	if x < 0 || y < g.top {
		return hit{}, false
	}
	col := x / (g.colWidth + colGap)
	if col >= len(s.cols) || x%(g.colWidth+colGap) >= g.colWidth {
		return hit{}, false
	}
	ls := s.cols[col].lines()
	row := y - g.top
	if row >= len(ls) {
		return hit{}, false
	}
	return hit{col: col, line: ls[row]}, true
}

// dropIndex maps a hovered line to an insert position among the list's real
// entries, skipping the pointer shadow and the subject itself.
func (s snapshot) dropIndex(h hit, subject string) (model.Scope, int, bool) {
	if h.line.list < 0 {
		return model.Scope{}, 0, false
	}
	l := s.cols[h.col].lists[h.line.list]
	if l.pending {
		return model.Scope{}, 0, false
	}
	real := func(upto int) int {
		n := 0
		for i := 0; i < upto && i < len(l.items); i++ {
			e := l.items[i]
			if e.Shadow || e.Key == subject {
				continue
			}
			n++
		}
		return n
	}
	switch h.line.kind {
	case lineList:
		return l.scope, 0, true
	case lineItem:
		return l.scope, real(h.line.item), true
	default:
		return l.scope, real(len(l.items)), true
	}
}

const (
	colGap      = 2
	minColWidth = 20
)

type geometry struct {
	top      int
	colWidth int
}

func layout(width, columns int) geometry {
	g := geometry{top: 2, colWidth: minColWidth}
	if columns <= 0 {
		return g
	}
	if w := (width - colGap*(columns-1)) / columns; w > g.colWidth {
		g.colWidth = w
	}
	return g
}
