package tui

import (
	"fmt"

	"planner-cli/internal/drag"
	"planner-cli/internal/model"
	"planner-cli/internal/placeholder"

	tea "github.com/charmbracelet/bubbletea"
)

// handleMouse drives pointer drags of items: a press past the travel
// threshold starts a session, motion reports a shadowed ordering for the
// hovered list and release finalizes.
func (m *boardModel) handleMouse(msg tea.MouseMsg) {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		h, ok := m.snap.hitTest(m.geo, msg.X, msg.Y)
		if !ok {
			return
		}
		m.press = &press{x: msg.X, y: msg.Y, hit: h}
	case tea.MouseActionMotion:
		if m.press == nil {
			return
		}
		if m.shadow == nil {
			if !drag.PastThreshold(msg.X-m.press.x, msg.Y-m.press.y) {
				return
			}
			if !m.startPointer() {
				m.press = nil
				return
			}
		}
		m.hover(msg.X, msg.Y)
	case tea.MouseActionRelease:
		p := m.press
		m.press = nil
		if p == nil {
			return
		}
		if m.shadow == nil {
			m.selectHit(p.hit)
			return
		}
		m.release(msg.X, msg.Y)
	}
}

func (m *boardModel) selectHit(h hit) {
	if h.line.list < 0 {
		return
	}
	m.cur = cursor{col: h.col, list: h.line.list, item: h.line.item}
	switch h.line.kind {
	case lineList:
		m.focus = focusLists
	case lineItem:
		m.focus = focusItems
	}
	m.clampCursor()
}

func (m *boardModel) startPointer() bool {
	h := m.press.hit
	if h.line.kind != lineItem {
		return false
	}
	c := cursor{col: h.col, list: h.line.list, item: h.line.item}
	l, _ := m.snap.list(c)
	e, ok := m.snap.entry(c)
	if !ok {
		return false
	}
	id, err := placeholder.ParseID(e.Key)
	if err != nil {
		return false
	}
	s, err := m.b.Machine().Start(id, model.KindItem, l.scope, drag.Pointer)
	if err != nil {
		m.setErr(err)
		return false
	}
	sh := shadowAt{scope: l.scope, index: s.Index, subject: s.SubjectEntry()}
	if err := m.consider(sh); err != nil {
		m.setErr(err)
		_ = m.b.Machine().Cancel()
		return false
	}
	m.shadow = &sh
	return true
}

// hover moves the shadow to the list position under (x, y). Leaving a list
// reports it without the subject.
func (m *boardModel) hover(x, y int) {
	h, ok := m.snap.hitTest(m.geo, x, y)
	if !ok {
		return
	}
	subject := m.shadow.subject
	scope, idx, ok := m.snap.dropIndex(h, subject.Key)
	if !ok || (scope == m.shadow.scope && idx == m.shadow.index) {
		return
	}
	if scope != m.shadow.scope {
		left, err := m.base(m.shadow.scope, subject.Key)
		if err == nil {
			err = m.b.Machine().Consider(m.shadow.scope, left)
		}
		if err != nil {
			m.setErr(err)
			return
		}
	}
	next := shadowAt{scope: scope, index: idx, subject: subject}
	if err := m.consider(next); err != nil {
		m.setErr(err)
		return
	}
	m.shadow = &next
}

func (m *boardModel) consider(sh shadowAt) error {
	entries, err := m.base(sh.scope, sh.subject.Key)
	if err != nil {
		return err
	}
	return m.b.Machine().Consider(sh.scope, insertAt(entries, sh.index, sh.shadowEntry()))
}

// release drops at (x, y), or puts the subject back when released off the
// lists.
func (m *boardModel) release(x, y int) {
	m.hover(x, y)
	sh := m.shadow
	m.shadow = nil
	if _, ok := m.snap.hitTest(m.geo, x, y); !ok {
		m.putBack()
		return
	}
	s, ok := m.b.Machine().Session()
	if !ok {
		return
	}
	if sh.scope != s.Origin {
		left, err := m.base(s.Origin, sh.subject.Key)
		if err == nil {
			err = m.b.Finalize(m.ctx, s.Origin, left)
		}
		if err != nil {
			m.setErr(err)
			return
		}
	}
	dest, err := m.base(sh.scope, sh.subject.Key)
	if err == nil {
		err = m.b.Finalize(m.ctx, sh.scope, insertAt(dest, sh.index, sh.subject))
	}
	if err != nil {
		m.setErr(err)
		return
	}
	m.setFlash(fmt.Sprintf("moved item %s", s.SubjectID))
	m.refresh()
	m.follow(model.KindItem, s.SubjectID)
}

// base is scope's working entries without the subject.
func (m *boardModel) base(scope model.Scope, subject string) ([]model.Entry, error) {
	c, err := m.b.Acquire(scope)
	if err != nil {
		return nil, err
	}
	entries := c.Entries()
	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Key != subject {
			out = append(out, e)
		}
	}
	return out, nil
}

func insertAt(entries []model.Entry, idx int, e model.Entry) []model.Entry {
	if idx > len(entries) {
		idx = len(entries)
	}
	out := make([]model.Entry, 0, len(entries)+1)
	out = append(out, entries[:idx]...)
	out = append(out, e)
	return append(out, entries[idx:]...)
}
