package tui

import (
	"planner-cli/internal/model"
	"planner-cli/internal/store"
)

// restoreState puts the cursor back where the last session left it. Keys
// that no longer exist fall back to the saved column.
func (m *boardModel) restoreState() {
	st, err := m.b.Store().LoadTUIState()
	if err != nil {
		m.log.Debug("tui state not loaded", "err", err)
		return
	}
	kind := model.KindItem
	if st.Focus == "lists" {
		kind = model.KindContainer
		m.focus = focusLists
	}
	if c, ok := m.snap.find(kind, st.Selected); ok && st.Selected != "" {
		m.cur = c
		return
	}
	if st.Column > 0 && st.Column < len(m.snap.cols) {
		m.cur = cursor{col: st.Column}
	}
	m.clampCursor()
}

func (m boardModel) saveState() {
	st := &store.TUIState{Focus: "items", Column: m.cur.col}
	if m.focus == focusLists {
		st.Focus = "lists"
		if l, ok := m.snap.list(m.cur); ok && !l.pending {
			st.Selected = l.key
		}
	} else if e, ok := m.snap.entry(m.cur); ok && !e.Shadow {
		st.Selected = e.Key
	}
	if err := m.b.Store().SaveTUIState(st); err != nil {
		m.log.Warn("tui state not saved", "err", err)
	}
}
