package tui

import (
	"fmt"
	"strings"

	"planner-cli/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *boardModel) openPrompt(kind promptKind, hint, value string) {
	if _, ok := m.snap.list(m.cur); !ok && kind != promptAddList {
		return
	}
	m.prompt = kind
	m.target = m.cur
	m.input.Placeholder = hint
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *boardModel) openRename() {
	sel, ok := m.selection()
	if !ok {
		return
	}
	if sel.kind == model.KindItem {
		e, _ := m.snap.entry(m.cur)
		m.openPrompt(promptRename, "Text", e.Label)
		return
	}
	l, _ := m.snap.list(m.cur)
	m.openPrompt(promptRename, "Name (empty for none)", strings.TrimPrefix(l.title, "(unnamed)"))
}

func (m boardModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.closePrompt()
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		kind := m.prompt
		m.closePrompt()
		m.submit(kind, text)
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *boardModel) closePrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.SetValue("")
}

func (m *boardModel) submit(kind promptKind, text string) {
	st := m.b.Store()
	saved := m.cur
	m.cur = m.target
	defer func() {
		if kind != promptAddItem && kind != promptAddList {
			m.cur = saved
		}
	}()

	switch kind {
	case promptAddItem:
		l, ok := m.snap.list(m.target)
		if !ok || l.pending {
			return
		}
		it, err := st.CreateItem(m.ctx, l.id, text)
		if err != nil {
			m.setErr(err)
			return
		}
		m.awaitFollow(it.ID, model.ItemsOf(l.id))
		m.setFlash(fmt.Sprintf("added item %s", it.ID))
	case promptAddList:
		var name *string
		if text != "" {
			name = &text
		}
		c, err := st.CreateContainer(m.ctx, m.target.col, name)
		if err != nil {
			m.setErr(err)
			return
		}
		m.awaitFollow(c.ID, model.Column(m.target.col))
		m.setFlash(fmt.Sprintf("added list %s", c.ID))
	case promptRename:
		sel, ok := m.selection()
		if !ok {
			return
		}
		var err error
		if sel.kind == model.KindItem {
			err = st.RenameItem(m.ctx, sel.id, text)
		} else {
			var name *string
			if text != "" {
				name = &text
			}
			err = st.RenameContainer(m.ctx, sel.id, name)
		}
		if err != nil {
			m.setErr(err)
		}
	}
}

// awaitFollow refreshes scope from the store so a just-created entity can be
// selected right away.
func (m *boardModel) awaitFollow(id model.ID, scope model.Scope) {
	c, err := m.b.Acquire(scope)
	if err != nil {
		return
	}
	if err := c.Refresh(m.ctx); err != nil {
		return
	}
	m.refresh()
	m.follow(scope.Member(), id)
}

func (m *boardModel) toggleDone() {
	sel, ok := m.selection()
	if !ok || sel.kind != model.KindItem {
		return
	}
	st := m.b.Store()
	it, err := st.GetItem(m.ctx, sel.id)
	if err != nil {
		m.setErr(err)
		return
	}
	next := model.StatusDone
	if it.Status == model.StatusDone {
		next = model.StatusActive
	}
	if err := st.SetStatus(m.ctx, sel.id, next); err != nil {
		m.setErr(err)
		return
	}
	m.setFlash(fmt.Sprintf("item %s %s", sel.id, next))
}

func (m *boardModel) retire(hard bool) {
	sel, ok := m.selection()
	if !ok {
		return
	}
	st := m.b.Store()
	var err error
	verb := "archived"
	if hard {
		verb = "deleted"
		err = st.SoftDelete(m.ctx, sel.kind, sel.id)
	} else {
		err = st.Archive(m.ctx, sel.kind, sel.id)
	}
	if err != nil {
		m.setErr(err)
		return
	}
	m.setFlash(fmt.Sprintf("%s %s %s", verb, sel.kind, sel.id))
}
