package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"planner-cli/internal/board"
	"planner-cli/internal/drag"
	"planner-cli/internal/model"
	"planner-cli/internal/placeholder"
	"planner-cli/internal/querylife"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type focus int

const (
	focusItems focus = iota
	focusLists
)

type promptKind int

const (
	promptNone promptKind = iota
	promptAddItem
	promptAddList
	promptRename
)

// press is a mouse button held down that has not become a drag yet.
type press struct {
	x, y int
	hit  hit
}

type boardModel struct {
	ctx   context.Context
	b     *board.Board
	notes *Notifier
	log   *slog.Logger

	width  int
	height int
	geo    geometry
	snap   snapshot
	focus  focus
	cur    cursor

	// shadow is where a pointer drag would drop.
	shadow *shadowAt
	press  *press

	// peek follows the list under the cursor and reports its saved size.
	peek    *querylife.Guard
	peekKey string

	prompt   promptKind
	input    textinput.Model
	target   cursor
	showHelp bool

	flash    string
	flashErr bool
}

func newModel(ctx context.Context, b *board.Board, n *Notifier, opts Options) boardModel {
	log := opts.Logger
	if log == nil {
		log = b.Logger()
	}
	in := textinput.New()
	in.CharLimit = 200
	in.Width = 40
	m := boardModel{
		ctx:   ctx,
		b:     b,
		notes: n,
		log:   log,
		width: 80,
		peek:  b.Slot(),
		input: in,
	}
	m.refresh()
	m.restoreState()
	return m
}

func (m boardModel) close() {
	_ = m.b.Machine().Cancel()
	m.peek.Close()
}

func (m boardModel) Init() tea.Cmd {
	return m.notes.wait(m.ctx)
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.refresh()
		return m, nil
	case boardChangedMsg:
		m.refresh()
		return m, m.notes.wait(m.ctx)
	case tea.MouseMsg:
		if m.prompt == promptNone && !m.showHelp {
			m.handleMouse(msg)
			m.refresh()
		}
		return m, nil
	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		if m.showHelp {
			switch msg.String() {
			case "?", "esc", "q":
				m.showHelp = false
			case "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}
		if m.keyboardSession() {
			return m.updateMoving(msg)
		}
		return m.updateBoard(msg)
	}
	return m, nil
}

func (m boardModel) keyboardSession() bool {
	s, ok := m.b.Machine().Session()
	return ok && s.Mode == drag.Keyboard
}

func (m boardModel) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
	case "up", "k":
		m.moveVertical(-1)
	case "down", "j":
		m.moveVertical(1)
	case "left", "h":
		m.moveColumn(-1)
	case "right", "l":
		m.moveColumn(1)
	case "tab":
		if m.focus == focusItems {
			m.focus = focusLists
		} else {
			m.focus = focusItems
		}
		m.clampCursor()
	case " ":
		m.grab()
	case "enter":
		// A failed save leaves the pointer session waiting for a retry.
		if m.b.Machine().State() == drag.Committing {
			m.drop()
		}
	case "esc":
		m.putBack()
	case "K":
		m.nudge(model.Up)
	case "J":
		m.nudge(model.Down)
	case "a":
		m.openPrompt(promptAddItem, "New item", "")
	case "n":
		m.openPrompt(promptAddList, "New list (name optional)", "")
	case "e":
		m.openRename()
	case "x":
		m.toggleDone()
	case "A":
		m.retire(false)
	case "D":
		m.retire(true)
	}
	m.refresh()
	return m, nil
}

func (m boardModel) updateMoving(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	switch msg.String() {
	case "ctrl+c", "q":
		m.putBack()
		return m, tea.Quit
	case "up", "k":
		m.step(model.Up)
	case "down", "j":
		m.step(model.Down)
	case " ", "enter":
		m.drop()
	case "esc":
		m.putBack()
	}
	m.refresh()
	return m, nil
}

func (m *boardModel) step(dir model.Direction) {
	if err := m.b.Machine().Step(dir); err != nil {
		m.setErr(err)
	}
}

func (m *boardModel) drop() {
	if err := m.b.Drop(m.ctx); err != nil {
		m.setErr(err)
		return
	}
	m.setFlash("saved")
}

func (m *boardModel) putBack() {
	if err := m.b.Machine().Cancel(); err != nil {
		m.setErr(err)
	}
	m.shadow = nil
	m.press = nil
}

// grab starts a keyboard session for the selection.
func (m *boardModel) grab() {
	sel, ok := m.selection()
	if !ok {
		return
	}
	if _, err := m.b.Machine().Start(sel.id, sel.kind, sel.scope, drag.Keyboard); err != nil {
		m.setErr(err)
		return
	}
	m.setFlash(fmt.Sprintf("moving %s %s: ↑/↓ to move, space to drop, esc to put back", sel.kind, sel.id))
}

func (m *boardModel) nudge(dir model.Direction) {
	sel, ok := m.selection()
	if !ok {
		return
	}
	if _, err := m.b.Nudge(m.ctx, sel.kind, sel.id, dir); err != nil {
		m.setErr(err)
		return
	}
	m.refresh()
	m.follow(sel.kind, sel.id)
}

type selected struct {
	id    model.ID
	kind  model.Kind
	scope model.Scope
}

// selection resolves the cursor to a persisted entity and its scope.
func (m boardModel) selection() (selected, bool) {
	l, ok := m.snap.list(m.cur)
	if !ok || l.pending {
		return selected{}, false
	}
	if m.focus == focusLists {
		if l.id == 0 {
			return selected{}, false
		}
		return selected{id: l.id, kind: model.KindContainer, scope: m.snap.cols[m.cur.col].scope}, true
	}
	e, ok := m.snap.entry(m.cur)
	if !ok || e.Shadow {
		return selected{}, false
	}
	id, err := placeholder.ParseID(e.Key)
	if err != nil {
		return selected{}, false
	}
	return selected{id: id, kind: model.KindItem, scope: l.scope}, true
}

// positions lists the selectable cursor stops in a column.
func (m boardModel) positions(col int) []cursor {
	if col < 0 || col >= len(m.snap.cols) {
		return nil
	}
	var out []cursor
	for li, l := range m.snap.cols[col].lists {
		if m.focus == focusLists {
			if l.id != 0 || l.pending {
				out = append(out, cursor{col: col, list: li, item: -1})
			}
			continue
		}
		if len(l.items) == 0 {
			out = append(out, cursor{col: col, list: li, item: -1})
			continue
		}
		for ii, e := range l.items {
			if e.Shadow {
				continue
			}
			out = append(out, cursor{col: col, list: li, item: ii})
		}
	}
	return out
}

func (m *boardModel) moveVertical(delta int) {
	pos := m.positions(m.cur.col)
	if len(pos) == 0 {
		return
	}
	at := 0
	for i, p := range pos {
		if p == m.cur {
			at = i
			break
		}
	}
	at += delta
	if at < 0 {
		at = 0
	}
	if at >= len(pos) {
		at = len(pos) - 1
	}
	m.cur = pos[at]
}

func (m *boardModel) moveColumn(delta int) {
	col := m.cur.col + delta
	if col < 0 || col >= len(m.snap.cols) {
		return
	}
	m.cur = cursor{col: col, list: m.cur.list, item: m.cur.item}
	m.clampCursor()
}

// clampCursor moves the cursor to the nearest selectable stop.
func (m *boardModel) clampCursor() {
	if m.cur.col >= len(m.snap.cols) {
		m.cur.col = len(m.snap.cols) - 1
	}
	if m.cur.col < 0 {
		m.cur.col = 0
	}
	pos := m.positions(m.cur.col)
	if len(pos) == 0 {
		m.cur = cursor{col: m.cur.col, list: 0, item: -1}
		return
	}
	best := pos[0]
	for _, p := range pos {
		if p == m.cur {
			return
		}
		if p.list < m.cur.list || (p.list == m.cur.list && p.item <= m.cur.item) {
			best = p
		}
	}
	m.cur = best
}

// follow puts the cursor on the item or list id if it is on the board.
func (m *boardModel) follow(kind model.Kind, id model.ID) {
	c, ok := m.snap.find(kind, id.String())
	if !ok {
		return
	}
	if kind == model.KindContainer {
		m.focus = focusLists
	} else {
		m.focus = focusItems
	}
	m.cur = c
}

// refresh rebuilds the snapshot from the working copies and keeps the cursor
// on a moving subject.
func (m *boardModel) refresh() {
	sess, active := m.b.Machine().Session()
	var sp *drag.Session
	if active {
		sp = &sess
	}
	snap, err := buildSnapshot(m.b, sp, m.shadow)
	if err != nil {
		m.setErr(err)
		return
	}
	m.snap = snap
	m.geo = layout(m.width, len(snap.cols))
	switch {
	case active && sess.Mode == drag.Keyboard && sess.NewContainer:
		for li, l := range snap.cols[sess.NewColumn].lists {
			if l.pending {
				m.cur = cursor{col: sess.NewColumn, list: li, item: 0}
			}
		}
	case active && sess.Mode == drag.Keyboard:
		m.follow(sess.SubjectKind, sess.SubjectID)
	default:
		m.clampCursor()
	}
	m.bindPeek()
}

func (m *boardModel) bindPeek() {
	l, ok := m.snap.list(m.cur)
	if !ok || l.key == m.peekKey {
		return
	}
	m.peekKey = l.key
	m.peek.Bind(l.key)
}

func (m boardModel) peekLine() string {
	cur := m.peek.Current()
	if cur == nil {
		return ""
	}
	if m.peek.Loading() {
		return fmt.Sprintf("list %s: loading", m.peek.ID())
	}
	return fmt.Sprintf("list %s: %d saved", m.peek.ID(), len(cur.Copy.Authoritative()))
}

func (m *boardModel) setFlash(s string) {
	m.flash = s
	m.flashErr = false
}

func (m *boardModel) setErr(err error) {
	var pf *drag.PersistenceFailure
	switch {
	case errors.As(err, &pf) && pf.Retryable:
		m.flash = "could not save, press enter to retry or esc to put back"
	case errors.As(err, &pf) && pf.Reverted:
		m.flash = "could not save, order put back"
	default:
		m.flash = err.Error()
	}
	m.flashErr = true
	m.log.Warn("board action failed", "err", err)
}
