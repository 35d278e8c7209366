package tui

import (
	"fmt"
	"strings"

	"planner-cli/internal/drag"
	"planner-cli/internal/model"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

func (m boardModel) View() string {
	if m.showHelp {
		return renderHelp(m.width)
	}
	var b strings.Builder
	b.WriteString(m.titleBar())
	b.WriteString("\n\n")

	cols := make([]string, 0, len(m.snap.cols)*2)
	for ci := range m.snap.cols {
		if ci > 0 {
			cols = append(cols, strings.Repeat(" ", colGap))
		}
		cols = append(cols, m.renderColumn(ci))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m boardModel) titleBar() string {
	state := ""
	if s, ok := m.b.Machine().Session(); ok {
		state = fmt.Sprintf("  %s %s %s (%s)", m.b.Machine().State(), s.SubjectKind, s.SubjectID, s.Mode)
	}
	return styleTitle.Render("planner") + styleFooter.Render(state)
}

func (m boardModel) renderColumn(ci int) string {
	col := m.snap.cols[ci]
	sess, active := m.b.Machine().Session()
	w := m.geo.colWidth
	out := make([]string, 0, 16)
	for _, ln := range col.lines() {
		here := cursor{col: ci, list: ln.list, item: ln.item}
		switch ln.kind {
		case lineHeader:
			out = append(out, cell(fmt.Sprintf("Column %d", ci+1), w, styleColHeader))
		case lineList:
			l := col.lists[ln.list]
			st := styleListTitle
			switch {
			case active && sess.SubjectKind == model.KindContainer && l.key == sess.SubjectID.String():
				st = styleGrabbed
			case l.pending:
				st = faintIfDark(styleShadow)
			case m.focus == focusLists && m.cur == here:
				st = styleSelected
			}
			out = append(out, cell("▍ "+l.title, w, st))
		case lineItem:
			e := col.lists[ln.list].items[ln.item]
			text := "  • " + e.Label
			st := styleItem
			switch {
			case e.Shadow:
				text = "  ┄ " + e.Label
				st = faintIfDark(styleShadow)
			case active && sess.Mode == drag.Keyboard && sess.SubjectKind == model.KindItem && e.Key == sess.SubjectID.String():
				st = styleGrabbed
			case m.focus == focusItems && m.cur == here:
				st = styleSelected
			}
			out = append(out, cell(text, w, st))
		case lineEmpty:
			st := faintIfDark(styleEmpty)
			if m.focus == focusItems && m.cur == here {
				st = styleSelected
			}
			out = append(out, cell("  (empty)", w, st))
		case lineGap:
			out = append(out, strings.Repeat(" ", w))
		}
	}
	return strings.Join(out, "\n")
}

// cell truncates s to w cells and pads it so highlights span the column.
func cell(s string, w int, st lipgloss.Style) string {
	if xansi.StringWidth(s) > w {
		s = xansi.Truncate(s, w, "…")
	}
	if pad := w - xansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return st.Render(s)
}

func (m boardModel) footer() string {
	lines := make([]string, 0, 3)
	if m.prompt != promptNone {
		lines = append(lines, m.input.View())
	}
	if m.flash != "" {
		st := styleFooter
		if m.flashErr {
			st = styleFlashError
		}
		lines = append(lines, st.Render(m.flash))
	}
	hint := "space move · K/J nudge · a add · n new list · tab lists/items · ? help · q quit"
	if peek := m.peekLine(); peek != "" {
		hint = peek + " · " + hint
	}
	if m.width > 0 && xansi.StringWidth(hint) > m.width {
		hint = xansi.Truncate(hint, m.width, "…")
	}
	lines = append(lines, styleFooter.Render(hint))
	return strings.Join(lines, "\n")
}
