package tui

import (
	"strings"
	"sync"

	"planner-cli/internal/docs"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	helpMu    sync.Mutex
	helpCache = map[int]string{}
)

// renderHelp renders the key table. WithAutoStyle is avoided: it queries the
// terminal and can block.
func renderHelp(width int) string {
	if width < 40 {
		width = 40
	}
	helpMu.Lock()
	defer helpMu.Unlock()
	if out, ok := helpCache[width]; ok {
		return out
	}
	md, _ := docs.Get("keys")
	style := "dark"
	if !lipgloss.HasDarkBackground() {
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return strings.TrimSpace(md)
	}
	out, err := r.Render(md)
	if err != nil {
		return strings.TrimSpace(md)
	}
	out = strings.TrimRight(out, "\n")
	helpCache[width] = out
	return out
}
