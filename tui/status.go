package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/taleforge/engine/behavior"
)

// scoreCounter is the story counter shown in the status bar when set.
const scoreCounter = "score"

// renderStatusBar draws the full-width status line: room and exits on the
// left; undo marker, held items, score and turn on the right. Held items
// collapse to a count when the names do not fit.
func (m Model) renderStatusBar() string {
	e := m.engine
	w := e.World
	room := e.Location()

	var dirs []string
	if exits, err := behavior.Room.Exits(w, room); err == nil {
		for d := range exits {
			dirs = append(dirs, d)
		}
		sort.Strings(dirs)
	}
	left := fmt.Sprintf(" %s | Exits: %s", behavior.Identity.Name(w, room), strings.Join(dirs, ","))

	var tail []string
	if score := w.Counter(scoreCounter); score != 0 {
		tail = append(tail, fmt.Sprintf("Score: %d", score))
	}
	tail = append(tail, fmt.Sprintf("T:%d ", e.Turn()))

	right := func(inv string) string {
		parts := tail
		if inv != "" {
			parts = append([]string{"Inv: " + inv}, tail...)
		}
		s := strings.Join(parts, " | ")
		if e.CanUndo() {
			s = "U " + s
		}
		return s
	}

	r := right("")
	if held := w.Contents(e.Player()); len(held) > 0 {
		names := make([]string, len(held))
		for i, id := range held {
			names[i] = behavior.Identity.Name(w, id)
		}
		r = right(strings.Join(names, ", "))
		if lipgloss.Width(left)+lipgloss.Width(r)+2 >= m.width {
			r = right(fmt.Sprint(len(held)))
		}
	}

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(r), 0)
	return styleStatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + r)
}
