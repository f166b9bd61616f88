// Package tui provides a Bubble Tea terminal UI for the taleforge engine.
package tui

// History recalls earlier commands with the up and down keys. It keeps the
// newest max entries in a circular buffer.
type History struct {
	buf   []string
	start int // index of the oldest entry
	n     int
	pos   int // entries back from the newest; 0 means fresh input
}

// NewHistory creates a history holding at most max commands.
func NewHistory(max int) *History {
	if max < 1 {
		max = 1
	}
	return &History{buf: make([]string, max)}
}

// Len returns the number of remembered commands.
func (h *History) Len() int { return h.n }

// at returns the i-th entry counting from the oldest.
func (h *History) at(i int) string {
	return h.buf[(h.start+i)%len(h.buf)]
}

// Push remembers cmd unless it repeats the newest entry, and ends any
// navigation in progress.
func (h *History) Push(cmd string) {
	h.pos = 0
	if h.n > 0 && h.at(h.n-1) == cmd {
		return
	}
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = cmd
		h.n++
		return
	}
	h.buf[h.start] = cmd
	h.start = (h.start + 1) % len(h.buf)
}

// Seed replaces the history with cmds, oldest first. A restored game
// brings back the commands that led to it.
func (h *History) Seed(cmds []string) {
	h.start, h.n, h.pos = 0, 0, 0
	for _, c := range cmds {
		h.Push(c)
	}
}

// Prev steps back to an older command. It stops at the oldest one and
// reports false only when the history is empty.
func (h *History) Prev() (string, bool) {
	if h.n == 0 {
		return "", false
	}
	if h.pos < h.n {
		h.pos++
	}
	return h.at(h.n - h.pos), true
}

// Next steps forward to a newer command. Stepping past the newest returns
// to fresh input and reports false.
func (h *History) Next() (string, bool) {
	if h.pos <= 1 {
		h.pos = 0
		return "", false
	}
	h.pos--
	return h.at(h.n - h.pos), true
}

// ResetCursor returns to fresh input.
func (h *History) ResetCursor() { h.pos = 0 }
