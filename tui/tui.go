package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/taleforge/cli"
	"github.com/nathoo/taleforge/engine"
	"github.com/nathoo/taleforge/engine/save"
)

// historySize is how many commands the up arrow can recall.
const historySize = 100

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text   string
	kind   lineKind
	input  bool // echoed player input
	system bool // meta-command message
}

// Model is the Bubble Tea model for the taleforge TUI.
type Model struct {
	ctx    context.Context
	engine *engine.Engine
	meta   *cli.Meta

	viewport viewport.Model
	input    textinput.Model
	history  *History

	lines []rawLine // transcript so far, unstyled

	width    int
	height   int
	ready    bool
	quitting bool
	lastCmd  string
}

// outputMsg carries the opening text into the Update loop.
type outputMsg struct {
	lines []cli.Line
}

// New creates a TUI model wired to the given engine. Saves go to slots,
// which may be nil to disable saving.
func New(ctx context.Context, eng *engine.Engine, slots save.SlotStore) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	h := NewHistory(historySize)
	h.Seed(eng.CommandLog())
	meta := &cli.Meta{Engine: eng, Slots: slots}
	meta.OnLoad = func() { h.Seed(eng.CommandLog()) }

	return Model{
		ctx:     ctx,
		engine:  eng,
		meta:    meta,
		input:   ti,
		history: h,
	}
}

// Run starts the Bubble Tea program. It stops when ctx is done.
func Run(ctx context.Context, eng *engine.Engine, slots save.SlotStore) error {
	p := tea.NewProgram(New(ctx, eng, slots), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init blinks the cursor and shows the title, intro and starting room.
func (m Model) Init() tea.Cmd {
	intro := m.introLines()
	return tea.Batch(textinput.Blink, func() tea.Msg {
		return outputMsg{lines: toLines(intro)}
	})
}

func (m Model) introLines() []string {
	g := m.engine.Defs.Game
	title := g.Title
	if g.Version != "" {
		title += " v" + g.Version
	}
	if g.Author != "" {
		title += " by " + g.Author
	}
	return append([]string{title, ""}, m.engine.Intro()...)
}

// Update handles key presses, window resizes and game output.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil
		case "down":
			next, _ := m.history.Next()
			m.input.SetValue(next)
			m.input.CursorEnd()
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case outputMsg:
		m = m.appendOutput("", msg.lines)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// resize fits the viewport above the status bar and input line.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	vpHeight := max(height-2, 1)
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.viewport.KeyMap = viewportKeyMap()
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.refreshViewport()
}

// submit runs the line in the input box: a slash command, undo, again,
// or a game command.
func (m Model) submit() (tea.Model, tea.Cmd) {
	typed := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if typed == "" {
		return m, nil
	}
	m.history.Push(typed)

	if strings.HasPrefix(typed, "/") {
		out, quit := m.meta.Handle(m.ctx, typed)
		m = m.appendOutput(typed, out)
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	input := typed
	switch lower := strings.ToLower(typed); lower {
	case "undo":
		return m.appendOutput(typed, m.meta.Undo()), nil
	case "again", "g":
		if m.lastCmd == "" {
			return m.appendOutput(typed, []cli.Line{{Text: "Nothing to repeat.", System: true}}), nil
		}
		input = m.lastCmd
	default:
		m.lastCmd = typed
	}

	result := m.engine.Step(input)
	out := toLines(result.Output)
	if m.meta.Trace {
		out = append(out, toLines(cli.TraceLines(result))...)
	}
	return m.appendOutput(typed, out), nil
}

func toLines(texts []string) []cli.Line {
	out := make([]cli.Line, len(texts))
	for i, t := range texts {
		out[i] = cli.Line{Text: t}
	}
	return out
}

// appendOutput adds one exchange to the transcript: the echoed input, if
// any, the output lines and a blank separator.
func (m Model) appendOutput(input string, lines []cli.Line) Model {
	if input != "" {
		m.lines = append(m.lines, rawLine{text: "> " + input, input: true})
	}
	for _, l := range lines {
		rl := rawLine{text: l.Text, system: l.System}
		if !l.System {
			rl.kind = classifyLine(l.Text)
		}
		m.lines = append(m.lines, rl)
	}
	m.lines = append(m.lines, rawLine{})
	m.refreshViewport()
	return m
}

// refreshViewport re-wraps and re-styles the transcript at the current
// width and scrolls to the bottom.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	width := max(m.width, 10)

	styled := make([]string, 0, len(m.lines))
	for _, rl := range m.lines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}
		wrapped := wordWrap(rl.text, width)
		switch {
		case rl.input:
			styled = append(styled, stylePlayerInput.Render(wrapped))
		case rl.system:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, rl.kind.render(wrapped))
		}
	}
	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap breaks text at spaces so no line is longer than width, unless
// a single word is.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}
	var b strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		switch {
		case i == 0:
		case lineLen+1+len(word) > width:
			b.WriteByte('\n')
			lineLen = 0
		default:
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(word)
		lineLen += len(word)
	}
	return b.String()
}

// View renders the viewport, status bar and input line.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// viewportKeyMap leaves Up and Down to the input history.
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
