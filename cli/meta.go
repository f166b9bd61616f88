package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/taleforge/engine"
	"github.com/nathoo/taleforge/engine/save"
	"github.com/nathoo/taleforge/types"
)

// DefaultSlot is used by /save and /load without a name.
const DefaultSlot = "quicksave"

// Line is one line of meta-command output. System lines are out-of-world
// messages; front-ends show them bracketed.
type Line struct {
	Text   string
	System bool
}

func system(format string, args ...any) Line {
	return Line{Text: fmt.Sprintf(format, args...), System: true}
}

func plain(lines ...string) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = Line{Text: l}
	}
	return out
}

// Meta runs the slash commands shared by the line interface and the TUI.
type Meta struct {
	Engine *engine.Engine
	Slots  save.SlotStore // nil disables saving
	Trace  bool

	// OnLoad runs after a slot has been restored.
	OnLoad func()
}

// Handle runs one slash command. quit is true for /quit and /exit.
func (m *Meta) Handle(ctx context.Context, input string) (out []Line, quit bool) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(input), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return []Line{system("Goodbye.")}, true
	case "/save":
		return m.save(ctx, arg), false
	case "/load":
		return m.load(ctx, arg), false
	case "/slots":
		return m.slots(ctx), false
	case "/delete":
		return m.delete(ctx, arg), false
	case "/undo":
		return m.Undo(), false
	case "/help":
		return plain(helpText...), false
	case "/state":
		return m.state(), false
	case "/trace":
		m.Trace = !m.Trace
		if m.Trace {
			return []Line{system("Trace output enabled.")}, false
		}
		return []Line{system("Trace output disabled.")}, false
	}
	return []Line{system("Unknown command: %s. Type /help for available commands.", cmd)}, false
}

func (m *Meta) save(ctx context.Context, name string) []Line {
	if name == "" {
		name = DefaultSlot
	}
	if m.Slots == nil {
		return []Line{system("Save failed: no save storage configured")}
	}
	data, err := m.Engine.Save()
	if err == nil {
		err = m.Slots.Put(ctx, name, data)
	}
	if err != nil {
		return []Line{system("Save failed: %v", err)}
	}
	return []Line{system("%s", m.Engine.Text("save.done", map[string]string{"slot": name}))}
}

func (m *Meta) load(ctx context.Context, name string) []Line {
	if name == "" {
		name = DefaultSlot
	}
	if m.Slots == nil {
		return []Line{system("Load failed: no save storage configured")}
	}
	data, err := m.Slots.Get(ctx, name)
	if err == nil {
		err = m.Engine.Load(data)
	}
	if err != nil {
		return []Line{system("Load failed: %v", err)}
	}
	if m.OnLoad != nil {
		m.OnLoad()
	}

	e := m.Engine
	out := []Line{system("%s", e.Text("load.done", map[string]string{"slot": name}))}
	return append(out, plain(e.Narrator.Room(e.World, e.Player(), e.Location())...)...)
}

func (m *Meta) slots(ctx context.Context) []Line {
	if m.Slots == nil {
		return []Line{system("No save storage configured.")}
	}
	names, err := m.Slots.List(ctx)
	if err != nil {
		return []Line{system("Listing saves failed: %v", err)}
	}
	if len(names) == 0 {
		return []Line{system("No saved games.")}
	}
	return []Line{system("Saved games: %s", strings.Join(names, ", "))}
}

func (m *Meta) delete(ctx context.Context, name string) []Line {
	if name == "" {
		return []Line{system("Usage: /delete <name>")}
	}
	if m.Slots == nil {
		return []Line{system("No save storage configured.")}
	}
	if err := m.Slots.Delete(ctx, name); err != nil {
		return []Line{system("Delete failed: %v", err)}
	}
	return []Line{system("Deleted save %q.", name)}
}

// Undo takes back the last turn.
func (m *Meta) Undo() []Line {
	err := m.Engine.Undo()
	switch {
	case errors.Is(err, engine.ErrNothingToUndo):
		return plain(m.Engine.Text("undo.empty", nil))
	case err != nil:
		return []Line{system("Undo failed: %v", err)}
	}
	return plain(m.Engine.Text("undo.done", nil))
}

func (m *Meta) state() []Line {
	e := m.Engine
	snap := e.World.Snapshot()
	out := []Line{
		system("Turn: %d", e.Turn()),
		system("Location: %s", e.Location()),
		system("Inventory: %v", e.World.Contents(e.Player())),
	}
	if len(snap.Flags) > 0 {
		out = append(out, system("Flags: %s", sortedPairs(snap.Flags)))
	}
	if len(snap.Counters) > 0 {
		out = append(out, system("Counters: %s", sortedPairs(snap.Counters)))
	}
	return out
}

// sortedPairs renders a map as "k=v" pairs in key order.
func sortedPairs[V any](m map[string]V) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%v", k, m[k])
	}
	return strings.Join(pairs, " ")
}

// TraceLines describes what a turn did: the bound command, its events and
// any error.
func TraceLines(r types.Result) []string {
	var lines []string
	if cmd := r.Command; cmd != nil {
		lines = append(lines, fmt.Sprintf("[trace] Command: %s target=%q secondary=%q", cmd.Action, cmd.Target, cmd.Secondary))
	}
	if len(r.Events) > 0 {
		lines = append(lines, fmt.Sprintf("[trace] Events: %d", len(r.Events)))
		for _, ev := range r.Events {
			lines = append(lines, fmt.Sprintf("[trace]   %s %v", ev.Type, ev.Entities))
		}
	}
	if r.Err != nil {
		lines = append(lines, fmt.Sprintf("[trace] Error: %v", r.Err))
	}
	return lines
}

var helpText = []string{
	"System:",
	"  /save [name]   Save game (default: quicksave)",
	"  /load [name]   Load game (default: quicksave)",
	"  /slots         List saved games",
	"  /delete <name> Delete a saved game",
	"  /undo          Take back the last turn (or just type undo)",
	"  /quit          Exit game",
	"  /help          Show this help",
	"  /state         Debug: dump current state",
	"  /trace         Toggle debug trace output",
	"",
	"Game commands:",
	"  look (l)                  Describe the room",
	"  examine <thing> (x)       Look closely at something",
	"  go <dir>                  Move (or just type n/s/e/w/u/d)",
	"  take/get <item>           Pick something up",
	"  take <item> from <thing>  Take something out of a container",
	"  drop <item>               Put something down",
	"  put <item> in/on <thing>  Put something in or on something",
	"  open / close <thing>      Open or close something",
	"  unlock <thing> with <key> Unlock something",
	"  inventory (i)             Check what you're carrying",
	"  wait (z)                  Let time pass",
	"  again (g)                 Repeat your last command",
}
