// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for the taleforge engine.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/taleforge/engine"
	"github.com/nathoo/taleforge/engine/save"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	Slots     save.SlotStore
	In        io.Reader
	Out       io.Writer
	Trace     bool
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat
}

// New creates a CLI wired to the given engine, saving into slots.
func New(eng *engine.Engine, slots save.SlotStore) *CLI {
	return &CLI{
		Engine: eng,
		Slots:  slots,
		In:     os.Stdin,
		Out:    os.Stdout,
	}
}

// Run starts the game loop. It shows the intro and the starting room,
// then loops: prompt → input → dispatch → output. It returns when input
// runs out, the player quits or ctx is done.
func (c *CLI) Run(ctx context.Context) {
	for _, line := range c.Engine.Intro() {
		c.printLine(line)
	}
	meta := &Meta{Engine: c.Engine, Slots: c.Slots, Trace: c.Trace}

	scanner := bufio.NewScanner(c.In)
	for ctx.Err() == nil {
		fmt.Fprint(c.Out, "> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		// Blank lines and # comments (script files) are skipped.
		if input == "" || strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			out, quit := meta.Handle(ctx, input)
			c.Trace = meta.Trace
			c.printLines(out)
			if quit {
				return
			}
			continue
		}

		lower := strings.ToLower(input)
		if lower == "undo" {
			c.printLines(meta.Undo())
			continue
		}

		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		result := c.Engine.Step(input)
		for _, line := range result.Output {
			c.printLine(line)
		}
		if c.Trace {
			for _, line := range TraceLines(result) {
				c.printSystem(line)
			}
		}
	}
}

func (c *CLI) printLines(lines []Line) {
	for _, l := range lines {
		if l.System {
			c.printSystem(l.Text)
		} else {
			c.printLine(l.Text)
		}
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
