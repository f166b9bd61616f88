package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/nathoo/taleforge/engine"
	"github.com/nathoo/taleforge/engine/save"
	"github.com/nathoo/taleforge/engine/story"
	"github.com/nathoo/taleforge/types"
)

// testDefs returns minimal game definitions for CLI testing.
func testDefs() *story.Defs {
	return &story.Defs{
		Game: types.GameDef{
			Title:   "Test Game",
			Author:  "Test",
			Version: "1.0",
			Start:   "hall",
			Intro:   "Welcome to the test.",
		},
		Entities: []types.EntityDef{
			{
				ID: "hall", Name: "Hall", Type: types.TypeRoom,
				Traits: map[string]map[string]any{
					"identity": {"name": "Hall", "description": "A grand hall."},
					"room":     {"exits": map[string]any{"north": "garden"}},
				},
			},
			{
				ID: "garden", Name: "Garden", Type: types.TypeRoom,
				Traits: map[string]map[string]any{
					"identity": {"name": "Garden", "description": "A peaceful garden."},
					"room":     {"exits": map[string]any{"south": "hall"}},
				},
			},
			{
				ID: "key", Name: "rusty key", Type: types.TypeThing, Location: "hall",
				Traits: map[string]map[string]any{
					"identity": {"name": "rusty key", "description": "An old key."},
				},
			},
		},
	}
}

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.New(testDefs())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return eng
}

func newTestCLI(t *testing.T, input string) (*CLI, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	c := &CLI{
		Engine: newEngine(t),
		Slots:  save.FileSlots{Dir: t.TempDir()},
		In:     strings.NewReader(input),
		Out:    &out,
	}
	return c, &out
}

func run(c *CLI) { c.Run(context.Background()) }

func TestCLI_IntroAndStartingRoom(t *testing.T) {
	c, out := newTestCLI(t, "/quit\n")
	run(c)

	output := out.String()
	if !strings.Contains(output, "Welcome to the test.") {
		t.Error("expected intro text in output")
	}
	if !strings.Contains(output, "A grand hall.") {
		t.Error("expected starting room description in output")
	}
	if c.Engine.Turn() != 0 {
		t.Errorf("the intro should not use a turn, got turn %d", c.Engine.Turn())
	}
}

func TestCLI_BasicGameplay(t *testing.T) {
	c, out := newTestCLI(t, "take key\ni\n/quit\n")
	run(c)

	output := out.String()
	if !strings.Contains(output, "Taken.") {
		t.Errorf("expected take confirmation, got:\n%s", output)
	}
	if !strings.Contains(output, "You are carrying a rusty key.") {
		t.Errorf("expected inventory listing, got:\n%s", output)
	}
}

func TestCLI_Navigation(t *testing.T) {
	c, out := newTestCLI(t, "go north\n/quit\n")
	run(c)

	if !strings.Contains(out.String(), "A peaceful garden.") {
		t.Error("expected garden description after going north")
	}
}

func TestCLI_HelpCommand(t *testing.T) {
	c, out := newTestCLI(t, "/help\n/quit\n")
	run(c)

	output := out.String()
	for _, want := range []string{"/save", "/load", "/undo", "/quit"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in help output", want)
		}
	}
}

func TestCLI_SaveAndLoad(t *testing.T) {
	slots := save.FileSlots{Dir: t.TempDir()}

	// Play a bit and save.
	var out bytes.Buffer
	c := &CLI{
		Engine: newEngine(t),
		Slots:  slots,
		In:     strings.NewReader("go north\n/save test\n/quit\n"),
		Out:    &out,
	}
	run(c)
	if !strings.Contains(out.String(), `Game saved to slot "test".`) {
		t.Errorf("expected save confirmation, got:\n%s", out.String())
	}

	// Start fresh and load.
	var out2 bytes.Buffer
	c2 := &CLI{
		Engine: newEngine(t),
		Slots:  slots,
		In:     strings.NewReader("/load test\n/slots\n/quit\n"),
		Out:    &out2,
	}
	run(c2)

	loadOutput := out2.String()
	if !strings.Contains(loadOutput, `Game restored from slot "test".`) {
		t.Error("expected load confirmation")
	}
	// After loading, player should be in garden (from the saved state).
	if got := c2.Engine.Location(); got != "garden" {
		t.Errorf("location after load = %q, want garden", got)
	}
	if strings.Count(loadOutput, "A peaceful garden.") != 1 {
		t.Error("expected garden description after loading save")
	}
	if !strings.Contains(loadOutput, "Saved games: test") {
		t.Error("expected slot listing")
	}
}

func TestCLI_LoadNonexistent(t *testing.T) {
	c, out := newTestCLI(t, "/load nonexistent\n/quit\n")
	run(c)

	if !strings.Contains(out.String(), "Load failed") {
		t.Error("expected load failure message")
	}
}

func TestCLI_NoSlots(t *testing.T) {
	c, out := newTestCLI(t, "/save\n/slots\n/quit\n")
	c.Slots = nil
	run(c)

	output := out.String()
	if !strings.Contains(output, "Save failed: no save storage configured") {
		t.Error("expected save failure without storage")
	}
	if !strings.Contains(output, "No save storage configured.") {
		t.Error("expected slots message without storage")
	}
}

func TestCLI_Undo(t *testing.T) {
	c, out := newTestCLI(t, "undo\ntake key\nundo\n/state\n/quit\n")
	run(c)

	output := out.String()
	if !strings.Contains(output, "There is nothing to undo.") {
		t.Error("expected nothing to undo before any turn")
	}
	if !strings.Contains(output, "Previous turn undone.") {
		t.Error("expected undo confirmation")
	}
	if !strings.Contains(output, "Inventory: []") {
		t.Errorf("expected empty inventory after undo, got:\n%s", output)
	}
}

func TestCLI_UnknownMetaCommand(t *testing.T) {
	c, out := newTestCLI(t, "/bogus\n/quit\n")
	run(c)

	if !strings.Contains(out.String(), "Unknown command") {
		t.Error("expected unknown command message")
	}
}

func TestCLI_TraceToggle(t *testing.T) {
	c, out := newTestCLI(t, "/trace\nlook\n/trace\n/quit\n")
	run(c)

	output := out.String()
	if !strings.Contains(output, "Trace output enabled") {
		t.Error("expected trace enabled message")
	}
	if !strings.Contains(output, "[trace] Command: look") {
		t.Error("expected the traced command")
	}
	if !strings.Contains(output, "Trace output disabled") {
		t.Error("expected trace disabled message")
	}
}

func TestCLI_StateCommand(t *testing.T) {
	c, out := newTestCLI(t, "/state\n/quit\n")
	run(c)

	output := out.String()
	if !strings.Contains(output, "Location: hall") {
		t.Error("expected location in state output")
	}
	if !strings.Contains(output, "Turn:") {
		t.Error("expected turn count in state output")
	}
}

func TestCLI_EmptyInputAndComments(t *testing.T) {
	c, out := newTestCLI(t, "\n\n# a comment\n/quit\n")
	run(c)

	if strings.Contains(out.String(), "I beg your pardon?") {
		t.Error("empty lines and comments should be silently skipped by CLI")
	}
	if c.Engine.Turn() != 0 {
		t.Errorf("expected no turns, got %d", c.Engine.Turn())
	}
}

func TestCLI_EchoInput(t *testing.T) {
	c, out := newTestCLI(t, "wait\n")
	c.EchoInput = true
	run(c)

	if !strings.Contains(out.String(), "> wait\nTime passes.") {
		t.Errorf("expected echoed input, got:\n%s", out.String())
	}
}

func TestCLI_Again_RepeatsLastCommand(t *testing.T) {
	for _, again := range []string{"again", "g"} {
		t.Run(again, func(t *testing.T) {
			c, out := newTestCLI(t, "look\n"+again+"\n/quit\n")
			run(c)

			// Intro, look and the repeat each describe the hall.
			if count := strings.Count(out.String(), "A grand hall."); count != 3 {
				t.Errorf("expected 'A grand hall.' 3 times, got %d", count)
			}
		})
	}
}

func TestCLI_Again_NothingToRepeat(t *testing.T) {
	c, out := newTestCLI(t, "again\n/quit\n")
	run(c)

	if !strings.Contains(out.String(), "Nothing to repeat") {
		t.Error("expected 'Nothing to repeat' when no prior command")
	}
}

func TestCLI_CanceledContext(t *testing.T) {
	c, out := newTestCLI(t, "look\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Run(ctx)

	if strings.Contains(out.String(), ">") {
		t.Error("a canceled run should not prompt")
	}
}
