package engine

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nathoo/taleforge/engine/actions"
	"github.com/nathoo/taleforge/engine/story"
	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/types"
)

// testDefs builds a small test game: a hall with a closed box holding the
// iron key, two lamps and a statue; a locked oak door leads north to the
// study.
func testDefs() *story.Defs {
	say := func(text string) types.Effect {
		return types.Effect{Type: "say", Params: map[string]any{"text": text}}
	}
	return &story.Defs{
		Game: types.GameDef{
			Title:   "Test Game",
			Version: "1.0",
			Start:   "hall",
			Intro:   "Welcome to the test.",
		},
		Entities: []types.EntityDef{
			{
				ID: "hall", Name: "Hall", Type: types.TypeRoom,
				Traits: map[string]map[string]any{
					"identity": {"name": "Hall", "description": "A grand hall with stone walls."},
					"room":     {"exits": map[string]any{"north": "oak_door"}},
				},
			},
			{
				ID: "study", Name: "Study", Type: types.TypeRoom,
				Traits: map[string]map[string]any{
					"room": {"exits": map[string]any{"south": "oak_door"}},
				},
			},
			{
				ID: "oak_door", Name: "oak door", Type: types.TypeDoor, Location: "hall",
				Traits: map[string]map[string]any{
					"door":     {"between": []any{"hall", "study"}},
					"openable": {"open": false},
					"lockable": {"locked": true, "key": "iron_key"},
				},
			},
			{
				ID: "box", Name: "box", Type: types.TypeContainer, Location: "hall",
				Traits: map[string]map[string]any{
					"openable": {"open": false},
				},
			},
			{ID: "iron_key", Name: "iron key", Location: "box"},
			{ID: "brass_lamp", Name: "brass lamp", Location: "hall"},
			{ID: "tin_lamp", Name: "tin lamp", Location: "hall"},
			{
				ID: "statue", Name: "statue", Type: types.TypeScenery, Location: "hall",
				Rules: []types.RuleDef{{
					ID:   "push_statue",
					Mode: types.ModeInstead,
					When: types.MatchCriteria{Action: "push", Object: "statue"},
					Effects: []types.Effect{
						say("The statue grinds aside."),
						{Type: "set_flag", Params: map[string]any{"flag": "statue_moved", "value": true}},
						{Type: "add_verb", Params: map[string]any{"action": "pull", "forms": []any{"pull", "yank"}, "syntax": "VERB OBJ"}},
					},
				}},
			},
		},
		GlobalRules: []types.RuleDef{
			{
				ID:      "pull_anything",
				When:    types.MatchCriteria{Action: "pull"},
				Effects: []types.Effect{say("Nothing happens.")},
			},
			{
				ID:   "xyzzy",
				When: types.MatchCriteria{Action: "xyzzy"},
				Effects: []types.Effect{
					say("You win!"),
					{Type: "set_flag", Params: map[string]any{"flag": FlagGameOver, "value": true}},
				},
			},
		},
		Verbs: []types.VerbDef{
			{Action: "push", Forms: []string{"push", "shove"}, Syntax: []string{"VERB OBJ"}},
			{Action: "xyzzy", Forms: []string{"xyzzy"}, Syntax: []string{"VERB"}},
		},
	}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	clock := WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })
	e, err := New(testDefs(), append([]Option{clock}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func outputContains(r types.Result, substr string) bool {
	for _, line := range r.Output {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func location(e *Engine, id types.EntityID) types.EntityID {
	loc, _ := e.World.Location(id)
	return loc
}

func TestStep_OpenBox(t *testing.T) {
	e := newTestEngine(t)
	r := e.Step("open the box")

	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}
	if r.Command == nil || r.Command.Action != "open" || r.Command.Target != "box" || r.Command.Actor != e.Player() {
		t.Fatalf("expected open box by the player, got %+v", r.Command)
	}
	if len(r.Events) != 1 || r.Events[0].Type != actions.EventOpened {
		t.Fatalf("expected one opened event, got %v", r.Events)
	}
	if got := r.Events[0].Entities; len(got) != 2 || got[0] != e.Player() || got[1] != "box" {
		t.Errorf("expected entities [player box], got %v", got)
	}
	if o, _ := world.TraitOf[*traits.Openable](e.World, "box"); !o.Open {
		t.Error("expected box to be open")
	}
	if !outputContains(r, "Opening the box reveals an iron key.") {
		t.Errorf("expected reveal text, got %v", r.Output)
	}
}

func TestStep_AlreadyOpen(t *testing.T) {
	e := newTestEngine(t)
	e.Step("open box")
	before := e.World.Snapshot()

	r := e.Step("open box")
	if len(r.Events) != 1 || r.Events[0].Type != actions.EventBlocked {
		t.Fatalf("expected one blocked event, got %v", r.Events)
	}
	if reason := r.Events[0].Payload["reason"]; reason != actions.ReasonAlreadyOpen {
		t.Errorf("expected reason %q, got %v", actions.ReasonAlreadyOpen, reason)
	}
	if !outputContains(r, "The box is already open.") {
		t.Errorf("expected already-open text, got %v", r.Output)
	}
	if !reflect.DeepEqual(before, e.World.Snapshot()) {
		t.Error("blocked action changed the world")
	}
}

func TestStep_AmbiguousLamp(t *testing.T) {
	e := newTestEngine(t)
	r := e.Step("take lamp")

	if r.Command != nil {
		t.Errorf("expected no validated command, got %+v", r.Command)
	}
	if !outputContains(r, "Which do you mean") || !outputContains(r, "brass lamp") || !outputContains(r, "tin lamp") {
		t.Errorf("expected disambiguation question, got %v", r.Output)
	}
	if location(e, "brass_lamp") != "hall" || location(e, "tin_lamp") != "hall" {
		t.Error("lamps should not move")
	}

	r = e.Step("take brass lamp")
	if location(e, "brass_lamp") != e.Player() {
		t.Errorf("expected brass lamp held, output %v", r.Output)
	}
}

func TestStep_KeyScope(t *testing.T) {
	e := newTestEngine(t)

	r := e.Step("unlock door with key")
	if r.Command != nil {
		t.Fatalf("key inside the closed box should be out of scope, got %+v", r.Command)
	}
	if !outputContains(r, "You can't see any such thing.") {
		t.Errorf("expected out-of-scope text, got %v", r.Output)
	}

	for _, input := range []string{"open box", "take key", "unlock door with key", "open door", "n"} {
		r = e.Step(input)
		if len(r.Events) == 0 || r.Events[0].Type == actions.EventBlocked {
			t.Fatalf("%q: expected success, got %v %v", input, r.Events, r.Output)
		}
	}
	if e.Location() != "study" {
		t.Errorf("expected player in study, got %s", e.Location())
	}
	if len(r.Output) == 0 || r.Output[0] != "Study" {
		t.Errorf("expected study description, got %v", r.Output)
	}
}

func TestStep_GoThroughClosedDoor(t *testing.T) {
	e := newTestEngine(t)
	r := e.Step("go north")
	if len(r.Events) != 1 || r.Events[0].Payload["reason"] != actions.ReasonDoorClosed {
		t.Fatalf("expected door-closed, got %v", r.Events)
	}
	if !outputContains(r, "The oak door is closed.") {
		t.Errorf("got %v", r.Output)
	}
	if e.Location() != "hall" {
		t.Error("player should stay in the hall")
	}
}

func TestStep_PronounIt(t *testing.T) {
	e := newTestEngine(t)
	e.Step("examine box")
	r := e.Step("open it")
	if r.Command == nil || r.Command.Target != "box" {
		t.Fatalf("expected it to mean the box, got %+v", r.Command)
	}
}

func TestStep_PronounIgnoresRefusedCommands(t *testing.T) {
	e := newTestEngine(t)
	e.Step("examine box")

	r := e.Step("take statue")
	if len(r.Events) != 1 || r.Events[0].Payload["reason"] != actions.ReasonFixed {
		t.Fatalf("expected take statue to be refused, got %v", r.Events)
	}
	r = e.Step("open it")
	if r.Command == nil || r.Command.Target != "box" {
		t.Fatalf("expected it to still mean the box, got %+v", r.Command)
	}
}

func TestStep_ParseFailure(t *testing.T) {
	e := newTestEngine(t)
	tests := []struct {
		input string
		want  string
	}{
		{"", "I beg your pardon?"},
		{"dance wildly", "That's not a verb I recognise."},
		{"take", "What do you want to take?"},
		{"take the unicorn", `I don't know the word "unicorn".`},
		{"examine study", "You can't see any such thing."},
	}
	for _, tt := range tests {
		r := e.Step(tt.input)
		if r.Command != nil || len(r.Events) != 0 {
			t.Errorf("%q: expected no command or events", tt.input)
		}
		if !outputContains(r, tt.want) {
			t.Errorf("%q: expected %q, got %v", tt.input, tt.want, r.Output)
		}
	}
}

func TestStep_TurnCounter_NeverReused(t *testing.T) {
	e := newTestEngine(t)
	var turns []int
	for _, input := range []string{"look", "gibberish", "take brass lamp"} {
		turns = append(turns, e.Step(input).Turn)
	}
	if err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	turns = append(turns, e.Step("wait").Turn)

	for i, turn := range turns {
		if turn != i+1 {
			t.Errorf("step %d: expected turn %d, got %d", i, i+1, turn)
		}
	}
	for _, ev := range e.History.Events() {
		if ev.Turn < 1 || ev.Turn > 4 {
			t.Errorf("event %s has turn %d", ev.Type, ev.Turn)
		}
	}
}

func TestUndo(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}

	start := e.World.Snapshot()
	e.Step("take brass lamp")
	e.Step("open box")
	e.Step("open box") // blocked: not an undoable turn

	if err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	if o, _ := world.TraitOf[*traits.Openable](e.World, "box"); o.Open {
		t.Error("expected undo to close the box again")
	}
	if location(e, "brass_lamp") != e.Player() {
		t.Error("only one turn should be undone")
	}
	if err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	if location(e, "brass_lamp") != "hall" {
		t.Error("expected lamp back in the hall")
	}
	if e.CanUndo() {
		t.Error("undo ring should be empty")
	}
	if !reflect.DeepEqual(start, e.World.Snapshot()) {
		t.Error("expected the starting world")
	}
}

func TestUndo_Depth(t *testing.T) {
	e := newTestEngine(t, WithUndoDepth(1))
	e.Step("take brass lamp")
	e.Step("take tin lamp")
	if err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	if err := e.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("expected only one undoable turn, got %v", err)
	}
	if location(e, "brass_lamp") != e.Player() {
		t.Error("first take should survive")
	}
}

func TestStep_RulesAndDynamicVerbs(t *testing.T) {
	e := newTestEngine(t)

	r := e.Step("yank statue")
	if !outputContains(r, "That's not a verb I recognise.") {
		t.Fatalf("yank should be unknown before the statue moves, got %v", r.Output)
	}

	r = e.Step("push statue")
	if !outputContains(r, "The statue grinds aside.") {
		t.Errorf("expected rule text, got %v", r.Output)
	}
	if !e.World.Flag("statue_moved") {
		t.Error("expected statue_moved flag")
	}

	r = e.Step("yank statue")
	if !outputContains(r, "Nothing happens.") {
		t.Errorf("expected the learned verb to reach the pull rule, got %v", r.Output)
	}
}

// A verb added by a turn that is rolled back must not stay learned.
func TestStep_FailedTurnTeachesNoVerb(t *testing.T) {
	defs := testDefs()
	defs.GlobalRules = append(defs.GlobalRules, types.RuleDef{
		ID:   "wait_breaks",
		Mode: types.ModeInstead,
		When: types.MatchCriteria{Action: "wait"},
		Effects: []types.Effect{
			{Type: "add_verb", Params: map[string]any{"action": "zap", "forms": []any{"zap"}, "syntax": "VERB"}},
			{Type: "move_entity", Params: map[string]any{"entity": "box", "to": "iron_key"}},
		},
	})
	e, err := New(defs)
	if err != nil {
		t.Fatal(err)
	}
	before := e.World.Snapshot()

	r := e.Step("wait")
	if r.Err == nil {
		t.Fatalf("expected the containment cycle to fail the turn, got %v", r.Output)
	}
	if !reflect.DeepEqual(before, e.World.Snapshot()) {
		t.Error("failed turn changed the world")
	}
	if e.Vocab.IsVerb("zap") {
		t.Error("zap was registered by a failed turn")
	}
	if r := e.Step("zap"); !outputContains(r, "That's not a verb I recognise.") {
		t.Errorf("expected zap to be unknown, got %v", r.Output)
	}

	data, err := e.Save()
	if err != nil {
		t.Fatal(err)
	}
	fresh, err := New(testDefs())
	if err != nil {
		t.Fatal(err)
	}
	if err := fresh.Load(data); err != nil {
		t.Fatal(err)
	}
	if fresh.Vocab.IsVerb("zap") {
		t.Error("zap carried into a save")
	}
}

func TestStep_GameOver(t *testing.T) {
	e := newTestEngine(t)
	r := e.Step("xyzzy")
	if !outputContains(r, "You win!") {
		t.Fatalf("got %v", r.Output)
	}
	r = e.Step("look")
	if !outputContains(r, "The game is over.") {
		t.Errorf("expected game over text, got %v", r.Output)
	}
	if err := e.Undo(); err != nil {
		t.Fatal(err)
	}
	r = e.Step("look")
	if outputContains(r, "The game is over.") {
		t.Error("undo should lift game over")
	}
}

func TestSaveLoad(t *testing.T) {
	e := newTestEngine(t)
	e.Step("take brass lamp")
	e.Step("push statue")
	data, err := e.Save()
	if err != nil {
		t.Fatal(err)
	}

	e.Step("drop brass lamp")
	if location(e, "brass_lamp") != "hall" {
		t.Fatal("expected lamp dropped")
	}
	turn := e.Turn()
	if err := e.Load(data); err != nil {
		t.Fatal(err)
	}
	if location(e, "brass_lamp") != e.Player() {
		t.Error("expected lamp held after load")
	}
	if e.Turn() != turn {
		t.Errorf("turn moved backwards: %d -> %d", turn, e.Turn())
	}
	if e.CanUndo() {
		t.Error("load should clear the undo ring")
	}

	fresh := newTestEngine(t)
	if err := fresh.Load(data); err != nil {
		t.Fatal(err)
	}
	if fresh.Turn() != 2 {
		t.Errorf("expected saved turn 2, got %d", fresh.Turn())
	}
	if !fresh.World.Flag("statue_moved") {
		t.Error("expected flags restored")
	}
	if r := fresh.Step("yank statue"); !outputContains(r, "Nothing happens.") {
		t.Errorf("expected learned verb restored, got %v", r.Output)
	}
	if got := fresh.CommandLog(); len(got) != 2 || got[0] != "take brass lamp" {
		t.Errorf("expected command log restored, got %v", got)
	}
}

func TestLoad_WrongGame(t *testing.T) {
	e := newTestEngine(t)
	data, err := e.Save()
	if err != nil {
		t.Fatal(err)
	}
	defs := testDefs()
	defs.Game.Title = "Other Game"
	other, err := New(defs)
	if err != nil {
		t.Fatal(err)
	}
	if err := other.Load(data); err == nil {
		t.Error("expected an error loading another game's save")
	}
}

func TestSubscriber(t *testing.T) {
	var got []types.SemanticEvent
	e := newTestEngine(t, WithSubscriber("test", func(turn int, evs []types.SemanticEvent) error {
		got = append(got, evs...)
		return nil
	}))
	e.Step("open box")
	e.Step("take nothing")
	e.Step("wait")

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %v", got)
	}
	if got[0].Type != actions.EventOpened || got[0].Turn != 1 {
		t.Errorf("unexpected first event %+v", got[0])
	}
	if got[1].Type != actions.EventWaited || got[1].Turn != 3 {
		t.Errorf("unexpected second event %+v", got[1])
	}
	if !got[0].Timestamp.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("expected clock timestamp, got %v", got[0].Timestamp)
	}
}

func TestStrictMode(t *testing.T) {
	e := newTestEngine(t, WithStrict(true))
	for _, input := range []string{"open box", "take key", "put key in box", "take lamp", "take tin lamp"} {
		if r := e.Step(input); r.Err != nil {
			t.Fatalf("%q: %v", input, r.Err)
		}
	}
}

func TestIntro(t *testing.T) {
	e := newTestEngine(t)
	out := e.Intro()
	if len(out) < 3 || out[0] != "Welcome to the test." || out[1] != "Hall" || out[2] != "A grand hall with stone walls." {
		t.Errorf("unexpected intro %v", out)
	}
}
