package actions

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/types"
)

// testWorld: hall{player{apple}, box{coin}, statue} -oak_door- study.
func testWorld(t *testing.T) *world.Store {
	t.Helper()
	w := world.New()
	add := func(id, name string, typ types.EntityType, loc types.EntityID, ts ...world.Trait) {
		require.NoError(t, w.CreateEntityWithID(types.EntityID(id), name, typ))
		for _, tr := range ts {
			require.NoError(t, w.AttachTrait(types.EntityID(id), tr))
		}
		if loc != types.Nowhere {
			require.NoError(t, w.Move(types.EntityID(id), loc))
		}
	}
	add("hall", "Hall", types.TypeRoom, "", &traits.Room{Exits: map[string]types.EntityID{"north": "oak_door", "east": "study"}})
	add("study", "Study", types.TypeRoom, "", &traits.Room{Exits: map[string]types.EntityID{"south": "oak_door"}})
	add("oak_door", "oak door", types.TypeDoor, "hall",
		&traits.Door{Between: []types.EntityID{"hall", "study"}},
		&traits.Openable{},
		&traits.Lockable{Locked: true, Key: "iron_key"})
	add("player", "you", types.TypePerson, "hall", &traits.Actor{Player: true})
	add("apple", "apple", types.TypeThing, "player", &traits.Portable{})
	add("iron_key", "iron key", types.TypeThing, "player", &traits.Portable{})
	add("box", "box", types.TypeContainer, "hall", &traits.Container{Capacity: 2}, &traits.Openable{})
	add("coin", "coin", types.TypeThing, "box", &traits.Portable{})
	add("statue", "statue", types.TypeScenery, "hall", &traits.Scenery{}, &traits.Portable{})
	return w
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newExecutor(w *world.Store) *Executor {
	x := NewExecutor(w, Builtins(), quietLogger())
	x.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return x
}

func cmd(action string, target, secondary types.EntityID) types.ValidatedCommand {
	return types.ValidatedCommand{Action: action, Actor: "player", Target: target, Secondary: secondary}
}

func TestRun_OpenEmitsOpenedEvent(t *testing.T) {
	w := testWorld(t)
	run := newExecutor(w).Run(cmd("open", "box", ""), 1)

	require.True(t, run.OK())
	assert.Equal(t, PhaseDone, run.Phase)
	require.Len(t, run.Events, 1)
	ev := run.Events[0]
	assert.Equal(t, EventOpened, ev.Type)
	assert.Equal(t, "open", ev.Action)
	assert.Equal(t, 1, ev.Turn)
	assert.NotEmpty(t, ev.ID)
	assert.NotNil(t, ev.Payload)
	assert.Equal(t, []types.EntityID{"player", "box"}, ev.Entities)

	o, _ := world.TraitOf[*traits.Openable](w, "box")
	assert.True(t, o.Open)
}

func TestRun_BlockedLeavesWorldUnchanged(t *testing.T) {
	tests := []struct {
		name   string
		cmd    types.ValidatedCommand
		reason string
	}{
		{"open closed locked door", cmd("open", "oak_door", ""), ReasonLocked},
		{"open the apple", cmd("open", "apple", ""), ReasonNotOpenable},
		{"take from closed box", cmd("take", "coin", ""), ReasonUnreachable},
		{"take scenery", cmd("take", "statue", ""), ReasonFixed},
		{"take held", cmd("take", "apple", ""), ReasonAlreadyHeld},
		{"drop unheld", cmd("drop", "statue", ""), ReasonNotHeld},
		{"insert into closed box", cmd("insert", "apple", "box"), ReasonClosed},
		{"unlock with apple", cmd("unlock", "oak_door", "apple"), ReasonWrongKey},
		{"unlock with no key", cmd("unlock", "oak_door", ""), ReasonNeedsKey},
		{"go through locked door", types.ValidatedCommand{Action: "go", Actor: "player", Direction: "north"}, ReasonDoorClosed},
		{"go nowhere", types.ValidatedCommand{Action: "go", Actor: "player", Direction: "west"}, ReasonNoExit},
		{"examine nothing", cmd("examine", "", ""), ReasonNoObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testWorld(t)
			before := w.Snapshot()

			run := newExecutor(w).Run(tt.cmd, 3)

			require.NotNil(t, run.Blocked)
			assert.Equal(t, tt.reason, run.Blocked.Reason)
			assert.Equal(t, PhaseValidate, run.Phase)
			require.Len(t, run.Events, 1)
			assert.Equal(t, EventBlocked, run.Events[0].Type)
			assert.Equal(t, tt.reason, run.Events[0].Payload["reason"])
			assert.Equal(t, before, w.Snapshot())
		})
	}
}

func TestRun_AlreadyOpen(t *testing.T) {
	w := testWorld(t)
	x := newExecutor(w)
	require.True(t, x.Run(cmd("open", "box", ""), 1).OK())

	run := x.Run(cmd("open", "box", ""), 2)
	require.NotNil(t, run.Blocked)
	assert.Equal(t, ReasonAlreadyOpen, run.Blocked.Reason)
}

func TestRun_UnlockOpenAndWalkThroughDoor(t *testing.T) {
	w := testWorld(t)
	x := newExecutor(w)

	require.True(t, x.Run(cmd("unlock", "oak_door", "iron_key"), 1).OK())
	require.True(t, x.Run(cmd("open", "oak_door", ""), 2).OK())
	run := x.Run(types.ValidatedCommand{Action: "go", Actor: "player", Direction: "north"}, 3)

	require.True(t, run.OK(), "%+v", run.Blocked)
	loc, _ := w.Location("player")
	assert.Equal(t, types.EntityID("study"), loc)
	require.Len(t, run.Events, 1)
	assert.Equal(t, EventWent, run.Events[0].Type)
	assert.Equal(t, types.EntityID("oak_door"), run.Events[0].Payload["door"])
	assert.Equal(t, types.EntityID("hall"), run.Events[0].Payload["from"])
}

func TestRun_TakeAndInsert(t *testing.T) {
	w := testWorld(t)
	x := newExecutor(w)

	require.True(t, x.Run(cmd("open", "box", ""), 1).OK())
	run := x.Run(cmd("take", "coin", "box"), 2)
	require.True(t, run.OK())
	assert.Equal(t, types.EntityID("box"), run.Events[0].Payload["from"])

	require.True(t, x.Run(cmd("insert", "apple", "box"), 3).OK())
	loc, _ := w.Location("apple")
	assert.Equal(t, types.EntityID("box"), loc)

	run = x.Run(cmd("insert", "box", "box"), 4)
	require.NotNil(t, run.Blocked)
	assert.Equal(t, ReasonNotHeld, run.Blocked.Reason)
}

func TestRun_UnknownActionNotUnderstood(t *testing.T) {
	w := testWorld(t)
	run := newExecutor(w).Run(cmd("xyzzy", "", ""), 1)

	require.NotNil(t, run.Blocked)
	assert.Equal(t, ReasonNotUnderstood, run.Blocked.Reason)
}

func TestRun_Interceptors(t *testing.T) {
	t.Run("veto", func(t *testing.T) {
		w := testWorld(t)
		before := w.Snapshot()
		x := newExecutor(w)
		x.Use(InterceptorFunc(func(ctx *Context, a Action) Verdict {
			return Verdict{Kind: Veto, Reason: "cursed", Message: "the box hums"}
		}))

		run := x.Run(cmd("open", "box", ""), 1)
		require.NotNil(t, run.Blocked)
		assert.Equal(t, "cursed", run.Blocked.Reason)
		assert.Equal(t, PhaseIntercept, run.Phase)
		assert.Equal(t, before, w.Snapshot())
	})

	t.Run("substitute", func(t *testing.T) {
		w := testWorld(t)
		x := newExecutor(w)
		x.Use(InterceptorFunc(func(ctx *Context, a Action) Verdict {
			return Verdict{
				Kind: Substitute,
				Execute: func(ctx *Context) (Outcome, error) {
					ctx.World.SetFlag("xyzzy_said", true)
					return Outcome{}, nil
				},
				Report: func(ctx *Context, _ Outcome) []types.SemanticEvent {
					return []types.SemanticEvent{{Type: "magic"}}
				},
			}
		}))

		run := x.Run(cmd("xyzzy", "", ""), 1)
		require.True(t, run.OK())
		assert.True(t, w.Flag("xyzzy_said"))
		require.Len(t, run.Events, 1)
		assert.Equal(t, "magic", run.Events[0].Type)
		assert.Equal(t, "xyzzy", run.Events[0].Action)
	})

	t.Run("augment", func(t *testing.T) {
		w := testWorld(t)
		x := newExecutor(w)
		x.Use(InterceptorFunc(func(ctx *Context, a Action) Verdict {
			return Verdict{Kind: Augment, After: func(ctx *Context) ([]types.SemanticEvent, error) {
				ctx.World.AddCounter("opens", 1)
				return []types.SemanticEvent{{Type: "said"}}, nil
			}}
		}))

		run := x.Run(cmd("open", "box", ""), 1)
		require.True(t, run.OK())
		assert.Equal(t, 1, w.Counter("opens"))
		require.Len(t, run.Events, 2)
		assert.Equal(t, EventOpened, run.Events[0].Type)
		assert.Equal(t, "said", run.Events[1].Type)
		assert.Less(t, run.Events[0].ID, run.Events[1].ID)
	})
}

func TestRun_ExecuteFailureRestoresCheckpoint(t *testing.T) {
	w := testWorld(t)
	before := w.Snapshot()
	reg := Builtins()
	boom := errors.New("boom")
	reg.Replace(&Func{
		Name: "open",
		ExecuteFn: func(ctx *Context) (Outcome, error) {
			require.NoError(t, ctx.World.Move("apple", "hall"))
			ctx.World.SetFlag("half_done", true)
			return Outcome{}, boom
		},
	})
	x := NewExecutor(w, reg, quietLogger())

	run := x.Run(cmd("open", "box", ""), 7)

	require.NotNil(t, run.Err)
	assert.ErrorIs(t, run.Err, boom)
	assert.Equal(t, 7, run.Err.Turn)
	assert.Equal(t, PhaseExecute, run.Phase)
	assert.Empty(t, run.Events)
	assert.Equal(t, before, w.Snapshot())
}

func TestRegistry(t *testing.T) {
	reg := Builtins()
	assert.Equal(t, []string{
		"close", "drop", "examine", "go", "insert", "inventory",
		"lock", "look", "open", "put_on", "take", "unlock", "wait",
	}, reg.IDs())

	err := reg.Register(&Func{Name: "look"})
	assert.ErrorIs(t, err, ErrDuplicateAction)
}
