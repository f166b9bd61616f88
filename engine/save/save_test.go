package save

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/types"
)

func testWorld(t *testing.T) *world.Store {
	t.Helper()
	w := world.New()
	add := func(id types.EntityID, typ types.EntityType, loc types.EntityID, ts ...world.Trait) {
		require.NoError(t, w.CreateEntityWithID(id, string(id), typ))
		for _, tr := range ts {
			require.NoError(t, w.AttachTrait(id, tr))
		}
		if loc != types.Nowhere {
			require.NoError(t, w.Move(id, loc))
		}
	}
	add("hall", types.TypeRoom, "", &traits.Room{Exits: map[string]types.EntityID{"north": "study"}})
	add("study", types.TypeRoom, "", &traits.Room{Dark: true})
	add("player", types.TypePerson, "hall", &traits.Actor{Player: true})
	add("box", types.TypeContainer, "hall",
		&traits.Identity{Name: "wooden box", Adjectives: []string{"wooden"}},
		&traits.Container{Capacity: 3},
		&traits.Openable{Open: true},
		&traits.Lockable{Key: "key"},
	)
	add("coin", types.TypeThing, "box", &traits.Portable{})
	add("key", types.TypeThing, "player", &traits.Portable{Weight: 1})
	w.SetFlag("met_guard", true)
	w.SetCounter("score", 5)
	return w
}

func TestRoundTrip(t *testing.T) {
	w := testWorld(t)
	data, err := Save(w.Snapshot(), Meta{
		Game:       types.GameDef{Title: "Test Game", Version: "1.0"},
		Turn:       7,
		Player:     "player",
		Verbs:      []types.VerbDef{{Action: "xyzzy", Forms: []string{"xyzzy"}, Syntax: []string{"VERB"}}},
		CommandLog: []string{"open box", "take coin"},
	})
	require.NoError(t, err)

	sd, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, "Test Game", sd.Game)
	assert.Equal(t, "1.0", sd.Version)
	assert.Equal(t, 7, sd.Turn)
	assert.Equal(t, types.EntityID("player"), sd.Player)
	assert.Equal(t, []string{"open box", "take coin"}, sd.CommandLog)
	require.Len(t, sd.Verbs, 1)

	snap, err := sd.Snapshot(traits.Builtins())
	require.NoError(t, err)
	restored, err := world.FromSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, w.Snapshot(), restored.Snapshot())
}

func TestRestoreIntoLiveStore(t *testing.T) {
	w := testWorld(t)
	data, err := Save(w.Snapshot(), Meta{Turn: 1, Player: "player"})
	require.NoError(t, err)
	want := w.Snapshot()

	require.NoError(t, w.Move("coin", "player"))
	w.SetFlag("met_guard", false)

	sd, err := Load(data)
	require.NoError(t, err)
	snap, err := sd.Snapshot(traits.Builtins())
	require.NoError(t, err)
	require.NoError(t, w.Restore(snap))
	assert.Equal(t, want, w.Snapshot())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load([]byte("not json"))
	assert.Error(t, err)

	_, err = Load([]byte(`{"format": 1}`))
	assert.ErrorContains(t, err, "unsupported save format")
}

func TestLoadNilMaps(t *testing.T) {
	sd, err := Load([]byte(`{"format": 2, "game": "g"}`))
	require.NoError(t, err)
	assert.NotNil(t, sd.Flags)
	assert.NotNil(t, sd.Counters)
	assert.NotNil(t, sd.CommandLog)
}

func TestSnapshotUnknownTrait(t *testing.T) {
	sd := &SaveData{
		Format: FormatVersion,
		Entities: []EntityData{
			{ID: "x", Name: "x", Type: types.TypeThing, Traits: map[string]map[string]any{"haunted": {}}},
		},
	}
	_, err := sd.Snapshot(traits.Builtins())
	assert.ErrorIs(t, err, traits.ErrUnknownKind)
}

func TestFileSlots(t *testing.T) {
	ctx := context.Background()
	slots := FileSlots{Dir: t.TempDir() + "/saves"}

	names, err := slots.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, slots.Put(ctx, "beta", []byte("b")))
	require.NoError(t, slots.Put(ctx, "alpha", []byte("a1")))
	require.NoError(t, slots.Put(ctx, "alpha", []byte("a2")))

	names, err = slots.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)

	data, err := slots.Get(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "a2", string(data))

	require.NoError(t, slots.Delete(ctx, "beta"))
	_, err = slots.Get(ctx, "beta")
	assert.ErrorIs(t, err, ErrNoSlot)
	assert.ErrorIs(t, slots.Delete(ctx, "beta"), ErrNoSlot)
}

func TestValidSlot(t *testing.T) {
	for _, name := range []string{"quick", "slot_1", "A-2"} {
		assert.NoError(t, ValidSlot(name), name)
	}
	for _, name := range []string{"", "../etc", "a b", "-x", "a/b"} {
		assert.Error(t, ValidSlot(name), name)
	}
	slots := FileSlots{Dir: t.TempDir()}
	assert.Error(t, slots.Put(context.Background(), "../escape", []byte("x")))
}

func TestFileSlotsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slots := FileSlots{Dir: t.TempDir()}
	assert.ErrorIs(t, slots.Put(ctx, "a", nil), context.Canceled)
	_, err := slots.Get(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}
