package world

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/taleforge/types"
)

type noteTrait struct {
	Text string
}

func (*noteTrait) Kind() string { return "note" }

func (n *noteTrait) Clone() Trait {
	c := *n
	return &c
}

// testWorld builds: hall{ box{ coin }, table }, player in hall.
func testWorld(t *testing.T) *Store {
	t.Helper()
	s := New()
	for _, e := range []struct {
		id  types.EntityID
		typ types.EntityType
	}{
		{"hall", types.TypeRoom},
		{"box", types.TypeContainer},
		{"coin", types.TypeThing},
		{"table", types.TypeSupporter},
		{"player", types.TypePerson},
	} {
		require.NoError(t, s.CreateEntityWithID(e.id, string(e.id), e.typ))
	}
	require.NoError(t, s.Move("box", "hall"))
	require.NoError(t, s.Move("coin", "box"))
	require.NoError(t, s.Move("table", "hall"))
	require.NoError(t, s.Move("player", "hall"))
	return s
}

func TestCreateEntity_GeneratesUniqueIDs(t *testing.T) {
	s := New()
	a := s.CreateEntity("pebble", types.TypeThing)
	b := s.CreateEntity("pebble", types.TypeThing)

	assert.NotEqual(t, a, b)
	assert.True(t, s.Exists(a))
	assert.True(t, s.Exists(b))
	_, located := s.Location(a)
	assert.False(t, located, "new entities start nowhere")
}

func TestCreateEntityWithID_RejectsDuplicates(t *testing.T) {
	s := New()
	require.NoError(t, s.CreateEntityWithID("lamp", "lamp", types.TypeThing))
	err := s.CreateEntityWithID("lamp", "other lamp", types.TypeThing)
	assert.ErrorIs(t, err, ErrExists)
}

func TestAttachTrait_OnePerKind(t *testing.T) {
	s := testWorld(t)
	require.NoError(t, s.AttachTrait("coin", &noteTrait{Text: "first"}))
	require.NoError(t, s.AttachTrait("coin", &noteTrait{Text: "second"}))

	note, ok := TraitOf[*noteTrait](s, "coin")
	require.True(t, ok)
	assert.Equal(t, "second", note.Text)

	e, _ := s.Entity("coin")
	assert.Equal(t, []string{"note"}, e.TraitKinds())
}

func TestAttachTrait_MissingEntity(t *testing.T) {
	s := New()
	err := s.AttachTrait("ghost", &noteTrait{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.AttachTrait("ghost", nil), ErrNilTrait)
}

func TestMove_UpdatesBothParents(t *testing.T) {
	s := testWorld(t)
	require.NoError(t, s.Move("coin", "table"))

	loc, ok := s.Location("coin")
	require.True(t, ok)
	assert.Equal(t, types.EntityID("table"), loc)
	assert.Empty(t, s.Contents("box"))
	assert.Equal(t, []types.EntityID{"coin"}, s.Contents("table"))
	assert.NoError(t, s.Check())
}

func TestMove_KeepsSubtree(t *testing.T) {
	s := testWorld(t)
	require.NoError(t, s.Move("box", "player"))

	assert.Equal(t, []types.EntityID{"coin"}, s.Contents("box"))
	assert.Equal(t, []types.EntityID{"player", "box", "hall"}, s.Ancestors("coin"))
}

func TestMove_RejectsCycles(t *testing.T) {
	s := testWorld(t)
	before := s.Snapshot()

	assert.ErrorIs(t, s.Move("box", "box"), ErrCycle)
	assert.ErrorIs(t, s.Move("box", "coin"), ErrCycle)
	assert.ErrorIs(t, s.Move("hall", "coin"), ErrCycle)

	assert.Equal(t, before, s.Snapshot(), "failed moves must not change the graph")
}

func TestMove_MissingDestinationLeavesStateUntouched(t *testing.T) {
	s := testWorld(t)
	before := s.Snapshot()

	err := s.Move("coin", "nowhere-room")
	assert.ErrorIs(t, err, ErrNotFound)

	loc, _ := s.Location("coin")
	assert.Equal(t, types.EntityID("box"), loc)
	assert.Equal(t, []types.EntityID{"coin"}, s.Contents("box"))
	assert.Equal(t, before, s.Snapshot())
}

func TestMove_NotifiesObserversOnSuccessOnly(t *testing.T) {
	s := testWorld(t)
	var seen []MoveNotice
	s.OnMove(func(n MoveNotice) { seen = append(seen, n) })

	require.NoError(t, s.Move("coin", "player"))
	_ = s.Move("box", "coin")
	require.NoError(t, s.Move("coin", "player")) // no-op

	require.Len(t, seen, 1)
	assert.Equal(t, MoveNotice{Entity: "coin", From: "box", To: "player"}, seen[0])
}

func TestDetach(t *testing.T) {
	s := testWorld(t)
	require.NoError(t, s.Detach("coin"))

	_, ok := s.Location("coin")
	assert.False(t, ok)
	assert.Empty(t, s.Contents("box"))
	assert.NoError(t, s.Check())
}

func TestContents_PreservesOrder(t *testing.T) {
	s := testWorld(t)
	assert.Equal(t, []types.EntityID{"box", "table", "player"}, s.Contents("hall"))

	require.NoError(t, s.Move("box", "table"))
	require.NoError(t, s.Move("box", "hall"))
	assert.Equal(t, []types.EntityID{"table", "player", "box"}, s.Contents("hall"))
}

func TestDescendants(t *testing.T) {
	s := testWorld(t)
	assert.Equal(t, []types.EntityID{"box", "coin", "table", "player"}, s.Descendants("hall"))
}

func TestRemove(t *testing.T) {
	s := testWorld(t)

	assert.ErrorIs(t, s.Remove("box"), ErrHasContents)
	require.NoError(t, s.Remove("coin"))
	assert.False(t, s.Exists("coin"))
	assert.Empty(t, s.Contents("box"))
	assert.NoError(t, s.Check())
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	s := testWorld(t)
	require.NoError(t, s.AttachTrait("coin", &noteTrait{Text: "shiny"}))
	s.SetFlag("lit", true)
	s.SetCounter("score", 5)
	snap := s.Snapshot()

	require.NoError(t, s.Move("coin", "player"))
	note, _ := TraitOf[*noteTrait](s, "coin")
	note.Text = "dull"
	s.SetFlag("lit", false)
	s.AddCounter("score", 10)

	require.NoError(t, s.Restore(snap))
	loc, _ := s.Location("coin")
	assert.Equal(t, types.EntityID("box"), loc)
	restored, _ := TraitOf[*noteTrait](s, "coin")
	assert.Equal(t, "shiny", restored.Text)
	assert.True(t, s.Flag("lit"))
	assert.Equal(t, 5, s.Counter("score"))
}

func TestRestore_RejectsInconsistentSnapshot(t *testing.T) {
	s := testWorld(t)
	snap := s.Snapshot()
	for i := range snap.Entities {
		if snap.Entities[i].ID == "coin" {
			snap.Entities[i].Location = "table" // table does not list coin
		}
	}
	before := s.Snapshot()

	err := s.Restore(snap)
	var ie *InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, before, s.Snapshot())
}

// Random move sequences never produce a cycle, and every failed move leaves
// the graph exactly as it was.
func TestMove_RandomSequencesKeepInvariants(t *testing.T) {
	s := New()
	var ids []types.EntityID
	for i := 0; i < 12; i++ {
		ids = append(ids, s.CreateEntity("node", types.TypeThing))
	}
	rng := rand.New(rand.NewSource(42))

	for step := 0; step < 2000; step++ {
		id := ids[rng.Intn(len(ids))]
		dest := ids[rng.Intn(len(ids))]
		before := s.Snapshot()

		if err := s.Move(id, dest); err != nil {
			require.Equal(t, before, s.Snapshot(), "step %d: failed move mutated state", step)
			continue
		}
		for _, a := range s.Ancestors(id) {
			require.NotEqual(t, id, a, "step %d: %s is its own ancestor", step, id)
		}
	}
	require.NoError(t, s.Check())
}

func TestFlagsAndCounters(t *testing.T) {
	s := New()
	assert.False(t, s.Flag("unset"))
	assert.Equal(t, 0, s.Counter("unset"))

	s.SetFlag("door_seen", true)
	assert.Equal(t, 3, s.AddCounter("score", 3))
	assert.Equal(t, []string{"door_seen"}, s.FlagNames())
}
