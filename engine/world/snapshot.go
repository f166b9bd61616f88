package world

import (
	"fmt"
	"sort"

	"github.com/nathoo/taleforge/types"
)

// Snapshot is a deep copy of the store's state, taken at a turn boundary or
// before a mutating phase. Traits are cloned; the snapshot shares nothing
// with the live store.
type Snapshot struct {
	Seq      int
	Entities []EntityRecord
	Flags    map[string]bool
	Counters map[string]int
}

// EntityRecord is one entity inside a Snapshot.
type EntityRecord struct {
	ID       types.EntityID
	Name     string
	Type     types.EntityType
	Location types.EntityID
	Contents []types.EntityID
	Traits   []Trait // sorted by kind
}

// Snapshot captures the full store state.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Seq:      s.seq,
		Entities: make([]EntityRecord, 0, len(s.order)),
		Flags:    make(map[string]bool, len(s.flags)),
		Counters: make(map[string]int, len(s.counters)),
	}
	for _, id := range s.order {
		e := s.entities[id]
		rec := EntityRecord{
			ID:       e.ID,
			Name:     e.Name,
			Type:     e.Type,
			Location: e.location,
		}
		if len(e.contents) > 0 {
			rec.Contents = append([]types.EntityID(nil), e.contents...)
		}
		for _, kind := range e.TraitKinds() {
			rec.Traits = append(rec.Traits, e.traits[kind].Clone())
		}
		snap.Entities = append(snap.Entities, rec)
	}
	for k, v := range s.flags {
		snap.Flags[k] = v
	}
	for k, v := range s.counters {
		snap.Counters[k] = v
	}
	return snap
}

// Restore replaces the store's state with snap. The snapshot is checked
// first; an inconsistent snapshot is rejected and the store is left as is.
// Move observers survive a restore.
func (s *Store) Restore(snap Snapshot) error {
	next := New()
	next.seq = snap.Seq
	for _, rec := range snap.Entities {
		if err := next.CreateEntityWithID(rec.ID, rec.Name, rec.Type); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		e := next.entities[rec.ID]
		e.location = rec.Location
		if len(rec.Contents) > 0 {
			e.contents = append([]types.EntityID(nil), rec.Contents...)
		}
		for _, t := range rec.Traits {
			if t == nil {
				return fmt.Errorf("restore %s: %w", rec.ID, ErrNilTrait)
			}
			e.traits[t.Kind()] = t.Clone()
		}
	}
	for k, v := range snap.Flags {
		next.flags[k] = v
	}
	for k, v := range snap.Counters {
		next.counters[k] = v
	}
	if err := next.Check(); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	s.entities = next.entities
	s.order = next.order
	s.seq = next.seq
	s.flags = next.flags
	s.counters = next.counters
	return nil
}

// FromSnapshot builds a new store from a snapshot.
func FromSnapshot(snap Snapshot) (*Store, error) {
	s := New()
	if err := s.Restore(snap); err != nil {
		return nil, err
	}
	return s, nil
}

// FlagNames returns the names of all set flags, sorted.
func (s *Store) FlagNames() []string {
	names := make([]string, 0, len(s.flags))
	for k := range s.flags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
