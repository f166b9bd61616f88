// Package world owns the entity arena: every entity, the traits attached to
// it, and the containment index that places entities inside one another.
//
// Entities live in a flat table keyed by ID. Containment is kept as a pair of
// indices (a location pointer and an ordered child list) instead of owning
// references, so relocation is an index update and cycle detection is a walk
// up the ancestor chain.
package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nathoo/taleforge/types"
)

var (
	ErrNotFound    = errors.New("entity not found")
	ErrExists      = errors.New("entity already exists")
	ErrCycle       = errors.New("move would create a containment cycle")
	ErrHasContents = errors.New("entity still has contents")
	ErrNilTrait    = errors.New("trait is nil")
)

// Trait is a pure data record describing one capability of an entity.
type Trait interface {
	Kind() string
	Clone() Trait
}

// Entity is one node of the world graph.
type Entity struct {
	ID   types.EntityID
	Name string
	Type types.EntityType

	traits   map[string]Trait
	location types.EntityID
	contents []types.EntityID
}

// Location returns the entity's direct container, or Nowhere.
func (e *Entity) Location() types.EntityID { return e.location }

// TraitKinds returns the kinds of all attached traits, sorted.
func (e *Entity) TraitKinds() []string {
	kinds := make([]string, 0, len(e.traits))
	for k := range e.traits {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// MoveNotice describes a successful relocation.
type MoveNotice struct {
	Entity types.EntityID
	From   types.EntityID
	To     types.EntityID
}

// Store is the single owner of all entities. It is not safe for concurrent
// use; the engine mutates it from one goroutine, one turn at a time.
type Store struct {
	entities  map[types.EntityID]*Entity
	order     []types.EntityID
	seq       int
	flags     map[string]bool
	counters  map[string]int
	observers []func(MoveNotice)
}

// New creates an empty store.
func New() *Store {
	return &Store{
		entities: map[types.EntityID]*Entity{},
		flags:    map[string]bool{},
		counters: map[string]int{},
	}
}

// CreateEntity creates a detached entity with a generated ID.
func (s *Store) CreateEntity(name string, typ types.EntityType) types.EntityID {
	for {
		s.seq++
		id := types.EntityID(fmt.Sprintf("%s#%d", typ, s.seq))
		if _, taken := s.entities[id]; taken {
			continue
		}
		s.insert(&Entity{ID: id, Name: name, Type: typ})
		return id
	}
}

// CreateEntityWithID creates a detached entity with a caller-chosen ID.
func (s *Store) CreateEntityWithID(id types.EntityID, name string, typ types.EntityType) error {
	if id == types.Nowhere {
		return fmt.Errorf("create entity: empty id")
	}
	if _, taken := s.entities[id]; taken {
		return fmt.Errorf("create entity %s: %w", id, ErrExists)
	}
	s.insert(&Entity{ID: id, Name: name, Type: typ})
	return nil
}

func (s *Store) insert(e *Entity) {
	e.traits = map[string]Trait{}
	s.entities[e.ID] = e
	s.order = append(s.order, e.ID)
}

// Entity returns the entity with the given ID.
func (s *Store) Entity(id types.EntityID) (*Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// Exists reports whether an entity with the given ID exists.
func (s *Store) Exists(id types.EntityID) bool {
	_, ok := s.entities[id]
	return ok
}

// All returns every entity ID in creation order.
func (s *Store) All() []types.EntityID {
	out := make([]types.EntityID, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of entities.
func (s *Store) Len() int { return len(s.entities) }

// Remove destroys an entity. Entities that still contain other entities
// cannot be removed; their contents must be relocated first.
func (s *Store) Remove(id types.EntityID) error {
	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	if len(e.contents) > 0 {
		return fmt.Errorf("remove %s: %w", id, ErrHasContents)
	}
	if e.location != types.Nowhere {
		s.unlink(e)
	}
	delete(s.entities, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// AttachTrait attaches t to the entity, replacing any trait of the same kind.
func (s *Store) AttachTrait(id types.EntityID, t Trait) error {
	if t == nil {
		return fmt.Errorf("attach trait to %s: %w", id, ErrNilTrait)
	}
	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("attach %s trait to %s: %w", t.Kind(), id, ErrNotFound)
	}
	e.traits[t.Kind()] = t
	return nil
}

// DetachTrait removes the trait of the given kind. Missing traits are ignored.
func (s *Store) DetachTrait(id types.EntityID, kind string) {
	if e, ok := s.entities[id]; ok {
		delete(e.traits, kind)
	}
}

// Trait returns the trait of the given kind attached to the entity.
func (s *Store) Trait(id types.EntityID, kind string) (Trait, bool) {
	e, ok := s.entities[id]
	if !ok {
		return nil, false
	}
	t, ok := e.traits[kind]
	return t, ok
}

// HasTrait reports whether the entity carries a trait of the given kind.
func (s *Store) HasTrait(id types.EntityID, kind string) bool {
	_, ok := s.Trait(id, kind)
	return ok
}

// TraitOf returns the entity's trait of type T. The kind is taken from T's
// zero value, so T must answer Kind() without dereferencing its receiver.
func TraitOf[T Trait](s *Store, id types.EntityID) (T, bool) {
	var zero T
	t, ok := s.Trait(id, zero.Kind())
	if !ok {
		return zero, false
	}
	typed, ok := t.(T)
	return typed, ok
}

// Flag returns a story flag. Unset flags are false.
func (s *Store) Flag(name string) bool { return s.flags[name] }

// SetFlag sets a story flag.
func (s *Store) SetFlag(name string, value bool) { s.flags[name] = value }

// Counter returns a story counter. Unset counters are 0.
func (s *Store) Counter(name string) int { return s.counters[name] }

// SetCounter sets a story counter.
func (s *Store) SetCounter(name string, value int) { s.counters[name] = value }

// AddCounter adds delta to a story counter and returns the new value.
func (s *Store) AddCounter(name string, delta int) int {
	s.counters[name] += delta
	return s.counters[name]
}

// OnMove registers an observer that is called after every successful move.
func (s *Store) OnMove(fn func(MoveNotice)) {
	s.observers = append(s.observers, fn)
}
