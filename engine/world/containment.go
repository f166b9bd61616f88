package world

import (
	"fmt"

	"github.com/nathoo/taleforge/types"
)

// Move relocates an entity (with its subtree) into newLocation. It fails
// without touching the graph if either entity is missing or if newLocation
// is the entity itself or one of its descendants. Moving to Nowhere detaches.
func (s *Store) Move(id, newLocation types.EntityID) error {
	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("move %s: %w", id, ErrNotFound)
	}
	if newLocation == types.Nowhere {
		return s.Detach(id)
	}
	dest, ok := s.entities[newLocation]
	if !ok {
		return fmt.Errorf("move %s to %s: %w", id, newLocation, ErrNotFound)
	}
	if newLocation == id || s.IsAncestor(id, newLocation) {
		return fmt.Errorf("move %s into %s: %w", id, newLocation, ErrCycle)
	}
	if e.location == newLocation {
		return nil
	}

	from := e.location
	if from != types.Nowhere {
		s.unlink(e)
	}
	dest.contents = append(dest.contents, id)
	e.location = newLocation

	s.notify(MoveNotice{Entity: id, From: from, To: newLocation})
	return nil
}

// Detach removes an entity from its location, leaving it nowhere.
func (s *Store) Detach(id types.EntityID) error {
	e, ok := s.entities[id]
	if !ok {
		return fmt.Errorf("detach %s: %w", id, ErrNotFound)
	}
	if e.location == types.Nowhere {
		return nil
	}
	from := e.location
	s.unlink(e)
	s.notify(MoveNotice{Entity: id, From: from, To: types.Nowhere})
	return nil
}

// unlink removes e from its parent's child list and clears its location.
func (s *Store) unlink(e *Entity) {
	if parent, ok := s.entities[e.location]; ok {
		for i, cid := range parent.contents {
			if cid == e.ID {
				parent.contents = append(parent.contents[:i:i], parent.contents[i+1:]...)
				break
			}
		}
	}
	e.location = types.Nowhere
}

func (s *Store) notify(n MoveNotice) {
	for _, fn := range s.observers {
		fn(n)
	}
}

// Location returns the direct location of an entity.
func (s *Store) Location(id types.EntityID) (types.EntityID, bool) {
	e, ok := s.entities[id]
	if !ok || e.location == types.Nowhere {
		return types.Nowhere, false
	}
	return e.location, true
}

// Contents returns the direct children of an entity in insertion order.
func (s *Store) Contents(id types.EntityID) []types.EntityID {
	e, ok := s.entities[id]
	if !ok || len(e.contents) == 0 {
		return nil
	}
	out := make([]types.EntityID, len(e.contents))
	copy(out, e.contents)
	return out
}

// Ancestors returns the chain of locations above an entity, nearest first.
func (s *Store) Ancestors(id types.EntityID) []types.EntityID {
	var out []types.EntityID
	e, ok := s.entities[id]
	for ok && e.location != types.Nowhere && len(out) <= len(s.entities) {
		out = append(out, e.location)
		e, ok = s.entities[e.location]
	}
	return out
}

// IsAncestor reports whether ancestor is a proper ancestor of id.
func (s *Store) IsAncestor(ancestor, id types.EntityID) bool {
	for _, a := range s.Ancestors(id) {
		if a == ancestor {
			return true
		}
	}
	return false
}

// Descendants returns every entity below id, depth first in content order.
func (s *Store) Descendants(id types.EntityID) []types.EntityID {
	var out []types.EntityID
	var walk func(types.EntityID)
	walk = func(cur types.EntityID) {
		e, ok := s.entities[cur]
		if !ok {
			return
		}
		for _, c := range e.contents {
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}
