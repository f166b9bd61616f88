package world

import (
	"fmt"
	"strings"

	"github.com/nathoo/taleforge/types"
)

// InvariantError lists every containment invariant the store violates.
type InvariantError struct {
	Problems []string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("world invariants violated (%d):\n  %s",
		len(e.Problems), strings.Join(e.Problems, "\n  "))
}

// Check audits the containment graph: every location exists and lists its
// child exactly once, every listed child points back at its parent, and no
// entity is its own ancestor. It returns an *InvariantError or nil.
func (s *Store) Check() error {
	ie := &InvariantError{}

	if len(s.order) != len(s.entities) {
		ie.Problems = append(ie.Problems, fmt.Sprintf(
			"creation order has %d ids for %d entities", len(s.order), len(s.entities)))
	}

	for _, id := range s.order {
		e, ok := s.entities[id]
		if !ok {
			ie.Problems = append(ie.Problems, fmt.Sprintf("ordered id %s has no entity", id))
			continue
		}

		if e.location != types.Nowhere {
			parent, ok := s.entities[e.location]
			if !ok {
				ie.Problems = append(ie.Problems, fmt.Sprintf(
					"%s is located in missing entity %s", id, e.location))
			} else if n := countID(parent.contents, id); n != 1 {
				ie.Problems = append(ie.Problems, fmt.Sprintf(
					"%s appears %d times in the contents of its location %s", id, n, e.location))
			}
		}

		for _, cid := range e.contents {
			child, ok := s.entities[cid]
			if !ok {
				ie.Problems = append(ie.Problems, fmt.Sprintf("%s contains missing entity %s", id, cid))
				continue
			}
			if child.location != id {
				ie.Problems = append(ie.Problems, fmt.Sprintf(
					"%s lists %s but %s is located in %q", id, cid, cid, child.location))
			}
		}

		if s.hasCycle(id) {
			ie.Problems = append(ie.Problems, fmt.Sprintf("%s is its own ancestor", id))
		}
	}

	if len(ie.Problems) > 0 {
		return ie
	}
	return nil
}

func (s *Store) hasCycle(id types.EntityID) bool {
	seen := map[types.EntityID]bool{id: true}
	cur := s.entities[id]
	for cur != nil && cur.location != types.Nowhere {
		if seen[cur.location] {
			return true
		}
		seen[cur.location] = true
		cur = s.entities[cur.location]
	}
	return false
}

func countID(ids []types.EntityID, id types.EntityID) int {
	n := 0
	for _, v := range ids {
		if v == id {
			n++
		}
	}
	return n
}
