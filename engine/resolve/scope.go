package resolve

import (
	"sort"

	"github.com/nathoo/taleforge/engine/behavior"
	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/types"
)

// Ceiling returns the outermost entity the actor can see out to: the
// nearest room, or a closed opaque container the actor is shut inside.
func Ceiling(w *world.Store, actor types.EntityID) types.EntityID {
	cur, ok := w.Location(actor)
	if !ok {
		return actor
	}
	for {
		if w.HasTrait(cur, traits.KindRoom) {
			return cur
		}
		if visible, err := behavior.Container.Visible(w, cur); err == nil && !visible {
			return cur
		}
		parent, ok := w.Location(cur)
		if !ok {
			return cur
		}
		cur = parent
	}
}

// Scope lists every entity the actor may refer to, in a stable order: the
// ceiling and what can be seen inside it, the actor's own possessions,
// doors named by the room's exits, and the actor itself.
func Scope(w *world.Store, actor types.EntityID) []types.EntityID {
	var (
		out  []types.EntityID
		seen = map[types.EntityID]bool{}
	)
	add := func(id types.EntityID) {
		if !seen[id] && w.Exists(id) {
			seen[id] = true
			out = append(out, id)
		}
	}
	var walk func(types.EntityID)
	walk = func(id types.EntityID) {
		for _, child := range w.Contents(id) {
			add(child)
			if opensUp(w, child) {
				walk(child)
			}
		}
	}

	ceiling := Ceiling(w, actor)
	if ceiling != actor {
		add(ceiling)
	}
	walk(ceiling)
	walk(actor)

	if exits, err := behavior.Room.Exits(w, ceiling); err == nil {
		for _, dest := range sortedExits(exits) {
			if w.HasTrait(dest, traits.KindDoor) {
				add(dest)
			}
		}
	}
	add(actor)
	return out
}

// opensUp reports whether the contents of id can be seen from outside it.
func opensUp(w *world.Store, id types.EntityID) bool {
	if visible, err := behavior.Container.Visible(w, id); err == nil {
		return visible
	}
	return w.HasTrait(id, traits.KindSupporter) || w.HasTrait(id, traits.KindActor)
}

// Reachable reports whether the actor can touch id: every container between
// id and the actor's ceiling must be open, not merely transparent.
func Reachable(w *world.Store, actor, id types.EntityID) bool {
	if id == actor {
		return true
	}
	ceiling := Ceiling(w, actor)
	if id == ceiling {
		return true
	}
	for _, a := range w.Ancestors(id) {
		if a == ceiling || a == actor {
			return true
		}
		if open, err := behavior.Container.Accessible(w, a); err == nil && !open {
			return false
		}
	}
	return false
}

// InScope reports whether id is in the actor's scope.
func InScope(w *world.Store, actor, id types.EntityID) bool {
	for _, s := range Scope(w, actor) {
		if s == id {
			return true
		}
	}
	return false
}

func sortedExits(exits map[string]types.EntityID) []types.EntityID {
	dirs := make([]string, 0, len(exits))
	for d := range exits {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	out := make([]types.EntityID, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, exits[d])
	}
	return out
}
