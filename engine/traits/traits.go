// Package traits defines the built-in trait records and the registry that
// builds them from story data. Traits are plain data; the operations over
// them live in package behavior.
package traits

import (
	"fmt"

	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/types"
)

// Built-in trait kinds.
const (
	KindIdentity  = "identity"
	KindContainer = "container"
	KindSupporter = "supporter"
	KindOpenable  = "openable"
	KindLockable  = "lockable"
	KindPortable  = "portable"
	KindScenery   = "scenery"
	KindRoom      = "room"
	KindDoor      = "door"
	KindActor     = "actor"
)

// Identity carries everything the resolver and narrator need to name an entity.
type Identity struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Adjectives  []string `json:"adjectives,omitempty"`
	Description string   `json:"description,omitempty"`
	Article     string   `json:"article,omitempty"`
	Proper      bool     `json:"proper,omitempty"`
}

func (*Identity) Kind() string { return KindIdentity }

func (t *Identity) Clone() world.Trait {
	c := *t
	c.Aliases = append([]string(nil), t.Aliases...)
	c.Adjectives = append([]string(nil), t.Adjectives...)
	return &c
}

func (t *Identity) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("identity: name is required")
	}
	return nil
}

// Container lets an entity hold other entities inside it. Capacity 0 means
// unlimited. A container without an openable trait is always open.
type Container struct {
	Capacity    int  `json:"capacity,omitempty"`
	Transparent bool `json:"transparent,omitempty"`
}

func (*Container) Kind() string { return KindContainer }

func (t *Container) Clone() world.Trait {
	c := *t
	return &c
}

func (t *Container) Validate() error {
	if t.Capacity < 0 {
		return fmt.Errorf("container: negative capacity %d", t.Capacity)
	}
	return nil
}

// Supporter lets things be put on top of an entity.
type Supporter struct {
	Capacity int `json:"capacity,omitempty"`
}

func (*Supporter) Kind() string { return KindSupporter }

func (t *Supporter) Clone() world.Trait {
	c := *t
	return &c
}

func (t *Supporter) Validate() error {
	if t.Capacity < 0 {
		return fmt.Errorf("supporter: negative capacity %d", t.Capacity)
	}
	return nil
}

// Openable gives an entity an open/closed state.
type Openable struct {
	Open bool `json:"open"`
}

func (*Openable) Kind() string { return KindOpenable }

func (t *Openable) Clone() world.Trait {
	c := *t
	return &c
}

func (*Openable) Validate() error { return nil }

// Lockable gives an entity a lock. Key is the entity that fits it; an empty
// Key means the lock cannot be worked by the player.
type Lockable struct {
	Locked bool           `json:"locked"`
	Key    types.EntityID `json:"key,omitempty"`
}

func (*Lockable) Kind() string { return KindLockable }

func (t *Lockable) Clone() world.Trait {
	c := *t
	return &c
}

func (*Lockable) Validate() error { return nil }

// Portable marks an entity the player can pick up.
type Portable struct {
	Weight int `json:"weight,omitempty"`
}

func (*Portable) Kind() string { return KindPortable }

func (t *Portable) Clone() world.Trait {
	c := *t
	return &c
}

func (t *Portable) Validate() error {
	if t.Weight < 0 {
		return fmt.Errorf("portable: negative weight %d", t.Weight)
	}
	return nil
}

// Scenery marks fixed background objects. Message overrides the refusal
// given when the player tries to take one.
type Scenery struct {
	Message string `json:"message,omitempty"`
}

func (*Scenery) Kind() string { return KindScenery }

func (t *Scenery) Clone() world.Trait {
	c := *t
	return &c
}

func (*Scenery) Validate() error { return nil }

// Room marks a location the player can stand in.
type Room struct {
	Exits map[string]types.EntityID `json:"exits,omitempty"` // direction -> room or door
	Dark  bool                      `json:"dark,omitempty"`
}

func (*Room) Kind() string { return KindRoom }

func (t *Room) Clone() world.Trait {
	c := *t
	if t.Exits != nil {
		c.Exits = make(map[string]types.EntityID, len(t.Exits))
		for k, v := range t.Exits {
			c.Exits[k] = v
		}
	}
	return &c
}

func (t *Room) Validate() error {
	for dir, dest := range t.Exits {
		if dest == types.Nowhere {
			return fmt.Errorf("room: exit %q has no destination", dir)
		}
	}
	return nil
}

// Door connects exactly two rooms.
type Door struct {
	Between []types.EntityID `json:"between"`
}

func (*Door) Kind() string { return KindDoor }

func (t *Door) Clone() world.Trait {
	c := *t
	c.Between = append([]types.EntityID(nil), t.Between...)
	return &c
}

func (t *Door) Validate() error {
	if len(t.Between) != 2 {
		return fmt.Errorf("door: between must name exactly two rooms, got %d", len(t.Between))
	}
	if t.Between[0] == t.Between[1] {
		return fmt.Errorf("door: both sides are %s", t.Between[0])
	}
	return nil
}

// Actor marks an entity that can issue commands.
type Actor struct {
	Player bool `json:"player,omitempty"`
}

func (*Actor) Kind() string { return KindActor }

func (t *Actor) Clone() world.Trait {
	c := *t
	return &c
}

func (*Actor) Validate() error { return nil }
