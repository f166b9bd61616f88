// Package behavior holds the stateless operations over traits. Every
// operation checks for the capability it needs before touching anything and
// reports *MissingCapabilityError when the entity lacks it, so code never
// branches on an entity's nominal type.
package behavior

import (
	"errors"
	"fmt"

	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/types"
)

var (
	ErrAlreadyOpen   = errors.New("already open")
	ErrAlreadyClosed = errors.New("already closed")
	ErrLocked        = errors.New("locked")
	ErrAlreadyLocked = errors.New("already locked")
	ErrNotLocked     = errors.New("not locked")
	ErrWrongKey      = errors.New("wrong key")
	ErrNotClosed     = errors.New("must be closed first")
	ErrClosed        = errors.New("closed")
	ErrFull          = errors.New("no room")
	ErrFixed         = errors.New("fixed in place")
	ErrNoExit        = errors.New("no exit that way")
)

// MissingCapabilityError reports an operation attempted on an entity that
// does not carry the required trait.
type MissingCapabilityError struct {
	Entity types.EntityID
	Kind   string
}

func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("%s has no %s capability", e.Entity, e.Kind)
}

// IsMissingCapability reports whether err is a *MissingCapabilityError.
func IsMissingCapability(err error) bool {
	var mc *MissingCapabilityError
	return errors.As(err, &mc)
}

func need[T world.Trait](w *world.Store, id types.EntityID) (T, error) {
	t, ok := world.TraitOf[T](w, id)
	if !ok {
		var zero T
		return zero, &MissingCapabilityError{Entity: id, Kind: zero.Kind()}
	}
	return t, nil
}

// Behavior sets, one per trait kind.
var (
	Openable  openableBehavior
	Lockable  lockableBehavior
	Container containerBehavior
	Supporter supporterBehavior
	Portable  portableBehavior
	Room      roomBehavior
	Door      doorBehavior
	Identity  identityBehavior
)

type openableBehavior struct{}

func (openableBehavior) IsOpen(w *world.Store, id types.EntityID) (bool, error) {
	o, err := need[*traits.Openable](w, id)
	if err != nil {
		return false, err
	}
	return o.Open, nil
}

// Open opens the entity. Locked entities refuse.
func (openableBehavior) Open(w *world.Store, id types.EntityID) error {
	o, err := need[*traits.Openable](w, id)
	if err != nil {
		return err
	}
	if o.Open {
		return ErrAlreadyOpen
	}
	if l, ok := world.TraitOf[*traits.Lockable](w, id); ok && l.Locked {
		return ErrLocked
	}
	o.Open = true
	return nil
}

func (openableBehavior) Close(w *world.Store, id types.EntityID) error {
	o, err := need[*traits.Openable](w, id)
	if err != nil {
		return err
	}
	if !o.Open {
		return ErrAlreadyClosed
	}
	o.Open = false
	return nil
}

type lockableBehavior struct{}

func (lockableBehavior) IsLocked(w *world.Store, id types.EntityID) (bool, error) {
	l, err := need[*traits.Lockable](w, id)
	if err != nil {
		return false, err
	}
	return l.Locked, nil
}

// CheckKey reports whether key works the entity's lock.
func (lockableBehavior) CheckKey(w *world.Store, id, key types.EntityID) error {
	l, err := need[*traits.Lockable](w, id)
	if err != nil {
		return err
	}
	if l.Key == types.Nowhere || l.Key != key {
		return ErrWrongKey
	}
	return nil
}

// Lock locks the entity with key. Openable entities must be closed first.
func (b lockableBehavior) Lock(w *world.Store, id, key types.EntityID) error {
	l, err := need[*traits.Lockable](w, id)
	if err != nil {
		return err
	}
	if l.Locked {
		return ErrAlreadyLocked
	}
	if o, ok := world.TraitOf[*traits.Openable](w, id); ok && o.Open {
		return ErrNotClosed
	}
	if err := b.CheckKey(w, id, key); err != nil {
		return err
	}
	l.Locked = true
	return nil
}

func (b lockableBehavior) Unlock(w *world.Store, id, key types.EntityID) error {
	l, err := need[*traits.Lockable](w, id)
	if err != nil {
		return err
	}
	if !l.Locked {
		return ErrNotLocked
	}
	if err := b.CheckKey(w, id, key); err != nil {
		return err
	}
	l.Locked = false
	return nil
}

type containerBehavior struct{}

// Accessible reports whether the inside of a container can be reached.
// A container without an openable trait is always open.
func (containerBehavior) Accessible(w *world.Store, id types.EntityID) (bool, error) {
	if _, err := need[*traits.Container](w, id); err != nil {
		return false, err
	}
	if o, ok := world.TraitOf[*traits.Openable](w, id); ok {
		return o.Open, nil
	}
	return true, nil
}

// Visible reports whether the contents can be seen from outside.
func (b containerBehavior) Visible(w *world.Store, id types.EntityID) (bool, error) {
	c, err := need[*traits.Container](w, id)
	if err != nil {
		return false, err
	}
	if c.Transparent {
		return true, nil
	}
	return b.Accessible(w, id)
}

func (b containerBehavior) CanAccept(w *world.Store, id, item types.EntityID) error {
	c, err := need[*traits.Container](w, id)
	if err != nil {
		return err
	}
	if open, _ := b.Accessible(w, id); !open {
		return ErrClosed
	}
	if item == id || w.IsAncestor(item, id) {
		return world.ErrCycle
	}
	if c.Capacity > 0 && len(w.Contents(id)) >= c.Capacity {
		return ErrFull
	}
	return nil
}

func (b containerBehavior) Insert(w *world.Store, id, item types.EntityID) error {
	if err := b.CanAccept(w, id, item); err != nil {
		return err
	}
	return w.Move(item, id)
}

type supporterBehavior struct{}

func (supporterBehavior) CanAccept(w *world.Store, id, item types.EntityID) error {
	s, err := need[*traits.Supporter](w, id)
	if err != nil {
		return err
	}
	if item == id || w.IsAncestor(item, id) {
		return world.ErrCycle
	}
	if s.Capacity > 0 && len(w.Contents(id)) >= s.Capacity {
		return ErrFull
	}
	return nil
}

func (b supporterBehavior) Place(w *world.Store, id, item types.EntityID) error {
	if err := b.CanAccept(w, id, item); err != nil {
		return err
	}
	return w.Move(item, id)
}

type portableBehavior struct{}

// CanTake reports whether the entity may be picked up. Scenery is refused
// with ErrFixed even when it is also marked portable.
func (portableBehavior) CanTake(w *world.Store, id types.EntityID) error {
	if w.HasTrait(id, traits.KindScenery) {
		return ErrFixed
	}
	_, err := need[*traits.Portable](w, id)
	return err
}

type roomBehavior struct{}

func (roomBehavior) Exits(w *world.Store, id types.EntityID) (map[string]types.EntityID, error) {
	r, err := need[*traits.Room](w, id)
	if err != nil {
		return nil, err
	}
	out := make(map[string]types.EntityID, len(r.Exits))
	for k, v := range r.Exits {
		out[k] = v
	}
	return out, nil
}

// Exit returns what lies in direction dir: a room or a door.
func (roomBehavior) Exit(w *world.Store, id types.EntityID, dir string) (types.EntityID, error) {
	r, err := need[*traits.Room](w, id)
	if err != nil {
		return types.Nowhere, err
	}
	dest, ok := r.Exits[dir]
	if !ok {
		return types.Nowhere, ErrNoExit
	}
	return dest, nil
}

// NearestRoom walks up from id to the first entity carrying a room trait.
func (roomBehavior) NearestRoom(w *world.Store, id types.EntityID) (types.EntityID, bool) {
	if w.HasTrait(id, traits.KindRoom) {
		return id, true
	}
	for _, a := range w.Ancestors(id) {
		if w.HasTrait(a, traits.KindRoom) {
			return a, true
		}
	}
	return types.Nowhere, false
}

type doorBehavior struct{}

// OtherSide returns the room on the far side of a door from room from.
func (doorBehavior) OtherSide(w *world.Store, id, from types.EntityID) (types.EntityID, error) {
	d, err := need[*traits.Door](w, id)
	if err != nil {
		return types.Nowhere, err
	}
	if len(d.Between) != 2 {
		return types.Nowhere, fmt.Errorf("door %s: %w", id, ErrNoExit)
	}
	switch from {
	case d.Between[0]:
		return d.Between[1], nil
	case d.Between[1]:
		return d.Between[0], nil
	}
	return types.Nowhere, fmt.Errorf("door %s does not touch %s: %w", id, from, ErrNoExit)
}

type identityBehavior struct{}

// Name returns the display name, falling back to the entity's own name.
func (identityBehavior) Name(w *world.Store, id types.EntityID) string {
	if t, ok := world.TraitOf[*traits.Identity](w, id); ok {
		return t.Name
	}
	if e, ok := w.Entity(id); ok {
		return e.Name
	}
	return string(id)
}

// Describe returns the entity's description.
func (identityBehavior) Describe(w *world.Store, id types.EntityID) (string, error) {
	t, err := need[*traits.Identity](w, id)
	if err != nil {
		return "", err
	}
	return t.Description, nil
}

// Definite renders "the lamp", or the bare name for proper nouns.
func (b identityBehavior) Definite(w *world.Store, id types.EntityID) string {
	if t, ok := world.TraitOf[*traits.Identity](w, id); ok && t.Proper {
		return t.Name
	}
	return "the " + b.Name(w, id)
}

// Indefinite renders "a lamp" using the identity's article when set.
func (b identityBehavior) Indefinite(w *world.Store, id types.EntityID) string {
	t, ok := world.TraitOf[*traits.Identity](w, id)
	if ok && t.Proper {
		return t.Name
	}
	article := "a"
	if ok && t.Article != "" {
		article = t.Article
	} else if name := b.Name(w, id); name != "" && isVowel(name[0]) {
		article = "an"
	}
	return article + " " + b.Name(w, id)
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}
