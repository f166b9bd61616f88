package actions

import (
	"errors"

	"github.com/nathoo/taleforge/engine/behavior"
	"github.com/nathoo/taleforge/engine/resolve"
	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/types"
)

// Validation failure reasons.
const (
	ReasonNotUnderstood   = "not-understood"
	ReasonRefused         = "refused"
	ReasonNoObject        = "no-object"
	ReasonAlreadyOpen     = "already-open"
	ReasonAlreadyClosed   = "already-closed"
	ReasonNotOpenable     = "not-openable"
	ReasonLocked          = "locked"
	ReasonNotLockable     = "not-lockable"
	ReasonAlreadyLocked   = "already-locked"
	ReasonNotLocked       = "not-locked"
	ReasonNotClosed       = "not-closed"
	ReasonNeedsKey        = "needs-key"
	ReasonWrongKey        = "wrong-key"
	ReasonNotHeld         = "not-held"
	ReasonAlreadyHeld     = "already-held"
	ReasonHeldByOther     = "held-by-other"
	ReasonFixed           = "fixed"
	ReasonNotPortable     = "not-portable"
	ReasonTakeSelf        = "take-self"
	ReasonUnreachable     = "unreachable"
	ReasonNotThere        = "not-there"
	ReasonNotContainer    = "not-container"
	ReasonNotSupporter    = "not-supporter"
	ReasonClosed          = "closed"
	ReasonFull            = "full"
	ReasonSelfContainment = "self-containment"
	ReasonNoExit          = "no-exit"
	ReasonDoorClosed      = "door-closed"
)

// Event types emitted by the standard actions.
const (
	EventBlocked   = "blocked"
	EventLooked    = "looked"
	EventExamined  = "examined"
	EventInventory = "inventory"
	EventTaken     = "taken"
	EventDropped   = "dropped"
	EventOpened    = "opened"
	EventClosed    = "closed"
	EventLocked    = "locked"
	EventUnlocked  = "unlocked"
	EventInserted  = "inserted"
	EventPlaced    = "placed"
	EventWent      = "went"
	EventWaited    = "waited"
)

// Builtins returns a registry holding the standard action library.
func Builtins() *Registry {
	r := NewRegistry()
	for _, a := range []Action{
		look, examine, inventory, take, drop,
		open, closeAction, lock, unlock,
		insert, putOn, goAction, wait,
	} {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
	return r
}

func refuse(reason, message string) error {
	return &ValidationError{Reason: reason, Message: message}
}

func event(typ string, payload map[string]any, ids ...types.EntityID) []types.SemanticEvent {
	return []types.SemanticEvent{{Type: typ, Entities: involved(ids...), Payload: payload}}
}

func needTarget(ctx *Context) error {
	if ctx.Target() == types.Nowhere {
		return refuse(ReasonNoObject, "no object given")
	}
	return nil
}

// needReachable refuses unless the actor can touch id. Doors sit between
// rooms, so one named by the current room's exits counts as reachable.
func needReachable(ctx *Context, id types.EntityID) error {
	w := ctx.World
	if w.HasTrait(id, traits.KindDoor) && resolve.InScope(w, ctx.Actor(), id) {
		return nil
	}
	if !resolve.Reachable(w, ctx.Actor(), id) {
		return refuse(ReasonUnreachable, string(id)+" is out of reach")
	}
	return nil
}

func holds(w *world.Store, actor, id types.EntityID) bool {
	return w.IsAncestor(actor, id)
}

// heldByOther reports whether some actor other than the player carries id.
func heldByOther(w *world.Store, actor, id types.EntityID) bool {
	for _, a := range w.Ancestors(id) {
		if a == actor {
			return false
		}
		if w.HasTrait(a, traits.KindActor) {
			return true
		}
	}
	return false
}

var look = &Func{
	Name: "look",
	ReportFn: func(ctx *Context, _ Outcome) []types.SemanticEvent {
		room := resolve.Ceiling(ctx.World, ctx.Actor())
		return event(EventLooked, map[string]any{"room": room}, ctx.Actor(), room)
	},
}

var examine = &Func{
	Name:       "examine",
	ValidateFn: needTarget,
	ReportFn: func(ctx *Context, _ Outcome) []types.SemanticEvent {
		desc, _ := behavior.Identity.Describe(ctx.World, ctx.Target())
		return event(EventExamined, map[string]any{"description": desc}, ctx.Actor(), ctx.Target())
	},
}

var inventory = &Func{
	Name: "inventory",
	ReportFn: func(ctx *Context, _ Outcome) []types.SemanticEvent {
		return event(EventInventory, map[string]any{"items": ctx.World.Contents(ctx.Actor())}, ctx.Actor())
	},
}

var take = &Func{
	Name: "take",
	ValidateFn: func(ctx *Context) error {
		w, actor, target := ctx.World, ctx.Actor(), ctx.Target()
		if err := needTarget(ctx); err != nil {
			return err
		}
		if target == actor {
			return refuse(ReasonTakeSelf, "cannot take yourself")
		}
		if loc, _ := w.Location(target); loc == actor {
			return refuse(ReasonAlreadyHeld, "already carried")
		}
		if src := ctx.Secondary(); src != types.Nowhere && !w.IsAncestor(src, target) {
			return refuse(ReasonNotThere, string(target)+" is not in "+string(src))
		}
		if w.IsAncestor(target, actor) {
			return refuse(ReasonSelfContainment, "cannot take something you are inside")
		}
		if err := behavior.Portable.CanTake(w, target); err != nil {
			if errors.Is(err, behavior.ErrFixed) {
				return refuse(ReasonFixed, string(target)+" is fixed in place")
			}
			return refuse(ReasonNotPortable, err.Error())
		}
		if heldByOther(w, actor, target) {
			return refuse(ReasonHeldByOther, "someone else has it")
		}
		return needReachable(ctx, target)
	},
	ExecuteFn: func(ctx *Context) (Outcome, error) {
		from, _ := ctx.World.Location(ctx.Target())
		if err := ctx.World.Move(ctx.Target(), ctx.Actor()); err != nil {
			return Outcome{}, err
		}
		return Outcome{From: from, To: ctx.Actor()}, nil
	},
	ReportFn: func(ctx *Context, out Outcome) []types.SemanticEvent {
		return event(EventTaken, map[string]any{"from": out.From}, ctx.Actor(), ctx.Target())
	},
}

var drop = &Func{
	Name: "drop",
	ValidateFn: func(ctx *Context) error {
		if err := needTarget(ctx); err != nil {
			return err
		}
		if !holds(ctx.World, ctx.Actor(), ctx.Target()) {
			return refuse(ReasonNotHeld, "not carried")
		}
		return nil
	},
	ExecuteFn: func(ctx *Context) (Outcome, error) {
		from, _ := ctx.World.Location(ctx.Target())
		dest, ok := ctx.World.Location(ctx.Actor())
		if !ok {
			return Outcome{}, world.ErrNotFound
		}
		if err := ctx.World.Move(ctx.Target(), dest); err != nil {
			return Outcome{}, err
		}
		return Outcome{From: from, To: dest}, nil
	},
	ReportFn: func(ctx *Context, out Outcome) []types.SemanticEvent {
		return event(EventDropped, map[string]any{"to": out.To}, ctx.Actor(), ctx.Target())
	},
}

var open = &Func{
	Name: "open",
	ValidateFn: func(ctx *Context) error {
		if err := needTarget(ctx); err != nil {
			return err
		}
		isOpen, err := behavior.Openable.IsOpen(ctx.World, ctx.Target())
		switch {
		case behavior.IsMissingCapability(err):
			return refuse(ReasonNotOpenable, string(ctx.Target())+" cannot be opened")
		case isOpen:
			return refuse(ReasonAlreadyOpen, string(ctx.Target())+" is already open")
		}
		if locked, _ := behavior.Lockable.IsLocked(ctx.World, ctx.Target()); locked {
			return refuse(ReasonLocked, string(ctx.Target())+" is locked")
		}
		return needReachable(ctx, ctx.Target())
	},
	ExecuteFn: func(ctx *Context) (Outcome, error) {
		return Outcome{}, behavior.Openable.Open(ctx.World, ctx.Target())
	},
	ReportFn: func(ctx *Context, _ Outcome) []types.SemanticEvent {
		return event(EventOpened, nil, ctx.Actor(), ctx.Target())
	},
}

var closeAction = &Func{
	Name: "close",
	ValidateFn: func(ctx *Context) error {
		if err := needTarget(ctx); err != nil {
			return err
		}
		isOpen, err := behavior.Openable.IsOpen(ctx.World, ctx.Target())
		switch {
		case behavior.IsMissingCapability(err):
			return refuse(ReasonNotOpenable, string(ctx.Target())+" cannot be closed")
		case !isOpen:
			return refuse(ReasonAlreadyClosed, string(ctx.Target())+" is already closed")
		}
		return needReachable(ctx, ctx.Target())
	},
	ExecuteFn: func(ctx *Context) (Outcome, error) {
		return Outcome{}, behavior.Openable.Close(ctx.World, ctx.Target())
	},
	ReportFn: func(ctx *Context, _ Outcome) []types.SemanticEvent {
		return event(EventClosed, nil, ctx.Actor(), ctx.Target())
	},
}

// validateKeyed covers the checks lock and unlock share.
func validateKeyed(ctx *Context, wantLocked bool) error {
	if err := needTarget(ctx); err != nil {
		return err
	}
	w, target, key := ctx.World, ctx.Target(), ctx.Secondary()
	locked, err := behavior.Lockable.IsLocked(w, target)
	switch {
	case behavior.IsMissingCapability(err):
		return refuse(ReasonNotLockable, string(target)+" has no lock")
	case locked && !wantLocked:
		return refuse(ReasonAlreadyLocked, string(target)+" is already locked")
	case !locked && wantLocked:
		return refuse(ReasonNotLocked, string(target)+" is not locked")
	}
	if open, _ := behavior.Openable.IsOpen(w, target); open && !wantLocked {
		return refuse(ReasonNotClosed, string(target)+" must be closed first")
	}
	if key == types.Nowhere {
		return refuse(ReasonNeedsKey, "a key is needed")
	}
	if !holds(w, ctx.Actor(), key) {
		return refuse(ReasonNotHeld, string(key)+" is not carried")
	}
	if err := behavior.Lockable.CheckKey(w, target, key); err != nil {
		return refuse(ReasonWrongKey, string(key)+" does not fit")
	}
	return needReachable(ctx, target)
}

var lock = &Func{
	Name:       "lock",
	ValidateFn: func(ctx *Context) error { return validateKeyed(ctx, false) },
	ExecuteFn: func(ctx *Context) (Outcome, error) {
		return Outcome{}, behavior.Lockable.Lock(ctx.World, ctx.Target(), ctx.Secondary())
	},
	ReportFn: func(ctx *Context, _ Outcome) []types.SemanticEvent {
		return event(EventLocked, nil, ctx.Actor(), ctx.Target(), ctx.Secondary())
	},
}

var unlock = &Func{
	Name:       "unlock",
	ValidateFn: func(ctx *Context) error { return validateKeyed(ctx, true) },
	ExecuteFn: func(ctx *Context) (Outcome, error) {
		return Outcome{}, behavior.Lockable.Unlock(ctx.World, ctx.Target(), ctx.Secondary())
	},
	ReportFn: func(ctx *Context, _ Outcome) []types.SemanticEvent {
		return event(EventUnlocked, nil, ctx.Actor(), ctx.Target(), ctx.Secondary())
	},
}

// validatePut covers insert and put_on; accept checks the destination.
func validatePut(ctx *Context, kind, notReason string, accept func(w *world.Store, dest, item types.EntityID) error) error {
	if err := needTarget(ctx); err != nil {
		return err
	}
	w, item, dest := ctx.World, ctx.Target(), ctx.Secondary()
	if dest == types.Nowhere {
		return refuse(ReasonNoObject, "nowhere to put it")
	}
	if !w.HasTrait(dest, kind) {
		return refuse(notReason, string(dest)+" has no "+kind+" capability")
	}
	if !holds(w, ctx.Actor(), item) {
		return refuse(ReasonNotHeld, string(item)+" is not carried")
	}
	switch err := accept(w, dest, item); {
	case errors.Is(err, behavior.ErrClosed):
		return refuse(ReasonClosed, string(dest)+" is closed")
	case errors.Is(err, world.ErrCycle):
		return refuse(ReasonSelfContainment, "cannot put something inside itself")
	case errors.Is(err, behavior.ErrFull):
		return refuse(ReasonFull, string(dest)+" is full")
	case err != nil:
		return refuse(ReasonRefused, err.Error())
	}
	return needReachable(ctx, dest)
}

var insert = &Func{
	Name: "insert",
	ValidateFn: func(ctx *Context) error {
		return validatePut(ctx, traits.KindContainer, ReasonNotContainer, behavior.Container.CanAccept)
	},
	ExecuteFn: func(ctx *Context) (Outcome, error) {
		from, _ := ctx.World.Location(ctx.Target())
		err := behavior.Container.Insert(ctx.World, ctx.Secondary(), ctx.Target())
		return Outcome{From: from, To: ctx.Secondary()}, err
	},
	ReportFn: func(ctx *Context, _ Outcome) []types.SemanticEvent {
		return event(EventInserted, nil, ctx.Actor(), ctx.Target(), ctx.Secondary())
	},
}

var putOn = &Func{
	Name: "put_on",
	ValidateFn: func(ctx *Context) error {
		return validatePut(ctx, traits.KindSupporter, ReasonNotSupporter, behavior.Supporter.CanAccept)
	},
	ExecuteFn: func(ctx *Context) (Outcome, error) {
		from, _ := ctx.World.Location(ctx.Target())
		err := behavior.Supporter.Place(ctx.World, ctx.Secondary(), ctx.Target())
		return Outcome{From: from, To: ctx.Secondary()}, err
	},
	ReportFn: func(ctx *Context, _ Outcome) []types.SemanticEvent {
		return event(EventPlaced, nil, ctx.Actor(), ctx.Target(), ctx.Secondary())
	},
}

// destination works out where going would lead: a direction through the
// room's exits, or an explicitly named door.
func destination(ctx *Context) (dest, door types.EntityID, err error) {
	w := ctx.World
	here, ok := w.Location(ctx.Actor())
	if !ok {
		return "", "", refuse(ReasonNoExit, "nowhere to go from")
	}

	via := ctx.Target()
	if via == types.Nowhere {
		if ctx.Command.Direction == "" {
			return "", "", refuse(ReasonNoObject, "no direction given")
		}
		if via, err = behavior.Room.Exit(w, here, ctx.Command.Direction); err != nil {
			return "", "", refuse(ReasonNoExit, "no exit "+ctx.Command.Direction)
		}
	}

	if !w.HasTrait(via, traits.KindDoor) {
		if !w.HasTrait(via, traits.KindRoom) {
			return "", "", refuse(ReasonNoExit, string(via)+" leads nowhere")
		}
		return via, "", nil
	}
	if open, err := behavior.Openable.IsOpen(w, via); err == nil && !open {
		return "", via, refuse(ReasonDoorClosed, string(via)+" is closed")
	}
	far, err := behavior.Door.OtherSide(w, via, here)
	if err != nil {
		return "", via, refuse(ReasonNoExit, err.Error())
	}
	return far, via, nil
}

var goAction = &Func{
	Name: "go",
	ValidateFn: func(ctx *Context) error {
		_, _, err := destination(ctx)
		return err
	},
	ExecuteFn: func(ctx *Context) (Outcome, error) {
		dest, door, err := destination(ctx)
		if err != nil {
			return Outcome{}, err
		}
		from, _ := ctx.World.Location(ctx.Actor())
		if err := ctx.World.Move(ctx.Actor(), dest); err != nil {
			return Outcome{}, err
		}
		return Outcome{From: from, To: dest, Detail: map[string]any{"door": door}}, nil
	},
	ReportFn: func(ctx *Context, out Outcome) []types.SemanticEvent {
		payload := map[string]any{
			"direction": ctx.Command.Direction,
			"from":      out.From,
			"to":        out.To,
		}
		if door, _ := out.Detail["door"].(types.EntityID); door != types.Nowhere {
			payload["door"] = door
		}
		return event(EventWent, payload, ctx.Actor(), out.From, out.To)
	},
}

var wait = &Func{
	Name: "wait",
	ReportFn: func(ctx *Context, _ Outcome) []types.SemanticEvent {
		return event(EventWaited, nil, ctx.Actor())
	},
}
