// Package effects applies story effects to the world. Every effect type is
// one atomic operation; Apply runs only inside an action's Execute phase so
// a failure rolls back with the rest of the turn.
package effects

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nathoo/taleforge/engine/behavior"
	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/engine/vocab"
	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/types"
)

// Event types emitted by effects.
const (
	EventSaid           = "said"
	EventFlagChanged    = "flag_changed"
	EventCounterChanged = "counter_changed"
	EventEntityMoved    = "entity_moved"
	EventTraitChanged   = "trait_changed"
	EventVerbAdded      = "verb_added"
)

// Types lists every effect type Apply understands.
var Types = []string{
	"say", "set_flag", "inc_counter", "set_counter", "move_entity",
	"set_trait", "add_verb", "emit_event", "stop",
}

var ErrUnknownEffect = errors.New("unknown effect type")

// Context carries the command an effect list runs for. Traits may be nil
// when no set_trait effects are used.
type Context struct {
	World  *world.Store
	Traits *traits.Registry
	Action string
	Actor  types.EntityID
	Object types.EntityID
	Target types.EntityID
}

// Apply applies effs in order and returns the events they produced.
func Apply(ctx Context, effs []types.Effect) ([]types.SemanticEvent, error) {
	var evs []types.SemanticEvent
	w := ctx.World

	for _, eff := range effs {
		switch eff.Type {
		case "say":
			text, _ := eff.Params["text"].(string)
			evs = append(evs, types.SemanticEvent{
				Type:     EventSaid,
				Entities: []types.EntityID{ctx.Actor},
				Payload:  map[string]any{"text": Interpolate(ctx, text)},
			})

		case "set_flag":
			flag, _ := eff.Params["flag"].(string)
			value, _ := eff.Params["value"].(bool)
			w.SetFlag(flag, value)
			evs = append(evs, types.SemanticEvent{
				Type:    EventFlagChanged,
				Payload: map[string]any{"flag": flag, "value": value},
			})

		case "inc_counter":
			counter, _ := eff.Params["counter"].(string)
			value := w.AddCounter(counter, ToInt(eff.Params["amount"]))
			evs = append(evs, types.SemanticEvent{
				Type:    EventCounterChanged,
				Payload: map[string]any{"counter": counter, "value": value},
			})

		case "set_counter":
			counter, _ := eff.Params["counter"].(string)
			value := ToInt(eff.Params["value"])
			w.SetCounter(counter, value)
			evs = append(evs, types.SemanticEvent{
				Type:    EventCounterChanged,
				Payload: map[string]any{"counter": counter, "value": value},
			})

		case "move_entity":
			id := EntityParam(ctx, eff.Params["entity"])
			to := EntityParam(ctx, eff.Params["to"])
			from, _ := w.Location(id)
			if err := w.Move(id, to); err != nil {
				return evs, fmt.Errorf("move_entity %s: %w", id, err)
			}
			evs = append(evs, types.SemanticEvent{
				Type:     EventEntityMoved,
				Entities: []types.EntityID{id},
				Payload:  map[string]any{"from": from, "to": to},
			})

		case "set_trait":
			ev, err := setTrait(ctx, eff.Params)
			if err != nil {
				return evs, err
			}
			evs = append(evs, ev)

		case "add_verb":
			// Only checked here; the verb is registered when the turn's
			// events are published.
			action, _ := eff.Params["action"].(string)
			forms, syntax := Strings(eff.Params["forms"]), Strings(eff.Params["syntax"])
			if err := vocab.CheckVerb(action, forms, syntax...); err != nil {
				return evs, fmt.Errorf("add_verb %s: %w", action, err)
			}
			evs = append(evs, types.SemanticEvent{
				Type:    EventVerbAdded,
				Payload: map[string]any{"action": action, "forms": forms, "syntax": syntax},
			})

		case "emit_event":
			name, _ := eff.Params["event"].(string)
			payload := map[string]any{}
			for k, v := range eff.Params {
				if k != "event" {
					payload[k] = v
				}
			}
			evs = append(evs, types.SemanticEvent{
				Type:     name,
				Entities: nonEmpty(ctx.Actor, ctx.Object, ctx.Target),
				Payload:  payload,
			})

		case "stop":
			return evs, nil

		default:
			return evs, fmt.Errorf("%w: %q", ErrUnknownEffect, eff.Type)
		}
	}
	return evs, nil
}

// setTrait merges params["data"] (or a single field/value pair) into the
// entity's trait of the given kind, creating it when absent. With
// remove=true the trait is detached instead.
func setTrait(ctx Context, params map[string]any) (types.SemanticEvent, error) {
	w := ctx.World
	id := EntityParam(ctx, params["entity"])
	kind, _ := params["trait"].(string)
	ev := types.SemanticEvent{
		Type:     EventTraitChanged,
		Entities: []types.EntityID{id},
		Payload:  map[string]any{"trait": kind},
	}
	if !w.Exists(id) {
		return ev, fmt.Errorf("set_trait %s on %s: %w", kind, id, world.ErrNotFound)
	}
	if remove, _ := params["remove"].(bool); remove {
		w.DetachTrait(id, kind)
		ev.Payload["removed"] = true
		return ev, nil
	}
	if ctx.Traits == nil {
		return ev, fmt.Errorf("set_trait %s: no trait registry", kind)
	}

	data := map[string]any{}
	if cur, ok := w.Trait(id, kind); ok {
		m, err := traits.Encode(cur)
		if err != nil {
			return ev, fmt.Errorf("set_trait %s on %s: %w", kind, id, err)
		}
		data = m
	}
	if patch, ok := params["data"].(map[string]any); ok {
		for k, v := range patch {
			data[k] = v
		}
	}
	if field, ok := params["field"].(string); ok && field != "" {
		data[field] = params["value"]
		ev.Payload["field"] = field
		ev.Payload["value"] = params["value"]
	}

	t, err := ctx.Traits.Build(kind, data)
	if err != nil {
		return ev, fmt.Errorf("set_trait %s on %s: %w", kind, id, err)
	}
	if err := w.AttachTrait(id, t); err != nil {
		return ev, err
	}
	return ev, nil
}

// Interpolate replaces template variables in text: {actor}, {object},
// {target}, {object.name}, {target.name}, {room} and {room.name}.
func Interpolate(ctx Context, text string) string {
	if !strings.Contains(text, "{") {
		return text
	}
	room, _ := behavior.Room.NearestRoom(ctx.World, ctx.Actor)
	r := strings.NewReplacer(
		"{object.name}", nameOf(ctx.World, ctx.Object),
		"{target.name}", nameOf(ctx.World, ctx.Target),
		"{room.name}", nameOf(ctx.World, room),
		"{actor}", string(ctx.Actor),
		"{object}", string(ctx.Object),
		"{target}", string(ctx.Target),
		"{room}", string(room),
	)
	return r.Replace(text)
}

func nameOf(w *world.Store, id types.EntityID) string {
	if id == types.Nowhere {
		return ""
	}
	return behavior.Identity.Name(w, id)
}

// EntityParam reads an entity ID parameter, expanding {actor}, {object}
// and {target}.
func EntityParam(ctx Context, v any) types.EntityID {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case types.EntityID:
		s = string(x)
	}
	switch s {
	case "{actor}":
		return ctx.Actor
	case "{object}":
		return ctx.Object
	case "{target}":
		return ctx.Target
	}
	return types.EntityID(s)
}

func nonEmpty(ids ...types.EntityID) []types.EntityID {
	var out []types.EntityID
	for _, id := range ids {
		if id != types.Nowhere {
			out = append(out, id)
		}
	}
	return out
}

// ToInt converts an any value to int, handling float64 from JSON and Lua.
func ToInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}

// Strings converts a []string, []any or single string parameter to a
// string slice.
func Strings(v any) []string {
	switch x := v.(type) {
	case string:
		return []string{x}
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
