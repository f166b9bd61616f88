// Package rules evaluates story rules between validation and execution.
// A Book holds the rules of a story and acts as an executor interceptor:
// before-rules veto, instead-rules substitute and after-rules augment.
package rules

import (
	"fmt"
	"reflect"

	"github.com/nathoo/taleforge/engine/behavior"
	"github.com/nathoo/taleforge/engine/effects"
	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/types"
)

// Conditions lists every condition type EvalCondition understands.
var Conditions = []string{
	"holds", "flag_set", "flag_not", "flag_is", "counter_gt", "counter_lt",
	"in_room", "located", "trait_is", "not",
}

// EvalCondition evaluates a single condition against the world. Entity
// parameters accept {actor}, {object} and {target}.
func EvalCondition(c types.Condition, ctx effects.Context) bool {
	w := ctx.World
	switch c.Type {
	case "holds":
		item := effects.EntityParam(ctx, c.Params["item"])
		return item != types.Nowhere && w.IsAncestor(ctx.Actor, item)

	case "flag_set":
		flag, _ := c.Params["flag"].(string)
		return w.Flag(flag)

	case "flag_not":
		flag, _ := c.Params["flag"].(string)
		return !w.Flag(flag)

	case "flag_is":
		flag, _ := c.Params["flag"].(string)
		value, _ := c.Params["value"].(bool)
		return w.Flag(flag) == value

	case "counter_gt":
		counter, _ := c.Params["counter"].(string)
		return w.Counter(counter) > effects.ToInt(c.Params["value"])

	case "counter_lt":
		counter, _ := c.Params["counter"].(string)
		return w.Counter(counter) < effects.ToInt(c.Params["value"])

	case "in_room":
		room := effects.EntityParam(ctx, c.Params["room"])
		here, ok := behavior.Room.NearestRoom(w, ctx.Actor)
		return ok && here == room

	case "located":
		id := effects.EntityParam(ctx, c.Params["entity"])
		in := effects.EntityParam(ctx, c.Params["in"])
		loc, ok := w.Location(id)
		return ok && loc == in

	case "trait_is":
		id := effects.EntityParam(ctx, c.Params["entity"])
		kind, _ := c.Params["trait"].(string)
		t, ok := w.Trait(id, kind)
		if !ok {
			return false
		}
		field, _ := c.Params["field"].(string)
		if field == "" {
			return true
		}
		data, err := traits.Encode(t)
		if err != nil {
			return false
		}
		return same(data[field], c.Params["value"])

	case "not":
		if c.Inner == nil {
			return true
		}
		return !EvalCondition(*c.Inner, ctx)

	default:
		return false
	}
}

// EvalAllConditions returns true if all conditions pass (AND logic).
// An empty condition list is vacuously true.
func EvalAllConditions(conditions []types.Condition, ctx effects.Context) bool {
	for _, c := range conditions {
		if !EvalCondition(c, ctx) {
			return false
		}
	}
	return true
}

// same compares a trait field decoded from JSON with a rule parameter.
// Absent boolean fields read as false and numbers compare by value.
func same(actual, expected any) bool {
	if actual == nil {
		switch e := expected.(type) {
		case nil:
			return true
		case bool:
			return !e
		}
		return false
	}
	if a, ok := actual.(float64); ok {
		switch e := expected.(type) {
		case int:
			return a == float64(e)
		case int64:
			return a == float64(e)
		case float64:
			return a == e
		}
		return false
	}
	if s, ok := actual.(string); ok {
		return s == fmt.Sprint(expected)
	}
	return reflect.DeepEqual(actual, expected)
}
