package loader

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nathoo/taleforge/engine/effects"
	"github.com/nathoo/taleforge/engine/rules"
	"github.com/nathoo/taleforge/engine/story"
	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/engine/vocab"
	"github.com/nathoo/taleforge/lang"
	"github.com/nathoo/taleforge/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// checker holds the indexes validation looks things up in.
type checker struct {
	defs     *story.Defs
	entities map[types.EntityID]types.EntityDef
	actions  map[string]bool
	traits   *traits.Registry
	ve       *ValidationError
}

// validate checks the compiled defs for referential integrity and
// consistency. It never returns nil; callers check Errors.
func validate(defs *story.Defs) *ValidationError {
	c := &checker{
		defs:     defs,
		entities: map[types.EntityID]types.EntityDef{},
		actions:  map[string]bool{},
		traits:   traits.Builtins(),
		ve:       &ValidationError{},
	}

	// Entity IDs unique.
	for _, e := range defs.Entities {
		if _, dup := c.entities[e.ID]; dup {
			c.ve.errorf("duplicate entity ID %q", e.ID)
		}
		c.entities[e.ID] = e
	}
	c.entities[story.PlayerID] = types.EntityDef{ID: story.PlayerID, Type: types.TypePerson}

	// Known actions: the language pack, the story's verbs, and verbs rules add.
	if pack, err := lang.English(); err == nil {
		for _, v := range pack.Verbs() {
			c.actions[v.Action] = true
		}
	}
	for i, v := range defs.Verbs {
		if v.Action == "" || len(v.Forms) == 0 {
			c.ve.errorf("verb %d: action and forms are required", i)
		}
		for _, s := range v.Syntax {
			if _, err := vocab.ParseSyntax(s); err != nil {
				c.ve.errorf("verb %q: %v", v.Action, err)
			}
		}
		c.actions[v.Action] = true
	}
	for _, r := range allRules(defs) {
		for _, eff := range r.Effects {
			if eff.Type == "add_verb" {
				action, _ := eff.Params["action"].(string)
				c.actions[action] = true
			}
		}
	}

	// Game.
	if defs.Game.Title == "" {
		c.ve.errorf("Game.title is required")
	}
	if defs.Game.Start == types.Nowhere {
		c.ve.errorf("Game.start is required")
	} else if !c.isRoom(defs.Game.Start) {
		c.ve.errorf("start room %q not found in defined rooms", defs.Game.Start)
	}

	for _, e := range defs.Entities {
		c.entity(e)
	}

	// Rule IDs unique across all scopes.
	ruleIDs := map[string]bool{}
	for _, r := range allRules(defs) {
		if ruleIDs[r.ID] {
			c.ve.errorf("duplicate rule ID %q", r.ID)
		}
		ruleIDs[r.ID] = true
		c.rule(r)
	}
	return c.ve
}

func (c *checker) isRoom(id types.EntityID) bool {
	e, ok := c.entities[id]
	if !ok {
		return false
	}
	_, hasRoom := e.Traits[traits.KindRoom]
	return e.Type == types.TypeRoom || hasRoom
}

func (c *checker) ref(id types.EntityID) bool {
	if isTemplate(string(id)) {
		return true
	}
	_, ok := c.entities[id]
	return ok
}

func (c *checker) entity(e types.EntityDef) {
	if e.Location != types.Nowhere && !c.ref(e.Location) {
		c.ve.errorf("entity %q location %q is not defined", e.ID, e.Location)
	}
	if e.Location == types.Nowhere && !c.isRoom(e.ID) && !c.isDoor(e.ID) && e.ID != story.PlayerID {
		c.ve.warnf("entity %q has no location and starts off-stage", e.ID)
	}

	for kind, data := range e.Traits {
		if !c.traits.Has(kind) {
			c.ve.errorf("entity %q: unknown trait %q", e.ID, kind)
			continue
		}
		if _, err := c.traits.Build(kind, data); err != nil {
			c.ve.errorf("entity %q: %v", e.ID, err)
		}
	}

	if room, ok := e.Traits[traits.KindRoom]; ok {
		exits, _ := room["exits"].(map[string]any)
		for dir, dest := range exits {
			id := types.EntityID(fmt.Sprint(dest))
			if !c.isRoom(id) && !c.isDoor(id) {
				c.ve.errorf("room %q exit %q points to undefined room %q", e.ID, dir, id)
			}
		}
	}
	if door, ok := e.Traits[traits.KindDoor]; ok {
		between, _ := door["between"].([]any)
		for _, side := range between {
			if id := types.EntityID(fmt.Sprint(side)); !c.isRoom(id) {
				c.ve.errorf("door %q connects undefined room %q", e.ID, id)
			}
		}
	}
	if lock, ok := e.Traits[traits.KindLockable]; ok {
		if key, _ := lock["key"].(string); key != "" && !c.ref(types.EntityID(key)) {
			c.ve.errorf("entity %q key %q is not defined", e.ID, key)
		}
	}
}

func (c *checker) isDoor(id types.EntityID) bool {
	e, ok := c.entities[id]
	if !ok {
		return false
	}
	_, hasDoor := e.Traits[traits.KindDoor]
	return hasDoor
}

func (c *checker) rule(r types.RuleDef) {
	if !slices.Contains([]string{types.ModeBefore, types.ModeInstead, types.ModeAfter}, r.Mode) {
		c.ve.errorf("rule %q: unknown mode %q", r.ID, r.Mode)
	}
	if r.When.Action == "" {
		c.ve.errorf("rule %q: When.action is required", r.ID)
	} else if !c.actions[r.When.Action] {
		c.ve.warnf("rule %q uses unrecognized action %q", r.ID, r.When.Action)
	}
	for _, id := range []types.EntityID{r.When.Object, r.When.Target} {
		if id != types.Nowhere && !c.ref(id) {
			c.ve.errorf("rule %q matches undefined entity %q", r.ID, id)
		}
	}
	if t := r.When.ObjectTrait; t != "" && !c.traits.Has(t) {
		c.ve.errorf("rule %q matches unknown trait %q", r.ID, t)
	}
	c.conditions(r.ID, r.Conditions)
	c.effects(r.ID, r.Effects)
}

// entityParams names the parameters of each condition and effect type
// that must refer to a defined entity.
var entityParams = map[string][]string{
	"holds":       {"item"},
	"in_room":     {"room"},
	"located":     {"entity", "in"},
	"trait_is":    {"entity"},
	"move_entity": {"entity", "to"},
	"set_trait":   {"entity"},
}

func (c *checker) params(ruleID, typ string, params map[string]any) {
	for _, p := range entityParams[typ] {
		if s, ok := params[p].(string); ok && !c.ref(types.EntityID(s)) {
			c.ve.errorf("rule %q: %s references undefined entity %q", ruleID, typ, s)
		}
	}
}

func (c *checker) conditions(ruleID string, conds []types.Condition) {
	for _, cond := range conds {
		if !slices.Contains(rules.Conditions, cond.Type) {
			c.ve.errorf("rule %q: unknown condition type %q", ruleID, cond.Type)
			continue
		}
		if cond.Type == "not" && cond.Inner != nil {
			c.conditions(ruleID, []types.Condition{*cond.Inner})
		}
		c.params(ruleID, cond.Type, cond.Params)
	}
}

func (c *checker) effects(ruleID string, effs []types.Effect) {
	for _, eff := range effs {
		if !slices.Contains(effects.Types, eff.Type) {
			c.ve.errorf("rule %q: unknown effect type %q", ruleID, eff.Type)
			continue
		}
		c.params(ruleID, eff.Type, eff.Params)
		if eff.Type == "set_trait" {
			if kind, _ := eff.Params["trait"].(string); !c.traits.Has(kind) {
				c.ve.errorf("rule %q: set_trait uses unknown trait %q", ruleID, kind)
			}
		}
	}
}

// allRules gathers all rules from all scopes.
func allRules(defs *story.Defs) []types.RuleDef {
	all := append([]types.RuleDef(nil), defs.GlobalRules...)
	for _, e := range defs.Entities {
		all = append(all, e.Rules...)
	}
	return all
}

// isTemplate returns true if the string contains a template variable.
func isTemplate(s string) bool {
	return strings.Contains(s, "{") && strings.Contains(s, "}")
}
