package rules

import (
	"sort"
	"strings"

	"github.com/nathoo/taleforge/engine/actions"
	"github.com/nathoo/taleforge/engine/behavior"
	"github.com/nathoo/taleforge/engine/effects"
	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/types"
)

// ReasonVetoed is the validation reason carried by a before-rule veto.
const ReasonVetoed = "vetoed"

// Scope helpers for rule placement.
const (
	ScopeGlobal = "global"
	roomPrefix  = "room:"
	entityPfx   = "entity:"
)

// RoomScope returns the scope string for rules local to a room.
func RoomScope(id types.EntityID) string { return roomPrefix + string(id) }

// EntityScope returns the scope string for rules attached to an entity.
func EntityScope(id types.EntityID) string { return entityPfx + string(id) }

// Book holds a story's rules, grouped by scope.
type Book struct {
	Traits *traits.Registry

	scoped map[string][]types.RuleDef
	count  int
}

// NewBook returns an empty book. reg is handed to effects for set_trait.
func NewBook(reg *traits.Registry) *Book {
	return &Book{Traits: reg, scoped: map[string][]types.RuleDef{}}
}

// Add files a rule under its scope. Rules without a scope are global; rules
// without a mode are instead-rules. SourceOrder is assigned when unset so
// earlier rules win ties.
func (b *Book) Add(rules ...types.RuleDef) {
	for _, r := range rules {
		if r.Scope == "" {
			r.Scope = ScopeGlobal
		}
		if r.Mode == "" {
			r.Mode = types.ModeInstead
		}
		if r.SourceOrder == 0 {
			r.SourceOrder = b.count
		}
		b.count++
		b.scoped[r.Scope] = append(b.scoped[r.Scope], r)
	}
}

// Len returns the number of rules in the book.
func (b *Book) Len() int { return b.count }

// Evaluate returns the winning rule for mode, or nil when none matches.
func (b *Book) Evaluate(ctx *actions.Context, mode string) *types.RuleDef {
	ectx := b.effectsContext(ctx)
	for _, bucket := range b.collect(ctx) {
		if winner := filterRankSelect(bucket, mode, ectx, ctx.Command); winner != nil {
			return winner
		}
	}
	return nil
}

// Intercept implements actions.Interceptor. A matching before-rule vetoes
// with its say text as the message; otherwise an instead-rule replaces the
// action; otherwise an after-rule runs once the action has succeeded.
func (b *Book) Intercept(ctx *actions.Context, _ actions.Action) actions.Verdict {
	if r := b.Evaluate(ctx, types.ModeBefore); r != nil {
		return actions.Verdict{
			Kind:    actions.Veto,
			Reason:  ReasonVetoed,
			Message: b.sayText(ctx, r.Effects),
		}
	}
	if r := b.Evaluate(ctx, types.ModeInstead); r != nil {
		effs := r.Effects
		var evs []types.SemanticEvent
		return actions.Verdict{
			Kind: actions.Substitute,
			Execute: func(c *actions.Context) (actions.Outcome, error) {
				var err error
				evs, err = effects.Apply(b.effectsContext(c), effs)
				return actions.Outcome{}, err
			},
			Report: func(*actions.Context, actions.Outcome) []types.SemanticEvent {
				return evs
			},
		}
	}
	if r := b.Evaluate(ctx, types.ModeAfter); r != nil {
		effs := r.Effects
		return actions.Verdict{
			Kind: actions.Augment,
			After: func(c *actions.Context) ([]types.SemanticEvent, error) {
				return effects.Apply(b.effectsContext(c), effs)
			},
		}
	}
	return actions.Verdict{Kind: actions.Continue}
}

func (b *Book) effectsContext(ctx *actions.Context) effects.Context {
	return effects.Context{
		World:  ctx.World,
		Traits: b.Traits,
		Action: ctx.Command.Action,
		Actor:  ctx.Actor(),
		Object: ctx.Target(),
		Target: ctx.Secondary(),
	}
}

func (b *Book) sayText(ctx *actions.Context, effs []types.Effect) string {
	ectx := b.effectsContext(ctx)
	var lines []string
	for _, eff := range effs {
		if eff.Type != "say" {
			continue
		}
		text, _ := eff.Params["text"].(string)
		lines = append(lines, effects.Interpolate(ectx, text))
	}
	return strings.Join(lines, "\n")
}

// collect gathers candidate rules in resolution order:
// 1. Room-local rules
// 2. Target (indirect object) rules
// 3. Object (direct object) rules
// 4. Global rules
func (b *Book) collect(ctx *actions.Context) [][]types.RuleDef {
	var buckets [][]types.RuleDef
	add := func(scope string) {
		if rules := b.scoped[scope]; len(rules) > 0 {
			buckets = append(buckets, rules)
		}
	}

	if room, ok := behavior.Room.NearestRoom(ctx.World, ctx.Actor()); ok {
		add(RoomScope(room))
	}
	target, object := ctx.Secondary(), ctx.Target()
	if target != types.Nowhere {
		add(EntityScope(target))
	}
	if object != types.Nowhere && object != target {
		add(EntityScope(object))
	}
	add(ScopeGlobal)
	return buckets
}

// filterRankSelect filters a bucket of rules, ranks them, and returns the
// top-ranked matching rule, or nil if none match.
func filterRankSelect(rules []types.RuleDef, mode string, ectx effects.Context, cmd types.ValidatedCommand) *types.RuleDef {
	var candidates []types.RuleDef
	for _, rule := range rules {
		if rule.Mode != mode {
			continue
		}
		if !MatchesCommand(rule.When, ectx.World, cmd) {
			continue
		}
		if !EvalAllConditions(rule.Conditions, ectx) {
			continue
		}
		candidates = append(candidates, rule)
	}
	if len(candidates) == 0 {
		return nil
	}

	// Specificity (desc) → priority (desc) → source order (asc).
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := Specificity(candidates[i]), Specificity(candidates[j])
		if si != sj {
			return si > sj
		}
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].SourceOrder < candidates[j].SourceOrder
	})
	return &candidates[0]
}
