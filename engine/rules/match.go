package rules

import (
	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/types"
)

// MatchesCommand checks if a rule's When criteria match the command.
func MatchesCommand(when types.MatchCriteria, w *world.Store, cmd types.ValidatedCommand) bool {
	if when.Action != cmd.Action {
		return false
	}
	if when.Object != "" && when.Object != cmd.Target {
		return false
	}
	if when.Target != "" && when.Target != cmd.Secondary {
		return false
	}
	if when.ObjectTrait != "" && (cmd.Target == types.Nowhere || !w.HasTrait(cmd.Target, when.ObjectTrait)) {
		return false
	}
	return true
}

// Specificity returns a numeric score for ranking rules.
// Higher is more specific.
func Specificity(rule types.RuleDef) int {
	score := 0
	if rule.When.Target != "" {
		score += 4
	}
	if rule.When.Object != "" {
		score += 2
	}
	if rule.When.ObjectTrait != "" {
		score++
	}
	return score
}
