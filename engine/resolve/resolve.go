// Package resolve binds the noun phrases of parsed command candidates to
// entities in the actor's scope.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/engine/vocab"
	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/types"
)

// Match scores.
const (
	ScorePartial = 1
	ScoreAlias   = 2
	ScoreExact   = 3
)

// AmbiguityError indicates several in-scope entities matched equally well.
type AmbiguityError struct {
	Phrase     string
	Candidates []types.EntityID
}

func (e *AmbiguityError) Error() string {
	ids := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		ids[i] = string(c)
	}
	return fmt.Sprintf("which %s? (%s)", e.Phrase, strings.Join(ids, ", "))
}

// OutOfScopeError indicates the phrase names something that exists but is
// not within reach of the actor.
type OutOfScopeError struct {
	Phrase string
}

func (e *OutOfScopeError) Error() string {
	return fmt.Sprintf("you don't see %q here", e.Phrase)
}

// NotFoundError indicates nothing in the world matches the phrase.
type NotFoundError struct {
	Phrase string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("there is no %q", e.Phrase)
}

// Request is the input to Resolve.
type Request struct {
	Actor      types.EntityID
	Candidates []types.ParsedCommand
	RawText    string
	It         types.EntityID // last referent, for "it"
}

var selfPronouns = map[string]bool{"me": true, "self": true, "myself": true}

// sourcePrepositions restrict the direct object to the indirect one's
// contents ("take coin from box").
var sourcePrepositions = map[string]bool{"from": true, "off": true}

// Resolve binds the first candidate whose phrases all resolve. A candidate
// whose syntax requires an object capability the target lacks is passed
// over in favour of later candidates; if every candidate is passed over the
// first such binding is returned so validation can explain the refusal.
// When nothing binds, the most specific failure is returned: ambiguity,
// then out-of-scope, then not-found.
func Resolve(w *world.Store, req Request) (types.ValidatedCommand, error) {
	if len(req.Candidates) == 0 {
		return types.ValidatedCommand{}, errors.New("resolve: no candidates")
	}
	r := &resolver{w: w, req: req, scope: Scope(w, req.Actor)}

	var (
		fallback *types.ValidatedCommand
		best     error
	)
	for _, cand := range req.Candidates {
		vc, err := r.bind(cand)
		if err != nil {
			best = moreSpecific(best, err)
			continue
		}
		if trait := cand.Syntax.ObjectTrait; trait != "" && vc.Target != types.Nowhere && !w.HasTrait(vc.Target, trait) {
			if fallback == nil {
				fallback = &vc
			}
			continue
		}
		return vc, nil
	}
	if fallback != nil {
		return *fallback, nil
	}
	return types.ValidatedCommand{}, best
}

type resolver struct {
	w     *world.Store
	req   Request
	scope []types.EntityID
}

func (r *resolver) bind(cand types.ParsedCommand) (types.ValidatedCommand, error) {
	vc := types.ValidatedCommand{
		Action:      cand.Action,
		Actor:       r.req.Actor,
		Preposition: cand.Preposition,
		Direction:   cand.Direction,
		RawText:     r.req.RawText,
		Parsed:      cand,
	}

	var err error
	if cand.Indirect != nil {
		if vc.Secondary, err = r.phrase(cand.Indirect, r.scope); err != nil {
			return vc, err
		}
	}
	if cand.Direct != nil {
		pool := r.scope
		if vc.Secondary != types.Nowhere && sourcePrepositions[cand.Preposition] {
			pool = r.within(vc.Secondary, r.scope)
		}
		if vc.Target, err = r.phrase(cand.Direct, pool); err != nil {
			return vc, err
		}
	}
	return vc, nil
}

// phrase resolves one noun phrase against pool, a subset of scope.
func (r *resolver) phrase(np *types.NounPhrase, pool []types.EntityID) (types.EntityID, error) {
	if np.Pronoun != "" {
		return r.pronoun(np, pool)
	}

	switch {
	case np.Possessive == "my":
		pool = r.within(r.req.Actor, pool)
	case np.Possessive != "":
		ownerWords := strings.Fields(np.Possessive)
		owner, err := r.phrase(&types.NounPhrase{
			Text:       np.Possessive,
			Noun:       ownerWords[len(ownerWords)-1],
			Adjectives: ownerWords[:len(ownerWords)-1],
		}, r.scope)
		if err != nil {
			return types.Nowhere, err
		}
		pool = r.within(owner, pool)
	}

	switch matches := bestMatches(r.w, np, pool); len(matches) {
	case 0:
	case 1:
		return matches[0], nil
	default:
		return types.Nowhere, &AmbiguityError{Phrase: np.Text, Candidates: matches}
	}

	if elsewhere := bestMatches(r.w, np, r.w.All()); len(elsewhere) > 0 {
		return types.Nowhere, &OutOfScopeError{Phrase: np.Text}
	}
	return types.Nowhere, &NotFoundError{Phrase: np.Text}
}

func (r *resolver) pronoun(np *types.NounPhrase, pool []types.EntityID) (types.EntityID, error) {
	if selfPronouns[np.Pronoun] {
		return r.req.Actor, nil
	}
	if r.req.It == types.Nowhere || !r.w.Exists(r.req.It) {
		return types.Nowhere, &NotFoundError{Phrase: np.Pronoun}
	}
	for _, id := range pool {
		if id == r.req.It {
			return id, nil
		}
	}
	return types.Nowhere, &OutOfScopeError{Phrase: np.Pronoun}
}

// within filters pool down to descendants of owner.
func (r *resolver) within(owner types.EntityID, pool []types.EntityID) []types.EntityID {
	var out []types.EntityID
	for _, id := range pool {
		if r.w.IsAncestor(owner, id) {
			out = append(out, id)
		}
	}
	return out
}

// bestMatches returns every entity in pool reaching the highest score.
func bestMatches(w *world.Store, np *types.NounPhrase, pool []types.EntityID) []types.EntityID {
	best := 0
	var out []types.EntityID
	for _, id := range pool {
		s := Score(w, id, np)
		switch {
		case s == 0 || s < best:
		case s > best:
			best = s
			out = []types.EntityID{id}
		default:
			out = append(out, id)
		}
	}
	return out
}

// Score rates how well an entity answers to a noun phrase: exact name or
// id 3, alias 2, partial or adjective-filtered 1, no match 0.
func Score(w *world.Store, id types.EntityID, np *types.NounPhrase) int {
	text := vocab.Normalize(np.Text)
	if text == "" {
		return 0
	}
	name, aliases, adjectives := names(w, id)

	if text == name || strings.ReplaceAll(text, " ", "_") == strings.ToLower(string(id)) {
		return ScoreExact
	}
	for _, a := range aliases {
		if text == a {
			return ScoreAlias
		}
	}

	heads := map[string]bool{}
	words := map[string]bool{}
	for _, n := range append([]string{name}, aliases...) {
		for _, f := range strings.Fields(n) {
			heads[f] = true
			words[f] = true
		}
	}
	for _, a := range adjectives {
		words[a] = true
	}
	if !heads[vocab.Normalize(np.Noun)] {
		return 0
	}
	for _, adj := range np.Adjectives {
		if !words[vocab.Normalize(adj)] {
			return 0
		}
	}
	return ScorePartial
}

func names(w *world.Store, id types.EntityID) (string, []string, []string) {
	if t, ok := world.TraitOf[*traits.Identity](w, id); ok {
		aliases := make([]string, len(t.Aliases))
		for i, a := range t.Aliases {
			aliases[i] = vocab.Normalize(a)
		}
		adjectives := make([]string, len(t.Adjectives))
		for i, a := range t.Adjectives {
			adjectives[i] = vocab.Normalize(a)
		}
		return vocab.Normalize(t.Name), aliases, adjectives
	}
	if e, ok := w.Entity(id); ok {
		return vocab.Normalize(e.Name), nil, nil
	}
	return "", nil, nil
}

// moreSpecific keeps whichever failure tells the player more.
func moreSpecific(have, next error) error {
	if have == nil || rank(next) > rank(have) {
		return next
	}
	return have
}

func rank(err error) int {
	var (
		amb *AmbiguityError
		oos *OutOfScopeError
		nf  *NotFoundError
	)
	switch {
	case errors.As(err, &amb):
		return 3
	case errors.As(err, &oos):
		return 2
	case errors.As(err, &nf):
		return 1
	}
	return 0
}
