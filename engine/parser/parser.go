// Package parser turns raw command text into syntactic command candidates.
// It runs four stages (tokenize, tag, phrase, grammar) over the vocabulary
// registry only; it never looks at the world, so the same text and the same
// vocabulary always give the same candidates.
package parser

import (
	"fmt"
	"strings"

	"github.com/nathoo/taleforge/engine/vocab"
	"github.com/nathoo/taleforge/types"
)

// Parse failure reasons.
const (
	ReasonEmpty         = "empty"
	ReasonNoVerb        = "no-verb"
	ReasonUnknownWord   = "unknown-word"
	ReasonMissingObject = "missing-object"
	ReasonNoSyntax      = "no-syntax"
)

// ParseError reports input the grammar could not read. Tokens holds the
// offending word(s).
type ParseError struct {
	Reason string
	Tokens []string
	Verb   string
}

func (e *ParseError) Error() string {
	switch e.Reason {
	case ReasonEmpty:
		return "parse: empty input"
	case ReasonNoVerb:
		return fmt.Sprintf("parse: no verb in %q", strings.Join(e.Tokens, " "))
	case ReasonUnknownWord:
		return fmt.Sprintf("parse: unknown word %q", strings.Join(e.Tokens, " "))
	case ReasonMissingObject:
		return fmt.Sprintf("parse: %q needs an object", e.Verb)
	}
	return fmt.Sprintf("parse: no pattern of %q fits %q", e.Verb, strings.Join(e.Tokens, " "))
}

// Parse returns every candidate reading of input. Verb forms are matched
// greedily: the longest form that yields a candidate wins. A lone direction
// word becomes a candidate for the registry's direction action.
func Parse(reg *vocab.Registry, input string) ([]types.ParsedCommand, error) {
	tokens := Tokenize(input)
	if len(tokens) == 0 {
		return nil, &ParseError{Reason: ReasonEmpty}
	}
	tagged := Tag(reg, tokens)

	var firstErr *ParseError
	for n := min(reg.MaxVerbWords(), len(tokens)); n >= 1; n-- {
		verb := strings.Join(tokens[:n], " ")
		entries := reg.Lookup(verb)
		if len(entries) == 0 {
			continue
		}

		cands, perr := analyzeVerb(reg, entries, verb, tagged, n, tokens)
		if perr == nil {
			return finish(cands), nil
		}
		if firstErr == nil {
			firstErr = perr
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	if cand, ok := bareDirection(reg, tokens); ok {
		return finish([]types.ParsedCommand{cand}), nil
	}
	return nil, &ParseError{Reason: ReasonNoVerb, Tokens: tokens[:1]}
}

func analyzeVerb(reg *vocab.Registry, entries []vocab.Entry, verb string, tagged []Tagged, n int, tokens []string) ([]types.ParsedCommand, *ParseError) {
	phrases, unknown := Phrases(reg, tagged, n)
	if unknown != "" {
		return nil, &ParseError{Reason: ReasonUnknownWord, Tokens: []string{unknown}, Verb: verb}
	}
	cands, missing := Analyze(entries, verb, phrases, tokens)
	if len(cands) > 0 {
		return cands, nil
	}
	if missing {
		return nil, &ParseError{Reason: ReasonMissingObject, Tokens: tokens, Verb: verb}
	}
	return nil, &ParseError{Reason: ReasonNoSyntax, Tokens: tokens[n:], Verb: verb}
}

func bareDirection(reg *vocab.Registry, tokens []string) (types.ParsedCommand, bool) {
	if len(tokens) != 1 || reg.DirectionAction() == "" {
		return types.ParsedCommand{}, false
	}
	dir, ok := reg.Direction(tokens[0])
	if !ok {
		return types.ParsedCommand{}, false
	}
	return types.ParsedCommand{
		Action:    reg.DirectionAction(),
		Syntax:    types.Syntax{Shape: types.ShapeVerbDir},
		Direction: dir,
		Tokens:    tokens,
	}, true
}

func finish(cands []types.ParsedCommand) []types.ParsedCommand {
	conf := 1 / float64(len(cands))
	for i := range cands {
		cands[i].Confidence = conf
		cands[i].Ambiguous = len(cands) > 1
	}
	return cands
}
