package parser

import (
	"slices"

	"github.com/nathoo/taleforge/engine/vocab"
	"github.com/nathoo/taleforge/types"
)

// Analyze matches the phrase sequence against every reading of the verb
// and returns one candidate per matching (action, syntax). The second result
// reports whether some reading wanted an object the input did not supply.
func Analyze(entries []vocab.Entry, verb string, phrases []Phrase, tokens []string) ([]types.ParsedCommand, bool) {
	var (
		out     []types.ParsedCommand
		missing bool
	)
	for _, e := range entries {
		cmd, ok, short := match(e.Syntax, phrases)
		if short {
			missing = true
		}
		if !ok {
			continue
		}
		cmd.Action = e.Action
		cmd.Verb = verb
		cmd.Syntax = e.Syntax
		cmd.Tokens = tokens
		if !containsCandidate(out, cmd) {
			out = append(out, cmd)
		}
	}
	return out, missing
}

// match fits phrases to one syntax. short is set when the phrases are a
// strict prefix of what the syntax needs.
func match(syn types.Syntax, ph []Phrase) (cmd types.ParsedCommand, ok, short bool) {
	obj := func(p Phrase) (*types.NounPhrase, bool) {
		if p.Kind == PhrasePrep || p.NP == nil {
			return nil, false
		}
		return p.NP, true
	}
	prep := func(p Phrase) bool {
		return p.Kind == PhrasePrep && slices.Contains(syn.Prepositions, p.Word)
	}

	switch syn.Shape {
	case types.ShapeVerb:
		return cmd, len(ph) == 0, false

	case types.ShapeVerbDir:
		if len(ph) == 1 && ph[0].Kind == PhraseDir {
			cmd.Direction = ph[0].Word
			return cmd, true, false
		}
		return cmd, false, len(ph) == 0

	case types.ShapeVerbObj:
		if len(ph) == 1 {
			cmd.Direct, ok = obj(ph[0])
			return cmd, ok, false
		}
		return cmd, false, len(ph) == 0

	case types.ShapeVerbPrepObj:
		if len(ph) == 2 && prep(ph[0]) {
			cmd.Preposition = ph[0].Word
			cmd.Direct, ok = obj(ph[1])
			return cmd, ok, false
		}
		return cmd, false, len(ph) == 0 || (len(ph) == 1 && prep(ph[0]))

	case types.ShapeVerbObjPrepObj:
		if len(ph) == 3 && prep(ph[1]) {
			direct, ok1 := obj(ph[0])
			indirect, ok2 := obj(ph[2])
			if ok1 && ok2 {
				cmd.Direct, cmd.Preposition, cmd.Indirect = direct, ph[1].Word, indirect
				return cmd, true, false
			}
			return cmd, false, false
		}
		if len(ph) == 2 && prep(ph[1]) {
			return cmd, false, true
		}
		return cmd, false, len(ph) == 0
	}
	return cmd, false, false
}

func containsCandidate(cands []types.ParsedCommand, c types.ParsedCommand) bool {
	for _, have := range cands {
		if have.Action == c.Action && have.Syntax.Shape == c.Syntax.Shape && have.Preposition == c.Preposition {
			return true
		}
	}
	return false
}
