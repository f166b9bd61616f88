package parser

import "github.com/nathoo/taleforge/engine/vocab"

// Tagged is a token with every role the vocabulary allows it. A token with
// no roles is unknown; it is kept so it can be reported back to the player.
type Tagged struct {
	Word  string
	Roles []vocab.Role
}

// Unknown reports whether the vocabulary has never seen the word.
func (t Tagged) Unknown() bool {
	return len(t.Roles) == 0 && t.Word != PossessiveMarker
}

// Is reports whether the token can play role.
func (t Tagged) Is(role vocab.Role) bool {
	for _, r := range t.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Tag looks every token up in the vocabulary.
func Tag(reg *vocab.Registry, tokens []string) []Tagged {
	out := make([]Tagged, len(tokens))
	for i, tok := range tokens {
		out[i] = Tagged{Word: tok, Roles: reg.Roles(tok)}
	}
	return out
}
