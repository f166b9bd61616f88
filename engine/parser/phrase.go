package parser

import (
	"strings"

	"github.com/nathoo/taleforge/engine/vocab"
	"github.com/nathoo/taleforge/types"
)

// PhraseKind classifies one segment of the words after the verb.
type PhraseKind int

const (
	PhraseNoun PhraseKind = iota
	PhrasePrep
	PhraseDir
)

func (k PhraseKind) String() string {
	switch k {
	case PhrasePrep:
		return "PREP"
	case PhraseDir:
		return "DIR"
	}
	return "NP"
}

// Phrase is one segment: a noun phrase, a preposition, or a bare direction.
// Word holds the preposition or canonical direction; NP is set for noun
// phrases and for directions, which may also serve as objects.
type Phrase struct {
	Kind PhraseKind
	Word string
	NP   *types.NounPhrase
}

// Phrases groups the tagged tokens from index start on. Prepositions split
// the run into segments; each remaining segment becomes a noun phrase made
// of an optional possessive, optional articles, adjectives and a head noun.
// The first unknown word inside a noun phrase is returned as unknown.
func Phrases(reg *vocab.Registry, tagged []Tagged, start int) ([]Phrase, string) {
	var (
		out     []Phrase
		segFrom = start
	)
	flush := func(end int) string {
		if end <= segFrom {
			return ""
		}
		p, unknown := nounPhrase(reg, tagged, segFrom, end)
		if unknown != "" {
			return unknown
		}
		// Articles alone ("take the") are no phrase at all.
		if p.NP.Text != "" || p.NP.Pronoun != "" {
			out = append(out, p)
		}
		return ""
	}

	for i := start; i < len(tagged); i++ {
		t := tagged[i]
		if !t.Is(vocab.RolePreposition) {
			continue
		}
		if unknown := flush(i); unknown != "" {
			return nil, unknown
		}
		out = append(out, Phrase{Kind: PhrasePrep, Word: t.Word})
		segFrom = i + 1
	}
	if unknown := flush(len(tagged)); unknown != "" {
		return nil, unknown
	}
	return out, ""
}

func nounPhrase(reg *vocab.Registry, tagged []Tagged, from, to int) (Phrase, string) {
	np := &types.NounPhrase{Start: from, End: to}
	words := tagged[from:to]

	if len(words) == 1 {
		w := words[0]
		if dir, ok := reg.Direction(w.Word); ok {
			np.Text, np.Noun = w.Word, w.Word
			return Phrase{Kind: PhraseDir, Word: dir, NP: np}, ""
		}
		if w.Is(vocab.RolePronoun) {
			np.Pronoun = w.Word
			np.Text = w.Word
			return Phrase{Kind: PhraseNoun, NP: np}, ""
		}
	}

	// Possessives: "my lamp" or "the guard's key".
	if len(words) > 1 && words[0].Is(vocab.RolePossessive) {
		np.Possessive = words[0].Word
		words = words[1:]
	} else {
		for i, w := range words {
			if w.Word == PossessiveMarker && i > 0 && i < len(words)-1 {
				for _, o := range words[:i] {
					if o.Unknown() {
						return Phrase{}, o.Word
					}
				}
				np.Possessive = strings.Join(stripArticles(&types.NounPhrase{}, words[:i]), " ")
				words = words[i+1:]
				break
			}
		}
	}

	body := stripArticles(np, words)
	for _, w := range words {
		if w.Unknown() {
			return Phrase{}, w.Word
		}
	}
	if len(body) == 0 {
		return Phrase{Kind: PhraseNoun, NP: np}, ""
	}
	np.Noun = body[len(body)-1]
	if len(body) > 1 {
		np.Adjectives = append([]string(nil), body[:len(body)-1]...)
	}
	np.Text = strings.Join(body, " ")
	return Phrase{Kind: PhraseNoun, NP: np}, ""
}

// stripArticles drops articles anywhere in the phrase, remembering the
// first one on np.
func stripArticles(np *types.NounPhrase, words []Tagged) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w.Is(vocab.RoleArticle) && !w.Is(vocab.RoleNoun) {
			if np.Article == "" {
				np.Article = w.Word
			}
			continue
		}
		out = append(out, w.Word)
	}
	return out
}
