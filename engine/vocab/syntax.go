package vocab

import (
	"fmt"
	"strings"

	"github.com/nathoo/taleforge/types"
)

// ParseSyntax reads a pattern such as "VERB OBJ in|into OBJ". The first
// word is always VERB; OBJ may carry a required capability ("OBJ:openable");
// DIR stands for a direction; lower-case words are alternative prepositions
// separated by "|".
func ParseSyntax(pattern string) (types.Syntax, error) {
	words := strings.Fields(pattern)
	if len(words) == 0 || words[0] != "VERB" {
		return types.Syntax{}, fmt.Errorf("syntax %q: must start with VERB", pattern)
	}
	words = words[1:]

	var syn types.Syntax
	parseObj := func(w string) bool {
		name, trait, hasTrait := strings.Cut(w, ":")
		if name != "OBJ" {
			return false
		}
		if hasTrait {
			syn.ObjectTrait = trait
		}
		return true
	}
	parsePrep := func(w string) bool {
		if w != strings.ToLower(w) {
			return false
		}
		for _, p := range strings.Split(w, "|") {
			if p == "" {
				return false
			}
			syn.Prepositions = append(syn.Prepositions, p)
		}
		return true
	}

	switch {
	case len(words) == 0:
		syn.Shape = types.ShapeVerb
	case len(words) == 1 && words[0] == "DIR":
		syn.Shape = types.ShapeVerbDir
	case len(words) == 1 && parseObj(words[0]):
		syn.Shape = types.ShapeVerbObj
	case len(words) == 2 && parsePrep(words[0]) && parseObj(words[1]):
		syn.Shape = types.ShapeVerbPrepObj
	case len(words) == 3 && words[2] == "OBJ" && parseObj(words[0]) && parsePrep(words[1]):
		syn.Shape = types.ShapeVerbObjPrepObj
	default:
		return types.Syntax{}, fmt.Errorf("syntax %q: unrecognized pattern", pattern)
	}
	return syn, nil
}

// FormatSyntax renders a syntax back into pattern text.
func FormatSyntax(syn types.Syntax) string {
	obj := "OBJ"
	if syn.ObjectTrait != "" {
		obj += ":" + syn.ObjectTrait
	}
	preps := strings.Join(syn.Prepositions, "|")
	switch syn.Shape {
	case types.ShapeVerbDir:
		return "VERB DIR"
	case types.ShapeVerbObj:
		return "VERB " + obj
	case types.ShapeVerbPrepObj:
		return "VERB " + preps + " OBJ"
	case types.ShapeVerbObjPrepObj:
		return "VERB " + obj + " " + preps + " OBJ"
	}
	return "VERB"
}
