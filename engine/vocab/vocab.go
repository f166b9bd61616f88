// Package vocab is the vocabulary registry: surface word forms mapped to
// grammatical roles, and verb forms mapped many-to-many onto (action, syntax)
// pairs. It is built from the language pack at startup and may grow during
// play when stories register new verbs.
package vocab

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/nathoo/taleforge/types"
)

// Role is a grammatical role a word can play.
type Role string

const (
	RoleVerb        Role = "verb"
	RoleNoun        Role = "noun"
	RoleAdjective   Role = "adjective"
	RolePreposition Role = "preposition"
	RoleArticle     Role = "article"
	RoleDirection   Role = "direction"
	RolePronoun     Role = "pronoun"
	RolePossessive  Role = "possessive"
)

// Entry is one (action, syntax) reading of a verb form.
type Entry struct {
	Action  string
	Form    string
	Syntax  types.Syntax
	Pattern string // canonical pattern text, e.g. "VERB OBJ in|into OBJ"
}

// Registry holds the vocabulary. The zero value is not usable; call New.
type Registry struct {
	verbs           map[string][]Entry
	roles           map[string]map[Role]bool
	directions      map[string]string
	directionAction string
	maxVerbWords    int
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		verbs:        map[string][]Entry{},
		roles:        map[string]map[Role]bool{},
		directions:   map[string]string{},
		maxVerbWords: 1,
	}
}

// Normalize folds case, composes Unicode and collapses whitespace. Every
// word stored in or looked up from the registry goes through it.
func Normalize(s string) string {
	s = cases.Fold().String(norm.NFC.String(s))
	return strings.Join(strings.Fields(s), " ")
}

// Register adds forms of action under each syntax pattern. With no patterns
// the action is registered as "VERB OBJ". Registering the same action, form
// and pattern again is a no-op. A registration that fails leaves the
// registry unchanged.
func (r *Registry) Register(action string, forms []string, patterns ...string) error {
	v, err := prepare(action, forms, patterns)
	if err != nil {
		return err
	}
	for _, form := range v.forms {
		for _, syn := range v.syntaxes {
			r.add(Entry{Action: action, Form: form, Syntax: syn, Pattern: FormatSyntax(syn)})
		}
		n := len(strings.Fields(form))
		if n == 1 {
			r.addRole(form, RoleVerb)
		}
		r.maxVerbWords = max(r.maxVerbWords, n)
	}
	return nil
}

// CheckVerb reports the error Register would return for the same
// arguments, without touching any registry.
func CheckVerb(action string, forms []string, patterns ...string) error {
	_, err := prepare(action, forms, patterns)
	return err
}

// verbSpec is a registration with its forms normalized and its patterns
// parsed.
type verbSpec struct {
	forms    []string
	syntaxes []types.Syntax
}

func prepare(action string, forms, patterns []string) (verbSpec, error) {
	if action == "" {
		return verbSpec{}, fmt.Errorf("register verb: empty action")
	}
	if len(forms) == 0 {
		return verbSpec{}, fmt.Errorf("register verb %q: no surface forms", action)
	}
	if len(patterns) == 0 {
		patterns = []string{"VERB OBJ"}
	}

	v := verbSpec{
		forms:    make([]string, 0, len(forms)),
		syntaxes: make([]types.Syntax, 0, len(patterns)),
	}
	for _, p := range patterns {
		syn, err := ParseSyntax(p)
		if err != nil {
			return verbSpec{}, fmt.Errorf("register verb %q: %w", action, err)
		}
		v.syntaxes = append(v.syntaxes, syn)
	}
	for _, raw := range forms {
		form := Normalize(raw)
		if form == "" {
			return verbSpec{}, fmt.Errorf("register verb %q: empty surface form", action)
		}
		v.forms = append(v.forms, form)
	}
	return v, nil
}

func (r *Registry) add(e Entry) {
	for _, have := range r.verbs[e.Form] {
		if have.Action == e.Action && have.Pattern == e.Pattern {
			return
		}
	}
	r.verbs[e.Form] = append(r.verbs[e.Form], e)
	for _, p := range e.Syntax.Prepositions {
		r.addRole(p, RolePreposition)
	}
}

// Lookup returns every (action, syntax) reading of a verb form, in
// registration order.
func (r *Registry) Lookup(form string) []Entry {
	entries := r.verbs[Normalize(form)]
	if len(entries) == 0 {
		return nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// IsVerb reports whether form has at least one reading.
func (r *Registry) IsVerb(form string) bool {
	return len(r.verbs[Normalize(form)]) > 0
}

// MaxVerbWords is the word count of the longest registered verb form.
func (r *Registry) MaxVerbWords() int { return r.maxVerbWords }

// AddWords tags words with a role. Words may hold several roles.
func (r *Registry) AddWords(role Role, words ...string) {
	for _, w := range words {
		if w = Normalize(w); w != "" {
			r.addRole(w, role)
		}
	}
}

func (r *Registry) addRole(word string, role Role) {
	set, ok := r.roles[word]
	if !ok {
		set = map[Role]bool{}
		r.roles[word] = set
	}
	set[role] = true
}

// Roles returns the roles of a single word, sorted.
func (r *Registry) Roles(word string) []Role {
	set := r.roles[Normalize(word)]
	out := make([]Role, 0, len(set))
	for role := range set {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasRole reports whether word can play role.
func (r *Registry) HasRole(word string, role Role) bool {
	return r.roles[Normalize(word)][role]
}

// AddDirection registers a compass direction and its abbreviations.
func (r *Registry) AddDirection(canonical string, forms ...string) {
	canonical = Normalize(canonical)
	for _, f := range append([]string{canonical}, forms...) {
		f = Normalize(f)
		r.directions[f] = canonical
		r.addRole(f, RoleDirection)
	}
}

// Direction maps a direction word to its canonical name.
func (r *Registry) Direction(word string) (string, bool) {
	d, ok := r.directions[Normalize(word)]
	return d, ok
}

// SetDirectionAction names the action a bare direction ("north") stands for.
func (r *Registry) SetDirectionAction(action string) { r.directionAction = action }

// DirectionAction returns the action set by SetDirectionAction.
func (r *Registry) DirectionAction() string { return r.directionAction }

// Actions returns every action with at least one verb form, sorted.
func (r *Registry) Actions() []string {
	seen := map[string]bool{}
	for _, entries := range r.verbs {
		for _, e := range entries {
			seen[e.Action] = true
		}
	}
	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Forms returns the verb forms registered for action, sorted.
func (r *Registry) Forms(action string) []string {
	var out []string
	for form, entries := range r.verbs {
		for _, e := range entries {
			if e.Action == action {
				out = append(out, form)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
