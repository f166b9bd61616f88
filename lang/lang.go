// Package lang loads language packs: the verb forms, function words,
// directions and message templates of one natural language. English is
// embedded; a YAML file may extend or override it.
package lang

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nathoo/taleforge/engine/vocab"
)

//go:embed en.yaml
var english []byte

// Verb is one verb registration: forms of an action under syntax patterns.
type Verb struct {
	Action string   `yaml:"action"`
	Forms  []string `yaml:"forms"`
	Syntax []string `yaml:"syntax"`
}

// Provider is the language data the parser pipeline is built from.
type Provider interface {
	Verbs() []Verb
	Prepositions() []string
	Articles() []string
	Pronouns() []string
	Possessives() []string
	Directions() map[string][]string
	DirectionAction() string
}

// Pack is a language pack as read from YAML.
type Pack struct {
	Language       string              `yaml:"language"`
	VerbList       []Verb              `yaml:"verbs"`
	PrepList       []string            `yaml:"prepositions"`
	ArticleList    []string            `yaml:"articles"`
	PronounList    []string            `yaml:"pronouns"`
	PossessiveList []string            `yaml:"possessives"`
	DirectionForms map[string][]string `yaml:"directions"`
	DirectionVerb  string              `yaml:"direction_action"`
	Messages       Messages            `yaml:"messages"`
}

func (p *Pack) Verbs() []Verb                   { return p.VerbList }
func (p *Pack) Prepositions() []string          { return p.PrepList }
func (p *Pack) Articles() []string              { return p.ArticleList }
func (p *Pack) Pronouns() []string              { return p.PronounList }
func (p *Pack) Possessives() []string           { return p.PossessiveList }
func (p *Pack) Directions() map[string][]string { return p.DirectionForms }
func (p *Pack) DirectionAction() string         { return p.DirectionVerb }

// English returns the embedded English pack.
func English() (*Pack, error) {
	p, err := Parse(english)
	if err != nil {
		return nil, fmt.Errorf("embedded english pack: %w", err)
	}
	return p, nil
}

// Parse reads and validates a pack.
func Parse(data []byte) (*Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse language pack: %w", err)
	}
	if err := validate(&p); err != nil {
		return nil, fmt.Errorf("parse language pack: %w", err)
	}
	return &p, nil
}

// LoadFile reads a pack from disk and lays it over base: verbs and word
// lists are added, directions and messages replace those of the same name.
func LoadFile(path string, base *Pack) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading language pack: %w", err)
	}
	var over Pack
	if err := yaml.Unmarshal(data, &over); err != nil {
		return nil, fmt.Errorf("loading language pack %s: %w", path, err)
	}
	merged := base.merge(&over)
	if err := validate(merged); err != nil {
		return nil, fmt.Errorf("loading language pack %s: %w", path, err)
	}
	return merged, nil
}

func (p *Pack) merge(over *Pack) *Pack {
	out := &Pack{
		Language:       p.Language,
		VerbList:       append(append([]Verb(nil), p.VerbList...), over.VerbList...),
		PrepList:       append(append([]string(nil), p.PrepList...), over.PrepList...),
		ArticleList:    append(append([]string(nil), p.ArticleList...), over.ArticleList...),
		PronounList:    append(append([]string(nil), p.PronounList...), over.PronounList...),
		PossessiveList: append(append([]string(nil), p.PossessiveList...), over.PossessiveList...),
		DirectionForms: map[string][]string{},
		DirectionVerb:  p.DirectionVerb,
		Messages:       Messages{},
	}
	if over.Language != "" {
		out.Language = over.Language
	}
	if over.DirectionVerb != "" {
		out.DirectionVerb = over.DirectionVerb
	}
	for _, src := range []map[string][]string{p.DirectionForms, over.DirectionForms} {
		for k, v := range src {
			out.DirectionForms[k] = v
		}
	}
	for _, src := range []Messages{p.Messages, over.Messages} {
		for k, v := range src {
			out.Messages[k] = v
		}
	}
	return out
}

func validate(p *Pack) error {
	if strings.TrimSpace(p.Language) == "" {
		return fmt.Errorf("language is required")
	}
	if len(p.VerbList) == 0 {
		return fmt.Errorf("at least one verb is required")
	}
	for i, v := range p.VerbList {
		if strings.TrimSpace(v.Action) == "" {
			return fmt.Errorf("verb %d: action is required", i)
		}
		if len(v.Forms) == 0 {
			return fmt.Errorf("verb %d (%s): forms are required", i, v.Action)
		}
		for _, s := range v.Syntax {
			if _, err := vocab.ParseSyntax(s); err != nil {
				return fmt.Errorf("verb %d (%s): %w", i, v.Action, err)
			}
		}
	}
	if len(p.DirectionForms) > 0 && p.DirectionVerb == "" {
		return fmt.Errorf("direction_action is required when directions are defined")
	}
	return nil
}

// Install registers the provider's vocabulary into reg.
func Install(reg *vocab.Registry, p Provider) error {
	for _, v := range p.Verbs() {
		if err := reg.Register(v.Action, v.Forms, v.Syntax...); err != nil {
			return err
		}
	}
	reg.AddWords(vocab.RolePreposition, p.Prepositions()...)
	reg.AddWords(vocab.RoleArticle, p.Articles()...)
	reg.AddWords(vocab.RolePronoun, p.Pronouns()...)
	reg.AddWords(vocab.RolePossessive, p.Possessives()...)

	dirs := make([]string, 0, len(p.Directions()))
	for d := range p.Directions() {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	for _, d := range dirs {
		reg.AddDirection(d, p.Directions()[d]...)
	}
	reg.SetDirectionAction(p.DirectionAction())
	return nil
}

// Messages maps message IDs to templates with {param} placeholders.
type Messages map[string]string

// Resolve fills in the template for id. Placeholders without a value are
// left as they are. The bool is false when id has no template.
func (m Messages) Resolve(id string, params map[string]string) (string, bool) {
	tmpl, ok := m[id]
	if !ok {
		return "", false
	}
	if len(params) == 0 || !strings.Contains(tmpl, "{") {
		return tmpl, true
	}
	pairs := make([]string, 0, 2*len(params))
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl), true
}

// Text resolves id, falling back through each fallback ID in turn and
// finally to the bare ID.
func (m Messages) Text(id string, params map[string]string, fallbacks ...string) string {
	for _, candidate := range append([]string{id}, fallbacks...) {
		if s, ok := m.Resolve(candidate, params); ok {
			return s
		}
	}
	return id
}
