// Package story turns story definitions into a live world: entities with
// their traits and containment, the vocabulary that names them, and the
// rule book.
package story

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/taleforge/engine/rules"
	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/engine/vocab"
	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/types"
)

// PlayerID is the entity ID of the player character unless the story
// defines an entity with the actor trait's player flag set.
const PlayerID types.EntityID = "player"

// Defs holds the immutable story definitions produced by the loader.
type Defs struct {
	Game        types.GameDef
	Entities    []types.EntityDef // source order
	GlobalRules []types.RuleDef
	Verbs       []types.VerbDef
}

// Entity returns the definition with the given ID.
func (d *Defs) Entity(id types.EntityID) (types.EntityDef, bool) {
	for _, e := range d.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return types.EntityDef{}, false
}

// Story is a built story, ready to play.
type Story struct {
	World  *world.Store
	Book   *rules.Book
	Player types.EntityID
}

// defaultTraits are attached when an entity of the type does not define
// the trait itself.
var defaultTraits = map[types.EntityType][]string{
	types.TypeRoom:      {traits.KindRoom},
	types.TypeContainer: {traits.KindContainer},
	types.TypeSupporter: {traits.KindSupporter},
	types.TypeScenery:   {traits.KindScenery},
	types.TypePerson:    {traits.KindActor},
	types.TypeThing:     {traits.KindPortable},
}

// Build creates the world for defs. Traits are built through reg and the
// vocabulary for entity names and story verbs goes into voc.
func Build(defs *Defs, reg *traits.Registry, voc *vocab.Registry) (*Story, error) {
	w := world.New()
	book := rules.NewBook(reg)

	player := PlayerID
	for _, def := range defs.Entities {
		if isPlayer(def) {
			player = def.ID
		}
	}

	for _, def := range defs.Entities {
		if err := createEntity(w, reg, def); err != nil {
			return nil, err
		}
	}
	if !w.Exists(player) {
		name := defs.Game.PlayerName
		if name == "" {
			name = "yourself"
		}
		if err := createEntity(w, reg, types.EntityDef{
			ID:   player,
			Name: name,
			Type: types.TypePerson,
			Traits: map[string]map[string]any{
				traits.KindActor:    {"player": true},
				traits.KindIdentity: {"name": name, "proper": true, "aliases": []any{"me", "self"}},
			},
		}); err != nil {
			return nil, err
		}
	}

	for _, def := range defs.Entities {
		if def.Location == types.Nowhere {
			continue
		}
		if err := w.Move(def.ID, def.Location); err != nil {
			return nil, fmt.Errorf("place %s in %s: %w", def.ID, def.Location, err)
		}
	}
	if loc, ok := w.Location(player); !ok || loc == types.Nowhere {
		if defs.Game.Start == types.Nowhere {
			return nil, fmt.Errorf("game start room is required")
		}
		if err := w.Move(player, defs.Game.Start); err != nil {
			return nil, fmt.Errorf("place player in start room %s: %w", defs.Game.Start, err)
		}
	}

	for _, id := range w.All() {
		Name(w, voc, id)
	}
	for _, v := range defs.Verbs {
		if err := voc.Register(v.Action, v.Forms, v.Syntax...); err != nil {
			return nil, fmt.Errorf("story verb: %w", err)
		}
	}

	for _, def := range defs.Entities {
		for _, r := range def.Rules {
			if r.Scope == "" {
				r.Scope = rules.EntityScope(def.ID)
				if w.HasTrait(def.ID, traits.KindRoom) {
					r.Scope = rules.RoomScope(def.ID)
				}
			}
			book.Add(r)
		}
	}
	book.Add(defs.GlobalRules...)

	if err := w.Check(); err != nil {
		return nil, fmt.Errorf("build story: %w", err)
	}
	return &Story{World: w, Book: book, Player: player}, nil
}

func isPlayer(def types.EntityDef) bool {
	actor, ok := def.Traits[traits.KindActor]
	if !ok {
		return false
	}
	p, _ := actor["player"].(bool)
	return p
}

func createEntity(w *world.Store, reg *traits.Registry, def types.EntityDef) error {
	typ := def.Type
	if typ == "" {
		typ = types.TypeThing
	}
	if err := w.CreateEntityWithID(def.ID, def.Name, typ); err != nil {
		return fmt.Errorf("create entity: %w", err)
	}

	data := make(map[string]map[string]any, len(def.Traits)+2)
	for kind, d := range def.Traits {
		data[kind] = d
	}
	for _, kind := range defaultTraits[typ] {
		if _, ok := data[kind]; !ok {
			data[kind] = nil
		}
	}
	if _, ok := data[traits.KindIdentity]; !ok && def.Name != "" {
		data[traits.KindIdentity] = map[string]any{"name": def.Name}
	}

	kinds := make([]string, 0, len(data))
	for kind := range data {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		t, err := reg.Build(kind, data[kind])
		if err != nil {
			return fmt.Errorf("entity %s: %w", def.ID, err)
		}
		if err := w.AttachTrait(def.ID, t); err != nil {
			return err
		}
	}
	return nil
}

// Name registers the words naming an entity: every word of its name and
// aliases as a noun, its adjectives as adjectives.
func Name(w *world.Store, voc *vocab.Registry, id types.EntityID) {
	var nouns, adjectives []string
	if t, ok := world.TraitOf[*traits.Identity](w, id); ok {
		for _, n := range append([]string{t.Name}, t.Aliases...) {
			nouns = append(nouns, strings.Fields(n)...)
		}
		adjectives = t.Adjectives
	} else if e, ok := w.Entity(id); ok {
		nouns = strings.Fields(e.Name)
	}
	voc.AddWords(vocab.RoleNoun, nouns...)
	voc.AddWords(vocab.RoleAdjective, adjectives...)
}
