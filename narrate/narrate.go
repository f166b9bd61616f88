// Package narrate turns semantic events into prose using a language pack's
// message templates. It reads the world but never changes it.
package narrate

import (
	"errors"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nathoo/taleforge/engine/actions"
	"github.com/nathoo/taleforge/engine/behavior"
	"github.com/nathoo/taleforge/engine/effects"
	"github.com/nathoo/taleforge/engine/parser"
	"github.com/nathoo/taleforge/engine/resolve"
	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/lang"
	"github.com/nathoo/taleforge/types"
)

// Narrator renders events with one set of messages.
type Narrator struct {
	Messages lang.Messages
}

// New returns a narrator for m.
func New(m lang.Messages) *Narrator {
	return &Narrator{Messages: m}
}

// Narrate renders the events of one turn, in order. Events with no
// template, or an empty one, produce no text.
func (n *Narrator) Narrate(w *world.Store, evs []types.SemanticEvent) []string {
	var out []string
	for _, ev := range evs {
		out = append(out, n.event(w, ev)...)
	}
	return out
}

func (n *Narrator) event(w *world.Store, ev types.SemanticEvent) []string {
	actor := entity(ev, 0)
	params := map[string]string{}
	for k, v := range ev.Payload {
		if s, ok := v.(string); ok {
			params[k] = s
		}
	}
	switch ev.Type {
	case actions.EventLooked:
		room, _ := ev.Payload["room"].(types.EntityID)
		return n.Room(w, actor, room)

	case actions.EventWent:
		to, _ := ev.Payload["to"].(types.EntityID)
		return n.Room(w, actor, to)

	case actions.EventBlocked:
		target, _ := ev.Payload["target"].(types.EntityID)
		secondary, _ := ev.Payload["secondary"].(types.EntityID)
		n.addEntity(w, params, "target", target)
		n.addEntity(w, params, "secondary", secondary)
		reason, _ := ev.Payload["reason"].(string)
		return nonEmpty(n.Messages.Text("blocked."+reason, params, "blocked.default"))

	case actions.EventExamined:
		n.addEntity(w, params, "target", entity(ev, 1))
		if params["description"] == "" {
			return nonEmpty(n.Messages.Text("event.examined.plain", params))
		}
		return nonEmpty(n.Messages.Text("event.examined", params))

	case actions.EventInventory:
		items, _ := ev.Payload["items"].([]types.EntityID)
		if len(items) == 0 {
			return nonEmpty(n.Messages.Text("event.inventory.empty", nil))
		}
		params["items"] = n.List(w, items)
		return nonEmpty(n.Messages.Text("event.inventory", params))

	case actions.EventOpened:
		target := entity(ev, 1)
		n.addEntity(w, params, "target", target)
		if visible := n.visibleContents(w, target); len(visible) > 0 {
			params["items"] = n.List(w, visible)
			return nonEmpty(n.Messages.Text("event.opened.reveal", params))
		}
		return nonEmpty(n.Messages.Text("event.opened", params))
	}

	n.addEntity(w, params, "target", entity(ev, 1))
	n.addEntity(w, params, "secondary", entity(ev, 2))
	if ev.Type == effects.EventSaid {
		return nonEmpty(params["text"])
	}
	s, ok := n.Messages.Resolve("event."+ev.Type, params)
	if !ok {
		return nil
	}
	return nonEmpty(s)
}

// Room describes a room as seen by actor: name, description, visible
// things and exits.
func (n *Narrator) Room(w *world.Store, actor, room types.EntityID) []string {
	if room == types.Nowhere {
		return nil
	}
	if r, ok := world.TraitOf[*traits.Room](w, room); ok && r.Dark {
		return nonEmpty(n.Messages.Text("event.looked.dark", nil))
	}

	out := []string{behavior.Identity.Name(w, room)}
	if desc, err := behavior.Identity.Describe(w, room); err == nil && desc != "" {
		out = append(out, desc)
	}

	var items []types.EntityID
	for _, id := range w.Contents(room) {
		if id == actor || w.HasTrait(id, traits.KindScenery) || w.HasTrait(id, traits.KindDoor) {
			continue
		}
		items = append(items, id)
	}
	if len(items) > 0 {
		out = append(out, n.Messages.Text("room.contents", map[string]string{"items": n.List(w, items)}))
	}

	exits, err := behavior.Room.Exits(w, room)
	if err != nil || len(exits) == 0 {
		return append(out, n.Messages.Text("room.no-exits", nil))
	}
	dirs := make([]string, 0, len(exits))
	for d := range exits {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return append(out, n.Messages.Text("room.exits", map[string]string{"exits": strings.Join(dirs, ", ")}))
}

// List renders entities as "a lamp, a box (containing a coin) and a key".
func (n *Narrator) List(w *world.Store, ids []types.EntityID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = behavior.Identity.Indefinite(w, id)
		if inner := n.visibleContents(w, id); len(inner) > 0 {
			parts[i] += " (" + n.innerWord(w, id) + " " + n.List(w, inner) + ")"
		}
	}
	return join(parts, n.Messages.Text("list.and", nil))
}

func (n *Narrator) innerWord(w *world.Store, id types.EntityID) string {
	if w.HasTrait(id, traits.KindSupporter) {
		return n.Messages.Text("list.on", nil)
	}
	return n.Messages.Text("list.in", nil)
}

// visibleContents lists what can be seen inside or on id.
func (n *Narrator) visibleContents(w *world.Store, id types.EntityID) []types.EntityID {
	contents := w.Contents(id)
	if len(contents) == 0 || w.HasTrait(id, traits.KindActor) || w.HasTrait(id, traits.KindRoom) {
		return nil
	}
	if visible, err := behavior.Container.Visible(w, id); err == nil && visible {
		return contents
	}
	if w.HasTrait(id, traits.KindSupporter) {
		return contents
	}
	return nil
}

// Error renders a parse or resolve failure.
func (n *Narrator) Error(w *world.Store, err error) string {
	var (
		perr *parser.ParseError
		amb  *resolve.AmbiguityError
		oos  *resolve.OutOfScopeError
		nf   *resolve.NotFoundError
	)
	switch {
	case errors.As(err, &perr):
		params := map[string]string{"verb": perr.Verb}
		if len(perr.Tokens) > 0 {
			params["word"] = perr.Tokens[0]
		}
		return n.Messages.Text("parse."+perr.Reason, params)
	case errors.As(err, &amb):
		names := make([]string, len(amb.Candidates))
		for i, id := range amb.Candidates {
			names[i] = behavior.Identity.Definite(w, id)
		}
		return n.Messages.Text("resolve.ambiguous", map[string]string{
			"options": join(names, n.Messages.Text("list.or", nil)),
			"phrase":  amb.Phrase,
		})
	case errors.As(err, &oos):
		return n.Messages.Text("resolve.out-of-scope", map[string]string{"phrase": oos.Phrase})
	case errors.As(err, &nf):
		return n.Messages.Text("resolve.not-found", map[string]string{"phrase": nf.Phrase})
	}
	return n.Messages.Text("error.inconsistent", nil)
}

func (n *Narrator) addEntity(w *world.Store, params map[string]string, key string, id types.EntityID) {
	if id == types.Nowhere {
		return
	}
	name := behavior.Identity.Definite(w, id)
	params[key] = name
	params[capitalize(key)] = capitalize(name)
}

func entity(ev types.SemanticEvent, i int) types.EntityID {
	if i < len(ev.Entities) {
		return ev.Entities[i]
	}
	return types.Nowhere
}

// join renders "a, b and c" with the given final separator.
func join(parts []string, last string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + last + parts[len(parts)-1]
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
