// Package loader loads Lua story content into Go structs at load time.
// The Lua VM is discarded after loading: zero Lua at runtime.
package loader

import (
	"fmt"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/taleforge/engine/story"
	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/types"
)

// rawEntity holds an entity table before compilation.
type rawEntity struct {
	id     string
	typ    types.EntityType
	table  *lua.LTable
	player bool
}

// rawRule holds a rule before compilation.
type rawRule struct {
	id         string
	mode       string
	when       *lua.LTable
	conditions *lua.LTable // may be nil
	then       *lua.LTable
	owner      string // entity whose rules table claimed it
	order      int
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// getStrings reads a string or a list of strings.
func getStrings(tbl *lua.LTable, key string) []string {
	switch v := toGoValue(tbl.RawGetString(key)).(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// toGoValue converts a Lua value to a Go value recursively.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case *lua.LNilType:
		return nil
	case lua.LString:
		return string(val)
	case *lua.LTable:
		// Sequential integer keys starting at 1 make an array.
		if maxN := val.MaxN(); maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		m := map[string]any{}
		val.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = toGoValue(v)
			}
		})
		return m
	default:
		return nil
	}
}

// tableToAnyMap converts a Lua table to a map[string]any.
func tableToAnyMap(tbl *lua.LTable) map[string]any {
	if tbl == nil {
		return nil
	}
	m := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			m[string(ks)] = toGoValue(v)
		}
	})
	return m
}

// field is a constructor field stored in a trait.
type field struct {
	kind, name string
}

// traitFields maps constructor fields to the trait data they fill in.
// capacity is resolved per entity type.
var traitFields = map[string]field{
	"name":        {traits.KindIdentity, "name"},
	"aliases":     {traits.KindIdentity, "aliases"},
	"adjectives":  {traits.KindIdentity, "adjectives"},
	"description": {traits.KindIdentity, "description"},
	"article":     {traits.KindIdentity, "article"},
	"proper":      {traits.KindIdentity, "proper"},
	"transparent": {traits.KindContainer, "transparent"},
	"open":        {traits.KindOpenable, "open"},
	"locked":      {traits.KindLockable, "locked"},
	"key":         {traits.KindLockable, "key"},
	"weight":      {traits.KindPortable, "weight"},
	"message":     {traits.KindScenery, "message"},
	"exits":       {traits.KindRoom, "exits"},
	"dark":        {traits.KindRoom, "dark"},
	"between":     {traits.KindDoor, "between"},
}

// flagFields attach an empty trait when set to true.
var flagFields = map[string]string{
	"openable": traits.KindOpenable,
	"lockable": traits.KindLockable,
	"fixed":    traits.KindScenery,
}

// structural fields are read directly by compileEntity.
var structural = map[string]bool{
	"type": true, "location": true, "rules": true, "traits": true,
	"capacity": true, "player": true,
}

// compile converts all collected Lua data into story definitions. The
// returned warnings name fields that were ignored.
func compile(coll *collector) (*story.Defs, []string, error) {
	defs := &story.Defs{}
	var warnings []string

	if coll.game == nil {
		return nil, nil, fmt.Errorf("no Game{} definition found")
	}
	defs.Game = compileGame(coll.game)

	owners := map[string]int{}
	for _, raw := range coll.entities {
		entity, scopedIDs, warn := compileEntity(raw)
		warnings = append(warnings, warn...)
		for _, id := range scopedIDs {
			markOwner(coll, id, raw.id)
		}
		owners[raw.id] = len(defs.Entities)
		defs.Entities = append(defs.Entities, entity)
	}

	for _, raw := range coll.rules {
		rule, err := compileRule(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("compiling rule %s: %w", raw.id, err)
		}
		if raw.owner == "" {
			defs.GlobalRules = append(defs.GlobalRules, rule)
			continue
		}
		i := owners[raw.owner]
		defs.Entities[i].Rules = append(defs.Entities[i].Rules, rule)
	}

	for _, tbl := range coll.verbs {
		defs.Verbs = append(defs.Verbs, types.VerbDef{
			Action: getString(tbl, "action"),
			Forms:  getStrings(tbl, "forms"),
			Syntax: getStrings(tbl, "syntax"),
		})
	}
	return defs, warnings, nil
}

func compileGame(tbl *lua.LTable) types.GameDef {
	return types.GameDef{
		Title:      getString(tbl, "title"),
		Author:     getString(tbl, "author"),
		Version:    getString(tbl, "version"),
		Start:      types.EntityID(getString(tbl, "start")),
		Intro:      getString(tbl, "intro"),
		PlayerName: getString(tbl, "player"),
	}
}

// compileEntity compiles a raw entity into an EntityDef and returns the
// rule IDs its rules table claims.
func compileEntity(raw rawEntity) (types.EntityDef, []string, []string) {
	tbl := raw.table
	typ := raw.typ
	if typ == "" {
		typ = types.EntityType(getString(tbl, "type"))
	}
	if typ == "" {
		typ = types.TypeThing
	}

	def := types.EntityDef{
		ID:       types.EntityID(raw.id),
		Name:     getString(tbl, "name"),
		Type:     typ,
		Location: types.EntityID(getString(tbl, "location")),
		Traits:   map[string]map[string]any{},
	}
	if def.Name == "" {
		def.Name = strings.ReplaceAll(raw.id, "_", " ")
	}
	set := func(kind, name string, v any) {
		if def.Traits[kind] == nil {
			def.Traits[kind] = map[string]any{}
		}
		if name != "" {
			def.Traits[kind][name] = v
		}
	}

	var warnings []string
	tbl.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok || structural[string(key)] {
			return
		}
		if f, ok := traitFields[string(key)]; ok {
			set(f.kind, f.name, toGoValue(v))
			return
		}
		if kind, ok := flagFields[string(key)]; ok {
			if b, _ := toGoValue(v).(bool); b {
				set(kind, "", nil)
			}
			return
		}
		warnings = append(warnings, fmt.Sprintf("entity %q: unknown field %q", raw.id, string(key)))
	})

	if c := tbl.RawGetString("capacity"); c != lua.LNil {
		kind := traits.KindContainer
		if typ == types.TypeSupporter {
			kind = traits.KindSupporter
		}
		set(kind, "capacity", toGoValue(c))
	}
	if raw.player || tbl.RawGetString("player") == lua.LTrue {
		set(traits.KindActor, "player", true)
	}
	if typ == types.TypeDoor {
		set(traits.KindOpenable, "", nil)
		if def.Location == types.Nowhere {
			if between, ok := def.Traits[traits.KindDoor]["between"].([]any); ok && len(between) > 0 {
				s, _ := between[0].(string)
				def.Location = types.EntityID(s)
			}
		}
	}
	// Aliases or adjectives alone still need the display name.
	if id, ok := def.Traits[traits.KindIdentity]; ok && id["name"] == nil {
		id["name"] = def.Name
	}

	// Explicit traits override everything derived from fields.
	if extra := getTable(tbl, "traits"); extra != nil {
		extra.ForEach(func(k, v lua.LValue) {
			kind, ok := k.(lua.LString)
			if !ok {
				return
			}
			set(string(kind), "", nil)
			if data, ok := v.(*lua.LTable); ok {
				for name, value := range tableToAnyMap(data) {
					set(string(kind), name, value)
				}
			}
		})
	}
	if len(def.Traits) == 0 {
		def.Traits = nil
	}

	var scopedIDs []string
	if rulesTable := getTable(tbl, "rules"); rulesTable != nil {
		rulesTable.ForEach(func(_, v lua.LValue) {
			if marker, ok := v.(*lua.LTable); ok {
				if id := getString(marker, "__rule_id"); id != "" {
					scopedIDs = append(scopedIDs, id)
				}
			}
		})
	}
	sort.Strings(warnings)
	return def, scopedIDs, warnings
}

func compileRule(raw rawRule) (types.RuleDef, error) {
	mode := raw.mode
	if m := getString(raw.when, "mode"); m != "" {
		if mode != "" && m != mode {
			return types.RuleDef{}, fmt.Errorf("mode %q conflicts with %s rule", m, mode)
		}
		mode = m
	}
	if mode == "" {
		mode = types.ModeInstead
	}
	rule := types.RuleDef{
		ID:          raw.id,
		Mode:        mode,
		When:        compileMatchCriteria(raw.when),
		Effects:     compileEffects(raw.then),
		Priority:    getInt(raw.when, "priority"),
		SourceOrder: raw.order,
	}
	if raw.conditions != nil {
		rule.Conditions = compileConditions(raw.conditions)
	}
	return rule, nil
}

func compileMatchCriteria(tbl *lua.LTable) types.MatchCriteria {
	return types.MatchCriteria{
		Action:      getString(tbl, "action"),
		Object:      types.EntityID(getString(tbl, "object")),
		Target:      types.EntityID(getString(tbl, "target")),
		ObjectTrait: getString(tbl, "object_trait"),
	}
}

func compileConditions(tbl *lua.LTable) []types.Condition {
	var conditions []types.Condition
	for i := 1; i <= tbl.MaxN(); i++ {
		if condTbl, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			conditions = append(conditions, compileCondition(condTbl))
		}
	}
	return conditions
}

func compileCondition(tbl *lua.LTable) types.Condition {
	condType := getString(tbl, "type")
	if condType == "not" {
		if innerTbl := getTable(tbl, "inner"); innerTbl != nil {
			inner := compileCondition(innerTbl)
			return types.Condition{Type: "not", Inner: &inner}
		}
	}
	return types.Condition{Type: condType, Params: params(tbl)}
}

func compileEffects(tbl *lua.LTable) []types.Effect {
	var effects []types.Effect
	for i := 1; i <= tbl.MaxN(); i++ {
		if effTbl, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			effects = append(effects, types.Effect{Type: getString(effTbl, "type"), Params: params(effTbl)})
		}
	}
	return effects
}

// params copies every field except type.
func params(tbl *lua.LTable) map[string]any {
	m := tableToAnyMap(tbl)
	delete(m, "type")
	return m
}

// markOwner records which entity claimed a rule.
func markOwner(coll *collector, ruleID, owner string) {
	for i := range coll.rules {
		if coll.rules[i].id == ruleID {
			coll.rules[i].owner = owner
		}
	}
}

// sortedLuaFiles returns .lua files with game.lua first and the rest
// sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}
