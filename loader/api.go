package loader

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/taleforge/types"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerRules(L, coll)
	registerConditionHelpers(L)
	registerEffectHelpers(L)
}

// entityConstructors maps each curried constructor to the entity type it
// creates. Entity leaves the type to a "type" field.
var entityConstructors = map[string]types.EntityType{
	"Room":      types.TypeRoom,
	"Thing":     types.TypeThing,
	"Container": types.TypeContainer,
	"Supporter": types.TypeSupporter,
	"Door":      types.TypeDoor,
	"Scenery":   types.TypeScenery,
	"Person":    types.TypePerson,
	"Entity":    "",
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", ... }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	// Room "id" { ... }: curried, Room("id") returns a function that takes a table.
	for name, typ := range entityConstructors {
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			id := L.CheckString(1)
			L.Push(L.NewFunction(func(L *lua.LState) int {
				tbl := L.CheckTable(1)
				coll.entities = append(coll.entities, rawEntity{id: id, typ: typ, table: tbl})
				return 0
			}))
			return 1
		}))
	}

	// Player { ... }: the player character, always "player".
	L.SetGlobal("Player", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		coll.entities = append(coll.entities, rawEntity{id: "player", typ: types.TypePerson, table: tbl, player: true})
		return 0
	}))

	// Verb { action = "push", forms = {...}, syntax = {...} }
	L.SetGlobal("Verb", L.NewFunction(func(L *lua.LState) int {
		coll.verbs = append(coll.verbs, L.CheckTable(1))
		return 0
	}))

	// When { action = "..." } and Then { ... }: pass-through.
	passThrough := func(L *lua.LState) int {
		L.Push(L.CheckTable(1))
		return 1
	}
	L.SetGlobal("When", L.NewFunction(passThrough))
	L.SetGlobal("Then", L.NewFunction(passThrough))
}

func registerRules(L *lua.LState, coll *collector) {
	// Rule("id", when, conditions, then) or Rule("id", when, then).
	// Returns a marker table with __rule_id so rooms and entities can claim it.
	rule := func(mode string) lua.LGFunction {
		return func(L *lua.LState) int {
			id := L.CheckString(1)
			when := L.CheckTable(2)

			var conditions, then *lua.LTable
			if L.Get(4) != lua.LNil {
				if t, ok := L.Get(3).(*lua.LTable); ok {
					conditions = t
				}
				then = L.CheckTable(4)
			} else {
				then = L.CheckTable(3)
			}

			coll.rules = append(coll.rules, rawRule{
				id:         id,
				mode:       mode,
				when:       when,
				conditions: conditions,
				then:       then,
				order:      coll.nextSourceOrder(),
			})

			marker := L.NewTable()
			marker.RawSetString("__rule_id", lua.LString(id))
			L.Push(marker)
			return 1
		}
	}
	L.SetGlobal("Rule", L.NewFunction(rule("")))
	L.SetGlobal("Before", L.NewFunction(rule(types.ModeBefore)))
	L.SetGlobal("Instead", L.NewFunction(rule(types.ModeInstead)))
	L.SetGlobal("After", L.NewFunction(rule(types.ModeAfter)))
}

// helper registers a global building a typed table from positional
// arguments. Missing optional arguments are left out.
func helper(L *lua.LState, name, typ string, params ...string) {
	L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString(typ))
		for i, p := range params {
			if v := L.Get(i + 1); v != lua.LNil {
				tbl.RawSetString(p, v)
			}
		}
		L.Push(tbl)
		return 1
	}))
}

func registerConditionHelpers(L *lua.LState) {
	helper(L, "Holds", "holds", "item")
	helper(L, "FlagSet", "flag_set", "flag")
	helper(L, "FlagNot", "flag_not", "flag")
	helper(L, "FlagIs", "flag_is", "flag", "value")
	helper(L, "InRoom", "in_room", "room")
	helper(L, "Located", "located", "entity", "in")
	helper(L, "TraitIs", "trait_is", "entity", "trait", "field", "value")
	helper(L, "CounterGt", "counter_gt", "counter", "value")
	helper(L, "CounterLt", "counter_lt", "counter", "value")

	// Not(condition)
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		inner := L.CheckTable(1)
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("not"))
		tbl.RawSetString("inner", inner)
		L.Push(tbl)
		return 1
	}))
}

func registerEffectHelpers(L *lua.LState) {
	helper(L, "Say", "say", "text")
	helper(L, "SetFlag", "set_flag", "flag", "value")
	helper(L, "IncCounter", "inc_counter", "counter", "amount")
	helper(L, "SetCounter", "set_counter", "counter", "value")
	helper(L, "MoveEntity", "move_entity", "entity", "to")
	helper(L, "AddVerb", "add_verb", "action", "forms", "syntax")
	helper(L, "Stop", "stop")

	// SetTrait("entity", "trait", "field", value) or SetTrait("entity", "trait", { ... })
	L.SetGlobal("SetTrait", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("set_trait"))
		tbl.RawSetString("entity", lua.LString(L.CheckString(1)))
		tbl.RawSetString("trait", lua.LString(L.CheckString(2)))
		if data, ok := L.Get(3).(*lua.LTable); ok {
			tbl.RawSetString("data", data)
		} else {
			tbl.RawSetString("field", lua.LString(L.CheckString(3)))
			tbl.RawSetString("value", L.Get(4))
		}
		L.Push(tbl)
		return 1
	}))

	// RemoveTrait("entity", "trait")
	L.SetGlobal("RemoveTrait", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("set_trait"))
		tbl.RawSetString("entity", lua.LString(L.CheckString(1)))
		tbl.RawSetString("trait", lua.LString(L.CheckString(2)))
		tbl.RawSetString("remove", lua.LTrue)
		L.Push(tbl)
		return 1
	}))

	// EmitEvent("type", { payload })
	L.SetGlobal("EmitEvent", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		if payload, ok := L.Get(2).(*lua.LTable); ok {
			payload.ForEach(func(k, v lua.LValue) { tbl.RawSet(k, v) })
		}
		tbl.RawSetString("type", lua.LString("emit_event"))
		tbl.RawSetString("event", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))

	// GiveItem("id"): move an entity into the actor's hands.
	L.SetGlobal("GiveItem", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("move_entity"))
		tbl.RawSetString("entity", lua.LString(L.CheckString(1)))
		tbl.RawSetString("to", lua.LString("{actor}"))
		L.Push(tbl)
		return 1
	}))

	// MovePlayer("room")
	L.SetGlobal("MovePlayer", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString("move_entity"))
		tbl.RawSetString("entity", lua.LString("{actor}"))
		tbl.RawSetString("to", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))
}
