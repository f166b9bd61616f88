package loader

import (
	"strings"
	"testing"

	"github.com/nathoo/taleforge/engine/story"
	"github.com/nathoo/taleforge/types"
)

func validDefs() *story.Defs {
	return &story.Defs{
		Game: types.GameDef{Title: "Test", Start: "hall"},
		Entities: []types.EntityDef{
			{ID: "hall", Name: "hall", Type: types.TypeRoom, Traits: map[string]map[string]any{
				"room": {"exits": map[string]any{"north": "gate"}},
			}},
			{ID: "yard", Name: "yard", Type: types.TypeRoom},
			{ID: "gate", Name: "gate", Type: types.TypeDoor, Location: "hall", Traits: map[string]map[string]any{
				"door":     {"between": []any{"hall", "yard"}},
				"openable": {},
				"lockable": {"locked": true, "key": "key"},
			}},
			{ID: "key", Name: "key", Location: "hall"},
		},
		GlobalRules: []types.RuleDef{
			{ID: "r1", Mode: types.ModeInstead, When: types.MatchCriteria{Action: "take", Object: "{object}"},
				Effects: []types.Effect{{Type: "say", Params: map[string]any{"text": "hi"}}}},
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	ve := validate(validDefs())
	if len(ve.Errors) != 0 {
		t.Errorf("unexpected errors: %v", ve.Errors)
	}
	if len(ve.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", ve.Warnings)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *story.Defs)
		want   string
	}{
		{"start not a room", func(d *story.Defs) { d.Game.Start = "key" }, `start room "key"`},
		{"missing start", func(d *story.Defs) { d.Game.Start = "" }, "Game.start is required"},
		{"bad trait data", func(d *story.Defs) {
			d.Entities[2].Traits["door"] = map[string]any{"between": []any{"hall"}}
		}, "exactly two rooms"},
		{"unknown trait", func(d *story.Defs) {
			d.Entities[3].Traits = map[string]map[string]any{"haunted": {}}
		}, `unknown trait "haunted"`},
		{"missing action", func(d *story.Defs) { d.GlobalRules[0].When.Action = "" }, "When.action is required"},
		{"unknown object trait", func(d *story.Defs) { d.GlobalRules[0].When.ObjectTrait = "glowing" }, `unknown trait "glowing"`},
		{"not inner condition", func(d *story.Defs) {
			d.GlobalRules[0].Conditions = []types.Condition{{Type: "not", Inner: &types.Condition{Type: "tides"}}}
		}, `unknown condition type "tides"`},
		{"condition entity ref", func(d *story.Defs) {
			d.GlobalRules[0].Conditions = []types.Condition{{Type: "holds", Params: map[string]any{"item": "sword"}}}
		}, `undefined entity "sword"`},
		{"effect entity ref", func(d *story.Defs) {
			d.GlobalRules[0].Effects = []types.Effect{{Type: "move_entity", Params: map[string]any{"entity": "key", "to": "moon"}}}
		}, `undefined entity "moon"`},
		{"set_trait kind", func(d *story.Defs) {
			d.GlobalRules[0].Effects = []types.Effect{{Type: "set_trait", Params: map[string]any{"entity": "key", "trait": "cursed"}}}
		}, `set_trait uses unknown trait "cursed"`},
		{"duplicate across scopes", func(d *story.Defs) {
			d.Entities[0].Rules = []types.RuleDef{{ID: "r1", Mode: types.ModeAfter, When: types.MatchCriteria{Action: "look"}}}
		}, `duplicate rule ID "r1"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDefs()
			tt.mutate(d)
			ve := validate(d)
			all := strings.Join(ve.Errors, "\n")
			if !strings.Contains(all, tt.want) {
				t.Errorf("expected error containing %q, got:\n%s", tt.want, all)
			}
		})
	}
}

func TestValidate_Templates(t *testing.T) {
	d := validDefs()
	d.GlobalRules[0].Effects = []types.Effect{
		{Type: "move_entity", Params: map[string]any{"entity": "{object}", "to": "{actor}"}},
	}
	if ve := validate(d); len(ve.Errors) != 0 {
		t.Errorf("templates should not be checked as entities: %v", ve.Errors)
	}
}

func TestValidate_Warnings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *story.Defs)
		want   string
	}{
		{"unrecognized action", func(d *story.Defs) { d.GlobalRules[0].When.Action = "juggle" }, `unrecognized action "juggle"`},
		{"off-stage entity", func(d *story.Defs) { d.Entities[3].Location = "" }, `"key" has no location`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDefs()
			tt.mutate(d)
			ve := validate(d)
			if len(ve.Errors) != 0 {
				t.Errorf("unexpected errors: %v", ve.Errors)
			}
			if all := strings.Join(ve.Warnings, "\n"); !strings.Contains(all, tt.want) {
				t.Errorf("expected warning containing %q, got:\n%s", tt.want, all)
			}
		})
	}
}

func TestValidate_ActionsFromVerbs(t *testing.T) {
	d := validDefs()
	d.GlobalRules[0].When.Action = "juggle"
	d.Verbs = []types.VerbDef{{Action: "juggle", Forms: []string{"juggle"}, Syntax: []string{"VERB OBJ"}}}
	if ve := validate(d); len(ve.Warnings) != 0 {
		t.Errorf("story verb should be recognized: %v", ve.Warnings)
	}

	d = validDefs()
	d.GlobalRules[0].When.Action = "dance"
	d.GlobalRules = append(d.GlobalRules, types.RuleDef{
		ID: "teach", Mode: types.ModeAfter, When: types.MatchCriteria{Action: "take"},
		Effects: []types.Effect{{Type: "add_verb", Params: map[string]any{"action": "dance", "forms": []any{"dance"}}}},
	})
	if ve := validate(d); len(ve.Warnings) != 0 {
		t.Errorf("add_verb action should be recognized: %v", ve.Warnings)
	}
}
