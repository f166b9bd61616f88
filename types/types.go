// Package types defines the shared data structures for the taleforge engine.
// This package contains only type definitions: no logic, no methods.
package types

import "time"

// EntityID is the opaque, stable identifier of a world entity.
type EntityID string

// Nowhere is the location of a detached entity.
const Nowhere EntityID = ""

// EntityType is the nominal type tag of an entity. It is informational only;
// behavior dispatch always goes through traits.
type EntityType string

const (
	TypeRoom      EntityType = "room"
	TypeThing     EntityType = "thing"
	TypeContainer EntityType = "container"
	TypeSupporter EntityType = "supporter"
	TypeDoor      EntityType = "door"
	TypePerson    EntityType = "person"
	TypeDirection EntityType = "direction"
	TypeScenery   EntityType = "scenery"
)

// Shape is the phrase layout a syntax pattern accepts.
type Shape string

const (
	ShapeVerb           Shape = "VERB"
	ShapeVerbObj        Shape = "VERB_OBJ"
	ShapeVerbPrepObj    Shape = "VERB_PREP_OBJ"
	ShapeVerbObjPrepObj Shape = "VERB_OBJ_PREP_OBJ"
	ShapeVerbDir        Shape = "VERB_DIR"
)

// Syntax is one grammatical pattern registered for an action.
type Syntax struct {
	Shape        Shape
	Prepositions []string // accepted prepositions; empty accepts none for shapes without one
	ObjectTrait  string   // capability the direct object must carry, if any
}

// NounPhrase is a noun phrase as the parser saw it, before binding.
type NounPhrase struct {
	Text       string   // normalized words without article or possessive
	Article    string   // "the", "a", ... (optional)
	Adjectives []string // modifiers preceding the head
	Noun       string   // head word (last word of the phrase)
	Pronoun    string   // set instead of Noun for "it", "me", ...
	Possessive string   // "my" or the owner phrase text in "guard's key"
	Start      int      // first token index (inclusive)
	End        int      // last token index (exclusive)
}

// ParsedCommand is one syntactic candidate produced by the parser.
type ParsedCommand struct {
	Action      string
	Verb        string // surface verb form as typed ("pick up")
	Syntax      Syntax
	Direct      *NounPhrase
	Preposition string
	Indirect    *NounPhrase
	Direction   string
	Tokens      []string
	Confidence  float64
	Ambiguous   bool
}

// ValidatedCommand is a parsed command whose noun phrases are bound to
// concrete, in-scope entities.
type ValidatedCommand struct {
	Action      string
	Actor       EntityID
	Target      EntityID // optional
	Secondary   EntityID // optional
	Preposition string
	Direction   string
	RawText     string
	Parsed      ParsedCommand
}

// SemanticEvent records one narration-worthy occurrence.
type SemanticEvent struct {
	ID        string
	Action    string
	Type      string
	Turn      int
	Timestamp time.Time
	Entities  []EntityID
	Payload   map[string]any
}

// Result is the output of a single engine step.
type Result struct {
	Turn    int
	Input   string
	Command *ValidatedCommand // nil when parsing or resolution failed
	Events  []SemanticEvent
	Output  []string
	Err     error // engine-fatal inconsistency, if any
}

// MatchCriteria defines which validated commands a rule applies to.
type MatchCriteria struct {
	Action      string
	Object      EntityID // specific entity ID
	Target      EntityID // specific entity ID (secondary object)
	ObjectTrait string   // object must carry this trait
}

// Condition is a predicate that must be true for a rule to fire.
type Condition struct {
	Type   string         // "holds", "flag_set", "in_room", "trait_is", ...
	Params map[string]any // condition-specific parameters
	Inner  *Condition     // for Not(): the negated inner condition
}

// Effect is a single atomic story mutation or narration instruction.
type Effect struct {
	Type   string
	Params map[string]any
}

// Rule modes.
const (
	ModeBefore  = "before"  // veto the action when conditions hold
	ModeInstead = "instead" // replace the default execution
	ModeAfter   = "after"   // run after the default execution
)

// RuleDef is a story rule evaluated between validation and execution.
type RuleDef struct {
	ID          string
	Scope       string // "room:<id>", "entity:<id>", "global"
	Mode        string
	When        MatchCriteria
	Conditions  []Condition
	Effects     []Effect
	Priority    int
	SourceOrder int
}

// VerbDef is a story-supplied verb registration.
type VerbDef struct {
	Action string
	Forms  []string
	Syntax []string // syntax pattern strings, e.g. "VERB OBJ with OBJ"
}

// EntityDef is the story definition of a world entity.
type EntityDef struct {
	ID       EntityID
	Name     string
	Type     EntityType
	Location EntityID
	Traits   map[string]map[string]any // trait kind -> trait data
	Rules    []RuleDef
}

// GameDef holds story metadata.
type GameDef struct {
	Title      string
	Author     string
	Version    string
	Start      EntityID // starting room
	Intro      string
	PlayerName string
}
