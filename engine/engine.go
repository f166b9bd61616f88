// Package engine provides the Step() orchestrator that wires together
// parsing, resolution, the action executor, the event bus and narration into
// a single turn.
package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/nathoo/taleforge/engine/actions"
	"github.com/nathoo/taleforge/engine/effects"
	"github.com/nathoo/taleforge/engine/events"
	"github.com/nathoo/taleforge/engine/parser"
	"github.com/nathoo/taleforge/engine/resolve"
	"github.com/nathoo/taleforge/engine/rules"
	"github.com/nathoo/taleforge/engine/save"
	"github.com/nathoo/taleforge/engine/story"
	"github.com/nathoo/taleforge/engine/traits"
	"github.com/nathoo/taleforge/engine/vocab"
	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/lang"
	"github.com/nathoo/taleforge/narrate"
	"github.com/nathoo/taleforge/types"
)

// FlagGameOver blocks further play once a story rule sets it.
const FlagGameOver = "game_over"

// DefaultUndoDepth is the number of turns Undo can take back.
const DefaultUndoDepth = 20

// historyTurns is how many turns of events the in-memory history keeps.
const historyTurns = 50

// ErrNothingToUndo is returned by Undo when the undo ring is empty.
var ErrNothingToUndo = errors.New("nothing to undo")

// Engine holds the story definitions and the live simulation.
type Engine struct {
	Defs     *story.Defs
	World    *world.Store
	Vocab    *vocab.Registry
	Traits   *traits.Registry
	Rules    *rules.Book
	Executor *actions.Executor
	Bus      *events.Bus
	History  *events.Log
	Narrator *narrate.Narrator

	log        logrus.FieldLogger
	player     types.EntityID
	turn       int
	it         types.EntityID
	undo       []world.Snapshot
	undoDepth  int
	strict     bool
	learned    []types.VerbDef
	commandLog []string
}

type options struct {
	log       logrus.FieldLogger
	pack      *lang.Pack
	traits    *traits.Registry
	undoDepth int
	now       func() time.Time
	strict    bool
	subs      []subscription
}

type subscription struct {
	name string
	fn   events.Handler
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

// WithLanguage replaces the embedded English pack.
func WithLanguage(p *lang.Pack) Option {
	return func(o *options) { o.pack = p }
}

// WithTraits supplies a trait registry holding extension kinds.
func WithTraits(reg *traits.Registry) Option {
	return func(o *options) { o.traits = reg }
}

// WithUndoDepth sets how many turns can be undone; 0 disables undo.
func WithUndoDepth(n int) Option {
	return func(o *options) { o.undoDepth = n }
}

// WithClock sets the clock events are stamped with.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithStrict checks every world invariant at each turn boundary.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithSubscriber adds a handler to the event bus.
func WithSubscriber(name string, fn events.Handler) Option {
	return func(o *options) { o.subs = append(o.subs, subscription{name: name, fn: fn}) }
}

// New builds the story in defs and returns an engine ready for its first
// turn.
func New(defs *story.Defs, opts ...Option) (*Engine, error) {
	o := options{undoDepth: DefaultUndoDepth, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.log = l
	}
	if o.pack == nil {
		p, err := lang.English()
		if err != nil {
			return nil, err
		}
		o.pack = p
	}
	if o.traits == nil {
		o.traits = traits.Builtins()
	}

	voc := vocab.New()
	if err := lang.Install(voc, o.pack); err != nil {
		return nil, fmt.Errorf("install language %s: %w", o.pack.Language, err)
	}
	st, err := story.Build(defs, o.traits, voc)
	if err != nil {
		return nil, err
	}

	x := actions.NewExecutor(st.World, actions.Builtins(), o.log)
	x.Now = o.now
	x.Use(st.Book)

	e := &Engine{
		Defs:      defs,
		World:     st.World,
		Vocab:     voc,
		Traits:    o.traits,
		Rules:     st.Book,
		Executor:  x,
		Bus:       events.NewBus(o.log),
		History:   events.NewLog(historyTurns),
		Narrator:  narrate.New(o.pack.Messages),
		log:       o.log,
		player:    st.Player,
		undoDepth: o.undoDepth,
		strict:    o.strict,
	}
	e.Bus.Subscribe("history", e.History.Append)
	e.Bus.Subscribe("verbs", e.learnVerbs)
	for _, s := range o.subs {
		e.Bus.Subscribe(s.name, s.fn)
	}

	o.log.WithFields(logrus.Fields{
		"game":     defs.Game.Title,
		"entities": e.World.Len(),
		"rules":    e.Rules.Len(),
		"language": o.pack.Language,
	}).Info("story built")
	return e, nil
}

// Step processes one player command and returns the result.
func (e *Engine) Step(input string) types.Result {
	// 0. Every step gets a fresh turn number.
	e.turn++
	result := types.Result{Turn: e.turn, Input: input}

	// 1. Game over: block all gameplay commands.
	if e.World.Flag(FlagGameOver) {
		result.Output = []string{e.Text("game.over", nil)}
		return result
	}

	// 2. Log the command.
	e.commandLog = append(e.commandLog, input)

	// 3. Parse.
	cands, err := parser.Parse(e.Vocab, input)
	if err != nil {
		result.Output = []string{e.Narrator.Error(e.World, err)}
		e.trace(result, "parse failed", err)
		return result
	}

	// 4. Resolve against the player's scope.
	vc, err := resolve.Resolve(e.World, resolve.Request{
		Actor:      e.player,
		Candidates: cands,
		RawText:    input,
		It:         e.it,
	})
	if err != nil {
		result.Output = []string{e.Narrator.Error(e.World, err)}
		e.trace(result, "resolve failed", err)
		return result
	}
	result.Command = &vc

	// 5. Execute.
	checkpoint := e.World.Snapshot()
	run := e.Executor.Run(vc, e.turn)
	if run.Err != nil {
		result.Err = run.Err
		result.Output = []string{e.Text("error.inconsistent", nil)}
		return result
	}

	// 6. Strict mode: the turn boundary must be consistent.
	if e.strict && run.OK() {
		if err := e.World.Check(); err != nil {
			result.Err = oops.
				In("engine").
				With("turn", e.turn).
				With("action", vc.Action).
				Wrapf(err, "invariant check after %s", vc.Action)
			if rerr := e.World.Restore(checkpoint); rerr != nil {
				e.log.WithError(rerr).Error("restore after failed invariant check")
			}
			e.log.WithField("turn", e.turn).WithError(result.Err).Error("turn abandoned")
			result.Output = []string{e.Text("error.inconsistent", nil)}
			return result
		}
	}

	if run.OK() {
		e.pushUndo(checkpoint)
	}
	// "it" follows commands that went through, not ones that were refused.
	if run.Blocked == nil && vc.Target != types.Nowhere && vc.Target != e.player {
		e.it = vc.Target
	}

	// 7. Publish, then narrate.
	result.Events = run.Events
	if err := e.Bus.Publish(e.turn, run.Events); err != nil {
		e.log.WithField("turn", e.turn).WithError(err).Debug("publish incomplete")
	}
	result.Output = e.Narrator.Narrate(e.World, run.Events)

	e.log.WithFields(logrus.Fields{
		"turn":   e.turn,
		"action": vc.Action,
		"target": vc.Target,
		"phase":  run.Phase.String(),
		"events": len(run.Events),
	}).Debug("turn complete")
	return result
}

func (e *Engine) trace(r types.Result, msg string, err error) {
	e.log.WithFields(logrus.Fields{
		"turn":  r.Turn,
		"input": r.Input,
	}).WithError(err).Debug(msg)
}

func (e *Engine) pushUndo(snap world.Snapshot) {
	if e.undoDepth <= 0 {
		return
	}
	e.undo = append(e.undo, snap)
	if len(e.undo) > e.undoDepth {
		e.undo = e.undo[len(e.undo)-e.undoDepth:]
	}
}

// Undo restores the world to the start of the last turn that changed it.
// Turn numbers keep counting up. Verbs learned during play stay learned.
func (e *Engine) Undo() error {
	n := len(e.undo)
	if n == 0 {
		return ErrNothingToUndo
	}
	if err := e.World.Restore(e.undo[n-1]); err != nil {
		return fmt.Errorf("undo: %w", err)
	}
	e.undo = e.undo[:n-1]
	e.it = types.Nowhere
	return nil
}

// CanUndo reports whether Undo has a turn to take back.
func (e *Engine) CanUndo() bool { return len(e.undo) > 0 }

// Turn returns the number of the last step.
func (e *Engine) Turn() int { return e.turn }

// Player returns the player entity.
func (e *Engine) Player() types.EntityID { return e.player }

// Location returns the room the player is in.
func (e *Engine) Location() types.EntityID {
	loc, _ := e.World.Location(e.player)
	return loc
}

// CommandLog returns the inputs of every step since the game began.
func (e *Engine) CommandLog() []string { return e.commandLog }

// Text resolves a message of the engine's language pack.
func (e *Engine) Text(id string, params map[string]string) string {
	return e.Narrator.Messages.Text(id, params)
}

// Intro returns the opening text: the story's introduction followed by a
// description of the starting room.
func (e *Engine) Intro() []string {
	var out []string
	if intro := strings.TrimSpace(e.Defs.Game.Intro); intro != "" {
		out = append(out, intro)
	}
	return append(out, e.Narrator.Room(e.World, e.player, e.Location())...)
}

// learnVerbs registers verbs added by story effects and records them so
// saves carry them. It only sees turns that completed, so a turn that was
// rolled back teaches nothing.
func (e *Engine) learnVerbs(_ int, evs []types.SemanticEvent) error {
	var errs []error
	for _, ev := range events.OfType(evs, effects.EventVerbAdded) {
		action, _ := ev.Payload["action"].(string)
		v := types.VerbDef{
			Action: action,
			Forms:  effects.Strings(ev.Payload["forms"]),
			Syntax: effects.Strings(ev.Payload["syntax"]),
		}
		if err := e.Vocab.Register(v.Action, v.Forms, v.Syntax...); err != nil {
			errs = append(errs, fmt.Errorf("verb %s: %w", v.Action, err))
			continue
		}
		e.learned = append(e.learned, v)
	}
	return errors.Join(errs...)
}

// Save encodes the current turn boundary.
func (e *Engine) Save() ([]byte, error) {
	return save.Save(e.World.Snapshot(), save.Meta{
		Game:       e.Defs.Game,
		Turn:       e.turn,
		Player:     e.player,
		Verbs:      e.learned,
		CommandLog: e.commandLog,
	})
}

// Load restores an encoded save. The turn counter never moves backwards,
// and the undo ring is cleared.
func (e *Engine) Load(data []byte) error {
	sd, err := save.Load(data)
	if err != nil {
		return err
	}
	if sd.Game != e.Defs.Game.Title {
		return fmt.Errorf("save is for %q, not %q", sd.Game, e.Defs.Game.Title)
	}
	snap, err := sd.Snapshot(e.Traits)
	if err != nil {
		return err
	}
	if err := e.World.Restore(snap); err != nil {
		return err
	}
	for _, v := range sd.Verbs {
		if err := e.Vocab.Register(v.Action, v.Forms, v.Syntax...); err != nil {
			return fmt.Errorf("load verb %s: %w", v.Action, err)
		}
	}
	e.learned = append([]types.VerbDef(nil), sd.Verbs...)
	if sd.Player != types.Nowhere {
		e.player = sd.Player
	}
	e.turn = max(e.turn, sd.Turn)
	e.commandLog = append([]string(nil), sd.CommandLog...)
	e.undo = nil
	e.it = types.Nowhere
	e.log.WithFields(logrus.Fields{"turn": e.turn, "saved_turn": sd.Turn}).Info("save restored")
	return nil
}
