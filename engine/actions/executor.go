package actions

import (
	"errors"
	"time"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/nathoo/taleforge/engine/events"
	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/types"
)

// Phase is the executor state a run ended in.
type Phase int

const (
	PhaseValidate Phase = iota
	PhaseIntercept
	PhaseExecute
	PhaseReport
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseValidate:
		return "validate"
	case PhaseIntercept:
		return "intercept"
	case PhaseExecute:
		return "execute"
	case PhaseReport:
		return "report"
	}
	return "done"
}

// VerdictKind is an interceptor's decision.
type VerdictKind int

const (
	Continue VerdictKind = iota
	Veto
	Substitute
	Augment
)

// Verdict is returned by an Interceptor. Veto carries Reason and Message.
// Substitute replaces the action's Execute and Report. Augment runs After
// inside the Execute phase, once the default Execute has succeeded.
type Verdict struct {
	Kind    VerdictKind
	Reason  string
	Message string
	Execute func(*Context) (Outcome, error)
	Report  func(*Context, Outcome) []types.SemanticEvent
	After   func(*Context) ([]types.SemanticEvent, error)
}

// Interceptor is consulted between Validate and Execute. It sees the
// action (nil for actions with no registered implementation) and must not
// mutate the world itself.
type Interceptor interface {
	Intercept(ctx *Context, a Action) Verdict
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(ctx *Context, a Action) Verdict

func (f InterceptorFunc) Intercept(ctx *Context, a Action) Verdict { return f(ctx, a) }

// Run is the record of one command's trip through the executor.
type Run struct {
	Phase   Phase // phase the run ended in; PhaseDone on success
	Events  []types.SemanticEvent
	Blocked *ValidationError    // set when Validate or an interceptor refused
	Err     *InconsistencyError // set when Execute failed after validation
}

// OK reports whether the command was carried out.
func (r Run) OK() bool { return r.Blocked == nil && r.Err == nil }

// Executor runs validated commands against the world.
type Executor struct {
	World        *world.Store
	Actions      *Registry
	Interceptors []Interceptor
	Log          logrus.FieldLogger
	Now          func() time.Time

	ids *events.IDSource
}

// NewExecutor returns an executor with the system clock.
func NewExecutor(w *world.Store, reg *Registry, log logrus.FieldLogger) *Executor {
	return &Executor{
		World:   w,
		Actions: reg,
		Log:     log,
		Now:     time.Now,
		ids:     events.NewIDSource(),
	}
}

// Use appends an interceptor. Interceptors run in the order added.
func (x *Executor) Use(ic Interceptor) {
	x.Interceptors = append(x.Interceptors, ic)
}

// Run carries cmd through the phases for the given turn.
func (x *Executor) Run(cmd types.ValidatedCommand, turn int) Run {
	ctx := &Context{World: x.World, Command: cmd, Turn: turn}
	action, known := x.Actions.Get(cmd.Action)

	// 1. Validate.
	if known {
		if err := action.Validate(ctx); err != nil {
			return x.blocked(ctx, PhaseValidate, asValidation(cmd.Action, err))
		}
	}

	// 2. Interceptors.
	var (
		substitute *Verdict
		augments   []Verdict
	)
	for _, ic := range x.Interceptors {
		v := ic.Intercept(ctx, action)
		switch v.Kind {
		case Veto:
			return x.blocked(ctx, PhaseIntercept, &ValidationError{
				Action:  cmd.Action,
				Reason:  v.Reason,
				Message: v.Message,
			})
		case Substitute:
			if substitute == nil {
				substitute = &v
			}
		case Augment:
			augments = append(augments, v)
		}
	}
	if !known && substitute == nil {
		return x.blocked(ctx, PhaseValidate, &ValidationError{
			Action:  cmd.Action,
			Reason:  ReasonNotUnderstood,
			Message: "no such action",
		})
	}

	execute, report := x.phases(action, substitute)

	// 3. Execute against a checkpoint.
	checkpoint := x.World.Snapshot()
	out, err := execute(ctx)
	var extra []types.SemanticEvent
	if err == nil {
		for _, a := range augments {
			if a.After == nil {
				continue
			}
			evs, aerr := a.After(ctx)
			if aerr != nil {
				err = aerr
				break
			}
			extra = append(extra, evs...)
		}
	}
	if err != nil {
		return x.inconsistent(ctx, checkpoint, err)
	}

	// 4. Report.
	evs := append(report(ctx, out), extra...)
	return Run{Phase: PhaseDone, Events: x.stamp(ctx, evs)}
}

func (x *Executor) phases(action Action, sub *Verdict) (func(*Context) (Outcome, error), func(*Context, Outcome) []types.SemanticEvent) {
	if sub == nil {
		return action.Execute, action.Report
	}
	execute, report := sub.Execute, sub.Report
	if execute == nil {
		execute = func(*Context) (Outcome, error) { return Outcome{}, nil }
	}
	if report == nil {
		report = func(*Context, Outcome) []types.SemanticEvent { return nil }
	}
	return execute, report
}

func (x *Executor) blocked(ctx *Context, phase Phase, verr *ValidationError) Run {
	cmd := ctx.Command
	ev := types.SemanticEvent{
		Type:     EventBlocked,
		Entities: involved(cmd.Actor, cmd.Target, cmd.Secondary),
		Payload: map[string]any{
			"reason":    verr.Reason,
			"message":   verr.Message,
			"direction": cmd.Direction,
			"target":    cmd.Target,
			"secondary": cmd.Secondary,
			"verb":      verbOf(cmd),
		},
	}
	if x.Log != nil {
		x.Log.WithFields(logrus.Fields{
			"turn":   ctx.Turn,
			"action": cmd.Action,
			"reason": verr.Reason,
			"phase":  phase.String(),
		}).Debug("action blocked")
	}
	return Run{Phase: phase, Blocked: verr, Events: x.stamp(ctx, []types.SemanticEvent{ev})}
}

func (x *Executor) inconsistent(ctx *Context, checkpoint world.Snapshot, cause error) Run {
	cmd := ctx.Command
	wrapped := oops.
		In("executor").
		With("action", cmd.Action).
		With("turn", ctx.Turn).
		With("actor", cmd.Actor).
		With("target", cmd.Target).
		Wrapf(cause, "execute %s", cmd.Action)

	restoreErr := x.World.Restore(checkpoint)
	if x.Log != nil {
		entry := x.Log.WithFields(logrus.Fields{
			"turn":   ctx.Turn,
			"action": cmd.Action,
			"actor":  cmd.Actor,
			"target": cmd.Target,
			"input":  cmd.RawText,
		}).WithError(wrapped)
		if restoreErr != nil {
			entry = entry.WithField("restore_error", restoreErr.Error())
		}
		entry.Error("execute failed after validation; world restored to checkpoint")
	}
	return Run{Phase: PhaseExecute, Err: &InconsistencyError{Action: cmd.Action, Turn: ctx.Turn, Cause: wrapped}}
}

// stamp fills in the fields every event shares, preserving order.
func (x *Executor) stamp(ctx *Context, evs []types.SemanticEvent) []types.SemanticEvent {
	if x.ids == nil {
		x.ids = events.NewIDSource()
	}
	now := time.Now()
	if x.Now != nil {
		now = x.Now()
	}
	for i := range evs {
		evs[i].ID = x.ids.New(now)
		if evs[i].Action == "" {
			evs[i].Action = ctx.Command.Action
		}
		evs[i].Turn = ctx.Turn
		evs[i].Timestamp = now
		if evs[i].Payload == nil {
			evs[i].Payload = map[string]any{}
		}
	}
	return evs
}

func asValidation(action string, err error) *ValidationError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		if verr.Action == "" {
			verr.Action = action
		}
		return verr
	}
	return &ValidationError{Action: action, Reason: ReasonRefused, Message: err.Error()}
}

// verbOf is the word the player used for the action, or the action ID for
// commands built without parsing.
func verbOf(cmd types.ValidatedCommand) string {
	if cmd.Parsed.Verb != "" {
		return cmd.Parsed.Verb
	}
	return cmd.Action
}

// involved lists the non-empty entity IDs, in order, without duplicates.
func involved(ids ...types.EntityID) []types.EntityID {
	var out []types.EntityID
	for _, id := range ids {
		if id == types.Nowhere {
			continue
		}
		dup := false
		for _, have := range out {
			if have == id {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, id)
		}
	}
	return out
}
