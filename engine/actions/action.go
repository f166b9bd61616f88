// Package actions defines the Action contract, the standard action library
// and the Executor that runs one validated command through
// Validate → interceptors → Execute → Report.
package actions

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nathoo/taleforge/engine/world"
	"github.com/nathoo/taleforge/types"
)

// Context is what every phase of an action sees.
type Context struct {
	World   *world.Store
	Command types.ValidatedCommand
	Turn    int
}

// Target is shorthand for the command's direct object.
func (c *Context) Target() types.EntityID { return c.Command.Target }

// Secondary is shorthand for the command's indirect object.
func (c *Context) Secondary() types.EntityID { return c.Command.Secondary }

// Actor is shorthand for the acting entity.
func (c *Context) Actor() types.EntityID { return c.Command.Actor }

// Outcome is the structured result of Execute, handed to Report.
type Outcome struct {
	From   types.EntityID
	To     types.EntityID
	Detail map[string]any
}

// Action is one verb's semantics, split into three phases. Validate and
// Report must not mutate the world; only Execute may.
type Action interface {
	ID() string
	Validate(ctx *Context) error
	Execute(ctx *Context) (Outcome, error)
	Report(ctx *Context, out Outcome) []types.SemanticEvent
}

// Func adapts plain functions to Action. A nil ValidateFn always passes,
// a nil ExecuteFn changes nothing.
type Func struct {
	Name       string
	ValidateFn func(*Context) error
	ExecuteFn  func(*Context) (Outcome, error)
	ReportFn   func(*Context, Outcome) []types.SemanticEvent
}

func (f *Func) ID() string { return f.Name }

func (f *Func) Validate(ctx *Context) error {
	if f.ValidateFn == nil {
		return nil
	}
	return f.ValidateFn(ctx)
}

func (f *Func) Execute(ctx *Context) (Outcome, error) {
	if f.ExecuteFn == nil {
		return Outcome{}, nil
	}
	return f.ExecuteFn(ctx)
}

func (f *Func) Report(ctx *Context, out Outcome) []types.SemanticEvent {
	if f.ReportFn == nil {
		return nil
	}
	return f.ReportFn(ctx, out)
}

// ValidationError is a precondition failure. Reason is a stable identifier
// such as "already-open"; Message is a plain English account for logs and
// debugging. Narration is keyed by Reason.
type ValidationError struct {
	Action  string
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Action, e.Message, e.Reason)
}

// InconsistencyError is an Execute failure after Validate passed. The world
// has been restored to its pre-execute checkpoint.
type InconsistencyError struct {
	Action string
	Turn   int
	Cause  error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("turn %d: %s failed after validation: %v", e.Turn, e.Action, e.Cause)
}

func (e *InconsistencyError) Unwrap() error { return e.Cause }

// ErrDuplicateAction is returned when registering an action ID twice.
var ErrDuplicateAction = errors.New("action already registered")

// Registry maps action IDs to actions.
type Registry struct {
	actions map[string]Action
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: map[string]Action{}}
}

// Register adds an action.
func (r *Registry) Register(a Action) error {
	if _, ok := r.actions[a.ID()]; ok {
		return fmt.Errorf("register %q: %w", a.ID(), ErrDuplicateAction)
	}
	r.actions[a.ID()] = a
	return nil
}

// Replace adds or overrides an action.
func (r *Registry) Replace(a Action) { r.actions[a.ID()] = a }

// Get looks an action up by ID.
func (r *Registry) Get(id string) (Action, bool) {
	a, ok := r.actions[id]
	return a, ok
}

// IDs returns every registered action ID, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.actions))
	for id := range r.actions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
