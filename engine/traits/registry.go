package traits

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/nathoo/taleforge/engine/world"
)

var (
	ErrUnknownKind   = errors.New("unknown trait kind")
	ErrDuplicateKind = errors.New("trait kind already registered")
)

// Factory builds a trait from loosely typed story or save data.
type Factory func(data map[string]any) (world.Trait, error)

// validator is implemented by every built-in trait.
type validator interface {
	Validate() error
}

// Registry maps trait kinds to factories. Extensions register new kinds
// before the story is built.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Builtins returns a registry holding every built-in kind.
func Builtins() *Registry {
	r := NewRegistry()
	must := func(kind string, f Factory) {
		if err := r.Register(kind, f); err != nil {
			panic(err)
		}
	}
	must(KindIdentity, Decoder(func() world.Trait { return &Identity{} }))
	must(KindContainer, Decoder(func() world.Trait { return &Container{} }))
	must(KindSupporter, Decoder(func() world.Trait { return &Supporter{} }))
	must(KindOpenable, Decoder(func() world.Trait { return &Openable{} }))
	must(KindLockable, Decoder(func() world.Trait { return &Lockable{} }))
	must(KindPortable, Decoder(func() world.Trait { return &Portable{} }))
	must(KindScenery, Decoder(func() world.Trait { return &Scenery{} }))
	must(KindRoom, Decoder(func() world.Trait { return &Room{} }))
	must(KindDoor, Decoder(func() world.Trait { return &Door{} }))
	must(KindActor, Decoder(func() world.Trait { return &Actor{} }))
	return r
}

// Register adds a factory for kind.
func (r *Registry) Register(kind string, f Factory) error {
	if kind == "" || f == nil {
		return fmt.Errorf("register trait: kind and factory are required")
	}
	if _, ok := r.factories[kind]; ok {
		return fmt.Errorf("register trait %q: %w", kind, ErrDuplicateKind)
	}
	r.factories[kind] = f
	return nil
}

// Build constructs and validates a trait of the given kind.
func (r *Registry) Build(kind string, data map[string]any) (world.Trait, error) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("build trait %q: %w", kind, ErrUnknownKind)
	}
	t, err := f(data)
	if err != nil {
		return nil, fmt.Errorf("build trait %q: %w", kind, err)
	}
	if t.Kind() != kind {
		return nil, fmt.Errorf("build trait %q: factory produced kind %q", kind, t.Kind())
	}
	return t, nil
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind string) bool {
	_, ok := r.factories[kind]
	return ok
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Decoder returns a Factory that decodes data into the record returned by
// newTrait and validates it when the record knows how.
func Decoder(newTrait func() world.Trait) Factory {
	return func(data map[string]any) (world.Trait, error) {
		t := newTrait()
		if len(data) > 0 {
			raw, err := json.Marshal(data)
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(raw, t); err != nil {
				return nil, err
			}
		}
		if v, ok := t.(validator); ok {
			if err := v.Validate(); err != nil {
				return nil, err
			}
		}
		return t, nil
	}
}

// Encode flattens a trait back into the loosely typed form Build accepts.
func Encode(t world.Trait) (map[string]any, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode trait %q: %w", t.Kind(), err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encode trait %q: %w", t.Kind(), err)
	}
	return out, nil
}
