package save

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ErrNoSlot is returned when a named slot does not exist.
var ErrNoSlot = errors.New("no such save slot")

var slotName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidSlot reports an error when name cannot be used as a slot name.
func ValidSlot(name string) error {
	if !slotName.MatchString(name) {
		return fmt.Errorf("invalid slot name %q: use letters, digits, '-' and '_'", name)
	}
	return nil
}

// SlotStore keeps encoded saves under short names.
type SlotStore interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// FileSlots stores each slot as <Dir>/<name>.json.
type FileSlots struct {
	Dir string
}

const slotExt = ".json"

func (f FileSlots) path(name string) string {
	return filepath.Join(f.Dir, name+slotExt)
}

// Put writes a slot atomically: the data goes to a temp file that is then
// renamed over the slot.
func (f FileSlots) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidSlot(name); err != nil {
		return err
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("create save directory: %w", err)
	}
	tmp, err := os.CreateTemp(f.Dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write slot %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write slot %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write slot %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), f.path(name)); err != nil {
		return fmt.Errorf("write slot %s: %w", name, err)
	}
	return nil
}

// Get reads a slot.
func (f FileSlots) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidSlot(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("slot %s: %w", name, ErrNoSlot)
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %s: %w", name, err)
	}
	return data, nil
}

// List returns slot names, sorted. A missing directory has no slots.
func (f FileSlots) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasSuffix(n, slotExt) {
			continue
		}
		n = strings.TrimSuffix(n, slotExt)
		if ValidSlot(n) == nil {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a slot.
func (f FileSlots) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidSlot(name); err != nil {
		return err
	}
	err := os.Remove(f.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("slot %s: %w", name, ErrNoSlot)
	}
	return err
}
