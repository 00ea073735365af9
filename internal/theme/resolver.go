package theme

import (
	"errors"
	"fmt"
)

var (
	// ErrInheritanceCycle marks a definition whose inheritance chain loops
	// back on itself.
	ErrInheritanceCycle = errors.New("inheritance cycle")
	// ErrUnknownParent marks a definition inheriting from a name absent
	// from the catalog.
	ErrUnknownParent = errors.New("unknown parent")
)

// Resolvable is the single-parent inheritance contract shared by theme and
// skin definitions.
type Resolvable[T any] interface {
	ParentName() string
	MergeOver(parent T) T
}

// ResolveAll flattens every definition's inheritance chain. Each name is
// resolved at most once: a definition without a parent resolves to itself,
// anything else resolves its parent first and merges over it.
//
// A broken chain (cycle or missing parent) fails only the definitions on
// it; they are left out of the result and reported in the returned error
// map, and the rest of the catalog resolves normally.
func ResolveAll[T Resolvable[T]](defs map[string]T) (map[string]T, map[string]error) {
	resolved := make(map[string]T, len(defs))
	failed := make(map[string]error)
	inProgress := make(map[string]bool)

	var resolve func(name string) (T, error)
	resolve = func(name string) (T, error) {
		var zero T
		if r, ok := resolved[name]; ok {
			return r, nil
		}
		if err, ok := failed[name]; ok {
			return zero, err
		}
		def, ok := defs[name]
		if !ok {
			return zero, fmt.Errorf("%w: %q", ErrUnknownParent, name)
		}
		if inProgress[name] {
			return zero, fmt.Errorf("%w: %q", ErrInheritanceCycle, name)
		}

		parentName := def.ParentName()
		if parentName == "" {
			resolved[name] = def
			return def, nil
		}

		inProgress[name] = true
		parent, err := resolve(parentName)
		delete(inProgress, name)
		if err != nil {
			failed[name] = err
			return zero, err
		}

		merged := def.MergeOver(parent)
		resolved[name] = merged
		return merged, nil
	}

	for name := range defs {
		if _, err := resolve(name); err != nil {
			failed[name] = err
		}
	}
	return resolved, failed
}
