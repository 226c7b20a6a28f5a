package interpreter

import (
	"maps"
	"sort"
)

// Environment maps names to values. Declarations go through Extended and
// never touch the receiver; assignments go through Set and mutate it, so
// every holder of the same *Environment observes them.
type Environment struct {
	store map[string]Value
}

func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]Value)}
}

// Lookup treats a name bound to nil the same as an unbound name.
func (e *Environment) Lookup(name string) (Value, bool) {
	val, ok := e.store[name]
	if !ok || val == nil {
		return nil, false
	}
	return val, true
}

// Extended returns a copy of e with name bound to val.
func (e *Environment) Extended(name string, val Value) *Environment {
	store := make(map[string]Value, len(e.store)+1)
	maps.Copy(store, e.store)
	store[name] = val
	return &Environment{store: store}
}

// Merged returns a copy of e with each name bound to the value at the same
// position. Later names win over earlier duplicates.
func (e *Environment) Merged(names []string, vals []Value) *Environment {
	store := make(map[string]Value, len(e.store)+len(names))
	maps.Copy(store, e.store)
	for i, name := range names {
		store[name] = vals[i]
	}
	return &Environment{store: store}
}

// Set rebinds an existing name in place.
func (e *Environment) Set(name string, val Value) error {
	if _, ok := e.store[name]; !ok {
		return undeclared(name)
	}
	e.store[name] = val
	return nil
}

func (e *Environment) Len() int { return len(e.store) }

func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.store))
	for name := range e.store {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
