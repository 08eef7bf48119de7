package handler

import (
	"fmt"
)

// Registry maps action names to actions, in registration order.
type Registry struct {
	actions []*Action
	byName  map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds an action. Names must be unique and non-empty; numeric
// inputs need a Range.
func (r *Registry) Register(a Action) error {
	if a.Name == "" {
		return fmt.Errorf("action name is required")
	}
	if _, dup := r.byName[a.Name]; dup {
		return fmt.Errorf("duplicate action %q", a.Name)
	}
	if a.Weight < 0 {
		return fmt.Errorf("action %q: negative weight %d", a.Name, a.Weight)
	}
	seen := make(map[string]bool, len(a.Inputs))
	for i, in := range a.Inputs {
		if in.Name == "" {
			return fmt.Errorf("action %q: input[%d] has no name", a.Name, i)
		}
		if seen[in.Name] {
			return fmt.Errorf("action %q: duplicate input %q", a.Name, in.Name)
		}
		seen[in.Name] = true
		if in.Kind == KindInt && in.Range == nil {
			return fmt.Errorf("action %q: input %q has no range", a.Name, in.Name)
		}
	}
	if a.Weight == 0 {
		a.Weight = 1
	}
	a.Inputs = append([]Input(nil), a.Inputs...)

	r.byName[a.Name] = len(r.actions)
	r.actions = append(r.actions, &a)
	return nil
}

// MustRegister is like Register but panics on error. For static
// registration in target packages.
func (r *Registry) MustRegister(a Action) {
	if err := r.Register(a); err != nil {
		panic(err)
	}
}

// Lookup finds an action by name.
func (r *Registry) Lookup(name string) (*Action, bool) {
	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.actions[i], true
}

// At returns the i-th registered action.
func (r *Registry) At(i int) *Action {
	return r.actions[i]
}

// Names returns action names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.actions))
	for i, a := range r.actions {
		names[i] = a.Name
	}
	return names
}

// Len returns the number of registered actions.
func (r *Registry) Len() int {
	return len(r.actions)
}

// Weight returns the selection weight of the i-th action.
func (r *Registry) Weight(i int) int {
	return r.actions[i].Weight
}

// Arity returns the number of inputs of the i-th action.
func (r *Registry) Arity(i int) int {
	return len(r.actions[i].Inputs)
}

// Simplest reports the shrink target of a numeric input. It returns false
// for actor inputs and unknown names.
func (r *Registry) Simplest(action, input string) (int64, bool) {
	a, ok := r.Lookup(action)
	if !ok {
		return 0, false
	}
	for _, in := range a.Inputs {
		if in.Name == input {
			return in.Simplest, in.Kind == KindInt
		}
	}
	return 0, false
}
