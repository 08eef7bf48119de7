package handler

import (
	"github.com/roach88/statefuzz/internal/actor"
	"github.com/roach88/statefuzz/internal/ghost"
	"github.com/roach88/statefuzz/internal/ir"
)

// InputKind distinguishes numeric inputs from actor-typed inputs.
type InputKind int

const (
	// KindInt is a bounded int64 input, stored as ir.IRInt.
	KindInt InputKind = iota

	// KindActor picks a member of the actor pool, stored as the actor id
	// (ir.IRString).
	KindActor
)

// String returns the kind name.
func (k InputKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindActor:
		return "actor"
	default:
		return "unknown"
	}
}

// Range computes the inclusive bounds of a numeric input for the current
// step. hi < lo means no valid value exists and the step is rejected.
type Range func(s *Scope) (lo, hi int64)

// Input declares one argument of an action.
type Input struct {
	Name string
	Kind InputKind

	// Range bounds a KindInt input. Ignored for KindActor.
	Range Range

	// Simplest is the value the shrinker moves this input toward.
	Simplest int64
}

// IntRange declares a numeric input with fixed bounds. The shrinker
// targets lo.
func IntRange(name string, lo, hi int64) Input {
	return Input{
		Name:     name,
		Kind:     KindInt,
		Range:    func(*Scope) (int64, int64) { return lo, hi },
		Simplest: lo,
	}
}

// IntDynamic declares a numeric input whose bounds depend on state.
func IntDynamic(name string, r Range, simplest int64) Input {
	return Input{Name: name, Kind: KindInt, Range: r, Simplest: simplest}
}

// ActorInput declares an input that names another actor.
func ActorInput(name string) Input {
	return Input{Name: name, Kind: KindActor}
}

// Scope is what a handler can see while a step is being prepared: the
// calling actor, the ghost model and the SUT's current view.
type Scope struct {
	Actor actor.Actor
	Ghost ghost.Reader
	View  ir.IRObject
	Pool  *actor.Pool
}

// ActorArg resolves an actor-typed argument.
func (s *Scope) ActorArg(args ir.IRObject, name string) (actor.Actor, bool) {
	id, ok := args.String(name)
	if !ok || s.Pool == nil {
		return actor.Actor{}, false
	}
	return s.Pool.Lookup(id)
}
