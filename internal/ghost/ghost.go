// Package ghost is the reference model kept alongside the system under test.
//
// Handlers update a State with the arithmetic they expect the SUT to
// perform; invariants compare the two. A State belongs to exactly one
// sequence execution and is reset (never shared) between executions, so
// parallel attempts cannot observe each other's bookkeeping.
package ghost

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/statefuzz/internal/actor"
	"github.com/roach88/statefuzz/internal/ir"
)

// Reader is the read-only view handed to invariants and preconditions.
type Reader interface {
	// Get returns the value of key, or zero if it was never written.
	Get(key string) int64
	// Sum adds up name over every actor in actors.
	Sum(name string, actors []actor.Actor) int64
	// Keys returns all written keys in sorted order.
	Keys() []string
}

// State is a mutable named mapping of counters and balances.
type State struct {
	initial map[string]int64
	vals    map[string]int64
}

var _ Reader = (*State)(nil)

// New returns a State whose Reset target is initial. initial may be nil.
func New(initial map[string]int64) *State {
	s := &State{initial: maps.Clone(initial)}
	s.Reset()
	return s
}

// Reset restores the initial values and drops everything else.
func (s *State) Reset() {
	s.vals = make(map[string]int64, len(s.initial))
	maps.Copy(s.vals, s.initial)
}

// Get implements Reader.
func (s *State) Get(key string) int64 {
	return s.vals[key]
}

// Add adds delta to key and returns the new value.
func (s *State) Add(key string, delta int64) int64 {
	s.vals[key] += delta
	return s.vals[key]
}

// Sum implements Reader.
func (s *State) Sum(name string, actors []actor.Actor) int64 {
	var total int64
	for _, a := range actors {
		total += s.vals[Key(name, a)]
	}
	return total
}

// Keys implements Reader.
func (s *State) Keys() []string {
	return slices.Sorted(maps.Keys(s.vals))
}

// Snapshot copies the current values into an IRObject for diagnostics.
func (s *State) Snapshot() ir.IRObject {
	out := make(ir.IRObject, len(s.vals))
	for k, v := range s.vals {
		out[k] = ir.IRInt(v)
	}
	return out
}

// ReadOnly returns a Reader over s with no path back to the mutators.
// Invariants and preconditions see the model through it.
func (s *State) ReadOnly() Reader {
	return readOnly{s: s}
}

type readOnly struct {
	s *State
}

func (r readOnly) Get(key string) int64 { return r.s.Get(key) }

func (r readOnly) Sum(name string, actors []actor.Actor) int64 { return r.s.Sum(name, actors) }

func (r readOnly) Keys() []string { return r.s.Keys() }

// Key builds the per-actor key for name, e.g. "balance/actor-2".
func Key(name string, a actor.Actor) string {
	return fmt.Sprintf("%s/%s", name, a)
}
