// Package shrink minimizes a failing sequence while preserving its
// failure.
//
// The search alternates two passes until neither makes progress:
//
//   - coarse: delete contiguous blocks of steps, halves first, then
//     quarters and so on down to single steps
//   - fine: binary-search each numeric argument toward its simplest value
//
// Every candidate is verified by a full replay from a fresh SUT and ghost
// model. Nothing is cached. The result keeps steps in their original
// order and never introduces a step that was not in the input, so it is
// always a subsequence of the original (Step.Origin is strictly
// increasing). A replay budget bounds the search; running out of it, or
// out of time, yields the best sequence found so far with Minimal unset.
package shrink

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/sequence"
)

// ErrNotReproducible is returned when the input sequence does not fail as
// expected on its first replay, which means the SUT is not deterministic.
var ErrNotReproducible = errors.New("sequence does not reproduce")

// ReplayFunc executes steps from scratch and returns the executed prefix
// (ending at the first failure, if any) and that failure. An error means
// the replay itself could not run.
type ReplayFunc func(ctx context.Context, steps []sequence.Step) ([]sequence.Step, *sequence.Failure, error)

// Simplifier names the shrink target of numeric inputs.
type Simplifier interface {
	Simplest(action, input string) (int64, bool)
}

// Result is the outcome of a shrink.
type Result struct {
	Steps []sequence.Step

	// Minimal is true when the search reached a fixpoint: no single
	// deletion or numeric simplification preserves the failure.
	Minimal bool

	// Attempts is the number of replays performed.
	Attempts int
}

type shrinker struct {
	replay ReplayFunc
	simp   Simplifier
	target sequence.Failure
	limit  int

	best     []sequence.Step
	attempts int
	stopped  bool
}

// Shrink minimizes steps, which must reproduce target. limit caps the
// number of replays, including the initial verification.
func Shrink(ctx context.Context, replay ReplayFunc, simp Simplifier, steps []sequence.Step, target sequence.Failure, limit int) (Result, error) {
	s := &shrinker{
		replay: replay,
		simp:   simp,
		target: target,
		limit:  limit,
		best:   sequence.Clone(steps),
	}

	ok, err := s.try(ctx, s.best)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		if s.stopped {
			return s.result(false), nil
		}
		return Result{}, fmt.Errorf("shrink %s: %w", target, ErrNotReproducible)
	}

	for {
		deleted, err := s.coarse(ctx)
		if err != nil {
			return Result{}, err
		}
		simplified, err := s.fine(ctx)
		if err != nil {
			return Result{}, err
		}
		if s.stopped {
			return s.result(false), nil
		}
		if !deleted && !simplified {
			return s.result(true), nil
		}
	}
}

func (s *shrinker) result(minimal bool) Result {
	return Result{Steps: s.best, Minimal: minimal, Attempts: s.attempts}
}

// try replays candidate and adopts its executed prefix if it fails the
// same way. It returns false without replaying once the budget or the
// context is spent.
func (s *shrinker) try(ctx context.Context, candidate []sequence.Step) (bool, error) {
	if s.stopped {
		return false, nil
	}
	if s.attempts >= s.limit || ctx.Err() != nil {
		s.stopped = true
		return false, nil
	}
	s.attempts++

	executed, failure, err := s.replay(ctx, candidate)
	if err != nil {
		if ctx.Err() != nil {
			s.stopped = true
			return false, nil
		}
		return false, fmt.Errorf("shrink replay %d: %w", s.attempts, err)
	}
	// Same ignores the step index: a candidate may fail earlier than best
	// did, and its executed prefix is then no longer than the candidate.
	if failure == nil || !failure.Same(s.target) {
		return false, nil
	}
	s.best = executed
	return true, nil
}

// coarse tries deleting blocks of decreasing size.
func (s *shrinker) coarse(ctx context.Context) (bool, error) {
	progress := false
	for chunk := len(s.best) / 2; chunk >= 1; chunk /= 2 {
		for i := 0; i < len(s.best); {
			end := min(i+chunk, len(s.best))
			if end-i == len(s.best) {
				i = end
				continue
			}
			ok, err := s.try(ctx, without(s.best, i, end))
			if err != nil {
				return progress, err
			}
			if s.stopped {
				return progress, nil
			}
			if ok {
				progress = true
				continue
			}
			i = end
		}
	}
	return progress, nil
}

// fine moves each numeric argument toward its simplest value.
func (s *shrinker) fine(ctx context.Context) (bool, error) {
	progress := false
	for i := 0; i < len(s.best); i++ {
		step := s.best[i]
		for _, key := range step.Args.SortedKeys() {
			if i >= len(s.best) {
				return progress, nil
			}
			target, ok := s.simp.Simplest(step.Action, key)
			if !ok {
				continue
			}
			changed, err := s.search(ctx, i, key, target)
			if err != nil {
				return progress, err
			}
			if changed {
				progress = true
			}
			if s.stopped {
				return progress, nil
			}
		}
	}
	return progress, nil
}

// search binary-searches the argument key of step i between target and its
// current value. lo always fails to reproduce (or is untested); hi always
// reproduces.
func (s *shrinker) search(ctx context.Context, i int, key string, target int64) (bool, error) {
	cur, ok := s.best[i].Args.Int(key)
	if !ok || cur == target {
		return false, nil
	}

	ok, err := s.try(ctx, withArg(s.best, i, key, target))
	if err != nil || ok {
		return ok, err
	}

	changed := false
	lo, hi := target, cur
	for {
		mid := midpoint(lo, hi)
		if mid == lo || mid == hi || s.stopped || i >= len(s.best) {
			return changed, nil
		}
		ok, err := s.try(ctx, withArg(s.best, i, key, mid))
		if err != nil {
			return changed, err
		}
		if ok {
			changed = true
			hi = mid
			if i >= len(s.best) {
				return changed, nil
			}
		} else {
			lo = mid
		}
	}
}

// midpoint returns the value halfway from a to b without overflow.
func midpoint(a, b int64) int64 {
	if a <= b {
		return a + int64((uint64(b)-uint64(a))/2)
	}
	return a - int64((uint64(a)-uint64(b))/2)
}

func without(steps []sequence.Step, from, to int) []sequence.Step {
	out := make([]sequence.Step, 0, len(steps)-(to-from))
	out = append(out, steps[:from]...)
	return append(out, steps[to:]...)
}

func withArg(steps []sequence.Step, i int, key string, v int64) []sequence.Step {
	out := sequence.Clone(steps)
	out[i].Args[key] = ir.IRInt(v)
	return out
}
