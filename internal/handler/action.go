package handler

import (
	"fmt"

	"github.com/roach88/statefuzz/internal/bound"
	"github.com/roach88/statefuzz/internal/ghost"
	"github.com/roach88/statefuzz/internal/ir"
)

// ReasonPrecondition is the rejection reason recorded when an action's
// precondition returns false.
const ReasonPrecondition = "precondition false"

// Action is one registered SUT capability.
type Action struct {
	Name string

	// Weight is the relative selection weight. Zero is treated as 1.
	Weight int

	Inputs []Input

	// Precondition gates the call. Nil means always allowed.
	Precondition func(s *Scope, args ir.IRObject) bool

	// Update applies the expected effect of a successful call to the
	// ghost model. It must not be derived from out when the two could
	// diverge.
	Update func(g *ghost.State, s *Scope, args, out ir.IRObject)
}

// DrawMode selects how a raw draw turns into a concrete value.
type DrawMode uint8

const (
	// DrawUniform bounds the raw value into the range.
	DrawUniform DrawMode = iota
	// DrawLow takes the lower edge of the range.
	DrawLow
	// DrawHigh takes the upper edge of the range.
	DrawHigh
	// DrawDictionary picks a dictionary value and clamps it into range.
	DrawDictionary
)

// Draw is the raw material for one input.
type Draw struct {
	Mode DrawMode
	Raw  uint64
}

// Materialize turns raw draws into concrete arguments for scope s. When a
// numeric input has an empty range it returns the arguments built so far
// and a non-empty rejection reason.
func (a *Action) Materialize(s *Scope, draws []Draw, dict []int64) (ir.IRObject, string) {
	args := make(ir.IRObject, len(a.Inputs))
	for i, in := range a.Inputs {
		var d Draw
		if i < len(draws) {
			d = draws[i]
		}
		switch in.Kind {
		case KindActor:
			args[in.Name] = ir.IRString(s.Pool.Select(d.Raw).ID)
		default:
			lo, hi, reject := bounds(in, s)
			if reject != "" {
				return args, reject
			}
			if hi < lo {
				return args, emptyRange(in.Name)
			}
			args[in.Name] = ir.IRInt(pick(d, lo, hi, dict))
		}
	}
	return args, ""
}

func pick(d Draw, lo, hi int64, dict []int64) int64 {
	switch d.Mode {
	case DrawLow:
		return lo
	case DrawHigh:
		return hi
	case DrawDictionary:
		if len(dict) > 0 {
			return bound.Clamp(dict[bound.Index(d.Raw, len(dict))], lo, hi)
		}
	}
	return bound.Int64(d.Raw, lo, hi)
}

// Admit checks concrete arguments against the current ranges and the
// precondition. Generated arguments are always in range; replayed ones
// may not be once earlier steps have been removed.
func (a *Action) Admit(s *Scope, args ir.IRObject) (bool, string) {
	for _, in := range a.Inputs {
		switch in.Kind {
		case KindActor:
			if _, ok := s.ActorArg(args, in.Name); !ok {
				return false, fmt.Sprintf("unknown actor for %s", in.Name)
			}
		default:
			lo, hi, reject := bounds(in, s)
			if reject != "" {
				return false, reject
			}
			if hi < lo {
				return false, emptyRange(in.Name)
			}
			v, ok := args.Int(in.Name)
			if !ok {
				return false, fmt.Sprintf("missing input %s", in.Name)
			}
			if v < lo || v > hi {
				return false, fmt.Sprintf("%s=%d outside [%d, %d]", in.Name, v, lo, hi)
			}
		}
	}
	return a.admitted(s, args)
}

// admitted evaluates the precondition. A panic rejects the step.
func (a *Action) admitted(s *Scope, args ir.IRObject) (ok bool, reason string) {
	defer func() {
		if r := recover(); r != nil {
			ok, reason = false, fmt.Sprintf("precondition panicked: %v", r)
		}
	}()
	if a.Precondition != nil && !a.Precondition(s, args) {
		return false, ReasonPrecondition
	}
	return true, ""
}

// bounds evaluates in.Range. A panic becomes a rejection reason.
func bounds(in Input, s *Scope) (lo, hi int64, reason string) {
	defer func() {
		if r := recover(); r != nil {
			lo, hi, reason = 0, 0, fmt.Sprintf("range for %s panicked: %v", in.Name, r)
		}
	}()
	lo, hi = in.Range(s)
	return lo, hi, ""
}

// Apply runs the ghost update for a successful call. A panic in the
// update is returned as an error; g may then be partially updated.
func (a *Action) Apply(g *ghost.State, s *Scope, args, out ir.IRObject) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ghost update for %s panicked: %v", a.Name, r)
		}
	}()
	if a.Update != nil {
		a.Update(g, s, args, out)
	}
	return nil
}

func emptyRange(input string) string {
	return "empty range for " + input
}
