package engine

import (
	"context"

	"github.com/roach88/statefuzz/internal/report"
	"github.com/roach88/statefuzz/internal/sequence"
)

// Execution is the result of replaying a fixed sequence.
type Execution struct {
	// Steps is the executed prefix, ending at the failing step if any.
	Steps []sequence.Step

	// Failure is the first failure, or nil.
	Failure *sequence.Failure

	Stats       sequence.Stats
	Diagnostics []report.Diagnostic
}

// Replay executes steps from a fresh SUT and ghost model. Concrete
// arguments are reused as recorded; ranges and preconditions are
// re-evaluated against the replayed state, so a step whose funding was
// removed is rejected rather than forced through. Replay stops at the
// first failure and does not enforce max_rejects.
func (e *Engine) Replay(ctx context.Context, steps []sequence.Step) (*Execution, error) {
	return e.replay(ctx, steps, true)
}

func (e *Engine) replay(ctx context.Context, steps []sequence.Step, diagnose bool) (*Execution, error) {
	x, err := e.start(ctx, -1, diagnose)
	if err != nil {
		return nil, err
	}
	defer x.close()

	var failure *sequence.Failure
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		act, ok := e.h.Actions.Lookup(st.Action)
		if !ok {
			return nil, NewUnknownActionError(st.Index, "action", st.Action)
		}
		who, ok := e.h.Pool.Lookup(st.ActorID)
		if !ok {
			return nil, NewUnknownActionError(st.Index, "actor", st.ActorID)
		}
		failure, err = x.step(ctx, act, who, st.Args.Clone(), "", st.Origin)
		if err != nil {
			return nil, err
		}
		if failure != nil {
			break
		}
	}

	return &Execution{
		Steps:       x.steps,
		Failure:     failure,
		Stats:       sequence.Tally(x.steps),
		Diagnostics: x.diagnostics,
	}, nil
}

// shrinkReplay adapts replay to shrink.ReplayFunc.
func (e *Engine) shrinkReplay(ctx context.Context, steps []sequence.Step) ([]sequence.Step, *sequence.Failure, error) {
	x, err := e.replay(ctx, steps, false)
	if err != nil {
		return nil, nil, err
	}
	return x.Steps, x.Failure, nil
}
