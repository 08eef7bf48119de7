package engine

import (
	"context"
	"fmt"

	"github.com/roach88/statefuzz/internal/actor"
	"github.com/roach88/statefuzz/internal/ghost"
	"github.com/roach88/statefuzz/internal/handler"
	"github.com/roach88/statefuzz/internal/invariant"
	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/report"
	"github.com/roach88/statefuzz/internal/sequence"
	"github.com/roach88/statefuzz/internal/sut"
)

// execution is one pass over a sequence: a private SUT instance and a
// private ghost model. It is never shared between goroutines.
type execution struct {
	e     *Engine
	run   int
	sut   sut.SUT
	ghost *ghost.State
	// reader is the read-only face of ghost handed to handlers and
	// invariants.
	reader ghost.Reader
	view   ir.IRObject
	steps  []sequence.Step

	// diagnose records a ghost and view snapshot after every step.
	diagnose    bool
	diagnostics []report.Diagnostic
}

// start builds a fresh SUT and ghost model. run is -1 for replays.
func (e *Engine) start(ctx context.Context, run int, diagnose bool) (*execution, error) {
	s, err := e.h.Factory.New(ctx)
	if err != nil {
		return nil, NewSetupError(run, err)
	}
	g := ghost.New(e.h.Ghost)
	return &execution{
		e:        e,
		run:      run,
		sut:      s,
		ghost:    g,
		reader:   g.ReadOnly(),
		view:     s.Observe(),
		diagnose: diagnose,
	}, nil
}

func (x *execution) close() {
	if err := sut.Close(x.sut); err != nil {
		x.e.logger.Warn("close SUT instance failed", "run", x.run, "error", err)
	}
}

func (x *execution) scope(who actor.Actor) *handler.Scope {
	return &handler.Scope{Actor: who, Ghost: x.reader, View: x.view, Pool: x.e.h.Pool}
}

// last returns the most recent step.
func (x *execution) last() sequence.Step {
	return x.steps[len(x.steps)-1]
}

// step executes one step and checks invariants. reject, when non-empty,
// is a rejection already decided during materialization; the SUT is not
// called. The returned failure is nil unless the run must stop. An error
// means the harness itself broke and the execution cannot continue.
func (x *execution) step(ctx context.Context, act *handler.Action, who actor.Actor, args ir.IRObject, reject string, origin int) (*sequence.Failure, error) {
	st := sequence.Step{
		Index:      len(x.steps),
		Origin:     origin,
		ActorIndex: who.Index,
		ActorID:    who.ID,
		Action:     act.Name,
		Args:       args,
	}

	sc := x.scope(who)
	if reject == "" {
		if ok, why := act.Admit(sc, args); !ok {
			reject = why
		}
	}

	if reject != "" {
		st.Outcome = sequence.Rejected(reject)
	} else {
		out, err := x.call(ctx, who, act.Name, args)
		if err != nil {
			st.Outcome = sequence.Reverted(err.Error())
		} else {
			if err := act.Apply(x.ghost, sc, args, out); err != nil {
				return nil, NewHandlerPanicError(x.run, st.Index, err)
			}
			st.Outcome = sequence.Success(out)
		}
		x.view = x.sut.Observe()
	}

	x.e.clock.Next()
	x.steps = append(x.steps, st)
	if x.diagnose {
		x.diagnostics = append(x.diagnostics, report.Diagnostic{
			Step:  st.Index,
			Ghost: x.ghost.Snapshot(),
			View:  x.view.Clone(),
		})
	}

	x.e.logger.Debug("step executed",
		"run", x.run,
		"step", st.Index,
		"action", st.Action,
		"actor", who.String(),
		"outcome", string(st.Outcome.Kind),
	)

	if v := x.e.h.Invariants.Check(x.view, x.reader); v != nil {
		return &sequence.Failure{
			Kind:    sequence.FailureInvariant,
			ID:      v.ID,
			Message: v.Message,
			Step:    st.Index,
		}, nil
	}
	if st.Outcome.Kind == sequence.OutcomeReverted && x.e.cfg.FailOnRevert {
		return &sequence.Failure{
			Kind:    sequence.FailureRevert,
			ID:      act.Name,
			Message: fmt.Sprintf("%s reverted: %s", act.Name, st.Outcome.Reason),
			Step:    st.Index,
		}, nil
	}
	return nil, nil
}

// call invokes the SUT. A panic inside the SUT is a revert like any other
// call failure. The SUT gets its own copy of args.
func (x *execution) call(ctx context.Context, who actor.Actor, action string, args ir.IRObject) (out ir.IRObject, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return x.sut.Call(ctx, who, action, args.Clone())
}

// runResult is what one attempt hands to the committer.
type runResult struct {
	run     int
	steps   []sequence.Step
	failure *sequence.Failure
	err     error
}

// attempt generates and executes run. It stops at depth, at the first
// failure, or when the run alone exceeds max_rejects.
func (e *Engine) attempt(ctx context.Context, run int) runResult {
	res := runResult{run: run}

	x, err := e.start(ctx, run, false)
	if err != nil {
		res.err = err
		return res
	}
	defer x.close()

	gen := sequence.NewGenerator(e.cfg.Seed, run, e.h.Actions, sequence.Bias{
		Dictionary: e.dict,
		Rate:       e.cfg.DictionaryRate,
	})
	quota := NewRejectQuota(e.cfg.MaxRejects)

	for i := 0; i < e.cfg.Depth; i++ {
		if err := ctx.Err(); err != nil {
			res.err = err
			break
		}

		req := gen.Next()
		act := e.h.Actions.At(req.Action)
		who := e.h.Pool.Select(req.ActorRaw)
		args, reject := act.Materialize(x.scope(who), req.Draws, e.dict)

		f, err := x.step(ctx, act, who, args, reject, i)
		if err != nil {
			res.err = err
			break
		}
		if f != nil {
			res.failure = f
			break
		}
		if sequence.CountsAsReject(x.last().Outcome.Kind, e.cfg.FailOnRevert) {
			if err := quota.Check(run); err != nil {
				e.logger.Debug("run stopped on reject quota",
					"run", run,
					"rejects", quota.Current(),
					"max_rejects", quota.Limit(),
				)
				break
			}
		}
	}

	res.steps = x.steps
	return res
}

// severityOf returns the severity recorded for a failure.
func (e *Engine) severityOf(f sequence.Failure) invariant.Severity {
	if f.Kind == sequence.FailureInvariant {
		if inv, ok := e.h.Invariants.Lookup(f.ID); ok {
			return inv.Severity
		}
	}
	return invariant.SeverityHigh
}
