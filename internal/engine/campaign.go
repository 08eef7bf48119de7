package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/report"
	"github.com/roach88/statefuzz/internal/sequence"
	"github.com/roach88/statefuzz/internal/shrink"
)

// Run executes the campaign.
//
// The returned error is non-nil when the campaign could not reach a
// verdict about the SUT: harness exhaustion (IsExhaustedError, with the
// partial Result still returned), SUT setup failure, or cancellation of
// ctx. Findings are not errors; they are in Result.Reports.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "statefuzz.campaign", trace.WithAttributes(
		attribute.String("statefuzz.seed", strconv.FormatUint(e.cfg.Seed, 10)),
		attribute.Int("statefuzz.runs", e.cfg.Runs),
		attribute.Int("statefuzz.depth", e.cfg.Depth),
		attribute.Int("statefuzz.workers", e.cfg.Workers),
	))
	defer span.End()

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	e.logger.Info("campaign starting",
		"seed", e.cfg.Seed,
		"runs", e.cfg.Runs,
		"depth", e.cfg.Depth,
		"workers", e.cfg.Workers,
		"actions", e.h.Actions.Len(),
		"invariants", e.h.Invariants.Len(),
	)

	// Attempts write into per-run slots; the committer drains them in order.
	slots := make([]chan runResult, e.cfg.Runs)
	for i := range slots {
		slots[i] = make(chan runResult, 1)
	}

	runCtx, stopRuns := context.WithCancel(ctx)
	defer stopRuns()

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(e.cfg.Workers)
	spawned := make(chan struct{})
	go func() {
		defer close(spawned)
		for i := range slots {
			if gctx.Err() != nil {
				return
			}
			g.Go(func() error {
				slots[i] <- e.attempt(gctx, i)
				return nil
			})
		}
	}()

	result, err := e.commit(ctx, slots)

	stopRuns()
	<-spawned
	_ = g.Wait()

	span.SetAttributes(
		attribute.String("statefuzz.verdict", string(result.Verdict)),
		attribute.Int("statefuzz.steps", result.Stats.Attempted),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	e.logger.Info("campaign finished",
		"verdict", string(result.Verdict),
		"runs", result.RunsCompleted,
		"steps", result.Stats.Attempted,
		"rejected", result.Stats.Rejected,
		"reverted", result.Stats.Reverted,
		"findings", len(result.Reports),
	)
	return result, err
}

// commit consumes run results in run-index order.
func (e *Engine) commit(ctx context.Context, slots []chan runResult) (*Result, error) {
	result := &Result{Verdict: VerdictPass, Seed: e.cfg.Seed}
	quota := NewRejectQuota(e.cfg.MaxRejects)

	for i, slot := range slots {
		r, ok := await(ctx, slot)
		if !ok {
			r = runResult{run: i, err: ctx.Err()}
		}
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				result.Verdict = VerdictExhausted
				result.Exhaustion = NewTimeoutError(i, e.cfg.Timeout, r.err)
				return result, result.Exhaustion
			}
			return result, r.err
		}

		steps, over := e.charge(quota, r)
		result.Stats.Add(sequence.Tally(steps))
		if over != nil {
			result.Verdict = VerdictExhausted
			result.Exhaustion = NewExhaustedError(over)
			e.logger.Warn("harness exhausted",
				"run", i,
				"rejects", over.Rejects,
				"max_rejects", over.Limit,
			)
			return result, result.Exhaustion
		}

		id, err := sequence.ID(steps)
		if err != nil {
			return result, fmt.Errorf("run %d: %w", i, err)
		}
		result.SequenceIDs = append(result.SequenceIDs, id)
		result.RunsCompleted++

		if r.failure != nil {
			e.logger.Info("finding",
				"run", i,
				"failure", r.failure.String(),
				"step", r.failure.Step,
				"message", r.failure.Message,
			)
			rep, err := e.report(ctx, r)
			if err != nil {
				return result, err
			}
			result.Reports = append(result.Reports, rep)
			result.Verdict = VerdictFail
			if !e.cfg.CollectAll {
				return result, nil
			}
		}

		e.progress.Do(func() {
			e.logger.Info("campaign progress",
				"runs", result.RunsCompleted,
				"of", len(slots),
				"steps", e.clock.Current(),
			)
		})
	}
	return result, nil
}

// await prefers a ready result over a cancelled context.
func await(ctx context.Context, slot <-chan runResult) (runResult, bool) {
	select {
	case r := <-slot:
		return r, true
	default:
	}
	select {
	case r := <-slot:
		return r, true
	case <-ctx.Done():
		return runResult{}, false
	}
}

// charge bills the rejections of r against the campaign quota in step
// order. When the quota runs out it returns the steps up to and including
// the one that crossed it. A step that both crosses the quota and fails
// is charged, but the failure wins.
func (e *Engine) charge(quota *RejectQuota, r runResult) ([]sequence.Step, *RejectsExceededError) {
	for j, st := range r.steps {
		if !sequence.CountsAsReject(st.Outcome.Kind, e.cfg.FailOnRevert) {
			continue
		}
		err := quota.Check(r.run)
		if err == nil {
			continue
		}
		if r.failure != nil && j == len(r.steps)-1 {
			continue
		}
		var over *RejectsExceededError
		errors.As(err, &over)
		return r.steps[:j+1], over
	}
	return r.steps, nil
}

// report shrinks a failing run and builds its report.
func (e *Engine) report(ctx context.Context, r runResult) (*report.FailureReport, error) {
	ctx, span := e.tracer.Start(ctx, "statefuzz.shrink", trace.WithAttributes(
		attribute.Int("statefuzz.run", r.run),
		attribute.String("statefuzz.failure", r.failure.String()),
		attribute.Int("statefuzz.steps", len(r.steps)),
	))
	defer span.End()

	sr, err := shrink.Shrink(ctx, e.shrinkReplay, e.h.Actions, r.steps, *r.failure, e.cfg.ShrinkRunLimit)
	switch {
	case errors.Is(err, shrink.ErrNotReproducible):
		e.logger.Warn("failing run does not reproduce on replay; SUT is not deterministic",
			"run", r.run,
			"failure", r.failure.String(),
		)
		sr = shrink.Result{Steps: r.steps}
	case err != nil:
		span.RecordError(err)
		return nil, fmt.Errorf("shrink run %d: %w", r.run, err)
	}

	// Diagnostics come from one more replay of the minimal sequence. It is
	// bounded by depth and must finish even when the campaign timed out.
	final, err := e.replay(context.WithoutCancel(ctx), sr.Steps, true)
	if err != nil {
		return nil, fmt.Errorf("replay minimal sequence of run %d: %w", r.run, err)
	}

	failure := *r.failure
	minimal := sr.Steps
	if final.Failure != nil && final.Failure.Same(failure) {
		failure = *final.Failure
		minimal = final.Steps
	}

	rep := &report.FailureReport{
		Failure:        failure,
		Severity:       string(e.severityOf(failure)),
		Seed:           e.cfg.Seed,
		Run:            r.run,
		Full:           r.steps,
		Minimal:        minimal,
		Minimized:      sr.Minimal,
		ShrinkAttempts: sr.Attempts,
		Diagnostics:    final.Diagnostics,
		EngineVersion:  ir.EngineVersion,
	}
	if err := rep.Seal(); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("statefuzz.minimal_steps", len(minimal)),
		attribute.Int("statefuzz.shrink_attempts", sr.Attempts),
		attribute.Bool("statefuzz.minimized", sr.Minimal),
	)
	e.logger.Info("shrink finished",
		"run", r.run,
		"failure", failure.String(),
		"steps", len(r.steps),
		"minimal_steps", len(minimal),
		"attempts", sr.Attempts,
		"minimized", sr.Minimal,
	)
	return rep, nil
}
