package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statefuzz/internal/ghost"
	"github.com/roach88/statefuzz/internal/handler"
	"github.com/roach88/statefuzz/internal/invariant"
	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/sequence"
)

func TestRun_PassAndAccounting(t *testing.T) {
	h := newHarness(t, []handler.Action{incAction, decAction}, []invariant.Invariant{matchesGhost})
	e := newEngine(t, h, Config{Runs: 20, Depth: 30, Seed: 1})

	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, VerdictPass, res.Verdict)
	assert.True(t, res.Passed())
	assert.Empty(t, res.Reports)
	assert.Equal(t, 20, res.RunsCompleted)
	assert.Len(t, res.SequenceIDs, 20)
	assert.Equal(t, 20*30, res.Stats.Attempted)
	assert.Equal(t, res.Stats.Attempted, res.Stats.Succeeded+res.Stats.Reverted+res.Stats.Rejected)
	assert.Positive(t, res.Stats.Reverted, "dec without funds reverts in the SUT")
}

func TestRun_Deterministic(t *testing.T) {
	run := func() *Result {
		h := newHarness(t, []handler.Action{incAction}, []invariant.Invariant{belowFifty})
		res, err := newEngine(t, h, Config{Runs: 10, Depth: 60, Seed: 99}).Run(context.Background())
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()

	assert.Equal(t, a.SequenceIDs, b.SequenceIDs)
	require.Len(t, a.Reports, 1)
	require.Len(t, b.Reports, 1)
	assert.Equal(t, a.Reports[0].ID, b.Reports[0].ID)

	idA, err := a.ID()
	require.NoError(t, err)
	idB, err := b.ID()
	require.NoError(t, err)
	assert.Equal(t, idA, idB)
}

func TestRun_SeedChangesSequences(t *testing.T) {
	h := newHarness(t, []handler.Action{incAction, decAction}, nil)
	a, err := newEngine(t, h, Config{Runs: 2, Depth: 10, Seed: 1}).Run(context.Background())
	require.NoError(t, err)
	b, err := newEngine(t, h, Config{Runs: 2, Depth: 10, Seed: 2}).Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, a.SequenceIDs, b.SequenceIDs)
}

func TestRun_WorkerCountDoesNotChangeOutcome(t *testing.T) {
	tests := []struct {
		name string
		invs []invariant.Invariant
	}{
		{name: "passing", invs: []invariant.Invariant{matchesGhost}},
		{name: "failing", invs: []invariant.Invariant{belowFifty}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, workers := range []int{1, 3, 8} {
				h := newHarness(t, []handler.Action{incAction, decAction}, tt.invs)
				res, err := newEngine(t, h, Config{Runs: 24, Depth: 25, Seed: 7, Workers: workers}).Run(context.Background())
				require.NoError(t, err)
				id, err := res.ID()
				require.NoError(t, err)
				ids = append(ids, id)
			}
			assert.Equal(t, ids[0], ids[1])
			assert.Equal(t, ids[0], ids[2])
		})
	}
}

func TestRun_ViolationIsShrunk(t *testing.T) {
	h := newHarness(t, []handler.Action{incAction}, []invariant.Invariant{belowFifty})
	e := newEngine(t, h, Config{Runs: 5, Depth: 50, Seed: 11})

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, VerdictFail, res.Verdict)
	assert.Equal(t, 1, res.RunsCompleted, "stops at the first failing run")
	require.Len(t, res.Reports, 1)

	rep := res.Reports[0]
	assert.Equal(t, sequence.FailureInvariant, rep.Failure.Kind)
	assert.Equal(t, "below-fifty", rep.Failure.ID)
	assert.Equal(t, string(invariant.SeverityHigh), rep.Severity)
	assert.Equal(t, uint64(11), rep.Seed)
	assert.True(t, rep.Minimized)
	assert.NotEmpty(t, rep.ID)

	var sum int64
	last := -1
	for _, st := range rep.Minimal {
		assert.Greater(t, st.Origin, last)
		last = st.Origin
		assert.Equal(t, rep.Full[st.Origin].Action, st.Action)
		assert.Equal(t, rep.Full[st.Origin].ActorID, st.ActorID)
		sum += st.Args.IntOr("amount", 0)
	}
	assert.Equal(t, int64(50), sum, "every increment is needed and none is larger than needed")
	assert.Len(t, rep.Diagnostics, len(rep.Minimal))
	assert.Equal(t, ir.IRInt(50), rep.Diagnostics[len(rep.Diagnostics)-1].View["count"])

	x, err := e.Replay(context.Background(), rep.Minimal)
	require.NoError(t, err)
	require.NotNil(t, x.Failure)
	assert.Equal(t, "below-fifty", x.Failure.ID)
}

func TestRun_CollectAll(t *testing.T) {
	h := newHarness(t, []handler.Action{incAction}, []invariant.Invariant{belowFifty})
	res, err := newEngine(t, h, Config{Runs: 4, Depth: 60, Seed: 2, CollectAll: true}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, VerdictFail, res.Verdict)
	assert.Equal(t, 4, res.RunsCompleted)
	require.Len(t, res.Reports, 4, "60 increments of at least 1 always reach 50")
	for i, rep := range res.Reports {
		assert.Equal(t, i, rep.Run)
	}
}

func TestRun_HarnessExhaustion(t *testing.T) {
	h := newHarness(t, []handler.Action{neverAction}, nil)
	e := newEngine(t, h, Config{Runs: 5, Depth: 50, Seed: 1, MaxRejects: 10})

	res, err := e.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsExhaustedError(err))
	assert.Equal(t, VerdictExhausted, res.Verdict)
	assert.False(t, res.Passed())
	assert.Equal(t, 11, res.Stats.Rejected)
	assert.Equal(t, 11, res.Stats.Attempted)
	assert.Equal(t, err, res.Exhaustion)
}

func TestRun_RejectsAreCumulativeAcrossRuns(t *testing.T) {
	h := newHarness(t, []handler.Action{neverAction}, nil)
	e := newEngine(t, h, Config{Runs: 5, Depth: 4, Seed: 1, MaxRejects: 10})

	res, err := e.Run(context.Background())
	require.Error(t, err)
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeHarnessExhausted, re.Code)
	assert.Equal(t, 2, re.Run, "runs 0 and 1 use 8 rejects, run 2 crosses 10")
	assert.Equal(t, 2, res.RunsCompleted)
	assert.Equal(t, 11, res.Stats.Attempted)
}

func TestRun_NoInvariantsStillExecutesEverything(t *testing.T) {
	h := newHarness(t, []handler.Action{incAction, decAction}, nil)
	res, err := newEngine(t, h, Config{Runs: 7, Depth: 9, Seed: 5}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, res.Verdict)
	assert.Equal(t, 63, res.Stats.Attempted)
}

func TestRun_RevertAbsorbedByDefault(t *testing.T) {
	h := newHarness(t, []handler.Action{decAction}, []invariant.Invariant{matchesGhost})
	res, err := newEngine(t, h, Config{Runs: 3, Depth: 10, Seed: 1}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, res.Verdict)
	assert.Equal(t, 30, res.Stats.Reverted, "dec on an empty counter always reverts")
}

func TestRun_RevertCountsAsImplicitRejection(t *testing.T) {
	h := newHarness(t, []handler.Action{decAction}, nil)
	res, err := newEngine(t, h, Config{Runs: 3, Depth: 10, Seed: 1, MaxRejects: 5}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsExhaustedError(err))
	assert.Equal(t, 6, res.Stats.Reverted)
}

func TestRun_FailOnRevert(t *testing.T) {
	h := newHarness(t, []handler.Action{incAction, decAction}, []invariant.Invariant{matchesGhost})
	e := newEngine(t, h, Config{Runs: 10, Depth: 30, Seed: 1, FailOnRevert: true, MaxRejects: 1})

	res, err := e.Run(context.Background())
	require.NoError(t, err, "reverts are findings here, not rejections")
	require.Len(t, res.Reports, 1)

	rep := res.Reports[0]
	assert.Equal(t, sequence.FailureRevert, rep.Failure.Kind)
	assert.Equal(t, "dec", rep.Failure.ID)
	assert.Contains(t, rep.Failure.Message, "dec reverted: underflow")
	last := rep.Minimal[len(rep.Minimal)-1]
	assert.Equal(t, sequence.OutcomeReverted, last.Outcome.Kind)
	assert.Len(t, rep.Minimal, 1, "a lone dec on an empty counter reverts")
}

func TestRun_SUTPanicIsRevert(t *testing.T) {
	h := newHarness(t, []handler.Action{boomAction}, nil)
	e := newEngine(t, h, Config{Runs: 1, Depth: 3, Seed: 1})
	res := e.attempt(context.Background(), 0)
	require.NoError(t, res.err)
	require.Len(t, res.steps, 3)
	assert.Equal(t, sequence.Reverted("panic: kaboom"), res.steps[0].Outcome)
}

func TestRun_PreconditionPanicIsRejection(t *testing.T) {
	boom := handler.Action{
		Name:         "boom",
		Precondition: func(*handler.Scope, ir.IRObject) bool { panic("precondition bug") },
	}
	h := newHarness(t, []handler.Action{boom}, nil)
	e := newEngine(t, h, Config{Runs: 1, Depth: 1, Seed: 1})

	var res *Result
	var err error
	require.NotPanics(t, func() { res, err = e.Run(context.Background()) })
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, res.Verdict)
	assert.Equal(t, sequence.Stats{Attempted: 1, Rejected: 1}, res.Stats)

	r := e.attempt(context.Background(), 0)
	require.NoError(t, r.err)
	require.Len(t, r.steps, 1)
	assert.Equal(t, sequence.Rejected("precondition panicked: precondition bug"), r.steps[0].Outcome)
}

func TestRun_RangePanicIsRejection(t *testing.T) {
	broken := handler.Action{
		Name: "inc",
		Inputs: []handler.Input{handler.IntDynamic("amount", func(*handler.Scope) (int64, int64) {
			panic("range bug")
		}, 0)},
	}
	h := newHarness(t, []handler.Action{broken}, nil)
	e := newEngine(t, h, Config{Runs: 2, Depth: 3, Seed: 1})

	var res *Result
	var err error
	require.NotPanics(t, func() { res, err = e.Run(context.Background()) })
	require.NoError(t, err)
	assert.Equal(t, 6, res.Stats.Rejected)

	r := e.attempt(context.Background(), 0)
	require.NoError(t, r.err)
	require.NotEmpty(t, r.steps)
	assert.Equal(t, sequence.Rejected("range for amount panicked: range bug"), r.steps[0].Outcome)
}

func TestRun_GhostUpdatePanicAbortsCampaign(t *testing.T) {
	broken := handler.Action{
		Name:   "inc",
		Inputs: []handler.Input{handler.IntRange("amount", 1, 10)},
		Update: func(*ghost.State, *handler.Scope, ir.IRObject, ir.IRObject) {
			panic("bad bookkeeping")
		},
	}
	h := newHarness(t, []handler.Action{broken}, []invariant.Invariant{matchesGhost})
	e := newEngine(t, h, Config{Runs: 3, Depth: 5, Seed: 1, Workers: 1})

	var res *Result
	var err error
	require.NotPanics(t, func() { res, err = e.Run(context.Background()) })
	require.Error(t, err)

	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, ErrCodeHandlerPanic, rt.Code)
	assert.Equal(t, 0, rt.Run)
	assert.Equal(t, "0", rt.Details["step"])
	assert.Contains(t, err.Error(), "ghost update for inc panicked: bad bookkeeping")
	assert.False(t, IsExhaustedError(err))
	require.NotNil(t, res)
	assert.Zero(t, res.RunsCompleted)
	assert.Empty(t, res.Reports)
}

func TestRun_HandlersSeeReadOnlyGhost(t *testing.T) {
	var leaked []string
	peek := func(where string, g ghost.Reader) {
		if _, ok := g.(*ghost.State); ok {
			leaked = append(leaked, where)
		}
	}
	inc := incAction
	inc.Precondition = func(s *handler.Scope, _ ir.IRObject) bool {
		peek("precondition", s.Ghost)
		return true
	}
	inc.Inputs = []handler.Input{handler.IntDynamic("amount", func(s *handler.Scope) (int64, int64) {
		peek("range", s.Ghost)
		return 1, 10
	}, 1)}
	watcher := invariant.Invariant{
		ID: "watcher",
		Predicate: func(view ir.IRObject, g ghost.Reader) bool {
			peek("invariant", g)
			return view.IntOr("count", 0) == g.Get("count")
		},
	}
	h := newHarness(t, []handler.Action{inc}, []invariant.Invariant{watcher})

	res, err := newEngine(t, h, Config{Runs: 3, Depth: 10, Seed: 1}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, VerdictPass, res.Verdict, "the read-only view tracks ghost updates")
	assert.Empty(t, leaked)
}

func TestRun_InvariantCheckedAfterRejectedStep(t *testing.T) {
	checks := 0
	counting := invariant.Invariant{
		ID: "counting",
		Predicate: func(ir.IRObject, ghost.Reader) bool {
			checks++
			return true
		},
	}
	h := newHarness(t, []handler.Action{neverAction}, []invariant.Invariant{counting})
	_, err := newEngine(t, h, Config{Runs: 1, Depth: 5, Seed: 1}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, checks)
}

func TestRun_FirstViolationInRegistrationOrder(t *testing.T) {
	alwaysFalse := func(id string) invariant.Invariant {
		return invariant.Invariant{ID: id, Predicate: func(ir.IRObject, ghost.Reader) bool { return false }}
	}
	h := newHarness(t, []handler.Action{incAction}, []invariant.Invariant{alwaysFalse("zeta"), alwaysFalse("alpha")})
	res, err := newEngine(t, h, Config{Runs: 1, Depth: 5, Seed: 1}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Reports, 1)
	assert.Equal(t, "zeta", res.Reports[0].Failure.ID)
	assert.Len(t, res.Reports[0].Minimal, 1)
}

func TestRun_Timeout(t *testing.T) {
	h := newHarness(t, []handler.Action{incAction}, nil)
	e := newEngine(t, h, Config{Runs: 50, Depth: 50, Seed: 1, Timeout: time.Nanosecond})

	res, err := e.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsExhaustedError(err))
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeCampaignTimeout, re.Code)
	assert.Equal(t, VerdictExhausted, res.Verdict)
}

func TestRun_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := newHarness(t, []handler.Action{incAction}, nil)
	_, err := newEngine(t, h, Config{Runs: 5, Depth: 5}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_ZeroShrinkLimitReportsNotMinimized(t *testing.T) {
	h := newHarness(t, []handler.Action{incAction}, []invariant.Invariant{belowFifty})
	res, err := newEngine(t, h, Config{Runs: 1, Depth: 60, Seed: 4, ShrinkRunLimit: 1}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Reports, 1)
	rep := res.Reports[0]
	assert.False(t, rep.Minimized)
	assert.Equal(t, 1, rep.ShrinkAttempts)
	assert.Equal(t, rep.Full, rep.Minimal)
}
