package shrink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/sequence"
)

// thresholdModel fails at a "trigger" step once the running sum of "add"
// arguments reaches 10, or reports "big" once it reaches 20.
func thresholdModel(_ context.Context, steps []sequence.Step) ([]sequence.Step, *sequence.Failure, error) {
	var sum int64
	out := make([]sequence.Step, 0, len(steps))
	for i, st := range steps {
		st.Index = i
		st.Outcome = sequence.Success(nil)
		out = append(out, st)
		switch st.Action {
		case "add":
			sum += st.Args.IntOr("n", 0)
		case "trigger":
			switch {
			case sum >= 20:
				return out, &sequence.Failure{Kind: sequence.FailureInvariant, ID: "big", Step: i}, nil
			case sum >= 10:
				return out, &sequence.Failure{Kind: sequence.FailureInvariant, ID: "threshold", Step: i}, nil
			}
		}
	}
	return out, nil, nil
}

type zeroSimplifier struct{}

func (zeroSimplifier) Simplest(action, input string) (int64, bool) {
	return 0, action == "add" && input == "n"
}

func seq(specs ...any) []sequence.Step {
	var steps []sequence.Step
	for i := 0; i < len(specs); i++ {
		st := sequence.Step{Index: len(steps), Origin: len(steps), Action: specs[i].(string)}
		if st.Action == "add" {
			i++
			st.Args = ir.IRObject{"n": ir.IRInt(specs[i].(int))}
		}
		steps = append(steps, st)
	}
	return steps
}

var threshold = sequence.Failure{Kind: sequence.FailureInvariant, ID: "threshold"}

func assertSubsequence(t *testing.T, original, shrunk []sequence.Step) {
	t.Helper()
	last := -1
	for _, st := range shrunk {
		require.Greater(t, st.Origin, last, "origins must strictly increase")
		require.Less(t, st.Origin, len(original))
		assert.Equal(t, original[st.Origin].Action, st.Action)
		last = st.Origin
	}
}

func TestShrink_RemovesNoiseAndSimplifies(t *testing.T) {
	original := seq("noise", "add", 7, "noise", "add", 8, "noise", "trigger")

	res, err := Shrink(context.Background(), thresholdModel, zeroSimplifier{}, original, threshold, 1000)
	require.NoError(t, err)

	assert.True(t, res.Minimal)
	require.Len(t, res.Steps, 3)
	assert.Equal(t, "trigger", res.Steps[2].Action)
	assert.Equal(t, int64(10), res.Steps[0].Args.IntOr("n", 0)+res.Steps[1].Args.IntOr("n", 0))
	assertSubsequence(t, original, res.Steps)

	_, f, err := thresholdModel(context.Background(), res.Steps)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.True(t, f.Same(threshold))
}

func TestShrink_DoesNotMutateInput(t *testing.T) {
	original := seq("add", 30, "trigger")
	_, err := Shrink(context.Background(), thresholdModel, zeroSimplifier{}, original,
		sequence.Failure{Kind: sequence.FailureInvariant, ID: "big"}, 1000)
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(30), original[0].Args["n"])
}

func TestShrink_PreservesFailureIdentity(t *testing.T) {
	big := sequence.Failure{Kind: sequence.FailureInvariant, ID: "big"}
	original := seq("add", 15, "add", 15, "trigger")

	res, err := Shrink(context.Background(), thresholdModel, zeroSimplifier{}, original, big, 1000)
	require.NoError(t, err)

	require.Len(t, res.Steps, 3, "removing either add would turn big into threshold")
	_, f, err := thresholdModel(context.Background(), res.Steps)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "big", f.ID)
	assert.Equal(t, int64(20), res.Steps[0].Args.IntOr("n", 0)+res.Steps[1].Args.IntOr("n", 0))
}

func TestShrink_TruncatesToFailingPrefix(t *testing.T) {
	// The first trigger already fails, so nothing after it survives.
	original := seq("add", 12, "trigger", "add", 1, "trigger")

	res, err := Shrink(context.Background(), thresholdModel, zeroSimplifier{}, original, threshold, 1000)
	require.NoError(t, err)
	require.NotEmpty(t, res.Steps)
	assert.Equal(t, "trigger", res.Steps[len(res.Steps)-1].Action)
	assert.Equal(t, int64(10), res.Steps[0].Args.IntOr("n", 0))
	assert.Len(t, res.Steps, 2)
}

func TestShrink_AcceptsFailureAtEarlierStep(t *testing.T) {
	// Fails at step 3. Dropping the first trigger moves the failure to step 2.
	original := seq("add", 4, "trigger", "add", 6, "trigger")
	_, f, err := thresholdModel(context.Background(), original)
	require.NoError(t, err)
	require.NotNil(t, f)
	require.Equal(t, 3, f.Step)

	res, err := Shrink(context.Background(), thresholdModel, zeroSimplifier{}, original, threshold, 1000)
	require.NoError(t, err)

	require.Len(t, res.Steps, 3)
	assert.Equal(t, []string{"add", "add", "trigger"}, actions(res.Steps))
	assert.Equal(t, 3, res.Steps[2].Origin)
	assertSubsequence(t, original, res.Steps)

	_, f, err = thresholdModel(context.Background(), res.Steps)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.True(t, f.Same(threshold))
	assert.Equal(t, 2, f.Step)
}

func actions(steps []sequence.Step) []string {
	names := make([]string, len(steps))
	for i, st := range steps {
		names[i] = st.Action
	}
	return names
}

func TestShrink_LimitReportsNotMinimal(t *testing.T) {
	original := seq("noise", "add", 7, "noise", "add", 8, "noise", "trigger")

	res, err := Shrink(context.Background(), thresholdModel, zeroSimplifier{}, original, threshold, 3)
	require.NoError(t, err)
	assert.False(t, res.Minimal)
	assert.Equal(t, 3, res.Attempts)

	_, f, err := thresholdModel(context.Background(), res.Steps)
	require.NoError(t, err)
	require.NotNil(t, f, "best-so-far must still reproduce")
	assertSubsequence(t, original, res.Steps)
}

func TestShrink_ZeroLimit(t *testing.T) {
	original := seq("add", 10, "trigger")
	res, err := Shrink(context.Background(), thresholdModel, zeroSimplifier{}, original, threshold, 0)
	require.NoError(t, err)
	assert.False(t, res.Minimal)
	assert.Zero(t, res.Attempts)
	assert.Len(t, res.Steps, 2)
}

func TestShrink_NotReproducing(t *testing.T) {
	original := seq("add", 1, "trigger")
	_, err := Shrink(context.Background(), thresholdModel, zeroSimplifier{}, original, threshold, 100)
	require.ErrorIs(t, err, ErrNotReproducible)
}

func TestShrink_ReplayError(t *testing.T) {
	boom := errors.New("factory down")
	replay := func(context.Context, []sequence.Step) ([]sequence.Step, *sequence.Failure, error) {
		return nil, nil, boom
	}
	_, err := Shrink(context.Background(), replay, zeroSimplifier{}, seq("trigger"), threshold, 100)
	require.ErrorIs(t, err, boom)
}

func TestShrink_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	original := seq("add", 10, "trigger")
	res, err := Shrink(ctx, thresholdModel, zeroSimplifier{}, original, threshold, 100)
	require.NoError(t, err)
	assert.False(t, res.Minimal)
	assert.Equal(t, original, res.Steps)
}

func TestMidpoint(t *testing.T) {
	tests := []struct{ a, b, want int64 }{
		{0, 10, 5},
		{10, 0, 5},
		{1, 2, 1},
		{2, 1, 2},
		{-9, 9, 0},
		{-1 << 63, 1<<63 - 1, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, midpoint(tt.a, tt.b), "midpoint(%d, %d)", tt.a, tt.b)
	}
}
