package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/statefuzz/internal/engine"
	"github.com/roach88/statefuzz/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Target   string // optional - overrides the recorded target
}

// ReplayResult is the JSON payload of the replay command.
type ReplayResult struct {
	ReportID   string `json:"report_id"`
	Target     string `json:"target"`
	Expected   string `json:"expected"`
	Observed   string `json:"observed,omitempty"`
	Message    string `json:"message,omitempty"`
	Step       int    `json:"step"`
	Steps      int    `json:"steps"`
	Reproduced bool   `json:"reproduced"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <failure-id>",
		Short: "Re-execute a stored minimal sequence",
		Long: `Replay the minimal sequence of a stored failure report against a fresh
target and check that the same invariant fails again.

The failure id may be abbreviated to any unique prefix. --target replays
against a different target, e.g. to confirm that a fix holds.

Exit codes:
  0 - The failure reproduced
  1 - The failure did not reproduce
  2 - Command error (database not found, unknown failure id, etc.)

Examples:
  statefuzz replay 3f2a --db ./statefuzz.db
  statefuzz replay 3f2a --db ./statefuzz.db --target ledger`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (or STATEFUZZ_DB)")
	cmd.Flags().StringVar(&opts.Target, "target", "", "replay against this target instead of the recorded one")

	return cmd
}

func runReplay(opts *ReplayOptions, id string, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dbPath, err := requireDB(opts.Database, opts.Environ)
	if err != nil {
		return err
	}
	st, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	f, err := st.FindFailure(ctx, id)
	if err != nil {
		return lookupError(err)
	}
	c, err := st.ReadCampaign(ctx, f.CampaignID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read campaign", err)
	}

	target := c.Target
	if opts.Target != "" {
		target = opts.Target
	}
	eng, err := newEngine(target, c.Config, nil, engine.WithLogger(logger))
	if err != nil {
		return err
	}

	rep := f.Report
	out.VerboseLog("replaying %d steps of %s against %s", len(rep.Minimal), rep.ID, target)
	x, err := eng.Replay(ctx, rep.Minimal)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := ReplayResult{
		ReportID: f.ID,
		Target:   target,
		Expected: rep.Failure.String(),
		Step:     -1,
		Steps:    len(x.Steps),
	}
	if x.Failure != nil {
		result.Observed = x.Failure.String()
		result.Message = x.Failure.Message
		result.Step = x.Failure.Step
		result.Reproduced = x.Failure.Same(rep.Failure)
	}

	if opts.Format == "json" {
		if err := out.Success(result); err != nil {
			return err
		}
	} else {
		writeReplayText(out, result)
	}

	if !result.Reproduced {
		return NewExitError(ExitFailure, fmt.Sprintf("%s did not reproduce", result.Expected))
	}
	return nil
}

func writeReplayText(out *OutputFormatter, r ReplayResult) {
	if r.Reproduced {
		failColor.Fprint(out.Writer, "REPRODUCED")
		fmt.Fprintf(out.Writer, " %s at step %d (target %s)\n", r.Observed, r.Step, r.Target)
		fmt.Fprintf(out.Writer, "  message: %s\n", r.Message)
		return
	}
	passColor.Fprint(out.Writer, "NOT REPRODUCED")
	fmt.Fprintf(out.Writer, " %s (target %s, %d steps)\n", r.Expected, r.Target, r.Steps)
	if r.Observed != "" {
		fmt.Fprintf(out.Writer, "  observed %s instead: %s\n", r.Observed, r.Message)
	}
}

// lookupError maps store lookup errors onto command errors.
func lookupError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return WrapExitError(ExitCommandError, "no such failure", err)
	case errors.Is(err, store.ErrAmbiguous):
		return WrapExitError(ExitCommandError, "failure id is ambiguous, use a longer prefix", err)
	default:
		return WrapExitError(ExitCommandError, "failed to read failure", err)
	}
}
