package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/statefuzz/internal/engine"
)

// DefaultHistoryLimit is the number of campaigns history lists by default.
const DefaultHistoryLimit = 20

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// CampaignEntry is one campaign in the history command's JSON payload.
type CampaignEntry struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Target        string         `json:"target"`
	Verdict       engine.Verdict `json:"verdict"`
	Seed          uint64         `json:"seed"`
	RunsCompleted int            `json:"runs_completed"`
	Attempted     int            `json:"attempted"`
	ResultID      string         `json:"result_id"`
	Failures      []string       `json:"failures"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded campaigns",
		Long: `List recorded campaigns newest first, with the failure reports each one
recorded. Failure ids can be passed to show and replay.

Examples:
  statefuzz history --db ./statefuzz.db
  statefuzz history --db ./statefuzz.db --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (or STATEFUZZ_DB)")
	cmd.Flags().IntVar(&opts.Limit, "limit", DefaultHistoryLimit, "maximum campaigns to list (0 lists all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
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

	ctx := cmd.Context()
	campaigns, err := st.ListCampaigns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list campaigns", err)
	}

	entries := make([]CampaignEntry, 0, len(campaigns))
	for _, c := range campaigns {
		failures, err := st.ListFailures(ctx, c.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list failures", err)
		}
		e := CampaignEntry{
			ID:            c.ID,
			Name:          c.Name,
			Target:        c.Target,
			Verdict:       c.Verdict,
			Seed:          c.Config.Seed,
			RunsCompleted: c.RunsCompleted,
			Attempted:     c.Attempted,
			ResultID:      c.ResultID,
			Failures:      make([]string, 0, len(failures)),
		}
		for _, f := range failures {
			e.Failures = append(e.Failures, f.ID)
		}
		entries = append(entries, e)
	}

	if opts.Format == "json" {
		return out.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out.Writer, "No campaigns recorded.")
		return nil
	}
	for _, e := range entries {
		out.Verdict(e.Verdict, fmt.Sprintf("%s %s target=%s seed=%d runs=%d steps=%d",
			e.ID, e.Name, e.Target, e.Seed, e.RunsCompleted, e.Attempted))
		for _, id := range e.Failures {
			fmt.Fprintf(out.Writer, "  failure %s\n", id)
		}
	}
	return nil
}
