package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/statefuzz/internal/report"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <failure-id>",
		Short: "Print a stored failure report",
		Long: `Print a stored failure report: the violated invariant, the seed, the
minimal and full sequences, and the state after each minimal step.

With --format json the report is emitted as canonical JSON.

Examples:
  statefuzz show 3f2a --db ./statefuzz.db
  statefuzz show 3f2a --db ./statefuzz.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (or STATEFUZZ_DB)")

	return cmd
}

func runShow(opts *ShowOptions, id string, cmd *cobra.Command) error {
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

	f, err := st.FindFailure(cmd.Context(), id)
	if err != nil {
		return lookupError(err)
	}

	if opts.Format == "json" {
		return out.Success(f.Report)
	}
	if err := report.Render(out.Writer, f.Report); err != nil {
		return err
	}
	fmt.Fprintf(out.Writer, "\ncampaign %s\n", f.CampaignID)
	return nil
}
