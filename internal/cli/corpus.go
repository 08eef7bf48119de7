package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CorpusOptions holds flags for the corpus command.
type CorpusOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// CorpusValue is one entry of the corpus command's JSON payload.
type CorpusValue struct {
	Value    int64 `json:"value"`
	Failures int   `json:"failures"`
}

// NewCorpusCommand creates the corpus command.
func NewCorpusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CorpusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "List values harvested from failures",
		Long: `List the numeric arguments harvested from stored minimal sequences, most
frequent first. Later campaigns against the same database draw from
these values.

Examples:
  statefuzz corpus --db ./statefuzz.db
  statefuzz corpus --db ./statefuzz.db --limit 10 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorpus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (or STATEFUZZ_DB)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum values to list (0 lists all)")

	return cmd
}

func runCorpus(opts *CorpusOptions, cmd *cobra.Command) error {
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

	entries, err := st.Corpus(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read corpus", err)
	}

	values := make([]CorpusValue, len(entries))
	for i, e := range entries {
		values[i] = CorpusValue{Value: e.Value, Failures: e.Failures}
	}

	if opts.Format == "json" {
		return out.Success(values)
	}
	if len(values) == 0 {
		fmt.Fprintln(out.Writer, "Corpus is empty.")
		return nil
	}
	fmt.Fprintf(out.Writer, "%20s  %s\n", "VALUE", "FAILURES")
	for _, v := range values {
		fmt.Fprintf(out.Writer, "%20d  %d\n", v.Value, v.Failures)
	}
	return nil
}
