package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/statefuzz/internal/campaign"
	"github.com/roach88/statefuzz/internal/engine"
	"github.com/roach88/statefuzz/internal/ledger"
	"github.com/roach88/statefuzz/internal/report"
	"github.com/roach88/statefuzz/internal/store"
)

// DefaultCorpusLimit caps how many stored corpus values seed the
// dictionary of a new campaign.
const DefaultCorpusLimit = 64

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Target      string
	Seed        uint64
	Runs        int
	Depth       int
	Workers     int
	Database    string
	CorpusLimit int

	// IDGenerator allows overriding campaign ids (for testing).
	// If nil, the store uses UUIDv7.
	IDGenerator store.IDGenerator
}

// RunSummary is the JSON payload of the run command.
type RunSummary struct {
	CampaignID    string           `json:"campaign_id,omitempty"`
	Name          string           `json:"name,omitempty"`
	Target        string           `json:"target"`
	Verdict       engine.Verdict   `json:"verdict"`
	Seed          uint64           `json:"seed"`
	RunsCompleted int              `json:"runs_completed"`
	Attempted     int              `json:"attempted"`
	Succeeded     int              `json:"succeeded"`
	Reverted      int              `json:"reverted"`
	Rejected      int              `json:"rejected"`
	StepsExecuted int64            `json:"steps_executed"`
	ResultID      string           `json:"result_id"`
	Exhaustion    string           `json:"exhaustion,omitempty"`
	Findings      []FindingSummary `json:"findings"`
}

// FindingSummary is one failure report in a RunSummary.
type FindingSummary struct {
	ReportID  string `json:"report_id"`
	Kind      string `json:"kind"`
	FailureID string `json:"failure_id"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Run       int    `json:"run"`
	Minimized bool   `json:"minimized"`
	Steps     int    `json:"steps"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [campaign-file]",
		Short: "Run a fuzzing campaign",
		Long: `Run a fuzzing campaign against a target.

The campaign file (YAML or CUE) is optional. Settings are taken from the
file, then from STATEFUZZ_* environment variables, then from flags.
When a database is given, the outcome and any failure reports are
stored, and numeric values from earlier failures seed the dictionary.

Exit codes:
  0 - Campaign passed
  1 - Invariant violation found, or the harness was exhausted
  2 - Command error (bad campaign file, unknown target, database error)

Examples:
  statefuzz run --target ledger --runs 200 --depth 50
  statefuzz run campaigns/buggy.yaml --db ./statefuzz.db
  STATEFUZZ_SEED=7 statefuzz run --target ledger-buggy --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runCampaign(opts, path, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Target, "target", "", fmt.Sprintf("system under test %v (default %q)", ledger.Targets(), ledger.TargetCorrect))
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "campaign seed")
	cmd.Flags().IntVar(&opts.Runs, "runs", 0, "number of sequences")
	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "maximum steps per sequence")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "runs executed concurrently")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (optional, or STATEFUZZ_DB)")
	cmd.Flags().IntVar(&opts.CorpusLimit, "corpus-limit", DefaultCorpusLimit, "stored corpus values added to the dictionary")

	return cmd
}

func runCampaign(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	file, err := resolveCampaign(opts, path, cmd)
	if err != nil {
		return err
	}
	cfg, err := file.EngineConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid campaign", err)
	}

	dbPath, err := resolveDB(opts.Database, opts.Environ)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	dict := append([]int64(nil), file.Dictionary...)
	var st *store.Store
	if dbPath != "" {
		var sopts []store.Option
		if opts.IDGenerator != nil {
			sopts = append(sopts, store.WithIDGenerator(opts.IDGenerator))
		}
		st, err = openStore(dbPath, sopts...)
		if err != nil {
			return err
		}
		defer closeStore(st, logger)

		corpus, err := st.CorpusValues(ctx, opts.CorpusLimit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read corpus", err)
		}
		dict = append(dict, corpus...)
		logger.Debug("dictionary loaded", "file", len(file.Dictionary), "corpus", len(corpus))
	}

	eng, err := newEngine(file.Target, cfg, file.Actions,
		engine.WithLogger(logger),
		engine.WithDictionary(dict),
	)
	if err != nil {
		return err
	}
	out.VerboseLog("running %s against %s (seed %d)", campaignName(file), file.Target, eng.Config().Seed)

	res, runErr := eng.Run(ctx)
	if runErr != nil && !engine.IsExhaustedError(runErr) {
		return WrapExitError(ExitFailure, "campaign aborted", runErr)
	}

	summary, err := summarize(file, res)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to summarize campaign", err)
	}
	summary.StepsExecuted = eng.StepsExecuted()

	if st != nil {
		rec, err := store.NewCampaign(campaignName(file), file.Target, eng.Config(), res)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record campaign", err)
		}
		id, err := st.RecordCampaign(ctx, rec, res.Reports)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record campaign", err)
		}
		summary.CampaignID = id
		logger.Info("campaign recorded", "id", id, "db", dbPath)
	}

	if opts.Format == "json" {
		if err := out.Success(summary); err != nil {
			return err
		}
	} else if err := writeRunText(out, summary, res); err != nil {
		return err
	}

	switch res.Verdict {
	case engine.VerdictFail:
		return NewExitError(ExitFailure, fmt.Sprintf("%d invariant violation(s) found", len(res.Reports)))
	case engine.VerdictExhausted:
		return WrapExitError(ExitFailure, "harness exhausted", res.Exhaustion)
	}
	return nil
}

// resolveCampaign merges the campaign file, the environment and the flags,
// in increasing precedence.
func resolveCampaign(opts *RunOptions, path string, cmd *cobra.Command) (*campaign.File, error) {
	file := &campaign.File{}
	if path != "" {
		loaded, err := campaign.Load(path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load campaign", err)
		}
		file = loaded
	}

	env, err := campaign.ParseEnv(opts.Environ)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid environment", err)
	}
	env.Apply(file)

	flags := cmd.Flags()
	if flags.Changed("target") {
		file.Target = opts.Target
	}
	if flags.Changed("seed") {
		file.Seed = opts.Seed
	}
	if flags.Changed("runs") {
		file.Runs = opts.Runs
	}
	if flags.Changed("depth") {
		file.Depth = opts.Depth
	}
	if flags.Changed("workers") {
		file.Workers = opts.Workers
	}
	if file.Target == "" {
		file.Target = ledger.TargetCorrect
	}
	return file, nil
}

func campaignName(f *campaign.File) string {
	if f.Name != "" {
		return f.Name
	}
	return f.Target
}

func summarize(f *campaign.File, res *engine.Result) (RunSummary, error) {
	resultID, err := res.ID()
	if err != nil {
		return RunSummary{}, err
	}
	s := RunSummary{
		Name:          campaignName(f),
		Target:        f.Target,
		Verdict:       res.Verdict,
		Seed:          res.Seed,
		RunsCompleted: res.RunsCompleted,
		Attempted:     res.Stats.Attempted,
		Succeeded:     res.Stats.Succeeded,
		Reverted:      res.Stats.Reverted,
		Rejected:      res.Stats.Rejected,
		ResultID:      resultID,
		Findings:      []FindingSummary{},
	}
	if res.Exhaustion != nil {
		s.Exhaustion = res.Exhaustion.Error()
	}
	for _, rep := range res.Reports {
		s.Findings = append(s.Findings, findingOf(rep))
	}
	return s, nil
}

func findingOf(rep *report.FailureReport) FindingSummary {
	return FindingSummary{
		ReportID:  rep.ID,
		Kind:      string(rep.Failure.Kind),
		FailureID: rep.Failure.ID,
		Severity:  rep.Severity,
		Message:   rep.Failure.Message,
		Run:       rep.Run,
		Minimized: rep.Minimized,
		Steps:     len(rep.Minimal),
	}
}

func writeRunText(out *OutputFormatter, s RunSummary, res *engine.Result) error {
	out.Verdict(s.Verdict, fmt.Sprintf("%s seed=%d runs=%d steps=%d (succeeded %d, reverted %d, rejected %d)",
		s.Name, s.Seed, s.RunsCompleted, s.Attempted, s.Succeeded, s.Reverted, s.Rejected))
	if s.Exhaustion != "" {
		fmt.Fprintf(out.Writer, "  %s\n", s.Exhaustion)
		var rt *engine.RuntimeError
		if errors.As(res.Exhaustion, &rt) && rt.Code == engine.ErrCodeHarnessExhausted {
			fmt.Fprintln(out.Writer, "  preconditions or input ranges reject too many steps; this is a harness defect, not a SUT defect")
		}
	}
	for _, rep := range res.Reports {
		fmt.Fprintln(out.Writer)
		if err := report.Render(out.Writer, rep); err != nil {
			return err
		}
	}
	if s.CampaignID != "" {
		fmt.Fprintf(out.Writer, "\ncampaign %s\n", s.CampaignID)
	}
	return nil
}
