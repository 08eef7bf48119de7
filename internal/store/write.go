package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/statefuzz/internal/engine"
	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/report"
)

// Campaign is a stored campaign outcome.
type Campaign struct {
	ID            string
	Seq           int64
	Name          string
	Target        string
	Config        engine.Config
	Verdict       engine.Verdict
	RunsCompleted int
	Attempted     int
	Succeeded     int
	Reverted      int
	Rejected      int

	// ResultID is engine.Result.ID: equal for equal outcomes.
	ResultID      string
	EngineVersion string
}

// NewCampaign builds the record for res.
func NewCampaign(name, target string, cfg engine.Config, res *engine.Result) (Campaign, error) {
	resultID, err := res.ID()
	if err != nil {
		return Campaign{}, fmt.Errorf("campaign result id: %w", err)
	}
	return Campaign{
		Name:          name,
		Target:        target,
		Config:        cfg,
		Verdict:       res.Verdict,
		RunsCompleted: res.RunsCompleted,
		Attempted:     res.Stats.Attempted,
		Succeeded:     res.Stats.Succeeded,
		Reverted:      res.Stats.Reverted,
		Rejected:      res.Stats.Rejected,
		ResultID:      resultID,
		EngineVersion: ir.EngineVersion,
	}, nil
}

// RecordCampaign stores c and its failure reports in one transaction,
// harvesting the numeric arguments of each minimal sequence into the
// corpus. It assigns and returns the campaign id.
//
// A report already stored by an earlier campaign keeps its original
// campaign; report ids are content addressed, so the stored copy is
// identical.
func (s *Store) RecordCampaign(ctx context.Context, c Campaign, reports []*report.FailureReport) (string, error) {
	if c.ID == "" {
		c.ID = s.ids.Generate()
	}
	config, err := marshalConfig(c.Config)
	if err != nil {
		return "", fmt.Errorf("record campaign: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO campaigns
			(id, seq, name, target, seed, config, verdict, runs_completed,
			 attempted, succeeded, reverted, rejected, result_id, engine_version)
			VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM campaigns), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			c.ID,
			c.Name,
			c.Target,
			formatSeed(c.Config.Seed),
			config,
			string(c.Verdict),
			c.RunsCompleted,
			c.Attempted,
			c.Succeeded,
			c.Reverted,
			c.Rejected,
			c.ResultID,
			c.EngineVersion,
		)
		if err != nil {
			return fmt.Errorf("insert campaign: %w", err)
		}

		for _, rep := range reports {
			if err := writeFailure(ctx, tx, c.ID, rep); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("record campaign: %w", err)
	}
	return c.ID, nil
}

func writeFailure(ctx context.Context, tx *sql.Tx, campaignID string, rep *report.FailureReport) error {
	if rep.ID == "" {
		if err := rep.Seal(); err != nil {
			return fmt.Errorf("seal report: %w", err)
		}
	}
	blob, err := marshalReport(rep)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO failures
		(id, campaign_id, run, failure_kind, failure_id, severity, minimized, minimal_steps, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rep.ID,
		campaignID,
		rep.Run,
		string(rep.Failure.Kind),
		rep.Failure.ID,
		rep.Severity,
		boolToInt(rep.Minimized),
		len(rep.Minimal),
		blob,
	)
	if err != nil {
		return fmt.Errorf("insert failure %s: %w", rep.ID, err)
	}

	for _, v := range rep.Values() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO corpus (value, failure_id) VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, v, rep.ID)
		if err != nil {
			return fmt.Errorf("insert corpus value %d: %w", v, err)
		}
	}
	return nil
}
