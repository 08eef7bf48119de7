package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/statefuzz/internal/engine"
	"github.com/roach88/statefuzz/internal/report"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// ErrAmbiguous is returned when an id prefix matches several records.
var ErrAmbiguous = errors.New("ambiguous id prefix")

// Failure is a stored failure report with its indexing columns.
type Failure struct {
	ID         string
	CampaignID string
	Run        int
	Kind       string
	FailureID  string
	Severity   string
	Minimized  bool
	Steps      int
	Report     *report.FailureReport
}

const campaignColumns = `id, seq, name, target, seed, config, verdict, runs_completed,
	attempted, succeeded, reverted, rejected, result_id, engine_version`

// ReadCampaign returns the campaign with id.
func (s *Store) ReadCampaign(ctx context.Context, id string) (Campaign, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Campaign{}, fmt.Errorf("campaign %s: %w", id, ErrNotFound)
	}
	return c, err
}

// ListCampaigns returns campaigns newest first. limit <= 0 means all.
func (s *Store) ListCampaigns(ctx context.Context, limit int) ([]Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns ORDER BY seq DESC LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}
	return campaigns, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row scanner) (Campaign, error) {
	var (
		c       Campaign
		seed    string
		config  []byte
		verdict string
	)
	err := row.Scan(&c.ID, &c.Seq, &c.Name, &c.Target, &seed, &config, &verdict, &c.RunsCompleted,
		&c.Attempted, &c.Succeeded, &c.Reverted, &c.Rejected, &c.ResultID, &c.EngineVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, err
		}
		return Campaign{}, fmt.Errorf("scan campaign: %w", err)
	}
	c.Verdict = engine.Verdict(verdict)
	if c.Config, err = unmarshalConfig(config); err != nil {
		return Campaign{}, err
	}
	if c.Config.Seed, err = parseSeed(seed); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

const failureColumns = `id, campaign_id, run, failure_kind, failure_id, severity, minimized, minimal_steps, report`

// FindFailure resolves a full failure id or a unique prefix of one.
func (s *Store) FindFailure(ctx context.Context, idOrPrefix string) (Failure, error) {
	if idOrPrefix == "" {
		return Failure{}, fmt.Errorf("failure id is required")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+failureColumns+` FROM failures
		WHERE substr(id, 1, length(?)) = ?
		ORDER BY id COLLATE BINARY ASC
		LIMIT 2
	`, idOrPrefix, idOrPrefix)
	if err != nil {
		return Failure{}, fmt.Errorf("query failure: %w", err)
	}
	defer rows.Close()

	var found []Failure
	for rows.Next() {
		f, err := scanFailure(rows)
		if err != nil {
			return Failure{}, err
		}
		found = append(found, f)
	}
	if err := rows.Err(); err != nil {
		return Failure{}, fmt.Errorf("iterate failures: %w", err)
	}

	switch len(found) {
	case 0:
		return Failure{}, fmt.Errorf("failure %s: %w", idOrPrefix, ErrNotFound)
	case 1:
		return found[0], nil
	default:
		if found[0].ID == idOrPrefix {
			return found[0], nil
		}
		return Failure{}, fmt.Errorf("failure %s: %w", idOrPrefix, ErrAmbiguous)
	}
}

// ListFailures returns the failures first recorded by campaignID, in run
// order.
func (s *Store) ListFailures(ctx context.Context, campaignID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+failureColumns+` FROM failures
		WHERE campaign_id = ?
		ORDER BY run ASC, id COLLATE BINARY ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	failures := []Failure{}
	for rows.Next() {
		f, err := scanFailure(rows)
		if err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return failures, nil
}

func scanFailure(row scanner) (Failure, error) {
	var (
		f         Failure
		minimized int
		blob      []byte
	)
	if err := row.Scan(&f.ID, &f.CampaignID, &f.Run, &f.Kind, &f.FailureID, &f.Severity, &minimized, &f.Steps, &blob); err != nil {
		return Failure{}, fmt.Errorf("scan failure: %w", err)
	}
	f.Minimized = minimized != 0
	rep, err := unmarshalReport(blob)
	if err != nil {
		return Failure{}, fmt.Errorf("failure %s: %w", f.ID, err)
	}
	f.Report = rep
	return f, nil
}

// CorpusEntry is one corpus value and the number of failures it came from.
type CorpusEntry struct {
	Value    int64
	Failures int
}

// Corpus lists corpus values, most frequent first, ties broken by value.
// limit <= 0 means all.
func (s *Store) Corpus(ctx context.Context, limit int) ([]CorpusEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value, COUNT(*) AS n FROM corpus
		GROUP BY value
		ORDER BY n DESC, value ASC
		LIMIT ?
	`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query corpus: %w", err)
	}
	defer rows.Close()

	entries := []CorpusEntry{}
	for rows.Next() {
		var e CorpusEntry
		if err := rows.Scan(&e.Value, &e.Failures); err != nil {
			return nil, fmt.Errorf("scan corpus: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate corpus: %w", err)
	}
	return entries, nil
}

// CorpusValues returns the values of Corpus, ready for
// engine.WithDictionary.
func (s *Store) CorpusValues(ctx context.Context, limit int) ([]int64, error) {
	entries, err := s.Corpus(ctx, limit)
	if err != nil {
		return nil, err
	}
	values := make([]int64, len(entries))
	for i, e := range entries {
		values[i] = e.Value
	}
	return values, nil
}

// sqlLimit maps "no limit" onto SQLite's LIMIT -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
