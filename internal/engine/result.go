package engine

import (
	"strconv"

	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/report"
	"github.com/roach88/statefuzz/internal/sequence"
)

// Verdict is the outcome of a campaign.
type Verdict string

const (
	// VerdictPass means every run completed without a finding.
	VerdictPass Verdict = "pass"
	// VerdictFail means at least one finding was reported.
	VerdictFail Verdict = "fail"
	// VerdictExhausted means the harness could not explore: rejects
	// exceeded max_rejects or the campaign timed out. It is a harness
	// defect, not a SUT defect.
	VerdictExhausted Verdict = "exhausted"
)

// Result summarizes a campaign.
type Result struct {
	Verdict Verdict
	Seed    uint64
	Stats   sequence.Stats

	// Reports holds one report per failing run, in run order. Without
	// CollectAll there is at most one.
	Reports []*report.FailureReport

	// Exhaustion is set when Verdict is VerdictExhausted.
	Exhaustion error

	// RunsCompleted counts committed runs.
	RunsCompleted int

	// SequenceIDs holds the content id of each committed run's executed
	// sequence, in run order.
	SequenceIDs []string
}

// Passed reports whether the verdict is pass.
func (r *Result) Passed() bool {
	return r.Verdict == VerdictPass
}

// ID is the content id of the campaign outcome. Two campaigns with the
// same seed and configuration against a deterministic SUT have equal ids.
func (r *Result) ID() (string, error) {
	seqs := make(ir.IRArray, len(r.SequenceIDs))
	for i, id := range r.SequenceIDs {
		seqs[i] = ir.IRString(id)
	}
	reports := make(ir.IRArray, len(r.Reports))
	for i, rep := range r.Reports {
		reports[i] = ir.IRString(rep.ID)
	}
	return ir.ContentID(ir.DomainCampaign, ir.IRObject{
		"verdict":   ir.IRString(string(r.Verdict)),
		"seed":      ir.IRString(strconv.FormatUint(r.Seed, 10)),
		"runs":      ir.IRInt(r.RunsCompleted),
		"attempted": ir.IRInt(r.Stats.Attempted),
		"succeeded": ir.IRInt(r.Stats.Succeeded),
		"reverted":  ir.IRInt(r.Stats.Reverted),
		"rejected":  ir.IRInt(r.Stats.Rejected),
		"sequences": seqs,
		"reports":   reports,
	})
}
