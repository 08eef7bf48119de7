// Package report builds the failure report for a finding: the violated
// invariant, the seed, the full and minimized sequences and a per-step
// diagnostic trail of the minimized replay.
package report

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/sequence"
)

// Diagnostic is the state after one step of the minimized replay.
type Diagnostic struct {
	Step  int         `msgpack:"step"`
	Ghost ir.IRObject `msgpack:"ghost"`
	View  ir.IRObject `msgpack:"view"`
}

// IR returns the diagnostic as a value.
func (d Diagnostic) IR() ir.IRObject {
	return ir.IRObject{
		"step":  ir.IRInt(d.Step),
		"ghost": orEmpty(d.Ghost),
		"view":  orEmpty(d.View),
	}
}

// FailureReport describes one finding.
type FailureReport struct {
	// ID is the content id of the report, set by Seal.
	ID string `msgpack:"id"`

	Failure  sequence.Failure `msgpack:"failure"`
	Severity string           `msgpack:"severity"`
	Seed     uint64           `msgpack:"seed"`
	Run      int              `msgpack:"run"`

	// Full is the executed prefix of the generated sequence, up to and
	// including the failing step.
	Full []sequence.Step `msgpack:"full"`

	// Minimal is the shrunken sequence.
	Minimal []sequence.Step `msgpack:"minimal"`

	// Minimized is false when shrinking stopped at shrink_run_limit or on
	// timeout; Minimal is then the best sequence found, not a local minimum.
	Minimized      bool `msgpack:"minimized"`
	ShrinkAttempts int  `msgpack:"shrink_attempts"`

	Diagnostics   []Diagnostic `msgpack:"diagnostics"`
	EngineVersion string       `msgpack:"engine_version"`
}

// IR returns the report without its id.
func (r *FailureReport) IR() ir.IRObject {
	diags := make(ir.IRArray, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		diags[i] = d.IR()
	}
	return ir.IRObject{
		"failure": ir.IRObject{
			"kind":    ir.IRString(string(r.Failure.Kind)),
			"id":      ir.IRString(r.Failure.ID),
			"message": ir.IRString(r.Failure.Message),
			"step":    ir.IRInt(r.Failure.Step),
		},
		"severity":        ir.IRString(r.Severity),
		"seed":            ir.IRString(strconv.FormatUint(r.Seed, 10)),
		"run":             ir.IRInt(r.Run),
		"full":            sequence.IR(r.Full),
		"minimal":         sequence.IR(r.Minimal),
		"minimized":       ir.IRBool(r.Minimized),
		"shrink_attempts": ir.IRInt(r.ShrinkAttempts),
		"diagnostics":     diags,
		"engine_version":  ir.IRString(r.EngineVersion),
	}
}

// Seal computes and stores the content id.
func (r *FailureReport) Seal() error {
	id, err := ir.ContentID(ir.DomainReport, r.IR())
	if err != nil {
		return fmt.Errorf("seal report: %w", err)
	}
	r.ID = id
	return nil
}

// MarshalJSON emits the report as canonical JSON, id included.
func (r *FailureReport) MarshalJSON() ([]byte, error) {
	obj := r.IR()
	obj["id"] = ir.IRString(r.ID)
	return ir.MarshalCanonical(obj)
}

// Values returns the distinct numeric arguments of the minimal sequence in
// ascending order. They seed the dictionary of later campaigns.
func (r *FailureReport) Values() []int64 {
	var vals []int64
	for _, s := range r.Minimal {
		for _, k := range s.Args.SortedKeys() {
			if n, ok := s.Args.Int(k); ok {
				vals = append(vals, n)
			}
		}
	}
	slices.Sort(vals)
	return slices.Compact(vals)
}

func orEmpty(obj ir.IRObject) ir.IRObject {
	if obj == nil {
		return ir.IRObject{}
	}
	return obj
}
