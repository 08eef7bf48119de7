// Package sequence holds the step and sequence data model and the seeded
// generator that proposes the next step of a run.
package sequence

import (
	"fmt"

	"github.com/roach88/statefuzz/internal/ir"
)

// OutcomeKind is how a step ended.
type OutcomeKind string

const (
	// OutcomeSuccess means the SUT call went through.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeRejected means the step never reached the SUT: a precondition
	// was false or no valid input existed.
	OutcomeRejected OutcomeKind = "rejected"
	// OutcomeReverted means the precondition passed but the SUT call failed.
	OutcomeReverted OutcomeKind = "reverted"
)

// Outcome is the finalized result of one step.
type Outcome struct {
	Kind   OutcomeKind `msgpack:"kind"`
	Output ir.IRObject `msgpack:"output,omitempty"`
	Reason string      `msgpack:"reason,omitempty"`
}

// Success records a completed call.
func Success(out ir.IRObject) Outcome {
	return Outcome{Kind: OutcomeSuccess, Output: out}
}

// Rejected records a step that was skipped before the SUT call.
func Rejected(reason string) Outcome {
	return Outcome{Kind: OutcomeRejected, Reason: reason}
}

// Reverted records a SUT-level failure.
func Reverted(reason string) Outcome {
	return Outcome{Kind: OutcomeReverted, Reason: reason}
}

// String renders the outcome for logs and text reports.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSuccess:
		if len(o.Output) == 0 {
			return "ok"
		}
		b, err := o.Output.MarshalJSON()
		if err != nil {
			return "ok"
		}
		return "ok " + string(b)
	case "":
		return "pending"
	default:
		return fmt.Sprintf("%s: %s", o.Kind, o.Reason)
	}
}

// Step is one call in a sequence.
type Step struct {
	// Index is the position in the sequence this step belongs to.
	Index int `msgpack:"index"`

	// Origin is the position in the originally generated sequence. It is
	// carried unchanged through shrinking, so Origin values of a shrunken
	// sequence are strictly increasing.
	Origin int `msgpack:"origin"`

	ActorIndex int         `msgpack:"actor_index"`
	ActorID    string      `msgpack:"actor_id"`
	Action     string      `msgpack:"action"`
	Args       ir.IRObject `msgpack:"args"`
	Outcome    Outcome     `msgpack:"outcome"`
}

// IR returns the step as a value for hashing and JSON output.
func (s Step) IR() ir.IRObject {
	args := s.Args
	if args == nil {
		args = ir.IRObject{}
	}
	out := ir.IRObject{
		"index":   ir.IRInt(s.Index),
		"origin":  ir.IRInt(s.Origin),
		"actor":   ir.IRString(s.ActorID),
		"action":  ir.IRString(s.Action),
		"args":    args,
		"outcome": ir.IRString(string(s.Outcome.Kind)),
	}
	if s.Outcome.Reason != "" {
		out["reason"] = ir.IRString(s.Outcome.Reason)
	}
	if s.Outcome.Output != nil {
		out["output"] = s.Outcome.Output
	}
	return out
}

// Call renders the step as action(args) for logs and reports.
func (s Step) Call() string {
	b, err := s.argsJSON()
	if err != nil {
		return s.Action + "(?)"
	}
	return s.Action + "(" + b + ")"
}

func (s Step) argsJSON() (string, error) {
	if len(s.Args) == 0 {
		return "", nil
	}
	b, err := s.Args.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Clone returns a copy of steps with deep-copied arguments.
func Clone(steps []Step) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		s.Args = s.Args.Clone()
		s.Outcome.Output = s.Outcome.Output.Clone()
		out[i] = s
	}
	return out
}

// IR returns the sequence as an array value.
func IR(steps []Step) ir.IRArray {
	arr := make(ir.IRArray, len(steps))
	for i, s := range steps {
		arr[i] = s.IR()
	}
	return arr
}

// ID is the content id of a sequence. Two executions with the same seed
// against a deterministic SUT produce the same ID.
func ID(steps []Step) (string, error) {
	return ir.ContentID(ir.DomainSequence, IR(steps))
}
