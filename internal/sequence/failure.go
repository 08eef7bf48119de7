package sequence

import "fmt"

// FailureKind distinguishes what ended a run.
type FailureKind string

const (
	// FailureInvariant is an invariant violation; ID is the invariant id.
	FailureInvariant FailureKind = "invariant"
	// FailureRevert is a revert treated as a finding; ID is the action name.
	FailureRevert FailureKind = "revert"
)

// Failure identifies a finding. Two failures are the same finding when
// Kind and ID match; Message and Step are diagnostics only.
type Failure struct {
	Kind    FailureKind `msgpack:"kind"`
	ID      string      `msgpack:"id"`
	Message string      `msgpack:"message"`

	// Step is the index of the failing step in its sequence.
	Step int `msgpack:"step"`
}

// Same reports whether f and o identify the same finding.
func (f Failure) Same(o Failure) bool {
	return f.Kind == o.Kind && f.ID == o.ID
}

// String renders the identity, e.g. "invariant conservation".
func (f Failure) String() string {
	return fmt.Sprintf("%s %s", f.Kind, f.ID)
}
