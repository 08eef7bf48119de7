package sequence

// Stats counts step outcomes. Attempted always equals
// Succeeded + Reverted + Rejected.
type Stats struct {
	Attempted int `msgpack:"attempted"`
	Succeeded int `msgpack:"succeeded"`
	Reverted  int `msgpack:"reverted"`
	Rejected  int `msgpack:"rejected"`
}

// Record counts one outcome.
func (s *Stats) Record(k OutcomeKind) {
	s.Attempted++
	switch k {
	case OutcomeSuccess:
		s.Succeeded++
	case OutcomeReverted:
		s.Reverted++
	case OutcomeRejected:
		s.Rejected++
	}
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Attempted += o.Attempted
	s.Succeeded += o.Succeeded
	s.Reverted += o.Reverted
	s.Rejected += o.Rejected
}

// Tally counts the outcomes of steps.
func Tally(steps []Step) Stats {
	var s Stats
	for _, st := range steps {
		s.Record(st.Outcome.Kind)
	}
	return s
}

// CountsAsReject reports whether an outcome is charged against the
// rejection budget. A revert is an implicit rejection unless reverts are
// findings.
func CountsAsReject(k OutcomeKind, failOnRevert bool) bool {
	switch k {
	case OutcomeRejected:
		return true
	case OutcomeReverted:
		return !failOnRevert
	default:
		return false
	}
}
