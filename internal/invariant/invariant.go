// Package invariant evaluates named predicates over the SUT view and the
// ghost model after every step.
//
// Evaluation order is registration order and is part of the observable
// contract: when several invariants fail on the same step, only the first
// one registered is reported.
package invariant

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/roach88/statefuzz/internal/ghost"
	"github.com/roach88/statefuzz/internal/ir"
)

// Severity ranks a violation for reporting.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Predicate reports whether the invariant holds. It must not mutate view
// or retain it.
type Predicate func(view ir.IRObject, g ghost.Reader) bool

// Invariant is one named predicate.
type Invariant struct {
	ID        string
	Severity  Severity
	Predicate Predicate

	// Message is a text/template rendered on violation with fields .ID,
	// .View (the SUT view) and .Ghost (map of ghost keys to values).
	Message string
}

// Violation is a failed invariant check.
type Violation struct {
	ID       string
	Severity Severity
	Message  string
}

// Error implements the error interface so a violation can travel as one.
func (v *Violation) Error() string {
	return fmt.Sprintf("invariant %s violated: %s", v.ID, v.Message)
}

type entry struct {
	inv  Invariant
	tmpl *template.Template
}

// Set is an ordered battery of invariants. An empty Set is valid and never
// reports a violation.
type Set struct {
	entries []entry
	byID    map[string]int
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{byID: make(map[string]int)}
}

// Register appends inv. The message template is parsed up front so a
// typo fails at setup rather than during a campaign.
func (s *Set) Register(inv Invariant) error {
	if inv.ID == "" {
		return fmt.Errorf("invariant id is required")
	}
	if inv.Predicate == nil {
		return fmt.Errorf("invariant %q: predicate is required", inv.ID)
	}
	if _, dup := s.byID[inv.ID]; dup {
		return fmt.Errorf("duplicate invariant %q", inv.ID)
	}
	if inv.Severity == "" {
		inv.Severity = SeverityHigh
	}
	msg := inv.Message
	if msg == "" {
		msg = "{{.ID}} does not hold"
	}
	tmpl, err := template.New(inv.ID).Option("missingkey=zero").Parse(msg)
	if err != nil {
		return fmt.Errorf("invariant %q: parse message: %w", inv.ID, err)
	}
	s.byID[inv.ID] = len(s.entries)
	s.entries = append(s.entries, entry{inv: inv, tmpl: tmpl})
	return nil
}

// MustRegister is like Register but panics on error.
func (s *Set) MustRegister(inv Invariant) {
	if err := s.Register(inv); err != nil {
		panic(err)
	}
}

// Len returns the number of invariants.
func (s *Set) Len() int {
	return len(s.entries)
}

// IDs returns invariant ids in evaluation order.
func (s *Set) IDs() []string {
	ids := make([]string, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.inv.ID
	}
	return ids
}

// Lookup finds an invariant by id.
func (s *Set) Lookup(id string) (Invariant, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Invariant{}, false
	}
	return s.entries[i].inv, true
}

// Check evaluates every invariant in order and returns the first
// violation, or nil. A predicate that panics counts as violated.
func (s *Set) Check(view ir.IRObject, g ghost.Reader) *Violation {
	for _, e := range s.entries {
		holds, panicMsg := evaluate(e.inv.Predicate, view, g)
		if holds {
			continue
		}
		msg := panicMsg
		if msg == "" {
			msg = render(e, view, g)
		}
		return &Violation{ID: e.inv.ID, Severity: e.inv.Severity, Message: msg}
	}
	return nil
}

func evaluate(p Predicate, view ir.IRObject, g ghost.Reader) (holds bool, panicMsg string) {
	defer func() {
		if r := recover(); r != nil {
			holds = false
			panicMsg = fmt.Sprintf("predicate panicked: %v", r)
		}
	}()
	return p(view, g), ""
}

func render(e entry, view ir.IRObject, g ghost.Reader) string {
	snapshot := make(map[string]int64)
	for _, k := range g.Keys() {
		snapshot[k] = g.Get(k)
	}
	data := struct {
		ID    string
		View  ir.IRObject
		Ghost map[string]int64
	}{ID: e.inv.ID, View: view, Ghost: snapshot}

	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("%s (message template failed: %v)", e.inv.Message, err)
	}
	return buf.String()
}
