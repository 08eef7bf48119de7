package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/statefuzz/internal/ir"
	"github.com/roach88/statefuzz/internal/sequence"
)

// Render writes the human-readable form of r.
func Render(w io.Writer, r *FailureReport) error {
	var b strings.Builder

	fmt.Fprintf(&b, "FAIL %s (%s)\n", r.Failure, r.Severity)
	fmt.Fprintf(&b, "  message:   %s\n", r.Failure.Message)
	fmt.Fprintf(&b, "  seed:      %d\n", r.Seed)
	fmt.Fprintf(&b, "  run:       %d\n", r.Run)
	if r.Minimized {
		fmt.Fprintf(&b, "  minimized: yes (%d replays)\n", r.ShrinkAttempts)
	} else {
		fmt.Fprintf(&b, "  minimized: NO, shrink limit reached after %d replays\n", r.ShrinkAttempts)
	}
	if r.ID != "" {
		fmt.Fprintf(&b, "  report:    %s\n", r.ID)
	}

	fmt.Fprintf(&b, "\nminimal sequence (%d of %d steps):\n", len(r.Minimal), len(r.Full))
	diags := make(map[int]Diagnostic, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		diags[d.Step] = d
	}
	for _, s := range r.Minimal {
		writeStep(&b, s)
		if d, ok := diags[s.Index]; ok {
			fmt.Fprintf(&b, "       ghost %s\n", compact(d.Ghost))
			fmt.Fprintf(&b, "       view  %s\n", compact(d.View))
		}
	}

	fmt.Fprintf(&b, "\nfull sequence:\n")
	for _, s := range r.Full {
		writeStep(&b, s)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeStep(b *strings.Builder, s sequence.Step) {
	fmt.Fprintf(b, "  %3d  %s %s -> %s\n", s.Origin, actorLabel(s), s.Call(), s.Outcome)
}

func actorLabel(s sequence.Step) string {
	return fmt.Sprintf("actor-%d", s.ActorIndex)
}

func compact(obj ir.IRObject) string {
	if obj == nil {
		return "{}"
	}
	b, err := obj.MarshalJSON()
	if err != nil {
		return "?"
	}
	return string(b)
}
