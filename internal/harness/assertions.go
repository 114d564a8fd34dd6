package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/portmatch/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against an export document and
// returns one message per failure.
func EvaluateAssertions(doc ir.Document, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		if err := evaluateAssertion(doc, a); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func evaluateAssertion(doc ir.Document, a Assertion) error {
	switch a.Type {
	case AssertTransitionCount:
		return assertCount(a.Type, "transitions", a.Count, len(doc.Transitions))
	case AssertBugCount:
		return assertCount(a.Type, "bugs", a.Count, len(doc.Bugs))
	case AssertBugAt:
		return assertBugAt(doc, a)
	case AssertVerdictCount:
		verdict, err := ir.ParseVerdict(a.Verdict)
		if err != nil {
			return err
		}
		n := 0
		for _, t := range doc.Transitions {
			if t.Verdict == string(verdict) {
				n++
			}
		}
		return assertCount(a.Type, string(verdict)+" transitions", a.Count, n)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertCount(typ, what string, want, got int) error {
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%d %s", want, what),
		Actual:   fmt.Sprintf("%d", got),
	}
}

func assertBugAt(doc ir.Document, a Assertion) error {
	for _, b := range doc.Bugs {
		if b.Seq != a.Seq {
			continue
		}
		if a.Contains != "" && !strings.Contains(b.Description, a.Contains) {
			return &AssertionError{
				Type:     AssertBugAt,
				Expected: fmt.Sprintf("bug %d describing %q", a.Seq, a.Contains),
				Actual:   fmt.Sprintf("%q", b.Description),
			}
		}
		return nil
	}

	seqs := make([]string, len(doc.Bugs))
	for i, b := range doc.Bugs {
		seqs[i] = fmt.Sprint(b.Seq)
	}
	return &AssertionError{
		Type:     AssertBugAt,
		Expected: fmt.Sprintf("bug at seq %d", a.Seq),
		Actual:   fmt.Sprintf("bugs at [%s]", strings.Join(seqs, " ")),
	}
}
