package export

import (
	"fmt"
	"strings"

	"github.com/roach88/portmatch/internal/ir"
)

// Bugs returns one Bug per MISMATCH transition, in sequence order.
// Snapshots are deep copies; the session is not modified.
func Bugs(s ir.Session) []ir.Bug {
	bugs := []ir.Bug{}
	for _, t := range s.Transitions {
		if t.Verdict != ir.VerdictMismatch {
			continue
		}
		bugs = append(bugs, ir.Bug{
			Seq:         t.Seq,
			Description: Description(t),
			AppState:    t.AppState.Clone(),
			UserState:   t.UserState.Clone(),
			Match:       t.Match.Clone(),
		})
	}
	return bugs
}

// Description is the operator's note, or a generated summary when the
// transition carries none. The summary names expected elements the
// application did not show.
func Description(t ir.Transition) string {
	if t.Note != nil && *t.Note != "" {
		return *t.Note
	}
	desc := fmt.Sprintf("mismatch reported at transition %d (%s)", t.Seq, t.Trigger)
	if missing := t.UserState.MissingExpected(t.AppState); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, e := range missing {
			names[i] = string(e)
		}
		desc += ": expected visible but not shown: " + strings.Join(names, ", ")
	}
	return desc
}
