package export

import (
	"fmt"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/portmatch/internal/ir"
)

// DiffKind classifies a Difference.
type DiffKind string

const (
	DiffMetadata DiffKind = "metadata" // sessionId, startedAt or vocabularyVersion
	DiffAdded    DiffKind = "added"    // transition only in b
	DiffRemoved  DiffKind = "removed"  // transition only in a
	DiffChanged  DiffKind = "changed"  // same seq, different content
)

// Difference is one divergence between two export documents.
type Difference struct {
	Kind   DiffKind `json:"kind"`
	Seq    int64    `json:"seq,omitempty"`
	Field  string   `json:"field"`
	Detail string   `json:"detail"`
}

func (d Difference) String() string {
	if d.Seq > 0 {
		return fmt.Sprintf("%s seq=%d %s: %s", d.Kind, d.Seq, d.Field, d.Detail)
	}
	return fmt.Sprintf("%s %s: %s", d.Kind, d.Field, d.Detail)
}

// Options controls Diff.
type Options struct {
	// IgnoreTimestamps skips startedAt and every timestamp field, for
	// comparing two runs of the same scenario recorded at different times.
	IgnoreTimestamps bool
	// IgnoreSessionID skips sessionId.
	IgnoreSessionID bool
}

// Diff compares two documents transition by transition, keyed by seq.
// Transitions are compared field group by field group (trigger, appState,
// userState, match, verdict, note, timestamp) so a change reports where
// it happened. Bugs are derived data and are not compared separately.
func Diff(a, b ir.Document, opts Options) []Difference {
	var diffs []Difference

	if !opts.IgnoreSessionID && a.SessionID != b.SessionID {
		diffs = append(diffs, metadataDiff("sessionId", a.SessionID, b.SessionID))
	}
	if !opts.IgnoreTimestamps && a.StartedAt != b.StartedAt {
		diffs = append(diffs, metadataDiff("startedAt", a.StartedAt, b.StartedAt))
	}
	if a.VocabularyVersion != b.VocabularyVersion {
		diffs = append(diffs, metadataDiff("vocabularyVersion", a.VocabularyVersion, b.VocabularyVersion))
	}

	bySeq := make(map[int64]ir.DocTransition, len(b.Transitions))
	for _, t := range b.Transitions {
		bySeq[t.Seq] = t
	}

	seen := make(map[int64]bool, len(a.Transitions))
	for _, ta := range a.Transitions {
		seen[ta.Seq] = true
		tb, ok := bySeq[ta.Seq]
		if !ok {
			diffs = append(diffs, Difference{Kind: DiffRemoved, Seq: ta.Seq, Field: "transition", Detail: ta.Trigger})
			continue
		}
		diffs = append(diffs, compareTransition(ta, tb, opts)...)
	}
	for _, tb := range b.Transitions {
		if !seen[tb.Seq] {
			diffs = append(diffs, Difference{Kind: DiffAdded, Seq: tb.Seq, Field: "transition", Detail: tb.Trigger})
		}
	}
	return diffs
}

func metadataDiff(field, a, b string) Difference {
	return Difference{Kind: DiffMetadata, Field: field, Detail: fmt.Sprintf("%q → %q", a, b)}
}

func compareTransition(a, b ir.DocTransition, opts Options) []Difference {
	if opts.IgnoreTimestamps {
		a.Timestamp, b.Timestamp = "", ""
		a.AppState.Timestamp, b.AppState.Timestamp = "", ""
		a.UserState.Timestamp, b.UserState.Timestamp = "", ""
	}

	fields := []struct {
		name string
		x, y any
	}{
		{"trigger", a.Trigger, b.Trigger},
		{"appState", a.AppState, b.AppState},
		{"userState", a.UserState, b.UserState},
		{"match", a.Match, b.Match},
		{"verdict", a.Verdict, b.Verdict},
		{"note", a.Note, b.Note},
		{"timestamp", a.Timestamp, b.Timestamp},
	}

	var diffs []Difference
	for _, f := range fields {
		if d := cmp.Diff(f.x, f.y); d != "" {
			diffs = append(diffs, Difference{Kind: DiffChanged, Seq: a.Seq, Field: f.name, Detail: d})
		}
	}
	return diffs
}
