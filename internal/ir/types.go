package ir

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ApplicationState is a point-in-time record of what the application offers.
// Produced by a state-extraction adapter; never mutated after capture.
type ApplicationState struct {
	Mode            Mode
	VisibleElements Set[ElementID]
	Capabilities    Set[CapabilityID]
	Timestamp       time.Time
}

// Clone returns a deep copy so later mutation of the source cannot reach
// a recorded snapshot.
func (s ApplicationState) Clone() ApplicationState {
	return ApplicationState{
		Mode:            s.Mode,
		VisibleElements: s.VisibleElements.Clone(),
		Capabilities:    s.Capabilities.Clone(),
		Timestamp:       s.Timestamp,
	}
}

// UserState is a point-in-time record of what the user wants to do.
type UserState struct {
	Intents Set[IntentID]
	// ExpectedVisible is what the user expects the screen to show. Nil or
	// empty means no expectation was stated.
	ExpectedVisible Set[ElementID]
	Timestamp       time.Time
}

// Clone returns a deep copy.
func (s UserState) Clone() UserState {
	out := UserState{
		Intents:   s.Intents.Clone(),
		Timestamp: s.Timestamp,
	}
	if s.ExpectedVisible != nil {
		out.ExpectedVisible = s.ExpectedVisible.Clone()
	}
	return out
}

// MissingExpected returns the expected elements app does not show, sorted.
func (s UserState) MissingExpected(app ApplicationState) []ElementID {
	var missing []ElementID
	for _, e := range s.ExpectedVisible.Sorted() {
		if !app.VisibleElements.Has(e) {
			missing = append(missing, e)
		}
	}
	return missing
}

// PortPair is a static association between an intent and the capability
// that satisfies it.
type PortPair struct {
	Intent     IntentID     `json:"intent"`
	Capability CapabilityID `json:"capability"`
}

// String renders the pair as "INTENT<->CAPABILITY".
func (p PortPair) String() string {
	return fmt.Sprintf("%s<->%s", p.Intent, p.Capability)
}

// ComparePortPairs orders pairs by intent, then capability.
func ComparePortPairs(a, b PortPair) int {
	if c := strings.Compare(string(a.Intent), string(b.Intent)); c != 0 {
		return c
	}
	return strings.Compare(string(a.Capability), string(b.Capability))
}

// MatchResult is the outcome of matching a state pair.
//
// All three slices are kept in canonical order (see Canonicalize) and are
// never nil, so two results can be compared structurally.
type MatchResult struct {
	Satisfied          []PortPair
	UnsatisfiedIntents []IntentID
	UnusedCapabilities []CapabilityID
}

// Canonicalize sorts and de-duplicates every slice in place and replaces nil
// slices with empty ones.
func (m *MatchResult) Canonicalize() {
	if m.Satisfied == nil {
		m.Satisfied = []PortPair{}
	}
	slices.SortFunc(m.Satisfied, ComparePortPairs)
	m.Satisfied = slices.Compact(m.Satisfied)

	if m.UnsatisfiedIntents == nil {
		m.UnsatisfiedIntents = []IntentID{}
	}
	slices.Sort(m.UnsatisfiedIntents)
	m.UnsatisfiedIntents = slices.Compact(m.UnsatisfiedIntents)

	if m.UnusedCapabilities == nil {
		m.UnusedCapabilities = []CapabilityID{}
	}
	slices.Sort(m.UnusedCapabilities)
	m.UnusedCapabilities = slices.Compact(m.UnusedCapabilities)
}

// Clone returns a deep copy.
func (m MatchResult) Clone() MatchResult {
	return MatchResult{
		Satisfied:          append([]PortPair{}, m.Satisfied...),
		UnsatisfiedIntents: append([]IntentID{}, m.UnsatisfiedIntents...),
		UnusedCapabilities: append([]CapabilityID{}, m.UnusedCapabilities...),
	}
}

// Equal reports structural equality. Both results must be canonical.
func (m MatchResult) Equal(other MatchResult) bool {
	return slices.Equal(m.Satisfied, other.Satisfied) &&
		slices.Equal(m.UnsatisfiedIntents, other.UnsatisfiedIntents) &&
		slices.Equal(m.UnusedCapabilities, other.UnusedCapabilities)
}

// Verdict is the human oracle's judgment of a transition.
type Verdict string

const (
	VerdictMatches     Verdict = "MATCHES"
	VerdictMismatch    Verdict = "MISMATCH"
	VerdictUnvalidated Verdict = "UNVALIDATED"
)

// ValidVerdicts lists every verdict the export document may carry.
var ValidVerdicts = map[Verdict]bool{
	VerdictMatches:     true,
	VerdictMismatch:    true,
	VerdictUnvalidated: true,
}

// ParseVerdict converts text (case-insensitive) into a Verdict.
func ParseVerdict(s string) (Verdict, error) {
	v := Verdict(strings.ToUpper(strings.TrimSpace(s)))
	if !ValidVerdicts[v] {
		return "", fmt.Errorf("unknown verdict %q: must be MATCHES, MISMATCH or UNVALIDATED", s)
	}
	return v, nil
}

// Transition is one recorded step of a test session.
// Seq is strictly increasing within a session and starts at 1.
type Transition struct {
	Seq       int64
	Trigger   string
	AppState  ApplicationState
	UserState UserState
	Match     MatchResult
	Verdict   Verdict
	Note      *string // nil when the operator gave no note
	Timestamp time.Time
}

// Clone returns a deep copy including the note.
func (t Transition) Clone() Transition {
	out := t
	out.AppState = t.AppState.Clone()
	out.UserState = t.UserState.Clone()
	out.Match = t.Match.Clone()
	if t.Note != nil {
		note := *t.Note
		out.Note = &note
	}
	return out
}

// Session is an ordered, append-only history of transitions.
type Session struct {
	ID                string
	StartedAt         time.Time
	VocabularyVersion string
	Transitions       []Transition
}

// Clone returns a deep copy of the session and every transition.
func (s Session) Clone() Session {
	out := s
	out.Transitions = make([]Transition, len(s.Transitions))
	for i, t := range s.Transitions {
		out.Transitions[i] = t.Clone()
	}
	return out
}

// Bug is a mismatch derived from a MISMATCH transition.
type Bug struct {
	Seq         int64
	Description string
	AppState    ApplicationState
	UserState   UserState
	Match       MatchResult
}
