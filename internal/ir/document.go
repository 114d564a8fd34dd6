package ir

import (
	"fmt"
	"time"
)

// TimeLayout is the timestamp format used in export documents.
const TimeLayout = time.RFC3339Nano

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout timestamp.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Document is the session export document. Field names are a fixed contract.
type Document struct {
	SessionID         string          `json:"sessionId"`
	StartedAt         string          `json:"startedAt"`
	VocabularyVersion string          `json:"vocabularyVersion"`
	Transitions       []DocTransition `json:"transitions"`
	Bugs              []DocBug        `json:"bugs"`
}

// DocTransition is one exported transition.
type DocTransition struct {
	Seq       int64        `json:"seq"`
	Trigger   string       `json:"trigger"`
	AppState  DocAppState  `json:"appState"`
	UserState DocUserState `json:"userState"`
	Match     DocMatch     `json:"match"`
	Verdict   string       `json:"verdict"`
	Note      *string      `json:"note"`
	Timestamp string       `json:"timestamp"`
}

// DocAppState is an exported ApplicationState.
type DocAppState struct {
	Mode            string   `json:"mode"`
	VisibleElements []string `json:"visibleElements"`
	Capabilities    []string `json:"capabilities"`
	Timestamp       string   `json:"timestamp"`
}

// DocUserState is an exported UserState. ExpectedVisible is omitted when
// no expectation was stated.
type DocUserState struct {
	Intents         []string `json:"intents"`
	ExpectedVisible []string `json:"expectedVisible,omitempty"`
	Timestamp       string   `json:"timestamp"`
}

// DocMatch is an exported MatchResult. Satisfied pairs are [intent, capability].
type DocMatch struct {
	Satisfied          [][2]string `json:"satisfied"`
	UnsatisfiedIntents []string    `json:"unsatisfiedIntents"`
	UnusedCapabilities []string    `json:"unusedCapabilities"`
}

// DocBug is an exported bug entry.
type DocBug struct {
	Seq         int64  `json:"seq"`
	Description string `json:"description"`
}

// ToDocTransition converts a recorded transition into its exported form.
func ToDocTransition(t Transition) DocTransition {
	m := t.Match.Clone()
	m.Canonicalize()

	satisfied := make([][2]string, len(m.Satisfied))
	for i, p := range m.Satisfied {
		satisfied[i] = [2]string{string(p.Intent), string(p.Capability)}
	}

	var note *string
	if t.Note != nil {
		n := *t.Note
		note = &n
	}

	var expected []string
	if t.UserState.ExpectedVisible.Len() > 0 {
		expected = toStrings(t.UserState.ExpectedVisible.Sorted())
	}

	return DocTransition{
		Seq:     t.Seq,
		Trigger: t.Trigger,
		AppState: DocAppState{
			Mode:            string(t.AppState.Mode),
			VisibleElements: toStrings(t.AppState.VisibleElements.Sorted()),
			Capabilities:    toStrings(t.AppState.Capabilities.Sorted()),
			Timestamp:       FormatTime(t.AppState.Timestamp),
		},
		UserState: DocUserState{
			Intents:         toStrings(t.UserState.Intents.Sorted()),
			ExpectedVisible: expected,
			Timestamp:       FormatTime(t.UserState.Timestamp),
		},
		Match: DocMatch{
			Satisfied:          satisfied,
			UnsatisfiedIntents: toStrings(m.UnsatisfiedIntents),
			UnusedCapabilities: toStrings(m.UnusedCapabilities),
		},
		Verdict:   string(t.Verdict),
		Note:      note,
		Timestamp: FormatTime(t.Timestamp),
	}
}

// Transition converts an exported transition back into the data model.
func (d DocTransition) Transition() (Transition, error) {
	verdict, err := ParseVerdict(d.Verdict)
	if err != nil {
		return Transition{}, fmt.Errorf("transition %d: %w", d.Seq, err)
	}
	ts, err := ParseTime(d.Timestamp)
	if err != nil {
		return Transition{}, fmt.Errorf("transition %d: %w", d.Seq, err)
	}
	appTS, err := ParseTime(d.AppState.Timestamp)
	if err != nil {
		return Transition{}, fmt.Errorf("transition %d appState: %w", d.Seq, err)
	}
	userTS, err := ParseTime(d.UserState.Timestamp)
	if err != nil {
		return Transition{}, fmt.Errorf("transition %d userState: %w", d.Seq, err)
	}

	match := MatchResult{
		Satisfied:          make([]PortPair, len(d.Match.Satisfied)),
		UnsatisfiedIntents: fromStrings[IntentID](d.Match.UnsatisfiedIntents),
		UnusedCapabilities: fromStrings[CapabilityID](d.Match.UnusedCapabilities),
	}
	for i, p := range d.Match.Satisfied {
		match.Satisfied[i] = PortPair{Intent: IntentID(p[0]), Capability: CapabilityID(p[1])}
	}
	match.Canonicalize()

	var note *string
	if d.Note != nil {
		n := *d.Note
		note = &n
	}

	var expected Set[ElementID]
	if len(d.UserState.ExpectedVisible) > 0 {
		expected = NewSet(fromStrings[ElementID](d.UserState.ExpectedVisible)...)
	}

	return Transition{
		Seq:     d.Seq,
		Trigger: d.Trigger,
		AppState: ApplicationState{
			Mode:            Mode(d.AppState.Mode),
			VisibleElements: NewSet(fromStrings[ElementID](d.AppState.VisibleElements)...),
			Capabilities:    NewSet(fromStrings[CapabilityID](d.AppState.Capabilities)...),
			Timestamp:       appTS,
		},
		UserState: UserState{
			Intents:         NewSet(fromStrings[IntentID](d.UserState.Intents)...),
			ExpectedVisible: expected,
			Timestamp:       userTS,
		},
		Match:     match,
		Verdict:   verdict,
		Note:      note,
		Timestamp: ts,
	}, nil
}

// Session rebuilds the data-model session from a document.
func (d Document) Session() (Session, error) {
	started, err := ParseTime(d.StartedAt)
	if err != nil {
		return Session{}, fmt.Errorf("startedAt: %w", err)
	}
	s := Session{
		ID:                d.SessionID,
		StartedAt:         started,
		VocabularyVersion: d.VocabularyVersion,
		Transitions:       make([]Transition, 0, len(d.Transitions)),
	}
	for _, dt := range d.Transitions {
		t, err := dt.Transition()
		if err != nil {
			return Session{}, err
		}
		s.Transitions = append(s.Transitions, t)
	}
	return s, nil
}

// IRValue converts the document into an IRObject for canonical marshaling.
func (d Document) IRValue() IRObject {
	transitions := make(IRArray, len(d.Transitions))
	for i, t := range d.Transitions {
		transitions[i] = t.IRValue()
	}
	bugs := make(IRArray, len(d.Bugs))
	for i, b := range d.Bugs {
		bugs[i] = IRObject{
			"seq":         IRInt(b.Seq),
			"description": IRString(b.Description),
		}
	}
	return IRObject{
		"sessionId":         IRString(d.SessionID),
		"startedAt":         IRString(d.StartedAt),
		"vocabularyVersion": IRString(d.VocabularyVersion),
		"transitions":       transitions,
		"bugs":              bugs,
	}
}

// IRValue converts the transition into an IRObject.
func (d DocTransition) IRValue() IRObject {
	satisfied := make(IRArray, len(d.Match.Satisfied))
	for i, p := range d.Match.Satisfied {
		satisfied[i] = IRArray{IRString(p[0]), IRString(p[1])}
	}
	var note IRValue = IRNull{}
	if d.Note != nil {
		note = IRString(*d.Note)
	}
	user := IRObject{
		"intents":   StringArray(d.UserState.Intents),
		"timestamp": IRString(d.UserState.Timestamp),
	}
	if len(d.UserState.ExpectedVisible) > 0 {
		user["expectedVisible"] = StringArray(d.UserState.ExpectedVisible)
	}
	return IRObject{
		"seq":     IRInt(d.Seq),
		"trigger": IRString(d.Trigger),
		"appState": IRObject{
			"mode":            IRString(d.AppState.Mode),
			"visibleElements": StringArray(d.AppState.VisibleElements),
			"capabilities":    StringArray(d.AppState.Capabilities),
			"timestamp":       IRString(d.AppState.Timestamp),
		},
		"userState": user,
		"match": IRObject{
			"satisfied":          satisfied,
			"unsatisfiedIntents": StringArray(d.Match.UnsatisfiedIntents),
			"unusedCapabilities": StringArray(d.Match.UnusedCapabilities),
		},
		"verdict":   IRString(d.Verdict),
		"note":      note,
		"timestamp": IRString(d.Timestamp),
	}
}

func toStrings[T ~string](items []T) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = string(s)
	}
	return out
}

func fromStrings[T ~string](items []string) []T {
	out := make([]T, len(items))
	for i, s := range items {
		out[i] = T(s)
	}
	return out
}
