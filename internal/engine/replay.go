package engine

import (
	"bytes"
	"errors"

	"github.com/roach88/portmatch/internal/export"
	"github.com/roach88/portmatch/internal/ir"
	"github.com/roach88/portmatch/internal/vocab"
)

// ReplayMismatch is a stored transition whose recomputed match differs,
// or whose state no longer validates against the vocabulary.
type ReplayMismatch struct {
	Seq        int64          `json:"seq"`
	Trigger    string         `json:"trigger"`
	Stored     ir.MatchResult `json:"stored"`
	Recomputed ir.MatchResult `json:"recomputed"`
	Error      string         `json:"error,omitempty"`
}

// ReplayReport summarizes a replay of an export document.
type ReplayReport struct {
	SessionID         string           `json:"sessionId"`
	Transitions       int              `json:"transitions"`
	VocabularyVersion string           `json:"vocabularyVersion"`
	ReplayedWith      string           `json:"replayedWith"`
	Mismatches        []ReplayMismatch `json:"mismatches"`
	// Identical is true when re-exporting the decoded session reproduces
	// the input bytes exactly.
	Identical bool   `json:"identical"`
	Digest    string `json:"digest"`
}

// OK reports whether every match reproduced and the bytes are stable.
func (r *ReplayReport) OK() bool {
	return len(r.Mismatches) == 0 && r.Identical
}

// Replay recomputes every stored match of an encoded export document with
// v and re-exports the session.
//
// Stored snapshots are the only input, so a replay with the vocabulary the
// session was recorded under must reproduce every match. A different
// vocabulary shows which transitions its changes affect.
func Replay(v *vocab.Vocabulary, data []byte) (*ReplayReport, error) {
	doc, err := export.Decode(data)
	if err != nil {
		return nil, err
	}
	session, err := doc.Session()
	if err != nil {
		return nil, err
	}

	m := NewMatcher(v)
	report := &ReplayReport{
		SessionID:         session.ID,
		Transitions:       len(session.Transitions),
		VocabularyVersion: session.VocabularyVersion,
		ReplayedWith:      v.Version,
		Mismatches:        []ReplayMismatch{},
		Digest:            export.Digest(data),
	}

	for _, t := range session.Transitions {
		eval, err := m.evaluate(t.Seq, t.AppState, t.UserState)
		if err != nil {
			var e *ir.Error
			if !errors.As(err, &e) {
				return nil, err
			}
			report.Mismatches = append(report.Mismatches, ReplayMismatch{
				Seq:     t.Seq,
				Trigger: t.Trigger,
				Stored:  t.Match,
				Error:   e.Error(),
			})
			continue
		}
		if !eval.Result.Equal(t.Match) {
			report.Mismatches = append(report.Mismatches, ReplayMismatch{
				Seq:        t.Seq,
				Trigger:    t.Trigger,
				Stored:     t.Match,
				Recomputed: eval.Result,
			})
		}
	}

	again, err := export.Export(session)
	if err != nil {
		return nil, err
	}
	report.Identical = bytes.Equal(again, data)
	return report, nil
}
