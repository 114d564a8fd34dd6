package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/portmatch/internal/ir"
)

// SessionSummary is one archived session.
type SessionSummary struct {
	SessionID         string `json:"sessionId"`
	StartedAt         string `json:"startedAt"`
	VocabularyVersion string `json:"vocabularyVersion"`
	Transitions       int    `json:"transitions"`
	Bugs              int    `json:"bugs"`
	Digest            string `json:"digest"`
	EngineVersion     string `json:"engineVersion"`
}

// TransitionRecord is an indexed transition row.
type TransitionRecord struct {
	SessionID  string  `json:"sessionId"`
	Seq        int64   `json:"seq"`
	Trigger    string  `json:"trigger"`
	Mode       string  `json:"mode"`
	Verdict    string  `json:"verdict"`
	Note       *string `json:"note"`
	Match      string  `json:"match"`
	RecordedAt string  `json:"recordedAt"`
}

// BugRecord is an archived bug.
type BugRecord struct {
	SessionID   string `json:"sessionId"`
	Seq         int64  `json:"seq"`
	Trigger     string `json:"trigger"`
	Description string `json:"description"`
}

// ReadSession returns the archived document bytes exactly as saved.
func (s *Store) ReadSession(ctx context.Context, sessionID string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}
	return data, nil
}

// ListSessions returns every archived session, oldest first.
// Returns an empty slice (not nil) when the archive is empty.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, started_at, vocabulary_version, transition_count, bug_count, digest, engine_version
		FROM sessions
		ORDER BY started_at ASC, session_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionSummary{}
	for rows.Next() {
		var ss SessionSummary
		if err := rows.Scan(&ss.SessionID, &ss.StartedAt, &ss.VocabularyVersion,
			&ss.Transitions, &ss.Bugs, &ss.Digest, &ss.EngineVersion); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ListBugs returns archived bugs. An empty sessionID lists bugs of every
// session, ordered by session start then seq.
func (s *Store) ListBugs(ctx context.Context, sessionID string) ([]BugRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.session_id, b.seq, t.trigger_name, b.description
		FROM bugs b
		JOIN sessions s ON s.session_id = b.session_id
		JOIN transitions t ON t.session_id = b.session_id AND t.seq = b.seq
		WHERE (? = '' OR b.session_id = ?)
		ORDER BY s.started_at ASC, b.session_id COLLATE BINARY ASC, b.seq ASC
	`, sessionID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query bugs: %w", err)
	}
	defer rows.Close()

	bugs := []BugRecord{}
	for rows.Next() {
		var b BugRecord
		if err := rows.Scan(&b.SessionID, &b.Seq, &b.Trigger, &b.Description); err != nil {
			return nil, fmt.Errorf("scan bug: %w", err)
		}
		bugs = append(bugs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bugs: %w", err)
	}
	return bugs, nil
}

// ListTransitions returns the transitions of one session in seq order,
// optionally restricted to one verdict (empty verdict = all).
func (s *Store) ListTransitions(ctx context.Context, sessionID string, verdict ir.Verdict) ([]TransitionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, trigger_name, mode, verdict, note, match, recorded_at
		FROM transitions
		WHERE session_id = ? AND (? = '' OR verdict = ?)
		ORDER BY seq ASC
	`, sessionID, string(verdict), string(verdict))
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	records := []TransitionRecord{}
	for rows.Next() {
		var (
			r    TransitionRecord
			note sql.NullString
		)
		if err := rows.Scan(&r.SessionID, &r.Seq, &r.Trigger, &r.Mode, &r.Verdict,
			&note, &r.Match, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if note.Valid {
			n := note.String
			r.Note = &n
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return records, nil
}
