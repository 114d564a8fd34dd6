package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/portmatch/internal/export"
	"github.com/roach88/portmatch/internal/ir"
)

// SaveSession archives an encoded export document.
//
// The document is validated with export.Decode before anything is written.
// Saving bytes whose digest is already archived under the same session id
// returns inserted=false. Different bytes under an archived id return
// ErrSessionConflict. All rows are written in one transaction.
func (s *Store) SaveSession(ctx context.Context, data []byte) (inserted bool, err error) {
	doc, err := export.Decode(data)
	if err != nil {
		return false, fmt.Errorf("save session: %w", err)
	}
	digest := export.Digest(data)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("save session: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT digest FROM sessions WHERE session_id = ?`, doc.SessionID,
	).Scan(&existing)
	switch {
	case err == nil:
		if existing == digest {
			err = tx.Commit()
			return false, err
		}
		err = fmt.Errorf("save session %s: %w", doc.SessionID, ErrSessionConflict)
		return false, err
	case !errors.Is(err, sql.ErrNoRows):
		err = fmt.Errorf("save session: lookup: %w", err)
		return false, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions
		(session_id, started_at, vocabulary_version, transition_count, bug_count, digest, document, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		doc.SessionID,
		doc.StartedAt,
		doc.VocabularyVersion,
		len(doc.Transitions),
		len(doc.Bugs),
		digest,
		data,
		ir.EngineVersion,
	)
	if err != nil {
		err = fmt.Errorf("save session: insert session: %w", err)
		return false, err
	}

	for _, t := range doc.Transitions {
		var matchJSON []byte
		matchJSON, err = marshalMatch(t)
		if err != nil {
			err = fmt.Errorf("save session: transition %d: %w", t.Seq, err)
			return false, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transitions
			(session_id, seq, trigger_name, mode, verdict, note, match, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			doc.SessionID,
			t.Seq,
			t.Trigger,
			t.AppState.Mode,
			t.Verdict,
			nullString(t.Note),
			string(matchJSON),
			t.Timestamp,
		)
		if err != nil {
			err = fmt.Errorf("save session: insert transition %d: %w", t.Seq, err)
			return false, err
		}
	}

	for _, b := range doc.Bugs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bugs (session_id, seq, description)
			VALUES (?, ?, ?)
		`, doc.SessionID, b.Seq, b.Description)
		if err != nil {
			err = fmt.Errorf("save session: insert bug %d: %w", b.Seq, err)
			return false, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("save session: commit: %w", err)
		return false, err
	}
	return true, nil
}

// marshalMatch encodes a transition's match block as canonical JSON.
func marshalMatch(t ir.DocTransition) ([]byte, error) {
	return ir.MarshalCanonical(t.IRValue()["match"])
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
