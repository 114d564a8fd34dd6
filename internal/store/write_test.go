package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/portmatch/internal/export"
	"github.com/roach88/portmatch/internal/ir"
)

var t0 = time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func testTransition(seq int64, trigger string, verdict ir.Verdict, note *string) ir.Transition {
	ts := t0.Add(time.Duration(seq) * time.Second)
	return ir.Transition{
		Seq:     seq,
		Trigger: trigger,
		AppState: ir.ApplicationState{
			Mode:            "GUIDED",
			VisibleElements: ir.NewSet[ir.ElementID]("NEXT_BUTTON"),
			Capabilities:    ir.NewSet[ir.CapabilityID]("ACCEPT_NEXT"),
			Timestamp:       ts,
		},
		UserState: ir.UserState{Intents: ir.NewSet[ir.IntentID]("WANT_NEXT"), Timestamp: ts},
		Match: ir.MatchResult{
			Satisfied:          []ir.PortPair{{Intent: "WANT_NEXT", Capability: "ACCEPT_NEXT"}},
			UnsatisfiedIntents: []ir.IntentID{},
			UnusedCapabilities: []ir.CapabilityID{},
		},
		Verdict:   verdict,
		Note:      note,
		Timestamp: ts,
	}
}

// testExport encodes a three-transition session: MATCHES, MISMATCH, UNVALIDATED.
func testExport(t *testing.T, id string, started time.Time) []byte {
	t.Helper()
	data, err := export.Export(ir.Session{
		ID:                id,
		StartedAt:         started,
		VocabularyVersion: "1.0.0",
		Transitions: []ir.Transition{
			testTransition(1, "load", ir.VerdictMatches, nil),
			testTransition(2, "next", ir.VerdictMismatch, strPtr("progress bar frozen")),
			testTransition(3, "edit", ir.VerdictUnvalidated, nil),
		},
	})
	require.NoError(t, err)
	return data
}

func TestSaveSession_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	data := testExport(t, "s-1", t0)

	inserted, err := s.SaveSession(ctx, data)
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := s.ReadSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, data, got, "document is stored verbatim")
}

func TestSaveSession_IdempotentForSameBytes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	data := testExport(t, "s-1", t0)

	_, err := s.SaveSession(ctx, data)
	require.NoError(t, err)

	inserted, err := s.SaveSession(ctx, data)
	require.NoError(t, err)
	assert.False(t, inserted)

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestSaveSession_ConflictingContent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.SaveSession(ctx, testExport(t, "s-1", t0))
	require.NoError(t, err)

	_, err = s.SaveSession(ctx, testExport(t, "s-1", t0.Add(time.Hour)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionConflict)
}

func TestSaveSession_RejectsInvalidDocument(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	data := testExport(t, "s-1", t0)
	broken := strings.Replace(string(data), `"seq":3`, `"seq":2`, 1)

	_, err := s.SaveSession(ctx, []byte(broken))
	require.Error(t, err)
	assert.True(t, ir.IsExportIntegrity(err))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestReadSession_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSessions_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, tc := range []struct {
		id      string
		started time.Time
	}{
		{"s-late", t0.Add(2 * time.Hour)},
		{"s-b", t0},
		{"s-a", t0},
	} {
		_, err := s.SaveSession(ctx, testExport(t, tc.id, tc.started))
		require.NoError(t, err)
	}

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, "s-a", sessions[0].SessionID)
	assert.Equal(t, "s-b", sessions[1].SessionID)
	assert.Equal(t, "s-late", sessions[2].SessionID)

	first := sessions[0]
	assert.Equal(t, 3, first.Transitions)
	assert.Equal(t, 1, first.Bugs)
	assert.Equal(t, "1.0.0", first.VocabularyVersion)
	assert.Equal(t, ir.EngineVersion, first.EngineVersion)
	assert.Len(t, first.Digest, 64)
}

func TestListBugs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := s.SaveSession(ctx, testExport(t, "s-2", t0.Add(time.Hour)))
	require.NoError(t, err)
	_, err = s.SaveSession(ctx, testExport(t, "s-1", t0))
	require.NoError(t, err)

	all, err := s.ListBugs(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, BugRecord{SessionID: "s-1", Seq: 2, Trigger: "next", Description: "progress bar frozen"}, all[0])
	assert.Equal(t, "s-2", all[1].SessionID)

	one, err := s.ListBugs(ctx, "s-2")
	require.NoError(t, err)
	assert.Len(t, one, 1)

	none, err := s.ListBugs(ctx, "missing")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestListTransitions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := s.SaveSession(ctx, testExport(t, "s-1", t0))
	require.NoError(t, err)

	all, err := s.ListTransitions(ctx, "s-1", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, r := range all {
		assert.Equal(t, int64(i+1), r.Seq)
	}
	assert.Nil(t, all[0].Note)
	require.NotNil(t, all[1].Note)
	assert.Equal(t, "progress bar frozen", *all[1].Note)
	assert.Equal(t, `{"satisfied":[["WANT_NEXT","ACCEPT_NEXT"]],"unsatisfiedIntents":[],"unusedCapabilities":[]}`, all[0].Match)
	assert.Equal(t, "GUIDED", all[0].Mode)

	pending, err := s.ListTransitions(ctx, "s-1", ir.VerdictUnvalidated)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "edit", pending[0].Trigger)
}
