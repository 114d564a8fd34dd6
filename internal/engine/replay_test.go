package engine

import (
	"maps"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/portmatch/internal/ir"
	"github.com/roach88/portmatch/internal/vocab"
)

func recordedExport(t *testing.T) []byte {
	t.Helper()
	o := enabled(t)

	app, user := guidedNext()
	_, err := o.RecordTransition("load", app, user)
	require.NoError(t, err)
	require.NoError(t, o.SubmitVerdict(ir.VerdictMatches, ""))

	app.Capabilities.Add("ACCEPT_MODE_TOGGLE")
	_, err = o.RecordTransition("edit", app, userState("WANT_EDIT_PHRASE"))
	require.NoError(t, err)
	require.NoError(t, o.SubmitVerdict(ir.VerdictMismatch, "edit box never appears"))
	require.NoError(t, o.Close())

	data, err := o.Export()
	require.NoError(t, err)
	return data
}

// variant copies the default vocabulary so a test can change it.
func variant(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	d := vocab.Default()
	v := &vocab.Vocabulary{
		Version:      "2.0.0",
		Modes:        make(map[ir.Mode]vocab.ModeEntry, len(d.Modes)),
		Capabilities: maps.Clone(d.Capabilities),
		Intents:      maps.Clone(d.Intents),
		Elements:     maps.Clone(d.Elements),
	}
	for id, m := range d.Modes {
		m.Legal = m.Legal.Clone()
		v.Modes[id] = m
	}
	return v
}

func TestReplay_Reproduces(t *testing.T) {
	data := recordedExport(t)

	report, err := Replay(vocab.Default(), data)
	require.NoError(t, err)

	assert.True(t, report.OK())
	assert.True(t, report.Identical)
	assert.Empty(t, report.Mismatches)
	assert.Equal(t, "session-1", report.SessionID)
	assert.Equal(t, 2, report.Transitions)
	assert.Len(t, report.Digest, 64)
}

func TestReplay_ChangedPort(t *testing.T) {
	data := recordedExport(t)
	v := variant(t)
	v.Intents["WANT_EDIT_PHRASE"] = vocab.IntentEntry{Port: "ACCEPT_TEXT"}

	report, err := Replay(v, data)
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.True(t, report.Identical, "bytes still round-trip")
	require.Len(t, report.Mismatches, 1)
	mm := report.Mismatches[0]
	assert.Equal(t, int64(2), mm.Seq)
	assert.Equal(t, []ir.IntentID{"WANT_EDIT_PHRASE"}, mm.Recomputed.UnsatisfiedIntents)
	assert.Equal(t, "2.0.0", report.ReplayedWith)
	assert.Equal(t, vocab.Default().Version, report.VocabularyVersion)
}

func TestReplay_NowIllegal(t *testing.T) {
	data := recordedExport(t)
	v := variant(t)
	guided := v.Modes["GUIDED"]
	delete(guided.Legal, "ACCEPT_MODE_TOGGLE")

	report, err := Replay(v, data)
	require.NoError(t, err)

	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, int64(2), report.Mismatches[0].Seq)
	assert.Contains(t, report.Mismatches[0].Error, "MODELING_INCONSISTENCY")
}

func TestReplay_NonCanonicalInput(t *testing.T) {
	data := recordedExport(t)
	spaced := strings.Replace(string(data), `"bugs":`, `"bugs": `, 1)

	report, err := Replay(vocab.Default(), []byte(spaced))
	require.NoError(t, err)
	assert.Empty(t, report.Mismatches)
	assert.False(t, report.Identical)
}

func TestReplay_InvalidDocument(t *testing.T) {
	_, err := Replay(vocab.Default(), []byte(`{"sessionId":"x"}`))
	require.Error(t, err)
}
