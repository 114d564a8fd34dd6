package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionFor(t *testing.T) {
	tests := []struct {
		from State
		op   Op
		to   State
		ok   bool
	}{
		{StateInactive, OpEnable, StateActive, true},
		{StateInactive, OpRecord, "", false},
		{StateInactive, OpExport, "", false},
		{StateActive, OpEnable, "", false},
		{StateActive, OpRecord, StateActive, true},
		{StateActive, OpVerdict, StateActive, true},
		{StateActive, OpExport, StateActive, true},
		{StateActive, OpClose, StateClosed, true},
		{StateClosed, OpRecord, "", false},
		{StateClosed, OpVerdict, "", false},
		{StateClosed, OpClose, "", false},
		{StateClosed, OpEnable, "", false},
		{StateClosed, OpExport, StateClosed, true},
		{StateClosed, OpRead, StateClosed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.op), func(t *testing.T) {
			to, ok := transitionFor(tt.from, tt.op)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestLifecycle_ClosedIsTerminal(t *testing.T) {
	for _, e := range lifecycleTable {
		if e.From == StateClosed {
			assert.Equal(t, StateClosed, e.To, "edge %s leaves CLOSED", e.Op)
		}
	}
}

func TestRejectionCause(t *testing.T) {
	assert.Equal(t, "no active session", rejectionCause(StateInactive, OpVerdict))
	assert.Equal(t, "a session is already active", rejectionCause(StateActive, OpEnable))
	assert.Equal(t, "the session is closed", rejectionCause(StateClosed, OpRecord))
}
