package ir

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := NewModelingInconsistency(3, "FREE_TEXT", "ACCEPT_NEXT")
	assert.Equal(t, "MODELING_INCONSISTENCY: capability ACCEPT_NEXT is not legal in mode FREE_TEXT (seq=3)", err.Error())

	err = NewStateViolation(0, "enable", "ACTIVE", "a session is already active")
	assert.Equal(t, "STATE_VIOLATION: enable rejected in state ACTIVE: a session is already active", err.Error())
}

func TestError_Predicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"gap", NewVocabularyGap(1, "intent", "WANT_FLY"), IsVocabularyGap},
		{"inconsistency", NewModelingInconsistency(1, "M", "C"), IsModelingInconsistency},
		{"unknown mode", NewUnknownMode(1, "M"), IsModelingInconsistency},
		{"state", NewStateViolation(1, "op", "CLOSED", "closed"), IsStateViolation},
		{"integrity", NewExportIntegrity(2, 3), IsExportIntegrity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.err)), "should see through wrapping")
		})
	}

	assert.False(t, IsStateViolation(errors.New("plain")))
	assert.False(t, IsStateViolation(NewVocabularyGap(1, "intent", "X")))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeExportIntegrity, CodeOf(NewExportIntegrity(1, 1)))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestNewExportIntegrity_Details(t *testing.T) {
	err := NewExportIntegrity(2, 5)
	assert.Equal(t, int64(2), err.Seq)
	assert.Equal(t, "5", err.Details["previous"])
}
