package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedSessionID(t *testing.T) {
	g := NewFixedSessionID("session-abc")
	assert.Equal(t, "session-abc", g.Generate())
	assert.Equal(t, "session-abc", g.Generate())
}

func TestFixedSessionID_Default(t *testing.T) {
	assert.Equal(t, "test-session", NewFixedSessionID("").Generate())
}
