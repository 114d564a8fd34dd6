package testutil

// FixedSessionID returns the same session id every time.
//
// Scenarios declare their id in YAML so the exported document is
// reproducible:
//
//	session_id: "scenario-guided-navigation"
//
// If id is empty, Generate returns "test-session".
//
// Thread-safety: FixedSessionID is stateless and safe for concurrent use.
type FixedSessionID struct {
	id string
}

// NewFixedSessionID creates a fixed session id generator.
func NewFixedSessionID(id string) *FixedSessionID {
	if id == "" {
		id = "test-session"
	}
	return &FixedSessionID{id: id}
}

// Generate returns the fixed id.
func (g *FixedSessionID) Generate() string {
	return g.id
}
