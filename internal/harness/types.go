package harness

import "github.com/roach88/portmatch/internal/ir"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Errors lists every failed check. Empty if Pass is true.
	Errors []string `json:"errors"`

	SessionID   string `json:"sessionId"`
	Transitions int    `json:"transitions"`
	Bugs        int    `json:"bugs"`

	// Export is the canonical export document of the session.
	Export []byte `json:"-"`

	// Document is Export decoded.
	Document ir.Document `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
