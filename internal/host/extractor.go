package host

import "github.com/roach88/portmatch/internal/ir"

// Extractor reports what the application currently offers.
type Extractor interface {
	ExtractApplicationState() (ir.ApplicationState, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func() (ir.ApplicationState, error)

// ExtractApplicationState calls f.
func (f ExtractorFunc) ExtractApplicationState() (ir.ApplicationState, error) {
	return f()
}

// StateChecker is an Extractor that also checks the observed state for
// impossible combinations. The violations describe the same observation as
// the returned state.
type StateChecker interface {
	Extractor
	ExtractChecked() (ir.ApplicationState, []string, error)
}
