// Package host connects a running application to the oracle.
//
// An Extractor reads the application's current ApplicationState. The
// reference PracticeExtractor infers mode, visible elements and
// capabilities from a pronunciation-practice view the same way the
// application's own screens are laid out.
//
// Host serializes every call into a single engine.Oracle so that several
// goroutines (HTTP handlers, UI callbacks) never interleave operations.
// NewRouter exposes a Host over HTTP with chi.
package host
