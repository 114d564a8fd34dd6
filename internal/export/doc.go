// Package export derives bugs from a session and serializes it to the
// session export document, the only artifact the engine persists.
//
// Export output is RFC 8785 canonical JSON (see ir.MarshalCanonical), so an
// unchanged session always exports to the same bytes and two runs can be
// compared byte for byte or with Diff.
package export
