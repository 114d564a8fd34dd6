// Package ir provides the shared data model for portmatch.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the data model the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Identifiers are opaque strings drawn from a closed vocabulary; ir never
//     decides whether an identifier is known (see internal/vocab)
//   - Sets are value types with a canonical (sorted) iteration order
//   - Snapshots embedded in a Transition are deep copies owned by that Transition
//   - No float types anywhere - the export document is integers, strings, bools
//   - Export field names are camelCase and fixed; they are a wire contract
package ir
