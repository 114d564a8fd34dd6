// Package harness replays scripted oracle sessions.
//
// A scenario stands in for both the state-extraction adapter and the human
// operator: every step gives the application and user states to record and
// the verdict to submit. Runs use a deterministic clock and a fixed session
// id, so the exported document is byte-stable and can be compared against a
// golden file.
//
// # Scenario Format
//
//	name: guided_navigation
//	description: "Next button works, jump selector is ignored"
//	vocabulary: "^1.0"              # semver constraint (optional)
//	session_id: scenario-guided     # default: the scenario name
//	started_at: 2025-01-01T00:00:00Z
//	steps:
//	  - trigger: load
//	    app:
//	      mode: GUIDED
//	      elements: [NEXT_BUTTON]
//	      capabilities: [ACCEPT_NEXT]
//	    user:
//	      intents: [WANT_NEXT]
//	    verdict: MATCHES
//	    expect:
//	      satisfied: ["WANT_NEXT<->ACCEPT_NEXT"]
//	      unsatisfied: []
//	  - trigger: illegal
//	    app: { mode: FREE_TEXT, capabilities: [ACCEPT_NEXT] }
//	    expect:
//	      error: MODELING_INCONSISTENCY
//	close: true
//	assertions:
//	  - type: bug_count
//	    count: 0
//	  - type: transition_count
//	    count: 1
//
// # Assertion Types
//
//   - transition_count: the session holds exactly count transitions
//   - bug_count: the export lists exactly count bugs
//   - bug_at: a bug exists at seq (optionally containing text)
//   - verdict_count: exactly count transitions carry verdict
//
// # Golden Files
//
// RunWithGolden compares the export document with
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
