package ir

// Version constants for the export document and engine.
const (
	// DocumentVersion is the export document schema version.
	DocumentVersion = "1"

	// EngineVersion is the portmatch engine version.
	EngineVersion = "0.1.0"
)
