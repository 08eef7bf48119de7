package ir

// Version constants stamped on persisted campaigns and reports.
const (
	// FormatVersion is the version of the canonical step/report encoding.
	FormatVersion = "1"

	// EngineVersion is the statefuzz engine version.
	EngineVersion = "0.1.0"
)
