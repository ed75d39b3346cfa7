package logging

// LogEntry represents a structured log record with fields particularly
// relevant to evolutionary runs.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Run-specific fields
	Generation  int     // Generation the entry belongs to, -1 when not applicable
	BestFitness float64 // Best fitness observed so far

	// General structured data
	Fields map[string]interface{}
}
