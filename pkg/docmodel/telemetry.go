package docmodel

import "time"

// TelemetryEntry is a per-AI-call record (§3), accumulated into a run log
// written once at termination.
//
// The reference source this spec is drawn from carries a "reasoning" field
// always populated with a "not supported" sentinel, because the backend's
// JSON output never includes it. That field is intentionally omitted here;
// an adapter that later surfaces real reasoning content should add it.
type TelemetryEntry struct {
	TaskID              string
	Start               time.Time
	End                  time.Time
	PromptBytes         int
	ResponseBytes       int
	Model               string
	InputTokens         int
	OutputTokens        int
	CacheReadTokens     int
	CacheCreationTokens int
	DurationMs          int64
	ExitStatus          int
	RetryCount          int
	// FilesRead lists files the engine fed into the prompt — not files the
	// AI autonomously read via tool use (§9).
	FilesRead []FileRef
}

// TaskFailure is one task's failure entry in a RunSummary (§7: "every task
// failure contributes ... one entry to the run summary with a
// machine-readable kind tag and a short message").
type TaskFailure struct {
	TaskID  string
	Kind    string
	Message string
}

// ValidatorFinding is a single result from an external quality validator
// (§4.4, Supplemented Feature S5). The core treats validators as opaque
// collaborators; this is only the shape of what they report back.
type ValidatorFinding struct {
	Validator string
	TaskID    string
	Passed    bool
	Message   string
}

// RunSummary is the aggregate result of one generate/update invocation (§4.4).
type RunSummary struct {
	FilesProcessed      int
	FilesFailed         int
	FilesSkipped        int
	TotalAICalls        int
	InputTokens         int
	OutputTokens        int
	CacheReadTokens     int
	CacheCreationTokens int
	Duration            time.Duration
	ErrorCount          int
	RetryCount          int
	UniqueFilesRead     int
	ExitClass           int
	ValidatorFindings   []ValidatorFinding
	TaskFailures        []TaskFailure
}
