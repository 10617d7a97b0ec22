package engine

import (
	"fmt"
	"strings"

	"github.com/ternarybob/are/pkg/runner"
)

// FormatSummaryMarkdown renders run-log entries as a Markdown table for the
// `are summary` command (Supplemented Feature S4). Newest entry last,
// matching ReadRunLogs' oldest-first order.
func FormatSummaryMarkdown(entries []runner.RunLogEntry) string {
	if len(entries) == 0 {
		return "No runs recorded yet.\n"
	}

	var b strings.Builder
	b.WriteString("| run | operation | started | files | calls | tokens in/out | retries | exit |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, e := range entries {
		s := e.Summary
		fmt.Fprintf(&b, "| %s | %s | %s | %d ok / %d fail / %d skip | %d | %d/%d | %d | %d |\n",
			e.RunID, e.Operation, e.StartedAt.Format("2006-01-02 15:04:05"),
			s.FilesProcessed, s.FilesFailed, s.FilesSkipped,
			s.TotalAICalls, s.InputTokens, s.OutputTokens,
			s.RetryCount, s.ExitClass,
		)
	}
	return b.String()
}
