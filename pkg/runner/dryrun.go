package runner

import "github.com/ternarybob/are/pkg/docmodel"

// estimatedBytesPerToken is the heuristic used to convert prompt byte
// counts into an estimated token count for dry runs (§6), in the absence
// of a real tokenizer — a dry run never invokes the AI.
const estimatedBytesPerToken = 4

// DryRunReport summarizes a plan without invoking any AI backend (§6): the
// task counts per phase and a rough token/call estimate a user can sanity
// check before spending real AI calls.
type DryRunReport struct {
	FileTasks        int
	DirectoryTasks   int
	RootTasks        int
	EstimatedAICalls int
	EstimatedTokens  int
}

// Estimate builds a DryRunReport from an already-built plan, without
// touching the file system or any AI backend.
func Estimate(plan *docmodel.ExecutionPlan) DryRunReport {
	report := DryRunReport{
		FileTasks:      len(plan.FileTasks),
		DirectoryTasks: len(plan.DirectoryTasks),
		RootTasks:      len(plan.RootTasks),
	}
	report.EstimatedAICalls = report.FileTasks + report.DirectoryTasks + report.RootTasks

	var totalBytes int
	for _, t := range plan.FileTasks {
		totalBytes += len(t.Prompts.System) + len(t.Prompts.User)
	}
	for _, t := range plan.DirectoryTasks {
		totalBytes += len(t.Prompts.System) + len(t.Prompts.User)
	}
	for _, t := range plan.RootTasks {
		totalBytes += len(t.Prompts.System) + len(t.Prompts.User)
	}
	report.EstimatedTokens = totalBytes / estimatedBytesPerToken
	return report
}
