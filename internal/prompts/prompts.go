// Package prompts supplies the default prompt-template adapter the plan
// builder needs (§4.1's injected PromptAdapter). Prompt template content is
// explicitly out of scope (§1); this is a minimal, serviceable default a
// caller can override by supplying its own plan.PromptAdapter.
package prompts

import (
	"fmt"

	"github.com/ternarybob/are/pkg/docmodel"
)

// Default is the plan.PromptAdapter used when no caller-supplied templates
// are configured.
type Default struct {
	// ProjectName is surfaced in the system prompt for extra context.
	ProjectName string
}

const systemPreamble = "You are a senior engineer writing concise, accurate documentation for a codebase. Respond with the documentation body only, no commentary about the task itself."

// FilePrompts builds the system/user prompt pair for a per-file summary task.
func (d Default) FilePrompts(src *docmodel.SourceFile) docmodel.PromptPair {
	system := systemPreamble + " Summarize a single source file: its purpose, notable exported symbols, and any critical TODOs or tightly coupled sibling files."
	user := fmt.Sprintf("Project: %s\nFile: %s\n\nWrite a one-paragraph purpose summary followed by any noteworthy details.", d.projectName(), src.RelPath)
	return docmodel.PromptPair{System: system, User: user}
}

// DirectoryPrompts builds the prompt pair for a per-directory aggregate task.
// Child summaries are appended at execution time by the pipeline runner.
func (d Default) DirectoryPrompts(dirRelPath string, depth int) docmodel.PromptPair {
	system := systemPreamble + " Synthesize a directory-level overview from the summaries of its files and subdirectories."
	user := fmt.Sprintf("Project: %s\nDirectory: %s (depth %d)\n\nSynthesize the directory's purpose and structure from the child summaries provided below.", d.projectName(), displayDir(dirRelPath), depth)
	return docmodel.PromptPair{System: system, User: user}
}

// RootPrompts builds the prompt pair for a root-level synthesis task,
// targeted at one AI-assistant family.
func (d Default) RootPrompts(target string) docmodel.PromptPair {
	system := systemPreamble + fmt.Sprintf(" Produce a project-wide overview document tailored for the %s assistant family.", target)
	user := fmt.Sprintf("Project: %s\nTarget: %s\n\nSynthesize a full project overview from the directory aggregates provided below.", d.projectName(), target)
	return docmodel.PromptPair{System: system, User: user}
}

func (d Default) projectName() string {
	if d.ProjectName == "" {
		return "(unnamed project)"
	}
	return d.ProjectName
}

func displayDir(relPath string) string {
	if relPath == "." {
		return "(project root)"
	}
	return relPath
}
