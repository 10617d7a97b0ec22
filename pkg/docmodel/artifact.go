package docmodel

import "time"

// SummaryArtifact is the per-file doc (§3). The recorded ContentID MUST equal
// the hash of the source bytes that produced Body.
type SummaryArtifact struct {
	SourceRelPath string
	GeneratedAt   time.Time
	ContentID     string
	Purpose       string
	CriticalTODOs []string
	RelatedFiles  []string
	Body          string
}

// AggregateArtifact is the per-directory doc (§3), synthesized from child
// summary and aggregate artifacts.
type AggregateArtifact struct {
	DirRelPath string
	Body       string
}

// RootArtifact is a single project-wide doc targeted at one AI-assistant
// family (§3). The generator owns these files exclusively.
type RootArtifact struct {
	Target string
	Body   string
}

// PromptPair is the system/user prompt sent to the AI for one task.
type PromptPair struct {
	System string
	User   string
}
