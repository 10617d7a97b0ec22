package docmodel

// SummaryPath returns the canonical sibling summary-artifact path for a
// source's project-relative path (§6: e.g. "foo.kt" -> "foo.kt.sum").
func SummaryPath(sourceRelPath string) string {
	return sourceRelPath + ".sum"
}

// AnnexExt is the extension of a summary artifact's companion file (§4.5:
// "a companion artifact (any sibling of the same name with an 'annex'
// extension) is deleted alongside" an orphaned summary).
const AnnexExt = ".annex"

// AnnexPath returns the companion-artifact path for a summary artifact.
func AnnexPath(summaryPath string) string {
	return summaryPath + AnnexExt
}

// AggregateFileName is the fixed filename every directory's aggregate
// artifact is written under (§6).
const AggregateFileName = "AGGREGATE.md"
