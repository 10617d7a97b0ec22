// Package artifact implements the serialized writers (§4.6): the summary
// writer (fixed header/body format), the aggregate writer (generator-marker
// check and user-content preservation), and the root writer (plain
// overwrite). Grounded on pkg/orchestra/workdir.go's scoped-file-handle
// write methods and pkg/orchestra/verdict.go/step.go's ToDocument/Parse
// round-trip idiom, reshaped to this package's header/body contract.
package artifact

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/are/pkg/docmodel"
)

// headerDelimiter brackets the key:value header block (§6). Its exact bytes
// are not a compatibility commitment the way the generator marker is — only
// the generator marker (see aggregate.go) carries that contract.
const headerDelimiter = "---"

// MarshalSummary renders a summary artifact into its canonical on-disk
// format: a delimited header block, one blank line, then the body.
func MarshalSummary(a *docmodel.SummaryArtifact) string {
	var b strings.Builder
	b.WriteString(headerDelimiter)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "generated_at: %s\n", a.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "content_id: %s\n", a.ContentID)
	if a.Purpose != "" {
		fmt.Fprintf(&b, "purpose: %s\n", a.Purpose)
	}
	if len(a.CriticalTODOs) > 0 {
		writeListField(&b, "critical_todos", a.CriticalTODOs)
	}
	if len(a.RelatedFiles) > 0 {
		writeListField(&b, "related_files", a.RelatedFiles)
	}
	b.WriteString(headerDelimiter)
	b.WriteByte('\n')
	b.WriteByte('\n')
	b.WriteString(a.Body)
	return b.String()
}

// writeListField renders a list field inline (e.g. "key: [a, b, c]") when it
// holds at most three short items, else as a multi-line "- item" block
// under "key:" (§6: "critical-todos (inline list ≤ 3 short items, else
// multi-line)").
func writeListField(b *strings.Builder, key string, items []string) {
	if len(items) <= 3 && allShort(items) {
		fmt.Fprintf(b, "%s: [%s]\n", key, strings.Join(items, ", "))
		return
	}
	fmt.Fprintf(b, "%s:\n", key)
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

func allShort(items []string) bool {
	for _, item := range items {
		if len(item) > 60 {
			return false
		}
	}
	return true
}

// ParseSummaryHeader extracts the header fields from a previously-written
// summary artifact's bytes, without needing the body. Used by the update
// planner to recover a prior run's content identifier when its own state
// file is unavailable (e.g. deleted, or a genuinely first-run bootstrap).
func ParseSummaryHeader(raw []byte) (*docmodel.SummaryArtifact, error) {
	content := string(raw)
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != headerDelimiter {
		return nil, fmt.Errorf("missing header delimiter")
	}

	a := &docmodel.SummaryArtifact{}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == headerDelimiter {
			end = i
			break
		}
		parseHeaderLine(a, lines, &i)
	}
	if end == -1 {
		return nil, fmt.Errorf("unterminated header")
	}
	if a.ContentID == "" {
		return nil, fmt.Errorf("header missing content_id")
	}

	bodyStart := end + 1
	if bodyStart < len(lines) && strings.TrimSpace(lines[bodyStart]) == "" {
		bodyStart++
	}
	a.Body = strings.Join(lines[bodyStart:], "\n")
	return a, nil
}

// parseHeaderLine parses one header line in place, advancing *i past any
// multi-line list block it consumes.
func parseHeaderLine(a *docmodel.SummaryArtifact, lines []string, i *int) {
	line := lines[*i]
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	switch key {
	case "generated_at":
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			a.GeneratedAt = t
		}
	case "content_id":
		a.ContentID = value
	case "purpose":
		a.Purpose = value
	case "critical_todos":
		a.CriticalTODOs = parseListField(lines, i, value)
	case "related_files":
		a.RelatedFiles = parseListField(lines, i, value)
	}
}

// parseListField reads either an inline "[a, b, c]" value or a following
// "  - item" block, advancing *i past any consumed block lines.
func parseListField(lines []string, i *int, inlineValue string) []string {
	if strings.HasPrefix(inlineValue, "[") && strings.HasSuffix(inlineValue, "]") {
		inner := strings.TrimSuffix(strings.TrimPrefix(inlineValue, "["), "]")
		if strings.TrimSpace(inner) == "" {
			return nil
		}
		parts := strings.Split(inner, ",")
		items := make([]string, 0, len(parts))
		for _, p := range parts {
			items = append(items, strings.TrimSpace(p))
		}
		return items
	}

	var items []string
	for *i+1 < len(lines) {
		next := lines[*i+1]
		trimmed := strings.TrimSpace(next)
		if !strings.HasPrefix(trimmed, "- ") {
			break
		}
		items = append(items, strings.TrimPrefix(trimmed, "- "))
		*i++
	}
	return items
}
