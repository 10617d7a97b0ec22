package mcpserve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/are/internal/engine"
	"github.com/ternarybob/are/pkg/docmodel"
)

func TestFormatResult_SummarizesRunCounts(t *testing.T) {
	result := &engine.Result{
		Summary: &docmodel.RunSummary{
			FilesProcessed: 4,
			FilesFailed:    1,
			FilesSkipped:   2,
			TotalAICalls:   7,
			ExitClass:      1,
		},
	}

	text := formatResult(result)
	assert.Contains(t, text, "processed 4 file(s)")
	assert.Contains(t, text, "1 failed")
	assert.Contains(t, text, "2 skipped")
	assert.Contains(t, text, "7 AI call(s)")
	assert.Contains(t, text, "exit class 1")
}
