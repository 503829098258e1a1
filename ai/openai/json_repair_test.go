package openai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairJSON_MissingOpeningQuote(t *testing.T) {
	broken := `{summary": "a note", "keywords": [], entities": []}`
	repaired := repairJSON(broken)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(repaired), &out))
	assert.Equal(t, "a note", out["summary"])
}

func TestRepairJSON_ValidInputUnchanged(t *testing.T) {
	valid := `{"summary": "ok", "keywords": ["a", "b"], "entities": []}`
	assert.Equal(t, valid, repairJSON(valid))
}

func TestNormalizeKeywords(t *testing.T) {
	got := normalizeKeywords([]string{" Index Compaction ", "latency", "", "latency", "q3"}, 2)
	assert.Equal(t, []string{"index compaction", "latency"}, got)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
	assert.Equal(t, "hi", truncateRunes("hi", 10))
}
