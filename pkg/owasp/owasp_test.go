package owasp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityRank(t *testing.T) {
	assert.Equal(t, 4, SeverityRank("critical"))
	assert.Equal(t, 3, SeverityRank("HIGH"))
	assert.Equal(t, 2, SeverityRank("medium"))
	assert.Equal(t, 2, SeverityRank("moderate"))
	assert.Equal(t, 1, SeverityRank(" low "))
	assert.Equal(t, 0, SeverityRank("info"))
	assert.Equal(t, 0, SeverityRank("nonsense"))
}

func TestSeverityFromScore(t *testing.T) {
	tests := []struct {
		score    float64
		expected string
	}{
		{9.8, "CRITICAL"},
		{9.0, "CRITICAL"},
		{7.5, "HIGH"},
		{4.0, "MEDIUM"},
		{0.1, "LOW"},
		{0, "UNKNOWN"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SeverityFromScore(tt.score), "score %v", tt.score)
	}
}

func TestFormatCategory(t *testing.T) {
	assert.Equal(t, "LLM07 - Insecure Plugin Design", FormatCategory("LLM07", LLMCategoryTitles))
	assert.Equal(t, "AA06 - Supply Chain & Dependency Risk", FormatCategory("AA06", AgenticCategoryTitles))
	assert.Equal(t, "LLM99 - Unknown", FormatCategory("LLM99", LLMCategoryTitles))
}

func TestCategoryTablesAreComplete(t *testing.T) {
	assert.Len(t, LLMCategoryTitles, 10)
	assert.Len(t, AgenticCategoryTitles, 10)
}
