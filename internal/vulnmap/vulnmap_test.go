package vulnmap

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const osvPayload = `{
  "results": [
    {
      "source": {"path": "requirements.txt"},
      "packages": [
        {
          "package": {"name": "requests", "ecosystem": "PyPI"},
          "versions": ["2.25.0"],
          "vulnerabilities": [
            {
              "id": "GHSA-j8r2-6x86-q33q",
              "aliases": ["CVE-2023-32681"],
              "summary": "Information disclosure of proxy headers",
              "severity": [{"type": "CVSS_V3", "score": "6.1/AV:N"}],
              "references": [{"type": "WEB", "url": "https://example.com/advisory"}],
              "affected": [
                {"ranges": [{"events": [{"introduced": "0"}, {"fixed": "2.31.0"}]}]}
              ]
            }
          ]
        }
      ]
    }
  ]
}`

const pipAuditPayload = `{
  "dependencies": [
    {
      "name": "Requests",
      "version": "2.25.0",
      "vulns": [
        {
          "id": "GHSA-J8R2-6X86-Q33Q",
          "description": "Leak of Proxy-Authorization header",
          "severity": "medium",
          "fix_versions": ["2.31.0"]
        }
      ]
    }
  ]
}`

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestFromOSV(t *testing.T) {
	findings := NewMapper().FromOSV(decode(t, osvPayload))
	require.Len(t, findings, 1)

	finding := findings[0]
	assert.Equal(t, "requests", finding.Package)
	assert.Equal(t, "2.25.0", finding.Version)
	assert.Equal(t, "PyPI", finding.Ecosystem)
	assert.Equal(t, "GHSA-j8r2-6x86-q33q", finding.VulnerabilityID)
	assert.Equal(t, "MEDIUM", finding.Severity)
	assert.Equal(t, []string{"2.31.0"}, finding.FixVersions)
	assert.Equal(t, []string{"https://example.com/advisory"}, finding.References)
	assert.Equal(t, "requirements.txt", finding.Location)
	assert.Equal(t, "osv", finding.Source)
	assert.Equal(t, []string{"LLM06"}, finding.LLMCodes)
	assert.Equal(t, []string{"AA04"}, finding.AgenticCodes)
	assert.Contains(t, finding.LLMCategories, "LLM06 - Sensitive Information Disclosure")
}

func TestFromPipAudit(t *testing.T) {
	findings := NewMapper().FromPipAudit(decode(t, pipAuditPayload))
	require.Len(t, findings, 1)

	finding := findings[0]
	assert.Equal(t, "Requests", finding.Package)
	assert.Equal(t, "PyPI", finding.Ecosystem)
	assert.Equal(t, "MEDIUM", finding.Severity)
	assert.Equal(t, "pip-audit", finding.Source)
}

func TestMergeAcrossSources(t *testing.T) {
	mapper := NewMapper()
	osv := mapper.FromOSV(decode(t, osvPayload))
	pip := mapper.FromPipAudit(decode(t, pipAuditPayload))

	merged := mapper.Merge(osv, pip)
	require.Len(t, merged, 1)

	finding := merged[0]
	assert.Equal(t, "requests", finding.Package)
	assert.Contains(t, finding.Aliases, "CVE-2023-32681")
	assert.Equal(t, []string{"2.31.0"}, finding.FixVersions)
	assert.Equal(t, "MEDIUM", finding.Severity)
	assert.Equal(t, "Information disclosure of proxy headers", finding.Summary)
}

func TestMergePreservesInsertionOrder(t *testing.T) {
	mapper := NewMapper()
	first := Finding{Package: "alpha", VulnerabilityID: "A-1"}
	second := Finding{Package: "beta", VulnerabilityID: "B-1"}
	third := Finding{Package: "alpha", VulnerabilityID: "A-1", Severity: "HIGH"}

	merged := mapper.Merge([]Finding{first, second}, []Finding{third})

	require.Len(t, merged, 2)
	assert.Equal(t, "alpha", merged[0].Package)
	assert.Equal(t, "HIGH", merged[0].Severity)
	assert.Equal(t, "beta", merged[1].Package)
}

func TestDefaultRuleTable(t *testing.T) {
	mapper := NewMapper()

	tests := []struct {
		summary         string
		expectedLLM     string
		expectedAgentic string
	}{
		{"prompt injection in template rendering", "LLM01", "AA01"},
		{"remote code execution via pickle", "LLM07", "AA02"},
		{"information disclosure in logs", "LLM06", "AA04"},
		{"denial of service through regex", "LLM04", "AA10"},
		{"ssrf in webhook handler", "LLM07", "AA03"},
		{"supply chain compromise of build", "LLM05", "AA06"},
		{"credential leak in debug output", "LLM07", "AA07"},
	}

	for _, tt := range tests {
		finding := mapper.Apply(Finding{Package: "pkg", VulnerabilityID: "X-1", Summary: tt.summary})
		assert.Contains(t, finding.LLMCodes, tt.expectedLLM, "summary %q", tt.summary)
		assert.Contains(t, finding.AgenticCodes, tt.expectedAgentic, "summary %q", tt.summary)
	}
}

func TestApplyFallsBackToDefaults(t *testing.T) {
	finding := NewMapper().Apply(Finding{Package: "pkg", VulnerabilityID: "X-1", Summary: "nothing matches here"})

	assert.Equal(t, []string{"LLM05"}, finding.LLMCodes)
	assert.Equal(t, []string{"AA06"}, finding.AgenticCodes)
}

func TestRuleSeverityConstraint(t *testing.T) {
	rules := []MappingRule{{
		LLMCodes:        []string{"LLM04"},
		AgenticCodes:    []string{"AA10"},
		Keywords:        []string{"denial of service"},
		SeverityAtLeast: "high",
	}}
	mapper := NewMapper().WithRules(rules)

	low := mapper.Apply(Finding{VulnerabilityID: "X-1", Summary: "denial of service", Severity: "LOW"})
	high := mapper.Apply(Finding{VulnerabilityID: "X-2", Summary: "denial of service", Severity: "CRITICAL"})

	assert.Equal(t, []string{"LLM05"}, low.LLMCodes)
	assert.Equal(t, []string{"LLM04"}, high.LLMCodes)
}

func TestSortVersions(t *testing.T) {
	assert.Equal(t, []string{"1.2.0", "1.10.0", "2.0.0"}, sortVersions([]string{"1.10.0", "2.0.0", "1.2.0"}))
	assert.Equal(t, []string{"abc", "v?"}, sortVersions([]string{"v?", "abc"}))
}
