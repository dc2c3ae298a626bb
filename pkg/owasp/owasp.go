package owasp

import "strings"

// LLMCategoryTitles maps OWASP LLM Top-10 codes to their human titles.
var LLMCategoryTitles = map[string]string{
	"LLM01": "Prompt Injection",
	"LLM02": "Insecure Output Handling",
	"LLM03": "Training Data Poisoning",
	"LLM04": "Model Denial of Service",
	"LLM05": "Supply Chain Vulnerabilities",
	"LLM06": "Sensitive Information Disclosure",
	"LLM07": "Insecure Plugin Design",
	"LLM08": "Excessive Agency",
	"LLM09": "Overreliance",
	"LLM10": "Model Theft",
}

// AgenticCategoryTitles maps OWASP Agentic-AI codes to their human titles.
var AgenticCategoryTitles = map[string]string{
	"AA01": "Prompt & Input Integrity",
	"AA02": "Tool Misuse & Escalation",
	"AA03": "External Service Abuse",
	"AA04": "Sensitive Data Exposure",
	"AA05": "Model or Data Exfiltration",
	"AA06": "Supply Chain & Dependency Risk",
	"AA07": "Secrets & Credential Handling",
	"AA08": "Observability & Audit Gaps",
	"AA09": "Safety & Policy Violations",
	"AA10": "Resilience & Availability",
}

// severityOrder ranks severities for comparisons. "moderate" is an alias
// of "medium"; anything unranked maps to 0.
var severityOrder = map[string]int{
	"critical": 4,
	"high":     3,
	"medium":   2,
	"moderate": 2,
	"low":      1,
	"info":     0,
	"unknown":  0,
}

// SeverityRank returns the comparison rank for a severity string.
func SeverityRank(severity string) int {
	return severityOrder[strings.ToLower(strings.TrimSpace(severity))]
}

// SeverityFromScore converts a CVSS numeric score to a severity label.
func SeverityFromScore(score float64) string {
	switch {
	case score >= 9.0:
		return "CRITICAL"
	case score >= 7.0:
		return "HIGH"
	case score >= 4.0:
		return "MEDIUM"
	case score > 0:
		return "LOW"
	default:
		return "UNKNOWN"
	}
}

// FormatCategory renders a code with its human title, e.g.
// "LLM07 - Insecure Plugin Design".
func FormatCategory(code string, titles map[string]string) string {
	title, ok := titles[code]
	if !ok {
		title = "Unknown"
	}
	return code + " - " + title
}

// LLMTitle returns the human title for an LLM code.
func LLMTitle(code string) string {
	return LLMCategoryTitles[code]
}

// AgenticTitle returns the human title for an Agentic code.
func AgenticTitle(code string) string {
	return AgenticCategoryTitles[code]
}
