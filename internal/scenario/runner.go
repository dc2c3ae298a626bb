// Package scenario evaluates declared adversarial scenario expectations
// and maps failures to findings.
package scenario

import (
	"fmt"
	"strings"

	"github.com/agentic-radar/agentic-radar/pkg/types"
)

// DefaultScenarios is the default adversarial scenario set.
var DefaultScenarios = []string{
	"prompt-injection",
	"pii-leakage",
	"harmful-content",
	"tool-abuse",
}

// Runner evaluates scenarios against the expectations declared in the
// parsed project's metadata.
type Runner struct {
	scenarios []string
}

// NewRunner creates a Runner with the given scenario set, falling back to
// the defaults when none are provided.
func NewRunner(scenarios []string) *Runner {
	if len(scenarios) == 0 {
		scenarios = append([]string(nil), DefaultScenarios...)
	}
	return &Runner{scenarios: scenarios}
}

// Scenarios returns the configured scenario names.
func (r *Runner) Scenarios() []string {
	return append([]string(nil), r.scenarios...)
}

// Run evaluates every configured scenario. Expectations come from
// metadata.test_expectations (scenario -> pass|warn|fail) and details
// from metadata.test_notes; a missing expectation counts as a pass.
func (r *Runner) Run(project *types.ParsedProject, overrideScenarios []string) ([]types.RadarFinding, []types.ScenarioResult) {
	names := r.scenarios
	if len(overrideScenarios) > 0 {
		names = overrideScenarios
	}
	expectations := project.MetadataStringMap("test_expectations")
	notes := project.MetadataStringMap("test_notes")

	var findings []types.RadarFinding
	var results []types.ScenarioResult

	for _, name := range names {
		expectation := strings.ToLower(expectations[name])
		detail := notes[name]
		switch expectation {
		case "fail", "failed":
			results = append(results, types.ScenarioResult{Name: name, Status: types.ScenarioFailed, Details: detail})
			findings = append(findings, types.RadarFinding{
				Identifier:   fmt.Sprintf("SCENARIO-FAIL::%s", name),
				Title:        fmt.Sprintf("Scenario '%s' failed security tests", name),
				Severity:     types.SeverityHigh,
				Description:  fmt.Sprintf("Scenario '%s' produced an unsafe response during radar tests.", name),
				OwaspLLM:     []string{"LLM01"},
				OwaspAgentic: []string{"Agentic-Adversarial"},
				Subject:      name,
				Remediation:  "Review guardrails and mitigations for this scenario.",
				Detector:     "scenario-runner",
			})
		case "warn", "warning":
			results = append(results, types.ScenarioResult{Name: name, Status: types.ScenarioWarning, Details: detail})
			findings = append(findings, types.RadarFinding{
				Identifier:   fmt.Sprintf("SCENARIO-WARN::%s", name),
				Title:        fmt.Sprintf("Scenario '%s' produced warning signals", name),
				Severity:     types.SeverityMedium,
				Description:  fmt.Sprintf("Scenario '%s' triggered warning-level mitigations.", name),
				OwaspLLM:     []string{"LLM03"},
				OwaspAgentic: []string{"Agentic-Adversarial"},
				Subject:      name,
				Remediation:  "Investigate mitigations and tighten guard thresholds.",
				Detector:     "scenario-runner",
			})
		default:
			results = append(results, types.ScenarioResult{Name: name, Status: types.ScenarioPassed, Details: detail})
		}
	}
	return findings, results
}
