// Package report assembles and renders radar reports.
package report

import (
	"github.com/agentic-radar/agentic-radar/pkg/types"
)

// Builder assembles RadarReport artifacts from run output.
type Builder struct {
	includeSnapshot bool
}

// NewBuilder creates a report builder that embeds the parsed-project
// snapshot in reports.
func NewBuilder() *Builder {
	return &Builder{includeSnapshot: true}
}

// WithSnapshot controls whether the parsed project is embedded in the
// report.
func (b *Builder) WithSnapshot(include bool) *Builder {
	b.includeSnapshot = include
	return b
}

// Input carries everything a report is built from.
type Input struct {
	Project         *types.ParsedProject
	Findings        []types.RadarFinding
	Mode            string
	TraceIDs        []string
	ScenarioResults []types.ScenarioResult
	Metadata        map[string]any
}

// Build normalizes the findings and assembles the report with its
// severity summary and inventory counts.
func (b *Builder) Build(input Input) *types.RadarReport {
	findings := make([]types.RadarFinding, len(input.Findings))
	for i, finding := range input.Findings {
		findings[i] = finding.Normalized()
	}

	traceIDs := input.TraceIDs
	if traceIDs == nil {
		traceIDs = []string{}
	}
	metadata := make(map[string]any, len(input.Metadata))
	for key, value := range input.Metadata {
		metadata[key] = value
	}

	report := &types.RadarReport{
		ProjectName: input.Project.ProjectName,
		Mode:        input.Mode,
		GeneratedAt: types.NowUTC(),
		Summary: types.Summary{
			Findings: types.SeverityTotals(findings),
			Inventory: types.Inventory{
				Agents:       len(input.Project.Agents),
				Tools:        len(input.Project.Tools),
				MCPServers:   len(input.Project.MCPServers),
				Dependencies: len(input.Project.Dependencies),
			},
			Mode: input.Mode,
		},
		Findings:        findings,
		TraceIDs:        traceIDs,
		ScenarioResults: input.ScenarioResults,
		Metadata:        metadata,
	}
	if b.includeSnapshot {
		report.ParsedProject = input.Project
	}
	return report
}
