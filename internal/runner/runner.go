// Package runner orchestrates radar scan and test runs end to end.
package runner

import (
	"context"

	"github.com/agentic-radar/agentic-radar/internal/detectors"
	"github.com/agentic-radar/agentic-radar/internal/objectstore"
	"github.com/agentic-radar/agentic-radar/internal/parser"
	"github.com/agentic-radar/agentic-radar/internal/report"
	"github.com/agentic-radar/agentic-radar/internal/scenario"
	"github.com/agentic-radar/agentic-radar/pkg/logging"
	"github.com/agentic-radar/agentic-radar/pkg/types"
)

// ScanConfig configures a scan run.
type ScanConfig struct {
	ProjectPath     string
	OutputPath      string
	HTMLPath        string
	PDFPath         string
	ObjectStorePath string
	TraceIDs        []string
	Labels          map[string]string
	IncludeSnapshot bool
	Detectors       []detectors.Detector
	Parallel        bool
}

// TestConfig configures a test run.
type TestConfig struct {
	ScanConfig
	Scenarios []string
}

// RunResult is the outcome of a completed run.
type RunResult struct {
	Report     *types.RadarReport
	ReportPath string
	StoredPath string
}

// Runner wires the parser, detector registry, scenario runner, report
// builder and object store together.
type Runner struct {
	logger *logging.Logger
}

// New creates a Runner.
func New(logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{logger: logger}
}

// RunScan parses the project, runs the detector pipeline and writes the
// report artifact.
func (r *Runner) RunScan(ctx context.Context, config ScanConfig) (*RunResult, error) {
	project, err := parser.New().Parse(config.ProjectPath)
	if err != nil {
		return nil, err
	}

	registry := detectors.NewRegistry(config.Detectors, r.logger).WithParallel(config.Parallel)
	findings, err := registry.Run(ctx, project)
	if err != nil {
		return nil, err
	}
	findings = dedupe(findings)

	metadata := runMetadata(config.Labels)
	setDefault(metadata, "mode", types.ModeScan)
	setDefault(metadata, "detectors", registry.Names())
	setDefault(metadata, "trace_id_count", len(config.TraceIDs))

	radarReport := report.NewBuilder().WithSnapshot(config.IncludeSnapshot).Build(report.Input{
		Project:  project,
		Findings: findings,
		Mode:     types.ModeScan,
		TraceIDs: config.TraceIDs,
		Metadata: metadata,
	})
	return r.finish(ctx, radarReport, config)
}

// RunTest runs the scan pipeline plus the adversarial scenario suite.
func (r *Runner) RunTest(ctx context.Context, config TestConfig) (*RunResult, error) {
	project, err := parser.New().Parse(config.ProjectPath)
	if err != nil {
		return nil, err
	}

	registry := detectors.NewRegistry(config.Detectors, r.logger).WithParallel(config.Parallel)
	findings, err := registry.Run(ctx, project)
	if err != nil {
		return nil, err
	}

	scenarioRunner := scenario.NewRunner(config.Scenarios)
	scenarioFindings, scenarioResults := scenarioRunner.Run(project, nil)
	findings = dedupe(append(findings, scenarioFindings...))

	failures := []string{}
	for _, result := range scenarioResults {
		if result.Status == types.ScenarioFailed {
			failures = append(failures, result.Name)
		}
	}

	metadata := runMetadata(config.Labels)
	setDefault(metadata, "mode", types.ModeTest)
	setDefault(metadata, "detectors", append(registry.Names(), "scenario-runner"))
	setDefault(metadata, "trace_id_count", len(config.TraceIDs))
	setDefault(metadata, "scenarios", scenarioRunner.Scenarios())
	setDefault(metadata, "scenario_failures", failures)

	radarReport := report.NewBuilder().WithSnapshot(config.IncludeSnapshot).Build(report.Input{
		Project:         project,
		Findings:        findings,
		Mode:            types.ModeTest,
		TraceIDs:        config.TraceIDs,
		ScenarioResults: scenarioResults,
		Metadata:        metadata,
	})
	return r.finish(ctx, radarReport, config.ScanConfig)
}

// finish writes the report artifacts. Cancellation is honored before any
// artifact write so an interrupted run leaves nothing behind.
func (r *Runner) finish(ctx context.Context, radarReport *types.RadarReport, config ScanConfig) (*RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &RunResult{Report: radarReport, ReportPath: config.OutputPath}
	if err := radarReport.WriteJSON(config.OutputPath); err != nil {
		return nil, err
	}
	if config.HTMLPath != "" {
		if err := report.WriteHTML(radarReport, config.HTMLPath); err != nil {
			return nil, err
		}
	}
	if config.PDFPath != "" {
		if err := report.WritePDF(radarReport, config.PDFPath); err != nil {
			return nil, err
		}
	}
	if config.ObjectStorePath != "" {
		store, err := objectstore.NewLocalStore(config.ObjectStorePath)
		if err != nil {
			return nil, err
		}
		stored, err := store.PutFile(config.OutputPath, "")
		if err != nil {
			return nil, err
		}
		result.StoredPath = stored
	}
	return result, nil
}

// dedupe collapses duplicate finding identifiers; the last occurrence
// wins, with metadata merged across duplicates.
func dedupe(findings []types.RadarFinding) []types.RadarFinding {
	index := make(map[string]int, len(findings))
	var out []types.RadarFinding
	for _, finding := range findings {
		slot, seen := index[finding.Identifier]
		if !seen {
			index[finding.Identifier] = len(out)
			out = append(out, finding)
			continue
		}
		merged := map[string]any{}
		for key, value := range out[slot].Metadata {
			merged[key] = value
		}
		for key, value := range finding.Metadata {
			merged[key] = value
		}
		finding.Metadata = merged
		out[slot] = finding
	}
	return out
}

func runMetadata(labels map[string]string) map[string]any {
	metadata := map[string]any{}
	for key, value := range labels {
		metadata[key] = value
	}
	return metadata
}

func setDefault(metadata map[string]any, key string, value any) {
	if _, ok := metadata[key]; !ok {
		metadata[key] = value
	}
}
