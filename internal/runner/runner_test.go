package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-radar/agentic-radar/pkg/errors"
	"github.com/agentic-radar/agentic-radar/pkg/types"
)

const fixtureManifest = `{
  "project": "travel-assistant",
  "agents": [{"name": "planner", "tools": ["search"]}],
  "tools": [
    {"name": "search"},
    {"name": "booking", "version": "2.0.0", "source": "https://tools.example.com/booking"}
  ],
  "mcp_servers": [
    {"name": "files", "endpoint": "mcp://files.internal", "capabilities": ["read"], "auth_mode": "none"}
  ],
  "dependencies": [
    {"name": "requests", "vulnerabilities": [{"id": "CVE-2024-0001", "severity": "high", "fix_version": "2.31.0"}]}
  ],
  "metadata": {
    "test_expectations": {"prompt-injection": "fail", "pii-leakage": "warn"}
  }
}`

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agentic_radar.json"), []byte(fixtureManifest), 0o644))
	return dir
}

func scanConfig(t *testing.T, dir string) ScanConfig {
	t.Helper()
	return ScanConfig{
		ProjectPath:     dir,
		OutputPath:      filepath.Join(t.TempDir(), "report.json"),
		IncludeSnapshot: true,
	}
}

func TestRunScan(t *testing.T) {
	dir := fixtureDir(t)
	config := scanConfig(t, dir)
	config.TraceIDs = []string{"trace-1"}
	config.Labels = map[string]string{"team": "assistants"}

	result, err := New(nil).RunScan(context.Background(), config)
	require.NoError(t, err)

	report := result.Report
	assert.Equal(t, "travel-assistant", report.ProjectName)
	assert.Equal(t, types.ModeScan, report.Mode)

	identifiers := make([]string, 0, len(report.Findings))
	for _, finding := range report.Findings {
		identifiers = append(identifiers, finding.Identifier)
	}
	assert.Equal(t, []string{
		"TOOL-NOVERSION::search",
		"TOOL-EXTERNAL::booking",
		"MCP-NOAUTH::files",
		"DEP-VULN::requests::CVE-2024-0001",
	}, identifiers)

	assert.Equal(t, types.ModeScan, report.Metadata["mode"])
	assert.Equal(t, []string{"tool-inventory", "mcp-server", "dependency-vulnerability"}, report.Metadata["detectors"])
	assert.Equal(t, 1, report.Metadata["trace_id_count"])
	assert.Equal(t, "assistants", report.Metadata["team"])

	data, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	decoded, err := types.ReportFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, report.Summary.Findings["total"], decoded.Summary.Findings["total"])
}

func TestRunScanIdempotent(t *testing.T) {
	dir := fixtureDir(t)

	first, err := New(nil).RunScan(context.Background(), scanConfig(t, dir))
	require.NoError(t, err)
	second, err := New(nil).RunScan(context.Background(), scanConfig(t, dir))
	require.NoError(t, err)

	a, b := first.Report, second.Report
	a.GeneratedAt, b.GeneratedAt = "", ""
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("scan is not idempotent (-first +second):\n%s", diff)
	}
}

func TestRunScanWithoutSnapshot(t *testing.T) {
	dir := fixtureDir(t)
	config := scanConfig(t, dir)
	config.IncludeSnapshot = false

	result, err := New(nil).RunScan(context.Background(), config)
	require.NoError(t, err)

	assert.Nil(t, result.Report.ParsedProject)
}

func TestRunScanStoresReport(t *testing.T) {
	dir := fixtureDir(t)
	config := scanConfig(t, dir)
	config.ObjectStorePath = filepath.Join(t.TempDir(), "store")

	result, err := New(nil).RunScan(context.Background(), config)
	require.NoError(t, err)

	require.NotEmpty(t, result.StoredPath)
	_, statErr := os.Stat(result.StoredPath)
	assert.NoError(t, statErr)
}

func TestRunScanMissingProject(t *testing.T) {
	config := scanConfig(t, filepath.Join(t.TempDir(), "missing"))

	_, err := New(nil).RunScan(context.Background(), config)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeParser))
}

func TestRunScanHonorsCancellation(t *testing.T) {
	dir := fixtureDir(t)
	config := scanConfig(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil).RunScan(ctx, config)

	require.Error(t, err)
	_, statErr := os.Stat(config.OutputPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunTest(t *testing.T) {
	dir := fixtureDir(t)
	config := TestConfig{ScanConfig: scanConfig(t, dir)}

	result, err := New(nil).RunTest(context.Background(), config)
	require.NoError(t, err)

	report := result.Report
	assert.Equal(t, types.ModeTest, report.Mode)
	require.Len(t, report.ScenarioResults, 4)

	statuses := map[string]string{}
	for _, scenarioResult := range report.ScenarioResults {
		statuses[scenarioResult.Name] = scenarioResult.Status
	}
	assert.Equal(t, types.ScenarioFailed, statuses["prompt-injection"])
	assert.Equal(t, types.ScenarioWarning, statuses["pii-leakage"])
	assert.Equal(t, types.ScenarioPassed, statuses["harmful-content"])

	identifiers := map[string]bool{}
	for _, finding := range report.Findings {
		identifiers[finding.Identifier] = true
	}
	assert.True(t, identifiers["SCENARIO-FAIL::prompt-injection"])
	assert.True(t, identifiers["SCENARIO-WARN::pii-leakage"])

	assert.Equal(t, types.ModeTest, report.Metadata["mode"])
	assert.Equal(t, []string{"prompt-injection"}, report.Metadata["scenario_failures"])
	detectors, ok := report.Metadata["detectors"].([]string)
	require.True(t, ok)
	assert.Contains(t, detectors, "scenario-runner")
}

func TestDedupeLastWriteWinsWithMetadataMerge(t *testing.T) {
	findings := []types.RadarFinding{
		{Identifier: "X::1", Title: "first", Metadata: map[string]any{"a": 1, "b": 1}},
		{Identifier: "Y::1", Title: "other"},
		{Identifier: "X::1", Title: "second", Metadata: map[string]any{"b": 2, "c": 3}},
	}

	out := dedupe(findings)

	require.Len(t, out, 2)
	assert.Equal(t, "X::1", out[0].Identifier)
	assert.Equal(t, "second", out[0].Title)
	assert.Equal(t, map[string]any{"a": 1, "b": 2, "c": 3}, out[0].Metadata)
	assert.Equal(t, "Y::1", out[1].Identifier)
}
