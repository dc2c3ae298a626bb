package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-radar/agentic-radar/pkg/errors"
)

func TestParseLabels(t *testing.T) {
	labels, err := parseLabels([]string{"team=assistants", "env=prod", "team=platform"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"team": "platform", "env": "prod"}, labels)
}

func TestParseLabelsAllowsEmptyValue(t *testing.T) {
	labels, err := parseLabels([]string{"flag="})
	require.NoError(t, err)

	assert.Equal(t, "", labels["flag"])
}

func TestParseLabelsRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"noequals", "=value"} {
		_, err := parseLabels([]string{raw})
		require.Error(t, err, "label %q", raw)
		assert.True(t, errors.IsType(err, errors.ErrorTypeUsage))
	}
}

func TestScanCommandWritesReport(t *testing.T) {
	dir := t.TempDir()
	manifest := `{"project": "demo", "tools": [{"name": "search"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agentic_radar.json"), []byte(manifest), 0o644))
	output := filepath.Join(t.TempDir(), "report.json")

	root := newRootCommand()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetArgs([]string{"scan", dir, "-o", output, "--label", "team=assistants"})

	require.NoError(t, root.Execute())

	_, err := os.Stat(output)
	assert.NoError(t, err)
	assert.Contains(t, stdout.String(), "project: demo")
	assert.Contains(t, stdout.String(), "findings: 1")
}

func TestTestCommandRunsScenarios(t *testing.T) {
	dir := t.TempDir()
	manifest := `{"project": "demo", "metadata": {"test_expectations": {"prompt-injection": "fail"}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agentic_radar.json"), []byte(manifest), 0o644))
	output := filepath.Join(t.TempDir(), "report.json")

	root := newRootCommand()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetArgs([]string{"test", dir, "-o", output})

	require.NoError(t, root.Execute())

	assert.Contains(t, stdout.String(), "scenario prompt-injection: failed")
}

func TestEvidencePackCommand(t *testing.T) {
	dir := t.TempDir()
	findings := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(findings, []byte(`{"findings": []}`), 0o644))
	output := filepath.Join(dir, "pack.zip")

	root := newRootCommand()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetArgs([]string{"evidence", "pack", "--findings", findings, "-o", output})

	require.NoError(t, root.Execute())

	_, err := os.Stat(output)
	assert.NoError(t, err)
}

func TestEvidencePackRequiresFindings(t *testing.T) {
	root := newRootCommand()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"evidence", "pack"})

	err := root.Execute()

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUsage))
}

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())

	assert.Contains(t, stdout.String(), "agentic-radar")
}
