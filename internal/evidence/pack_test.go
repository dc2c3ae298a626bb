package evidence

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-radar/agentic-radar/internal/objectstore"
	"github.com/agentic-radar/agentic-radar/pkg/errors"
)

func writeFindings(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(`{"findings": []}`), 0o644))
	return path
}

func entryNames(t *testing.T, packPath string) []string {
	t.Helper()
	reader, err := zip.OpenReader(packPath)
	require.NoError(t, err)
	defer reader.Close()
	var names []string
	for _, file := range reader.File {
		names = append(names, file.Name)
	}
	return names
}

func readEntry(t *testing.T, packPath, name string) []byte {
	t.Helper()
	reader, err := zip.OpenReader(packPath)
	require.NoError(t, err)
	defer reader.Close()
	for _, file := range reader.File {
		if file.Name == name {
			rc, err := file.Open()
			require.NoError(t, err)
			defer rc.Close()
			data, err := io.ReadAll(rc)
			require.NoError(t, err)
			return data
		}
	}
	t.Fatalf("entry %s not found in %s", name, packPath)
	return nil
}

func TestBuildPack(t *testing.T) {
	dir := t.TempDir()
	findings := writeFindings(t, dir, "report.json")
	logsDir := filepath.Join(dir, "logs")
	require.NoError(t, os.MkdirAll(filepath.Join(logsDir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(logsDir, "run.log"), []byte("started\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(logsDir, "nested", "debug.log"), []byte("detail\n"), 0o644))

	result, err := NewPackBuilder(nil).Build([]string{findings}, logsDir, "", []string{"trace-1"})
	require.NoError(t, err)
	packPath := result.PackPath
	assert.Equal(t, filepath.Join(dir, "evidence-pack.zip"), packPath)
	assert.Empty(t, result.StoredPath)

	names := entryNames(t, packPath)
	assert.Equal(t, []string{
		"findings/report.json",
		"logs/nested/debug.log",
		"logs/run.log",
		"metadata.json",
	}, names)

	var metadata Metadata
	require.NoError(t, json.Unmarshal(readEntry(t, packPath, "metadata.json"), &metadata))
	assert.Equal(t, "agentic-radar-evidence", metadata.ArtifactType)
	assert.Equal(t, []string{"findings/report.json"}, metadata.Findings)
	assert.Equal(t, []string{"logs/nested/debug.log", "logs/run.log"}, metadata.Logs)
	assert.Equal(t, []string{"trace-1"}, metadata.TraceIDs)
	assert.NotEmpty(t, metadata.CreatedAt)
}

func TestBuildPackDeterministicEntryOrder(t *testing.T) {
	dir := t.TempDir()
	first := writeFindings(t, dir, "scan.json")
	second := writeFindings(t, dir, "test.json")

	packA, err := NewPackBuilder(nil).Build([]string{first, second}, "", filepath.Join(dir, "a.zip"), nil)
	require.NoError(t, err)
	packB, err := NewPackBuilder(nil).Build([]string{first, second}, "", filepath.Join(dir, "b.zip"), nil)
	require.NoError(t, err)

	assert.Equal(t, entryNames(t, packA.PackPath), entryNames(t, packB.PackPath))
	assert.Equal(t, []string{"findings/scan.json", "findings/test.json", "metadata.json"}, entryNames(t, packA.PackPath))
}

func TestBuildPackSingleLogFile(t *testing.T) {
	dir := t.TempDir()
	findings := writeFindings(t, dir, "report.json")
	logFile := filepath.Join(dir, "radar.log")
	require.NoError(t, os.WriteFile(logFile, []byte("started\n"), 0o644))

	result, err := NewPackBuilder(nil).Build([]string{findings}, logFile, "", nil)
	require.NoError(t, err)

	assert.Contains(t, entryNames(t, result.PackPath), "logs/radar.log")
}

func TestBuildPackRequiresFindings(t *testing.T) {
	_, err := NewPackBuilder(nil).Build(nil, "", "", nil)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEvidence))
}

func TestBuildPackMissingFindingsFile(t *testing.T) {
	_, err := NewPackBuilder(nil).Build([]string{filepath.Join(t.TempDir(), "absent.json")}, "", "", nil)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEvidence))
}

func TestBuildPackRejectsBadLogsDir(t *testing.T) {
	dir := t.TempDir()
	findings := writeFindings(t, dir, "report.json")

	_, err := NewPackBuilder(nil).Build([]string{findings}, filepath.Join(dir, "missing-logs"), "", nil)

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEvidence))
}

func TestBuildPackStoresInObjectStore(t *testing.T) {
	dir := t.TempDir()
	findings := writeFindings(t, dir, "report.json")
	store, err := objectstore.NewLocalStore(filepath.Join(dir, "store"))
	require.NoError(t, err)

	result, err := NewPackBuilder(store).Build([]string{findings}, "", "", nil)
	require.NoError(t, err)

	require.NotEmpty(t, result.StoredPath)
	assert.Equal(t, filepath.Join(store.Root(), filepath.Base(result.PackPath)), result.StoredPath)
	_, statErr := os.Stat(result.StoredPath)
	assert.NoError(t, statErr)
}

func TestBuildPackLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	findings := writeFindings(t, dir, "report.json")

	_, err := NewPackBuilder(nil).Build([]string{findings}, "", filepath.Join(dir, "out", "pack.zip"), nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pack.zip", entries[0].Name())
}
