package detectors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-radar/agentic-radar/pkg/types"
)

func sourceProject(t *testing.T) *types.ParsedProject {
	t.Helper()
	dir := t.TempDir()
	source := `@tool
def search(query: str) -> str:
    """Search the web."""
    return query

client = MCPClient(endpoint="mcp://files.internal")
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agent.py"), []byte(source), 0o644))
	return &types.ParsedProject{Root: dir, ProjectName: "demo", Metadata: map[string]any{}}
}

func TestSourceToolDetector(t *testing.T) {
	findings, err := NewSourceToolDetector().Run(sourceProject(t))
	require.NoError(t, err)
	require.Len(t, findings, 1)

	finding := findings[0]
	assert.Equal(t, "TOOL-DEF::agent.py:1::search", finding.Identifier)
	assert.Equal(t, types.SeverityInfo, finding.Severity)
	assert.Equal(t, "search", finding.Subject)
	assert.Equal(t, "function", finding.Metadata["definition_type"])
}

func TestSourceMCPDetector(t *testing.T) {
	findings, err := NewSourceMCPDetector().Run(sourceProject(t))
	require.NoError(t, err)
	require.Len(t, findings, 1)

	finding := findings[0]
	assert.Equal(t, "MCP-ENDPOINT::agent.py:6::MCPClient", finding.Identifier)
	assert.Equal(t, "mcp://files.internal", finding.Metadata["endpoint"])
}

func TestRelativeLocationOutsideRoot(t *testing.T) {
	assert.Equal(t, "/elsewhere/agent.py:3", relativeLocation("/root/project", "/elsewhere/agent.py:3"))
}
