package detectors

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agentic-radar/agentic-radar/internal/sourcescan"
	"github.com/agentic-radar/agentic-radar/pkg/types"
)

// SourceToolDetector lifts tool definitions discovered in the project's
// source code into informational findings.
type SourceToolDetector struct {
	scanner *sourcescan.ToolDetector
}

// NewSourceToolDetector creates the source-tool detector.
func NewSourceToolDetector() *SourceToolDetector {
	return &SourceToolDetector{scanner: sourcescan.NewToolDetector()}
}

// Name returns "source-tool".
func (d *SourceToolDetector) Name() string { return "source-tool" }

// Run scans the project root for tool definitions.
func (d *SourceToolDetector) Run(project *types.ParsedProject) ([]types.RadarFinding, error) {
	var findings []types.RadarFinding
	for _, tool := range d.scanner.ScanPaths([]string{project.Root}) {
		location := relativeLocation(project.Root, tool.Location)
		metadata := map[string]any{
			"definition_type": tool.DefinitionType,
			"location":        location,
		}
		for key, value := range tool.Metadata {
			metadata[key] = value
		}
		findings = append(findings, types.RadarFinding{
			Identifier:   fmt.Sprintf("TOOL-DEF::%s::%s", location, tool.Name),
			Title:        fmt.Sprintf("Tool '%s' is defined in source code", tool.Name),
			Severity:     types.SeverityInfo,
			Description:  "Tool definitions discovered in source should be reflected in the agent manifest so they are covered by inventory checks.",
			OwaspLLM:     []string{"LLM08"},
			OwaspAgentic: []string{"Agentic-Tooling"},
			Subject:      tool.Name,
			Detector:     d.Name(),
			Metadata:     metadata,
		})
	}
	return findings, nil
}

// SourceMCPDetector lifts MCP references discovered in source and
// configuration files into informational findings.
type SourceMCPDetector struct {
	scanner *sourcescan.MCPServerDetector
}

// NewSourceMCPDetector creates the source-mcp detector.
func NewSourceMCPDetector() *SourceMCPDetector {
	return &SourceMCPDetector{scanner: sourcescan.NewMCPServerDetector()}
}

// Name returns "source-mcp".
func (d *SourceMCPDetector) Name() string { return "source-mcp" }

// Run scans the project root for MCP server references.
func (d *SourceMCPDetector) Run(project *types.ParsedProject) ([]types.RadarFinding, error) {
	var findings []types.RadarFinding
	for _, server := range d.scanner.ScanPaths([]string{project.Root}) {
		location := relativeLocation(project.Root, server.Location)
		metadata := map[string]any{
			"endpoint": server.Endpoint,
			"location": location,
		}
		for key, value := range server.Metadata {
			metadata[key] = value
		}
		findings = append(findings, types.RadarFinding{
			Identifier:   fmt.Sprintf("MCP-ENDPOINT::%s::%s", location, server.Name),
			Title:        fmt.Sprintf("MCP reference '%s' found in project sources", server.Name),
			Severity:     types.SeverityInfo,
			Description:  "MCP endpoints referenced by source or configuration should be declared in the manifest and hardened.",
			OwaspLLM:     []string{"LLM08"},
			OwaspAgentic: []string{"Agentic-MCP-Hardening"},
			Subject:      server.Name,
			Detector:     d.Name(),
			Metadata:     metadata,
		})
	}
	return findings, nil
}

// relativeLocation trims the project root prefix from a scan location so
// identifiers stay stable across checkouts.
func relativeLocation(root, location string) string {
	path := location
	line := ""
	if idx := strings.LastIndex(location, ":"); idx > 1 {
		path, line = location[:idx], location[idx:]
	}
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel) + line
	}
	return location
}
