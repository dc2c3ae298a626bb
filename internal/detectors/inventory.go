package detectors

import (
	"fmt"
	"strings"

	"github.com/agentic-radar/agentic-radar/pkg/types"
)

// ToolInventoryDetector checks that tool metadata in the manifest is
// complete enough for a security review.
type ToolInventoryDetector struct{}

// NewToolInventoryDetector creates the tool-inventory detector.
func NewToolInventoryDetector() *ToolInventoryDetector {
	return &ToolInventoryDetector{}
}

// Name returns "tool-inventory".
func (d *ToolInventoryDetector) Name() string { return "tool-inventory" }

// Run flags tools without a pinned version and tools sourced from
// external endpoints.
func (d *ToolInventoryDetector) Run(project *types.ParsedProject) ([]types.RadarFinding, error) {
	var findings []types.RadarFinding
	for _, tool := range project.Tools {
		source := ""
		if tool.Source != nil {
			source = *tool.Source
		}
		if tool.Version == nil || *tool.Version == "" {
			findings = append(findings, types.RadarFinding{
				Identifier: fmt.Sprintf("TOOL-NOVERSION::%s", tool.Name),
				Title:      fmt.Sprintf("Tool '%s' is missing a pinned version", tool.Name),
				Severity:   types.SeverityMedium,
				Description: "Tools should be version pinned to ensure deterministic security reviews " +
					"and facilitate patch management.",
				OwaspLLM:     []string{"LLM02"},
				OwaspAgentic: []string{"Agentic-Tooling"},
				Subject:      tool.Name,
				Remediation:  "Add an explicit version for the tool in the agent manifest.",
				Detector:     d.Name(),
				Metadata:     map[string]any{"source": source},
			})
		}
		if strings.HasPrefix(source, "http") {
			findings = append(findings, types.RadarFinding{
				Identifier: fmt.Sprintf("TOOL-EXTERNAL::%s", tool.Name),
				Title:      fmt.Sprintf("Tool '%s' is sourced from an external endpoint", tool.Name),
				Severity:   types.SeverityLow,
				Description: "External tool sources should be evaluated for supply-chain exposure and " +
					"guarded with allow-lists or sandboxes.",
				OwaspLLM:     []string{"LLM06"},
				OwaspAgentic: []string{"Agentic-External-Tool"},
				Subject:      tool.Name,
				Remediation:  "Review the external tool source and enforce provenance controls.",
				Detector:     d.Name(),
				Metadata:     map[string]any{"source": source},
			})
		}
	}
	return findings, nil
}

// MCPDetector checks MCP server definitions for hardening gaps.
type MCPDetector struct{}

// NewMCPDetector creates the mcp-server detector.
func NewMCPDetector() *MCPDetector {
	return &MCPDetector{}
}

// Name returns "mcp-server".
func (d *MCPDetector) Name() string { return "mcp-server" }

// Run flags servers without declared capabilities and servers reachable
// without authentication. The auth_mode comparison is deliberately
// case-sensitive against {null, "anonymous", "none"}.
func (d *MCPDetector) Run(project *types.ParsedProject) ([]types.RadarFinding, error) {
	var findings []types.RadarFinding
	for _, server := range project.MCPServers {
		if len(server.Capabilities) == 0 {
			findings = append(findings, types.RadarFinding{
				Identifier: fmt.Sprintf("MCP-NOCAP::%s", server.Name),
				Title:      fmt.Sprintf("MCP server '%s' does not declare capabilities", server.Name),
				Severity:   types.SeverityMedium,
				Description: "Declare explicit MCP capabilities to apply least privilege controls and " +
					"map permissions to security policies.",
				OwaspLLM:     []string{"LLM08"},
				OwaspAgentic: []string{"Agentic-MCP-LeastPrivilege"},
				Subject:      server.Name,
				Remediation:  "Document the MCP server capabilities and enforce policy checks.",
				Detector:     d.Name(),
				Metadata:     map[string]any{"endpoint": server.Endpoint},
			})
		}
		if server.AuthMode == nil || *server.AuthMode == "anonymous" || *server.AuthMode == "none" {
			authMode := any(nil)
			if server.AuthMode != nil {
				authMode = *server.AuthMode
			}
			findings = append(findings, types.RadarFinding{
				Identifier: fmt.Sprintf("MCP-NOAUTH::%s", server.Name),
				Title:      fmt.Sprintf("MCP server '%s' has no authentication configured", server.Name),
				Severity:   types.SeverityHigh,
				Description: "Unprotected MCP servers expose powerful automation capabilities. Use " +
					"mutual authentication and scoped tokens.",
				OwaspLLM:     []string{"LLM04"},
				OwaspAgentic: []string{"Agentic-MCP-Hardening"},
				Subject:      server.Name,
				Remediation:  "Require authentication and audit access for the MCP server.",
				Detector:     d.Name(),
				Metadata:     map[string]any{"endpoint": server.Endpoint, "auth_mode": authMode},
			})
		}
	}
	return findings, nil
}

// dependencySeverityMap canonicalizes inline-manifest vulnerability
// severities; "moderate" folds into "medium".
var dependencySeverityMap = map[string]string{
	"critical": types.SeverityCritical,
	"high":     types.SeverityHigh,
	"medium":   types.SeverityMedium,
	"moderate": types.SeverityMedium,
	"low":      types.SeverityLow,
}

// VulnerabilityDetector emits one finding per vulnerability entry on each
// manifest dependency.
type VulnerabilityDetector struct{}

// NewVulnerabilityDetector creates the dependency-vulnerability detector.
func NewVulnerabilityDetector() *VulnerabilityDetector {
	return &VulnerabilityDetector{}
}

// Name returns "dependency-vulnerability".
func (d *VulnerabilityDetector) Name() string { return "dependency-vulnerability" }

// Run reports every advisory on every dependency, with severity
// canonicalized and the fix version surfaced as remediation.
func (d *VulnerabilityDetector) Run(project *types.ParsedProject) ([]types.RadarFinding, error) {
	var findings []types.RadarFinding
	for _, dependency := range project.Dependencies {
		for _, vulnerability := range dependency.Vulnerabilities {
			severity := strings.ToLower(vulnerability.Severity)
			normalized, ok := dependencySeverityMap[severity]
			if !ok {
				normalized = types.SeverityUnknown
			}
			identifier := vulnerability.Identifier()
			if identifier == "" {
				identifier = fmt.Sprintf("VULN::%s", dependency.Name)
			}
			description := vulnerability.Description
			if description == "" {
				description = "Dependency vulnerability reported by upstream advisory feeds."
			}
			findings = append(findings, types.RadarFinding{
				Identifier:   fmt.Sprintf("DEP-VULN::%s::%s", dependency.Name, identifier),
				Title:        fmt.Sprintf("Dependency '%s' has a known vulnerability", dependency.Name),
				Severity:     normalized,
				Description:  description,
				OwaspLLM:     []string{"LLM06"},
				OwaspAgentic: []string{"Agentic-SupplyChain"},
				Subject:      dependency.Name,
				Remediation:  vulnerability.FixVersion,
				Detector:     d.Name(),
				Metadata: map[string]any{
					"id":          identifier,
					"severity":    severity,
					"fix_version": vulnerability.FixVersion,
				},
			})
		}
	}
	return findings, nil
}
