package types

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Mode identifies the kind of radar run that produced a report.
const (
	ModeScan = "scan"
	ModeTest = "test"
)

// Canonical severity values. Everything else collapses to SeverityUnknown.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
	SeverityUnknown  = "unknown"
)

// CanonicalSeverities lists the severities in descending order, the order
// used for summary rendering.
var CanonicalSeverities = []string{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInfo,
	SeverityUnknown,
}

// NormalizeSeverity maps an arbitrary severity string to its canonical
// lowercase form. Unrecognized inputs collapse to "unknown".
func NormalizeSeverity(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return normalized
	}
	return SeverityUnknown
}

// NowUTC returns the current UTC time formatted as RFC-3339 with a
// trailing Z, the timestamp format used throughout report artifacts.
func NowUTC() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Tool is a named callable exposed to an agent.
type Tool struct {
	Name    string  `json:"name"`
	Version *string `json:"version"`
	Source  *string `json:"source"`
	Scope   *string `json:"scope"`
}

// MCPServer is a Model-Context-Protocol endpoint referenced by the project.
type MCPServer struct {
	Name         string   `json:"name"`
	Endpoint     string   `json:"endpoint"`
	Capabilities []string `json:"capabilities"`
	AuthMode     *string  `json:"auth_mode"`
}

// NewMCPServer builds an MCPServer, collapsing duplicate capabilities
// while preserving their first-seen order.
func NewMCPServer(name, endpoint string, capabilities []string, authMode *string) MCPServer {
	seen := make(map[string]struct{}, len(capabilities))
	deduped := make([]string, 0, len(capabilities))
	for _, capability := range capabilities {
		if _, ok := seen[capability]; ok {
			continue
		}
		seen[capability] = struct{}{}
		deduped = append(deduped, capability)
	}
	return MCPServer{Name: name, Endpoint: endpoint, Capabilities: deduped, AuthMode: authMode}
}

// Vulnerability is a single advisory attached to a dependency in the
// project manifest.
type Vulnerability struct {
	ID          string `json:"id,omitempty"`
	CVE         string `json:"cve,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Description string `json:"description,omitempty"`
	FixVersion  string `json:"fix_version,omitempty"`
}

// Identifier returns the advisory id, preferring "id" over "cve".
func (v Vulnerability) Identifier() string {
	if v.ID != "" {
		return v.ID
	}
	return v.CVE
}

// Dependency is a third-party package the project depends on.
type Dependency struct {
	Name            string          `json:"name"`
	Version         *string         `json:"version"`
	License         *string         `json:"license"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
}

// AgentComponent is a named agent in the target application.
type AgentComponent struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Tools       []string `json:"tools"`
}

// ParsedProject is the immutable snapshot produced by the project parser
// and shared by every detector in a run.
type ParsedProject struct {
	Root         string           `json:"root"`
	ProjectName  string           `json:"project_name"`
	Agents       []AgentComponent `json:"agents"`
	Tools        []Tool           `json:"tools"`
	MCPServers   []MCPServer      `json:"mcp_servers"`
	Dependencies []Dependency     `json:"dependencies"`
	Metadata     map[string]any   `json:"metadata"`
}

// MetadataStringMap reads a map[string]string value out of the free-form
// project metadata, tolerating the map[string]any shape JSON decoding
// produces.
func (p *ParsedProject) MetadataStringMap(key string) map[string]string {
	out := map[string]string{}
	raw, ok := p.Metadata[key]
	if !ok {
		return out
	}
	switch typed := raw.(type) {
	case map[string]string:
		for k, v := range typed {
			out[k] = v
		}
	case map[string]any:
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

// RadarFinding is a structured security observation. Identifiers follow
// the "<KIND>::<SUBJECT>[::<EXTRA>]" convention and are unique within a
// report.
type RadarFinding struct {
	Identifier   string         `json:"id"`
	Title        string         `json:"title"`
	Severity     string         `json:"severity"`
	Description  string         `json:"description"`
	OwaspLLM     []string       `json:"owasp_llm"`
	OwaspAgentic []string       `json:"owasp_agentic"`
	Subject      string         `json:"subject,omitempty"`
	Remediation  string         `json:"remediation,omitempty"`
	Detector     string         `json:"detector"`
	Metadata     map[string]any `json:"metadata"`
}

// Normalized returns a copy of the finding with canonical severity,
// upper-cased OWASP codes and a non-nil metadata map.
func (f RadarFinding) Normalized() RadarFinding {
	f.Severity = NormalizeSeverity(f.Severity)
	f.OwaspLLM = upperAll(f.OwaspLLM)
	f.OwaspAgentic = upperCodes(f.OwaspAgentic)
	if f.Metadata == nil {
		f.Metadata = map[string]any{}
	}
	return f
}

func upperAll(codes []string) []string {
	out := make([]string, len(codes))
	for i, code := range codes {
		out[i] = strings.ToUpper(code)
	}
	return out
}

// upperCodes upper-cases AAxx codes but leaves free-form agentic labels
// (e.g. "Agentic-SupplyChain") untouched.
func upperCodes(codes []string) []string {
	out := make([]string, len(codes))
	for i, code := range codes {
		if len(code) == 4 && (strings.HasPrefix(code, "AA") || strings.HasPrefix(code, "aa")) {
			out[i] = strings.ToUpper(code)
		} else {
			out[i] = code
		}
	}
	return out
}

// ScenarioResult is the outcome of a single adversarial scenario.
type ScenarioResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// Scenario statuses.
const (
	ScenarioPassed  = "passed"
	ScenarioWarning = "warning"
	ScenarioFailed  = "failed"
)

// Inventory counts the parsed-project entities included in a report summary.
type Inventory struct {
	Agents       int `json:"agents"`
	Tools        int `json:"tools"`
	MCPServers   int `json:"mcp_servers"`
	Dependencies int `json:"dependencies"`
}

// Summary aggregates finding counts and inventory cardinalities.
type Summary struct {
	Findings  map[string]int `json:"findings"`
	Inventory Inventory      `json:"inventory"`
	Mode      string         `json:"mode"`
}

// RadarReport is the final artifact produced by a radar run.
type RadarReport struct {
	ProjectName     string           `json:"project_name"`
	Mode            string           `json:"mode"`
	GeneratedAt     string           `json:"generated_at"`
	Summary         Summary          `json:"summary"`
	Findings        []RadarFinding   `json:"findings"`
	ParsedProject   *ParsedProject   `json:"parsed_project"`
	TraceIDs        []string         `json:"trace_ids"`
	ScenarioResults []ScenarioResult `json:"scenario_results"`
	Metadata        map[string]any   `json:"metadata"`
}

// SeverityTotals builds the severity histogram for a set of findings,
// including a "total" entry equal to the sum of the other entries.
func SeverityTotals(findings []RadarFinding) map[string]int {
	totals := map[string]int{
		SeverityCritical: 0,
		SeverityHigh:     0,
		SeverityMedium:   0,
		SeverityLow:      0,
		SeverityInfo:     0,
		SeverityUnknown:  0,
	}
	for _, finding := range findings {
		totals[NormalizeSeverity(finding.Severity)]++
	}
	total := 0
	for key, count := range totals {
		if key != "total" {
			total += count
		}
	}
	totals["total"] = total
	return totals
}

// ToJSON serializes the report with two-space indentation.
func (r *RadarReport) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

// WriteJSON writes the report to path, creating parent directories and
// going through a temporary file so a failed run never leaves a partial
// report behind.
func (r *RadarReport) WriteJSON(path string) error {
	data, err := r.ToJSON()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".radar-report-*")
	if err != nil {
		return fmt.Errorf("failed to create temp report file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close report file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize report: %w", err)
	}
	return nil
}

// ReportFromJSON decodes a report, re-normalizing finding severities so
// that a decode of an encoded report compares equal to the original.
func ReportFromJSON(data []byte) (*RadarReport, error) {
	var report RadarReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	for i, finding := range report.Findings {
		report.Findings[i] = finding.Normalized()
	}
	if report.Metadata == nil {
		report.Metadata = map[string]any{}
	}
	return &report, nil
}
