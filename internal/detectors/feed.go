package detectors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/agentic-radar/agentic-radar/internal/vulnmap"
	"github.com/agentic-radar/agentic-radar/pkg/types"
)

// FeedDetector ingests external vulnerability scanner output (OSV,
// pip-audit JSON files), normalizes it through the taxonomy mapper and
// emits one finding per merged (package, advisory) pair.
type FeedDetector struct {
	osvPaths      []string
	pipAuditPaths []string
	mapper        *vulnmap.Mapper
}

// NewFeedDetector creates a vulnerability-feed detector over the given
// scanner output files.
func NewFeedDetector(osvPaths, pipAuditPaths []string) *FeedDetector {
	return &FeedDetector{
		osvPaths:      osvPaths,
		pipAuditPaths: pipAuditPaths,
		mapper:        vulnmap.NewMapper(),
	}
}

// Name returns "vulnerability-feed".
func (d *FeedDetector) Name() string { return "vulnerability-feed" }

// Run loads every configured feed, merges duplicates across sources and
// lifts the result into radar findings.
func (d *FeedDetector) Run(project *types.ParsedProject) ([]types.RadarFinding, error) {
	var groups [][]vulnmap.Finding
	for _, path := range d.osvPaths {
		payload, err := loadJSONObject(path)
		if err != nil {
			return nil, err
		}
		groups = append(groups, d.mapper.FromOSV(payload))
	}
	for _, path := range d.pipAuditPaths {
		payload, err := loadJSONObject(path)
		if err != nil {
			return nil, err
		}
		groups = append(groups, d.mapper.FromPipAudit(payload))
	}

	merged := d.mapper.Merge(groups...)
	findings := make([]types.RadarFinding, 0, len(merged))
	for _, vuln := range merged {
		findings = append(findings, d.lift(vuln))
	}
	return findings, nil
}

func (d *FeedDetector) lift(vuln vulnmap.Finding) types.RadarFinding {
	description := vuln.Summary
	if description == "" {
		description = "Dependency vulnerability reported by external scanner feeds."
	}
	remediation := ""
	if len(vuln.FixVersions) > 0 {
		// The highest known fix version is the actionable one.
		remediation = vuln.FixVersions[len(vuln.FixVersions)-1]
	}
	return types.RadarFinding{
		Identifier:   fmt.Sprintf("DEP-FEED::%s::%s", vuln.Package, strings.ToUpper(vuln.VulnerabilityID)),
		Title:        fmt.Sprintf("Dependency '%s' is affected by %s", vuln.Package, vuln.VulnerabilityID),
		Severity:     types.NormalizeSeverity(vuln.Severity),
		Description:  description,
		OwaspLLM:     vuln.LLMCodes,
		OwaspAgentic: vuln.AgenticCodes,
		Subject:      vuln.Package,
		Remediation:  remediation,
		Detector:     d.Name(),
		Metadata: map[string]any{
			"ecosystem":    vuln.Ecosystem,
			"version":      vuln.Version,
			"aliases":      vuln.Aliases,
			"fix_versions": vuln.FixVersions,
			"references":   vuln.References,
			"source":       vuln.Source,
		},
	}
}

func loadJSONObject(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed '%s': %w", path, err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse feed '%s': %w", path, err)
	}
	return payload, nil
}
