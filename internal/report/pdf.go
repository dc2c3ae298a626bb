package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/agentic-radar/agentic-radar/pkg/types"
)

// RenderPDF renders the report as a PDF document.
func RenderPDF(radarReport *types.RadarReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Agentic Radar Report")
	pdf.Ln(15)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(40, 6, fmt.Sprintf("Project: %s", radarReport.ProjectName))
	pdf.Ln(6)
	pdf.Cell(40, 6, fmt.Sprintf("Mode: %s", radarReport.Mode))
	pdf.Ln(6)
	pdf.Cell(40, 6, fmt.Sprintf("Generated: %s", radarReport.GeneratedAt))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, "Summary")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(40, 6, fmt.Sprintf("Total Findings: %d", radarReport.Summary.Findings["total"]))
	pdf.Ln(6)
	for _, severity := range types.CanonicalSeverities {
		pdf.Cell(40, 6, fmt.Sprintf("%s: %d", titleCase(severity), radarReport.Summary.Findings[severity]))
		pdf.Ln(6)
	}
	inventory := radarReport.Summary.Inventory
	pdf.Cell(40, 6, fmt.Sprintf("Agents: %d | Tools: %d | MCP Servers: %d | Dependencies: %d",
		inventory.Agents, inventory.Tools, inventory.MCPServers, inventory.Dependencies))
	pdf.Ln(12)

	if len(radarReport.ScenarioResults) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(40, 10, "Scenario Results")
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 10)
		for _, result := range radarReport.ScenarioResults {
			line := fmt.Sprintf("%s: %s", result.Name, result.Status)
			if result.Details != "" {
				line += " (" + result.Details + ")"
			}
			pdf.Cell(40, 6, line)
			pdf.Ln(6)
		}
		pdf.Ln(6)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, "Findings")
	pdf.Ln(10)

	for i, finding := range radarReport.Findings {
		if i > 0 {
			pdf.Ln(5)
		}

		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(40, 6, fmt.Sprintf("%d. %s", i+1, finding.Title))
		pdf.Ln(6)

		pdf.SetFont("Arial", "", 9)
		pdf.Cell(40, 5, fmt.Sprintf("Severity: %s | Detector: %s | ID: %s", finding.Severity, finding.Detector, finding.Identifier))
		pdf.Ln(5)

		if finding.Description != "" {
			pdf.MultiCell(0, 4, finding.Description, "", "", false)
			pdf.Ln(2)
		}
		if finding.Remediation != "" {
			pdf.MultiCell(0, 4, "Remediation: "+finding.Remediation, "", "", false)
			pdf.Ln(2)
		}

		if pdf.GetY() > 250 {
			pdf.AddPage()
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func titleCase(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}

// WritePDF renders the report and writes it to path.
func WritePDF(radarReport *types.RadarReport, path string) error {
	data, err := RenderPDF(radarReport)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
