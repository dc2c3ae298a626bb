package report

import (
	"bytes"
	"html/template"
	"os"
	"path/filepath"

	"github.com/agentic-radar/agentic-radar/pkg/owasp"
	"github.com/agentic-radar/agentic-radar/pkg/types"
)

const htmlReport = `<!DOCTYPE html>
<html>
<head>
    <title>Agentic Radar Report - {{.Report.ProjectName}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { border-bottom: 2px solid #333; padding-bottom: 20px; margin-bottom: 30px; }
        .summary { background: #f5f5f5; padding: 20px; margin-bottom: 30px; border-radius: 5px; }
        .finding { border: 1px solid #ddd; margin-bottom: 20px; padding: 15px; border-radius: 5px; }
        .severity-critical { border-left: 5px solid #7f1d1d; }
        .severity-high { border-left: 5px solid #dc2626; }
        .severity-medium { border-left: 5px solid #d97706; }
        .severity-low { border-left: 5px solid #2563eb; }
        .severity-info { border-left: 5px solid #059669; }
        .severity-unknown { border-left: 5px solid #6b7280; }
        .finding-title { font-weight: bold; font-size: 16px; margin-bottom: 10px; }
        .finding-meta { color: #666; font-size: 14px; margin-bottom: 10px; }
        .finding-description { margin-bottom: 10px; }
        .remediation { background: #f0fdf4; padding: 10px; border-radius: 3px; }
        .scenario { padding: 6px 0; }
        .status-failed { color: #dc2626; font-weight: bold; }
        .status-warning { color: #d97706; font-weight: bold; }
        .status-passed { color: #059669; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Agentic Radar Report</h1>
        <p>Project: {{.Report.ProjectName}} | Mode: {{.Report.Mode}}</p>
        <p>Generated on: {{.Report.GeneratedAt}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p>Total Findings: {{index .Report.Summary.Findings "total"}}</p>
        {{range .Severities}}
        <p>{{.Label}}: {{.Count}}</p>
        {{end}}
        <p>Agents: {{.Report.Summary.Inventory.Agents}} |
           Tools: {{.Report.Summary.Inventory.Tools}} |
           MCP Servers: {{.Report.Summary.Inventory.MCPServers}} |
           Dependencies: {{.Report.Summary.Inventory.Dependencies}}</p>
    </div>

    {{if .Report.ScenarioResults}}
    <div class="scenarios">
        <h2>Scenario Results</h2>
        {{range .Report.ScenarioResults}}
        <div class="scenario">
            <span class="status-{{.Status}}">{{.Status}}</span> {{.Name}}{{if .Details}} - {{.Details}}{{end}}
        </div>
        {{end}}
    </div>
    {{end}}

    <div class="findings">
        <h2>Findings</h2>
        {{range .Findings}}
        <div class="finding severity-{{.Severity}}">
            <div class="finding-title">{{.Title}}</div>
            <div class="finding-meta">
                Severity: {{.Severity}} | Detector: {{.Detector}} | ID: {{.Identifier}}
            </div>
            {{if .Categories}}
            <div class="finding-meta">{{range .Categories}}<span>{{.}}</span> {{end}}</div>
            {{end}}
            {{if .Description}}
            <div class="finding-description">{{.Description}}</div>
            {{end}}
            {{if .Remediation}}
            <div class="remediation">Remediation: {{.Remediation}}</div>
            {{end}}
        </div>
        {{end}}
    </div>
</body>
</html>`

var htmlTemplate = template.Must(template.New("report").Parse(htmlReport))

type htmlSeverityRow struct {
	Label string
	Count int
}

type htmlFinding struct {
	types.RadarFinding
	Categories []string
}

// RenderHTML renders the report as a standalone HTML document.
func RenderHTML(radarReport *types.RadarReport) ([]byte, error) {
	severities := make([]htmlSeverityRow, 0, len(types.CanonicalSeverities))
	for _, severity := range types.CanonicalSeverities {
		severities = append(severities, htmlSeverityRow{Label: severity, Count: radarReport.Summary.Findings[severity]})
	}

	findings := make([]htmlFinding, 0, len(radarReport.Findings))
	for _, finding := range radarReport.Findings {
		var categories []string
		for _, code := range finding.OwaspLLM {
			categories = append(categories, owasp.FormatCategory(code, owasp.LLMCategoryTitles))
		}
		for _, code := range finding.OwaspAgentic {
			if owasp.AgenticTitle(code) != "" {
				categories = append(categories, owasp.FormatCategory(code, owasp.AgenticCategoryTitles))
			} else {
				categories = append(categories, code)
			}
		}
		findings = append(findings, htmlFinding{RadarFinding: finding, Categories: categories})
	}

	data := struct {
		Report     *types.RadarReport
		Severities []htmlSeverityRow
		Findings   []htmlFinding
	}{
		Report:     radarReport,
		Severities: severities,
		Findings:   findings,
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteHTML renders the report and writes it to path.
func WriteHTML(radarReport *types.RadarReport, path string) error {
	data, err := RenderHTML(radarReport)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
