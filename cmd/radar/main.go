// Command radar is the agentic-radar CLI: static security scanning for
// agentic applications.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/agentic-radar/agentic-radar/internal/detectors"
	"github.com/agentic-radar/agentic-radar/internal/evidence"
	"github.com/agentic-radar/agentic-radar/internal/objectstore"
	"github.com/agentic-radar/agentic-radar/internal/runner"
	"github.com/agentic-radar/agentic-radar/pkg/errors"
	"github.com/agentic-radar/agentic-radar/pkg/logging"
	"github.com/agentic-radar/agentic-radar/pkg/types"
)

var version = "dev"

type scanFlags struct {
	output         string
	html           string
	pdf            string
	objectStore    string
	traceIDs       []string
	labels         []string
	noSnapshot     bool
	sourceAnalysis bool
	osvFeeds       []string
	pipAuditFeeds  []string
	parallel       bool
}

func (f *scanFlags) register(cmd *cobra.Command, defaultOutput string) {
	cmd.Flags().StringVarP(&f.output, "output", "o", defaultOutput, "report output path")
	cmd.Flags().StringVar(&f.html, "html", "", "also write an HTML report to this path")
	cmd.Flags().StringVar(&f.pdf, "pdf", "", "also write a PDF report to this path")
	cmd.Flags().StringVar(&f.objectStore, "object-store", os.Getenv("RADAR_OBJECT_STORE"), "store artifacts in this directory")
	cmd.Flags().StringArrayVar(&f.traceIDs, "trace-id", nil, "trace ID to attach to the report (repeatable)")
	cmd.Flags().StringArrayVar(&f.labels, "label", nil, "report metadata label K=V (repeatable)")
	cmd.Flags().BoolVar(&f.noSnapshot, "no-project-snapshot", false, "omit the parsed project snapshot from the report")
	cmd.Flags().BoolVar(&f.sourceAnalysis, "source-analysis", false, "scan project sources for tool and MCP definitions")
	cmd.Flags().StringArrayVar(&f.osvFeeds, "osv", nil, "OSV scanner JSON output to ingest (repeatable)")
	cmd.Flags().StringArrayVar(&f.pipAuditFeeds, "pip-audit", nil, "pip-audit JSON output to ingest (repeatable)")
	cmd.Flags().BoolVar(&f.parallel, "parallel", false, "run detectors concurrently")
}

func (f *scanFlags) scanConfig(args []string) (runner.ScanConfig, error) {
	labels, err := parseLabels(f.labels)
	if err != nil {
		return runner.ScanConfig{}, err
	}
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	detectorList := detectors.Defaults()
	if f.sourceAnalysis {
		detectorList = append(detectorList, detectors.NewSourceToolDetector(), detectors.NewSourceMCPDetector())
	}
	if len(f.osvFeeds) > 0 || len(f.pipAuditFeeds) > 0 {
		detectorList = append(detectorList, detectors.NewFeedDetector(f.osvFeeds, f.pipAuditFeeds))
	}
	return runner.ScanConfig{
		ProjectPath:     path,
		OutputPath:      f.output,
		HTMLPath:        f.html,
		PDFPath:         f.pdf,
		ObjectStorePath: f.objectStore,
		TraceIDs:        f.traceIDs,
		Labels:          labels,
		IncludeSnapshot: !f.noSnapshot,
		Detectors:       detectorList,
		Parallel:        f.parallel,
	}, nil
}

// parseLabels parses repeated K=V labels; duplicate keys are
// last-write-wins.
func parseLabels(raw []string) (map[string]string, error) {
	labels := map[string]string{}
	for _, label := range raw {
		key, value, ok := strings.Cut(label, "=")
		if !ok || key == "" {
			return nil, errors.NewUsageError(fmt.Sprintf("invalid label '%s': expected K=V", label))
		}
		labels[key] = value
	}
	return labels, nil
}

func newLogger() *logging.Logger {
	logger, err := logging.NewLogger(&logging.Config{
		Level:       envOr("RADAR_LOG_LEVEL", "info"),
		Format:      envOr("RADAR_LOG_FORMAT", "text"),
		Output:      "stderr",
		ServiceName: "agentic-radar",
		Version:     version,
	})
	if err != nil {
		return logging.Default()
	}
	return logger
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func printSummary(cmd *cobra.Command, result *runner.RunResult) {
	report := result.Report
	cmd.Printf("project: %s\n", report.ProjectName)
	cmd.Printf("mode: %s\n", report.Mode)
	cmd.Printf("findings: %d\n", report.Summary.Findings["total"])
	for _, severity := range types.CanonicalSeverities {
		if count := report.Summary.Findings[severity]; count > 0 {
			cmd.Printf("  %s: %d\n", severity, count)
		}
	}
	for _, scenarioResult := range report.ScenarioResults {
		cmd.Printf("scenario %s: %s\n", scenarioResult.Name, scenarioResult.Status)
	}
	cmd.Printf("report: %s\n", result.ReportPath)
	if result.StoredPath != "" {
		cmd.Printf("stored: %s\n", result.StoredPath)
	}
}

func newScanCommand() *cobra.Command {
	flags := &scanFlags{}
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan an agentic project and write a findings report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := flags.scanConfig(args)
			if err != nil {
				return err
			}
			result, err := runner.New(newLogger()).RunScan(cmd.Context(), config)
			if err != nil {
				return err
			}
			printSummary(cmd, result)
			return nil
		},
	}
	flags.register(cmd, envOr("RADAR_OUTPUT", "agentic-radar-report.json"))
	return cmd
}

func newTestCommand() *cobra.Command {
	flags := &scanFlags{}
	var scenarios []string
	cmd := &cobra.Command{
		Use:   "test [path]",
		Short: "Scan a project and run adversarial scenario tests",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanConfig, err := flags.scanConfig(args)
			if err != nil {
				return err
			}
			result, err := runner.New(newLogger()).RunTest(cmd.Context(), runner.TestConfig{
				ScanConfig: scanConfig,
				Scenarios:  scenarios,
			})
			if err != nil {
				return err
			}
			printSummary(cmd, result)
			return nil
		},
	}
	flags.register(cmd, envOr("RADAR_TEST_OUTPUT", "agentic-radar-test-report.json"))
	cmd.Flags().StringArrayVar(&scenarios, "scenario", nil, "scenario to run (repeatable; defaults to the built-in suite)")
	return cmd
}

func newEvidenceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Evidence pack operations",
	}

	var findingsPaths []string
	var logsDir string
	var traceIDs []string
	var output string
	var storePath string
	pack := &cobra.Command{
		Use:   "pack",
		Short: "Bundle findings and logs into a zip evidence pack",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(findingsPaths) == 0 {
				return errors.NewUsageError("at least one --findings path is required")
			}
			var store objectstore.ObjectStore
			if storePath != "" {
				localStore, err := objectstore.NewLocalStore(storePath)
				if err != nil {
					return err
				}
				store = localStore
			}
			result, err := evidence.NewPackBuilder(store).Build(findingsPaths, logsDir, output, traceIDs)
			if err != nil {
				return err
			}
			cmd.Printf("evidence pack: %s\n", result.PackPath)
			if result.StoredPath != "" {
				cmd.Printf("stored: %s\n", result.StoredPath)
			}
			return nil
		},
	}
	pack.Flags().StringArrayVar(&findingsPaths, "findings", nil, "findings file to include (repeatable)")
	pack.Flags().StringVar(&logsDir, "logs", "", "log file or directory to include")
	pack.Flags().StringArrayVar(&traceIDs, "trace-id", nil, "trace ID to record in pack metadata (repeatable)")
	pack.Flags().StringVarP(&output, "output", "o", "", "pack output path")
	pack.Flags().StringVar(&storePath, "object-store", os.Getenv("RADAR_OBJECT_STORE"), "store the pack in this directory")

	cmd.AddCommand(pack)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the radar version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("agentic-radar %s\n", version)
		},
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "radar",
		Short:         "Static security radar for agentic applications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newScanCommand())
	root.AddCommand(newTestCommand())
	root.AddCommand(newEvidenceCommand())
	root.AddCommand(newVersionCommand())
	return root
}

func main() {
	// Optional .env defaults; behaviour is unchanged when absent.
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
