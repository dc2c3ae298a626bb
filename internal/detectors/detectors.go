// Package detectors defines the detector capability and the registry
// that fans detectors out over a parsed project.
package detectors

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentic-radar/agentic-radar/pkg/logging"
	"github.com/agentic-radar/agentic-radar/pkg/types"
)

// Detector is a pure analysis pass over the parsed project: output
// depends only on the snapshot it is given.
type Detector interface {
	// Name returns the detector's stable name, used in finding and
	// report metadata.
	Name() string

	// Run analyzes the project and returns findings.
	Run(project *types.ParsedProject) ([]types.RadarFinding, error)
}

// Defaults returns the default detector pipeline, in contract order.
func Defaults() []Detector {
	return []Detector{
		NewToolInventoryDetector(),
		NewMCPDetector(),
		NewVulnerabilityDetector(),
	}
}

// Registry executes a fixed list of detectors against a project.
type Registry struct {
	detectors []Detector
	parallel  bool
	logger    *logging.Logger
}

// NewRegistry creates a Registry. A nil detector list selects the
// default pipeline.
func NewRegistry(detectorList []Detector, logger *logging.Logger) *Registry {
	if detectorList == nil {
		detectorList = Defaults()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{detectors: detectorList, logger: logger}
}

// WithParallel enables concurrent detector execution. Results are still
// spliced in registry order.
func (r *Registry) WithParallel(parallel bool) *Registry {
	r.parallel = parallel
	return r
}

// Names returns the detector names in execution order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.detectors))
	for i, detector := range r.detectors {
		names[i] = detector.Name()
	}
	return names
}

// Run executes every detector and concatenates findings in detector
// order. A detector failure is converted to a DETECTOR-ERROR finding and
// execution continues. On context cancellation the run stops after the
// in-flight detectors finish and the context error is returned.
func (r *Registry) Run(ctx context.Context, project *types.ParsedProject) ([]types.RadarFinding, error) {
	results := make([][]types.RadarFinding, len(r.detectors))

	if r.parallel {
		var wg sync.WaitGroup
		for i, detector := range r.detectors {
			wg.Add(1)
			go func(slot int, d Detector) {
				defer wg.Done()
				results[slot] = r.runOne(d, project)
			}(i, detector)
		}
		wg.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	} else {
		for i, detector := range r.detectors {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = r.runOne(detector, project)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	var findings []types.RadarFinding
	for _, partial := range results {
		findings = append(findings, partial...)
	}
	return findings, nil
}

func (r *Registry) runOne(detector Detector, project *types.ParsedProject) []types.RadarFinding {
	entry := r.logger.WithComponent(detector.Name())
	findings, err := detector.Run(project)
	if err != nil {
		entry.WithError(err).Warn("detector failed")
		return []types.RadarFinding{{
			Identifier:  fmt.Sprintf("DETECTOR-ERROR::%s", detector.Name()),
			Title:       fmt.Sprintf("Detector '%s' failed to run", detector.Name()),
			Severity:    types.SeverityUnknown,
			Description: err.Error(),
			Detector:    detector.Name(),
			Metadata:    map[string]any{"error": err.Error()},
		}}
	}
	entry.WithField("findings", len(findings)).Debug("detector completed")
	return findings
}
