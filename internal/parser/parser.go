package parser

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/agentic-radar/agentic-radar/pkg/errors"
	"github.com/agentic-radar/agentic-radar/pkg/types"
)

// manifestCandidates are probed in order under the project root when no
// explicit manifest path was supplied.
var manifestCandidates = []string{
	"agentic_radar.json",
	"agentic_radar_manifest.json",
	"radar_manifest.json",
}

// manifestSchema constrains the manifest document. Unknown top-level keys
// are rejected; everything inside "metadata" is preserved verbatim.
const manifestSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "project": {"type": "string"},
    "project_name": {"type": "string"},
    "agents": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "description": {"type": ["string", "null"]},
          "tools": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "tools": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "version": {"type": ["string", "null"]},
          "source": {"type": ["string", "null"]},
          "scope": {"type": ["string", "null"]}
        }
      }
    },
    "mcp_servers": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "endpoint": {"type": "string"},
          "capabilities": {"type": "array", "items": {"type": "string"}},
          "auth_mode": {"type": ["string", "null"]}
        }
      }
    },
    "dependencies": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "version": {"type": ["string", "null"]},
          "license": {"type": ["string", "null"]},
          "vulnerabilities": {"type": "array", "items": {"type": "object"}}
        }
      }
    },
    "metadata": {"type": "object"}
  }
}`

// manifestDocument mirrors the manifest JSON shape.
type manifestDocument struct {
	Project      string         `json:"project"`
	ProjectName  string         `json:"project_name"`
	Agents       []agentEntry   `json:"agents"`
	Tools        []toolEntry    `json:"tools"`
	MCPServers   []mcpEntry     `json:"mcp_servers"`
	Dependencies []depEntry     `json:"dependencies"`
	Metadata     map[string]any `json:"metadata"`
}

type agentEntry struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Tools       []string `json:"tools"`
}

type toolEntry struct {
	Name    string  `json:"name"`
	Version *string `json:"version"`
	Source  *string `json:"source"`
	Scope   *string `json:"scope"`
}

type mcpEntry struct {
	Name         string   `json:"name"`
	Endpoint     string   `json:"endpoint"`
	Capabilities []string `json:"capabilities"`
	AuthMode     *string  `json:"auth_mode"`
}

type depEntry struct {
	Name            string                `json:"name"`
	Version         *string               `json:"version"`
	License         *string               `json:"license"`
	Vulnerabilities []types.Vulnerability `json:"vulnerabilities"`
}

// SourceFilter decides which source files become synthetic agents when a
// manifest has to be derived from the tree.
type SourceFilter func(path string) bool

// defaultSourceFilter keeps Python sources that are not test files.
func defaultSourceFilter(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ".py") && !strings.HasPrefix(base, "test_")
}

// ProjectParser loads agentic projects into the domain model.
type ProjectParser struct {
	explicitManifest string
	sourceFilter     SourceFilter
	schema           *gojsonschema.Schema
}

// Option customizes a ProjectParser.
type Option func(*ProjectParser)

// WithManifestPath forces the parser to load the given manifest instead
// of discovering one under the root.
func WithManifestPath(path string) Option {
	return func(p *ProjectParser) { p.explicitManifest = path }
}

// WithSourceFilter replaces the synthetic-agent source filter used when
// deriving a manifest.
func WithSourceFilter(filter SourceFilter) Option {
	return func(p *ProjectParser) { p.sourceFilter = filter }
}

// New creates a ProjectParser.
func New(opts ...Option) *ProjectParser {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(manifestSchema))
	if err != nil {
		// The schema is a compile-time constant; a failure here is a bug.
		panic(fmt.Sprintf("invalid manifest schema: %v", err))
	}
	parser := &ProjectParser{
		sourceFilter: defaultSourceFilter,
		schema:       schema,
	}
	for _, opt := range opts {
		opt(parser)
	}
	return parser
}

// Parse loads the project under root into a ParsedProject. It fails with
// a parser error when the root is missing or a manifest is malformed.
func (p *ProjectParser) Parse(root string) (*types.ParsedProject, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errors.NewParserError(
			fmt.Sprintf("project root '%s' does not exist or is not a directory", root))
	}

	manifestPath := p.explicitManifest
	if manifestPath == "" {
		manifestPath = discoverManifest(root)
	}

	var doc *manifestDocument
	if manifestPath != "" {
		doc, err = p.loadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
	} else {
		doc = p.deriveManifest(root)
	}

	projectName := doc.Project
	if projectName == "" {
		projectName = doc.ProjectName
	}
	if projectName == "" {
		projectName = filepath.Base(root)
	}

	project := &types.ParsedProject{
		Root:         root,
		ProjectName:  projectName,
		Agents:       buildAgents(doc.Agents),
		Tools:        buildTools(doc.Tools),
		MCPServers:   buildMCPServers(doc.MCPServers),
		Dependencies: buildDependencies(doc.Dependencies),
		Metadata:     map[string]any{},
	}
	for key, value := range doc.Metadata {
		project.Metadata[key] = value
	}
	if manifestPath != "" {
		setDefault(project.Metadata, "manifest_path", manifestPath)
		setDefault(project.Metadata, "manifest_discovered", true)
	} else {
		setDefault(project.Metadata, "manifest_generated", true)
	}
	return project, nil
}

func discoverManifest(root string) string {
	for _, candidate := range manifestCandidates {
		path := filepath.Join(root, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (p *ProjectParser) loadManifest(path string) (*manifestDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewParserError(
			fmt.Sprintf("failed to read manifest '%s'", path)).WithCause(err)
	}

	result, err := p.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, errors.NewParserError(
			fmt.Sprintf("failed to parse manifest '%s'", path)).WithCause(err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, errors.NewParserError(
			fmt.Sprintf("manifest '%s' is invalid: %s", path, strings.Join(issues, "; ")))
	}

	var doc manifestDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewParserError(
			fmt.Sprintf("failed to parse manifest '%s'", path)).WithCause(err)
	}
	return &doc, nil
}

// deriveManifest synthesizes a minimal manifest from the source tree:
// every non-test source file becomes an agent named after its stem.
func (p *ProjectParser) deriveManifest(root string) *manifestDocument {
	var agents []agentEntry
	seen := map[string]struct{}{}

	var files []string
	filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		if p.sourceFilter(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)

	for _, file := range files {
		stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		name := strings.ReplaceAll(stem, "_", "-")
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		agents = append(agents, agentEntry{Name: name, Tools: []string{}})
	}

	return &manifestDocument{
		Project:  filepath.Base(root),
		Agents:   agents,
		Metadata: map[string]any{"derived_from_source": true},
	}
}

func buildAgents(entries []agentEntry) []types.AgentComponent {
	agents := make([]types.AgentComponent, 0, len(entries))
	for _, entry := range entries {
		tools := entry.Tools
		if tools == nil {
			tools = []string{}
		}
		agents = append(agents, types.AgentComponent{
			Name:        nameOrUnknown(entry.Name),
			Description: entry.Description,
			Tools:       tools,
		})
	}
	return agents
}

func buildTools(entries []toolEntry) []types.Tool {
	tools := make([]types.Tool, 0, len(entries))
	for _, entry := range entries {
		tools = append(tools, types.Tool{
			Name:    nameOrUnknown(entry.Name),
			Version: entry.Version,
			Source:  entry.Source,
			Scope:   entry.Scope,
		})
	}
	return tools
}

func buildMCPServers(entries []mcpEntry) []types.MCPServer {
	servers := make([]types.MCPServer, 0, len(entries))
	for _, entry := range entries {
		servers = append(servers, types.NewMCPServer(
			nameOrUnknown(entry.Name), entry.Endpoint, entry.Capabilities, entry.AuthMode))
	}
	return servers
}

func buildDependencies(entries []depEntry) []types.Dependency {
	deps := make([]types.Dependency, 0, len(entries))
	for _, entry := range entries {
		vulns := entry.Vulnerabilities
		if vulns == nil {
			vulns = []types.Vulnerability{}
		}
		deps = append(deps, types.Dependency{
			Name:            nameOrUnknown(entry.Name),
			Version:         entry.Version,
			License:         entry.License,
			Vulnerabilities: vulns,
		})
	}
	return deps
}

func nameOrUnknown(name string) string {
	if name == "" {
		return "unknown"
	}
	return name
}

func setDefault(metadata map[string]any, key string, value any) {
	if _, ok := metadata[key]; !ok {
		metadata[key] = value
	}
}
