package sourcescan

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"gopkg.in/yaml.v3"
)

var (
	endpointKeys = map[string]struct{}{
		"uri": {}, "url": {}, "endpoint": {}, "server": {},
		"server_url": {}, "base_url": {}, "address": {},
	}
	capabilityKeys = map[string]struct{}{
		"capabilities": {}, "tools": {}, "permissions": {},
	}
	mcpTextPattern = regexp.MustCompile(`(?:mcp|https?)://[^\s'"]+`)
)

// MCPServerDetector discovers MCP server references in Python source and
// in JSON/YAML configuration files.
type MCPServerDetector struct {
	walker *SourceWalker
}

// NewMCPServerDetector creates an MCPServerDetector.
func NewMCPServerDetector() *MCPServerDetector {
	return &MCPServerDetector{walker: NewSourceWalker(".py", ".json", ".yaml", ".yml")}
}

// ScanPaths walks the given paths and returns every MCP reference found.
func (d *MCPServerDetector) ScanPaths(paths []string) []MCPServerFinding {
	var findings []MCPServerFinding
	for _, path := range d.walker.IterFiles(paths) {
		findings = append(findings, d.scanFile(path)...)
	}
	return findings
}

func (d *MCPServerDetector) scanFile(path string) []MCPServerFinding {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return d.scanPython(path)
	case ".json", ".yaml", ".yml":
		return d.scanConfig(path)
	}
	return nil
}

// scanPython reports calls whose fully qualified name looks MCP-related.
func (d *MCPServerDetector) scanPython(path string) []MCPServerFinding {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	tree := parsePython(content)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	var findings []MCPServerFinding
	walkTree(tree.RootNode(), func(node *sitter.Node) {
		if node.Type() != "call" {
			return
		}
		callName := nameFromNode(node.ChildByFieldName("function"), content)
		if !looksLikeMCP(callName) {
			return
		}
		parts := strings.Split(callName, ".")
		findings = append(findings, MCPServerFinding{
			Finding: Finding{
				Detector: "mcp",
				Name:     parts[len(parts)-1],
				Location: FormatLocation(path, int(node.StartPoint().Row)+1),
				Metadata: map[string]any{
					"call":         callName,
					"capabilities": extractCapabilities(node, content),
				},
			},
			Endpoint: extractEndpoint(node, content),
		})
	})
	return findings
}

// scanConfig parses a configuration file and walks the resulting tree.
// Files that cannot be parsed fall back to a raw text scan.
func (d *MCPServerDetector) scanConfig(path string) []MCPServerFinding {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var data any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(text, &data); err != nil {
			data = nil
		}
	default:
		if err := yaml.Unmarshal(text, &data); err != nil {
			data = nil
		}
	}

	if data == nil {
		return scanTextForMCP(string(text), path)
	}

	var findings []MCPServerFinding
	visited := map[uintptr]struct{}{}
	for _, entry := range findMCPInTree(data, nil, visited) {
		name, _ := entry["name"].(string)
		if name == "" {
			name = "mcp_server"
		}
		endpoint, _ := entry["endpoint"].(string)
		metadata := map[string]any{}
		for key, value := range entry {
			if key != "name" && key != "endpoint" {
				metadata[key] = value
			}
		}
		findings = append(findings, MCPServerFinding{
			Finding: Finding{
				Detector: "mcp",
				Name:     name,
				Location: path,
				Metadata: metadata,
			},
			Endpoint: endpoint,
		})
	}
	return findings
}

// extractEndpoint pulls the endpoint from a call: a keyword argument with
// an endpoint-like name wins, then the first positional string literal.
func extractEndpoint(call *sitter.Node, content []byte) string {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	var firstString string
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == "keyword_argument" {
			key := strings.ToLower(nodeText(arg.ChildByFieldName("name"), content))
			if _, ok := endpointKeys[key]; ok {
				if value := stringLiteral(arg.ChildByFieldName("value"), content); value != "" {
					return value
				}
			}
			continue
		}
		if firstString == "" {
			firstString = stringLiteral(arg, content)
		}
	}
	return firstString
}

// extractCapabilities pulls the string list passed to a capability-like
// keyword argument.
func extractCapabilities(call *sitter.Node, content []byte) []string {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return []string{}
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() != "keyword_argument" {
			continue
		}
		key := strings.ToLower(nodeText(arg.ChildByFieldName("name"), content))
		if _, ok := capabilityKeys[key]; !ok {
			continue
		}
		if items := stringListLiteral(arg.ChildByFieldName("value"), content); items != nil {
			return items
		}
	}
	return []string{}
}

func looksLikeMCP(callName string) bool {
	lower := strings.ToLower(callName)
	return strings.Contains(lower, "mcp") ||
		strings.Contains(lower, "modelcontext") ||
		strings.Contains(lower, "model_context")
}

// findMCPInTree walks a decoded configuration tree and collects map nodes
// that mention MCP in a key or carry an endpoint key. Visited container
// identities are tracked so aliased or cyclic structures are traversed
// once.
func findMCPInTree(node any, trail []string, visited map[uintptr]struct{}) []map[string]any {
	var entries []map[string]any

	switch typed := node.(type) {
	case map[string]any:
		ptr := reflect.ValueOf(typed).Pointer()
		if _, seen := visited[ptr]; seen {
			return nil
		}
		visited[ptr] = struct{}{}

		isMCP := false
		endpoint := ""
		for key, value := range typed {
			if strings.Contains(strings.ToLower(key), "mcp") {
				isMCP = true
			}
			if _, ok := endpointKeys[strings.ToLower(key)]; ok && endpoint == "" {
				if text, ok := value.(string); ok {
					endpoint = text
				}
			}
		}
		if isMCP || endpoint != "" {
			entry := map[string]any{
				"name":     entryName(typed, trail),
				"endpoint": endpoint,
			}
			for key, value := range typed {
				if _, ok := capabilityKeys[strings.ToLower(key)]; ok {
					if list, isList := value.([]any); isList {
						entry[key] = list
					}
				}
			}
			entries = append(entries, entry)
		}
		for _, key := range sortedKeys(typed) {
			entries = append(entries, findMCPInTree(typed[key], append(trail, key), visited)...)
		}
	case []any:
		ptr := reflect.ValueOf(typed).Pointer()
		if _, seen := visited[ptr]; seen {
			return nil
		}
		visited[ptr] = struct{}{}
		for i, value := range typed {
			entries = append(entries, findMCPInTree(value, append(trail, strconv.Itoa(i)), visited)...)
		}
	}
	return entries
}

func entryName(node map[string]any, trail []string) string {
	if name, ok := node["name"].(string); ok && name != "" {
		return name
	}
	if id, ok := node["id"].(string); ok && id != "" {
		return id
	}
	if len(trail) > 0 {
		return strings.Join(trail, ".")
	}
	return "mcp"
}

func sortedKeys(node map[string]any) []string {
	keys := make([]string, 0, len(node))
	for key := range node {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// scanTextForMCP is the fallback for unparseable configuration: a raw
// regex scan for mcp:// and http(s):// endpoints.
func scanTextForMCP(text, path string) []MCPServerFinding {
	var findings []MCPServerFinding
	for _, match := range mcpTextPattern.FindAllString(text, -1) {
		findings = append(findings, MCPServerFinding{
			Finding: Finding{
				Detector: "mcp",
				Name:     "mcp_endpoint",
				Location: path + ":?",
				Metadata: map[string]any{"extracted_from": "text"},
			},
			Endpoint: match,
		})
	}
	return findings
}
