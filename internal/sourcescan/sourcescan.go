// Package sourcescan discovers tool definitions and MCP endpoints in a
// project's source tree and configuration files. Findings use a
// detector-local shape; the detector layer lifts them into the domain
// model.
package sourcescan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Finding is the base record produced by source scanners.
type Finding struct {
	Detector string         `json:"detector"`
	Name     string         `json:"name"`
	Location string         `json:"location"`
	Metadata map[string]any `json:"metadata"`
}

// ToolFinding marks a tool definition discovered in source code.
type ToolFinding struct {
	Finding
	DefinitionType string `json:"definition_type"`
}

// Tool definition kinds.
const (
	DefinitionFunction   = "function"
	DefinitionClass      = "class"
	DefinitionAssignment = "assignment"
)

// MCPServerFinding marks an MCP server or client reference.
type MCPServerFinding struct {
	Finding
	Endpoint string `json:"endpoint,omitempty"`
}

// FormatLocation renders a path plus optional 1-based line number.
func FormatLocation(path string, line int) string {
	if line > 0 {
		return fmt.Sprintf("%s:%d", path, line)
	}
	return path
}

// SourceWalker yields files under a set of paths, filtered by extension.
type SourceWalker struct {
	extensions map[string]struct{}
}

// NewSourceWalker creates a walker restricted to the given extensions
// (".py", ".json", ...). With no extensions every file is included.
func NewSourceWalker(extensions ...string) *SourceWalker {
	walker := &SourceWalker{}
	if len(extensions) > 0 {
		walker.extensions = make(map[string]struct{}, len(extensions))
		for _, ext := range extensions {
			walker.extensions[ext] = struct{}{}
		}
	}
	return walker
}

// IterFiles returns the files under paths that pass the extension filter.
// Directory contents are returned in sorted order so scans are stable.
func (w *SourceWalker) IterFiles(paths []string) []string {
	var files []string
	for _, raw := range paths {
		info, err := os.Stat(raw)
		if err != nil {
			continue
		}
		if info.IsDir() {
			filepath.WalkDir(raw, func(path string, entry fs.DirEntry, err error) error {
				if err != nil || entry.IsDir() {
					return nil
				}
				if w.include(path) {
					files = append(files, path)
				}
				return nil
			})
		} else if w.include(raw) {
			files = append(files, raw)
		}
	}
	sort.Strings(files)
	return files
}

func (w *SourceWalker) include(path string) bool {
	if w.extensions == nil {
		return true
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// NormalizeString lowercases and trims a string for comparisons.
func NormalizeString(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
