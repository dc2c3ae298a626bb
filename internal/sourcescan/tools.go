package sourcescan

import (
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

var (
	toolDecoratorKeywords = []string{"tool", "register_tool", "langchain.tool", "lc_tool"}
	toolClassSuffixes     = []string{"Tool", "BaseTool"}
	toolCallNames         = map[string]struct{}{
		"Tool":           {},
		"StructuredTool": {},
		"PythonREPLTool": {},
		"BaseTool":       {},
	}
)

// ToolDetector discovers tool definitions in Python source files: decorated
// functions, Tool-derived classes and assignments of tool constructor calls.
type ToolDetector struct {
	walker *SourceWalker
}

// NewToolDetector creates a ToolDetector.
func NewToolDetector() *ToolDetector {
	return &ToolDetector{walker: NewSourceWalker(".py")}
}

// ScanPaths walks the given paths and returns every tool definition found.
func (d *ToolDetector) ScanPaths(paths []string) []ToolFinding {
	var findings []ToolFinding
	for _, path := range d.walker.IterFiles(paths) {
		findings = append(findings, d.scanFile(path)...)
	}
	return findings
}

func (d *ToolDetector) scanFile(path string) []ToolFinding {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	tree := parsePython(content)
	if tree == nil {
		return nil
	}
	defer tree.Close()

	var findings []ToolFinding
	walkTree(tree.RootNode(), func(node *sitter.Node) {
		switch node.Type() {
		case "decorated_definition":
			if finding := d.inspectDecorated(node, path, content); finding != nil {
				findings = append(findings, *finding)
			}
		case "class_definition":
			if finding := d.inspectClass(node, path, content); finding != nil {
				findings = append(findings, *finding)
			}
		case "assignment":
			if finding := d.inspectAssignment(node, path, content); finding != nil {
				findings = append(findings, *finding)
			}
		}
	})
	return findings
}

// inspectDecorated reports decorated functions (including coroutines)
// whose decorator name looks like a tool registration.
func (d *ToolDetector) inspectDecorated(node *sitter.Node, path string, content []byte) *ToolFinding {
	definition := node.ChildByFieldName("definition")
	if definition == nil || definition.Type() != "function_definition" {
		return nil
	}

	var decorators []string
	matched := false
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "decorator" {
			continue
		}
		name := decoratorName(child, content)
		decorators = append(decorators, name)
		if isToolDecorator(name) {
			matched = true
		}
	}
	if !matched {
		return nil
	}

	name := nodeText(definition.ChildByFieldName("name"), content)
	doc := docstring(definition.ChildByFieldName("body"), content)
	return &ToolFinding{
		Finding: Finding{
			Detector: "tool",
			Name:     name,
			Location: FormatLocation(path, int(node.StartPoint().Row)+1),
			Metadata: map[string]any{
				"decorators": decorators,
				"docstring":  doc,
			},
		},
		DefinitionType: DefinitionFunction,
	}
}

// inspectClass reports classes whose base name ends in Tool or BaseTool.
func (d *ToolDetector) inspectClass(node *sitter.Node, path string, content []byte) *ToolFinding {
	superclasses := node.ChildByFieldName("superclasses")
	if superclasses == nil {
		return nil
	}
	var bases []string
	matched := false
	for i := 0; i < int(superclasses.NamedChildCount()); i++ {
		base := nameFromNode(superclasses.NamedChild(i), content)
		bases = append(bases, base)
		if isToolClass(base) {
			matched = true
		}
	}
	if !matched {
		return nil
	}
	return &ToolFinding{
		Finding: Finding{
			Detector: "tool",
			Name:     nodeText(node.ChildByFieldName("name"), content),
			Location: FormatLocation(path, int(node.StartPoint().Row)+1),
			Metadata: map[string]any{"bases": bases},
		},
		DefinitionType: DefinitionClass,
	}
}

// inspectAssignment reports assignments whose right-hand side constructs
// a tool object.
func (d *ToolDetector) inspectAssignment(node *sitter.Node, path string, content []byte) *ToolFinding {
	right := node.ChildByFieldName("right")
	if right == nil || right.Type() != "call" {
		return nil
	}
	callName := nameFromNode(right.ChildByFieldName("function"), content)
	if !isToolCall(callName) {
		return nil
	}

	target := nameFromNode(node.ChildByFieldName("left"), content)
	keywords := map[string]any{}
	if args := right.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			arg := args.NamedChild(i)
			if arg.Type() != "keyword_argument" {
				continue
			}
			key := nodeText(arg.ChildByFieldName("name"), content)
			keywords[key] = literalFromNode(arg.ChildByFieldName("value"), content)
		}
	}

	name := target
	if name == "" {
		name = callName
	}
	return &ToolFinding{
		Finding: Finding{
			Detector: "tool",
			Name:     name,
			Location: FormatLocation(path, int(node.StartPoint().Row)+1),
			Metadata: map[string]any{
				"call":     callName,
				"keywords": keywords,
			},
		},
		DefinitionType: DefinitionAssignment,
	}
}

// decoratorName returns the dotted name of a decorator expression without
// the leading "@".
func decoratorName(node *sitter.Node, content []byte) string {
	if node.NamedChildCount() > 0 {
		return nameFromNode(node.NamedChild(0), content)
	}
	return strings.TrimPrefix(nodeText(node, content), "@")
}

func isToolDecorator(name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, keyword := range toolDecoratorKeywords {
		if strings.HasSuffix(lower, keyword) || strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func isToolClass(name string) bool {
	if name == "" {
		return false
	}
	for _, suffix := range toolClassSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func isToolCall(name string) bool {
	if name == "" {
		return false
	}
	parts := strings.Split(name, ".")
	leaf := parts[len(parts)-1]
	if _, ok := toolCallNames[leaf]; ok {
		return true
	}
	return strings.HasSuffix(strings.ToLower(leaf), "tool")
}
