package sourcescan

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// parsePython parses Python source into a tree-sitter tree. A nil tree
// means the file could not be parsed and should be skipped.
func parsePython(content []byte) *sitter.Tree {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil
	}
	return tree
}

func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return string(content[node.StartByte():node.EndByte()])
}

// nameFromNode resolves the dotted name of an identifier, attribute chain
// or call target. Unsupported shapes fall back to their raw source text.
func nameFromNode(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "identifier":
		return nodeText(node, content)
	case "attribute":
		parent := nameFromNode(node.ChildByFieldName("object"), content)
		attr := nodeText(node.ChildByFieldName("attribute"), content)
		if parent != "" {
			return parent + "." + attr
		}
		return attr
	case "call":
		return nameFromNode(node.ChildByFieldName("function"), content)
	}
	return nodeText(node, content)
}

// stringLiteral unquotes a Python string node; returns "" when the node
// is not a plain string literal.
func stringLiteral(node *sitter.Node, content []byte) string {
	if node == nil || node.Type() != "string" {
		return ""
	}
	text := nodeText(node, content)
	// Strip string prefixes (r, b, f, u) and matching quotes.
	text = strings.TrimLeft(text, "rRbBfFuU")
	for _, quote := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(text, quote) && strings.HasSuffix(text, quote) && len(text) >= 2*len(quote) {
			return text[len(quote) : len(text)-len(quote)]
		}
	}
	return text
}

// literalFromNode extracts a literal value for finding metadata: strings,
// numbers and booleans verbatim, lists and dicts recursively, and names
// for everything else.
func literalFromNode(node *sitter.Node, content []byte) any {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "string":
		return stringLiteral(node, content)
	case "integer", "float", "true", "false", "none":
		return nodeText(node, content)
	case "list", "tuple":
		items := make([]any, 0, node.NamedChildCount())
		for i := 0; i < int(node.NamedChildCount()); i++ {
			items = append(items, literalFromNode(node.NamedChild(i), content))
		}
		return items
	case "dictionary":
		entries := map[string]any{}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			pair := node.NamedChild(i)
			if pair.Type() != "pair" {
				continue
			}
			key := literalFromNode(pair.ChildByFieldName("key"), content)
			keyText, ok := key.(string)
			if !ok {
				keyText = nodeText(pair.ChildByFieldName("key"), content)
			}
			entries[keyText] = literalFromNode(pair.ChildByFieldName("value"), content)
		}
		return entries
	}
	return nameFromNode(node, content)
}

// stringListLiteral extracts the string elements of a list or tuple node.
func stringListLiteral(node *sitter.Node, content []byte) []string {
	if node == nil {
		return nil
	}
	if node.Type() != "list" && node.Type() != "tuple" {
		return nil
	}
	var items []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if value := stringLiteral(node.NamedChild(i), content); value != "" {
			items = append(items, value)
		}
	}
	return items
}

// docstring returns the leading string literal of a function or class
// body, if any.
func docstring(body *sitter.Node, content []byte) string {
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	return stringLiteral(first.NamedChild(0), content)
}

// walkTree visits every named node in depth-first order.
func walkTree(node *sitter.Node, visit func(*sitter.Node)) {
	if node == nil {
		return
	}
	visit(node)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		walkTree(node.NamedChild(i), visit)
	}
}
