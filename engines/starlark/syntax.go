package starlark

import (
	"fmt"
	"strings"

	"go.starlark.net/syntax"
)

// node is the JSON form of a syntax tree node.
type node struct {
	Type     string `json:"Type"`
	Value    string `json:"Value,omitempty"`
	Line     int32  `json:"Line"`
	Col      int32  `json:"Col"`
	Children []node `json:"Children,omitempty"`
}

func describe(n syntax.Node) node {
	start, _ := n.Span()
	out := node{
		Type: typeName(n),
		Line: start.Line,
		Col:  start.Col,
	}

	switch v := n.(type) {
	case *syntax.Ident:
		out.Value = v.Name
	case *syntax.Literal:
		out.Value = v.Raw
	case *syntax.BinaryExpr:
		out.Value = v.Op.String()
	case *syntax.UnaryExpr:
		out.Value = v.Op.String()
	case *syntax.AssignStmt:
		out.Value = v.Op.String()
	case *syntax.BranchStmt:
		out.Value = v.Token.String()
	}

	for _, child := range children(n) {
		out.Children = append(out.Children, describe(child))
	}
	return out
}

// children returns the direct, non-nil children of n.
func children(n syntax.Node) []syntax.Node {
	var out []syntax.Node
	syntax.Walk(n, func(c syntax.Node) bool {
		if c == nil {
			return false
		}
		if c == n {
			return true
		}
		out = append(out, c)
		return false
	})
	return out
}

func typeName(n syntax.Node) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", n), "*syntax.")
}
