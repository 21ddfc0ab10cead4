package ast

import (
	"fmt"
	"strings"
)

// Walk traverses the tree rooted at n in depth-first source order. If fn
// returns false the children of that node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *Program:
		Walk(n.Body, fn)
	case *Statements:
		for _, item := range n.Items {
			Walk(item, fn)
		}
	case *Assignment:
		Walk(n.Value, fn)
	case *IfStatement:
		Walk(n.Condition, fn)
		Walk(n.Body, fn)
	case *ForStatement:
		Walk(n.Init, fn)
		Walk(n.Condition, fn)
		Walk(n.Step, fn)
		Walk(n.Body, fn)
	case *ReturnStatement:
		Walk(n.Value, fn)
	case *Expr:
		Walk(n.Left, fn)
		Walk(n.Operator, fn)
		Walk(n.Right, fn)
		if n.Equals != nil {
			Walk(n.Equals, fn)
		}
	}
}

// References returns the variable references read by n, in source order.
// Nested statement bodies are included.
func References(n Node) []*Reference {
	var refs []*Reference
	Walk(n, func(n Node) bool {
		if r, ok := n.(*Reference); ok {
			refs = append(refs, r)
		}
		return true
	})
	return refs
}

// DebugString returns a readable multi-line representation of the AST.
func DebugString(prog *Program) string {
	var b strings.Builder
	b.WriteString("Program\n")
	debugStatements(&b, prog.Body, 1)
	return b.String()
}

func writeIndent(b *strings.Builder, level int) {
	for i := 0; i < level; i++ {
		b.WriteString("  ")
	}
}

func debugStatements(b *strings.Builder, body *Statements, level int) {
	writeIndent(b, level)
	fmt.Fprintf(b, "Statements [%d]\n", len(body.Items))
	for _, s := range body.Items {
		debugStmt(b, s, level+1)
	}
}

func debugStmt(b *strings.Builder, s Statement, level int) {
	writeIndent(b, level)
	switch s := s.(type) {
	case *Assignment:
		fmt.Fprintf(b, "Assignment %s = %s\n", s.Name, s.Value)
	case *ReturnStatement:
		fmt.Fprintf(b, "ReturnStatement %s\n", s.Value)
	case *IfStatement:
		fmt.Fprintf(b, "IfStatement (%s)\n", debugExpr(s.Condition))
		debugStatements(b, s.Body, level+1)
	case *ForStatement:
		b.WriteString("ForStatement\n")
		writeIndent(b, level+1)
		fmt.Fprintf(b, "Init: %s\n", s.Init)
		writeIndent(b, level+1)
		fmt.Fprintf(b, "Cond: %s\n", debugExpr(s.Condition))
		writeIndent(b, level+1)
		fmt.Fprintf(b, "Step: %s\n", s.Step)
		debugStatements(b, s.Body, level+1)
	default:
		fmt.Fprintf(b, "<unknown statement %T>\n", s)
	}
}

func debugExpr(e *Expr) string {
	kind := "arith"
	if _, ok := e.Operator.(*Comparison); ok {
		kind = "cmp"
	}
	if e.Equals != nil {
		return fmt.Sprintf("%s [%s, overridden by %s == %s]", e, kind, e.Left, e.Equals)
	}
	return fmt.Sprintf("%s [%s]", e, kind)
}
