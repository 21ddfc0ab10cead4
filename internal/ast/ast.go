package ast

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Source position
// ---------------------------------------------------------------------------

// Position is the location of a node's first token. Offset is a 0-based byte
// offset; Line and Column are 1-based.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// ---------------------------------------------------------------------------
// Interfaces
//
// Each grammar nonterminal with alternatives is a closed set of node types,
// sealed by an unexported marker method.
// ---------------------------------------------------------------------------

// Node is implemented by every AST node.
type Node interface {
	GetPos() Position
	String() string
}

// Statement is one of *Assignment, *IfStatement, *ForStatement or
// *ReturnStatement.
type Statement interface {
	Node
	stmtNode()
}

// Rvalue is anything that produces a value: an Operand or an *Expr.
type Rvalue interface {
	Node
	rvalueNode()
}

// Operand is one of *Literal or *Reference.
type Operand interface {
	Rvalue
	operandNode()
}

// Operator is one of *Comparison or *Arithmetic.
type Operator interface {
	Node
	Symbol() string
	operatorNode()
}

// Step is the third clause of a for statement: an *Expr or an *Assignment.
type Step interface {
	Node
	stepNode()
}

// ---------------------------------------------------------------------------
// Program (root)
// ---------------------------------------------------------------------------

type Program struct {
	Body *Statements
	Pos  Position
}

func (n *Program) GetPos() Position { return n.Pos }
func (n *Program) String() string   { return n.Body.String() }

// Statements is an ordered statement list; order is execution order.
type Statements struct {
	Items []Statement
	Pos   Position
}

func (n *Statements) GetPos() Position { return n.Pos }

func (n *Statements) String() string {
	s := ""
	for i, item := range n.Items {
		if i > 0 {
			s += " "
		}
		s += item.String()
		if _, ok := item.(*Assignment); ok {
			s += ";"
		} else if _, ok := item.(*ReturnStatement); ok {
			s += ";"
		}
	}
	return s
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Assignment: <name> = <value>
type Assignment struct {
	Name  string
	Value Rvalue
	Pos   Position
}

func (n *Assignment) GetPos() Position { return n.Pos }
func (n *Assignment) String() string   { return n.Name + " = " + n.Value.String() }
func (n *Assignment) stmtNode()        {}
func (n *Assignment) stepNode()        {}

// IfStatement: if (<cond>) { <body> }. There is no else arm.
type IfStatement struct {
	Condition *Expr
	Body      *Statements
	Pos       Position
}

func (n *IfStatement) GetPos() Position { return n.Pos }
func (n *IfStatement) String() string {
	return "if (" + n.Condition.String() + ") { " + bodyString(n.Body) + "}"
}
func (n *IfStatement) stmtNode() {}

// ForStatement: for (<init>; <cond>; <step>) { <body> }
type ForStatement struct {
	Init      *Assignment
	Condition *Expr
	Step      Step
	Body      *Statements
	Pos       Position
}

func (n *ForStatement) GetPos() Position { return n.Pos }
func (n *ForStatement) String() string {
	return "for (" + n.Init.String() + "; " + n.Condition.String() + "; " + n.Step.String() + ") { " + bodyString(n.Body) + "}"
}
func (n *ForStatement) stmtNode() {}

// ReturnStatement: return <value>
type ReturnStatement struct {
	Value Rvalue
	Pos   Position
}

func (n *ReturnStatement) GetPos() Position { return n.Pos }
func (n *ReturnStatement) String() string   { return "return " + n.Value.String() }
func (n *ReturnStatement) stmtNode()        {}

func bodyString(body *Statements) string {
	if len(body.Items) == 0 {
		return ""
	}
	return body.String() + " "
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Expr is exactly one binary operation over two operands.
//
// Equals holds the operand of the trailing "= <operand>" form. When it is
// set, the value of the whole expression is Left == Equals and the result
// of Operator is discarded. This equality override is kept as written by
// the grammar; it is a candidate for removal in a grammar cleanup.
type Expr struct {
	Left     Operand
	Operator Operator
	Right    Operand
	Equals   Operand // nil unless the equality override is present
	Pos      Position
}

func (n *Expr) GetPos() Position { return n.Pos }
func (n *Expr) String() string {
	s := n.Left.String() + " " + n.Operator.Symbol() + " " + n.Right.String()
	if n.Equals != nil {
		s += " = " + n.Equals.String()
	}
	return s
}
func (n *Expr) rvalueNode() {}
func (n *Expr) stepNode()   {}

// Literal is a 32-bit integer constant.
type Literal struct {
	Value int32
	Pos   Position
}

func (n *Literal) GetPos() Position { return n.Pos }
func (n *Literal) String() string   { return strconv.FormatInt(int64(n.Value), 10) }
func (n *Literal) rvalueNode()      {}
func (n *Literal) operandNode()     {}

// Reference names a variable.
type Reference struct {
	Name string
	Pos  Position
}

func (n *Reference) GetPos() Position { return n.Pos }
func (n *Reference) String() string   { return n.Name }
func (n *Reference) rvalueNode()      {}
func (n *Reference) operandNode()     {}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

// CmpOp is a comparison operator symbol.
type CmpOp string

const (
	Lt CmpOp = "<"
	Gt CmpOp = ">"
	Le CmpOp = "<="
	Ge CmpOp = ">="
	Eq CmpOp = "=="
)

// ArithOp is an arithmetic operator symbol.
type ArithOp string

const (
	Add ArithOp = "+"
	Sub ArithOp = "-"
	Mul ArithOp = "*"
	Div ArithOp = "/"
)

type Comparison struct {
	Op  CmpOp
	Pos Position
}

func (n *Comparison) GetPos() Position { return n.Pos }
func (n *Comparison) String() string   { return string(n.Op) }
func (n *Comparison) Symbol() string   { return string(n.Op) }
func (n *Comparison) operatorNode()    {}

type Arithmetic struct {
	Op  ArithOp
	Pos Position
}

func (n *Arithmetic) GetPos() Position { return n.Pos }
func (n *Arithmetic) String() string   { return string(n.Op) }
func (n *Arithmetic) Symbol() string   { return string(n.Op) }
func (n *Arithmetic) operatorNode()    {}
