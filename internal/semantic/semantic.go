package semantic

import (
	"fmt"

	"toyc/internal/ast"
)

// ---------------------------------------------------------------------------
// Diagnostic severity
// ---------------------------------------------------------------------------

// Severity indicates whether a diagnostic is an error or a warning.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// Diagnostic
// ---------------------------------------------------------------------------

// Diagnostic represents a single message produced by the semantic analyser.
type Diagnostic struct {
	Message  string
	Pos      ast.Position
	Severity Severity
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("line %d, col %d: %s: %s", d.Pos.Line, d.Pos.Column, d.Severity, d.Message)
}

// ---------------------------------------------------------------------------
// Analyser
// ---------------------------------------------------------------------------

// Analyzer holds the state for a single semantic-analysis pass. It does not
// resolve references: binding order is checked during lowering.
type Analyzer struct {
	diagnostics []Diagnostic
	assigned    map[string]ast.Position // first assignment of each variable
	order       []string
	read        map[string]bool
}

// Analyze runs semantic analysis on the given AST program and returns its
// diagnostics. None of them stop compilation.  The returned slice is empty
// when the program has nothing worth reporting.
func Analyze(program *ast.Program) []Diagnostic {
	a := &Analyzer{
		assigned: map[string]ast.Position{},
		read:     map[string]bool{},
	}
	a.analyzeStatements(program.Body)
	for _, name := range a.order {
		if !a.read[name] {
			a.warn(a.assigned[name], fmt.Sprintf("variable %q is assigned but never read", name))
		}
	}
	return a.diagnostics
}

// ---- helpers ----

func (a *Analyzer) warn(pos ast.Position, msg string) {
	a.diagnostics = append(a.diagnostics, Diagnostic{
		Message:  msg,
		Pos:      pos,
		Severity: Warning,
	})
}

func (a *Analyzer) define(name string, pos ast.Position) {
	if _, ok := a.assigned[name]; !ok {
		a.assigned[name] = pos
		a.order = append(a.order, name)
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (a *Analyzer) analyzeStatements(list *ast.Statements) {
	returned := false
	for _, stmt := range list.Items {
		if returned {
			a.warn(stmt.GetPos(), "unreachable code after return")
			returned = false // one warning per run of dead statements
		}
		a.analyzeStmt(stmt)
		if a.stmtReturns(stmt) {
			returned = true
		}
	}
}

func (a *Analyzer) analyzeStmt(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.Assignment:
		a.analyzeAssignment(s)
	case *ast.IfStatement:
		a.analyzeCondition(s.Condition)
		a.analyzeStatements(s.Body)
	case *ast.ForStatement:
		a.analyzeAssignment(s.Init)
		a.analyzeCondition(s.Condition)
		a.analyzeStatements(s.Body)
		switch st := s.Step.(type) {
		case *ast.Assignment:
			a.analyzeAssignment(st)
		case *ast.Expr:
			a.analyzeExpr(st)
			a.warn(st.Pos, fmt.Sprintf("for step %q has no effect", st.String()))
		}
	case *ast.ReturnStatement:
		a.analyzeRvalue(s.Value)
	}
}

func (a *Analyzer) analyzeAssignment(s *ast.Assignment) {
	a.analyzeRvalue(s.Value)
	a.define(s.Name, s.Pos)
}

func (a *Analyzer) analyzeCondition(e *ast.Expr) {
	a.analyzeExpr(e)
	if isConstant(e) {
		a.warn(e.Pos, fmt.Sprintf("condition %q is constant", e.String()))
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (a *Analyzer) analyzeRvalue(rv ast.Rvalue) {
	switch v := rv.(type) {
	case *ast.Reference:
		a.read[v.Name] = true
	case *ast.Expr:
		a.analyzeExpr(v)
	}
}

func (a *Analyzer) analyzeExpr(e *ast.Expr) {
	a.analyzeRvalue(e.Left)
	a.analyzeRvalue(e.Right)
	if e.Equals != nil {
		a.analyzeRvalue(e.Equals)
		a.warn(e.Pos, fmt.Sprintf("trailing '= %s' replaces the value of %q with %s == %s",
			e.Equals, e.Left.String()+" "+e.Operator.Symbol()+" "+e.Right.String(), e.Left, e.Equals))
	}
	if op, ok := e.Operator.(*ast.Arithmetic); ok && op.Op == ast.Div {
		if lit, ok := e.Right.(*ast.Literal); ok && lit.Value == 0 {
			a.warn(e.Right.GetPos(), "division by zero")
		}
	}
}

// isConstant reports whether e reads no variables.
func isConstant(e *ast.Expr) bool {
	return len(ast.References(e)) == 0
}

// ---------------------------------------------------------------------------
// Return-path analysis
// ---------------------------------------------------------------------------

// stmtReturns reports whether a statement unconditionally returns. There is
// no else arm, so only a return statement qualifies.
func (a *Analyzer) stmtReturns(stmt ast.Statement) bool {
	_, ok := stmt.(*ast.ReturnStatement)
	return ok
}
