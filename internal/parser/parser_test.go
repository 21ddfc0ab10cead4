package parser_test

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toyc/internal/ast"
	"toyc/internal/lexer"
	"toyc/internal/parser"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var ignorePos = cmpopts.IgnoreTypes(ast.Position{})

func parseInput(t *testing.T, input string) *ast.Program {
	t.Helper()
	tokens, err := lexer.Tokenize(input)
	require.NoError(t, err)
	prog, err := parser.ParseTokens(tokens)
	require.NoError(t, err)
	return prog
}

func parseInputExpectError(t *testing.T, input string) *parser.SyntaxError {
	t.Helper()
	_, err := parser.Parse(lexer.New(input))
	require.Error(t, err)
	synErr, ok := err.(*parser.SyntaxError)
	require.True(t, ok, "expected *parser.SyntaxError, got %T: %v", err, err)
	return synErr
}

func ref(name string) *ast.Reference { return &ast.Reference{Name: name} }
func lit(v int32) *ast.Literal       { return &ast.Literal{Value: v} }
func cmpOp(op ast.CmpOp) *ast.Comparison {
	return &ast.Comparison{Op: op}
}
func arith(op ast.ArithOp) *ast.Arithmetic {
	return &ast.Arithmetic{Op: op}
}
func body(items ...ast.Statement) *ast.Statements {
	return &ast.Statements{Items: items}
}

func assertTree(t *testing.T, want, got *ast.Program) {
	t.Helper()
	if diff := cmp.Diff(want, got, ignorePos); diff != "" {
		t.Fatalf("AST mismatch (-want +got):\n%s\ngot:\n%s", diff, spew.Sdump(got))
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func TestParseAssignment(t *testing.T) {
	prog := parseInput(t, "x = 10;")
	assertTree(t, &ast.Program{Body: body(
		&ast.Assignment{Name: "x", Value: lit(10)},
	)}, prog)
}

func TestParseIfAndReturn(t *testing.T) {
	prog := parseInput(t, "x = 10; if (x > 5) { y = 1; } return y;")
	assertTree(t, &ast.Program{Body: body(
		&ast.Assignment{Name: "x", Value: lit(10)},
		&ast.IfStatement{
			Condition: &ast.Expr{Left: ref("x"), Operator: cmpOp(ast.Gt), Right: lit(5)},
			Body:      body(&ast.Assignment{Name: "y", Value: lit(1)}),
		},
		&ast.ReturnStatement{Value: ref("y")},
	)}, prog)
}

func TestParseForWithAssignmentStep(t *testing.T) {
	prog := parseInput(t, "for (i = 0; i < 2; i = i + 1) { c = c + 1; }")
	assertTree(t, &ast.Program{Body: body(
		&ast.ForStatement{
			Init:      &ast.Assignment{Name: "i", Value: lit(0)},
			Condition: &ast.Expr{Left: ref("i"), Operator: cmpOp(ast.Lt), Right: lit(2)},
			Step: &ast.Assignment{Name: "i", Value: &ast.Expr{
				Left: ref("i"), Operator: arith(ast.Add), Right: lit(1),
			}},
			Body: body(&ast.Assignment{Name: "c", Value: &ast.Expr{
				Left: ref("c"), Operator: arith(ast.Add), Right: lit(1),
			}}),
		},
	)}, prog)
}

func TestParseForWithExprStep(t *testing.T) {
	prog := parseInput(t, "for (i = 0; i <= 9; i + 1) { }")
	loop, ok := prog.Body.Items[0].(*ast.ForStatement)
	require.True(t, ok)
	step, ok := loop.Step.(*ast.Expr)
	require.True(t, ok, "step should be an Expr, got %T", loop.Step)
	assert.Equal(t, "i + 1", step.String())
	assert.Empty(t, loop.Body.Items)
}

func TestParseNestedBlocks(t *testing.T) {
	prog := parseInput(t, `
		a = 0
		for (i = 0; i < 10; i = i + 1) {
			if (i == 3) { return i }
			a = a + i
		}
		return a`)
	require.Len(t, prog.Body.Items, 3)
	loop := prog.Body.Items[1].(*ast.ForStatement)
	require.Len(t, loop.Body.Items, 2)
	inner := loop.Body.Items[0].(*ast.IfStatement)
	assert.Equal(t, "i == 3", inner.Condition.String())
	assert.IsType(t, &ast.ReturnStatement{}, inner.Body.Items[0])
}

func TestParseKeywordsAnyCase(t *testing.T) {
	prog := parseInput(t, "x = 10; IF (x > 5) { FOR (i = 0; i < 2; i = i + 1) { } RETURN x; }")
	ifStmt := prog.Body.Items[1].(*ast.IfStatement)
	require.Len(t, ifStmt.Body.Items, 2)
	assert.IsType(t, &ast.ForStatement{}, ifStmt.Body.Items[0])
	assert.IsType(t, &ast.ReturnStatement{}, ifStmt.Body.Items[1])
}

func TestParseSemicolonsOptional(t *testing.T) {
	withSemis := parseInput(t, "a = 1; b = a; return b;")
	without := parseInput(t, "a = 1 b = a return b")
	assertTree(t, withSemis, without)
}

func TestParseEmptyProgram(t *testing.T) {
	prog := parseInput(t, "")
	assert.Empty(t, prog.Body.Items)
}

func TestParsePositions(t *testing.T) {
	prog := parseInput(t, "x = 1;\nreturn x")
	ret := prog.Body.Items[1].(*ast.ReturnStatement)
	assert.Equal(t, ast.Position{Offset: 7, Line: 2, Column: 1}, ret.Pos)
	assert.Equal(t, ast.Position{Offset: 14, Line: 2, Column: 8}, ret.Value.GetPos())
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func TestParseAllOperators(t *testing.T) {
	tests := []struct {
		src  string
		want ast.Operator
	}{
		{"if (a < b) { }", cmpOp(ast.Lt)},
		{"if (a > b) { }", cmpOp(ast.Gt)},
		{"if (a <= b) { }", cmpOp(ast.Le)},
		{"if (a >= b) { }", cmpOp(ast.Ge)},
		{"if (a == b) { }", cmpOp(ast.Eq)},
		{"if (a + b) { }", arith(ast.Add)},
		{"if (a - b) { }", arith(ast.Sub)},
		{"if (a * b) { }", arith(ast.Mul)},
		{"if (a / b) { }", arith(ast.Div)},
	}
	for _, tt := range tests {
		prog := parseInput(t, tt.src)
		got := prog.Body.Items[0].(*ast.IfStatement).Condition.Operator
		if diff := cmp.Diff(tt.want, got, ignorePos); diff != "" {
			t.Errorf("%s: operator mismatch (-want +got):\n%s", tt.src, diff)
		}
	}
}

func TestParseEqualityOverride(t *testing.T) {
	prog := parseInput(t, "if (a + 1 = 4) { }")
	cond := prog.Body.Items[0].(*ast.IfStatement).Condition
	if diff := cmp.Diff(&ast.Expr{
		Left: ref("a"), Operator: arith(ast.Add), Right: lit(1), Equals: lit(4),
	}, cond, ignorePos); diff != "" {
		t.Fatalf("condition mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "a + 1 = 4", cond.String())
}

func TestParseAssignmentOfExpr(t *testing.T) {
	prog := parseInput(t, "d = c - 1 return d * 2")
	assign := prog.Body.Items[0].(*ast.Assignment)
	assert.IsType(t, &ast.Expr{}, assign.Value)
	ret := prog.Body.Items[1].(*ast.ReturnStatement)
	assert.Equal(t, "d * 2", ret.Value.String())
}

func TestParseMaxInt32Literal(t *testing.T) {
	prog := parseInput(t, "x = 2147483647")
	assign := prog.Body.Items[0].(*ast.Assignment)
	assert.Equal(t, int32(2147483647), assign.Value.(*ast.Literal).Value)
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestErrorMissingOperand(t *testing.T) {
	err := parseInputExpectError(t, "x = ;")
	assert.Equal(t, "assignment", err.Production)
	assert.Equal(t, "IDENT or NUMBER", err.Expected)
	assert.Equal(t, lexer.SEMICOLON, err.Found.Kind)
	assert.Equal(t, 4, err.Found.Offset)
	assert.Contains(t, err.Error(), `expected IDENT or NUMBER, found SEMICOLON ";"`)
}

func TestErrorBadStatementStart(t *testing.T) {
	err := parseInputExpectError(t, "5 = x")
	assert.Equal(t, "statement", err.Production)
	assert.Equal(t, lexer.NUMBER, err.Found.Kind)
}

func TestErrorMissingRParen(t *testing.T) {
	err := parseInputExpectError(t, "if (x > 1 { }")
	assert.Equal(t, "if statement", err.Production)
	assert.Equal(t, "RPAREN", err.Expected)
	assert.Equal(t, lexer.LBRACE, err.Found.Kind)
}

func TestErrorConditionWithoutOperator(t *testing.T) {
	err := parseInputExpectError(t, "if (x) { }")
	assert.Equal(t, "LOGIC_OP or ARITHM_OP", err.Expected)
	assert.Equal(t, lexer.RPAREN, err.Found.Kind)
}

func TestErrorUnclosedBlock(t *testing.T) {
	err := parseInputExpectError(t, "if (x > 1) { y = 2;")
	assert.Equal(t, "RBRACE", err.Expected)
	assert.Equal(t, lexer.EOF, err.Found.Kind)
	assert.Contains(t, err.Error(), "found EOF")
}

func TestErrorStrayRBrace(t *testing.T) {
	err := parseInputExpectError(t, "x = 1; }")
	assert.Equal(t, "program", err.Production)
	assert.Equal(t, "EOF", err.Expected)
	assert.Equal(t, lexer.RBRACE, err.Found.Kind)
}

func TestErrorElseIsNotSupported(t *testing.T) {
	err := parseInputExpectError(t, "if (x > 1) { y = 1; } else { y = 2; }")
	assert.Equal(t, "ASSIGN", err.Expected)
	assert.Equal(t, lexer.LBRACE, err.Found.Kind)
}

func TestErrorForStepWithoutOperator(t *testing.T) {
	err := parseInputExpectError(t, "for (i = 0; i < 3; 7) { }")
	assert.Equal(t, "for statement", err.Production)
	assert.Equal(t, lexer.RPAREN, err.Found.Kind)
}

func TestErrorLiteralOutOfRange(t *testing.T) {
	err := parseInputExpectError(t, "x = 2147483648")
	assert.Equal(t, "NUMBER in 32-bit range", err.Expected)
	assert.Equal(t, "2147483648", err.Found.Text)
}

func TestLexicalErrorSurfacesThroughParse(t *testing.T) {
	_, err := parser.Parse(lexer.New("x = 1; y = #"))
	require.Error(t, err)
	lexErr, ok := err.(*lexer.Error)
	require.True(t, ok, "expected *lexer.Error, got %T", err)
	assert.Equal(t, 11, lexErr.Offset)
}

// ---------------------------------------------------------------------------
// Properties
// ---------------------------------------------------------------------------

func TestParseIsDeterministic(t *testing.T) {
	src := "c = 0; for (i = 0; i < 2; i = i + 1) { if (c >= 1) { c = c * 2 = 4; } } return c"
	first := parseInput(t, src)
	second := parseInput(t, src)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("parses differ:\n%s", diff)
	}
}

func TestRenderedSourceReparses(t *testing.T) {
	src := "x = 10; if (x > 5) { y = x - 1 = 9; } for (i = 0; i < 2; i = i + 1) { } return y"
	prog := parseInput(t, src)
	again := parseInput(t, prog.String())
	assertTree(t, prog, again)
}
