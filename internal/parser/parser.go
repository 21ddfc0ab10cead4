package parser

import (
	"fmt"
	"strconv"

	"toyc/internal/ast"
	"toyc/internal/lexer"
)

// ---------------------------------------------------------------------------
// SyntaxError
// ---------------------------------------------------------------------------

// SyntaxError reports the first token that does not fit the grammar.
type SyntaxError struct {
	Production string // grammar rule being parsed, e.g. "assignment"
	Expected   string // e.g. "IDENT or NUMBER"
	Found      lexer.Token
}

func (e *SyntaxError) Error() string {
	found := string(e.Found.Kind)
	if e.Found.Kind != lexer.EOF {
		found += fmt.Sprintf(" %q", e.Found.Text)
	}
	return fmt.Sprintf("offset %d (line %d, col %d): %s: expected %s, found %s",
		e.Found.Offset, e.Found.Line, e.Found.Column, e.Production, e.Expected, found)
}

// ---------------------------------------------------------------------------
// Parser
// ---------------------------------------------------------------------------

// TokenSource yields tokens one at a time. *lexer.Lexer and
// *lexer.SliceSource both satisfy it.
type TokenSource interface {
	NextToken() (lexer.Token, error)
}

// Parser is a single-pass recursive-descent parser driven by one look-ahead
// token. It stops at the first error.
type Parser struct {
	src TokenSource
	cur lexer.Token
}

// New creates a parser and loads the first look-ahead token.
func New(src TokenSource) (*Parser, error) {
	p := &Parser{src: src}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse consumes src through EOF and returns the program.
func Parse(src TokenSource) (*ast.Program, error) {
	p, err := New(src)
	if err != nil {
		return nil, err
	}
	return p.ParseProgram()
}

// ParseTokens parses an already materialized token slice, as produced by
// lexer.Tokenize.
func ParseTokens(tokens []lexer.Token) (*ast.Program, error) {
	return Parse(lexer.NewSliceSource(tokens))
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

// advance replaces the look-ahead token with the next one from the source.
func (p *Parser) advance() error {
	tok, err := p.src.NextToken()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

// eat consumes the look-ahead token if it has the expected kind.
func (p *Parser) eat(kind lexer.Kind, production string) (lexer.Token, error) {
	tok := p.cur
	if tok.Kind != kind {
		return tok, p.errorf(production, string(kind))
	}
	return tok, p.advance()
}

func (p *Parser) errorf(production, expected string) *SyntaxError {
	return &SyntaxError{Production: production, Expected: expected, Found: p.cur}
}

func position(tok lexer.Token) ast.Position {
	return ast.Position{Offset: tok.Offset, Line: tok.Line, Column: tok.Column}
}

func isOperator(kind lexer.Kind) bool {
	return kind == lexer.LOGIC_OP || kind == lexer.ARITHM_OP
}

// =========================================================================
// Statements
// =========================================================================

// ParseProgram parses Program := Statements EOF.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	pos := position(p.cur)
	body, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.EOF, "program"); err != nil {
		return nil, err
	}
	return &ast.Program{Body: body, Pos: pos}, nil
}

// parseStatements parses { Statement [';'] } up to a '}' or EOF, neither of
// which is consumed.
func (p *Parser) parseStatements() (*ast.Statements, error) {
	list := &ast.Statements{Pos: position(p.cur)}
	for p.cur.Kind != lexer.RBRACE && p.cur.Kind != lexer.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, stmt)
		if p.cur.Kind == lexer.SEMICOLON {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return list, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.cur.Kind {
	case lexer.IDENT:
		return p.parseAssignment("assignment")
	case lexer.IF:
		return p.parseIfStatement()
	case lexer.FOR:
		return p.parseForStatement()
	case lexer.RETURN:
		return p.parseReturnStatement()
	}
	return nil, p.errorf("statement", "IDENT, IF, FOR or RETURN")
}

// parseAssignment parses IDENT '=' Rvalue.
func (p *Parser) parseAssignment(production string) (*ast.Assignment, error) {
	name, err := p.eat(lexer.IDENT, production)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.ASSIGN, production); err != nil {
		return nil, err
	}
	value, err := p.parseRvalue(production)
	if err != nil {
		return nil, err
	}
	return &ast.Assignment{Name: name.Text, Value: value, Pos: position(name)}, nil
}

// parseIfStatement parses 'if' '(' Expr ')' '{' Statements '}'.
func (p *Parser) parseIfStatement() (*ast.IfStatement, error) {
	const production = "if statement"
	tok, err := p.eat(lexer.IF, production)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.LPAREN, production); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(production)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.RPAREN, production); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(production)
	if err != nil {
		return nil, err
	}
	return &ast.IfStatement{Condition: cond, Body: body, Pos: position(tok)}, nil
}

// parseForStatement parses
// 'for' '(' Assignment ';' Expr ';' Step ')' '{' Statements '}'.
func (p *Parser) parseForStatement() (*ast.ForStatement, error) {
	const production = "for statement"
	tok, err := p.eat(lexer.FOR, production)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.LPAREN, production); err != nil {
		return nil, err
	}
	init, err := p.parseAssignment(production)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.SEMICOLON, production); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(production)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.SEMICOLON, production); err != nil {
		return nil, err
	}
	step, err := p.parseStep(production)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.RPAREN, production); err != nil {
		return nil, err
	}
	body, err := p.parseBlock(production)
	if err != nil {
		return nil, err
	}
	return &ast.ForStatement{Init: init, Condition: cond, Step: step, Body: body, Pos: position(tok)}, nil
}

// parseReturnStatement parses 'return' Rvalue.
func (p *Parser) parseReturnStatement() (*ast.ReturnStatement, error) {
	const production = "return statement"
	tok, err := p.eat(lexer.RETURN, production)
	if err != nil {
		return nil, err
	}
	value, err := p.parseRvalue(production)
	if err != nil {
		return nil, err
	}
	return &ast.ReturnStatement{Value: value, Pos: position(tok)}, nil
}

// parseBlock parses '{' Statements '}'.
func (p *Parser) parseBlock(production string) (*ast.Statements, error) {
	if _, err := p.eat(lexer.LBRACE, production); err != nil {
		return nil, err
	}
	body, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(lexer.RBRACE, production); err != nil {
		return nil, err
	}
	return body, nil
}

// parseStep parses the step clause of a for statement. A reference followed
// by '=' is an assignment; anything else must be an Expr. The decision needs
// only the look-ahead token after the first operand.
func (p *Parser) parseStep(production string) (ast.Step, error) {
	first, err := p.parseOperand(production)
	if err != nil {
		return nil, err
	}
	if ref, ok := first.(*ast.Reference); ok && p.cur.Kind == lexer.ASSIGN {
		if err := p.advance(); err != nil {
			return nil, err
		}
		value, err := p.parseRvalue(production)
		if err != nil {
			return nil, err
		}
		return &ast.Assignment{Name: ref.Name, Value: value, Pos: ref.Pos}, nil
	}
	if !isOperator(p.cur.Kind) {
		return nil, p.errorf(production, "ASSIGN, LOGIC_OP or ARITHM_OP")
	}
	return p.parseExprTail(first, production)
}

// =========================================================================
// Expressions
// =========================================================================

// parseRvalue parses Operand [Operator Operand ['=' Operand]].
func (p *Parser) parseRvalue(production string) (ast.Rvalue, error) {
	left, err := p.parseOperand(production)
	if err != nil {
		return nil, err
	}
	if !isOperator(p.cur.Kind) {
		return left, nil
	}
	return p.parseExprTail(left, production)
}

// parseExpr parses Expr := Operand Operator Operand ['=' Operand].
func (p *Parser) parseExpr(production string) (*ast.Expr, error) {
	left, err := p.parseOperand(production)
	if err != nil {
		return nil, err
	}
	if !isOperator(p.cur.Kind) {
		return nil, p.errorf(production, "LOGIC_OP or ARITHM_OP")
	}
	return p.parseExprTail(left, production)
}

// parseExprTail parses the remainder of an Expr once its left operand is
// known. The look-ahead must be an operator.
func (p *Parser) parseExprTail(left ast.Operand, production string) (*ast.Expr, error) {
	op, err := p.parseOperator(production)
	if err != nil {
		return nil, err
	}
	right, err := p.parseOperand(production)
	if err != nil {
		return nil, err
	}
	expr := &ast.Expr{Left: left, Operator: op, Right: right, Pos: left.GetPos()}
	if p.cur.Kind == lexer.ASSIGN {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if expr.Equals, err = p.parseOperand(production); err != nil {
			return nil, err
		}
	}
	return expr, nil
}

// parseOperand parses IDENT | NUMBER.
func (p *Parser) parseOperand(production string) (ast.Operand, error) {
	tok := p.cur
	switch tok.Kind {
	case lexer.IDENT:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Reference{Name: tok.Text, Pos: position(tok)}, nil
	case lexer.NUMBER:
		n, err := strconv.ParseInt(tok.Text, 10, 32)
		if err != nil {
			return nil, p.errorf(production, "NUMBER in 32-bit range")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Value: int32(n), Pos: position(tok)}, nil
	}
	return nil, p.errorf(production, "IDENT or NUMBER")
}

// parseOperator parses LOGIC_OP | ARITHM_OP.
func (p *Parser) parseOperator(production string) (ast.Operator, error) {
	tok := p.cur
	var op ast.Operator
	switch tok.Kind {
	case lexer.LOGIC_OP:
		op = &ast.Comparison{Op: ast.CmpOp(tok.Text), Pos: position(tok)}
	case lexer.ARITHM_OP:
		op = &ast.Arithmetic{Op: ast.ArithOp(tok.Text), Pos: position(tok)}
	default:
		return nil, p.errorf(production, "LOGIC_OP or ARITHM_OP")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return op, nil
}
