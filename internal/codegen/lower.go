package codegen

import (
	"fmt"

	"github.com/inconshreveable/log15"

	"toyc/internal/ast"
	"toyc/internal/backend"
)

var comparisons = map[ast.CmpOp]backend.CmpOp{
	ast.Lt: backend.SLT,
	ast.Gt: backend.SGT,
	ast.Le: backend.SLE,
	ast.Ge: backend.SGE,
	ast.Eq: backend.EQ,
}

var arithmetic = map[ast.ArithOp]backend.ArithOp{
	ast.Add: backend.Add,
	ast.Sub: backend.Sub,
	ast.Mul: backend.Mul,
	ast.Div: backend.SDiv,
}

// ---------------------------------------------------------------------------
// Generator: lowers an AST Program into a single backend function
// ---------------------------------------------------------------------------

// Generator walks the AST and drives a backend.Builder.
//
// The builder's insertion block is the generator's cursor. Lowering a nested
// if or for leaves the cursor in a different block than where it started, so
// helpers always re-query InsertBlock after a recursive call instead of
// holding on to a block.
//
// A Generator lowers exactly one program; create a new one (and a new
// builder) for every compilation.
type Generator struct {
	b       backend.Builder
	opts    *Options
	log     log15.Logger
	symbols *SymbolTable
	labels  map[string]int
	used    bool
}

// New creates a generator that emits into b.
func New(b backend.Builder, opts *Options) *Generator {
	if opts == nil {
		opts = DefaultOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}
	return &Generator{
		b:       b,
		opts:    opts,
		log:     logger,
		symbols: NewSymbolTable(),
		labels:  map[string]int{"entry": 1},
	}
}

// Symbols exposes the symbol table built during lowering.
func (g *Generator) Symbols() *SymbolTable {
	return g.symbols
}

// Lower emits prog as "i32 <function>()" and returns the entry block. If the
// last block is left open it returns 0.
func (g *Generator) Lower(prog *ast.Program) (backend.Block, error) {
	if g.used {
		return nil, internalErrorf("generator already lowered a program")
	}
	g.used = true
	if prog == nil || prog.Body == nil {
		return nil, internalErrorf("nil program")
	}

	name := g.opts.Function
	if name == "" {
		name = "main"
	}
	entry := g.b.NewFunction(name)
	g.log.Debug("Lowering program", "function", name, "statements", len(prog.Body.Items))

	if err := g.lowerStatements(prog.Body); err != nil {
		return nil, err
	}
	if cur := g.b.InsertBlock(); !g.b.IsTerminated(cur) {
		g.log.Debug("Adding implicit return", "block", cur.Label())
		g.b.Ret(g.b.Const(0))
	}
	return entry, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// label returns prefix the first time and prefix.N afterwards.
func (g *Generator) label(prefix string) string {
	n := g.labels[prefix]
	g.labels[prefix] = n + 1
	if n == 0 {
		return prefix
	}
	return fmt.Sprintf("%s.%d", prefix, n)
}

func (g *Generator) terminated() bool {
	return g.b.IsTerminated(g.b.InsertBlock())
}

// resolve checks that every reference under nodes is bound, either in the
// symbol table or in bound.
func (g *Generator) resolve(stmt ast.Statement, bound map[string]bool, nodes ...ast.Node) error {
	for _, n := range nodes {
		for _, ref := range ast.References(n) {
			if bound[ref.Name] {
				continue
			}
			if _, ok := g.symbols.Lookup(ref.Name); !ok {
				return &UndefinedVariableError{Name: ref.Name, Context: stmt.String(), Pos: ref.Pos}
			}
		}
	}
	return nil
}

// check resolves a whole statement in lowering order before anything of it
// is emitted. Names the statement assigns are added to bound as they are
// reached.
func (g *Generator) check(stmt ast.Statement, bound map[string]bool) error {
	switch s := stmt.(type) {
	case *ast.Assignment:
		if err := g.resolve(s, bound, s.Value); err != nil {
			return err
		}
		bound[s.Name] = true
	case *ast.IfStatement:
		if err := g.resolve(s, bound, s.Condition); err != nil {
			return err
		}
		return g.checkBody(s.Body, bound)
	case *ast.ForStatement:
		if err := g.resolve(s, bound, s.Init.Value); err != nil {
			return err
		}
		bound[s.Init.Name] = true
		if err := g.resolve(s, bound, s.Condition); err != nil {
			return err
		}
		if err := g.checkBody(s.Body, bound); err != nil {
			return err
		}
		switch st := s.Step.(type) {
		case *ast.Assignment:
			if err := g.resolve(s, bound, st.Value); err != nil {
				return err
			}
			bound[st.Name] = true
		case *ast.Expr:
			return g.resolve(s, bound, st)
		}
	case *ast.ReturnStatement:
		return g.resolve(s, bound, s.Value)
	}
	return nil
}

func (g *Generator) checkBody(body *ast.Statements, bound map[string]bool) error {
	for _, stmt := range body.Items {
		if err := g.check(stmt, bound); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Statement lowering
// ---------------------------------------------------------------------------

func (g *Generator) lowerStatements(list *ast.Statements) error {
	for _, stmt := range list.Items {
		// Code after a return still has to live somewhere.
		if g.terminated() {
			dead := g.b.NewBlock(g.label("dead"))
			g.log.Debug("Opening unreachable block", "block", dead.Label())
			g.b.SetInsertPoint(dead)
		}
		if err := g.lowerStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) lowerStatement(stmt ast.Statement) error {
	if err := g.check(stmt, map[string]bool{}); err != nil {
		return err
	}
	switch s := stmt.(type) {
	case *ast.Assignment:
		return g.lowerAssignment(s, s)
	case *ast.IfStatement:
		return g.lowerIfStatement(s)
	case *ast.ForStatement:
		return g.lowerForStatement(s)
	case *ast.ReturnStatement:
		return g.lowerReturnStatement(s)
	}
	return internalErrorf("unknown statement type %T", stmt)
}

// lowerAssignment stores the value, allocating the slot on first assignment.
// stmt is the statement reported in errors.
func (g *Generator) lowerAssignment(a *ast.Assignment, stmt ast.Statement) error {
	v, err := g.lowerRvalue(a.Value, stmt)
	if err != nil {
		return err
	}
	slot, ok := g.symbols.Lookup(a.Name)
	if !ok {
		slot = g.b.Alloca(a.Name)
		g.symbols.Define(a.Name, slot)
		g.log.Debug("Allocated slot", "name", a.Name)
	}
	g.b.Store(v, slot)
	return nil
}

func (g *Generator) lowerIfStatement(s *ast.IfStatement) error {
	cond, err := g.lowerCondition(s.Condition, s)
	if err != nil {
		return err
	}
	then := g.b.NewBlock(g.label("then"))
	merge := g.b.NewBlock(g.label("merge"))
	g.b.CondBr(cond, then, merge)

	g.b.SetInsertPoint(then)
	if err := g.lowerStatements(s.Body); err != nil {
		return err
	}
	if !g.terminated() {
		g.b.Br(merge)
	}
	g.b.SetInsertPoint(merge)
	g.log.Debug("Lowered statement", "kind", "if", "then", then.Label(), "merge", merge.Label())
	return nil
}

// lowerForStatement emits the loop in rotated form:
//
//	<current>: init; guard; condbr loop, after
//	loop:      body; step; guard; condbr loop, after
//	after:     ...
func (g *Generator) lowerForStatement(s *ast.ForStatement) error {
	if err := g.lowerAssignment(s.Init, s); err != nil {
		return err
	}
	cond, err := g.lowerCondition(s.Condition, s)
	if err != nil {
		return err
	}
	loop := g.b.NewBlock(g.label("loop"))
	after := g.b.NewBlock(g.label("after"))
	g.b.CondBr(cond, loop, after)

	g.b.SetInsertPoint(loop)
	if err := g.lowerStatements(s.Body); err != nil {
		return err
	}
	if g.terminated() {
		// The body always returns; step and back edge are unreachable.
		g.log.Debug("Loop body terminates", "loop", loop.Label())
	} else {
		if err := g.lowerStep(s.Step, s); err != nil {
			return err
		}
		cond, err := g.lowerCondition(s.Condition, s)
		if err != nil {
			return err
		}
		g.b.CondBr(cond, loop, after)
	}
	g.b.SetInsertPoint(after)
	g.log.Debug("Lowered statement", "kind", "for", "loop", loop.Label(), "after", after.Label())
	return nil
}

func (g *Generator) lowerStep(step ast.Step, stmt ast.Statement) error {
	switch st := step.(type) {
	case *ast.Assignment:
		return g.lowerAssignment(st, stmt)
	case *ast.Expr:
		_, err := g.lowerExpr(st, stmt)
		return err
	}
	return internalErrorf("unknown for step type %T", step)
}

func (g *Generator) lowerReturnStatement(s *ast.ReturnStatement) error {
	v, err := g.lowerRvalue(s.Value, s)
	if err != nil {
		return err
	}
	g.b.Ret(v)
	return nil
}

// ---------------------------------------------------------------------------
// Expression lowering
// ---------------------------------------------------------------------------

func (g *Generator) lowerRvalue(rv ast.Rvalue, stmt ast.Statement) (backend.Value, error) {
	switch v := rv.(type) {
	case *ast.Literal:
		return g.b.Const(v.Value), nil
	case *ast.Reference:
		slot, ok := g.symbols.Lookup(v.Name)
		if !ok {
			return nil, &UndefinedVariableError{Name: v.Name, Context: stmt.String(), Pos: v.Pos}
		}
		return g.b.Load(slot, v.Name), nil
	case *ast.Expr:
		return g.lowerExpr(v, stmt)
	}
	return nil, internalErrorf("unknown rvalue type %T", rv)
}

// lowerExpr emits the operator. With the equality override present the
// operator result is dropped and the value is left == e.Equals.
func (g *Generator) lowerExpr(e *ast.Expr, stmt ast.Statement) (backend.Value, error) {
	left, err := g.lowerRvalue(e.Left, stmt)
	if err != nil {
		return nil, err
	}
	right, err := g.lowerRvalue(e.Right, stmt)
	if err != nil {
		return nil, err
	}

	var result backend.Value
	switch op := e.Operator.(type) {
	case *ast.Comparison:
		pred, ok := comparisons[op.Op]
		if !ok {
			return nil, internalErrorf("unknown comparison operator %q", op.Op)
		}
		result = g.b.Compare(pred, left, right)
	case *ast.Arithmetic:
		arith, ok := arithmetic[op.Op]
		if !ok {
			return nil, internalErrorf("unknown arithmetic operator %q", op.Op)
		}
		result = g.b.Arith(arith, left, right)
	default:
		return nil, internalErrorf("unknown operator type %T", e.Operator)
	}

	if e.Equals != nil {
		eq, err := g.lowerRvalue(e.Equals, stmt)
		if err != nil {
			return nil, err
		}
		result = g.b.Compare(backend.EQ, left, eq)
	}
	return result, nil
}

// lowerCondition lowers a branch condition. Arithmetic results are true when
// non-zero.
func (g *Generator) lowerCondition(e *ast.Expr, stmt ast.Statement) (backend.Value, error) {
	v, err := g.lowerExpr(e, stmt)
	if err != nil {
		return nil, err
	}
	if _, ok := e.Operator.(*ast.Arithmetic); ok && e.Equals == nil {
		v = g.b.Compare(backend.NE, v, g.b.Const(0))
	}
	return v, nil
}
