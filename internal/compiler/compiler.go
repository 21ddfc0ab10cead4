// Package compiler runs the whole pipeline: source text is tokenized in full,
// parsed, and lowered into the selected backend.
package compiler

import (
	"errors"
	"fmt"

	"github.com/go-stack/stack"
	"github.com/inconshreveable/log15"

	"toyc/internal/ast"
	"toyc/internal/backend"
	"toyc/internal/cfg"
	"toyc/internal/codegen"
	"toyc/internal/lexer"
	"toyc/internal/llvm"
	"toyc/internal/parser"
	"toyc/internal/semantic"
)

// Backend names accepted by Options.Backend.
const (
	BackendCFG  = "cfg"
	BackendLLVM = "llvm"
)

// Options configures a compilation.
type Options struct {
	Backend  string // BackendCFG or BackendLLVM
	Function string // name of the emitted function
	Verify   bool   // run cfg.Verify on the result (cfg backend only)
	Logger   log15.Logger
}

// DefaultOptions returns the defaults: cfg backend, function "main",
// verification on.
func DefaultOptions() Options {
	return Options{Backend: BackendCFG, Function: "main", Verify: true}
}

// Result carries every intermediate product of a successful compilation.
type Result struct {
	Tokens  []lexer.Token
	Program *ast.Program
	Entry   backend.Block
	Output  string        // rendered function (cfg dump or LLVM assembly)
	Blocks  []string      // block labels in creation order
	CFG     *cfg.Function // nil unless the cfg backend was used

	// Diagnostics holds the warnings of the semantic pass. They never stop
	// compilation.
	Diagnostics []semantic.Diagnostic
}

// Compile runs the pipeline over src. The first error aborts it.
func Compile(src string, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = log15.New()
		log.SetHandler(log15.DiscardHandler())
	}

	// Lexing finishes before parsing starts, so a bad character anywhere
	// wins over any syntax error.
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, fmt.Errorf("lexing failed: %w", err)
	}
	log.Debug("Tokenized source", "stage", "lex", "tokens", len(tokens))

	prog, err := parser.ParseTokens(tokens)
	if err != nil {
		return nil, fmt.Errorf("parsing failed: %w", err)
	}
	log.Debug("Parsed program", "stage", "parse", "statements", len(prog.Body.Items))

	diags := semantic.Analyze(prog)
	for _, d := range diags {
		if d.Severity == semantic.Warning {
			log.Debug("Semantic warning", "stage", "check", "pos", d.Pos, "msg", d.Message)
		}
	}

	b, err := newBuilder(opts.Backend)
	if err != nil {
		return nil, err
	}
	entry, err := codegen.Generate(prog, b, &codegen.Options{
		Function: opts.Function,
		Logger:   log.New("stage", "lower"),
	})
	if err != nil {
		return nil, fmt.Errorf("lowering failed: %w", err)
	}

	res := &Result{Tokens: tokens, Program: prog, Entry: entry, Output: b.String(), Diagnostics: diags}
	switch b := b.(type) {
	case *cfg.Builder:
		fn := b.Finish()
		res.CFG = fn
		for _, blk := range fn.Blocks {
			res.Blocks = append(res.Blocks, blk.Name)
		}
		if opts.Verify {
			if errs := cfg.Verify(fn); len(errs) > 0 {
				for _, e := range errs {
					log.Error("Verification failed", "stage", "verify", "block", e.Block, "err", e.Message)
				}
				return nil, fmt.Errorf("verification failed: %w", &codegen.InternalError{
					Reason: errs[0].Error(),
					Site:   stack.Caller(0),
				})
			}
			log.Debug("Verified function", "stage", "verify", "blocks", len(fn.Blocks))
		}
	case *llvm.Builder:
		for _, blk := range b.Func().Blocks {
			res.Blocks = append(res.Blocks, blk.Name())
		}
	}
	log.Debug("Compiled program", "backend", opts.Backend, "blocks", len(res.Blocks))
	return res, nil
}

func newBuilder(name string) (backend.Builder, error) {
	switch name {
	case BackendCFG, "":
		return cfg.NewBuilder(), nil
	case BackendLLVM:
		return llvm.NewBuilder(), nil
	}
	return nil, fmt.Errorf("unknown backend %q (want %q or %q)", name, BackendCFG, BackendLLVM)
}

// ---------------------------------------------------------------------------
// Error classification
// ---------------------------------------------------------------------------

// ErrorKind classifies a compilation error.
type ErrorKind string

const (
	KindLexical           ErrorKind = "lexical"
	KindSyntax            ErrorKind = "syntax"
	KindUndefinedVariable ErrorKind = "undefined-variable"
	KindInternal          ErrorKind = "internal"
	KindUnknown           ErrorKind = "unknown"
)

// Kind reports which stage produced err.
func Kind(err error) ErrorKind {
	var (
		lexErr    *lexer.Error
		syntaxErr *parser.SyntaxError
		undefErr  *codegen.UndefinedVariableError
		intErr    *codegen.InternalError
	)
	switch {
	case errors.As(err, &lexErr):
		return KindLexical
	case errors.As(err, &syntaxErr):
		return KindSyntax
	case errors.As(err, &undefErr):
		return KindUndefinedVariable
	case errors.As(err, &intErr):
		return KindInternal
	}
	return KindUnknown
}
