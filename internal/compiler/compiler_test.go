package compiler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/inconshreveable/log15"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toyc/internal/cfg"
	"toyc/internal/codegen"
	"toyc/internal/lexer"
	"toyc/internal/parser"
)

const ifProgram = `x = 10; if (x > 5) { y = 1; } return y;`

func TestCompileCFG(t *testing.T) {
	res, err := Compile(ifProgram, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, lexer.EOF, res.Tokens[len(res.Tokens)-1].Kind)
	assert.Len(t, res.Program.Body.Items, 3)
	assert.Equal(t, "entry", res.Entry.Label())
	assert.Equal(t, []string{"entry", "then", "merge"}, res.Blocks)
	require.NotNil(t, res.CFG)
	assert.Equal(t, res.CFG.String(), res.Output)
	assert.Contains(t, res.Output, "define i32 @main() {")
}

func TestCompileLLVM(t *testing.T) {
	opts := DefaultOptions()
	opts.Backend = BackendLLVM
	opts.Function = "run"
	res, err := Compile(ifProgram, opts)
	require.NoError(t, err)

	assert.Nil(t, res.CFG)
	assert.Equal(t, []string{"entry", "then", "merge"}, res.Blocks)
	assert.Contains(t, res.Output, "define i32 @run()")
}

func TestCompileUnknownBackend(t *testing.T) {
	opts := DefaultOptions()
	opts.Backend = "wasm"
	_, err := Compile(`x = 1;`, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown backend "wasm"`)
	assert.Equal(t, KindUnknown, Kind(err))
}

func TestCompileErrorKinds(t *testing.T) {
	cases := []struct {
		src  string
		kind ErrorKind
	}{
		{`x = 1; y = @;`, KindLexical},
		// The bad character is reported even though a syntax error comes first.
		{`x = ; @`, KindLexical},
		{`x = ;`, KindSyntax},
		{`if (x) { }`, KindSyntax},
		{`return z;`, KindUndefinedVariable},
		{`x = 1; for (i = 0; i < n; i = i + 1) { }`, KindUndefinedVariable},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			res, err := Compile(tc.src, DefaultOptions())
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tc.kind, Kind(err), err.Error())
		})
	}
}

func TestCompileLexicalErrorOffset(t *testing.T) {
	_, err := Compile("x = 1;\ny = @;", DefaultOptions())
	var lexErr *lexer.Error
	require.True(t, errors.As(err, &lexErr), "got %v", err)
	assert.Equal(t, 11, lexErr.Offset)
	assert.Equal(t, "@", lexErr.Char)
}

func TestCompileSyntaxError(t *testing.T) {
	_, err := Compile(`x = ;`, DefaultOptions())
	var syntaxErr *parser.SyntaxError
	require.True(t, errors.As(err, &syntaxErr), "got %v", err)
	assert.Equal(t, "IDENT or NUMBER", syntaxErr.Expected)
	assert.Equal(t, lexer.SEMICOLON, syntaxErr.Found.Kind)
	assert.Contains(t, err.Error(), "parsing failed")
}

func TestKind(t *testing.T) {
	assert.Equal(t, KindInternal, Kind(fmt.Errorf("wrapped: %w", &codegen.InternalError{Reason: "boom"})))
	assert.Equal(t, KindUnknown, Kind(errors.New("plain")))
	assert.Equal(t, KindUnknown, Kind(nil))
}

func TestCompileLogsStages(t *testing.T) {
	stages := map[string]bool{}
	logger := log15.New()
	logger.SetHandler(log15.FuncHandler(func(r *log15.Record) error {
		for i := 0; i+1 < len(r.Ctx); i += 2 {
			if r.Ctx[i] == "stage" {
				stages[fmt.Sprint(r.Ctx[i+1])] = true
			}
		}
		return nil
	}))

	opts := DefaultOptions()
	opts.Logger = logger
	_, err := Compile(`c = 0; for (i = 0; i < 2; i = i + 1) { c = c + 1; } return c;`, opts)
	require.NoError(t, err)
	for _, stage := range []string{"lex", "parse", "lower", "verify"} {
		assert.True(t, stages[stage], "missing stage %q in %v", stage, stages)
	}
}

func TestCompileDiagnostics(t *testing.T) {
	res, err := Compile(`x = 1; y = 2; return x;`, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0].Message, `"y"`)
}

func TestCompileDivisionByZeroWarns(t *testing.T) {
	for _, src := range []string{
		`x = 1 / 0; return x;`,
		`x = 0; if (x > 1) { y = 5 / 0; } return x;`,
	} {
		t.Run(src, func(t *testing.T) {
			res, err := Compile(src, DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, 1, res.CFG.Count(cfg.OpArith), res.Output)
			var msgs []string
			for _, d := range res.Diagnostics {
				msgs = append(msgs, d.Message)
			}
			assert.Contains(t, msgs, "division by zero")
		})
	}
}
