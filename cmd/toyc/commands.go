package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"toyc/internal/ast"
	"toyc/internal/compiler"
	"toyc/internal/config"
	"toyc/internal/lexer"
	"toyc/internal/parser"
)

var (
	buildCommand = cli.Command{
		Action:    build,
		Name:      "build",
		Usage:     "Lower a source file and print the result",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{backendFlag, outFlag},
		Description: `
The build command compiles a source file and prints the control-flow graph
(cfg backend) or the LLVM assembly (llvm backend).`,
	}
	tokensCommand = cli.Command{
		Action:    tokens,
		Name:      "tokens",
		Usage:     "Print the token stream of a source file",
		ArgsUsage: "<file>",
	}
	astCommand = cli.Command{
		Action:    dumpAST,
		Name:      "ast",
		Usage:     "Print the syntax tree of a source file",
		ArgsUsage: "<file>",
	}
	dumpConfigCommand = cli.Command{
		Action:    dumpConfig,
		Name:      "dumpconfig",
		Usage:     "Show configuration values",
		ArgsUsage: "",
		Flags:     []cli.Flag{backendFlag},
		Description: `
The dumpconfig command shows the effective configuration in TOML form.`,
	}
)

// build is the build command.
func build(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	src, err := readSource(ctx)
	if err != nil {
		return err
	}
	res, err := compiler.Compile(src, compilerOptions(cfg))
	if err != nil {
		return err
	}
	log.Info("Compiled program", "backend", cfg.Compiler.Backend, "blocks", len(res.Blocks))
	printWarnings(os.Stderr, res.Diagnostics)

	if out := ctx.String(outFlag.Name); out != "" {
		if err := os.WriteFile(out, []byte(res.Output), 0644); err != nil {
			return err
		}
		log.Info("Wrote output", "file", out)
		return nil
	}
	_, err = fmt.Fprint(ctx.App.Writer, res.Output)
	return err
}

// tokens is the tokens command.
func tokens(ctx *cli.Context) error {
	src, err := readSource(ctx)
	if err != nil {
		return err
	}
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Kind", "Text", "Offset", "Line", "Column"})
	for _, tok := range toks {
		table.Append([]string{
			string(tok.Kind),
			tok.Text,
			strconv.Itoa(tok.Offset),
			strconv.Itoa(tok.Line),
			strconv.Itoa(tok.Column),
		})
	}
	table.Render()
	return nil
}

// dumpAST is the ast command.
func dumpAST(ctx *cli.Context) error {
	src, err := readSource(ctx)
	if err != nil {
		return err
	}
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return err
	}
	prog, err := parser.ParseTokens(toks)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(ctx.App.Writer, ast.DebugString(prog))
	return err
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	return config.Dump(ctx.App.Writer, cfg)
}

/**
* Reads the source file named by the first command argument.
 */
func readSource(ctx *cli.Context) (string, error) {
	if ctx.NArg() < 1 {
		return "", errors.New("missing source file argument")
	}
	path := ctx.Args().First()
	if !fileExists(path) {
		return "", fmt.Errorf("file %s does not exist", path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	log.Debug("Read source file", "file", path, "bytes", len(content))
	return string(content), nil
}

/**
* Checks if a file exists at the given path.
* @param filePath The path to the file to check.
* @return true if the file exists, false otherwise.
 */
func fileExists(filePath string) bool {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return false
	}
	return true
}
