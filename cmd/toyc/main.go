package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/inconshreveable/log15"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/urfave/cli.v1"

	"toyc/internal/compiler"
	"toyc/internal/config"
	"toyc/internal/semantic"
)

const VERSION = "0.2.0"

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	verbosityFlag = cli.StringFlag{
		Name:  "verbosity",
		Usage: "Log level: crit, error, warn, info, debug (overrides the config file)",
	}
	noColorFlag = cli.BoolFlag{
		Name:  "nocolor",
		Usage: "Disable colored output",
	}

	backendFlag = cli.StringFlag{
		Name:  "backend",
		Usage: "Code generation backend: cfg or llvm",
	}
	outFlag = cli.StringFlag{
		Name:  "out",
		Usage: "Write the output to this file instead of stdout",
	}
)

// log is the root logger, configured in setup.
var log = log15.Root()

func main() {
	if err := newApp().Run(os.Args); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "toyc"
	app.Usage = "compile the toy language to a control-flow graph"
	app.Version = VERSION
	app.Flags = []cli.Flag{configFileFlag, verbosityFlag, noColorFlag}
	app.Commands = []cli.Command{
		buildCommand,
		tokensCommand,
		astCommand,
		replCommand,
		dumpConfigCommand,
	}
	app.Before = setup
	return app
}

// setup loads the configuration and installs the log handler.
func setup(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if !cfg.Log.Color {
		color.NoColor = true
	}
	lvl, err := log15.LvlFromString(cfg.Log.Level)
	if err != nil {
		return err
	}

	var (
		output io.Writer = os.Stderr
		format           = log15.LogfmtFormat()
	)
	usecolor := cfg.Log.Color && (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	if usecolor {
		output = colorable.NewColorableStderr()
		format = log15.TerminalFormat()
	}
	log.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(output, format)))
	log.Debug("Loaded configuration", "backend", cfg.Compiler.Backend, "function", cfg.Compiler.Function)
	return nil
}

// loadConfig applies the config file and global flags on top of the defaults.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Defaults
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := config.Load(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if ctx.GlobalIsSet(verbosityFlag.Name) {
		cfg.Log.Level = ctx.GlobalString(verbosityFlag.Name)
	}
	if ctx.GlobalBool(noColorFlag.Name) {
		cfg.Log.Color = false
	}
	if ctx.IsSet(backendFlag.Name) {
		cfg.Compiler.Backend = ctx.String(backendFlag.Name)
	}
	return cfg, cfg.Validate()
}

func compilerOptions(cfg config.Config) compiler.Options {
	return compiler.Options{
		Backend:  cfg.Compiler.Backend,
		Function: cfg.Compiler.Function,
		Verify:   cfg.Compiler.Verify,
		Logger:   log,
	}
}

// printError writes "<kind> error: <message>" in red.
func printError(w io.Writer, err error) {
	kind := compiler.Kind(err)
	prefix := "error"
	if kind != compiler.KindUnknown {
		prefix = string(kind) + " error"
	}
	color.New(color.FgRed, color.Bold).Fprintf(w, "%s: ", prefix)
	fmt.Fprintln(w, err)
}

// printWarnings lists the semantic warnings in yellow.
func printWarnings(w io.Writer, diags []semantic.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	yellow := color.New(color.FgYellow)
	yellow.Fprintln(w, "Warnings:")
	for _, d := range diags {
		yellow.Fprintf(w, "  %s\n", d.Error())
	}
}
