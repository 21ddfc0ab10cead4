package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"toyc/internal/compiler"
	"toyc/internal/lexer"
	"toyc/internal/parser"
)

const (
	historyFile = ".toyc_history"
	promptMain  = "toyc> "
	promptCont  = "  ... "
)

var replCommand = cli.Command{
	Action: repl,
	Name:   "repl",
	Usage:  "Start an interactive session",
	Flags:  []cli.Flag{backendFlag},
	Description: `
The repl command compiles statements as they are typed. Input is accepted once
it ends in ';' or '}'; until then lines are joined, so a statement continues
across lines. Accepted input is appended to the session program, which is
lowered again and printed.
Commands: :source prints the session program, :reset clears it, :quit exits.`,
}

// session is the program built up by a REPL. Lines that fail to compile are
// dropped; lines that end in the middle of a statement are held until the
// statement is complete.
type session struct {
	opts     compiler.Options
	accepted []string
	pending  []string
}

// feed adds one input line. more reports that the line was buffered because
// the input so far ends inside a statement.
func (s *session) feed(line string) (out string, more bool, err error) {
	s.pending = append(s.pending, line)
	pending := strings.TrimSpace(strings.Join(s.pending, "\n"))
	if pending == "" {
		s.pending = nil
		return "", false, nil
	}
	src := strings.Join(append(append([]string(nil), s.accepted...), s.pending...), "\n")

	res, err := compiler.Compile(src, s.opts)
	if err != nil {
		var syntaxErr *parser.SyntaxError
		if errors.As(err, &syntaxErr) && syntaxErr.Found.Kind == lexer.EOF {
			return "", true, nil
		}
		s.pending = nil
		return "", false, err
	}
	// Without a closing ';' or '}' the next line may still extend the
	// statement.
	if !strings.HasSuffix(pending, ";") && !strings.HasSuffix(pending, "}") {
		return "", true, nil
	}
	s.accepted = append(s.accepted, s.pending...)
	s.pending = nil
	return res.Output, false, nil
}

func (s *session) reset() {
	s.accepted, s.pending = nil, nil
}

func (s *session) source() string {
	return strings.Join(s.accepted, "\n")
}

// command runs a ':' command and reports whether the REPL should exit.
func (s *session) command(w io.Writer, line string) (exit bool) {
	switch strings.TrimSpace(line) {
	case ":quit", ":q":
		return true
	case ":reset":
		s.reset()
		fmt.Fprintln(w, "session cleared")
	case ":source":
		fmt.Fprintln(w, s.source())
	default:
		fmt.Fprintf(w, "unknown command %s (try :source, :reset, :quit)\n", strings.TrimSpace(line))
	}
	return false
}

// repl is the repl command.
func repl(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	s := &session{opts: compilerOptions(cfg)}
	w := ctx.App.Writer

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	// Load history (best-effort)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	fmt.Fprintf(w, "toyc %s (%s backend)\n", VERSION, cfg.Compiler.Backend)
	prompt := promptMain
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(w)
			break
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl+C drops the pending input.
			s.pending = nil
			prompt = promptMain
			continue
		}
		if err != nil {
			return err
		}

		if prompt == promptMain && strings.HasPrefix(strings.TrimSpace(line), ":") {
			if s.command(w, line) {
				break
			}
			continue
		}
		if strings.TrimSpace(line) == "" && prompt == promptMain {
			continue
		}

		out, more, err := s.feed(line)
		switch {
		case more:
			prompt = promptCont
			continue
		case err != nil:
			printError(w, err)
		default:
			fmt.Fprint(w, out)
		}
		prompt = promptMain
		ln.AppendHistory(line)
	}

	// Persist history (best-effort)
	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
	return nil
}
