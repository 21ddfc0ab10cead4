// Package config holds the toyc configuration file format.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/inconshreveable/log15"
	"github.com/naoina/toml"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// CompilerConfig selects how programs are lowered.
type CompilerConfig struct {
	Backend  string // "cfg" or "llvm"
	Function string // name of the emitted function
	Verify   bool   // verify the CFG after lowering
}

// LogConfig controls diagnostic output.
type LogConfig struct {
	Level string // crit, error, warn, info, debug
	Color bool   // colorize terminal output
}

type Config struct {
	Compiler CompilerConfig
	Log      LogConfig
}

// Defaults contains the default settings.
var Defaults = Config{
	Compiler: CompilerConfig{
		Backend:  "cfg",
		Function: "main",
		Verify:   true,
	},
	Log: LogConfig{
		Level: "warn",
		Color: true,
	},
}

// Load reads the TOML file at path over cfg. Fields absent from the file keep
// their current values.
func Load(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = Decode(bufio.NewReader(f), cfg)
	// Add file name to errors that have a line number.
	var lineErr *toml.LineError
	if errors.As(err, &lineErr) {
		err = errors.New(path + ", " + err.Error())
	}
	return err
}

// Decode reads TOML from r over cfg and validates the result.
func Decode(r io.Reader, cfg *Config) error {
	if err := tomlSettings.NewDecoder(r).Decode(cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

// Validate checks the values that have a fixed set of choices.
func (c *Config) Validate() error {
	switch c.Compiler.Backend {
	case "cfg", "llvm":
	default:
		return fmt.Errorf("invalid backend %q, want \"cfg\" or \"llvm\"", c.Compiler.Backend)
	}
	if c.Compiler.Function == "" {
		return errors.New("function name must not be empty")
	}
	if _, err := log15.LvlFromString(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %v", c.Log.Level, err)
	}
	return nil
}

// Dump writes cfg as TOML.
func Dump(w io.Writer, cfg Config) error {
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
