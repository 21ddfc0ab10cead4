package codegen

import (
	"github.com/inconshreveable/log15"

	"toyc/internal/ast"
	"toyc/internal/backend"
)

// ---------------------------------------------------------------------------
// Options controls the behaviour of the generator.
// ---------------------------------------------------------------------------

// Options configures lowering.
type Options struct {
	// Function is the name of the emitted function. Defaults to "main".
	Function string

	// Logger receives debug output. Defaults to a discarding logger.
	Logger log15.Logger
}

// DefaultOptions returns the defaults (function "main", no logging).
func DefaultOptions() *Options {
	return &Options{Function: "main"}
}

// Generate lowers program into b with a fresh Generator and returns the
// entry block.
func Generate(program *ast.Program, b backend.Builder, opts *Options) (backend.Block, error) {
	return New(b, opts).Lower(program)
}
