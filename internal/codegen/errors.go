package codegen

import (
	"fmt"

	"github.com/go-stack/stack"

	"toyc/internal/ast"
)

// UndefinedVariableError is returned when a reference names a variable that
// has not been assigned earlier in lowering order.
type UndefinedVariableError struct {
	Name    string
	Context string // source rendering of the statement being lowered
	Pos     ast.Position
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("%s: undefined variable %q in %q", e.Pos, e.Name, e.Context)
}

// InternalError signals a generator bug or misuse, such as an AST node kind
// the generator does not know. Site is where the error was raised.
type InternalError struct {
	Reason string
	Site   stack.Call
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error at %+v: %s", e.Site, e.Reason)
}

func internalErrorf(format string, args ...interface{}) *InternalError {
	return &InternalError{Reason: fmt.Sprintf(format, args...), Site: stack.Caller(1)}
}
