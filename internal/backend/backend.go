// Package backend defines the narrow interface the code generator uses to
// build a control-flow graph. Implementations own the blocks, slots and
// values they hand out; the generator treats them as opaque handles and only
// passes them back to the builder that created them.
package backend

import "fmt"

// Block is a basic block handle.
type Block interface {
	Label() string
}

// Slot is a stack slot handle holding one 32-bit integer.
type Slot interface {
	Name() string
}

// Value is a scalar SSA value handle.
type Value interface {
	String() string
}

// ArithOp is a binary arithmetic operation on 32-bit signed integers.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	SDiv
)

var arithNames = [...]string{Add: "add", Sub: "sub", Mul: "mul", SDiv: "sdiv"}

func (op ArithOp) String() string {
	if int(op) < len(arithNames) {
		return arithNames[op]
	}
	return fmt.Sprintf("arith_%d", int(op))
}

// CmpOp is a signed integer comparison predicate.
type CmpOp int

const (
	SLT CmpOp = iota
	SGT
	SLE
	SGE
	EQ
	NE
)

var cmpNames = [...]string{SLT: "slt", SGT: "sgt", SLE: "sle", SGE: "sge", EQ: "eq", NE: "ne"}

func (op CmpOp) String() string {
	if int(op) < len(cmpNames) {
		return cmpNames[op]
	}
	return fmt.Sprintf("cmp_%d", int(op))
}

// Builder emits one function. NewFunction must be called exactly once before
// any other method; it positions the cursor at the returned entry block.
//
// Instructions are appended at the current insertion block. Br, CondBr and
// Ret terminate that block; callers must check IsTerminated before emitting
// into a block that may already be terminated.
type Builder interface {
	// NewFunction starts "i32 name()" and returns its entry block.
	NewFunction(name string) Block
	// NewBlock appends a block to the function without moving the cursor.
	NewBlock(name string) Block
	SetInsertPoint(b Block)
	InsertBlock() Block
	IsTerminated(b Block) bool

	// Alloca reserves a named slot. Slots live in the entry block no matter
	// where the cursor is.
	Alloca(name string) Slot
	Load(s Slot, name string) Value
	Store(v Value, s Slot)

	Const(n int32) Value
	Arith(op ArithOp, x, y Value) Value
	// Compare yields a truth value usable as a CondBr condition.
	Compare(op CmpOp, x, y Value) Value

	Br(target Block)
	// CondBr branches to then when cond is non-zero, else to els.
	CondBr(cond Value, then, els Block)
	Ret(v Value)

	// String renders the function for inspection.
	String() string
}
