// Package cfg is an in-memory control-flow graph that implements
// backend.Builder. It keeps every block, instruction and edge inspectable,
// which makes it the backend of choice for tests and for verification.
package cfg

import (
	"fmt"
	"strings"

	"toyc/internal/backend"
)

// Op is a CFG instruction opcode.
type Op int

const (
	OpAlloca Op = iota
	OpLoad
	OpStore
	OpArith
	OpCmp

	// Terminators
	OpBr
	OpCondBr
	OpRet
)

var opNames = map[Op]string{
	OpAlloca: "alloca", OpLoad: "load", OpStore: "store",
	OpArith: "arith", OpCmp: "icmp",
	OpBr: "br", OpCondBr: "condbr", OpRet: "ret",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op_%d", int(op))
}

// IsTerminator reports whether op ends a basic block.
func (op Op) IsTerminator() bool {
	return op == OpBr || op == OpCondBr || op == OpRet
}

// Value is an SSA value: either an instruction result or an i32 constant.
type Value struct {
	ID    int // -1 for constants
	Const bool
	Imm   int32
}

func (v *Value) String() string {
	if v.Const {
		return fmt.Sprintf("%d", v.Imm)
	}
	return fmt.Sprintf("%%%d", v.ID)
}

// Slot is a named stack slot.
type Slot struct {
	Var string
}

func (s *Slot) Name() string   { return s.Var }
func (s *Slot) String() string { return "%" + s.Var }

// Instr is a single instruction. Which fields are used depends on Op.
type Instr struct {
	Op      Op
	Result  *Value
	Args    []*Value
	Slot    *Slot
	Arith   backend.ArithOp // OpArith
	Pred    backend.CmpOp   // OpCmp
	Targets []*Block        // OpBr: [target]; OpCondBr: [then, else]
}

func (i *Instr) String() string {
	switch i.Op {
	case OpAlloca:
		return fmt.Sprintf("%s = alloca i32", i.Slot)
	case OpLoad:
		return fmt.Sprintf("%s = load i32, %s", i.Result, i.Slot)
	case OpStore:
		return fmt.Sprintf("store i32 %s, %s", i.Args[0], i.Slot)
	case OpArith:
		return fmt.Sprintf("%s = %s i32 %s, %s", i.Result, i.Arith, i.Args[0], i.Args[1])
	case OpCmp:
		return fmt.Sprintf("%s = icmp %s i32 %s, %s", i.Result, i.Pred, i.Args[0], i.Args[1])
	case OpBr:
		return fmt.Sprintf("br label %%%s", i.Targets[0].Label())
	case OpCondBr:
		return fmt.Sprintf("br %s, label %%%s, label %%%s", i.Args[0], i.Targets[0].Label(), i.Targets[1].Label())
	case OpRet:
		return fmt.Sprintf("ret i32 %s", i.Args[0])
	}
	return i.Op.String()
}

// Block is a basic block. The terminator is kept apart from the body so a
// block can hold at most one.
type Block struct {
	Name   string
	Instrs []*Instr
	Term   *Instr
	Preds  []*Block
	Succs  []*Block
}

func (b *Block) Label() string { return b.Name }

// Terminated reports whether the block already ends in a terminator.
func (b *Block) Terminated() bool { return b.Term != nil }

// Function is a single "i32 name()" function.
type Function struct {
	Name   string
	Blocks []*Block
	Slots  []*Slot
}

// Entry returns the first block.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Block looks up a block by label.
func (f *Function) Block(label string) *Block {
	for _, b := range f.Blocks {
		if b.Name == label {
			return b
		}
	}
	return nil
}

// Count returns how many instructions with the given opcode the function
// holds, terminators included.
func (f *Function) Count(op Op) int {
	n := 0
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if in.Op == op {
				n++
			}
		}
		if b.Term != nil && b.Term.Op == op {
			n++
		}
	}
	return n
}

// Reachable returns the set of blocks reachable from the entry block.
func (f *Function) Reachable() map[*Block]bool {
	seen := map[*Block]bool{}
	entry := f.Entry()
	if entry == nil {
		return seen
	}
	work := []*Block{entry}
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		if seen[b] {
			continue
		}
		seen[b] = true
		work = append(work, b.Succs...)
	}
	return seen
}

func (f *Function) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "define i32 @%s() {\n", f.Name)
	for i, b := range f.Blocks {
		if i > 0 {
			s.WriteString("\n")
		}
		fmt.Fprintf(&s, "%s:\n", b.Name)
		for _, in := range b.Instrs {
			fmt.Fprintf(&s, "  %s\n", in)
		}
		if b.Term != nil {
			fmt.Fprintf(&s, "  %s\n", b.Term)
		}
	}
	s.WriteString("}\n")
	return s.String()
}
