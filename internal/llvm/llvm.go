// Package llvm implements backend.Builder on top of github.com/llir/llvm and
// renders the result as textual LLVM IR.
package llvm

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"toyc/internal/backend"
)

// Block wraps an *ir.Block so it satisfies backend.Block.
type Block struct {
	*ir.Block
}

func (b *Block) Label() string { return b.Name() }

// Slot is an i32 stack slot.
type Slot struct {
	Var    string
	Alloca *ir.InstAlloca
}

func (s *Slot) Name() string { return s.Var }

// Value wraps an llir value.
type Value struct {
	value.Value
}

var arithOps = map[backend.ArithOp]func(*ir.Block, value.Value, value.Value) value.Value{
	backend.Add:  func(b *ir.Block, x, y value.Value) value.Value { return b.NewAdd(x, y) },
	backend.Sub:  func(b *ir.Block, x, y value.Value) value.Value { return b.NewSub(x, y) },
	backend.Mul:  func(b *ir.Block, x, y value.Value) value.Value { return b.NewMul(x, y) },
	backend.SDiv: func(b *ir.Block, x, y value.Value) value.Value { return b.NewSDiv(x, y) },
}

var predicates = map[backend.CmpOp]enum.IPred{
	backend.SLT: enum.IPredSLT,
	backend.SGT: enum.IPredSGT,
	backend.SLE: enum.IPredSLE,
	backend.SGE: enum.IPredSGE,
	backend.EQ:  enum.IPredEQ,
	backend.NE:  enum.IPredNE,
}

// Builder emits a single function into an llir module.
//
// Comparisons produce i1 values. They are widened to i32 whenever they are
// stored, returned or used as arithmetic operands, and i32 values used as
// branch conditions are tested against zero.
type Builder struct {
	Module *ir.Module

	fn      *ir.Func
	entry   *Block
	block   *Block
	blocks  map[*ir.Block]*Block
	allocas int
}

var _ backend.Builder = (*Builder)(nil)

func NewBuilder() *Builder {
	return &Builder{Module: ir.NewModule(), blocks: make(map[*ir.Block]*Block)}
}

// Func returns the function under construction.
func (b *Builder) Func() *ir.Func { return b.fn }

func (b *Builder) NewFunction(name string) backend.Block {
	if b.fn != nil {
		panic(fmt.Sprintf("llvm: function %q already started", b.fn.Name()))
	}
	b.fn = b.Module.NewFunc(name, types.I32)
	b.entry = b.newBlock("entry")
	b.block = b.entry
	return b.entry
}

func (b *Builder) NewBlock(name string) backend.Block {
	b.check()
	return b.newBlock(name)
}

func (b *Builder) newBlock(name string) *Block {
	for _, blk := range b.fn.Blocks {
		if blk.Name() == name {
			panic(fmt.Sprintf("llvm: duplicate block label %q", name))
		}
	}
	blk := &Block{Block: b.fn.NewBlock(name)}
	b.blocks[blk.Block] = blk
	return blk
}

func (b *Builder) SetInsertPoint(blk backend.Block) {
	b.check()
	b.block = b.own(blk)
}

func (b *Builder) InsertBlock() backend.Block {
	b.check()
	return b.block
}

func (b *Builder) IsTerminated(blk backend.Block) bool {
	b.check()
	return b.own(blk).Term != nil
}

func (b *Builder) Alloca(name string) backend.Slot {
	b.check()
	inst := b.entry.NewAlloca(types.I32)
	// Block labels share the local namespace and never contain ".addr".
	inst.SetName(name + ".addr")

	// NewAlloca appended the instruction; move it up with the other allocas.
	insts := b.entry.Insts
	copy(insts[b.allocas+1:], insts[b.allocas:len(insts)-1])
	insts[b.allocas] = inst
	b.allocas++
	return &Slot{Var: name, Alloca: inst}
}

func (b *Builder) Load(s backend.Slot, name string) backend.Value {
	b.check()
	b.open()
	return &Value{b.block.NewLoad(types.I32, b.slot(s).Alloca)}
}

func (b *Builder) Store(v backend.Value, s backend.Slot) {
	b.check()
	b.open()
	b.block.NewStore(b.widen(b.value(v)), b.slot(s).Alloca)
}

func (b *Builder) Const(n int32) backend.Value {
	return &Value{constant.NewInt(types.I32, int64(n))}
}

func (b *Builder) Arith(op backend.ArithOp, x, y backend.Value) backend.Value {
	b.check()
	emit, ok := arithOps[op]
	if !ok {
		panic(fmt.Sprintf("llvm: unknown arithmetic op %v", op))
	}
	b.open()
	return &Value{emit(b.block.Block, b.widen(b.value(x)), b.widen(b.value(y)))}
}

func (b *Builder) Compare(op backend.CmpOp, x, y backend.Value) backend.Value {
	b.check()
	pred, ok := predicates[op]
	if !ok {
		panic(fmt.Sprintf("llvm: unknown comparison %v", op))
	}
	b.open()
	return &Value{b.block.NewICmp(pred, b.widen(b.value(x)), b.widen(b.value(y)))}
}

func (b *Builder) Br(target backend.Block) {
	b.check()
	b.open()
	b.block.NewBr(b.own(target).Block)
}

func (b *Builder) CondBr(cond backend.Value, then, els backend.Block) {
	b.check()
	b.open()
	c := b.value(cond)
	if !c.Type().Equal(types.I1) {
		c = b.block.NewICmp(enum.IPredNE, c, constant.NewInt(types.I32, 0))
	}
	b.block.NewCondBr(c, b.own(then).Block, b.own(els).Block)
}

func (b *Builder) Ret(v backend.Value) {
	b.check()
	b.open()
	b.block.NewRet(b.widen(b.value(v)))
}

// String returns the module as LLVM assembly.
func (b *Builder) String() string {
	return b.Module.String()
}

func (b *Builder) check() {
	if b.fn == nil {
		panic("llvm: builder used before NewFunction")
	}
}

// open panics when the insertion block already has a terminator.
func (b *Builder) open() {
	if b.block.Term != nil {
		panic(fmt.Sprintf("llvm: emit into terminated block %q", b.block.Name()))
	}
}

func (b *Builder) widen(v value.Value) value.Value {
	if v.Type().Equal(types.I1) {
		return b.block.NewZExt(v, types.I32)
	}
	return v
}

func (b *Builder) own(h backend.Block) *Block {
	blk, ok := h.(*Block)
	if !ok || b.blocks[blk.Block] != blk {
		panic(fmt.Sprintf("llvm: foreign block handle %v", h))
	}
	return blk
}

func (b *Builder) slot(h backend.Slot) *Slot {
	s, ok := h.(*Slot)
	if !ok {
		panic(fmt.Sprintf("llvm: foreign slot handle %T", h))
	}
	return s
}

func (b *Builder) value(h backend.Value) value.Value {
	v, ok := h.(*Value)
	if !ok {
		panic(fmt.Sprintf("llvm: foreign value handle %T", h))
	}
	return v.Value
}
