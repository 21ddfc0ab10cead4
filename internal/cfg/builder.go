package cfg

import (
	"fmt"

	"toyc/internal/backend"
)

// Builder constructs a Function through the backend.Builder interface.
// Misuse (emitting into a terminated block, reusing a finished builder,
// passing foreign handles) panics: these are generator bugs, not user errors.
type Builder struct {
	fn       *Function
	block    *Block
	nextID   int
	allocas  int // number of allocas at the head of the entry block
	finished bool
}

var _ backend.Builder = (*Builder)(nil)

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Function returns the function built so far, or nil before NewFunction.
func (b *Builder) Function() *Function {
	return b.fn
}

// Finish seals the builder and returns the function. Any later call on the
// builder panics.
func (b *Builder) Finish() *Function {
	b.check()
	b.finished = true
	return b.fn
}

func (b *Builder) check() {
	if b.finished {
		panic("cfg: builder used after Finish")
	}
	if b.fn == nil {
		panic("cfg: builder used before NewFunction")
	}
}

func (b *Builder) NewFunction(name string) backend.Block {
	if b.finished {
		panic("cfg: builder used after Finish")
	}
	if b.fn != nil {
		panic(fmt.Sprintf("cfg: function %q already started", b.fn.Name))
	}
	b.fn = &Function{Name: name}
	entry := b.newBlock("entry")
	b.block = entry
	return entry
}

func (b *Builder) NewBlock(name string) backend.Block {
	b.check()
	return b.newBlock(name)
}

func (b *Builder) newBlock(name string) *Block {
	if b.fn.Block(name) != nil {
		panic(fmt.Sprintf("cfg: duplicate block label %q", name))
	}
	blk := &Block{Name: name}
	b.fn.Blocks = append(b.fn.Blocks, blk)
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
	return b.own(blk).Terminated()
}

func (b *Builder) Alloca(name string) backend.Slot {
	b.check()
	slot := &Slot{Var: name}
	for _, s := range b.fn.Slots {
		if s.Var == name {
			panic(fmt.Sprintf("cfg: duplicate slot %q", name))
		}
	}
	b.fn.Slots = append(b.fn.Slots, slot)

	// Keep allocas grouped at the head of the entry block.
	entry := b.fn.Entry()
	in := &Instr{Op: OpAlloca, Slot: slot}
	entry.Instrs = append(entry.Instrs, nil)
	copy(entry.Instrs[b.allocas+1:], entry.Instrs[b.allocas:])
	entry.Instrs[b.allocas] = in
	b.allocas++
	return slot
}

func (b *Builder) Load(s backend.Slot, name string) backend.Value {
	b.check()
	v := b.newValue()
	b.emit(&Instr{Op: OpLoad, Result: v, Slot: b.slot(s)})
	return v
}

func (b *Builder) Store(v backend.Value, s backend.Slot) {
	b.check()
	b.emit(&Instr{Op: OpStore, Args: []*Value{b.value(v)}, Slot: b.slot(s)})
}

func (b *Builder) Const(n int32) backend.Value {
	b.check()
	return &Value{ID: -1, Const: true, Imm: n}
}

func (b *Builder) Arith(op backend.ArithOp, x, y backend.Value) backend.Value {
	b.check()
	v := b.newValue()
	b.emit(&Instr{Op: OpArith, Arith: op, Result: v, Args: []*Value{b.value(x), b.value(y)}})
	return v
}

func (b *Builder) Compare(op backend.CmpOp, x, y backend.Value) backend.Value {
	b.check()
	v := b.newValue()
	b.emit(&Instr{Op: OpCmp, Pred: op, Result: v, Args: []*Value{b.value(x), b.value(y)}})
	return v
}

// Br sets an unconditional branch terminator.
func (b *Builder) Br(target backend.Block) {
	b.check()
	t := b.own(target)
	b.terminate(&Instr{Op: OpBr, Targets: []*Block{t}})
	b.link(t)
}

// CondBr sets a conditional branch terminator.
func (b *Builder) CondBr(cond backend.Value, then, els backend.Block) {
	b.check()
	t, e := b.own(then), b.own(els)
	b.terminate(&Instr{Op: OpCondBr, Args: []*Value{b.value(cond)}, Targets: []*Block{t, e}})
	b.link(t)
	b.link(e)
}

// Ret sets a return terminator.
func (b *Builder) Ret(v backend.Value) {
	b.check()
	b.terminate(&Instr{Op: OpRet, Args: []*Value{b.value(v)}})
}

func (b *Builder) String() string {
	if b.fn == nil {
		return ""
	}
	return b.fn.String()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (b *Builder) newValue() *Value {
	v := &Value{ID: b.nextID}
	b.nextID++
	return v
}

func (b *Builder) emit(in *Instr) {
	if b.block.Terminated() {
		panic(fmt.Sprintf("cfg: emit %s into terminated block %q", in.Op, b.block.Name))
	}
	b.block.Instrs = append(b.block.Instrs, in)
}

func (b *Builder) terminate(in *Instr) {
	if b.block.Terminated() {
		panic(fmt.Sprintf("cfg: second terminator %s in block %q", in.Op, b.block.Name))
	}
	b.block.Term = in
}

func (b *Builder) link(to *Block) {
	b.block.Succs = append(b.block.Succs, to)
	to.Preds = append(to.Preds, b.block)
}

func (b *Builder) own(h backend.Block) *Block {
	blk, ok := h.(*Block)
	if !ok || b.fn.Block(blk.Name) != blk {
		panic(fmt.Sprintf("cfg: foreign block handle %v", h))
	}
	return blk
}

func (b *Builder) slot(h backend.Slot) *Slot {
	s, ok := h.(*Slot)
	if !ok {
		panic(fmt.Sprintf("cfg: foreign slot handle %T", h))
	}
	return s
}

func (b *Builder) value(h backend.Value) *Value {
	v, ok := h.(*Value)
	if !ok {
		panic(fmt.Sprintf("cfg: foreign value handle %T", h))
	}
	return v
}
