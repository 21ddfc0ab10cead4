package llvm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toyc/internal/backend"
)

func TestBuilderEmitsModule(t *testing.T) {
	b := NewBuilder()
	entry := b.NewFunction("main")
	x := b.Alloca("x")
	b.Store(b.Const(10), x)
	cond := b.Compare(backend.SGT, b.Load(x, "x"), b.Const(5))

	then := b.NewBlock("then")
	merge := b.NewBlock("merge")
	b.CondBr(cond, then, merge)
	require.True(t, b.IsTerminated(entry))

	b.SetInsertPoint(then)
	y := b.Alloca("y")
	b.Store(b.Const(1), y)
	b.Br(merge)

	b.SetInsertPoint(merge)
	b.Ret(b.Load(y, "y"))

	out := b.String()
	for _, want := range []string{
		"define i32 @main()",
		"entry:",
		"%x.addr = alloca i32",
		"%y.addr = alloca i32",
		"icmp sgt i32",
		"br i1",
		"label %then",
		"label %merge",
		"ret i32",
	} {
		assert.Contains(t, out, want)
	}

	// Both allocas sit at the head of the entry block.
	insts := b.Func().Blocks[0].Insts
	require.GreaterOrEqual(t, len(insts), 2)
	assert.Equal(t, x.(*Slot).Alloca, insts[0])
	assert.Equal(t, y.(*Slot).Alloca, insts[1])
	assert.Less(t, strings.Index(out, "%y.addr = alloca"), strings.Index(out, "store i32 10"))
}

func TestComparisonWidenedOnStoreAndRet(t *testing.T) {
	b := NewBuilder()
	b.NewFunction("main")
	flag := b.Alloca("flag")
	b.Store(b.Compare(backend.EQ, b.Const(1), b.Const(1)), flag)
	b.Ret(b.Compare(backend.SLT, b.Const(1), b.Const(2)))

	out := b.String()
	assert.Equal(t, 2, strings.Count(out, "zext i1"))
}

func TestArithmeticConditionTestedAgainstZero(t *testing.T) {
	b := NewBuilder()
	b.NewFunction("main")
	yes := b.NewBlock("yes")
	no := b.NewBlock("no")
	b.CondBr(b.Arith(backend.Sub, b.Const(3), b.Const(3)), yes, no)
	b.SetInsertPoint(yes)
	b.Ret(b.Const(1))
	b.SetInsertPoint(no)
	b.Ret(b.Const(0))

	out := b.String()
	assert.Contains(t, out, "icmp ne i32")
	assert.Contains(t, out, "sub i32 3, 3")
}

func TestArithOpcodes(t *testing.T) {
	b := NewBuilder()
	b.NewFunction("main")
	v := b.Arith(backend.Add, b.Const(1), b.Const(2))
	v = b.Arith(backend.Mul, v, b.Const(3))
	v = b.Arith(backend.SDiv, v, b.Const(4))
	b.Ret(v)

	out := b.String()
	for _, op := range []string{"add i32", "mul i32", "sdiv i32", "ret i32"} {
		assert.Contains(t, out, op)
	}
}

func TestBuilderMisusePanics(t *testing.T) {
	t.Run("emit after terminator", func(t *testing.T) {
		b := NewBuilder()
		b.NewFunction("main")
		b.Ret(b.Const(0))
		assert.Panics(t, func() { b.Ret(b.Const(1)) })
	})
	t.Run("duplicate label", func(t *testing.T) {
		b := NewBuilder()
		b.NewFunction("main")
		assert.Panics(t, func() { b.NewBlock("entry") })
	})
	t.Run("before function", func(t *testing.T) {
		assert.Panics(t, func() { NewBuilder().NewBlock("x") })
	})
	t.Run("foreign block", func(t *testing.T) {
		other := NewBuilder()
		other.NewFunction("other")
		foreign := other.NewBlock("x")

		b := NewBuilder()
		b.NewFunction("main")
		assert.Panics(t, func() { b.Br(foreign) })
	})
}
