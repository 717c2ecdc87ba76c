package mem2reg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minic-lang/minicc/internal/codegen"
	"github.com/minic-lang/minicc/internal/mem2reg"
	"github.com/minic-lang/minicc/internal/parser"
	"github.com/minic-lang/minicc/internal/ssa"
)

func lowerAndPromote(t *testing.T, src string) *ssa.Function {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	irProg, err := codegen.Lower(prog)
	require.NoError(t, err)

	b := ssa.NewBuilder()
	mem2reg.RunProgram(b, irProg)

	var fn *ssa.Function
	for _, item := range irProg.Items {
		if f, ok := item.(*ssa.Function); ok && f.Name == "main" {
			fn = f
		}
	}
	require.NotNil(t, fn)
	return fn
}

func countOpcode(fn *ssa.Function, op ssa.Opcode) int {
	n := 0
	for _, b := range fn.Blocks {
		for _, in := range b.Instructions() {
			if in.Opcode() == op {
				n++
			}
		}
		for _, phi := range b.Phis() {
			if phi.Opcode() == op {
				n++
			}
		}
	}
	return n
}

func TestPromoteStraightLineEliminatesMemoryTraffic(t *testing.T) {
	fn := lowerAndPromote(t, "int main() { int x = 1; x = x + 2; return x; }")
	assert.Equal(t, 0, countOpcode(fn, ssa.OpcodeAlloca))
	assert.Equal(t, 0, countOpcode(fn, ssa.OpcodeStore))
	assert.Equal(t, 0, countOpcode(fn, ssa.OpcodeLoad))
}

func TestPromoteIfElseMergePhiHasTwoSources(t *testing.T) {
	fn := lowerAndPromote(t, `int main() {
		int x = 0;
		if (1 < 2) {
			x = 1;
		} else {
			x = 2;
		}
		return x;
	}`)
	assert.Equal(t, 0, countOpcode(fn, ssa.OpcodeAlloca))

	var phis []*ssa.Instruction
	for _, b := range fn.Blocks {
		phis = append(phis, b.Phis()...)
	}
	require.Len(t, phis, 1)
	assert.Len(t, phis[0].PhiSources(), 2)
}

func TestPromoteWhileLoopProducesTwoHeaderPhis(t *testing.T) {
	fn := lowerAndPromote(t, `int main() {
		int i = 0;
		int acc = 0;
		while (i < 10) {
			acc = acc + i;
			i = i + 1;
		}
		return acc;
	}`)
	assert.Equal(t, 0, countOpcode(fn, ssa.OpcodeAlloca))

	var headerPhis []*ssa.Instruction
	for _, b := range fn.Blocks {
		if len(b.Phis()) > 0 {
			headerPhis = b.Phis()
		}
	}
	require.Len(t, headerPhis, 2)
	for _, phi := range headerPhis {
		assert.Len(t, phi.PhiSources(), 2)
	}
}

func TestPromoteIdempotentOnProgramWithNoAllocas(t *testing.T) {
	fn := lowerAndPromote(t, "int main() { return 0; }")
	b := ssa.NewBuilder()
	before := ssa.Print(&ssa.Program{Items: []ssa.ProgramItem{fn}})
	mem2reg.Run(b, fn)
	after := ssa.Print(&ssa.Program{Items: []ssa.ProgramItem{fn}})
	assert.Equal(t, before, after)
}

func TestPromoteRemovesSingleStoreVariable(t *testing.T) {
	// A variable never stored to after its initializer has no phi need;
	// mem2reg should still remove its alloca/store/load trio.
	fn := lowerAndPromote(t, "int main(int n) { int x = n; return x; }")
	assert.Equal(t, 0, countOpcode(fn, ssa.OpcodeAlloca))
	assert.Equal(t, 0, countOpcode(fn, ssa.OpcodeLoad))
}
