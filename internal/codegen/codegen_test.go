package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minic-lang/minicc/internal/codegen"
	"github.com/minic-lang/minicc/internal/parser"
	"github.com/minic-lang/minicc/internal/ssa"
)

func lower(t *testing.T, src string) *ssa.Program {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	irProg, err := codegen.Lower(prog)
	require.NoError(t, err)
	return irProg
}

func findFunc(prog *ssa.Program, name string) *ssa.Function {
	for _, item := range prog.Items {
		if fn, ok := item.(*ssa.Function); ok && fn.Name == name {
			return fn
		}
	}
	return nil
}

func TestLowerTrivialReturn(t *testing.T) {
	prog := lower(t, "int main() { return 0; }")
	fn := findFunc(prog, "main")
	require.NotNil(t, fn)
	require.Len(t, fn.Blocks, 1)
	term := fn.Blocks[0].Terminator()
	assert.Equal(t, ssa.TermRet, term.Kind)
	assert.Equal(t, ssa.Const{Value: 0}, term.RetVal)
}

func TestLowerLocalVarAllocaStoreLoad(t *testing.T) {
	prog := lower(t, "int main() { int x = 1; x = x + 2; return x; }")
	fn := findFunc(prog, "main")
	require.NotNil(t, fn)
	var opcodes []ssa.Opcode
	for _, in := range fn.Blocks[0].Instructions() {
		opcodes = append(opcodes, in.Opcode())
	}
	assert.Contains(t, opcodes, ssa.OpcodeAlloca)
	assert.Contains(t, opcodes, ssa.OpcodeStore)
	assert.Contains(t, opcodes, ssa.OpcodeLoad)
	assert.Contains(t, opcodes, ssa.OpcodeAdd)
}

func TestLowerIfElseBranches(t *testing.T) {
	prog := lower(t, "int main() { if (1) { return 1; } else { return 2; } }")
	fn := findFunc(prog, "main")
	require.NotNil(t, fn)
	assert.Equal(t, ssa.TermBrCond, fn.Blocks[0].Terminator().Kind)
	rets := 0
	for _, b := range fn.Blocks {
		if b.Terminator().Kind == ssa.TermRet {
			rets++
		}
	}
	assert.Equal(t, 2, rets)
}

func TestLowerWhileBreakContinue(t *testing.T) {
	prog := lower(t, `int main() {
		int i = 0;
		while (i < 10) {
			i = i + 1;
			if (i == 5) { continue; }
			if (i == 9) { break; }
		}
		return i;
	}`)
	fn := findFunc(prog, "main")
	require.NotNil(t, fn)
	assert.Greater(t, len(fn.Blocks), 4)
}

func TestLowerConstFoldsNestedExpression(t *testing.T) {
	prog := lower(t, "const int K = 2 * 3 + 1; int main() { return K; }")
	fn := findFunc(prog, "main")
	require.NotNil(t, fn)
	term := fn.Blocks[0].Terminator()
	assert.Equal(t, ssa.Const{Value: 7}, term.RetVal)
}

func TestLowerDivByZeroConstFoldsToZero(t *testing.T) {
	prog := lower(t, "const int K = 1 / 0; int main() { return K; }")
	fn := findFunc(prog, "main")
	require.NotNil(t, fn)
	term := fn.Blocks[0].Terminator()
	assert.Equal(t, ssa.Const{Value: 0}, term.RetVal)
}

func TestLowerGlobalVarDecl(t *testing.T) {
	prog := lower(t, "int g = 5; int main() { return g; }")
	var global *ssa.GlobalVar
	for _, item := range prog.Items {
		if g, ok := item.(*ssa.GlobalVar); ok {
			global = g
		}
	}
	require.NotNil(t, global)
	assert.Equal(t, "g", global.Name)
	assert.Equal(t, int32(5), global.Init)
}

func TestLowerNotDoesNotCastOperand(t *testing.T) {
	prog := lower(t, "int main() { return !(1 < 2); }")
	fn := findFunc(prog, "main")
	require.NotNil(t, fn)
	var icmp *ssa.Instruction
	for _, in := range fn.Blocks[0].Instructions() {
		if in.Opcode() == ssa.OpcodeIcmpEq {
			icmp = in
		}
	}
	require.NotNil(t, icmp)
	assert.Equal(t, ssa.I1, icmp.OperandType())
}

func TestLowerCallArgCountMismatch(t *testing.T) {
	prog, err := parser.Parse("int f(int a) { return a; } int main() { return f(); }")
	require.NoError(t, err)
	_, err = codegen.Lower(prog)
	assert.ErrorIs(t, err, codegen.ErrArgCountMismatch)
}

func TestLowerAssignToFunctionIsError(t *testing.T) {
	prog, err := parser.Parse("int f() { return 0; } int main() { f = 1; return 0; }")
	require.NoError(t, err)
	_, err = codegen.Lower(prog)
	assert.ErrorIs(t, err, codegen.ErrAssignToConstOrFunc)
}

func TestLowerUndefinedSymbol(t *testing.T) {
	prog, err := parser.Parse("int main() { return undeclared; }")
	require.NoError(t, err)
	_, err = codegen.Lower(prog)
	assert.ErrorIs(t, err, codegen.ErrSymbolNotFound)
}

func TestLowerBreakOutsideLoopIsError(t *testing.T) {
	prog, err := parser.Parse("int main() { break; return 0; }")
	require.NoError(t, err)
	_, err = codegen.Lower(prog)
	assert.ErrorIs(t, err, codegen.ErrBreakContinueOutsideLoop)
}

func TestLowerDuplicateArgumentIsError(t *testing.T) {
	prog, err := parser.Parse("int f(int a, int a) { return a; }")
	require.NoError(t, err)
	_, err = codegen.Lower(prog)
	assert.ErrorIs(t, err, codegen.ErrDuplicateArgument)
}

func TestLowerReturnValueFromVoidIsError(t *testing.T) {
	prog, err := parser.Parse("void f() { return 1; }")
	require.NoError(t, err)
	_, err = codegen.Lower(prog)
	assert.ErrorIs(t, err, codegen.ErrReturnValueFromVoid)
}

func TestLowerImplicitLibraryFunctionsAreBoundLazily(t *testing.T) {
	prog := lower(t, "int main() { return getint(); }")
	var decl *ssa.FuncDecl
	for _, item := range prog.Items {
		if d, ok := item.(*ssa.FuncDecl); ok && d.Name == "getint" {
			decl = d
		}
	}
	require.NotNil(t, decl)
	assert.Equal(t, ssa.I32, decl.RetType)
}
