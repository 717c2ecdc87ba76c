package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minic-lang/minicc/internal/ast"
)

func TestParseFunc(t *testing.T) {
	prog, err := Parse(`int main() { return 0; }`)
	require.NoError(t, err)
	require.Len(t, prog.Globals, 1)

	fn, ok := prog.Globals[0].(*ast.Func)
	require.True(t, ok)
	require.Equal(t, ast.Int, fn.RetType)
	require.Equal(t, "main", fn.Name)
	require.Len(t, fn.Body, 1)

	ret, ok := fn.Body[0].(*ast.ReturnStmt)
	require.True(t, ok)
	num, ok := ret.Value.(*ast.NumberExpr)
	require.True(t, ok)
	require.EqualValues(t, 0, num.Value)
}

func TestParseParams(t *testing.T) {
	prog, err := Parse(`int add(int a, int b) { return a + b; }`)
	require.NoError(t, err)
	fn := prog.Globals[0].(*ast.Func)
	require.Equal(t, []ast.Param{{Type: ast.Int, Name: "a"}, {Type: ast.Int, Name: "b"}}, fn.Args)
}

func TestParseGlobalVarDecl(t *testing.T) {
	prog, err := Parse(`const int N = 10; int x, y = 1;`)
	require.NoError(t, err)
	require.Len(t, prog.Globals, 2)

	n := prog.Globals[0].(*ast.VarDecl)
	require.True(t, n.IsConst)
	require.Equal(t, ast.Int, n.Type)
	require.Len(t, n.Defs, 1)
	require.Equal(t, "N", n.Defs[0].Name)

	xy := prog.Globals[1].(*ast.VarDecl)
	require.False(t, xy.IsConst)
	require.Len(t, xy.Defs, 2)
	require.Equal(t, "x", xy.Defs[0].Name)
	require.Nil(t, xy.Defs[0].Init)
	require.Equal(t, "y", xy.Defs[1].Name)
	require.NotNil(t, xy.Defs[1].Init)
}

func TestParseIfElse(t *testing.T) {
	prog, err := Parse(`int main() { if (1) return 1; else return 2; }`)
	require.NoError(t, err)
	fn := prog.Globals[0].(*ast.Func)
	ifElse, ok := fn.Body[0].(*ast.IfElseStmt)
	require.True(t, ok)
	require.NotNil(t, ifElse.Then)
	require.NotNil(t, ifElse.Else)
}

func TestParseWhileBreakContinue(t *testing.T) {
	prog, err := Parse(`int main() {
		int i = 0;
		while (i < 10) {
			if (i == 5) break;
			if (i == 1) continue;
			i = i + 1;
		}
		return i;
	}`)
	require.NoError(t, err)
	fn := prog.Globals[0].(*ast.Func)
	require.Len(t, fn.Body, 3)
	_, ok := fn.Body[1].(*ast.WhileStmt)
	require.True(t, ok)
}

func TestParseExprPrecedence(t *testing.T) {
	prog, err := Parse(`int main() { return 1 + 2 * 3 < 10 && !0 || 1; }`)
	require.NoError(t, err)
	fn := prog.Globals[0].(*ast.Func)
	ret := fn.Body[0].(*ast.ReturnStmt)

	top, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.Or, top.Op)

	lhs, ok := top.LHS.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.And, lhs.Op)

	cmp, ok := lhs.LHS.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.Lt, cmp.Op)

	addExpr, ok := cmp.LHS.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.Plus, addExpr.Op)

	mulExpr, ok := addExpr.RHS.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.Mult, mulExpr.Op)
}

func TestParseCallExpr(t *testing.T) {
	prog, err := Parse(`int main() { return add(1, 2 * 3); }`)
	require.NoError(t, err)
	fn := prog.Globals[0].(*ast.Func)
	ret := fn.Body[0].(*ast.ReturnStmt)
	call, ok := ret.Value.(*ast.CallExpr)
	require.True(t, ok)
	require.Equal(t, "add", call.Func)
	require.Len(t, call.Args, 2)
}

func TestParseAssignVsExprStmt(t *testing.T) {
	prog, err := Parse(`int main() { int x; x = 1; f(x); return x; }`)
	require.NoError(t, err)
	fn := prog.Globals[0].(*ast.Func)
	require.Len(t, fn.Body, 4)

	_, isDecl := fn.Body[0].(*ast.VarDeclStmt)
	require.True(t, isDecl)
	_, isAssign := fn.Body[1].(*ast.AssignStmt)
	require.True(t, isAssign)
	_, isExprStmt := fn.Body[2].(*ast.ExprStmt)
	require.True(t, isExprStmt)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"missing semicolon", `int main() { return 0 }`},
		{"missing rparen", `int main( { return 0; }`},
		{"bad type", `foo main() { return 0; }`},
		{"missing decl name", `int main() { int; return 0; }`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.src)
			require.Error(t, err)
		})
	}
}
