package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := doMain(strings.NewReader(src), &out, &errOut)
	return out.String(), errOut.String(), code
}

func TestS1TrivialReturn(t *testing.T) {
	out, errOut, code := run(t, "int main() { return 0; }")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "define dso_local i32 @main() {")
	assert.Contains(t, out, "ret i32 0")
	assert.NotContains(t, out, "alloca")
}

func TestS2StraightLineLocals(t *testing.T) {
	out, errOut, code := run(t, "int main() { int x = 1; x = x + 2; return x; }")
	require.Equal(t, 0, code, errOut)
	assert.NotContains(t, out, "alloca")
	assert.NotContains(t, out, "store")
	assert.NotContains(t, out, "load")
	assert.Contains(t, out, "%2 = add i32 %1, 2")
	assert.Contains(t, out, "ret i32")
}

func TestS3WhileLoopPhis(t *testing.T) {
	src := `
int main() {
    int i = 0;
    int acc = 0;
    while (i < 10) {
        acc = acc + i;
        i = i + 1;
    }
    return acc;
}`
	out, errOut, code := run(t, src)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, 2, strings.Count(out, " = phi i32 "))
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "phi i32") {
			assert.Equal(t, 2, strings.Count(line, "["), "phi must have exactly two sources: %q", line)
		}
	}
	assert.NotContains(t, out, "alloca")
}

func TestS4IfElseNoAlloca(t *testing.T) {
	src := `
int main(int n) {
    if (n < 0) {
        return 0;
    } else {
        return 1;
    }
}`
	out, errOut, code := run(t, src)
	require.Equal(t, 0, code, errOut)
	assert.NotContains(t, out, "alloca")
	assert.Equal(t, 2, strings.Count(out, "ret i32"))
}

func TestS5LibraryFunctionBinding(t *testing.T) {
	src := `
int main() {
    int x = getint();
    putint(x);
    return getch();
}`
	out, errOut, code := run(t, src)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "declare i32 @getch()")
	assert.Contains(t, out, "declare i32 @getint()")
	assert.Contains(t, out, "declare void @putint(i32)")
	assert.NotContains(t, out, "@putch")
	assert.Contains(t, out, "call i32 @getint()")
	assert.Contains(t, out, "call void @putint(")
}

func TestS6GlobalConstantFolding(t *testing.T) {
	src := "const int K = 2 * 3 + 1; int main() { return K; }"
	out, errOut, code := run(t, src)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "ret i32 7")
	assert.NotContains(t, out, "@K")
}

func TestLexErrorReportsDiagnosticAndExitsOne(t *testing.T) {
	out, _, code := run(t, "int main() { return 0 @ 1; }")
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, out)
}

func TestCodegenErrorReportsDiagnosticAndExitsOne(t *testing.T) {
	out, _, code := run(t, "int main() { return undefined_symbol; }")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "can't find symbol")
}

func TestNotDoubleNegationUsesI1Operand(t *testing.T) {
	out, errOut, code := run(t, "int main() { return !!0; }")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "icmp eq i1")
}
