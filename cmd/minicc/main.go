// Command minicc reads MiniC source from stdin and writes its SSA IR to
// stdout, or a single diagnostic line to stdout on failure (spec.md §6).
//
// Grounded on cmd/wazero/wazero.go's doMain(stdOut, stdErr io.Writer) int
// split and os.Exit(doMain(...)) wiring, which keeps main itself
// untestable-but-trivial and puts all behavior behind a function unit
// tests can drive directly.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/minic-lang/minicc/internal/codegen"
	"github.com/minic-lang/minicc/internal/mem2reg"
	"github.com/minic-lang/minicc/internal/parser"
	"github.com/minic-lang/minicc/internal/ssa"
	"github.com/minic-lang/minicc/internal/vregnum"
)

func main() {
	os.Exit(doMain(os.Stdin, os.Stdout, os.Stderr))
}

// doMain runs the full lexer→parser→codegen→mem2reg→vregnum→printer
// pipeline over stdIn and writes the result to stdOut. On failure it writes
// a single diagnostic line to stdOut instead, matching
// original_source/src/main.cpp's catch-and-print-to-stdout behavior. It
// returns the process exit code.
func doMain(stdIn io.Reader, stdOut, stdErr io.Writer) int {
	src, err := io.ReadAll(stdIn)
	if err != nil {
		fmt.Fprintln(stdOut, err)
		return 1
	}

	prog, err := parser.Parse(string(src))
	if err != nil {
		fmt.Fprintln(stdOut, err)
		return 1
	}

	irProg, err := codegen.Lower(prog)
	if err != nil {
		fmt.Fprintln(stdOut, err)
		return 1
	}

	b := ssa.NewBuilder()
	mem2reg.RunProgram(b, irProg)
	for _, item := range irProg.Items {
		if fn, ok := item.(*ssa.Function); ok {
			vregnum.Number(fn)
		}
	}

	fmt.Fprint(stdOut, ssa.Print(irProg))
	return 0
}
