// Package vregnum assigns the sequential integer names that the printer
// renders as `%N`. Numbering must run only after mem2reg has finished
// rewriting a function, since mem2reg deletes and rewrites instructions in
// place; cmd/minicc's doMain runs the stages in that order.
//
// Grounded on original_source/src/vreg_assigner.cpp's single counter
// walked over blocks then instructions, and on the teacher's
// BlockIteratorBegin/Next block-order iteration idiom
// (internal/engine/wazevo/ssa/builder.go).
package vregnum

import "github.com/minic-lang/minicc/internal/ssa"

// Number assigns labels and vregs to every block and result-producing
// instruction of fn, in block order, starting after the function's
// arguments (spec.md §4.4: args are %0..%(argc-1)).
func Number(fn *ssa.Function) {
	counter := len(fn.ArgTypes)
	for _, b := range fn.Blocks {
		b.SetLabel(counter)
		counter++
		for _, phi := range b.Phis() {
			phi.SetVreg(counter)
			counter++
		}
		for _, in := range b.Instructions() {
			if in.HasResult() {
				in.SetVreg(counter)
				counter++
			}
		}
	}
}
