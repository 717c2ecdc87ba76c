package ssa

// Value is an IR operand: the tagged variant of spec.md §3.2
// (Const/InstrRef/Arg/Global), expressed as a marker-method interface the
// same way internal/ast represents its sum types. Each alternative is a
// small comparable struct so Values can be compared with ==, which
// mem2reg relies on when scanning for escaping alloca references.
type Value interface {
	isValue()
}

// Const is an immediate i32.
type Const struct{ Value int32 }

func (Const) isValue() {}

// Arg is the n-th parameter of the enclosing function.
type Arg struct{ Index int }

func (Arg) isValue() {}

// Global is the address of a global variable or function symbol.
type Global struct{ Name string }

func (Global) isValue() {}

// InstrRef is a stable reference to the instruction that defines this
// value; it is the pointer identity of the producing *Instruction, which
// the arena guarantees remains valid for the function's lifetime (spec.md
// §3.2 I7).
type InstrRef struct{ Instr *Instruction }

func (InstrRef) isValue() {}
