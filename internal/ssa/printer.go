package ssa

import (
	"fmt"
	"strings"
)

// Print serializes prog in the LLVM-compatible textual format fixed by
// spec.md §6. Blocks and instructions must already carry vreg/label
// numbers assigned by internal/vregnum; Print itself does no numbering.
//
// Grounded on the teacher's ssa.Builder.Format (strings.Builder,
// block-by-block iteration) and BasicBlock's header/operand formatting
// (internal/engine/wazevo/ssa/builder.go, basic_block.go).
func Print(prog *Program) string {
	var sb strings.Builder
	for i, item := range prog.Items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch it := item.(type) {
		case *FuncDecl:
			printFuncDecl(&sb, it)
		case *GlobalVar:
			printGlobalVar(&sb, it)
		case *Function:
			printFunction(&sb, it)
		}
	}
	return sb.String()
}

func printFuncDecl(sb *strings.Builder, d *FuncDecl) {
	fmt.Fprintf(sb, "declare %s @%s(%s)\n", d.RetType, d.Name, joinTypes(d.ArgTypes))
}

func printGlobalVar(sb *strings.Builder, g *GlobalVar) {
	fmt.Fprintf(sb, "@%s = dso_local global %s %d\n", g.Name, g.Type, g.Init)
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func printFunction(sb *strings.Builder, fn *Function) {
	params := make([]string, len(fn.ArgTypes))
	for i, t := range fn.ArgTypes {
		params[i] = fmt.Sprintf("%s %%%d", t, i)
	}
	fmt.Fprintf(sb, "define dso_local %s @%s(%s) {\n", fn.RetType, fn.Name, strings.Join(params, ", "))
	for bi, b := range fn.Blocks {
		if bi > 0 {
			label, _ := b.Label()
			fmt.Fprintf(sb, "%d:\n", label)
		}
		for _, phi := range b.Phis() {
			printInstr(sb, phi)
		}
		for _, in := range b.Instructions() {
			printInstr(sb, in)
		}
		printTerminator(sb, b.Terminator())
	}
	sb.WriteString("}\n")
}

func printInstr(sb *strings.Builder, in *Instruction) {
	vreg, _ := in.Vreg()
	switch in.Opcode() {
	case OpcodeAdd, OpcodeSub, OpcodeMul, OpcodeSDiv, OpcodeSRem, OpcodeAnd, OpcodeOr,
		OpcodeIcmpSlt, OpcodeIcmpSle, OpcodeIcmpSgt, OpcodeIcmpSge, OpcodeIcmpEq, OpcodeIcmpNe:
		lhs, rhs := in.BinaryArgs()
		fmt.Fprintf(sb, "    %%%d = %s %s %s, %s\n", vreg, in.Opcode(), in.OperandType(), renderValue(lhs), renderValue(rhs))
	case OpcodeAlloca:
		fmt.Fprintf(sb, "    %%%d = alloca %s\n", vreg, in.Type())
	case OpcodeStore:
		value, ptr := in.StoreArgs()
		fmt.Fprintf(sb, "    store %s %s, ptr %s\n", in.Type(), renderValue(value), renderValue(ptr))
	case OpcodeLoad:
		fmt.Fprintf(sb, "    %%%d = load %s, ptr %s\n", vreg, in.Type(), renderValue(in.LoadPtr()))
	case OpcodeCall:
		argTypes, args := in.CallArgs()
		argStrs := make([]string, len(args))
		for i, a := range args {
			argStrs[i] = fmt.Sprintf("%s %s", argTypes[i], renderValue(a))
		}
		if in.Type() == Void {
			fmt.Fprintf(sb, "    call %s @%s(%s)\n", in.Type(), in.Callee(), strings.Join(argStrs, ", "))
		} else {
			fmt.Fprintf(sb, "    %%%d = call %s @%s(%s)\n", vreg, in.Type(), in.Callee(), strings.Join(argStrs, ", "))
		}
	case OpcodeZext:
		fmt.Fprintf(sb, "    %%%d = zext i1 %s to %s\n", vreg, renderValue(in.ZextArg()), in.ZextTo())
	case OpcodePhi:
		sources := in.PhiSources()
		parts := make([]string, len(sources))
		for i, s := range sources {
			label, _ := s.Pred.Label()
			parts[i] = fmt.Sprintf("[%s, %%%d]", renderValue(s.Value), label)
		}
		fmt.Fprintf(sb, "    %%%d = phi %s %s\n", vreg, in.Type(), strings.Join(parts, ", "))
	}
}

func printTerminator(sb *strings.Builder, t Terminator) {
	switch t.Kind {
	case TermRet:
		if t.HasValue {
			fmt.Fprintf(sb, "    ret %s %s\n", t.RetType, renderValue(t.RetVal))
		} else {
			sb.WriteString("    ret void\n")
		}
	case TermBr:
		label, _ := t.Dest.Label()
		fmt.Fprintf(sb, "    br label %%%d\n", label)
	case TermBrCond:
		trueLabel, _ := t.IfTrue.Label()
		falseLabel, _ := t.IfFalse.Label()
		fmt.Fprintf(sb, "    br i1 %s, label %%%d, label %%%d\n", renderValue(t.Cond), trueLabel, falseLabel)
	case TermUnset:
		panic("block not terminated!")
	}
}

func renderValue(v Value) string {
	switch val := v.(type) {
	case Const:
		return fmt.Sprintf("%d", val.Value)
	case Arg:
		return fmt.Sprintf("%%%d", val.Index)
	case Global:
		return fmt.Sprintf("@%s", val.Name)
	case InstrRef:
		vreg, _ := val.Instr.Vreg()
		return fmt.Sprintf("%%%d", vreg)
	default:
		return "<invalid>"
	}
}
