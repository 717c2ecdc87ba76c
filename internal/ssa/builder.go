package ssa

import "github.com/minic-lang/minicc/internal/ssa/arena"

// Builder is the IR construction API contract of spec.md §4.1, backed by
// arena pools so every handle it returns (*Block, *Instruction) stays at
// a stable address for the life of the compilation -- grounded on the
// teacher's arena-backed Builder (internal/engine/wazevo/ssa/builder.go),
// whose AllocateInstruction/InsertInstruction split this type collapses
// into Append/PrependPhi since MiniC has no separate "allocate, then
// insert later" need.
type Builder struct {
	blocks *arena.Pool[Block]
	instrs *arena.Pool[Instruction]

	nextBlockID int
}

// NewBuilder returns a Builder ready to construct IR for an entire
// program (all of its functions share one set of arenas).
func NewBuilder() *Builder {
	return &Builder{
		blocks: arena.NewPool[Block](),
		instrs: arena.NewPool[Instruction](),
	}
}

// NewFunction creates a Function with no blocks yet.
func (bd *Builder) NewFunction(rettype Type, name string, argTypes []Type) *Function {
	return &Function{RetType: rettype, Name: name, ArgTypes: argTypes}
}

// NewBlock appends a fresh, empty, Unset-terminated block to fn and
// returns its stable handle.
func (bd *Builder) NewBlock(fn *Function) *Block {
	b := bd.blocks.Allocate()
	b.id = bd.nextBlockID
	bd.nextBlockID++
	fn.Blocks = append(fn.Blocks, b)
	return b
}

// Append appends a non-phi instruction to the end of block's instruction
// list (before its terminator) and returns the allocated instruction.
// Callers read Result() off the return value for opcodes that produce
// one.
func (bd *Builder) Append(block *Block, in Instruction) *Instruction {
	alloc := bd.instrs.Allocate()
	*alloc = in
	alloc.block = block
	block.instrs = append(block.instrs, alloc)
	return alloc
}

// PrependPhi inserts a new Phi instruction of type typ at block's head.
// Used only by mem2reg.
func (bd *Builder) PrependPhi(block *Block, typ Type) *Instruction {
	alloc := bd.instrs.Allocate()
	alloc.opcode = OpcodePhi
	alloc.typ = typ
	alloc.block = block
	block.phis = append(block.phis, alloc)
	return alloc
}

// SetTerminator overwrites block's terminator.
func (bd *Builder) SetTerminator(block *Block, term Terminator) {
	block.term = term
}

// Predecessors derives block's CFG predecessors by scanning every block
// of fn for a terminator that targets it (spec.md §4.1: "Predecessor
// iteration is derived from terminators by scanning the function").
func Predecessors(fn *Function, block *Block) []*Block {
	var preds []*Block
	for _, b := range fn.Blocks {
		for _, s := range b.term.Successors() {
			if s == block {
				preds = append(preds, b)
				break
			}
		}
	}
	return preds
}

// Binary appends a Binary instruction (arithmetic, compare, or logical)
// and returns it. resultType is the type of the value it produces;
// operandType is the type its two operands share (they can differ for the
// ICMP_* opcodes, which compare I32 or I1 operands but always produce I1).
func (bd *Builder) Binary(block *Block, op Opcode, resultType, operandType Type, lhs, rhs Value) *Instruction {
	return bd.Append(block, Instruction{opcode: op, typ: resultType, operandType: operandType, lhs: lhs, rhs: rhs})
}

// Alloca appends an Alloca instruction producing a Ptr to a fresh slot of
// type typ.
func (bd *Builder) Alloca(block *Block, typ Type) *Instruction {
	return bd.Append(block, Instruction{opcode: OpcodeAlloca, typ: typ})
}

// Store appends a Store instruction; it has no result.
func (bd *Builder) Store(block *Block, typ Type, value, ptr Value) *Instruction {
	return bd.Append(block, Instruction{opcode: OpcodeStore, typ: typ, lhs: value, ptr: ptr})
}

// Load appends a Load instruction reading typ from ptr.
func (bd *Builder) Load(block *Block, typ Type, ptr Value) *Instruction {
	return bd.Append(block, Instruction{opcode: OpcodeLoad, typ: typ, ptr: ptr})
}

// Call appends a Call instruction; its result exists iff rettype != Void.
func (bd *Builder) Call(block *Block, rettype Type, callee string, argTypes []Type, args []Value) *Instruction {
	return bd.Append(block, Instruction{opcode: OpcodeCall, typ: rettype, callee: callee, argTypes: argTypes, args: args})
}

// Zext appends a Zext instruction widening value from i1 to i32.
func (bd *Builder) Zext(block *Block, value Value, to Type) *Instruction {
	return bd.Append(block, Instruction{opcode: OpcodeZext, typ: to, lhs: value, zextTo: to})
}
