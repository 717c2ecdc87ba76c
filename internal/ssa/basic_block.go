package ssa

// Block is a basic block: a maximal straight-line instruction sequence
// ending in a single terminator. Grounded on the teacher's BasicBlock
// (internal/engine/wazevo/ssa/basic_block.go), simplified from its
// intrusive prev/next list to plain slices -- MiniC functions are small
// enough that mem2reg's slice rewrites are not a hot path the way they
// are in a full-scale backend.
type Block struct {
	id int

	phis   []*Instruction
	instrs []*Instruction
	term   Terminator

	label   int
	hasLabel bool
}

// ID is the block's creation-order identity, stable for its lifetime.
func (b *Block) ID() int { return b.id }

// Label returns the block's printer-assigned label and whether vregnum
// has run yet.
func (b *Block) Label() (int, bool) { return b.label, b.hasLabel }

// SetLabel assigns the block's printer label; used only by vregnum.
func (b *Block) SetLabel(n int) {
	b.label = n
	b.hasLabel = true
}

// Phis returns the block's phi instructions, always at block head.
func (b *Block) Phis() []*Instruction { return b.phis }

// Instructions returns the block's non-phi, non-terminator instructions
// in order.
func (b *Block) Instructions() []*Instruction { return b.instrs }

// Terminator returns the block's terminator.
func (b *Block) Terminator() Terminator { return b.term }

// Empty reports whether the block has no phis, no instructions, and an
// unset terminator -- the "fresh trailing block" shape that function
// finalization (spec.md §4.2) drops.
func (b *Block) Empty() bool {
	return len(b.phis) == 0 && len(b.instrs) == 0 && b.term.Kind == TermUnset
}

// DeleteInstruction removes instr from the block's instruction list. Used
// by mem2reg to erase promoted Alloca/Store instructions; it does not
// invalidate any InstrRef pointing at a *different* instruction, since
// those are plain pointers into the arena, not indices into this slice.
func (b *Block) DeleteInstruction(instr *Instruction) {
	for idx, in := range b.instrs {
		if in == instr {
			b.instrs = append(b.instrs[:idx], b.instrs[idx+1:]...)
			return
		}
	}
}
