// Package mem2reg promotes promotable allocas to pure SSA values by
// computing the reverse-CFG dominator tree, its dominance frontier,
// placing phi nodes, and renaming memory traffic away (spec.md §4.3).
//
// Grounded directly on original_source/src/mem2reg.{hpp,cpp}: inverse_cfg,
// the postorder/dominator_sets templates, and the mem2reg rename pass are
// ported function-for-function. The postorder walk uses the explicit-stack
// iterative DFS idiom of internal/engine/wazevo/ssa/pass_cfg.go; rename is
// recursive.
package mem2reg

import "github.com/minic-lang/minicc/internal/ssa"

// node is a block handle in the dominator/DF computation; nil represents
// the synthetic sink ⊥ that every Ret flows into.
type node = *ssa.Block

// RunProgram applies Run to every defined function in prog.
func RunProgram(b *ssa.Builder, prog *ssa.Program) {
	for _, item := range prog.Items {
		if fn, ok := item.(*ssa.Function); ok {
			Run(b, fn)
		}
	}
}

// Run promotes every promotable alloca in fn.
func Run(b *ssa.Builder, fn *ssa.Function) {
	if len(fn.Blocks) == 0 {
		return
	}

	invCFG := buildInverseCFG(fn)
	order := postorder(invCFG)
	if len(order) > 0 && order[len(order)-1] == nil {
		order = order[:len(order)-1]
	}
	dom := dominatorSets(order, invCFG)
	df := dominanceFrontiers(fn, invCFG, dom)

	allocas := collectAllocas(fn)
	promotable := filterPromotable(fn, allocas)
	if len(promotable) == 0 {
		return
	}

	defsites := collectDefsites(fn, promotable)
	phis := placePhis(b, df, defsites)

	initial := make(map[*ssa.Instruction]ssa.Value, len(promotable))
	for v := range promotable {
		initial[v] = ssa.Const{Value: 0}
	}
	visited := map[*ssa.Block]bool{}
	rename(fn.Blocks[0], phis, promotable, initial, visited)
}

// buildInverseCFG maps each block (and the sink nil) to its forward-CFG
// predecessors -- spec.md §4.3 "Reverse CFG construction".
func buildInverseCFG(fn *ssa.Function) map[node][]node {
	g := map[node][]node{nil: nil}
	for _, b := range fn.Blocks {
		if _, ok := g[b]; !ok {
			g[b] = nil
		}
		term := b.Terminator()
		switch term.Kind {
		case ssa.TermRet:
			g[nil] = append(g[nil], b)
		case ssa.TermBr:
			g[term.Dest] = append(g[term.Dest], b)
		case ssa.TermBrCond:
			g[term.IfTrue] = append(g[term.IfTrue], b)
			g[term.IfFalse] = append(g[term.IfFalse], b)
		}
	}
	return g
}

// postorder walks g (reverse-successors) depth-first from the sink,
// returning each node after all its reverse-successors, using an
// explicit stack so cyclic CFGs (loops) can't blow the call stack.
func postorder(g map[node][]node) []node {
	type frame struct {
		n   node
		idx int
	}
	visited := map[node]bool{nil: true}
	var order []node
	stack := []frame{{nil, 0}}
	for len(stack) > 0 {
		top := len(stack) - 1
		n := stack[top].n
		idx := stack[top].idx
		succs := g[n]
		if idx < len(succs) {
			stack[top].idx++
			nxt := succs[idx]
			if !visited[nxt] {
				visited[nxt] = true
				stack = append(stack, frame{nxt, 0})
			}
		} else {
			order = append(order, n)
			stack = stack[:top]
		}
	}
	return order
}

// dominatorSets computes, for each block, its dominator path: Dom(n)
// represented as a list, root first. Paths are intersected over each
// block's forward predecessors, and no block has the sink as a
// predecessor, so every path starts at a block with no predecessors (the
// entry block) rather than at the sink. Grounded on
// mem2reg.hpp's dominator_sets: longest-common-prefix intersection,
// iterated to a fixpoint over order.
func dominatorSets(order []node, g map[node][]node) map[node][]node {
	dom := map[node][]node{nil: {nil}}
	for {
		changed := false
		for _, b := range order {
			d, had := dom[b]
			if had {
				d = d[:len(d)-1]
			}
			set := had
			for _, pred := range g[b] {
				predDom, ok := dom[pred]
				if !ok {
					continue
				}
				if !set {
					d = append([]node(nil), predDom...)
					set = true
					changed = true
				} else if common := longestCommonPrefix(d, predDom); len(common) != len(d) {
					d = common
					changed = true
				}
			}
			if !set && len(g[b]) > 0 {
				continue
			}
			if !had {
				changed = true
			}
			d = append(d, b)
			dom[b] = d
		}
		if !changed {
			break
		}
	}
	return dom
}

func longestCommonPrefix(a, b []node) []node {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return append([]node(nil), a[:n]...)
}

func idom(dom map[node][]node, n node) (node, bool) {
	path := dom[n]
	if len(path) < 2 {
		return nil, false
	}
	return path[len(path)-2], true
}

func dominates(dom map[node][]node, b, x node) bool {
	for _, n := range dom[x] {
		if n == b {
			return true
		}
	}
	return false
}

func strictlyDominates(dom map[node][]node, b, x node) bool {
	return b != x && dominates(dom, b, x)
}

// dominanceFrontiers implements spec.md §4.3's DF recipe: for every real
// block n with two or more forward predecessors, walk each predecessor's
// dominator chain up to (but excluding) n's immediate dominator, and
// record n in each visited block's frontier.
func dominanceFrontiers(fn *ssa.Function, invCFG map[node][]node, dom map[node][]node) map[node][]node {
	df := map[node][]node{}
	seen := map[node]map[node]bool{}
	for _, n := range fn.Blocks {
		preds := invCFG[n]
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			runner := p
			for runner != nil && !strictlyDominates(dom, runner, n) {
				if seen[runner] == nil {
					seen[runner] = map[node]bool{}
				}
				if !seen[runner][n] {
					seen[runner][n] = true
					df[runner] = append(df[runner], n)
				}
				next, ok := idom(dom, runner)
				if !ok {
					break
				}
				runner = next
			}
		}
	}
	return df
}

func collectAllocas(fn *ssa.Function) []*ssa.Instruction {
	var allocas []*ssa.Instruction
	for _, blk := range fn.Blocks {
		for _, in := range blk.Instructions() {
			if in.Opcode() == ssa.OpcodeAlloca {
				allocas = append(allocas, in)
			}
		}
	}
	return allocas
}

// filterPromotable keeps only the allocas whose sole uses are the ptr
// operand of a Load or Store (spec.md §4.3 "Promotion" step 1).
func filterPromotable(fn *ssa.Function, allocas []*ssa.Instruction) map[*ssa.Instruction]bool {
	result := make(map[*ssa.Instruction]bool, len(allocas))
	for _, a := range allocas {
		if isPromotable(fn, a) {
			result[a] = true
		}
	}
	return result
}

func isPromotable(fn *ssa.Function, alloca *ssa.Instruction) bool {
	ref := ssa.Value(ssa.InstrRef{Instr: alloca})
	for _, blk := range fn.Blocks {
		for _, in := range blk.Instructions() {
			switch in.Opcode() {
			case ssa.OpcodeLoad, ssa.OpcodeAlloca:
				continue
			case ssa.OpcodeStore:
				value, _ := in.StoreArgs()
				if value == ref {
					return false
				}
			default:
				for _, v := range genericOperands(in) {
					if v == ref {
						return false
					}
				}
			}
		}
		if v, ok := terminatorValue(blk.Terminator()); ok && v == ref {
			return false
		}
	}
	return true
}

func genericOperands(in *ssa.Instruction) []ssa.Value {
	switch in.Opcode() {
	case ssa.OpcodeAdd, ssa.OpcodeSub, ssa.OpcodeMul, ssa.OpcodeSDiv, ssa.OpcodeSRem,
		ssa.OpcodeIcmpSlt, ssa.OpcodeIcmpSle, ssa.OpcodeIcmpSgt, ssa.OpcodeIcmpSge, ssa.OpcodeIcmpEq, ssa.OpcodeIcmpNe,
		ssa.OpcodeAnd, ssa.OpcodeOr:
		lhs, rhs := in.BinaryArgs()
		return []ssa.Value{lhs, rhs}
	case ssa.OpcodeCall:
		_, args := in.CallArgs()
		return args
	case ssa.OpcodeZext:
		return []ssa.Value{in.ZextArg()}
	case ssa.OpcodePhi:
		vs := make([]ssa.Value, len(in.PhiSources()))
		for i, s := range in.PhiSources() {
			vs[i] = s.Value
		}
		return vs
	default:
		return nil
	}
}

func terminatorValue(t ssa.Terminator) (ssa.Value, bool) {
	switch t.Kind {
	case ssa.TermRet:
		if t.HasValue {
			return t.RetVal, true
		}
	case ssa.TermBrCond:
		return t.Cond, true
	}
	return nil, false
}

// collectDefsites finds, for each promotable alloca, the blocks
// containing a Store to it.
func collectDefsites(fn *ssa.Function, promotable map[*ssa.Instruction]bool) map[*ssa.Instruction][]*ssa.Block {
	sites := map[*ssa.Instruction][]*ssa.Block{}
	for _, blk := range fn.Blocks {
		for _, in := range blk.Instructions() {
			if in.Opcode() != ssa.OpcodeStore {
				continue
			}
			_, ptr := in.StoreArgs()
			ref, ok := ptr.(ssa.InstrRef)
			if !ok || !promotable[ref.Instr] {
				continue
			}
			sites[ref.Instr] = append(sites[ref.Instr], blk)
		}
	}
	return sites
}

// placePhis inserts phi nodes at the iterated dominance frontier of each
// variable's def sites (spec.md §4.3 "Promotion" step 2).
func placePhis(b *ssa.Builder, df map[node][]node, defsites map[*ssa.Instruction][]*ssa.Block) map[*ssa.Instruction]map[*ssa.Block]*ssa.Instruction {
	phis := make(map[*ssa.Instruction]map[*ssa.Block]*ssa.Instruction, len(defsites))
	for v, sites := range defsites {
		placed := map[*ssa.Block]*ssa.Instruction{}
		worklist := append([]*ssa.Block(nil), sites...)
		for len(worklist) > 0 {
			n := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			for _, d := range df[n] {
				if _, ok := placed[d]; !ok {
					phi := b.PrependPhi(d, ssa.I32)
					placed[d] = phi
					worklist = append(worklist, d)
				}
			}
		}
		phis[v] = placed
	}
	return phis
}

// rename is the depth-first renaming walk of spec.md §4.3 "Promotion"
// step 3: current_value is copied per branch so sibling paths never see
// each other's definitions.
func rename(
	blk *ssa.Block,
	phis map[*ssa.Instruction]map[*ssa.Block]*ssa.Instruction,
	promotable map[*ssa.Instruction]bool,
	values map[*ssa.Instruction]ssa.Value,
	visited map[*ssa.Block]bool,
) {
	visited[blk] = true
	cur := make(map[*ssa.Instruction]ssa.Value, len(values))
	for k, v := range values {
		cur[k] = v
	}
	for v, blockPhis := range phis {
		if phi, ok := blockPhis[blk]; ok {
			cur[v] = ssa.InstrRef{Instr: phi}
		}
	}

	for _, in := range append([]*ssa.Instruction(nil), blk.Instructions()...) {
		switch in.Opcode() {
		case ssa.OpcodeAlloca:
			if promotable[in] {
				blk.DeleteInstruction(in)
			}
		case ssa.OpcodeStore:
			value, ptr := in.StoreArgs()
			if ref, ok := ptr.(ssa.InstrRef); ok && promotable[ref.Instr] {
				cur[ref.Instr] = value
				blk.DeleteInstruction(in)
			}
		case ssa.OpcodeLoad:
			if ref, ok := in.LoadPtr().(ssa.InstrRef); ok && promotable[ref.Instr] {
				in.RewriteAsAddZero(cur[ref.Instr])
			}
		}
	}

	for _, succ := range blk.Terminator().Successors() {
		for v, blockPhis := range phis {
			if phi, ok := blockPhis[succ]; ok {
				phi.AddPhiSource(cur[v], blk)
			}
		}
		if !visited[succ] {
			rename(succ, phis, promotable, cur, visited)
		}
	}
}
