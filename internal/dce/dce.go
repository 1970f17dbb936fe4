// Package dce implements trivial global dead-code elimination over a
// function's flat instruction list, and trivial local dead-code
// elimination within a single block. Both are used-set fixpoints; neither
// needs the generic dataflow worklist solver, since the data each
// direction needs is already in hand by the time it's scanned.
package dce

import (
	"brilgo/internal/cfg"
	"brilgo/internal/ir"
	"brilgo/internal/names"
)

// Local eliminates, within every block of cfgFn independently, writes that
// are killed by a later write with no intervening read. Scanning each
// block in reverse: a defining instruction survives iff its destination is
// in the running used set (consuming the entry) or it has not yet been
// shadowed by a later definition of the same variable; Label and Effect
// instructions always survive and (for Effect) contribute their arguments
// to used. A single reverse pass already computes the fixpoint: once an
// instruction's survival is decided, nothing earlier in the block can
// change it.
func Local(cfgFn *cfg.CFGFunction) {
	for _, n := range cfgFn.Nodes {
		n.Block.Instrs = localPass(n.Block.Instrs)
	}
}

func localPass(instrs []ir.Instruction) []ir.Instruction {
	used := make(map[names.Variable]bool)
	shadowed := make(map[names.Variable]bool)
	keep := make([]bool, len(instrs))

	for i := len(instrs) - 1; i >= 0; i-- {
		instr := instrs[i]
		d, defines := instr.Defines()
		if !defines {
			keep[i] = true
			for _, a := range instr.Args {
				used[a] = true
			}
			continue
		}

		survives := used[d] || !shadowed[d]
		keep[i] = survives
		if survives {
			delete(used, d)
			for _, a := range instr.Args {
				used[a] = true
			}
		}
		shadowed[d] = true
	}

	out := make([]ir.Instruction, 0, len(instrs))
	for i, instr := range instrs {
		if keep[i] {
			out = append(out, instr)
		}
	}
	return out
}

// Global deletes, over cfgFn's entire instruction set, every Const/Value
// whose destination is never used by any instruction in any block,
// repeating to fixpoint: removing one dead definition can strip the last
// use of its own operands, making their definitions newly dead in turn.
func Global(cfgFn *cfg.CFGFunction) {
	for {
		used := collectUsed(cfgFn)
		changed := false
		for _, n := range cfgFn.Nodes {
			out := n.Block.Instrs[:0]
			for _, instr := range n.Block.Instrs {
				if d, ok := instr.Defines(); ok && !used[d] {
					changed = true
					continue
				}
				out = append(out, instr)
			}
			n.Block.Instrs = out
		}
		if !changed {
			return
		}
	}
}

func collectUsed(cfgFn *cfg.CFGFunction) map[names.Variable]bool {
	used := make(map[names.Variable]bool)
	for _, n := range cfgFn.Nodes {
		for _, instr := range n.Block.Instrs {
			for _, a := range instr.Args {
				used[a] = true
			}
		}
	}
	return used
}
