package ssa

import (
	"fmt"

	"brilgo/internal/cfg"
	"brilgo/internal/ir"
	"brilgo/internal/names"
)

// FromSSA converts cfgFn out of SSA form: every phi in a block gets one
// synthetic copy-block per incoming edge (containing an Id copy per phi
// live on that edge), the predecessor's edge is redirected through it, and
// the phi instructions are then removed. Finally, any node whose original
// link was Exit and isn't the last node in the list gets a trailing Ret
// appended, since block reordering during this pass can otherwise leave an
// implicit fall-off.
func FromSSA(cfgFn *cfg.CFGFunction, tbl *names.Table, funcName string) error {
	var appended []*cfg.Node
	wasExit := make(map[*cfg.Node]bool, len(cfgFn.Nodes))
	for _, n := range cfgFn.Nodes {
		if n.Out != nil && n.Out.Kind == cfg.LinkExit {
			wasExit[n] = true
		}
	}

	for _, n := range cfgFn.Nodes {
		phis := extractPhis(n)
		if len(phis) == 0 {
			continue
		}

		for _, p := range append([]*cfg.Node(nil), n.Preds...) {
			copies := copiesForEdge(phis, p.LabelName())
			if len(copies) == 0 {
				continue
			}
			label := names.Label(tbl.Fresh(fmt.Sprintf("%s.copy", funcName)))
			copyNode := &cfg.Node{
				Label: ir.NewLabel(label),
				Block: cfg.Block{Instrs: append(append([]ir.Instruction{ir.NewLabel(label)}, copies...),
					ir.NewEffect(ir.OpJmp, nil, nil, []names.Label{n.LabelName()}))},
				Out:   &cfg.Link{Kind: cfg.LinkJump, Target: n},
			}
			cfg.RedirectEdge(p, n, copyNode)
			appended = append(appended, copyNode)
		}

		removePhis(n)
	}

	cfgFn.Nodes = append(cfgFn.Nodes, appended...)
	cfg.RebuildPredecessors(cfgFn.Nodes)

	for i, n := range cfgFn.Nodes {
		if wasExit[n] && i != len(cfgFn.Nodes)-1 {
			n.Block.Instrs = append(n.Block.Instrs, ir.NewEffect(ir.OpRet, nil, nil, nil))
			n.Out = &cfg.Link{Kind: cfg.LinkRet}
		}
	}
	return nil
}

func extractPhis(n *cfg.Node) []ir.Instruction {
	var out []ir.Instruction
	for _, instr := range n.Block.Instrs {
		if instr.Tag == ir.ValueInstr && instr.Op == ir.OpPhi {
			out = append(out, instr)
		}
	}
	return out
}

func removePhis(n *cfg.Node) {
	out := n.Block.Instrs[:0]
	for _, instr := range n.Block.Instrs {
		if instr.Tag == ir.ValueInstr && instr.Op == ir.OpPhi {
			continue
		}
		out = append(out, instr)
	}
	n.Block.Instrs = out
}

// copiesForEdge builds one Id-copy instruction per phi that has a slot for
// predecessor label pl.
func copiesForEdge(phis []ir.Instruction, pl names.Label) []ir.Instruction {
	var copies []ir.Instruction
	for _, phi := range phis {
		for i, lbl := range phi.Labels {
			if lbl == pl {
				copies = append(copies, ir.NewValue(ir.OpId, phi.Dest, phi.DstType, []names.Variable{phi.Args[i]}, nil, nil))
				break
			}
		}
	}
	return copies
}
