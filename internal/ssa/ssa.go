// Package ssa implements phi-node placement at iterated dominance
// frontiers, dominator-tree-directed renaming (to-SSA), and de-SSA via
// copy insertion on predecessor edges.
package ssa

import (
	"fmt"

	"brilgo/internal/cfg"
	"brilgo/internal/diag"
	"brilgo/internal/dominance"
	"brilgo/internal/ir"
	"brilgo/internal/names"
)

// ToSSA converts cfgFn to static single assignment form in place: every
// block's leading label is normalized into an explicit instruction,
// formal parameters are seeded as entry-block definitions, phis are placed
// at iterated dominance frontiers, and every definition is renamed to a
// fresh variable via a dominator-tree pre-order walk.
func ToSSA(cfgFn *cfg.CFGFunction, tbl *names.Table, funcName string) error {
	if len(cfgFn.Nodes) == 0 {
		return nil
	}
	normalizeLabels(cfgFn)
	seedParams(cfgFn)

	entry := cfgFn.Nodes[0]
	rpo := dominance.ReversePostOrder(entry)
	dom := dominance.Dominators(rpo)
	tree := dominance.BuildTree(rpo, dom)

	placePhis(cfgFn, rpo, dom)

	r := &renamer{tbl: tbl, funcName: funcName, stacks: map[names.Variable][]names.Variable{}}
	for _, p := range cfgFn.Params {
		r.push(p.Name, p.Name) // a parameter read before any definition keeps its own name
	}
	if err := r.walk(tree); err != nil {
		return err
	}
	eraseDeadPhis(cfgFn)
	return nil
}

// normalizeLabels ensures every block's first instruction is an explicit
// Label matching the node's identity, required so phi predecessor slots
// and de-SSA copy blocks can always name an edge's source by a real label
// instruction.
func normalizeLabels(cfgFn *cfg.CFGFunction) {
	for _, n := range cfgFn.Nodes {
		if len(n.Block.Instrs) > 0 && n.Block.Instrs[0].IsLabel() {
			continue
		}
		n.Block.Instrs = append([]ir.Instruction{ir.NewLabel(n.LabelName())}, n.Block.Instrs...)
	}
}

// seedParams injects "Id v = v" for each formal parameter at position 1 of
// the entry block (right after its label), giving parameters a definition
// site for dominance-frontier purposes.
func seedParams(cfgFn *cfg.CFGFunction) {
	if len(cfgFn.Params) == 0 {
		return
	}
	entry := cfgFn.Nodes[0]
	seeds := make([]ir.Instruction, len(cfgFn.Params))
	for i, p := range cfgFn.Params {
		seeds[i] = ir.NewValue(ir.OpId, p.Name, p.Type, []names.Variable{p.Name}, nil, nil)
	}
	out := make([]ir.Instruction, 0, len(entry.Block.Instrs)+len(seeds))
	out = append(out, entry.Block.Instrs[0])
	out = append(out, seeds...)
	out = append(out, entry.Block.Instrs[1:]...)
	entry.Block.Instrs = out
}

// definedVariablesInOrder returns every variable with at least one defining
// instruction, in first-seen order, so phi placement iterates
// deterministically rather than over Go's randomized map order.
func definedVariablesInOrder(cfgFn *cfg.CFGFunction) []names.Variable {
	seen := map[names.Variable]bool{}
	var order []names.Variable
	for _, n := range cfgFn.Nodes {
		for _, instr := range n.Block.Instrs {
			if d, ok := instr.Defines(); ok && !seen[d] {
				seen[d] = true
				order = append(order, d)
			}
		}
	}
	return order
}

func defSitesAndType(cfgFn *cfg.CFGFunction, v names.Variable) (map[*cfg.Node]bool, int, ir.Type) {
	sites := map[*cfg.Node]bool{}
	count := 0
	var typ ir.Type
	for _, n := range cfgFn.Nodes {
		for _, instr := range n.Block.Instrs {
			if d, ok := instr.Defines(); ok && d == v {
				sites[n] = true
				count++
				typ = instr.DstType
			}
		}
	}
	return sites, count, typ
}

// placePhis inserts a phi for each multiply-defined variable at every node
// in the iterated dominance frontier of its definition set (Cytron et al.).
func placePhis(cfgFn *cfg.CFGFunction, rpo []*cfg.Node, dom map[*cfg.Node]dominance.Set) {
	phisToInsert := map[*cfg.Node][]phiSpec{}

	for _, v := range definedVariablesInOrder(cfgFn) {
		sites, count, typ := defSitesAndType(cfgFn, v)
		if count <= 1 {
			continue // a variable defined exactly once needs no phi
		}

		hasPhi := map[*cfg.Node]bool{}
		var worklist []*cfg.Node
		for n := range sites {
			worklist = append(worklist, n)
		}
		onWorklist := map[*cfg.Node]bool{}
		for _, n := range worklist {
			onWorklist[n] = true
		}

		for len(worklist) > 0 {
			n := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			for _, f := range dominance.Frontier(rpo, dom, n) {
				if hasPhi[f] {
					continue
				}
				hasPhi[f] = true
				if !onWorklist[f] {
					onWorklist[f] = true
					worklist = append(worklist, f)
				}
			}
		}

		for _, n := range rpo {
			if hasPhi[n] {
				phisToInsert[n] = append(phisToInsert[n], phiSpec{v: v, typ: typ})
			}
		}
	}

	for _, n := range rpo {
		specs, ok := phisToInsert[n]
		if !ok {
			continue
		}
		insertPhis(n, specs)
	}
}

type phiSpec struct {
	v   names.Variable
	typ ir.Type
}

func insertPhis(n *cfg.Node, specs []phiSpec) {
	phis := make([]ir.Instruction, len(specs))
	for i, spec := range specs {
		args := make([]names.Variable, len(n.Preds))
		labels := make([]names.Label, len(n.Preds))
		for j, p := range n.Preds {
			args[j] = spec.v
			labels[j] = p.LabelName()
		}
		phis[i] = ir.NewValue(ir.OpPhi, spec.v, spec.typ, args, nil, labels)
	}
	out := make([]ir.Instruction, 0, len(n.Block.Instrs)+len(phis))
	out = append(out, n.Block.Instrs[0])
	out = append(out, phis...)
	out = append(out, n.Block.Instrs[1:]...)
	n.Block.Instrs = out
}

// renamer threads the per-variable definition stacks used by the
// dominator-tree-directed renaming pass.
type renamer struct {
	tbl      *names.Table
	funcName string
	stacks   map[names.Variable][]names.Variable
}

func (r *renamer) push(v, fresh names.Variable) { r.stacks[v] = append(r.stacks[v], fresh) }
func (r *renamer) pop(v names.Variable)         { s := r.stacks[v]; r.stacks[v] = s[:len(s)-1] }
func (r *renamer) top(v names.Variable) (names.Variable, bool) {
	s := r.stacks[v]
	if len(s) == 0 {
		return names.Variable{}, false
	}
	return s[len(s)-1], true
}

// walk performs the dominator-tree pre-order renaming traversal
// iteratively with an explicit (node, phase) work stack, per Design Notes
// §9, to bound stack depth to the tree's height rather than Go's call
// stack.
func (r *renamer) walk(tree *dominance.Tree) error {
	type frame struct {
		node    *cfg.Node
		pushed  []names.Variable
		entered bool
	}
	stack := []*frame{{node: tree.Entry}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if !top.entered {
			top.entered = true
			if err := r.renameNode(top.node, &top.pushed); err != nil {
				return err
			}
			r.patchSuccessorPhis(top.node)

			children := tree.Children[top.node]
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, &frame{node: children[i]})
			}
			continue
		}
		for _, v := range top.pushed {
			r.pop(v)
		}
		stack = stack[:len(stack)-1]
	}
	return nil
}

func (r *renamer) renameNode(n *cfg.Node, pushed *[]names.Variable) error {
	for i := range n.Block.Instrs {
		instr := &n.Block.Instrs[i]

		switch instr.Tag {
		case ir.LabelInstr:
			// nothing to rewrite
		case ir.ValueInstr:
			if instr.Op != ir.OpPhi {
				if err := r.rewriteArgs(instr); err != nil {
					return err
				}
			}
		case ir.EffectInstr:
			if err := r.rewriteArgs(instr); err != nil {
				return err
			}
		}

		if d, ok := instr.Defines(); ok {
			fresh := names.Variable(r.tbl.Fresh(r.tbl.String(d.Name())))
			r.push(d, fresh)
			*pushed = append(*pushed, d)
			instr.Dest = fresh
		}
	}
	return nil
}

func (r *renamer) rewriteArgs(instr *ir.Instruction) error {
	for j, a := range instr.Args {
		fresh, ok := r.top(a)
		if !ok {
			return diag.New(diag.UnknownVariable, fmt.Sprintf("use of %q has no reaching definition and is not a parameter", r.tbl.String(a.Name()))).
				InFunction(r.funcName).WithVariable(r.tbl.String(a.Name()))
		}
		instr.Args[j] = fresh
	}
	return nil
}

// patchSuccessorPhis updates, in every CFG successor of n, the phi slot
// whose label matches n's identity to read the top of the current
// variable's stack; a slot whose variable was never defined along this
// path is dropped.
func (r *renamer) patchSuccessorPhis(n *cfg.Node) {
	myLabel := n.LabelName()
	for _, s := range cfg.Successors(n) {
		for i := range s.Block.Instrs {
			instr := &s.Block.Instrs[i]
			if instr.Tag != ir.ValueInstr || instr.Op != ir.OpPhi {
				continue
			}
			for j, lbl := range instr.Labels {
				if lbl != myLabel {
					continue
				}
				orig := instr.Args[j]
				if fresh, ok := r.top(orig); ok {
					instr.Args[j] = fresh
				} else {
					instr.Args = append(instr.Args[:j], instr.Args[j+1:]...)
					instr.Labels = append(instr.Labels[:j], instr.Labels[j+1:]...)
				}
				break
			}
		}
	}
}

// eraseDeadPhis removes phis that lost every incoming argument during
// renaming: a phi with no args left has nothing to merge and is dropped
// rather than left for a later global-DCE pass to notice.
func eraseDeadPhis(cfgFn *cfg.CFGFunction) {
	for _, n := range cfgFn.Nodes {
		out := n.Block.Instrs[:0]
		for _, instr := range n.Block.Instrs {
			if instr.Tag == ir.ValueInstr && instr.Op == ir.OpPhi && len(instr.Args) == 0 {
				continue
			}
			out = append(out, instr)
		}
		n.Block.Instrs = out
	}
}
