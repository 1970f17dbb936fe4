// Package cfg builds and maintains the control-flow graph for a single
// function: basic-block partitioning, label resolution, predecessor and
// successor wiring, and collapsing of empty label-only blocks.
package cfg

import (
	"fmt"

	"brilgo/internal/diag"
	"brilgo/internal/ir"
	"brilgo/internal/names"
)

// Block is an ordered instruction sequence, non-empty except for the
// synthetic block Build creates for an empty function. Invariant: if it
// carries a real label, that label is its first instruction; the rest are
// non-labels; at most the last instruction is a terminator.
type Block struct {
	Instrs []ir.Instruction
}

func (b *Block) IsEmpty() bool { return len(b.Instrs) == 0 }

// Label returns the block's leading label, if its first instruction is one.
func (b *Block) Label() (names.Label, bool) {
	if b.IsEmpty() {
		return names.Label{}, false
	}
	return b.Instrs[0].ExtractLabel()
}

func (b *Block) Last() ir.Instruction {
	return b.Instrs[len(b.Instrs)-1]
}

// LinkKind enumerates the outgoing-edge shapes a Node can have.
type LinkKind int

const (
	LinkRet LinkKind = iota
	LinkExit
	LinkFallthrough
	LinkJump
	LinkBranch
)

// Link is a Node's outgoing control-flow edge(s).
type Link struct {
	Kind        LinkKind
	Target      *Node // Fallthrough, Jump
	TrueTarget  *Node // Branch
	FalseTarget *Node // Branch
}

// Node is the unit of the CFG: a stable label, a mutable block payload, a
// mutable outgoing link, and a mutable predecessor list. Per Design Notes
// §9 option (b), nodes are addressed by position in their owning
// CFGFunction's Nodes slice and reference each other through direct
// pointers rather than weak references — Go's GC makes this safe even
// though the graph is cyclic.
type Node struct {
	Label ir.Instruction // always a Label-tag instruction carrying the node's identity
	Block Block
	Out   *Link
	Preds []*Node
}

// LabelName returns the node's identity label.
func (n *Node) LabelName() names.Label {
	l, _ := n.Label.ExtractLabel()
	return l
}

func newNode(label names.Label, block Block) *Node {
	return &Node{Label: ir.NewLabel(label), Block: block}
}

// CFGFunction is a function header plus its ordered node list; Nodes[0] is
// the entry.
type CFGFunction struct {
	Name       names.FuncName
	Params     []ir.Parameter
	ReturnType *ir.Type
	Nodes      []*Node
}

// Partition scans instrs left-to-right, starting a new block on each label
// and after each terminator. Empty trailing blocks are dropped. An empty
// input produces no blocks.
func Partition(instrs []ir.Instruction) [][]ir.Instruction {
	var out [][]ir.Instruction
	var cur []ir.Instruction

	for _, instr := range instrs {
		switch {
		case instr.IsLabel():
			if len(cur) > 0 {
				out = append(out, cur)
			}
			cur = []ir.Instruction{instr}
		case instr.IsTerminator():
			cur = append(cur, instr)
			out = append(out, cur)
			cur = nil
		default:
			cur = append(cur, instr)
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// Build constructs the CFG for fn: partition, label, wire successors and
// predecessors, then collapse empty label-only blocks. tbl mints any
// synthetic labels needed. funcName is used only for diagnostics.
func Build(fn *ir.Function, tbl *names.Table, funcName string) (*CFGFunction, error) {
	groups := Partition(fn.Instrs)

	cfgFn := &CFGFunction{Name: fn.Name, Params: fn.Params, ReturnType: fn.ReturnType}

	if len(groups) == 0 {
		synthetic := tbl.Fresh("entry")
		node := newNode(names.Label(synthetic), Block{})
		node.Out = &Link{Kind: LinkExit}
		cfgFn.Nodes = append(cfgFn.Nodes, node)
		return cfgFn, nil
	}

	labelMap := make(map[names.Label]*Node, len(groups))
	for _, g := range groups {
		if countLeadingLabels(g) > 1 {
			return nil, diag.New(diag.InvalidIR, "multiple labels at start of block").InFunction(funcName)
		}
		var label names.Label
		if l, ok := g[0].ExtractLabel(); ok {
			label = l
		} else {
			label = names.Label(tbl.Fresh("block"))
		}
		node := newNode(label, Block{Instrs: g})
		labelMap[label] = node
		cfgFn.Nodes = append(cfgFn.Nodes, node)
	}

	if err := wire(cfgFn.Nodes, labelMap, tbl, funcName); err != nil {
		return nil, err
	}

	collapseEmptyLabelBlocks(cfgFn)
	rebuildPredecessors(cfgFn.Nodes)

	return cfgFn, nil
}

// countLeadingLabels counts how many Label instructions sit at the head of
// a not-yet-partitioned group; Partition guarantees at most one in
// practice, but a caller assembling malformed input could violate this.
func countLeadingLabels(g []ir.Instruction) int {
	n := 0
	for _, instr := range g {
		if instr.IsLabel() {
			n++
		} else {
			break
		}
	}
	return n
}

func wire(nodes []*Node, labelMap map[names.Label]*Node, tbl *names.Table, funcName string) error {
	for i, node := range nodes {
		var next *Node
		if i+1 < len(nodes) {
			next = nodes[i+1]
		}
		last := node.Block.Last()

		switch {
		case last.Tag == ir.ValueInstr || last.Tag == ir.EffectInstr:
			switch last.Op {
			case ir.OpJmp:
				target, ok := labelMap[last.Labels[0]]
				if !ok {
					return unresolvedLabel(funcName, node, last.Labels[0], tbl)
				}
				node.Out = &Link{Kind: LinkJump, Target: target}
			case ir.OpBr:
				tTarget, ok := labelMap[last.Labels[0]]
				if !ok {
					return unresolvedLabel(funcName, node, last.Labels[0], tbl)
				}
				fTarget, ok := labelMap[last.Labels[1]]
				if !ok {
					return unresolvedLabel(funcName, node, last.Labels[1], tbl)
				}
				node.Out = &Link{Kind: LinkBranch, TrueTarget: tTarget, FalseTarget: fTarget}
			case ir.OpRet:
				node.Out = &Link{Kind: LinkRet}
			default:
				node.Out = fallthroughOrExit(next)
			}
		default:
			node.Out = fallthroughOrExit(next)
		}
	}
	return nil
}

func fallthroughOrExit(next *Node) *Link {
	if next == nil {
		return &Link{Kind: LinkExit}
	}
	return &Link{Kind: LinkFallthrough, Target: next}
}

func unresolvedLabel(funcName string, node *Node, label names.Label, tbl *names.Table) error {
	return diag.New(diag.UnresolvedLabel, fmt.Sprintf("unable to locate label %s", tbl.String(label.Name()))).
		InFunction(funcName).
		AtBlock(tbl.String(node.LabelName().Name())).
		WithVariable(tbl.String(label.Name()))
}

// rebuildPredecessors recomputes every node's Preds list from scratch based
// on the current Out links — the single source of truth for topology.
func rebuildPredecessors(nodes []*Node) {
	for _, n := range nodes {
		n.Preds = nil
	}
	for _, n := range nodes {
		for _, succ := range Successors(n) {
			succ.Preds = append(succ.Preds, n)
		}
	}
}

// RebuildPredecessors is rebuildPredecessors exported for passes outside
// this package (ssa, dce) that edit topology and must re-establish
// predecessor lists before returning.
func RebuildPredecessors(nodes []*Node) { rebuildPredecessors(nodes) }

// RedirectEdge retargets the single outgoing edge of p that currently points
// to oldTarget so it points to newTarget instead, rewriting both the Link
// and, where the edge carries an explicit label operand (Jump, Branch), the
// corresponding label in p's terminating instruction. A Fallthrough edge
// becomes an explicit Jump, mirroring collapseEmptyLabelBlocks.
func RedirectEdge(p *Node, oldTarget, newTarget *Node) {
	if p.Out == nil {
		return
	}
	switch p.Out.Kind {
	case LinkFallthrough:
		if p.Out.Target == oldTarget {
			p.Out = &Link{Kind: LinkJump, Target: newTarget}
			p.Block.Instrs = append(p.Block.Instrs, ir.NewEffect(ir.OpJmp, nil, nil, []names.Label{newTarget.LabelName()}))
		}
	case LinkJump:
		if p.Out.Target == oldTarget {
			p.Out.Target = newTarget
			retargetLabels(p, newTarget.LabelName())
		}
	case LinkBranch:
		if p.Out.TrueTarget == oldTarget {
			p.Out.TrueTarget = newTarget
			retargetLabelAt(p, 0, newTarget.LabelName())
		}
		if p.Out.FalseTarget == oldTarget {
			p.Out.FalseTarget = newTarget
			retargetLabelAt(p, 1, newTarget.LabelName())
		}
	}
}

// Successors returns a node's outgoing targets in canonical order
// (true-branch before false-branch for Branch links).
func Successors(n *Node) []*Node {
	if n.Out == nil {
		return nil
	}
	switch n.Out.Kind {
	case LinkFallthrough, LinkJump:
		return []*Node{n.Out.Target}
	case LinkBranch:
		return []*Node{n.Out.TrueTarget, n.Out.FalseTarget}
	default:
		return nil
	}
}

// collapseEmptyLabelBlocks finds every node that is only a label with a
// Fallthrough successor and redirects every edge that targeted it to that
// successor instead. A Fallthrough edge whose target got relabelled this
// way becomes an explicit Jump with the new label appended to the source
// block.
func collapseEmptyLabelBlocks(cfgFn *CFGFunction) {
	rawRedirect := make(map[*Node]*Node)
	for _, n := range cfgFn.Nodes {
		if len(n.Block.Instrs) == 1 && n.Block.Instrs[0].IsLabel() &&
			n.Out != nil && n.Out.Kind == LinkFallthrough {
			rawRedirect[n] = n.Out.Target
		}
	}
	if len(rawRedirect) == 0 {
		return
	}
	redirect := make(map[*Node]*Node, len(rawRedirect))
	for n := range rawRedirect {
		redirect[n] = resolveRedirect(rawRedirect, n)
	}

	survivors := make([]*Node, 0, len(cfgFn.Nodes))
	for _, n := range cfgFn.Nodes {
		if _, dropped := redirect[n]; dropped {
			continue
		}
		survivors = append(survivors, n)
	}

	for _, n := range survivors {
		if n.Out == nil {
			continue
		}
		switch n.Out.Kind {
		case LinkJump:
			if target, ok := redirect[n.Out.Target]; ok {
				n.Out.Target = target
				retargetLabels(n, target.LabelName())
			}
		case LinkFallthrough:
			if target, ok := redirect[n.Out.Target]; ok {
				n.Out = &Link{Kind: LinkJump, Target: target}
				n.Block.Instrs = append(n.Block.Instrs, ir.NewEffect(ir.OpJmp, nil, nil, []names.Label{target.LabelName()}))
			}
		case LinkBranch:
			if target, ok := redirect[n.Out.TrueTarget]; ok {
				n.Out.TrueTarget = target
				retargetLabelAt(n, 0, target.LabelName())
			}
			if target, ok := redirect[n.Out.FalseTarget]; ok {
				n.Out.FalseTarget = target
				retargetLabelAt(n, 1, target.LabelName())
			}
		}
	}

	cfgFn.Nodes = survivors
}

func resolveRedirect(redirect map[*Node]*Node, target *Node) *Node {
	seen := map[*Node]bool{}
	for {
		next, ok := redirect[target]
		if !ok || seen[target] {
			return target
		}
		seen[target] = true
		target = next
	}
}

func retargetLabels(n *Node, newLabel names.Label) {
	last := &n.Block.Instrs[len(n.Block.Instrs)-1]
	last.Labels[0] = newLabel
}

func retargetLabelAt(n *Node, idx int, newLabel names.Label) {
	last := &n.Block.Instrs[len(n.Block.Instrs)-1]
	last.Labels[idx] = newLabel
}

// Flatten consumes the CFG back into a flat instruction list for
// serialization, in node order.
func (f *CFGFunction) Flatten() []ir.Instruction {
	var out []ir.Instruction
	for _, n := range f.Nodes {
		out = append(out, n.Block.Instrs...)
	}
	return out
}

// PruneMissing drops predecessor references that no longer resolve to a
// node in the current set, as required after topology edits such as
// orphan-block removal.
func PruneMissing(nodes []*Node) {
	alive := make(map[*Node]bool, len(nodes))
	for _, n := range nodes {
		alive[n] = true
	}
	for _, n := range nodes {
		kept := n.Preds[:0]
		for _, p := range n.Preds {
			if alive[p] {
				kept = append(kept, p)
			}
		}
		n.Preds = kept
	}
}

// RemoveOrphans retains only the entry and nodes reachable from it via a
// forward-link BFS, discarding every block a reader could never reach by
// following jumps, branches, and fallthroughs from the entry block.
func RemoveOrphans(f *CFGFunction) {
	if len(f.Nodes) == 0 {
		return
	}
	reachable := map[*Node]bool{f.Nodes[0]: true}
	queue := []*Node{f.Nodes[0]}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, s := range Successors(n) {
			if !reachable[s] {
				reachable[s] = true
				queue = append(queue, s)
			}
		}
	}

	survivors := make([]*Node, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		if reachable[n] {
			survivors = append(survivors, n)
		}
	}
	f.Nodes = survivors
	PruneMissing(f.Nodes)
}
