// Package dataflow implements a generic worklist solver: a single
// algorithm parametrized by a lattice value type, a transfer function, a
// merge function and a direction, shared by reaching-definitions and
// live-variables (package analysis). The lattice and direction are
// expressed as a small interface rather than a closure-parameterized
// generic function, the same shape an ordered pipeline of named,
// boolean-gated passes (package pipeline) and a functional-stage pass list
// both use elsewhere in this toolkit.
package dataflow

import "brilgo/internal/cfg"

// Direction selects whether a Problem flows with or against control flow.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Problem is a dataflow analysis instance over lattice value type D.
// Transfer must read but never mutate the block it is given. Merge takes
// ownership-free references to lattice values. Equal is required explicitly
// (rather than constraining D to be comparable) because the lattices used
// here are Go maps/sets, which aren't comparable with ==.
type Problem[D any] interface {
	Initial() D
	Transfer(in D, blk *cfg.Block, idx int) D
	Merge(ins []D) D
	Equal(a, b D) bool
	Direction() Direction
}

// Result is one node's solved in/out lattice values.
type Result[D any] struct {
	In   D
	Out  D
	Node *cfg.Node
}

// Solve runs the worklist algorithm to a fixpoint: nodes are seeded from
// their initial lattice value, then repeatedly merged from predecessors (or
// successors, for a backward problem) and transferred until no node's
// in/out values change. Nodes are assigned contiguous indices for the run
// only, in a slice local to this call, rather than a scratch field stored
// on the node itself.
func Solve[D any](nodes []*cfg.Node, p Problem[D]) []Result[D] {
	n := len(nodes)
	idx := make(map[*cfg.Node]int, n)
	for i, node := range nodes {
		idx[node] = i
	}

	// Predecessor/successor index lists are derived from each node's
	// outgoing Link and snapshotted for the run, rather than read off
	// node.Preds: that field only holds predecessors relative to the
	// node's owning CFGFunction, but Solve may be called over a node
	// list that isn't exactly that (e.g. analysis.Reaching prepends a
	// synthetic parameter-seeding entry). Deriving both directions from
	// the single source of truth (outgoing links) keeps the two
	// consistent by construction.
	preds := make([][]int, n)
	succs := make([][]int, n)
	for i, node := range nodes {
		for _, s := range cfg.Successors(node) {
			if j, ok := idx[s]; ok {
				succs[i] = append(succs[i], j)
				preds[j] = append(preds[j], i)
			}
		}
	}

	in := make([]D, n)
	out := make([]D, n)
	for i := range nodes {
		in[i] = p.Initial()
		out[i] = p.Initial()
	}

	worklist := make([]int, n)
	for i := range worklist {
		worklist[i] = i
	}

	forward := p.Direction() == Forward

	for len(worklist) > 0 {
		i := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		block := &nodes[i].Block

		if forward {
			old := out[i]
			merged := mergeFrom(preds[i], out, p)
			in[i] = merged
			out[i] = p.Transfer(in[i], block, i)
			if !p.Equal(out[i], old) {
				worklist = append(worklist, succs[i]...)
			}
		} else {
			old := in[i]
			merged := mergeFrom(succs[i], in, p)
			out[i] = merged
			in[i] = p.Transfer(out[i], block, i)
			if !p.Equal(in[i], old) {
				worklist = append(worklist, preds[i]...)
			}
		}
	}

	results := make([]Result[D], n)
	for i, node := range nodes {
		results[i] = Result[D]{In: in[i], Out: out[i], Node: node}
	}
	return results
}

func mergeFrom[D any](indices []int, values []D, p Problem[D]) D {
	if len(indices) == 0 {
		return p.Initial()
	}
	vals := make([]D, len(indices))
	for k, j := range indices {
		vals[k] = values[j]
	}
	return p.Merge(vals)
}
