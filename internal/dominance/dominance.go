// Package dominance implements component C6: reverse post-order traversal,
// iterative dominator-set computation, the dominator tree, and dominance
// frontiers. These drive phi placement in package ssa.
package dominance

import "brilgo/internal/cfg"

// ReversePostOrder performs an iterative depth-first post-order traversal
// from entry and reverses it, visiting successors in their stored order
// (true before false for a Branch, per cfg.Successors). Nodes unreachable
// from entry are omitted. Implemented with an explicit work stack (Design
// Notes §9: "Recursive tree traversals") rather than recursion.
func ReversePostOrder(entry *cfg.Node) []*cfg.Node {
	type frame struct {
		node *cfg.Node
		next int
	}

	visited := map[*cfg.Node]bool{entry: true}
	stack := []frame{{entry, 0}}
	var post []*cfg.Node

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succs := cfg.Successors(top.node)
		if top.next < len(succs) {
			child := succs[top.next]
			top.next++
			if !visited[child] {
				visited[child] = true
				stack = append(stack, frame{child, 0})
			}
			continue
		}
		post = append(post, top.node)
		stack = stack[:len(stack)-1]
	}

	rpo := make([]*cfg.Node, len(post))
	for i, n := range post {
		rpo[len(post)-1-i] = n
	}
	return rpo
}

// Set is a set of *cfg.Node, used both as a dominator set and as the
// immutable snapshot passed to Frontier.
type Set map[*cfg.Node]bool

func (s Set) clone() Set {
	out := make(Set, len(s))
	for n := range s {
		out[n] = true
	}
	return out
}

func (s Set) equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for n := range s {
		if !o[n] {
			return false
		}
	}
	return true
}

// Dominators computes dom(n) for every node in rpo: dom(entry) = {entry};
// dom(n) starts as the full node set and shrinks to a fixpoint via dom(n) =
// {n} ∪ (intersection of dom(p) over predecessors p of n), processed in
// RPO order each round.
func Dominators(rpo []*cfg.Node) map[*cfg.Node]Set {
	reachable := make(map[*cfg.Node]bool, len(rpo))
	for _, n := range rpo {
		reachable[n] = true
	}

	entry := rpo[0]
	dom := make(map[*cfg.Node]Set, len(rpo))
	full := Set{}
	for _, n := range rpo {
		full[n] = true
	}
	for _, n := range rpo {
		if n == entry {
			dom[n] = Set{entry: true}
		} else {
			dom[n] = full.clone()
		}
	}

	changed := true
	for changed {
		changed = false
		for _, n := range rpo {
			if n == entry {
				continue
			}
			var preds []*cfg.Node
			for _, p := range n.Preds {
				if reachable[p] {
					preds = append(preds, p)
				}
			}

			var inter Set
			if len(preds) == 0 {
				inter = Set{}
			} else {
				inter = dom[preds[0]].clone()
				for _, p := range preds[1:] {
					for d := range inter {
						if !dom[p][d] {
							delete(inter, d)
						}
					}
				}
			}
			inter[n] = true

			if !inter.equal(dom[n]) {
				dom[n] = inter
				changed = true
			}
		}
	}
	return dom
}

// Tree is the dominator tree: each non-entry node's immediate dominator,
// plus the resulting parent->children map.
type Tree struct {
	Entry    *cfg.Node
	IDom     map[*cfg.Node]*cfg.Node
	Children map[*cfg.Node][]*cfg.Node
	Dom      map[*cfg.Node]Set
	order    map[*cfg.Node]int
}

// BuildTree constructs the dominator tree from rpo and its dominator sets.
// idom(n) is taken as the strict dominator of n with the largest dominator
// set (the closest one in the strict-dominance chain, which is always
// totally ordered).
func BuildTree(rpo []*cfg.Node, dom map[*cfg.Node]Set) *Tree {
	entry := rpo[0]
	order := make(map[*cfg.Node]int, len(rpo))
	for i, n := range rpo {
		order[n] = i
	}

	idom := make(map[*cfg.Node]*cfg.Node, len(rpo))
	children := make(map[*cfg.Node][]*cfg.Node, len(rpo))
	for _, n := range rpo {
		if n == entry {
			continue
		}
		var best *cfg.Node
		bestSize := -1
		for d := range dom[n] {
			if d == n {
				continue
			}
			if len(dom[d]) > bestSize {
				bestSize = len(dom[d])
				best = d
			}
		}
		idom[n] = best
		children[best] = append(children[best], n)
	}

	return &Tree{Entry: entry, IDom: idom, Children: children, Dom: dom, order: order}
}

// Frontier computes the dominance frontier of d: the set of nodes f such
// that d dominates some predecessor of f but does not strictly dominate f
// itself.
func Frontier(rpo []*cfg.Node, dom map[*cfg.Node]Set, d *cfg.Node) []*cfg.Node {
	result := map[*cfg.Node]bool{}
	for _, p := range rpo {
		if !dom[p][d] {
			continue // p is not dominated by d
		}
		for _, f := range cfg.Successors(p) {
			if _, known := dom[f]; !known {
				continue // unreachable successor
			}
			if f == d || !dom[f][d] {
				result[f] = true
			}
		}
	}
	out := make([]*cfg.Node, 0, len(result))
	for f := range result {
		out = append(out, f)
	}
	return out
}
