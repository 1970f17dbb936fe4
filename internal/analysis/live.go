package analysis

import (
	"brilgo/internal/cfg"
	"brilgo/internal/dataflow"
	"brilgo/internal/names"
)

// VarSet is a set of variables; the live-variables lattice value.
type VarSet map[names.Variable]struct{}

type liveProblem struct{}

func (liveProblem) Initial() VarSet { return VarSet{} }

func (liveProblem) Transfer(input VarSet, block *cfg.Block, _ int) VarSet {
	used := VarSet{}
	killed := VarSet{}

	for _, instr := range block.Instrs {
		for _, arg := range instr.Args {
			if _, dead := killed[arg]; !dead {
				used[arg] = struct{}{}
			}
		}
		if d, ok := instr.Defines(); ok {
			killed[d] = struct{}{}
		}
	}

	out := make(VarSet, len(used)+len(input))
	for v := range used {
		out[v] = struct{}{}
	}
	for v := range input {
		if _, dead := killed[v]; !dead {
			out[v] = struct{}{}
		}
	}
	return out
}

func (liveProblem) Merge(ins []VarSet) VarSet {
	out := VarSet{}
	for _, s := range ins {
		for v := range s {
			out[v] = struct{}{}
		}
	}
	return out
}

func (liveProblem) Equal(a, b VarSet) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if _, ok := b[v]; !ok {
			return false
		}
	}
	return true
}

func (liveProblem) Direction() dataflow.Direction { return dataflow.Backward }

// LiveVariables runs live-variables analysis over cfgFn's blocks.
func LiveVariables(cfgFn *cfg.CFGFunction) []dataflow.Result[VarSet] {
	return dataflow.Solve[VarSet](cfgFn.Nodes, liveProblem{})
}
