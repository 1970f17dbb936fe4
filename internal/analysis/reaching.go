// Package analysis implements the two concrete dataflow analyses (C5):
// reaching definitions and live variables, each a transfer/merge pair over
// the generic dataflow.Solve worklist solver.
package analysis

import (
	"fmt"

	"brilgo/internal/cfg"
	"brilgo/internal/dataflow"
	"brilgo/internal/diag"
	"brilgo/internal/ir"
	"brilgo/internal/names"
)

// VarDef is a (variable, defining-block-index) pair, the reaching-
// definitions lattice element.
type VarDef struct {
	Var   names.Variable
	Block int
}

// ReachSet is a set of VarDef; the reaching-definitions lattice value.
type ReachSet map[VarDef]struct{}

func (s ReachSet) clone() ReachSet {
	out := make(ReachSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

type reachingProblem struct{}

func (reachingProblem) Initial() ReachSet { return ReachSet{} }

func (reachingProblem) Transfer(input ReachSet, block *cfg.Block, idx int) ReachSet {
	defined := map[names.Variable]bool{}
	for _, instr := range block.Instrs {
		if d, ok := instr.Defines(); ok {
			defined[d] = true
		}
	}

	out := make(ReachSet, len(input)+len(defined))
	for vd := range input {
		if !defined[vd.Var] {
			out[vd] = struct{}{}
		}
	}
	for v := range defined {
		out[VarDef{Var: v, Block: idx}] = struct{}{}
	}
	return out
}

func (reachingProblem) Merge(ins []ReachSet) ReachSet {
	out := ReachSet{}
	for _, s := range ins {
		for k := range s {
			out[k] = struct{}{}
		}
	}
	return out
}

func (reachingProblem) Equal(a, b ReachSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func (reachingProblem) Direction() dataflow.Direction { return dataflow.Forward }

// dummyLiteral returns the literal a formal parameter is seeded with for
// reaching-definitions purposes: Int->0, Bool->false, Float->0.0. Ptr
// parameters have no canonical null literal and are a fatal InvalidIR
// error.
func dummyLiteral(t ir.Type, funcName, paramName string, tbl *names.Table) (ir.Literal, error) {
	switch t.Kind {
	case ir.IntKind:
		return ir.IntLiteral(0), nil
	case ir.BoolKind:
		return ir.BoolLiteral(false), nil
	case ir.FloatKind:
		return ir.FloatLiteral(0), nil
	default:
		return ir.Literal{}, diag.New(diag.InvalidIR, "pointer-typed parameter has no canonical seed literal").
			InFunction(funcName).WithVariable(paramName)
	}
}

// Reaching runs reaching-definitions analysis over cfgFn. Formal parameters
// are modeled by prepending a synthetic entry block that defines each
// parameter with a dummy literal, fallthrough into the real entry; this
// synthetic block is only constructed (and only affects indices) when the
// function actually has parameters.
func Reaching(cfgFn *cfg.CFGFunction, tbl *names.Table, funcName string) ([]dataflow.Result[ReachSet], error) {
	nodes := cfgFn.Nodes
	if len(cfgFn.Params) > 0 {
		var instrs []ir.Instruction
		for _, p := range cfgFn.Params {
			lit, err := dummyLiteral(p.Type, funcName, tbl.String(p.Name.Name()), tbl)
			if err != nil {
				return nil, err
			}
			instrs = append(instrs, ir.NewConst(p.Name, p.Type, lit))
		}
		synthetic := &cfg.Node{
			Label: ir.NewLabel(names.Label(tbl.Fresh(fmt.Sprintf("%s.params", funcName)))),
			Block: cfg.Block{Instrs: instrs},
			Out:   &cfg.Link{Kind: cfg.LinkFallthrough, Target: nodes[0]},
		}
		nodes = append([]*cfg.Node{synthetic}, nodes...)
	}

	return dataflow.Solve[ReachSet](nodes, reachingProblem{}), nil
}
