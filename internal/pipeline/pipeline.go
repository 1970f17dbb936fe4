// Package pipeline implements the pass driver that sequences CFG
// construction, SSA conversion, LVN, and DCE in a fixed order, gated by an
// internal/config.Options flag set. The sequence is an ordered list of
// named steps, each a simple function call rather than a pluggable pass
// interface value, since the ordering itself is fixed rather than
// user-assembled.
package pipeline

import (
	"brilgo/internal/cfg"
	"brilgo/internal/config"
	"brilgo/internal/dce"
	"brilgo/internal/ir"
	"brilgo/internal/lvn"
	"brilgo/internal/names"
	"brilgo/internal/ssa"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("brilgo.pipeline")

// Run applies opts to every function in prog in place, following the
// ordering contract:
//  1. g_tdce: global DCE over the flat instruction list.
//  2. any of {orph, l_tdce, lvn, solo_lvn, to_ssa, from_ssa}: build the CFG.
//  3. orph: remove unreachable blocks.
//  4. to_ssa: convert to SSA.
//  5. l_tdce: local DCE on every block.
//  6. solo_lvn without lvn: LVN alone; lvn: LVN then local DCE.
//  7. from_ssa: convert out of SSA.
//  8. flatten back to an instruction list.
//  9. lvn (not solo): a final global DCE pass.
func Run(prog *ir.Program, opts config.Options) error {
	for _, fn := range prog.Functions {
		if err := runFunction(fn, prog.Names, opts); err != nil {
			return err
		}
	}
	return nil
}

func runFunction(fn *ir.Function, tbl *names.Table, opts config.Options) error {
	funcName := tbl.String(fn.Name.Name())

	if opts.GlobalTDCE {
		log.Debugf("%s: global DCE (pre-CFG)", funcName)
		fn.Instrs = globalDCEFlat(fn.Instrs)
	}

	if !opts.NeedsCFG() {
		return nil
	}

	cfgFn, err := cfg.Build(fn, tbl, funcName)
	if err != nil {
		return err
	}
	log.Debugf("%s: built CFG with %d blocks", funcName, len(cfgFn.Nodes))

	if opts.Orphan {
		before := len(cfgFn.Nodes)
		cfg.RemoveOrphans(cfgFn)
		log.Debugf("%s: orphan removal dropped %d blocks", funcName, before-len(cfgFn.Nodes))
	}

	if opts.ToSSA {
		if err := ssa.ToSSA(cfgFn, tbl, funcName); err != nil {
			return err
		}
		log.Debugf("%s: converted to SSA", funcName)
	}

	if opts.LocalTDCE {
		dce.Local(cfgFn)
		log.Debugf("%s: local DCE applied", funcName)
	}

	if opts.SoloLVN && !opts.LVN {
		if err := lvn.Run(cfgFn, tbl, funcName); err != nil {
			return err
		}
		log.Debugf("%s: solo LVN applied", funcName)
	} else if opts.LVN {
		if err := lvn.Run(cfgFn, tbl, funcName); err != nil {
			return err
		}
		dce.Local(cfgFn)
		log.Debugf("%s: LVN + local DCE applied", funcName)
	}

	if opts.FromSSA {
		if err := ssa.FromSSA(cfgFn, tbl, funcName); err != nil {
			return err
		}
		log.Debugf("%s: converted out of SSA", funcName)
	}

	fn.Instrs = cfgFn.Flatten()

	if opts.LVN && !opts.SoloLVN {
		fn.Instrs = globalDCEFlat(fn.Instrs)
		log.Debugf("%s: final global DCE applied", funcName)
	}

	return nil
}

// globalDCEFlat runs trivial global DCE over a flat (pre-CFG or
// post-flatten) instruction list by wrapping it in a single-node CFGFunction
// so it can reuse dce.Global's fixpoint loop.
func globalDCEFlat(instrs []ir.Instruction) []ir.Instruction {
	node := &cfg.Node{Block: cfg.Block{Instrs: instrs}}
	cfgFn := &cfg.CFGFunction{Nodes: []*cfg.Node{node}}
	dce.Global(cfgFn)
	return cfgFn.Nodes[0].Block.Instrs
}
