package ssa

import (
	"testing"

	"brilgo/internal/cfg"
	"brilgo/internal/ir"
	"brilgo/internal/names"
)

func mkVar(tbl *names.Table, s string) names.Variable { return names.Variable(tbl.Intern(s)) }
func mkLabel(tbl *names.Table, s string) names.Label  { return names.Label(tbl.Intern(s)) }

// A counting loop: i=0; label L; i=add i one; br cond L end; label end;
// print i.
func buildLoopCFG(t *testing.T) (*cfg.CFGFunction, *names.Table, names.Variable) {
	t.Helper()
	tbl := names.New()
	i := mkVar(tbl, "i")
	one := mkVar(tbl, "one")
	cond := mkVar(tbl, "cond")
	ten := mkVar(tbl, "ten")
	L := mkLabel(tbl, "L")
	end := mkLabel(tbl, "end")

	instrs := []ir.Instruction{
		ir.NewConst(i, ir.IntType(), ir.IntLiteral(0)),
		ir.NewConst(one, ir.IntType(), ir.IntLiteral(1)),
		ir.NewConst(ten, ir.IntType(), ir.IntLiteral(10)),
		ir.NewLabel(L),
		ir.NewValue(ir.OpAdd, i, ir.IntType(), []names.Variable{i, one}, nil, nil),
		ir.NewValue(ir.OpLt, cond, ir.BoolType(), []names.Variable{i, ten}, nil, nil),
		ir.NewEffect(ir.OpBr, []names.Variable{cond}, nil, []names.Label{L, end}),
		ir.NewLabel(end),
		ir.NewEffect(ir.OpPrint, []names.Variable{i}, nil, nil),
	}
	fn := &ir.Function{Name: names.FuncName(tbl.Intern("loop")), Instrs: instrs}
	cfgFn, err := cfg.Build(fn, tbl, "loop")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cfgFn, tbl, i
}

func TestToSSAPlacesPhiAtLoopHeader(t *testing.T) {
	cfgFn, tbl, i := buildLoopCFG(t)
	if err := ToSSA(cfgFn, tbl, "loop"); err != nil {
		t.Fatalf("ToSSA: %v", err)
	}

	var header *cfg.Node
	for _, n := range cfgFn.Nodes {
		for _, instr := range n.Block.Instrs {
			if instr.Tag == ir.ValueInstr && instr.Op == ir.OpPhi {
				header = n
			}
		}
	}
	if header == nil {
		t.Fatal("expected a phi to be placed at the loop header")
	}

	var phi *ir.Instruction
	for idx := range header.Block.Instrs {
		if header.Block.Instrs[idx].Tag == ir.ValueInstr && header.Block.Instrs[idx].Op == ir.OpPhi {
			phi = &header.Block.Instrs[idx]
		}
	}
	if len(phi.Args) != 2 || len(phi.Labels) != 2 {
		t.Fatalf("loop-header phi for i should have 2 incoming edges, got %d args/%d labels", len(phi.Args), len(phi.Labels))
	}
	_ = i
}

func TestToSSASingleDefinitionSkipsPhiPlacement(t *testing.T) {
	tbl := names.New()
	x := mkVar(tbl, "x")
	instrs := []ir.Instruction{
		ir.NewConst(x, ir.IntType(), ir.IntLiteral(1)),
		ir.NewEffect(ir.OpPrint, []names.Variable{x}, nil, nil),
	}
	fn := &ir.Function{Name: names.FuncName(tbl.Intern("f")), Instrs: instrs}
	cfgFn, err := cfg.Build(fn, tbl, "f")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := ToSSA(cfgFn, tbl, "f"); err != nil {
		t.Fatalf("ToSSA: %v", err)
	}
	for _, n := range cfgFn.Nodes {
		for _, instr := range n.Block.Instrs {
			if instr.Tag == ir.ValueInstr && instr.Op == ir.OpPhi {
				t.Fatalf("single-definition variable should never get a phi")
			}
		}
	}
}

func TestFromSSARemovesPhisAndInsertsCopies(t *testing.T) {
	cfgFn, tbl, _ := buildLoopCFG(t)
	if err := ToSSA(cfgFn, tbl, "loop"); err != nil {
		t.Fatalf("ToSSA: %v", err)
	}
	if err := FromSSA(cfgFn, tbl, "loop"); err != nil {
		t.Fatalf("FromSSA: %v", err)
	}

	for _, n := range cfgFn.Nodes {
		for _, instr := range n.Block.Instrs {
			if instr.Tag == ir.ValueInstr && instr.Op == ir.OpPhi {
				t.Fatalf("no phi should survive de-SSA")
			}
		}
	}

	foundCopy := false
	for _, n := range cfgFn.Nodes {
		for _, instr := range n.Block.Instrs {
			if instr.Tag == ir.ValueInstr && instr.Op == ir.OpId {
				foundCopy = true
			}
		}
	}
	if !foundCopy {
		t.Error("de-SSA should have inserted at least one Id copy for the loop-header phi")
	}
}
