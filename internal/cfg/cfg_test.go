package cfg

import (
	"testing"

	"brilgo/internal/diag"
	"brilgo/internal/ir"
	"brilgo/internal/names"
)

func mkVar(tbl *names.Table, s string) names.Variable { return names.Variable(tbl.Intern(s)) }
func mkLabel(tbl *names.Table, s string) names.Label  { return names.Label(tbl.Intern(s)) }

// [const one=1; jmp L; label M; const two=2; ret; label L; jmp M]
func TestCFGWiringScenario(t *testing.T) {
	tbl := names.New()
	one := mkVar(tbl, "one")
	two := mkVar(tbl, "two")
	L := mkLabel(tbl, "L")
	M := mkLabel(tbl, "M")

	instrs := []ir.Instruction{
		ir.NewConst(one, ir.IntType(), ir.IntLiteral(1)),
		ir.NewEffect(ir.OpJmp, nil, nil, []names.Label{L}),
		ir.NewLabel(M),
		ir.NewConst(two, ir.IntType(), ir.IntLiteral(2)),
		ir.NewEffect(ir.OpRet, nil, nil, nil),
		ir.NewLabel(L),
		ir.NewEffect(ir.OpJmp, nil, nil, []names.Label{M}),
	}
	fn := &ir.Function{Name: names.FuncName(tbl.Intern("main")), Instrs: instrs}

	cfgFn, err := Build(fn, tbl, "main")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(cfgFn.Nodes) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(cfgFn.Nodes))
	}

	entry, mBlock, lBlock := cfgFn.Nodes[0], cfgFn.Nodes[1], cfgFn.Nodes[2]

	if entry.Out.Kind != LinkJump || entry.Out.Target != lBlock {
		t.Errorf("entry should jump to L")
	}
	if lBlock.Out.Kind != LinkJump || lBlock.Out.Target != mBlock {
		t.Errorf("L should jump to M")
	}
	if mBlock.Out.Kind != LinkRet {
		t.Errorf("M should return")
	}

	if len(mBlock.Preds) != 1 || mBlock.Preds[0] != lBlock {
		t.Errorf("preds(M) should be {L}, got %v", mBlock.Preds)
	}
	if len(lBlock.Preds) != 1 || lBlock.Preds[0] != entry {
		t.Errorf("preds(L) should be {entry}, got %v", lBlock.Preds)
	}
}

func TestEmptyInstructionStream(t *testing.T) {
	tbl := names.New()
	fn := &ir.Function{Name: names.FuncName(tbl.Intern("f"))}
	cfgFn, err := Build(fn, tbl, "f")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(cfgFn.Nodes) != 1 {
		t.Fatalf("expected single synthetic block, got %d", len(cfgFn.Nodes))
	}
	if cfgFn.Nodes[0].Out.Kind != LinkExit {
		t.Errorf("synthetic block should Exit")
	}
}

func TestUnresolvedLabelIsFatal(t *testing.T) {
	tbl := names.New()
	missing := mkLabel(tbl, "nowhere")
	instrs := []ir.Instruction{ir.NewEffect(ir.OpJmp, nil, nil, []names.Label{missing})}
	fn := &ir.Function{Name: names.FuncName(tbl.Intern("f")), Instrs: instrs}

	_, err := Build(fn, tbl, "f")
	if err == nil {
		t.Fatal("expected UnresolvedLabel error")
	}
	f, ok := err.(*diag.Fatal)
	if !ok || f.Kind != diag.UnresolvedLabel {
		t.Fatalf("expected *diag.Fatal{Kind: UnresolvedLabel}, got %v", err)
	}
}

func TestEmptyLabelBlockCollapse(t *testing.T) {
	tbl := names.New()
	x := mkVar(tbl, "x")
	L := mkLabel(tbl, "L")
	M := mkLabel(tbl, "M")

	// jmp L; label L; label M; x = const 1; ret
	instrs := []ir.Instruction{
		ir.NewEffect(ir.OpJmp, nil, nil, []names.Label{L}),
		ir.NewLabel(L),
		ir.NewLabel(M),
		ir.NewConst(x, ir.IntType(), ir.IntLiteral(1)),
		ir.NewEffect(ir.OpRet, nil, nil, nil),
	}
	fn := &ir.Function{Name: names.FuncName(tbl.Intern("f")), Instrs: instrs}

	cfgFn, err := Build(fn, tbl, "f")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// L was a label-only block that fell through to M; it should be gone.
	if len(cfgFn.Nodes) != 2 {
		t.Fatalf("expected 2 surviving blocks after collapse, got %d", len(cfgFn.Nodes))
	}
	entry := cfgFn.Nodes[0]
	if entry.Out.Kind != LinkJump || entry.Out.Target != cfgFn.Nodes[1] {
		t.Errorf("entry jump should be redirected straight to M")
	}
}

func TestPartitionDropsNothing(t *testing.T) {
	tbl := names.New()
	x := mkVar(tbl, "x")
	instrs := []ir.Instruction{
		ir.NewConst(x, ir.IntType(), ir.IntLiteral(1)),
		ir.NewEffect(ir.OpPrint, []names.Variable{x}, nil, nil),
	}
	groups := Partition(instrs)
	if len(groups) != 1 || len(groups[0]) != 2 {
		t.Fatalf("expected single 2-instr block, got %v", groups)
	}
}
