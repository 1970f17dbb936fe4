package pipeline

import (
	"testing"

	"brilgo/internal/config"
	"brilgo/internal/ir"
	"brilgo/internal/names"
)

func mkVar(tbl *names.Table, s string) names.Variable { return names.Variable(tbl.Intern(s)) }
func mkLabel(tbl *names.Table, s string) names.Label  { return names.Label(tbl.Intern(s)) }

// With no flags set, Run must echo the function's instructions verbatim.
func TestRunWithNoFlagsEchoesInput(t *testing.T) {
	tbl := names.New()
	x := mkVar(tbl, "x")
	instrs := []ir.Instruction{
		ir.NewConst(x, ir.IntType(), ir.IntLiteral(1)),
		ir.NewEffect(ir.OpPrint, []names.Variable{x}, nil, nil),
	}
	fn := &ir.Function{Name: names.FuncName(tbl.Intern("f")), Instrs: instrs}
	prog := &ir.Program{Names: tbl, Functions: []*ir.Function{fn}}

	if err := Run(prog, config.Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fn.Instrs) != 2 {
		t.Fatalf("expected the input echoed verbatim, got %d instructions", len(fn.Instrs))
	}
}

func TestRunGlobalTDCEOnly(t *testing.T) {
	tbl := names.New()
	x, y := mkVar(tbl, "x"), mkVar(tbl, "y")
	instrs := []ir.Instruction{
		ir.NewConst(x, ir.IntType(), ir.IntLiteral(1)),
		ir.NewConst(y, ir.IntType(), ir.IntLiteral(2)), // never used
		ir.NewEffect(ir.OpPrint, []names.Variable{x}, nil, nil),
	}
	fn := &ir.Function{Name: names.FuncName(tbl.Intern("f")), Instrs: instrs}
	prog := &ir.Program{Names: tbl, Functions: []*ir.Function{fn}}

	if err := Run(prog, config.Options{GlobalTDCE: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fn.Instrs) != 2 {
		t.Fatalf("expected y's dead definition dropped, got %d instructions: %v", len(fn.Instrs), fn.Instrs)
	}
}

// The full all-flags pipeline on a counting loop should round-trip through
// SSA and back out with no surviving phi and no net loss of the loop's
// observable behavior (the print of i survives).
func TestRunAllFlagsRoundTripsLoop(t *testing.T) {
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
	prog := &ir.Program{Names: tbl, Functions: []*ir.Function{fn}}

	opts, err := config.FromFlags([]string{"all"})
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	if err := Run(prog, opts); err != nil {
		t.Fatalf("Run: %v", err)
	}

	foundPrint := false
	for _, instr := range fn.Instrs {
		if instr.Tag == ir.ValueInstr && instr.Op == ir.OpPhi {
			t.Fatalf("no phi should survive a full to_ssa+from_ssa round trip, got %v", instr)
		}
		if instr.Tag == ir.EffectInstr && instr.Op == ir.OpPrint {
			foundPrint = true
		}
	}
	if !foundPrint {
		t.Error("the loop's print should survive the full pipeline")
	}
}
