package lvn

import (
	"testing"

	"brilgo/internal/cfg"
	"brilgo/internal/ir"
	"brilgo/internal/names"
)

func mkVar(tbl *names.Table, s string) names.Variable { return names.Variable(tbl.Intern(s)) }

func buildSingleBlock(t *testing.T, tbl *names.Table, instrs []ir.Instruction) *cfg.CFGFunction {
	t.Helper()
	fn := &ir.Function{Name: names.FuncName(tbl.Intern("f")), Instrs: instrs}
	cfgFn, err := cfg.Build(fn, tbl, "f")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cfgFn
}

// x=const4; y=const4; z=add x y; print z should fold and CSE down to
// x=const4; y=id x; z=const8; print z.
func TestLVNCSEAndFolding(t *testing.T) {
	tbl := names.New()
	x, y, z := mkVar(tbl, "x"), mkVar(tbl, "y"), mkVar(tbl, "z")

	instrs := []ir.Instruction{
		ir.NewConst(x, ir.IntType(), ir.IntLiteral(4)),
		ir.NewConst(y, ir.IntType(), ir.IntLiteral(4)),
		ir.NewValue(ir.OpAdd, z, ir.IntType(), []names.Variable{x, y}, nil, nil),
		ir.NewEffect(ir.OpPrint, []names.Variable{z}, nil, nil),
	}
	cfgFn := buildSingleBlock(t, tbl, instrs)

	if err := Run(cfgFn, tbl, "f"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := cfgFn.Nodes[0].Block.Instrs
	if len(got) != 4 {
		t.Fatalf("expected 4 instructions, got %d", len(got))
	}
	if got[0].Tag != ir.ConstInstr || got[0].Value.IntVal != 4 {
		t.Errorf("x should stay const 4, got %v", got[0])
	}
	if got[1].Tag != ir.ValueInstr || got[1].Op != ir.OpId || got[1].Args[0] != x {
		t.Errorf("y should become id x, got %v", got[1])
	}
	if got[2].Tag != ir.ConstInstr || got[2].Value.IntVal != 8 {
		t.Errorf("z should fold to const 8, got %v", got[2])
	}
	if got[3].Tag != ir.EffectInstr || got[3].Op != ir.OpPrint {
		t.Errorf("print should survive unchanged in shape, got %v", got[3])
	}
}

// a=const0; b=add x a; print b should simplify via the x+0 identity to
// a=const0; b=id x; print b.
func TestLVNAlgebraicIdentity(t *testing.T) {
	tbl := names.New()
	a, b, x := mkVar(tbl, "a"), mkVar(tbl, "b"), mkVar(tbl, "x")

	instrs := []ir.Instruction{
		ir.NewConst(a, ir.IntType(), ir.IntLiteral(0)),
		ir.NewValue(ir.OpAdd, b, ir.IntType(), []names.Variable{x, a}, nil, nil),
		ir.NewEffect(ir.OpPrint, []names.Variable{b}, nil, nil),
	}
	cfgFn := buildSingleBlock(t, tbl, instrs)

	if err := Run(cfgFn, tbl, "f"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := cfgFn.Nodes[0].Block.Instrs
	if got[1].Tag != ir.ValueInstr || got[1].Op != ir.OpId || got[1].Args[0] != x {
		t.Errorf("b should become id x, got %v", got[1])
	}
}

func TestLVNDivByZeroIsFatal(t *testing.T) {
	tbl := names.New()
	a, b, z := mkVar(tbl, "a"), mkVar(tbl, "b"), mkVar(tbl, "z")

	instrs := []ir.Instruction{
		ir.NewConst(a, ir.IntType(), ir.IntLiteral(1)),
		ir.NewConst(b, ir.IntType(), ir.IntLiteral(0)),
		ir.NewValue(ir.OpDiv, z, ir.IntType(), []names.Variable{a, b}, nil, nil),
	}
	cfgFn := buildSingleBlock(t, tbl, instrs)

	if err := Run(cfgFn, tbl, "f"); err == nil {
		t.Fatal("expected a fatal error for compile-time division by zero")
	}
}

func TestLVNIsIdempotent(t *testing.T) {
	tbl := names.New()
	x, y, z := mkVar(tbl, "x"), mkVar(tbl, "y"), mkVar(tbl, "z")
	instrs := []ir.Instruction{
		ir.NewConst(x, ir.IntType(), ir.IntLiteral(4)),
		ir.NewConst(y, ir.IntType(), ir.IntLiteral(4)),
		ir.NewValue(ir.OpAdd, z, ir.IntType(), []names.Variable{x, y}, nil, nil),
		ir.NewEffect(ir.OpPrint, []names.Variable{z}, nil, nil),
	}
	cfgFn := buildSingleBlock(t, tbl, instrs)
	if err := Run(cfgFn, tbl, "f"); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first := append([]ir.Instruction(nil), cfgFn.Nodes[0].Block.Instrs...)

	if err := Run(cfgFn, tbl, "f"); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	second := cfgFn.Nodes[0].Block.Instrs

	if len(first) != len(second) {
		t.Fatalf("idempotence: instruction count changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Tag != second[i].Tag || first[i].Op != second[i].Op {
			t.Errorf("idempotence: instruction %d shape changed: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestPreRenameHandlesBlockLocalRedefinition(t *testing.T) {
	tbl := names.New()
	x, y, z := mkVar(tbl, "x"), mkVar(tbl, "y"), mkVar(tbl, "z")
	// x=1; y=add x x; x=2; z=add x y — the first x must survive under a
	// fresh name so y's use of it isn't silently repointed at x's second
	// definition once LVN starts binding canonical names.
	instrs := []ir.Instruction{
		ir.NewConst(x, ir.IntType(), ir.IntLiteral(1)),
		ir.NewValue(ir.OpAdd, y, ir.IntType(), []names.Variable{x, x}, nil, nil),
		ir.NewConst(x, ir.IntType(), ir.IntLiteral(2)),
		ir.NewValue(ir.OpAdd, z, ir.IntType(), []names.Variable{x, y}, nil, nil),
	}
	renamed := preRename(tbl, instrs)
	if renamed[0].Dest == renamed[2].Dest {
		t.Fatal("pre-renaming should give the non-final definition of x a fresh name")
	}
	if renamed[2].Dest != x {
		t.Errorf("the final definition of x should keep the original name")
	}
	if renamed[1].Args[0] != renamed[0].Dest || renamed[1].Args[1] != renamed[0].Dest {
		t.Errorf("uses of x between the two definitions should follow the renamed first definition")
	}
	if renamed[3].Args[0] != x {
		t.Errorf("the use of x after the second definition should see the original name")
	}
}
