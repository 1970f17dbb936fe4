// Package lvn implements local value numbering over a single block — a
// value table with canonicalization, constant folding, algebraic
// identities, and a redefinition-safe pre-renaming pass that must run
// before numbering can proceed safely.
package lvn

import (
	"fmt"

	"brilgo/internal/cfg"
	"brilgo/internal/diag"
	"brilgo/internal/ir"
	"brilgo/internal/names"
)

// RowID indexes a row in a Table.
type RowID int

// ValueKind discriminates the value variants LVN compares structurally.
type ValueKind int

const (
	VUnknown ValueKind = iota
	VLiteral
	VUnary
	VBinary
	VCall
)

// Value is one row's content. Call and Unknown never compare equal to
// anything — calls are conservatively treated as impure (Open Question 3),
// and Unknown rows give first-sight variables, and the results of alloc
// and load, a lookup target.
type Value struct {
	Kind  ValueKind
	Lit   ir.Literal
	Op    ir.Op
	A, B  RowID
	Calls []RowID
}

func valuesEqual(a, b Value) bool {
	if a.Kind == VCall || b.Kind == VCall || a.Kind == VUnknown || b.Kind == VUnknown {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case VLiteral:
		return a.Lit.Equal(b.Lit)
	case VUnary:
		return a.Op == b.Op && a.A == b.A
	case VBinary:
		return a.Op == b.Op && a.A == b.A && a.B == b.B
	}
	return false
}

// Row is one value-table entry: its id, content and the canonical variable
// name (the first variable that ever produced this value).
type Row struct {
	ID    RowID
	Value Value
	Canon names.Variable
}

// Table is one block's value-numbering state: the row list plus the
// variable->row environment.
type Table struct {
	rows []Row
	env  map[names.Variable]RowID
}

func newTable() *Table {
	return &Table{env: map[names.Variable]RowID{}}
}

func (t *Table) lookup(v Value) (RowID, bool) {
	for _, r := range t.rows {
		if valuesEqual(r.Value, v) {
			return r.ID, true
		}
	}
	return 0, false
}

func (t *Table) insert(v Value, canon names.Variable) RowID {
	id := RowID(len(t.rows))
	t.rows = append(t.rows, Row{ID: id, Value: v, Canon: canon})
	return id
}

func (t *Table) bind(v names.Variable, row RowID) { t.env[v] = row }

// ensureRow returns the row for v, inserting an Unknown row bound to v on
// first sight so lookups never fail.
func (t *Table) ensureRow(v names.Variable) RowID {
	if id, ok := t.env[v]; ok {
		return id
	}
	id := t.insert(Value{Kind: VUnknown}, v)
	t.env[v] = id
	return id
}

// canonicalNameOf resolves a row to the name instructions should reference:
// its own canonical name, or — if the row itself holds a one-level Id
// indirection — the name of the row it points to.
func canonicalNameOf(t *Table, row RowID) names.Variable {
	r := t.rows[row]
	if r.Value.Kind == VUnary && r.Value.Op == ir.OpId {
		return t.rows[r.Value.A].Canon
	}
	return r.Canon
}

func isZero(l ir.Literal) bool {
	switch l.Kind {
	case ir.IntLit:
		return l.IntVal == 0
	case ir.FloatLit:
		return l.FltVal == 0
	default:
		return false
	}
}

func isOne(l ir.Literal) bool {
	switch l.Kind {
	case ir.IntLit:
		return l.IntVal == 1
	case ir.FloatLit:
		return l.FltVal == 1
	default:
		return false
	}
}

func zeroLike(l ir.Literal) ir.Literal {
	if l.Kind == ir.FloatLit {
		return ir.FloatLiteral(0)
	}
	return ir.IntLiteral(0)
}

func asLiteral(v Value) (ir.Literal, bool) {
	if v.Kind == VLiteral {
		return v.Lit, true
	}
	return ir.Literal{}, false
}

func evalBinary(op ir.Op, a, b ir.Literal) (lit ir.Literal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	switch op {
	case ir.OpAdd, ir.OpFAdd:
		return a.Add(b), nil
	case ir.OpSub, ir.OpFSub:
		return a.Sub(b), nil
	case ir.OpMul, ir.OpFMul:
		return a.Mul(b), nil
	case ir.OpDiv, ir.OpFDiv:
		return a.Div(b), nil
	case ir.OpAnd:
		return a.And(b), nil
	case ir.OpOr:
		return a.Or(b), nil
	case ir.OpEq, ir.OpFEq:
		return a.Eq(b), nil
	case ir.OpLt, ir.OpFLt:
		return a.Lt(b), nil
	case ir.OpGt, ir.OpFGt:
		return a.Gt(b), nil
	case ir.OpLe, ir.OpFLe:
		return a.Le(b), nil
	case ir.OpGe, ir.OpFGe:
		return a.Ge(b), nil
	default:
		return ir.Literal{}, fmt.Errorf("lvn: %s has no constant-folding rule", op)
	}
}

// identityFold applies the one-operand-literal algebraic identities:
// x+0, x*1, x|false, x&true -> Id x; x*0, x&false -> 0/false; x|true ->
// true.
func identityFold(op ir.Op, lit ir.Literal, other RowID) (Value, bool) {
	switch op {
	case ir.OpAdd, ir.OpFAdd, ir.OpSub, ir.OpFSub:
		if isZero(lit) {
			return Value{Kind: VUnary, Op: ir.OpId, A: other}, true
		}
	case ir.OpMul, ir.OpFMul:
		if isOne(lit) {
			return Value{Kind: VUnary, Op: ir.OpId, A: other}, true
		}
		if isZero(lit) {
			return Value{Kind: VLiteral, Lit: zeroLike(lit)}, true
		}
	case ir.OpAnd:
		if lit.Kind == ir.BoolLit {
			if lit.BoolVal {
				return Value{Kind: VUnary, Op: ir.OpId, A: other}, true
			}
			return Value{Kind: VLiteral, Lit: ir.BoolLiteral(false)}, true
		}
	case ir.OpOr:
		if lit.Kind == ir.BoolLit {
			if !lit.BoolVal {
				return Value{Kind: VUnary, Op: ir.OpId, A: other}, true
			}
			return Value{Kind: VLiteral, Lit: ir.BoolLiteral(true)}, true
		}
	}
	return Value{}, false
}

func simplifyUnary(t *Table, op ir.Op, a RowID) (Value, error) {
	rowA := t.rows[a]
	switch op {
	case ir.OpId:
		if lit, ok := asLiteral(rowA.Value); ok {
			return Value{Kind: VLiteral, Lit: lit}, nil // Id of a literal -> that literal
		}
		if rowA.Value.Kind == VUnary && rowA.Value.Op == ir.OpId {
			return Value{Kind: VUnary, Op: ir.OpId, A: rowA.Value.A}, nil // Id of an Id -> collapse
		}
		return Value{Kind: VUnary, Op: ir.OpId, A: a}, nil
	case ir.OpNot:
		if lit, ok := asLiteral(rowA.Value); ok {
			return Value{Kind: VLiteral, Lit: lit.Not()}, nil
		}
		return Value{Kind: VUnary, Op: ir.OpNot, A: a}, nil
	default:
		return Value{Kind: VUnary, Op: op, A: a}, nil
	}
}

func simplifyBinary(t *Table, op ir.Op, a, b RowID) (Value, error) {
	if op.IsCommutative() && a > b {
		a, b = b, a
	}

	litA, okA := asLiteral(t.rows[a].Value)
	litB, okB := asLiteral(t.rows[b].Value)

	if okA && okB {
		lit, err := evalBinary(op, litA, litB)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: VLiteral, Lit: lit}, nil
	}

	if op == ir.OpSub && a == b {
		return Value{Kind: VLiteral, Lit: ir.IntLiteral(0)}, nil
	}

	if okB {
		if v, ok := identityFold(op, litB, a); ok {
			return v, nil
		}
	}
	if okA && op.IsCommutative() {
		if v, ok := identityFold(op, litA, b); ok {
			return v, nil
		}
	}

	return Value{Kind: VBinary, Op: op, A: a, B: b}, nil
}

// deriveValue computes the Value an instruction produces, if any. Phi and
// instructions with no destination (Label, Effect) return hasValue=false.
func deriveValue(t *Table, instr ir.Instruction) (val Value, hasValue bool, err error) {
	switch instr.Tag {
	case ir.ConstInstr:
		return Value{Kind: VLiteral, Lit: instr.Value}, true, nil
	case ir.ValueInstr:
		switch instr.Op {
		case ir.OpPhi:
			return Value{}, false, nil
		case ir.OpCall:
			rows := make([]RowID, len(instr.Args))
			for i, a := range instr.Args {
				rows[i] = t.ensureRow(a)
			}
			return Value{Kind: VCall, Calls: rows}, true, nil
		case ir.OpAlloc, ir.OpLoad:
			return Value{Kind: VUnknown}, true, nil // opaque: never shares a row
		case ir.OpId, ir.OpNot:
			a := t.ensureRow(instr.Args[0])
			v, err := simplifyUnary(t, instr.Op, a)
			return v, true, err
		default:
			a := t.ensureRow(instr.Args[0])
			b := t.ensureRow(instr.Args[1])
			v, err := simplifyBinary(t, instr.Op, a, b)
			return v, true, err
		}
	default:
		return Value{}, false, nil
	}
}

// rewritePassthroughArgs resolves every argument of a non-defining
// instruction (Effect) to its row's canonical name. Phi and Label
// instructions are left untouched — a Phi's args are keyed by predecessor
// identity, not value identity.
func rewritePassthroughArgs(t *Table, instr ir.Instruction) ir.Instruction {
	if instr.Tag == ir.LabelInstr || (instr.Tag == ir.ValueInstr && instr.Op == ir.OpPhi) || len(instr.Args) == 0 {
		return instr
	}
	newArgs := make([]names.Variable, len(instr.Args))
	for i, a := range instr.Args {
		row := t.ensureRow(a)
		newArgs[i] = canonicalNameOf(t, row)
	}
	out := instr
	out.Args = newArgs
	return out
}

// rewrite numbers a single instruction against the running value table,
// replacing it with an Id copy when its value already has a canonical
// name, folding it to a Const when its operands are all literal, and
// otherwise rewriting its operands to their canonical names.
func rewrite(t *Table, instr ir.Instruction) (ir.Instruction, error) {
	if instr.Tag == ir.ValueInstr && instr.Op == ir.OpPhi {
		return instr, nil
	}

	val, hasValue, err := deriveValue(t, instr)
	if err != nil {
		return instr, err
	}
	if !hasValue {
		return rewritePassthroughArgs(t, instr), nil
	}

	dest, _ := instr.Defines()

	if existing, ok := t.lookup(val); ok {
		t.bind(dest, existing)
		canon := canonicalNameOf(t, existing)
		return ir.NewValue(ir.OpId, dest, instr.DstType, []names.Variable{canon}, nil, nil), nil
	}

	row := t.insert(val, dest)
	t.bind(dest, row)

	switch val.Kind {
	case VLiteral:
		return ir.NewConst(dest, instr.DstType, val.Lit), nil
	case VUnary:
		canon := canonicalNameOf(t, val.A)
		return ir.NewValue(val.Op, dest, instr.DstType, []names.Variable{canon}, nil, nil), nil
	case VBinary:
		canonA := canonicalNameOf(t, val.A)
		canonB := canonicalNameOf(t, val.B)
		return ir.NewValue(val.Op, dest, instr.DstType, []names.Variable{canonA, canonB}, nil, nil), nil
	case VCall:
		args := make([]names.Variable, len(val.Calls))
		for i, r := range val.Calls {
			args[i] = canonicalNameOf(t, r)
		}
		return ir.NewValue(ir.OpCall, dest, instr.DstType, args, instr.Funcs, nil), nil
	default:
		return instr, nil
	}
}

// preRename rewrites instrs so no variable is redefined while still live
// from an earlier read: every definition but the last gets a fresh name,
// and every use after it up to and including the operands of the next
// redefinition is rewritten to match.
func preRename(tbl *names.Table, instrs []ir.Instruction) []ir.Instruction {
	defIdx := map[names.Variable][]int{}
	for i, instr := range instrs {
		if d, ok := instr.Defines(); ok {
			defIdx[d] = append(defIdx[d], i)
		}
	}

	needsRename := false
	for _, idxs := range defIdx {
		if len(idxs) > 1 {
			needsRename = true
			break
		}
	}
	if !needsRename {
		return instrs
	}

	out := make([]ir.Instruction, len(instrs))
	for i, instr := range instrs {
		clone := instr
		if len(instr.Args) > 0 {
			clone.Args = append([]names.Variable(nil), instr.Args...)
		}
		out[i] = clone
	}

	for v, idxs := range defIdx {
		if len(idxs) <= 1 {
			continue
		}
		for k := 0; k < len(idxs)-1; k++ {
			start, end := idxs[k], idxs[k+1]
			fresh := names.Variable(tbl.Fresh(tbl.String(v.Name())))
			out[start].Dest = fresh
			for j := start + 1; j <= end; j++ {
				for a, arg := range out[j].Args {
					if arg == v {
						out[j].Args[a] = fresh
					}
				}
			}
		}
	}
	return out
}

// Run applies local value numbering to every block of cfgFn independently,
// pre-renaming each block first.
func Run(cfgFn *cfg.CFGFunction, tbl *names.Table, funcName string) error {
	for _, n := range cfgFn.Nodes {
		n.Block.Instrs = preRename(tbl, n.Block.Instrs)

		vt := newTable()
		out := make([]ir.Instruction, len(n.Block.Instrs))
		for i, instr := range n.Block.Instrs {
			rewritten, err := rewrite(vt, instr)
			if err != nil {
				label := ""
				if l, ok := n.Label.ExtractLabel(); ok {
					label = tbl.String(l.Name())
				}
				return diag.New(diag.InvalidIR, err.Error()).InFunction(funcName).AtBlock(label)
			}
			out[i] = rewritten
		}
		n.Block.Instrs = out
	}
	return nil
}
