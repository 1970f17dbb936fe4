package bril

import (
	"encoding/json"
	"fmt"
	"io"

	"brilgo/internal/diag"
	"brilgo/internal/ir"
	"brilgo/internal/names"

	"github.com/iancoleman/strcase"
)

// Decode reads one JSON program and builds an ir.Program with a fresh
// names.Table, interning every string identifier it sees exactly once.
// Malformed JSON or an unrecognized opcode surfaces as a diag.ParseError.
func Decode(r io.Reader) (*ir.Program, error) {
	var wp Program
	dec := json.NewDecoder(r)
	if err := dec.Decode(&wp); err != nil {
		return nil, diag.New(diag.ParseError, err.Error())
	}

	tbl := names.New()
	prog := &ir.Program{Names: tbl}
	for _, wf := range wp.Functions {
		fn, err := decodeFunction(tbl, wf)
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

// Encode writes prog back out as pretty-printed JSON, resolving every
// interned name through prog.Names.
func Encode(w io.Writer, prog *ir.Program) error {
	wp := Program{}
	for _, fn := range prog.Functions {
		wp.Functions = append(wp.Functions, encodeFunction(prog.Names, fn))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(wp)
}

func decodeFunction(tbl *names.Table, wf Function) (*ir.Function, error) {
	fn := &ir.Function{Name: names.FuncName(tbl.Intern(wf.Name))}

	for _, p := range wf.Args {
		t, err := p.Type.toIR()
		if err != nil {
			return nil, diag.New(diag.ParseError, err.Error()).InFunction(wf.Name)
		}
		fn.Params = append(fn.Params, ir.Parameter{Name: names.Variable(tbl.Intern(p.Name)), Type: t})
	}

	if wf.Type != nil {
		t, err := wf.Type.toIR()
		if err != nil {
			return nil, diag.New(diag.ParseError, err.Error()).InFunction(wf.Name)
		}
		fn.ReturnType = &t
	}

	for _, wi := range wf.Instrs {
		instr, err := decodeInstr(tbl, wf.Name, wi)
		if err != nil {
			return nil, err
		}
		fn.Instrs = append(fn.Instrs, instr)
	}
	return fn, nil
}

func decodeInstr(tbl *names.Table, funcName string, wi Instr) (ir.Instruction, error) {
	if wi.hasLabel {
		return ir.NewLabel(names.Label(tbl.Intern(wi.Label))), nil
	}

	op, ok := ir.OpByName(wi.Op)
	if !ok {
		return ir.Instruction{}, diag.New(diag.ParseError, suggestOp(wi.Op).Error()).InFunction(funcName)
	}

	args := internVars(tbl, wi.Args)
	funcs := internFuncs(tbl, wi.Funcs)
	labels := internLabels(tbl, wi.Labels)

	if !wi.hasDest {
		return ir.NewEffect(op, args, funcs, labels), nil
	}

	dest := names.Variable(tbl.Intern(wi.Dest))
	t, err := wi.Type.toIR()
	if err != nil {
		return ir.Instruction{}, diag.New(diag.ParseError, err.Error()).InFunction(funcName)
	}

	if op == ir.OpConst {
		lit, err := decodeLiteral(wi.Value, t)
		if err != nil {
			return ir.Instruction{}, diag.New(diag.ParseError, err.Error()).InFunction(funcName)
		}
		return ir.NewConst(dest, t, lit), nil
	}
	return ir.NewValue(op, dest, t, args, funcs, labels), nil
}

func decodeLiteral(raw json.RawMessage, t ir.Type) (ir.Literal, error) {
	switch t.Kind {
	case ir.IntKind:
		var v int64
		if err := json.Unmarshal(raw, &v); err != nil {
			return ir.Literal{}, fmt.Errorf("const value is not an int: %w", err)
		}
		return ir.IntLiteral(v), nil
	case ir.BoolKind:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return ir.Literal{}, fmt.Errorf("const value is not a bool: %w", err)
		}
		return ir.BoolLiteral(v), nil
	case ir.FloatKind:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return ir.Literal{}, fmt.Errorf("const value is not a float: %w", err)
		}
		return ir.FloatLiteral(v), nil
	default:
		return ir.Literal{}, fmt.Errorf("const cannot carry a pointer type")
	}
}

func (t Type) toIR() (ir.Type, error) {
	if t.Ptr != nil {
		elem, err := t.Ptr.toIR()
		if err != nil {
			return ir.Type{}, err
		}
		return ir.PtrType(elem), nil
	}
	switch t.Scalar {
	case "int":
		return ir.IntType(), nil
	case "bool":
		return ir.BoolType(), nil
	case "float":
		return ir.FloatType(), nil
	default:
		return ir.Type{}, fmt.Errorf("unknown type %q", t.Scalar)
	}
}

func typeFromIR(t ir.Type) Type {
	if t.Kind == ir.PtrKind {
		inner := typeFromIR(*t.Elem)
		return Type{Ptr: &inner}
	}
	return Type{Scalar: t.String()}
}

func internVars(tbl *names.Table, ss []string) []names.Variable {
	if len(ss) == 0 {
		return nil
	}
	out := make([]names.Variable, len(ss))
	for i, s := range ss {
		out[i] = names.Variable(tbl.Intern(s))
	}
	return out
}

func internLabels(tbl *names.Table, ss []string) []names.Label {
	if len(ss) == 0 {
		return nil
	}
	out := make([]names.Label, len(ss))
	for i, s := range ss {
		out[i] = names.Label(tbl.Intern(s))
	}
	return out
}

func internFuncs(tbl *names.Table, ss []string) []names.FuncName {
	if len(ss) == 0 {
		return nil
	}
	out := make([]names.FuncName, len(ss))
	for i, s := range ss {
		out[i] = names.FuncName(tbl.Intern(s))
	}
	return out
}

func encodeFunction(tbl *names.Table, fn *ir.Function) Function {
	wf := Function{Name: tbl.String(fn.Name.Name())}
	for _, p := range fn.Params {
		wf.Args = append(wf.Args, Param{Name: tbl.String(p.Name.Name()), Type: typeFromIR(p.Type)})
	}
	if fn.ReturnType != nil {
		t := typeFromIR(*fn.ReturnType)
		wf.Type = &t
	}
	for _, instr := range fn.Instrs {
		wf.Instrs = append(wf.Instrs, encodeInstr(tbl, instr))
	}
	return wf
}

func encodeInstr(tbl *names.Table, instr ir.Instruction) Instr {
	switch instr.Tag {
	case ir.LabelInstr:
		return Instr{hasLabel: true, Label: tbl.String(instr.Label.Name())}
	case ir.ConstInstr:
		val, _ := json.Marshal(literalValue(instr.Value))
		return Instr{
			hasDest: true, Dest: tbl.String(instr.Dest.Name()), Op: "const",
			Type: typeFromIR(instr.DstType), Value: val,
		}
	case ir.ValueInstr:
		return Instr{
			hasDest: true, Dest: tbl.String(instr.Dest.Name()), Op: instr.Op.String(),
			Type: typeFromIR(instr.DstType),
			Args: stringVars(tbl, instr.Args), Funcs: stringFuncs(tbl, instr.Funcs), Labels: stringLabels(tbl, instr.Labels),
		}
	default: // EffectInstr
		return Instr{
			Op:     instr.Op.String(),
			Args:   stringVars(tbl, instr.Args), Funcs: stringFuncs(tbl, instr.Funcs), Labels: stringLabels(tbl, instr.Labels),
		}
	}
}

func literalValue(l ir.Literal) interface{} {
	switch l.Kind {
	case ir.IntLit:
		return l.IntVal
	case ir.BoolLit:
		return l.BoolVal
	default:
		return l.FltVal
	}
}

func stringVars(tbl *names.Table, vs []names.Variable) []string {
	if len(vs) == 0 {
		return nil
	}
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = tbl.String(v.Name())
	}
	return out
}

func stringLabels(tbl *names.Table, ls []names.Label) []string {
	if len(ls) == 0 {
		return nil
	}
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = tbl.String(l.Name())
	}
	return out
}

func stringFuncs(tbl *names.Table, fs []names.FuncName) []string {
	if len(fs) == 0 {
		return nil
	}
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = tbl.String(f.Name())
	}
	return out
}

// suggestOp builds a "did you mean" error for an unrecognized opcode,
// case/format-folding both sides with strcase so "Const" or "CONST" still
// matches "const".
func suggestOp(bad string) error {
	norm := strcase.ToSnake(bad)
	for _, op := range ir.AllOpNames() {
		if strcase.ToSnake(op) == norm {
			return fmt.Errorf("unknown opcode %q (did you mean %q?)", bad, op)
		}
	}
	return fmt.Errorf("unknown opcode %q", bad)
}
