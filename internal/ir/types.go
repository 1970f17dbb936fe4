// Package ir defines the three-address intermediate representation the rest
// of the toolkit operates on: types, literals, opcodes and instructions.
// Everything here is pure data; construction, CFG shape and optimization
// live in the sibling packages (cfg, ssa, lvn, dce, dataflow, analysis).
package ir

import (
	"fmt"

	"brilgo/internal/names"
)

// Type is the type system of the IR: Int, Bool, Float, or a pointer to
// another Type.
type Type struct {
	Kind Kind
	Elem *Type // non-nil iff Kind == PtrKind
}

// Kind enumerates the type variants.
type Kind int

const (
	IntKind Kind = iota
	BoolKind
	FloatKind
	PtrKind
)

func IntType() Type   { return Type{Kind: IntKind} }
func BoolType() Type  { return Type{Kind: BoolKind} }
func FloatType() Type { return Type{Kind: FloatKind} }
func PtrType(elem Type) Type {
	e := elem
	return Type{Kind: PtrKind, Elem: &e}
}

func (t Type) String() string {
	switch t.Kind {
	case IntKind:
		return "int"
	case BoolKind:
		return "bool"
	case FloatKind:
		return "float"
	case PtrKind:
		return fmt.Sprintf("ptr<%s>", t.Elem)
	default:
		return "?"
	}
}

func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind == PtrKind {
		return t.Elem.Equal(*o.Elem)
	}
	return true
}

// Literal is a constant value of exactly one of the three scalar types.
// Arithmetic and comparison operators below are defined only within a
// single Literal variant; mixing variants is a program error (InvalidIR).
type Literal struct {
	Kind    LitKind
	IntVal  int64
	BoolVal bool
	FltVal  float64
}

type LitKind int

const (
	IntLit LitKind = iota
	BoolLit
	FloatLit
)

func IntLiteral(v int64) Literal    { return Literal{Kind: IntLit, IntVal: v} }
func BoolLiteral(v bool) Literal    { return Literal{Kind: BoolLit, BoolVal: v} }
func FloatLiteral(v float64) Literal { return Literal{Kind: FloatLit, FltVal: v} }

func (l Literal) String() string {
	switch l.Kind {
	case IntLit:
		return fmt.Sprintf("%d", l.IntVal)
	case BoolLit:
		return fmt.Sprintf("%t", l.BoolVal)
	case FloatLit:
		return fmt.Sprintf("%g", l.FltVal)
	default:
		return "?"
	}
}

func (l Literal) Type() Type {
	switch l.Kind {
	case IntLit:
		return IntType()
	case BoolLit:
		return BoolType()
	default:
		return FloatType()
	}
}

func (l Literal) Equal(o Literal) bool {
	if l.Kind != o.Kind {
		return false
	}
	switch l.Kind {
	case IntLit:
		return l.IntVal == o.IntVal
	case BoolLit:
		return l.BoolVal == o.BoolVal
	default:
		return l.FltVal == o.FltVal
	}
}

func mustMatch(op string, a, b Literal) {
	if a.Kind != b.Kind {
		panic(fmt.Sprintf("ir: type-mismatched literal arithmetic in %s: %s vs %s", op, a, b))
	}
}

// Add, Sub, Mul, Div, And, Or implement within-type arithmetic/logic.
// Integer overflow wraps per host int64 semantics. Division by zero panics;
// callers in lvn must recover it as an InvalidIR diagnostic.
func (l Literal) Add(o Literal) Literal {
	mustMatch("add", l, o)
	if l.Kind == IntLit {
		return IntLiteral(l.IntVal + o.IntVal)
	}
	return FloatLiteral(l.FltVal + o.FltVal)
}

func (l Literal) Sub(o Literal) Literal {
	mustMatch("sub", l, o)
	if l.Kind == IntLit {
		return IntLiteral(l.IntVal - o.IntVal)
	}
	return FloatLiteral(l.FltVal - o.FltVal)
}

func (l Literal) Mul(o Literal) Literal {
	mustMatch("mul", l, o)
	if l.Kind == IntLit {
		return IntLiteral(l.IntVal * o.IntVal)
	}
	return FloatLiteral(l.FltVal * o.FltVal)
}

// Div panics with ErrDivByZero on division by zero; callers folding
// constants during LVN turn this into a fatal InvalidIR diagnostic.
func (l Literal) Div(o Literal) Literal {
	mustMatch("div", l, o)
	if l.Kind == IntLit {
		if o.IntVal == 0 {
			panic(ErrDivByZero)
		}
		return IntLiteral(l.IntVal / o.IntVal)
	}
	if o.FltVal == 0 {
		panic(ErrDivByZero)
	}
	return FloatLiteral(l.FltVal / o.FltVal)
}

// ErrDivByZero is the sentinel panic value for compile-time division by
// zero during constant folding; see lvn.Run.
var ErrDivByZero = fmt.Errorf("division by zero in constant folding")

func (l Literal) And(o Literal) Literal {
	mustMatch("and", l, o)
	return BoolLiteral(l.BoolVal && o.BoolVal)
}

func (l Literal) Or(o Literal) Literal {
	mustMatch("or", l, o)
	return BoolLiteral(l.BoolVal || o.BoolVal)
}

func (l Literal) Not() Literal {
	if l.Kind != BoolLit {
		panic("ir: Not on non-bool literal")
	}
	return BoolLiteral(!l.BoolVal)
}

// numLess reports a < b (or a <= b when orEqual) for two same-kind numeric
// literals, comparing the float field for floats and the int field otherwise.
func numLess(a, b Literal, orEqual bool) bool {
	if a.Kind == FloatLit {
		return a.FltVal < b.FltVal || (orEqual && a.FltVal == b.FltVal)
	}
	return a.IntVal < b.IntVal || (orEqual && a.IntVal == b.IntVal)
}

func (l Literal) Lt(o Literal) Literal { mustMatch("lt", l, o); return BoolLiteral(numLess(l, o, false)) }
func (l Literal) Gt(o Literal) Literal { mustMatch("gt", l, o); return BoolLiteral(numLess(o, l, false)) }
func (l Literal) Le(o Literal) Literal { mustMatch("le", l, o); return BoolLiteral(numLess(l, o, true)) }
func (l Literal) Ge(o Literal) Literal { mustMatch("ge", l, o); return BoolLiteral(numLess(o, l, true)) }
func (l Literal) Eq(o Literal) Literal { mustMatch("eq", l, o); return BoolLiteral(l.Equal(o)) }

// Op enumerates every opcode the IR supports.
type Op int

const (
	OpConst Op = iota
	// Arithmetic
	OpAdd
	OpMul
	OpSub
	OpDiv
	// Comparison
	OpEq
	OpLt
	OpGt
	OpLe
	OpGe
	// Logic
	OpNot
	OpAnd
	OpOr
	// Control
	OpJmp
	OpBr
	OpCall
	OpRet
	// Misc
	OpId
	OpPrint
	OpNop
	// Memory extension
	OpAlloc
	OpFree
	OpStore
	OpLoad
	OpPtrAdd
	// Float variants
	OpFAdd
	OpFMul
	OpFSub
	OpFDiv
	OpFEq
	OpFLt
	OpFLe
	OpFGt
	OpFGe
	// SSA
	OpPhi
)

var opNames = map[Op]string{
	OpConst: "const", OpAdd: "add", OpMul: "mul", OpSub: "sub", OpDiv: "div",
	OpEq: "eq", OpLt: "lt", OpGt: "gt", OpLe: "le", OpGe: "ge",
	OpNot: "not", OpAnd: "and", OpOr: "or",
	OpJmp: "jmp", OpBr: "br", OpCall: "call", OpRet: "ret",
	OpId: "id", OpPrint: "print", OpNop: "nop",
	OpAlloc: "alloc", OpFree: "free", OpStore: "store", OpLoad: "load", OpPtrAdd: "ptradd",
	OpFAdd: "fadd", OpFMul: "fmul", OpFSub: "fsub", OpFDiv: "fdiv",
	OpFEq: "feq", OpFLt: "flt", OpFLe: "fle", OpFGt: "fgt", OpFGe: "fge",
	OpPhi: "phi",
}

var opByName = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for op, s := range opNames {
		m[s] = op
	}
	return m
}()

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// AllOpNames returns every wire-format opcode spelling, for building
// "did you mean" suggestions on an unrecognized opcode.
func AllOpNames() []string {
	out := make([]string, 0, len(opNames))
	for _, s := range opNames {
		out = append(out, s)
	}
	return out
}

// OpByName looks up an Op by its wire-format string, returning ok=false for
// an unrecognized opcode (ParseError at the caller).
func OpByName(s string) (Op, bool) {
	op, ok := opByName[s]
	return op, ok
}

// IsTerminator reports whether op ends a basic block.
func (op Op) IsTerminator() bool {
	return op == OpJmp || op == OpBr || op == OpRet
}

// IsCommutative reports whether op's two operands may be swapped without
// changing its result, used by LVN canonicalization.
func (op Op) IsCommutative() bool {
	switch op {
	case OpAdd, OpMul, OpEq, OpAnd, OpOr, OpFAdd, OpFMul, OpFEq:
		return true
	default:
		return false
	}
}

// Instruction is the tagged union of the four instruction shapes. Exactly
// one of the Tag-selected field groups is meaningful; the rest are zero.
type Instruction struct {
	Tag InstrTag

	// Label
	Label names.Label

	// Const
	Dest    names.Variable
	DstType Type
	Value   Literal

	// Value / Effect
	Op     Op
	Args   []names.Variable
	Funcs  []names.FuncName
	Labels []names.Label
}

type InstrTag int

const (
	LabelInstr InstrTag = iota
	ConstInstr
	ValueInstr
	EffectInstr
)

func NewLabel(l names.Label) Instruction {
	return Instruction{Tag: LabelInstr, Label: l}
}

func NewConst(dest names.Variable, t Type, v Literal) Instruction {
	return Instruction{Tag: ConstInstr, Dest: dest, DstType: t, Value: v, Op: OpConst}
}

func NewValue(op Op, dest names.Variable, t Type, args []names.Variable, funcs []names.FuncName, labels []names.Label) Instruction {
	return Instruction{Tag: ValueInstr, Op: op, Dest: dest, DstType: t, Args: args, Funcs: funcs, Labels: labels}
}

func NewEffect(op Op, args []names.Variable, funcs []names.FuncName, labels []names.Label) Instruction {
	return Instruction{Tag: EffectInstr, Op: op, Args: args, Funcs: funcs, Labels: labels}
}

// IsLabel reports whether the instruction is a Label.
func (i Instruction) IsLabel() bool { return i.Tag == LabelInstr }

// IsTerminator reports whether the instruction ends a basic block: a Label
// always terminates the *previous* block's extent in the partitioning
// algorithm (see cfg.Partition), and Value/Effect instructions terminate
// when their Op does.
func (i Instruction) IsTerminator() bool {
	switch i.Tag {
	case LabelInstr:
		return true
	case ConstInstr:
		return false
	default:
		return i.Op.IsTerminator()
	}
}

// ExtractLabel returns the carried label and ok=true iff the instruction is
// a Label.
func (i Instruction) ExtractLabel() (names.Label, bool) {
	if i.Tag == LabelInstr {
		return i.Label, true
	}
	return names.Label{}, false
}

// Defines reports the variable defined by this instruction, if any.
func (i Instruction) Defines() (names.Variable, bool) {
	switch i.Tag {
	case ConstInstr, ValueInstr:
		return i.Dest, true
	default:
		return names.Variable{}, false
	}
}

func (i Instruction) String() string {
	switch i.Tag {
	case LabelInstr:
		return fmt.Sprintf(".%v:", i.Label)
	case ConstInstr:
		return fmt.Sprintf("%v: %s = const %s", i.Dest, i.DstType, i.Value)
	case ValueInstr:
		s := fmt.Sprintf("%v: %s = %s", i.Dest, i.DstType, i.Op)
		for _, f := range i.Funcs {
			s += fmt.Sprintf(" %v", f)
		}
		for _, a := range i.Args {
			s += fmt.Sprintf(" %v", a)
		}
		for _, l := range i.Labels {
			s += fmt.Sprintf(" .%v", l)
		}
		return s
	default:
		s := i.Op.String()
		for _, f := range i.Funcs {
			s += fmt.Sprintf(" %v", f)
		}
		for _, a := range i.Args {
			s += fmt.Sprintf(" %v", a)
		}
		for _, l := range i.Labels {
			s += fmt.Sprintf(" .%v", l)
		}
		return s
	}
}
