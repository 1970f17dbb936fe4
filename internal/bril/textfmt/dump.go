package textfmt

import (
	"fmt"
	"io"
	"strings"

	"brilgo/internal/ir"
	"brilgo/internal/names"
)

// Dump writes prog as the text format this package's grammar parses,
// resolving every interned name through tbl. Pointer types (ptr<...>) and
// floats printed in exponent form are written as-is but fall outside the
// lexer, so Parse rejects a dump that contains them.
func Dump(w io.Writer, tbl *names.Table, prog *ir.Program) error {
	for _, fn := range prog.Functions {
		if err := dumpFunction(w, tbl, fn); err != nil {
			return err
		}
	}
	return nil
}

func dumpFunction(w io.Writer, tbl *names.Table, fn *ir.Function) error {
	var params []string
	for _, p := range fn.Params {
		params = append(params, fmt.Sprintf("%s: %s", tbl.String(p.Name.Name()), p.Type))
	}
	ret := ""
	if fn.ReturnType != nil {
		ret = fmt.Sprintf(": %s", fn.ReturnType)
	}
	if _, err := fmt.Fprintf(w, "@%s(%s)%s {\n", tbl.String(fn.Name.Name()), strings.Join(params, ", "), ret); err != nil {
		return err
	}
	for _, instr := range fn.Instrs {
		if _, err := fmt.Fprintln(w, dumpInstr(tbl, instr)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

func dumpInstr(tbl *names.Table, instr ir.Instruction) string {
	switch instr.Tag {
	case ir.LabelInstr:
		return fmt.Sprintf(".%s:", tbl.String(instr.Label.Name()))
	case ir.ConstInstr:
		return fmt.Sprintf("  %s: %s = const %s;", tbl.String(instr.Dest.Name()), instr.DstType, instr.Value)
	case ir.ValueInstr:
		return fmt.Sprintf("  %s: %s = %s%s;", tbl.String(instr.Dest.Name()), instr.DstType, instr.Op, dumpOperands(tbl, instr))
	default:
		return fmt.Sprintf("  %s%s;", instr.Op, dumpOperands(tbl, instr))
	}
}

func dumpOperands(tbl *names.Table, instr ir.Instruction) string {
	var b strings.Builder
	for _, a := range instr.Args {
		b.WriteString(" " + tbl.String(a.Name()))
	}
	for _, f := range instr.Funcs {
		b.WriteString(" @" + tbl.String(f.Name()))
	}
	for _, l := range instr.Labels {
		b.WriteString(" ." + tbl.String(l.Name()))
	}
	return b.String()
}
