// Package textfmt implements a minimal human-readable dump of a decoded
// program, used only by `brilgo transform -dump-text` for debugging. JSON
// remains the sole program interchange format; this format gives the
// toolkit a from-text inspection path the CLI otherwise lacks. Grammar
// defined via participle struct tags (github.com/alecthomas/participle/v2).
package textfmt

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer tokenizes the dump format: bare identifiers, numbers, and the
// handful of punctuation marks the grammar below needs.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Number", Pattern: `-?[0-9]+(\.[0-9]+)?`},
	{Name: "Punct", Pattern: `[@.:(){}=,;]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

// Program is the parsed form of a text dump: one entry per function.
type Program struct {
	Functions []*Function `@@*`
}

// Function is `@name(arg: type, ...): rettype { line* }`.
type Function struct {
	Name    string   `"@" @Ident`
	Params  []*Param `"(" [ @@ { "," @@ } ] ")"`
	RetType *string  `[ ":" @Ident ]`
	Lines   []*Line  `"{" @@* "}"`
}

// Param is `name: type`.
type Param struct {
	Name string `@Ident ":"`
	Type string `@Ident`
}

// Line is either a label (`.name:`) or an instruction terminated by `;`.
type Line struct {
	Label *string `  "." @Ident ":"`
	Instr *Instr  `| @@ ";"`
}

// Instr is `[dest: type =] op operand*`.
type Instr struct {
	Dest string     `( @Ident ":" Ident "=" )?`
	Op   string     `@Ident`
	Args []*Operand `@@*`
}

// Operand is a variable, a function reference (`@name`), a label
// reference (`.name`), or a numeric/boolean literal.
type Operand struct {
	Func  *string `  "@" @Ident`
	Label *string `| "." @Ident`
	Var   *string `| @Ident`
	Num   *string `| @Number`
}

var parser = participle.MustBuild[Program](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace"),
)

// Parse parses a text dump back into its grammar AST. This is a structural
// round-trip check, not a reconstruction of ir.Program: Instr matches the
// declared type after a destination but does not capture it, so the AST
// carries no types and this is not a second production input format.
func Parse(src string) (*Program, error) {
	return parser.ParseString("", src)
}

