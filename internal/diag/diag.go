// Package diag implements the toolkit's fatal-diagnostic type. Every
// violation of a graph invariant (missing label, double phi definition,
// unknown variable during rename, malformed JSON, division by zero during
// folding) surfaces as a *Fatal carrying enough context — function, block
// label, variable — to name the offender.
//
// The builder accumulates function/block/variable context via chained
// With*-style methods rather than source position (line/column): this IR
// has no source text, only graph structure, to report a location in.
package diag

import "fmt"

// Kind classifies a Fatal's cause.
type Kind int

const (
	ParseError Kind = iota
	UnresolvedLabel
	InvalidIR
	UnknownVariable
	IOError
)

func (k Kind) String() string {
	switch k {
	case ParseError:
		return "ParseError"
	case UnresolvedLabel:
		return "UnresolvedLabel"
	case InvalidIR:
		return "InvalidIR"
	case UnknownVariable:
		return "UnknownVariable"
	case IOError:
		return "IOError"
	default:
		return "UnknownError"
	}
}

// Fatal is a single fatal diagnostic. All fields besides Kind and Message
// are optional context, filled in by whichever builder method applies.
type Fatal struct {
	Kind     Kind
	Message  string
	Function string
	Block    string
	Variable string
	hasBlock bool
	hasVar   bool
	hasFunc  bool
}

// New starts a diagnostic of the given kind with a plain message.
func New(kind Kind, message string) *Fatal {
	return &Fatal{Kind: kind, Message: message}
}

// InFunction records which function the error occurred in.
func (f *Fatal) InFunction(name string) *Fatal {
	f.Function = name
	f.hasFunc = true
	return f
}

// AtBlock records the block label the error occurred in.
func (f *Fatal) AtBlock(label string) *Fatal {
	f.Block = label
	f.hasBlock = true
	return f
}

// WithVariable records the offending variable or label name.
func (f *Fatal) WithVariable(name string) *Fatal {
	f.Variable = name
	f.hasVar = true
	return f
}

func (f *Fatal) Error() string {
	s := fmt.Sprintf("%s: %s", f.Kind, f.Message)
	if f.hasFunc {
		s += fmt.Sprintf(" (function %s)", f.Function)
	}
	if f.hasBlock {
		s += fmt.Sprintf(" (block %s)", f.Block)
	}
	if f.hasVar {
		s += fmt.Sprintf(" (variable %s)", f.Variable)
	}
	return s
}
