package ir

import "brilgo/internal/names"

// Parameter is one formal parameter of a Function.
type Parameter struct {
	Name names.Variable
	Type Type
}

// Function is a flat, pre-CFG function body: a header plus an ordered
// instruction stream, exactly as decoded from (or about to be encoded to)
// JSON.
type Function struct {
	Name       names.FuncName
	Params     []Parameter
	ReturnType *Type // nil if the function has no return type
	Instrs     []Instruction
}

// Program is the whole decoded input: its own name table plus every
// function it named.
type Program struct {
	Names     *names.Table
	Functions []*Function
}
