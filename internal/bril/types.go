// Package bril implements the JSON wire codec for the toolkit's program
// format and the glue between it and internal/ir's Program/Function
// types. The wire format's Instr is an untagged union discriminated by
// field presence rather than a tag key — Go has no native untagged-union
// decoding, so Instr below hand-rolls the discrimination Decode/Encode
// agree on.
package bril

import (
	"encoding/json"
	"fmt"
)

// Program is the root JSON document: `{"functions": [Function*]}`.
type Program struct {
	Functions []Function `json:"functions"`
}

// Function is one decoded function header plus its flat instruction
// stream, in wire (string-keyed) form.
type Function struct {
	Name   string  `json:"name"`
	Args   []Param `json:"args,omitempty"`
	Type   *Type   `json:"type,omitempty"`
	Instrs []Instr `json:"instrs"`
}

// Param is one formal parameter.
type Param struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Type is `"int"`, `"bool"`, `"float"`, or `{"ptr": Type}`.
type Type struct {
	Scalar string
	Ptr    *Type
}

func (t Type) MarshalJSON() ([]byte, error) {
	if t.Ptr != nil {
		return json.Marshal(struct {
			Ptr *Type `json:"ptr"`
		}{t.Ptr})
	}
	return json.Marshal(t.Scalar)
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Scalar = s
		return nil
	}
	var obj struct {
		Ptr *Type `json:"ptr"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("bril: invalid type: %w", err)
	}
	if obj.Ptr == nil {
		return fmt.Errorf("bril: type object missing \"ptr\" key")
	}
	t.Ptr = obj.Ptr
	return nil
}

// Instr is one instruction in wire form. Exactly one discrimination holds:
// hasLabel selects Label; hasDest with Op=="const" selects Const; hasDest
// otherwise selects Value; neither selects Effect.
type Instr struct {
	Label  string
	Op     string
	Dest   string
	Type   Type
	Value  json.RawMessage
	Args   []string
	Funcs  []string
	Labels []string

	hasLabel bool
	hasDest  bool
}

func (i Instr) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, 7)
	switch {
	case i.hasLabel:
		m["label"] = i.Label
	case i.hasDest && i.Op == "const":
		m["dest"] = i.Dest
		m["op"] = "const"
		m["type"] = i.Type
		var v interface{}
		if len(i.Value) > 0 {
			if err := json.Unmarshal(i.Value, &v); err != nil {
				return nil, err
			}
		}
		m["value"] = v
	case i.hasDest:
		m["dest"] = i.Dest
		m["op"] = i.Op
		m["type"] = i.Type
		addOptional(m, i.Args, i.Funcs, i.Labels)
	default:
		m["op"] = i.Op
		addOptional(m, i.Args, i.Funcs, i.Labels)
	}
	return json.Marshal(m)
}

func addOptional(m map[string]interface{}, args, funcs, labels []string) {
	if len(args) > 0 {
		m["args"] = args
	}
	if len(funcs) > 0 {
		m["funcs"] = funcs
	}
	if len(labels) > 0 {
		m["labels"] = labels
	}
}

func (i *Instr) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("bril: malformed instruction: %w", err)
	}

	if lbl, ok := raw["label"]; ok {
		var s string
		if err := json.Unmarshal(lbl, &s); err != nil {
			return fmt.Errorf("bril: invalid label: %w", err)
		}
		i.Label = s
		i.hasLabel = true
		return nil
	}

	op, ok := raw["op"]
	if !ok {
		return fmt.Errorf("bril: instruction has neither \"label\" nor \"op\"")
	}
	if err := json.Unmarshal(op, &i.Op); err != nil {
		return fmt.Errorf("bril: invalid op: %w", err)
	}

	if dest, ok := raw["dest"]; ok {
		var s string
		if err := json.Unmarshal(dest, &s); err != nil {
			return fmt.Errorf("bril: invalid dest: %w", err)
		}
		i.Dest = s
		i.hasDest = true
	}
	if typ, ok := raw["type"]; ok {
		if err := json.Unmarshal(typ, &i.Type); err != nil {
			return err
		}
	}
	if val, ok := raw["value"]; ok {
		i.Value = val
	}
	if args, ok := raw["args"]; ok {
		if err := json.Unmarshal(args, &i.Args); err != nil {
			return fmt.Errorf("bril: invalid args: %w", err)
		}
	}
	if funcs, ok := raw["funcs"]; ok {
		if err := json.Unmarshal(funcs, &i.Funcs); err != nil {
			return fmt.Errorf("bril: invalid funcs: %w", err)
		}
	}
	if labels, ok := raw["labels"]; ok {
		if err := json.Unmarshal(labels, &i.Labels); err != nil {
			return fmt.Errorf("bril: invalid labels: %w", err)
		}
	}
	return nil
}
