// Package names implements the interned-identifier table shared by the IR,
// the CFG builder, and SSA construction. A Table is a bidirectional
// string<->integer map: the same string always maps to the same Name, and a
// Name always maps back to the string it was interned from.
//
// Unlike the toolkit this is adapted from, the table is never a package
// global. Every caller that needs to mint or resolve names is handed a
// *Table explicitly, so tests can run in parallel against independent
// tables and a Program's names never leak into another Program's.
package names

import (
	"fmt"
	"strconv"

	"github.com/sasha-s/go-deadlock"
)

// Name is a stable interned identifier. Equality is defined on the
// underlying integer; two Names are equal iff they were interned from the
// same string in the same Table.
type Name struct {
	id uint64
}

// Variable, Label and FuncName tag a Name with its role. They are distinct
// Go types so the compiler rejects accidentally mixing a label where a
// variable is expected.
type (
	Variable Name
	Label    Name
	FuncName Name
)

func (v Variable) Name() Name { return Name(v) }
func (l Label) Name() Name    { return Name(l) }
func (f FuncName) Name() Name { return Name(f) }

// String is a debug-only representation (the raw interned id); callers
// that need the original text must go through a Table.
func (n Name) String() string     { return fmt.Sprintf("#%d", n.id) }
func (v Variable) String() string { return Name(v).String() }
func (l Label) String() string    { return Name(l).String() }
func (f FuncName) String() string { return Name(f).String() }

// Table is the process-wide (or per-Program) interning table. Zero value is
// not usable; construct with New.
type Table struct {
	mu       deadlock.Mutex
	strToID  map[string]uint64
	idToStr  []string
	nextSeen map[string]int // base -> smallest unused suffix, for Fresh
}

// New returns an empty interning table.
func New() *Table {
	return &Table{
		strToID:  make(map[string]uint64),
		idToStr:  nil,
		nextSeen: make(map[string]int),
	}
}

// Intern returns the Name for s, assigning a fresh id on first sight.
func (t *Table) Intern(s string) Name {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.internLocked(s)
}

func (t *Table) internLocked(s string) Name {
	if id, ok := t.strToID[s]; ok {
		return Name{id}
	}
	id := uint64(len(t.idToStr))
	t.strToID[s] = id
	t.idToStr = append(t.idToStr, s)
	return Name{id}
}

// String returns the interned string for n. Infallible for any Name this
// Table produced; panics (programmer error) otherwise.
func (t *Table) String(n Name) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n.id >= uint64(len(t.idToStr)) {
		panic(fmt.Sprintf("names: Name %d was never interned in this table", n.id))
	}
	return t.idToStr[n.id]
}

// Fresh mints a new Name whose string form is "<base>_<k>" for the smallest
// positive integer k not already interned.
func (t *Table) Fresh(base string) Name {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := t.nextSeen[base]
	if k == 0 {
		k = 1
	}
	for {
		candidate := base + "_" + strconv.Itoa(k)
		if _, taken := t.strToID[candidate]; !taken {
			t.nextSeen[base] = k + 1
			return t.internLocked(candidate)
		}
		k++
	}
}
