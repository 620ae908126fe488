// Package symtab implements spec.md §3's symbol-entries arena and symbol
// tables; §4.3's symbol builder that populates them from the AST lives in
// internal/symbuild.
//
// The arena is a slice of Entry values addressed by the strongly typed
// Index handle (spec.md §9 Design Notes: "a rewrite should prefer tagged
// variants with strongly typed indices"). Tables are plain Go maps from
// identifier to Index, one global table plus one per user procedure,
// matching the teacher's lang/yparse symbol-table shape (map-based scopes)
// generalized to SPL's two-level (global/local) nesting.
package symtab

import "github.com/samber/lo"

// Index addresses one Entry in the arena. Unset is the sentinel written
// into AST type-slots before semantic analysis fills them in.
type Index int

const Unset Index = -1

// RegClass is the System V AMD64 register class a parameter is assigned
// to, in declaration order: the first six parameters get the six integer
// argument registers, the rest are passed on the stack (spec.md §4.3).
type RegClass int

const (
	RegNone RegClass = iota
	RDI
	RSI
	RDX
	RCX
	R8
	R9
	Stack
)

// ArgRegs is the ABI-mandated register assignment order for the first six
// integer/pointer arguments.
var ArgRegs = [6]RegClass{RDI, RSI, RDX, RCX, R8, R9}

// EntryKind is the closed set of symbol-entry kinds (spec.md §3).
type EntryKind int

const (
	InvalidEntry EntryKind = iota
	PrimitiveType           // only `int`
	ArrayType
	TypeRef // transparent alias
	Variable
	Procedure
)

// Entry is one symbol-entries arena record. Only the fields relevant to
// Kind are meaningful; this mirrors spec.md §3's tagged-record layout
// while using a Go struct instead of a flat integer arena (sanctioned by
// spec.md §3: "a valid implementation" either way; bit-identical bootstrap
// output is not a goal here).
type Entry struct {
	Kind EntryKind

	// ArrayType
	ElemType Index
	Count    int64
	SizeBytes int64

	// TypeRef — Target is the *fully resolved* (flattened) terminal type,
	// not merely the next link in the chain. Flattening at build time is
	// the Open-Question resolution SPEC_FULL.md documents: declaration
	// order guarantees the target is already resolved when the alias is
	// built, so eager flattening is safe and gives O(1) comparison.
	Target Index

	// Variable
	VarType    Index
	Offset     int64 // filled by the allocator; see internal/alloc
	IsParam    bool
	IsRef      bool
	Reg        RegClass

	// Procedure
	LocalTable   int // index into Tables, or -1 for built-ins
	Params       []ParamInfo
	Locals       []Index // local Variable entries, in declaration order
	LocalArea    int64   // filled by allocator
	ArgArea      int64   // register-spill area; filled by allocator
	OutgoingArea int64   // filled by allocator
	FrameSize    int64   // local+arg+outgoing, rounded to 16; filled by allocator
	IsBuiltin    bool
	Name         string
}

// ParamInfo is one formal parameter of a Procedure entry.
type ParamInfo struct {
	Name    string
	IsRef   bool
	Reg     RegClass
	Offset  int64 // filled by allocator
	VarType Index
	VarIdx  Index // the Variable entry symbuild created for this parameter
}

// Table is an open scope: a name-to-Index map. The table held by Arena as
// Global is the program's global scope; every user procedure gets one
// fresh Table in Arena.Tables for its parameters and locals.
type Table struct {
	entries map[string]Index
}

func newTable() *Table {
	return &Table{entries: make(map[string]Index)}
}

// Define binds name to idx in the table. It returns false without
// mutating the table if name is already bound (redeclaration).
func (t *Table) Define(name string, idx Index) bool {
	if _, exists := t.entries[name]; exists {
		return false
	}
	t.entries[name] = idx
	return true
}

// Lookup returns the bound Index and true, or (0, false) if unbound.
func (t *Table) Lookup(name string) (Index, bool) {
	idx, ok := t.entries[name]
	return idx, ok
}

// Names returns the table's bound identifiers, for diagnostics and dumps.
func (t *Table) Names() []string {
	return lo.Keys(t.entries)
}

// Arena owns every Entry and every Table created during compilation.
// The global table is the separate Global field; Tables holds only the
// per-procedure local tables, so Tables[0] is the first procedure's table.
type Arena struct {
	Entries []Entry
	Global  *Table
	Tables  []*Table // per-procedure local tables, index matches Entry.LocalTable
}

// IntIndex is the arena slot reserved for the sole primitive type `int`.
// NewArena always creates it first, so it is always index 0.
const IntIndex Index = 0

// NewArena creates an arena pre-seeded with the primitive `int` type
// (spec.md §4.3: "Global table contains only: primitive int, built-in
// procedures, user TypeDecls, user ProcDecls").
func NewArena() *Arena {
	a := &Arena{Global: newTable()}
	idx := a.Add(Entry{Kind: PrimitiveType})
	if idx != IntIndex {
		panic("symtab: int must be the first arena entry")
	}
	a.Global.Define("int", IntIndex)
	return a
}

// Add appends e to the arena and returns its fresh Index.
func (a *Arena) Add(e Entry) Index {
	a.Entries = append(a.Entries, e)
	return Index(len(a.Entries) - 1)
}

// Get returns the entry at idx. Callers only ever hold indices the arena
// itself produced, so an out-of-range idx is an internal error; Get panics
// in that case rather than returning a zero value that would mask it.
func (a *Arena) Get(idx Index) *Entry {
	return &a.Entries[idx]
}

// NewLocalTable allocates a fresh per-procedure table and returns its
// index into a.Tables (stored as Procedure.LocalTable).
func (a *Arena) NewLocalTable() (int, *Table) {
	t := newTable()
	a.Tables = append(a.Tables, t)
	return len(a.Tables) - 1, t
}

// Resolve follows e, a possibly-TypeRef index, to its non-TypeRef
// terminal entry's Index. Because TypeRef targets are eagerly flattened
// at build time (see Entry.Target's doc comment), this never chases more
// than one link, but it is written as a loop so it stays correct even if
// that invariant is ever relaxed — and so it matches spec.md §4.4's
// resolve(idx) contract directly: "transitively follows TypeRef chains
// until reaching a non-TypeRef."
func (a *Arena) Resolve(idx Index) Index {
	for {
		e := a.Get(idx)
		if e.Kind != TypeRef {
			return idx
		}
		idx = e.Target
	}
}

// TypesEqual reports nominal type equality after resolution: two types
// are equal only if resolution reaches the same arena slot. Aliases of
// the same primitive share one PrimitiveType entry, so they compare
// equal; aliases of distinct ArrayType declarations do not, even when
// structurally identical (spec.md §9's resolved Open Question).
func (a *Arena) TypesEqual(x, y Index) bool {
	return a.Resolve(x) == a.Resolve(y)
}

// IsInt reports whether idx resolves to the primitive int type.
func (a *Arena) IsInt(idx Index) bool {
	return a.Get(a.Resolve(idx)).Kind == PrimitiveType
}

// IsArray reports whether idx resolves to an ArrayType, returning that
// entry for convenience.
func (a *Arena) IsArray(idx Index) (*Entry, bool) {
	r := a.Get(a.Resolve(idx))
	if r.Kind == ArrayType {
		return r, true
	}
	return nil, false
}

// IntSize is the width in bytes of SPL's sole scalar type; spec.md §4.6
// fixes array element size at 8 for "array of int", and frame slots are
// likewise 8-byte units (spec.md §4.5).
const IntSize = 8

// SizeOf returns the size in bytes of the resolved type at idx.
func (a *Arena) SizeOf(idx Index) int64 {
	e := a.Get(a.Resolve(idx))
	switch e.Kind {
	case PrimitiveType:
		return IntSize
	case ArrayType:
		return e.SizeBytes
	default:
		return 0
	}
}
