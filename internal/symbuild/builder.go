// Package symbuild implements spec.md §4.3: the symbol builder that walks
// the AST to populate the global symbol table, a fresh per-procedure
// local table for each ProcDecl, and the symbol-entries arena backing
// both. It runs before internal/sem (which fills in expression type-slots
// and checks the rules that reference these tables).
package symbuild

import (
	"github.com/gmofishsauce/splc/internal/ast"
	"github.com/gmofishsauce/splc/internal/diag"
	"github.com/gmofishsauce/splc/internal/symtab"
)

// builtinSig describes one built-in procedure's fixed signature
// (spec.md §4.3).
type builtinSig struct {
	name  string
	param string // "" for none, "val" for a by-value int, "ref" for a by-ref int
}

var builtins = []builtinSig{
	{"printi", "val"},
	{"printc", "val"},
	{"readi", "ref"},
	{"readc", "ref"},
	{"exit", ""},
	{"time_", "ref"},
}

// Build walks prog and returns the populated arena. Built-in procedures
// are installed first so user code may call them (spec.md §4.3).
func Build(prog *ast.Program) (*symtab.Arena, error) {
	a := symtab.NewArena()

	if err := installBuiltins(a); err != nil {
		return nil, err
	}

	// TypeDecls must be processed in declaration order: named-type
	// lookups only ever see types declared earlier, which is what lets
	// TypeRef targets be flattened eagerly (SPEC_FULL.md's resolution of
	// spec.md §9's first Open Question).
	for _, decl := range prog.Decls {
		if td, ok := decl.(*ast.TypeDecl); ok {
			if err := defineTypeDecl(a, td); err != nil {
				return nil, err
			}
		}
	}

	for _, decl := range prog.Decls {
		if pd, ok := decl.(*ast.ProcDecl); ok {
			if err := defineProcDecl(a, pd); err != nil {
				return nil, err
			}
		}
	}

	return a, nil
}

func installBuiltins(a *symtab.Arena) error {
	for _, b := range builtins {
		var params []symtab.ParamInfo
		switch b.param {
		case "val":
			params = []symtab.ParamInfo{{Name: "v", IsRef: false, Reg: symtab.RDI, VarType: symtab.IntIndex}}
		case "ref":
			params = []symtab.ParamInfo{{Name: "v", IsRef: true, Reg: symtab.RDI, VarType: symtab.IntIndex}}
		}
		idx := a.Add(symtab.Entry{
			Kind:         symtab.Procedure,
			LocalTable:   -1,
			Params:       params,
			IsBuiltin:    true,
			Name:         b.name,
		})
		if !a.Global.Define(b.name, idx) {
			return diag.Internalf("duplicate builtin name %q", b.name)
		}
	}
	return nil
}

// defineTypeDecl installs one `type Name = TypeExpr;` in the global
// table, creating a TypeRef entry whose Target is the fully resolved
// (flattened) terminal type of TypeExpr.
func defineTypeDecl(a *symtab.Arena, td *ast.TypeDecl) error {
	if _, exists := a.Global.Lookup(td.Name); exists {
		return diag.Semanticf(diag.Line(td.LineNo), "redefinition of type %q", td.Name)
	}
	target, err := resolveTypeExpr(a, td.TypeExpr)
	if err != nil {
		return err
	}
	idx := a.Add(symtab.Entry{Kind: symtab.TypeRef, Target: a.Resolve(target)})
	a.Global.Define(td.Name, idx)
	return nil
}

// resolveTypeExpr turns a parsed type-expression into an arena Index.
// Named-type uses resolve by lookup in the global table (forward
// references to a not-yet-declared type are a semantic error, per
// SPEC_FULL.md's decided policy enforcing declaration order). Array type
// expressions always create a fresh ArrayType entry (spec.md §4.3), even
// when structurally identical to one already in the arena, because two
// independently written array aliases are nominally distinct types
// (spec.md §9's resolved Open Question).
func resolveTypeExpr(a *symtab.Arena, te ast.TypeExpr) (symtab.Index, error) {
	switch t := te.(type) {
	case *ast.TypeNameRef:
		idx, ok := a.Global.Lookup(t.Name)
		if !ok {
			return 0, diag.Semanticf(diag.Line(t.LineNo), "unknown type name %q", t.Name)
		}
		return idx, nil
	case *ast.ArrayTypeExpr:
		elem, err := resolveTypeExpr(a, t.Elem)
		if err != nil {
			return 0, err
		}
		elemSize := a.SizeOf(elem)
		idx := a.Add(symtab.Entry{
			Kind:      symtab.ArrayType,
			ElemType:  a.Resolve(elem),
			Count:     t.Count,
			SizeBytes: elemSize * t.Count,
		})
		return idx, nil
	default:
		return 0, diag.Internalf("unknown type-expression node %T", te)
	}
}

// defineProcDecl builds the Procedure entry, its fresh local table,
// parameter register-class assignment, and local-variable entries for
// one ProcDecl. Offsets are left at zero; internal/alloc fills them in.
func defineProcDecl(a *symtab.Arena, pd *ast.ProcDecl) error {
	if _, exists := a.Global.Lookup(pd.Name); exists {
		return diag.Semanticf(diag.Line(pd.LineNo), "redefinition of %q", pd.Name)
	}

	tableIdx, table := a.NewLocalTable()

	params := make([]symtab.ParamInfo, len(pd.Params))
	for i, p := range pd.Params {
		typeIdx, err := resolveTypeExpr(a, p.TypeExpr)
		if err != nil {
			return err
		}
		_, isArray := a.IsArray(typeIdx)
		// Arrays are always passed by reference regardless of the `ref`
		// keyword (spec.md §4.3); every array parameter is, in effect, a
		// reference parameter.
		isRef := p.IsRef || isArray

		reg := symtab.Stack
		if i < len(symtab.ArgRegs) {
			reg = symtab.ArgRegs[i]
		}

		varIdx := a.Add(symtab.Entry{
			Kind:    symtab.Variable,
			VarType: typeIdx,
			IsParam: true,
			IsRef:   isRef,
			Reg:     reg,
		})
		if !table.Define(p.Name, varIdx) {
			return diag.Semanticf(diag.Line(p.LineNo), "duplicate parameter name %q", p.Name)
		}

		params[i] = symtab.ParamInfo{Name: p.Name, IsRef: isRef, Reg: reg, VarType: typeIdx, VarIdx: varIdx}
	}

	locals := make([]symtab.Index, 0, len(pd.Locals))
	for _, v := range pd.Locals {
		typeIdx, err := resolveTypeExpr(a, v.TypeExpr)
		if err != nil {
			return err
		}
		varIdx := a.Add(symtab.Entry{
			Kind:    symtab.Variable,
			VarType: typeIdx,
			IsParam: false,
			IsRef:   false,
			Reg:     symtab.RegNone,
		})
		if !table.Define(v.Name, varIdx) {
			return diag.Semanticf(diag.Line(v.LineNo), "duplicate local variable name %q", v.Name)
		}
		locals = append(locals, varIdx)
	}

	procIdx := a.Add(symtab.Entry{
		Kind:       symtab.Procedure,
		LocalTable: tableIdx,
		Params:     params,
		Locals:     locals,
		Name:       pd.Name,
	})
	a.Global.Define(pd.Name, procIdx)
	pd.SymIndex = procIdx
	return nil
}
