// Package sem implements spec.md §4.4: the semantic analyzer / type
// resolver. It fills every expression node's type-slot and enforces the
// nominal typing rules, walking the AST the symbol builder (internal/symbuild)
// already annotated with ProcDecl.SymIndex and per-procedure local
// tables.
package sem

import (
	"github.com/gmofishsauce/splc/internal/ast"
	"github.com/gmofishsauce/splc/internal/diag"
	"github.com/gmofishsauce/splc/internal/symtab"
)

// Analyze type-checks every user procedure in prog against arena,
// returning the first violation (spec.md §7: semantic analysis is
// fail-fast).
func Analyze(arena *symtab.Arena, prog *ast.Program) error {
	for _, decl := range prog.Decls {
		pd, ok := decl.(*ast.ProcDecl)
		if !ok {
			continue
		}
		entry := arena.Get(pd.SymIndex)
		table := arena.Tables[entry.LocalTable]
		if err := analyzeStmt(arena, table, pd.Body); err != nil {
			return err
		}
	}
	return nil
}

func analyzeStmt(arena *symtab.Arena, table *symtab.Table, s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.StmtList:
		for _, inner := range st.Stmts {
			if err := analyzeStmt(arena, table, inner); err != nil {
				return err
			}
		}
		return nil

	case *ast.AssignStmt:
		lvType, err := resolveVar(arena, table, st.LValue.V)
		if err != nil {
			return err
		}
		st.LValue.SetType(lvType)
		rvType, err := analyzeExpr(arena, table, st.RValue)
		if err != nil {
			return err
		}
		if !arena.TypesEqual(lvType, rvType) {
			return diag.Semanticf(diag.Line(st.LineNo),
				"type mismatch in assignment: lvalue type %d, rvalue type %d",
				arena.Resolve(lvType), arena.Resolve(rvType))
		}
		if !arena.IsInt(lvType) {
			return diag.Semanticf(diag.Line(st.LineNo), "cannot assign to a non-scalar (array) value")
		}
		return nil

	case *ast.IfStmt:
		if err := analyzeComparison(arena, table, st.Cond); err != nil {
			return err
		}
		if err := analyzeStmt(arena, table, st.Then); err != nil {
			return err
		}
		if st.Else != nil {
			return analyzeStmt(arena, table, st.Else)
		}
		return nil

	case *ast.WhileStmt:
		if err := analyzeComparison(arena, table, st.Cond); err != nil {
			return err
		}
		return analyzeStmt(arena, table, st.Body)

	case *ast.CallStmt:
		return analyzeCall(arena, table, st)

	default:
		return diag.Internalf("sem: unknown statement node %T", s)
	}
}

func analyzeComparison(arena *symtab.Arena, table *symtab.Table, c *ast.Comparison) error {
	lt, err := analyzeExpr(arena, table, c.LHS)
	if err != nil {
		return err
	}
	rt, err := analyzeExpr(arena, table, c.RHS)
	if err != nil {
		return err
	}
	if !arena.IsInt(lt) || !arena.IsInt(rt) {
		return diag.Semanticf(diag.Line(c.LineNo), "comparison operands must be int")
	}
	return nil
}

func analyzeExpr(arena *symtab.Arena, table *symtab.Table, e ast.Expr) (symtab.Index, error) {
	switch ex := e.(type) {
	case *ast.IntLit:
		ex.SetType(symtab.IntIndex)
		return symtab.IntIndex, nil

	case *ast.UnaryMinusExpr:
		t, err := analyzeExpr(arena, table, ex.Operand)
		if err != nil {
			return 0, err
		}
		if !arena.IsInt(t) {
			return 0, diag.Semanticf(diag.Line(ex.LineNo), "operand of unary '-' must be int")
		}
		ex.SetType(symtab.IntIndex)
		return symtab.IntIndex, nil

	case *ast.BinExpr:
		lt, err := analyzeExpr(arena, table, ex.LHS)
		if err != nil {
			return 0, err
		}
		rt, err := analyzeExpr(arena, table, ex.RHS)
		if err != nil {
			return 0, err
		}
		if !arena.IsInt(lt) || !arena.IsInt(rt) {
			return 0, diag.Semanticf(diag.Line(ex.LineNo), "operands of arithmetic operator must be int")
		}
		ex.SetType(symtab.IntIndex)
		return symtab.IntIndex, nil

	case *ast.VarExpr:
		t, err := resolveVar(arena, table, ex.V)
		if err != nil {
			return 0, err
		}
		ex.SetType(t)
		return t, nil

	default:
		return 0, diag.Internalf("sem: unknown expression node %T", e)
	}
}

// resolveVar resolves a Var (NamedVar or IndexedVar) to its type, filling
// NamedVar.SymIdx along the way so later phases never repeat the lookup.
func resolveVar(arena *symtab.Arena, table *symtab.Table, v ast.Var) (symtab.Index, error) {
	switch vv := v.(type) {
	case *ast.NamedVar:
		idx, ok := table.Lookup(vv.Name)
		if !ok {
			// spec.md §4.4: "look up in local table then global table."
			// SPL has no global variables, so this second lookup only
			// ever matches a type or procedure name, which is not a
			// valid variable reference either — but it is attempted for
			// fidelity to the rule as written.
			if gi, gok := arena.Global.Lookup(vv.Name); gok && arena.Get(gi).Kind == symtab.Variable {
				idx, ok = gi, true
			}
		}
		if !ok {
			return 0, diag.Semanticf(diag.Line(vv.LineNo), "undefined variable %q", vv.Name)
		}
		vv.SymIdx = idx
		return arena.Get(idx).VarType, nil

	case *ast.IndexedVar:
		baseType, err := resolveVar(arena, table, vv.Base)
		if err != nil {
			return 0, err
		}
		arr, ok := arena.IsArray(baseType)
		if !ok {
			return 0, diag.Semanticf(diag.Line(vv.LineNo), "cannot index a non-array value")
		}
		idxType, err := analyzeExpr(arena, table, vv.Index)
		if err != nil {
			return 0, err
		}
		if !arena.IsInt(idxType) {
			return 0, diag.Semanticf(diag.Line(vv.LineNo), "array index must be int")
		}
		return arr.ElemType, nil

	default:
		return 0, diag.Internalf("sem: unknown var node %T", v)
	}
}

func analyzeCall(arena *symtab.Arena, table *symtab.Table, st *ast.CallStmt) error {
	procIdx, ok := arena.Global.Lookup(st.Callee)
	if !ok {
		return diag.Semanticf(diag.Line(st.LineNo), "call to undefined procedure %q", st.Callee)
	}
	proc := arena.Get(procIdx)
	if proc.Kind != symtab.Procedure {
		return diag.Semanticf(diag.Line(st.LineNo), "%q is not a procedure", st.Callee)
	}
	if len(st.Args) != len(proc.Params) {
		return diag.Semanticf(diag.Line(st.LineNo),
			"%q expects %d argument(s), got %d", st.Callee, len(proc.Params), len(st.Args))
	}
	for i, arg := range st.Args {
		param := proc.Params[i]
		if param.IsRef {
			if _, isVar := arg.(*ast.VarExpr); !isVar {
				return diag.Semanticf(diag.Line(st.LineNo),
					"argument %d to %q must be a variable (parameter is by reference)", i+1, st.Callee)
			}
		}
		argType, err := analyzeExpr(arena, table, arg)
		if err != nil {
			return err
		}
		if !arena.TypesEqual(argType, param.VarType) {
			return diag.Semanticf(diag.Line(st.LineNo),
				"argument %d to %q has the wrong type", i+1, st.Callee)
		}
	}
	return nil
}
