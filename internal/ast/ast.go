// Package ast defines the SPL abstract syntax tree (spec.md §3's AST node
// kinds), built by internal/parser and annotated in place by
// internal/sem. Each expression node embeds ExprBase, whose Type field is
// the "type-slot" spec.md reserves for the semantic phase to fill; it
// starts at symtab.Unset and must be non-Unset once analysis succeeds
// (spec.md §8's first invariant).
//
// Node kinds are modeled as a small interface hierarchy (Decl, TypeExpr,
// Stmt, Var, Expr) rather than spec.md §3's literal tagged-integer arena:
// spec.md §9's Design Notes explicitly sanction this ("a rewrite should
// prefer tagged variants with strongly typed indices... Cycles are not
// required"), and a typed tree is what the teacher's own lang/yparse/ast.go
// and lang/ysem/ir.go build (pointer-linked node structs, not integer
// arenas) once it moved past the bootstrap's own arena style.
package ast

import (
	"github.com/gmofishsauce/splc/internal/symtab"
	"github.com/gmofishsauce/splc/internal/token"
)

// Program is the AST root: the top-level sequence of declarations.
type Program struct {
	Decls []Decl
}

// Decl is a top-level declaration: TypeDecl or ProcDecl.
type Decl interface{ isDecl() }

// TypeExpr is a type-expression: TypeNameRef or ArrayTypeExpr.
type TypeExpr interface {
	isTypeExpr()
	Line() int
}

// Stmt is a statement.
type Stmt interface {
	isStmt()
	Line() int
}

// Var is an lvalue-shaped variable reference: NamedVar or IndexedVar.
type Var interface {
	isVar()
	Line() int
}

// Expr is an expression node; every Expr carries a type-slot filled by
// internal/sem.
type Expr interface {
	isExpr()
	Line() int
	Type() symtab.Index
	SetType(symtab.Index)
}

// ExprBase implements the type-slot machinery shared by every Expr.
type ExprBase struct {
	LineNo   int
	TypeSlot symtab.Index
}

func NewExprBase(line int) ExprBase { return ExprBase{LineNo: line, TypeSlot: symtab.Unset} }

func (e *ExprBase) Line() int              { return e.LineNo }
func (e *ExprBase) Type() symtab.Index     { return e.TypeSlot }
func (e *ExprBase) SetType(t symtab.Index) { e.TypeSlot = t }

// --- Declarations ---

type TypeDecl struct {
	Name     string
	TypeExpr TypeExpr
	LineNo   int
}

func (*TypeDecl) isDecl() {}

type ProcDecl struct {
	Name   string
	Params []*Param
	Locals []*VarDecl
	Body   *StmtList
	LineNo int

	// SymIndex is filled by internal/symbuild's builder to let later phases
	// (allocator, codegen) find this procedure's Entry without a name
	// lookup through the global table on every visit.
	SymIndex symtab.Index
}

func (*ProcDecl) isDecl() {}

type Param struct {
	Name     string
	IsRef    bool
	TypeExpr TypeExpr
	LineNo   int
}

type VarDecl struct {
	Name     string
	TypeExpr TypeExpr
	LineNo   int
}

// --- Type expressions ---

type TypeNameRef struct {
	Name   string
	LineNo int
}

func (*TypeNameRef) isTypeExpr() {}
func (t *TypeNameRef) Line() int { return t.LineNo }

type ArrayTypeExpr struct {
	Elem   TypeExpr
	Count  int64
	LineNo int
}

func (*ArrayTypeExpr) isTypeExpr() {}
func (t *ArrayTypeExpr) Line() int { return t.LineNo }

// --- Statements ---

type StmtList struct {
	Stmts  []Stmt
	LineNo int
}

func (*StmtList) isStmt()   {}
func (s *StmtList) Line() int { return s.LineNo }

type AssignStmt struct {
	LValue *VarExpr
	RValue Expr
	LineNo int
}

func (*AssignStmt) isStmt()   {}
func (s *AssignStmt) Line() int { return s.LineNo }

type IfStmt struct {
	Cond   *Comparison
	Then   Stmt
	Else   Stmt // nil if absent
	LineNo int
}

func (*IfStmt) isStmt()   {}
func (s *IfStmt) Line() int { return s.LineNo }

type WhileStmt struct {
	Cond   *Comparison
	Body   Stmt
	LineNo int
}

func (*WhileStmt) isStmt()   {}
func (s *WhileStmt) Line() int { return s.LineNo }

// CallStmt invokes a procedure. Each argument is either a plain
// expression or, when the matching parameter is by-reference or an
// array, a *VarExpr wrapping an lvalue (spec.md §4.2's call grammar
// accepts any expr here; the narrower by-reference requirement is a
// semantic, not syntactic, constraint checked by internal/sem).
type CallStmt struct {
	Callee string
	Args   []Expr
	LineNo int
}

func (*CallStmt) isStmt()   {}
func (s *CallStmt) Line() int { return s.LineNo }

// Comparison is the condition of an IfStmt/WhileStmt. It is deliberately
// not an Expr: spec.md §3 distinguishes it from arithmetic because SPL
// disallows boolean values anywhere outside control-flow conditions.
type Comparison struct {
	Op     token.Kind
	LHS    Expr
	RHS    Expr
	LineNo int
}

func (c *Comparison) Line() int { return c.LineNo }

// --- Expressions ---

type BinExpr struct {
	ExprBase
	Op  token.Kind
	LHS Expr
	RHS Expr
}

func (*BinExpr) isExpr() {}

type UnaryMinusExpr struct {
	ExprBase
	Operand Expr
}

func (*UnaryMinusExpr) isExpr() {}

type IntLit struct {
	ExprBase
	Value int64
}

func (*IntLit) isExpr() {}

// VarExpr wraps a Var (NamedVar or IndexedVar) as an expression.
type VarExpr struct {
	ExprBase
	V Var
}

func (*VarExpr) isExpr() {}

// --- Variable references ---

type NamedVar struct {
	Name   string
	LineNo int

	// SymIdx is filled by internal/sem with the arena Index of the
	// Variable entry this name resolves to, so internal/alloc and
	// internal/codegen never need to re-run name lookup.
	SymIdx symtab.Index
}

func (*NamedVar) isVar()   {}
func (v *NamedVar) Line() int { return v.LineNo }

// NewNamedVar builds a NamedVar with its type-slot-equivalent SymIdx set
// to the unset sentinel, analogous to NewExprBase for expressions.
func NewNamedVar(name string, line int) *NamedVar {
	return &NamedVar{Name: name, LineNo: line, SymIdx: symtab.Unset}
}

type IndexedVar struct {
	Base   Var
	Index  Expr
	LineNo int
}

func (*IndexedVar) isVar()   {}
func (v *IndexedVar) Line() int { return v.LineNo }
