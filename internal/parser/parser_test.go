package parser

import (
	"strings"
	"testing"

	"github.com/gmofishsauce/splc/internal/ast"
	"github.com/gmofishsauce/splc/internal/lexer"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks, err := lexer.New(strings.NewReader(src)).Lex()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return prog
}

func TestParseTypeDecl(t *testing.T) {
	prog := mustParse(t, "type Vec = array[4] of int;\nproc main() {}\n")
	td, ok := prog.Decls[0].(*ast.TypeDecl)
	if !ok {
		t.Fatalf("Decls[0] = %T, want *ast.TypeDecl", prog.Decls[0])
	}
	if td.Name != "Vec" {
		t.Errorf("Name = %q, want Vec", td.Name)
	}
	arr, ok := td.TypeExpr.(*ast.ArrayTypeExpr)
	if !ok {
		t.Fatalf("TypeExpr = %T, want *ast.ArrayTypeExpr", td.TypeExpr)
	}
	if arr.Count != 4 {
		t.Errorf("Count = %d, want 4", arr.Count)
	}
}

func TestParseProcDeclShape(t *testing.T) {
	src := `
proc add(ref acc: int, delta: int) {
	var tmp: int;
	tmp := acc + delta;
	acc := tmp;
}
`
	prog := mustParse(t, src)
	pd, ok := prog.Decls[0].(*ast.ProcDecl)
	if !ok {
		t.Fatalf("Decls[0] = %T, want *ast.ProcDecl", prog.Decls[0])
	}
	if pd.Name != "add" {
		t.Errorf("Name = %q, want add", pd.Name)
	}
	if len(pd.Params) != 2 {
		t.Fatalf("len(Params) = %d, want 2", len(pd.Params))
	}
	if !pd.Params[0].IsRef {
		t.Error("Params[0].IsRef = false, want true")
	}
	if pd.Params[1].IsRef {
		t.Error("Params[1].IsRef = true, want false")
	}
	if len(pd.Locals) != 1 || pd.Locals[0].Name != "tmp" {
		t.Fatalf("Locals = %+v, want one local named tmp", pd.Locals)
	}
	if len(pd.Body.Stmts) != 2 {
		t.Fatalf("len(Body.Stmts) = %d, want 2", len(pd.Body.Stmts))
	}
}

func TestParseIfElseAndWhile(t *testing.T) {
	src := `
proc main() {
	var i: int;
	if (i < 10) {
		i := i + 1;
	} else {
		i := 0;
	}
	while (i # 0) {
		i := i - 1;
	}
}
`
	prog := mustParse(t, src)
	pd := prog.Decls[0].(*ast.ProcDecl)
	if len(pd.Body.Stmts) != 2 {
		t.Fatalf("len(Stmts) = %d, want 2", len(pd.Body.Stmts))
	}
	ifStmt, ok := pd.Body.Stmts[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("Stmts[0] = %T, want *ast.IfStmt", pd.Body.Stmts[0])
	}
	if ifStmt.Else == nil {
		t.Error("Else is nil, want a block")
	}
	if _, ok := pd.Body.Stmts[1].(*ast.WhileStmt); !ok {
		t.Fatalf("Stmts[1] = %T, want *ast.WhileStmt", pd.Body.Stmts[1])
	}
}

func TestParseCallAndIndexing(t *testing.T) {
	src := `
proc main() {
	var a: int;
	printi(a);
	a := a[0];
}
`
	toks, err := lexer.New(strings.NewReader(src)).Lex()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	pd := prog.Decls[0].(*ast.ProcDecl)
	call, ok := pd.Body.Stmts[0].(*ast.CallStmt)
	if !ok {
		t.Fatalf("Stmts[0] = %T, want *ast.CallStmt", pd.Body.Stmts[0])
	}
	if call.Callee != "printi" || len(call.Args) != 1 {
		t.Errorf("call = %+v, want printi/1 arg", call)
	}
	assign := pd.Body.Stmts[1].(*ast.AssignStmt)
	ve, ok := assign.RValue.(*ast.VarExpr)
	if !ok {
		t.Fatalf("RValue = %T, want *ast.VarExpr", assign.RValue)
	}
	if _, ok := ve.V.(*ast.IndexedVar); !ok {
		t.Fatalf("RValue.V = %T, want *ast.IndexedVar", ve.V)
	}
}

func TestParsePrecedence(t *testing.T) {
	// 2 + 3 * 4 must parse as 2 + (3 * 4): the outer node is '+'.
	prog := mustParse(t, "proc main() { var x: int; x := 2 + 3 * 4; }")
	pd := prog.Decls[0].(*ast.ProcDecl)
	assign := pd.Body.Stmts[0].(*ast.AssignStmt)
	bin, ok := assign.RValue.(*ast.BinExpr)
	if !ok {
		t.Fatalf("RValue = %T, want *ast.BinExpr", assign.RValue)
	}
	if bin.Op.String() != "+" {
		t.Errorf("outer op = %s, want +", bin.Op)
	}
	if _, ok := bin.RHS.(*ast.BinExpr); !ok {
		t.Fatalf("RHS = %T, want *ast.BinExpr (3 * 4)", bin.RHS)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing_semicolon", "proc main() { var x: int x := 1; }"},
		{"missing_paren", "proc main( {}"},
		{"bad_top_level", "var x: int;"},
		{"empty_array_length", "type T = array[0] of int;\nproc main() {}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := lexer.New(strings.NewReader(tt.src)).Lex()
			if err != nil {
				return // a lex error also satisfies "this source is rejected"
			}
			if _, err := Parse(toks); err == nil {
				t.Errorf("Parse(%q) succeeded, want a syntax error", tt.src)
			}
		})
	}
}
