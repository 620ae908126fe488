package sem

import (
	"strings"
	"testing"

	"github.com/gmofishsauce/splc/internal/ast"
	"github.com/gmofishsauce/splc/internal/lexer"
	"github.com/gmofishsauce/splc/internal/parser"
	"github.com/gmofishsauce/splc/internal/symbuild"
	"github.com/gmofishsauce/splc/internal/symtab"
)

func build(t *testing.T, src string) (*symtab.Arena, *ast.Program) {
	t.Helper()
	toks, err := lexer.New(strings.NewReader(src)).Lex()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	arena, err := symbuild.Build(prog)
	if err != nil {
		t.Fatalf("symbuild error: %v", err)
	}
	return arena, prog
}

func TestAnalyzeAcceptsValidProgram(t *testing.T) {
	src := `
type Vec = array[4] of int;
proc sum(v: Vec, ref total: int) {
	var i: int;
	total := 0;
	while (i < 4) {
		total := total + v[i];
		i := i + 1;
	}
}
proc main() {
	var v: Vec;
	var t: int;
	sum(v, t);
	printi(t);
}
`
	arena, prog := build(t, src)
	if err := Analyze(arena, prog); err != nil {
		t.Fatalf("Analyze returned error on a valid program: %v", err)
	}
}

func TestAnalyzeAcceptsPrimitiveAliasAssignment(t *testing.T) {
	// spec.md §8 scenario #5: two distinct int aliases assigned together
	// is accepted by this compiler's resolved reading of §9 — primitive
	// aliases resolve through to the same underlying int type.
	src := "type T1 = int;\ntype T2 = int;\nproc main() { var a: T1; var b: T2; a := b; }"
	arena, prog := build(t, src)
	if err := Analyze(arena, prog); err != nil {
		t.Fatalf("Analyze rejected primitive-alias assignment: %v", err)
	}
}

func TestAnalyzeRejectsArrayAliasMismatch(t *testing.T) {
	src := `
type A = array[4] of int;
type B = array[4] of int;
proc main() {
	var a: A;
	var b: B;
	a := b;
}
`
	arena, prog := build(t, src)
	if err := Analyze(arena, prog); err == nil {
		t.Fatal("Analyze accepted assignment between distinct array aliases, want a type error")
	}
}

func TestAnalyzeRejectsUndefinedVariable(t *testing.T) {
	arena, prog := build(t, "proc main() { x := 1; }")
	if err := Analyze(arena, prog); err == nil {
		t.Fatal("Analyze accepted an undefined variable, want an error")
	}
}

func TestAnalyzeRejectsIndexingScalar(t *testing.T) {
	arena, prog := build(t, "proc main() { var x: int; var y: int; y := x[0]; }")
	if err := Analyze(arena, prog); err == nil {
		t.Fatal("Analyze accepted indexing a scalar, want an error")
	}
}

func TestAnalyzeRejectsArityMismatch(t *testing.T) {
	arena, prog := build(t, "proc p(a: int) {}\nproc main() { p(); }")
	if err := Analyze(arena, prog); err == nil {
		t.Fatal("Analyze accepted a call with the wrong arity, want an error")
	}
}

func TestAnalyzeRejectsNonVarRefArgument(t *testing.T) {
	arena, prog := build(t, "proc p(ref a: int) {}\nproc main() { p(1 + 1); }")
	if err := Analyze(arena, prog); err == nil {
		t.Fatal("Analyze accepted a non-variable argument for a ref parameter, want an error")
	}
}

func TestAnalyzeFillsTypeSlots(t *testing.T) {
	arena, prog := build(t, "proc main() { var x: int; x := 1 + 2; }")
	if err := Analyze(arena, prog); err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	pd := prog.Decls[0].(*ast.ProcDecl)
	assign := pd.Body.Stmts[0].(*ast.AssignStmt)
	if assign.RValue.Type() == symtab.Unset {
		t.Error("RValue type-slot left Unset after a successful analysis")
	}
}
