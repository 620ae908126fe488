package symbuild

import (
	"strings"
	"testing"

	"github.com/gmofishsauce/splc/internal/lexer"
	"github.com/gmofishsauce/splc/internal/parser"
	"github.com/gmofishsauce/splc/internal/symtab"
)

func buildFrom(t *testing.T, src string) *symtab.Arena {
	t.Helper()
	toks, err := lexer.New(strings.NewReader(src)).Lex()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	arena, err := Build(prog)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	return arena
}

func TestBuildInstallsBuiltins(t *testing.T) {
	arena := buildFrom(t, "proc main() {}")
	for _, name := range []string{"printi", "printc", "readi", "readc", "exit", "time_"} {
		idx, ok := arena.Global.Lookup(name)
		if !ok {
			t.Fatalf("builtin %q not installed", name)
		}
		e := arena.Get(idx)
		if e.Kind != symtab.Procedure || !e.IsBuiltin {
			t.Errorf("%q entry = %+v, want a builtin Procedure", name, e)
		}
	}
}

func TestBuildTypeDeclFlattening(t *testing.T) {
	src := `
type A = int;
type B = A;
proc main() { var x: B; }
`
	arena := buildFrom(t, src)
	bIdx, ok := arena.Global.Lookup("B")
	if !ok {
		t.Fatal("type B not found")
	}
	// B's Target must already point directly at the primitive int entry,
	// not at A — eager flattening, not a one-link chain.
	if arena.Get(bIdx).Target != symtab.IntIndex {
		t.Errorf("B.Target = %d, want IntIndex (%d)", arena.Get(bIdx).Target, symtab.IntIndex)
	}
}

func TestBuildArrayAliasesAreDistinct(t *testing.T) {
	src := `
type A = array[4] of int;
type B = array[4] of int;
proc main() {}
`
	arena := buildFrom(t, src)
	aIdx, _ := arena.Global.Lookup("A")
	bIdx, _ := arena.Global.Lookup("B")
	if arena.TypesEqual(aIdx, bIdx) {
		t.Error("structurally identical array aliases compared equal; want nominally distinct")
	}
}

func TestBuildProcRegisterAssignment(t *testing.T) {
	src := "proc p(a: int, b: int, c: int, d: int, e: int, f: int, g: int) {}\nproc main() {}"
	arena := buildFrom(t, src)
	pIdx, ok := arena.Global.Lookup("p")
	if !ok {
		t.Fatal("proc p not found")
	}
	p := arena.Get(pIdx)
	wantRegs := []symtab.RegClass{symtab.RDI, symtab.RSI, symtab.RDX, symtab.RCX, symtab.R8, symtab.R9, symtab.Stack}
	if len(p.Params) != len(wantRegs) {
		t.Fatalf("len(Params) = %d, want %d", len(p.Params), len(wantRegs))
	}
	for i, want := range wantRegs {
		if p.Params[i].Reg != want {
			t.Errorf("Params[%d].Reg = %v, want %v", i, p.Params[i].Reg, want)
		}
	}
}

func TestBuildArrayParamIsAlwaysRef(t *testing.T) {
	src := `
type Vec = array[4] of int;
proc p(v: Vec) {}
proc main() {}
`
	arena := buildFrom(t, src)
	pIdx, _ := arena.Global.Lookup("p")
	p := arena.Get(pIdx)
	if !p.Params[0].IsRef {
		t.Error("array parameter IsRef = false, want true even without the ref keyword")
	}
}

func TestBuildDuplicateProcNameFails(t *testing.T) {
	toks, err := lexer.New(strings.NewReader("proc main() {}\nproc main() {}")).Lex()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := Build(prog); err == nil {
		t.Error("Build succeeded on duplicate proc name, want an error")
	}
}
