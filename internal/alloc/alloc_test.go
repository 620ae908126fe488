package alloc

import (
	"strings"
	"testing"

	"github.com/gmofishsauce/splc/internal/ast"
	"github.com/gmofishsauce/splc/internal/lexer"
	"github.com/gmofishsauce/splc/internal/parser"
	"github.com/gmofishsauce/splc/internal/sem"
	"github.com/gmofishsauce/splc/internal/symbuild"
	"github.com/gmofishsauce/splc/internal/symtab"
)

func analyzeAndAllocate(t *testing.T, src string) (*symtab.Arena, *ast.Program) {
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
	if err := sem.Analyze(arena, prog); err != nil {
		t.Fatalf("sem error: %v", err)
	}
	if err := Allocate(arena, prog); err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	return arena, prog
}

func procEntry(t *testing.T, arena *symtab.Arena, prog *ast.Program, name string) *symtab.Entry {
	t.Helper()
	for _, d := range prog.Decls {
		if pd, ok := d.(*ast.ProcDecl); ok && pd.Name == name {
			return arena.Get(pd.SymIndex)
		}
	}
	t.Fatalf("proc %q not found", name)
	return nil
}

func TestAllocateLocalsNegativeAndAligned(t *testing.T) {
	arena, prog := analyzeAndAllocate(t, "proc main() { var a: int; var b: int; }")
	proc := procEntry(t, arena, prog, "main")
	if len(proc.Locals) != 2 {
		t.Fatalf("len(Locals) = %d, want 2", len(proc.Locals))
	}
	aOff := arena.Get(proc.Locals[0]).Offset
	bOff := arena.Get(proc.Locals[1]).Offset
	if aOff != -8 {
		t.Errorf("a.Offset = %d, want -8", aOff)
	}
	if bOff != -16 {
		t.Errorf("b.Offset = %d, want -16", bOff)
	}
}

func TestAllocateRegisterParamsGetNegativeSpillSlots(t *testing.T) {
	arena, prog := analyzeAndAllocate(t, "proc p(a: int, b: int) {}\nproc main() { p(1, 2); }")
	proc := procEntry(t, arena, prog, "p")
	if proc.Params[0].Offset >= 0 || proc.Params[1].Offset >= 0 {
		t.Errorf("register param offsets = %d, %d, want both negative",
			proc.Params[0].Offset, proc.Params[1].Offset)
	}
	if proc.Params[0].Offset == proc.Params[1].Offset {
		t.Error("two distinct parameters were assigned the same offset")
	}
}

func TestAllocateStackParamsGetPositiveOffsets(t *testing.T) {
	src := "proc p(a: int, b: int, c: int, d: int, e: int, f: int, g: int, h: int) {}\nproc main() { p(1,2,3,4,5,6,7,8); }"
	arena, prog := analyzeAndAllocate(t, src)
	proc := procEntry(t, arena, prog, "p")
	g := proc.Params[6] // 7th parameter, first to overflow the six registers
	h := proc.Params[7]
	if g.Offset != 16 {
		t.Errorf("7th param offset = %d, want 16", g.Offset)
	}
	if h.Offset != 24 {
		t.Errorf("8th param offset = %d, want 24", h.Offset)
	}
}

func TestAllocateOutgoingAreaSizedFromWorstCall(t *testing.T) {
	src := `
proc seven(a:int,b:int,c:int,d:int,e:int,f:int,g:int) {}
proc main() {
	seven(1,2,3,4,5,6,7);
}
`
	arena, prog := analyzeAndAllocate(t, src)
	proc := procEntry(t, arena, prog, "main")
	if proc.OutgoingArea != 8 {
		t.Errorf("OutgoingArea = %d, want 8 (one overflow argument)", proc.OutgoingArea)
	}
}

func TestAllocateFrameSizeIsSixteenByteAligned(t *testing.T) {
	arena, prog := analyzeAndAllocate(t, "proc main() { var a: int; }")
	proc := procEntry(t, arena, prog, "main")
	if proc.FrameSize%16 != 0 {
		t.Errorf("FrameSize = %d, not 16-byte aligned", proc.FrameSize)
	}
}

func TestAllocateArrayLocalSizedFromElementCount(t *testing.T) {
	src := "type Vec = array[4] of int;\nproc main() { var v: Vec; }"
	arena, prog := analyzeAndAllocate(t, src)
	proc := procEntry(t, arena, prog, "main")
	vOff := arena.Get(proc.Locals[0]).Offset
	if vOff != -32 {
		t.Errorf("array local offset = %d, want -32 (4 elements * 8 bytes)", vOff)
	}
}
