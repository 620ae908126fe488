// Package compiler bundles the six compilation phases (spec.md §1) into
// one pure function, replacing the teacher's module-level arrays shared
// across separate ylex/yparse/ysem/ygen binaries with a single
// compilation-context value threaded through each phase in-process
// (spec.md §9 Design Notes: "a rewrite should bundle them into a single
// compilation-context value threaded through each phase... each phase is
// a pure function from one slice of the context to the next").
package compiler

import (
	"io"

	"github.com/gmofishsauce/splc/internal/alloc"
	"github.com/gmofishsauce/splc/internal/ast"
	"github.com/gmofishsauce/splc/internal/codegen"
	"github.com/gmofishsauce/splc/internal/lexer"
	"github.com/gmofishsauce/splc/internal/parser"
	"github.com/gmofishsauce/splc/internal/sem"
	"github.com/gmofishsauce/splc/internal/symbuild"
	"github.com/gmofishsauce/splc/internal/symtab"
	"github.com/gmofishsauce/splc/internal/token"
)

// Trace receives one progress line per completed phase; nil disables
// tracing. cmd/splc wires this to a zerolog logger gated by --trace-phases.
type Trace func(phase string, detail string)

// Result is everything a caller might want to inspect after a successful
// compilation — codegen output has already been written to the provided
// writer by the time Compile returns it.
type Result struct {
	Tokens  []token.Token
	Program *ast.Program
	Arena   *symtab.Arena
}

// Compile runs every phase in order against src, writing NASM text to
// out on success. It returns the first error any phase produces,
// unwrapped (spec.md §7: fail fast, one diagnostic).
func Compile(src io.Reader, out io.Writer, trace Trace) (*Result, error) {
	if trace == nil {
		trace = func(string, string) {}
	}

	lx := lexer.New(src)
	toks, err := lx.Lex()
	if err != nil {
		return nil, err
	}
	trace("lex", itoa(len(toks))+" tokens")

	prog, err := parser.Parse(toks)
	if err != nil {
		return nil, err
	}
	trace("parse", itoa(len(prog.Decls))+" top-level declarations")

	arena, err := symbuild.Build(prog)
	if err != nil {
		return nil, err
	}
	trace("symbuild", itoa(len(arena.Entries))+" symbol entries")

	if err := sem.Analyze(arena, prog); err != nil {
		return nil, err
	}
	trace("sem", "type check passed")

	if err := alloc.Allocate(arena, prog); err != nil {
		return nil, err
	}
	trace("alloc", "stack frames assigned")

	if err := codegen.Generate(arena, prog, out); err != nil {
		return nil, err
	}
	trace("codegen", "assembly emitted")

	return &Result{Tokens: toks, Program: prog, Arena: arena}, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
