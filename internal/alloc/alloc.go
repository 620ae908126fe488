// Package alloc implements spec.md §4.5: the stack-frame allocator. It
// assigns every local variable and register-passed parameter a negative
// offset from the frame pointer, every stack-passed parameter a positive
// offset, sizes the outgoing-argument area from the worst call site in
// the procedure's body, and writes the final 16-byte-aligned frame size
// back into the Procedure symbol entry.
package alloc

import (
	"github.com/samber/lo"

	"github.com/gmofishsauce/splc/internal/ast"
	"github.com/gmofishsauce/splc/internal/symtab"
)

// registerParamSlots is the number of parameters spilled to the stack at
// procedure entry — the six System V AMD64 integer argument registers.
const registerParamSlots = 6

// Allocate computes frame layout for every user procedure in prog.
func Allocate(arena *symtab.Arena, prog *ast.Program) error {
	for _, decl := range prog.Decls {
		pd, ok := decl.(*ast.ProcDecl)
		if !ok {
			continue
		}
		allocateProc(arena, pd)
	}
	return nil
}

func allocateProc(arena *symtab.Arena, pd *ast.ProcDecl) {
	proc := arena.Get(pd.SymIndex)

	var cursor int64 // grows as more bytes are claimed below the frame pointer

	// Step 1: locals, declaration order, 8-byte aligned, arrays rounded
	// up to a whole number of 8-byte units.
	for _, localIdx := range proc.Locals {
		v := arena.Get(localIdx)
		size := alignTo8(arena.SizeOf(v.VarType))
		cursor += size
		v.Offset = -cursor
	}
	localArea := cursor

	// Step 2: the first six parameters get spill slots immediately below
	// the locals; parameters beyond the sixth get positive offsets
	// starting at +16 (skipping the saved RBP at +0 and the return
	// address at +8), growing upward in declaration order.
	stackIdx := int64(0)
	for i := range proc.Params {
		p := &proc.Params[i]
		if i < registerParamSlots {
			cursor += symtab.IntSize // every register arg is 8 bytes: scalar or pointer
			p.Offset = -cursor
		} else {
			p.Offset = 16 + 8*stackIdx
			stackIdx++
		}
		arena.Get(p.VarIdx).Offset = p.Offset
	}
	argArea := cursor - localArea

	// Step 3: size the outgoing-argument area from the call site in the
	// body that passes the most arguments.
	calls := collectCalls(pd.Body)
	maxOverflow := lo.Reduce(calls, func(acc int, c *ast.CallStmt, _ int) int {
		if n := len(c.Args) - registerParamSlots; n > acc {
			return n
		}
		return acc
	}, 0)
	outgoingArea := int64(0)
	if maxOverflow > 0 {
		outgoingArea = int64(maxOverflow) * symtab.IntSize
	}

	frameSize := roundUp16(localArea + argArea + outgoingArea)

	proc.LocalArea = localArea
	proc.ArgArea = argArea
	proc.OutgoingArea = outgoingArea
	proc.FrameSize = frameSize
}

func alignTo8(n int64) int64 {
	return (n + 7) &^ 7
}

func roundUp16(n int64) int64 {
	return (n + 15) &^ 15
}

// collectCalls walks s and every nested statement, returning every
// CallStmt reached — the allocator needs every call site in the
// procedure body, not just its top level.
func collectCalls(s ast.Stmt) []*ast.CallStmt {
	var out []*ast.CallStmt
	var walk func(ast.Stmt)
	walk = func(s ast.Stmt) {
		switch st := s.(type) {
		case *ast.StmtList:
			for _, inner := range st.Stmts {
				walk(inner)
			}
		case *ast.IfStmt:
			walk(st.Then)
			if st.Else != nil {
				walk(st.Else)
			}
		case *ast.WhileStmt:
			walk(st.Body)
		case *ast.CallStmt:
			out = append(out, st)
		}
	}
	walk(s)
	return out
}
