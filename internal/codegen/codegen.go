// Package codegen implements spec.md §4.6: translating the type-checked,
// frame-allocated AST into NASM x86-64 assembly text.
//
// Expression evaluation is a two-register stack machine: RAX always
// holds the value just computed, RCX holds the other operand once a
// binary operator needs it, and the real machine stack (push/pop) holds
// anything that would otherwise be clobbered by evaluating a subtree.
// This is the same shape as the teacher's lang/ygen code generator (one
// accumulator register plus an explicit spill-to-stack discipline for
// nested expressions), retargeted from WUT-4's three-register XOP form
// to x86-64's two-operand instructions.
package codegen

import (
	"bufio"
	"io"

	"github.com/gmofishsauce/splc/internal/ast"
	"github.com/gmofishsauce/splc/internal/diag"
	"github.com/gmofishsauce/splc/internal/symtab"
	"github.com/gmofishsauce/splc/internal/token"
)

// builtins is the fixed set of externally defined runtime procedures
// every emitted module imports (spec.md §6).
var builtins = []string{"printi", "printc", "readi", "readc", "exit", "time_"}

// Gen holds the state threaded through one program's code generation.
type Gen struct {
	arena *symtab.Arena
	e     *Emitter

	// per-procedure state, reset by genProc
	boundsLabel string // lazily created bounds-failure landing pad
}

// Generate writes prog's translation, in NASM syntax, to w.
func Generate(arena *symtab.Arena, prog *ast.Program, w io.Writer) error {
	bw := bufio.NewWriter(w)
	g := &Gen{arena: arena, e: NewEmitter(bw)}
	if err := g.genProgram(prog); err != nil {
		return err
	}
	return bw.Flush()
}

func (g *Gen) genProgram(prog *ast.Program) error {
	g.e.Comment("generated by splc; do not edit")
	g.e.Directive("section .text")
	g.e.BlankLine()

	g.e.Directive("extern " + joinComma(builtins))
	for _, decl := range prog.Decls {
		if pd, ok := decl.(*ast.ProcDecl); ok {
			g.e.Directive("global " + pd.Name)
		}
	}
	g.e.BlankLine()

	for _, decl := range prog.Decls {
		pd, ok := decl.(*ast.ProcDecl)
		if !ok {
			continue
		}
		if err := g.genProc(pd); err != nil {
			return err
		}
	}
	return nil
}

func joinComma(ss []string) string {
	out := ss[0]
	for _, s := range ss[1:] {
		out += ", " + s
	}
	return out
}

func (g *Gen) genProc(pd *ast.ProcDecl) error {
	g.boundsLabel = ""
	proc := g.arena.Get(pd.SymIndex)

	g.e.Label(pd.Name)
	g.e.Instr1("push", "rbp")
	g.e.Instr2("mov", "rbp", "rsp")
	if proc.FrameSize > 0 {
		g.e.Instr2("sub", "rsp", proc.FrameSize)
	}

	// Spill the first six parameters — scalars by value, arrays and ref
	// parameters as the address the caller passed — into their assigned
	// stack slots (spec.md §4.6).
	for _, p := range proc.Params {
		if p.Reg == symtab.Stack {
			continue
		}
		g.e.Instr2("mov", mem(p.Offset), regName(p.Reg))
	}

	if err := g.genStmt(proc, pd.Body); err != nil {
		return err
	}

	g.e.Instr2("mov", "rsp", "rbp")
	g.e.Instr1("pop", "rbp")
	g.e.Instr0("ret")

	if g.boundsLabel != "" {
		g.e.Label(g.boundsLabel)
		g.e.Comment("array index out of range")
		g.e.Instr1("call", "exit")
	}
	g.e.BlankLine()
	return nil
}

func (g *Gen) genStmt(proc *symtab.Entry, s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.StmtList:
		for _, inner := range st.Stmts {
			if err := g.genStmt(proc, inner); err != nil {
				return err
			}
		}
		return nil

	case *ast.AssignStmt:
		return g.genAssign(proc, st)

	case *ast.IfStmt:
		return g.genIf(proc, st)

	case *ast.WhileStmt:
		return g.genWhile(proc, st)

	case *ast.CallStmt:
		return g.genCall(proc, st)

	default:
		return diag.Internalf("codegen: unknown statement node %T", s)
	}
}

func (g *Gen) genAssign(proc *symtab.Entry, st *ast.AssignStmt) error {
	if err := g.genExpr(proc, st.RValue); err != nil { // value -> rax
		return err
	}
	g.e.Instr1("push", "rax")
	if err := g.genAddress(proc, st.LValue.V); err != nil { // address -> rax
		return err
	}
	g.e.Instr2("mov", "rcx", "rax") // address -> rcx
	g.e.Instr1("pop", "rax")        // value back into rax
	g.e.Instr2("mov", "[rcx]", "rax")
	return nil
}

func (g *Gen) genIf(proc *symtab.Entry, st *ast.IfStmt) error {
	falseLabel := g.e.NewLabel("else")
	if err := g.genComparisonJump(proc, st.Cond, falseLabel); err != nil {
		return err
	}
	if err := g.genStmt(proc, st.Then); err != nil {
		return err
	}
	if st.Else == nil {
		g.e.Label(falseLabel)
		return nil
	}
	endLabel := g.e.NewLabel("endif")
	g.e.Instr1("jmp", endLabel)
	g.e.Label(falseLabel)
	if err := g.genStmt(proc, st.Else); err != nil {
		return err
	}
	g.e.Label(endLabel)
	return nil
}

func (g *Gen) genWhile(proc *symtab.Entry, st *ast.WhileStmt) error {
	topLabel := g.e.NewLabel("loop")
	endLabel := g.e.NewLabel("endloop")
	g.e.Label(topLabel)
	if err := g.genComparisonJump(proc, st.Cond, endLabel); err != nil {
		return err
	}
	if err := g.genStmt(proc, st.Body); err != nil {
		return err
	}
	g.e.Instr1("jmp", topLabel)
	g.e.Label(endLabel)
	return nil
}

// falseJump maps each comparison operator to the jump that is taken when
// the comparison is FALSE (spec.md §4.6: the six operators invert to the
// jump used to skip the protected block).
var falseJump = map[token.Kind]string{
	token.Eq:  "jne",
	token.Neq: "je",
	token.Lt:  "jge",
	token.Le:  "jg",
	token.Gt:  "jle",
	token.Ge:  "jl",
}

func (g *Gen) genComparisonJump(proc *symtab.Entry, c *ast.Comparison, toLabel string) error {
	if err := g.genExpr(proc, c.LHS); err != nil { // lhs -> rax
		return err
	}
	g.e.Instr1("push", "rax")
	if err := g.genExpr(proc, c.RHS); err != nil { // rhs -> rax
		return err
	}
	g.e.Instr2("mov", "rcx", "rax") // rhs -> rcx
	g.e.Instr1("pop", "rax")        // lhs -> rax
	g.e.Instr2("cmp", "rax", "rcx")
	jmp, ok := falseJump[c.Op]
	if !ok {
		return diag.Internalf("codegen: unknown comparison operator %v", c.Op)
	}
	g.e.Instr1(jmp, toLabel)
	return nil
}

func (g *Gen) genCall(proc *symtab.Entry, st *ast.CallStmt) error {
	calleeIdx, ok := g.arena.Global.Lookup(st.Callee)
	if !ok {
		return diag.Internalf("codegen: call to undefined procedure %q", st.Callee)
	}
	callee := g.arena.Get(calleeIdx)

	// Evaluate arguments in reverse declaration order onto the real
	// stack (spec.md §4.6), so the first-declared argument ends up on
	// top; popping them back off in forward order then delivers each
	// argument to its destination register or outgoing slot without a
	// later argument's own rax/rcx scratch use ever clobbering an
	// earlier one that already landed in an argument register.
	for i := len(st.Args) - 1; i >= 0; i-- {
		param := callee.Params[i]
		var err error
		if param.IsRef {
			err = g.genAddress(proc, argVar(st.Args[i]))
		} else {
			err = g.genExpr(proc, st.Args[i])
		}
		if err != nil {
			return err
		}
		g.e.Instr1("push", "rax")
	}
	outgoingBase := -proc.FrameSize
	for i, param := range callee.Params {
		if param.Reg == symtab.Stack {
			g.e.Instr1("pop", "rax")
			g.e.Instr2("mov", mem(outgoingBase+8*int64(i-len(symtab.ArgRegs))), "rax")
		} else {
			g.e.Instr1("pop", regName(param.Reg))
		}
	}
	g.e.Instr1("call", st.Callee)
	return nil
}

// argVar recovers the Var an argument expression must wrap when its
// matching parameter is by-reference; internal/sem already checked that
// every such argument is a *ast.VarExpr (spec.md §4.4).
func argVar(e ast.Expr) ast.Var {
	return e.(*ast.VarExpr).V
}

func (g *Gen) genExpr(proc *symtab.Entry, e ast.Expr) error {
	switch ex := e.(type) {
	case *ast.IntLit:
		g.e.Instr2("mov", "rax", ex.Value)
		return nil

	case *ast.UnaryMinusExpr:
		if err := g.genExpr(proc, ex.Operand); err != nil {
			return err
		}
		g.e.Instr1("neg", "rax")
		return nil

	case *ast.BinExpr:
		return g.genBinExpr(proc, ex)

	case *ast.VarExpr:
		return g.genLoad(proc, ex.V)

	default:
		return diag.Internalf("codegen: unknown expression node %T", e)
	}
}

func (g *Gen) genBinExpr(proc *symtab.Entry, ex *ast.BinExpr) error {
	if err := g.genExpr(proc, ex.LHS); err != nil { // lhs -> rax
		return err
	}
	g.e.Instr1("push", "rax")
	if err := g.genExpr(proc, ex.RHS); err != nil { // rhs -> rax
		return err
	}
	g.e.Instr2("mov", "rcx", "rax") // rhs -> rcx
	g.e.Instr1("pop", "rax")        // lhs -> rax
	switch ex.Op {
	case token.Plus:
		g.e.Instr2("add", "rax", "rcx")
	case token.Minus:
		g.e.Instr2("sub", "rax", "rcx")
	case token.Star:
		g.e.Instr2("imul", "rax", "rcx")
	case token.Slash:
		g.e.Instr0("cqo")
		g.e.Instr1("idiv", "rcx")
	default:
		return diag.Internalf("codegen: unknown binary operator %v", ex.Op)
	}
	return nil
}

// genLoad loads v's scalar value into RAX.
func (g *Gen) genLoad(proc *symtab.Entry, v ast.Var) error {
	switch vv := v.(type) {
	case *ast.NamedVar:
		e := g.arena.Get(vv.SymIdx)
		g.e.Instr2("mov", "rax", mem(e.Offset))
		if e.IsRef {
			g.e.Instr2("mov", "rax", "[rax]")
		}
		return nil
	case *ast.IndexedVar:
		if err := g.genAddress(proc, v); err != nil {
			return err
		}
		g.e.Instr2("mov", "rax", "[rax]")
		return nil
	default:
		return diag.Internalf("codegen: unknown var node %T", v)
	}
}

// genAddress computes the address v refers to into RAX: a `lea` against
// the frame for a local, a forwarded pointer load for a reference
// parameter or array, or a bounds-checked offset computation for an
// indexed element (spec.md §4.6).
func (g *Gen) genAddress(proc *symtab.Entry, v ast.Var) error {
	switch vv := v.(type) {
	case *ast.NamedVar:
		e := g.arena.Get(vv.SymIdx)
		if e.IsRef {
			g.e.Instr2("mov", "rax", mem(e.Offset))
		} else {
			g.e.Instr2("lea", "rax", mem(e.Offset))
		}
		return nil

	case *ast.IndexedVar:
		if err := g.genAddress(proc, vv.Base); err != nil { // base address -> rax
			return err
		}
		g.e.Instr1("push", "rax")
		if err := g.genExpr(proc, vv.Index); err != nil { // index -> rax
			return err
		}
		g.e.Instr2("mov", "rcx", "rax") // index -> rcx
		g.e.Instr1("pop", "rax")        // base address -> rax

		baseType := g.varType(vv.Base)
		arr, ok := g.arena.IsArray(baseType)
		if !ok {
			return diag.Internalf("codegen: index base is not an array")
		}
		label := g.boundsFailLabel()
		g.e.Instr2("cmp", "rcx", 0)
		g.e.Instr1("jl", label)
		g.e.Instr2("cmp", "rcx", arr.Count)
		g.e.Instr1("jge", label)

		elemSize := g.arena.SizeOf(arr.ElemType)
		g.e.Instr3("imul", "rcx", "rcx", elemSize)
		g.e.Instr2("add", "rax", "rcx")
		return nil

	default:
		return diag.Internalf("codegen: unknown var node %T", v)
	}
}

// varType recovers v's resolved type without re-running semantic
// analysis: NamedVar carries it directly on its resolved Variable entry,
// IndexedVar recurses into its base and takes the array's element type.
func (g *Gen) varType(v ast.Var) symtab.Index {
	switch vv := v.(type) {
	case *ast.NamedVar:
		return g.arena.Get(vv.SymIdx).VarType
	case *ast.IndexedVar:
		baseType := g.varType(vv.Base)
		arr, _ := g.arena.IsArray(baseType)
		return arr.ElemType
	default:
		return symtab.Unset
	}
}

// boundsFailLabel returns this procedure's single bounds-check landing
// pad, creating it on first use. Every failing index check in the
// procedure jumps to the same label, which calls the built-in exit() and
// never returns (spec.md §4.6's inline compare-and-exit policy).
func (g *Gen) boundsFailLabel() string {
	if g.boundsLabel == "" {
		g.boundsLabel = g.e.NewLabel("bounds")
	}
	return g.boundsLabel
}

// mem formats an RBP-relative operand. itoa always includes an explicit
// sign, so "[rbp" + itoa(8) + "]" is "[rbp+8]" and "[rbp" + itoa(-8) +
// "]" is "[rbp-8]" with no double sign either way.
func mem(offset int64) string {
	return "[rbp" + itoa(offset) + "]"
}

func itoa(n int64) string {
	if n < 0 {
		return "-" + itoaUnsigned(uint64(-n))
	}
	return "+" + itoaUnsigned(uint64(n))
}

func itoaUnsigned(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func regName(r symtab.RegClass) string {
	switch r {
	case symtab.RDI:
		return "rdi"
	case symtab.RSI:
		return "rsi"
	case symtab.RDX:
		return "rdx"
	case symtab.RCX:
		return "rcx"
	case symtab.R8:
		return "r8"
	case symtab.R9:
		return "r9"
	default:
		return "?"
	}
}
