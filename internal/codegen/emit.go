// Package codegen implements spec.md §4.6: x86-64 NASM code emission from
// the type-checked, frame-allocated AST.
//
// The Emitter mirrors the teacher's lang/ygen.Emitter (Instr0/Instr1/
// Instr2/Instr3, Label, Comment, NewLabel) but targets NASM Intel-syntax
// mnemonics and the System V AMD64 register set instead of WUT-4.
package codegen

import (
	"bufio"
	"fmt"
)

// Emitter writes NASM source text. It has no knowledge of SPL; Gen drives
// it with instruction mnemonics and operand strings.
type Emitter struct {
	out        *bufio.Writer
	labelCount int
}

func NewEmitter(w *bufio.Writer) *Emitter {
	return &Emitter{out: w}
}

// NewLabel generates a unique, monotonically numbered local label. NASM
// local labels begin with a dot and are not visible outside the module.
func (e *Emitter) NewLabel(prefix string) string {
	label := fmt.Sprintf(".L%s%d", prefix, e.labelCount)
	e.labelCount++
	return label
}

func (e *Emitter) Comment(format string, args ...interface{}) {
	fmt.Fprintf(e.out, "    ; %s\n", fmt.Sprintf(format, args...))
}

func (e *Emitter) BlankLine() {
	fmt.Fprintln(e.out)
}

func (e *Emitter) Directive(dir string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintf(e.out, "%s %s\n", dir, fmt.Sprint(args...))
	} else {
		fmt.Fprintf(e.out, "%s\n", dir)
	}
}

// Label emits name as a colon-terminated label at column zero.
func (e *Emitter) Label(name string) {
	fmt.Fprintf(e.out, "%s:\n", name)
}

// Instr0 emits a zero-operand instruction: ret, cqo, leave.
func (e *Emitter) Instr0(op string) {
	fmt.Fprintf(e.out, "    %s\n", op)
}

// Instr1 emits a one-operand instruction: push rax, call printi, jmp .L3.
func (e *Emitter) Instr1(op string, arg1 interface{}) {
	fmt.Fprintf(e.out, "    %s %v\n", op, arg1)
}

// Instr2 emits a two-operand instruction: mov rax, rcx.
func (e *Emitter) Instr2(op string, arg1, arg2 interface{}) {
	fmt.Fprintf(e.out, "    %s %v, %v\n", op, arg1, arg2)
}

// Instr3 emits a three-operand instruction: imul rax, rax, 8.
func (e *Emitter) Instr3(op string, arg1, arg2, arg3 interface{}) {
	fmt.Fprintf(e.out, "    %s %v, %v, %v\n", op, arg1, arg2, arg3)
}
