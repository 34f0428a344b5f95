// Package cpu implements the processor and assembler for a toy 16-bit
// real-mode machine.
//
// The CPU consists of eight 16-bit general and pointer registers
// (ax, bx, cx, dx, si, di, sp, bp), an instruction pointer (IP), a flag
// word, and a flat 64KiB memory holding both the program and the stack.
// Only a small subset of the 8086 encoding is decoded; an unknown opcode
// halts the processor.
//
// The assembler provides a line oriented assembly language for that subset,
// supporting labels, equates, and compile-time expression evaluation.
package cpu
