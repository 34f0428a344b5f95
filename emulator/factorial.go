package emulator

import (
	"github.com/ezrec/realmode/cpu"
)

// FactorialBinary computes 5! and leaves the result on the stack.
var FactorialBinary = []byte{
	0xB8, 0x01, 0x00, // mov ax, 1
	0xB9, 0x05, 0x00, // mov cx, 5
	0xF7, 0xE1, // mul cx
	0x49,                   // dec cx
	0x81, 0xF9, 0x01, 0x00, // cmp cx, 1
	0x75, 0xF7, // jnz loop
	0x50, // push ax
	0xF4, // hlt
}

// FactorialSource is the assembly text of FactorialBinary.
const FactorialSource = `; 5! left on the stack
.equ N 5
    mov ax, 1
    mov cx, N
loop:
    mul cx
    dec cx
    cmp cx, 1
    jnz loop
    push ax
    hlt
`

// FactorialProgram returns a listing for FactorialBinary.
func FactorialProgram() *cpu.Program {
	return cpu.NewProgram(FactorialBinary)
}
