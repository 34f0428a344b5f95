package cpu

import (
	"iter"
	"strings"
)

// Opcode is one line of a program listing and the bytes it produced.
type Opcode struct {
	LineNo    int      // Source line, or 0 for disassembled images.
	Ip        int      // Address of the first byte.
	Words     []string // Source words.
	Bytes     []byte   // Encoded instruction.
	LinkLabel string   // Label the trailing rel8 must be linked to.
}

type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// NewProgram builds a listing for a raw image by disassembling it from
// address 0. Each decoded instruction becomes one Opcode.
func NewProgram(image []byte) (prog *Program) {
	prog = &Program{}

	read := func(addr uint16) byte {
		if int(addr) < len(image) {
			return image[addr]
		}
		return 0
	}

	for ip := 0; ip < len(image) && ip < MEMORY_SIZE; {
		text, size := Decode(read, uint16(ip))
		end := min(ip+size, len(image))
		prog.Opcodes = append(prog.Opcodes, Opcode{
			Ip:    ip,
			Words: strings.Fields(text),
			Bytes: image[ip:end],
		})
		ip += size
	}

	return
}

func (prog *Program) Debug(ip uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(ip) >= op.Ip && int(ip) < op.Ip+len(op.Bytes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(ip) - op.Ip,
			}
			break
		}
	}

	return
}

// Binary returns the memory image of the program, starting at address 0.
func (prog *Program) Binary() (bin []byte) {
	for ip, value := range prog.Codes() {
		for int(ip) >= len(bin) {
			bin = append(bin, 0)
		}
		bin[ip] = value
	}

	return
}

// Codes iterates over every byte of the program and its address.
func (prog *Program) Codes() iter.Seq2[uint16, byte] {
	return func(yield func(ip uint16, value byte) bool) {
		for _, op := range prog.Opcodes {
			ip := uint16(op.Ip)
			for n, value := range op.Bytes {
				if !yield(ip+uint16(n), value) {
					return
				}
			}
		}
	}
}

// String returns the source text of the opcode.
func (op *Opcode) String() string {
	return strings.Join(op.Words, " ")
}
