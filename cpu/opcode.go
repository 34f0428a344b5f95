package cpu

import (
	"fmt"
	"strings"
)

// Opcode bytes.
const (
	OP_INC_AX   = byte(0x40)
	OP_DEC_AX   = byte(0x48)
	OP_DEC_CX   = byte(0x49)
	OP_PUSH_AX  = byte(0x50)
	OP_POP_AX   = byte(0x58)
	OP_JNZ      = byte(0x75)
	OP_GRP1_IMM = byte(0x81) // Selector picks the ALU op and register.
	OP_MOV_AX   = byte(0xB8)
	OP_MOV_CX   = byte(0xB9)
	OP_MOV_BX   = byte(0xBB)
	OP_HLT      = byte(0xF4)
	OP_GRP3     = byte(0xF7) // Selector picks the unary op and register.
	SEL_CMP_CX  = byte(0xF9) // OP_GRP1_IMM: cmp cx, imm16
	SEL_MUL_CX  = byte(0xE1) // OP_GRP3: mul cx
)

// Operand is the kind of operand trailing an instruction's encoding.
type Operand int

const (
	OPERAND_NONE  = Operand(0) // No operand bytes.
	OPERAND_IMM16 = Operand(1) // Little-endian 16-bit immediate.
	OPERAND_REL8  = Operand(2) // Signed 8-bit offset from the next IP.
)

// Size is the number of bytes the operand occupies.
func (op Operand) Size() int {
	switch op {
	case OPERAND_IMM16:
		return 2
	case OPERAND_REL8:
		return 1
	}
	return 0
}

// Instruction describes one implemented instruction.
type Instruction struct {
	Name    string  // Assembly name, ie "mov ax" or "jnz".
	Code    []byte  // Encoding: opcode, then selector for grouped opcodes.
	Operand Operand // Trailing operand.

	// exec runs the instruction. For OPERAND_REL8 the argument is
	// already sign extended.
	exec func(cpu *Cpu, arg uint16)
}

// InstructionSet is the implemented subset.
var InstructionSet = []Instruction{
	{"mov ax", []byte{OP_MOV_AX}, OPERAND_IMM16, func(cpu *Cpu, arg uint16) {
		cpu.regs.Ax = arg
	}},
	{"mov bx", []byte{OP_MOV_BX}, OPERAND_IMM16, func(cpu *Cpu, arg uint16) {
		cpu.regs.Bx = arg
	}},
	{"mov cx", []byte{OP_MOV_CX}, OPERAND_IMM16, func(cpu *Cpu, arg uint16) {
		cpu.regs.Cx = arg
	}},
	{"inc ax", []byte{OP_INC_AX}, OPERAND_NONE, func(cpu *Cpu, arg uint16) {
		cpu.regs.Ax++
		cpu.regs.SetSZ(cpu.regs.Ax)
	}},
	{"dec ax", []byte{OP_DEC_AX}, OPERAND_NONE, func(cpu *Cpu, arg uint16) {
		cpu.regs.Ax--
		cpu.regs.SetSZ(cpu.regs.Ax)
	}},
	{"dec cx", []byte{OP_DEC_CX}, OPERAND_NONE, func(cpu *Cpu, arg uint16) {
		cpu.regs.Cx--
		cpu.regs.SetSZ(cpu.regs.Cx)
	}},
	{"push ax", []byte{OP_PUSH_AX}, OPERAND_NONE, func(cpu *Cpu, arg uint16) {
		cpu.Push(cpu.regs.Ax)
	}},
	{"pop ax", []byte{OP_POP_AX}, OPERAND_NONE, func(cpu *Cpu, arg uint16) {
		cpu.regs.Ax = cpu.Pop()
	}},
	{"mul cx", []byte{OP_GRP3, SEL_MUL_CX}, OPERAND_NONE, func(cpu *Cpu, arg uint16) {
		// Flags are not touched.
		product := uint32(cpu.regs.Ax) * uint32(cpu.regs.Cx)
		cpu.regs.Ax = uint16(product)
		cpu.regs.Dx = uint16(product >> 16)
	}},
	{"cmp cx", []byte{OP_GRP1_IMM, SEL_CMP_CX}, OPERAND_IMM16, func(cpu *Cpu, arg uint16) {
		cpu.regs.SetSZ(cpu.regs.Cx - arg)
	}},
	{"jnz", []byte{OP_JNZ}, OPERAND_REL8, func(cpu *Cpu, arg uint16) {
		if !cpu.regs.Flag(FLAG_Z) {
			cpu.regs.Ip += arg
		}
	}},
	{"hlt", []byte{OP_HLT}, OPERAND_NONE, func(cpu *Cpu, arg uint16) {
		cpu.halted = true
	}},
}

// decoder is one slot of the opcode table. Grouped opcodes dispatch again
// on the selector byte.
type decoder struct {
	inst  *Instruction
	group map[byte]*Instruction
}

var decodeTable [256]decoder

func init() {
	for n := range InstructionSet {
		inst := &InstructionSet[n]
		slot := &decodeTable[inst.Code[0]]
		switch len(inst.Code) {
		case 1:
			slot.inst = inst
		case 2:
			if slot.group == nil {
				slot.group = make(map[byte]*Instruction)
			}
			slot.group[inst.Code[1]] = inst
		default:
			panic("instruction encoding too long: " + inst.Name)
		}
	}
}

// Lookup returns the instruction for an opcode and selector byte. The
// selector is ignored for opcodes that do not take one.
// grouped is set if the opcode takes a selector.
func Lookup(opcode byte, selector byte) (inst *Instruction, grouped bool) {
	slot := &decodeTable[opcode]
	if slot.group != nil {
		return slot.group[selector], true
	}
	return slot.inst, false
}

// Known returns true if the opcode byte is decoded at all.
func Known(opcode byte) bool {
	slot := &decodeTable[opcode]
	return slot.inst != nil || slot.group != nil
}

// Decode disassembles the instruction at addr, reading bytes with read.
// It returns the assembly text and the number of bytes the CPU consumes
// when executing it.
//
// Unknown opcodes render as a single .db byte. A grouped opcode with an
// unimplemented selector renders as two .db bytes, since the CPU consumes
// only the opcode and selector for it.
func Decode(read func(addr uint16) byte, addr uint16) (text string, size int) {
	opcode := read(addr)
	if !Known(opcode) {
		return fmt.Sprintf(".db 0x%02x", opcode), 1
	}

	size = 1
	selector := read(addr + 1)
	inst, grouped := Lookup(opcode, selector)
	if grouped {
		size++
		if inst == nil {
			return fmt.Sprintf(".db 0x%02x, 0x%02x", opcode, selector), size
		}
	}

	operand := addr + uint16(size)
	size += inst.Operand.Size()

	switch inst.Operand {
	case OPERAND_IMM16:
		value := uint16(read(operand)) | uint16(read(operand+1))<<8
		text = fmt.Sprintf("%v, 0x%04x", inst.Name, value)
	case OPERAND_REL8:
		target := addr + uint16(size) + uint16(int8(read(operand)))
		text = fmt.Sprintf("%v 0x%04x", inst.Name, target)
	default:
		text = inst.Name
	}

	return
}

// String returns the instruction's assembly template.
func (inst *Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(inst.Name)
	switch inst.Operand {
	case OPERAND_IMM16:
		sb.WriteString(", imm16")
	case OPERAND_REL8:
		sb.WriteString(" rel8")
	}
	return sb.String()
}
