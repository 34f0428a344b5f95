package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"
)

var _cpu_defines = map[string]string{
	"MEMORY_SIZE": fmt.Sprintf("0x%x", MEMORY_SIZE),
	"STACK_START": fmt.Sprintf("0x%x", STACK_START),
	"FLAG_C":      fmt.Sprintf("0x%x", FLAG_C),
	"FLAG_P":      fmt.Sprintf("0x%x", FLAG_P),
	"FLAG_A":      fmt.Sprintf("0x%x", FLAG_A),
	"FLAG_Z":      fmt.Sprintf("0x%x", FLAG_Z),
	"FLAG_S":      fmt.Sprintf("0x%x", FLAG_S),
	"FLAG_T":      fmt.Sprintf("0x%x", FLAG_T),
	"FLAG_I":      fmt.Sprintf("0x%x", FLAG_I),
	"FLAG_D":      fmt.Sprintf("0x%x", FLAG_D),
	"FLAG_O":      fmt.Sprintf("0x%x", FLAG_O),
}

// Cpu is the simulation context for the processor. It is the sole owner of
// the register file and memory; callers observe them through accessors.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	regs   Registers // Register file.
	mem    Memory    // Flat address space.
	halted bool      // Set by hlt or an unknown opcode.
	fault  error     // Diagnostic for an unknown opcode.
	ticks  int       // Executed steps.
}

// NewCpu creates a new CPU in its reset state.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Clears the registers and memory.
// - Sets SP to STACK_START and IP to 0.
// - Clears the halted state and any fault.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.regs = Registers{Sp: STACK_START}
	clear(cpu.mem[:])
	cpu.halted = false
	cpu.fault = nil
	cpu.ticks = 0
}

// Load writes a program image into memory at addr.
func (cpu *Cpu) Load(addr uint16, data []byte) {
	cpu.mem.Load(addr, data)
}

// Registers returns a copy of the register file.
func (cpu *Cpu) Registers() Registers {
	return cpu.regs
}

// Halted returns true once the CPU has stopped.
func (cpu *Cpu) Halted() bool {
	return cpu.halted
}

// Fault returns the diagnostic for the unknown opcode that halted the CPU,
// or nil.
func (cpu *Cpu) Fault() error {
	return cpu.fault
}

// Ticks returns the number of steps executed since reset.
func (cpu *Cpu) Ticks() int {
	return cpu.ticks
}

// Read8 reads a byte of memory.
func (cpu *Cpu) Read8(addr uint16) byte {
	return cpu.mem[addr]
}

// Read16 reads a little-endian word of memory.
func (cpu *Cpu) Read16(addr uint16) uint16 {
	return cpu.mem.Read16(addr)
}

// Disassemble returns the instruction at addr and its size in bytes.
func (cpu *Cpu) Disassemble(addr uint16) (text string, size int) {
	return Decode(cpu.Read8, addr)
}

// FetchU8 reads the byte at IP and advances IP.
func (cpu *Cpu) FetchU8() (value byte) {
	value = cpu.mem[cpu.regs.Ip]
	cpu.regs.Ip++
	return
}

// FetchU16 reads a little-endian word at IP and advances IP by two.
func (cpu *Cpu) FetchU16() uint16 {
	lo := uint16(cpu.FetchU8())
	hi := uint16(cpu.FetchU8())
	return lo | (hi << 8)
}

// Step executes a single instruction. It does nothing once halted.
//
// An unknown opcode halts the CPU and returns an ErrOpcode naming the
// opcode and the address it was fetched from; the same value is kept in
// Fault(). The CPU is already halted when the error is seen.
//
// A grouped opcode with an unimplemented selector is a no-op that consumes
// only the opcode and selector bytes. In particular 0x81 does not consume
// its immediate in that case, so the following fetch lands inside it.
func (cpu *Cpu) Step() (err error) {
	if cpu.halted {
		return
	}

	ip := cpu.regs.Ip
	opcode := cpu.FetchU8()
	cpu.ticks++

	if !Known(opcode) {
		cpu.halted = true
		cpu.fault = ErrOpcode{Opcode: opcode, Ip: ip}
		err = cpu.fault
		return
	}

	var selector byte
	slot := &decodeTable[opcode]
	inst := slot.inst
	if slot.group != nil {
		selector = cpu.FetchU8()
		inst = slot.group[selector]
		if inst == nil {
			if cpu.Verbose {
				log.Printf("cpu: %04x: %02x %02x: selector not implemented", ip, opcode, selector)
			}
			return
		}
	}

	var arg uint16
	switch inst.Operand {
	case OPERAND_IMM16:
		arg = cpu.FetchU16()
	case OPERAND_REL8:
		arg = uint16(int8(cpu.FetchU8()))
	}

	if cpu.Verbose {
		text, _ := Decode(cpu.Read8, ip)
		log.Printf("cpu: %04x: %v", ip, text)
	}

	inst.exec(cpu, arg)

	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"ip",
		"ax", "bx", "cx", "dx",
		"si", "di", "sp", "bp",
		"flags",
		"stack",
		"halt",
	}
	r := &cpu.regs
	for _, reg := range regs {
		var strval string
		switch reg {
		case "ip":
			strval = fmt.Sprintf("%04X", r.Ip)
		case "ax":
			strval = fmt.Sprintf("%04X", r.Ax)
		case "bx":
			strval = fmt.Sprintf("%04X", r.Bx)
		case "cx":
			strval = fmt.Sprintf("%04X", r.Cx)
		case "dx":
			strval = fmt.Sprintf("%04X", r.Dx)
		case "si":
			strval = fmt.Sprintf("%04X", r.Si)
		case "di":
			strval = fmt.Sprintf("%04X", r.Di)
		case "sp":
			strval = fmt.Sprintf("%04X", r.Sp)
		case "bp":
			strval = fmt.Sprintf("%04X", r.Bp)
		case "flags":
			strval = fmt.Sprintf("%04X %v", r.Flags, FlagString(r.Flags))
		case "stack":
			if r.Sp == STACK_START {
				strval = "----"
			} else {
				strval = fmt.Sprintf("%04X", cpu.Peek())
			}
		case "halt":
			strval = "false"
			if cpu.halted {
				strval = "true"
			}
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	return
}
