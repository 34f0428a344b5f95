package cpu

const (
	STACK_START = 0xFFF0 // Initial stack pointer.
)

// Push decrements SP by two and stores value there, little-endian.
// SP wraps silently; there is no overflow detection.
func (cpu *Cpu) Push(value uint16) {
	cpu.regs.Sp -= 2
	cpu.mem.Write16(cpu.regs.Sp, value)
}

// Pop loads the word at SP and increments SP by two.
// Popping is permitted in any state, including after a halt.
func (cpu *Cpu) Pop() (value uint16) {
	value = cpu.mem.Read16(cpu.regs.Sp)
	cpu.regs.Sp += 2
	return
}

// Peek returns the word at SP without moving it.
func (cpu *Cpu) Peek() uint16 {
	return cpu.mem.Read16(cpu.regs.Sp)
}
