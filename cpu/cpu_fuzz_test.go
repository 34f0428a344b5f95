package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// FuzzCpu executes one arbitrary instruction and checks that decoding
// consumes exactly the bytes the disassembler reports.
func FuzzCpu(f *testing.F) {
	for _, seed := range [][]byte{
		{0xB8, 0x01, 0x00},
		{0xF7, 0xE1},
		{0xF7, 0x00},
		{0x81, 0xF9, 0x01, 0x00},
		{0x81, 0x00, 0x01, 0x00},
		{0x75, 0xF7},
		{0xF4},
		{0xFF},
	} {
		f.Add(seed, uint16(0x1234), uint16(5), uint16(0))
		f.Add(seed, uint16(0xffff), uint16(0), FLAG_Z)
	}

	f.Fuzz(func(t *testing.T, program []byte, ax uint16, cx uint16, flags uint16) {
		assert := assert.New(t)

		if len(program) > 8 {
			program = program[:8]
		}

		cpu := newLoaded(program...)
		cpu.regs.Ax = ax
		cpu.regs.Cx = cx
		cpu.regs.Flags = flags

		_, size := cpu.Disassemble(0)

		err := cpu.Step()
		regs := cpu.Registers()

		if len(program) == 0 || !Known(program[0]) {
			assert.Error(err)
			assert.True(cpu.Halted())
			assert.Equal(uint16(1), regs.Ip)
			return
		}

		assert.NoError(err)

		reserved := ^(FLAG_Z | FLAG_S)
		assert.Equal(flags&reserved, regs.Flags&reserved)

		if program[0] == OP_JNZ && !regs.Flag(FLAG_Z) {
			assert.Equal(uint16(size)+uint16(int8(cpu.Read8(1))), regs.Ip)
		} else {
			assert.Equal(uint16(size), regs.Ip)
		}

		// Halted is terminal.
		if cpu.Halted() {
			before := cpu.Registers()
			assert.NoError(cpu.Step())
			assert.Equal(before, cpu.Registers())
		}
	})
}
