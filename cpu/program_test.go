package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgram_Debug(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(factorialSource))
	assert.NoError(err)

	dbg := prog.Debug(0)
	assert.NotNil(dbg.Opcode)
	assert.Equal(4, dbg.Opcode.LineNo)
	assert.Equal(0, dbg.Index)

	dbg = prog.Debug(2)
	assert.NotNil(dbg.Opcode)
	assert.Equal(4, dbg.Opcode.LineNo)
	assert.Equal(2, dbg.Index)

	dbg = prog.Debug(14)
	assert.NotNil(dbg.Opcode)
	assert.Equal(10, dbg.Opcode.LineNo)
	assert.Equal(1, dbg.Index)
	assert.Equal("jnz loop", dbg.Opcode.String())
}

func TestProgram_Debug_NotFound(t *testing.T) {
	assert := assert.New(t)

	prog := NewProgram(factorial)

	dbg := prog.Debug(uint16(len(factorial)))
	assert.Nil(dbg.Opcode)
	assert.Equal(0, dbg.Index)
}

func TestProgram_NewProgram(t *testing.T) {
	assert := assert.New(t)

	prog := NewProgram(factorial)
	assert.Len(prog.Opcodes, 8)
	assert.Equal(factorial, prog.Binary())

	op := prog.Opcodes[4]
	assert.Equal(9, op.Ip)
	assert.Equal(0, op.LineNo)
	assert.Equal("cmp cx, 0x0001", op.String())
	assert.Equal([]byte{0x81, 0xF9, 0x01, 0x00}, op.Bytes)
}

func TestProgram_NewProgram_Truncated(t *testing.T) {
	assert := assert.New(t)

	prog := NewProgram([]byte{0x40, 0xB8, 0x01})
	assert.Len(prog.Opcodes, 2)
	assert.Equal([]byte{0xB8, 0x01}, prog.Opcodes[1].Bytes)
	assert.Equal([]byte{0x40, 0xB8, 0x01}, prog.Binary())
}

func TestProgram_Codes(t *testing.T) {
	assert := assert.New(t)

	prog := &Program{
		Opcodes: []Opcode{
			{Ip: 0, Bytes: []byte{0x40}},
			{Ip: 4, Bytes: []byte{0xB8, 0x01, 0x00}},
		},
	}

	var ips []uint16
	for ip := range prog.Codes() {
		ips = append(ips, ip)
		if ip == 5 {
			break
		}
	}
	assert.Equal([]uint16{0, 4, 5}, ips)
	assert.Equal([]byte{0x40, 0, 0, 0, 0xB8, 0x01, 0x00}, prog.Binary())
}
