package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const factorialSource = `; 5! left on the stack
.equ N 5
start:
    mov ax, 1
    mov cx, N
loop:
    mul cx          ; dx:ax = ax * cx
    dec cx
    cmp cx, 1
    jnz loop
    push ax
    hlt
`

func TestAssembler_Factorial(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(factorialSource))
	assert.NoError(err)
	assert.Equal(factorial, prog.Binary())

	assert.Equal(0, asm.Label["start"])
	assert.Equal(6, asm.Label["loop"])
	assert.Len(prog.Opcodes, 8)

	jnz := prog.Opcodes[5]
	assert.Equal(10, jnz.LineNo)
	assert.Equal(13, jnz.Ip)
	assert.Equal("loop", jnz.LinkLabel)
	assert.Equal([]byte{0x75, 0xF7}, jnz.Bytes)
}

func TestAssembler_Values(t *testing.T) {
	table := []struct {
		name   string
		source string
		binary []byte
	}{
		{"hex", "mov bx 0xabcd", []byte{0xBB, 0xcd, 0xab}},
		{"negative", "mov cx, -1", []byte{0xB9, 0xff, 0xff}},
		{"character", "mov ax 'A'", []byte{0xB8, 0x41, 0x00}},
		{"escape", `mov ax '\n'`, []byte{0xB8, 0x0a, 0x00}},
		{"expression", ".equ N 5\nmov ax $(N * 2 + 1)", []byte{0xB8, 0x0b, 0x00}},
		{"predefined", "mov ax $(STACK_START - 2)", []byte{0xB8, 0xee, 0xff}},
		{"lineno", "\n\nmov ax LINENO", []byte{0xB8, 0x03, 0x00}},
		{"upper_case", "MOV AX, 2\nHLT", []byte{0xB8, 0x02, 0x00, 0xF4}},
		{"db", ".db 0x81, 0xc1 -1", []byte{0x81, 0xc1, 0xff}},
		{"jnz_absolute", "inc ax\njnz 0x0000", []byte{0x40, 0x75, 0xfd}},
		{"jnz_forward", "jnz end\ninc ax\nend: hlt", []byte{0x75, 0x01, 0x40, 0xF4}},
		{"jnz_self", "here: jnz here", []byte{0x75, 0xfe}},
		{"jnz_ip", "inc ax\njnz $(IP + 2)", []byte{0x40, 0x75, 0x00}},
		{"jnz_wrap", "jnz 0xfff2", []byte{0x75, 0xf0}},
		{"semicolon", "mov ax ';'", []byte{0xB8, 0x3b, 0x00}},
		{"semicolon_comment", "mov ax ';' ; a ';' comment", []byte{0xB8, 0x3b, 0x00}},
		{"label_expression", "a: inc ax\nb: inc ax\nmov ax $(b - a)", []byte{0x40, 0x40, 0xB8, 0x01, 0x00}},
		{"empty", "; nothing\n\n", nil},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			asm := &Assembler{}
			prog, err := asm.Parse(strings.NewReader(entry.source))
			assert.NoError(err)
			if err == nil {
				assert.Equal(entry.binary, prog.Binary())
			}
		})
	}
}

func TestAssembler_Errors(t *testing.T) {
	table := []struct {
		name   string
		source string
		err    error
		lineno int
	}{
		{"instruction", "nop", ErrInstructionInvalid, 1},
		{"register", "inc ax\nmov dx 1", ErrRegisterInvalid, 2},
		{"extra", "inc ax 1", ErrOpcodeExtraArgs, 1},
		{"extra_imm", "mov ax 1 2", ErrOpcodeExtraArgs, 1},
		{"missing", "mov ax", ErrOpcodeValueMissing, 1},
		{"missing_db", ".db", ErrOpcodeValueMissing, 1},
		{"range", "mov ax 0x10000", ErrValueRange, 1},
		{"range_db", ".db 256", ErrValueRange, 1},
		{"jump_range", "jnz 0x1000", ErrJumpRange, 1},
		{"jump_value", "jnz 0x10000", ErrValueRange, 1},
		{"link_range", "jnz far\n.db " + strings.Repeat("0 ", 200) + "\nfar: hlt", ErrJumpRange, 1},
		{"label_dup", "a: inc ax\na: hlt", ErrLabelDuplicate, 2},
		{"equ_syntax", ".equ N", ErrEquateSyntax, 1},
		{"equ_dup", ".equ N 1\n.equ N 2", ErrEquateDuplicate, 2},
	}

	for _, entry := range table {
		t.Run(entry.name, func(t *testing.T) {
			assert := assert.New(t)

			asm := &Assembler{}
			_, err := asm.Parse(strings.NewReader(entry.source))
			assert.True(errors.Is(err, entry.err), "%v", err)

			var syntax *ErrSyntax
			if assert.True(errors.As(err, &syntax)) {
				assert.Equal(entry.lineno, syntax.LineNo)
			}
		})
	}
}

func TestAssembler_ParseErrors(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	_, err := asm.Parse(strings.NewReader("jnz nowhere"))
	var missing ErrLabelMissing
	assert.True(errors.As(err, &missing))
	assert.Equal(ErrLabelMissing("nowhere"), missing)

	_, err = asm.Parse(strings.NewReader("mov ax 12z"))
	var number ErrParseNumber
	assert.True(errors.As(err, &number))

	_, err = asm.Parse(strings.NewReader("mov ax $(\"text\")"))
	var expr ErrParseExpression
	assert.True(errors.As(err, &expr))

	_, err = asm.Parse(strings.NewReader("mov ax $(undefined + 1)"))
	assert.Error(err)
}

func TestAssembler_Predefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("COUNT", "7")
	asm.Predefine("COUNT", "6")
	asm.Predefine("START", "1")

	prog, err := asm.Parse(strings.NewReader("mov cx COUNT\nmov ax $(START + COUNT)"))
	assert.NoError(err)
	assert.Equal([]byte{0xB9, 0x06, 0x00, 0xB8, 0x07, 0x00}, prog.Binary())
}

func TestAssembler_Disassembly(t *testing.T) {
	assert := assert.New(t)

	// The disassembly of an image assembles back to the same image.
	image := append([]byte{0xF7, 0x00, 0x81, 0xC1}, factorial...)
	image = append(image, 0xFF)

	var lines []string
	for _, op := range NewProgram(image).Opcodes {
		lines = append(lines, op.String())
	}

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(lines, "\n")))
	assert.NoError(err)
	assert.Equal(image, prog.Binary())

	// A backward jump across address 0 lists as a high address.
	image = []byte{OP_JNZ, 0xF0}
	listing := NewProgram(image).Opcodes[0].String()
	assert.Equal("jnz 0xfff2", listing)
	prog, err = asm.Parse(strings.NewReader(listing))
	assert.NoError(err)
	assert.Equal(image, prog.Binary())
}
