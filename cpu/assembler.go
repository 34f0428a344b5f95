// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":      "0",
	"IP":          "0",
	"MEMORY_SIZE": fmt.Sprintf("%#x", MEMORY_SIZE),
	"STACK_START": fmt.Sprintf("%#x", STACK_START),
}

// asmTable maps instruction names, ie "mov ax", to their encoding.
var asmTable = func() map[string]*Instruction {
	table := make(map[string]*Instruction, len(InstructionSet))
	for n := range InstructionSet {
		table[InstructionSet[n].Name] = &InstructionSet[n]
	}
	return table
}()

// asmMnemonic is the set of leading words of all instruction names.
var asmMnemonic = func() map[string]bool {
	set := make(map[string]bool, len(InstructionSet))
	for _, inst := range InstructionSet {
		word, _, _ := strings.Cut(inst.Name, " ")
		set[word] = true
	}
	return set
}()

var (
	reLabel     = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
	reCharacter = regexp.MustCompile(`'\\?[^']'`)
	reParen     = regexp.MustCompile(`\$\([^\$]*\)`)
)

// Assembler is a single pass assembler for the implemented instruction
// subset. Jump labels are linked after the final line.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string // Predefines
	Label     map[string]int    // Map of jump labels to addresses.
	Equate    map[string]string // Map of equates.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	value, err = strconv.ParseInt(word, 0, 64)
	if err != nil {
		err = ErrParseNumber(word)
	}
	return
}

// imm16 returns a word as a 16-bit immediate. Negative values down to
// -0x8000 are encoded as two's complement.
func (asm *Assembler) imm16(word string) (value uint16, err error) {
	v64, err := asm.valueOf(word)
	if err != nil {
		return
	}
	if v64 < -0x8000 || v64 > 0xffff {
		err = ErrValueRange
		return
	}
	value = uint16(v64)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v64, verr := asm.valueOf(str)
		if verr != nil {
			// Ignore non-integer equates, they may be register names.
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	for key, ip := range asm.Label {
		pred[key] = starlark.MakeInt(ip)
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// parseLine expands a single line into words, handling equates, labels,
// character literals and $() expressions.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)
	asm.Equate["IP"] = fmt.Sprintf("%v", asm.currentIp())

	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			switch str[1:] {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			default:
				return word
			}
		}
		return fmt.Sprintf("%v", str[0])
	})

	line = reParen.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil && err == nil {
			err = _err
		}
		return fmt.Sprintf("%v", value)
	})
	if err != nil {
		return
	}

	// Commas are optional operand separators.
	words = strings.Fields(strings.ReplaceAll(line, ",", " "))
	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = nil
		return
	}

	for n, word := range words {
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		label := strings.TrimSuffix(words[0], ":")
		if !reLabel.MatchString(label) {
			err = ErrInstructionInvalid
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}
		asm.Label[label] = asm.currentIp()
		words = words[1:]
	}

	return
}

// stripComment removes a trailing ';' comment. A ';' inside a character
// literal is kept.
func stripComment(text string) string {
	quoted := false
	for n := 0; n < len(text); n++ {
		switch text[n] {
		case '\\':
			if quoted {
				n++
			}
		case '\'':
			quoted = !quoted
		case ';':
			if !quoted {
				return text[:n]
			}
		}
	}
	return text
}

// currentIp gets the current Ip
func (asm *Assembler) currentIp() int {
	if len(asm.Opcode) == 0 {
		return 0
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Ip + len(last.Bytes)
}

// lookup finds the instruction named by the leading words, and returns the
// remaining operand words.
func (asm *Assembler) lookup(words []string) (inst *Instruction, args []string, err error) {
	name := strings.ToLower(words[0])
	if len(words) >= 2 {
		inst = asmTable[name+" "+strings.ToLower(words[1])]
		if inst != nil {
			args = words[2:]
			return
		}
	}

	inst = asmTable[name]
	if inst != nil {
		args = words[1:]
		return
	}

	if asmMnemonic[name] {
		err = ErrRegisterInvalid
		return
	}

	err = ErrInstructionInvalid
	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]int)
	asm.Opcode = asm.Opcode[:0]
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("asm: %v: %v", lineno, text)
		}

		line = strings.TrimSpace(stripComment(text))

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	// Final linking of jump labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		lineno = op.LineNo
		line = op.String()

		target, ok := asm.Label[op.LinkLabel]
		if !ok {
			err = ErrLabelMissing(op.LinkLabel)
			return
		}
		offset := target - (op.Ip + len(op.Bytes))
		if offset < -0x80 || offset > 0x7f {
			err = ErrJumpRange
			return
		}
		op.Bytes[len(op.Bytes)-1] = byte(int8(offset))
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// parseWords encodes the words of a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	ip := asm.currentIp()
	opcode := Opcode{LineNo: lineno, Ip: ip, Words: slices.Clone(words)}

	if strings.ToLower(words[0]) == ".db" {
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, word := range words[1:] {
			var value int64
			value, err = asm.valueOf(word)
			if err != nil {
				return
			}
			if value < -0x80 || value > 0xff {
				err = ErrValueRange
				return
			}
			opcode.Bytes = append(opcode.Bytes, byte(value))
		}
		asm.Opcode = append(asm.Opcode, opcode)
		return
	}

	inst, args, err := asm.lookup(words)
	if err != nil {
		return
	}

	switch {
	case inst.Operand == OPERAND_NONE && len(args) > 0:
		err = ErrOpcodeExtraArgs
		return
	case inst.Operand != OPERAND_NONE && len(args) == 0:
		err = ErrOpcodeValueMissing
		return
	case len(args) > 1:
		err = ErrOpcodeExtraArgs
		return
	}

	code := slices.Clone(inst.Code)

	switch inst.Operand {
	case OPERAND_IMM16:
		var value uint16
		value, err = asm.imm16(args[0])
		if err != nil {
			return
		}
		code = append(code, byte(value), byte(value>>8))
	case OPERAND_REL8:
		// The target is an absolute address, or a label linked later.
		// Addresses wrap at the top of memory, as IP does.
		target, verr := asm.imm16(args[0])
		switch {
		case verr == nil:
			offset := int16(target - uint16(ip+len(code)+1))
			if offset < -0x80 || offset > 0x7f {
				err = ErrJumpRange
				return
			}
			code = append(code, byte(int8(offset)))
		case errors.Is(verr, ErrValueRange):
			err = verr
			return
		case reLabel.MatchString(args[0]):
			opcode.LinkLabel = args[0]
			code = append(code, 0)
		default:
			err = verr
			return
		}
	}

	opcode.Bytes = code
	asm.Opcode = append(asm.Opcode, opcode)

	return
}
