package cpu

import (
	"strings"
)

// Flag word bits, [ ...|O|D|I|T|S|Z|A|P|C ].
// Only FLAG_S and FLAG_Z are computed; the rest are reserved.
const (
	FLAG_C = uint16(1 << 0)  // Carry
	FLAG_P = uint16(1 << 2)  // Parity
	FLAG_A = uint16(1 << 4)  // Auxiliary carry
	FLAG_Z = uint16(1 << 6)  // Zero
	FLAG_S = uint16(1 << 7)  // Sign
	FLAG_T = uint16(1 << 8)  // Trap
	FLAG_I = uint16(1 << 9)  // Interrupt enable
	FLAG_D = uint16(1 << 10) // Direction
	FLAG_O = uint16(1 << 11) // Overflow
)

// flagNames in display order, most significant first.
var flagNames = []struct {
	mask uint16
	name byte
}{
	{FLAG_O, 'O'},
	{FLAG_D, 'D'},
	{FLAG_I, 'I'},
	{FLAG_T, 'T'},
	{FLAG_S, 'S'},
	{FLAG_Z, 'Z'},
	{FLAG_A, 'A'},
	{FLAG_P, 'P'},
	{FLAG_C, 'C'},
}

// Registers is the register file.
type Registers struct {
	Ax, Bx, Cx, Dx uint16 // General purpose.
	Si, Di, Sp, Bp uint16 // Index and pointer.
	Ip             uint16 // Address of the next byte to fetch.
	Flags          uint16 // Flag word.
}

// Flag returns true if all of the bits in mask are set.
func (regs *Registers) Flag(mask uint16) bool {
	return (regs.Flags & mask) == mask
}

// SetSZ sets the zero and sign flags from value, leaving all other flags
// unchanged.
func (regs *Registers) SetSZ(value uint16) {
	if value == 0 {
		regs.Flags |= FLAG_Z
	} else {
		regs.Flags &^= FLAG_Z
	}

	if (value & 0x8000) != 0 {
		regs.Flags |= FLAG_S
	} else {
		regs.Flags &^= FLAG_S
	}
}

// FlagString renders a flag word as ODITSZAPC, with '-' for clear bits.
func FlagString(flags uint16) string {
	var sb strings.Builder
	for _, fn := range flagNames {
		if (flags & fn.mask) != 0 {
			sb.WriteByte(fn.name)
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}
