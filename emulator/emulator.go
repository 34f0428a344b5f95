// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"io"
	"iter"
	"maps"

	"github.com/ezrec/realmode/cpu"
	"github.com/ezrec/realmode/internal"
)

const (
	STEP_LIMIT = 50 // Default cap on steps per run.
)

var _emulator_defines = map[string]string{
	"STEP_LIMIT": fmt.Sprintf("%v", STEP_LIMIT),
}

// Emulator state. CPU + program listing + driver loop.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Trace io.Writer // If set, receives one line per step.

	steps int
}

// NewEmulator creates a new emulator, loaded with the factorial program.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: FactorialProgram(),
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset the CPU and load the program at address 0.
func (emu *Emulator) Reset() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()
	emu.Cpu.Load(0, emu.Program.Binary())
	emu.steps = 0
}

// Steps returns the number of ticks since a reset.
func (emu *Emulator) Steps() int {
	return emu.steps
}

// LineNo returns the source line number of the instruction at IP, or 0.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Registers().Ip)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.Opcode.LineNo
}

// Tick performs a single step of the emulator.
// done is set once the CPU has halted.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	if emu.Cpu.Halted() {
		done = true
		return
	}

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Step()
	emu.steps++

	if emu.Trace != nil {
		regs := emu.Cpu.Registers()
		fmt.Fprintf(emu.Trace, "Step %02d | IP: 0x%04X | AX: %5d | CX: %5d\n",
			emu.steps, regs.Ip, regs.Ax, regs.Cx)
	}

	done = emu.Cpu.Halted()

	return
}

// Run ticks until the CPU halts or limit steps have run.
// Returns ErrStepLimit if the limit was reached first, or the runtime error
// from an unknown opcode. Either way the machine is left stopped and the
// stack can be examined.
// A halted emulator runs no steps.
func (emu *Emulator) Run(limit int) (steps int, err error) {
	done := emu.Cpu.Halted()
	for !done && steps < limit {
		done, err = emu.Tick()
		steps++
		if err != nil {
			return
		}
	}

	if !done {
		err = ErrStepLimit
	}

	return
}

// Result pops the top of the stack.
func (emu *Emulator) Result() uint16 {
	return emu.Cpu.Pop()
}
